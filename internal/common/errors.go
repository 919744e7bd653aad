package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")

	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid phase transition")
	ErrStageTransport    = errors.New("stage transport error")
	ErrMalformedResponse = errors.New("malformed stage response")
	ErrStoreEmpty        = errors.New("no records to store")
)

// NewAppError constructs an AppError.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// FromGRPCStatus maps a gRPC error onto the stage error taxonomy. Codes that
// mean the peer answered with something unusable count as malformed; the
// rest are transport failures.
func FromGRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", ErrStageTransport, err)
	}
	switch st.Code() {
	case codes.InvalidArgument, codes.DataLoss, codes.Unimplemented:
		return fmt.Errorf("%w: %s", ErrMalformedResponse, st.Message())
	default:
		return fmt.Errorf("%w: %s: %s", ErrStageTransport, st.Code(), st.Message())
	}
}
