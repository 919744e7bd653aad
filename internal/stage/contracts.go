package stage

import (
	"context"

	"github.com/joseph-ayodele/filings-tracker/constants"
	"github.com/joseph-ayodele/filings-tracker/internal/entity"
)

// Request is one round trip to a stage service.
type Request struct {
	Stage     constants.Stage
	SessionID string
	FileNames []string
}

// Client is the behavior the orchestrator depends on. Implementations return
// errors wrapping common.ErrStageTransport or common.ErrMalformedResponse.
type Client interface {
	Extract(ctx context.Context, req Request) (entity.StageResult, error)
}

// wireRequest is the JSON body every stage service accepts.
type wireRequest struct {
	FileNames []string `json:"fileNames"`
	SessionID string   `json:"sessionId,omitempty"`
}
