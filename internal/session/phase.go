package session

import (
	"fmt"

	"github.com/joseph-ayodele/filings-tracker/constants"
	"github.com/joseph-ayodele/filings-tracker/internal/common"
)

// isAllowedTransition encodes the session phase machine. There is no terminal
// phase; QUERYING -> QUERYING is a superseding query attempt. UPLOADING may
// return to COMPLETED, STORED or STORE_FAILED when records survive the upload.
func isAllowedTransition(from, to constants.Phase) bool {
	switch from {
	case constants.PhaseIdle:
		return to == constants.PhaseUploading
	case constants.PhaseUploading:
		switch to {
		case constants.PhaseReady, constants.PhaseIdle,
			constants.PhaseCompleted, constants.PhaseStored, constants.PhaseStoreFailed:
			return true
		}
		return false
	case constants.PhaseReady:
		return to == constants.PhaseUploading || to == constants.PhaseQuerying
	case constants.PhaseQuerying:
		return to == constants.PhaseCompleted || to == constants.PhaseFailed || to == constants.PhaseQuerying
	case constants.PhaseCompleted:
		return to == constants.PhaseQuerying || to == constants.PhaseStoring || to == constants.PhaseUploading
	case constants.PhaseFailed:
		return to == constants.PhaseQuerying || to == constants.PhaseUploading
	case constants.PhaseStoring:
		return to == constants.PhaseStored || to == constants.PhaseStoreFailed
	case constants.PhaseStored, constants.PhaseStoreFailed:
		return to == constants.PhaseQuerying || to == constants.PhaseStoring || to == constants.PhaseUploading
	default:
		return false
	}
}

// transition moves the session to phase to. Callers hold s.mu.
func (s *Session) transition(to constants.Phase) error {
	if !isAllowedTransition(s.phase, to) {
		return fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, s.phase, to)
	}
	s.logger.Debug("session.phase", "session_id", s.id, "from", s.phase, "to", to)
	s.phase = to
	return nil
}
