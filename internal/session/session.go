// Package session holds per-operator state: uploaded documents, the selected
// subset, the lifecycle phase and the latest combined records.
package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/filings-tracker/constants"
	"github.com/joseph-ayodele/filings-tracker/internal/common"
	"github.com/joseph-ayodele/filings-tracker/internal/entity"
)

// Session is owned by the manager; other components only see tickets and
// snapshots, never the mutable fields.
type Session struct {
	mu sync.Mutex

	id              string
	uploadSessionID string
	documents       []entity.Document
	selection       []string
	selected        map[string]struct{}
	phase           constants.Phase
	records         []entity.CombinedRecord
	notice          string
	token           uint64
	// resume is the settled phase an upload interrupted while records were held.
	resume constants.Phase

	logger *slog.Logger
}

// QueryTicket is the snapshot a query attempt works from.
type QueryTicket struct {
	Token       uint64
	SessionID   string
	SelectedIDs []string
}

// Snapshot is a read-only copy of the session for display.
type Snapshot struct {
	ID              string                  `json:"id"`
	UploadSessionID string                  `json:"upload_session_id"`
	Phase           constants.Phase         `json:"phase"`
	Documents       []entity.Document       `json:"documents"`
	Selection       []string                `json:"selection"`
	Records         []entity.CombinedRecord `json:"records"`
	Notice          string                  `json:"notice,omitempty"`
	Token           uint64                  `json:"token"`
}

// New returns an idle session.
func New(id string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:       id,
		selected: make(map[string]struct{}),
		phase:    constants.PhaseIdle,
		logger:   logger,
	}
}

func (s *Session) ID() string { return s.id }

// Phase returns the current phase.
func (s *Session) Phase() constants.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// BeginUpload enters UPLOADING. When records are held the current phase is
// remembered so FinishUpload can return to it and the records stay storable.
func (s *Session) BeginUpload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.phase
	if err := s.transition(constants.PhaseUploading); err != nil {
		return err
	}
	s.resume = ""
	if len(s.records) > 0 {
		s.resume = from
	}
	return nil
}

// RegisterUpload appends doc unselected. Duplicate ids are kept as separate
// entries. A non-empty receipt session id replaces the stored one.
func (s *Session) RegisterUpload(doc entity.Document, receipt entity.UploadReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != constants.PhaseUploading {
		return fmt.Errorf("%w: register upload while %s", common.ErrInvalidTransition, s.phase)
	}
	doc.Selected = false
	s.documents = append(s.documents, doc)
	if receipt.SessionID != "" {
		s.uploadSessionID = receipt.SessionID
	}
	s.logger.Info("session.upload.registered",
		"session_id", s.id,
		"document_id", doc.ID,
		"upload_session_id", receipt.SessionID,
		"chunks", receipt.ChunkCount,
	)
	return nil
}

// FinishUpload leaves UPLOADING for READY, or IDLE when nothing was registered.
// A session holding records goes back to the phase it settled in before the
// upload.
func (s *Session) FinishUpload(uploadErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uploadErr != nil {
		s.notice = uploadErr.Error()
	}
	resume := s.resume
	s.resume = ""
	if resume != "" && len(s.records) > 0 {
		return s.transition(resume)
	}
	if len(s.documents) == 0 {
		return s.transition(constants.PhaseIdle)
	}
	return s.transition(constants.PhaseReady)
}

// ToggleSelection flips id in the selection. Unregistered ids are ignored.
func (s *Session) ToggleSelection(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasDocument(id) {
		return false
	}
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		for i, sel := range s.selection {
			if sel == id {
				s.selection = append(s.selection[:i], s.selection[i+1:]...)
				break
			}
		}
		return true
	}
	s.selected[id] = struct{}{}
	s.selection = append(s.selection, id)
	return true
}

// SelectAll selects every registered id in upload order.
func (s *Session) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectAll()
}

// ClearAll empties the selection.
func (s *Session) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearAll()
}

// ToggleAll clears the selection when every id is selected, otherwise selects all.
func (s *Session) ToggleAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.selection) > 0 && len(s.selection) == len(s.uniqueIDs()) {
		s.clearAll()
		return
	}
	s.selectAll()
}

func (s *Session) selectAll() {
	s.selection = s.uniqueIDs()
	s.selected = make(map[string]struct{}, len(s.selection))
	for _, id := range s.selection {
		s.selected[id] = struct{}{}
	}
}

func (s *Session) clearAll() {
	s.selection = nil
	s.selected = make(map[string]struct{})
}

func (s *Session) uniqueIDs() []string {
	seen := make(map[string]struct{}, len(s.documents))
	ids := make([]string, 0, len(s.documents))
	for _, d := range s.documents {
		if _, ok := seen[d.ID]; ok {
			continue
		}
		seen[d.ID] = struct{}{}
		ids = append(ids, d.ID)
	}
	return ids
}

func (s *Session) hasDocument(id string) bool {
	for _, d := range s.documents {
		if d.ID == id {
			return true
		}
	}
	return false
}

// BeginQuery starts a query attempt. It returns ok=false without changing
// anything when the selection is empty or no upload session id is known.
// Starting a query clears previous records and supersedes any attempt still
// in flight.
func (s *Session) BeginQuery() (QueryTicket, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.selection) == 0 || s.uploadSessionID == "" {
		return QueryTicket{}, false, nil
	}
	if err := s.transition(constants.PhaseQuerying); err != nil {
		return QueryTicket{}, false, err
	}
	s.token++
	s.records = nil
	s.notice = ""
	ids := make([]string, len(s.selection))
	copy(ids, s.selection)
	return QueryTicket{Token: s.token, SessionID: s.uploadSessionID, SelectedIDs: ids}, true, nil
}

// CompleteQuery publishes records for the attempt tagged token. It reports
// false and discards the records when a newer attempt has started.
func (s *Session) CompleteQuery(token uint64, records []entity.CombinedRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		s.logger.Info("session.query.stale", "session_id", s.id, "token", token, "current", s.token)
		return false
	}
	if err := s.transition(constants.PhaseCompleted); err != nil {
		s.logger.Warn("session.query.complete_rejected", "session_id", s.id, "token", token, "error", err)
		return false
	}
	s.records = records
	return true
}

// FailQuery records a failed attempt; stale tokens are ignored.
func (s *Session) FailQuery(token uint64, queryErr error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		s.logger.Info("session.query.stale", "session_id", s.id, "token", token, "current", s.token)
		return false
	}
	if err := s.transition(constants.PhaseFailed); err != nil {
		s.logger.Warn("session.query.fail_rejected", "session_id", s.id, "token", token, "error", err)
		return false
	}
	s.records = nil
	if queryErr != nil {
		s.notice = queryErr.Error()
	}
	return true
}

// BeginStore enters STORING and returns a copy of the records to persist.
func (s *Session) BeginStore() ([]entity.CombinedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return nil, common.ErrStoreEmpty
	}
	if err := s.transition(constants.PhaseStoring); err != nil {
		return nil, err
	}
	out := make([]entity.CombinedRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// FinishStore leaves STORING. Records are kept either way so a failed store
// can be retried.
func (s *Session) FinishStore(storeErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if storeErr != nil {
		s.notice = storeErr.Error()
		return s.transition(constants.PhaseStoreFailed)
	}
	s.notice = ""
	return s.transition(constants.PhaseStored)
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := make([]entity.Document, len(s.documents))
	for i, d := range s.documents {
		_, d.Selected = s.selected[d.ID]
		docs[i] = d
	}
	sel := make([]string, len(s.selection))
	copy(sel, s.selection)
	recs := make([]entity.CombinedRecord, len(s.records))
	copy(recs, s.records)
	return Snapshot{
		ID:              s.id,
		UploadSessionID: s.uploadSessionID,
		Phase:           s.phase,
		Documents:       docs,
		Selection:       sel,
		Records:         recs,
		Notice:          s.notice,
		Token:           s.token,
	}
}
