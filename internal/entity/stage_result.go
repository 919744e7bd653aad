package entity

import "github.com/joseph-ayodele/filings-tracker/constants"

// StageResult maps document ids to the value one stage produced. An id that
// is missing from Values means the stage produced nothing for it, which is
// not the same as an empty string.
type StageResult struct {
	Stage  constants.Stage   `json:"stage"`
	Values map[string]string `json:"values"`
}

// NewStageResult returns an empty result for stage.
func NewStageResult(stage constants.Stage) StageResult {
	return StageResult{Stage: stage, Values: make(map[string]string)}
}

// Lookup returns the value for id and whether the stage produced one.
func (r StageResult) Lookup(id string) (string, bool) {
	v, ok := r.Values[id]
	return v, ok
}
