package stage

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/filings-tracker/internal/common"
	"github.com/joseph-ayodele/filings-tracker/internal/entity"
)

// ParseResults validates raw against schema and maps it onto a StageResult.
// Entries for file names that were not requested make the whole response
// malformed. When a file name repeats, the first entry wins.
func ParseResults(req Request, valueKey string, schema *jsonschema.Schema, raw []byte) (entity.StageResult, error) {
	if err := ValidateJSON(schema, raw); err != nil {
		return entity.StageResult{}, fmt.Errorf("%w: %s: %v", common.ErrMalformedResponse, req.Stage, err)
	}

	var body struct {
		Results []map[string]json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return entity.StageResult{}, fmt.Errorf("%w: %s: %v", common.ErrMalformedResponse, req.Stage, err)
	}

	requested := make(map[string]struct{}, len(req.FileNames))
	for _, n := range req.FileNames {
		requested[n] = struct{}{}
	}

	out := entity.NewStageResult(req.Stage)
	seen := make(map[string]struct{}, len(body.Results))
	for _, item := range body.Results {
		var name string
		if err := json.Unmarshal(item["fileName"], &name); err != nil {
			return entity.StageResult{}, fmt.Errorf("%w: %s: fileName: %v", common.ErrMalformedResponse, req.Stage, err)
		}
		if _, ok := requested[name]; !ok {
			return entity.StageResult{}, fmt.Errorf("%w: %s: unrequested file %q", common.ErrMalformedResponse, req.Stage, name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		rawVal, ok := item[valueKey]
		if !ok {
			continue
		}
		var val *string
		if err := json.Unmarshal(rawVal, &val); err != nil {
			return entity.StageResult{}, fmt.Errorf("%w: %s: %s: %v", common.ErrMalformedResponse, req.Stage, valueKey, err)
		}
		if val == nil {
			continue
		}
		out.Values[name] = *val
	}
	return out, nil
}
