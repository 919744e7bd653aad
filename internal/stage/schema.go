package stage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/filings-tracker/constants"
)

// BuildResultsJSONSchema returns the schema of a stage response whose
// per-file value lives under valueKey. A null value counts as absent.
func BuildResultsJSONSchema(valueKey string) map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"fileName": map[string]any{"type": "string", "minLength": 1},
			valueKey:   map[string]any{"type": []string{"string", "null"}},
		},
		"required": []string{"fileName"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"results": map[string]any{"type": "array", "items": item},
		},
		"required": []string{"results"},
	}
}

// CompileSchema compiles a schema map for repeated validation.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateJSON validates data against a compiled schema.
func ValidateJSON(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// schemaCache compiles one response schema per stage on first use.
type schemaCache struct {
	mu      sync.Mutex
	schemas map[constants.Stage]*jsonschema.Schema
}

func (c *schemaCache) get(st constants.Stage, valueKey string) (*jsonschema.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.schemas[st]; ok {
		return s, nil
	}
	s, err := CompileSchema(BuildResultsJSONSchema(valueKey))
	if err != nil {
		return nil, err
	}
	if c.schemas == nil {
		c.schemas = make(map[constants.Stage]*jsonschema.Schema)
	}
	c.schemas[st] = s
	return s, nil
}
