package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/vaccine-tracker/constants"
)

// File is the on-disk shape of a schedule override:
//
//	{"rules": [{"name": "Tetanus", "description": "...", "due_age": 30,
//	            "interval_years": 10, "importance": "high"}]}
type File struct {
	Rules []Rule `json:"rules"`
}

// RuleFileSchema returns the JSON Schema a schedule file must satisfy.
func RuleFileSchema() map[string]any {
	rule := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"name":           map[string]any{"type": "string", "minLength": 1},
			"description":    map[string]any{"type": "string"},
			"due_age":        map[string]any{"type": "integer", "minimum": 0},
			"interval_years": map[string]any{"type": "number", "exclusiveMinimum": 0},
			"importance":     map[string]any{"type": "string", "enum": constants.ImportanceValues()},
		},
		"required": []string{"name", "due_age", "interval_years", "importance"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"rules": map[string]any{"type": "array", "minItems": 1, "items": rule},
		},
		"required": []string{"rules"},
	}
}

// ParseRules validates data against RuleFileSchema and decodes it.
func ParseRules(data []byte) ([]Rule, error) {
	if err := validateAgainstSchema(RuleFileSchema(), data); err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	seen := make(map[string]bool, len(f.Rules))
	for _, r := range f.Rules {
		if seen[r.Name] {
			return nil, fmt.Errorf("duplicate schedule rule %q", r.Name)
		}
		seen[r.Name] = true
	}
	return f.Rules, nil
}

// LoadRules reads a schedule file. An empty path yields DefaultRules.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule %s: %w", path, err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("schedule %s: %w", path, err)
	}
	return rules, nil
}

func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schedule.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schedule.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal schedule: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("schedule does not match schema: %w", err)
	}
	return nil
}
