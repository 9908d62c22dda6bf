package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ParamType is the semantic type of a tool parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
)

// Param declares one tool parameter.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	// Default is applied when an optional parameter is absent.
	Default any
}

// Definition declares a callable tool: its name, the natural-language
// description the reasoning model selects on, and its parameters.
type Definition struct {
	Name        string
	Description string
	Params      []Param
}

// Schema renders the parameter list as a JSON Schema object.
func (d Definition) Schema() json.RawMessage {
	properties := make(map[string]any, len(d.Params))
	var required []string
	for _, p := range d.Params {
		prop := map[string]any{
			"type":        string(p.Type),
			"description": p.Description,
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	data, _ := json.Marshal(schema)
	return data
}

// Args holds validated tool arguments keyed by parameter name.
type Args map[string]any

// String returns a string argument, or "" if absent.
func (a Args) String(name string) string {
	if v, ok := a[name].(string); ok {
		return v
	}
	return ""
}

// Int returns an integer argument, or 0 if absent.
func (a Args) Int(name string) int64 {
	if v, ok := a[name].(int64); ok {
		return v
	}
	return 0
}

// ValidateArgs checks raw JSON arguments against the declared parameters,
// applies defaults, and normalizes integer values. Unknown extra keys are
// ignored rather than rejected; models routinely add them.
func (d Definition) ValidateArgs(raw json.RawMessage) (Args, error) {
	decoded := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, &ValidationError{Tool: d.Name, Reason: "arguments are not a JSON object: " + err.Error()}
		}
	}

	args := make(Args, len(d.Params))
	for _, p := range d.Params {
		v, present := decoded[p.Name]
		if !present || v == nil {
			if p.Required {
				return nil, &ValidationError{Tool: d.Name, Reason: "missing required argument " + p.Name}
			}
			if p.Default != nil {
				args[p.Name] = normalizeDefault(p, p.Default)
			}
			continue
		}

		switch p.Type {
		case TypeString:
			s, ok := v.(string)
			if !ok {
				return nil, &ValidationError{Tool: d.Name, Reason: fmt.Sprintf("argument %s must be a string", p.Name)}
			}
			args[p.Name] = s
		case TypeInteger:
			n, err := coerceInt(v)
			if err != nil {
				return nil, &ValidationError{Tool: d.Name, Reason: fmt.Sprintf("argument %s must be an integer", p.Name)}
			}
			args[p.Name] = n
		default:
			return nil, &ValidationError{Tool: d.Name, Reason: fmt.Sprintf("argument %s has unsupported type %s", p.Name, p.Type)}
		}
	}
	return args, nil
}

// coerceInt accepts JSON numbers and numeric strings. Models extract
// identifiers out of spoken-formatted text and occasionally quote them.
func coerceInt(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("not an integer: %v", n)
		}
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("not an integer: %T", v)
	}
}

func normalizeDefault(p Param, v any) any {
	if p.Type == TypeInteger {
		if n, err := coerceInt(v); err == nil {
			return n
		}
	}
	return v
}
