// Package validation checks extracted arguments against a JSON schema
// derived from an operation's declared parameters.
package validation

import (
	"encoding/json"
	"fmt"
	"sort"

	"query-router/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

const datePattern = `^\d{4}-\d{2}-\d{2}$`

// JSONSchema is the object schema for one operation's arguments.
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties"`
}

type Property struct {
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Default     interface{} `json:"default,omitempty"`
	Pattern     string      `json:"pattern,omitempty"`
	Minimum     *float64    `json:"minimum,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Messages flattens the errors into "field: message" strings.
func (r *ValidationResult) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return out
}

// SchemaFor builds the argument schema for a parameter list.
func SchemaFor(params []models.Parameter) JSONSchema {
	s := JSONSchema{
		Type:       "object",
		Properties: make(map[string]Property, len(params)),
	}
	for _, p := range params {
		prop := Property{Description: p.Description, Default: p.DefaultValue}
		switch p.Type {
		case models.ParamDate:
			prop.Type = "string"
			prop.Pattern = datePattern
		case models.ParamInteger, models.ParamNumber:
			prop.Type = string(p.Type)
			prop.Minimum = p.Minimum
		default:
			prop.Type = string(p.Type)
		}
		s.Properties[p.Name] = prop
		if p.Required {
			s.Required = append(s.Required, p.Name)
		}
	}
	return s
}

// Snapshot renders the schema as compact JSON for storage next to a
// phrase pattern.
func (s JSONSchema) Snapshot() string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ValidateArguments checks args against the schema built from params.
func ValidateArguments(params []models.Parameter, args map[string]interface{}) (*ValidationResult, error) {
	if args == nil {
		args = map[string]interface{}{}
	}

	schemaLoader := gojsonschema.NewGoLoader(SchemaFor(params))
	documentLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
			Code:    e.Type(),
		})
	}
	sort.Slice(out.Errors, func(i, j int) bool { return out.Errors[i].Field < out.Errors[j].Field })
	return out, nil
}
