package models

import "context"

// ParameterType is the declared type of an operation parameter.
type ParameterType string

const (
	ParamString  ParameterType = "string"
	ParamInteger ParameterType = "integer"
	ParamNumber  ParameterType = "number"
	ParamBoolean ParameterType = "boolean"
	// ParamDate is a YYYY-MM-DD string.
	ParamDate ParameterType = "date"
)

// Parameter describes one positional argument of an operation.
type Parameter struct {
	Name         string        `json:"name" validate:"required"`
	Type         ParameterType `json:"type" validate:"required,oneof=string integer number boolean date"`
	Required     bool          `json:"required"`
	Description  string        `json:"description" validate:"required"`
	DefaultValue interface{}   `json:"defaultValue,omitempty"`
	Minimum      *float64      `json:"minimum,omitempty"` // integer and number only
}

// AtLeast returns a Minimum bound.
func AtLeast(v float64) *float64 {
	return &v
}

// HasDefault reports whether the parameter declares a default value.
func (p Parameter) HasDefault() bool {
	return p.DefaultValue != nil
}

// HandlerFunc is the callable behind an operation. args follows the
// declared parameter order; an absent optional parameter is nil.
type HandlerFunc func(ctx context.Context, args []interface{}) (Result, error)

// OperationDefinition is one entry of the operation catalog.
type OperationDefinition struct {
	Name        string      `json:"name" validate:"required"`
	Description string      `json:"description" validate:"required"`
	Parameters  []Parameter `json:"parameters" validate:"dive"`
	Examples    []string    `json:"examples" validate:"min=1,dive,required"`
	Category    string      `json:"category" validate:"required"`
	Handler     HandlerFunc `json:"-" validate:"required"`
}

// ParameterNames returns the declared names in positional order.
func (d OperationDefinition) ParameterNames() []string {
	names := make([]string, len(d.Parameters))
	for i, p := range d.Parameters {
		names[i] = p.Name
	}
	return names
}

// Parameter looks up a declared parameter by name.
func (d OperationDefinition) Parameter(name string) (Parameter, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}
