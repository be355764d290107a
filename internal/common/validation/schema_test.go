package validation

import (
	"encoding/json"
	"testing"

	"query-router/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rangeParams = []models.Parameter{
	{Name: "startDate", Type: models.ParamDate, Required: true, Description: "from"},
	{Name: "endDate", Type: models.ParamDate, Required: true, Description: "to"},
	{Name: "limit", Type: models.ParamInteger, Description: "max rows", DefaultValue: 10, Minimum: models.AtLeast(1)},
}

func TestSchemaFor(t *testing.T) {
	s := SchemaFor(rangeParams)

	assert.Equal(t, "object", s.Type)
	assert.Equal(t, []string{"startDate", "endDate"}, s.Required)
	assert.Equal(t, "string", s.Properties["startDate"].Type)
	assert.Equal(t, datePattern, s.Properties["startDate"].Pattern)
	assert.Equal(t, "integer", s.Properties["limit"].Type)
	assert.Equal(t, 10, s.Properties["limit"].Default)
	require.NotNil(t, s.Properties["limit"].Minimum)
	assert.Equal(t, 1.0, *s.Properties["limit"].Minimum)
	assert.Nil(t, s.Properties["startDate"].Minimum)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s.Snapshot()), &decoded))
	assert.Equal(t, false, decoded["additionalProperties"])
}

func TestValidateArguments(t *testing.T) {
	tests := []struct {
		name        string
		args        map[string]interface{}
		valid       bool
		errorFields []string
	}{
		{
			name:  "valid",
			args:  map[string]interface{}{"startDate": "2024-01-01", "endDate": "2024-01-31", "limit": 5},
			valid: true,
		},
		{
			name:        "bad date format",
			args:        map[string]interface{}{"startDate": "Jan 1", "endDate": "2024-01-31"},
			errorFields: []string{"startDate"},
		},
		{
			name:        "wrong integer type",
			args:        map[string]interface{}{"startDate": "2024-01-01", "endDate": "2024-01-31", "limit": "five"},
			errorFields: []string{"limit"},
		},
		{
			name:        "negative limit",
			args:        map[string]interface{}{"startDate": "2024-01-01", "endDate": "2024-01-31", "limit": -5},
			errorFields: []string{"limit"},
		},
		{
			name:        "unknown key",
			args:        map[string]interface{}{"startDate": "2024-01-01", "endDate": "2024-01-31", "country": "USA"},
			errorFields: []string{"(root)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ValidateArguments(rangeParams, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid)

			var fields []string
			for _, e := range res.Errors {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.errorFields, fields)
		})
	}
}

func TestValidateArguments_NoParameters(t *testing.T) {
	res, err := ValidateArguments(nil, nil)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Messages())
}
