package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_MarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		expected string
	}{
		{"scalar", ScalarResult(42), `42`},
		{"record", RecordResult(Record{"name": "Acme"}), `{"name":"Acme"}`},
		{"empty records", RecordsResult(nil), `[]`},
		{"records", RecordsResult([]Record{{"id": 1}}), `[{"id":1}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.result)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(b))
		})
	}
}

func TestResult_UnmarshalJSON(t *testing.T) {
	var rs Result
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1},{"id":2}]`), &rs))
	assert.Equal(t, ResultRecords, rs.Kind)
	assert.Len(t, rs.Records, 2)

	var rec Result
	require.NoError(t, json.Unmarshal([]byte(`{"total": 3}`), &rec))
	assert.Equal(t, ResultRecord, rec.Kind)
	assert.Equal(t, float64(3), rec.Record["total"])

	var scalar Result
	require.NoError(t, json.Unmarshal([]byte(` 12.5`), &scalar))
	assert.Equal(t, ResultScalar, scalar.Kind)
	assert.Equal(t, 12.5, scalar.Scalar)

	var empty Result
	require.NoError(t, json.Unmarshal([]byte(`[]`), &empty))
	assert.NotNil(t, empty.Records)
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "1532.5", ScalarResult(1532.5).String())
	assert.Equal(t, `{"total":3}`, RecordResult(Record{"total": 3}).String())
}

func TestOperationDefinition_ParameterNames(t *testing.T) {
	def := OperationDefinition{Parameters: []Parameter{
		{Name: "startDate", Type: ParamDate},
		{Name: "endDate", Type: ParamDate},
	}}
	assert.Equal(t, []string{"startDate", "endDate"}, def.ParameterNames())

	p, ok := def.Parameter("endDate")
	require.True(t, ok)
	assert.Equal(t, ParamDate, p.Type)

	_, ok = def.Parameter("limit")
	assert.False(t, ok)
}

func TestRecent(t *testing.T) {
	history := []HistoryTurn{
		{Sender: SenderUser, Content: "a"},
		{Sender: SenderAssistant, Content: "b"},
		{Sender: SenderUser, Content: "c"},
	}
	assert.Len(t, Recent(history, 2), 2)
	assert.Equal(t, "b", Recent(history, 2)[0].Content)
	assert.Len(t, Recent(history, 10), 3)
	assert.Len(t, Recent(history, 0), 3)
}
