package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
		ok       bool
	}{
		{"plain", `{"limit": 5}`, `{"limit": 5}`, true},
		{"fenced", "```json\n{\"limit\": 5}\n```", `{"limit": 5}`, true},
		{"prose around", "Sure! Here you go: {\"country\": \"USA\"} Hope that helps.", `{"country": "USA"}`, true},
		{"nested", `{"a": {"b": 1}}`, `{"a": {"b": 1}}`, true},
		{"no object", "I cannot help with that", "", false},
		{"reversed braces", "} oops {", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := ExtractJSONObject(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type pick struct {
		FunctionName string  `json:"functionName"`
		Confidence   float64 `json:"confidence"`
	}

	got, err := DecodeJSON[pick]("fallback", "```json\n{\"functionName\":\"getProductCount\",\"confidence\":0.8}\n```")
	require.NoError(t, err)
	assert.Equal(t, "getProductCount", got.FunctionName)
	assert.Equal(t, 0.8, got.Confidence)

	_, err = DecodeJSON[pick]("fallback", "{not json}")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "fallback", perr.Stage)

	_, err = DecodeJSON[pick]("fallback", "nothing here")
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "no JSON object found", perr.Reason)
}

func TestParseIndex(t *testing.T) {
	idx, err := ParseIndex("rank", "2", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	idx, err = ParseIndex("rank", "The best candidate is 3.", 5)
	require.NoError(t, err)
	assert.Equal(t, 3, idx)

	_, err = ParseIndex("rank", "7", 5)
	assert.Error(t, err)

	_, err = ParseIndex("rank", "none of them", 5)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "rank", perr.Stage)
}

func TestParseError_TruncatesRaw(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	_, err := ParseIndex("rank", string(long), 3)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Len(t, perr.Raw, 203)
}
