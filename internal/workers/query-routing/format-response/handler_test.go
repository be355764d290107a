package formatresponse

import (
	"context"
	"errors"
	"testing"
	"time"

	"query-router/internal/catalog/catalogtest"
	"query-router/internal/common/camunda"
	"query-router/internal/common/camunda/camundatest"
	"query-router/internal/common/llm/llmtest"
	"query-router/internal/common/logger"
	"query-router/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T, gen *llmtest.Generator) *Handler {
	return NewHandler(
		&Config{Timeout: time.Second, HistoryTurns: 2},
		catalogtest.New(catalogtest.NewRecorder()),
		gen,
		logger.NewTestLogger(t),
	)
}

func success(op string, result models.Result) *models.RouterResult {
	return &models.RouterResult{
		Success: true,
		Match:   &models.FunctionMatch{FunctionName: op, Confidence: 0.9},
		Result:  &result,
	}
}

func threeProducts() models.Result {
	return models.RecordsResult([]models.Record{
		{"name": "Widget", "sold": 120},
		{"name": "Gadget", "sold": 95},
		{"name": "Gizmo", "sold": 40},
	})
}

// ==========================
// Format Tests
// ==========================

func TestFormat_UsesModelReply(t *testing.T) {
	gen := llmtest.NewGenerator().On("Function used: getTopSellingProducts", "  Widget leads with 120 units.  ")
	h := createTestHandler(t, gen)

	content := h.Format(context.Background(), "top products", success("getTopSellingProducts", threeProducts()))
	assert.Equal(t, "Widget leads with 120 units.", content)

	prompt := gen.Prompts()[0]
	assert.Contains(t, prompt, "Question: top products")
	assert.Contains(t, prompt, "3 items.")
	assert.Contains(t, prompt, "Gadget")
	assert.NotContains(t, prompt, "Gizmo")
}

func TestFormat_EmptyResultSaysNothingFound(t *testing.T) {
	gen := llmtest.NewGenerator().Default("")
	h := createTestHandler(t, gen)

	content := h.Format(context.Background(), "transactions in 1990", success("getTransactionsByDateRange", models.RecordsResult(nil)))
	assert.Equal(t, "No results were found for your query about getTransactionsByDateRange.", content)
	assert.Zero(t, gen.Calls(""))
}

func TestFormat_TemplatedFallback(t *testing.T) {
	tests := []struct {
		name     string
		gen      *llmtest.Generator
		result   models.Result
		expected string
	}{
		{
			name:     "list on model error",
			gen:      llmtest.NewGenerator().FailOn("Question:", errors.New("503")),
			result:   threeProducts(),
			expected: "Found 3 results for your query about getTopSellingProducts",
		},
		{
			name:     "list on blank reply",
			gen:      llmtest.NewGenerator().Default("   "),
			result:   threeProducts(),
			expected: "Found 3 results for your query about getTopSellingProducts",
		},
		{
			name:     "scalar rendered as JSON",
			gen:      llmtest.NewGenerator(),
			result:   models.ScalarResult(42),
			expected: "42",
		},
		{
			name:     "record rendered as JSON",
			gen:      llmtest.NewGenerator(),
			result:   models.RecordResult(models.Record{"revenue": 1500}),
			expected: "{\n  \"revenue\": 1500\n}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t, tt.gen)
			content := h.Format(context.Background(), "q", success("getTopSellingProducts", tt.result))
			assert.Equal(t, tt.expected, content)
		})
	}
}

func TestFormat_FailedResult(t *testing.T) {
	h := createTestHandler(t, llmtest.NewGenerator())

	assert.Equal(t, "try again later", h.Format(context.Background(), "q", &models.RouterResult{
		Success:          false,
		Error:            "boom",
		FallbackResponse: "try again later",
	}))
	assert.Equal(t, genericFailure, h.Format(context.Background(), "q", nil))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, `3 items. First items: [{"name":"Widget","sold":120},{"name":"Gadget","sold":95}]`, Preview(threeProducts()))
	assert.Equal(t, `{"city":"Austin","name":"Acme"}`, Preview(models.RecordResult(models.Record{"name": "Acme", "city": "Austin"})))
	assert.Equal(t, "7", Preview(models.ScalarResult(7)))
}

// ==========================
// Apology Tests
// ==========================

func TestApologize_UsesModel(t *testing.T) {
	gen := llmtest.NewGenerator().On("cannot answer", "Sorry! Try asking about products.")
	h := createTestHandler(t, gen)

	assert.Equal(t, "Sorry! Try asking about products.", h.Apologize(context.Background(), "weather?"))

	prompt := gen.Prompts()[0]
	assert.Contains(t, prompt, "products, companies, transactions")
	assert.Contains(t, prompt, "- top 5 products")
}

func TestApologize_HardCodedOnFailure(t *testing.T) {
	gen := llmtest.NewGenerator().FailOn("cannot answer", errors.New("down"))
	h := createTestHandler(t, gen)

	reply := h.Apologize(context.Background(), "weather?")
	assert.Contains(t, reply, "products, companies, transactions")
	assert.Contains(t, reply, `"top 5 products"`)
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	panic("nil client")
}

func TestApologize_NeverPanics(t *testing.T) {
	h := NewHandler(&Config{Timeout: time.Second}, catalogtest.New(catalogtest.NewRecorder()), panickingGenerator{}, logger.NewTestLogger(t))

	var reply string
	require.NotPanics(t, func() { reply = h.Apologize(context.Background(), "weather?") })
	assert.Contains(t, reply, "Sorry")
}

// ==========================
// Conversation Tests
// ==========================

func TestConverse(t *testing.T) {
	gen := llmtest.NewGenerator().On("friendly assistant", "Hi! How can I help?")
	h := createTestHandler(t, gen)

	history := []models.HistoryTurn{
		{Sender: models.SenderUser, Content: "old message"},
		{Sender: models.SenderUser, Content: "hello"},
		{Sender: models.SenderAssistant, Content: "hey"},
	}
	assert.Equal(t, "Hi! How can I help?", h.Converse(context.Background(), "how are you?", history))

	prompt := gen.Prompts()[0]
	assert.NotContains(t, prompt, "old message")
	assert.Contains(t, prompt, "user: how are you?")
}

func TestConverse_FallsBackToGreeting(t *testing.T) {
	h := createTestHandler(t, llmtest.NewGenerator())

	reply := h.Converse(context.Background(), "hi", nil)
	assert.Equal(t, "Hello! I can answer questions about products, companies, transactions. What would you like to know?", reply)
}

// ==========================
// Job Variable Tests
// ==========================

func TestHandler_JobVariablesRoundTrip(t *testing.T) {
	gen := llmtest.NewGenerator().On("Function used: getTopSellingProducts", "Widget sold the most.")
	h := createTestHandler(t, gen)
	job := camundatest.Job(t, TaskType, Input{
		Query:        "top products",
		RouterResult: *success("getTopSellingProducts", threeProducts()),
	})

	var input Input
	require.NoError(t, camunda.DecodeVariables(job, &input))
	require.NotNil(t, input.RouterResult.Result)
	assert.Equal(t, models.ResultRecords, input.RouterResult.Result.Kind)

	vars := camundatest.Variables(t, h.Execute(context.Background(), &input))
	assert.Equal(t, "Widget sold the most.", vars["content"])
	assert.Contains(t, gen.Prompts()[0], "3 items.")
}

func TestHandler_JobVariablesFailedResult(t *testing.T) {
	gen := llmtest.NewGenerator()
	h := createTestHandler(t, gen)
	job := camundatest.Job(t, TaskType, map[string]interface{}{
		"query":        "top products",
		"routerResult": map[string]interface{}{"success": false, "fallbackResponse": "Please tell me the country."},
	})

	var input Input
	require.NoError(t, camunda.DecodeVariables(job, &input))

	out := h.Execute(context.Background(), &input)
	assert.Equal(t, "Please tell me the country.", out.Content)
	assert.Zero(t, gen.Calls(""))
}
