package classifyintent

import (
	"context"
	"errors"
	"testing"
	"time"

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

func createTestConfig() *Config {
	return &Config{Timeout: time.Second, HistoryTurns: 2}
}

func createTestHandler(t *testing.T, gen *llmtest.Generator) *Handler {
	return NewHandler(createTestConfig(), gen, logger.NewTestLogger(t))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name              string
		reply             string
		expectedIntent    models.Intent
		expectedDefaulted bool
		expectedReason    string
	}{
		{"plain data", "data", models.IntentData, false, ReasonModel},
		{"case insensitive", "DATA.", models.IntentData, false, ReasonModel},
		{"data wins when both appear", "This is a data request, not conversational", models.IntentData, false, ReasonModel},
		{"conversational", "conversational", models.IntentConversational, false, ReasonModel},
		{"chat synonym", "Chat", models.IntentConversational, false, ReasonModel},
		{"unrecognized defaults to data", "I am not sure", models.IntentData, true, ReasonUnrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t, llmtest.NewGenerator().Default(tt.reply))

			out, err := h.Execute(context.Background(), &Input{Query: "hello"})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedIntent, out.Intent)
			assert.Equal(t, tt.expectedDefaulted, out.Defaulted)
			assert.Equal(t, tt.expectedReason, out.Reason)
		})
	}
}

func TestHandler_Execute_UpstreamFailureDefaultsToData(t *testing.T) {
	gen := llmtest.NewGenerator().FailOn("Message:", errors.New("connection refused"))
	h := createTestHandler(t, gen)

	out, err := h.Execute(context.Background(), &Input{Query: "hi there"})
	require.NoError(t, err)
	assert.Equal(t, models.IntentData, out.Intent)
	assert.True(t, out.Defaulted)
	assert.Equal(t, ReasonUpstream, out.Reason)
}

func TestHandler_Execute_BlankQuery(t *testing.T) {
	gen := llmtest.NewGenerator().Default("data")
	h := createTestHandler(t, gen)

	_, err := h.Execute(context.Background(), &Input{Query: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Zero(t, gen.Calls(""))
}

func TestHandler_Classify(t *testing.T) {
	h := createTestHandler(t, llmtest.NewGenerator().Default("conversational"))
	assert.Equal(t, models.IntentConversational, h.Classify(context.Background(), "thanks!", nil))

	assert.Equal(t, models.IntentData, h.Classify(context.Background(), "", nil))
}

// ==========================
// Prompt Construction Tests
// ==========================

func TestHandler_BuildPrompt_IncludesRecentHistoryOnly(t *testing.T) {
	gen := llmtest.NewGenerator().Default("data")
	h := createTestHandler(t, gen)

	history := []models.HistoryTurn{
		{Sender: models.SenderUser, Content: "first"},
		{Sender: models.SenderAssistant, Content: "second"},
		{Sender: models.SenderUser, Content: "third"},
	}
	_, err := h.Execute(context.Background(), &Input{Query: "and for Germany?", History: history})
	require.NoError(t, err)

	prompts := gen.Prompts()
	require.Len(t, prompts, 1)
	assert.NotContains(t, prompts[0], "first")
	assert.Contains(t, prompts[0], "assistant: second")
	assert.Contains(t, prompts[0], "user: third")
	assert.Contains(t, prompts[0], "Message: and for Germany?")
}

// ==========================
// Job Variable Tests
// ==========================

func TestHandler_JobVariablesRoundTrip(t *testing.T) {
	h := createTestHandler(t, llmtest.NewGenerator().Default("conversational"))
	job := camundatest.Job(t, TaskType, map[string]interface{}{
		"query": "thanks, that helps",
		"history": []map[string]interface{}{
			{"sender": "user", "content": "how many products"},
			{"sender": "assistant", "content": "There are 42 products."},
		},
	})

	var input Input
	require.NoError(t, camunda.DecodeVariables(job, &input))
	assert.Equal(t, "thanks, that helps", input.Query)
	require.Len(t, input.History, 2)

	out, err := h.Execute(context.Background(), &input)
	require.NoError(t, err)

	vars := camundatest.Variables(t, out)
	assert.Equal(t, string(models.IntentConversational), vars["intent"])
	assert.Equal(t, false, vars["defaulted"])
	assert.Equal(t, ReasonModel, vars["reason"])
}
