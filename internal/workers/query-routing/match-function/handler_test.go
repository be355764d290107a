package matchfunction

import (
	"context"
	"errors"
	"sync"
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
// Test Doubles
// ==========================

type fakeIndex struct {
	mu       sync.Mutex
	hits     []models.Candidate
	err      error
	floor    float64
	limit    int
	searches int
}

func (f *fakeIndex) Search(ctx context.Context, vector []float32, minCertainty float64, limit int) ([]models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	f.floor = minCertainty
	f.limit = limit
	return f.hits, f.err
}

type fakeExtractor struct {
	params map[string]interface{}
	ops    []string
}

func (f *fakeExtractor) Extract(ctx context.Context, query string, op models.OperationDefinition) map[string]interface{} {
	f.ops = append(f.ops, op.Name)
	if f.params == nil {
		return map[string]interface{}{}
	}
	return f.params
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		CertaintyFloor:     0.7,
		CandidateLimit:     5,
		FallbackConfidence: 0.6,
		EmbedTimeout:       time.Second,
		SearchTimeout:      time.Second,
		RankTimeout:        time.Second,
		FallbackTimeout:    time.Second,
	}
}

func candidate(name string, certainty float64) models.Candidate {
	return models.Candidate{
		Pattern:   models.PhrasePattern{FunctionName: name, Prompt: name + " phrasing", Description: "about " + name},
		Certainty: certainty,
	}
}

type fixture struct {
	handler   *Handler
	index     *fakeIndex
	embedder  *llmtest.Embedder
	generator *llmtest.Generator
	extractor *fakeExtractor
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		index:     &fakeIndex{},
		embedder:  &llmtest.Embedder{Vector: []float32{0.1, 0.2, 0.3}},
		generator: llmtest.NewGenerator(),
		extractor: &fakeExtractor{},
	}
	f.handler = NewHandler(
		createTestConfig(),
		catalogtest.New(catalogtest.NewRecorder()),
		f.embedder,
		f.index,
		f.generator,
		f.extractor,
		logger.NewTestLogger(t),
	)
	return f
}

// ==========================
// Vector Path Tests
// ==========================

func TestFindBestMatch_SingleCandidateSkipsRanking(t *testing.T) {
	f := newFixture(t)
	f.index.hits = []models.Candidate{candidate("getTopSellingProducts", 0.91)}
	f.extractor.params = map[string]interface{}{"limit": 5}

	match := f.handler.FindBestMatch(context.Background(), "top 5 products")
	require.NotNil(t, match)

	assert.Equal(t, "getTopSellingProducts", match.FunctionName)
	assert.Equal(t, 0.91, match.Confidence)
	assert.Equal(t, "Vector similarity: 0.910", match.Reasoning)
	assert.Equal(t, map[string]interface{}{"limit": 5}, match.Parameters)
	assert.Zero(t, f.generator.Calls(""))
	assert.Equal(t, 0.7, f.index.floor)
	assert.Equal(t, 5, f.index.limit)
}

func TestFindBestMatch_ConfidenceIsChosenCandidateSimilarity(t *testing.T) {
	f := newFixture(t)
	f.index.hits = []models.Candidate{
		candidate("getTopSellingProducts", 0.88),
		candidate("getProductCount", 0.81),
	}
	f.generator.On("Reply with the number", "1")

	match := f.handler.FindBestMatch(context.Background(), "how many products")
	require.NotNil(t, match)

	assert.Equal(t, "getProductCount", match.FunctionName)
	assert.Equal(t, 0.81, match.Confidence)
	assert.Equal(t, []string{"getProductCount"}, f.extractor.ops)
}

func TestFindBestMatch_RankFailuresPickTopCandidate(t *testing.T) {
	tests := []struct {
		name  string
		setup func(g *llmtest.Generator)
	}{
		{"model error", func(g *llmtest.Generator) { g.FailOn("Reply with the number", errors.New("boom")) }},
		{"no number", func(g *llmtest.Generator) { g.On("Reply with the number", "the first one") }},
		{"out of range", func(g *llmtest.Generator) { g.On("Reply with the number", "7") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			// Deliberately out of order: the top candidate is decided by certainty.
			f.index.hits = []models.Candidate{
				candidate("getProductCount", 0.75),
				candidate("getTopSellingProducts", 0.93),
			}
			tt.setup(f.generator)

			match := f.handler.FindBestMatch(context.Background(), "products")
			require.NotNil(t, match)
			assert.Equal(t, "getTopSellingProducts", match.FunctionName)
			assert.Equal(t, 0.93, match.Confidence)
		})
	}
}

func TestFindBestMatch_DeduplicatesByFunction(t *testing.T) {
	f := newFixture(t)
	f.index.hits = []models.Candidate{
		candidate("getTopSellingProducts", 0.80),
		candidate("getTopSellingProducts", 0.95),
		candidate("getProductCount", 0.85),
	}
	f.generator.On("Reply with the number", "0")

	match := f.handler.FindBestMatch(context.Background(), "best products")
	require.NotNil(t, match)
	assert.Equal(t, 0.95, match.Confidence)

	prompt := f.generator.Prompts()[0]
	assert.Contains(t, prompt, "0. getTopSellingProducts")
	assert.Contains(t, prompt, "1. getProductCount")
	assert.NotContains(t, prompt, "2. ")
}

func TestFindBestMatch_UnknownOperationPassedThrough(t *testing.T) {
	f := newFixture(t)
	f.index.hits = []models.Candidate{candidate("getDeletedReport", 0.9)}

	match := f.handler.FindBestMatch(context.Background(), "deleted report")
	require.NotNil(t, match)
	assert.Equal(t, "getDeletedReport", match.FunctionName)
	assert.Empty(t, match.Parameters)
	assert.Empty(t, f.extractor.ops)
}

// ==========================
// Fallback Path Tests
// ==========================

func TestFindBestMatch_FallbackWhenNoCandidates(t *testing.T) {
	f := newFixture(t)
	f.generator.On("Available functions", `{"functionName": "getCompaniesByCountry", "confidence": 0.82, "reasoning": "asks for companies"}`)
	f.extractor.params = map[string]interface{}{"country": "USA"}

	match := f.handler.FindBestMatch(context.Background(), "firms in the US")
	require.NotNil(t, match)

	assert.Equal(t, "getCompaniesByCountry", match.FunctionName)
	assert.Equal(t, 0.82, match.Confidence)
	assert.Equal(t, "asks for companies", match.Reasoning)
	assert.Equal(t, map[string]interface{}{"country": "USA"}, match.Parameters)

	prompt := f.generator.Prompts()[0]
	assert.Contains(t, prompt, "getTransactionsByDateRange (transactions)")
	assert.Contains(t, prompt, `"companies from USA"`)
	assert.NotContains(t, prompt, `"what sells the most"`)
}

func TestFindBestMatch_FallbackWhenCandidatesBelowFloor(t *testing.T) {
	f := newFixture(t)
	f.index.hits = []models.Candidate{candidate("getProductCount", 0.5)}
	f.generator.On("Available functions", `{"functionName": "getProductCount", "confidence": 0.9, "reasoning": "count"}`)

	match := f.handler.FindBestMatch(context.Background(), "products?")
	require.NotNil(t, match)
	assert.Equal(t, 0.9, match.Confidence)
	assert.Equal(t, 1, f.generator.Calls("Available functions"))
}

func TestFindBestMatch_FallbackOnUpstreamFailure(t *testing.T) {
	t.Run("embedding fails", func(t *testing.T) {
		f := newFixture(t)
		f.embedder.Err = errors.New("embedding service down")
		f.generator.On("Available functions", `{"functionName": "getProductCount", "confidence": 0.7}`)

		match := f.handler.FindBestMatch(context.Background(), "count products")
		require.NotNil(t, match)
		assert.Equal(t, "getProductCount", match.FunctionName)
		assert.Zero(t, f.index.searches)
	})

	t.Run("search fails", func(t *testing.T) {
		f := newFixture(t)
		f.index.err = errors.New("weaviate unavailable")
		f.generator.On("Available functions", `{"functionName": "getProductCount", "confidence": 0.7}`)

		match := f.handler.FindBestMatch(context.Background(), "count products")
		require.NotNil(t, match)
		assert.Equal(t, "getProductCount", match.FunctionName)
	})
}

func TestFindBestMatch_FallbackRejections(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{"low confidence", `{"functionName": "getProductCount", "confidence": 0.4, "reasoning": "unsure"}`, nil},
		{"exactly at threshold", `{"functionName": "getProductCount", "confidence": 0.6}`, nil},
		{"empty name", `{"functionName": "", "confidence": 0.9}`, nil},
		{"not in catalog", `{"functionName": "getWeather", "confidence": 0.95}`, nil},
		{"confidence given as percentage", `{"functionName": "getProductCount", "confidence": 85}`, nil},
		{"negative confidence", `{"functionName": "getProductCount", "confidence": -0.9}`, nil},
		{"malformed reply", `I think getProductCount`, nil},
		{"model error", "", errors.New("rate limited")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.err != nil {
				f.generator.FailOn("Available functions", tt.err)
			} else {
				f.generator.On("Available functions", tt.reply)
			}

			assert.Nil(t, f.handler.FindBestMatch(context.Background(), "what's the weather"))
			assert.Empty(t, f.extractor.ops)
		})
	}
}

func TestExecute_WrapsMatch(t *testing.T) {
	f := newFixture(t)
	f.index.hits = []models.Candidate{candidate("getProductCount", 0.99)}

	out := f.handler.Execute(context.Background(), &Input{Query: "product count"})
	assert.True(t, out.Matched)
	require.NotNil(t, out.Match)
	assert.Equal(t, "getProductCount", out.Match.FunctionName)

	f.index.hits = nil
	f.generator.Default(`{"functionName": "", "confidence": 0}`)
	out = f.handler.Execute(context.Background(), &Input{Query: "hello?"})
	assert.False(t, out.Matched)
	assert.Nil(t, out.Match)
}

// ==========================
// Helper Tests
// ==========================

func TestDedupe(t *testing.T) {
	out := dedupe([]models.Candidate{
		candidate("a", 0.72),
		candidate("b", 0.90),
		candidate("a", 0.85),
		candidate("c", 0.60),
	}, 0.7)

	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Pattern.FunctionName)
	assert.Equal(t, "a", out[1].Pattern.FunctionName)
	assert.Equal(t, 0.85, out[1].Certainty)
}

// ==========================
// Job Variable Tests
// ==========================

func TestHandler_JobVariablesRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.index.hits = []models.Candidate{candidate("getCompaniesByCountry", 0.88)}
	f.extractor.params = map[string]interface{}{"country": "Germany"}

	var input Input
	require.NoError(t, camunda.DecodeVariables(camundatest.Job(t, TaskType, Input{Query: "companies in Germany"}), &input))

	vars := camundatest.Variables(t, f.handler.Execute(context.Background(), &input))
	assert.Equal(t, true, vars["matched"])
	match, ok := vars["match"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "getCompaniesByCountry", match["functionName"])
	assert.InDelta(t, 0.88, match["confidence"], 1e-9)
	assert.Equal(t, map[string]interface{}{"country": "Germany"}, match["parameters"])
}

func TestHandler_JobVariablesNoMatch(t *testing.T) {
	f := newFixture(t)
	f.generator.Default(`{"functionName": "", "confidence": 0.1}`)

	var input Input
	require.NoError(t, camunda.DecodeVariables(camundatest.Job(t, TaskType, Input{Query: "what is the weather"}), &input))

	vars := camundatest.Variables(t, f.handler.Execute(context.Background(), &input))
	assert.Equal(t, false, vars["matched"])
	assert.NotContains(t, vars, "match")
}
