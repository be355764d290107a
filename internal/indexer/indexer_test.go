package indexer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"query-router/internal/catalog/catalogtest"
	"query-router/internal/common/config"
	"query-router/internal/common/llm/llmtest"
	"query-router/internal/common/logger"
	"query-router/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryIndex struct {
	mu        sync.Mutex
	recreated bool
	batches   int
	stored    map[string]models.PhrasePattern
	failOn    int
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{stored: map[string]models.PhrasePattern{}}
}

func (m *memoryIndex) EnsureSchema(ctx context.Context, recreate bool) error {
	m.recreated = recreate
	return nil
}

func (m *memoryIndex) Upsert(ctx context.Context, patterns []models.PhrasePattern, vectors [][]float32) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	if m.failOn > 0 && m.batches == m.failOn {
		return 0, errors.New("batch rejected")
	}
	for _, p := range patterns {
		m.stored[p.FunctionName+"|"+p.Prompt] = p
	}
	return len(patterns), nil
}

func newTestIndexer(t *testing.T, cfg config.IndexerConfig, gen *llmtest.Generator, idx *memoryIndex) *Indexer {
	return New(cfg, time.Second, catalogtest.New(catalogtest.NewRecorder()), gen,
		&llmtest.Embedder{Vector: []float32{1, 0}}, idx, logger.NewTestLogger(t))
}

func TestRun_IndexesExamplesAndParaphrases(t *testing.T) {
	gen := llmtest.NewGenerator().
		On("Question: top 5 products", "1. show me the five best sellers\n2. Top 5 Products\n- which 5 products sell most?").
		Default("")
	idx := newMemoryIndex()
	ix := newTestIndexer(t, config.IndexerConfig{ParaphrasesPerExample: 2, Concurrency: 3, BatchSize: 4, Recreate: true}, gen, idx)

	stats, err := ix.Run(context.Background())
	require.NoError(t, err)

	// 9 catalog examples plus 2 paraphrases for "top 5 products".
	assert.Equal(t, 4, stats.Operations)
	assert.Equal(t, 9, stats.Examples)
	assert.Equal(t, 2, stats.Paraphrases)
	assert.Equal(t, 11, stats.Uploaded)
	assert.Len(t, idx.stored, 11)
	assert.True(t, idx.recreated)
	assert.Equal(t, 3, idx.batches)

	p, ok := idx.stored["getTopSellingProducts|which 5 products sell most?"]
	require.True(t, ok)
	assert.Equal(t, models.PatternSourceParaphrase, p.Source)
	assert.Equal(t, "products", p.Category)
	assert.Contains(t, p.ParameterSchema, `"limit"`)
}

func TestRun_IsIdempotent(t *testing.T) {
	gen := llmtest.NewGenerator().Default("an alternative phrasing")
	idx := newMemoryIndex()
	ix := newTestIndexer(t, config.IndexerConfig{ParaphrasesPerExample: 1, Concurrency: 2, BatchSize: 50}, gen, idx)

	_, err := ix.Run(context.Background())
	require.NoError(t, err)
	first := len(idx.stored)

	_, err = ix.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, len(idx.stored))
}

func TestBuildPatterns_ParaphraseFailureKeepsExample(t *testing.T) {
	gen := llmtest.NewGenerator().FailOn("Question:", errors.New("quota exceeded"))
	ix := newTestIndexer(t, config.IndexerConfig{ParaphrasesPerExample: 3, Concurrency: 4}, gen, newMemoryIndex())

	patterns, stats, err := ix.BuildPatterns(context.Background())
	require.NoError(t, err)
	assert.Len(t, patterns, 9)
	assert.Zero(t, stats.Paraphrases)
	for _, p := range patterns {
		assert.Equal(t, models.PatternSourceExample, p.Source)
	}
}

func TestBuildPatterns_NoParaphrasesConfigured(t *testing.T) {
	gen := llmtest.NewGenerator()
	ix := newTestIndexer(t, config.IndexerConfig{}, gen, newMemoryIndex())

	patterns, _, err := ix.BuildPatterns(context.Background())
	require.NoError(t, err)
	assert.Len(t, patterns, 9)
	assert.Zero(t, gen.Calls(""))
}

func TestRun_UploadFailure(t *testing.T) {
	idx := newMemoryIndex()
	idx.failOn = 2
	ix := newTestIndexer(t, config.IndexerConfig{BatchSize: 5}, llmtest.NewGenerator(), idx)

	stats, err := ix.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 5, stats.Uploaded)
}

func TestParseLines(t *testing.T) {
	reply := "1. How many products exist?\n\n* \"count of products\"\n- how many products do we have\n3) COUNT OF PRODUCTS\nlist product total"
	got := parseLines(reply, "How many products do we have", 3)
	assert.Equal(t, []string{"How many products exist?", "count of products", "list product total"}, got)
}

func TestDedupe_PrefersExamples(t *testing.T) {
	out := dedupe([]models.PhrasePattern{
		{Prompt: "Top Products", Source: models.PatternSourceParaphrase},
		{Prompt: "top products", Source: models.PatternSourceExample},
		{Prompt: "best sellers", Source: models.PatternSourceParaphrase},
	})
	require.Len(t, out, 2)
	assert.Equal(t, models.PatternSourceExample, out[0].Source)
}
