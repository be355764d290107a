// Package indexer builds the phrase patterns behind vector matching: every
// catalog example plus model-written paraphrases, embedded and uploaded.
package indexer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"query-router/internal/catalog"
	"query-router/internal/common/config"
	"query-router/internal/common/llm"
	"query-router/internal/common/logger"
	"query-router/internal/common/metrics"
	"query-router/internal/common/validation"
	"query-router/internal/models"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const stageParaphrase = "paraphrase"

// PatternIndex is the write side of the vector index.
type PatternIndex interface {
	EnsureSchema(ctx context.Context, recreate bool) error
	Upsert(ctx context.Context, patterns []models.PhrasePattern, vectors [][]float32) (int, error)
}

type Stats struct {
	Operations  int `json:"operations"`
	Examples    int `json:"examples"`
	Paraphrases int `json:"paraphrases"`
	Uploaded    int `json:"uploaded"`
}

type Indexer struct {
	cfg       config.IndexerConfig
	timeout   time.Duration
	catalog   *catalog.Catalog
	generator llm.Generator
	embedder  llm.Embedder
	index     PatternIndex
	limiter   *rate.Limiter
	logger    logger.Logger
}

func New(
	cfg config.IndexerConfig,
	timeout time.Duration,
	cat *catalog.Catalog,
	generator llm.Generator,
	embedder llm.Embedder,
	index PatternIndex,
	log logger.Logger,
) *Indexer {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Indexer{
		cfg:       cfg,
		timeout:   timeout,
		catalog:   cat,
		generator: generator,
		embedder:  embedder,
		index:     index,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    log.With(map[string]interface{}{"stage": "index"}),
	}
}

// Run rebuilds the index from the catalog. Object ids are derived from the
// pattern text, so running it twice stores each pattern once.
func (ix *Indexer) Run(ctx context.Context) (*Stats, error) {
	if err := ix.index.EnsureSchema(ctx, ix.cfg.Recreate); err != nil {
		return nil, fmt.Errorf("prepare index: %w", err)
	}

	patterns, stats, err := ix.BuildPatterns(ctx)
	if err != nil {
		return nil, err
	}

	for start := 0; start < len(patterns); start += ix.cfg.BatchSize {
		end := start + ix.cfg.BatchSize
		if end > len(patterns) {
			end = len(patterns)
		}
		batch := patterns[start:end]

		prompts := make([]string, len(batch))
		for i, p := range batch {
			prompts[i] = p.Prompt
		}
		vectors, err := ix.embedder.EmbedBatch(ctx, prompts)
		if err != nil {
			return stats, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}

		n, err := ix.index.Upsert(ctx, batch, vectors)
		stats.Uploaded += n
		if err != nil {
			return stats, fmt.Errorf("upload batch %d-%d: %w", start, end, err)
		}
		ix.logger.Debug("batch uploaded", map[string]interface{}{"from": start, "to": end, "stored": n})
	}

	metrics.IndexedPatterns.Set(float64(stats.Uploaded))
	ix.logger.Info("index rebuilt", map[string]interface{}{
		"operations":  stats.Operations,
		"examples":    stats.Examples,
		"paraphrases": stats.Paraphrases,
		"uploaded":    stats.Uploaded,
	})
	return stats, nil
}

// BuildPatterns expands every catalog example into patterns. A failed
// paraphrase request only costs that example its paraphrases.
func (ix *Indexer) BuildPatterns(ctx context.Context) ([]models.PhrasePattern, *Stats, error) {
	ops := ix.catalog.Operations()
	stats := &Stats{Operations: len(ops)}

	perOp := make([][]models.PhrasePattern, len(ops))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Concurrency)

	for i, op := range ops {
		schema := validation.SchemaFor(op.Parameters).Snapshot()
		for _, example := range op.Examples {
			g.Go(func() error {
				variants := ix.paraphrase(gctx, op, example)
				patterns := make([]models.PhrasePattern, 0, len(variants)+1)
				patterns = append(patterns, newPattern(op, example, schema, models.PatternSourceExample))
				for _, v := range variants {
					patterns = append(patterns, newPattern(op, v, schema, models.PatternSourceParaphrase))
				}

				mu.Lock()
				perOp[i] = append(perOp[i], patterns...)
				stats.Examples++
				stats.Paraphrases += len(variants)
				mu.Unlock()
				return gctx.Err()
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("build patterns: %w", err)
	}

	var out []models.PhrasePattern
	for i := range perOp {
		out = append(out, dedupe(perOp[i])...)
	}
	return out, stats, nil
}

func newPattern(op models.OperationDefinition, prompt, schema, source string) models.PhrasePattern {
	return models.PhrasePattern{
		FunctionName:    op.Name,
		Prompt:          prompt,
		Description:     op.Description,
		Category:        op.Category,
		ParameterSchema: schema,
		Source:          source,
	}
}

// dedupe drops repeated prompts within one operation, ignoring case.
// Examples win over paraphrases of the same text.
func dedupe(patterns []models.PhrasePattern) []models.PhrasePattern {
	seen := make(map[string]int, len(patterns))
	var out []models.PhrasePattern
	for _, p := range patterns {
		k := strings.ToLower(strings.TrimSpace(p.Prompt))
		if i, ok := seen[k]; ok {
			if p.Source == models.PatternSourceExample {
				out[i] = p
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, p)
	}
	return out
}

func (ix *Indexer) paraphrase(ctx context.Context, op models.OperationDefinition, example string) []string {
	n := ix.cfg.ParaphrasesPerExample
	if n <= 0 {
		return nil
	}
	if err := ix.limiter.Wait(ctx); err != nil {
		return nil
	}

	prompt := fmt.Sprintf(
		"Write %d different ways a business user might ask the following question.\n"+
			"The question is answered by: %s.\n"+
			"Question: %s\n"+
			"Keep the same meaning and any numbers, names or dates. One question per line, no numbering.",
		n, op.Description, example)

	reply, err := llm.Complete(ctx, ix.generator, stageParaphrase, ix.timeout, prompt)
	if err != nil {
		ix.logger.Warn("paraphrase request failed", map[string]interface{}{
			"functionName": op.Name,
			"example":      example,
			"error":        err.Error(),
		})
		return nil
	}
	return parseLines(reply, example, n)
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// parseLines reads one paraphrase per line, stripping list markers and
// quotes, skipping blanks and the original, capped at n.
func parseLines(reply, original string, n int) []string {
	var out []string
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(original)): true}
	for _, line := range strings.Split(reply, "\n") {
		line = listMarker.ReplaceAllString(line, "")
		line = strings.Trim(strings.TrimSpace(line), `"'`)
		k := strings.ToLower(line)
		if line == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, line)
		if len(out) == n {
			break
		}
	}
	return out
}
