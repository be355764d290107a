// internal/workers/query-routing/match-function/handler.go
package matchfunction

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"query-router/internal/catalog"
	"query-router/internal/common/camunda"
	apperrors "query-router/internal/common/errors"
	"query-router/internal/common/llm"
	"query-router/internal/common/logger"
	"query-router/internal/common/metrics"
	"query-router/internal/common/observability"
	"query-router/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "match-function"

	stageEmbed    = "embed"
	stageSearch   = "search"
	stageRank     = "rank"
	stageFallback = "fallback"

	examplesPerOperation = 2
)

type Handler struct {
	config    *Config
	catalog   *catalog.Catalog
	embedder  llm.Embedder
	index     VectorIndex
	generator llm.Generator
	extractor Extractor
	logger    logger.Logger
	errors    *apperrors.ErrorHandler
}

func NewHandler(
	config *Config,
	cat *catalog.Catalog,
	embedder llm.Embedder,
	index VectorIndex,
	generator llm.Generator,
	extractor Extractor,
	log logger.Logger,
) *Handler {
	l := log.With(map[string]interface{}{"taskType": TaskType, "stage": "match"})
	return &Handler{
		config:    config,
		catalog:   cat,
		embedder:  embedder,
		index:     index,
		generator: generator,
		extractor: extractor,
		logger:    l,
		errors:    apperrors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	var input Input
	if err := camunda.DecodeVariables(job, &input); err != nil {
		h.errors.HandleJobError(context.Background(), client, job, apperrors.NewInternalError(err))
		return
	}

	output := h.Execute(context.Background(), &input)
	if err := camunda.CompleteJob(context.Background(), client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err.Error()})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	match := h.FindBestMatch(ctx, input.Query)
	return &Output{Matched: match != nil, Match: match}
}

// FindBestMatch picks the operation for query. A nil result means nothing
// matched; every upstream failure degrades to the fallback search or to nil.
func (h *Handler) FindBestMatch(ctx context.Context, query string) *models.FunctionMatch {
	ctx, span := observability.StartSpan(ctx, "match", attribute.Int("query.length", len(query)))
	defer span.End()

	candidates, err := h.searchCandidates(ctx, query)
	if err != nil {
		h.logger.Warn("vector search unavailable, using fallback", map[string]interface{}{"error": err.Error()})
		return h.fallbackSearch(ctx, query)
	}
	if len(candidates) == 0 {
		h.logger.Info("no candidates above certainty floor", map[string]interface{}{
			"certaintyFloor": h.config.CertaintyFloor,
		})
		return h.fallbackSearch(ctx, query)
	}

	chosen := h.rankCandidates(ctx, query, candidates)
	name := chosen.Pattern.FunctionName
	op, ok := h.catalog.Lookup(name)
	if !ok {
		// The index references an operation the catalog no longer has.
		// Hand it on so the executor reports the drift.
		h.logger.Error("matched operation missing from catalog", map[string]interface{}{
			"functionName": name,
			"certainty":    chosen.Certainty,
		})
		metrics.MatchSource.WithLabelValues(sourceVector).Inc()
		return &models.FunctionMatch{
			FunctionName: name,
			Confidence:   chosen.Certainty,
			Parameters:   map[string]interface{}{},
			Reasoning:    fmt.Sprintf("Vector similarity: %.3f", chosen.Certainty),
		}
	}

	metrics.MatchSource.WithLabelValues(sourceVector).Inc()
	h.logger.Info("operation matched", map[string]interface{}{
		"functionName": name,
		"certainty":    chosen.Certainty,
		"candidates":   len(candidates),
	})
	return &models.FunctionMatch{
		FunctionName: name,
		Confidence:   chosen.Certainty,
		Parameters:   h.extractor.Extract(ctx, query, op),
		Reasoning:    fmt.Sprintf("Vector similarity: %.3f", chosen.Certainty),
	}
}

func (h *Handler) searchCandidates(ctx context.Context, query string) ([]models.Candidate, error) {
	vector, err := h.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	searchCtx, cancel := context.WithTimeout(ctx, h.config.SearchTimeout)
	defer cancel()
	started := time.Now()
	hits, err := h.index.Search(searchCtx, vector, h.config.CertaintyFloor, h.config.CandidateLimit)
	metrics.ObserveCall(stageSearch, started, metrics.Outcome(err, errors.Is(err, context.DeadlineExceeded)))
	if err != nil {
		return nil, apperrors.NewVectorSearchFailedError(err)
	}
	return dedupe(hits, h.config.CertaintyFloor), nil
}

func (h *Handler) embed(ctx context.Context, query string) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, h.config.EmbedTimeout)
	defer cancel()
	started := time.Now()
	vector, err := h.embedder.Embed(embedCtx, query)
	metrics.ObserveCall(stageEmbed, started, metrics.Outcome(err, errors.Is(err, context.DeadlineExceeded)))
	if err != nil {
		return nil, apperrors.NewEmbeddingFailedError(err)
	}
	return vector, nil
}

// dedupe keeps the best-scoring pattern per function, ordered by certainty.
func dedupe(hits []models.Candidate, floor float64) []models.Candidate {
	best := make(map[string]int, len(hits))
	var out []models.Candidate
	for _, c := range hits {
		if c.Certainty < floor {
			continue
		}
		if i, seen := best[c.Pattern.FunctionName]; seen {
			if c.Certainty > out[i].Certainty {
				out[i] = c
			}
			continue
		}
		best[c.Pattern.FunctionName] = len(out)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Certainty > out[j].Certainty })
	return out
}

// rankCandidates asks the model to choose among candidates by index. A single
// candidate is taken as is; an unusable reply picks the top candidate.
func (h *Handler) rankCandidates(ctx context.Context, query string, candidates []models.Candidate) models.Candidate {
	if len(candidates) == 1 {
		return candidates[0]
	}

	reply, err := llm.Complete(ctx, h.generator, stageRank, h.config.RankTimeout, buildRankPrompt(query, candidates))
	if err != nil {
		h.logger.Warn("candidate ranking failed, using top candidate", map[string]interface{}{"error": err.Error()})
		return candidates[0]
	}

	idx, err := llm.ParseIndex(stageRank, reply, len(candidates))
	if err != nil {
		h.logger.Warn("unusable ranking reply, using top candidate", map[string]interface{}{"error": err.Error()})
		return candidates[0]
	}
	return candidates[idx]
}

func buildRankPrompt(query string, candidates []models.Candidate) string {
	var b strings.Builder
	b.WriteString("Pick the function that best answers the user's question.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\nCandidates:\n", query)
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s: %s (example: %q, similarity %.3f)\n",
			i, c.Pattern.FunctionName, c.Pattern.Description, c.Pattern.Prompt, c.Certainty)
	}
	b.WriteString("\nReply with the number of the best candidate only.")
	return b.String()
}

// fallbackSearch shows the model the whole catalog and accepts its choice
// only above the fallback confidence threshold.
func (h *Handler) fallbackSearch(ctx context.Context, query string) *models.FunctionMatch {
	reply, err := llm.Complete(ctx, h.generator, stageFallback, h.config.FallbackTimeout, h.buildFallbackPrompt(query))
	if err != nil {
		h.logger.Warn("fallback search failed", map[string]interface{}{"error": err.Error()})
		metrics.MatchSource.WithLabelValues(sourceNone).Inc()
		return nil
	}

	choice, err := llm.DecodeJSON[fallbackReply](stageFallback, reply)
	if err != nil {
		h.logger.Warn("unusable fallback reply", map[string]interface{}{"error": err.Error()})
		metrics.MatchSource.WithLabelValues(sourceNone).Inc()
		return nil
	}

	if choice.Confidence < 0 || choice.Confidence > 1 {
		h.logger.Warn("fallback confidence outside [0,1]", map[string]interface{}{
			"functionName": choice.FunctionName,
			"confidence":   choice.Confidence,
		})
		metrics.MatchSource.WithLabelValues(sourceNone).Inc()
		return nil
	}

	if choice.FunctionName == "" || choice.Confidence <= h.config.FallbackConfidence {
		h.logger.Info("fallback search below confidence threshold", map[string]interface{}{
			"functionName": choice.FunctionName,
			"confidence":   choice.Confidence,
			"threshold":    h.config.FallbackConfidence,
		})
		metrics.MatchSource.WithLabelValues(sourceNone).Inc()
		return nil
	}

	op, ok := h.catalog.Lookup(choice.FunctionName)
	if !ok {
		h.logger.Warn("fallback chose an operation outside the catalog", map[string]interface{}{
			"functionName": choice.FunctionName,
		})
		metrics.MatchSource.WithLabelValues(sourceNone).Inc()
		return nil
	}

	metrics.MatchSource.WithLabelValues(sourceFallback).Inc()
	h.logger.Info("operation matched by fallback", map[string]interface{}{
		"functionName": op.Name,
		"confidence":   choice.Confidence,
	})
	return &models.FunctionMatch{
		FunctionName: op.Name,
		Confidence:   choice.Confidence,
		Parameters:   h.extractor.Extract(ctx, query, op),
		Reasoning:    choice.Reasoning,
	}
}

func (h *Handler) buildFallbackPrompt(query string) string {
	var b strings.Builder
	b.WriteString("You map questions to the function that can answer them.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\nAvailable functions:\n", query)
	for _, op := range h.catalog.Operations() {
		fmt.Fprintf(&b, "- %s (%s): %s\n", op.Name, op.Category, op.Description)
		for i, ex := range op.Examples {
			if i >= examplesPerOperation {
				break
			}
			fmt.Fprintf(&b, "    e.g. %q\n", ex)
		}
	}
	b.WriteString("\nRespond with JSON only, in this shape:\n")
	b.WriteString(`{"functionName": "<name or empty>", "confidence": <0.0-1.0>, "reasoning": "<one sentence>"}`)
	b.WriteString("\nUse an empty functionName and low confidence when no function fits.")
	return b.String()
}
