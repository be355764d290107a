// internal/workers/query-routing/process-query/handler.go
package processquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"query-router/internal/catalog"
	"query-router/internal/common/camunda"
	apperrors "query-router/internal/common/errors"
	"query-router/internal/common/logger"
	"query-router/internal/common/metrics"
	"query-router/internal/common/observability"
	"query-router/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const TaskType = "process-query"

// Handler runs the whole pipeline: classify, match, execute and format.
type Handler struct {
	config     *Config
	catalog    *catalog.Catalog
	classifier Classifier
	matcher    Matcher
	executor   Executor
	formatter  Formatter
	obs        *observability.Observability
	logger     logger.Logger
	errors     *apperrors.ErrorHandler
}

type Dependencies struct {
	Catalog       *catalog.Catalog
	Classifier    Classifier
	Matcher       Matcher
	Executor      Executor
	Formatter     Formatter
	Observability *observability.Observability
}

func NewHandler(config *Config, deps Dependencies, log logger.Logger) *Handler {
	l := log.With(map[string]interface{}{"taskType": TaskType, "stage": "pipeline"})
	return &Handler{
		config:     config,
		catalog:    deps.Catalog,
		classifier: deps.Classifier,
		matcher:    deps.Matcher,
		executor:   deps.Executor,
		formatter:  deps.Formatter,
		obs:        deps.Observability,
		logger:     l,
		errors:     apperrors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	var input Input
	if err := camunda.DecodeVariables(job, &input); err != nil {
		h.errors.HandleJobError(context.Background(), client, job, apperrors.NewInternalError(err))
		return
	}

	response := h.ProcessQuery(context.Background(), input.Query, input.History)
	if err := camunda.CompleteJob(context.Background(), client, job, &Output{Response: response}); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err.Error()})
	}
}

// ProcessQuery answers one natural-language query. It always returns a
// response; failures surface as prose with type error.
func (h *Handler) ProcessQuery(ctx context.Context, query string, history []models.HistoryTurn) (resp *models.AIResponse) {
	started := time.Now()
	requestID := uuid.NewString()
	log := h.logger.With(map[string]interface{}{"requestId": requestID})

	ctx, cancel := context.WithTimeout(ctx, h.config.PipelineTimeout)
	defer cancel()
	ctx, span := observability.StartSpan(ctx, "process_query",
		attribute.String("request.id", requestID),
		attribute.Int("history.turns", len(history)),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
			resp = &models.AIResponse{Type: models.ResponseError, Content: lastResortReply}
		}
		span.SetAttributes(attribute.String("response.type", string(resp.Type)))
		observability.EndSpan(span, nil)

		elapsed := time.Since(started)
		metrics.QueriesTotal.WithLabelValues(string(resp.Type)).Inc()
		metrics.QueryDuration.WithLabelValues(string(resp.Type)).Observe(elapsed.Seconds())
		h.obs.RecordQuery(ctx, string(resp.Type), elapsed)

		log.Info("query processed", map[string]interface{}{
			"responseType": resp.Type,
			"functionUsed": resp.FunctionUsed,
			"durationMs":   elapsed.Milliseconds(),
		})
	}()

	if strings.TrimSpace(query) == "" {
		return &models.AIResponse{Type: models.ResponseError, Content: blankQueryReply}
	}

	if h.classifier.Classify(ctx, query, history) == models.IntentConversational {
		return &models.AIResponse{
			Type:    models.ResponseConversational,
			Content: h.formatter.Converse(ctx, query, history),
		}
	}

	match := h.matcher.FindBestMatch(ctx, query)
	if match == nil {
		log.Info("no operation matched", nil)
		return h.apologize(ctx, query)
	}

	result, err := h.executor.Invoke(ctx, match)
	if err != nil {
		return h.failure(ctx, log, query, match, err)
	}

	content := h.formatter.Format(ctx, query, &models.RouterResult{
		Success: true,
		Match:   match,
		Result:  &result,
	})
	confidence := match.Confidence
	return &models.AIResponse{
		Type:         models.ResponseData,
		Content:      content,
		FunctionUsed: match.FunctionName,
		Data:         result.Value(),
		Parameters:   match.Parameters,
		Confidence:   &confidence,
		Reasoning:    match.Reasoning,
	}
}

func (h *Handler) apologize(ctx context.Context, query string) *models.AIResponse {
	return &models.AIResponse{Type: models.ResponseError, Content: h.formatter.Apologize(ctx, query)}
}

func (h *Handler) failure(ctx context.Context, log logger.Logger, query string, match *models.FunctionMatch, err error) *models.AIResponse {
	stdErr, isStd := apperrors.AsStandardError(err)
	if isStd && stdErr.Code == apperrors.ErrCodeUnknownOperation {
		log.Error("matched operation unknown to the catalog", map[string]interface{}{
			"functionName": match.FunctionName,
		})
		return h.apologize(ctx, query)
	}

	confidence := match.Confidence
	resp := &models.AIResponse{
		Type:         models.ResponseError,
		FunctionUsed: match.FunctionName,
		Parameters:   match.Parameters,
		Confidence:   &confidence,
		Reasoning:    match.Reasoning,
	}

	switch {
	case isStd && stdErr.Code == apperrors.ErrCodeMissingParameters:
		missing, _ := stdErr.Metadata["missing"].([]string)
		resp.Content = fmt.Sprintf(missingArgsReply, h.describe(match.FunctionName, missing))
	case isStd && stdErr.Code == apperrors.ErrCodeInvalidParameters:
		resp.Content = fmt.Sprintf(invalidArgsReply, stdErr.Details)
	default:
		log.Warn("operation failed", map[string]interface{}{
			"functionName": match.FunctionName,
			"error":        err.Error(),
		})
		resp.Content = h.formatter.Format(ctx, query, &models.RouterResult{
			Success:          false,
			Match:            match,
			Error:            err.Error(),
			FallbackResponse: fmt.Sprintf(operationFailed, match.FunctionName),
		})
	}
	return resp
}

// describe names missing parameters with their descriptions where known.
func (h *Handler) describe(operation string, missing []string) string {
	op, ok := h.catalog.Lookup(operation)
	parts := make([]string, 0, len(missing))
	for _, name := range missing {
		if ok {
			if p, found := op.Parameter(name); found && p.Description != "" {
				parts = append(parts, fmt.Sprintf("%s (%s)", name, strings.ToLower(p.Description)))
				continue
			}
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, ", ")
}

// GetSuggestions returns example questions, optionally for one category.
func (h *Handler) GetSuggestions(category string) []string {
	return h.catalog.Suggestions(category, h.config.SuggestionLimit)
}

func (h *Handler) Categories() []string {
	return h.catalog.Categories()
}
