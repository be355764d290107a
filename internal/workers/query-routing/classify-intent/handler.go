// internal/workers/query-routing/classify-intent/handler.go
package classifyintent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"query-router/internal/common/camunda"
	apperrors "query-router/internal/common/errors"
	"query-router/internal/common/llm"
	"query-router/internal/common/logger"
	"query-router/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "classify-intent"
	stage    = "classify"
)

var ErrEmptyQuery = errors.New("EMPTY_QUERY")

type Handler struct {
	config    *Config
	generator llm.Generator
	logger    logger.Logger
	errors    *apperrors.ErrorHandler
}

func NewHandler(config *Config, generator llm.Generator, log logger.Logger) *Handler {
	l := log.With(map[string]interface{}{"taskType": TaskType, "stage": stage})
	return &Handler{
		config:    config,
		generator: generator,
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

	output, err := h.Execute(context.Background(), &input)
	if err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}

	if err := camunda.CompleteJob(context.Background(), client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err.Error()})
	}
}

// Classify returns the verdict only. It never fails: anything other than a
// recognised conversational reply resolves to data.
func (h *Handler) Classify(ctx context.Context, query string, history []models.HistoryTurn) models.Intent {
	out, err := h.Execute(ctx, &Input{Query: query, History: history})
	if err != nil {
		return models.IntentData
	}
	return out.Intent
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, fmt.Errorf("%w: query is blank", ErrEmptyQuery)
	}

	reply, err := llm.Complete(ctx, h.generator, stage, h.config.Timeout, h.buildPrompt(input))
	if err != nil {
		h.logger.Warn("classification failed, defaulting to data", map[string]interface{}{
			"error": err.Error(),
		})
		return &Output{Intent: models.IntentData, Defaulted: true, Reason: ReasonUpstream}, nil
	}

	out := interpret(reply)
	h.logger.Info("query classified", map[string]interface{}{
		"intent":    out.Intent,
		"defaulted": out.Defaulted,
		"reason":    out.Reason,
	})
	return out, nil
}

func interpret(reply string) *Output {
	r := strings.ToLower(reply)
	switch {
	case strings.Contains(r, "data"):
		return &Output{Intent: models.IntentData, Reason: ReasonModel}
	case strings.Contains(r, "conversational"), strings.Contains(r, "chat"):
		return &Output{Intent: models.IntentConversational, Reason: ReasonModel}
	default:
		return &Output{Intent: models.IntentData, Defaulted: true, Reason: ReasonUnrecognized}
	}
}

func (h *Handler) buildPrompt(input *Input) string {
	var parts []string
	parts = append(parts,
		"You route messages sent to a business data assistant.",
		`Answer "data" when the message asks for business information that has to be looked up, such as products, sales, revenue, companies, transactions, counts or totals.`,
		`Answer "conversational" for greetings, thanks, small talk or questions about the assistant itself.`,
		"Reply with exactly one word.",
		"",
	)

	if recent := models.Recent(input.History, h.config.HistoryTurns); len(recent) > 0 {
		parts = append(parts, "Recent conversation:")
		for _, turn := range recent {
			parts = append(parts, fmt.Sprintf("%s: %s", turn.Sender, turn.Content))
		}
		parts = append(parts, "")
	}

	parts = append(parts,
		fmt.Sprintf("Message: %s", input.Query),
		"Answer:",
	)
	return strings.Join(parts, "\n")
}
