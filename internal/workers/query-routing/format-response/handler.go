// internal/workers/query-routing/format-response/handler.go
package formatresponse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"query-router/internal/catalog"
	"query-router/internal/common/camunda"
	apperrors "query-router/internal/common/errors"
	"query-router/internal/common/llm"
	"query-router/internal/common/logger"
	"query-router/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "format-response"

	stageFormat   = "format"
	stageApology  = "apology"
	stageConverse = "converse"
)

type Handler struct {
	config    *Config
	catalog   *catalog.Catalog
	generator llm.Generator
	logger    logger.Logger
	errors    *apperrors.ErrorHandler
}

func NewHandler(config *Config, cat *catalog.Catalog, generator llm.Generator, log logger.Logger) *Handler {
	l := log.With(map[string]interface{}{"taskType": TaskType, "stage": stageFormat})
	return &Handler{
		config:    config,
		catalog:   cat,
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

	output := h.Execute(context.Background(), &input)
	if err := camunda.CompleteJob(context.Background(), client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err.Error()})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	return &Output{Content: h.Format(ctx, input.Query, &input.RouterResult)}
}

// Format turns a routing result into prose. It always returns text: when the
// model is unavailable a templated sentence is used instead.
func (h *Handler) Format(ctx context.Context, query string, rr *models.RouterResult) string {
	if rr == nil || !rr.Success || rr.Result == nil || rr.Match == nil {
		if rr != nil && rr.FallbackResponse != "" {
			return rr.FallbackResponse
		}
		return genericFailure
	}

	op := rr.Match.FunctionName
	result := *rr.Result
	if result.Kind == models.ResultRecords && len(result.Records) == 0 {
		return fmt.Sprintf("No results were found for your query about %s.", op)
	}

	reply, err := llm.Complete(ctx, h.generator, stageFormat, h.config.Timeout, buildFormatPrompt(query, op, result))
	if err == nil && strings.TrimSpace(reply) != "" {
		return strings.TrimSpace(reply)
	}

	fields := map[string]interface{}{"functionName": op}
	if err != nil {
		fields["error"] = err.Error()
	}
	h.logger.Warn("formatting with model failed, using template", fields)
	return templated(op, result)
}

func templated(op string, result models.Result) string {
	if result.Kind == models.ResultRecords {
		return fmt.Sprintf("Found %d results for your query about %s", len(result.Records), op)
	}
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return result.String()
	}
	return string(b)
}

// Preview renders a compact view of a result for prompting: a list shows its
// size and first items, a record is shown whole, a scalar as text.
func Preview(result models.Result) string {
	switch result.Kind {
	case models.ResultRecords:
		head := result.Records
		if len(head) > previewItems {
			head = head[:previewItems]
		}
		b, _ := json.Marshal(head)
		return fmt.Sprintf("%d items. First items: %s", len(result.Records), b)
	case models.ResultRecord:
		b, _ := json.Marshal(result.Record)
		return string(b)
	default:
		return result.String()
	}
}

func buildFormatPrompt(query, op string, result models.Result) string {
	return strings.Join([]string{
		"You answer business questions using data returned by an internal function.",
		"",
		fmt.Sprintf("Question: %s", query),
		fmt.Sprintf("Function used: %s", op),
		fmt.Sprintf("Result: %s", Preview(result)),
		"",
		"Write a short, direct answer to the question.",
		"Use a table or a bulleted list when there are several items.",
		"Format money with a currency symbol and thousands separators, and give counts as whole numbers.",
		"If the result is empty, say clearly that nothing was found.",
		"Do not mention the function name or JSON.",
	}, "\n")
}

// Apologize answers a query no operation could serve. It never panics and
// always returns text.
func (h *Handler) Apologize(ctx context.Context, query string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("apology generation panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
			reply = h.hardCodedApology()
		}
	}()

	text, err := llm.Complete(ctx, h.generator, stageApology, h.config.Timeout, h.buildApologyPrompt(query))
	if err != nil || strings.TrimSpace(text) == "" {
		fields := map[string]interface{}{}
		if err != nil {
			fields["error"] = err.Error()
		}
		h.logger.Warn("apology generation failed, using hard-coded reply", fields)
		return h.hardCodedApology()
	}
	return strings.TrimSpace(text)
}

func (h *Handler) buildApologyPrompt(query string) string {
	var b strings.Builder
	b.WriteString("A user asked a business data assistant something it cannot answer.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", query)
	fmt.Fprintf(&b, "The assistant can answer questions about: %s.\n", strings.Join(h.catalog.Categories(), ", "))
	b.WriteString("Example questions it handles:\n")
	for _, s := range h.catalog.Suggestions("", 6) {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	b.WriteString("\nPolitely say the question could not be matched, list the topics above, and suggest two or three of the example questions.")
	return b.String()
}

func (h *Handler) hardCodedApology() string {
	msg := fmt.Sprintf("Sorry, I couldn't find a way to answer that. I can help with questions about %s.",
		strings.Join(h.catalog.Categories(), ", "))
	if ex := h.catalog.Suggestions("", 1); len(ex) > 0 {
		msg += fmt.Sprintf(" For example, try asking: %q", ex[0])
	}
	return msg
}

// Converse replies to small talk without touching any operation.
func (h *Handler) Converse(ctx context.Context, query string, history []models.HistoryTurn) string {
	var b strings.Builder
	b.WriteString("You are a friendly assistant for a business data service. Reply briefly and naturally.\n")
	fmt.Fprintf(&b, "You can help with questions about %s.\n\n", strings.Join(h.catalog.Categories(), ", "))
	if recent := models.Recent(history, h.config.HistoryTurns); len(recent) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range recent {
			fmt.Fprintf(&b, "%s: %s\n", turn.Sender, turn.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "user: %s\nassistant:", query)

	reply, err := llm.Complete(ctx, h.generator, stageConverse, h.config.Timeout, b.String())
	if err != nil || strings.TrimSpace(reply) == "" {
		fields := map[string]interface{}{}
		if err != nil {
			fields["error"] = err.Error()
		}
		h.logger.Warn("conversational reply failed, using greeting", fields)
		return fmt.Sprintf("Hello! I can answer questions about %s. What would you like to know?",
			strings.Join(h.catalog.Categories(), ", "))
	}
	return strings.TrimSpace(reply)
}
