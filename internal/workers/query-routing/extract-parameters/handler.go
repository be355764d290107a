// internal/workers/query-routing/extract-parameters/handler.go
package extractparameters

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

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
	TaskType = "extract-parameters"
	stage    = "extract"
)

type Handler struct {
	config    *Config
	catalog   *catalog.Catalog
	generator llm.Generator
	logger    logger.Logger
	errors    *apperrors.ErrorHandler
	now       func() time.Time
}

func NewHandler(config *Config, cat *catalog.Catalog, generator llm.Generator, log logger.Logger) *Handler {
	l := log.With(map[string]interface{}{"taskType": TaskType, "stage": stage})
	return &Handler{
		config:    config,
		catalog:   cat,
		generator: generator,
		logger:    l,
		errors:    apperrors.NewErrorHandler(l),
		now:       time.Now,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	op, ok := h.catalog.Lookup(input.FunctionName)
	if !ok {
		h.logger.Error("operation missing from catalog", map[string]interface{}{"functionName": input.FunctionName})
		return nil, apperrors.NewUnknownOperationError(input.FunctionName)
	}
	return &Output{Parameters: h.Extract(ctx, input.Query, op)}, nil
}

// Extract asks the model for op's arguments. Keys outside the declared
// parameters are dropped, values are coerced to their declared types and
// absent optional parameters take their defaults. Required parameters the
// model did not supply stay absent.
func (h *Handler) Extract(ctx context.Context, query string, op models.OperationDefinition) map[string]interface{} {
	if len(op.Parameters) == 0 {
		return map[string]interface{}{}
	}

	raw := map[string]interface{}{}
	reply, err := llm.Complete(ctx, h.generator, stage, h.config.Timeout, h.buildPrompt(query, op))
	if err != nil {
		h.logger.Warn("parameter extraction failed", map[string]interface{}{
			"functionName": op.Name,
			"error":        err.Error(),
		})
	} else if parsed, perr := llm.DecodeJSON[map[string]interface{}](stage, reply); perr != nil {
		h.logger.Warn("unusable extraction reply", map[string]interface{}{
			"functionName": op.Name,
			"error":        perr.Error(),
		})
	} else {
		raw = parsed
	}

	params := normalize(op, raw)
	h.logger.Debug("parameters extracted", map[string]interface{}{
		"functionName": op.Name,
		"parameters":   params,
	})
	return params
}

func normalize(op models.OperationDefinition, raw map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(op.Parameters))
	for _, p := range op.Parameters {
		if v, ok := raw[p.Name]; ok && v != nil {
			if v = coerce(p.Type, v); !isBlank(v) {
				out[p.Name] = v
				continue
			}
		}
		if !p.Required && p.HasDefault() {
			out[p.Name] = p.DefaultValue
		}
	}
	return out
}

// isBlank reports a string that is empty once trimmed. Such values count as
// not supplied.
func isBlank(v interface{}) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// coerce converts JSON-decoded values to the declared type where the
// conversion is lossless. Anything else is returned unchanged for the
// executor's schema check to reject.
func coerce(t models.ParameterType, v interface{}) interface{} {
	switch t {
	case models.ParamInteger:
		switch n := v.(type) {
		case float64:
			if n == math.Trunc(n) {
				return int(n)
			}
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				return i
			}
		}
	case models.ParamNumber:
		if s, ok := v.(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f
			}
		}
	case models.ParamBoolean:
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
				return b
			}
		}
	case models.ParamString, models.ParamDate:
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return v
}

func (h *Handler) buildPrompt(query string, op models.OperationDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract the arguments for the function %s (%s) from the user's question.\n\n", op.Name, op.Description)
	b.WriteString("Parameters:\n")
	for _, p := range op.Parameters {
		req := "optional"
		if p.Required {
			req = "required"
		}
		if p.HasDefault() {
			req += fmt.Sprintf(", default: %v", p.DefaultValue)
		}
		if p.Minimum != nil {
			req += fmt.Sprintf(", minimum: %v", *p.Minimum)
		}
		fmt.Fprintf(&b, "- %s (%s, %s): %s\n", p.Name, p.Type, req, p.Description)
	}

	fmt.Fprintf(&b, "\nToday's date is %s.\n", h.now().Format("2006-01-02"))
	b.WriteString(`
Rules:
- Respond with a single JSON object and nothing else.
- Only include parameters the question actually mentions.
- Dates must be written as YYYY-MM-DD.
- Numbers must be JSON numbers, not strings.

Examples:
Question: top 5 products
{"limit": 5}
Question: transactions between March 1st and March 15th 2024
{"startDate": "2024-03-01", "endDate": "2024-03-15"}
Question: companies from USA
{"country": "USA"}
`)
	fmt.Fprintf(&b, "\nQuestion: %s\n", query)
	return b.String()
}
