// internal/workers/query-routing/execute-operation/handler.go
package executeoperation

import (
	"context"
	"errors"
	"strings"
	"time"

	"query-router/internal/catalog"
	"query-router/internal/common/camunda"
	apperrors "query-router/internal/common/errors"
	"query-router/internal/common/logger"
	"query-router/internal/common/metrics"
	"query-router/internal/common/observability"
	"query-router/internal/common/validation"
	"query-router/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "execute-operation"
	stage    = "execute"
)

type Handler struct {
	config  *Config
	catalog *catalog.Catalog
	logger  logger.Logger
	errors  *apperrors.ErrorHandler
}

func NewHandler(config *Config, cat *catalog.Catalog, log logger.Logger) *Handler {
	l := log.With(map[string]interface{}{"taskType": TaskType, "stage": stage})
	return &Handler{
		config:  config,
		catalog: cat,
		logger:  l,
		errors:  apperrors.NewErrorHandler(l),
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

// Execute invokes the matched operation. Every error it returns is a
// StandardError; a failure inside the operation becomes OPERATION_FAILED.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	result, err := h.Invoke(ctx, &input.Match)
	if err != nil {
		if _, ok := apperrors.AsStandardError(err); !ok {
			err = apperrors.NewOperationFailedError(input.Match.FunctionName, err)
		}
		return nil, err
	}
	return &Output{FunctionName: input.Match.FunctionName, Result: result, ResultKind: string(result.Kind)}, nil
}

// Invoke runs the matched operation with its parameters laid out in declared
// order. Lookup and argument problems come back as StandardErrors; an error
// from the operation itself is returned unchanged.
func (h *Handler) Invoke(ctx context.Context, match *models.FunctionMatch) (models.Result, error) {
	op, ok := h.catalog.Lookup(match.FunctionName)
	if !ok {
		h.logger.Error("operation missing from catalog", map[string]interface{}{
			"functionName": match.FunctionName,
			"category":     apperrors.GetErrorCategory(apperrors.ErrCodeUnknownOperation),
		})
		metrics.OperationCalls.WithLabelValues(match.FunctionName, metrics.OutcomeError).Inc()
		return models.Result{}, apperrors.NewUnknownOperationError(match.FunctionName)
	}

	args, err := h.prepareArguments(op, match.Parameters)
	if err != nil {
		metrics.OperationCalls.WithLabelValues(op.Name, metrics.OutcomeError).Inc()
		return models.Result{}, err
	}

	return h.call(ctx, op, args)
}

func (h *Handler) prepareArguments(op models.OperationDefinition, params map[string]interface{}) ([]interface{}, error) {
	declared := make(map[string]interface{}, len(op.Parameters))
	var missing []string
	for _, p := range op.Parameters {
		v, ok := params[p.Name]
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			ok = false
		}
		switch {
		case ok && v != nil:
			declared[p.Name] = v
		case p.Required:
			missing = append(missing, p.Name)
		case p.HasDefault():
			declared[p.Name] = p.DefaultValue
		}
	}
	if len(missing) > 0 {
		h.logger.Info("required parameters missing", map[string]interface{}{
			"functionName": op.Name,
			"missing":      missing,
		})
		return nil, apperrors.NewMissingParametersError(op.Name, missing)
	}

	result, err := validation.ValidateArguments(op.Parameters, declared)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !result.Valid {
		h.logger.Warn("arguments failed schema validation", map[string]interface{}{
			"functionName": op.Name,
			"problems":     result.Messages(),
		})
		return nil, apperrors.NewInvalidParametersError(op.Name, result.Messages())
	}

	args := make([]interface{}, len(op.Parameters))
	for i, p := range op.Parameters {
		args[i] = declared[p.Name]
	}
	return args, nil
}

func (h *Handler) call(ctx context.Context, op models.OperationDefinition, args []interface{}) (models.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	callCtx, span := observability.StartSpan(callCtx, "operation."+op.Name, attribute.Int("args", len(args)))
	started := time.Now()

	result, err := op.Handler(callCtx, args)

	timedOut := err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded))
	outcome := metrics.Outcome(err, timedOut)
	metrics.ObserveCall(stage, started, outcome)
	metrics.OperationCalls.WithLabelValues(op.Name, outcome).Inc()
	observability.EndSpan(span, err)

	if err != nil {
		h.logger.Warn("operation failed", map[string]interface{}{
			"functionName": op.Name,
			"timedOut":     timedOut,
			"error":        err.Error(),
		})
		return models.Result{}, err
	}

	h.logger.Info("operation executed", map[string]interface{}{
		"functionName": op.Name,
		"resultKind":   string(result.Kind),
		"durationMs":   time.Since(started).Milliseconds(),
	})
	return result, nil
}
