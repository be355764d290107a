package llm

import (
	"context"
	"errors"
	"time"

	apperrors "query-router/internal/common/errors"
	"query-router/internal/common/metrics"
	"query-router/internal/common/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Complete runs one prompt under its own deadline and records the call
// against stage. Failures come back as StandardErrors: LLM_TIMEOUT when the
// deadline was hit, UPSTREAM_SERVICE_FAILED otherwise.
func Complete(ctx context.Context, gen Generator, stage string, timeout time.Duration, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	callCtx, span := observability.StartSpan(callCtx, "llm."+stage, attribute.Int("prompt.length", len(prompt)))
	started := time.Now()

	reply, err := gen.Generate(callCtx, prompt)
	timedOut := err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded))
	metrics.ObserveCall(stage, started, metrics.Outcome(err, timedOut))

	switch {
	case err == nil:
		observability.EndSpan(span, nil)
		return reply, nil
	case timedOut:
		stdErr := apperrors.NewLLMTimeoutError(stage)
		observability.EndSpan(span, stdErr)
		return "", stdErr
	default:
		stdErr := apperrors.NewUpstreamServiceError("llm", err)
		observability.EndSpan(span, stdErr)
		return "", stdErr
	}
}
