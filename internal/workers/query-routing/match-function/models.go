// internal/workers/query-routing/match-function/models.go
package matchfunction

import (
	"context"

	"query-router/internal/models"
)

// VectorIndex is the similarity search the matcher depends on.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, minCertainty float64, limit int) ([]models.Candidate, error)
}

// Extractor fills parameters for the chosen operation.
type Extractor interface {
	Extract(ctx context.Context, query string, op models.OperationDefinition) map[string]interface{}
}

type Input struct {
	Query string `json:"query"`
}

type Output struct {
	Matched bool                  `json:"matched"`
	Match   *models.FunctionMatch `json:"match,omitempty"`
}

// fallbackReply is the JSON object the catalog-wide search asks for.
type fallbackReply struct {
	FunctionName string  `json:"functionName"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
}

// Match sources used as metric labels.
const (
	sourceVector   = "vector"
	sourceFallback = "fallback"
	sourceNone     = "none"
)
