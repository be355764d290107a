// internal/workers/query-routing/classify-intent/models.go
package classifyintent

import "query-router/internal/models"

type Input struct {
	Query   string               `json:"query"`
	History []models.HistoryTurn `json:"history"`
}

// Output carries the verdict. Defaulted is set when the verdict did not
// come from a recognised model reply; Reason says why.
type Output struct {
	Intent    models.Intent `json:"intent"`
	Defaulted bool          `json:"defaulted"`
	Reason    string        `json:"reason"`
}

const (
	ReasonModel        = "model"
	ReasonUnrecognized = "unrecognized_reply"
	ReasonUpstream     = "upstream_failure"
)
