// internal/workers/query-routing/process-query/models.go
package processquery

import (
	"context"

	"query-router/internal/models"
)

type Classifier interface {
	Classify(ctx context.Context, query string, history []models.HistoryTurn) models.Intent
}

type Matcher interface {
	FindBestMatch(ctx context.Context, query string) *models.FunctionMatch
}

type Executor interface {
	Invoke(ctx context.Context, match *models.FunctionMatch) (models.Result, error)
}

type Formatter interface {
	Format(ctx context.Context, query string, rr *models.RouterResult) string
	Apologize(ctx context.Context, query string) string
	Converse(ctx context.Context, query string, history []models.HistoryTurn) string
}

type Input struct {
	Query   string               `json:"query"`
	History []models.HistoryTurn `json:"history"`
}

type Output struct {
	Response *models.AIResponse `json:"response"`
}

const (
	blankQueryReply  = "Please ask a question, for example about products, companies or transactions."
	lastResortReply  = "Sorry, I ran into a problem while answering your question. Please try again."
	invalidArgsReply = "I couldn't use some of the details in your question (%s). Could you rephrase it?"
	missingArgsReply = "I need more information to answer that. Please tell me the %s."
	operationFailed  = "Sorry, I couldn't retrieve the data for %s right now. Please try again later."
)
