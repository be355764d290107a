// internal/workers/query-routing/format-response/models.go
package formatresponse

import "query-router/internal/models"

type Input struct {
	Query        string              `json:"query"`
	RouterResult models.RouterResult `json:"routerResult"`
}

type Output struct {
	Content string `json:"content"`
}

const previewItems = 2

const genericFailure = "Sorry, something went wrong while answering your question. Please try again."
