// internal/workers/query-routing/execute-operation/models.go
package executeoperation

import "query-router/internal/models"

type Input struct {
	Match models.FunctionMatch `json:"match"`
}

type Output struct {
	FunctionName string        `json:"functionName"`
	Result       models.Result `json:"result"`
	ResultKind   string        `json:"resultKind"`
}
