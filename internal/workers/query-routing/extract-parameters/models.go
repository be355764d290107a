// internal/workers/query-routing/extract-parameters/models.go
package extractparameters

type Input struct {
	Query        string `json:"query"`
	FunctionName string `json:"functionName"`
}

type Output struct {
	Parameters map[string]interface{} `json:"parameters"`
}
