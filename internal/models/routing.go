package models

// PhrasePattern is an embeddable example phrasing stored in the vector index.
type PhrasePattern struct {
	FunctionName    string `json:"functionName"`
	Prompt          string `json:"prompt"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	ParameterSchema string `json:"parameterSchema"`
	Source          string `json:"source"`
}

// Pattern sources.
const (
	PatternSourceExample    = "example"
	PatternSourceParaphrase = "paraphrase"
)

// Candidate is a vector search hit with its certainty score.
type Candidate struct {
	Pattern   PhrasePattern `json:"pattern"`
	Certainty float64       `json:"certainty"`
}

// FunctionMatch is the matcher's choice for one query.
type FunctionMatch struct {
	FunctionName string                 `json:"functionName"`
	Confidence   float64                `json:"confidence"`
	Parameters   map[string]interface{} `json:"parameters"`
	Reasoning    string                 `json:"reasoning"`
}

// RouterResult is the terminal value of one routing attempt.
type RouterResult struct {
	Success          bool           `json:"success"`
	Match            *FunctionMatch `json:"match,omitempty"`
	Result           *Result        `json:"result,omitempty"`
	Error            string         `json:"error,omitempty"`
	FallbackResponse string         `json:"fallbackResponse,omitempty"`
}

// ResponseType classifies an AIResponse.
type ResponseType string

const (
	ResponseData           ResponseType = "data"
	ResponseConversational ResponseType = "conversational"
	ResponseError          ResponseType = "error"
)

// AIResponse is what callers of the router receive.
type AIResponse struct {
	Type         ResponseType           `json:"type"`
	Content      string                 `json:"content"`
	FunctionUsed string                 `json:"functionUsed,omitempty"`
	Data         interface{}            `json:"data,omitempty"`
	Parameters   map[string]interface{} `json:"parameters,omitempty"`
	Confidence   *float64               `json:"confidence,omitempty"`
	Reasoning    string                 `json:"reasoning,omitempty"`
}

// Intent is the classifier verdict.
type Intent string

const (
	IntentData           Intent = "data"
	IntentConversational Intent = "conversational"
)
