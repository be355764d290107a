// Package errors provides the standardized error types shared by the routing
// stages, the HTTP surface and the workflow worker.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Upstream service failures
const (
	ErrCodeUpstreamServiceFailed ErrorCode = "UPSTREAM_SERVICE_FAILED"
	ErrCodeLLMTimeout            ErrorCode = "LLM_TIMEOUT"
	ErrCodeEmbeddingFailed       ErrorCode = "EMBEDDING_FAILED"
	ErrCodeVectorSearchFailed    ErrorCode = "VECTOR_SEARCH_FAILED"
	ErrCodeResponseParseFailed   ErrorCode = "RESPONSE_PARSE_FAILED"
)

// Routing outcomes
const (
	ErrCodeNoMatch           ErrorCode = "NO_MATCH"
	ErrCodeMissingParameters ErrorCode = "MISSING_PARAMETERS"
	ErrCodeInvalidParameters ErrorCode = "INVALID_PARAMETERS"
	ErrCodeOperationFailed   ErrorCode = "OPERATION_FAILED"
	ErrCodeOperationTimeout  ErrorCode = "OPERATION_TIMEOUT"
)

// Configuration integrity
const (
	ErrCodeUnknownOperation ErrorCode = "UNKNOWN_OPERATION"
	ErrCodeCatalogInvalid   ErrorCode = "CATALOG_INVALID"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the structured error carried between stages.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches another StandardError by code so callers can write
// errors.Is(err, &StandardError{Code: ErrCodeNoMatch}).
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns the job variables attached to a fail or throw command.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func NewUpstreamServiceError(service string, err error) *StandardError {
	e := newError(ErrCodeUpstreamServiceFailed, fmt.Sprintf("%s call failed", service), err, true)
	e.Metadata = map[string]interface{}{"service": service}
	return e
}

func NewLLMTimeoutError(stage string) *StandardError {
	e := newError(ErrCodeLLMTimeout, fmt.Sprintf("language model timed out during %s", stage), nil, true)
	e.Metadata = map[string]interface{}{"stage": stage}
	return e
}

func NewEmbeddingFailedError(err error) *StandardError {
	return newError(ErrCodeEmbeddingFailed, "query embedding failed", err, true)
}

func NewVectorSearchFailedError(err error) *StandardError {
	return newError(ErrCodeVectorSearchFailed, "vector index search failed", err, true)
}

func NewResponseParseFailedError(stage string, err error) *StandardError {
	e := newError(ErrCodeResponseParseFailed, fmt.Sprintf("could not parse model reply during %s", stage), err, false)
	e.Metadata = map[string]interface{}{"stage": stage}
	return e
}

func NewNoMatchError(query string) *StandardError {
	e := newError(ErrCodeNoMatch, "no operation matched the query", nil, false)
	e.Metadata = map[string]interface{}{"query": query}
	return e
}

// NewMissingParametersError lists the required parameters the extractor
// could not fill.
func NewMissingParametersError(operation string, missing []string) *StandardError {
	e := newError(ErrCodeMissingParameters,
		fmt.Sprintf("operation %s is missing required parameters: %s", operation, strings.Join(missing, ", ")),
		nil, false)
	e.Metadata = map[string]interface{}{"operation": operation, "missing": missing}
	return e
}

func NewInvalidParametersError(operation string, problems []string) *StandardError {
	e := newError(ErrCodeInvalidParameters,
		fmt.Sprintf("operation %s received invalid parameters", operation), nil, false)
	e.Details = strings.Join(problems, "; ")
	e.Metadata = map[string]interface{}{"operation": operation, "problems": problems}
	return e
}

func NewOperationFailedError(operation string, err error) *StandardError {
	e := newError(ErrCodeOperationFailed, fmt.Sprintf("operation %s failed", operation), err, true)
	e.Metadata = map[string]interface{}{"operation": operation}
	return e
}

func NewOperationTimeoutError(operation string) *StandardError {
	e := newError(ErrCodeOperationTimeout, fmt.Sprintf("operation %s timed out", operation), nil, true)
	e.Metadata = map[string]interface{}{"operation": operation}
	return e
}

// NewUnknownOperationError signals that the vector index and the catalog
// have drifted apart.
func NewUnknownOperationError(operation string) *StandardError {
	e := newError(ErrCodeUnknownOperation, fmt.Sprintf("operation %q is not in the catalog", operation), nil, false)
	e.Metadata = map[string]interface{}{"operation": operation}
	return e
}

func NewCatalogInvalidError(details string) *StandardError {
	e := newError(ErrCodeCatalogInvalid, "operation catalog failed validation", nil, false)
	e.Details = details
	return e
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "unexpected error", err, false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended workflow retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeUpstreamServiceFailed,
		ErrCodeEmbeddingFailed,
		ErrCodeVectorSearchFailed,
		ErrCodeOperationFailed:
		return 3
	case ErrCodeOperationTimeout:
		return 2
	case ErrCodeLLMTimeout:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError into a BPMNError. Internal
// and BPMN codes are identical.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"errorCategory":     GetErrorCategory(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError extracts a StandardError from an error chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// Normalize always yields a StandardError, wrapping foreign errors as INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err carries a StandardError with the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for logging and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeUnknownOperation, ErrCodeCatalogInvalid:
		return "CONFIGURATION"
	case ErrCodeMissingParameters, ErrCodeInvalidParameters:
		return "USER_INPUT"
	case ErrCodeNoMatch:
		return "ROUTING"
	case ErrCodeOperationFailed, ErrCodeOperationTimeout:
		return "OPERATION"
	}

	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "LLM"),
		strings.Contains(codeStr, "EMBEDDING"),
		strings.Contains(codeStr, "VECTOR"),
		strings.Contains(codeStr, "UPSTREAM"),
		strings.Contains(codeStr, "PARSE"):
		return "UPSTREAM"
	default:
		return "OTHER"
	}
}

// IsConfigurationError is true for failures that indicate catalog or index
// drift rather than a transient condition.
func IsConfigurationError(err error) bool {
	stdErr, ok := AsStandardError(err)
	return ok && GetErrorCategory(stdErr.Code) == "CONFIGURATION"
}
