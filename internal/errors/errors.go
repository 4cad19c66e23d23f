// Package mcperrors defines the structured errors returned to MCP clients.
package mcperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tareqmamari/logan-mcp-server/internal/query"
)

// ErrorCategory classifies the type of error
type ErrorCategory string

const (
	// ClientError indicates the error was caused by the client (4xx)
	ClientError ErrorCategory = "CLIENT_ERROR"
	// ServerError indicates the error was caused by the server (5xx)
	ServerError ErrorCategory = "SERVER_ERROR"
	// ExternalError indicates the error was caused by an external dependency
	ExternalError ErrorCategory = "EXTERNAL_ERROR"
)

// ErrorCode represents a structured error code
type ErrorCode string

const (
	// Client errors
	CodeInvalidInput          ErrorCode = "INVALID_INPUT"
	CodeMissingParameter      ErrorCode = "MISSING_PARAMETER"
	CodeInvalidQuery          ErrorCode = "INVALID_QUERY_SYNTAX"
	CodeQueryValidationFailed ErrorCode = "QUERY_VALIDATION_FAILED"
	CodeUnsupportedOperation  ErrorCode = "UNSUPPORTED_OPERATION"
	CodeResourceNotFound      ErrorCode = "RESOURCE_NOT_FOUND"
	CodeUnauthorized          ErrorCode = "UNAUTHORIZED"
	CodeForbidden             ErrorCode = "FORBIDDEN"
	CodeConflict              ErrorCode = "CONFLICT"
	CodeRateLimitExceeded     ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Server errors
	CodeInternalError      ErrorCode = "INTERNAL_ERROR"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeTimeout            ErrorCode = "TIMEOUT"
	CodeCircuitOpen        ErrorCode = "CIRCUIT_OPEN"

	// External errors
	CodeAPIError     ErrorCode = "API_ERROR"
	CodeAuthFailed   ErrorCode = "AUTH_FAILED"
	CodeNetworkError ErrorCode = "NETWORK_ERROR"
)

const serviceName = "OCI Logging Analytics"

// StructuredError represents a detailed error with category, code, and recovery suggestion
type StructuredError struct {
	Code       ErrorCode     `json:"code"`
	Category   ErrorCategory `json:"category"`
	Message    string        `json:"message"`
	Details    interface{}   `json:"details,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Category, e.Message)
}

// ToJSON converts the error to JSON string
func (e *StructuredError) ToJSON() string {
	bytes, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"code":%q,"category":%q,"message":%q}`, e.Code, e.Category, e.Message)
	}
	return string(bytes)
}

// New creates a new structured error
func New(code ErrorCode, category ErrorCategory, message string) *StructuredError {
	return &StructuredError{
		Code:     code,
		Category: category,
		Message:  message,
	}
}

// WithDetails adds details to the error
func (e *StructuredError) WithDetails(details interface{}) *StructuredError {
	e.Details = details
	return e
}

// WithSuggestion adds a recovery suggestion to the error
func (e *StructuredError) WithSuggestion(suggestion string) *StructuredError {
	e.Suggestion = suggestion
	return e
}

// NewInvalidInput creates an invalid input error
func NewInvalidInput(message string) *StructuredError {
	return New(CodeInvalidInput, ClientError, message).
		WithSuggestion("Check the input parameters and try again")
}

// NewMissingParameter creates a missing parameter error
func NewMissingParameter(param string) *StructuredError {
	return New(CodeMissingParameter, ClientError, fmt.Sprintf("Required parameter '%s' is missing", param)).
		WithSuggestion(fmt.Sprintf("Provide the '%s' parameter", param))
}

// NewInvalidQuery creates an invalid query syntax error
func NewInvalidQuery(message string) *StructuredError {
	return New(CodeInvalidQuery, ClientError, message).
		WithSuggestion("Run validate_query with fix=true, or start from get_working_query_examples")
}

// NewQueryValidationFailed reports the validator findings for a query that was not sent.
func NewQueryValidationFailed(findings []string) *StructuredError {
	return New(CodeQueryValidationFailed, ClientError, "query failed validation").
		WithDetails(map[string]interface{}{"errors": findings}).
		WithSuggestion("Set fix=true to apply automatic corrections")
}

// NewUnsupportedOperation names the rejected operation and the accepted ones.
func NewUnsupportedOperation(family, operation string, supported []string) *StructuredError {
	return New(CodeUnsupportedOperation, ClientError,
		fmt.Sprintf("unsupported %s operation %q", family, operation)).
		WithDetails(map[string]interface{}{
			"family":    family,
			"operation": operation,
			"supported": supported,
		}).
		WithSuggestion("Use one of: " + strings.Join(supported, ", "))
}

// NewResourceNotFound creates a resource not found error
func NewResourceNotFound(resourceType, id string) *StructuredError {
	return New(CodeResourceNotFound, ClientError, fmt.Sprintf("%s '%s' not found", resourceType, id)).
		WithSuggestion("Verify the name and try again")
}

// NewUnauthorized creates an unauthorized error
func NewUnauthorized() *StructuredError {
	return New(CodeUnauthorized, ClientError, "Authentication required or credentials invalid").
		WithSuggestion("Check LOGAN_AUTH_TYPE and the matching credentials")
}

// NewRateLimitExceeded creates a rate limit exceeded error
func NewRateLimitExceeded() *StructuredError {
	return New(CodeRateLimitExceeded, ClientError, "Rate limit exceeded").
		WithSuggestion("Wait a moment and try again")
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *StructuredError {
	return New(CodeInternalError, ServerError, message).
		WithSuggestion("Try again later or contact support if the issue persists")
}

// NewServiceUnavailable creates a service unavailable error
func NewServiceUnavailable() *StructuredError {
	return New(CodeServiceUnavailable, ServerError, "Service temporarily unavailable").
		WithSuggestion("Try again in a few moments")
}

// NewCircuitOpen is returned while the backend circuit breaker rejects calls.
func NewCircuitOpen() *StructuredError {
	return New(CodeCircuitOpen, ServerError, "Backend calls are paused after repeated failures").
		WithSuggestion("Wait for the breaker timeout, then run check_connection")
}

// NewTimeout creates a timeout error
func NewTimeout(operation string) *StructuredError {
	return New(CodeTimeout, ServerError, fmt.Sprintf("Operation '%s' timed out", operation)).
		WithSuggestion("Narrow the time_range or lower max_count")
}

// NewAPIError creates an external API error
func NewAPIError(service string, statusCode int, message string) *StructuredError {
	return New(CodeAPIError, ExternalError, fmt.Sprintf("%s API error (HTTP %d): %s", service, statusCode, message)).
		WithDetails(map[string]interface{}{
			"service":     service,
			"status_code": statusCode,
		}).
		WithSuggestion("Check the OCI service health dashboard for the region")
}

// NewAuthFailed creates an authentication failed error
func NewAuthFailed(message string) *StructuredError {
	return New(CodeAuthFailed, ExternalError, message).
		WithSuggestion("Check the OCI user OCID, key fingerprint and private key")
}

// NewNetworkError creates a network error
func NewNetworkError(message string) *StructuredError {
	return New(CodeNetworkError, ExternalError, message).
		WithSuggestion("Check your network connection and try again")
}

// FromHTTPStatus creates an appropriate error from HTTP status code
func FromHTTPStatus(statusCode int, responseBody string) *StructuredError {
	switch {
	case statusCode == 400:
		return NewInvalidQuery(responseBody)
	case statusCode == 401:
		return NewUnauthorized()
	case statusCode == 403:
		return New(CodeForbidden, ClientError, "Access forbidden").
			WithSuggestion("Check the IAM policies for the compartment and namespace")
	case statusCode == 404:
		return New(CodeResourceNotFound, ClientError, "Resource not found").
			WithSuggestion("Check LOGAN_NAMESPACE and the resource name")
	case statusCode == 409:
		return New(CodeConflict, ClientError, "Resource conflict")
	case statusCode == 429:
		return NewRateLimitExceeded()
	case statusCode >= 500 && statusCode < 600:
		return NewAPIError(serviceName, statusCode, responseBody)
	default:
		return New(CodeInternalError, ServerError, fmt.Sprintf("Unexpected HTTP status %d: %s", statusCode, responseBody))
	}
}

// FromError maps any error returned by the core or the client to a StructuredError.
func FromError(err error) *StructuredError {
	if err == nil {
		return nil
	}

	var se *StructuredError
	if errors.As(err, &se) {
		return se
	}
	var unsupported *query.UnsupportedOperationError
	if errors.As(err, &unsupported) {
		return NewUnsupportedOperation(string(unsupported.Family), unsupported.Operation, unsupported.Supported)
	}
	var param *query.ParameterError
	if errors.As(err, &param) {
		return NewInvalidInput(param.Error()).WithDetails(map[string]interface{}{
			"family":    string(param.Family),
			"operation": param.Operation,
			"parameter": param.Parameter,
		})
	}
	return NewInternalError(err.Error())
}
