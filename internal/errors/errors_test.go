package mcperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tareqmamari/logan-mcp-server/internal/query"
)

func TestStructuredError(t *testing.T) {
	tests := []struct {
		name     string
		err      *StructuredError
		wantCode ErrorCode
		wantCat  ErrorCategory
	}{
		{"invalid input", NewInvalidInput("test message"), CodeInvalidInput, ClientError},
		{"missing parameter", NewMissingParameter("query"), CodeMissingParameter, ClientError},
		{"invalid query", NewInvalidQuery("syntax error"), CodeInvalidQuery, ClientError},
		{"validation failed", NewQueryValidationFailed([]string{"bad"}), CodeQueryValidationFailed, ClientError},
		{"unsupported operation", NewUnsupportedOperation("advanced_analytics", "predict", []string{"cluster"}), CodeUnsupportedOperation, ClientError},
		{"resource not found", NewResourceNotFound("lookup", "hosts"), CodeResourceNotFound, ClientError},
		{"unauthorized", NewUnauthorized(), CodeUnauthorized, ClientError},
		{"rate limit", NewRateLimitExceeded(), CodeRateLimitExceeded, ClientError},
		{"internal", NewInternalError("boom"), CodeInternalError, ServerError},
		{"service unavailable", NewServiceUnavailable(), CodeServiceUnavailable, ServerError},
		{"circuit open", NewCircuitOpen(), CodeCircuitOpen, ServerError},
		{"timeout", NewTimeout("query"), CodeTimeout, ServerError},
		{"api", NewAPIError("OCI Logging Analytics", 500, "internal error"), CodeAPIError, ExternalError},
		{"auth failed", NewAuthFailed("invalid signature"), CodeAuthFailed, ExternalError},
		{"network", NewNetworkError("connection refused"), CodeNetworkError, ExternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantCat, tt.err.Category)
			assert.NotEmpty(t, tt.err.Message)
			assert.Contains(t, tt.err.Error(), string(tt.wantCode))
		})
	}
}

func TestStructuredError_Builders(t *testing.T) {
	err := NewInvalidInput("test").
		WithDetails(map[string]interface{}{"field": "time_range"}).
		WithSuggestion("try again")

	details, ok := err.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "time_range", details["field"])
	assert.Equal(t, "try again", err.Suggestion)
}

func TestStructuredError_ToJSON(t *testing.T) {
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(NewInvalidInput("test message").ToJSON()), &decoded))

	assert.Equal(t, string(CodeInvalidInput), decoded["code"])
	assert.Equal(t, string(ClientError), decoded["category"])
	assert.Equal(t, "test message", decoded["message"])
}

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		status   int
		wantCode ErrorCode
		wantCat  ErrorCategory
	}{
		{400, CodeInvalidQuery, ClientError},
		{401, CodeUnauthorized, ClientError},
		{403, CodeForbidden, ClientError},
		{404, CodeResourceNotFound, ClientError},
		{409, CodeConflict, ClientError},
		{429, CodeRateLimitExceeded, ClientError},
		{500, CodeAPIError, ExternalError},
		{503, CodeAPIError, ExternalError},
		{302, CodeInternalError, ServerError},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := FromHTTPStatus(tt.status, "body")
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.wantCat, err.Category)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	unsupported := &query.UnsupportedOperationError{
		Family:    query.FamilyAnalytics,
		Operation: "predict",
		Supported: []string{"cluster", "link"},
	}
	se := FromError(fmt.Errorf("compile: %w", unsupported))
	assert.Equal(t, CodeUnsupportedOperation, se.Code)
	assert.Contains(t, se.Message, "predict")
	assert.Contains(t, se.Suggestion, "cluster, link")

	param := &query.ParameterError{Family: query.FamilyStatistics, Operation: "timestats", Parameter: "interval", Reason: "bad"}
	se = FromError(param)
	assert.Equal(t, CodeInvalidInput, se.Code)

	original := NewCircuitOpen()
	assert.Same(t, original, FromError(fmt.Errorf("wrapped: %w", original)))

	assert.Equal(t, CodeInternalError, FromError(errors.New("plain")).Code)
}
