package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	mcperrors "github.com/tareqmamari/logan-mcp-server/internal/errors"
)

// NewToolResultError creates a new tool result with an error message
func NewToolResultError(message string) *mcp.CallToolResult {
	if message == "" {
		message = "An unknown error occurred"
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: message,
			},
		},
		IsError: true,
	}
}

// NewToolResultErrorWithSuggestion creates a tool result with an error and recovery guidance
func NewToolResultErrorWithSuggestion(message, suggestion string) *mcp.CallToolResult {
	return NewToolResultError(fmt.Sprintf("%s\n\nSuggestion: %s", message, suggestion))
}

// NewStructuredErrorResult renders a StructuredError as the JSON body of an error result.
func NewStructuredErrorResult(se *mcperrors.StructuredError) *mcp.CallToolResult {
	return NewToolResultError(se.ToJSON())
}

// HandleError maps any failure from compilation or the backend to an error
// result. Deadline and cancellation become TIMEOUT.
func HandleError(err error, operation string) *mcp.CallToolResult {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewStructuredErrorResult(mcperrors.NewTimeout(operation))
	}
	return NewStructuredErrorResult(mcperrors.FromError(err))
}

// invalidArgument wraps a parameter parsing failure.
func invalidArgument(err error) *mcp.CallToolResult {
	return NewStructuredErrorResult(mcperrors.NewInvalidInput(err.Error()))
}

// errorCode extracts the structured code of an error result, for audit entries.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	return string(mcperrors.FromError(err).Code)
}
