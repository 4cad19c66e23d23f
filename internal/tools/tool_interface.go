// Package tools provides the MCP tool implementations for OCI Logging Analytics.
package tools

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool defines the interface that all MCP tools must implement.
type Tool interface {
	// Name returns the unique identifier for this tool
	Name() string

	// Description returns a human-readable description of what this tool does
	Description() string

	// InputSchema returns the JSON Schema for the tool's input parameters
	InputSchema() interface{}

	// Execute runs the tool with the given arguments and returns the result.
	// Failures the caller can act on are reported as results with IsError set;
	// a non-nil error means the call itself could not be handled.
	Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error)

	// Annotations returns optional hints about tool behavior for LLMs.
	Annotations() *mcp.ToolAnnotations

	// DefaultTimeout returns the recommended timeout for this tool type.
	// Returns 0 to use the server default.
	DefaultTimeout() time.Duration
}

// ToolCategory represents the functional category of a tool
type ToolCategory string

// Tool categories for functional grouping
const (
	CategoryQuery      ToolCategory = "query"
	CategorySecurity   ToolCategory = "security"
	CategoryAnalytics  ToolCategory = "analytics"
	CategoryManagement ToolCategory = "management"
	CategoryAssist     ToolCategory = "assist"
	CategoryMeta       ToolCategory = "meta"
)

// Timeouts by tool category.
const (
	// DefaultQueryTimeout covers a synchronous search, which the backend may
	// take tens of seconds to answer over wide windows.
	DefaultQueryTimeout      = 60 * time.Second
	DefaultManagementTimeout = 30 * time.Second
)
