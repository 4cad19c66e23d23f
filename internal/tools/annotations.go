package tools

import "github.com/modelcontextprotocol/go-sdk/mcp"

func boolPtr(b bool) *bool {
	return &b
}

// ReadOnlyAnnotations returns annotations for read-only management tools (list, get).
func ReadOnlyAnnotations(title string) *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		Title:          title,
		ReadOnlyHint:   true,
		IdempotentHint: true,
		OpenWorldHint:  boolPtr(false), // one namespace, one compartment tree
	}
}

// QueryAnnotations returns annotations for tools that run a search.
// Results depend on "now", so repeated calls are not idempotent.
func QueryAnnotations(title string) *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		Title:          title,
		ReadOnlyHint:   true,
		IdempotentHint: false,
		OpenWorldHint:  boolPtr(false),
	}
}

// OfflineAnnotations returns annotations for tools that never reach the backend.
func OfflineAnnotations(title string) *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		Title:          title,
		ReadOnlyHint:   true,
		IdempotentHint: true,
		OpenWorldHint:  boolPtr(false),
	}
}
