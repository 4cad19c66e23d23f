package tools

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tareqmamari/logan-mcp-server/internal/query"
)

// GetLookupTool fetches one lookup table.
type GetLookupTool struct {
	*BaseTool
}

// NewGetLookupTool creates a new tool instance
func NewGetLookupTool(d Deps) *GetLookupTool {
	return &GetLookupTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *GetLookupTool) Name() string {
	return "get_lookup"
}

// Annotations returns tool hints for LLMs
func (t *GetLookupTool) Annotations() *mcp.ToolAnnotations {
	return ReadOnlyAnnotations("Get Lookup")
}

// DefaultTimeout returns the management timeout
func (t *GetLookupTool) DefaultTimeout() time.Duration {
	return DefaultManagementTimeout
}

// Description returns the tool description
func (t *GetLookupTool) Description() string {
	return "Get a lookup table by name, including its fields and status."
}

// InputSchema returns the input schema
func (t *GetLookupTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"lookup_name": map[string]interface{}{
				"type":        "string",
				"description": "Lookup name as returned by list_lookups.",
			},
		},
		"required": []string{"lookup_name"},
	}
}

// Execute executes the tool
func (t *GetLookupTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	name, err := GetStringParam(arguments, "lookup_name", true)
	if err != nil {
		return invalidArgument(err), nil
	}
	return t.fetch(ctx, t.Name(), func(b Backend) (map[string]interface{}, error) {
		return b.GetLookup(ctx, name)
	})
}

// fetch runs one single-object backend call.
func (t *BaseTool) fetch(ctx context.Context, toolName string, call func(Backend) (map[string]interface{}, error)) (*mcp.CallToolResult, error) {
	if t.backend == nil {
		return HandleError(errNoBackend, toolName), nil
	}
	out, err := call(t.backend)
	recordCall(ctx, func(c *CallInfo) { c.Err = err })
	if err != nil {
		return HandleError(err, toolName), nil
	}
	return t.FormatResponse(out)
}

// NamespaceInfoTool describes the configured namespace.
type NamespaceInfoTool struct {
	*BaseTool
}

// NewNamespaceInfoTool creates a new tool instance
func NewNamespaceInfoTool(d Deps) *NamespaceInfoTool {
	return &NamespaceInfoTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *NamespaceInfoTool) Name() string {
	return "get_namespace_info"
}

// Annotations returns tool hints for LLMs
func (t *NamespaceInfoTool) Annotations() *mcp.ToolAnnotations {
	return ReadOnlyAnnotations("Namespace Info")
}

// DefaultTimeout returns the management timeout
func (t *NamespaceInfoTool) DefaultTimeout() time.Duration {
	return DefaultManagementTimeout
}

// Description returns the tool description
func (t *NamespaceInfoTool) Description() string {
	return "Show the Logging Analytics namespace this server queries, with its onboarding status."
}

// InputSchema returns the input schema
func (t *NamespaceInfoTool) InputSchema() interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

// Execute executes the tool
func (t *NamespaceInfoTool) Execute(ctx context.Context, _ map[string]interface{}) (*mcp.CallToolResult, error) {
	return t.fetch(ctx, t.Name(), func(b Backend) (map[string]interface{}, error) {
		return b.GetNamespace(ctx)
	})
}

// SuggestQueryTool asks the backend to complete a partial query.
type SuggestQueryTool struct {
	*BaseTool
}

// NewSuggestQueryTool creates a new tool instance
func NewSuggestQueryTool(d Deps) *SuggestQueryTool {
	return &SuggestQueryTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *SuggestQueryTool) Name() string {
	return "suggest_query"
}

// Annotations returns tool hints for LLMs
func (t *SuggestQueryTool) Annotations() *mcp.ToolAnnotations {
	return ReadOnlyAnnotations("Suggest Query Completions")
}

// DefaultTimeout returns the management timeout
func (t *SuggestQueryTool) DefaultTimeout() time.Duration {
	return DefaultManagementTimeout
}

// Description returns the tool description
func (t *SuggestQueryTool) Description() string {
	return "Get backend completions (commands, fields, values) for a partial query."
}

// InputSchema returns the input schema
func (t *SuggestQueryTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Partial query, e.g. \"'Log Source' = 'OCI Audit Logs' | st\".",
			},
		},
		"required": []string{"query"},
	}
}

// Execute executes the tool
func (t *SuggestQueryTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	q, err := GetStringParam(arguments, "query", true)
	if err != nil {
		return invalidArgument(err), nil
	}
	return t.fetch(ctx, t.Name(), func(b Backend) (map[string]interface{}, error) {
		return b.Suggest(ctx, q)
	})
}

// ParseQueryTool asks the backend to parse a query.
type ParseQueryTool struct {
	*BaseTool
}

// NewParseQueryTool creates a new tool instance
func NewParseQueryTool(d Deps) *ParseQueryTool {
	return &ParseQueryTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *ParseQueryTool) Name() string {
	return "parse_query"
}

// Annotations returns tool hints for LLMs
func (t *ParseQueryTool) Annotations() *mcp.ToolAnnotations {
	return ReadOnlyAnnotations("Parse Query")
}

// DefaultTimeout returns the management timeout
func (t *ParseQueryTool) DefaultTimeout() time.Duration {
	return DefaultManagementTimeout
}

// Description returns the tool description
func (t *ParseQueryTool) Description() string {
	return `Parse a query with the backend grammar and return its structure, or the syntax error.
Use validate_query for the fast offline check; this tool catches everything the backend would reject.`
}

// InputSchema returns the input schema
func (t *ParseQueryTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The query to parse.",
			},
			"fix": map[string]interface{}{
				"type":        "boolean",
				"description": "Auto-fix the query before parsing.",
				"default":     false,
			},
		},
		"required": []string{"query"},
	}
}

// Execute executes the tool
func (t *ParseQueryTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	q, err := GetStringParam(arguments, "query", true)
	if err != nil {
		return invalidArgument(err), nil
	}
	fix, err := GetBoolParam(arguments, "fix", false)
	if err != nil {
		return invalidArgument(err), nil
	}
	if fix {
		q = query.Fix(q)
	}
	recordCall(ctx, func(c *CallInfo) { c.Query = q })
	return t.fetch(ctx, t.Name(), func(b Backend) (map[string]interface{}, error) {
		return b.Parse(ctx, q)
	})
}

// QueryExamplesTool returns known-good queries.
type QueryExamplesTool struct {
	*BaseTool
}

// NewQueryExamplesTool creates a new tool instance
func NewQueryExamplesTool(d Deps) *QueryExamplesTool {
	return &QueryExamplesTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *QueryExamplesTool) Name() string {
	return "get_working_query_examples"
}

// Annotations returns tool hints for LLMs
func (t *QueryExamplesTool) Annotations() *mcp.ToolAnnotations {
	return OfflineAnnotations("Working Query Examples")
}

// DefaultTimeout returns 0; the examples are static.
func (t *QueryExamplesTool) DefaultTimeout() time.Duration {
	return 0
}

// Description returns the tool description
func (t *QueryExamplesTool) Description() string {
	return "Get queries known to run as written, grouped by category, plus syntax tips."
}

// InputSchema returns the input schema
func (t *QueryExamplesTool) InputSchema() interface{} {
	categories := make([]string, 0)
	seen := map[string]bool{}
	for _, ex := range query.Examples {
		if !seen[ex.Category] {
			seen[ex.Category] = true
			categories = append(categories, ex.Category)
		}
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"category": map[string]interface{}{
				"type":        "string",
				"description": "Only this category.",
				"enum":        categories,
			},
		},
	}
}

// Execute executes the tool
func (t *QueryExamplesTool) Execute(_ context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	category, err := GetStringParam(arguments, "category", false)
	if err != nil {
		return invalidArgument(err), nil
	}
	grouped := query.ExamplesByCategory()
	if category != "" {
		examples, ok := grouped[category]
		if !ok {
			return NewToolResultErrorWithSuggestion("unknown example category "+category,
				"Omit category to get every example"), nil
		}
		grouped = map[string][]query.Example{category: examples}
	}
	return t.FormatResponse(map[string]interface{}{
		"examples": grouped,
		"tips":     query.Tips,
	})
}

// CheckConnectionTool verifies credentials and reachability.
type CheckConnectionTool struct {
	*BaseTool
}

// NewCheckConnectionTool creates a new tool instance
func NewCheckConnectionTool(d Deps) *CheckConnectionTool {
	return &CheckConnectionTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *CheckConnectionTool) Name() string {
	return "check_connection"
}

// Annotations returns tool hints for LLMs
func (t *CheckConnectionTool) Annotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		Title:          "Check Connection",
		ReadOnlyHint:   true,
		IdempotentHint: false,
		OpenWorldHint:  boolPtr(false),
	}
}

// DefaultTimeout returns the management timeout
func (t *CheckConnectionTool) DefaultTimeout() time.Duration {
	return DefaultManagementTimeout
}

// Description returns the tool description
func (t *CheckConnectionTool) Description() string {
	return "Check that the server can reach Logging Analytics with the configured credentials."
}

// InputSchema returns the input schema
func (t *CheckConnectionTool) InputSchema() interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

// Execute executes the tool
func (t *CheckConnectionTool) Execute(ctx context.Context, _ map[string]interface{}) (*mcp.CallToolResult, error) {
	if t.backend == nil {
		return HandleError(errNoBackend, t.Name()), nil
	}
	start := time.Now()
	err := t.backend.Ping(ctx)
	latency := time.Since(start)
	recordCall(ctx, func(c *CallInfo) { c.Err = err })
	if err != nil {
		return HandleError(err, t.Name()), nil
	}
	return t.FormatResponse(map[string]interface{}{
		"connected":       true,
		"namespace":       t.backend.Namespace(),
		"circuit_breaker": t.backend.BreakerState(),
		"latency_ms":      latency.Milliseconds(),
	})
}
