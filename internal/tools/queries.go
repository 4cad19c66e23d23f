package tools

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tareqmamari/logan-mcp-server/internal/query"
	"github.com/tareqmamari/logan-mcp-server/internal/timerange"
)

// ExecuteQueryTool runs a caller-written query.
type ExecuteQueryTool struct {
	*BaseTool
}

// NewExecuteQueryTool creates a new tool instance
func NewExecuteQueryTool(d Deps) *ExecuteQueryTool {
	return &ExecuteQueryTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *ExecuteQueryTool) Name() string {
	return "execute_logan_query"
}

// Annotations returns tool hints for LLMs
func (t *ExecuteQueryTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Execute Logging Analytics Query")
}

// Description returns the tool description
func (t *ExecuteQueryTool) Description() string {
	return `Execute a Logging Analytics query over a time window.

The query is auto-fixed first (Time capitalization, quoting of multi-word fields such as 'Log Source',
is null / is not null, bare count, leading top N) and then validated. Validation findings are reported
next to the results; set strict=true to refuse execution when the fixed query still fails validation.

**Quick syntax:** <filter> | stats count by 'Log Source' | sort -count | head 10

Set console_mode=true to send the time window as a separate filter the way the web console does.
Grouped aggregations use that placement automatically.

**Related tools:**
- validate_query: check a query offline
- get_working_query_examples: known-good queries`
}

// InputSchema returns the input schema
func (t *ExecuteQueryTool) InputSchema() interface{} {
	return t.querySchema(map[string]interface{}{
		"query": map[string]interface{}{
			"type":        "string",
			"description": "The query to execute.",
			"minLength":   1,
			"examples": []string{
				"* | stats count by 'Log Source' | sort -count | head 10",
				"'Log Source' = 'OCI Audit Logs' | head 20",
			},
		},
		"fix": map[string]interface{}{
			"type":        "boolean",
			"description": "Apply automatic syntax fixes before execution.",
			"default":     true,
		},
		"console_mode": map[string]interface{}{
			"type":        "boolean",
			"description": "Send the time window as a separate time filter instead of embedding it.",
			"default":     false,
		},
		"strict": map[string]interface{}{
			"type":        "boolean",
			"description": "Do not execute when the query fails validation.",
			"default":     false,
		},
		"time_range_minutes": map[string]interface{}{
			"type":        "integer",
			"description": "Explicit window length in minutes. Overrides time_range.",
			"minimum":     1,
			"maximum":     timerange.MaxMinutes,
		},
	}, "query")
}

// Execute executes the tool
func (t *ExecuteQueryTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	q, err := GetStringParam(arguments, "query", true)
	if err != nil {
		return invalidArgument(err), nil
	}
	fix, err := GetBoolParamDefault(arguments, "fix", true)
	if err != nil {
		return invalidArgument(err), nil
	}
	consoleMode, err := GetBoolParam(arguments, "console_mode", false)
	if err != nil {
		return invalidArgument(err), nil
	}
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}
	if opts.strict, err = GetBoolParam(arguments, "strict", false); err != nil {
		return invalidArgument(err), nil
	}
	if consoleMode {
		opts.compile = append(opts.compile, query.WithTimeFilterMode(query.TimeFilterSeparate))
	}

	return t.run(ctx, t.Name(), query.RawIntent{Query: q, Fix: fix}, opts)
}

// ValidateQueryTool checks a query offline.
type ValidateQueryTool struct {
	*BaseTool
}

// NewValidateQueryTool creates a new tool instance
func NewValidateQueryTool(d Deps) *ValidateQueryTool {
	return &ValidateQueryTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *ValidateQueryTool) Name() string {
	return "validate_query"
}

// Annotations returns tool hints for LLMs
func (t *ValidateQueryTool) Annotations() *mcp.ToolAnnotations {
	return OfflineAnnotations("Validate Query")
}

// DefaultTimeout returns 0; validation never leaves the process.
func (t *ValidateQueryTool) DefaultTimeout() time.Duration {
	return 0
}

// Description returns the tool description
func (t *ValidateQueryTool) Description() string {
	return `Validate a Logging Analytics query against the known syntax rules without running it.

With fix=true the response also carries the auto-fixed query, the corrections applied, and the
validation of the fixed query.`
}

// InputSchema returns the input schema
func (t *ValidateQueryTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The query to validate.",
			},
			"fix": map[string]interface{}{
				"type":        "boolean",
				"description": "Also return the auto-fixed query and its validation.",
				"default":     false,
			},
		},
		"required": []string{"query"},
	}
}

type validateResponse struct {
	Query           string                  `json:"query"`
	Validation      query.ValidationResult  `json:"validation"`
	Violations      []query.Violation       `json:"violations,omitempty"`
	FixedQuery      string                  `json:"fixed_query,omitempty"`
	Corrections     []string                `json:"corrections,omitempty"`
	FixedValidation *query.ValidationResult `json:"fixed_validation,omitempty"`
}

// Execute executes the tool
func (t *ValidateQueryTool) Execute(_ context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	// An empty query is reported by the not_empty rule, not as a bad argument.
	q, err := GetStringParam(arguments, "query", false)
	if err != nil {
		return invalidArgument(err), nil
	}
	if _, ok := arguments["query"]; !ok {
		return invalidArgument(errMissing("query")), nil
	}
	fix, err := GetBoolParam(arguments, "fix", false)
	if err != nil {
		return invalidArgument(err), nil
	}

	resp := validateResponse{
		Query:      q,
		Validation: query.Validate(q),
		Violations: query.Check(q),
	}
	if fix {
		fixed, corrections := query.AutoFix(q)
		revalidated := query.Validate(fixed)
		resp.FixedQuery = fixed
		resp.Corrections = corrections
		resp.FixedValidation = &revalidated
	}
	return t.FormatResponse(resp)
}

// ResolveTimeRangeTool previews the window a time range token resolves to.
type ResolveTimeRangeTool struct {
	*BaseTool
}

// NewResolveTimeRangeTool creates a new tool instance
func NewResolveTimeRangeTool(d Deps) *ResolveTimeRangeTool {
	return &ResolveTimeRangeTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *ResolveTimeRangeTool) Name() string {
	return "resolve_time_range"
}

// Annotations returns tool hints for LLMs
func (t *ResolveTimeRangeTool) Annotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		Title:          "Resolve Time Range",
		ReadOnlyHint:   true,
		IdempotentHint: false,
		OpenWorldHint:  boolPtr(false),
	}
}

// DefaultTimeout returns 0; resolution is local.
func (t *ResolveTimeRangeTool) DefaultTimeout() time.Duration {
	return 0
}

// Description returns the tool description
func (t *ResolveTimeRangeTool) Description() string {
	return "Show the absolute UTC window, the embedded predicate and the separate time filter a time range resolves to."
}

// InputSchema returns the input schema
func (t *ResolveTimeRangeTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"time_range": timeRangeProperty(),
			"time_range_minutes": map[string]interface{}{
				"type":        "integer",
				"description": "Explicit window length in minutes. Overrides time_range.",
				"minimum":     1,
				"maximum":     timerange.MaxMinutes,
			},
		},
	}
}

// Execute executes the tool
func (t *ResolveTimeRangeTool) Execute(_ context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}
	w := opts.window
	return t.FormatResponse(map[string]interface{}{
		"token":           w.Token,
		"minutes":         w.Minutes,
		"label":           w.Label,
		"start":           w.StartISO(),
		"end":             w.EndISO(),
		"filter_fragment": w.FilterFragment(),
		"time_filter":     w.TimeFilter(),
		"known_tokens":    timerange.Tokens(),
	})
}
