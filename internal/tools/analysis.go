package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tareqmamari/logan-mcp-server/internal/query"
)

// decodeArg re-decodes a loosely typed argument into a tagged struct.
func decodeArg(arguments map[string]interface{}, key string, dst interface{}) error {
	val, ok := arguments[key]
	if !ok || val == nil {
		return nil
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("argument %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("argument %s has the wrong shape: %w", key, err)
	}
	return nil
}

// AdvancedAnalyticsTool appends a machine-learning style stage to a base query.
type AdvancedAnalyticsTool struct {
	*BaseTool
}

// NewAdvancedAnalyticsTool creates a new tool instance
func NewAdvancedAnalyticsTool(d Deps) *AdvancedAnalyticsTool {
	return &AdvancedAnalyticsTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *AdvancedAnalyticsTool) Name() string {
	return "advanced_analytics"
}

// Annotations returns tool hints for LLMs
func (t *AdvancedAnalyticsTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Advanced Analytics")
}

// Description returns the tool description
func (t *AdvancedAnalyticsTool) Description() string {
	return `Run an analytics command over the events matched by base_query.

- cluster: group similar entries (parameters.max_clusters, parameters.threshold, parameters.fields)
- link: link events sharing fields
- nlp: keyword extraction over parameters.field
- classify: classify by parameters.fields
- outlier: detect outliers in parameters.field
- sequence: ordered event sequences by parameters.fields
- geostats: geographic statistics (parameters.latitude_field, parameters.longitude_field)
- timecluster: time-based clusters (parameters.span such as 5m, 1h)`
}

// InputSchema returns the input schema
func (t *AdvancedAnalyticsTool) InputSchema() interface{} {
	return t.querySchema(map[string]interface{}{
		"analytics_type": map[string]interface{}{
			"type":        "string",
			"description": "Analytics command.",
			"enum":        enumOf(query.AnalyticsOps),
		},
		"base_query": baseQueryProperty("Filter selecting the events to analyze."),
		"parameters": map[string]interface{}{
			"type":        "object",
			"description": "Command options.",
			"properties": map[string]interface{}{
				"fields":          map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				"field":           map[string]interface{}{"type": "string"},
				"max_clusters":    map[string]interface{}{"type": "integer", "minimum": 1},
				"threshold":       map[string]interface{}{"type": "number"},
				"span":            map[string]interface{}{"type": "string", "pattern": `^\d+[smhdw]$`},
				"latitude_field":  map[string]interface{}{"type": "string"},
				"longitude_field": map[string]interface{}{"type": "string"},
			},
		},
	}, "analytics_type")
}

// Execute executes the tool
func (t *AdvancedAnalyticsTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	op, err := GetStringParam(arguments, "analytics_type", true)
	if err != nil {
		return invalidArgument(err), nil
	}
	base, err := GetStringParam(arguments, "base_query", false)
	if err != nil {
		return invalidArgument(err), nil
	}
	var params query.AnalyticsParams
	if err := decodeArg(arguments, "parameters", &params); err != nil {
		return invalidArgument(err), nil
	}
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}
	return t.run(ctx, t.Name(), query.AnalyticsIntent{
		BaseQuery: base,
		Operation: query.AnalyticsOp(op),
		Params:    params,
	}, opts)
}

// StatisticalAnalysisTool appends a statistics stage to a base query.
type StatisticalAnalysisTool struct {
	*BaseTool
}

// NewStatisticalAnalysisTool creates a new tool instance
func NewStatisticalAnalysisTool(d Deps) *StatisticalAnalysisTool {
	return &StatisticalAnalysisTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *StatisticalAnalysisTool) Name() string {
	return "statistical_analysis"
}

// Annotations returns tool hints for LLMs
func (t *StatisticalAnalysisTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Statistical Analysis")
}

// Description returns the tool description
func (t *StatisticalAnalysisTool) Description() string {
	return `Compute statistics over the events matched by base_query.

stats, timestats and eventstats take aggregations (function, field, alias) and group_by; timestats also
takes an interval. top, bottom, frequent and rare rank the values of field and take a limit.
Grouped aggregations send the time window as a separate filter.`
}

// InputSchema returns the input schema
func (t *StatisticalAnalysisTool) InputSchema() interface{} {
	return t.querySchema(map[string]interface{}{
		"stat_type": map[string]interface{}{
			"type":        "string",
			"description": "Statistics command.",
			"enum":        enumOf(query.StatTypes),
		},
		"base_query": baseQueryProperty("Filter selecting the events to aggregate."),
		"aggregations": map[string]interface{}{
			"type":        "array",
			"description": "Aggregations for stats, timestats and eventstats. Defaults to count.",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"function": map[string]interface{}{"type": "string", "enum": query.AggregateFunctions},
					"field":    map[string]interface{}{"type": "string"},
					"alias":    map[string]interface{}{"type": "string"},
				},
				"required": []string{"function"},
			},
		},
		"group_by": map[string]interface{}{
			"type":        "array",
			"description": "Fields to group by.",
			"items":       map[string]interface{}{"type": "string"},
		},
		"interval": map[string]interface{}{
			"type":        "string",
			"description": "timestats bucket width, e.g. 5m or 1h.",
		},
		"limit": map[string]interface{}{
			"type":        "integer",
			"description": "Number of values for top, bottom, frequent and rare.",
			"minimum":     1,
		},
		"field": map[string]interface{}{
			"type":        "string",
			"description": "Field ranked by top, bottom, frequent and rare.",
		},
	}, "stat_type")
}

// Execute executes the tool
func (t *StatisticalAnalysisTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	statType, err := GetStringParam(arguments, "stat_type", true)
	if err != nil {
		return invalidArgument(err), nil
	}
	spec := query.StatisticsSpec{Type: query.StatType(statType)}
	if err := decodeArg(arguments, "aggregations", &spec.Aggregations); err != nil {
		return invalidArgument(err), nil
	}
	if spec.GroupBy, err = GetStringArrayParam(arguments, "group_by", false); err != nil {
		return invalidArgument(err), nil
	}
	if spec.Interval, err = GetStringParam(arguments, "interval", false); err != nil {
		return invalidArgument(err), nil
	}
	if spec.Limit, err = GetIntParam(arguments, "limit", false); err != nil {
		return invalidArgument(err), nil
	}
	if spec.Field, err = GetStringParam(arguments, "field", false); err != nil {
		return invalidArgument(err), nil
	}
	base, err := GetStringParam(arguments, "base_query", false)
	if err != nil {
		return invalidArgument(err), nil
	}
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}
	return t.run(ctx, t.Name(), query.StatisticsIntent{BaseQuery: base, Spec: spec}, opts)
}

// FieldOperationsTool appends a field transformation stage to a base query.
type FieldOperationsTool struct {
	*BaseTool
}

// NewFieldOperationsTool creates a new tool instance
func NewFieldOperationsTool(d Deps) *FieldOperationsTool {
	return &FieldOperationsTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *FieldOperationsTool) Name() string {
	return "field_operations"
}

// Annotations returns tool hints for LLMs
func (t *FieldOperationsTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Field Operations")
}

// Description returns the tool description
func (t *FieldOperationsTool) Description() string {
	return `Transform fields of the events matched by base_query.

- extract: regex extraction (field, pattern)
- eval / addfields: computed field (target, expression)
- rename: renames {old: new}
- fields: include / exclude lists
- dedup: fields
- bucket: field with boundaries, or start, end and span`
}

// InputSchema returns the input schema
func (t *FieldOperationsTool) InputSchema() interface{} {
	stringList := map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}}
	return t.querySchema(map[string]interface{}{
		"operation": map[string]interface{}{
			"type":        "string",
			"description": "Field command.",
			"enum":        enumOf(query.FieldOps),
		},
		"base_query": baseQueryProperty("Filter selecting the events to transform."),
		"operation_details": map[string]interface{}{
			"type":        "object",
			"description": "Operands of the command.",
			"properties": map[string]interface{}{
				"field":      map[string]interface{}{"type": "string"},
				"pattern":    map[string]interface{}{"type": "string"},
				"target":     map[string]interface{}{"type": "string"},
				"expression": map[string]interface{}{"type": "string"},
				"renames": map[string]interface{}{
					"type":                 "object",
					"additionalProperties": map[string]interface{}{"type": "string"},
				},
				"include":    stringList,
				"exclude":    stringList,
				"fields":     stringList,
				"boundaries": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "number"}},
				"start":      map[string]interface{}{"type": "number"},
				"end":        map[string]interface{}{"type": "number"},
				"span":       map[string]interface{}{"type": "number"},
			},
		},
	}, "operation")
}

// Execute executes the tool
func (t *FieldOperationsTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	op, err := GetStringParam(arguments, "operation", true)
	if err != nil {
		return invalidArgument(err), nil
	}
	base, err := GetStringParam(arguments, "base_query", false)
	if err != nil {
		return invalidArgument(err), nil
	}
	var details query.FieldOpDetails
	if err := decodeArg(arguments, "operation_details", &details); err != nil {
		return invalidArgument(err), nil
	}
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}
	return t.run(ctx, t.Name(), query.FieldIntent{
		BaseQuery: base,
		Operation: query.FieldOp(op),
		Details:   details,
	}, opts)
}

// PatternSearchTool searches log text by wildcard, regex, exact or contains match.
type PatternSearchTool struct {
	*BaseTool
}

// NewPatternSearchTool creates a new tool instance
func NewPatternSearchTool(d Deps) *PatternSearchTool {
	return &PatternSearchTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *PatternSearchTool) Name() string {
	return "search_logs_by_pattern"
}

// Annotations returns tool hints for LLMs
func (t *PatternSearchTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Search Logs by Pattern")
}

// Description returns the tool description
func (t *PatternSearchTool) Description() string {
	return `Search logs for a pattern. Without fields, 'Log Entry' and Message are searched.
Severity, host, IP address and log source filters narrow the match; exclude_patterns remove entries.`
}

// InputSchema returns the input schema
func (t *PatternSearchTool) InputSchema() interface{} {
	stringList := func(description string) map[string]interface{} {
		return map[string]interface{}{
			"type":        "array",
			"description": description,
			"items":       map[string]interface{}{"type": "string"},
		}
	}
	return t.querySchema(map[string]interface{}{
		"pattern": map[string]interface{}{
			"type":        "string",
			"description": "Text, wildcard (* and ?) or regular expression to match.",
		},
		"match_mode": map[string]interface{}{
			"type":    "string",
			"enum":    enumOf(query.MatchModes),
			"default": string(query.MatchContains),
		},
		"fields":           stringList("Fields to search; defaults to 'Log Entry' and Message."),
		"severity":         map[string]interface{}{"type": "string"},
		"host":             map[string]interface{}{"type": "string"},
		"ip_address":       map[string]interface{}{"type": "string"},
		"log_sources":      stringList("Log sources to restrict the search to."),
		"exclude_patterns": stringList("Patterns whose matches are removed."),
	}, "pattern")
}

// Execute executes the tool
func (t *PatternSearchTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	var spec query.PatternSpec
	var err error
	if spec.Pattern, err = GetStringParam(arguments, "pattern", true); err != nil {
		return invalidArgument(err), nil
	}
	mode, err := GetStringParam(arguments, "match_mode", false)
	if err != nil {
		return invalidArgument(err), nil
	}
	spec.Mode = query.MatchMode(mode)
	if spec.Fields, err = GetStringArrayParam(arguments, "fields", false); err != nil {
		return invalidArgument(err), nil
	}
	if spec.Severity, err = GetStringParam(arguments, "severity", false); err != nil {
		return invalidArgument(err), nil
	}
	if spec.Host, err = GetStringParam(arguments, "host", false); err != nil {
		return invalidArgument(err), nil
	}
	if spec.IPAddress, err = GetStringParam(arguments, "ip_address", false); err != nil {
		return invalidArgument(err), nil
	}
	if spec.LogSources, err = GetStringArrayParam(arguments, "log_sources", false); err != nil {
		return invalidArgument(err), nil
	}
	if spec.ExcludePatterns, err = GetStringArrayParam(arguments, "exclude_patterns", false); err != nil {
		return invalidArgument(err), nil
	}
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}
	return t.run(ctx, t.Name(), query.PatternIntent{Pattern: spec}, opts)
}

// CorrelationTool correlates the events of a primary query.
type CorrelationTool struct {
	*BaseTool
}

// NewCorrelationTool creates a new tool instance
func NewCorrelationTool(d Deps) *CorrelationTool {
	return &CorrelationTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *CorrelationTool) Name() string {
	return "correlation_analysis"
}

// Annotations returns tool hints for LLMs
func (t *CorrelationTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Correlation Analysis")
}

// Description returns the tool description
func (t *CorrelationTool) Description() string {
	return `Correlate events matched by primary_query on shared fields.

- temporal: events close in time (time_window, default 5m)
- entity_based: events sharing entity values
- transaction_link: link events into transactions
- sequence_analysis: ordered sequences across the fields`
}

// InputSchema returns the input schema
func (t *CorrelationTool) InputSchema() interface{} {
	return t.querySchema(map[string]interface{}{
		"correlation_type": map[string]interface{}{
			"type": "string",
			"enum": enumOf(query.CorrelationTypes),
		},
		"primary_query": baseQueryProperty("Filter selecting the events to correlate."),
		"correlation_fields": map[string]interface{}{
			"type":        "array",
			"description": "Fields the events are correlated on.",
			"items":       map[string]interface{}{"type": "string"},
			"minItems":    1,
		},
		"time_window": map[string]interface{}{
			"type":        "string",
			"description": "Correlation window such as 30s, 5m or 1h.",
			"default":     "5m",
		},
		"threshold": map[string]interface{}{
			"type":    "number",
			"minimum": 0,
			"maximum": 1,
			"default": 0.8,
		},
	}, "correlation_type", "correlation_fields")
}

// Execute executes the tool
func (t *CorrelationTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	correlationType, err := GetStringParam(arguments, "correlation_type", true)
	if err != nil {
		return invalidArgument(err), nil
	}
	spec := query.CorrelationSpec{Type: query.CorrelationType(correlationType)}
	if spec.Fields, err = GetStringArrayParam(arguments, "correlation_fields", false); err != nil {
		return invalidArgument(err), nil
	}
	if spec.Window, err = GetStringParam(arguments, "time_window", false); err != nil {
		return invalidArgument(err), nil
	}
	if spec.Threshold, err = GetFloatParam(arguments, "threshold", false); err != nil {
		return invalidArgument(err), nil
	}
	primary, err := GetStringParam(arguments, "primary_query", false)
	if err != nil {
		return invalidArgument(err), nil
	}
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}
	return t.run(ctx, t.Name(), query.CorrelationIntent{PrimaryQuery: primary, Spec: spec}, opts)
}
