package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tareqmamari/logan-mcp-server/internal/query"
)

const (
	trendCountAlias   = "log_count"
	errorCountAlias   = "error_count"
	defaultTopErrors  = 10
	maxTopErrors      = 100
	topSourcesSummary = 10
)

// intervalFromMinutes renders a bucket size the way timestats expects it,
// rounding down to whole hours or days past an hour.
func intervalFromMinutes(minutes int) string {
	switch {
	case minutes < 60:
		return strconv.Itoa(minutes) + "m"
	case minutes < 1440:
		return strconv.Itoa(minutes/60) + "h"
	default:
		return strconv.Itoa(minutes/1440) + "d"
	}
}

// LogTrendsTool buckets event volume over time.
type LogTrendsTool struct {
	*BaseTool
}

// NewLogTrendsTool creates a new tool instance
func NewLogTrendsTool(d Deps) *LogTrendsTool {
	return &LogTrendsTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *LogTrendsTool) Name() string {
	return "get_log_trends"
}

// Annotations returns tool hints for LLMs
func (t *LogTrendsTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Log Trends")
}

// Description returns the tool description
func (t *LogTrendsTool) Description() string {
	return `Count events per time bucket. interval (5m, 1h, 1d) takes precedence over interval_minutes;
the default bucket is 1h. base_query narrows the events counted.`
}

// InputSchema returns the input schema
func (t *LogTrendsTool) InputSchema() interface{} {
	return t.querySchema(map[string]interface{}{
		"base_query": baseQueryProperty("Filter selecting the events to count."),
		"interval": map[string]interface{}{
			"type":        "string",
			"description": "Bucket size.",
			"pattern":     `^\d+[smhdw]$`,
		},
		"interval_minutes": map[string]interface{}{
			"type":        "integer",
			"description": "Bucket size in minutes.",
			"minimum":     1,
		},
	})
}

// Execute executes the tool
func (t *LogTrendsTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	base, err := GetStringParam(arguments, "base_query", false)
	if err != nil {
		return invalidArgument(err), nil
	}
	interval, err := GetStringParam(arguments, "interval", false)
	if err != nil {
		return invalidArgument(err), nil
	}
	minutes, err := GetIntParam(arguments, "interval_minutes", false)
	if err != nil {
		return invalidArgument(err), nil
	}
	if minutes < 0 {
		return invalidArgument(fmt.Errorf("interval_minutes must be positive")), nil
	}
	if interval == "" && minutes > 0 {
		interval = intervalFromMinutes(minutes)
	}
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}
	return t.run(ctx, t.Name(), query.StatisticsIntent{
		BaseQuery: base,
		Spec: query.StatisticsSpec{
			Type:         query.StatTimestats,
			Aggregations: []query.Aggregation{{Function: "count", Alias: trendCountAlias}},
			Interval:     interval,
		},
	}, opts)
}

// TopErrorsTool ranks the most frequent error messages.
type TopErrorsTool struct {
	*BaseTool
}

// NewTopErrorsTool creates a new tool instance
func NewTopErrorsTool(d Deps) *TopErrorsTool {
	return &TopErrorsTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *TopErrorsTool) Name() string {
	return "get_top_errors"
}

// Annotations returns tool hints for LLMs
func (t *TopErrorsTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Top Errors")
}

// Description returns the tool description
func (t *TopErrorsTool) Description() string {
	return "Rank error, critical and fatal messages by how often they occurred."
}

// InputSchema returns the input schema
func (t *TopErrorsTool) InputSchema() interface{} {
	return t.querySchema(map[string]interface{}{
		"limit": map[string]interface{}{
			"type":        "integer",
			"description": "Number of messages to return.",
			"minimum":     1,
			"maximum":     maxTopErrors,
			"default":     defaultTopErrors,
		},
	})
}

// Execute executes the tool
func (t *TopErrorsTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	limit, err := GetIntParam(arguments, "limit", false)
	if err != nil {
		return invalidArgument(err), nil
	}
	if limit == 0 {
		limit = defaultTopErrors
	}
	if limit < 1 || limit > maxTopErrors {
		return invalidArgument(fmt.Errorf("limit must be between 1 and %d", maxTopErrors)), nil
	}
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}
	return t.run(ctx, t.Name(), query.SearchIntent{
		EventType: "errors",
		BaseQuery: fmt.Sprintf("* | stats count as %s by Message | sort -%s | head %d", errorCountAlias, errorCountAlias, limit),
	}, opts)
}

// LogSourceSummaryTool condenses the active source listing into totals.
type LogSourceSummaryTool struct {
	*BaseTool
}

// NewLogSourceSummaryTool creates a new tool instance
func NewLogSourceSummaryTool(d Deps) *LogSourceSummaryTool {
	return &LogSourceSummaryTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *LogSourceSummaryTool) Name() string {
	return "get_log_source_summary"
}

// Annotations returns tool hints for LLMs
func (t *LogSourceSummaryTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Log Source Summary")
}

// Description returns the tool description
func (t *LogSourceSummaryTool) Description() string {
	return `Summarize log sources: how many are configured, how many produced events, total events,
system versus custom sources and the ten busiest. Use list_active_log_sources for every source.`
}

// InputSchema returns the input schema
func (t *LogSourceSummaryTool) InputSchema() interface{} {
	return t.querySchema(map[string]interface{}{})
}

type sourceSummaryResponse struct {
	Query         string         `json:"query"`
	TimePeriod    string         `json:"time_period"`
	TimePlacement string         `json:"time_placement"`
	DryRun        bool           `json:"dry_run,omitempty"`
	TotalSources  int            `json:"total_sources"`
	ActiveSources int            `json:"active_sources"`
	TotalLogCount int64          `json:"total_log_count"`
	SystemSources int            `json:"system_sources"`
	CustomSources int            `json:"custom_sources"`
	TopSources    []ActiveSource `json:"top_sources"`
	Warnings      []string       `json:"warnings,omitempty"`
}

// summarizeSources totals a merged listing; sources are already ranked.
func summarizeSources(sources []ActiveSource, top int) sourceSummaryResponse {
	s := sourceSummaryResponse{TotalSources: len(sources), TopSources: []ActiveSource{}}
	for _, src := range sources {
		s.TotalLogCount += src.LogCount
		if src.HasData {
			s.ActiveSources++
		}
		switch {
		case src.IsSystem == nil:
		case *src.IsSystem:
			s.SystemSources++
		default:
			s.CustomSources++
		}
	}
	for _, src := range sources {
		if len(s.TopSources) == top || !src.HasData {
			break
		}
		s.TopSources = append(s.TopSources, src)
	}
	return s
}

// Execute executes the tool
func (t *LogSourceSummaryTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}
	compiled, err := t.compile(ctx, query.AggregateIntent{GroupBy: "Log Source", Alias: sourceCountAlias}, opts)
	if err != nil {
		return HandleError(err, t.Name()), nil
	}

	var resp sourceSummaryResponse
	if opts.dryRun {
		resp = summarizeSources(nil, topSourcesSummary)
		resp.DryRun = true
	} else {
		sources, _, warnings, err := t.collectSources(ctx, compiled, opts)
		if err != nil {
			return HandleError(err, t.Name()), nil
		}
		resp = summarizeSources(sources, topSourcesSummary)
		resp.Warnings = warnings
	}
	resp.Query = compiled.QueryString
	resp.TimePeriod = compiled.TimePeriod
	resp.TimePlacement = compiled.TimePlacement
	return t.FormatResponse(resp)
}
