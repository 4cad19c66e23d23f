package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tareqmamari/logan-mcp-server/internal/query"
)

const (
	alertFilter        = "Severity in ('error', 'warning', 'critical', 'fatal')"
	alertTimeRange     = "24h"
	alertTopSources    = 10
	timelineMaxEvents  = 500
	timelineActiveFrom = 6
)

// AlertStatisticsTool reports alert volume by severity, source and hour.
type AlertStatisticsTool struct {
	*BaseTool
}

// NewAlertStatisticsTool creates a new tool instance
func NewAlertStatisticsTool(d Deps) *AlertStatisticsTool {
	return &AlertStatisticsTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *AlertStatisticsTool) Name() string {
	return "get_alert_statistics"
}

// Annotations returns tool hints for LLMs
func (t *AlertStatisticsTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Alert Statistics")
}

// Description returns the tool description
func (t *AlertStatisticsTool) Description() string {
	return `Alert statistics for a window (default 24h): event counts per severity, the ten log sources with
the most warnings and errors, and the hourly trend of those events. The three queries run in parallel;
a failed one leaves its section empty and adds a warning.`
}

// InputSchema returns the input schema
func (t *AlertStatisticsTool) InputSchema() interface{} {
	schema := t.querySchema(map[string]interface{}{})
	props := schema["properties"].(map[string]interface{})
	props["time_range"].(map[string]interface{})["default"] = alertTimeRange
	return schema
}

type alertStatisticsResponse struct {
	TimePeriod  string                   `json:"time_period"`
	BySeverity  []map[string]interface{} `json:"by_severity"`
	TopSources  []map[string]interface{} `json:"top_sources"`
	HourlyTrend []map[string]interface{} `json:"hourly_trend"`
	Queries     map[string]string        `json:"queries"`
	DryRun      bool                     `json:"dry_run,omitempty"`
	Warnings    []string                 `json:"warnings,omitempty"`
}

// Execute executes the tool
func (t *AlertStatisticsTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}
	_, hasToken := arguments["time_range"]
	_, hasMinutes := arguments["time_range_minutes"]
	if !hasToken && !hasMinutes {
		opts.window = t.resolver.Resolve(alertTimeRange)
	}
	if !opts.dryRun && t.backend == nil {
		return HandleError(errNoBackend, t.Name()), nil
	}

	sections := []struct {
		name   string
		intent query.Intent
		rows   int
	}{
		{"by_severity", query.AggregateIntent{GroupBy: "Severity", Alias: eventCountAlias}, opts.maxCount},
		{"top_sources", query.AggregateIntent{BaseQuery: alertFilter, GroupBy: "Log Source", Alias: eventCountAlias}, alertTopSources},
		{"hourly_trend", query.StatisticsIntent{
			BaseQuery: alertFilter,
			Spec: query.StatisticsSpec{
				Type:         query.StatTimestats,
				Aggregations: []query.Aggregation{{Function: "count", Alias: eventCountAlias}},
				Interval:     "1h",
			},
		}, opts.maxCount},
	}

	rows := make([][]map[string]interface{}, len(sections))
	queries := make([]string, len(sections))
	errs := make([]error, len(sections))
	g, gctx := errgroup.WithContext(ctx)
	for i, sec := range sections {
		g.Go(func() error {
			o := opts
			o.maxCount = min(sec.rows, opts.maxCount)
			result, err := t.runQuery(gctx, sec.intent, o)
			if err != nil {
				t.logger.Warn("Alert statistics query failed", zap.String("section", sec.name), zap.Error(err))
				errs[i] = err
				return nil
			}
			rows[i], queries[i] = result.Results, result.Query
			return nil
		})
	}
	_ = g.Wait()

	resp := alertStatisticsResponse{
		TimePeriod: opts.window.Label,
		Queries:    map[string]string{},
		DryRun:     opts.dryRun,
	}
	for i, sec := range sections {
		if errs[i] != nil {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("%s: %v", sec.name, errs[i]))
		}
		if queries[i] != "" {
			resp.Queries[sec.name] = queries[i]
		}
		if rows[i] == nil {
			rows[i] = []map[string]interface{}{}
		}
	}
	resp.BySeverity, resp.TopSources, resp.HourlyTrend = rows[0], rows[1], rows[2]
	return t.FormatResponse(resp)
}

// IncidentTimelineTool orders the events of an incident in time.
type IncidentTimelineTool struct {
	*BaseTool
}

// NewIncidentTimelineTool creates a new tool instance
func NewIncidentTimelineTool(d Deps) *IncidentTimelineTool {
	return &IncidentTimelineTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *IncidentTimelineTool) Name() string {
	return "build_incident_timeline"
}

// Annotations returns tool hints for LLMs
func (t *IncidentTimelineTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Incident Timeline")
}

// Description returns the tool description
func (t *IncidentTimelineTool) Description() string {
	return `Build a timeline from the events matched by search_query, oldest first, with the affected sources.

phase is "resolved" when nothing matched, "emerging" for up to five events and "active" beyond that.
At most 500 events are fetched.`
}

// InputSchema returns the input schema
func (t *IncidentTimelineTool) InputSchema() interface{} {
	return t.querySchema(map[string]interface{}{
		"search_query": map[string]interface{}{
			"type":        "string",
			"description": "Filter identifying the incident's events.",
			"examples":    []string{"'Log Source' = 'OCI Audit Logs' and 'User Name' = 'admin'", "Severity = 'critical'"},
		},
	}, "search_query")
}

// Incident phases.
const (
	PhaseResolved = "resolved"
	PhaseEmerging = "emerging"
	PhaseActive   = "active"
)

type incidentTimeline struct {
	IncidentID      string   `json:"incident_id"`
	StartTime       string   `json:"start_time,omitempty"`
	EndTime         string   `json:"end_time,omitempty"`
	EventCount      int      `json:"event_count"`
	AffectedSources []string `json:"affected_sources"`
	Phase           string   `json:"phase"`
	Summary         string   `json:"summary"`
}

type incidentTimelineResponse struct {
	*QueryResult
	incidentTimeline
}

func eventTime(row map[string]interface{}) string {
	for _, key := range []string{"Time", "Datetime"} {
		if ts := stringField(row, key); ts != "" {
			return ts
		}
	}
	return ""
}

// summarizeTimeline derives bounds, sources and phase from time-ordered rows.
func summarizeTimeline(id string, rows []map[string]interface{}) incidentTimeline {
	tl := incidentTimeline{IncidentID: id, EventCount: len(rows), AffectedSources: []string{}, Phase: PhaseResolved}
	if len(rows) == 0 {
		tl.Summary = "No events matched the query"
		return tl
	}

	seen := map[string]bool{}
	for _, row := range rows {
		if ts := eventTime(row); ts != "" {
			if tl.StartTime == "" || ts < tl.StartTime {
				tl.StartTime = ts
			}
			if ts > tl.EndTime {
				tl.EndTime = ts
			}
		}
		if src := stringField(row, "Log Source"); src != "" && !seen[src] {
			seen[src] = true
			tl.AffectedSources = append(tl.AffectedSources, src)
		}
	}
	sort.Strings(tl.AffectedSources)

	tl.Phase = PhaseEmerging
	if len(rows) >= timelineActiveFrom {
		tl.Phase = PhaseActive
	}
	tl.Summary = fmt.Sprintf("Incident affecting %d source(s) with %d events", len(tl.AffectedSources), len(rows))
	return tl
}

// Execute executes the tool
func (t *IncidentTimelineTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	search, err := GetStringParam(arguments, "search_query", true)
	if err != nil {
		return invalidArgument(err), nil
	}
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}
	opts.maxCount = min(opts.maxCount, timelineMaxEvents)

	result, err := t.runQuery(ctx, query.RawIntent{Query: strings.TrimSpace(search) + " | sort Time", Fix: true}, opts)
	if err != nil {
		return HandleError(err, t.Name()), nil
	}
	id := "INC-" + opts.window.End.UTC().Format("20060102150405")
	return t.FormatResponse(incidentTimelineResponse{
		QueryResult:      result,
		incidentTimeline: summarizeTimeline(id, result.Results),
	})
}
