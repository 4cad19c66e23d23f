package tools

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tareqmamari/logan-mcp-server/internal/client"
	"github.com/tareqmamari/logan-mcp-server/internal/query"
)

const (
	sourceCountAlias = "log_count"
	sourceListLimit  = 1000
)

// ActiveLogSourcesTool lists log sources with their event counts in a window.
type ActiveLogSourcesTool struct {
	*BaseTool
}

// NewActiveLogSourcesTool creates a new tool instance
func NewActiveLogSourcesTool(d Deps) *ActiveLogSourcesTool {
	return &ActiveLogSourcesTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *ActiveLogSourcesTool) Name() string {
	return "list_active_log_sources"
}

// Annotations returns tool hints for LLMs
func (t *ActiveLogSourcesTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Active Log Sources")
}

// Description returns the tool description
func (t *ActiveLogSourcesTool) Description() string {
	return `List log sources with the number of events each produced in the time window, busiest first.

Configured sources with no events in the window are included with log_count 0 and has_data false.
The count query always sends the window as a separate time filter.`
}

// InputSchema returns the input schema
func (t *ActiveLogSourcesTool) InputSchema() interface{} {
	return t.querySchema(map[string]interface{}{
		"limit": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum number of sources to return.",
			"minimum":     1,
			"default":     100,
		},
	})
}

// ActiveSource is one row of the merged source listing.
type ActiveSource struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	EntityTypes int    `json:"entity_types,omitempty"`
	IsSystem    *bool  `json:"is_system,omitempty"`
	LogCount    int64  `json:"log_count"`
	HasData     bool   `json:"has_data"`
}

type activeSourcesResponse struct {
	*QueryResult
	ActiveSources int            `json:"active_sources"`
	TotalSources  int            `json:"total_sources"`
	Limit         int            `json:"limit"`
	Sources       []ActiveSource `json:"sources"`
	Warnings      []string       `json:"warnings,omitempty"`
}

// Execute executes the tool
func (t *ActiveLogSourcesTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	limit, err := GetIntParam(arguments, "limit", false)
	if err != nil {
		return invalidArgument(err), nil
	}
	if limit <= 0 {
		limit = 100
	}
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}

	compiled, err := t.compile(ctx, query.AggregateIntent{GroupBy: "Log Source", Alias: sourceCountAlias}, opts)
	if err != nil {
		return HandleError(err, t.Name()), nil
	}
	result := newQueryResult(compiled)
	if opts.dryRun {
		result.DryRun = true
		return t.FormatResponse(result)
	}
	sources, counts, warnings, err := t.collectSources(ctx, compiled, opts)
	if err != nil {
		return HandleError(err, t.Name()), nil
	}
	if counts != nil {
		result.fill(counts)
	} else {
		result.Results = []map[string]interface{}{}
	}
	resp := activeSourcesResponse{
		QueryResult:  result,
		TotalSources: len(sources),
		Limit:        limit,
		Warnings:     warnings,
	}
	for _, s := range sources {
		if s.HasData {
			resp.ActiveSources++
		}
	}
	if len(sources) > limit {
		sources = sources[:limit]
	}
	resp.Sources = sources
	return t.FormatResponse(resp)
}

// collectSources runs the per-source count query alongside the source
// catalog listing and merges the two. A failed count query degrades to a
// warning; a failed listing is an error.
func (t *BaseTool) collectSources(ctx context.Context, compiled *query.CompiledQuery, opts queryOptions) ([]ActiveSource, *client.QueryResponse, []string, error) {
	if t.backend == nil {
		return nil, nil, nil, errNoBackend
	}

	var (
		counts   *client.QueryResponse
		catalog  *client.ListResponse
		warnings []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(sourceListLimit))
		if t.limits.CompartmentID != "" {
			params.Set("compartmentId", t.limits.CompartmentID)
		}
		var err error
		catalog, err = t.backend.List(gctx, "sources", params)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = t.execute(gctx, compiled.QueryString, compiled.TimeFilter, opts.maxCount)
		if err != nil {
			// Configured sources with zero counts are still an answer.
			t.logger.Warn("Failed to count events per log source", zap.Error(err))
			warnings = append(warnings, "could not retrieve log counts: "+err.Error())
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		recordCall(ctx, func(c *CallInfo) { c.Err = err })
		return nil, nil, nil, err
	}
	return mergeSources(counts, catalog), counts, warnings, nil
}

// mergeSources joins aggregate counts with the configured source catalog,
// matching on display name first and internal name second. The result is
// sorted by count descending, then name.
func mergeSources(counts *client.QueryResponse, catalog *client.ListResponse) []ActiveSource {
	byName := make(map[string]*ActiveSource)
	var order []*ActiveSource

	if catalog != nil {
		for _, item := range catalog.Items {
			name := stringField(item, "name")
			display := stringField(item, "displayName")
			key := display
			if key == "" {
				key = name
			}
			if key == "" {
				continue
			}
			src := &ActiveSource{Name: name, DisplayName: display}
			if entities, ok := item["entityTypes"].([]interface{}); ok {
				src.EntityTypes = len(entities)
			}
			if system, ok := item["isSystem"].(bool); ok {
				src.IsSystem = &system
			}
			if src.Name == "" {
				src.Name = display
			}
			byName[key] = src
			if name != "" && name != key {
				byName[name] = src
			}
			order = append(order, src)
		}
	}

	if counts != nil {
		for _, row := range counts.Items {
			name := stringField(row, "Log Source")
			if name == "" {
				continue
			}
			count := int64Field(row, sourceCountAlias)
			src, ok := byName[name]
			if !ok {
				src = &ActiveSource{Name: name, DisplayName: name}
				byName[name] = src
				order = append(order, src)
			}
			src.LogCount += count
			src.HasData = src.LogCount > 0
		}
	}

	out := make([]ActiveSource, len(order))
	for i, src := range order {
		out[i] = *src
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LogCount != out[j].LogCount {
			return out[i].LogCount > out[j].LogCount
		}
		return sourceLabel(out[i]) < sourceLabel(out[j])
	})
	return out
}

func sourceLabel(s ActiveSource) string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func int64Field(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}
