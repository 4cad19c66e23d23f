// Package resources provides MCP resource handlers for the Logging Analytics server.
// Resources expose read-only reference data and server status to MCP clients.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/tareqmamari/logan-mcp-server/internal/audit"
	"github.com/tareqmamari/logan-mcp-server/internal/config"
	"github.com/tareqmamari/logan-mcp-server/internal/metrics"
	"github.com/tareqmamari/logan-mcp-server/internal/mitre"
	"github.com/tareqmamari/logan-mcp-server/internal/query"
	"github.com/tareqmamari/logan-mcp-server/internal/timerange"
)

// Resource URIs.
const (
	TimeRangesURI      = "logan://reference/time-ranges"
	MitreCategoriesURI = "logan://reference/mitre-categories"
	QueryRulesURI      = "logan://reference/query-rules"
	ExamplesURI        = "logan://reference/examples"
	ConfigURI          = "config://current"
	MetricsURI         = "metrics://server"

	examplesTemplatePrefix = "logan://reference/examples/"
	mitreTemplatePrefix    = "logan://reference/mitre-categories/"
)

const jsonMIME = "application/json"

// Registry holds all registered resources and their handlers
type Registry struct {
	config  *config.Config
	metrics *metrics.Metrics
	audit   *audit.Logger
	logger  *zap.Logger
	version string
}

// NewRegistry creates a new resource registry. metrics and auditLog may be nil;
// the status resources then report empty statistics.
func NewRegistry(cfg *config.Config, m *metrics.Metrics, auditLog *audit.Logger, logger *zap.Logger, version string) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		config:  cfg,
		metrics: m,
		audit:   auditLog,
		logger:  logger,
		version: version,
	}
}

// RegisteredResource represents a resource with its definition and handler
type RegisteredResource struct {
	Resource *mcp.Resource
	Handler  mcp.ResourceHandler
}

// GetResources returns all registered resources with their handlers
func (r *Registry) GetResources() []RegisteredResource {
	return []RegisteredResource{
		r.static(TimeRangesURI, "Time Range Tokens",
			"Accepted time_range tokens, their length in minutes and display labels", timeRanges),
		r.static(MitreCategoriesURI, "MITRE ATT&CK Categories",
			"Tactic categories and technique IDs searched by get_mitre_techniques", mitreCatalog),
		r.static(QueryRulesURI, "Query Syntax Rules",
			"Validator rules in evaluation order and the auto-fix rules applied by fix=true", queryRules),
		r.static(ExamplesURI, "Working Query Examples",
			"Queries the backend accepts as written, grouped by category, with syntax tips", examples),
		r.static(ConfigURI, "Server Configuration",
			"Current server configuration with credentials masked", r.configData),
		r.static(MetricsURI, "Server Metrics",
			"Request, compilation and tool statistics since start", r.metricsData),
	}
}

// static builds a JSON resource whose body is produced by data on every read.
func (r *Registry) static(uri, title, description string, data func() interface{}) RegisteredResource {
	return RegisteredResource{
		Resource: &mcp.Resource{
			URI:         uri,
			Name:        uri,
			Title:       title,
			Description: description,
			MIMEType:    jsonMIME,
		},
		Handler: func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return r.jsonResult(uri, data())
		},
	}
}

func (r *Registry) jsonResult(uri string, data interface{}) (*mcp.ReadResourceResult, error) {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		r.logger.Error("Failed to marshal resource", zap.String("uri", uri), zap.Error(err))
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: jsonMIME,
				Text:     string(content),
			},
		},
	}, nil
}

type tokenInfo struct {
	Token   string `json:"token"`
	Minutes int    `json:"minutes"`
	Label   string `json:"label"`
}

func timeRanges() interface{} {
	tokens := timerange.Tokens()
	out := make([]tokenInfo, len(tokens))
	for i, tok := range tokens {
		m := timerange.Minutes(tok)
		out[i] = tokenInfo{Token: tok, Minutes: m, Label: timerange.Describe(m)}
	}
	return map[string]interface{}{
		"default":             timerange.DefaultToken,
		"max_minutes":         timerange.MaxMinutes,
		"tokens":              out,
		"unknown_token_rule":  "unrecognised tokens resolve to the default window",
		"time_filter_example": timerange.TimeFilter{TimeStart: "2025-03-14T08:26:53.589Z", TimeEnd: "2025-03-14T09:26:53.589Z", TimeZone: "UTC"},
	}
}

func mitreCatalog() interface{} {
	return map[string]interface{}{
		"log_source":      mitre.LogSource,
		"technique_field": mitre.TechniqueField,
		"categories":      mitre.Categories(),
	}
}

type fixRuleDoc struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func queryRules() interface{} {
	fixes := make([]fixRuleDoc, len(query.FixRules))
	for i, f := range query.FixRules {
		fixes[i] = fixRuleDoc{Name: f.Name, Description: f.Description}
	}
	return map[string]interface{}{
		"validation_rules":  query.ValidationRules,
		"fix_rules":         fixes,
		"multi_word_fields": query.MultiWordFields,
	}
}

func examples() interface{} {
	return map[string]interface{}{
		"examples": query.ExamplesByCategory(),
		"tips":     query.Tips,
	}
}

func (r *Registry) configData() interface{} {
	if r.config == nil {
		return map[string]interface{}{"server_version": r.version}
	}
	return map[string]interface{}{
		"server_version": r.version,
		"config":         r.config.Redact(),
	}
}

func (r *Registry) metricsData() interface{} {
	data := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if r.metrics != nil {
		stats := r.metrics.GetStats()
		data["requests"] = map[string]interface{}{
			"total":      stats.TotalRequests,
			"successful": stats.SuccessfulRequests,
			"failed":     stats.FailedRequests,
			"retried":    stats.RetriedRequests,
		}
		data["rate_limiting"] = map[string]interface{}{"hits": stats.RateLimitHits}
		data["latency"] = map[string]interface{}{
			"average_ms": stats.AverageLatency.Milliseconds(),
			"max_ms":     stats.MaxLatency.Milliseconds(),
			"min_ms":     stats.MinLatency.Milliseconds(),
		}
		data["errors_by_status"] = stats.ErrorsByStatus
		data["compilation"] = map[string]interface{}{"fallbacks": stats.Fallbacks}
		data["tools"] = map[string]interface{}{
			"usage":   stats.ToolUsage,
			"errors":  stats.ToolErrors,
			"latency": formatToolLatency(stats.ToolLatency),
		}
	}
	if r.audit != nil && r.audit.IsEnabled() {
		data["audit"] = r.audit.GetStats()
	}
	return data
}

// formatToolLatency converts tool latencies to milliseconds for JSON output
func formatToolLatency(latency map[string]time.Duration) map[string]int64 {
	result := make(map[string]int64, len(latency))
	for tool, d := range latency {
		result[tool] = d.Milliseconds()
	}
	return result
}

// GetResourceTemplates returns the parameterised reference resources.
func (r *Registry) GetResourceTemplates() []mcp.ResourceTemplate {
	return []mcp.ResourceTemplate{
		{
			URITemplate: examplesTemplatePrefix + "{category}",
			Name:        "query-examples-by-category",
			Title:       "Query Examples by Category",
			Description: "Working queries of one category, e.g. " + examplesTemplatePrefix + "security",
			MIMEType:    jsonMIME,
		},
		{
			URITemplate: mitreTemplatePrefix + "{category}",
			Name:        "mitre-category",
			Title:       "MITRE ATT&CK Category",
			Description: "Technique IDs and the base filter of one tactic, e.g. " + mitreTemplatePrefix + "credential_access",
			MIMEType:    jsonMIME,
		},
	}
}

// GetTemplateHandler returns the handler for every resource template. Unknown
// names yield an error document listing the accepted values.
func (r *Registry) GetTemplateHandler() mcp.ResourceHandler {
	return func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := req.Params.URI

		var content map[string]interface{}
		switch {
		case strings.HasPrefix(uri, examplesTemplatePrefix):
			content = exampleCategory(strings.TrimPrefix(uri, examplesTemplatePrefix))
		case strings.HasPrefix(uri, mitreTemplatePrefix):
			content = mitreCategory(strings.TrimPrefix(uri, mitreTemplatePrefix))
		default:
			content = map[string]interface{}{
				"error": "Unknown template type",
				"available_templates": []string{
					examplesTemplatePrefix + "{category}",
					mitreTemplatePrefix + "{category}",
				},
			}
		}
		return r.jsonResult(uri, content)
	}
}

func exampleCategory(category string) map[string]interface{} {
	byCategory := query.ExamplesByCategory()
	if list, ok := byCategory[category]; ok {
		return map[string]interface{}{"category": category, "examples": list}
	}
	available := make([]string, 0, len(byCategory))
	for name := range byCategory {
		available = append(available, name)
	}
	sort.Strings(available)
	return map[string]interface{}{
		"error":     fmt.Sprintf("unknown example category %s", category),
		"available": available,
	}
}

func mitreCategory(name string) map[string]interface{} {
	filter, ok := mitre.LookupCategory(name)
	if ok {
		normalized := mitre.NormalizeCategory(name)
		for _, c := range mitre.Categories() {
			if c.Name == normalized {
				return map[string]interface{}{"category": c, "base_filter": filter}
			}
		}
	}
	return map[string]interface{}{
		"error":     fmt.Sprintf("unknown MITRE category %s", name),
		"available": mitre.CategoryNames(),
	}
}
