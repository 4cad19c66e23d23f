// Package prompts provides pre-built investigation prompts for OCI Logging Analytics.
//
// Each prompt walks the model through a sequence of this server's tools; none
// of them calls the backend itself.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/tareqmamari/logan-mcp-server/internal/mitre"
	"github.com/tareqmamari/logan-mcp-server/internal/query"
	"github.com/tareqmamari/logan-mcp-server/internal/timerange"
)

// PromptDefinition represents a prompt with its metadata and handler
type PromptDefinition struct {
	// Prompt is the MCP prompt metadata
	Prompt *mcp.Prompt
	// Handler is the function that generates the prompt content
	Handler mcp.PromptHandler
}

// Registry holds all registered prompts
type Registry struct {
	logger  *zap.Logger
	prompts []*PromptDefinition
}

// NewRegistry creates a new prompt registry with all available prompts
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		logger: logger,
	}
	r.registerPrompts()
	return r
}

// GetPrompts returns all registered prompt definitions
func (r *Registry) GetPrompts() []*PromptDefinition {
	return r.prompts
}

func (r *Registry) registerPrompts() {
	r.prompts = []*PromptDefinition{
		r.investigateErrorsPrompt(),
		r.securityIncidentPrompt(),
		r.mitreHuntPrompt(),
		r.userActivityPrompt(),
		r.exploreLogSourcesPrompt(),
		r.fixQueryPrompt(),
	}
}

// Helper to create a prompt result with user role
func createPromptResult(description, content string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role: "user",
				Content: &mcp.TextContent{
					Text: content,
				},
			},
		},
	}
}

// getStringArg safely extracts a string argument with a default value
func getStringArg(args map[string]string, key, defaultVal string) string {
	if val, ok := args[key]; ok && strings.TrimSpace(val) != "" {
		return strings.TrimSpace(val)
	}
	return defaultVal
}

// timeRangeArg reads time_range, replacing unknown tokens with def so the
// suggested tool calls stay valid.
func (r *Registry) timeRangeArg(args map[string]string, def string) string {
	token := getStringArg(args, "time_range", def)
	if !timerange.IsKnown(token) {
		r.logger.Debug("Unknown time_range in prompt arguments, using default",
			zap.String("time_range", token),
			zap.String("default", def),
		)
		return def
	}
	return token
}

func timeRangeArgument(example string) *mcp.PromptArgument {
	return &mcp.PromptArgument{
		Name:        "time_range",
		Description: fmt.Sprintf("Time range token such as 1h, 24h or 7d (default %s)", example),
	}
}

func (r *Registry) investigateErrorsPrompt() *PromptDefinition {
	return &PromptDefinition{
		Prompt: &mcp.Prompt{
			Name:        "investigate_errors",
			Title:       "Investigate Error Spikes",
			Description: "Find which sources and hosts produce errors and group them into recurring patterns",
			Arguments: []*mcp.PromptArgument{
				timeRangeArgument("1h"),
				{
					Name:        "log_source",
					Description: "Restrict the investigation to one log source",
				},
			},
		},
		Handler: func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			timeRange := r.timeRangeArg(req.Params.Arguments, "1h")
			filter := "Severity in ('error', 'critical', 'fatal')"
			if source := getStringArg(req.Params.Arguments, "log_source", ""); source != "" {
				filter = fmt.Sprintf("'Log Source' = %s and %s", query.QuoteValue(source), filter)
			}

			content := fmt.Sprintf(`Let's investigate errors logged in the last %[1]s.

1. Run list_active_log_sources with time_range "%[1]s" to see which sources are logging at all,
   and get_top_errors with the same time_range for the most frequent messages.
2. Run statistical_analysis with stat_type "stats", base_query "%[2]s",
   aggregations [{"function": "count"}] and group_by ["Log Source", "Host Name (Server)"].
3. For the noisiest source, run advanced_analytics with analytics_type "cluster" and the same base_query
   to collapse repeated messages into patterns.
4. Run get_log_trends with base_query "%[2]s" and interval "5m" to see when the spike started.
5. Pull sample records with execute_logan_query and max_count 50 for the top cluster.

Summarise the dominant error patterns, the hosts involved and when the spike began.`, timeRange, filter)

			return createPromptResult("Error spike investigation workflow", content), nil
		},
	}
}

func (r *Registry) securityIncidentPrompt() *PromptDefinition {
	return &PromptDefinition{
		Prompt: &mcp.Prompt{
			Name:        "investigate_security_incident",
			Title:       "Investigate Security Incident",
			Description: "Triage a suspected intrusion around a host, user or IP address",
			Arguments: []*mcp.PromptArgument{
				{
					Name:        "indicator",
					Description: "Host name, user name or IP address under suspicion",
					Required:    true,
				},
				timeRangeArgument("24h"),
			},
		},
		Handler: func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			indicator := getStringArg(req.Params.Arguments, "indicator", "")
			if indicator == "" {
				return nil, fmt.Errorf("indicator is required")
			}
			timeRange := r.timeRangeArg(req.Params.Arguments, "24h")

			content := fmt.Sprintf(`A security incident involving %[1]q is suspected. Investigate the last %[2]s:

1. Run get_threat_summary with time_range "%[2]s" for event counts per security check.
2. Run detect_failed_logins and detect_privilege_escalation with the same time_range, and
   search_security_events with a search_term for any other category the summary flags.
3. Run search_logs_by_pattern with pattern "%[1]s" and match_mode "contains" to collect every record
   that mentions the indicator, then build_incident_timeline with the same filter as search_query.
4. Run get_mitre_techniques with time_range "%[2]s" to see which ATT&CK techniques fired.
5. Run correlation_analysis with correlation_type "temporal", correlation_fields ["User Name", "Host Name (Server)"]
   and time_window "10m" to link related activity.
6. Check search results for "fallback": true; a fallback query matched on free text and may be broad.

Report a timeline, the techniques involved, affected accounts and hosts, and recommended containment steps.`,
				indicator, timeRange)

			return createPromptResult("Security incident triage workflow", content), nil
		},
	}
}

func (r *Registry) mitreHuntPrompt() *PromptDefinition {
	return &PromptDefinition{
		Prompt: &mcp.Prompt{
			Name:        "mitre_threat_hunt",
			Title:       "MITRE ATT&CK Threat Hunt",
			Description: "Hunt for one ATT&CK tactic across " + mitre.LogSource,
			Arguments: []*mcp.PromptArgument{
				{
					Name:        "category",
					Description: "ATT&CK tactic, e.g. " + strings.Join(mitre.CategoryNames()[:3], ", "),
				},
				timeRangeArgument("7d"),
			},
		},
		Handler: func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			category := mitre.NormalizeCategory(getStringArg(req.Params.Arguments, "category", "all"))
			timeRange := r.timeRangeArg(req.Params.Arguments, "7d")

			scope := "every annotated technique"
			if _, ok := mitre.LookupCategory(category); ok {
				scope = mitre.Title(category)
			} else if category != "all" {
				scope = fmt.Sprintf("every annotated technique (%q is not a known tactic; known: %s)",
					category, strings.Join(mitre.CategoryNames(), ", "))
				category = "all"
			}

			content := fmt.Sprintf(`Hunt for %[1]s over the last %[2]s.

1. Run get_mitre_techniques with category "%[3]s" and time_range "%[2]s".
2. Run statistical_analysis with stat_type "stats", base_query "'Log Source' = '%[4]s'",
   aggregations [{"function": "count"}] and group_by ["%[5]s", "Host Name (Server)"]
   to rank techniques by host.
3. For the most frequent technique ID, call get_mitre_techniques with technique_id set to it
   and inspect the command lines and parent processes.
4. Use correlation_analysis with correlation_type "entity_based" on ["Host Name (Server)"] to find hosts
   showing several techniques.

Summarise which techniques are present, on which hosts, and whether they look like a coordinated chain.`,
				scope, timeRange, category, mitre.LogSource, mitre.TechniqueField)

			return createPromptResult("MITRE ATT&CK threat hunting workflow", content), nil
		},
	}
}

func (r *Registry) userActivityPrompt() *PromptDefinition {
	return &PromptDefinition{
		Prompt: &mcp.Prompt{
			Name:        "analyze_user_activity",
			Title:       "Analyze User Activity",
			Description: "Reconstruct what one account did and flag anomalies",
			Arguments: []*mcp.PromptArgument{
				{
					Name:        "user",
					Description: "User name as it appears in the 'User Name' field",
					Required:    true,
				},
				timeRangeArgument("24h"),
			},
		},
		Handler: func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			user := getStringArg(req.Params.Arguments, "user", "")
			if user == "" {
				return nil, fmt.Errorf("user is required")
			}
			timeRange := r.timeRangeArg(req.Params.Arguments, "24h")

			content := fmt.Sprintf(`Review the activity of user %[1]q over the last %[2]s.

1. Run search_logs_by_pattern with pattern "%[1]s", match_mode "exact" and fields ["User Name"].
2. Run statistical_analysis with stat_type "timestats", interval "1h" and the same filter to find bursts.
3. Run statistical_analysis with stat_type "top" and field "Event Name" to see the most frequent actions.
4. Run search_security_events with search_term "failed logins" and check whether this user appears.
5. Run advanced_analytics with analytics_type "outlier" on "Event Name" to flag unusual actions.

Describe normal behaviour first, then anything that deviates from it.`, user, timeRange)

			return createPromptResult("User activity review workflow", content), nil
		},
	}
}

func (r *Registry) exploreLogSourcesPrompt() *PromptDefinition {
	return &PromptDefinition{
		Prompt: &mcp.Prompt{
			Name:        "explore_log_sources",
			Title:       "Explore Log Sources",
			Description: "Map what data the namespace holds before writing queries",
			Arguments: []*mcp.PromptArgument{
				timeRangeArgument("24h"),
			},
		},
		Handler: func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			timeRange := r.timeRangeArg(req.Params.Arguments, "24h")

			content := fmt.Sprintf(`Build a map of the data available in this namespace.

1. Run check_connection to confirm the backend is reachable.
2. Run get_namespace_info for the namespace and its onboarding state.
3. Run list_active_log_sources with time_range "%[1]s" for sources that actually produced records.
4. Run list_log_sources with is_system "CUSTOM" for the sources defined by this tenancy.
5. Run list_log_fields for the fields you can filter and group on; quote names containing spaces.
6. Run list_entities to see which hosts and services the logs belong to.

Present the active sources with record counts and the most useful fields for each.`, timeRange)

			return createPromptResult("Log source exploration workflow", content), nil
		},
	}
}

func (r *Registry) fixQueryPrompt() *PromptDefinition {
	return &PromptDefinition{
		Prompt: &mcp.Prompt{
			Name:        "fix_query",
			Title:       "Fix a Failing Query",
			Description: "Diagnose and repair a query the backend rejects",
			Arguments: []*mcp.PromptArgument{
				{
					Name:        "query",
					Description: "The query that fails",
					Required:    true,
				},
			},
		},
		Handler: func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			q := getStringArg(req.Params.Arguments, "query", "")
			if q == "" {
				return nil, fmt.Errorf("query is required")
			}

			content := fmt.Sprintf("This query fails:\n\n```\n%s\n```\n\n", q) + `1. Run validate_query with the query and fix true. Apply the fixed query it returns.
2. If findings remain, read them in order; each names the rule that failed.
3. Run parse_query on the fixed query to confirm the backend accepts its structure.
4. If the query is still wrong, run get_working_query_examples for a similar working query,
   or suggest_query to complete a partial one.
5. Run execute_logan_query with dry_run true to see the final compiled query and its time placement.

Return the corrected query and explain each change.`

			return createPromptResult("Query repair workflow", content), nil
		},
	}
}
