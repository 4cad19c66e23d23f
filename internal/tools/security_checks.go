package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tareqmamari/logan-mcp-server/internal/query"
)

// Threat severities attached to security checks.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityInfo     = "info"
)

const (
	eventCountAlias   = "event_count"
	attemptsAlias     = "attempts"
	summaryConcurrent = 4
	topSourcesShown   = 10
)

// securityCheck annotates one search catalog category with triage advice.
type securityCheck struct {
	Name            string
	Description     string
	Severity        string
	Recommendations []string
}

// securityChecks follows the order of query.SearchCatalog. Checks with info
// severity are context, not threats, and stay out of the threat summary.
var securityChecks = []securityCheck{
	{
		Name:        "failed_logins",
		Description: "Failed authentication attempts",
		Severity:    SeverityHigh,
		Recommendations: []string{
			"Review failed login patterns for brute force attempts",
			"Consider account lockout policies",
			"Enable multi-factor authentication",
			"Check source IP addresses against known bad actors",
		},
	},
	{
		Name:        "privilege_escalation",
		Description: "Role assumptions, group additions and sudo use",
		Severity:    SeverityCritical,
		Recommendations: []string{
			"Audit every privilege escalation event",
			"Review sudo and su usage",
			"Apply least-privilege policies",
			"Watch for unauthorized role assumptions",
		},
	},
	{
		Name:        "user_management",
		Description: "User creation, deletion and group membership changes",
		Severity:    SeverityMedium,
		Recommendations: []string{
			"Verify user changes were authorized",
			"Review privileged user accounts",
			"Schedule user access reviews",
		},
	},
	{
		Name:        "port_scan",
		Description: "Dropped or rejected VCN flows",
		Severity:    SeverityMedium,
		Recommendations: []string{
			"Block scanning source IPs",
			"Review exposed ports and services",
			"Rate limit inbound connections",
		},
	},
	{
		Name:        "malware",
		Description: "Log entries mentioning malware, ransomware or threats",
		Severity:    SeverityCritical,
		Recommendations: []string{
			"Isolate affected hosts",
			"Correlate with endpoint detections",
			"Follow the incident response runbook",
		},
	},
	{
		Name:        "cloud_guard",
		Description: "Cloud Guard problems",
		Severity:    SeverityHigh,
		Recommendations: []string{
			"Review Cloud Guard findings, critical first",
			"Configure Cloud Guard responders",
			"Follow the remediation guidance of each problem",
		},
	},
	{
		Name:        "authentication",
		Description: "Console and API sign-in activity",
		Severity:    SeverityInfo,
	},
	{
		Name:        "network",
		Description: "All VCN flow log traffic",
		Severity:    SeverityInfo,
	},
	{
		Name:        "audit",
		Description: "OCI audit events, including configuration changes",
		Severity:    SeverityMedium,
		Recommendations: []string{
			"Review configuration changes",
			"Verify changes were authorized",
			"Route changes through change management",
		},
	},
	{
		Name:        "errors",
		Description: "Events with error, critical or fatal severity",
		Severity:    SeverityInfo,
	},
}

var defaultRecommendations = []string{
	"Review the detected events",
	"Investigate the root cause",
	"Put appropriate controls in place",
}

func lookupSecurityCheck(name string) (securityCheck, bool) {
	key := strings.ToLower(strings.NewReplacer(" ", "_", "-", "_").Replace(strings.TrimSpace(name)))
	for _, c := range securityChecks {
		if c.Name == key {
			return c, true
		}
	}
	return securityCheck{}, false
}

func (c securityCheck) recommendations() []string {
	if len(c.Recommendations) == 0 {
		return defaultRecommendations
	}
	return c.Recommendations
}

func securityCheckNames() []string {
	names := make([]string, len(securityChecks))
	for i, c := range securityChecks {
		names[i] = c.Name
	}
	return names
}

func unknownCheck(name string) *mcp.CallToolResult {
	return NewToolResultErrorWithSuggestion("unknown check type "+name,
		"Use one of: "+strings.Join(securityCheckNames(), ", "))
}

// countIntent counts the events of one check, optionally per field.
func countIntent(check, alias, groupBy string) query.SearchIntent {
	stage := "stats count as " + alias
	if groupBy != "" {
		stage += " by " + query.QuoteField(groupBy)
	}
	return query.SearchIntent{EventType: check, BaseQuery: "* | " + stage}
}

func firstCount(r *QueryResult, alias string) int64 {
	if r == nil || len(r.Results) == 0 {
		return 0
	}
	return int64Field(r.Results[0], alias)
}

// ListSecurityChecksTool lists the security checks run_security_check accepts.
type ListSecurityChecksTool struct {
	*BaseTool
}

// NewListSecurityChecksTool creates a new tool instance
func NewListSecurityChecksTool(d Deps) *ListSecurityChecksTool {
	return &ListSecurityChecksTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *ListSecurityChecksTool) Name() string {
	return "list_security_check_types"
}

// Annotations returns tool hints for LLMs
func (t *ListSecurityChecksTool) Annotations() *mcp.ToolAnnotations {
	return OfflineAnnotations("List Security Check Types")
}

// DefaultTimeout returns 0; the catalog is static.
func (t *ListSecurityChecksTool) DefaultTimeout() time.Duration {
	return 0
}

// Description returns the tool description
func (t *ListSecurityChecksTool) Description() string {
	return "List the security checks with their severity, the filter each one runs and the keywords that select it."
}

// InputSchema returns the input schema
func (t *ListSecurityChecksTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// CheckType is one row of list_security_check_types.
type CheckType struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	Filter      string   `json:"filter"`
	Keywords    []string `json:"keywords"`
}

// Execute executes the tool
func (t *ListSecurityChecksTool) Execute(context.Context, map[string]interface{}) (*mcp.CallToolResult, error) {
	byName := make(map[string]query.SearchCategory, len(query.SearchCatalog))
	for _, c := range query.SearchCatalog {
		byName[c.Name] = c
	}
	types := make([]CheckType, 0, len(securityChecks))
	for _, c := range securityChecks {
		cat := byName[c.Name]
		types = append(types, CheckType{
			Type:        c.Name,
			Description: c.Description,
			Severity:    c.Severity,
			Filter:      cat.Filter,
			Keywords:    cat.Keywords,
		})
	}
	return t.FormatResponse(map[string]interface{}{
		"check_types": types,
		"total":       len(types),
	})
}

// SecurityCheckTool runs one named security check.
type SecurityCheckTool struct {
	*BaseTool
}

// NewSecurityCheckTool creates a new tool instance
func NewSecurityCheckTool(d Deps) *SecurityCheckTool {
	return &SecurityCheckTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *SecurityCheckTool) Name() string {
	return "run_security_check"
}

// Annotations returns tool hints for LLMs
func (t *SecurityCheckTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Run Security Check")
}

// Description returns the tool description
func (t *SecurityCheckTool) Description() string {
	return `Run one security check and return the matching events with the check's severity and recommendations.

Use list_security_check_types for the available checks. Unlike search_security_events, an unknown
check_type is an error rather than a full-text fallback.`
}

// InputSchema returns the input schema
func (t *SecurityCheckTool) InputSchema() interface{} {
	return t.querySchema(map[string]interface{}{
		"check_type": map[string]interface{}{
			"type":        "string",
			"description": "Security check to run.",
			"enum":        securityCheckNames(),
		},
	}, "check_type")
}

type securityCheckResponse struct {
	*QueryResult
	CheckType       string   `json:"check_type"`
	Description     string   `json:"description"`
	Severity        string   `json:"severity"`
	Recommendations []string `json:"recommendations"`
}

// Execute executes the tool
func (t *SecurityCheckTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	name, err := GetStringParam(arguments, "check_type", true)
	if err != nil {
		return invalidArgument(err), nil
	}
	check, ok := lookupSecurityCheck(name)
	if !ok {
		return unknownCheck(name), nil
	}
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}

	result, err := t.runQuery(ctx, query.SearchIntent{EventType: check.Name}, opts)
	if err != nil {
		return HandleError(err, t.Name()), nil
	}
	return t.FormatResponse(securityCheckResponse{
		QueryResult:     result,
		CheckType:       check.Name,
		Description:     check.Description,
		Severity:        check.Severity,
		Recommendations: check.recommendations(),
	})
}

// ThreatSummaryTool counts events for every threat check in one window.
type ThreatSummaryTool struct {
	*BaseTool
}

// NewThreatSummaryTool creates a new tool instance
func NewThreatSummaryTool(d Deps) *ThreatSummaryTool {
	return &ThreatSummaryTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *ThreatSummaryTool) Name() string {
	return "get_threat_summary"
}

// Annotations returns tool hints for LLMs
func (t *ThreatSummaryTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Threat Summary")
}

// Description returns the tool description
func (t *ThreatSummaryTool) Description() string {
	return `Summarize security threats: event counts per check and per severity, and the busiest log sources.

Runs one count query per threat check (checks with info severity are skipped). A check whose query
fails is reported under warnings and counted as zero.`
}

// InputSchema returns the input schema
func (t *ThreatSummaryTool) InputSchema() interface{} {
	return t.querySchema(map[string]interface{}{})
}

// SourceCount is an event count for one log source.
type SourceCount struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

type threatSummaryResponse struct {
	TimePeriod  string            `json:"time_period"`
	TotalEvents int64             `json:"total_events"`
	BySeverity  map[string]int64  `json:"by_severity"`
	ByType      map[string]int64  `json:"by_type"`
	TopSources  []SourceCount     `json:"top_sources"`
	Queries     map[string]string `json:"queries"`
	DryRun      bool              `json:"dry_run,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// Execute executes the tool
func (t *ThreatSummaryTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}
	if !opts.dryRun && t.backend == nil {
		return HandleError(errNoBackend, t.Name()), nil
	}

	resp := threatSummaryResponse{
		TimePeriod: opts.window.Label,
		BySeverity: map[string]int64{},
		ByType:     map[string]int64{},
		Queries:    map[string]string{},
		DryRun:     opts.dryRun,
	}
	bySource := map[string]int64{}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summaryConcurrent)
	for _, check := range securityChecks {
		if check.Severity == SeverityInfo {
			continue
		}
		g.Go(func() error {
			result, err := t.runQuery(gctx, countIntent(check.Name, eventCountAlias, "Log Source"), opts)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// One failing check should not hide the others.
				t.logger.Warn("Threat check failed", zap.String("check", check.Name), zap.Error(err))
				resp.Warnings = append(resp.Warnings, fmt.Sprintf("%s: %v", check.Name, err))
				resp.ByType[check.Name] = 0
				return nil
			}
			resp.Queries[check.Name] = result.Query
			var total int64
			for _, row := range result.Results {
				n := int64Field(row, eventCountAlias)
				total += n
				if src := stringField(row, "Log Source"); src != "" {
					bySource[src] += n
				}
			}
			resp.ByType[check.Name] = total
			resp.BySeverity[check.Severity] += total
			resp.TotalEvents += total
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(resp.Warnings)

	resp.TopSources = rankSources(bySource, topSourcesShown)
	return t.FormatResponse(resp)
}

// rankSources orders counts descending, then by name, keeping at most n.
func rankSources(counts map[string]int64, n int) []SourceCount {
	out := make([]SourceCount, 0, len(counts))
	for src, c := range counts {
		out = append(out, SourceCount{Source: src, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Source < out[j].Source
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// FailedLoginsTool groups failed logins by source IP and flags heavy hitters.
type FailedLoginsTool struct {
	*BaseTool
}

// NewFailedLoginsTool creates a new tool instance
func NewFailedLoginsTool(d Deps) *FailedLoginsTool {
	return &FailedLoginsTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *FailedLoginsTool) Name() string {
	return "detect_failed_logins"
}

// Annotations returns tool hints for LLMs
func (t *FailedLoginsTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Detect Failed Logins")
}

// Description returns the tool description
func (t *FailedLoginsTool) Description() string {
	return "Count failed logins per source IP and flag every IP with at least threshold attempts."
}

// InputSchema returns the input schema
func (t *FailedLoginsTool) InputSchema() interface{} {
	return t.querySchema(map[string]interface{}{
		"threshold": map[string]interface{}{
			"type":        "integer",
			"description": "Minimum attempts for an IP to be flagged.",
			"minimum":     1,
			"maximum":     1000,
			"default":     5,
		},
	})
}

// FlaggedIP is a source IP at or over the attempt threshold.
type FlaggedIP struct {
	IP       string `json:"ip"`
	Attempts int64  `json:"attempts"`
}

type failedLoginSummary struct {
	TotalFailedLogins int64       `json:"total_failed_logins"`
	UniqueSourceIPs   int         `json:"unique_source_ips"`
	FlaggedIPs        []FlaggedIP `json:"flagged_ips"`
	Threshold         int         `json:"threshold"`
	Severity          string      `json:"severity"`
	Recommendations   []string    `json:"recommendations,omitempty"`
}

type failedLoginsResponse struct {
	*QueryResult
	failedLoginSummary
}

func failedLoginsIntent() query.SearchIntent {
	in := countIntent("failed_logins", attemptsAlias, "Source IP")
	in.BaseQuery += " | sort -" + attemptsAlias
	return in
}

// summarizeFailedLogins folds per-IP rows into totals and flagged IPs.
func summarizeFailedLogins(rows []map[string]interface{}, threshold int) failedLoginSummary {
	s := failedLoginSummary{Threshold: threshold, FlaggedIPs: []FlaggedIP{}, Severity: SeverityLow}
	for _, row := range rows {
		n := int64Field(row, attemptsAlias)
		s.TotalFailedLogins += n
		s.UniqueSourceIPs++
		if n >= int64(threshold) {
			ip := stringField(row, "Source IP")
			if ip == "" {
				ip = "unknown"
			}
			s.FlaggedIPs = append(s.FlaggedIPs, FlaggedIP{IP: ip, Attempts: n})
		}
	}
	sort.SliceStable(s.FlaggedIPs, func(i, j int) bool {
		return s.FlaggedIPs[i].Attempts > s.FlaggedIPs[j].Attempts
	})
	if len(s.FlaggedIPs) > 0 {
		s.Severity = SeverityHigh
		check, _ := lookupSecurityCheck("failed_logins")
		s.Recommendations = check.recommendations()
	}
	return s
}

// Execute executes the tool
func (t *FailedLoginsTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	threshold, err := GetIntParam(arguments, "threshold", false)
	if err != nil {
		return invalidArgument(err), nil
	}
	if threshold == 0 {
		threshold = 5
	}
	if threshold < 1 || threshold > 1000 {
		return invalidArgument(fmt.Errorf("threshold must be between 1 and 1000")), nil
	}
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}

	result, err := t.runQuery(ctx, failedLoginsIntent(), opts)
	if err != nil {
		return HandleError(err, t.Name()), nil
	}
	return t.FormatResponse(failedLoginsResponse{
		QueryResult:        result,
		failedLoginSummary: summarizeFailedLogins(result.Results, threshold),
	})
}

// PrivilegeEscalationTool classifies privilege escalation events.
type PrivilegeEscalationTool struct {
	*BaseTool
}

// NewPrivilegeEscalationTool creates a new tool instance
func NewPrivilegeEscalationTool(d Deps) *PrivilegeEscalationTool {
	return &PrivilegeEscalationTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *PrivilegeEscalationTool) Name() string {
	return "detect_privilege_escalation"
}

// Annotations returns tool hints for LLMs
func (t *PrivilegeEscalationTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Detect Privilege Escalation")
}

// Description returns the tool description
func (t *PrivilegeEscalationTool) Description() string {
	return "Find privilege escalation events and count them as sudo, su, role assumption or group change."
}

// InputSchema returns the input schema
func (t *PrivilegeEscalationTool) InputSchema() interface{} {
	return t.querySchema(map[string]interface{}{})
}

type escalationSummary struct {
	TotalEvents          int      `json:"total_events"`
	SudoEvents           int      `json:"sudo_events"`
	SuEvents             int      `json:"su_events"`
	RoleAssumptionEvents int      `json:"role_assumption_events"`
	GroupChangeEvents    int      `json:"group_change_events"`
	Severity             string   `json:"severity"`
	Recommendations      []string `json:"recommendations"`
}

type escalationResponse struct {
	*QueryResult
	escalationSummary
}

// classifyEscalations counts rows by the kind of escalation their text shows.
// A row may fall in more than one bucket.
func classifyEscalations(rows []map[string]interface{}) escalationSummary {
	check, _ := lookupSecurityCheck("privilege_escalation")
	s := escalationSummary{TotalEvents: len(rows), Severity: SeverityInfo, Recommendations: check.recommendations()}
	for _, row := range rows {
		text := strings.ToLower(strings.Join([]string{
			stringField(row, "Log Entry"),
			stringField(row, "Message"),
			stringField(row, "Event Name"),
		}, " "))
		if strings.Contains(text, "sudo") {
			s.SudoEvents++
		}
		if strings.Contains(text, "su:") {
			s.SuEvents++
		}
		if strings.Contains(text, "assumerole") || strings.Contains(text, "assume role") {
			s.RoleAssumptionEvents++
		}
		if strings.Contains(text, "addusertogroup") {
			s.GroupChangeEvents++
		}
	}
	if s.TotalEvents > 0 {
		s.Severity = SeverityCritical
	}
	return s
}

// Execute executes the tool
func (t *PrivilegeEscalationTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}
	result, err := t.runQuery(ctx, query.SearchIntent{EventType: "privilege_escalation"}, opts)
	if err != nil {
		return HandleError(err, t.Name()), nil
	}
	return t.FormatResponse(escalationResponse{
		QueryResult:       result,
		escalationSummary: classifyEscalations(result.Results),
	})
}

// Compliance statuses.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusWarning = "warning"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

const (
	complianceTimeRange      = "24h"
	complianceLoginThreshold = 10
	complianceNetworkLimit   = 10
)

// ComplianceStatus is the outcome of one compliance control.
type ComplianceStatus struct {
	CheckName     string `json:"check_name"`
	Status        string `json:"status"`
	Details       string `json:"details"`
	FindingsCount int64  `json:"findings_count"`
	Query         string `json:"query,omitempty"`
}

// complianceControl turns one query result into a status.
type complianceControl struct {
	name   string
	intent query.SearchIntent
	judge  func(r *QueryResult) ComplianceStatus
}

var complianceControls = []complianceControl{
	{
		name:   "Authentication Security",
		intent: failedLoginsIntent(),
		judge: func(r *QueryResult) ComplianceStatus {
			s := summarizeFailedLogins(r.Results, complianceLoginThreshold)
			st := ComplianceStatus{Status: StatusPassed, FindingsCount: int64(len(s.FlaggedIPs))}
			if len(s.FlaggedIPs) > 0 {
				st.Status = StatusFailed
			}
			st.Details = fmt.Sprintf("%d IPs with at least %d failed attempts", len(s.FlaggedIPs), complianceLoginThreshold)
			return st
		},
	},
	{
		name:   "Privilege Management",
		intent: countIntent("privilege_escalation", eventCountAlias, ""),
		judge: func(r *QueryResult) ComplianceStatus {
			n := firstCount(r, eventCountAlias)
			st := ComplianceStatus{Status: StatusPassed, FindingsCount: n}
			if n > 0 {
				st.Status = StatusWarning
			}
			st.Details = fmt.Sprintf("%d privilege escalation events", n)
			return st
		},
	},
	{
		name:   "Network Security",
		intent: countIntent("port_scan", eventCountAlias, ""),
		judge: func(r *QueryResult) ComplianceStatus {
			n := firstCount(r, eventCountAlias)
			st := ComplianceStatus{Status: StatusPassed, FindingsCount: n}
			if n > complianceNetworkLimit {
				st.Status = StatusWarning
			}
			st.Details = fmt.Sprintf("%d dropped or rejected flows", n)
			return st
		},
	},
	{
		name:   "Audit Logging",
		intent: countIntent("audit", eventCountAlias, ""),
		judge: func(r *QueryResult) ComplianceStatus {
			n := firstCount(r, eventCountAlias)
			// No audit events at all means audit logging is not reaching us.
			st := ComplianceStatus{Status: StatusWarning, FindingsCount: n}
			if n > 0 {
				st.Status = StatusPassed
			}
			st.Details = fmt.Sprintf("%d audit events captured", n)
			return st
		},
	},
}

// ComplianceCheckTool evaluates a fixed set of security controls.
type ComplianceCheckTool struct {
	*BaseTool
}

// NewComplianceCheckTool creates a new tool instance
func NewComplianceCheckTool(d Deps) *ComplianceCheckTool {
	return &ComplianceCheckTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *ComplianceCheckTool) Name() string {
	return "run_compliance_check"
}

// Annotations returns tool hints for LLMs
func (t *ComplianceCheckTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Compliance Check")
}

// Description returns the tool description
func (t *ComplianceCheckTool) Description() string {
	return `Evaluate authentication, privilege, network and audit controls. The window defaults to 24h.

- Authentication Security fails when any IP has at least 10 failed logins
- Privilege Management warns on any privilege escalation
- Network Security warns on more than 10 dropped or rejected flows
- Audit Logging warns when no audit events arrived`
}

// InputSchema returns the input schema
func (t *ComplianceCheckTool) InputSchema() interface{} {
	schema := t.querySchema(map[string]interface{}{})
	props := schema["properties"].(map[string]interface{})
	props["time_range"].(map[string]interface{})["default"] = complianceTimeRange
	return schema
}

type complianceResponse struct {
	TimePeriod string             `json:"time_period"`
	CheckedAt  time.Time          `json:"checked_at"`
	Checks     []ComplianceStatus `json:"checks"`
	Passed     int                `json:"passed"`
	Failed     int                `json:"failed"`
	Warnings   int                `json:"warnings"`
	Errors     int                `json:"errors,omitempty"`
	DryRun     bool               `json:"dry_run,omitempty"`
}

// Execute executes the tool
func (t *ComplianceCheckTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}
	_, hasToken := arguments["time_range"]
	_, hasMinutes := arguments["time_range_minutes"]
	if !hasToken && !hasMinutes {
		opts.window = t.resolver.Resolve(complianceTimeRange)
	}
	if !opts.dryRun && t.backend == nil {
		return HandleError(errNoBackend, t.Name()), nil
	}

	checks := make([]ComplianceStatus, len(complianceControls))
	g, gctx := errgroup.WithContext(ctx)
	for i, control := range complianceControls {
		g.Go(func() error {
			result, err := t.runQuery(gctx, control.intent, opts)
			switch {
			case err != nil:
				t.logger.Warn("Compliance control failed", zap.String("control", control.name), zap.Error(err))
				checks[i] = ComplianceStatus{Status: StatusError, Details: err.Error()}
			case result.DryRun:
				checks[i] = ComplianceStatus{Status: StatusSkipped, Details: "dry run"}
			default:
				checks[i] = control.judge(result)
			}
			checks[i].CheckName = control.name
			if result != nil {
				checks[i].Query = result.Query
			}
			return nil
		})
	}
	_ = g.Wait()

	resp := complianceResponse{
		TimePeriod: opts.window.Label,
		CheckedAt:  opts.window.End,
		Checks:     checks,
		DryRun:     opts.dryRun,
	}
	for _, c := range checks {
		switch c.Status {
		case StatusPassed:
			resp.Passed++
		case StatusFailed:
			resp.Failed++
		case StatusWarning:
			resp.Warnings++
		case StatusError:
			resp.Errors++
		}
	}
	return t.FormatResponse(resp)
}
