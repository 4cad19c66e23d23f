package tools

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tareqmamari/logan-mcp-server/internal/client"
	"github.com/tareqmamari/logan-mcp-server/internal/query"
)

func queryRows(items ...map[string]interface{}) *client.QueryResponse {
	return &client.QueryResponse{Items: items, RequestID: "req-rows"}
}

func TestSecurityChecksCoverCatalog(t *testing.T) {
	require.Len(t, securityChecks, len(query.SearchCatalog))
	for i, c := range query.SearchCatalog {
		assert.Equal(t, c.Name, securityChecks[i].Name)
		assert.NotEmpty(t, securityChecks[i].Description, c.Name)
		assert.NotEmpty(t, securityChecks[i].recommendations(), c.Name)
	}
}

func TestListSecurityCheckTypes(t *testing.T) {
	backend := &fakeBackend{}
	out := decodeOK(t, execute(t, NewListSecurityChecksTool(testDeps(backend)), map[string]interface{}{}))

	types := out["check_types"].([]interface{})
	assert.Equal(t, float64(len(securityChecks)), out["total"])
	require.Len(t, types, len(securityChecks))

	first := types[0].(map[string]interface{})
	assert.Equal(t, "failed_logins", first["type"])
	assert.Equal(t, SeverityHigh, first["severity"])
	assert.Equal(t, query.SearchCatalog[0].Filter, first["filter"])
	assert.NotEmpty(t, first["keywords"])
	assert.Empty(t, backend.queries)
}

func TestRunSecurityCheck(t *testing.T) {
	tests := []struct {
		name         string
		checkType    string
		wantCheck    string
		wantSeverity string
		wantPrefix   string
	}{
		{"exact name", "failed_logins", "failed_logins", SeverityHigh, "'Event Name' in ('AuthenticationFailure'"},
		{"dashes and case", "Port-Scan", "port_scan", SeverityMedium, "'Log Source' = 'OCI VCN Flow Unified Schema Logs' and Action in"},
		{"info check", "network", "network", SeverityInfo, "'Log Source' = 'OCI VCN Flow Unified Schema Logs' and Time >="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{}
			out := decodeOK(t, execute(t, NewSecurityCheckTool(testDeps(backend)), map[string]interface{}{
				"check_type": tt.checkType,
				"time_range": "1h",
				"dry_run":    true,
			}))

			q := out["query"].(string)
			assert.True(t, strings.HasPrefix(q, tt.wantPrefix), q)
			assert.Contains(t, q, hourFilter)
			assert.Equal(t, tt.wantCheck, out["check_type"])
			assert.Equal(t, tt.wantCheck, out["category"])
			assert.Equal(t, tt.wantSeverity, out["severity"])
			assert.Equal(t, false, out["fallback"])
			assert.NotEmpty(t, out["recommendations"])
			assert.Empty(t, backend.queries)
		})
	}
}

func TestRunSecurityCheck_UnknownType(t *testing.T) {
	backend := &fakeBackend{}
	res := execute(t, NewSecurityCheckTool(testDeps(backend)), map[string]interface{}{"check_type": "kernel panic"})

	require.True(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "unknown check type kernel panic")
	assert.Contains(t, text, "privilege_escalation")
	assert.Empty(t, backend.queries, "no full-text fallback is run")
}

func TestRunSecurityCheck_Executes(t *testing.T) {
	backend := &fakeBackend{queryResp: queryRows(
		map[string]interface{}{"Event Name": "AssumeRole", "Log Source": "OCI Audit Logs"},
	)}
	out := decodeOK(t, execute(t, NewSecurityCheckTool(testDeps(backend)), map[string]interface{}{
		"check_type": "privilege_escalation",
	}))

	require.Len(t, backend.queries, 1)
	assert.Equal(t, SeverityCritical, out["severity"])
	assert.Len(t, out["results"], 1)
	assert.Equal(t, "req-rows", out["request_id"])
}

func TestThreatSummary(t *testing.T) {
	backend := &fakeBackend{respond: func(q client.QueryRequest) (*client.QueryResponse, error) {
		switch {
		case strings.Contains(q.QueryString, "AuthenticationFailure"):
			return queryRows(
				map[string]interface{}{"Log Source": "OCI Audit Logs", "event_count": float64(5)},
				map[string]interface{}{"Log Source": "Linux Secure Logs", "event_count": float64(2)},
			), nil
		case strings.Contains(q.QueryString, "Action in ('drop'"):
			return queryRows(map[string]interface{}{"Log Source": "OCI VCN Flow Unified Schema Logs", "event_count": "3"}), nil
		case strings.Contains(q.QueryString, "OCI Cloud Guard Problems"):
			return nil, errors.New("backend unavailable")
		}
		return queryRows(), nil
	}}

	out := decodeOK(t, execute(t, NewThreatSummaryTool(testDeps(backend)), map[string]interface{}{"time_range": "1h"}))

	assert.Len(t, backend.queries, 7, "one query per non-info check")
	for _, q := range backend.queries {
		assert.NotNil(t, q.TimeFilter, "grouped counts use the separate filter")
		assert.Contains(t, q.QueryString, "| stats count as event_count by 'Log Source'")
	}

	assert.Equal(t, float64(10), out["total_events"])
	byType := out["by_type"].(map[string]interface{})
	assert.Equal(t, float64(7), byType["failed_logins"])
	assert.Equal(t, float64(3), byType["port_scan"])
	assert.Equal(t, float64(0), byType["cloud_guard"])
	assert.NotContains(t, byType, "network")

	bySeverity := out["by_severity"].(map[string]interface{})
	assert.Equal(t, float64(7), bySeverity[SeverityHigh])
	assert.Equal(t, float64(3), bySeverity[SeverityMedium])

	top := out["top_sources"].([]interface{})
	require.Len(t, top, 3)
	assert.Equal(t, "OCI Audit Logs", top[0].(map[string]interface{})["source"])
	assert.Equal(t, "Linux Secure Logs", top[2].(map[string]interface{})["source"])

	warnings := out["warnings"].([]interface{})
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "cloud_guard")
	assert.NotContains(t, out["queries"], "cloud_guard")
}

func TestThreatSummary_DryRun(t *testing.T) {
	backend := &fakeBackend{}
	out := decodeOK(t, execute(t, NewThreatSummaryTool(testDeps(backend)), map[string]interface{}{"dry_run": true}))

	assert.Empty(t, backend.queries)
	assert.Equal(t, true, out["dry_run"])
	assert.Len(t, out["queries"], 7)
	assert.Equal(t, float64(0), out["total_events"])
}

func TestThreatSummary_NoBackend(t *testing.T) {
	body := decodeError(t, execute(t, NewThreatSummaryTool(testDeps(nil)), map[string]interface{}{}))
	assert.Equal(t, "SERVICE_UNAVAILABLE", body["code"])
}

func TestSummarizeFailedLogins(t *testing.T) {
	in := []map[string]interface{}{
		{"Source IP": "10.0.0.5", "attempts": float64(4)},
		{"Source IP": "10.0.0.9", "attempts": float64(12)},
		{"Source IP": "", "attempts": float64(6)},
	}

	s := summarizeFailedLogins(in, 5)
	assert.Equal(t, int64(22), s.TotalFailedLogins)
	assert.Equal(t, 3, s.UniqueSourceIPs)
	assert.Equal(t, []FlaggedIP{{IP: "10.0.0.9", Attempts: 12}, {IP: "unknown", Attempts: 6}}, s.FlaggedIPs)
	assert.Equal(t, SeverityHigh, s.Severity)
	assert.NotEmpty(t, s.Recommendations)

	quiet := summarizeFailedLogins(in, 20)
	assert.Empty(t, quiet.FlaggedIPs)
	assert.Equal(t, SeverityLow, quiet.Severity)
	assert.Empty(t, quiet.Recommendations)
}

func TestDetectFailedLogins(t *testing.T) {
	backend := &fakeBackend{queryResp: queryRows(
		map[string]interface{}{"Source IP": "203.0.113.7", "attempts": float64(9)},
		map[string]interface{}{"Source IP": "198.51.100.2", "attempts": float64(1)},
	)}
	out := decodeOK(t, execute(t, NewFailedLoginsTool(testDeps(backend)), map[string]interface{}{"time_range": "1h"}))

	require.Len(t, backend.queries, 1)
	q := backend.queries[0].QueryString
	assert.Contains(t, q, "| stats count as attempts by 'Source IP' | sort -attempts")
	assert.NotNil(t, backend.queries[0].TimeFilter)

	assert.Equal(t, float64(5), out["threshold"])
	assert.Equal(t, float64(10), out["total_failed_logins"])
	flagged := out["flagged_ips"].([]interface{})
	require.Len(t, flagged, 1)
	assert.Equal(t, "203.0.113.7", flagged[0].(map[string]interface{})["ip"])
	assert.Equal(t, SeverityHigh, out["severity"])
}

func TestDetectFailedLogins_BadThreshold(t *testing.T) {
	body := decodeError(t, execute(t, NewFailedLoginsTool(testDeps(&fakeBackend{})), map[string]interface{}{"threshold": 5000}))
	assert.Equal(t, "INVALID_INPUT", body["code"])
}

func TestClassifyEscalations(t *testing.T) {
	s := classifyEscalations([]map[string]interface{}{
		{"Log Entry": "Mar 14 sudo: alice : COMMAND=/bin/bash"},
		{"Log Entry": "su: pam_unix(su:session): session opened for user root"},
		{"Event Name": "AssumeRole"},
		{"Event Name": "AddUserToGroup", "Message": "user bob added"},
	})
	assert.Equal(t, 4, s.TotalEvents)
	assert.Equal(t, 1, s.SudoEvents)
	assert.Equal(t, 1, s.SuEvents)
	assert.Equal(t, 1, s.RoleAssumptionEvents)
	assert.Equal(t, 1, s.GroupChangeEvents)
	assert.Equal(t, SeverityCritical, s.Severity)

	assert.Equal(t, SeverityInfo, classifyEscalations(nil).Severity)
}

func TestDetectPrivilegeEscalation(t *testing.T) {
	backend := &fakeBackend{queryResp: queryRows(map[string]interface{}{"Log Entry": "sudo: root shell"})}
	out := decodeOK(t, execute(t, NewPrivilegeEscalationTool(testDeps(backend)), map[string]interface{}{"time_range": "1h"}))

	require.Len(t, backend.queries, 1)
	assert.True(t, strings.HasPrefix(backend.queries[0].QueryString, query.SearchCatalog[1].Filter+" and Time >="))
	assert.Equal(t, float64(1), out["sudo_events"])
	assert.Equal(t, SeverityCritical, out["severity"])
}

func TestComplianceCheck(t *testing.T) {
	backend := &fakeBackend{respond: func(q client.QueryRequest) (*client.QueryResponse, error) {
		switch {
		case strings.Contains(q.QueryString, "AuthenticationFailure"):
			return queryRows(map[string]interface{}{"Source IP": "203.0.113.7", "attempts": float64(11)}), nil
		case strings.Contains(q.QueryString, "Action in ('drop'"):
			return queryRows(map[string]interface{}{"event_count": float64(4)}), nil
		case strings.Contains(q.QueryString, "AssumeRole"):
			return nil, errors.New("query rejected")
		}
		return queryRows(map[string]interface{}{"event_count": float64(0)}), nil
	}}

	deps := testDeps(backend)
	deps.Limits.DefaultTimeRange = "1h"
	out := decodeOK(t, execute(t, NewComplianceCheckTool(deps), map[string]interface{}{}))

	assert.Len(t, backend.queries, len(complianceControls))
	assert.Equal(t, "Last 24 Hours", out["time_period"], "compliance looks back a day unless told otherwise")

	byName := map[string]map[string]interface{}{}
	for _, c := range out["checks"].([]interface{}) {
		m := c.(map[string]interface{})
		byName[m["check_name"].(string)] = m
	}
	assert.Equal(t, StatusFailed, byName["Authentication Security"]["status"])
	assert.Equal(t, StatusError, byName["Privilege Management"]["status"])
	assert.Equal(t, StatusPassed, byName["Network Security"]["status"])
	assert.Equal(t, StatusWarning, byName["Audit Logging"]["status"], "no audit events is a warning")

	assert.Equal(t, float64(1), out["passed"])
	assert.Equal(t, float64(1), out["failed"])
	assert.Equal(t, float64(1), out["warnings"])
	assert.Equal(t, float64(1), out["errors"])
}

func TestComplianceCheck_DryRunSkipsControls(t *testing.T) {
	backend := &fakeBackend{}
	out := decodeOK(t, execute(t, NewComplianceCheckTool(testDeps(backend)), map[string]interface{}{
		"time_range": "1h",
		"dry_run":    true,
	}))

	assert.Empty(t, backend.queries)
	assert.Equal(t, "Last 1 Hour", out["time_period"])
	assert.Equal(t, float64(0), out["passed"])
	for _, c := range out["checks"].([]interface{}) {
		m := c.(map[string]interface{})
		assert.Equal(t, StatusSkipped, m["status"])
		assert.NotEmpty(t, m["query"])
	}
}
