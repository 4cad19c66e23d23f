package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tareqmamari/logan-mcp-server/internal/client"
)

func TestIntervalFromMinutes(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{5, "5m"},
		{59, "59m"},
		{60, "1h"},
		{90, "1h"},
		{1439, "23h"},
		{1440, "1d"},
		{4320, "3d"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, intervalFromMinutes(tt.minutes), tt.minutes)
	}
}

func TestLogTrends(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"default interval", map[string]interface{}{}, hourFilter + " | timestats count as log_count span = 1h"},
		{"interval minutes", map[string]interface{}{"interval_minutes": 15}, hourFilter + " | timestats count as log_count span = 15m"},
		{"interval wins", map[string]interface{}{"interval": "1d", "interval_minutes": 15}, hourFilter + " | timestats count as log_count span = 1d"},
		{
			"base query",
			map[string]interface{}{"base_query": "'Log Source' = 'OCI Audit Logs'", "interval": "5m"},
			"'Log Source' = 'OCI Audit Logs' and " + hourFilter + " | timestats count as log_count span = 5m",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]interface{}{"time_range": "1h", "dry_run": true}
			for k, v := range tt.args {
				args[k] = v
			}
			out := decodeOK(t, execute(t, NewLogTrendsTool(testDeps(&fakeBackend{})), args))
			assert.Equal(t, tt.want, out["query"])
			assert.Equal(t, "statistical_analysis", out["family"])
			assert.Equal(t, "embedded", out["time_placement"])
		})
	}
}

func TestLogTrends_BadInterval(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"malformed interval", map[string]interface{}{"interval": "hourly"}},
		{"negative minutes", map[string]interface{}{"interval_minutes": -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{}
			body := decodeError(t, execute(t, NewLogTrendsTool(testDeps(backend)), tt.args))
			assert.Equal(t, "INVALID_INPUT", body["code"])
			assert.Empty(t, backend.queries)
		})
	}
}

func TestTopErrors(t *testing.T) {
	backend := &fakeBackend{queryResp: &client.QueryResponse{Items: []map[string]interface{}{
		{"Message": "connection refused", "error_count": float64(42)},
	}}}
	out := decodeOK(t, execute(t, NewTopErrorsTool(testDeps(backend)), map[string]interface{}{"time_range": "1h", "limit": 3}))

	want := "Severity in ('error', 'critical', 'fatal') | stats count as error_count by Message | sort -error_count | head 3"
	assert.Equal(t, want, out["query"])
	assert.Equal(t, "errors", out["category"])
	assert.Equal(t, "separate", out["time_placement"])
	require.Len(t, backend.queries, 1)
	assert.NotNil(t, backend.queries[0].TimeFilter)
	assert.Len(t, out["results"], 1)
}

func TestTopErrors_Limit(t *testing.T) {
	out := decodeOK(t, execute(t, NewTopErrorsTool(testDeps(&fakeBackend{})), map[string]interface{}{"dry_run": true}))
	assert.Contains(t, out["query"], "| head 10")

	body := decodeError(t, execute(t, NewTopErrorsTool(testDeps(&fakeBackend{})), map[string]interface{}{"limit": 500}))
	assert.Equal(t, "INVALID_INPUT", body["code"])
}

func TestSummarizeSources(t *testing.T) {
	yes, no := true, false
	s := summarizeSources([]ActiveSource{
		{Name: "a", LogCount: 30, HasData: true, IsSystem: &yes},
		{Name: "b", LogCount: 12, HasData: true},
		{Name: "c", LogCount: 1, HasData: true, IsSystem: &no},
		{Name: "d", IsSystem: &no},
	}, 2)

	assert.Equal(t, 4, s.TotalSources)
	assert.Equal(t, 3, s.ActiveSources)
	assert.Equal(t, int64(43), s.TotalLogCount)
	assert.Equal(t, 1, s.SystemSources)
	assert.Equal(t, 2, s.CustomSources)
	require.Len(t, s.TopSources, 2)
	assert.Equal(t, "a", s.TopSources[0].Name)

	empty := summarizeSources(nil, 10)
	assert.NotNil(t, empty.TopSources)
}

func TestLogSourceSummary(t *testing.T) {
	backend := &fakeBackend{
		queryResp: sourceCounts(),
		lists:     map[string]*client.ListResponse{"sources": sourceCatalog()},
	}
	out := decodeOK(t, execute(t, NewLogSourceSummaryTool(testDeps(backend)), map[string]interface{}{}))

	require.Len(t, backend.queries, 1)
	require.Len(t, backend.listCalls, 1)
	assert.Equal(t, "* | stats count as log_count by 'Log Source' | sort -log_count", out["query"])
	assert.Equal(t, float64(4), out["total_sources"])
	assert.Equal(t, float64(3), out["active_sources"])
	assert.Equal(t, float64(1239), out["total_log_count"])
	assert.Equal(t, float64(2), out["system_sources"])
	assert.Equal(t, float64(1), out["custom_sources"])

	top := out["top_sources"].([]interface{})
	require.Len(t, top, 3)
	assert.Equal(t, "OCI Audit Logs", top[0].(map[string]interface{})["display_name"])
}

func TestLogSourceSummary_DryRun(t *testing.T) {
	backend := &fakeBackend{}
	out := decodeOK(t, execute(t, NewLogSourceSummaryTool(testDeps(backend)), map[string]interface{}{"dry_run": true}))

	assert.Equal(t, true, out["dry_run"])
	assert.Equal(t, "separate", out["time_placement"])
	assert.Empty(t, backend.queries)
	assert.Empty(t, backend.listCalls)
}
