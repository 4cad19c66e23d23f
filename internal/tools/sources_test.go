package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tareqmamari/logan-mcp-server/internal/client"
	mcperrors "github.com/tareqmamari/logan-mcp-server/internal/errors"
)

func sourceCatalog() *client.ListResponse {
	return &client.ListResponse{Items: []map[string]interface{}{
		{"name": "LinuxSyslogSource", "displayName": "Linux Syslog Logs", "isSystem": true, "entityTypes": []interface{}{map[string]interface{}{}, map[string]interface{}{}}},
		{"name": "OCIAuditLogSource", "displayName": "OCI Audit Logs", "isSystem": true},
		{"name": "CustomAppSource", "displayName": "Custom App Logs", "isSystem": false},
	}}
}

func sourceCounts() *client.QueryResponse {
	return &client.QueryResponse{
		Columns: []client.Column{{DisplayName: "Log Source"}, {DisplayName: "log_count"}},
		Items: []map[string]interface{}{
			{"Log Source": "OCI Audit Logs", "log_count": float64(1200)},
			{"Log Source": "Linux Syslog Logs", "log_count": float64(35)},
			{"Log Source": "Uncatalogued Source", "log_count": float64(4)},
		},
		TotalCount: 3,
		RequestID:  "req-src",
	}
}

func TestActiveLogSources_DryRun(t *testing.T) {
	backend := &fakeBackend{}
	out := decodeOK(t, execute(t, NewActiveLogSourcesTool(testDeps(backend)), map[string]interface{}{
		"time_range": "1h",
		"dry_run":    true,
	}))

	assert.Equal(t, "* | stats count as log_count by 'Log Source' | sort -log_count", out["query"])
	assert.Equal(t, "separate", out["time_placement"])
	tf := out["time_filter"].(map[string]interface{})
	assert.Equal(t, hourStart, tf["timeStart"])
	assert.Equal(t, hourEnd, tf["timeEnd"])
	assert.Empty(t, backend.queries)
	assert.Empty(t, backend.listCalls)
}

func TestActiveLogSources_MergesCountsWithCatalog(t *testing.T) {
	backend := &fakeBackend{
		queryResp: sourceCounts(),
		lists:     map[string]*client.ListResponse{"sources": sourceCatalog()},
	}

	out := decodeOK(t, execute(t, NewActiveLogSourcesTool(testDeps(backend)), map[string]interface{}{}))

	require.Len(t, backend.queries, 1)
	assert.NotNil(t, backend.queries[0].TimeFilter, "counts always use the separate filter")
	require.Len(t, backend.listCalls, 1)
	assert.Equal(t, "sources", backend.listCalls[0].resource)
	assert.Equal(t, "1000", backend.listCalls[0].params.Get("limit"))
	assert.Equal(t, testCompartment, backend.listCalls[0].params.Get("compartmentId"))

	assert.Equal(t, float64(3), out["active_sources"])
	assert.Equal(t, float64(4), out["total_sources"])
	assert.Equal(t, "req-src", out["request_id"])
	assert.Nil(t, out["warnings"])

	sources := out["sources"].([]interface{})
	require.Len(t, sources, 4)

	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.(map[string]interface{})["display_name"].(string)
	}
	assert.Equal(t, []string{"OCI Audit Logs", "Linux Syslog Logs", "Uncatalogued Source", "Custom App Logs"}, names)

	syslog := sources[1].(map[string]interface{})
	assert.Equal(t, "LinuxSyslogSource", syslog["name"])
	assert.Equal(t, float64(35), syslog["log_count"])
	assert.Equal(t, float64(2), syslog["entity_types"])
	assert.Equal(t, true, syslog["is_system"])
	assert.Equal(t, true, syslog["has_data"])

	idle := sources[3].(map[string]interface{})
	assert.Equal(t, float64(0), idle["log_count"])
	assert.Equal(t, false, idle["has_data"])
	assert.Equal(t, false, idle["is_system"])
}

func TestActiveLogSources_Limit(t *testing.T) {
	backend := &fakeBackend{
		queryResp: sourceCounts(),
		lists:     map[string]*client.ListResponse{"sources": sourceCatalog()},
	}

	out := decodeOK(t, execute(t, NewActiveLogSourcesTool(testDeps(backend)), map[string]interface{}{"limit": 2}))

	assert.Len(t, out["sources"], 2)
	assert.Equal(t, float64(4), out["total_sources"])
	assert.Equal(t, float64(3), out["active_sources"])
	assert.Equal(t, float64(2), out["limit"])
}

func TestActiveLogSources_CountFailureIsAWarning(t *testing.T) {
	backend := &fakeBackend{
		queryErr: mcperrors.NewRateLimitExceeded(),
		lists:    map[string]*client.ListResponse{"sources": sourceCatalog()},
	}

	out := decodeOK(t, execute(t, NewActiveLogSourcesTool(testDeps(backend)), map[string]interface{}{}))

	warnings := out["warnings"].([]interface{})
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "could not retrieve log counts")
	assert.Equal(t, float64(0), out["active_sources"])
	assert.Equal(t, float64(3), out["total_sources"])
	assert.Equal(t, []interface{}{}, out["results"])
}

func TestActiveLogSources_ListFailureIsAnError(t *testing.T) {
	backend := &fakeBackend{
		queryResp: sourceCounts(),
		listErr:   mcperrors.NewUnauthorized(),
	}

	body := decodeError(t, execute(t, NewActiveLogSourcesTool(testDeps(backend)), map[string]interface{}{}))
	assert.Equal(t, string(mcperrors.CodeUnauthorized), body["code"])
}

func TestActiveLogSources_WithoutBackend(t *testing.T) {
	body := decodeError(t, execute(t, NewActiveLogSourcesTool(testDeps(nil)), map[string]interface{}{}))
	assert.Equal(t, string(mcperrors.CodeServiceUnavailable), body["code"])
}

func TestMergeSources(t *testing.T) {
	t.Run("counts match internal names too", func(t *testing.T) {
		got := mergeSources(
			&client.QueryResponse{Items: []map[string]interface{}{{"Log Source": "OCIAuditLogSource", "log_count": "7"}}},
			sourceCatalog(),
		)
		require.Len(t, got, 3)
		assert.Equal(t, "OCI Audit Logs", got[0].DisplayName)
		assert.Equal(t, int64(7), got[0].LogCount)
	})

	t.Run("ties sort by name", func(t *testing.T) {
		got := mergeSources(nil, &client.ListResponse{Items: []map[string]interface{}{
			{"displayName": "b"}, {"displayName": "a"}, {"name": "c"}, {},
		}})
		require.Len(t, got, 3)
		assert.Equal(t, "a", sourceLabel(got[0]))
		assert.Equal(t, "b", sourceLabel(got[1]))
		assert.Equal(t, "c", got[2].Name)
	})

	t.Run("no catalog", func(t *testing.T) {
		got := mergeSources(sourceCounts(), nil)
		require.Len(t, got, 3)
		for _, s := range got {
			assert.True(t, s.HasData)
			assert.Nil(t, s.IsSystem)
		}
	})
}
