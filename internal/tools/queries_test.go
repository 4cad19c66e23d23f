package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tareqmamari/logan-mcp-server/internal/client"
	mcperrors "github.com/tareqmamari/logan-mcp-server/internal/errors"
)

const (
	hourStart = "2025-03-14T08:26:53.589Z"
	hourEnd   = "2025-03-14T09:26:53.589Z"
)

func TestExecuteQuery_DryRunEmbedsWindow(t *testing.T) {
	backend := &fakeBackend{}
	recorder := &fakeRecorder{}
	deps := testDeps(backend)
	deps.Recorder = recorder

	out := decodeOK(t, execute(t, NewExecuteQueryTool(deps), map[string]interface{}{
		"query":      "'Log Source' = 'OCI Audit Logs' | head 5",
		"time_range": "1h",
		"dry_run":    true,
	}))

	assert.Equal(t,
		"'Log Source' = 'OCI Audit Logs' and Time >= '"+hourStart+"' and Time <= '"+hourEnd+"' | head 5",
		out["query"])
	assert.Equal(t, "embedded", out["time_placement"])
	assert.Equal(t, "Last 1 Hour", out["time_period"])
	assert.Equal(t, "raw", out["family"])
	assert.Equal(t, true, out["dry_run"])
	assert.Nil(t, out["time_filter"])
	assert.Empty(t, backend.queries, "dry run must not reach the backend")

	require.Len(t, recorder.events, 1)
	assert.Equal(t, compileEvent{family: "raw", placement: "embedded"}, recorder.events[0])
}

func TestExecuteQuery_ConsoleModeSendsSeparateFilter(t *testing.T) {
	backend := &fakeBackend{queryResp: &client.QueryResponse{
		Columns:    []client.Column{{DisplayName: "Log Source"}, {DisplayName: "Count"}},
		Items:      []map[string]interface{}{{"Log Source": "OCI Audit Logs", "Count": float64(12)}},
		TotalCount: 1,
		RequestID:  "req-42",
	}}

	out := decodeOK(t, execute(t, NewExecuteQueryTool(testDeps(backend)), map[string]interface{}{
		"query":        "'Log Source' = 'OCI Audit Logs' | head 5",
		"time_range":   "1h",
		"console_mode": true,
		"max_count":    50,
	}))

	require.Len(t, backend.queries, 1)
	sent := backend.queries[0]
	assert.Equal(t, "'Log Source' = 'OCI Audit Logs' | head 5", sent.QueryString)
	require.NotNil(t, sent.TimeFilter)
	assert.Equal(t, hourStart, sent.TimeFilter.TimeStart)
	assert.Equal(t, hourEnd, sent.TimeFilter.TimeEnd)
	assert.Equal(t, "UTC", sent.TimeFilter.TimeZone)
	assert.Equal(t, 50, sent.MaxTotalCount)

	assert.Equal(t, "separate", out["time_placement"])
	assert.Equal(t, "req-42", out["request_id"])
	assert.Equal(t, float64(1), out["total_count"])
	assert.Equal(t, []interface{}{"Log Source", "Count"}, out["columns"])
	assert.Len(t, out["results"], 1)
}

func TestExecuteQuery_FixesBeforeCompiling(t *testing.T) {
	out := decodeOK(t, execute(t, NewExecuteQueryTool(testDeps(&fakeBackend{})), map[string]interface{}{
		"query":   "* | stats count(*) by Log Source",
		"dry_run": true,
	}))

	assert.Equal(t, "* | stats count by 'Log Source'", out["query"])
	assert.Equal(t, "separate", out["time_placement"], "grouped stats keep the window out of the query")
	assert.NotEmpty(t, out["corrections"])
	validation := out["validation"].(map[string]interface{})
	assert.Equal(t, true, validation["is_valid"])
}

func TestExecuteQuery_ExistingTimePredicateIsKept(t *testing.T) {
	out := decodeOK(t, execute(t, NewExecuteQueryTool(testDeps(&fakeBackend{})), map[string]interface{}{
		"query":   "'Log Source' = 'X' and Time > dateRelative(1h)",
		"dry_run": true,
	}))
	assert.Equal(t, "'Log Source' = 'X' and Time > dateRelative(1h)", out["query"])
	assert.Equal(t, "query", out["time_placement"])
}

func TestExecuteQuery_Validation(t *testing.T) {
	t.Run("strict refuses an invalid query", func(t *testing.T) {
		backend := &fakeBackend{}
		body := decodeError(t, execute(t, NewExecuteQueryTool(testDeps(backend)), map[string]interface{}{
			"query":  "* | stats count(*)",
			"fix":    false,
			"strict": true,
		}))
		assert.Equal(t, string(mcperrors.CodeQueryValidationFailed), body["code"])
		assert.Empty(t, backend.queries)
	})

	t.Run("findings are advisory by default", func(t *testing.T) {
		backend := &fakeBackend{}
		out := decodeOK(t, execute(t, NewExecuteQueryTool(testDeps(backend)), map[string]interface{}{
			"query": "* | stats count(*)",
			"fix":   false,
		}))
		validation := out["validation"].(map[string]interface{})
		assert.Equal(t, false, validation["is_valid"])
		assert.Len(t, backend.queries, 1)
	})
}

func TestExecuteQuery_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing query", map[string]interface{}{}},
		{"blank query", map[string]interface{}{"query": "  "}},
		{"max_count above limit", map[string]interface{}{"query": "*", "max_count": 10001}},
		{"negative max_count", map[string]interface{}{"query": "*", "max_count": -1}},
		{"fractional max_count", map[string]interface{}{"query": "*", "max_count": 1.5}},
		{"negative minutes", map[string]interface{}{"query": "*", "time_range_minutes": -5}},
		{"bad fix flag", map[string]interface{}{"query": "*", "fix": []interface{}{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{}
			body := decodeError(t, execute(t, NewExecuteQueryTool(testDeps(backend)), tt.args))
			assert.Equal(t, string(mcperrors.CodeInvalidInput), body["code"])
			assert.Empty(t, backend.queries)
		})
	}
}

func TestExecuteQuery_BackendErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code mcperrors.ErrorCode
	}{
		{"rate limited", mcperrors.NewRateLimitExceeded(), mcperrors.CodeRateLimitExceeded},
		{"circuit open", mcperrors.NewCircuitOpen(), mcperrors.CodeCircuitOpen},
		{"deadline", context.DeadlineExceeded, mcperrors.CodeTimeout},
		{"unexpected", assert.AnError, mcperrors.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, info := WithCallInfo(context.Background())
			res, err := NewExecuteQueryTool(testDeps(&fakeBackend{queryErr: tt.err})).
				Execute(ctx, map[string]interface{}{"query": "*"})
			require.NoError(t, err)

			body := decodeError(t, res)
			assert.Equal(t, string(tt.code), body["code"])

			snap := info.Snapshot()
			assert.Equal(t, "raw", snap.Family)
			assert.Error(t, snap.Err)
		})
	}
}

func TestExecuteQuery_WithoutBackend(t *testing.T) {
	body := decodeError(t, execute(t, NewExecuteQueryTool(testDeps(nil)), map[string]interface{}{"query": "*"}))
	assert.Equal(t, string(mcperrors.CodeServiceUnavailable), body["code"])
}

func TestExecuteQuery_ExplicitMinutes(t *testing.T) {
	out := decodeOK(t, execute(t, NewExecuteQueryTool(testDeps(&fakeBackend{})), map[string]interface{}{
		"query":              "*",
		"time_range":         "7d",
		"time_range_minutes": 90,
		"dry_run":            true,
	}))
	assert.Equal(t, "Last 1 Hour", out["time_period"])
	assert.Equal(t, "Time >= '2025-03-14T07:56:53.589Z' and Time <= '"+hourEnd+"'", out["query"])
}

func TestExecuteQuery_RecordsCallInfo(t *testing.T) {
	backend := &fakeBackend{queryResp: &client.QueryResponse{
		Items:     []map[string]interface{}{{"a": "1"}, {"a": "2"}},
		RequestID: "req-7",
	}}
	ctx, info := WithCallInfo(context.Background())
	_, err := NewExecuteQueryTool(testDeps(backend)).Execute(ctx, map[string]interface{}{"query": "* | head 2"})
	require.NoError(t, err)

	snap := info.Snapshot()
	assert.Equal(t, "raw", snap.Family)
	assert.Equal(t, "embedded", snap.Placement)
	assert.Equal(t, "req-7", snap.RequestID)
	assert.Equal(t, 2, snap.ResultCount)
	assert.False(t, snap.DryRun)
	assert.NoError(t, snap.Err)
}

func TestValidateQuery(t *testing.T) {
	tool := NewValidateQueryTool(testDeps(nil))

	t.Run("valid query", func(t *testing.T) {
		out := decodeOK(t, execute(t, tool, map[string]interface{}{"query": "'Log Source' = 'X' | head 10"}))
		validation := out["validation"].(map[string]interface{})
		assert.Equal(t, true, validation["is_valid"])
		assert.Empty(t, validation["errors"])
		assert.Nil(t, out["fixed_query"])
	})

	t.Run("invalid query with fix", func(t *testing.T) {
		out := decodeOK(t, execute(t, tool, map[string]interface{}{
			"query": "'Event Name' = 'x' and time != null",
			"fix":   true,
		}))
		validation := out["validation"].(map[string]interface{})
		assert.Equal(t, false, validation["is_valid"])
		assert.NotEmpty(t, out["violations"])
		assert.Equal(t, "'Event Name' = 'x' and Time is not null", out["fixed_query"])
		assert.Len(t, out["corrections"], 2)
		fixed := out["fixed_validation"].(map[string]interface{})
		assert.Equal(t, true, fixed["is_valid"])
	})

	t.Run("empty query is a finding, not an argument error", func(t *testing.T) {
		out := decodeOK(t, execute(t, tool, map[string]interface{}{"query": ""}))
		validation := out["validation"].(map[string]interface{})
		assert.Equal(t, false, validation["is_valid"])
	})

	t.Run("missing query", func(t *testing.T) {
		body := decodeError(t, execute(t, tool, map[string]interface{}{}))
		assert.Equal(t, string(mcperrors.CodeInvalidInput), body["code"])
	})
}

func TestResolveTimeRange(t *testing.T) {
	tool := NewResolveTimeRangeTool(testDeps(nil))

	tests := []struct {
		name      string
		args      map[string]interface{}
		wantToken string
		wantStart string
	}{
		{"default", map[string]interface{}{}, "24h", "2025-03-13T09:26:53.589Z"},
		{"token", map[string]interface{}{"time_range": "1h"}, "1h", hourStart},
		{"unknown token falls back", map[string]interface{}{"time_range": "3 fortnights"}, "24h", "2025-03-13T09:26:53.589Z"},
		{"minutes", map[string]interface{}{"time_range_minutes": 15}, "15min", "2025-03-14T09:11:53.589Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := decodeOK(t, execute(t, tool, tt.args))
			assert.Equal(t, tt.wantToken, out["token"])
			assert.Equal(t, tt.wantStart, out["start"])
			assert.Equal(t, hourEnd, out["end"])
			tf := out["time_filter"].(map[string]interface{})
			assert.Equal(t, tt.wantStart, tf["timeStart"])
		})
	}
}
