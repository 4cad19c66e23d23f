package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/tareqmamari/logan-mcp-server/internal/errors"
)

func TestAnalysisTools_Compile(t *testing.T) {
	d := testDeps(&fakeBackend{})

	tests := []struct {
		name          string
		tool          Tool
		args          map[string]interface{}
		wantQuery     string
		wantFamily    string
		wantPlacement string
	}{
		{
			name: "cluster with parameters",
			tool: NewAdvancedAnalyticsTool(d),
			args: map[string]interface{}{
				"analytics_type": "cluster",
				"base_query":     "Severity = 'error'",
				"parameters":     map[string]interface{}{"threshold": 0.9, "max_clusters": 20},
			},
			wantQuery:     "Severity = 'error' and " + hourFilter + " | cluster t = 0.9 maxclusters = 20",
			wantFamily:    "advanced_analytics",
			wantPlacement: "embedded",
		},
		{
			name: "grouped stats keep the window separate",
			tool: NewStatisticalAnalysisTool(d),
			args: map[string]interface{}{
				"stat_type":  "stats",
				"base_query": "Severity = 'error'",
				"aggregations": []interface{}{
					map[string]interface{}{"function": "count", "alias": "events"},
				},
				"group_by": []interface{}{"Host Name"},
			},
			wantQuery:     "Severity = 'error' | stats count as events by 'Host Name'",
			wantFamily:    "statistical_analysis",
			wantPlacement: "separate",
		},
		{
			name: "top",
			tool: NewStatisticalAnalysisTool(d),
			args: map[string]interface{}{
				"stat_type": "top",
				"field":     "Event Name",
				"limit":     5,
			},
			wantQuery:     hourFilter + " | top 5 'Event Name'",
			wantFamily:    "statistical_analysis",
			wantPlacement: "embedded",
		},
		{
			name: "fields include",
			tool: NewFieldOperationsTool(d),
			args: map[string]interface{}{
				"operation":         "fields",
				"operation_details": map[string]interface{}{"include": []interface{}{"Time", "Host Name"}},
			},
			wantQuery:     hourFilter + " | fields Time, 'Host Name'",
			wantFamily:    "field_operations",
			wantPlacement: "embedded",
		},
		{
			name: "exact pattern",
			tool: NewPatternSearchTool(d),
			args: map[string]interface{}{
				"pattern":    "root",
				"match_mode": "exact",
				"fields":     []interface{}{"User Name"},
			},
			wantQuery:     "'User Name' = 'root' and " + hourFilter,
			wantFamily:    "pattern_search",
			wantPlacement: "embedded",
		},
		{
			name: "temporal correlation",
			tool: NewCorrelationTool(d),
			args: map[string]interface{}{
				"correlation_type":   "temporal",
				"primary_query":      "'Log Source' = 'OCI Audit Logs'",
				"correlation_fields": []interface{}{"User Name"},
				"time_window":        "10m",
			},
			wantQuery:     "'Log Source' = 'OCI Audit Logs' and " + hourFilter + " | link maxspan = 10m 'User Name'",
			wantFamily:    "correlation_analysis",
			wantPlacement: "embedded",
		},
		{
			name: "entity correlation threshold",
			tool: NewCorrelationTool(d),
			args: map[string]interface{}{
				"correlation_type":   "entity_based",
				"correlation_fields": []interface{}{"User"},
				"threshold":          0.65,
			},
			wantQuery:     hourFilter + " | cluster t = 0.65 by User",
			wantFamily:    "correlation_analysis",
			wantPlacement: "embedded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["time_range"] = "1h"
			tt.args["dry_run"] = true
			out := decodeOK(t, execute(t, tt.tool, tt.args))

			assert.Equal(t, tt.wantQuery, out["query"])
			assert.Equal(t, tt.wantFamily, out["family"])
			assert.Equal(t, tt.wantPlacement, out["time_placement"])
			assert.NotContains(t, out["query"], "count(*)")
		})
	}
}

func TestAnalysisTools_UnsupportedOperation(t *testing.T) {
	d := testDeps(&fakeBackend{})

	tests := []struct {
		name string
		tool Tool
		args map[string]interface{}
	}{
		{"analytics", NewAdvancedAnalyticsTool(d), map[string]interface{}{"analytics_type": "predict"}},
		{"statistics", NewStatisticalAnalysisTool(d), map[string]interface{}{"stat_type": "median"}},
		{"aggregation function", NewStatisticalAnalysisTool(d), map[string]interface{}{
			"stat_type":    "stats",
			"aggregations": []interface{}{map[string]interface{}{"function": "p99", "field": "Duration"}},
		}},
		{"field operation", NewFieldOperationsTool(d), map[string]interface{}{"operation": "explode"}},
		{"match mode", NewPatternSearchTool(d), map[string]interface{}{"pattern": "x", "match_mode": "fuzzy"}},
		{"correlation", NewCorrelationTool(d), map[string]interface{}{"correlation_type": "causal", "correlation_fields": []interface{}{"x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := decodeError(t, execute(t, tt.tool, tt.args))
			assert.Equal(t, string(mcperrors.CodeUnsupportedOperation), body["code"])

			details, ok := body["details"].(map[string]interface{})
			require.True(t, ok)
			assert.NotEmpty(t, details["supported"])
			assert.NotEmpty(t, body["suggestion"])
		})
	}
}

func TestAnalysisTools_ParameterErrors(t *testing.T) {
	d := testDeps(&fakeBackend{})

	tests := []struct {
		name string
		tool Tool
		args map[string]interface{}
	}{
		{"link without fields", NewAdvancedAnalyticsTool(d), map[string]interface{}{"analytics_type": "link"}},
		{"threshold out of range", NewAdvancedAnalyticsTool(d), map[string]interface{}{
			"analytics_type": "cluster",
			"parameters":     map[string]interface{}{"threshold": 2},
		}},
		{"parameters of the wrong shape", NewAdvancedAnalyticsTool(d), map[string]interface{}{
			"analytics_type": "cluster",
			"parameters":     "fast",
		}},
		{"missing stat_type", NewStatisticalAnalysisTool(d), map[string]interface{}{}},
		{"group_by with a non-string element", NewStatisticalAnalysisTool(d), map[string]interface{}{"stat_type": "stats", "group_by": []interface{}{1}}},
		{"missing pattern", NewPatternSearchTool(d), map[string]interface{}{}},
		{"correlation without fields", NewCorrelationTool(d), map[string]interface{}{"correlation_type": "temporal"}},
		{"bad correlation window", NewCorrelationTool(d), map[string]interface{}{
			"correlation_type":   "temporal",
			"correlation_fields": []interface{}{"x"},
			"time_window":        "soon",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := decodeError(t, execute(t, tt.tool, tt.args))
			assert.Equal(t, string(mcperrors.CodeInvalidInput), body["code"])
		})
	}
}

func TestDecodeArg(t *testing.T) {
	var dst struct {
		Fields []string `json:"fields"`
	}

	require.NoError(t, decodeArg(map[string]interface{}{}, "parameters", &dst))
	assert.Nil(t, dst.Fields)

	require.NoError(t, decodeArg(map[string]interface{}{
		"parameters": map[string]interface{}{"fields": []interface{}{"a", "b"}},
	}, "parameters", &dst))
	assert.Equal(t, []string{"a", "b"}, dst.Fields)

	assert.Error(t, decodeArg(map[string]interface{}{"parameters": []interface{}{1}}, "parameters", &dst))
}
