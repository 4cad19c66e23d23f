package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAllTools(t *testing.T) {
	all := GetAllTools(testDeps(&fakeBackend{}))
	require.Len(t, all, 28+len(listSpecs))

	seen := make(map[string]bool)
	for _, tool := range all {
		name := tool.Name()
		t.Run(name, func(t *testing.T) {
			assert.False(t, seen[name], "duplicate tool name")
			seen[name] = true

			assert.NotEmpty(t, tool.Description())
			assert.GreaterOrEqual(t, tool.DefaultTimeout().Seconds(), 0.0)

			ann := tool.Annotations()
			require.NotNil(t, ann)
			assert.NotEmpty(t, ann.Title)
			assert.True(t, ann.ReadOnlyHint, "no tool changes backend state")

			schema, ok := tool.InputSchema().(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, "object", schema["type"])
			props, ok := schema["properties"].(map[string]interface{})
			require.True(t, ok)
			if required, ok := schema["required"].([]string); ok {
				for _, r := range required {
					assert.Contains(t, props, r, "required property must be declared")
				}
			}
		})
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		name string
		want ToolCategory
	}{
		{"execute_logan_query", CategoryQuery},
		{"get_mitre_techniques", CategorySecurity},
		{"run_compliance_check", CategorySecurity},
		{"get_log_trends", CategoryAnalytics},
		{"list_active_log_sources", CategoryAnalytics},
		{"get_working_query_examples", CategoryAssist},
		{"check_connection", CategoryMeta},
		{"list_parsers", CategoryManagement},
		{"get_lookup", CategoryManagement},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryOf(tt.name))
		})
	}
}

func TestCountByCategory(t *testing.T) {
	all := GetAllTools(testDeps(nil))
	counts := CountByCategory(all)

	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, len(all), total)
	assert.Equal(t, 3, counts[CategoryQuery])
	assert.Equal(t, 8, counts[CategorySecurity])
	assert.Equal(t, 11, counts[CategoryAnalytics])
	assert.Equal(t, 1, counts[CategoryMeta])
	assert.Equal(t, 2+len(listSpecs), counts[CategoryManagement])
}

func TestQueryToolsShareOptions(t *testing.T) {
	d := testDeps(nil)
	for _, tool := range []Tool{
		NewExecuteQueryTool(d),
		NewSearchSecurityEventsTool(d),
		NewMitreTechniquesTool(d),
		NewAdvancedAnalyticsTool(d),
		NewStatisticalAnalysisTool(d),
		NewFieldOperationsTool(d),
		NewPatternSearchTool(d),
		NewCorrelationTool(d),
		NewActiveLogSourcesTool(d),
		NewSecurityCheckTool(d),
		NewThreatSummaryTool(d),
		NewFailedLoginsTool(d),
		NewPrivilegeEscalationTool(d),
		NewComplianceCheckTool(d),
		NewLogSourceSummaryTool(d),
		NewLogTrendsTool(d),
		NewTopErrorsTool(d),
		NewAlertStatisticsTool(d),
		NewIncidentTimelineTool(d),
	} {
		t.Run(tool.Name(), func(t *testing.T) {
			props := tool.InputSchema().(map[string]interface{})["properties"].(map[string]interface{})
			for _, key := range []string{"time_range", "max_count", "dry_run"} {
				assert.Contains(t, props, key)
			}
			assert.Equal(t, DefaultQueryTimeout, tool.DefaultTimeout())
		})
	}
}
