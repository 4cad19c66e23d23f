package tools

// GetAllTools returns all available MCP tools organized by category.
func GetAllTools(d Deps) []Tool {
	tools := []Tool{
		// Query tools
		NewExecuteQueryTool(d),
		NewValidateQueryTool(d),
		NewResolveTimeRangeTool(d),

		// Security tools
		NewSearchSecurityEventsTool(d),
		NewMitreTechniquesTool(d),
		NewListSecurityChecksTool(d),
		NewSecurityCheckTool(d),
		NewThreatSummaryTool(d),
		NewFailedLoginsTool(d),
		NewPrivilegeEscalationTool(d),
		NewComplianceCheckTool(d),

		// Analytics tools
		NewAdvancedAnalyticsTool(d),
		NewStatisticalAnalysisTool(d),
		NewFieldOperationsTool(d),
		NewPatternSearchTool(d),
		NewCorrelationTool(d),
		NewActiveLogSourcesTool(d),
		NewLogSourceSummaryTool(d),
		NewLogTrendsTool(d),
		NewTopErrorsTool(d),
		NewAlertStatisticsTool(d),
		NewIncidentTimelineTool(d),

		// Assistance tools
		NewSuggestQueryTool(d),
		NewParseQueryTool(d),
		NewQueryExamplesTool(d),

		// Management tools
		NewGetLookupTool(d),
		NewNamespaceInfoTool(d),
		NewCheckConnectionTool(d),
	}
	return append(tools, NewListTools(d)...)
}

var toolCategories = map[string]ToolCategory{
	"execute_logan_query":         CategoryQuery,
	"validate_query":              CategoryQuery,
	"resolve_time_range":          CategoryQuery,
	"search_security_events":      CategorySecurity,
	"get_mitre_techniques":        CategorySecurity,
	"list_security_check_types":   CategorySecurity,
	"run_security_check":          CategorySecurity,
	"get_threat_summary":          CategorySecurity,
	"detect_failed_logins":        CategorySecurity,
	"detect_privilege_escalation": CategorySecurity,
	"run_compliance_check":        CategorySecurity,
	"advanced_analytics":          CategoryAnalytics,
	"statistical_analysis":        CategoryAnalytics,
	"field_operations":            CategoryAnalytics,
	"search_logs_by_pattern":      CategoryAnalytics,
	"correlation_analysis":        CategoryAnalytics,
	"list_active_log_sources":     CategoryAnalytics,
	"get_log_source_summary":      CategoryAnalytics,
	"get_log_trends":              CategoryAnalytics,
	"get_top_errors":              CategoryAnalytics,
	"get_alert_statistics":        CategoryAnalytics,
	"build_incident_timeline":     CategoryAnalytics,
	"suggest_query":               CategoryAssist,
	"parse_query":                 CategoryAssist,
	"get_working_query_examples":  CategoryAssist,
	"check_connection":            CategoryMeta,
}

// CategoryOf returns the functional category of a tool. Tools not listed
// explicitly are management tools.
func CategoryOf(name string) ToolCategory {
	if c, ok := toolCategories[name]; ok {
		return c
	}
	return CategoryManagement
}

// CountByCategory tallies tools per category.
func CountByCategory(tools []Tool) map[ToolCategory]int {
	counts := make(map[ToolCategory]int)
	for _, t := range tools {
		counts[CategoryOf(t.Name())]++
	}
	return counts
}
