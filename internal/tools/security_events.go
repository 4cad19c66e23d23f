package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tareqmamari/logan-mcp-server/internal/mitre"
	"github.com/tareqmamari/logan-mcp-server/internal/query"
)

// SearchSecurityEventsTool turns a natural-language term into a security search.
type SearchSecurityEventsTool struct {
	*BaseTool
}

// NewSearchSecurityEventsTool creates a new tool instance
func NewSearchSecurityEventsTool(d Deps) *SearchSecurityEventsTool {
	return &SearchSecurityEventsTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *SearchSecurityEventsTool) Name() string {
	return "search_security_events"
}

// Annotations returns tool hints for LLMs
func (t *SearchSecurityEventsTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Search Security Events")
}

// Description returns the tool description
func (t *SearchSecurityEventsTool) Description() string {
	return `Search security events using natural language, e.g. "failed logins", "privilege escalation", "port scan".

The term is matched against a catalog of security categories. When nothing matches, the term is searched
as text in the log entry and the response carries "fallback": true with the reason.`
}

// InputSchema returns the input schema
func (t *SearchSecurityEventsTool) InputSchema() interface{} {
	return t.querySchema(map[string]interface{}{
		"search_term": map[string]interface{}{
			"type":        "string",
			"description": "What to look for, in plain words.",
			"examples":    []string{"failed logins", "privilege escalation", "malware"},
		},
		"event_type": map[string]interface{}{
			"type":        "string",
			"description": "Optional catalog category; takes precedence over keywords in search_term. Other values are matched like search terms.",
			"examples":    query.EventTypes(),
		},
	}, "search_term")
}

// Execute executes the tool
func (t *SearchSecurityEventsTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	term, err := GetStringParam(arguments, "search_term", true)
	if err != nil {
		return invalidArgument(err), nil
	}
	eventType, err := GetStringParam(arguments, "event_type", false)
	if err != nil {
		return invalidArgument(err), nil
	}
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}
	return t.run(ctx, t.Name(), query.SearchIntent{SearchTerm: term, EventType: eventType}, opts)
}

// MitreTechniquesTool searches Sysmon events annotated with ATT&CK techniques.
type MitreTechniquesTool struct {
	*BaseTool
}

// NewMitreTechniquesTool creates a new tool instance
func NewMitreTechniquesTool(d Deps) *MitreTechniquesTool {
	return &MitreTechniquesTool{BaseTool: NewBaseTool(d)}
}

// Name returns the tool name
func (t *MitreTechniquesTool) Name() string {
	return "get_mitre_techniques"
}

// Annotations returns tool hints for LLMs
func (t *MitreTechniquesTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("MITRE ATT&CK Techniques")
}

// Description returns the tool description
func (t *MitreTechniquesTool) Description() string {
	return `Find events tagged with MITRE ATT&CK techniques in '` + mitre.LogSource + `'.

technique_id (e.g. T1059 or T1059.001) takes precedence over category. Without either, every annotated
technique is returned. An unknown category falls back to all techniques and is reported as "fallback": true.`
}

// InputSchema returns the input schema
func (t *MitreTechniquesTool) InputSchema() interface{} {
	return t.querySchema(map[string]interface{}{
		"category": map[string]interface{}{
			"type":        "string",
			"description": "ATT&CK tactic, or \"all\".",
			"examples":    mitre.CategoryNames(),
		},
		"technique_id": map[string]interface{}{
			"type":        "string",
			"description": "Technique or sub-technique identifier.",
			"pattern":     `^T\d{4}(\.\d{3})?$`,
		},
	})
}

// Execute executes the tool
func (t *MitreTechniquesTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	category, err := GetStringParam(arguments, "category", false)
	if err != nil {
		return invalidArgument(err), nil
	}
	if category == "all" {
		category = ""
	}
	techniqueID, err := GetStringParam(arguments, "technique_id", false)
	if err != nil {
		return invalidArgument(err), nil
	}
	if techniqueID != "" && !mitre.IsTechniqueID(techniqueID) {
		return NewToolResultErrorWithSuggestion(
			"invalid technique_id "+techniqueID,
			"Use an ATT&CK identifier such as T1059 or T1059.001"), nil
	}
	opts, err := t.parseQueryOptions(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}
	return t.run(ctx, t.Name(), query.TechniqueIntent{Category: category, TechniqueID: techniqueID}, opts)
}
