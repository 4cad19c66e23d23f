package tools

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultListLimit = 100

// listParam is one optional filter a management endpoint accepts.
type listParam struct {
	// Arg is the tool argument name, Query the endpoint query parameter.
	Arg, Query  string
	Type        string
	Description string
	Enum        []string
}

// listSpec describes one management list tool.
type listSpec struct {
	Name        string
	Title       string
	Description string
	Resource    string
	// Compartment adds compartmentId from configuration when the caller gives none.
	Compartment bool
	Params      []listParam
}

var (
	displayNameParam = listParam{Arg: "name", Query: "displayName", Type: "string", Description: "Filter by display name (substring match)."}
	isSystemParam    = listParam{Arg: "is_system", Query: "isSystem", Type: "string", Description: "ALL, BUILT_IN (Oracle defined) or CUSTOM.", Enum: []string{"ALL", "BUILT_IN", "CUSTOM"}}
	sortOrderParam   = listParam{Arg: "sort_order", Query: "sortOrder", Type: "string", Description: "ASC or DESC.", Enum: []string{"ASC", "DESC"}}
)

// listSpecs are the management collections exposed as tools.
var listSpecs = []listSpec{
	{
		Name:        "list_log_sources",
		Title:       "List Log Sources",
		Description: "List the log source definitions configured in the namespace.",
		Resource:    "sources",
		Compartment: true,
		Params:      []listParam{displayNameParam, isSystemParam, sortOrderParam},
	},
	{
		Name:        "list_log_fields",
		Title:       "List Log Fields",
		Description: "List the fields that parsed log records can carry, with their data types.",
		Resource:    "fields",
		Params: []listParam{
			displayNameParam,
			isSystemParam,
			{Arg: "is_high_cardinality", Query: "isHighCardinality", Type: "boolean", Description: "Only high or low cardinality fields."},
		},
	},
	{
		Name:        "list_entities",
		Title:       "List Entities",
		Description: "List the monitored entities (hosts, databases, services) logs are associated with.",
		Resource:    "logAnalyticsEntities",
		Compartment: true,
		Params: []listParam{
			displayNameParam,
			{Arg: "entity_type", Query: "entityTypeName", Type: "string", Description: "Entity type name, e.g. Host (Linux)."},
			{Arg: "lifecycle_state", Query: "lifecycleState", Type: "string", Description: "ACTIVE or DELETED.", Enum: []string{"ACTIVE", "DELETED"}},
		},
	},
	{
		Name:        "list_parsers",
		Title:       "List Parsers",
		Description: "List the parsers that turn raw log lines into fields.",
		Resource:    "parsers",
		Params: []listParam{
			displayNameParam,
			isSystemParam,
			{Arg: "parser_type", Query: "parserType", Type: "string", Description: "REGEX, XML, JSON, ODL or DELIMITED.", Enum: []string{"ALL", "REGEX", "XML", "JSON", "ODL", "DELIMITED"}},
		},
	},
	{
		Name:        "list_labels",
		Title:       "List Labels",
		Description: "List the labels log sources can attach to records, such as problem priorities.",
		Resource:    "labels",
		Params: []listParam{
			displayNameParam,
			{Arg: "label_type", Query: "labelType", Type: "string", Description: "ALL, PRIORITY or PROBLEM.", Enum: []string{"ALL", "PRIORITY", "PROBLEM"}},
		},
	},
	{
		Name:        "list_log_groups",
		Title:       "List Log Groups",
		Description: "List the log groups that control access to collected logs.",
		Resource:    "logAnalyticsLogGroups",
		Compartment: true,
		Params:      []listParam{displayNameParam},
	},
	{
		Name:        "list_lookups",
		Title:       "List Lookups",
		Description: "List the lookup tables used to enrich log records.",
		Resource:    "lookups",
		Params: []listParam{
			{Arg: "lookup_type", Query: "type", Type: "string", Description: "Lookup or Dictionary.", Enum: []string{"Lookup", "Dictionary"}},
			displayNameParam,
		},
	},
	{
		Name:        "list_scheduled_tasks",
		Title:       "List Scheduled Tasks",
		Description: "List scheduled tasks such as saved-search alerts and purges.",
		Resource:    "scheduledTasks",
		Compartment: true,
		Params: []listParam{
			{Arg: "task_type", Query: "taskType", Type: "string", Description: "Task type.", Enum: []string{"SAVED_SEARCH", "ACCELERATION", "PURGE", "ACCELERATION_MAINTENANCE"}},
			displayNameParam,
		},
	},
	{
		Name:        "list_uploads",
		Title:       "List Uploads",
		Description: "List on-demand log uploads.",
		Resource:    "uploads",
		Params:      []listParam{{Arg: "name", Query: "name", Type: "string", Description: "Filter by upload name."}},
	},
	{
		Name:        "list_categories",
		Title:       "List Categories",
		Description: "List the categories used to classify sources, parsers and fields.",
		Resource:    "categories",
		Params: []listParam{
			{Arg: "category_type", Query: "categoryType", Type: "string", Description: "Category type, e.g. VENDOR or PRODUCT."},
			{Arg: "name", Query: "name", Type: "string", Description: "Filter by category name."},
		},
	},
}

// ListTool lists one management collection.
type ListTool struct {
	*BaseTool
	spec listSpec
}

// NewListTools creates one tool per management collection.
func NewListTools(d Deps) []Tool {
	base := NewBaseTool(d)
	out := make([]Tool, len(listSpecs))
	for i, spec := range listSpecs {
		out[i] = &ListTool{BaseTool: base, spec: spec}
	}
	return out
}

// Name returns the tool name
func (t *ListTool) Name() string {
	return t.spec.Name
}

// Annotations returns tool hints for LLMs
func (t *ListTool) Annotations() *mcp.ToolAnnotations {
	return ReadOnlyAnnotations(t.spec.Title)
}

// DefaultTimeout returns the management timeout
func (t *ListTool) DefaultTimeout() time.Duration {
	return DefaultManagementTimeout
}

// Description returns the tool description
func (t *ListTool) Description() string {
	return t.spec.Description + " Results are paged; pass next_page back as page for more."
}

// InputSchema returns the input schema
func (t *ListTool) InputSchema() interface{} {
	props := map[string]interface{}{
		"limit": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum number of items per page.",
			"minimum":     1,
			"maximum":     1000,
			"default":     defaultListLimit,
		},
		"page": map[string]interface{}{
			"type":        "string",
			"description": "Page token from a previous next_page.",
		},
	}
	if t.spec.Compartment {
		props["compartment_id"] = map[string]interface{}{
			"type":        "string",
			"description": "Compartment OCID. Defaults to the configured compartment.",
		}
	}
	for _, p := range t.spec.Params {
		prop := map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[p.Arg] = prop
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
}

type listResponse struct {
	Resource string                   `json:"resource"`
	Count    int                      `json:"count"`
	Items    []map[string]interface{} `json:"items"`
	NextPage string                   `json:"next_page,omitempty"`
}

// Execute executes the tool
func (t *ListTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	params, err := t.queryParams(arguments)
	if err != nil {
		return invalidArgument(err), nil
	}
	if t.backend == nil {
		return HandleError(errNoBackend, t.Name()), nil
	}

	resp, err := t.backend.List(ctx, t.spec.Resource, params)
	recordCall(ctx, func(c *CallInfo) {
		c.Err = err
		if resp != nil {
			c.ResultCount = len(resp.Items)
		}
	})
	if err != nil {
		return HandleError(err, t.Name()), nil
	}

	items := resp.Items
	if items == nil {
		items = []map[string]interface{}{}
	}
	return t.FormatResponse(listResponse{
		Resource: t.spec.Resource,
		Count:    len(items),
		Items:    items,
		NextPage: resp.NextPage,
	})
}

// queryParams maps tool arguments to endpoint query parameters.
func (t *ListTool) queryParams(arguments map[string]interface{}) (url.Values, error) {
	params := url.Values{}

	limit, err := GetIntParam(arguments, "limit", false)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	params.Set("limit", strconv.Itoa(min(limit, 1000)))

	page, err := GetStringParam(arguments, "page", false)
	if err != nil {
		return nil, err
	}
	if page != "" {
		params.Set("page", page)
	}

	if t.spec.Compartment {
		compartment, err := GetStringParam(arguments, "compartment_id", false)
		if err != nil {
			return nil, err
		}
		if compartment == "" {
			compartment = t.limits.CompartmentID
		}
		if compartment != "" {
			params.Set("compartmentId", compartment)
		}
	}

	for _, p := range t.spec.Params {
		var value string
		switch p.Type {
		case "boolean":
			if _, ok := arguments[p.Arg]; !ok {
				continue
			}
			b, err := GetBoolParam(arguments, p.Arg, false)
			if err != nil {
				return nil, err
			}
			value = strconv.FormatBool(b)
		default:
			if value, err = GetStringParam(arguments, p.Arg, false); err != nil {
				return nil, err
			}
		}
		if value != "" {
			params.Set(p.Query, value)
		}
	}
	return params, nil
}
