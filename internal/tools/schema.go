package tools

import (
	"github.com/tareqmamari/logan-mcp-server/internal/timerange"
)

// enumOf converts a typed enumeration to the string slice a JSON schema wants.
func enumOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func timeRangeProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Time window ending now. Unknown values fall back to 24h.",
		"enum":        timerange.Tokens(),
		"default":     timerange.DefaultToken,
	}
}

func maxCountProperty(limit int) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Maximum number of rows to return.",
		"minimum":     1,
		"maximum":     limit,
	}
}

func dryRunProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "boolean",
		"description": "Return the compiled query without executing it.",
		"default":     false,
	}
}

func baseQueryProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
		"default":     "*",
	}
}

// querySchema builds an object schema carrying the shared query options.
func (t *BaseTool) querySchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	properties["time_range"] = timeRangeProperty()
	properties["max_count"] = maxCountProperty(t.limits.MaxCountLimit)
	properties["dry_run"] = dryRunProperty()
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
