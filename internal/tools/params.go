package tools

import (
	"fmt"
	"strconv"
	"strings"
)

// GetStringParam safely gets a string parameter from arguments
// It also handles numeric values and converts them to strings
func GetStringParam(arguments map[string]interface{}, key string, required bool) (string, error) {
	val, ok := arguments[key]
	if !ok || val == nil {
		if required {
			return "", errMissing(key)
		}
		return "", nil
	}

	switch v := val.(type) {
	case string:
		if required && strings.TrimSpace(v) == "" {
			return "", fmt.Errorf("argument %s must not be empty", key)
		}
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return "", fmt.Errorf("invalid type for argument %s: expected string or number, got %T", key, val)
	}
}

// GetIntParam safely gets an integer parameter from arguments
func GetIntParam(arguments map[string]interface{}, key string, required bool) (int, error) {
	val, ok := arguments[key]
	if !ok || val == nil {
		if required {
			return 0, errMissing(key)
		}
		return 0, nil
	}

	switch v := val.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("argument %s must be a whole number", key)
		}
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("invalid value for argument %s: %w", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("invalid type for argument %s: expected number or string, got %T", key, val)
	}
}

// GetFloatParam safely gets a floating point parameter from arguments
func GetFloatParam(arguments map[string]interface{}, key string, required bool) (float64, error) {
	val, ok := arguments[key]
	if !ok || val == nil {
		if required {
			return 0, errMissing(key)
		}
		return 0, nil
	}

	switch v := val.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid value for argument %s: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("invalid type for argument %s: expected number, got %T", key, val)
	}
}

// GetBoolParam safely gets a boolean parameter from arguments
func GetBoolParam(arguments map[string]interface{}, key string, required bool) (bool, error) {
	val, ok := arguments[key]
	if !ok || val == nil {
		if required {
			return false, errMissing(key)
		}
		return false, nil
	}

	switch v := val.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("invalid type for argument %s: expected boolean or string, got %T", key, val)
	}
}

// GetBoolParamDefault is GetBoolParam for optional flags with a non-false default.
func GetBoolParamDefault(arguments map[string]interface{}, key string, def bool) (bool, error) {
	if _, ok := arguments[key]; !ok {
		return def, nil
	}
	return GetBoolParam(arguments, key, false)
}

// GetArrayParam safely gets an array parameter from arguments
func GetArrayParam(arguments map[string]interface{}, key string, required bool) ([]interface{}, error) {
	val, ok := arguments[key]
	if !ok || val == nil {
		if required {
			return nil, errMissing(key)
		}
		return nil, nil
	}

	arr, ok := val.([]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid type for argument %s: expected array", key)
	}

	return arr, nil
}

// GetStringArrayParam gets a list of strings. A single comma-separated string
// is accepted too, since callers often send "a, b" for a field list.
func GetStringArrayParam(arguments map[string]interface{}, key string, required bool) ([]string, error) {
	if s, ok := arguments[key].(string); ok {
		var result []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
		if required && len(result) == 0 {
			return nil, fmt.Errorf("argument %s must not be empty", key)
		}
		return result, nil
	}

	arr, err := GetArrayParam(arguments, key, required)
	if err != nil {
		return nil, err
	}
	if arr == nil {
		return nil, nil
	}

	result := make([]string, 0, len(arr))
	for i, v := range arr {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("invalid type for element %d of argument %s: expected string", i, key)
		}
		if s = strings.TrimSpace(s); s != "" {
			result = append(result, s)
		}
	}
	if required && len(result) == 0 {
		return nil, fmt.Errorf("argument %s must not be empty", key)
	}

	return result, nil
}

func errMissing(key string) error {
	return fmt.Errorf("missing required argument: %s", key)
}
