package query

import (
	"regexp"
	"strings"
)

// CorrelationType selects the correlation verb.
type CorrelationType string

const (
	CorrelationTemporal        CorrelationType = "temporal"
	CorrelationEntityBased     CorrelationType = "entity_based"
	CorrelationTransactionLink CorrelationType = "transaction_link"
	CorrelationSequence        CorrelationType = "sequence_analysis"
)

// CorrelationTypes lists the supported types in schema order.
var CorrelationTypes = []CorrelationType{
	CorrelationTemporal, CorrelationEntityBased, CorrelationTransactionLink, CorrelationSequence,
}

const (
	defaultCorrelationWindow    = "5m"
	defaultCorrelationThreshold = 0.8
)

var windowPattern = regexp.MustCompile(`^\d+[smhd]$`)

// CorrelationSpec describes a correlation stage.
type CorrelationSpec struct {
	Type      CorrelationType `json:"correlation_type"`
	Fields    []string        `json:"correlation_fields"`
	Window    string          `json:"time_window,omitempty"`
	Threshold float64         `json:"threshold,omitempty"`
}

// CompileCorrelation renders one correlation stage.
func CompileCorrelation(c CorrelationSpec) (string, error) {
	op := string(c.Type)

	switch c.Type {
	case CorrelationTemporal, CorrelationEntityBased, CorrelationTransactionLink, CorrelationSequence:
	default:
		names := make([]string, len(CorrelationTypes))
		for i, t := range CorrelationTypes {
			names[i] = string(t)
		}
		return "", &UnsupportedOperationError{Family: FamilyCorrelation, Operation: op, Supported: names}
	}

	fields := nonEmpty(c.Fields)
	if len(fields) == 0 {
		return "", paramErr(FamilyCorrelation, op, "correlation_fields", "at least one field is required")
	}
	window := strings.TrimSpace(c.Window)
	if window == "" {
		window = defaultCorrelationWindow
	}
	if !windowPattern.MatchString(window) {
		return "", paramErr(FamilyCorrelation, op, "time_window", "expected a duration such as 30s, 5m or 1h")
	}
	threshold := c.Threshold
	if threshold == 0 {
		threshold = defaultCorrelationThreshold
	}
	if threshold < 0 || threshold > 1 {
		return "", paramErr(FamilyCorrelation, op, "threshold", "must be in (0, 1]")
	}

	switch c.Type {
	case CorrelationTemporal:
		return withOption("link", "maxspan", window) + " " + fieldList(fields), nil
	case CorrelationEntityBased:
		return clusterStage(threshold, 0, fields), nil
	case CorrelationTransactionLink:
		return "link " + fieldList(fields), nil
	default:
		return withOption("sequence", "maxspan", window) + " " + fieldList(fields), nil
	}
}
