package query

import (
	"fmt"
	"slices"
	"strings"
)

// StatType is a statistics verb.
type StatType string

const (
	StatStats      StatType = "stats"
	StatTimestats  StatType = "timestats"
	StatEventstats StatType = "eventstats"
	StatTop        StatType = "top"
	StatBottom     StatType = "bottom"
	StatFrequent   StatType = "frequent"
	StatRare       StatType = "rare"
)

// StatTypes lists the supported verbs in schema order.
var StatTypes = []StatType{
	StatStats, StatTimestats, StatEventstats, StatTop, StatBottom, StatFrequent, StatRare,
}

// AggregateFunctions lists the accepted aggregation functions.
var AggregateFunctions = []string{
	"count", "distinctcount", "sum", "avg", "min", "max",
	"median", "stddev", "earliest", "latest", "values", "unique",
}

const (
	defaultStatLimit = 10
	defaultInterval  = "1h"
)

// Aggregation is one (function, field?, alias?) spec.
type Aggregation struct {
	Function string `json:"function"`
	Field    string `json:"field,omitempty"`
	Alias    string `json:"alias,omitempty"`
}

// StatisticsSpec describes a statistics stage.
type StatisticsSpec struct {
	Type         StatType      `json:"stat_type"`
	Aggregations []Aggregation `json:"aggregations,omitempty"`
	GroupBy      []string      `json:"group_by,omitempty"`
	Interval     string        `json:"interval,omitempty"`
	Limit        int           `json:"limit,omitempty"`
	Field        string        `json:"field,omitempty"`
}

// CompileStatistics renders one statistics stage.
func CompileStatistics(s StatisticsSpec) (string, error) {
	op := string(s.Type)
	groupBy := nonEmpty(s.GroupBy)

	switch s.Type {
	case StatStats, StatEventstats:
		aggs, err := renderAggregations(op, s.Aggregations)
		if err != nil {
			return "", err
		}
		return withGroupBy(op+" "+aggs, groupBy), nil

	case StatTimestats:
		aggs, err := renderAggregations(op, s.Aggregations)
		if err != nil {
			return "", err
		}
		interval := firstNonEmpty(s.Interval, defaultInterval)
		if !spanPattern.MatchString(interval) {
			return "", paramErr(FamilyStatistics, op, "interval", "expected a bucket size such as 5m, 1h or 1d")
		}
		return withGroupBy(op+" "+aggs, groupBy) + " span = " + interval, nil

	case StatTop, StatBottom, StatFrequent, StatRare:
		field := firstNonEmpty(s.Field, first(groupBy))
		if field == "" {
			return "", paramErr(FamilyStatistics, op, "field", "a field (or one group_by field) is required")
		}
		limit := s.Limit
		if limit < 0 {
			return "", paramErr(FamilyStatistics, op, "limit", "must be positive")
		}
		if limit == 0 {
			limit = defaultStatLimit
		}
		return fmt.Sprintf("%s %d %s", op, limit, QuoteField(field)), nil

	default:
		names := make([]string, len(StatTypes))
		for i, t := range StatTypes {
			names[i] = string(t)
		}
		return "", &UnsupportedOperationError{Family: FamilyStatistics, Operation: op, Supported: names}
	}
}

func renderAggregations(op string, aggs []Aggregation) (string, error) {
	if len(aggs) == 0 {
		return "count", nil
	}
	parts := make([]string, 0, len(aggs))
	for _, a := range aggs {
		rendered, err := renderAggregation(op, a)
		if err != nil {
			return "", err
		}
		parts = append(parts, rendered)
	}
	return strings.Join(parts, ", "), nil
}

func renderAggregation(op string, a Aggregation) (string, error) {
	raw := strings.TrimSpace(a.Function)
	fn := strings.ToLower(raw)
	field := strings.TrimSpace(a.Field)

	// Accept "count(*)" or "avg(Duration)" written inline.
	if open := strings.Index(fn, "("); open > 0 && strings.HasSuffix(fn, ")") {
		if field == "" {
			field = strings.TrimSpace(raw[open+1 : len(raw)-1])
		}
		fn = strings.TrimSpace(fn[:open])
	}

	if !slices.Contains(AggregateFunctions, fn) {
		return "", &UnsupportedOperationError{Family: FamilyStatistics, Operation: op + "." + fn, Supported: AggregateFunctions}
	}

	var rendered string
	switch {
	case fn == "count" && (field == "" || field == "*"):
		rendered = "count"
	case field == "" || field == "*":
		return "", paramErr(FamilyStatistics, op, "aggregations", fmt.Sprintf("%s requires a field", fn))
	default:
		rendered = fmt.Sprintf("%s(%s)", fn, QuoteField(field))
	}

	if alias := strings.TrimSpace(a.Alias); alias != "" {
		rendered += " as " + QuoteField(alias)
	}
	return rendered, nil
}
