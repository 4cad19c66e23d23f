package query

import (
	"fmt"
	"strings"
)

// MatchMode selects how a pattern is compared.
type MatchMode string

const (
	MatchWildcard MatchMode = "wildcard"
	MatchRegex    MatchMode = "regex"
	MatchExact    MatchMode = "exact"
	MatchContains MatchMode = "contains"
)

// MatchModes lists the supported modes in schema order.
var MatchModes = []MatchMode{MatchWildcard, MatchRegex, MatchExact, MatchContains}

// AnyFieldTargets are searched when no field list is given.
var AnyFieldTargets = []string{"Log Entry", "Message"}

// PatternSpec describes a pattern search filter.
type PatternSpec struct {
	Pattern         string    `json:"pattern"`
	Mode            MatchMode `json:"match_mode"`
	Fields          []string  `json:"fields,omitempty"`
	Severity        string    `json:"severity,omitempty"`
	Host            string    `json:"host,omitempty"`
	IPAddress       string    `json:"ip_address,omitempty"`
	LogSources      []string  `json:"log_sources,omitempty"`
	ExcludePatterns []string  `json:"exclude_patterns,omitempty"`
}

// CompilePatternFilter renders a filter predicate for the base of a query.
func CompilePatternFilter(p PatternSpec) (string, error) {
	mode := p.Mode
	if mode == "" {
		mode = MatchContains
	}
	if strings.TrimSpace(p.Pattern) == "" {
		return "", paramErr(FamilyPattern, string(mode), "pattern", "a pattern is required")
	}

	fields := nonEmpty(p.Fields)
	if len(fields) == 0 {
		fields = AnyFieldTargets
	}

	include, err := matchAny(mode, p.Pattern, fields)
	if err != nil {
		return "", err
	}
	clauses := []string{include}

	if sev := strings.TrimSpace(p.Severity); sev != "" && !strings.EqualFold(sev, "all") {
		clauses = append(clauses, "Severity = "+QuoteValue(sev))
	}
	if host := strings.TrimSpace(p.Host); host != "" {
		clauses = append(clauses, QuoteField("Host Name")+" = "+QuoteValue(host))
	}
	if ip := strings.TrimSpace(p.IPAddress); ip != "" {
		clauses = append(clauses, fmt.Sprintf("(%s = %s or %s = %s)",
			QuoteField("Source IP"), QuoteValue(ip), QuoteField("Destination IP"), QuoteValue(ip)))
	}
	if sources := nonEmpty(p.LogSources); len(sources) == 1 {
		clauses = append(clauses, QuoteField("Log Source")+" = "+QuoteValue(sources[0]))
	} else if len(sources) > 1 {
		clauses = append(clauses, InList("Log Source", sources))
	}
	for _, excl := range nonEmpty(p.ExcludePatterns) {
		predicate, err := matchAny(mode, excl, fields)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, "not "+parenthesize(predicate))
	}

	return strings.Join(clauses, " and "), nil
}

// matchAny ORs the per-field predicate over fields.
func matchAny(mode MatchMode, pattern string, fields []string) (string, error) {
	predicates := make([]string, 0, len(fields))
	for _, f := range fields {
		p, err := matchField(mode, pattern, QuoteField(f))
		if err != nil {
			return "", err
		}
		predicates = append(predicates, p)
	}
	if len(predicates) == 1 {
		return predicates[0], nil
	}
	return "(" + strings.Join(predicates, " or ") + ")", nil
}

func matchField(mode MatchMode, pattern, field string) (string, error) {
	switch mode {
	case MatchExact:
		return field + " = " + QuoteValue(pattern), nil
	case MatchContains:
		return field + " like " + QuoteValue("%"+pattern+"%"), nil
	case MatchWildcard:
		translated := strings.NewReplacer("*", "%", "?", "_").Replace(pattern)
		return field + " like " + QuoteValue(translated), nil
	case MatchRegex:
		return field + " like regex " + QuoteValue(pattern), nil
	default:
		names := make([]string, len(MatchModes))
		for i, m := range MatchModes {
			names[i] = string(m)
		}
		return "", &UnsupportedOperationError{Family: FamilyPattern, Operation: string(mode), Supported: names}
	}
}

func parenthesize(expr string) string {
	if strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		return expr
	}
	return "(" + expr + ")"
}
