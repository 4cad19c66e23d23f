package query

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationResult is the outcome of Validate. IsValid is true iff Errors is empty.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// Rule names, exposed for metrics labels and the reference resource.
const (
	RuleNotEmpty       = "not_empty"
	RuleTimeCapital    = "time_capitalization"
	RuleQuotedFields   = "quoted_multiword_fields"
	RuleNullComparison = "null_comparison"
	RuleCountStar      = "count_star"
	RuleLeadingTop     = "leading_top"
	RuleBalancedQuotes = "balanced_quotes"
)

// Violation is one rule failure.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// RuleDoc describes a validation rule for reference output.
type RuleDoc struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ValidationRules documents the rule set in evaluation order.
var ValidationRules = []RuleDoc{
	{RuleNotEmpty, "query must not be empty"},
	{RuleTimeCapital, "the time field is written Time, never time"},
	{RuleQuotedFields, "field names containing spaces must be single-quoted, e.g. 'Log Source'"},
	{RuleNullComparison, "use 'is null' / 'is not null' instead of '== null' / '!= null'"},
	{RuleCountStar, "count(*) is not supported; use bare count"},
	{RuleLeadingTop, "top N cannot lead a query or rank the count column; use sort -count | head N"},
	{RuleBalancedQuotes, "every quoted literal must be terminated"},
}

var (
	lowerTimePattern  = regexp.MustCompile(`\btime\b`)
	nullCompPattern   = regexp.MustCompile(`(?i)(!=|==)\s*null\b`)
	countStarPattern  = regexp.MustCompile(`(?i)\bcount\s*\(\s*\*\s*\)`)
	leadingTopPattern = regexp.MustCompile(`(?i)^\s*top\s+(\d+)\b`)
	topCountPattern   = regexp.MustCompile(`(?i)^\s*top\s+(\d+)\s+count\s*$`)
)

// Validate checks q against every rule and reports all violations.
func Validate(q string) ValidationResult {
	violations := Check(q)
	errs := make([]string, len(violations))
	for i, v := range violations {
		errs[i] = v.Message
	}
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// Check is Validate with rule names attached to each violation.
func Check(q string) []Violation {
	if strings.TrimSpace(q) == "" {
		return []Violation{{Rule: RuleNotEmpty, Message: "query must not be empty"}}
	}

	var out []Violation
	add := func(rule, format string, args ...interface{}) {
		out = append(out, Violation{Rule: rule, Message: fmt.Sprintf(format, args...)})
	}

	if hits := findOutsideLiterals(q, lowerTimePattern); len(hits) > 0 {
		add(RuleTimeCapital, "field 'time' must be capitalized as 'Time' (found %d lowercase reference(s))", len(hits))
	}

	for _, field := range uniqueFold(findOutsideLiterals(q, multiWordRegex)) {
		add(RuleQuotedFields, "field name %q contains a space and must be single-quoted: '%s'", field, field)
	}

	for _, hit := range findOutsideLiterals(q, nullCompPattern) {
		replacement := "is null"
		if strings.HasPrefix(hit, "!=") {
			replacement = "is not null"
		}
		add(RuleNullComparison, "use '%s' instead of '%s'", replacement, hit)
	}

	if hits := findOutsideLiterals(q, countStarPattern); len(hits) > 0 {
		add(RuleCountStar, "'%s' is not supported; use bare 'count'", hits[0])
	}

	for i, stage := range splitStages(q) {
		masked := scan(stage).masked
		if i == 0 {
			if m := leadingTopPattern.FindStringSubmatch(masked); m != nil {
				add(RuleLeadingTop, "'top %s' cannot be used as a leading command; use 'sort -count | head %s'", m[1], m[1])
				continue
			}
		}
		if m := topCountPattern.FindStringSubmatch(masked); m != nil {
			add(RuleLeadingTop, "'top %s count' is not supported; use 'sort -count | head %s'", m[1], m[1])
		}
	}

	if s := scan(q); s.unterminated != 0 {
		add(RuleBalancedQuotes, "unterminated %c quoted literal", s.unterminated)
	}

	return out
}

// uniqueFold removes case-insensitive duplicates while keeping first-seen order.
func uniqueFold(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(strings.Join(strings.Fields(v), " "))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
