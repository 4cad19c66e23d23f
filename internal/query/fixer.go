package query

import (
	"fmt"
	"regexp"
	"strings"
)

// FixRule is one textual correction. Apply must return its input unchanged
// when the rule does not match.
type FixRule struct {
	Name        string
	Description string
	Apply       func(string) string
}

// FixRules are applied in order by Fix.
var FixRules = []FixRule{
	{
		Name:        RuleTimeCapital,
		Description: "capitalize bare time field references as Time",
		Apply:       capitalizeTime,
	},
	{
		Name:        RuleQuotedFields,
		Description: "single-quote known multi-word field names",
		Apply:       quoteMultiWordFields,
	},
	{
		Name:        RuleNullComparison,
		Description: "rewrite != null / == null as is not null / is null",
		Apply:       rewriteNullComparisons,
	},
	{
		Name:        RuleCountStar,
		Description: "rewrite count(*) as count",
		Apply:       rewriteCountStar,
	},
	{
		Name:        RuleLeadingTop,
		Description: "rewrite a leading top N <field> as stats count by <field> | sort -count | head N",
		Apply:       rewriteTop,
	},
}

// Fix applies every FixRule in order. Fix(Fix(q)) == Fix(q).
func Fix(q string) string {
	fixed, _ := AutoFix(q)
	return fixed
}

// AutoFix is Fix that also reports which corrections were made.
func AutoFix(q string) (string, []string) {
	var corrections []string
	for _, rule := range FixRules {
		next := rule.Apply(q)
		if next != q {
			corrections = append(corrections, rule.Description)
			q = next
		}
	}
	return q, corrections
}

func capitalizeTime(q string) string {
	return replaceOutsideLiterals(q, lowerTimePattern, "Time")
}

func quoteMultiWordFields(q string) string {
	return replaceOutsideLiterals(q, multiWordRegex, "'${0}'")
}

var (
	notNullPattern = regexp.MustCompile(`\s*!=\s*(?i:null)\b`)
	isNullPattern  = regexp.MustCompile(`\s*==\s*(?i:null)\b`)
)

func rewriteNullComparisons(q string) string {
	q = replaceOutsideLiterals(q, notNullPattern, " is not null")
	return replaceOutsideLiterals(q, isNullPattern, " is null")
}

func rewriteCountStar(q string) string {
	return replaceOutsideLiterals(q, countStarPattern, "count")
}

var leadingTopFieldPattern = regexp.MustCompile(`(?i)^\s*top\s+(\d+)\s+(\S.*?)\s*$`)

func rewriteTop(q string) string {
	stages := splitStages(q)
	changed := false

	for i, stage := range stages {
		masked := scan(stage).masked
		var core string
		if m := topCountPattern.FindStringSubmatchIndex(masked); m != nil {
			countCol := strings.TrimSpace(stage[m[3]:])
			core = fmt.Sprintf("sort -%s | head %s", countCol, stage[m[2]:m[3]])
			if i == 0 {
				core = "* | " + core
			}
		} else if m := leadingTopFieldPattern.FindStringSubmatchIndex(masked); i == 0 && m != nil {
			core = fmt.Sprintf("* | stats count by %s | sort -count | head %s", stage[m[4]:m[5]], stage[m[2]:m[3]])
		} else {
			continue
		}
		stages[i] = keepPadding(stage, core)
		changed = true
	}

	if !changed {
		return q
	}
	return strings.Join(stages, "|")
}

// keepPadding wraps replacement in the leading and trailing whitespace of original.
func keepPadding(original, replacement string) string {
	trimmedLeft := strings.TrimLeft(original, " \t\r\n")
	lead := original[:len(original)-len(trimmedLeft)]
	trail := trimmedLeft[len(strings.TrimRight(trimmedLeft, " \t\r\n")):]
	return lead + replacement + trail
}
