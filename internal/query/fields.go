package query

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// FieldOp is a field transformation verb.
type FieldOp string

const (
	FieldExtract   FieldOp = "extract"
	FieldEval      FieldOp = "eval"
	FieldAddFields FieldOp = "addfields"
	FieldRename    FieldOp = "rename"
	FieldFields    FieldOp = "fields"
	FieldDedup     FieldOp = "dedup"
	FieldBucket    FieldOp = "bucket"
)

// FieldOps lists the supported verbs in schema order.
var FieldOps = []FieldOp{
	FieldExtract, FieldEval, FieldAddFields, FieldRename, FieldFields, FieldDedup, FieldBucket,
}

// FieldOpDetails carries the operands of every field operation.
type FieldOpDetails struct {
	Field      string            `json:"field,omitempty"`
	Pattern    string            `json:"pattern,omitempty"`
	Target     string            `json:"target,omitempty"`
	Expression string            `json:"expression,omitempty"`
	Renames    map[string]string `json:"renames,omitempty"`
	Include    []string          `json:"include,omitempty"`
	Exclude    []string          `json:"exclude,omitempty"`
	Fields     []string          `json:"fields,omitempty"`
	Boundaries []float64         `json:"boundaries,omitempty"`
	Start      *float64          `json:"start,omitempty"`
	End        *float64          `json:"end,omitempty"`
	Span       float64           `json:"span,omitempty"`
}

// CompileFieldOperation renders one field operation stage.
func CompileFieldOperation(op FieldOp, d FieldOpDetails) (string, error) {
	name := string(op)
	bad := func(param, reason string) (string, error) {
		return "", paramErr(FamilyField, name, param, reason)
	}

	switch op {
	case FieldExtract:
		if strings.TrimSpace(d.Pattern) == "" {
			return bad("pattern", "a regular expression with named groups is required")
		}
		return fmt.Sprintf("extract field = %s %s", QuoteField(firstNonEmpty(d.Field, "Message")), QuoteValue(d.Pattern)), nil

	case FieldEval:
		target := strings.TrimSpace(d.Target)
		if target == "" {
			return bad("target", "the name of the computed field is required")
		}
		if err := checkExpression(name, d.Expression); err != nil {
			return "", err
		}
		return fmt.Sprintf("eval %s = %s", QuoteField(target), strings.TrimSpace(d.Expression)), nil

	case FieldAddFields:
		sub, err := checkSubquery(name, d.Expression)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("addfields [ %s ]", sub), nil

	case FieldRename:
		if len(d.Renames) == 0 {
			return bad("renames", "at least one old→new mapping is required")
		}
		olds := make([]string, 0, len(d.Renames))
		for old := range d.Renames {
			olds = append(olds, old)
		}
		sort.Strings(olds)
		parts := make([]string, 0, len(olds))
		for _, old := range olds {
			renamed := strings.TrimSpace(d.Renames[old])
			if strings.TrimSpace(old) == "" || renamed == "" {
				return bad("renames", "field names must not be empty")
			}
			parts = append(parts, QuoteField(old)+" as "+QuoteField(renamed))
		}
		return "rename " + strings.Join(parts, ", "), nil

	case FieldFields:
		include, exclude := nonEmpty(d.Include), nonEmpty(d.Exclude)
		if len(include) == 0 && len(exclude) == 0 {
			include = nonEmpty(d.Fields)
		}
		if len(include) == 0 && len(exclude) == 0 {
			return bad("include", "at least one field to include or exclude is required")
		}
		parts := make([]string, 0, len(include)+len(exclude))
		for _, f := range include {
			parts = append(parts, QuoteField(f))
		}
		for _, f := range exclude {
			parts = append(parts, "-"+QuoteField(f))
		}
		return "fields " + strings.Join(parts, ", "), nil

	case FieldDedup:
		fields := nonEmpty(d.Fields)
		if len(fields) == 0 {
			fields = nonEmpty(d.Include)
		}
		if len(fields) == 0 {
			return bad("fields", "at least one field is required")
		}
		return "dedup " + fieldList(fields), nil

	case FieldBucket:
		return compileBucket(d)

	default:
		names := make([]string, len(FieldOps))
		for i, f := range FieldOps {
			names[i] = string(f)
		}
		return "", &UnsupportedOperationError{Family: FamilyField, Operation: name, Supported: names}
	}
}

func compileBucket(d FieldOpDetails) (string, error) {
	name := string(FieldBucket)
	field := strings.TrimSpace(d.Field)
	if field == "" {
		return "", paramErr(FamilyField, name, "field", "a numeric field is required")
	}

	if d.Span > 0 {
		if d.Start == nil || d.End == nil || *d.End <= *d.Start {
			return "", paramErr(FamilyField, name, "start", "start and end are required and end must exceed start")
		}
		return fmt.Sprintf("bucket start = %s end = %s span = %s %s",
			formatNumber(*d.Start), formatNumber(*d.End), formatNumber(d.Span), QuoteField(field)), nil
	}

	if len(d.Boundaries) < 2 {
		return "", paramErr(FamilyField, name, "boundaries", "at least two boundaries are required")
	}
	ranges := make([]string, 0, len(d.Boundaries)-1)
	for i := 1; i < len(d.Boundaries); i++ {
		if d.Boundaries[i] <= d.Boundaries[i-1] {
			return "", paramErr(FamilyField, name, "boundaries", "boundaries must be strictly increasing")
		}
		ranges = append(ranges, formatNumber(d.Boundaries[i-1])+"-"+formatNumber(d.Boundaries[i]))
	}
	return fmt.Sprintf("bucket ranges = %s %s", strings.Join(ranges, ", "), QuoteField(field)), nil
}

// checkExpression keeps caller expressions inside a single stage.
func checkExpression(op, expr string) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return paramErr(FamilyField, op, "expression", "an expression is required")
	}
	if !balanced(expr) {
		return paramErr(FamilyField, op, "expression", "unterminated quoted literal")
	}
	if len(splitStages(expr)) > 1 {
		return paramErr(FamilyField, op, "expression", "must not contain a pipe outside quotes")
	}
	return nil
}

var statsStagePattern = regexp.MustCompile(`(?i)^\s*stats\b`)

// checkSubquery validates the subquery of addfields and returns it without
// its outer brackets. Pipes are allowed inside; the subquery must aggregate
// with a stats stage so it yields the added field.
func checkSubquery(op, expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "[") && strings.HasSuffix(expr, "]") {
		if inner := expr[1 : len(expr)-1]; bracketsBalanced(inner) {
			expr = strings.TrimSpace(inner)
		}
	}
	if expr == "" {
		return "", paramErr(FamilyField, op, "expression", "a subquery is required")
	}
	if !balanced(expr) {
		return "", paramErr(FamilyField, op, "expression", "unterminated quoted literal")
	}
	if !bracketsBalanced(expr) {
		return "", paramErr(FamilyField, op, "expression", "unbalanced [ or ]")
	}
	for _, stage := range splitStages(expr) {
		if statsStagePattern.MatchString(scan(stage).masked) {
			return expr, nil
		}
	}
	return "", paramErr(FamilyField, op, "expression", "the subquery must contain a stats stage, e.g. * | where Severity = 'error' | stats count as 'Error Count'")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
