package query

import (
	"regexp"
	"sort"
	"strings"
)

// MultiWordFields are the field names the fixer knows to quote. The list
// covers the common OCI and Sysmon sources; anything else must be quoted by
// the caller.
var MultiWordFields = []string{
	"Log Source",
	"Log Entry",
	"Log Group",
	"Event Name",
	"Event Type",
	"Event ID",
	"Host Name",
	"Host IP Address",
	"Source IP",
	"Destination IP",
	"Source Port",
	"Destination Port",
	"Source Address",
	"Destination Address",
	"User Name",
	"Principal Name",
	"Compartment Name",
	"Entity Type",
	"Entity Name",
	"Problem Name",
	"Resource Name",
	"Request Action",
	"Client Host Country",
	"Client Host City",
	"Content Size",
	"Error Message",
	"Original Log Content",
	"Upload Name",
}

var (
	bareIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	multiWordRegex = buildMultiWordRegex()
)

// buildMultiWordRegex matches any known multi-word field, longest first,
// tolerating runs of whitespace between words.
func buildMultiWordRegex() *regexp.Regexp {
	fields := make([]string, len(MultiWordFields))
	copy(fields, MultiWordFields)
	sort.Slice(fields, func(i, j int) bool { return len(fields[i]) > len(fields[j]) })

	alts := make([]string, len(fields))
	for i, f := range fields {
		words := strings.Fields(f)
		for j, w := range words {
			words[j] = regexp.QuoteMeta(w)
		}
		alts[i] = strings.Join(words, `\s+`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
}

// QuoteField renders a field reference. Plain identifiers stay bare; anything
// else is single-quoted. Input that is already quoted is returned as is.
func QuoteField(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || bareIdentifier.MatchString(name) || isQuoted(name) {
		return name
	}
	return QuoteValue(name)
}

// QuoteValue single-quotes v, escaping backslashes and single quotes.
func QuoteValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// InList renders "field in ('a', 'b')".
func InList(field string, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = QuoteValue(v)
	}
	return QuoteField(field) + " in (" + strings.Join(quoted, ", ") + ")"
}

// fieldList renders a comma separated list of field references.
func fieldList(fields []string) string {
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			quoted = append(quoted, QuoteField(f))
		}
	}
	return strings.Join(quoted, ", ")
}

// nonEmpty drops blank entries.
func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	q := s[0]
	if (q != '\'' && q != '"') || s[len(s)-1] != q {
		return false
	}
	sc := scan(s)
	if sc.unterminated != 0 {
		return false
	}
	// The literal must span the whole string, not just open and close it.
	for i := 1; i < len(sc.masked); i++ {
		if sc.masked[i] != maskByte {
			return false
		}
	}
	return true
}
