// Package query validates, repairs and compiles pipeline queries for
// OCI Logging Analytics.
package query

import (
	"regexp"
	"strings"
)

// maskByte replaces every byte of a quoted literal in masked text. It is not
// a word character, not whitespace and never appears in real queries, so
// regular expressions run against masked text cannot match inside literals.
const maskByte = 0x00

// scanResult is a query alongside a copy of the same length in which every
// quoted literal (quotes included) has been blanked out.
type scanResult struct {
	text         string
	masked       string
	unterminated byte
}

// scan masks single and double quoted literals. Backslash escapes are honoured
// inside literals. An unterminated literal is masked to the end of input and
// its quote character recorded.
func scan(q string) scanResult {
	masked := []byte(q)
	var quote byte
	escaped := false
	for i := 0; i < len(q); i++ {
		c := q[i]
		if quote != 0 {
			masked[i] = maskByte
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			masked[i] = maskByte
		}
	}
	return scanResult{text: q, masked: string(masked), unterminated: quote}
}

// replaceOutsideLiterals applies re to the unquoted parts of q only.
// repl follows regexp.Expand template syntax.
func replaceOutsideLiterals(q string, re *regexp.Regexp, repl string) string {
	s := scan(q)
	matches := re.FindAllStringSubmatchIndex(s.masked, -1)
	if len(matches) == 0 {
		return q
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(q[last:m[0]])
		b.Write(re.ExpandString(nil, repl, q, m))
		last = m[1]
	}
	b.WriteString(q[last:])
	return b.String()
}

// findOutsideLiterals returns the original text of every match of re outside literals.
func findOutsideLiterals(q string, re *regexp.Regexp) []string {
	s := scan(q)
	var out []string
	for _, m := range re.FindAllStringIndex(s.masked, -1) {
		out = append(out, q[m[0]:m[1]])
	}
	return out
}

// splitStages splits q on pipes that are outside literals and outside
// bracketed subqueries.
func splitStages(q string) []string {
	s := scan(q)
	var stages []string
	last, depth := 0, 0
	for i := 0; i < len(s.masked); i++ {
		switch s.masked[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case '|':
			if depth == 0 {
				stages = append(stages, q[last:i])
				last = i + 1
			}
		}
	}
	return append(stages, q[last:])
}

// balanced reports whether q has no unterminated literal.
func balanced(q string) bool {
	return scan(q).unterminated == 0
}

// bracketsBalanced reports whether every '[' outside literals is closed in order.
func bracketsBalanced(q string) bool {
	m := scan(q).masked
	depth := 0
	for i := 0; i < len(m); i++ {
		switch m[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

var timePredicatePattern = regexp.MustCompile(`(?i)\btime\s*(>=|<=|>|<|=)\s*(\S*)|\btime\s+between\b|\bdateRelative\s*\(`)

// HasTimePredicate reports whether q already bounds Time anywhere outside
// literals. Null checks and "!=" do not bound the window.
func HasTimePredicate(q string) bool {
	for _, m := range timePredicatePattern.FindAllStringSubmatch(scan(q).masked, -1) {
		if m[1] != "" && strings.EqualFold(strings.TrimRight(m[2], ")"), "null") {
			continue
		}
		return true
	}
	return false
}

// hasTopLevelOr reports whether an unparenthesised "or" joins terms of expr.
func hasTopLevelOr(expr string) bool {
	m := scan(expr).masked
	depth := 0
	for i := 0; i < len(m); i++ {
		switch m[i] {
		case '(':
			depth++
		case ')':
			depth--
		case 'o', 'O':
			if depth != 0 || i+1 >= len(m) || (m[i+1] != 'r' && m[i+1] != 'R') {
				continue
			}
			if (i == 0 || !isWordByte(m[i-1])) && (i+2 == len(m) || !isWordByte(m[i+2])) {
				return true
			}
		}
	}
	return false
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
