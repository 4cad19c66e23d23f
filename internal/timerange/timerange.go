// Package timerange resolves symbolic time range tokens into absolute UTC windows
// and renders them as either an embeddable query predicate or a structured time filter.
package timerange

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultToken is used for any token outside the vocabulary.
const DefaultToken = "24h"

// DefaultMinutes is the window length of DefaultToken.
const DefaultMinutes = 1440

// MaxMinutes is the longest window the vocabulary can express (90d).
const MaxMinutes = 129600

// ISOLayout renders instants the way the backend expects them: millisecond
// precision with a literal Z suffix. Callers must convert to UTC first.
const ISOLayout = "2006-01-02T15:04:05.000Z"

var minutesByToken = map[string]int{
	"1h":  60,
	"6h":  360,
	"12h": 720,
	"24h": 1440,
	"1d":  1440,
	"7d":  10080,
	"1w":  10080,
	"30d": 43200,
	"1m":  43200,
	"90d": 129600,
}

// TimeFilter is the structured time filter sent next to the query string
// instead of being concatenated into it.
type TimeFilter struct {
	TimeStart string `json:"timeStart"`
	TimeEnd   string `json:"timeEnd"`
	TimeZone  string `json:"timeZone"`
}

// Window is an absolute [Start, End] interval derived from a token.
type Window struct {
	Token   string    `json:"token"`
	Minutes int       `json:"minutes"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Label   string    `json:"label"`
}

// Minutes returns the window length for token, or DefaultMinutes when the
// token is not recognised.
func Minutes(token string) int {
	if m, ok := minutesByToken[normalize(token)]; ok {
		return m
	}
	return DefaultMinutes
}

// IsKnown reports whether token is part of the vocabulary.
func IsKnown(token string) bool {
	_, ok := minutesByToken[normalize(token)]
	return ok
}

// Tokens returns the recognised vocabulary ordered by window length.
func Tokens() []string {
	tokens := make([]string, 0, len(minutesByToken))
	for t := range minutesByToken {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool {
		mi, mj := minutesByToken[tokens[i]], minutesByToken[tokens[j]]
		if mi != mj {
			return mi < mj
		}
		return tokens[i] < tokens[j]
	})
	return tokens
}

// Resolve maps token to a window ending at now. Unknown tokens silently fall
// back to the 24h default.
func Resolve(token string, now time.Time) Window {
	canonical := normalize(token)
	minutes, ok := minutesByToken[canonical]
	if !ok {
		canonical = DefaultToken
		minutes = DefaultMinutes
	}
	w := window(minutes, now)
	w.Token = canonical
	return w
}

// FromMinutes builds a window of an explicit length, clamped to [1, MaxMinutes].
func FromMinutes(minutes int, now time.Time) Window {
	if minutes < 1 {
		minutes = 1
	}
	if minutes > MaxMinutes {
		minutes = MaxMinutes
	}
	w := window(minutes, now)
	w.Token = fmt.Sprintf("%dmin", minutes)
	return w
}

func window(minutes int, now time.Time) Window {
	end := now.UTC().Truncate(time.Millisecond)
	return Window{
		Minutes: minutes,
		Start:   end.Add(-time.Duration(minutes) * time.Minute),
		End:     end,
		Label:   Describe(minutes),
	}
}

// Describe renders a coarse description such as "Last 24 Hours" or "Last 30 Days".
func Describe(minutes int) string {
	switch {
	case minutes < 60:
		return plural(minutes, "Minute")
	case minutes <= DefaultMinutes:
		return plural(minutes/60, "Hour")
	default:
		return plural(minutes/DefaultMinutes, "Day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "Last 1 " + unit
	}
	return fmt.Sprintf("Last %d %ss", n, unit)
}

// StartISO returns the window start in wire format.
func (w Window) StartISO() string {
	return w.Start.UTC().Format(ISOLayout)
}

// EndISO returns the window end in wire format.
func (w Window) EndISO() string {
	return w.End.UTC().Format(ISOLayout)
}

// FilterFragment renders the window as an embeddable predicate.
func (w Window) FilterFragment() string {
	return fmt.Sprintf("Time >= '%s' and Time <= '%s'", w.StartISO(), w.EndISO())
}

// TimeFilter renders the window as a structured filter object.
func (w Window) TimeFilter() TimeFilter {
	return TimeFilter{
		TimeStart: w.StartISO(),
		TimeEnd:   w.EndISO(),
		TimeZone:  "UTC",
	}
}

func normalize(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}
