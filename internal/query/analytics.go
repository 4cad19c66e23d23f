package query

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// AnalyticsOp is an advanced analytics verb.
type AnalyticsOp string

const (
	AnalyticsCluster     AnalyticsOp = "cluster"
	AnalyticsLink        AnalyticsOp = "link"
	AnalyticsNLP         AnalyticsOp = "nlp"
	AnalyticsClassify    AnalyticsOp = "classify"
	AnalyticsOutlier     AnalyticsOp = "outlier"
	AnalyticsSequence    AnalyticsOp = "sequence"
	AnalyticsGeostats    AnalyticsOp = "geostats"
	AnalyticsTimecluster AnalyticsOp = "timecluster"
)

// AnalyticsOps lists the supported verbs in schema order.
var AnalyticsOps = []AnalyticsOp{
	AnalyticsCluster, AnalyticsLink, AnalyticsNLP, AnalyticsClassify,
	AnalyticsOutlier, AnalyticsSequence, AnalyticsGeostats, AnalyticsTimecluster,
}

// AnalyticsParams carries every option any analytics verb accepts; each verb
// reads only the fields it needs.
type AnalyticsParams struct {
	Fields      []string `json:"fields,omitempty"`
	Field       string   `json:"field,omitempty"`
	MaxClusters int      `json:"max_clusters,omitempty"`
	Threshold   float64  `json:"threshold,omitempty"`
	Span        string   `json:"span,omitempty"`
	Latitude    string   `json:"latitude_field,omitempty"`
	Longitude   string   `json:"longitude_field,omitempty"`
}

var spanPattern = regexp.MustCompile(`^\d+[smhdw]$`)

// CompileAnalytics renders one advanced analytics stage.
func CompileAnalytics(op AnalyticsOp, p AnalyticsParams) (string, error) {
	if !slices.Contains(AnalyticsOps, op) {
		return "", unsupportedAnalytics(op)
	}
	fields := nonEmpty(p.Fields)
	if p.Threshold < 0 || p.Threshold > 1 {
		return "", paramErr(FamilyAnalytics, string(op), "threshold", "must be between 0 and 1")
	}
	if p.MaxClusters < 0 {
		return "", paramErr(FamilyAnalytics, string(op), "max_clusters", "must not be negative")
	}
	if p.Span != "" && !spanPattern.MatchString(p.Span) {
		return "", paramErr(FamilyAnalytics, string(op), "span", "expected a duration such as 5m, 1h or 1d")
	}

	switch op {
	case AnalyticsCluster:
		return clusterStage(p.Threshold, p.MaxClusters, fields), nil

	case AnalyticsLink:
		if len(fields) == 0 {
			return "", paramErr(FamilyAnalytics, string(op), "fields", "at least one field is required")
		}
		return withOption("link", "span", p.Span) + " " + fieldList(fields), nil

	case AnalyticsNLP:
		return fmt.Sprintf("nlp keywords(%s) as Keywords", QuoteField(firstNonEmpty(p.Field, "Message"))), nil

	case AnalyticsClassify:
		if len(fields) == 0 {
			fields = []string{"Log Source"}
		}
		return "classify " + fieldList(fields), nil

	case AnalyticsOutlier:
		field := firstNonEmpty(p.Field, first(fields))
		if field == "" {
			return "", paramErr(FamilyAnalytics, string(op), "field", "a numeric field is required")
		}
		stage := "outlier " + QuoteField(field)
		if p.Threshold > 0 {
			stage += " t = " + formatThreshold(p.Threshold)
		}
		return stage, nil

	case AnalyticsSequence:
		if len(fields) == 0 {
			return "", paramErr(FamilyAnalytics, string(op), "fields", "at least one field is required")
		}
		return withOption("sequence", "maxspan", p.Span) + " " + fieldList(fields), nil

	case AnalyticsGeostats:
		stage := fmt.Sprintf("geostats latitude = %s longitude = %s",
			QuoteField(firstNonEmpty(p.Latitude, "Latitude")),
			QuoteField(firstNonEmpty(p.Longitude, "Longitude")))
		return withGroupBy(stage, fields), nil

	case AnalyticsTimecluster:
		stage := "timecluster count span = " + firstNonEmpty(p.Span, "1h")
		return withGroupBy(stage, fields), nil

	default:
		return "", unsupportedAnalytics(op)
	}
}

// clusterStage is shared with entity-based correlation.
func clusterStage(threshold float64, maxClusters int, fields []string) string {
	stage := "cluster"
	if threshold > 0 {
		stage += " t = " + formatThreshold(threshold)
	}
	if maxClusters > 0 {
		stage += " maxclusters = " + strconv.Itoa(maxClusters)
	}
	return withGroupBy(stage, fields)
}

func withOption(verb, key, value string) string {
	if value == "" {
		return verb
	}
	return fmt.Sprintf("%s %s = %s", verb, key, value)
}

func withGroupBy(stage string, fields []string) string {
	if list := fieldList(fields); list != "" {
		return stage + " by " + list
	}
	return stage
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func unsupportedAnalytics(op AnalyticsOp) error {
	names := make([]string, len(AnalyticsOps))
	for i, known := range AnalyticsOps {
		names[i] = string(known)
	}
	return &UnsupportedOperationError{Family: FamilyAnalytics, Operation: string(op), Supported: names}
}
