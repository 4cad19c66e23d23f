package query

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/tareqmamari/logan-mcp-server/internal/mitre"
	"github.com/tareqmamari/logan-mcp-server/internal/timerange"
)

// TimeFilterMode controls how the time window is attached to a query.
type TimeFilterMode int

const (
	// TimeFilterAuto embeds the window unless the query groups an aggregation.
	TimeFilterAuto TimeFilterMode = iota
	// TimeFilterEmbedded always appends the window predicate to the base filter.
	TimeFilterEmbedded
	// TimeFilterSeparate always sends the window as a sibling filter object.
	TimeFilterSeparate
)

// Time placements reported on CompiledQuery.
const (
	PlacementEmbedded = "embedded"
	PlacementSeparate = "separate"
	PlacementQuery    = "query"
)

const (
	defaultAggregateField = "Log Source"
	defaultAggregateAlias = "log_count"
)

// CompiledQuery is the output of Transformer.Compile.
type CompiledQuery struct {
	QueryString    string                `json:"query"`
	TimeFilter     *timerange.TimeFilter `json:"time_filter,omitempty"`
	TimePlacement  string                `json:"time_placement"`
	TimePeriod     string                `json:"time_period"`
	Family         Family                `json:"family"`
	BaseFilter     string                `json:"base_filter"`
	Stages         []string              `json:"stages,omitempty"`
	Category       string                `json:"category,omitempty"`
	Fallback       bool                  `json:"fallback"`
	FallbackReason string                `json:"fallback_reason,omitempty"`
	Corrections    []string              `json:"corrections,omitempty"`
	Validation     *ValidationResult     `json:"validation,omitempty"`
	Window         timerange.Window      `json:"-"`
}

// CompileOption adjusts a single Compile call.
type CompileOption func(*compileOptions)

type compileOptions struct {
	mode TimeFilterMode
}

// WithTimeFilterMode overrides automatic time filter placement.
func WithTimeFilterMode(mode TimeFilterMode) CompileOption {
	return func(o *compileOptions) {
		o.mode = mode
	}
}

// Transformer composes base filters, time filters and compiled stages.
// It holds no per-call state and is safe for concurrent use.
type Transformer struct {
	logger *zap.Logger
}

// NewTransformer creates a transformer.
func NewTransformer(logger *zap.Logger) *Transformer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transformer{logger: logger}
}

// Compile turns intent into a single query for window.
func (t *Transformer) Compile(intent Intent, window timerange.Window, opts ...CompileOption) (*CompiledQuery, error) {
	options := compileOptions{mode: TimeFilterAuto}
	for _, opt := range opts {
		opt(&options)
	}

	out := &CompiledQuery{Window: window, TimePeriod: window.Label}
	var (
		base   string
		stages []string
		stage  string
		err    error
	)

	switch in := intent.(type) {
	case SearchIntent:
		var m searchMatch
		if m, err = matchSearch(in.SearchTerm, in.EventType); err == nil {
			out.Category, out.Fallback, out.FallbackReason = m.category, m.fallback, m.reason
			head, rest := splitBase(in.BaseQuery)
			base = joinStages(andFilters(m.filter, head), rest)
		}

	case TechniqueIntent:
		base, out.Category, out.Fallback, out.FallbackReason = resolveTechnique(in)

	case PatternIntent:
		base, err = CompilePatternFilter(in.Pattern)
		stages = append(stages, nonEmpty(in.Stages)...)

	case AnalyticsIntent:
		base = in.BaseQuery
		stage, err = CompileAnalytics(in.Operation, in.Params)
		stages = append(stages, stage)

	case StatisticsIntent:
		base = in.BaseQuery
		stage, err = CompileStatistics(in.Spec)
		stages = append(stages, stage)

	case FieldIntent:
		base = in.BaseQuery
		stage, err = CompileFieldOperation(in.Operation, in.Details)
		stages = append(stages, stage)

	case CorrelationIntent:
		base = in.PrimaryQuery
		stage, err = CompileCorrelation(in.Spec)
		stages = append(stages, stage)

	case AggregateIntent:
		base = in.BaseQuery
		field := firstNonEmpty(in.GroupBy, defaultAggregateField)
		alias := firstNonEmpty(in.Alias, defaultAggregateAlias)
		stages = append(stages,
			fmt.Sprintf("stats count as %s by %s", QuoteField(alias), QuoteField(field)),
			"sort -"+QuoteField(alias))
		if options.mode == TimeFilterAuto {
			options.mode = TimeFilterSeparate
		}

	case RawIntent:
		base = strings.TrimSpace(in.Query)
		if base == "" {
			err = paramErr(FamilyRaw, "query", "query", "query must not be empty")
			break
		}
		if in.Fix {
			base, out.Corrections = AutoFix(base)
		}
		result := Validate(base)
		out.Validation = &result

	default:
		err = fmt.Errorf("unsupported intent type %T", intent)
	}
	if err != nil {
		t.logger.Debug("Query compilation failed", zap.String("family", familyOf(intent)), zap.Error(err))
		return nil, err
	}
	out.Family = intent.Family()

	head, rest := splitBase(base)
	stages = append(rest, stages...)

	mode := options.mode
	if mode == TimeFilterAuto {
		mode = TimeFilterEmbedded
		if groupsAggregation(stages) {
			mode = TimeFilterSeparate
		}
	}

	full := joinStages(head, stages)
	switch {
	case HasTimePredicate(full):
		out.TimePlacement = PlacementQuery
	case mode == TimeFilterSeparate:
		tf := window.TimeFilter()
		out.TimeFilter = &tf
		out.TimePlacement = PlacementSeparate
	default:
		head = embedTimeFilter(head, window.FilterFragment())
		out.TimePlacement = PlacementEmbedded
	}

	out.BaseFilter = head
	out.Stages = stages
	out.QueryString = joinStages(head, stages)

	if out.Fallback {
		t.logger.Info("Search intent fell back to a permissive filter",
			zap.String("reason", out.FallbackReason),
			zap.String("query", out.QueryString))
	}
	t.logger.Debug("Compiled query",
		zap.String("family", string(out.Family)),
		zap.String("time_placement", out.TimePlacement),
		zap.String("query", out.QueryString))

	return out, nil
}

func resolveTechnique(in TechniqueIntent) (filter, category string, fallback bool, reason string) {
	if id := strings.TrimSpace(in.TechniqueID); id != "" {
		return mitre.LookupTechnique(id), "", false, ""
	}
	if strings.TrimSpace(in.Category) == "" {
		return mitre.AllTechniques(), "", false, ""
	}
	if fragment, ok := mitre.LookupCategory(in.Category); ok {
		return fragment, mitre.NormalizeCategory(in.Category), false, ""
	}
	return mitre.AllTechniques(), "", true,
		fmt.Sprintf("unknown tactic category %q; matching all techniques", in.Category)
}

// splitBase separates the filter of a base query from any stages it already carries.
func splitBase(base string) (string, []string) {
	parts := splitStages(base)
	head := strings.TrimSpace(parts[0])
	var rest []string
	for _, p := range parts[1:] {
		if p = strings.TrimSpace(p); p != "" {
			rest = append(rest, p)
		}
	}
	return head, rest
}

func joinStages(head string, stages []string) string {
	if head == "" {
		head = "*"
	}
	if len(stages) == 0 {
		return head
	}
	return head + " | " + strings.Join(stages, " | ")
}

// andFilters joins two filters with "and". "*" and "" match everything.
func andFilters(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "" || a == "*":
		return b
	case b == "" || b == "*":
		return a
	}
	if hasTopLevelOr(a) {
		a = "(" + a + ")"
	}
	if hasTopLevelOr(b) {
		b = "(" + b + ")"
	}
	return a + " and " + b
}

func embedTimeFilter(head, fragment string) string {
	switch {
	case head == "" || head == "*":
		return fragment
	case hasTopLevelOr(head):
		return "(" + head + ") and " + fragment
	default:
		return head + " and " + fragment
	}
}

var groupedAggregationPattern = regexp.MustCompile(`(?i)^\s*(stats|eventstats|timestats)\b.*\bby\b`)

// groupsAggregation reports whether any stage aggregates with a group-by.
func groupsAggregation(stages []string) bool {
	for _, s := range stages {
		if groupedAggregationPattern.MatchString(scan(s).masked) {
			return true
		}
	}
	return false
}

func familyOf(intent Intent) string {
	if intent == nil {
		return "nil"
	}
	return string(intent.Family())
}
