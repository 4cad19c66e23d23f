package query

// Intent is a closed union of the structured request shapes the Transformer
// compiles. Only types in this package implement it.
type Intent interface {
	Family() Family
	isIntent()
}

// SearchIntent is a natural-language search term with an optional event type.
// BaseQuery narrows the catalog filter and contributes its stages.
type SearchIntent struct {
	SearchTerm string
	EventType  string
	BaseQuery  string
}

// TechniqueIntent selects MITRE ATT&CK events by technique or tactic.
// TechniqueID takes precedence over Category; neither means all techniques.
type TechniqueIntent struct {
	Category    string
	TechniqueID string
}

// PatternIntent is a pattern search compiled into the base filter, followed
// by optional caller stages.
type PatternIntent struct {
	Pattern PatternSpec
	Stages  []string
}

// AnalyticsIntent appends one advanced analytics stage to a base query.
type AnalyticsIntent struct {
	BaseQuery string
	Operation AnalyticsOp
	Params    AnalyticsParams
}

// StatisticsIntent appends one statistics stage to a base query.
type StatisticsIntent struct {
	BaseQuery string
	Spec      StatisticsSpec
}

// FieldIntent appends one field operation stage to a base query.
type FieldIntent struct {
	BaseQuery string
	Operation FieldOp
	Details   FieldOpDetails
}

// CorrelationIntent appends one correlation stage to a primary query.
type CorrelationIntent struct {
	PrimaryQuery string
	Spec         CorrelationSpec
}

// AggregateIntent counts events grouped by one field, e.g. per log source.
// It always carries the time window as a separate filter.
type AggregateIntent struct {
	BaseQuery string
	GroupBy   string
	Alias     string
}

// RawIntent is a caller-written query, optionally auto-fixed first.
type RawIntent struct {
	Query string
	Fix   bool
}

func (SearchIntent) Family() Family      { return FamilySearch }
func (TechniqueIntent) Family() Family   { return FamilyTechnique }
func (PatternIntent) Family() Family     { return FamilyPattern }
func (AnalyticsIntent) Family() Family   { return FamilyAnalytics }
func (StatisticsIntent) Family() Family  { return FamilyStatistics }
func (FieldIntent) Family() Family       { return FamilyField }
func (CorrelationIntent) Family() Family { return FamilyCorrelation }
func (AggregateIntent) Family() Family   { return FamilyAggregate }
func (RawIntent) Family() Family         { return FamilyRaw }

func (SearchIntent) isIntent()      {}
func (TechniqueIntent) isIntent()   {}
func (PatternIntent) isIntent()     {}
func (AnalyticsIntent) isIntent()   {}
func (StatisticsIntent) isIntent()  {}
func (FieldIntent) isIntent()       {}
func (CorrelationIntent) isIntent() {}
func (AggregateIntent) isIntent()   {}
func (RawIntent) isIntent()         {}
