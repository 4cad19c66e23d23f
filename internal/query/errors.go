package query

import "fmt"

// Family names a structured-intent family.
type Family string

const (
	FamilySearch      Family = "search"
	FamilyTechnique   Family = "technique"
	FamilyPattern     Family = "pattern_search"
	FamilyAnalytics   Family = "advanced_analytics"
	FamilyStatistics  Family = "statistical_analysis"
	FamilyField       Family = "field_operations"
	FamilyCorrelation Family = "correlation_analysis"
	FamilyAggregate   Family = "aggregate"
	FamilyRaw         Family = "raw"
)

// UnsupportedOperationError is returned when a structured intent names an
// operation no compiler recognises. It is fatal for the call.
type UnsupportedOperationError struct {
	Family    Family
	Operation string
	Supported []string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported %s operation %q", e.Family, e.Operation)
}

// ParameterError reports a missing or malformed parameter for an otherwise
// recognised operation.
type ParameterError struct {
	Family    Family
	Operation string
	Parameter string
	Reason    string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s %s: invalid parameter %q: %s", e.Family, e.Operation, e.Parameter, e.Reason)
}

func paramErr(family Family, op, param, reason string) error {
	return &ParameterError{Family: family, Operation: op, Parameter: param, Reason: reason}
}
