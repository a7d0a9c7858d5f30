package domain

import "fmt"

// Severity classifies a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Rule identifiers produced by the pipeline. Every finding names the rule
// that raised it so run reports never degenerate into a generic failure.
const (
	RuleLayout          = "layout_not_recognized"
	RuleSchemaMismatch  = "schema_mismatch"
	RuleUnmappedColumn  = "unmapped_column"
	RuleDuplicateColumn = "duplicate_column"
	RuleCoercion        = "coercion"
	RuleDerivation      = "derived_metric"
	RuleRange           = "range"
	RuleArithmetic      = "cross_field_arithmetic"
	RuleAggregate       = "share_sum"
	RuleCompleteness    = "temporal_completeness"
	RuleDuplicatePeriod = "duplicate_period"
	RuleExport          = "export"
)

// ValidationFinding is one outcome of a single invariant check. Findings
// are append-only and immutable after creation.
type ValidationFinding struct {
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule"`
	Field    string   `json:"field,omitempty"`
	Period   string   `json:"period,omitempty"`
	Message  string   `json:"message"`
	Fatal    bool     `json:"fatal,omitempty"`
}

// Errorf builds an error-severity finding.
func Errorf(rule, field, period, format string, args ...any) ValidationFinding {
	return ValidationFinding{
		Severity: SeverityError,
		Rule:     rule,
		Field:    field,
		Period:   period,
		Message:  fmt.Sprintf(format, args...),
		Fatal:    true,
	}
}

// Warnf builds a warning-severity finding.
func Warnf(rule, field, period, format string, args ...any) ValidationFinding {
	return ValidationFinding{
		Severity: SeverityWarning,
		Rule:     rule,
		Field:    field,
		Period:   period,
		Message:  fmt.Sprintf(format, args...),
	}
}

// CountBySeverity returns the number of error and warning findings.
func CountBySeverity(findings []ValidationFinding) (errors, warnings int) {
	for _, f := range findings {
		if f.Severity == SeverityError {
			errors++
		} else {
			warnings++
		}
	}
	return errors, warnings
}
