// Package validation checks normalized tables against their registry rule
// sets and folds findings into a publishability status.
package validation

import (
	"log/slog"
	"math"

	"tradestat/internal/schema"
	"tradestat/pkg/contracts/domain"
)

// Validator runs every configured rule over a table's records. Rules never
// short-circuit: a run report lists all findings, not just the first.
type Validator struct {
	logger *slog.Logger
}

// New creates a validator.
func New(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// Validate applies the spec's rule set to the records and returns every
// finding. Records must already carry their derived fields.
func (v *Validator) Validate(records []domain.CanonicalRecord, spec *schema.TableSpec) []domain.ValidationFinding {
	var findings []domain.ValidationFinding

	findings = append(findings, checkDuplicatePeriods(records, spec)...)
	for _, rule := range spec.Rules.Ranges {
		findings = append(findings, checkRange(records, spec, rule)...)
	}
	for _, rule := range spec.Rules.Balances {
		findings = append(findings, checkBalance(records, spec, rule)...)
	}
	for _, rule := range spec.Rules.ShareSums {
		findings = append(findings, checkShareSum(records, spec, rule)...)
	}
	if spec.Rules.Completeness {
		findings = append(findings, checkCompleteness(records, spec)...)
	}

	errors, warnings := domain.CountBySeverity(findings)
	v.logger.Debug("validation complete",
		slog.String("table", spec.ID),
		slog.Int("records", len(records)),
		slog.Int("errors", errors),
		slog.Int("warnings", warnings))

	return findings
}

// StatusOf folds findings into a table status: any error fails the table,
// warnings alone leave it publishable.
func StatusOf(findings []domain.ValidationFinding) domain.TableStatus {
	errors, warnings := domain.CountBySeverity(findings)
	switch {
	case errors > 0:
		return domain.StatusFailed
	case warnings > 0:
		return domain.StatusWarned
	default:
		return domain.StatusPassed
	}
}

func checkDuplicatePeriods(records []domain.CanonicalRecord, spec *schema.TableSpec) []domain.ValidationFinding {
	seen := make(map[domain.Period]bool, len(records))
	var findings []domain.ValidationFinding
	for _, rec := range records {
		p, ok := rec.Period(spec.PeriodField)
		if !ok {
			continue
		}
		if seen[p] {
			findings = append(findings, domain.Errorf(domain.RuleDuplicatePeriod, spec.PeriodField, p.String(),
				"period %s appears more than once", p))
		}
		seen[p] = true
	}
	return findings
}

func checkRange(records []domain.CanonicalRecord, spec *schema.TableSpec, rule schema.RangeRule) []domain.ValidationFinding {
	var findings []domain.ValidationFinding
	for _, rec := range records {
		f, ok := rec.Get(rule.Field).Float()
		if !ok {
			continue
		}
		p, _ := rec.Period(spec.PeriodField)
		if rule.Min != nil && f < *rule.Min {
			findings = append(findings, rangeFinding(rule, p, "%s=%v below minimum %v", rule.Field, f, *rule.Min))
		}
		if rule.Max != nil && f > *rule.Max {
			findings = append(findings, rangeFinding(rule, p, "%s=%v above maximum %v", rule.Field, f, *rule.Max))
		}
	}
	return findings
}

func rangeFinding(rule schema.RangeRule, p domain.Period, format string, args ...any) domain.ValidationFinding {
	if rule.Fatal {
		return domain.Errorf(domain.RuleRange, rule.Field, p.String(), format, args...)
	}
	return domain.Warnf(domain.RuleRange, rule.Field, p.String(), format, args...)
}

// checkBalance asserts result == minuend - subtrahend per record. Source
// tables publish the balance column themselves, so a mismatch means the
// row was mangled somewhere and is an error.
func checkBalance(records []domain.CanonicalRecord, spec *schema.TableSpec, rule schema.BalanceRule) []domain.ValidationFinding {
	var findings []domain.ValidationFinding
	for _, rec := range records {
		result, rOK := rec.Get(rule.Result).Float()
		minuend, mOK := rec.Get(rule.Minuend).Float()
		subtrahend, sOK := rec.Get(rule.Subtrahend).Float()
		if !rOK || !mOK || !sOK {
			continue
		}
		expected := minuend - subtrahend
		if math.Abs(result-expected) > rule.Tolerance {
			p, _ := rec.Period(spec.PeriodField)
			findings = append(findings, domain.Errorf(domain.RuleArithmetic, rule.Result, p.String(),
				"%s=%v but %s-%s=%v (tolerance %v)",
				rule.Result, result, rule.Minuend, rule.Subtrahend, expected, rule.Tolerance))
		}
	}
	return findings
}

// checkShareSum asserts that share columns sum to their expected total.
// With backing values and a total declared, the expectation is the listed
// categories' portion of the total, so the rule works for partial
// breakdowns and rows where one share is published as "-". Without them
// the shares must be exhaustive and sum to 1.0.
func checkShareSum(records []domain.CanonicalRecord, spec *schema.TableSpec, rule schema.ShareSumRule) []domain.ValidationFinding {
	var findings []domain.ValidationFinding
	for _, rec := range records {
		sum := 0.0
		present := 0
		for _, shareID := range rule.Shares {
			share, ok := rec.Get(shareID).Float()
			if !ok {
				continue
			}
			sum += share
			present++
		}
		if present == 0 {
			continue
		}

		expected, ok := shareExpectation(rec, rule, present)
		if !ok {
			continue
		}

		if math.Abs(sum-expected) > rule.Tolerance {
			p, _ := rec.Period(spec.PeriodField)
			findings = append(findings, domain.Warnf(domain.RuleAggregate, "", p.String(),
				"shares sum to %.4f, expected %.4f (tolerance %v)", sum, expected, rule.Tolerance))
		}
	}
	return findings
}

// shareExpectation computes what the present shares should sum to. The
// second return is false when the row cannot be checked at all.
func shareExpectation(rec domain.CanonicalRecord, rule schema.ShareSumRule, present int) (float64, bool) {
	if len(rule.Values) == len(rule.Shares) && rule.Total != "" {
		total, totalOK := rec.Get(rule.Total).Float()
		if totalOK && total != 0 {
			presentValues := 0.0
			valuesOK := true
			for i, shareID := range rule.Shares {
				if rec.Get(shareID).IsMissing() {
					continue
				}
				v, vOK := rec.Get(rule.Values[i]).Float()
				if !vOK {
					valuesOK = false
					break
				}
				presentValues += v
			}
			if valuesOK {
				return presentValues / total, true
			}
		}
	}
	// Without a usable correction the shares must be exhaustive.
	if present < len(rule.Shares) {
		return 0, false
	}
	return 1.0, true
}

// checkCompleteness warns on gaps between consecutive periods of the same
// granularity. Tables mix annual and monthly rows, so the two series are
// checked independently.
func checkCompleteness(records []domain.CanonicalRecord, spec *schema.TableSpec) []domain.ValidationFinding {
	var annual, monthly []domain.Period
	for _, rec := range records {
		p, ok := rec.Period(spec.PeriodField)
		if !ok {
			continue
		}
		if p.Annual() {
			annual = append(annual, p)
		} else {
			monthly = append(monthly, p)
		}
	}

	var findings []domain.ValidationFinding
	findings = append(findings, seriesGaps(annual, spec.PeriodField)...)
	findings = append(findings, seriesGaps(monthly, spec.PeriodField)...)
	return findings
}

// seriesGaps expects periods already in ascending order, which the deriver
// guarantees by sorting records first.
func seriesGaps(periods []domain.Period, fieldID string) []domain.ValidationFinding {
	var findings []domain.ValidationFinding
	for i := 1; i < len(periods); i++ {
		expected := periods[i-1].Next()
		for expected.Before(periods[i]) {
			findings = append(findings, domain.Warnf(domain.RuleCompleteness, fieldID, expected.String(),
				"period %s missing from the series", expected))
			expected = expected.Next()
		}
	}
	return findings
}
