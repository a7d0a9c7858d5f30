package schema

import (
	"strings"
	"unicode"
)

// FieldType is the semantic type of a canonical field.
type FieldType string

const (
	// FieldNumeric is a continuous numeric value (trade values, indexes).
	FieldNumeric FieldType = "numeric"
	// FieldPercentage is a percentage in the source, stored as a decimal
	// fraction after cleaning (8.5% becomes 0.085).
	FieldPercentage FieldType = "percentage"
	// FieldCategorical is free text (country or commodity names).
	FieldCategorical FieldType = "categorical"
	// FieldPeriod is a year or year-month identifier.
	FieldPeriod FieldType = "period"
)

// FieldSpec declares one canonical field of a table family: its identity,
// semantic type, the raw header labels that map to it, and the sentinel
// tokens that encode "missing" for it.
type FieldSpec struct {
	ID        string    `yaml:"id" validate:"required"`
	Type      FieldType `yaml:"type" validate:"required,oneof=numeric percentage categorical period"`
	Required  bool      `yaml:"required"`
	Labels    []string  `yaml:"labels" validate:"min=1"`
	Sentinels []string  `yaml:"sentinels,omitempty"`
}

// FormulaKind names a derived-field formula class.
type FormulaKind string

const (
	FormulaGrowthRate   FormulaKind = "growth_rate"
	FormulaShareOfTotal FormulaKind = "share_of_total"
	FormulaBalance      FormulaKind = "balance"
	FormulaCumulative   FormulaKind = "cumulative"
)

// DerivedSpec declares one computed field. The argument fields used depend
// on the formula:
//
//	growth_rate:    source (previous row of the same field is the divisor)
//	share_of_total: value, total
//	balance:        minuend, subtrahend
//	cumulative:     source, reset_yearly
type DerivedSpec struct {
	ID          string      `yaml:"id" validate:"required"`
	Formula     FormulaKind `yaml:"formula" validate:"required,oneof=growth_rate share_of_total balance cumulative"`
	Source      string      `yaml:"source,omitempty"`
	Value       string      `yaml:"value,omitempty"`
	Total       string      `yaml:"total,omitempty"`
	Minuend     string      `yaml:"minuend,omitempty"`
	Subtrahend  string      `yaml:"subtrahend,omitempty"`
	ResetYearly bool        `yaml:"reset_yearly,omitempty"`
}

// Inputs returns the field IDs the formula reads.
func (d DerivedSpec) Inputs() []string {
	switch d.Formula {
	case FormulaGrowthRate, FormulaCumulative:
		return []string{d.Source}
	case FormulaShareOfTotal:
		return []string{d.Value, d.Total}
	case FormulaBalance:
		return []string{d.Minuend, d.Subtrahend}
	}
	return nil
}

// RangeRule bounds a field's values. A violation is a warning unless the
// rule is marked fatal.
type RangeRule struct {
	Field string   `yaml:"field" validate:"required"`
	Min   *float64 `yaml:"min,omitempty"`
	Max   *float64 `yaml:"max,omitempty"`
	Fatal bool     `yaml:"fatal,omitempty"`
}

// BalanceRule asserts result == minuend - subtrahend within tolerance.
// A violation is an error.
type BalanceRule struct {
	Result     string  `yaml:"result" validate:"required"`
	Minuend    string  `yaml:"minuend" validate:"required"`
	Subtrahend string  `yaml:"subtrahend" validate:"required"`
	Tolerance  float64 `yaml:"tolerance,omitempty"`
}

// ShareSumRule asserts that share fields sum to their expected total
// within tolerance. With backing value fields and a total declared, the
// expectation is the listed categories' portion of the total, which also
// handles rows where a share is published as "-". Without them the shares
// must be an exhaustive breakdown summing to 1.0. Violations are warnings:
// rounding in published source data is expected.
type ShareSumRule struct {
	Shares    []string `yaml:"shares" validate:"min=2"`
	Values    []string `yaml:"values,omitempty"`
	Total     string   `yaml:"total,omitempty"`
	Tolerance float64  `yaml:"tolerance,omitempty"`
}

// RuleSet is the per-table validation configuration. Tolerances default
// conservatively when unset (see applyDefaults).
type RuleSet struct {
	Ranges       []RangeRule    `yaml:"ranges,omitempty" validate:"dive"`
	Balances     []BalanceRule  `yaml:"balances,omitempty" validate:"dive"`
	ShareSums    []ShareSumRule `yaml:"share_sums,omitempty" validate:"dive"`
	Completeness bool           `yaml:"completeness,omitempty"`
}

// NormalizeLabel folds a raw header label into its matching form: case
// folded, all whitespace (including full-width spaces) removed, and
// locale punctuation stripped. Matching stays exact on the normalized
// text; there is no fuzzy matching.
func NormalizeLabel(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsSpace(r):
		case strings.ContainsRune("()（）[]【】,，、.。:：;；-–—_/\\%％?？*＊\"'", r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
