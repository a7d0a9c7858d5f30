// Package dataprocessing turns located sheet regions into validated
// canonical records: column mapping, value cleaning, and derived metrics.
package dataprocessing

import (
	"strconv"
	"strings"
)

// ColumnMap binds sheet column indexes to canonical field identifiers.
type ColumnMap struct {
	// Fields maps a zero-based column index to the field it feeds.
	Fields map[int]string
	// Unmapped lists columns whose header text matched no field.
	Unmapped []int
}

// Column returns the column index feeding a field, and whether one exists.
func (m *ColumnMap) Column(fieldID string) (int, bool) {
	for col, id := range m.Fields {
		if id == fieldID {
			return col, true
		}
	}
	return 0, false
}

// baseSentinels are the tokens that encode "no data" across all source
// tables. Per-field extras come from the schema.
var baseSentinels = []string{"", "-", "–", "—", "...", "…", "　"}

// isSentinel reports whether a trimmed cell encodes a missing value.
func isSentinel(cell string, extra []string) bool {
	for _, s := range baseSentinels {
		if cell == s {
			return true
		}
	}
	for _, s := range extra {
		if cell == s {
			return true
		}
	}
	return false
}

// parseNumber coerces a raw numeric cell: thousands separators and percent
// signs are stripped, parenthesized values read as negative.
func parseNumber(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	replacer := strings.NewReplacer(",", "", "，", "", "%", "", "％", "", " ", "")
	s = replacer.Replace(s)

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if negative {
		f = -f
	}
	return f, nil
}

// looksNumeric reports whether a cell would coerce to a number.
func looksNumeric(cell string) bool {
	if isSentinel(strings.TrimSpace(cell), nil) {
		return false
	}
	_, err := parseNumber(cell)
	return err == nil
}
