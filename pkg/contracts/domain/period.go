package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Period is a canonical temporal period: a calendar year plus an optional
// sub-period month. Month 0 marks an annual period. Source tables use ROC
// (Minguo) years, so values like 104 or 114 are normal.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month,omitempty"`
}

// ParsePeriod parses a raw period label into its canonical form.
// Accepted inputs:
//
//	"104"       annual, already normalized
//	"114-08"    monthly, already normalized
//	"104年"     annual, raw source label
//	"114年8月"  monthly, raw source label
func ParsePeriod(raw string) (Period, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Period{}, fmt.Errorf("empty period label")
	}

	// Raw source labels carry 年/月 markers.
	if strings.ContainsRune(s, '年') {
		s = strings.TrimSuffix(s, "月")
		parts := strings.SplitN(s, "年", 2)
		year, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || year <= 0 {
			return Period{}, fmt.Errorf("invalid period year in %q", raw)
		}
		if len(parts) == 1 || strings.TrimSpace(parts[1]) == "" {
			return Period{Year: year}, nil
		}
		month, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || month < 1 || month > 12 {
			return Period{}, fmt.Errorf("invalid period month in %q", raw)
		}
		return Period{Year: year, Month: month}, nil
	}

	if year, month, ok := strings.Cut(s, "-"); ok {
		y, err := strconv.Atoi(strings.TrimSpace(year))
		if err != nil || y <= 0 {
			return Period{}, fmt.Errorf("invalid period year in %q", raw)
		}
		m, err := strconv.Atoi(strings.TrimSpace(month))
		if err != nil || m < 1 || m > 12 {
			return Period{}, fmt.Errorf("invalid period month in %q", raw)
		}
		return Period{Year: y, Month: m}, nil
	}

	year, err := strconv.Atoi(s)
	if err != nil || year <= 0 {
		return Period{}, fmt.Errorf("invalid period label %q", raw)
	}
	return Period{Year: year}, nil
}

// Annual reports whether the period covers a whole year.
func (p Period) Annual() bool { return p.Month == 0 }

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool { return p.Year == 0 && p.Month == 0 }

// String renders the normalized form: "104" or "114-08".
func (p Period) String() string {
	if p.Annual() {
		return strconv.Itoa(p.Year)
	}
	return fmt.Sprintf("%d-%02d", p.Year, p.Month)
}

// Compare orders periods by year, then month. Annual periods sort before
// monthly periods of the same year.
func (p Period) Compare(other Period) int {
	switch {
	case p.Year != other.Year:
		if p.Year < other.Year {
			return -1
		}
		return 1
	case p.Month != other.Month:
		if p.Month < other.Month {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// Before reports whether p orders strictly before other.
func (p Period) Before(other Period) bool { return p.Compare(other) < 0 }

// Next returns the immediately following period at the same granularity,
// used for gap detection in temporal completeness checks.
func (p Period) Next() Period {
	if p.Annual() {
		return Period{Year: p.Year + 1}
	}
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}
