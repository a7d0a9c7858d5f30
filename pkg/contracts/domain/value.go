package domain

import "strconv"

// ValueKind discriminates the payload of a Value.
type ValueKind int

const (
	// KindMissing marks an explicit missing value. Missing is never zero:
	// arithmetic over records treats it as absorbing.
	KindMissing ValueKind = iota
	KindNumber
	KindText
	KindPeriod
)

// Value is one typed cell of a canonical record. Percentage fields are
// stored as decimal fractions, never as raw percentage points.
type Value struct {
	Kind   ValueKind
	Num    float64
	Text   string
	Period Period
}

// Missing returns the explicit missing marker.
func Missing() Value { return Value{Kind: KindMissing} }

// Number wraps a float value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// TextValue wraps a categorical/text value.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// PeriodValue wraps a temporal period.
func PeriodValue(p Period) Value { return Value{Kind: KindPeriod, Period: p} }

// IsMissing reports whether the value is the missing marker.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// Float returns the numeric payload and whether one is present.
func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// String renders the value for export: numbers in shortest exact form,
// periods in normalized form, missing as the empty string.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Text
	case KindPeriod:
		return v.Period.String()
	default:
		return ""
	}
}

// MarshalJSON serializes missing values as null and periods as their
// normalized string form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return []byte(strconv.FormatFloat(v.Num, 'f', -1, 64)), nil
	case KindText:
		return []byte(strconv.Quote(v.Text)), nil
	case KindPeriod:
		return []byte(strconv.Quote(v.Period.String())), nil
	default:
		return []byte("null"), nil
	}
}
