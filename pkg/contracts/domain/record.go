package domain

// CanonicalRecord is one row of a normalized table: canonical field
// identifier to typed value. Every record of the same table carries exactly
// the same field set (schema closure); absent data is an explicit missing
// marker, never an absent key.
type CanonicalRecord struct {
	Fields map[string]Value
}

// NewCanonicalRecord creates a record with every listed field initialized
// to missing.
func NewCanonicalRecord(fieldIDs []string) CanonicalRecord {
	fields := make(map[string]Value, len(fieldIDs))
	for _, id := range fieldIDs {
		fields[id] = Missing()
	}
	return CanonicalRecord{Fields: fields}
}

// Get returns the value for a field; unknown fields read as missing.
func (r CanonicalRecord) Get(fieldID string) Value {
	v, ok := r.Fields[fieldID]
	if !ok {
		return Missing()
	}
	return v
}

// Set stores a value for a field.
func (r CanonicalRecord) Set(fieldID string, v Value) {
	r.Fields[fieldID] = v
}

// Period returns the record's temporal period from the given field, and
// whether one is present.
func (r CanonicalRecord) Period(fieldID string) (Period, bool) {
	v := r.Get(fieldID)
	if v.Kind != KindPeriod {
		return Period{}, false
	}
	return v.Period, true
}
