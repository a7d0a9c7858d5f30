package domain

import "strings"

// RawSheet is an immutable in-memory cell grid read from one worksheet.
// Rows come straight from the workbook reader; trailing empty cells may be
// absent, so access goes through Cell.
type RawSheet struct {
	SourceFile string
	SheetName  string
	Rows       [][]string
}

// Cell returns the trimmed value at (row, col), or "" when the position is
// outside the grid.
func (s RawSheet) Cell(row, col int) string {
	if row < 0 || row >= len(s.Rows) {
		return ""
	}
	r := s.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// RowCount returns the number of rows in the grid.
func (s RawSheet) RowCount() int { return len(s.Rows) }

// ColumnCount returns the widest row length in the grid.
func (s RawSheet) ColumnCount() int {
	max := 0
	for _, r := range s.Rows {
		if len(r) > max {
			max = len(r)
		}
	}
	return max
}

// RowEmpty reports whether every cell of the row is empty.
func (s RawSheet) RowEmpty(row int) bool {
	if row < 0 || row >= len(s.Rows) {
		return true
	}
	for _, c := range s.Rows[row] {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ExclusionReason explains why a data-block row was tagged excluded.
type ExclusionReason string

const (
	// ExcludedSubHeader marks embedded sub-header rows (e.g. 年增率 label
	// rows or month-only labels without a year).
	ExcludedSubHeader ExclusionReason = "sub_header"
	// ExcludedComparison marks prior-period comparison rows (較上月增減 etc.).
	ExcludedComparison ExclusionReason = "comparison"
	// ExcludedFootnote marks configured footnote rows.
	ExcludedFootnote ExclusionReason = "footnote"
)

// RowExclusion tags a row inside the data block that must not be treated
// as data. Rows are tagged rather than deleted so the decision stays
// auditable.
type RowExclusion struct {
	Row    int
	Reason ExclusionReason
}

// TableRegion is the located header and data blocks of a RawSheet.
// Header rows span [HeaderStart, HeaderEnd); data rows span
// [DataStart, DataEnd); both ends are exclusive.
type TableRegion struct {
	HeaderStart int
	HeaderEnd   int
	DataStart   int
	DataEnd     int
	Exclusions  []RowExclusion
}

// Excluded reports whether the row carries an exclusion tag.
func (r TableRegion) Excluded(row int) bool {
	for _, e := range r.Exclusions {
		if e.Row == row {
			return true
		}
	}
	return false
}

// HeaderRows returns the number of rows in the header block.
func (r TableRegion) HeaderRows() int { return r.HeaderEnd - r.HeaderStart }
