package dataprocessing

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "tradestat/internal/errors"
	"tradestat/internal/schema"
	"tradestat/pkg/contracts/domain"
)

// defaultFootnotePrefixes match the annotation rows the source agency
// appends below its tables. Schema specs may add more.
var defaultFootnotePrefixes = []string{"附註", "資料來源", "註", "說明"}

// comparisonMarkers flag rows that restate the latest period against an
// earlier one (較上月增減, 較上年同月增減 and variants).
var comparisonMarkers = []string{"較上", "增減"}

// monthOnlyLabel matches a month label with no year, e.g. "8月" or "12月".
// Such rows belong to an embedded sub-table, not the main series.
var monthOnlyLabel = regexp.MustCompile(`^\d{1,2}月$`)

// subHeaderMarkers flag embedded sub-header rows the source repeats inside
// the data block (年增率 and share sub-rows). They carry numeric cells, so
// the textual-row check alone does not catch them.
var subHeaderMarkers = []string{"年增率", "占總出口", "占比", "金額"}

// LocateTable finds the header and data blocks of a table inside a sheet.
// The scan is top-down and bounded by the spec's header scan window; the
// first row carrying enough textual header cells anchors the table.
// Non-data rows inside the data block are tagged excluded rather than
// ending the block, so a footnote between data rows cannot truncate the
// series.
func LocateTable(sheet domain.RawSheet, spec *schema.TableSpec) (domain.TableRegion, error) {
	headerStart := -1
	window := spec.HeaderScanWindow
	if window > sheet.RowCount() {
		window = sheet.RowCount()
	}
	for row := 0; row < window; row++ {
		if textualCells(sheet, row) >= spec.MinHeaderCells && numericCells(sheet, row) == 0 {
			headerStart = row
			break
		}
	}
	if headerStart < 0 {
		return domain.TableRegion{}, apperrors.NewLayoutError(
			fmt.Sprintf("no header row with %d textual cells in first %d rows of %s",
				spec.MinHeaderCells, window, sheet.SourceFile))
	}

	// Composite headers span several rows; absorb rows until one carries a
	// numeric cell or is empty.
	headerEnd := headerStart + 1
	for headerEnd < sheet.RowCount() &&
		!sheet.RowEmpty(headerEnd) &&
		numericCells(sheet, headerEnd) == 0 &&
		!isFootnoteRow(sheet, headerEnd, spec.FootnotePrefixes) {
		headerEnd++
	}

	dataStart := headerEnd
	for dataStart < sheet.RowCount() && sheet.RowEmpty(dataStart) {
		dataStart++
	}

	dataEnd := dataStart
	var exclusions []domain.RowExclusion
	for dataEnd < sheet.RowCount() && !sheet.RowEmpty(dataEnd) {
		if reason, excluded := classifyDataRow(sheet, dataEnd, spec.FootnotePrefixes); excluded {
			exclusions = append(exclusions, domain.RowExclusion{Row: dataEnd, Reason: reason})
		}
		dataEnd++
	}

	region := domain.TableRegion{
		HeaderStart: headerStart,
		HeaderEnd:   headerEnd,
		DataStart:   dataStart,
		DataEnd:     dataEnd,
		Exclusions:  exclusions,
	}
	if dataRows(region) == 0 {
		return domain.TableRegion{}, apperrors.NewLayoutError(
			fmt.Sprintf("header found at row %d of %s but no data rows follow",
				headerStart, sheet.SourceFile))
	}
	return region, nil
}

func dataRows(r domain.TableRegion) int {
	n := 0
	for row := r.DataStart; row < r.DataEnd; row++ {
		if !r.Excluded(row) {
			n++
		}
	}
	return n
}

// classifyDataRow decides whether a row inside the data block is real data
// or one of the decoration patterns the source interleaves with it.
func classifyDataRow(sheet domain.RawSheet, row int, footnotePrefixes []string) (domain.ExclusionReason, bool) {
	label := rowLabel(sheet, row)

	if isFootnoteRow(sheet, row, footnotePrefixes) {
		return domain.ExcludedFootnote, true
	}
	for _, marker := range comparisonMarkers {
		if strings.Contains(label, marker) {
			return domain.ExcludedComparison, true
		}
	}
	if monthOnlyLabel.MatchString(label) {
		return domain.ExcludedSubHeader, true
	}
	for _, marker := range subHeaderMarkers {
		if strings.Contains(label, marker) {
			return domain.ExcludedSubHeader, true
		}
	}
	if numericCells(sheet, row) == 0 {
		return domain.ExcludedSubHeader, true
	}
	return "", false
}

func isFootnoteRow(sheet domain.RawSheet, row int, extra []string) bool {
	label := rowLabel(sheet, row)
	for _, p := range defaultFootnotePrefixes {
		if strings.HasPrefix(label, p) {
			return true
		}
	}
	for _, p := range extra {
		if strings.HasPrefix(label, p) {
			return true
		}
	}
	return false
}

// rowLabel returns the first non-empty cell of a row.
func rowLabel(sheet domain.RawSheet, row int) string {
	for col := 0; col < sheet.ColumnCount(); col++ {
		if cell := sheet.Cell(row, col); cell != "" {
			return cell
		}
	}
	return ""
}

func textualCells(sheet domain.RawSheet, row int) int {
	n := 0
	for col := 0; col < sheet.ColumnCount(); col++ {
		cell := sheet.Cell(row, col)
		if cell != "" && !looksNumeric(cell) {
			n++
		}
	}
	return n
}

func numericCells(sheet domain.RawSheet, row int) int {
	n := 0
	for col := 0; col < sheet.ColumnCount(); col++ {
		if looksNumeric(sheet.Cell(row, col)) {
			n++
		}
	}
	return n
}
