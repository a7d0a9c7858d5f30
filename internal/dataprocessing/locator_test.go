package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tradestat/internal/errors"
	"tradestat/internal/schema"
	"tradestat/pkg/contracts/domain"
)

// exportSheet mirrors the layout of the published export-value tables:
// title and unit rows, a two-row composite header, the data series, then a
// comparison row and a footnote glued to the bottom of the block.
func exportSheet() domain.RawSheet {
	return domain.RawSheet{
		SourceFile: "table8.xlsx",
		SheetName:  "Sheet1",
		Rows: [][]string{
			{"表8 主要國家(地區)別出口值"},
			{"", "單位：百萬美元"},
			{"年(月)別", "合計", "美國"},
			{"", "金額", "金額"},
			{"104年", "285,344", "34,800"},
			{"105年", "280,488", "33,500"},
			{"114年8月", "40,000", "..."},
			{"較上月增減(%)", "1.5", "2.0"},
			{"附註：本表不含轉口貿易。"},
		},
	}
}

func exportSpec(t *testing.T) *schema.TableSpec {
	t.Helper()
	reg, err := schema.FromSpecs([]schema.TableSpec{{
		ID:          "table08",
		Workbook:    "table8.xlsx",
		PeriodField: "year_month",
		Fields: []schema.FieldSpec{
			{ID: "year_month", Type: schema.FieldPeriod, Required: true, Labels: []string{"年(月)別"}},
			{ID: "total_export_value", Type: schema.FieldNumeric, Required: true, Labels: []string{"合計 金額"}},
			{ID: "us_export_value", Type: schema.FieldNumeric, Labels: []string{"美國 金額"}},
		},
	}})
	require.NoError(t, err)
	spec, err := reg.Get("table08")
	require.NoError(t, err)
	return spec
}

func TestLocateTable(t *testing.T) {
	spec := exportSpec(t)
	region, err := LocateTable(exportSheet(), spec)
	require.NoError(t, err)

	assert.Equal(t, 2, region.HeaderStart)
	assert.Equal(t, 4, region.HeaderEnd)
	assert.Equal(t, 2, region.HeaderRows())
	assert.Equal(t, 4, region.DataStart)
	assert.Equal(t, 9, region.DataEnd)

	require.Len(t, region.Exclusions, 2)
	assert.Equal(t, domain.RowExclusion{Row: 7, Reason: domain.ExcludedComparison}, region.Exclusions[0])
	assert.Equal(t, domain.RowExclusion{Row: 8, Reason: domain.ExcludedFootnote}, region.Exclusions[1])
}

func TestLocateTable_SubHeaderRows(t *testing.T) {
	spec := exportSpec(t)
	sheet := domain.RawSheet{Rows: [][]string{
		{"年(月)別", "合計 金額", "美國 金額"},
		{"104年", "100", "30"},
		{"年增率(%)", "5.2", "3.1"},
		{"8月", "40", "10"},
		{"105年", "120", "35"},
	}}

	region, err := LocateTable(sheet, spec)
	require.NoError(t, err)

	assert.True(t, region.Excluded(2), "growth sub-row is a sub-header even with numeric cells")
	assert.True(t, region.Excluded(3), "month without year is a sub-header")
	assert.False(t, region.Excluded(4))
	assert.Equal(t, 5, region.DataEnd)

	// Excluded rows never reach the cleaner, so an otherwise clean table
	// produces no findings for them.
	cm, _, err := MapColumns(sheet, region, spec)
	require.NoError(t, err)
	records, findings := CleanRecords(sheet, region, cm, spec)
	assert.Empty(t, findings)
	require.Len(t, records, 2)
}

func TestLocateTable_NoHeader(t *testing.T) {
	spec := exportSpec(t)
	sheet := domain.RawSheet{
		SourceFile: "noise.xlsx",
		Rows: [][]string{
			{"just a title"},
			{"1", "2", "3"},
		},
	}

	_, err := LocateTable(sheet, spec)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeLayout))
}

func TestLocateTable_HeaderButNoData(t *testing.T) {
	spec := exportSpec(t)
	sheet := domain.RawSheet{Rows: [][]string{
		{"年(月)別", "合計 金額", "美國 金額"},
		{"附註：資料尚未公布"},
	}}

	_, err := LocateTable(sheet, spec)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeLayout))
}
