package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tradestat/internal/errors"
	"tradestat/internal/schema"
	"tradestat/pkg/contracts/domain"
)

func cleanFixture(t *testing.T, sheet domain.RawSheet, spec *schema.TableSpec) ([]domain.CanonicalRecord, []domain.ValidationFinding) {
	t.Helper()
	region, err := LocateTable(sheet, spec)
	require.NoError(t, err)
	cm, _, err := MapColumns(sheet, region, spec)
	require.NoError(t, err)
	return CleanRecords(sheet, region, cm, spec)
}

func TestCleanRecords(t *testing.T) {
	spec := exportSpec(t)
	records, findings := cleanFixture(t, exportSheet(), spec)

	assert.Empty(t, findings)
	require.Len(t, records, 3, "comparison and footnote rows are not data")

	p, ok := records[0].Period("year_month")
	require.True(t, ok)
	assert.Equal(t, "104", p.String())

	total, ok := records[0].Get("total_export_value").Float()
	require.True(t, ok)
	assert.Equal(t, 285344.0, total, "thousands separators are stripped")

	// The 114-08 row carries a "..." sentinel for the US column.
	p, _ = records[2].Period("year_month")
	assert.Equal(t, "114-08", p.String())
	assert.True(t, records[2].Get("us_export_value").IsMissing())
}

func TestCleanRecords_SchemaClosure(t *testing.T) {
	spec := exportSpec(t)
	records, _ := cleanFixture(t, exportSheet(), spec)

	for _, rec := range records {
		assert.Len(t, rec.Fields, len(spec.AllFieldIDs()))
		for _, id := range spec.AllFieldIDs() {
			_, present := rec.Fields[id]
			assert.True(t, present, "field %s absent from record", id)
		}
	}
}

func TestCleanRecords_RequiredCoercionFailureDropsRecord(t *testing.T) {
	spec := exportSpec(t)
	sheet := domain.RawSheet{Rows: [][]string{
		{"年(月)別", "合計 金額", "美國 金額"},
		{"104年", "not a number", "30"},
		{"105年", "120", "35"},
	}}

	records, findings := cleanFixture(t, sheet, spec)

	require.Len(t, records, 1)
	p, _ := records[0].Period("year_month")
	assert.Equal(t, "105", p.String())

	require.Len(t, findings, 1)
	assert.Equal(t, domain.RuleCoercion, findings[0].Rule)
	assert.Equal(t, domain.SeverityWarning, findings[0].Severity)
	assert.Equal(t, "total_export_value", findings[0].Field)
}

func TestCleanRecords_FindingLabelUsesPeriodColumn(t *testing.T) {
	spec := exportSpec(t)
	sheet := domain.RawSheet{Rows: [][]string{
		{"合計 金額", "年(月)別", "美國 金額"},
		{"not a number", "104年", "30"},
		{"120", "105年", "35"},
	}}

	records, findings := cleanFixture(t, sheet, spec)

	require.Len(t, records, 1)
	require.Len(t, findings, 1)
	assert.Equal(t, "104年", findings[0].Period, "label comes from the mapped period column")
}

func TestCleanRecords_OptionalCoercionFailureGoesMissing(t *testing.T) {
	spec := exportSpec(t)
	sheet := domain.RawSheet{Rows: [][]string{
		{"年(月)別", "合計 金額", "美國 金額"},
		{"104年", "100", "n/a"},
	}}

	records, findings := cleanFixture(t, sheet, spec)

	require.Len(t, records, 1)
	assert.True(t, records[0].Get("us_export_value").IsMissing())
	require.Len(t, findings, 1)
	assert.Equal(t, domain.SeverityWarning, findings[0].Severity)
}

func TestCoerceCell(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field schema.FieldSpec
		want  domain.Value
	}{
		{"plain number", "1234", schema.FieldSpec{Type: schema.FieldNumeric}, domain.Number(1234)},
		{"thousands separator", "285,344", schema.FieldSpec{Type: schema.FieldNumeric}, domain.Number(285344)},
		{"fullwidth separator", "285，344", schema.FieldSpec{Type: schema.FieldNumeric}, domain.Number(285344)},
		{"parenthesized negative", "(123.5)", schema.FieldSpec{Type: schema.FieldNumeric}, domain.Number(-123.5)},
		{"percentage to fraction", "8.5%", schema.FieldSpec{Type: schema.FieldPercentage}, domain.Number(0.085)},
		{"negative percentage", "-2.5", schema.FieldSpec{Type: schema.FieldPercentage}, domain.Number(-0.025)},
		{"annual period", "104年", schema.FieldSpec{Type: schema.FieldPeriod}, domain.PeriodValue(domain.Period{Year: 104})},
		{"monthly period", "114年8月", schema.FieldSpec{Type: schema.FieldPeriod}, domain.PeriodValue(domain.Period{Year: 114, Month: 8})},
		{"categorical", "美國", schema.FieldSpec{Type: schema.FieldCategorical}, domain.TextValue("美國")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerceCell(tt.raw, &tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceCell_Failures(t *testing.T) {
	_, err := coerceCell("abc", &schema.FieldSpec{Type: schema.FieldNumeric})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeCoercion))

	_, err = coerceCell("13月", &schema.FieldSpec{Type: schema.FieldPeriod})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeCoercion))
}

func TestIsSentinel(t *testing.T) {
	for _, s := range []string{"", "-", "–", "—", "...", "…", "　"} {
		assert.True(t, isSentinel(s, nil), "%q", s)
	}
	assert.True(t, isSentinel("n.a.", []string{"n.a."}))
	assert.False(t, isSentinel("0", nil))
	assert.False(t, isSentinel("-1", nil))
}
