package dataprocessing

import (
	"fmt"
	"sort"

	apperrors "tradestat/internal/errors"
	"tradestat/internal/schema"
	"tradestat/pkg/contracts/domain"
)

// CleanRecords coerces the data block into canonical records. Each record
// starts with the table's full field set at missing, so the schema closure
// holds regardless of which cells coerce. Sentinel cells stay missing.
// A coercion failure on a required field drops the record; on an optional
// field the value stays missing. Both raise warnings so the drop is
// visible in the report without failing the table.
func CleanRecords(sheet domain.RawSheet, region domain.TableRegion, cm *ColumnMap, spec *schema.TableSpec) ([]domain.CanonicalRecord, []domain.ValidationFinding) {
	var (
		records  []domain.CanonicalRecord
		findings []domain.ValidationFinding
	)

	// Walk columns in sheet order so findings are reported left to right.
	cols := make([]int, 0, len(cm.Fields))
	for col := range cm.Fields {
		cols = append(cols, col)
	}
	sort.Ints(cols)

	// Findings carry the row's period label so a reader can find the row
	// in the source table.
	periodCol, ok := cm.Column(spec.PeriodField)
	if !ok {
		periodCol = 0
	}

	for row := region.DataStart; row < region.DataEnd; row++ {
		if region.Excluded(row) || sheet.RowEmpty(row) {
			continue
		}

		rec := domain.NewCanonicalRecord(spec.AllFieldIDs())
		dropped := false

		for _, col := range cols {
			fieldID := cm.Fields[col]
			field, ok := spec.Field(fieldID)
			if !ok {
				continue
			}
			raw := sheet.Cell(row, col)
			if isSentinel(raw, field.Sentinels) {
				continue
			}

			value, err := coerceCell(raw, field)
			if err != nil {
				periodLabel := sheet.Cell(row, periodCol)
				if field.Required {
					findings = append(findings, domain.Warnf(domain.RuleCoercion, fieldID, periodLabel,
						"row %d: cannot coerce %q for required field; record dropped", row, raw))
					dropped = true
				} else {
					findings = append(findings, domain.Warnf(domain.RuleCoercion, fieldID, periodLabel,
						"row %d: cannot coerce %q; value recorded as missing", row, raw))
				}
				continue
			}
			rec.Set(fieldID, value)
		}

		if dropped {
			continue
		}
		if _, ok := rec.Period(spec.PeriodField); !ok {
			findings = append(findings, domain.Warnf(domain.RuleCoercion, spec.PeriodField, sheet.Cell(row, periodCol),
				"row %d: no period; record dropped", row))
			continue
		}
		records = append(records, rec)
	}

	return records, findings
}

// coerceCell converts one non-sentinel cell per its field's semantic type.
// Percentages are stored as fractions: 8.5% coerces to 0.085.
func coerceCell(raw string, field *schema.FieldSpec) (domain.Value, error) {
	switch field.Type {
	case schema.FieldNumeric:
		f, err := parseNumber(raw)
		if err != nil {
			return domain.Value{}, apperrors.NewCoercionError("not numeric", err)
		}
		return domain.Number(f), nil
	case schema.FieldPercentage:
		f, err := parseNumber(raw)
		if err != nil {
			return domain.Value{}, apperrors.NewCoercionError("not a percentage", err)
		}
		return domain.Number(f / 100), nil
	case schema.FieldPeriod:
		p, err := domain.ParsePeriod(raw)
		if err != nil {
			return domain.Value{}, apperrors.NewCoercionError("not a period", err)
		}
		return domain.PeriodValue(p), nil
	case schema.FieldCategorical:
		return domain.TextValue(raw), nil
	default:
		return domain.Value{}, apperrors.NewCoercionError(fmt.Sprintf("unknown field type %q", field.Type), nil)
	}
}
