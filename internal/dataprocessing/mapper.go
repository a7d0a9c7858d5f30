package dataprocessing

import (
	"fmt"
	"strings"

	apperrors "tradestat/internal/errors"
	"tradestat/internal/schema"
	"tradestat/pkg/contracts/domain"
)

// MapColumns resolves the table's columns to canonical fields. The header
// text of a column is the concatenation of the header-block rows at that
// column, normalized, and matched exactly against the schema's label
// index. Columns with unrecognized text are dropped with a warning; a
// required field with no column is a schema mismatch and fails the table.
func MapColumns(sheet domain.RawSheet, region domain.TableRegion, spec *schema.TableSpec) (*ColumnMap, []domain.ValidationFinding, error) {
	cm := &ColumnMap{Fields: make(map[int]string)}
	var findings []domain.ValidationFinding
	mappedTo := make(map[string]int)

	for col := 0; col < sheet.ColumnCount(); col++ {
		label := compositeLabel(sheet, region, col)
		if label == "" {
			continue
		}
		normalized := schema.NormalizeLabel(label)
		fieldID, ok := spec.FieldForLabel(normalized)
		if !ok {
			cm.Unmapped = append(cm.Unmapped, col)
			findings = append(findings, domain.Warnf(domain.RuleUnmappedColumn, "", "",
				"column %d header %q matches no declared field; column dropped", col, label))
			continue
		}
		if prev, dup := mappedTo[fieldID]; dup {
			findings = append(findings, domain.Errorf(domain.RuleDuplicateColumn, fieldID, "",
				"columns %d and %d both map to field %q", prev, col, fieldID))
			continue
		}
		mappedTo[fieldID] = col
		cm.Fields[col] = fieldID
	}

	var missing []string
	for _, id := range spec.RequiredFieldIDs() {
		if _, ok := mappedTo[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		findings = append(findings, domain.Errorf(domain.RuleSchemaMismatch, strings.Join(missing, ","), "",
			"required fields have no source column: %s", strings.Join(missing, ", ")))
		return nil, findings, apperrors.NewSchemaError(
			fmt.Sprintf("table %s: required fields unmapped: %s", spec.ID, strings.Join(missing, ", ")))
	}

	for _, f := range findings {
		if f.Severity == domain.SeverityError {
			return nil, findings, apperrors.NewSchemaError(
				fmt.Sprintf("table %s: ambiguous column mapping", spec.ID))
		}
	}

	return cm, findings, nil
}

// compositeLabel joins the header-block cells of one column. Merged header
// cells surface in the top row only, so lower rows contribute the
// column-specific part (e.g. "美國" + "金額").
func compositeLabel(sheet domain.RawSheet, region domain.TableRegion, col int) string {
	var parts []string
	for row := region.HeaderStart; row < region.HeaderEnd; row++ {
		if cell := sheet.Cell(row, col); cell != "" {
			parts = append(parts, cell)
		}
	}
	return strings.Join(parts, " ")
}
