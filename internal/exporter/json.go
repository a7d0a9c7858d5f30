package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	apperrors "tradestat/internal/errors"
	"tradestat/internal/schema"
	"tradestat/pkg/contracts/domain"
)

// JSONExporter writes one JSON file per table: an array of record objects
// in schema field order, missing values serialized as null.
type JSONExporter struct {
	outDir string
}

// NewJSONExporter creates a JSON exporter rooted at outDir.
func NewJSONExporter(outDir string) *JSONExporter {
	return &JSONExporter{outDir: outDir}
}

// Format implements Exporter.
func (e *JSONExporter) Format() string { return "json" }

// Export implements Exporter.
func (e *JSONExporter) Export(spec *schema.TableSpec, records []domain.CanonicalRecord) error {
	path := filepath.Join(e.outDir, spec.ID+".json")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("create output directory for %s", path), err)
	}

	fieldIDs := spec.AllFieldIDs()
	rows := make([]orderedRecord, len(records))
	for i, rec := range records {
		rows[i] = orderedRecord{fieldIDs: fieldIDs, record: rec}
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("encode %s", path), err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("write %s", path), err)
	}
	return nil
}

// orderedRecord marshals a record with its fields in schema order rather
// than Go's randomized map order.
type orderedRecord struct {
	fieldIDs []string
	record   domain.CanonicalRecord
}

func (r orderedRecord) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, id := range r.fieldIDs {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.record.Get(id))
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}
