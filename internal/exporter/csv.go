package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "tradestat/internal/errors"
	"tradestat/internal/schema"
	"tradestat/pkg/contracts/domain"
)

// CSVExporter writes one CSV file per table under the output directory.
// Files carry a UTF-8 BOM so Excel renders the Chinese header labels and
// period strings correctly. Missing values export as empty cells.
type CSVExporter struct {
	outDir string
}

// NewCSVExporter creates a CSV exporter rooted at outDir.
func NewCSVExporter(outDir string) *CSVExporter {
	return &CSVExporter{outDir: outDir}
}

// Format implements Exporter.
func (e *CSVExporter) Format() string { return "csv" }

// Export implements Exporter.
func (e *CSVExporter) Export(spec *schema.TableSpec, records []domain.CanonicalRecord) error {
	path := filepath.Join(e.outDir, spec.ID+".csv")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("create output directory for %s", path), err)
	}

	file, err := os.Create(path)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("create %s", path), err)
	}
	defer file.Close()

	// UTF-8 BOM for Excel.
	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("write BOM to %s", path), err)
	}

	writer := csv.NewWriter(file)
	fieldIDs := spec.AllFieldIDs()

	if err := writer.Write(fieldIDs); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("write header of %s", path), err)
	}
	for i, rec := range records {
		row := make([]string, len(fieldIDs))
		for j, id := range fieldIDs {
			row[j] = rec.Get(id).String()
		}
		if err := writer.Write(row); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("write row %d of %s", i, path), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("flush %s", path), err)
	}

	slog.Debug("wrote csv export",
		slog.String("table", spec.ID),
		slog.String("path", path),
		slog.Int("records", len(records)))
	return nil
}
