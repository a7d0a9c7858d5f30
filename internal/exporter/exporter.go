// Package exporter writes normalized tables to the formats downstream
// consumers read: CSV for spreadsheet users, JSON for services.
package exporter

import (
	"tradestat/internal/schema"
	"tradestat/pkg/contracts/domain"
)

// Exporter writes one table's records to a destination file. Column order
// follows the schema's field declaration order, base fields before derived
// ones, so output stays byte-stable across runs.
type Exporter interface {
	// Export writes the records of one table. Implementations create the
	// output directory when absent.
	Export(spec *schema.TableSpec, records []domain.CanonicalRecord) error
	// Format names the output format ("csv", "json").
	Format() string
}

// ForFormats resolves format names to exporters rooted at outDir.
// Unknown names are skipped; the CLI validates them beforehand.
func ForFormats(formats []string, outDir string) []Exporter {
	var out []Exporter
	for _, f := range formats {
		switch f {
		case "csv":
			out = append(out, NewCSVExporter(outDir))
		case "json":
			out = append(out, NewJSONExporter(outDir))
		}
	}
	return out
}
