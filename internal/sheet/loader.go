package sheet

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "tradestat/internal/errors"
	"tradestat/pkg/contracts/domain"
)

// Loader reads workbooks from the data directory and exposes their sheets
// as in-memory grids. It holds no open files between calls: each Load
// opens, reads, and closes the workbook before returning.
type Loader struct {
	dataDir string
	logger  *slog.Logger
}

// NewLoader creates a loader rooted at dataDir.
func NewLoader(dataDir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{dataDir: dataDir, logger: logger}
}

// Load reads one worksheet of a workbook into a RawSheet. An empty
// sheetName selects the workbook's first sheet. All failures wrap as
// storage errors.
func (l *Loader) Load(workbook, sheetName string) (domain.RawSheet, error) {
	path := filepath.Join(l.dataDir, workbook)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return domain.RawSheet{}, apperrors.NewStorageError(
			fmt.Sprintf("open workbook %s", path), err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			l.logger.Warn("failed to close workbook",
				slog.String("path", path),
				slog.String("error", cerr.Error()))
		}
	}()

	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return domain.RawSheet{}, apperrors.NewStorageError(
				fmt.Sprintf("workbook %s has no sheets", path), nil)
		}
		sheetName = sheets[0]
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return domain.RawSheet{}, apperrors.NewStorageError(
			fmt.Sprintf("read sheet %q of %s", sheetName, path), err)
	}

	l.logger.Debug("loaded worksheet",
		slog.String("workbook", workbook),
		slog.String("sheet", sheetName),
		slog.Int("rows", len(rows)))

	return domain.RawSheet{
		SourceFile: workbook,
		SheetName:  sheetName,
		Rows:       rows,
	}, nil
}

// Metadata is the descriptive text that precedes a table: the sheet title
// and the unit annotation, when present.
type Metadata struct {
	Title string
	Unit  string
}

// ExtractMetadata pulls the title and unit annotation from the rows above
// the header block. The title is the first non-empty cell text; the unit
// comes from a cell carrying a 單位 annotation (e.g. "單位：百萬美元").
func ExtractMetadata(s domain.RawSheet, headerStart int) Metadata {
	var md Metadata
	cols := s.ColumnCount()
	for row := 0; row < headerStart && row < s.RowCount(); row++ {
		for col := 0; col < cols; col++ {
			cell := s.Cell(row, col)
			if cell == "" {
				continue
			}
			if unit, ok := parseUnit(cell); ok {
				if md.Unit == "" {
					md.Unit = unit
				}
			} else if md.Title == "" {
				md.Title = cell
			}
		}
	}
	return md
}

func parseUnit(cell string) (string, bool) {
	idx := strings.Index(cell, "單位")
	if idx < 0 {
		return "", false
	}
	unit := cell[idx+len("單位"):]
	unit = strings.TrimLeft(unit, ":： ")
	return strings.TrimSpace(unit), true
}
