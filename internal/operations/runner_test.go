package operations

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradestat/internal/config"
	"tradestat/internal/exporter"
	"tradestat/internal/schema"
	"tradestat/internal/validation"
	"tradestat/pkg/contracts/domain"
)

// fakeLoader serves canned sheets keyed by workbook name.
type fakeLoader struct {
	sheets map[string]domain.RawSheet
	delay  time.Duration
}

func (l *fakeLoader) Load(workbook, sheetName string) (domain.RawSheet, error) {
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	s, ok := l.sheets[workbook]
	if !ok {
		return domain.RawSheet{}, fmt.Errorf("no workbook %s", workbook)
	}
	return s, nil
}

func goodSheet() domain.RawSheet {
	return domain.RawSheet{
		SourceFile: "good.xlsx",
		SheetName:  "Sheet1",
		Rows: [][]string{
			{"表10 對主要國家出入超"},
			{"", "單位：百萬美元"},
			{"年(月)別", "出口", "進口"},
			{"112年", "100", "80"},
			{"113年", "120", "80"},
		},
	}
}

func badSheet() domain.RawSheet {
	return domain.RawSheet{
		SourceFile: "bad.xlsx",
		Rows: [][]string{
			{"nothing tabular here"},
			{"1", "2"},
		},
	}
}

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	mkTable := func(id, workbook string) schema.TableSpec {
		return schema.TableSpec{
			ID:          id,
			Workbook:    workbook,
			PeriodField: "period",
			Fields: []schema.FieldSpec{
				{ID: "period", Type: schema.FieldPeriod, Required: true, Labels: []string{"年(月)別"}},
				{ID: "export_value", Type: schema.FieldNumeric, Required: true, Labels: []string{"出口"}},
				{ID: "import_value", Type: schema.FieldNumeric, Required: true, Labels: []string{"進口"}},
			},
			Derived: []schema.DerivedSpec{
				{ID: "trade_balance", Formula: schema.FormulaBalance, Minuend: "export_value", Subtrahend: "import_value"},
			},
		}
	}
	reg, err := schema.FromSpecs([]schema.TableSpec{
		mkTable("good_table", "good.xlsx"),
		mkTable("bad_table", "bad.xlsx"),
	})
	require.NoError(t, err)
	return reg
}

func newTestRunner(t *testing.T, loader SheetLoader, exporters []exporter.Exporter, workers int) *Runner {
	t.Helper()
	return NewRunner(
		testRegistry(t),
		loader,
		validation.New(nil),
		exporters,
		config.PipelineConfig{Workers: workers, RunTimeout: time.Minute},
		nil, nil, nil,
	)
}

func TestRun_TableIsolation(t *testing.T) {
	loader := &fakeLoader{sheets: map[string]domain.RawSheet{
		"good.xlsx": goodSheet(),
		"bad.xlsx":  badSheet(),
	}}
	r := newTestRunner(t, loader, nil, 2)

	report, err := r.Run(context.Background(), []string{"good_table", "bad_table"}, Options{ValidateOnly: true})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.ExitCode())

	// Report order follows request order regardless of completion order.
	require.Len(t, report.Tables, 2)
	assert.Equal(t, "good_table", report.Tables[0].TableID)
	assert.Equal(t, domain.StatusPassed, report.Tables[0].Status)
	assert.Equal(t, "bad_table", report.Tables[1].TableID)
	assert.Equal(t, domain.StatusFailed, report.Tables[1].Status)
}

func TestRun_GoodTableRecordsAndMetadata(t *testing.T) {
	loader := &fakeLoader{sheets: map[string]domain.RawSheet{"good.xlsx": goodSheet()}}
	r := newTestRunner(t, loader, nil, 1)

	report, err := r.Run(context.Background(), []string{"good_table"}, Options{ValidateOnly: true})
	require.NoError(t, err)

	tbl := report.Tables[0]
	require.Len(t, tbl.Records, 2)

	balance, ok := tbl.Records[1].Get("trade_balance").Float()
	require.True(t, ok)
	assert.Equal(t, 40.0, balance)

	assert.Equal(t, "表10 對主要國家出入超", tbl.Metadata["title"])
	assert.Equal(t, "百萬美元", tbl.Metadata["unit"])
	assert.Equal(t, "good.xlsx", tbl.Metadata["source_file"])
}

func TestRun_UnknownTableID(t *testing.T) {
	loader := &fakeLoader{sheets: map[string]domain.RawSheet{}}
	r := newTestRunner(t, loader, nil, 1)

	_, err := r.Run(context.Background(), []string{"no_such_table"}, Options{})
	require.Error(t, err)
}

func TestRun_ValidateOnlySkipsExport(t *testing.T) {
	dir := t.TempDir()
	loader := &fakeLoader{sheets: map[string]domain.RawSheet{"good.xlsx": goodSheet()}}
	r := newTestRunner(t, loader, exporter.ForFormats([]string{"csv"}, dir), 1)

	_, err := r.Run(context.Background(), []string{"good_table"}, Options{ValidateOnly: true})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "good_table.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_ExportsPassingTablesOnly(t *testing.T) {
	dir := t.TempDir()
	loader := &fakeLoader{sheets: map[string]domain.RawSheet{
		"good.xlsx": goodSheet(),
		"bad.xlsx":  badSheet(),
	}}
	r := newTestRunner(t, loader, exporter.ForFormats([]string{"csv", "json"}, dir), 2)

	report, err := r.Run(context.Background(), []string{"good_table", "bad_table"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.ExitCode())

	_, err = os.Stat(filepath.Join(dir, "good_table.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "good_table.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "bad_table.csv"))
	assert.True(t, os.IsNotExist(err), "failed tables are not exported")
}

func TestRun_Cancellation(t *testing.T) {
	loader := &fakeLoader{
		sheets: map[string]domain.RawSheet{"good.xlsx": goodSheet()},
		delay:  50 * time.Millisecond,
	}
	r := newTestRunner(t, loader, nil, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := r.Run(ctx, []string{"good_table"}, Options{ValidateOnly: true})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Cancelled)
	assert.Equal(t, domain.StatusCancelled, report.Tables[0].Status)
	assert.Equal(t, 0, report.ExitCode(), "cancellation is not failure")
}

func TestRun_Deterministic(t *testing.T) {
	loader := &fakeLoader{sheets: map[string]domain.RawSheet{
		"good.xlsx": goodSheet(),
		"bad.xlsx":  badSheet(),
	}}
	r := newTestRunner(t, loader, nil, 4)

	var first *domain.RunReport
	for i := 0; i < 5; i++ {
		report, err := r.Run(context.Background(), []string{"bad_table", "good_table"}, Options{ValidateOnly: true})
		require.NoError(t, err)
		if first == nil {
			first = report
			continue
		}
		require.Len(t, report.Tables, 2)
		for j := range report.Tables {
			assert.Equal(t, first.Tables[j].TableID, report.Tables[j].TableID)
			assert.Equal(t, first.Tables[j].Status, report.Tables[j].Status)
			assert.Equal(t, first.Tables[j].Findings, report.Tables[j].Findings)
		}
	}
}
