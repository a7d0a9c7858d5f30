// Package operations orchestrates the per-table pipeline: locate, map,
// clean, derive, validate, export, with tables isolated from each other.
package operations

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"tradestat/internal/config"
	"tradestat/internal/dataprocessing"
	"tradestat/internal/exporter"
	"tradestat/internal/infrastructure"
	"tradestat/internal/schema"
	"tradestat/internal/sheet"
	"tradestat/internal/validation"
	"tradestat/pkg/contracts/domain"
)

// SheetLoader reads a worksheet of a workbook into memory.
type SheetLoader interface {
	Load(workbook, sheetName string) (domain.RawSheet, error)
}

// Options tune a single run.
type Options struct {
	// ValidateOnly skips all exports; the run report is the only output.
	ValidateOnly bool
	// IncludeFailed also exports tables whose validation failed. Off by
	// default: downstream consumers must not pick up known-bad data.
	IncludeFailed bool
}

// Runner executes pipeline runs. The registry is read-only after
// construction, so concurrent tables share no mutable state.
type Runner struct {
	registry  *schema.Registry
	loader    SheetLoader
	validator *validation.Validator
	exporters []exporter.Exporter
	cfg       config.PipelineConfig
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *infrastructure.PipelineMetrics
}

// NewRunner wires a runner. tracer and metrics may be nil; they default to
// noop implementations via the providers.
func NewRunner(
	registry *schema.Registry,
	loader SheetLoader,
	validator *validation.Validator,
	exporters []exporter.Exporter,
	cfg config.PipelineConfig,
	logger *slog.Logger,
	tracer trace.Tracer,
	metrics *infrastructure.PipelineMetrics,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		registry:  registry,
		loader:    loader,
		validator: validator,
		exporters: exporters,
		cfg:       cfg,
		logger:    logger,
		tracer:    tracer,
		metrics:   metrics,
	}
}

// Run processes the given tables and returns the aggregated report. A
// table-scoped failure never aborts the run; the table reports failed and
// the rest proceed. The error return covers run-level problems only
// (unknown table IDs).
func (r *Runner) Run(ctx context.Context, tableIDs []string, opts Options) (*domain.RunReport, error) {
	report := &domain.RunReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
	}
	ctx = infrastructure.WithTraceID(ctx, report.RunID)
	logger := r.logger.With(slog.String("run_id", report.RunID))

	// Resolve all specs up front so a typoed table ID fails the whole run
	// immediately instead of surfacing as one failed table.
	specs := make([]*schema.TableSpec, len(tableIDs))
	for i, id := range tableIDs {
		spec, err := r.registry.Get(id)
		if err != nil {
			return nil, err
		}
		specs[i] = spec
	}

	var span trace.Span
	if r.tracer != nil {
		ctx, span = r.tracer.Start(ctx, "pipeline.run",
			trace.WithAttributes(
				attribute.String("run.id", report.RunID),
				attribute.Int("run.tables", len(tableIDs)),
				attribute.Bool("run.validate_only", opts.ValidateOnly),
			))
		defer span.End()
	}

	logger.Info("pipeline run starting",
		slog.Int("tables", len(tableIDs)),
		slog.Int("workers", r.cfg.Workers),
		slog.Bool("validate_only", opts.ValidateOnly))

	results := make([]*domain.TableReport, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for i, spec := range specs {
		g.Go(func() error {
			results[i] = r.processTable(gctx, spec, opts)
			return nil
		})
	}
	// Workers never return errors; failures live in the table reports.
	_ = g.Wait()

	for _, t := range results {
		report.Add(t)
	}
	report.Duration = time.Since(report.StartedAt)

	if span != nil {
		span.SetAttributes(
			attribute.Int("run.passed", report.Passed),
			attribute.Int("run.failed", report.Failed),
		)
		if report.Failed > 0 {
			span.SetStatus(codes.Error, "one or more tables failed")
		}
	}

	logger.Info("pipeline run complete",
		slog.Int("passed", report.Passed),
		slog.Int("warned", report.Warned),
		slog.Int("failed", report.Failed),
		slog.Int("cancelled", report.Cancelled),
		slog.Duration("duration", report.Duration))

	return report, nil
}

// processTable runs the full per-table pipeline. It never returns an
// error: every outcome folds into the report, so one bad workbook cannot
// take down a run covering twenty tables.
func (r *Runner) processTable(ctx context.Context, spec *schema.TableSpec, opts Options) *domain.TableReport {
	started := time.Now()
	report := &domain.TableReport{TableID: spec.ID, Status: domain.StatusFailed}
	logger := infrastructure.LoggerWithContext(ctx).With(slog.String("table", spec.ID))

	if r.metrics != nil {
		r.metrics.ActiveTables.Add(ctx, 1)
	}
	defer func() {
		report.Duration = time.Since(started)
		r.recordMetrics(ctx, report)
		logger.Info("table processed",
			slog.String("status", string(report.Status)),
			slog.Int("records", len(report.Records)),
			slog.Int("findings", len(report.Findings)),
			slog.Duration("duration", report.Duration))
	}()

	var span trace.Span
	if r.tracer != nil {
		ctx, span = r.tracer.Start(ctx, "pipeline.table",
			trace.WithAttributes(attribute.String("table.id", spec.ID)))
		defer span.End()
	}

	st := &tableState{}
	steps := []func() bool{
		func() bool { return r.stepLoad(st, report, spec, logger) },
		func() bool { return r.stepLocate(st, report, spec, logger) },
		func() bool { return r.stepMap(st, report, spec) },
		func() bool { return r.stepClean(st, report, spec) },
		func() bool { return r.stepDerive(report, spec) },
		func() bool { return r.stepValidate(report, spec) },
	}

	for _, step := range steps {
		if ctx.Err() != nil {
			report.Status = domain.StatusCancelled
			return report
		}
		if !step() {
			report.Status = domain.StatusFailed
			return report
		}
	}

	report.Status = validation.StatusOf(report.Findings)

	if opts.ValidateOnly {
		return report
	}
	if !report.Status.Publishable() && !opts.IncludeFailed {
		return report
	}
	if ctx.Err() != nil {
		report.Status = domain.StatusCancelled
		return report
	}

	for _, exp := range r.exporters {
		if err := exp.Export(spec, report.Records); err != nil {
			report.AddFindings(domain.Errorf(domain.RuleExport, "", "",
				"%s export failed: %v", exp.Format(), err))
			report.Status = domain.StatusFailed
			return report
		}
	}
	return report
}

// tableState carries intermediate artifacts between steps.
type tableState struct {
	sheet  domain.RawSheet
	region domain.TableRegion
	colmap *dataprocessing.ColumnMap
}

func (r *Runner) stepLoad(st *tableState, report *domain.TableReport, spec *schema.TableSpec, logger *slog.Logger) bool {
	raw, err := r.loader.Load(spec.Workbook, spec.Sheet)
	if err != nil {
		logger.Error("workbook load failed", slog.String("error", err.Error()))
		report.AddFindings(domain.Errorf(domain.RuleLayout, "", "", "cannot read workbook: %v", err))
		return false
	}
	st.sheet = raw
	return true
}

func (r *Runner) stepLocate(st *tableState, report *domain.TableReport, spec *schema.TableSpec, logger *slog.Logger) bool {
	region, err := dataprocessing.LocateTable(st.sheet, spec)
	if err != nil {
		report.AddFindings(domain.Errorf(domain.RuleLayout, "", "", "%v", err))
		return false
	}
	st.region = region
	logger.Debug("table located",
		slog.Int("header_rows", region.HeaderRows()),
		slog.Int("data_start", region.DataStart),
		slog.Int("data_end", region.DataEnd),
		slog.Int("excluded_rows", len(region.Exclusions)))

	md := sheet.ExtractMetadata(st.sheet, region.HeaderStart)
	report.Metadata = map[string]string{
		"source_file": st.sheet.SourceFile,
		"sheet":       st.sheet.SheetName,
	}
	if md.Title != "" {
		report.Metadata["title"] = md.Title
	}
	if md.Unit != "" {
		report.Metadata["unit"] = md.Unit
	}
	return true
}

func (r *Runner) stepMap(st *tableState, report *domain.TableReport, spec *schema.TableSpec) bool {
	colmap, findings, err := dataprocessing.MapColumns(st.sheet, st.region, spec)
	report.AddFindings(findings...)
	if err != nil {
		return false
	}
	st.colmap = colmap
	return true
}

func (r *Runner) stepClean(st *tableState, report *domain.TableReport, spec *schema.TableSpec) bool {
	records, findings := dataprocessing.CleanRecords(st.sheet, st.region, st.colmap, spec)
	report.AddFindings(findings...)
	report.Records = records
	if len(records) == 0 {
		report.AddFindings(domain.Errorf(domain.RuleLayout, "", "",
			"no usable data rows survived cleaning"))
		return false
	}
	return true
}

func (r *Runner) stepDerive(report *domain.TableReport, spec *schema.TableSpec) bool {
	report.AddFindings(dataprocessing.DeriveMetrics(report.Records, spec)...)
	return true
}

func (r *Runner) stepValidate(report *domain.TableReport, spec *schema.TableSpec) bool {
	report.AddFindings(r.validator.Validate(report.Records, spec)...)
	return true
}

func (r *Runner) recordMetrics(ctx context.Context, report *domain.TableReport) {
	if r.metrics == nil {
		return
	}
	r.metrics.ActiveTables.Add(ctx, -1)
	r.metrics.TablesProcessed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("table", report.TableID),
		attribute.String("status", string(report.Status)),
	))
	r.metrics.TableDuration.Record(ctx, report.Duration.Seconds(), metric.WithAttributes(
		attribute.String("table", report.TableID),
	))
	for _, f := range report.Findings {
		r.metrics.FindingsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("severity", string(f.Severity)),
			attribute.String("rule", f.Rule),
		))
	}
}
