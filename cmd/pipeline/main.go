// Command pipeline ingests the published trade-statistics workbooks,
// normalizes them against the schema registry, validates the result, and
// exports the tables that pass.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tradestat/internal/config"
	"tradestat/internal/exporter"
	"tradestat/internal/infrastructure"
	"tradestat/internal/operations"
	"tradestat/internal/schema"
	"tradestat/internal/sheet"
	"tradestat/internal/validation"
)

type cliOptions struct {
	configFile    string
	tables        []string
	all           bool
	validateOnly  bool
	includeFailed bool
	formats       []string
	workers       int
	timeout       time.Duration
	outDir        string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "pipeline",
		Short:         "Normalize and validate trade statistics workbooks",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), opts)
		},
	}

	flags := root.Flags()
	flags.StringVar(&opts.configFile, "config", "", "path to a YAML config file")
	flags.StringSliceVar(&opts.tables, "tables", nil, "table IDs to process")
	flags.BoolVar(&opts.all, "all", false, "process every registered table")
	flags.BoolVar(&opts.validateOnly, "validate-only", false, "validate without writing exports")
	flags.BoolVar(&opts.includeFailed, "include-failed", false, "export failed tables too")
	flags.StringSliceVar(&opts.formats, "formats", []string{"csv"}, "export formats (csv, json)")
	flags.IntVar(&opts.workers, "workers", 0, "concurrent table workers (overrides config)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "run timeout (overrides config)")
	flags.StringVar(&opts.outDir, "out", "", "output directory (overrides config)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			return exit.code
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}
	return 0
}

// exitError carries a run's exit code through cobra without printing a
// redundant error message.
type exitError struct {
	code int
}

func (e exitError) Error() string { return fmt.Sprintf("exit code %d", e.code) }

func execute(ctx context.Context, opts *cliOptions) error {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	if opts.workers > 0 {
		cfg.Pipeline.Workers = opts.workers
	}
	if opts.timeout > 0 {
		cfg.Pipeline.RunTimeout = opts.timeout
	}
	if opts.outDir != "" {
		cfg.Paths.OutDir = opts.outDir
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer infrastructure.CloseLogFile()

	for _, f := range opts.formats {
		if f != "csv" && f != "json" {
			return fmt.Errorf("unknown export format %q", f)
		}
	}

	registry, err := schema.Load(cfg.Paths.RegistryFile)
	if err != nil {
		return err
	}

	tableIDs := opts.tables
	if opts.all {
		tableIDs = registry.IDs()
	}
	if len(tableIDs) == 0 {
		return fmt.Errorf("no tables selected; use --tables or --all")
	}

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := infrastructure.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return err
	}

	runner := operations.NewRunner(
		registry,
		sheet.NewLoader(cfg.Paths.DataDir, logger),
		validation.New(logger),
		exporter.ForFormats(opts.formats, cfg.Paths.OutDir),
		cfg.Pipeline,
		logger,
		providers.Tracer,
		metrics,
	)

	if cfg.Pipeline.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Pipeline.RunTimeout)
		defer cancel()
	}

	logger.Info("starting pipeline",
		slog.String("tables", strings.Join(tableIDs, ",")),
		slog.String("formats", strings.Join(opts.formats, ",")),
		slog.Bool("validate_only", opts.validateOnly))

	report, err := runner.Run(ctx, tableIDs, operations.Options{
		ValidateOnly:  opts.validateOnly,
		IncludeFailed: opts.includeFailed,
	})
	if err != nil {
		return err
	}

	fmt.Print(report.Summary())

	if code := report.ExitCode(); code != 0 {
		return exitError{code: code}
	}
	return nil
}
