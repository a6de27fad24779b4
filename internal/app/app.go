// Package app wires configuration, the analysis pipeline, storage and the
// REST server together for the command-line tools.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/chrissnell/gravnoise/internal/managers"
	"github.com/chrissnell/gravnoise/internal/noise"
	"github.com/chrissnell/gravnoise/internal/pipeline"
	"github.com/chrissnell/gravnoise/internal/report"
	"github.com/chrissnell/gravnoise/internal/storage"
	"github.com/chrissnell/gravnoise/internal/tsf"
	"github.com/chrissnell/gravnoise/pkg/config"
	"github.com/chrissnell/gravnoise/pkg/responseformat"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// AnalyzeOptions override the output section of the configuration.
type AnalyzeOptions struct {
	Input     string
	OutputDir string // empty keeps the configured directory
	Format    string // empty keeps the configured format
}

// Analysis is the outcome of one Analyze call.
type Analysis struct {
	Run     *storage.Run
	Output  *pipeline.Output
	Reports []string
}

// PipelineOptions maps the configuration onto pipeline options.
func PipelineOptions(cfg *config.ConfigData) pipeline.Options {
	return pipeline.Options{
		Station:            cfg.Station.StationConfig(),
		Detrend:            cfg.Corrections.Detrend,
		PressureCorrection: cfg.Corrections.PressureCorrection,
		Admittance:         cfg.Corrections.PressureAdmittance,
		PolynomialDegree:   cfg.Corrections.PolynomialDegree,
		Noise: noise.Params{
			SamplesPerDay:     cfg.Analysis.SamplesPerDay,
			SampleRate:        cfg.Analysis.SampleRateHz,
			BandLow:           cfg.Analysis.BandLowHz,
			BandHigh:          cfg.Analysis.BandHighHz,
			CalibrationOffset: cfg.Analysis.CalibrationOffset,
			QuietDays:         cfg.Analysis.QuietDays,
			MaxPadExponent:    cfg.Analysis.MaxPadExponent,
			Detrend:           cfg.Analysis.DetrendConstant,
			Workers:           cfg.Analysis.Workers,
		},
	}
}

// ReportPrefix derives the report file prefix from the input file name.
func ReportPrefix(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_"
}

// Analyze reads the input record, runs the pipeline, stores the run in the
// configured backends and writes the report files.
//
// A record with too few usable days still produces a stored run and
// reports; the returned error then wraps noise.ErrInsufficientDays.
func (a *App) Analyze(ctx context.Context, opts AnalyzeOptions) (*Analysis, error) {
	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	format, err := responseformat.ParseFormat(firstNonEmpty(opts.Format, cfg.Output.Format))
	if err != nil {
		return nil, err
	}
	outDir := firstNonEmpty(opts.OutputDir, cfg.Output.Directory)

	series, err := tsf.ReadFile(opts.Input, tsf.Options{
		GravityScale:  cfg.Input.GravityScale,
		PressureScale: cfg.Input.PressureScale,
	})
	if err != nil {
		return nil, err
	}

	p, err := pipeline.New(PipelineOptions(cfg), a.logger)
	if err != nil {
		return nil, err
	}

	out, runErr := p.Run(ctx, series)
	if out == nil {
		return nil, runErr
	}

	analysis := &Analysis{
		Output: out,
		Run:    storage.NewRun(cfg.Station.Name, out.Samples, out.Result),
	}

	sm, err := managers.NewStorageManager(ctx, cfg.Storage, a.logger)
	if err != nil {
		sm.Close()
		return nil, err
	}
	defer sm.Close()

	if err := sm.SaveRun(ctx, analysis.Run); err != nil {
		return nil, fmt.Errorf("error storing run: %w", err)
	}

	analysis.Reports, err = report.WriteAll(outDir, ReportPrefix(opts.Input), analysis.Run, format)
	if err != nil {
		return nil, err
	}
	a.logger.Infow("wrote reports", "directory", outDir, "files", len(analysis.Reports))

	return analysis, runErr
}

// Serve opens the configured stores, starts the REST server and blocks
// until a signal arrives or ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	storageManager, err := managers.NewStorageManager(ctx, cfg.Storage, a.logger)
	if err != nil {
		storageManager.Close()
		return err
	}
	defer storageManager.Close()
	if len(storageManager.Engines) == 0 {
		return errors.New("no storage backend configured; nothing to serve")
	}

	cm, err := managers.NewControllerManager(ctx, &wg, cfg, storageManager, a.logger)
	if err != nil {
		return err
	}
	if err := cm.StartControllers(); err != nil {
		return err
	}

	a.logger.Info("application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		a.logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	a.logger.Info("waiting for all workers to terminate...")
	wg.Wait()
	a.logger.Info("shutdown complete")

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
