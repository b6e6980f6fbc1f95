package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/quad-fun/lotfinderpro/pkg/config"
	"github.com/quad-fun/lotfinderpro/pkg/connector"
	"github.com/quad-fun/lotfinderpro/pkg/loader"
	"github.com/quad-fun/lotfinderpro/pkg/normalizer"
	"github.com/quad-fun/lotfinderpro/pkg/pipeline"
	"github.com/quad-fun/lotfinderpro/pkg/sampler"
	"github.com/quad-fun/lotfinderpro/pkg/schema"
	"github.com/quad-fun/lotfinderpro/pkg/source"
	"github.com/quad-fun/lotfinderpro/pkg/watermark"
)

func main() {
	incremental := flag.Bool("incremental", false, "load only records changed since the stored watermark")
	borough := flag.String("borough", "", "restrict the run to one borough code (1-5)")
	file := flag.String("file", "", "load from a local PLUTO CSV export instead of the API")
	table := flag.String("table", "", "destination table (overrides PLUTO_TABLE)")
	sample := flag.Bool("sample", false, "build a stratified sample from -file instead of a full load")
	sampleSize := flag.Int("sample-size", 0, "target sample size (overrides SAMPLE_SIZE)")
	seed := flag.Int64("seed", 0, "sampling seed (overrides SAMPLE_SEED)")
	flag.Parse()

	// Best effort; environment variables win over .env
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	if *table != "" {
		cfg.Table = *table
	}
	if *sampleSize > 0 {
		cfg.SampleSize = *sampleSize
	}
	if *seed != 0 {
		cfg.SampleSeed = *seed
	}

	logger, err := buildLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger, runFlags{
		incremental: *incremental,
		borough:     *borough,
		file:        *file,
		sample:      *sample,
	}); err != nil {
		logger.Error("Run failed", zap.Error(err))
		os.Exit(1)
	}
}

type runFlags struct {
	incremental bool
	borough     string
	file        string
	sample      bool
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, flags runFlags) error {
	pg, err := connector.NewPostgresConnector(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.Validate(ctx, cfg.Table); err != nil {
		return err
	}

	catalog := schema.Properties()
	norm := normalizer.NewNormalizer(catalog, logger)
	load := loader.NewBatchLoader(pg.DB(), catalog, cfg.Table, logger)

	if flags.sample {
		return runSample(ctx, cfg, logger, norm, load, flags.file)
	}

	marks := watermark.NewStore(pg.DB(), watermark.DefaultKey, logger)
	if err := marks.EnsureTable(ctx); err != nil {
		return err
	}

	opts := pipeline.Options{
		Mode:    pipeline.ModeFull,
		Borough: flags.borough,
	}
	if flags.incremental {
		opts.Mode = pipeline.ModeIncremental
	}

	var factory pipeline.SourceFactory
	if flags.file != "" {
		// File loads are not partitioned; the whole export streams once
		opts.Partitions = []string{""}
		factory = func(ctx context.Context, scope pipeline.Scope) (source.Reader, error) {
			return source.NewChunkedCSVSource(flags.file, cfg.ChunkSize, logger)
		}
	} else {
		factory = func(ctx context.Context, scope pipeline.Scope) (source.Reader, error) {
			filter := source.BoroughFilter(scope.Borough)
			filter = source.AndFilter(filter, source.ChangedSinceFilter(scope.ChangedSince))
			return source.NewPagedAPISource(
				cfg.API.BaseURL,
				filter,
				cfg.API.PageSize,
				logger,
				source.WithRequestDelay(cfg.RequestDelay),
				source.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
			), nil
		}
	}

	pipe := pipeline.NewPipeline(factory, norm, load, marks, pipeline.Settings{
		BatchSize:       cfg.BatchSize,
		LoadConcurrency: cfg.LoadConcurrency,
	}, logger)

	// Failed batches are reported in the summary log with replayable key
	// ranges; only an aborted run (non-nil error) exits nonzero.
	_, err = pipe.Run(ctx, opts)
	return err
}

// runSample builds a representative subset from a local export and loads
// it through the same upsert path as a normal run.
func runSample(ctx context.Context, cfg *config.Config, logger *zap.Logger, norm *normalizer.Normalizer, load *loader.BatchLoader, file string) error {
	if file == "" {
		return fmt.Errorf("-sample requires -file")
	}

	// Rough footprint estimate, assuming ~2KB per normalized record
	logger.Info("Building stratified sample",
		zap.Int("targetSize", cfg.SampleSize),
		zap.Float64("estimatedMB", float64(cfg.SampleSize)*2/1024))

	reader, err := source.NewChunkedCSVSource(file, cfg.ChunkSize, logger)
	if err != nil {
		return err
	}
	defer reader.Close()

	records, err := sampler.ReadForSample(ctx, reader, norm, cfg.SampleSize)
	if err != nil {
		return err
	}

	strat := sampler.NewStratifiedSampler(logger)
	picked := strat.Sample(records, cfg.SampleSize, sampler.StrategicQuotas(records), cfg.SampleSeed)

	for i := 0; i < len(picked); i += cfg.BatchSize {
		end := i + cfg.BatchSize
		if end > len(picked) {
			end = len(picked)
		}
		result := load.Upsert(ctx, i/cfg.BatchSize, picked[i:end])
		if result.Err != nil {
			return fmt.Errorf("sample batch %d: %w", result.BatchIndex, result.Err)
		}
	}

	logger.Info("Sample load complete",
		zap.Int("materialized", len(records)),
		zap.Int("sampled", len(picked)))
	return nil
}

// buildLogger constructs the process logger from LOG_LEVEL and LOG_FORMAT
func buildLogger(level, format string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)

	return zapCfg.Build()
}
