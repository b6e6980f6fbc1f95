// pkg/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quad-fun/lotfinderpro/pkg/loader"
	"github.com/quad-fun/lotfinderpro/pkg/normalizer"
	"github.com/quad-fun/lotfinderpro/pkg/schema"
	"github.com/quad-fun/lotfinderpro/pkg/source"
)

// Scope narrows a source stream to one partition and, for incremental
// runs, to records changed after the watermark.
type Scope struct {
	Borough      string
	ChangedSince time.Time
}

// SourceFactory builds a reader for one scope. The API factory folds the
// scope into a $where filter; the file factory ignores it.
type SourceFactory func(ctx context.Context, scope Scope) (source.Reader, error)

// Loader is the destination the pipeline writes batches to
type Loader interface {
	Upsert(ctx context.Context, batchIndex int, batch []schema.Record) loader.BatchResult
	Truncate(ctx context.Context) error
}

// WatermarkStore tracks the incremental-run boundary
type WatermarkStore interface {
	Read(ctx context.Context) time.Time
	Write(ctx context.Context, t time.Time) error
}

// Options selects the mode and partition scope of one run
type Options struct {
	Mode    Mode
	Borough string // One borough code, or "" for every partition

	// Partitions overrides the partition walk; nil derives it from
	// Borough (all borough codes for "", the single code otherwise).
	// File-backed runs pass a single empty partition.
	Partitions []string
}

// Settings carries the tunables of a pipeline
type Settings struct {
	BatchSize       int // Records per upsert statement
	LoadConcurrency int // Concurrent in-flight upsert batches
}

// Pipeline orchestrates one run: stream batches from the source, through
// the normalizer, into the loader, then advance the watermark. Callers
// must serialize runs against the same watermark key; within a run,
// upsert batches are dispatched concurrently, which is safe because
// upserts on disjoint keys never conflict and on overlapping keys are
// commutative under last-write-wins.
type Pipeline struct {
	sources    SourceFactory
	normalizer *normalizer.Normalizer
	loader     Loader
	marks      WatermarkStore
	logger     *zap.Logger
	settings   Settings
}

// NewPipeline wires a pipeline from its collaborators
func NewPipeline(
	sources SourceFactory,
	norm *normalizer.Normalizer,
	load Loader,
	marks WatermarkStore,
	settings Settings,
	logger *zap.Logger,
) *Pipeline {
	if settings.BatchSize <= 0 {
		settings.BatchSize = 500
	}
	if settings.LoadConcurrency <= 0 {
		settings.LoadConcurrency = 1
	}

	return &Pipeline{
		sources:    sources,
		normalizer: norm,
		loader:     load,
		marks:      marks,
		logger:     logger.Named("pipeline"),
		settings:   settings,
	}
}

// Run executes one full or incremental run. The returned summary is
// always non-nil; a non-nil error means the run aborted on a source
// failure and the watermark was left untouched.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*RunSummary, error) {
	summary := NewRunSummary(uuid.New().String(), opts.Mode, opts.Borough)

	p.logger.Info("Starting run",
		zap.String("runID", summary.RunID),
		zap.String("mode", opts.Mode.String()),
		zap.String("borough", opts.Borough))

	// Full loads destroy the destination first; this is irreversible and
	// only happens when explicitly requested.
	if opts.Mode == ModeFull {
		if err := p.loader.Truncate(ctx); err != nil {
			summary.Aborted = true
			summary.Complete()
			return summary, fmt.Errorf("full-load truncate: %w", err)
		}
	}

	var since time.Time
	if opts.Mode == ModeIncremental {
		since = p.marks.Read(ctx)
		p.logger.Info("Loading changes since watermark",
			zap.Time("watermark", since))
	}

	for _, borough := range p.partitions(opts) {
		scope := Scope{Borough: borough, ChangedSince: since}
		if err := p.stream(ctx, scope, summary); err != nil {
			summary.Aborted = true
			summary.Complete()
			p.logSummary(summary)
			return summary, err
		}
	}

	p.finalize(ctx, summary)
	summary.Complete()
	p.logSummary(summary)

	return summary, nil
}

// partitions resolves the partition walk for a run
func (p *Pipeline) partitions(opts Options) []string {
	if len(opts.Partitions) > 0 {
		return opts.Partitions
	}
	if opts.Borough != "" {
		return []string{opts.Borough}
	}
	return schema.BoroughCodes
}

// stream drains one scoped source: fetch, normalize, and dispatch upsert
// batches until exhaustion. Record rejections and batch failures are
// counted and skipped; only a source error aborts.
func (p *Pipeline) stream(ctx context.Context, scope Scope, summary *RunSummary) error {
	reader, err := p.sources(ctx, scope)
	if err != nil {
		return err
	}
	// File-backed sources hold an open handle; release it even when a
	// source error aborts the stream mid-file.
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.settings.LoadConcurrency)

	batchIndex := 0
	pending := make([]schema.Record, 0, p.settings.BatchSize)

	dispatch := func() {
		batch := pending
		pending = make([]schema.Record, 0, p.settings.BatchSize)
		index := batchIndex
		batchIndex++

		group.Go(func() error {
			// Batch failures are partial-failure results, not errors:
			// the run keeps going and reports how much succeeded.
			summary.AddBatch(p.loader.Upsert(groupCtx, index, batch))
			return nil
		})
	}

	for {
		raw, err := reader.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			group.Wait()
			return err
		}

		summary.AddFetched(len(raw))

		for _, rawRecord := range raw {
			record, err := p.normalizer.Normalize(rawRecord)
			if err != nil {
				if errors.Is(err, normalizer.ErrMissingKey) {
					summary.AddRejected()
					continue
				}
				// Normalization only fails for a missing key today;
				// anything else still just skips the record.
				summary.AddRejected()
				continue
			}

			summary.AddNormalized()
			pending = append(pending, record)

			if len(pending) >= p.settings.BatchSize {
				dispatch()
			}
		}
	}

	if len(pending) > 0 {
		dispatch()
	}

	group.Wait()
	return ctx.Err()
}

// finalize advances the watermark. A partial load still advances it:
// already-loaded ranges should not be re-fetched, and failed batches are
// reported for manual replay instead. Persist failure is non-fatal.
func (p *Pipeline) finalize(ctx context.Context, summary *RunSummary) {
	now := time.Now().UTC()
	if err := p.marks.Write(ctx, now); err != nil {
		p.logger.Warn("Failed to persist watermark; next run will re-fetch",
			zap.Error(err))
		summary.WatermarkPersisted = false
		return
	}
	summary.WatermarkPersisted = true
}

// logSummary emits the run completion report
func (p *Pipeline) logSummary(s *RunSummary) {
	fields := []zap.Field{
		zap.String("runID", s.RunID),
		zap.String("mode", s.Mode.String()),
		zap.Int64("fetched", s.Fetched),
		zap.Int64("normalized", s.Normalized),
		zap.Int64("rejected", s.Rejected),
		zap.Int64("loaded", s.Loaded),
		zap.Int("batches", s.Batches),
		zap.Int("failedBatches", s.FailedBatches),
		zap.Duration("duration", s.Duration),
	}

	switch {
	case s.Aborted:
		p.logger.Error("Run aborted", fields...)
	case s.FailedBatches > 0:
		p.logger.Warn("Run completed with failed batches",
			append(fields, zap.Strings("failedRanges", s.FailedRanges))...)
	default:
		p.logger.Info("Run completed", fields...)
	}
}
