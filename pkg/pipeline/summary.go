// pkg/pipeline/summary.go
package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/quad-fun/lotfinderpro/pkg/loader"
)

// Mode selects between a destructive full load and an incremental one
type Mode int

const (
	// ModeFull truncates the destination table and reloads everything
	ModeFull Mode = iota
	// ModeIncremental loads only records changed since the watermark
	ModeIncremental
)

// String returns a string representation of the mode
func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeIncremental:
		return "incremental"
	default:
		return fmt.Sprintf("unknown(%d)", m)
	}
}

// RunSummary accumulates the outcome of one pipeline run. Safe for
// concurrent updates from batch workers.
type RunSummary struct {
	mu sync.Mutex

	RunID     string
	Mode      Mode
	Borough   string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Fetched       int64 // Raw records pulled from the source
	Normalized    int64 // Records that passed normalization
	Rejected      int64 // Records dropped for a missing key
	Loaded        int64 // Rows reported upserted by the destination
	Batches       int   // Upsert batches issued
	FailedBatches int   // Batches rolled back

	// Key ranges of failed batches, kept for manual replay
	FailedRanges []string

	// Aborted is set when a source error ended the run early; the
	// watermark is never advanced for an aborted run.
	Aborted bool

	// WatermarkPersisted records whether Finalizing managed to write the
	// new watermark. False is a warning, not a failure.
	WatermarkPersisted bool
}

// NewRunSummary initializes a summary for a run
func NewRunSummary(runID string, mode Mode, borough string) *RunSummary {
	return &RunSummary{
		RunID:     runID,
		Mode:      mode,
		Borough:   borough,
		StartTime: time.Now(),
	}
}

// AddFetched records raw records pulled from the source
func (s *RunSummary) AddFetched(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fetched += int64(n)
}

// AddNormalized records one record passing normalization
func (s *RunSummary) AddNormalized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Normalized++
}

// AddRejected records one record rejected for a missing key
func (s *RunSummary) AddRejected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rejected++
}

// AddBatch incorporates one batch result
func (s *RunSummary) AddBatch(result loader.BatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Batches++
	if result.Failed {
		s.FailedBatches++
		s.FailedRanges = append(s.FailedRanges,
			fmt.Sprintf("batch %d: bbl %d..%d", result.BatchIndex, result.KeyLow, result.KeyHigh))
		return
	}
	s.Loaded += result.Upserted
}

// Complete finalizes the summary
func (s *RunSummary) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// Succeeded reports whether the run finished without aborting. Failed
// batches are a warning, not a run failure.
func (s *RunSummary) Succeeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.Aborted
}
