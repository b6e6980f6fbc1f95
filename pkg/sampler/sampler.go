// pkg/sampler/sampler.go
package sampler

import (
	"context"
	"io"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/quad-fun/lotfinderpro/pkg/normalizer"
	"github.com/quad-fun/lotfinderpro/pkg/schema"
	"github.com/quad-fun/lotfinderpro/pkg/source"
)

// Quota describes one stratum of a sample: records matching the
// predicate may contribute up to round(Fraction × target) records.
// Quotas are evaluated in priority order; a record claimed by an earlier
// quota is excluded from later pools, so the final sample never carries
// duplicate keys.
type Quota struct {
	Name      string
	Fraction  float64
	Predicate func(schema.Record) bool
}

// StratifiedSampler selects a bounded, diverse, deduplicated subset of an
// already-materialized record set. Selection is seeded: the same input
// and quota list always produce the same sample.
type StratifiedSampler struct {
	logger *zap.Logger
}

// NewStratifiedSampler creates a sampler
func NewStratifiedSampler(logger *zap.Logger) *StratifiedSampler {
	return &StratifiedSampler{logger: logger.Named("sampler")}
}

// Sample fills each quota in order from the records its predicate matches
// and earlier quotas did not claim, then spreads any unmet remainder
// evenly across the fallback borough partition so the residual does not
// skew toward the most common category.
func (s *StratifiedSampler) Sample(records []schema.Record, targetSize int, quotas []Quota, seed int64) []schema.Record {
	if targetSize <= 0 || len(records) == 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(seed))
	selected := make(map[int64]bool, targetSize)
	sample := make([]schema.Record, 0, targetSize)
	remaining := targetSize

	for _, quota := range quotas {
		if remaining <= 0 {
			break
		}

		pool := s.eligible(records, selected, quota.Predicate)
		quotaCap := int(math.Round(quota.Fraction * float64(targetSize)))
		take := minInt(quotaCap, minInt(len(pool), remaining))
		if take <= 0 {
			continue
		}

		drawn := draw(pool, take, rng)
		for _, record := range drawn {
			selected[record.BBL()] = true
		}
		sample = append(sample, drawn...)
		remaining -= len(drawn)

		s.logger.Info("Filled sample quota",
			zap.String("quota", quota.Name),
			zap.Int("taken", len(drawn)),
			zap.Int("pool", len(pool)))
	}

	// Residual quota: an even split across the remaining boroughs
	if remaining > 0 {
		sample = append(sample, s.residual(records, selected, remaining, rng)...)
	}

	s.logger.Info("Sample complete",
		zap.Int("target", targetSize),
		zap.Int("size", len(sample)))

	return sample
}

// residual distributes the unmet target evenly across boroughs that the
// prioritized quotas did not already drain.
func (s *StratifiedSampler) residual(records []schema.Record, selected map[int64]bool, remaining int, rng *rand.Rand) []schema.Record {
	fallback := residualBoroughs()
	perBorough := remaining / len(fallback)
	if perBorough == 0 {
		perBorough = 1
	}

	out := make([]schema.Record, 0, remaining)
	for _, borough := range fallback {
		if remaining <= 0 {
			break
		}

		pool := s.eligible(records, selected, func(r schema.Record) bool {
			return r.Text(schema.ColBorough) == borough
		})
		take := minInt(perBorough, minInt(len(pool), remaining))
		if take <= 0 {
			continue
		}

		drawn := draw(pool, take, rng)
		for _, record := range drawn {
			selected[record.BBL()] = true
		}
		out = append(out, drawn...)
		remaining -= len(drawn)

		s.logger.Info("Filled residual borough quota",
			zap.String("borough", borough),
			zap.Int("taken", len(drawn)))
	}

	return out
}

// eligible returns the records matching the predicate that no earlier
// quota claimed, preserving input order for determinism.
func (s *StratifiedSampler) eligible(records []schema.Record, selected map[int64]bool, predicate func(schema.Record) bool) []schema.Record {
	pool := make([]schema.Record, 0)
	for _, record := range records {
		if selected[record.BBL()] {
			continue
		}
		if predicate == nil || predicate(record) {
			pool = append(pool, record)
		}
	}
	return pool
}

// draw selects n records from the pool without replacement via a seeded
// partial Fisher-Yates shuffle.
func draw(pool []schema.Record, n int, rng *rand.Rand) []schema.Record {
	if n >= len(pool) {
		return pool
	}

	indexes := make([]int, len(pool))
	for i := range indexes {
		indexes[i] = i
	}

	out := make([]schema.Record, n)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(indexes)-i)
		indexes[i], indexes[j] = indexes[j], indexes[i]
		out[i] = pool[indexes[i]]
	}

	return out
}

// residualBoroughs lists the fallback partition for the residual quota:
// every borough except Manhattan, which the strategic quotas already
// favor.
func residualBoroughs() []string {
	return []string{"Brooklyn", "Queens", "Bronx", "Staten Island"}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ReadForSample materializes up to 3× the target size of normalized
// records from a source, the superset the sampler then draws from.
// Rejected records are dropped silently; sampling inputs are test
// datasets, not the system of record.
func ReadForSample(ctx context.Context, reader source.Reader, norm *normalizer.Normalizer, targetSize int) ([]schema.Record, error) {
	limit := targetSize * 3
	records := make([]schema.Record, 0, limit)

	for len(records) < limit {
		raw, err := reader.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		for _, rawRecord := range raw {
			record, err := norm.Normalize(rawRecord)
			if err != nil {
				continue
			}
			records = append(records, record)
			if len(records) >= limit {
				break
			}
		}
	}

	return records, nil
}
