// pkg/loader/loader.go
package loader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/quad-fun/lotfinderpro/pkg/schema"
)

// BatchResult reports the outcome of one upsert batch. A failed batch is
// rolled back in full and never retried automatically; the key range is
// logged so the batch can be replayed manually.
type BatchResult struct {
	BatchIndex int
	Size       int
	Upserted   int64
	Failed     bool
	Err        error
	KeyLow     int64
	KeyHigh    int64
	Duration   time.Duration
}

// maxBindParams is the PostgreSQL per-statement bind parameter cap
const maxBindParams = 65535

// BatchLoader converts normalized records into conflict-aware upserts
// against the destination table, one transaction per batch. On conflict
// against the bbl key every other column is overwritten with the incoming
// value (last write wins, full column overwrite).
type BatchLoader struct {
	db      *sqlx.DB
	catalog *schema.Catalog
	logger  *zap.Logger
	table   string
	columns []string
	maxRows int
}

// NewBatchLoader creates a loader for the given destination table
func NewBatchLoader(db *sqlx.DB, catalog *schema.Catalog, table string, logger *zap.Logger) *BatchLoader {
	columns := catalog.ColumnNames()
	return &BatchLoader{
		db:      db,
		catalog: catalog,
		logger:  logger.Named("loader"),
		table:   table,
		columns: columns,
		maxRows: maxBindParams / len(columns),
	}
}

// Upsert applies one batch in a single parameterized statement inside one
// transaction. On any failure the transaction rolls back, the batch
// reports zero rows affected, and the run continues with the next batch.
func (l *BatchLoader) Upsert(ctx context.Context, batchIndex int, batch []schema.Record) BatchResult {
	result := BatchResult{BatchIndex: batchIndex, Size: len(batch)}
	if len(batch) == 0 {
		return result
	}

	start := time.Now()
	result.KeyLow, result.KeyHigh = keyRange(batch)

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return l.failed(result, fmt.Errorf("begin transaction: %w", err), start)
	}

	// Oversized batches split into several statements inside the one
	// transaction, keeping each under the bind parameter cap.
	var upserted int64
	for _, chunk := range l.splitBatch(batch) {
		query, args := l.buildUpsert(chunk)

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			tx.Rollback()
			return l.failed(result, fmt.Errorf("upsert batch: %w", err), start)
		}

		if affected, err := res.RowsAffected(); err == nil {
			upserted += affected
		} else {
			upserted += int64(len(chunk))
		}
	}

	if err := tx.Commit(); err != nil {
		return l.failed(result, fmt.Errorf("commit batch: %w", err), start)
	}

	result.Upserted = upserted
	result.Duration = time.Since(start)

	l.logger.Debug("Upserted batch",
		zap.Int("batchIndex", batchIndex),
		zap.Int("size", len(batch)),
		zap.Int64("keyLow", result.KeyLow),
		zap.Int64("keyHigh", result.KeyHigh),
		zap.Duration("duration", result.Duration))

	return result
}

// Truncate destructively empties the destination table. Full-load mode
// only; must be explicitly requested.
func (l *BatchLoader) Truncate(ctx context.Context) error {
	l.logger.Warn("Truncating destination table", zap.String("table", l.table))

	query := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", l.table)
	if _, err := l.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate %s: %w", l.table, err)
	}

	return nil
}

// failed finalizes a batch result as rolled back with zero rows
func (l *BatchLoader) failed(result BatchResult, err error, start time.Time) BatchResult {
	result.Failed = true
	result.Err = err
	result.Upserted = 0
	result.Duration = time.Since(start)

	l.logger.Error("Batch upsert failed, rolled back",
		zap.Int("batchIndex", result.BatchIndex),
		zap.Int("size", result.Size),
		zap.Int64("keyLow", result.KeyLow),
		zap.Int64("keyHigh", result.KeyHigh),
		zap.Error(err))

	return result
}

// splitBatch slices a batch so no single statement binds more than
// maxBindParams parameters.
func (l *BatchLoader) splitBatch(batch []schema.Record) [][]schema.Record {
	if len(batch) <= l.maxRows {
		return [][]schema.Record{batch}
	}

	chunks := make([][]schema.Record, 0, len(batch)/l.maxRows+1)
	for start := 0; start < len(batch); start += l.maxRows {
		end := start + l.maxRows
		if end > len(batch) {
			end = len(batch)
		}
		chunks = append(chunks, batch[start:end])
	}
	return chunks
}

// buildUpsert renders the multi-row insert with an ON CONFLICT clause
// overwriting every non-key column.
func (l *BatchLoader) buildUpsert(batch []schema.Record) (string, []interface{}) {
	cols := l.columns
	placeholders := make([]string, len(batch))
	args := make([]interface{}, 0, len(batch)*len(cols))

	for i, record := range batch {
		row := make([]string, len(cols))
		for j, name := range cols {
			row[j] = fmt.Sprintf("$%d", i*len(cols)+j+1)
			args = append(args, bindValue(l.catalog.Lookup(name), record[name]))
		}
		placeholders[i] = "(" + strings.Join(row, ", ") + ")"
	}

	updates := make([]string, 0, len(cols)-1)
	for _, name := range cols {
		if name == schema.KeyColumn {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", name, name))
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) DO UPDATE SET %s",
		l.table,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		schema.KeyColumn,
		strings.Join(updates, ", "),
	)

	return query, args
}

// bindValue adapts a record value to its driver representation
func bindValue(col *schema.Column, value interface{}) interface{} {
	if value == nil {
		return nil
	}
	if col != nil && col.Type == schema.TypeTextArray {
		if elems, ok := value.([]string); ok {
			return pq.Array(elems)
		}
	}
	return value
}

// keyRange returns the lowest and highest bbl in a batch for replay logs
func keyRange(batch []schema.Record) (int64, int64) {
	low, high := batch[0].BBL(), batch[0].BBL()
	for _, record := range batch[1:] {
		bbl := record.BBL()
		if bbl < low {
			low = bbl
		}
		if bbl > high {
			high = bbl
		}
	}
	return low, high
}
