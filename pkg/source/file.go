// pkg/source/file.go
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// ChunkedCSVSource reads a local delimited file sequentially in
// fixed-size row chunks. The header row defines the source column names.
// No rate limiting applies to local reads.
type ChunkedCSVSource struct {
	logger    *zap.Logger
	path      string
	chunkSize int

	file      *os.File
	reader    *csv.Reader
	header    []string
	exhausted bool
}

// NewChunkedCSVSource opens the file and reads its header. A missing path
// fails fast with a not-found SourceError.
func NewChunkedCSVSource(path string, chunkSize int, logger *zap.Logger) (*ChunkedCSVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewSourceError(KindNotFound, "open file", err)
		}
		return nil, NewSourceError(KindTransport, "open file", err)
	}

	reader := csv.NewReader(file)
	// PLUTO exports occasionally carry ragged rows; tolerate them per-row
	// instead of failing the whole read.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		file.Close()
		return nil, NewSourceError(KindTransport, "read header", err)
	}

	s := &ChunkedCSVSource{
		logger:    logger.Named("csv-source"),
		path:      path,
		chunkSize: chunkSize,
		file:      file,
		reader:    reader,
		header:    header,
	}

	s.logger.Info("Opened source file",
		zap.String("path", path),
		zap.Int("columns", len(header)),
		zap.Int("chunkSize", chunkSize))

	return s, nil
}

// Next reads the next chunk of rows. Returns io.EOF once the file is
// drained; the file handle is closed on exhaustion.
func (s *ChunkedCSVSource) Next(ctx context.Context) ([]RawRecord, error) {
	if s.exhausted {
		return nil, io.EOF
	}

	records := make([]RawRecord, 0, s.chunkSize)
	for len(records) < s.chunkSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		row, err := s.reader.Read()
		if err == io.EOF {
			s.exhausted = true
			s.file.Close()
			break
		}
		if err != nil {
			return nil, NewSourceError(KindTransport, fmt.Sprintf("read %s", s.path), err)
		}

		records = append(records, s.rowToRecord(row))
	}

	if len(records) == 0 {
		return nil, io.EOF
	}

	return records, nil
}

// Close releases the underlying file handle
func (s *ChunkedCSVSource) Close() error {
	if s.exhausted {
		return nil
	}
	s.exhausted = true
	return s.file.Close()
}

// rowToRecord maps one CSV row onto the header columns. Short rows leave
// trailing columns absent; extra cells are dropped.
func (s *ChunkedCSVSource) rowToRecord(row []string) RawRecord {
	record := make(RawRecord, len(s.header))
	for i, name := range s.header {
		if i >= len(row) {
			break
		}
		record[name] = row[i]
	}
	return record
}
