// pkg/source/source.go
package source

import (
	"context"
	"fmt"
)

// RawRecord is one source row as delivered: free-form source column name
// to untyped scalar. Ephemeral; owned by the batch that produced it until
// normalized.
type RawRecord map[string]interface{}

// Reader produces a lazy, finite sequence of raw-record batches. Next
// returns io.EOF when the source is exhausted; any other error is a
// SourceError and aborts the run. A reader is restartable only by
// constructing a new one with the same or a narrower filter.
type Reader interface {
	// Next returns the next batch of raw records. The returned slice is
	// owned by the caller.
	Next(ctx context.Context) ([]RawRecord, error)
}

// ErrorKind categorizes source failures
type ErrorKind int

const (
	// KindTransport covers network errors and non-2xx responses
	KindTransport ErrorKind = iota
	// KindNotFound means the source itself is missing (e.g. file path)
	KindNotFound
	// KindRateLimited means the remote source throttled the request
	KindRateLimited
)

// String returns a string representation of the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// SourceError is a recoverable read failure. The pipeline aborts the run
// on any SourceError rather than silently truncating data.
type SourceError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Error implements the error interface
func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source %s failed (%s): %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("source %s failed (%s)", e.Op, e.Kind)
}

// Unwrap returns the underlying error
func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError creates a source error
func NewSourceError(kind ErrorKind, op string, err error) *SourceError {
	return &SourceError{Kind: kind, Op: op, Err: err}
}
