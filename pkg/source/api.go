// pkg/source/api.go
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// PagedAPISource pulls raw records from the PLUTO open-data API one page
// at a time using limit/offset pagination. An optional filter expression
// ($where) narrows the result server-side. A page shorter than the page
// size, or an empty page, signals exhaustion. Between pages the source
// sleeps a fixed delay to stay under the API's rate limit.
type PagedAPISource struct {
	client    *http.Client
	logger    *zap.Logger
	baseURL   string
	filter    string
	pageSize  int
	delay     time.Duration
	offset    int
	exhausted bool
}

// PagedAPIOption configures a PagedAPISource
type PagedAPIOption func(*PagedAPISource)

// WithHTTPClient overrides the HTTP client (used by tests)
func WithHTTPClient(client *http.Client) PagedAPIOption {
	return func(s *PagedAPISource) {
		s.client = client
	}
}

// WithRequestDelay sets the inter-page delay
func WithRequestDelay(delay time.Duration) PagedAPIOption {
	return func(s *PagedAPISource) {
		s.delay = delay
	}
}

// NewPagedAPISource creates a paged API source. The filter is a
// source-native predicate string ("" for none), already AND-composed by
// the caller.
func NewPagedAPISource(baseURL, filter string, pageSize int, logger *zap.Logger, opts ...PagedAPIOption) *PagedAPISource {
	s := &PagedAPISource{
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   logger.Named("api-source"),
		baseURL:  baseURL,
		filter:   filter,
		pageSize: pageSize,
		delay:    time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Next fetches the next page of records. Any transport error or non-2xx
// response is surfaced as a SourceError; the caller aborts the run rather
// than skipping the page, to avoid silently truncating data.
func (s *PagedAPISource) Next(ctx context.Context) ([]RawRecord, error) {
	if s.exhausted {
		return nil, io.EOF
	}

	// Respect the rate limit between pages, not before the first one
	if s.offset > 0 && s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	pageURL := s.pageURL()
	s.logger.Debug("Fetching page",
		zap.Int("offset", s.offset),
		zap.Int("pageSize", s.pageSize),
		zap.String("filter", s.filter))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, NewSourceError(KindTransport, "build request", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewSourceError(KindTransport, "fetch page", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewSourceError(KindRateLimited, "fetch page",
			fmt.Errorf("status %d at offset %d", resp.StatusCode, s.offset))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, NewSourceError(KindTransport, "fetch page",
			fmt.Errorf("status %d at offset %d", resp.StatusCode, s.offset))
	}

	var records []RawRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, NewSourceError(KindTransport, "decode page", err)
	}

	if len(records) == 0 {
		s.exhausted = true
		return nil, io.EOF
	}

	// A short page means the source has no more data after this one
	if len(records) < s.pageSize {
		s.exhausted = true
	}

	s.offset += len(records)
	return records, nil
}

// pageURL builds the request URL for the current offset
func (s *PagedAPISource) pageURL() string {
	params := url.Values{}
	params.Set("$limit", strconv.Itoa(s.pageSize))
	params.Set("$offset", strconv.Itoa(s.offset))
	if s.filter != "" {
		params.Set("$where", s.filter)
	}
	return s.baseURL + "?" + params.Encode()
}

// AndFilter combines two source-native predicates with a logical AND.
// Empty operands drop out.
func AndFilter(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " AND " + b
	}
}

// BoroughFilter returns the predicate scoping a run to one borough code
func BoroughFilter(code string) string {
	if code == "" {
		return ""
	}
	return fmt.Sprintf("borough='%s'", code)
}

// ChangedSinceFilter returns the predicate selecting records whose change
// timestamp is strictly greater than the watermark.
func ChangedSinceFilter(since time.Time) string {
	if since.IsZero() || since.Unix() <= 0 {
		return ""
	}
	return fmt.Sprintf("last_status_date>'%s'", since.UTC().Format(time.RFC3339))
}
