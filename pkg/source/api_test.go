// pkg/source/api_test.go
package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func pageHandler(t *testing.T, pages map[int][]RawRecord, wantWhere string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if wantWhere != "" {
			assert.Equal(t, wantWhere, r.URL.Query().Get("$where"))
		}

		offset, err := strconv.Atoi(r.URL.Query().Get("$offset"))
		require.NoError(t, err)

		page, ok := pages[offset]
		if !ok {
			page = []RawRecord{}
		}
		require.NoError(t, json.NewEncoder(w).Encode(page))
	}
}

func TestPagedAPISourcePagination(t *testing.T) {
	pages := map[int][]RawRecord{
		0: {{"bbl": "1000010001"}, {"bbl": "1000010002"}},
		2: {{"bbl": "1000010003"}, {"bbl": "1000010004"}},
		4: {{"bbl": "1000010005"}},
	}

	server := httptest.NewServer(pageHandler(t, pages, "borough='1'"))
	defer server.Close()

	src := NewPagedAPISource(server.URL, "borough='1'", 2, zap.NewNop(),
		WithRequestDelay(0))

	var total int
	for {
		batch, err := src.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		total += len(batch)
	}

	assert.Equal(t, 5, total)
}

func TestPagedAPISourceShortPageStopsPaging(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		// One record when two were asked for: the final page
		_ = json.NewEncoder(w).Encode([]RawRecord{{"bbl": "1000010001"}})
	}))
	defer server.Close()

	src := NewPagedAPISource(server.URL, "", 2, zap.NewNop(), WithRequestDelay(0))

	batch, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, batch, 1)

	_, err = src.Next(context.Background())
	assert.Equal(t, io.EOF, err)

	// The short page already signalled exhaustion; no extra request follows
	assert.Equal(t, 1, requests)
}

func TestPagedAPISourceEmptyFirstPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]RawRecord{})
	}))
	defer server.Close()

	src := NewPagedAPISource(server.URL, "", 2, zap.NewNop(), WithRequestDelay(0))

	_, err := src.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestPagedAPISourceRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	src := NewPagedAPISource(server.URL, "", 2, zap.NewNop(), WithRequestDelay(0))

	_, err := src.Next(context.Background())
	require.Error(t, err)

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, KindRateLimited, srcErr.Kind)
}

func TestPagedAPISourceServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	src := NewPagedAPISource(server.URL, "", 2, zap.NewNop(), WithRequestDelay(0))

	_, err := src.Next(context.Background())
	require.Error(t, err)

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, KindTransport, srcErr.Kind)
}

func TestWithHTTPClientOverridesDefault(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	src := NewPagedAPISource("http://localhost", "", 2, zap.NewNop(),
		WithHTTPClient(client))

	assert.Same(t, client, src.client)
}

func TestFilters(t *testing.T) {
	assert.Equal(t, "borough='3'", BoroughFilter("3"))
	assert.Equal(t, "", BoroughFilter(""))

	since := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "last_status_date>'2024-06-01T12:00:00Z'", ChangedSinceFilter(since))

	// Epoch and zero watermarks mean "everything": no predicate at all
	assert.Equal(t, "", ChangedSinceFilter(time.Unix(0, 0)))
	assert.Equal(t, "", ChangedSinceFilter(time.Time{}))

	assert.Equal(t, "a AND b", AndFilter("a", "b"))
	assert.Equal(t, "a", AndFilter("a", ""))
	assert.Equal(t, "b", AndFilter("", "b"))
	assert.Equal(t, "", AndFilter("", ""))
}
