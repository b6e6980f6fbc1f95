// pkg/source/file_test.go
package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pluto.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestChunkedCSVSourceChunks(t *testing.T) {
	path := writeCSV(t, "bbl,borough,address\n"+
		"1000010001,1,1 BROADWAY\n"+
		"1000010002,1,3 BROADWAY\n"+
		"1000010003,1,5 BROADWAY\n"+
		"1000010004,1,7 BROADWAY\n"+
		"1000010005,1,9 BROADWAY\n")

	src, err := NewChunkedCSVSource(path, 2, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()

	var sizes []int
	for {
		batch, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, len(batch))
	}

	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestChunkedCSVSourceHeaderMapping(t *testing.T) {
	path := writeCSV(t, "bbl,borough,address\n1000010001,1,1 BROADWAY\n")

	src, err := NewChunkedCSVSource(path, 10, zap.NewNop())
	require.NoError(t, err)

	batch, err := src.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, batch, 1)

	assert.Equal(t, "1000010001", batch[0]["bbl"])
	assert.Equal(t, "1", batch[0]["borough"])
	assert.Equal(t, "1 BROADWAY", batch[0]["address"])
}

func TestChunkedCSVSourceRaggedRows(t *testing.T) {
	// Second row is short; its trailing column is simply absent
	path := writeCSV(t, "bbl,borough,address\n"+
		"1000010001,1,1 BROADWAY\n"+
		"1000010002,1\n")

	src, err := NewChunkedCSVSource(path, 10, zap.NewNop())
	require.NoError(t, err)

	batch, err := src.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, batch, 2)

	_, present := batch[1]["address"]
	assert.False(t, present)
	assert.Equal(t, "1000010002", batch[1]["bbl"])
}

func TestChunkedCSVSourceMissingFile(t *testing.T) {
	_, err := NewChunkedCSVSource(filepath.Join(t.TempDir(), "nope.csv"), 10, zap.NewNop())
	require.Error(t, err)

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, KindNotFound, srcErr.Kind)
}
