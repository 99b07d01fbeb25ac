package feed

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memFeed(t *testing.T) *SQLiteFeed {
	t.Helper()
	f, err := NewSQLiteFeed("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func chunkMeta(docID string, seq, total int) Meta {
	return Meta{
		DocumentID: docID,
		Source:     "note",
		CreatedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Seq:        seq,
		Total:      total,
	}
}

func TestSQLiteFeed_Insert(t *testing.T) {
	f := memFeed(t)
	ctx := context.Background()

	require.NoError(t, f.Insert(ctx, "chunk one", chunkMeta("doc-1", 0, 2)))
	require.NoError(t, f.Insert(ctx, "chunk two", chunkMeta("doc-1", 1, 2)))

	n, err := f.CountByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLiteFeed_ReinsertReplacesDocumentChunks(t *testing.T) {
	f := memFeed(t)
	ctx := context.Background()

	for seq := 0; seq < 3; seq++ {
		require.NoError(t, f.Insert(ctx, "v1", chunkMeta("doc-1", seq, 3)))
	}
	require.NoError(t, f.Insert(ctx, "other doc", chunkMeta("doc-2", 0, 1)))

	// Re-ingesting the document starts from seq 0 and must replace, not append.
	for seq := 0; seq < 2; seq++ {
		require.NoError(t, f.Insert(ctx, "v2", chunkMeta("doc-1", seq, 2)))
	}

	n, err := f.CountByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.CountByDocument(ctx, "doc-2")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "other documents must be unaffected")

	total, err := f.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestSQLiteFeed_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.db")
	ctx := context.Background()

	f, err := NewSQLiteFeed(path)
	require.NoError(t, err)
	require.NoError(t, f.Insert(ctx, "durable chunk", chunkMeta("doc-1", 0, 1)))
	require.NoError(t, f.Close())

	f, err = NewSQLiteFeed(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	n, err := f.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
