package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TSLeslie/recall/internal/feed"
	"github.com/TSLeslie/recall/internal/index"
	"github.com/TSLeslie/recall/internal/store"
)

type engineFixture struct {
	store  *store.Store
	index  *index.Index
	feed   *feed.SQLiteFeed
	engine *Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	st, err := store.NewStore(t.TempDir())
	require.NoError(t, err)

	ix, err := index.New("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })

	fd, err := feed.NewSQLiteFeed("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = fd.Close() })

	statePath := filepath.Join(t.TempDir(), "sync_state.json")
	engine := NewEngine(st, ix, fd, statePath, 2000, 200)

	return &engineFixture{store: st, index: ix, feed: fd, engine: engine}
}

func (f *engineFixture) saveDoc(t *testing.T, body string, at time.Time) string {
	t.Helper()
	doc, err := store.NewDocument(store.SourceNote, body)
	require.NoError(t, err)
	doc.CreatedAt = at
	relPath, err := f.store.Save(doc)
	require.NoError(t, err)
	return relPath
}

func TestEngine_Sync_IndexesNewDocuments(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.saveDoc(t, "notes from the architecture review", time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	f.saveDoc(t, "lunch order thread", time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC))

	res, err := f.engine.Sync(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 0, res.Modified)
	assert.Equal(t, 0, res.Deleted)
	assert.Equal(t, 0, res.Errors)

	hits, err := f.index.Search("architecture")
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	chunks, err := f.feed.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, chunks)
}

func TestEngine_Sync_Idempotent(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.saveDoc(t, "only document", time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))

	res, err := f.engine.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Added)

	res, err = f.engine.Sync(ctx)
	require.NoError(t, err)
	assert.False(t, res.Changed(), "second sync over an unchanged store must be a no-op")

	count, err := f.index.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestEngine_Sync_ReindexesModifiedDocument(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	relPath := f.saveDoc(t, "original topic alpha", time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	_, err := f.engine.Sync(ctx)
	require.NoError(t, err)

	doc, err := f.store.Load(relPath)
	require.NoError(t, err)
	doc.Body = "revised topic bravo"
	content, err := store.Encode(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.store.Abs(relPath), content, 0o644))

	res, err := f.engine.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Modified)

	hits, err := f.index.Search("alpha")
	require.NoError(t, err)
	assert.Empty(t, hits, "stale content must not be searchable")

	hits, err = f.index.Search("bravo")
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	chunks, err := f.feed.CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, chunks, "feed must hold one fresh chunk set per document")
}

func TestEngine_Sync_RemovesDeletedDocument(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	relPath := f.saveDoc(t, "transient document", time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	_, err := f.engine.Sync(ctx)
	require.NoError(t, err)

	require.NoError(t, f.store.Delete(relPath))

	res, err := f.engine.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)

	count, err := f.index.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
	assert.Equal(t, 0, f.engine.Tracker().TrackedCount())

	// The deletion must not resurface on subsequent syncs.
	res, err = f.engine.Sync(ctx)
	require.NoError(t, err)
	assert.False(t, res.Changed())
}

func TestEngine_Sync_BadDocumentIsIsolated(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.saveDoc(t, "healthy document", time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))

	// A file with no frontmatter fails to load but must not abort the pass.
	badDir := filepath.Join(f.store.Root(), "2026-08")
	require.NoError(t, os.MkdirAll(badDir, 0o755))
	badPath := filepath.Join(badDir, "20260803_000000_note.md")
	require.NoError(t, os.WriteFile(badPath, []byte("no frontmatter here"), 0o644))

	res, err := f.engine.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Errors)

	// The failed document stays untracked, so it is retried next pass.
	res, err = f.engine.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 0, res.Added)

	// Once repaired, it syncs cleanly.
	fixed := "---\nid: fixed\nsource: note\ntimestamp: 2026-08-03T00:00:00Z\n---\n\nrepaired content\n"
	require.NoError(t, os.WriteFile(badPath, []byte(fixed), 0o644))

	res, err = f.engine.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 0, res.Errors)
}

func TestEngine_Sync_StatePersistsAcrossEngines(t *testing.T) {
	st, err := store.NewStore(t.TempDir())
	require.NoError(t, err)

	ix, err := index.New("")
	require.NoError(t, err)
	defer func() { _ = ix.Close() }()

	fd, err := feed.NewSQLiteFeed("")
	require.NoError(t, err)
	defer func() { _ = fd.Close() }()

	statePath := filepath.Join(t.TempDir(), "sync_state.json")
	ctx := context.Background()

	doc, err := store.NewDocument(store.SourceNote, "persistent state check")
	require.NoError(t, err)
	_, err = st.Save(doc)
	require.NoError(t, err)

	engine := NewEngine(st, ix, fd, statePath, 2000, 200)
	res, err := engine.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Added)

	// A fresh engine over the same state file sees nothing to do.
	engine2 := NewEngine(st, ix, fd, statePath, 2000, 200)
	res, err = engine2.Sync(ctx)
	require.NoError(t, err)
	assert.False(t, res.Changed())
	require.NotNil(t, engine2.Tracker().LastSync())
}

func TestEngine_ForceRebuild(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.saveDoc(t, "first", time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	f.saveDoc(t, "second", time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC))
	_, err := f.engine.Sync(ctx)
	require.NoError(t, err)

	// Simulate drift: an entry the store no longer backs.
	stray := &store.Document{ID: "stray", Source: store.SourceNote, CreatedAt: time.Now(), Body: "stray entry"}
	require.NoError(t, f.index.Add("stray.md", stray))

	res, err := f.engine.ForceRebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)

	count, err := f.index.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count, "rebuild must drop entries with no backing document")
}

func TestEngine_PendingChanges_DoesNotModifyState(t *testing.T) {
	f := newEngineFixture(t)

	f.saveDoc(t, "unsynced document", time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))

	changes, err := f.engine.PendingChanges()
	require.NoError(t, err)
	assert.Len(t, changes.New, 1)

	// Peeking must not commit anything.
	assert.Equal(t, 0, f.engine.Tracker().TrackedCount())
	count, err := f.index.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestEngine_EndToEnd_SearchAndFilter(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	meeting, err := store.NewDocument(store.SourceZoom, "Q4 budget review meeting")
	require.NoError(t, err)
	meeting.Tags = []string{"meeting"}
	meeting.CreatedAt = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	_, err = f.store.Save(meeting)
	require.NoError(t, err)

	tutorial, err := store.NewDocument(store.SourceYouTube, "Python tutorial on async")
	require.NoError(t, err)
	tutorial.Tags = []string{"tutorial"}
	tutorial.CreatedAt = time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)
	_, err = f.store.Save(tutorial)
	require.NoError(t, err)

	_, err = f.engine.Sync(ctx)
	require.NoError(t, err)

	hits, err := f.index.Search("budget")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, store.SourceZoom, hits[0].Source)

	hits, err = f.index.Search("")
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = f.index.Filter(index.FilterOptions{Tags: []string{"tutorial"}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, store.SourceYouTube, hits[0].Source)
}

func TestEngine_Status(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.saveDoc(t, "status check", time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	_, err := f.engine.Sync(ctx)
	require.NoError(t, err)

	st, err := f.engine.Status()
	require.NoError(t, err)
	assert.NotNil(t, st.LastSync)
	assert.Equal(t, 1, st.TrackedDocs)
	assert.Equal(t, uint64(1), st.IndexedDocs)
	assert.Equal(t, f.store.Root(), st.StoreRoot)
}
