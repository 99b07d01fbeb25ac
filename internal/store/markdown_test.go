package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recallerr "github.com/TSLeslie/recall/internal/errors"
)

func testDoc(t *testing.T, body string) *Document {
	t.Helper()
	doc, err := NewDocument(SourceNote, body)
	require.NoError(t, err)
	return doc
}

func TestStore_SaveAndLoad_RoundTrip(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)

	doc := testDoc(t, "discussed the rollout plan for the new billing pipeline")
	doc.Title = "billing sync"
	doc.Summary = "rollout planning"
	doc.Tags = []string{"billing", "infra"}
	doc.Participants = []string{"dana", "lee"}
	doc.DurationSeconds = 1800

	relPath, err := st.Save(doc)
	require.NoError(t, err)
	assert.Equal(t, relPath, doc.Path)

	loaded, err := st.Load(relPath)
	require.NoError(t, err)

	assert.Equal(t, doc.ID, loaded.ID)
	assert.Equal(t, doc.Source, loaded.Source)
	assert.Equal(t, doc.Body, loaded.Body)
	assert.Equal(t, doc.Title, loaded.Title)
	assert.Equal(t, doc.Summary, loaded.Summary)
	assert.Equal(t, doc.Tags, loaded.Tags)
	assert.Equal(t, doc.Participants, loaded.Participants)
	assert.Equal(t, doc.DurationSeconds, loaded.DurationSeconds)
	assert.Equal(t, relPath, loaded.Path)
	assert.WithinDuration(t, doc.CreatedAt, loaded.CreatedAt, time.Second)
}

func TestStore_Save_LayoutIsMonthDirWithTimestampName(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)

	doc := testDoc(t, "layout check")
	doc.CreatedAt = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	relPath, err := st.Save(doc)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("2026-03", "20260314_092653_note.md"), relPath)
	_, statErr := os.Stat(st.Abs(relPath))
	assert.NoError(t, statErr)
}

func TestStore_Save_RejectsEmptyBody(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)

	doc := &Document{ID: "x", Source: SourceNote, CreatedAt: time.Now(), Body: "   \n\t"}

	_, err = st.Save(doc)
	require.Error(t, err)
	assert.Equal(t, recallerr.ErrCodeEmptyBody, recallerr.GetCode(err))
}

func TestStore_List_LiveAndSorted(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for i, day := range []int{20, 5, 12} {
		doc := testDoc(t, "entry")
		doc.CreatedAt = time.Date(2026, 1, day, 10, 0, i, 0, time.UTC)
		_, err := st.Save(doc)
		require.NoError(t, err)
	}

	paths, err := st.List()
	require.NoError(t, err)
	require.Len(t, paths, 3)

	// Sorted by file name, which is chronological for timestamp names.
	assert.True(t, strings.Contains(paths[0], "20260105"))
	assert.True(t, strings.Contains(paths[1], "20260112"))
	assert.True(t, strings.Contains(paths[2], "20260120"))

	// Externally created files are visible without any registration step.
	external := filepath.Join(st.Root(), "2026-01", "20260125_120000_note.md")
	content, err := Encode(testDoc(t, "added from outside"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(external, content, 0o644))

	paths, err = st.List()
	require.NoError(t, err)
	assert.Len(t, paths, 4)
}

func TestStore_Load_MissingFile(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = st.Load("2026-01/20260101_000000_note.md")
	require.Error(t, err)
	assert.Equal(t, recallerr.ErrCodeFileNotFound, recallerr.GetCode(err))
}

func TestStore_Load_CacheInvalidatedOnRewrite(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)

	doc := testDoc(t, "first version")
	relPath, err := st.Save(doc)
	require.NoError(t, err)

	loaded, err := st.Load(relPath)
	require.NoError(t, err)
	assert.Equal(t, "first version", loaded.Body)

	doc.Body = "second version, revised after the meeting"
	content, err := Encode(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(st.Abs(relPath), content, 0o644))

	loaded, err = st.Load(relPath)
	require.NoError(t, err)
	assert.Equal(t, "second version, revised after the meeting", loaded.Body)
}

func TestStore_Delete_RemovesFileAndToleratesMissing(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)

	relPath, err := st.Save(testDoc(t, "to be removed"))
	require.NoError(t, err)

	require.NoError(t, st.Delete(relPath))
	_, err = os.Stat(st.Abs(relPath))
	assert.True(t, os.IsNotExist(err))

	// Deleting again is not an error.
	assert.NoError(t, st.Delete(relPath))
}

func TestDecode_MissingFrontmatter(t *testing.T) {
	_, err := Decode([]byte("just a plain body with no header"))
	require.Error(t, err)
	assert.Equal(t, recallerr.ErrCodeMissingFrontmatter, recallerr.GetCode(err))
}

func TestDecode_UnknownSource(t *testing.T) {
	content := "---\nid: abc\nsource: telepathy\ntimestamp: 2026-01-01T00:00:00Z\n---\n\nbody\n"

	_, err := Decode([]byte(content))
	require.Error(t, err)
	assert.Equal(t, recallerr.ErrCodeUnknownSource, recallerr.GetCode(err))
}

func TestDecode_BodyMayContainSeparators(t *testing.T) {
	content := "---\nid: abc\nsource: note\ntimestamp: 2026-01-01T00:00:00Z\n---\n\nabove\n\n---\n\nbelow the rule\n"

	doc, err := Decode([]byte(content))
	require.NoError(t, err)
	assert.Contains(t, doc.Body, "above")
	assert.Contains(t, doc.Body, "below the rule")
}

func TestParseSource_AcceptsKnownValues(t *testing.T) {
	for _, s := range Sources {
		got, err := ParseSource(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestDocument_HasTags(t *testing.T) {
	doc := testDoc(t, "tagged")
	doc.Tags = []string{"infra", "oncall"}

	assert.True(t, doc.HasTags(nil))
	assert.True(t, doc.HasTags([]string{"infra"}))
	assert.True(t, doc.HasTags([]string{"oncall", "infra"}))
	assert.False(t, doc.HasTags([]string{"billing"}))
	assert.False(t, doc.HasTags([]string{"infra", "billing"}))
}
