package knowledge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TSLeslie/recall/internal/store"
)

// ChangeSet partitions document paths into new, modified, and deleted
// relative to the tracked digests. The three sets are disjoint. Computed
// per diff call and discarded after use.
type ChangeSet struct {
	New      []string
	Modified []string
	Deleted  []string
}

// HasChanges reports whether any set is non-empty.
func (c *ChangeSet) HasChanges() bool {
	return len(c.New) > 0 || len(c.Modified) > 0 || len(c.Deleted) > 0
}

// Total returns the number of paths across all three sets.
func (c *ChangeSet) Total() int {
	return len(c.New) + len(c.Modified) + len(c.Deleted)
}

// trackerState is the persisted JSON shape.
type trackerState struct {
	LastSync *time.Time        `json:"last_sync"`
	Digests  map[string]string `json:"digests"`
}

// Tracker owns the persisted path → digest map and last-sync timestamp,
// and computes deltas against the current document store contents.
type Tracker struct {
	path string

	mu       sync.Mutex
	lastSync *time.Time
	digests  map[string]string
}

// NewTracker creates a Tracker persisting to path and loads any existing
// state. A missing or unparsable state file yields a fresh empty state;
// corruption never blocks startup.
func NewTracker(path string) *Tracker {
	t := &Tracker{
		path:    path,
		digests: make(map[string]string),
	}
	t.load()
	return t
}

// load reads persisted state, tolerating absence and corruption.
func (t *Tracker) load() {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read sync state, starting fresh",
				slog.String("path", t.path),
				slog.String("error", err.Error()))
		}
		return
	}

	var st trackerState
	if err := json.Unmarshal(data, &st); err != nil {
		slog.Warn("unparsable sync state, starting fresh",
			slog.String("path", t.path),
			slog.String("error", err.Error()))
		return
	}

	t.lastSync = st.LastSync
	if st.Digests != nil {
		t.digests = st.Digests
	}
}

// Path returns the state file location.
func (t *Tracker) Path() string {
	return t.path
}

// LastSync returns the last completed sync time, or nil if never synced.
func (t *Tracker) LastSync() *time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lastSync == nil {
		return nil
	}
	ts := *t.lastSync
	return &ts
}

// Digest returns the tracked digest for path, if any.
func (t *Tracker) Digest(path string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.digests[path]
	return d, ok
}

// Commit records or overwrites the digest for path.
func (t *Tracker) Commit(path, digest string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.digests[path] = digest
}

// Forget removes path from the tracked digests if present.
func (t *Tracker) Forget(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.digests, path)
}

// Reset discards all tracked state, as if never synced.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastSync = nil
	t.digests = make(map[string]string)
}

// TrackedCount returns the number of tracked paths.
func (t *Tracker) TrackedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.digests)
}

// Save persists the full state with lastSync set to the given time.
// The write is temp-file-then-rename so a crash mid-write cannot corrupt
// previously durable state.
func (t *Tracker) Save(lastSync time.Time) error {
	t.mu.Lock()
	t.lastSync = &lastSync
	st := trackerState{
		LastSync: t.lastSync,
		Digests:  t.digests,
	}
	data, err := json.MarshalIndent(st, "", "  ")
	t.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}

	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".sync_state-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, t.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}

// Diff enumerates the store's current documents, hashes each one, and
// classifies paths against the tracked digests. Enumeration is a live
// filesystem read. Hashing runs on a bounded worker pool; classification
// is deterministic regardless of hashing order.
func (t *Tracker) Diff(st *store.Store) (*ChangeSet, error) {
	paths, err := st.List()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate documents: %w", err)
	}

	type hashed struct {
		path   string
		digest string
	}

	results := make([]hashed, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())

	for i, p := range paths {
		g.Go(func() error {
			digest, err := HashFile(st.Abs(p))
			if err != nil {
				// The file may have vanished between List and hashing.
				// Leave it unclassified; the next diff will settle it.
				slog.Warn("failed to hash document, skipping",
					slog.String("path", p),
					slog.String("error", err.Error()))
				results[i] = hashed{path: p}
				return nil
			}
			results[i] = hashed{path: p, digest: digest}
			return nil
		})
	}
	_ = g.Wait()

	changes := &ChangeSet{}
	present := make(map[string]bool, len(paths))

	t.mu.Lock()
	for _, r := range results {
		present[r.path] = true
		if r.digest == "" {
			continue
		}
		tracked, ok := t.digests[r.path]
		switch {
		case !ok:
			changes.New = append(changes.New, r.path)
		case tracked != r.digest:
			changes.Modified = append(changes.Modified, r.path)
		}
	}
	for p := range t.digests {
		if !present[p] {
			changes.Deleted = append(changes.Deleted, p)
		}
	}
	t.mu.Unlock()

	sort.Strings(changes.Deleted)
	return changes, nil
}
