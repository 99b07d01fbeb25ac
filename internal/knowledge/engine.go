// Package knowledge keeps the search index and downstream feed in sync
// with the document store. Change detection is content-addressed: every
// document is hashed on each sync and compared to its tracked digest, so
// touch(1) and editor churn that rewrites identical bytes never trigger
// reindexing, while edits that preserve mtime still do.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"github.com/TSLeslie/recall/internal/chunk"
	recallerr "github.com/TSLeslie/recall/internal/errors"
	"github.com/TSLeslie/recall/internal/feed"
	"github.com/TSLeslie/recall/internal/index"
	"github.com/TSLeslie/recall/internal/store"
)

// Result summarizes one sync pass.
type Result struct {
	Added    int
	Modified int
	Deleted  int
	Errors   int
	Duration time.Duration
}

// Changed reports whether the pass touched anything.
func (r *Result) Changed() bool {
	return r.Added > 0 || r.Modified > 0 || r.Deleted > 0
}

// Status describes the engine's persistent state for display.
type Status struct {
	LastSync    *time.Time
	TrackedDocs int
	IndexedDocs uint64
	StoreRoot   string
	StatePath   string
}

// Engine drives incremental synchronization between the document store,
// the search index, and the chunk feed. One Engine per process; a file
// lock guards the state file against concurrent processes.
type Engine struct {
	store   *store.Store
	index   *index.Index
	feed    feed.Feed
	tracker *Tracker

	chunkSize    int
	chunkOverlap int

	lock *flock.Flock
}

// NewEngine wires an Engine over its collaborators. statePath locates
// the persisted digest map; the advisory lock lives next to it.
func NewEngine(st *store.Store, ix *index.Index, fd feed.Feed, statePath string, chunkSize, chunkOverlap int) *Engine {
	return &Engine{
		store:        st,
		index:        ix,
		feed:         fd,
		tracker:      NewTracker(statePath),
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		lock:         flock.New(statePath + ".lock"),
	}
}

// Tracker exposes the engine's change tracker, mainly for status display.
func (e *Engine) Tracker() *Tracker {
	return e.tracker
}

// Sync performs one incremental pass: diff the store against tracked
// digests, then index each new or modified document, remove each deleted
// one, and persist the updated state. Per-document failures are logged
// and counted but never abort the pass; a document's digest is committed
// only after it has fully reached the index and feed, so a failed
// document is retried on the next sync.
func (e *Engine) Sync(ctx context.Context) (*Result, error) {
	locked, err := e.lock.TryLock()
	if err != nil {
		return nil, recallerr.Wrap(recallerr.ErrCodeSyncFailed, fmt.Errorf("failed to acquire sync lock: %w", err))
	}
	if !locked {
		return nil, recallerr.New(recallerr.ErrCodeSyncFailed, "another sync is in progress", nil)
	}
	defer func() { _ = e.lock.Unlock() }()

	start := time.Now()

	changes, err := e.tracker.Diff(e.store)
	if err != nil {
		return nil, recallerr.Wrap(recallerr.ErrCodeSyncFailed, err)
	}

	result := &Result{}

	for _, path := range changes.New {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := e.process(ctx, path); err != nil {
			slog.Warn("failed to index new document",
				slog.String("path", path),
				slog.String("error", err.Error()))
			result.Errors++
			continue
		}
		result.Added++
	}

	for _, path := range changes.Modified {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := e.process(ctx, path); err != nil {
			slog.Warn("failed to reindex modified document",
				slog.String("path", path),
				slog.String("error", err.Error()))
			result.Errors++
			continue
		}
		result.Modified++
	}

	for _, path := range changes.Deleted {
		if err := e.index.Remove(path); err != nil {
			slog.Warn("failed to remove deleted document from index",
				slog.String("path", path),
				slog.String("error", err.Error()))
			result.Errors++
		}
		// Forget regardless: the file is gone, so tracking it would
		// resurface the same deletion on every pass.
		e.tracker.Forget(path)
		result.Deleted++
	}

	if err := e.tracker.Save(time.Now()); err != nil {
		return result, recallerr.Wrap(recallerr.ErrCodeStateNotSaved, err)
	}

	result.Duration = time.Since(start)
	slog.Info("sync complete",
		slog.Int("added", result.Added),
		slog.Int("modified", result.Modified),
		slog.Int("deleted", result.Deleted),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration))

	return result, nil
}

// process brings one document fully up to date: load, chunk, deliver to
// the feed, index, then commit its digest. Ordering matters: the digest
// is hashed and committed last, so any earlier failure leaves the
// document untracked and it is picked up again next pass.
func (e *Engine) process(ctx context.Context, path string) error {
	doc, err := e.store.Load(path)
	if err != nil {
		return err
	}

	chunks := chunk.Chunk(doc.Body, e.chunkSize, e.chunkOverlap)
	for seq, text := range chunks {
		meta := feed.Meta{
			DocumentID: doc.ID,
			Source:     string(doc.Source),
			CreatedAt:  doc.CreatedAt,
			Seq:        seq,
			Total:      len(chunks),
		}
		if err := e.feed.Insert(ctx, text, meta); err != nil {
			return fmt.Errorf("failed to feed chunk %d/%d: %w", seq+1, len(chunks), err)
		}
	}

	if err := e.index.Add(path, doc); err != nil {
		return err
	}

	digest, err := HashFile(e.store.Abs(path))
	if err != nil {
		return fmt.Errorf("failed to hash document: %w", err)
	}
	e.tracker.Commit(path, digest)

	return nil
}

// PendingChanges reports what a sync would do without doing it.
func (e *Engine) PendingChanges() (*ChangeSet, error) {
	return e.tracker.Diff(e.store)
}

// ForceRebuild discards all tracked state and the entire index, then
// runs a full sync. Recovery path for index drift or corruption.
func (e *Engine) ForceRebuild(ctx context.Context) (*Result, error) {
	slog.Info("forcing full rebuild")

	e.tracker.Reset()
	if err := e.index.Clear(); err != nil {
		return nil, recallerr.Wrap(recallerr.ErrCodeSyncFailed, err)
	}

	return e.Sync(ctx)
}

// Status reports the engine's current persistent state.
func (e *Engine) Status() (*Status, error) {
	indexed, err := e.index.Count()
	if err != nil {
		return nil, err
	}

	return &Status{
		LastSync:    e.tracker.LastSync(),
		TrackedDocs: e.tracker.TrackedCount(),
		IndexedDocs: indexed,
		StoreRoot:   e.store.Root(),
		StatePath:   e.tracker.Path(),
	}, nil
}
