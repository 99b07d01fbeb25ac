package feed

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// SQLiteFeed stores chunks in a local SQLite database.
// Re-inserting a document's first chunk replaces that document's previous
// chunks, so a modified document never leaves duplicate content behind.
type SQLiteFeed struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteFeed opens (or creates) the feed database at path.
// An empty path creates an in-memory database for tests.
func NewSQLiteFeed(path string) (*SQLiteFeed, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create feed directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed database: %w", err)
	}

	// Single writer; also keeps the in-memory database on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	f := &SQLiteFeed{db: db}
	if err := f.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize feed schema: %w", err)
	}

	return f, nil
}

// initSchema creates the chunks table.
func (f *SQLiteFeed) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		total INTEGER NOT NULL,
		source TEXT NOT NULL,
		created_at TEXT NOT NULL,
		text TEXT NOT NULL,
		inserted_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
	`

	_, err := f.db.Exec(schema)
	return err
}

// Insert implements Feed. The first chunk of a document (seq 0) clears any
// chunks previously stored for that document id.
func (f *SQLiteFeed) Insert(ctx context.Context, text string, meta Meta) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if meta.Seq == 0 {
		if _, err := f.db.ExecContext(ctx,
			`DELETE FROM chunks WHERE document_id = ?`, meta.DocumentID); err != nil {
			return fmt.Errorf("failed to clear previous chunks: %w", err)
		}
	}

	_, err := f.db.ExecContext(ctx,
		`INSERT INTO chunks (document_id, seq, total, source, created_at, text, inserted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		meta.DocumentID, meta.Seq, meta.Total, meta.Source,
		meta.CreatedAt.Format(time.RFC3339), text, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

// CountByDocument returns the number of chunks stored for a document.
func (f *SQLiteFeed) CountByDocument(ctx context.Context, documentID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int
	err := f.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE document_id = ?`, documentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// Count returns the total number of stored chunks.
func (f *SQLiteFeed) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int
	if err := f.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (f *SQLiteFeed) Close() error {
	return f.db.Close()
}

// Verify interface implementation
var _ Feed = (*SQLiteFeed)(nil)
