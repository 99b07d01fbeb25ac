package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/TSLeslie/recall/internal/store"
)

// Index wraps Bleve v2 for full-text and metadata search over documents.
// At most one entry exists per path; Add on an existing path is an upsert
// (Bleve retires the old postings before writing new ones).
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// New creates or opens a search index.
// If path is empty, an in-memory index is created (used by tests).
// On-disk indexes are validated before opening; a corrupted index is
// cleared and recreated rather than blocking startup.
func New(path string) (*Index, error) {
	indexMapping := buildMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}

		if validErr := validateIntegrity(path); validErr != nil {
			slog.Warn("search index corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("index corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
			slog.Info("search index cleared",
				slog.String("path", path),
				slog.String("reason", "corruption detected, run 'recall rebuild'"))
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil && isCorruptionError(err) {
			slog.Warn("search index open failed",
				slog.String("path", path),
				slog.String("error", err.Error()))

			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("index corrupted, cannot clear: %w (original: %v)", removeErr, err)
			}
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}

	return &Index{index: idx, path: path}, nil
}

// buildMapping creates the Bleve mapping: full-text analysis for body and
// summary, exact (keyword) terms for source and tags, datetime for created_at.
// All fields are stored so hits can be assembled without loading documents.
func buildMapping() *mapping.IndexMappingImpl {
	text := bleve.NewTextFieldMapping()
	text.Store = true

	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name
	exact.Store = true

	created := bleve.NewDateTimeFieldMapping()
	created.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("body", text)
	doc.AddFieldMappingsAt("summary", text)
	doc.AddFieldMappingsAt("source", exact)
	doc.AddFieldMappingsAt("tags", exact)
	doc.AddFieldMappingsAt("created_at", created)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = doc
	return indexMapping
}

// validateIntegrity checks a Bleve index directory before opening.
// Returns nil if the index is absent (it will be created) or valid.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}

	return nil
}

// isCorruptionError checks if an error indicates Bleve index corruption.
func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "unexpected end of JSON") ||
		strings.Contains(errStr, "error parsing mapping JSON") ||
		strings.Contains(errStr, "failed to load segment") ||
		strings.Contains(errStr, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// Add upserts a document under its path. The entry becomes immediately
// searchable. The document must already be validated (non-empty body).
func (ix *Index) Add(path string, doc *store.Document) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.closed {
		return fmt.Errorf("index is closed")
	}

	entry := map[string]interface{}{
		"body":       doc.Body,
		"summary":    doc.Summary,
		"source":     string(doc.Source),
		"tags":       doc.Tags,
		"created_at": doc.CreatedAt.Format(time.RFC3339),
	}

	if err := ix.index.Index(path, entry); err != nil {
		return fmt.Errorf("failed to index document %s: %w", path, err)
	}
	return nil
}

// Remove deletes the entry for path. Removing a path that was never
// indexed is a no-op, not an error.
func (ix *Index) Remove(path string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.closed {
		return fmt.Errorf("index is closed")
	}

	if err := ix.index.Delete(path); err != nil {
		return fmt.Errorf("failed to remove document %s: %w", path, err)
	}
	return nil
}

// Search runs a full-text query over body and summary, returning hits in
// descending relevance order. An empty or whitespace-only query returns an
// empty result set, not an error.
func (ix *Index) Search(queryStr string) ([]Hit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.closed {
		return nil, fmt.Errorf("index is closed")
	}

	if strings.TrimSpace(queryStr) == "" {
		return []Hit{}, nil
	}

	bodyQuery := bleve.NewMatchQuery(queryStr)
	bodyQuery.SetField("body")
	summaryQuery := bleve.NewMatchQuery(queryStr)
	summaryQuery.SetField("summary")

	req := ix.newRequest(bleve.NewDisjunctionQuery(bodyQuery, summaryQuery))

	result, err := ix.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, match := range result.Hits {
		hit, err := hitFromFields(match.ID, match.Fields)
		if err != nil {
			slog.Warn("skipping malformed index entry",
				slog.String("path", match.ID),
				slog.String("error", err.Error()))
			continue
		}
		hit.Score = match.Score
		hits = append(hits, hit)
	}

	return hits, nil
}

// Filter returns documents matching the given metadata constraints, ordered
// by creation time descending. Scores are fixed at a neutral 1.0. Tag
// constraints are conjunctive: a document must carry every requested tag.
// Date bounds are inclusive on the calendar date of created_at.
func (ix *Index) Filter(opts FilterOptions) ([]Hit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.closed {
		return nil, fmt.Errorf("index is closed")
	}

	var conjuncts []query.Query

	if opts.Source != "" {
		q := bleve.NewTermQuery(string(opts.Source))
		q.SetField("source")
		conjuncts = append(conjuncts, q)
	}

	if opts.StartDate != nil || opts.EndDate != nil {
		start, end := dayBounds(opts.StartDate, opts.EndDate)
		incl := true
		excl := false
		q := bleve.NewDateRangeInclusiveQuery(start, end, &incl, &excl)
		q.SetField("created_at")
		conjuncts = append(conjuncts, q)
	}

	for _, tag := range opts.Tags {
		q := bleve.NewTermQuery(tag)
		q.SetField("tags")
		conjuncts = append(conjuncts, q)
	}

	var filterQuery query.Query
	if len(conjuncts) == 0 {
		filterQuery = bleve.NewMatchAllQuery()
	} else {
		filterQuery = bleve.NewConjunctionQuery(conjuncts...)
	}

	req := ix.newRequest(filterQuery)
	req.SortBy([]string{"-created_at"})

	result, err := ix.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("filter failed: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, match := range result.Hits {
		hit, err := hitFromFields(match.ID, match.Fields)
		if err != nil {
			slog.Warn("skipping malformed index entry",
				slog.String("path", match.ID),
				slog.String("error", err.Error()))
			continue
		}
		hit.Score = 1.0
		hits = append(hits, hit)
	}

	return hits, nil
}

// Rebuild clears all entries and re-adds every document enumerable from the
// store. A document that fails to load is skipped with a warning, not fatal.
// Returns the number of documents indexed.
func (ix *Index) Rebuild(st *store.Store) (int, error) {
	if err := ix.Clear(); err != nil {
		return 0, err
	}

	paths, err := st.List()
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate documents: %w", err)
	}

	indexed := 0
	for _, path := range paths {
		doc, err := st.Load(path)
		if err != nil {
			slog.Warn("skipping document during rebuild",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		if err := ix.Add(path, doc); err != nil {
			return indexed, err
		}
		indexed++
	}

	return indexed, nil
}

// Clear removes every entry from the index.
func (ix *Index) Clear() error {
	paths, err := ix.AllPaths()
	if err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.closed {
		return fmt.Errorf("index is closed")
	}

	batch := ix.index.NewBatch()
	for _, p := range paths {
		batch.Delete(p)
	}
	if err := ix.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	return nil
}

// AllPaths returns every indexed path. Used by Clear and consistency checks.
func (ix *Index) AllPaths() ([]string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.closed {
		return nil, fmt.Errorf("index is closed")
	}

	docCount, _ := ix.index.DocCount()

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(docCount)
	req.Fields = []string{}

	result, err := ix.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate index: %w", err)
	}

	paths := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		paths[i] = hit.ID
	}
	return paths, nil
}

// Count returns the number of indexed documents.
func (ix *Index) Count() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.closed {
		return 0, fmt.Errorf("index is closed")
	}
	return ix.index.DocCount()
}

// Close closes the index. Safe to call more than once.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.closed {
		return nil
	}

	ix.closed = true
	if ix.index != nil {
		return ix.index.Close()
	}
	return nil
}

// newRequest builds a search request sized to return every match, with the
// stored fields needed to assemble hits. Caller holds at least a read lock.
func (ix *Index) newRequest(q query.Query) *bleve.SearchRequest {
	docCount, _ := ix.index.DocCount()

	req := bleve.NewSearchRequest(q)
	req.Size = int(docCount)
	req.Fields = []string{"source", "created_at", "summary", "body", "tags"}
	return req
}

// hitFromFields assembles a Hit from a match's stored fields.
func hitFromFields(path string, fields map[string]interface{}) (Hit, error) {
	source, _ := fields["source"].(string)

	createdRaw, _ := fields["created_at"].(string)
	createdAt, err := time.Parse(time.RFC3339, createdRaw)
	if err != nil {
		return Hit{}, fmt.Errorf("invalid created_at %q: %w", createdRaw, err)
	}

	summary, _ := fields["summary"].(string)
	body, _ := fields["body"].(string)

	return Hit{
		Path:      path,
		Source:    store.Source(source),
		CreatedAt: createdAt,
		Snippet:   makeSnippet(summary, body),
	}, nil
}

// makeSnippet prefers the summary, falling back to a bounded body prefix.
func makeSnippet(summary, body string) string {
	if summary != "" {
		return summary
	}
	runes := []rune(body)
	if len(runes) > snippetLength {
		return string(runes[:snippetLength])
	}
	return body
}

// dayBounds converts optional calendar dates into a half-open [start, end)
// range covering whole days. A nil bound stays the zero time, which bleve
// treats as unbounded; a synthetic far-future end would exceed bleve's
// representable datetime range and fail the query.
func dayBounds(startDate, endDate *time.Time) (time.Time, time.Time) {
	var start, end time.Time

	if startDate != nil {
		d := *startDate
		start = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	}

	if endDate != nil {
		d := *endDate
		end = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location()).AddDate(0, 0, 1)
	}

	return start, end
}
