// Package index provides the embedded full-text and metadata search index
// for documents, backed by Bleve v2 with BM25-style relevance ranking.
package index

import (
	"time"

	"github.com/TSLeslie/recall/internal/store"
)

// snippetLength bounds the body prefix used when a document has no summary.
const snippetLength = 200

// Hit is a single search or filter result.
type Hit struct {
	// Path is the document's store-relative path (the index primary key).
	Path string

	// Source is the document's origin channel.
	Source store.Source

	// CreatedAt is when the document was created.
	CreatedAt time.Time

	// Snippet is the document summary when present, otherwise a bounded
	// prefix of the body.
	Snippet string

	// Score is the relevance score: BM25-derived for Search, fixed at 1.0
	// for Filter results.
	Score float64
}

// FilterOptions narrows a metadata filter. Zero values mean "no constraint".
type FilterOptions struct {
	// Source requires an exact source match when non-empty.
	Source store.Source

	// StartDate includes documents created on or after this calendar date.
	StartDate *time.Time

	// EndDate includes documents created on or before this calendar date.
	EndDate *time.Time

	// Tags requires every listed tag to be present on the document.
	Tags []string
}
