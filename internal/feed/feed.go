// Package feed delivers document chunks to the downstream knowledge base.
// The sync engine treats insertion as fire-and-forget; any retry or
// consistency policy belongs to the feed implementation.
package feed

import (
	"context"
	"time"
)

// Meta describes one chunk's provenance within its document.
type Meta struct {
	// DocumentID is the stable id of the source document.
	DocumentID string

	// Source is the document's origin channel.
	Source string

	// CreatedAt is the document's creation timestamp.
	CreatedAt time.Time

	// Seq is the zero-based chunk index within the document.
	Seq int

	// Total is the number of chunks the document was split into.
	Total int
}

// Feed accepts chunks for downstream knowledge ingestion.
type Feed interface {
	// Insert delivers one chunk with its metadata.
	Insert(ctx context.Context, text string, meta Meta) error

	// Close releases feed resources.
	Close() error
}
