// Package store persists documents (transcripts, notes) as markdown files
// with YAML frontmatter. This is the source of truth for all indexed data.
package store

import (
	"time"

	"github.com/google/uuid"

	recallerr "github.com/TSLeslie/recall/internal/errors"
)

// Source identifies where a document came from.
type Source string

const (
	SourceZoom       Source = "zoom"
	SourceYouTube    Source = "youtube"
	SourceMicrophone Source = "microphone"
	SourceSystem     Source = "system"
	SourceNote       Source = "note"
)

// Sources lists every valid source value.
var Sources = []Source{SourceZoom, SourceYouTube, SourceMicrophone, SourceSystem, SourceNote}

// ParseSource validates a raw source string.
func ParseSource(s string) (Source, error) {
	for _, src := range Sources {
		if s == string(src) {
			return src, nil
		}
	}
	return "", recallerr.New(recallerr.ErrCodeUnknownSource, "unknown source: "+s, nil)
}

// Document is one unit of stored text (transcript, note) with metadata.
// ID is a stable identity assigned at creation; Path locates the document
// on disk and is the search index's primary key.
type Document struct {
	ID        string
	Source    Source
	CreatedAt time.Time
	Body      string
	Title     string
	Summary   string
	Tags      []string

	// DurationSeconds is the audio length for transcribed sources, 0 for notes.
	DurationSeconds int

	// Participants are detected speaker names, if any.
	Participants []string

	// SourceURL is the original URL for captured web sources.
	SourceURL string

	// Path is the location relative to the store root. Set by Save and Load,
	// empty for documents not yet persisted.
	Path string
}

// NewDocument creates a Document with a generated ID and current timestamp.
// This is the preferred constructor for new documents.
func NewDocument(source Source, body string) (*Document, error) {
	doc := &Document{
		ID:        uuid.NewString(),
		Source:    source,
		CreatedAt: time.Now(),
		Body:      body,
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate checks document invariants. A document with an empty body is
// rejected before it can reach the index or the feed.
func (d *Document) Validate() error {
	if d.ID == "" {
		return recallerr.New(recallerr.ErrCodeInvalidInput, "document id must not be empty", nil)
	}
	if _, err := ParseSource(string(d.Source)); err != nil {
		return err
	}
	if isBlank(d.Body) {
		return recallerr.New(recallerr.ErrCodeEmptyBody, "document body must not be empty", nil)
	}
	return nil
}

// HasTags reports whether the document carries every tag in want.
func (d *Document) HasTags(want []string) bool {
	for _, w := range want {
		found := false
		for _, t := range d.Tags {
			if t == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
