package store

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"

	recallerr "github.com/TSLeslie/recall/internal/errors"
)

// docCacheSize is the maximum number of parsed documents to cache.
// Bounds memory in long-running watch mode.
const docCacheSize = 512

// frontmatter is the YAML header stored at the top of each document file.
// The body is the markdown content below the header.
type frontmatter struct {
	ID              string   `yaml:"id"`
	Source          string   `yaml:"source"`
	Timestamp       string   `yaml:"timestamp"`
	Title           string   `yaml:"title,omitempty"`
	DurationSeconds int      `yaml:"duration_seconds,omitempty"`
	Summary         string   `yaml:"summary,omitempty"`
	Participants    []string `yaml:"participants,omitempty"`
	Tags            []string `yaml:"tags,omitempty"`
	SourceURL       string   `yaml:"source_url,omitempty"`
}

// cachedDoc is a parsed document plus the stat it was parsed under.
// The cache is a load optimization only; change detection never trusts
// mtime and always hashes content.
type cachedDoc struct {
	doc     *Document
	size    int64
	modTime time.Time
}

// Store reads and writes documents under a root directory.
// Layout: <root>/YYYY-MM/<timestamp>_<source>.md
type Store struct {
	root string

	mu    sync.Mutex
	cache *lru.Cache[string, cachedDoc]
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}

	cache, err := lru.New[string, cachedDoc](docCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create document cache: %w", err)
	}

	return &Store{root: abs, cache: cache}, nil
}

// Root returns the absolute store root directory.
func (s *Store) Root() string {
	return s.root
}

// Abs resolves a store-relative path to an absolute one.
func (s *Store) Abs(relPath string) string {
	return filepath.Join(s.root, relPath)
}

// Save writes doc as a markdown file and returns its store-relative path.
// Files land in a YYYY-MM subdirectory named <timestamp>_<source>.md.
func (s *Store) Save(doc *Document) (string, error) {
	if err := doc.Validate(); err != nil {
		return "", err
	}

	yearMonth := doc.CreatedAt.Format("2006-01")
	if err := os.MkdirAll(filepath.Join(s.root, yearMonth), 0o755); err != nil {
		return "", fmt.Errorf("failed to create month directory: %w", err)
	}

	stamp := doc.CreatedAt.Format("20060102_150405")
	relPath := filepath.Join(yearMonth, fmt.Sprintf("%s_%s.md", stamp, doc.Source))

	// Documents created within the same second get a numeric suffix rather
	// than overwriting each other.
	for n := 2; ; n++ {
		if _, err := os.Stat(s.Abs(relPath)); os.IsNotExist(err) {
			break
		}
		relPath = filepath.Join(yearMonth, fmt.Sprintf("%s_%s_%d.md", stamp, doc.Source, n))
	}

	content, err := Encode(doc)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(s.Abs(relPath), content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}

	doc.Path = relPath
	s.mu.Lock()
	s.cache.Remove(relPath)
	s.mu.Unlock()

	return relPath, nil
}

// Load reads and parses the document at relPath.
// Parsed documents are cached and revalidated against file size and mtime;
// a stale stat invalidates the entry and forces a re-read.
func (s *Store) Load(relPath string) (*Document, error) {
	absPath := s.Abs(relPath)

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, recallerr.Wrap(recallerr.ErrCodeFileNotFound, err)
	}

	s.mu.Lock()
	if entry, ok := s.cache.Get(relPath); ok &&
		entry.size == info.Size() && entry.modTime.Equal(info.ModTime()) {
		s.mu.Unlock()
		return entry.doc, nil
	}
	s.mu.Unlock()

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, recallerr.Wrap(recallerr.ErrCodeFileNotFound, err)
	}

	doc, err := Decode(content)
	if err != nil {
		return nil, err
	}
	doc.Path = relPath

	s.mu.Lock()
	s.cache.Add(relPath, cachedDoc{doc: doc, size: info.Size(), modTime: info.ModTime()})
	s.mu.Unlock()

	return doc, nil
}

// List enumerates all document paths under the root, relative to it.
// This is always a live filesystem read so externally added or removed
// files are visible. Results are sorted by file name, which gives
// chronological order for timestamp-based names.
func (s *Store) List() ([]string, error) {
	var paths []string

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries we can't access
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk store root: %w", err)
	}

	sort.Slice(paths, func(i, j int) bool {
		ni, nj := filepath.Base(paths[i]), filepath.Base(paths[j])
		if ni != nj {
			return ni < nj
		}
		return paths[i] < paths[j]
	})

	return paths, nil
}

// Delete removes the document file at relPath.
func (s *Store) Delete(relPath string) error {
	s.mu.Lock()
	s.cache.Remove(relPath)
	s.mu.Unlock()

	if err := os.Remove(s.Abs(relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Encode renders a document as markdown with YAML frontmatter.
func Encode(doc *Document) ([]byte, error) {
	fm := frontmatter{
		ID:              doc.ID,
		Source:          string(doc.Source),
		Timestamp:       doc.CreatedAt.Format(time.RFC3339),
		Title:           doc.Title,
		DurationSeconds: doc.DurationSeconds,
		Summary:         doc.Summary,
		Participants:    doc.Participants,
		Tags:            doc.Tags,
		SourceURL:       doc.SourceURL,
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")
	b.WriteString(doc.Body)
	b.WriteString("\n")

	return []byte(b.String()), nil
}

// Decode parses markdown content with YAML frontmatter into a Document.
func Decode(content []byte) (*Document, error) {
	text := string(content)

	if !strings.HasPrefix(text, "---") {
		return nil, recallerr.New(recallerr.ErrCodeMissingFrontmatter, "missing frontmatter", nil)
	}

	parts := strings.SplitN(text, "---", 3)
	if len(parts) < 3 {
		return nil, recallerr.New(recallerr.ErrCodeMissingFrontmatter, "malformed frontmatter", nil)
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		return nil, recallerr.New(recallerr.ErrCodeFileCorrupt, "invalid YAML frontmatter: "+err.Error(), err)
	}

	source, err := ParseSource(fm.Source)
	if err != nil {
		return nil, err
	}

	createdAt, err := time.Parse(time.RFC3339, fm.Timestamp)
	if err != nil {
		return nil, recallerr.New(recallerr.ErrCodeFileCorrupt, "invalid timestamp: "+fm.Timestamp, err)
	}

	doc := &Document{
		ID:              fm.ID,
		Source:          source,
		CreatedAt:       createdAt,
		Body:            strings.TrimSpace(parts[2]),
		Title:           fm.Title,
		Summary:         fm.Summary,
		Tags:            fm.Tags,
		DurationSeconds: fm.DurationSeconds,
		Participants:    fm.Participants,
		SourceURL:       fm.SourceURL,
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	return doc, nil
}
