package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// SearchIndex is the full-text index of created books, used by the catalogue
// search route. The sqlite catalogue stays the source of truth: the index can
// always be dropped and rebuilt from it with Reindex.
//
// Writes from ingestion workers share the read lock; only Reindex and Close
// take the write lock because they swap the underlying index.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string // directory holding search.bleve and search.version
	Logger   *slog.Logger
}

// mappingVersion must change whenever buildIndexMapping does. A stored index
// with another version is discarded on open.
const mappingVersion = "1"

// NewSearchIndex opens the book index under opts.DataPath. A missing,
// unreadable or outdated index is replaced by an empty one; the caller then
// repopulates it from the catalogue (see TriggerSearchReindexIfNeeded).
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	indexPath := filepath.Join(opts.DataPath, "search.bleve")
	versionPath := filepath.Join(opts.DataPath, "search.version")

	index, reason := openCurrent(indexPath, versionPath)
	if index != nil {
		logger.Info("opened book search index", "path", indexPath)
		return &SearchIndex{index: index, path: indexPath, logger: logger}, nil
	}
	if reason != "" {
		logger.Warn("discarding book search index", "path", indexPath, "reason", reason)
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove stale index: %w", err)
		}
	}

	index, err := bleve.New(indexPath, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
		logger.Warn("failed to write search version file", "error", err)
	}
	logger.Info("created book search index", "path", indexPath, "mapping_version", mappingVersion)

	return &SearchIndex{index: index, path: indexPath, logger: logger}, nil
}

// openCurrent opens the index at indexPath if it exists and was built with
// the current mapping. Otherwise it returns nil and why the stored index, if
// any, cannot be used; an empty reason means there was nothing on disk.
func openCurrent(indexPath, versionPath string) (bleve.Index, string) {
	if _, err := os.Stat(indexPath); err != nil {
		return nil, ""
	}
	stored, err := os.ReadFile(versionPath)
	if err != nil {
		return nil, "missing mapping version"
	}
	if string(stored) != mappingVersion {
		return nil, fmt.Sprintf("mapping version %s, want %s", stored, mappingVersion)
	}
	index, err := bleve.Open(indexPath)
	if err != nil {
		return nil, err.Error()
	}
	return index, ""
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexBook indexes or replaces a single book document.
func (s *SearchIndex) IndexBook(doc *BookDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexBooks indexes docs in bleve batches of 500.
func (s *SearchIndex) IndexBooks(docs []*BookDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexChunked(docs)
}

func (s *SearchIndex) indexChunked(docs []*BookDocument) error {
	const batchSize = 500

	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[i:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// DeleteBook removes a book from the index.
func (s *SearchIndex) DeleteBook(bookID int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(DocumentID(bookID))
}

// DocumentCount returns the total number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Reindex replaces the whole index with docs, typically every book in the
// catalogue. Searches and ingestion writes wait until it finishes.
func (s *SearchIndex) Reindex(docs []*BookDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}

	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index

	if err := s.indexChunked(docs); err != nil {
		return err
	}
	s.logger.Info("rebuilt search index", "path", s.path, "documents", len(docs))
	return nil
}
