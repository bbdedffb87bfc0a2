package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// SearchIndex wraps a Bleve index of book documents.
//
// All public methods are safe for concurrent use. The mutex guards the index
// handle, which Rebuild swaps out.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Logger for operations (uses stderr if nil)
}

// mappingVersion is incremented whenever the index mapping changes.
// A mismatch with the version file on disk forces a rebuild on startup.
const mappingVersion = "1"

// batchSize bounds the number of documents committed per Bleve batch.
const batchSize = 500

// NewSearchIndex opens the index under opts.DataPath, creating it when it is
// missing, unreadable or built with an older mapping. A recreated index is
// empty; callers repopulate it from the database.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	s := &SearchIndex{
		path:   filepath.Join(opts.DataPath, "catalog.bleve"),
		logger: logger,
	}
	versionPath := filepath.Join(opts.DataPath, "catalog.version")

	index, err := s.openExisting(versionPath)
	if err != nil {
		return nil, err
	}
	if index == nil {
		if index, err = s.create(); err != nil {
			return nil, err
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
	}

	s.index = index
	return s, nil
}

// openExisting returns the on-disk index if it is current, or nil when a new
// one must be created. Stale or corrupt indexes are removed.
func (s *SearchIndex) openExisting(versionPath string) (bleve.Index, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, nil
	}

	version, err := os.ReadFile(versionPath)
	switch {
	case err != nil:
		s.logger.Info("search index has no version file, rebuilding", "new_version", mappingVersion)
	case string(version) != mappingVersion:
		s.logger.Info("search index mapping version changed, rebuilding",
			"old_version", string(version),
			"new_version", mappingVersion,
		)
	default:
		index, openErr := bleve.Open(s.path)
		if openErr == nil {
			s.logger.Info("opened existing search index", "path", s.path)
			return index, nil
		}
		s.logger.Warn("failed to open existing index, will recreate", "path", s.path, "error", openErr)
	}

	if err := os.RemoveAll(s.path); err != nil {
		return nil, fmt.Errorf("remove old index: %w", err)
	}
	return nil, nil
}

func (s *SearchIndex) create() (bleve.Index, error) {
	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	s.logger.Info("created new search index", "path", s.path, "mapping_version", mappingVersion)
	return index, nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexDocument indexes a single document, replacing any previous version.
func (s *SearchIndex) IndexDocument(doc *BookDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexDocuments indexes documents in batches of batchSize.
func (s *SearchIndex) IndexDocuments(docs []*BookDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[start:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", start, end, err)
		}
	}

	return nil
}

// DeleteDocument removes a document from the index.
func (s *SearchIndex) DeleteDocument(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// DocumentCount returns the total number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops the existing index and creates an empty one.
// It holds the exclusive lock, so searches block until it returns.
func (s *SearchIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}

	index, err := s.create()
	if err != nil {
		return err
	}
	s.index = index
	return nil
}
