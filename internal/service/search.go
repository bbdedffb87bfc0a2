package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/listenupapp/library-server/internal/domain"
	"github.com/listenupapp/library-server/internal/search"
	"github.com/listenupapp/library-server/internal/store/sqlite"
)

// SearchService keeps the catalog index in sync with the store and answers
// free-text queries with matching book ids. It implements store.SearchIndexer.
type SearchService struct {
	index  *search.SearchIndex
	store  *sqlite.Store
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, store *sqlite.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  store,
		logger: logger,
	}
}

// IndexBook indexes a single book. Called by the store after catalog writes.
func (s *SearchService) IndexBook(_ context.Context, book *domain.Book) error {
	if err := s.index.IndexDocument(search.BookToDocument(book)); err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	s.logger.Debug("indexed book", "book_id", book.ID, "title", book.Title)
	return nil
}

// DeleteBook removes a book from the index.
func (s *SearchService) DeleteBook(_ context.Context, bookID string) error {
	if err := s.index.DeleteDocument(bookID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	s.logger.Debug("removed book from index", "book_id", bookID)
	return nil
}

// Search runs a catalog query against the index.
func (s *SearchService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	return s.index.Search(ctx, params)
}

// MatchingIDs returns the ids of books matching a free-text query.
func (s *SearchService) MatchingIDs(ctx context.Context, q string) ([]string, error) {
	res, err := s.index.Search(ctx, search.SearchParams{Query: q})
	if err != nil {
		return nil, err
	}
	return res.IDs(), nil
}

// ReindexAll drops the index and rebuilds it from the database.
func (s *SearchService) ReindexAll(ctx context.Context) (int, error) {
	start := time.Now()

	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return 0, fmt.Errorf("list books: %w", err)
	}

	if err := s.index.Rebuild(); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}

	docs := make([]*search.BookDocument, len(books))
	for i, b := range books {
		docs[i] = search.BookToDocument(b)
	}
	if err := s.index.IndexDocuments(docs); err != nil {
		return 0, fmt.Errorf("index books: %w", err)
	}

	s.logger.Info("search index rebuilt", "books", len(docs), "duration", time.Since(start))
	return len(docs), nil
}

// EnsurePopulated reindexes when the index is empty but the catalog is not,
// as after a mapping change or a deleted index directory.
func (s *SearchService) EnsurePopulated(ctx context.Context) error {
	count, err := s.index.DocumentCount()
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	if count > 0 {
		return nil
	}
	books, err := s.store.SearchBooks(ctx, domain.BookFilter{})
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}
	if len(books) == 0 {
		return nil
	}
	_, err = s.ReindexAll(ctx)
	return err
}

// DocumentCount returns the number of indexed books.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}
