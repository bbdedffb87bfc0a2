package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/listenupapp/library-server/internal/category"
	"github.com/listenupapp/library-server/internal/domain"
	"github.com/listenupapp/library-server/internal/dto"
	domainerrors "github.com/listenupapp/library-server/internal/errors"
	"github.com/listenupapp/library-server/internal/id"
	"github.com/listenupapp/library-server/internal/sse"
	"github.com/listenupapp/library-server/internal/store"
	"github.com/listenupapp/library-server/internal/store/sqlite"
)

// BookSearcher resolves a free-text query to matching book ids.
type BookSearcher interface {
	MatchingIDs(ctx context.Context, q string) ([]string, error)
}

// BookService manages the book catalog.
type BookService struct {
	store    *sqlite.Store
	searcher BookSearcher // nil when full-text search is disabled
	enricher *dto.Enricher
	events   store.EventEmitter
	logger   *slog.Logger
	now      Clock
}

// NewBookService creates a new book service. searcher may be nil.
func NewBookService(store *sqlite.Store, searcher BookSearcher, events store.EventEmitter, logger *slog.Logger, now Clock) *BookService {
	return &BookService{
		store:    store,
		searcher: searcher,
		enricher: dto.NewEnricher(store),
		events:   events,
		logger:   logger,
		now:      clockOrNow(now),
	}
}

// CreateBookRequest holds the fields of a new catalog entry.
// AvailableCopies defaults to TotalCopies.
type CreateBookRequest struct {
	LibraryID       string            `json:"library_id" validate:"required"`
	Title           string            `json:"title" validate:"required,max=500"`
	Author          string            `json:"author" validate:"required,max=300"`
	ISBN            string            `json:"isbn,omitempty" validate:"omitempty,isbn"`
	Publisher       string            `json:"publisher,omitempty" validate:"max=300"`
	PublicationYear *int              `json:"publication_year,omitempty" validate:"omitempty,gte=0,lte=9999"`
	Category        string            `json:"category,omitempty" validate:"max=100"`
	TotalCopies     int               `json:"total_copies" validate:"gte=1"`
	AvailableCopies *int              `json:"available_copies,omitempty" validate:"omitempty,gte=0"`
	Status          domain.BookStatus `json:"status,omitempty" validate:"omitempty,oneof=AVAILABLE UNAVAILABLE MAINTENANCE"`
}

// UpdateBookRequest is a partial update; nil fields are left unchanged.
type UpdateBookRequest struct {
	LibraryID       *string            `json:"library_id,omitempty"`
	Title           *string            `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Author          *string            `json:"author,omitempty" validate:"omitempty,min=1,max=300"`
	ISBN            *string            `json:"isbn,omitempty" validate:"omitempty,isbn"`
	Publisher       *string            `json:"publisher,omitempty" validate:"omitempty,max=300"`
	PublicationYear *int               `json:"publication_year,omitempty" validate:"omitempty,gte=0,lte=9999"`
	Category        *string            `json:"category,omitempty" validate:"omitempty,max=100"`
	TotalCopies     *int               `json:"total_copies,omitempty" validate:"omitempty,gte=1"`
	AvailableCopies *int               `json:"available_copies,omitempty" validate:"omitempty,gte=0"`
	Status          *domain.BookStatus `json:"status,omitempty" validate:"omitempty,oneof=AVAILABLE UNAVAILABLE MAINTENANCE"`
}

// BookSearch selects catalog entries. Empty fields are ignored.
type BookSearch struct {
	Query                string
	Title                string
	Author               string
	Publisher            string
	Category             string
	IncludeSubCategories bool
	LibraryID            string
	ISBN                 string
	Status               domain.BookStatus
	AvailableOnly        bool
}

// ListBooks returns every book, newest first.
func (s *BookService) ListBooks(ctx context.Context) ([]*dto.Book, error) {
	return s.find(ctx, domain.BookFilter{})
}

// ListAvailableBooks returns books that can be borrowed right now,
// optionally restricted to one library.
func (s *BookService) ListAvailableBooks(ctx context.Context, libraryID string) ([]*dto.Book, error) {
	if libraryID != "" {
		if _, err := s.store.GetLibrary(ctx, libraryID); err != nil {
			return nil, translate(err, "library", libraryID)
		}
	}
	return s.find(ctx, domain.BookFilter{LibraryID: libraryID, Available: true})
}

// ListBooksByLibrary returns a library's books.
func (s *BookService) ListBooksByLibrary(ctx context.Context, libraryID string) ([]*dto.Book, error) {
	if _, err := s.store.GetLibrary(ctx, libraryID); err != nil {
		return nil, translate(err, "library", libraryID)
	}
	return s.find(ctx, domain.BookFilter{LibraryID: libraryID})
}

// GetBook returns a book or NOT_FOUND.
func (s *BookService) GetBook(ctx context.Context, bookID string) (*dto.Book, error) {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, translate(err, "book", bookID)
	}
	views, err := s.enricher.EnrichBooks(ctx, []*domain.Book{b})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// CreateBook adds a book to a library's catalog.
func (s *BookService) CreateBook(ctx context.Context, req CreateBookRequest) (*dto.Book, error) {
	if _, err := s.store.GetLibrary(ctx, req.LibraryID); err != nil {
		return nil, requireRef(err, "library", req.LibraryID)
	}

	bookID, err := id.Generate(id.PrefixBook)
	if err != nil {
		return nil, err
	}

	b := &domain.Book{
		ID:              bookID,
		LibraryID:       req.LibraryID,
		Title:           strings.TrimSpace(req.Title),
		Author:          strings.TrimSpace(req.Author),
		ISBN:            strings.TrimSpace(req.ISBN),
		Publisher:       strings.TrimSpace(req.Publisher),
		PublicationYear: req.PublicationYear,
		Category:        category.Canonical(req.Category),
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.TotalCopies,
		Status:          req.Status,
	}
	if req.AvailableCopies != nil {
		b.AvailableCopies = *req.AvailableCopies
	}
	if b.Status == "" {
		b.Status = domain.BookStatusAvailable
	}
	if err := validateBook(b); err != nil {
		return nil, err
	}
	b.InitTimestamps(s.now())

	if err := s.store.CreateBook(ctx, b); err != nil {
		return nil, translate(err, "book", bookID)
	}

	s.logger.Info("book created",
		"book_id", b.ID, "library_id", b.LibraryID, "title", b.Title, "copies", b.TotalCopies)
	return s.view(ctx, b)
}

// UpdateBook applies a partial update. The copy counters are written with a
// compare-and-swap, so an edit racing a borrow fails with CONFLICT.
func (s *BookService) UpdateBook(ctx context.Context, bookID string, req UpdateBookRequest) (*dto.Book, error) {
	current, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, translate(err, "book", bookID)
	}

	b := *current
	if req.LibraryID != nil {
		b.LibraryID = *req.LibraryID
	}
	if req.Title != nil {
		b.Title = strings.TrimSpace(*req.Title)
	}
	if req.Author != nil {
		b.Author = strings.TrimSpace(*req.Author)
	}
	if req.ISBN != nil {
		b.ISBN = strings.TrimSpace(*req.ISBN)
	}
	if req.Publisher != nil {
		b.Publisher = strings.TrimSpace(*req.Publisher)
	}
	if req.PublicationYear != nil {
		b.PublicationYear = req.PublicationYear
	}
	if req.Category != nil {
		b.Category = category.Canonical(*req.Category)
	}
	if req.TotalCopies != nil {
		b.TotalCopies = *req.TotalCopies
	}
	if req.AvailableCopies != nil {
		b.AvailableCopies = *req.AvailableCopies
	}
	if req.Status != nil {
		b.Status = *req.Status
	}
	if err := validateBook(&b); err != nil {
		return nil, err
	}

	b.Touch(s.now())
	if err := s.store.UpdateBook(ctx, &b, current); err != nil {
		if errors.Is(err, store.ErrInvalidInput) {
			return nil, domainerrors.InvalidReferencef("library %s does not exist", b.LibraryID)
		}
		return nil, translate(err, "book", bookID)
	}

	s.logger.Info("book updated", "book_id", b.ID)
	if b.AvailableCopies != current.AvailableCopies || b.TotalCopies != current.TotalCopies {
		s.events.Emit(sse.NewAvailabilityEvent(&b, s.now()))
	}
	return s.view(ctx, &b)
}

// DeleteBook removes a book without loan or reservation history.
func (s *BookService) DeleteBook(ctx context.Context, bookID string) error {
	err := s.store.DeleteBook(ctx, bookID)
	if errors.Is(err, store.ErrHasDependents) {
		return domainerrors.InvalidStatef("book %s has loan or reservation history", bookID)
	}
	if err != nil {
		return translate(err, "book", bookID)
	}

	s.logger.Info("book deleted", "book_id", bookID)
	return nil
}

// SearchBooks filters the catalog. Substring fields match case-insensitively;
// a category matches exactly, optionally with its standard sub-categories.
// A free-text query is resolved through the search index and intersected
// with the other filters.
func (s *BookService) SearchBooks(ctx context.Context, q BookSearch) ([]*dto.Book, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, domainerrors.Validationf("unknown status %q", q.Status)
	}

	f := domain.BookFilter{
		Title:      strings.TrimSpace(q.Title),
		Author:     strings.TrimSpace(q.Author),
		Publisher:  strings.TrimSpace(q.Publisher),
		Categories: category.Expand(q.Category, q.IncludeSubCategories),
		LibraryID:  q.LibraryID,
		ISBN:       strings.TrimSpace(q.ISBN),
		Status:     q.Status,
		Available:  q.AvailableOnly,
	}

	if text := strings.TrimSpace(q.Query); text != "" {
		if s.searcher == nil {
			return nil, domainerrors.Validation("full-text search is disabled")
		}
		ids, err := s.searcher.MatchingIDs(ctx, text)
		if err != nil {
			return nil, domainerrors.Internal("search failed", err)
		}
		f.IDs = ids
		if f.IDs == nil {
			f.IDs = []string{}
		}
	}

	return s.find(ctx, f)
}

// LibraryBookCounts returns how many books a library holds and how many can
// be borrowed now.
func (s *BookService) LibraryBookCounts(ctx context.Context, libraryID string) (*store.LibraryBookCounts, error) {
	if _, err := s.store.GetLibrary(ctx, libraryID); err != nil {
		return nil, translate(err, "library", libraryID)
	}
	counts, err := s.store.LibraryBookCounts(ctx, libraryID)
	if err != nil {
		return nil, translate(err, "library", libraryID)
	}
	return counts, nil
}

func (s *BookService) find(ctx context.Context, f domain.BookFilter) ([]*dto.Book, error) {
	books, err := s.store.SearchBooks(ctx, f)
	if err != nil {
		return nil, translate(err, "books", "")
	}
	return s.enricher.EnrichBooks(ctx, books)
}

func (s *BookService) view(ctx context.Context, b *domain.Book) (*dto.Book, error) {
	views, err := s.enricher.EnrichBooks(ctx, []*domain.Book{b})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// validateBook checks the rules every stored book must satisfy.
func validateBook(b *domain.Book) error {
	details := map[string]string{}
	if b.Title == "" {
		details["title"] = "is required"
	}
	if b.Author == "" {
		details["author"] = "is required"
	}
	if !b.CopiesValid() {
		if b.TotalCopies < 1 {
			details["total_copies"] = "must be at least 1"
		}
		if b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
			details["available_copies"] = "must be between 0 and total_copies"
		}
	}
	if !b.Status.Valid() {
		details["status"] = "must be one of AVAILABLE, UNAVAILABLE, MAINTENANCE"
	}
	if len(details) > 0 {
		return domainerrors.ValidationWithDetails("invalid book", details)
	}
	return nil
}
