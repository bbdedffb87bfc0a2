package dto

import (
	"context"
	"fmt"
	"time"

	"github.com/listenupapp/library-server/internal/domain"
)

// Store defines the lookups the Enricher needs. *sqlite.Store satisfies it.
type Store interface {
	GetUsersByIDs(ctx context.Context, ids []string) ([]*domain.User, error)
	SearchBooks(ctx context.Context, f domain.BookFilter) ([]*domain.Book, error)
	GetLibrariesByIDs(ctx context.Context, ids []string) ([]*domain.Library, error)
	QueuePositions(ctx context.Context, bookIDs ...string) (map[string]int, error)
}

// Enricher denormalizes domain records for client consumption.
//
//   - Batch fetching: one query per entity type, not per record
//   - Missing related rows leave display fields empty rather than failing
type Enricher struct {
	store Store
}

// NewEnricher creates a new enricher.
func NewEnricher(store Store) *Enricher {
	return &Enricher{store: store}
}

// related holds the users, books and libraries referenced by a batch.
type related struct {
	users     map[string]*domain.User
	books     map[string]*domain.Book
	libraries map[string]*domain.Library
}

func (r *related) book(id string) (title, author, libraryID, libraryName string) {
	b, ok := r.books[id]
	if !ok {
		return "", "", "", ""
	}
	if lib, ok := r.libraries[b.LibraryID]; ok {
		libraryName = lib.Name
	}
	return b.Title, b.Author, b.LibraryID, libraryName
}

func (r *related) userName(id string) string {
	if u, ok := r.users[id]; ok {
		return u.DisplayName()
	}
	return ""
}

func (e *Enricher) load(ctx context.Context, userIDs, bookIDs []string) (*related, error) {
	r := &related{
		users:     make(map[string]*domain.User),
		books:     make(map[string]*domain.Book),
		libraries: make(map[string]*domain.Library),
	}

	if len(userIDs) > 0 {
		users, err := e.store.GetUsersByIDs(ctx, userIDs)
		if err != nil {
			return nil, fmt.Errorf("fetch users: %w", err)
		}
		for _, u := range users {
			r.users[u.ID] = u
		}
	}

	if len(bookIDs) == 0 {
		return r, nil
	}
	books, err := e.store.SearchBooks(ctx, domain.BookFilter{IDs: bookIDs})
	if err != nil {
		return nil, fmt.Errorf("fetch books: %w", err)
	}
	libraryIDs := make([]string, 0, len(books))
	for _, b := range books {
		r.books[b.ID] = b
		libraryIDs = append(libraryIDs, b.LibraryID)
	}

	libraries, err := e.store.GetLibrariesByIDs(ctx, unique(libraryIDs))
	if err != nil {
		return nil, fmt.Errorf("fetch libraries: %w", err)
	}
	for _, lib := range libraries {
		r.libraries[lib.ID] = lib
	}
	return r, nil
}

// EnrichLoans builds loan views, deriving overdue status at now.
func (e *Enricher) EnrichLoans(ctx context.Context, loans []*domain.Loan, now time.Time) ([]*Loan, error) {
	userIDs := make([]string, 0, len(loans))
	bookIDs := make([]string, 0, len(loans))
	for _, l := range loans {
		userIDs = append(userIDs, l.UserID)
		bookIDs = append(bookIDs, l.BookID)
	}

	rel, err := e.load(ctx, unique(userIDs), unique(bookIDs))
	if err != nil {
		return nil, err
	}

	out := make([]*Loan, len(loans))
	for i, l := range loans {
		v := &Loan{
			Loan:      l,
			Status:    l.DisplayStatus(now),
			IsOverdue: l.IsOverdue(now),
			UserName:  rel.userName(l.UserID),
		}
		v.BookTitle, v.BookAuthor, v.LibraryID, v.LibraryName = rel.book(l.BookID)
		out[i] = v
	}
	return out, nil
}

// EnrichLoan builds a single loan view.
func (e *Enricher) EnrichLoan(ctx context.Context, l *domain.Loan, now time.Time) (*Loan, error) {
	views, err := e.EnrichLoans(ctx, []*domain.Loan{l}, now)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// EnrichReservations builds reservation views with queue positions for the
// PENDING entries.
func (e *Enricher) EnrichReservations(ctx context.Context, rs []*domain.Reservation, now time.Time) ([]*Reservation, error) {
	userIDs := make([]string, 0, len(rs))
	bookIDs := make([]string, 0, len(rs))
	var pendingBooks []string
	for _, r := range rs {
		userIDs = append(userIDs, r.UserID)
		bookIDs = append(bookIDs, r.BookID)
		if r.Status == domain.ReservationPending {
			pendingBooks = append(pendingBooks, r.BookID)
		}
	}

	rel, err := e.load(ctx, unique(userIDs), unique(bookIDs))
	if err != nil {
		return nil, err
	}

	var positions map[string]int
	if len(pendingBooks) > 0 {
		positions, err = e.store.QueuePositions(ctx, unique(pendingBooks)...)
		if err != nil {
			return nil, fmt.Errorf("queue positions: %w", err)
		}
	}

	out := make([]*Reservation, len(rs))
	for i, r := range rs {
		v := &Reservation{
			Reservation: r,
			IsExpired:   r.IsExpired(now),
			UserName:    rel.userName(r.UserID),
		}
		if pos, ok := positions[r.ID]; ok {
			v.QueuePosition = &pos
		}
		v.BookTitle, v.BookAuthor, v.LibraryID, v.LibraryName = rel.book(r.BookID)
		out[i] = v
	}
	return out, nil
}

// EnrichReservation builds a single reservation view.
func (e *Enricher) EnrichReservation(ctx context.Context, r *domain.Reservation, now time.Time) (*Reservation, error) {
	views, err := e.EnrichReservations(ctx, []*domain.Reservation{r}, now)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// EnrichBooks attaches library names to books.
func (e *Enricher) EnrichBooks(ctx context.Context, books []*domain.Book) ([]*Book, error) {
	libraryIDs := make([]string, 0, len(books))
	for _, b := range books {
		libraryIDs = append(libraryIDs, b.LibraryID)
	}

	libraries, err := e.store.GetLibrariesByIDs(ctx, unique(libraryIDs))
	if err != nil {
		return nil, fmt.Errorf("fetch libraries: %w", err)
	}
	names := make(map[string]string, len(libraries))
	for _, lib := range libraries {
		names[lib.ID] = lib.Name
	}

	out := make([]*Book, len(books))
	for i, b := range books {
		out[i] = &Book{Book: b, LibraryName: names[b.LibraryID]}
	}
	return out, nil
}

// unique returns ids without duplicates, preserving first occurrence.
func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
