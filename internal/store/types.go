package store

import (
	"net/http"
	"time"
)

// Availability guard failures. Both are conditional-update misses on the
// copy counters of an existing book.
var (
	ErrNoCopyAvailable = &Error{
		Code:    http.StatusConflict,
		Message: "no available copies",
	}

	ErrAllCopiesReturned = &Error{
		Code:    http.StatusConflict,
		Message: "all copies already returned",
	}

	// ErrCopyAvailable is returned when a reservation is placed on a book
	// that can be borrowed directly.
	ErrCopyAvailable = &Error{
		Code:    http.StatusConflict,
		Message: "book has an available copy",
	}
)

// CategoryCount is the number of books filed under one category.
type CategoryCount struct {
	Category string `db:"category" json:"category"`
	Count    int    `db:"count" json:"count"`
}

// LibraryBookCounts holds the catalog totals for one library.
type LibraryBookCounts struct {
	LibraryID string `db:"library_id" json:"library_id"`
	Total     int    `db:"total" json:"total_books"`
	Available int    `db:"available" json:"available_books"`
}

// LibraryStats is the per-library circulation summary used by the admin CLI.
type LibraryStats struct {
	LibraryID           string `db:"library_id" json:"library_id"`
	Name                string `db:"name" json:"name"`
	Books               int    `db:"books" json:"books"`
	TotalCopies         int    `db:"total_copies" json:"total_copies"`
	AvailableCopies     int    `db:"available_copies" json:"available_copies"`
	ActiveLoans         int    `db:"active_loans" json:"active_loans"`
	PendingReservations int    `db:"pending_reservations" json:"pending_reservations"`
}

// BookQueueStats summarises the reservation queue of one book.
type BookQueueStats struct {
	Total       int        `db:"total"`
	Pending     int        `db:"pending"`
	NextDueDate *time.Time `db:"-"`
}
