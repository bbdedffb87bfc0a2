package domain

// BookStatus is the circulation status of a catalog entry.
type BookStatus string

const (
	BookStatusAvailable   BookStatus = "AVAILABLE"
	BookStatusUnavailable BookStatus = "UNAVAILABLE"
	BookStatusMaintenance BookStatus = "MAINTENANCE"
)

// Valid reports whether s is a known status.
func (s BookStatus) Valid() bool {
	switch s {
	case BookStatusAvailable, BookStatusUnavailable, BookStatusMaintenance:
		return true
	}
	return false
}

// Book is a catalog entry held by a library. Copies are tracked as counters,
// not as individual items.
//
// Invariant: 0 <= AvailableCopies <= TotalCopies.
type Book struct {
	Timestamps
	ID              string     `json:"id"`
	LibraryID       string     `json:"library_id"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	ISBN            string     `json:"isbn,omitempty"`
	Publisher       string     `json:"publisher,omitempty"`
	PublicationYear *int       `json:"publication_year,omitempty"`
	Category        string     `json:"category,omitempty"`
	TotalCopies     int        `json:"total_copies"`
	AvailableCopies int        `json:"available_copies"`
	Status          BookStatus `json:"status"`
}

// CopiesValid reports whether the copy counters satisfy the book invariant.
func (b *Book) CopiesValid() bool {
	return b.TotalCopies >= 1 && b.AvailableCopies >= 0 && b.AvailableCopies <= b.TotalCopies
}

// OnLoan returns the number of copies currently checked out.
func (b *Book) OnLoan() int {
	return b.TotalCopies - b.AvailableCopies
}

// BookFilter narrows catalog queries. Empty fields are ignored.
type BookFilter struct {
	Title      string
	Author     string
	Publisher  string
	Categories []string
	LibraryID  string
	ISBN       string
	Status     BookStatus
	IDs        []string // restricts results to these ids when non-nil
	Available  bool     // only books that pass the borrow rule
}
