package domain

import "time"

// DefaultHoldDays is how long a READY reservation is held before it expires.
const DefaultHoldDays = 3

// ReservationStatus is the persisted state of a reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationReady     ReservationStatus = "READY"
	ReservationCompleted ReservationStatus = "COMPLETED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

// IsActive reports whether the status still occupies a place in the queue.
func (s ReservationStatus) IsActive() bool {
	return s == ReservationPending || s == ReservationReady
}

// Reservation is a user's place in the waiting queue for a book.
type Reservation struct {
	Timestamps
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	BookID          string            `json:"book_id"`
	ReservationDate time.Time         `json:"reservation_date"`
	Status          ReservationStatus `json:"status"`
	ExpiryDate      *time.Time        `json:"expiry_date,omitempty"`
	CancelReason    string            `json:"cancel_reason,omitempty"`
}

// NewReservation creates a pending reservation placed at now.
func NewReservation(id, userID, bookID string, now time.Time) *Reservation {
	r := &Reservation{
		ID:              id,
		UserID:          userID,
		BookID:          bookID,
		ReservationDate: now,
		Status:          ReservationPending,
	}
	r.InitTimestamps(now)
	return r
}

// IsExpired reports whether a READY hold has lapsed at now.
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.Status == ReservationReady && r.ExpiryDate != nil && r.ExpiryDate.Before(now)
}

// ReservationCounts summarises a set of reservations.
type ReservationCounts struct {
	Total   int `json:"total_count"`
	Pending int `json:"pending_count"`
	Ready   int `json:"ready_count"`
	Expired int `json:"expired_count"`
}

// CountReservations tallies reservations by status.
func CountReservations(rs []*Reservation) ReservationCounts {
	c := ReservationCounts{Total: len(rs)}
	for _, r := range rs {
		switch r.Status {
		case ReservationPending:
			c.Pending++
		case ReservationReady:
			c.Ready++
		case ReservationExpired:
			c.Expired++
		}
	}
	return c
}

// BookReservationStatus summarises the queue for one book.
type BookReservationStatus struct {
	BookID              string     `json:"book_id"`
	BookTitle           string     `json:"book_title"`
	TotalReservations   int        `json:"total_reservations"`
	PendingReservations int        `json:"pending_reservations"`
	NextAvailableDate   *time.Time `json:"next_available_date"`
}

// ReservationFilter narrows reservation listings.
type ReservationFilter struct {
	UserID string
	BookID string
	Status ReservationStatus
}
