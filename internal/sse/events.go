// Package sse streams circulation events to connected clients over Server-Sent Events.
package sse

import (
	"time"

	"github.com/google/uuid"

	"github.com/listenupapp/library-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	EventLoanCreated  EventType = "loan.created"
	EventLoanReturned EventType = "loan.returned"
	EventLoanExtended EventType = "loan.extended"

	EventReservationCreated   EventType = "reservation.created"
	EventReservationReady     EventType = "reservation.ready"
	EventReservationCancelled EventType = "reservation.cancelled"
	EventReservationExpired   EventType = "reservation.expired"

	// EventAvailabilityChanged is sent whenever a book's available copy count moves.
	EventAvailabilityChanged EventType = "book.availability_changed"

	// EventHeartbeat keeps idle connections open.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Data      any       `json:"data"`

	// Routing fields. Clients that subscribed with a user or library filter
	// only receive events whose matching field is empty or equal.
	UserID    string `json:"-"`
	LibraryID string `json:"-"`
}

func newEvent(t EventType, now time.Time, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: now,
		Type:      t,
		Data:      data,
	}
}

// LoanEventData is the payload for loan events.
type LoanEventData struct {
	Loan *domain.Loan `json:"loan"`
}

// ReservationEventData is the payload for reservation events.
type ReservationEventData struct {
	Reservation *domain.Reservation `json:"reservation"`
}

// AvailabilityEventData is the payload for availability changes.
type AvailabilityEventData struct {
	BookID          string `json:"book_id"`
	LibraryID       string `json:"library_id"`
	AvailableCopies int    `json:"available_copies"`
	TotalCopies     int    `json:"total_copies"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewLoanEvent creates a loan event routed to the borrower.
// libraryID is the library holding the book.
func NewLoanEvent(t EventType, loan *domain.Loan, libraryID string, now time.Time) Event {
	e := newEvent(t, now, LoanEventData{Loan: loan})
	e.UserID = loan.UserID
	e.LibraryID = libraryID
	return e
}

// NewReservationEvent creates a reservation event routed to the holder.
func NewReservationEvent(t EventType, r *domain.Reservation, libraryID string, now time.Time) Event {
	e := newEvent(t, now, ReservationEventData{Reservation: r})
	e.UserID = r.UserID
	e.LibraryID = libraryID
	return e
}

// NewAvailabilityEvent creates an event reporting a book's current counters.
func NewAvailabilityEvent(b *domain.Book, now time.Time) Event {
	e := newEvent(EventAvailabilityChanged, now, AvailabilityEventData{
		BookID:          b.ID,
		LibraryID:       b.LibraryID,
		AvailableCopies: b.AvailableCopies,
		TotalCopies:     b.TotalCopies,
	})
	e.LibraryID = b.LibraryID
	return e
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return newEvent(EventHeartbeat, now, HeartbeatEventData{ServerTime: now})
}
