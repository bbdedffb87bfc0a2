// Package dto provides the client-facing views of loans, reservations and books.
//
// Views embed the domain record and add denormalized display fields (names,
// titles) plus values derived at read time such as isOverdue and queue
// position, so a response renders without further lookups.
package dto

import (
	"time"

	"github.com/listenupapp/library-server/internal/domain"
)

// Book is the client-facing representation of a book.
type Book struct {
	*domain.Book
	LibraryName string `json:"library_name,omitempty"`
}

// Loan is the client-facing representation of a loan.
// Status reads OVERDUE for active loans past due.
type Loan struct {
	*domain.Loan
	Status      domain.LoanStatus `json:"status"`
	IsOverdue   bool              `json:"is_overdue"`
	UserName    string            `json:"user_name"`
	BookTitle   string            `json:"book_title"`
	BookAuthor  string            `json:"book_author"`
	LibraryID   string            `json:"library_id"`
	LibraryName string            `json:"library_name"`
}

// Reservation is the client-facing representation of a reservation.
type Reservation struct {
	*domain.Reservation
	QueuePosition *int   `json:"queue_position,omitempty"` // set only while PENDING
	IsExpired     bool   `json:"is_expired"`
	UserName      string `json:"user_name"`
	BookTitle     string `json:"book_title"`
	BookAuthor    string `json:"book_author"`
	LibraryID     string `json:"library_id"`
	LibraryName   string `json:"library_name"`
}

// LoanList is a collection of loans with summary counts.
type LoanList struct {
	Loans []*Loan `json:"loans"`
	domain.LoanCounts
}

// ReservationList is a collection of reservations with summary counts.
type ReservationList struct {
	Reservations []*Reservation `json:"reservations"`
	domain.ReservationCounts
}

// NewLoanList builds a list view, counting overdue loans at now.
func NewLoanList(loans []*Loan, domainLoans []*domain.Loan, now time.Time) *LoanList {
	if loans == nil {
		loans = []*Loan{}
	}
	return &LoanList{Loans: loans, LoanCounts: domain.CountLoans(domainLoans, now)}
}

// NewReservationList builds a list view with status counts.
func NewReservationList(views []*Reservation, rs []*domain.Reservation) *ReservationList {
	if views == nil {
		views = []*Reservation{}
	}
	return &ReservationList{Reservations: views, ReservationCounts: domain.CountReservations(rs)}
}
