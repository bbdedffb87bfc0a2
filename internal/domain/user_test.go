package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "김철수", (&User{Username: "chulsoo", FullName: "김철수"}).DisplayName())
	assert.Equal(t, "chulsoo", (&User{Username: "chulsoo"}).DisplayName())
}

func TestBook_CopiesValid(t *testing.T) {
	tests := []struct {
		name string
		book Book
		want bool
	}{
		{"all on shelf", Book{TotalCopies: 2, AvailableCopies: 2}, true},
		{"all out", Book{TotalCopies: 2, AvailableCopies: 0}, true},
		{"over shelf", Book{TotalCopies: 1, AvailableCopies: 2}, false},
		{"negative", Book{TotalCopies: 1, AvailableCopies: -1}, false},
		{"no copies", Book{TotalCopies: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.book.CopiesValid())
		})
	}

	assert.Equal(t, 3, (&Book{TotalCopies: 5, AvailableCopies: 2}).OnLoan())
	assert.False(t, BookStatus("LOST").Valid())
}

func TestLoan_Overdue(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	l := NewLoan("loan-1", "user-1", "book-1", now, 14)
	assert.Equal(t, now.AddDate(0, 0, 14), l.DueDate)
	assert.False(t, l.IsOverdue(now))
	assert.Equal(t, LoanStatusActive, l.DisplayStatus(now))

	later := now.AddDate(0, 0, 15)
	assert.True(t, l.IsOverdue(later))
	assert.Equal(t, LoanStatusOverdue, l.DisplayStatus(later))

	l.Status = LoanStatusReturned
	assert.False(t, l.IsOverdue(later))

	counts := CountLoans([]*Loan{
		NewLoan("a", "u", "b", now, 14),
		NewLoan("b", "u", "b", now.AddDate(0, 0, -30), 14),
		{Status: LoanStatusReturned, DueDate: now.AddDate(0, 0, -30)},
	}, now)
	assert.Equal(t, LoanCounts{Total: 3, Active: 2, Overdue: 1}, counts)
}

func TestReservation_State(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	r := NewReservation("rsv-1", "user-1", "book-1", now)
	assert.Equal(t, ReservationPending, r.Status)
	assert.False(t, r.IsExpired(now))

	expiry := now.Add(-time.Minute)
	r.Status, r.ExpiryDate = ReservationReady, &expiry
	assert.True(t, r.IsExpired(now))

	r.Status = ReservationCompleted
	assert.False(t, r.IsExpired(now))

	counts := CountReservations([]*Reservation{
		{Status: ReservationPending},
		{Status: ReservationPending},
		{Status: ReservationReady},
		{Status: ReservationExpired},
		{Status: ReservationCancelled},
	})
	assert.Equal(t, ReservationCounts{Total: 5, Pending: 2, Ready: 1, Expired: 1}, counts)
}
