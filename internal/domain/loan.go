package domain

import "time"

// Loan defaults.
const (
	DefaultLoanPeriodDays = 14
	DefaultExtensionDays  = 7
)

// LoanStatus is the persisted state of a loan.
type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "ACTIVE"
	LoanStatusReturned LoanStatus = "RETURNED"

	// LoanStatusOverdue is a read-time label for active loans past their due
	// date. It is never written to storage.
	LoanStatusOverdue LoanStatus = "OVERDUE"
)

// Loan records one copy of a book checked out to a user.
type Loan struct {
	Timestamps
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	BookID     string     `json:"book_id"`
	LoanDate   time.Time  `json:"loan_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Status     LoanStatus `json:"status"`
}

// NewLoan creates an active loan starting at now and due after periodDays.
func NewLoan(id, userID, bookID string, now time.Time, periodDays int) *Loan {
	l := &Loan{
		ID:       id,
		UserID:   userID,
		BookID:   bookID,
		LoanDate: now,
		DueDate:  now.AddDate(0, 0, periodDays),
		Status:   LoanStatusActive,
	}
	l.InitTimestamps(now)
	return l
}

// IsActive reports whether the copy is still checked out.
func (l *Loan) IsActive() bool {
	return l.Status == LoanStatusActive
}

// IsOverdue reports whether the loan is active and past due at now.
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.IsActive() && l.DueDate.Before(now)
}

// DisplayStatus returns the status to show callers, deriving OVERDUE.
func (l *Loan) DisplayStatus(now time.Time) LoanStatus {
	if l.IsOverdue(now) {
		return LoanStatusOverdue
	}
	return l.Status
}

// LoanCounts summarises a set of loans.
type LoanCounts struct {
	Total   int `json:"total_count"`
	Active  int `json:"active_count"`
	Overdue int `json:"overdue_count"`
}

// CountLoans tallies loans evaluated at now.
func CountLoans(loans []*Loan, now time.Time) LoanCounts {
	c := LoanCounts{Total: len(loans)}
	for _, l := range loans {
		if l.IsActive() {
			c.Active++
		}
		if l.IsOverdue(now) {
			c.Overdue++
		}
	}
	return c
}

// LoanFilter narrows loan listings.
type LoanFilter struct {
	UserID    string
	BookID    string
	Status    LoanStatus
	DueBefore *time.Time
}
