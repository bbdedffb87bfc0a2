package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/listenupapp/library-server/internal/domain"
	"github.com/listenupapp/library-server/internal/store"
)

// loanColumns is the ordered list of columns selected in loan queries.
// Must match the scan order in scanLoan.
var loanColumns = []any{
	"id", "created_at", "updated_at", "user_id", "book_id",
	"loan_date", "due_date", "return_date", "status",
}

// scanLoan scans a sql.Row (or sql.Rows via its Scan method) into a domain.Loan.
func scanLoan(scanner interface{ Scan(dest ...any) error }) (*domain.Loan, error) {
	var l domain.Loan

	var (
		createdAt  string
		updatedAt  string
		loanDate   string
		dueDate    string
		returnDate sql.NullString
		status     string
	)

	err := scanner.Scan(
		&l.ID,
		&createdAt,
		&updatedAt,
		&l.UserID,
		&l.BookID,
		&loanDate,
		&dueDate,
		&returnDate,
		&status,
	)
	if err != nil {
		return nil, err
	}

	if l.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if l.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if l.LoanDate, err = parseTime(loanDate); err != nil {
		return nil, err
	}
	if l.DueDate, err = parseTime(dueDate); err != nil {
		return nil, err
	}
	if l.ReturnDate, err = parseNullableTime(returnDate); err != nil {
		return nil, err
	}
	l.Status = domain.LoanStatus(status)

	return &l, nil
}

// CreateLoan records a new ACTIVE loan and takes a copy off the shelf in one
// transaction. If the borrower holds a READY reservation for the book it is
// marked COMPLETED.
//
// Returns store.ErrNoCopyAvailable when the borrow rule rejects the checkout,
// store.ErrNotFound when the book does not exist and store.ErrInvalidInput
// when the user does not exist.
func (s *Store) CreateLoan(ctx context.Context, l *domain.Loan) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		// The decrement runs first so this transaction holds the write lock
		// before anything else is read.
		if err := takeCopy(ctx, tx, l.BookID, l.UserID, l.CreatedAt); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO loans (
				id, created_at, updated_at, user_id, book_id,
				loan_date, due_date, return_date, status
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID,
			formatTime(l.CreatedAt),
			formatTime(l.UpdatedAt),
			l.UserID,
			l.BookID,
			formatTime(l.LoanDate),
			formatTime(l.DueDate),
			nullTimeString(l.ReturnDate),
			string(l.Status),
		)
		switch {
		case isUniqueViolation(err):
			return store.ErrAlreadyExists
		case isForeignKeyViolation(err):
			return store.ErrInvalidInput.WithMessage("user does not exist").WithCause(err)
		case err != nil:
			return fmt.Errorf("insert loan: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE reservations SET status = 'COMPLETED', updated_at = ?
			WHERE user_id = ? AND book_id = ? AND status = 'READY'`,
			formatTime(l.CreatedAt), l.UserID, l.BookID)
		if err != nil {
			return fmt.Errorf("complete reservation: %w", err)
		}
		return nil
	})
}

// GetLoan retrieves a loan by ID.
// Returns store.ErrNotFound if the loan does not exist.
func (s *Store) GetLoan(ctx context.Context, id string) (*domain.Loan, error) {
	return s.getLoan(ctx, s.db, id)
}

func (s *Store) getLoan(ctx context.Context, q queryer, id string) (*domain.Loan, error) {
	query, args, err := dialect.From("loans").
		Select(loanColumns...).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	l, err := scanLoan(q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ListLoans returns the loans matching f, newest first.
func (s *Store) ListLoans(ctx context.Context, f domain.LoanFilter) ([]*domain.Loan, error) {
	var conds []exp.Expression
	if f.UserID != "" {
		conds = append(conds, goqu.C("user_id").Eq(f.UserID))
	}
	if f.BookID != "" {
		conds = append(conds, goqu.C("book_id").Eq(f.BookID))
	}
	if f.Status != "" {
		conds = append(conds, goqu.C("status").Eq(string(f.Status)))
	}
	if f.DueBefore != nil {
		conds = append(conds, goqu.C("due_date").Lt(formatTime(*f.DueBefore)))
	}

	query, args, err := dialect.From("loans").
		Select(loanColumns...).
		Where(conds...).
		Order(goqu.C("loan_date").Desc(), goqu.C("id").Desc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build loan query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []*domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return loans, nil
}

// ListOverdueLoans returns ACTIVE loans whose due date is before now.
func (s *Store) ListOverdueLoans(ctx context.Context, now time.Time) ([]*domain.Loan, error) {
	return s.ListLoans(ctx, domain.LoanFilter{Status: domain.LoanStatusActive, DueBefore: &now})
}

// ReturnLoan marks an ACTIVE loan RETURNED and puts its copy back on the
// shelf in one transaction. Returns the updated loan.
//
// Returns store.ErrConditionFailed when the loan is not ACTIVE and
// store.ErrAllCopiesReturned when the book has no copy out.
func (s *Store) ReturnLoan(ctx context.Context, id string, returnDate, now time.Time) (*domain.Loan, error) {
	var l *domain.Loan
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE loans SET status = 'RETURNED', return_date = ?, updated_at = ?
			WHERE id = ? AND status = 'ACTIVE'`,
			formatTime(returnDate), formatTime(now), id)
		if err != nil {
			return err
		}
		if err := conditionResult(ctx, tx, result, "loans", id); err != nil {
			return err
		}

		l, err = s.getLoan(ctx, tx, id)
		if err != nil {
			return err
		}
		return putCopy(ctx, tx, l.BookID, now)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ExtendLoan moves the due date of an ACTIVE loan from oldDue to newDue.
// Returns store.ErrConditionFailed when the loan is no longer ACTIVE or its
// due date changed since it was read.
func (s *Store) ExtendLoan(ctx context.Context, id string, oldDue, newDue, now time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE loans SET due_date = ?, updated_at = ?
		WHERE id = ? AND status = 'ACTIVE' AND due_date = ?`,
		formatTime(newDue), formatTime(now), id, formatTime(oldDue))
	if err != nil {
		return err
	}
	return conditionResult(ctx, s.db, result, "loans", id)
}

// NextDueDate returns the earliest due date among ACTIVE loans for a book,
// or nil when none are out.
func (s *Store) NextDueDate(ctx context.Context, bookID string) (*time.Time, error) {
	var due sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT MIN(due_date) FROM loans WHERE book_id = ? AND status = 'ACTIVE'`,
		bookID).Scan(&due)
	if err != nil {
		return nil, err
	}
	return parseNullableTime(due)
}
