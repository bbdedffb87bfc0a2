package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/listenupapp/library-server/internal/domain"
	"github.com/listenupapp/library-server/internal/store"
)

// Every change to books.available_copies goes through one of the statements
// below. Each is a single conditional UPDATE whose guard is evaluated against
// the row it writes, so concurrent callers cannot both pass the same check.

// borrowGuard is the borrow rule. The book must be AVAILABLE with a shelf copy
// that no other patron's READY reservation holds, and active loans must stay
// below the copy count. It binds one argument, the borrowing user. An empty
// user counts every hold.
const borrowGuard = `
	status = 'AVAILABLE'
	AND available_copies > (SELECT COUNT(*) FROM reservations held
		WHERE held.book_id = books.id AND held.status = 'READY' AND held.user_id <> ?)
	AND (SELECT COUNT(*) FROM loans WHERE loans.book_id = books.id AND loans.status = 'ACTIVE') < total_copies`

// freeCopyCondition selects books with a copy on the shelf that no READY
// reservation holds and fewer active loans than copies.
const freeCopyCondition = `
	available_copies > (SELECT COUNT(*) FROM reservations held
		WHERE held.book_id = books.id AND held.status = 'READY')
	AND (SELECT COUNT(*) FROM loans WHERE loans.book_id = books.id AND loans.status = 'ACTIVE') < total_copies`

// releaseGuard is the release rule: at least one copy is out.
const releaseGuard = `available_copies < total_copies`

// takeCopy decrements available_copies under the borrow rule on behalf of
// userID, whose own READY reservation does not block the borrow.
func takeCopy(ctx context.Context, q queryer, bookID, userID string, now time.Time) error {
	result, err := q.ExecContext(ctx, `
		UPDATE books SET available_copies = available_copies - 1, updated_at = ?
		WHERE id = ? AND`+borrowGuard,
		formatTime(now), bookID, userID)
	if err != nil {
		return err
	}
	return guardResult(ctx, q, result, bookID, store.ErrNoCopyAvailable)
}

// putCopy increments available_copies under the release rule.
func putCopy(ctx context.Context, q queryer, bookID string, now time.Time) error {
	result, err := q.ExecContext(ctx, `
		UPDATE books SET available_copies = available_copies + 1, updated_at = ?
		WHERE id = ? AND `+releaseGuard,
		formatTime(now), bookID)
	if err != nil {
		return err
	}
	return guardResult(ctx, q, result, bookID, store.ErrAllCopiesReturned)
}

// guardResult maps a zero-row conditional update to store.ErrNotFound when
// the book is gone and to failed otherwise.
func guardResult(ctx context.Context, q queryer, result sql.Result, bookID string, failed *store.Error) error {
	err := conditionResult(ctx, q, result, "books", bookID)
	if errors.Is(err, store.ErrConditionFailed) {
		return failed
	}
	return err
}

// BorrowCopy takes one copy of a book off the shelf without recording a loan
// and returns the updated book. Copies held by READY reservations are not
// taken.
func (s *Store) BorrowCopy(ctx context.Context, bookID string, now time.Time) (*domain.Book, error) {
	var b *domain.Book
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := takeCopy(ctx, tx, bookID, "", now); err != nil {
			return err
		}
		var err error
		b, err = s.getBook(ctx, tx, bookID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ReturnCopy puts one copy of a book back on the shelf and returns the updated book.
func (s *Store) ReturnCopy(ctx context.Context, bookID string, now time.Time) (*domain.Book, error) {
	var b *domain.Book
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := putCopy(ctx, tx, bookID, now); err != nil {
			return err
		}
		var err error
		b, err = s.getBook(ctx, tx, bookID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// AdjustAvailableCopies applies delta to available_copies when the result
// stays within [0, total_copies]. Returns store.ErrNoCopyAvailable or
// store.ErrAllCopiesReturned when the bound would be crossed.
func (s *Store) AdjustAvailableCopies(ctx context.Context, bookID string, delta int, now time.Time) (*domain.Book, error) {
	var b *domain.Book
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE books SET available_copies = available_copies + ?, updated_at = ?
			WHERE id = ? AND available_copies + ? BETWEEN 0 AND total_copies`,
			delta, formatTime(now), bookID, delta)
		if err != nil {
			return err
		}

		failed := store.ErrAllCopiesReturned
		if delta < 0 {
			failed = store.ErrNoCopyAvailable
		}
		if err := guardResult(ctx, tx, result, bookID, failed); err != nil {
			return err
		}

		b, err = s.getBook(ctx, tx, bookID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ActiveLoanCount returns the number of ACTIVE loans for a book.
func (s *Store) ActiveLoanCount(ctx context.Context, bookID string) (int, error) {
	var n int
	err := s.dbx.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM loans WHERE book_id = ? AND status = 'ACTIVE'`, bookID)
	return n, err
}
