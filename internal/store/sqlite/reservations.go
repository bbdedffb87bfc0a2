package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/listenupapp/library-server/internal/domain"
	"github.com/listenupapp/library-server/internal/store"
)

// reservationColumns is the ordered list of columns selected in reservation queries.
// Must match the scan order in scanReservation.
var reservationColumns = []any{
	"id", "created_at", "updated_at", "user_id", "book_id",
	"reservation_date", "status", "expiry_date", "cancel_reason",
}

// reservationReturning is reservationColumns as a RETURNING clause.
var reservationReturning = func() string {
	cols := make([]string, len(reservationColumns))
	for i, c := range reservationColumns {
		cols[i] = c.(string)
	}
	return strings.Join(cols, ", ")
}()

// scanReservation scans a sql.Row (or sql.Rows via its Scan method) into a domain.Reservation.
func scanReservation(scanner interface{ Scan(dest ...any) error }) (*domain.Reservation, error) {
	var r domain.Reservation

	var (
		createdAt       string
		updatedAt       string
		reservationDate string
		status          string
		expiryDate      sql.NullString
		cancelReason    sql.NullString
	)

	err := scanner.Scan(
		&r.ID,
		&createdAt,
		&updatedAt,
		&r.UserID,
		&r.BookID,
		&reservationDate,
		&status,
		&expiryDate,
		&cancelReason,
	)
	if err != nil {
		return nil, err
	}

	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if r.ReservationDate, err = parseTime(reservationDate); err != nil {
		return nil, err
	}
	if r.ExpiryDate, err = parseNullableTime(expiryDate); err != nil {
		return nil, err
	}
	r.Status = domain.ReservationStatus(status)
	r.CancelReason = cancelReason.String

	return &r, nil
}

// CreateReservation inserts a PENDING reservation for a book that cannot be
// borrowed right now.
//
// Returns store.ErrCopyAvailable when the book has a copy on the shelf that
// no READY reservation holds and fewer active loans than copies, store.ErrAlreadyExists when the user already
// holds an active reservation for the book, and store.ErrInvalidInput when
// the user or book does not exist.
func (s *Store) CreateReservation(ctx context.Context, r *domain.Reservation) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var free int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM books WHERE id = ? AND`+freeCopyCondition,
			r.BookID).Scan(&free)
		if err != nil {
			return fmt.Errorf("check availability: %w", err)
		}
		if free > 0 {
			return store.ErrCopyAvailable
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO reservations (
				id, created_at, updated_at, user_id, book_id,
				reservation_date, status, expiry_date, cancel_reason
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID,
			formatTime(r.CreatedAt),
			formatTime(r.UpdatedAt),
			r.UserID,
			r.BookID,
			formatTime(r.ReservationDate),
			string(r.Status),
			nullTimeString(r.ExpiryDate),
			nullString(r.CancelReason),
		)
		switch {
		case isUniqueViolation(err):
			return store.ErrAlreadyExists.WithCause(err)
		case isForeignKeyViolation(err):
			return store.ErrInvalidInput.WithMessage("user or book does not exist").WithCause(err)
		}
		return err
	})
}

// GetReservation retrieves a reservation by ID.
// Returns store.ErrNotFound if the reservation does not exist.
func (s *Store) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	query, args, err := dialect.From("reservations").
		Select(reservationColumns...).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	r, err := scanReservation(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListReservations returns the reservations matching f in queue order.
func (s *Store) ListReservations(ctx context.Context, f domain.ReservationFilter) ([]*domain.Reservation, error) {
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

	query, args, err := dialect.From("reservations").
		Select(reservationColumns...).
		Where(conds...).
		Order(goqu.C("reservation_date").Asc(), goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build reservation query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

func collectReservations(rows *sql.Rows) ([]*domain.Reservation, error) {
	var out []*domain.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// queueRow is one PENDING reservation and its rank in the book's queue.
type queueRow struct {
	ID       string `db:"id"`
	Position int    `db:"position"`
}

// QueuePositions returns the 1-based queue position of every PENDING
// reservation, keyed by reservation ID. Ties on reservation_date are broken
// by ID. When bookIDs is non-empty only those queues are ranked.
func (s *Store) QueuePositions(ctx context.Context, bookIDs ...string) (map[string]int, error) {
	ds := dialect.From("reservations").
		Select(
			goqu.C("id"),
			goqu.L("ROW_NUMBER() OVER (PARTITION BY book_id ORDER BY reservation_date, id)").As("position"),
		).
		Where(goqu.C("status").Eq(string(domain.ReservationPending)))
	if len(bookIDs) > 0 {
		ds = ds.Where(goqu.C("book_id").In(bookIDs))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build queue query: %w", err)
	}

	var rows []queueRow
	if err := s.dbx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	positions := make(map[string]int, len(rows))
	for _, r := range rows {
		positions[r.ID] = r.Position
	}
	return positions, nil
}

// CancelReservation moves a PENDING or READY reservation to CANCELLED.
// Returns store.ErrConditionFailed when it is already closed.
func (s *Store) CancelReservation(ctx context.Context, id, reason string, now time.Time) (*domain.Reservation, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE reservations SET status = 'CANCELLED', cancel_reason = ?, updated_at = ?
		WHERE id = ? AND status IN ('PENDING', 'READY')`,
		nullString(reason), formatTime(now), id)
	if err != nil {
		return nil, err
	}
	if err := conditionResult(ctx, s.db, result, "reservations", id); err != nil {
		return nil, err
	}
	return s.GetReservation(ctx, id)
}

// PromoteNext moves the earliest PENDING reservation for a book to READY with
// the given expiry, provided the book has more copies on the shelf than it
// already holds for READY reservations. Returns nil when nothing was promoted.
func (s *Store) PromoteNext(ctx context.Context, bookID string, expiry, now time.Time) (*domain.Reservation, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE reservations SET status = 'READY', expiry_date = ?, updated_at = ?
		WHERE id = (
			SELECT id FROM reservations
			WHERE book_id = ? AND status = 'PENDING'
			ORDER BY reservation_date, id
			LIMIT 1
		)
		AND EXISTS (
			SELECT 1 FROM books
			WHERE books.id = ?
			  AND books.available_copies > (
				SELECT COUNT(*) FROM reservations held
				WHERE held.book_id = books.id AND held.status = 'READY'
			  )
		)
		RETURNING `+reservationReturning,
		formatTime(expiry), formatTime(now), bookID, bookID)

	r, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ExpireReservations moves every READY reservation whose expiry is before now
// to EXPIRED and returns them.
func (s *Store) ExpireReservations(ctx context.Context, now time.Time) ([]*domain.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE reservations SET status = 'EXPIRED', updated_at = ?
		WHERE status = 'READY' AND expiry_date < ?
		RETURNING `+reservationReturning,
		formatTime(now), formatTime(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// BookQueueStats returns the reservation counts and next expected return for a book.
func (s *Store) BookQueueStats(ctx context.Context, bookID string) (*store.BookQueueStats, error) {
	var stats store.BookQueueStats
	err := s.dbx.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = 'PENDING' THEN 1 ELSE 0 END), 0) AS pending
		FROM reservations WHERE book_id = ?`, bookID)
	if err != nil {
		return nil, err
	}

	stats.NextDueDate, err = s.NextDueDate(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
