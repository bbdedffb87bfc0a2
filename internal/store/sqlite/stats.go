package sqlite

import (
	"context"

	"github.com/listenupapp/library-server/internal/store"
)

// CategoryCounts returns the number of books per category, largest first.
// When libraryID is non-empty only that library's books are counted.
func (s *Store) CategoryCounts(ctx context.Context, libraryID string) ([]store.CategoryCount, error) {
	query := `
		SELECT category, COUNT(*) AS count
		FROM books
		WHERE category IS NOT NULL AND category <> ''`
	var args []any
	if libraryID != "" {
		query += ` AND library_id = ?`
		args = append(args, libraryID)
	}
	query += ` GROUP BY category ORDER BY count DESC, category ASC`

	var counts []store.CategoryCount
	if err := s.dbx.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, err
	}
	return counts, nil
}

// DistinctCategories returns every category used by at least one book.
func (s *Store) DistinctCategories(ctx context.Context) ([]string, error) {
	var names []string
	err := s.dbx.SelectContext(ctx, &names, `
		SELECT DISTINCT category FROM books
		WHERE category IS NOT NULL AND category <> ''
		ORDER BY category ASC`)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// LibraryBookCounts returns how many books a library holds and how many of
// them can be borrowed right now.
func (s *Store) LibraryBookCounts(ctx context.Context, libraryID string) (*store.LibraryBookCounts, error) {
	counts := store.LibraryBookCounts{LibraryID: libraryID}
	err := s.dbx.GetContext(ctx, &counts, `
		SELECT
			? AS library_id,
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = 'AVAILABLE' AND available_copies > 0 THEN 1 ELSE 0 END), 0) AS available
		FROM books WHERE library_id = ?`, libraryID, libraryID)
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

// LibraryStats returns a circulation summary for every library.
func (s *Store) LibraryStats(ctx context.Context) ([]store.LibraryStats, error) {
	var stats []store.LibraryStats
	err := s.dbx.SelectContext(ctx, &stats, `
		SELECT
			l.id AS library_id,
			l.name AS name,
			COUNT(b.id) AS books,
			COALESCE(SUM(b.total_copies), 0) AS total_copies,
			COALESCE(SUM(b.available_copies), 0) AS available_copies,
			(SELECT COUNT(*) FROM loans lo JOIN books bb ON bb.id = lo.book_id
			  WHERE bb.library_id = l.id AND lo.status = 'ACTIVE') AS active_loans,
			(SELECT COUNT(*) FROM reservations r JOIN books bb ON bb.id = r.book_id
			  WHERE bb.library_id = l.id AND r.status = 'PENDING') AS pending_reservations
		FROM libraries l
		LEFT JOIN books b ON b.library_id = l.id
		GROUP BY l.id, l.name
		ORDER BY l.name ASC`)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
