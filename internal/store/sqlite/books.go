package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/listenupapp/library-server/internal/domain"
	"github.com/listenupapp/library-server/internal/store"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
var bookColumns = []any{
	"id", "created_at", "updated_at", "library_id", "title", "author",
	"isbn", "publisher", "publication_year", "category",
	"total_copies", "available_copies", "status",
}

// scanBook scans a sql.Row (or sql.Rows via its Scan method) into a domain.Book.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var b domain.Book

	var (
		createdAt       string
		updatedAt       string
		isbn            sql.NullString
		publisher       sql.NullString
		publicationYear sql.NullInt64
		category        sql.NullString
		status          string
	)

	err := scanner.Scan(
		&b.ID,
		&createdAt,
		&updatedAt,
		&b.LibraryID,
		&b.Title,
		&b.Author,
		&isbn,
		&publisher,
		&publicationYear,
		&category,
		&b.TotalCopies,
		&b.AvailableCopies,
		&status,
	)
	if err != nil {
		return nil, err
	}

	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	b.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	b.ISBN = isbn.String
	b.Publisher = publisher.String
	b.Category = category.String
	if publicationYear.Valid {
		year := int(publicationYear.Int64)
		b.PublicationYear = &year
	}
	b.Status = domain.BookStatus(status)

	return &b, nil
}

// CreateBook inserts a new book.
// Returns store.ErrAlreadyExists on duplicate ID and store.ErrInvalidInput
// when the library does not exist.
func (s *Store) CreateBook(ctx context.Context, b *domain.Book) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (
			id, created_at, updated_at, library_id, title, author,
			isbn, publisher, publication_year, category,
			total_copies, available_copies, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		formatTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
		b.LibraryID,
		b.Title,
		b.Author,
		nullString(b.ISBN),
		nullString(b.Publisher),
		nullIntPtr(b.PublicationYear),
		nullString(b.Category),
		b.TotalCopies,
		b.AvailableCopies,
		string(b.Status),
	)
	switch {
	case isUniqueViolation(err):
		return store.ErrAlreadyExists
	case isForeignKeyViolation(err):
		return store.ErrInvalidInput.WithMessage("library does not exist").WithCause(err)
	case err != nil:
		return err
	}

	s.indexBook(ctx, b)
	return nil
}

// GetBook retrieves a book by ID.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return s.getBook(ctx, s.db, id)
}

func (s *Store) getBook(ctx context.Context, q queryer, id string) (*domain.Book, error) {
	query, args, err := dialect.From("books").
		Select(bookColumns...).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	b, err := scanBook(q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListBooks returns all books, newest first.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	return s.SearchBooks(ctx, domain.BookFilter{})
}

// SearchBooks returns the books matching every non-empty field of f, newest first.
func (s *Store) SearchBooks(ctx context.Context, f domain.BookFilter) ([]*domain.Book, error) {
	if f.IDs != nil && len(f.IDs) == 0 {
		return nil, nil
	}

	query, args, err := dialect.From("books").
		Select(bookColumns...).
		Where(bookConditions(f)...).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build book query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

// bookConditions translates a filter into WHERE expressions.
func bookConditions(f domain.BookFilter) []exp.Expression {
	var conds []exp.Expression

	if f.Title != "" {
		conds = append(conds, containsFold("title", f.Title))
	}
	if f.Author != "" {
		conds = append(conds, containsFold("author", f.Author))
	}
	if f.Publisher != "" {
		conds = append(conds, containsFold("publisher", f.Publisher))
	}
	if len(f.Categories) > 0 {
		conds = append(conds, goqu.C("category").In(f.Categories))
	}
	if f.LibraryID != "" {
		conds = append(conds, goqu.C("library_id").Eq(f.LibraryID))
	}
	if f.ISBN != "" {
		conds = append(conds, goqu.C("isbn").Eq(f.ISBN))
	}
	if f.Status != "" {
		conds = append(conds, goqu.C("status").Eq(string(f.Status)))
	}
	if len(f.IDs) > 0 {
		conds = append(conds, goqu.C("id").In(f.IDs))
	}
	if f.Available {
		conds = append(conds,
			goqu.C("status").Eq(string(domain.BookStatusAvailable)),
			goqu.L(freeCopyCondition),
		)
	}

	return conds
}

// UpdateBook writes the descriptive fields and copy counters of b.
//
// The counters are compared against expected, the version the caller read,
// so an edit racing a borrow or return fails with store.ErrConditionFailed
// instead of overwriting the concurrent change.
func (s *Store) UpdateBook(ctx context.Context, b *domain.Book, expected *domain.Book) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE books SET
			updated_at = ?,
			library_id = ?,
			title = ?,
			author = ?,
			isbn = ?,
			publisher = ?,
			publication_year = ?,
			category = ?,
			total_copies = ?,
			available_copies = ?,
			status = ?
		WHERE id = ? AND total_copies = ? AND available_copies = ?`,
		formatTime(b.UpdatedAt),
		b.LibraryID,
		b.Title,
		b.Author,
		nullString(b.ISBN),
		nullString(b.Publisher),
		nullIntPtr(b.PublicationYear),
		nullString(b.Category),
		b.TotalCopies,
		b.AvailableCopies,
		string(b.Status),
		b.ID,
		expected.TotalCopies,
		expected.AvailableCopies,
	)
	if isForeignKeyViolation(err) {
		return store.ErrInvalidInput.WithMessage("library does not exist").WithCause(err)
	}
	if err != nil {
		return err
	}
	if err := conditionResult(ctx, s.db, result, "books", b.ID); err != nil {
		return err
	}

	s.indexBook(ctx, b)
	return nil
}

// DeleteBook removes a book that has no loan or reservation history.
// Returns store.ErrNotFound if it does not exist and store.ErrHasDependents
// when loans or reservations reference it.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var refs int
		if err := tx.QueryRowContext(ctx, `
			SELECT (SELECT COUNT(*) FROM loans WHERE book_id = ?)
			     + (SELECT COUNT(*) FROM reservations WHERE book_id = ?)`,
			id, id).Scan(&refs); err != nil {
			return fmt.Errorf("count references: %w", err)
		}
		if refs > 0 {
			return store.ErrHasDependents
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return affected(result)
	})
	if err != nil {
		return err
	}

	if err := s.searchIndexer.DeleteBook(ctx, id); err != nil {
		s.logger.Warn("failed to remove book from search index", "book_id", id, "error", err)
	}
	return nil
}

// BookExists reports whether a book with the given ID exists.
func (s *Store) BookExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// indexBook updates the search index after a committed write. Index failures
// are logged; the database stays the source of truth and reindex repairs drift.
func (s *Store) indexBook(ctx context.Context, b *domain.Book) {
	if err := s.searchIndexer.IndexBook(ctx, b); err != nil {
		s.logger.Warn("failed to index book for search", "book_id", b.ID, "error", err)
	}
}

// conditionResult distinguishes a missing row from a failed guard when a
// conditional update affected nothing.
func conditionResult(ctx context.Context, q queryer, result sql.Result, table, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return store.ErrNotFound
	}
	return store.ErrConditionFailed
}
