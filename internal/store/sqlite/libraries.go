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

// libraryColumns is the ordered list of columns selected in library queries.
// Must match the scan order in scanLibrary.
var libraryColumns = []any{
	"id", "created_at", "updated_at", "name", "address", "phone",
	"latitude", "longitude", "opening_hours", "description",
}

// scanLibrary scans a sql.Row (or sql.Rows via its Scan method) into a domain.Library.
func scanLibrary(scanner interface{ Scan(dest ...any) error }) (*domain.Library, error) {
	var lib domain.Library

	var (
		createdAt    string
		updatedAt    string
		phone        sql.NullString
		latitude     sql.NullFloat64
		longitude    sql.NullFloat64
		openingHours sql.NullString
		description  sql.NullString
	)

	err := scanner.Scan(
		&lib.ID,
		&createdAt,
		&updatedAt,
		&lib.Name,
		&lib.Address,
		&phone,
		&latitude,
		&longitude,
		&openingHours,
		&description,
	)
	if err != nil {
		return nil, err
	}

	lib.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	lib.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	lib.Phone = phone.String
	lib.OpeningHours = openingHours.String
	lib.Description = description.String
	if latitude.Valid {
		lib.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		lib.Longitude = &longitude.Float64
	}

	return &lib, nil
}

// CreateLibrary inserts a new library into the database.
// Returns store.ErrAlreadyExists on duplicate ID.
func (s *Store) CreateLibrary(ctx context.Context, lib *domain.Library) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO libraries (
			id, created_at, updated_at, name, address, phone,
			latitude, longitude, opening_hours, description
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lib.ID,
		formatTime(lib.CreatedAt),
		formatTime(lib.UpdatedAt),
		lib.Name,
		lib.Address,
		nullString(lib.Phone),
		nullFloat(lib.Latitude),
		nullFloat(lib.Longitude),
		nullString(lib.OpeningHours),
		nullString(lib.Description),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// GetLibrary retrieves a library by ID.
// Returns store.ErrNotFound if the library does not exist.
func (s *Store) GetLibrary(ctx context.Context, id string) (*domain.Library, error) {
	return s.getLibrary(ctx, s.db, id)
}

func (s *Store) getLibrary(ctx context.Context, q queryer, id string) (*domain.Library, error) {
	query, args, err := dialect.From("libraries").
		Select(libraryColumns...).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	lib, err := scanLibrary(q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return lib, nil
}

// ListLibraries returns all libraries ordered by name.
func (s *Store) ListLibraries(ctx context.Context) ([]*domain.Library, error) {
	return s.queryLibraries(ctx, dialect.From("libraries"))
}

// SearchLibrariesByName returns libraries whose name contains name, ignoring case.
func (s *Store) SearchLibrariesByName(ctx context.Context, name string) ([]*domain.Library, error) {
	return s.queryLibraries(ctx, dialect.From("libraries").Where(containsFold("name", name)))
}

// SearchLibrariesByAddress returns libraries whose address contains address, ignoring case.
func (s *Store) SearchLibrariesByAddress(ctx context.Context, address string) ([]*domain.Library, error) {
	return s.queryLibraries(ctx, dialect.From("libraries").Where(containsFold("address", address)))
}

// GetLibrariesByIDs returns the libraries with the given IDs. Unknown IDs are skipped.
func (s *Store) GetLibrariesByIDs(ctx context.Context, ids []string) ([]*domain.Library, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryLibraries(ctx, dialect.From("libraries").Where(goqu.C("id").In(ids)))
}

// LibrariesInBox returns libraries with coordinates inside box. Callers apply
// the exact distance filter; the box only narrows the scan.
func (s *Store) LibrariesInBox(ctx context.Context, box domain.BoundingBox) ([]*domain.Library, error) {
	var lng exp.Expression = goqu.C("longitude").Between(goqu.Range(box.MinLng, box.MaxLng))
	if box.CrossesAntimeridian() {
		lng = goqu.Or(
			goqu.C("longitude").Gte(box.MinLng),
			goqu.C("longitude").Lte(box.MaxLng),
		)
	}
	return s.queryLibraries(ctx, dialect.From("libraries").Where(
		goqu.C("latitude").IsNotNull(),
		goqu.C("longitude").IsNotNull(),
		goqu.C("latitude").Between(goqu.Range(box.MinLat, box.MaxLat)),
		lng,
	))
}

func (s *Store) queryLibraries(ctx context.Context, ds *goqu.SelectDataset) ([]*domain.Library, error) {
	query, args, err := ds.Select(libraryColumns...).
		Order(goqu.C("name").Asc(), goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build library query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var libraries []*domain.Library
	for rows.Next() {
		lib, err := scanLibrary(rows)
		if err != nil {
			return nil, err
		}
		libraries = append(libraries, lib)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return libraries, nil
}

// UpdateLibrary performs a full row update on an existing library.
// Returns store.ErrNotFound if the library does not exist.
func (s *Store) UpdateLibrary(ctx context.Context, lib *domain.Library) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE libraries SET
			updated_at = ?,
			name = ?,
			address = ?,
			phone = ?,
			latitude = ?,
			longitude = ?,
			opening_hours = ?,
			description = ?
		WHERE id = ?`,
		formatTime(lib.UpdatedAt),
		lib.Name,
		lib.Address,
		nullString(lib.Phone),
		nullFloat(lib.Latitude),
		nullFloat(lib.Longitude),
		nullString(lib.OpeningHours),
		nullString(lib.Description),
		lib.ID,
	)
	if err != nil {
		return err
	}
	return affected(result)
}

// DeleteLibrary deletes a library that owns no books.
// Returns store.ErrNotFound if it does not exist and store.ErrHasDependents
// while books still reference it.
func (s *Store) DeleteLibrary(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var books int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM books WHERE library_id = ?`, id).Scan(&books); err != nil {
			return fmt.Errorf("count books: %w", err)
		}
		if books > 0 {
			return store.ErrHasDependents
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM libraries WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return affected(result)
	})
}
