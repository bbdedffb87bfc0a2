package service

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/listenupapp/library-server/internal/domain"
	domainerrors "github.com/listenupapp/library-server/internal/errors"
	"github.com/listenupapp/library-server/internal/id"
	"github.com/listenupapp/library-server/internal/store"
	"github.com/listenupapp/library-server/internal/store/sqlite"
)

// MaxSearchRadiusKm bounds geo searches.
const MaxSearchRadiusKm = 100.0

// LibraryService manages the library directory.
type LibraryService struct {
	store  *sqlite.Store
	logger *slog.Logger
	now    Clock
}

// NewLibraryService creates a new library service.
func NewLibraryService(store *sqlite.Store, logger *slog.Logger, now Clock) *LibraryService {
	return &LibraryService{store: store, logger: logger, now: clockOrNow(now)}
}

// CreateLibraryRequest holds the fields of a new library.
type CreateLibraryRequest struct {
	Name         string   `json:"name" validate:"required,min=1,max=100"`
	Address      string   `json:"address" validate:"required,max=500"`
	Phone        string   `json:"phone,omitempty" validate:"max=20"`
	Latitude     *float64 `json:"latitude,omitempty" validate:"omitempty,latitude,required_with=Longitude"`
	Longitude    *float64 `json:"longitude,omitempty" validate:"omitempty,longitude,required_with=Latitude"`
	OpeningHours string   `json:"opening_hours,omitempty" validate:"max=200"`
	Description  string   `json:"description,omitempty" validate:"max=2000"`
}

// UpdateLibraryRequest is a partial update; nil fields are left unchanged.
type UpdateLibraryRequest struct {
	Name         *string  `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Address      *string  `json:"address,omitempty" validate:"omitempty,min=1,max=500"`
	Phone        *string  `json:"phone,omitempty" validate:"omitempty,max=20"`
	Latitude     *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	OpeningHours *string  `json:"opening_hours,omitempty" validate:"omitempty,max=200"`
	Description  *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// ListLibraries returns every library ordered by name.
func (s *LibraryService) ListLibraries(ctx context.Context) ([]*domain.Library, error) {
	libs, err := s.store.ListLibraries(ctx)
	if err != nil {
		return nil, translate(err, "libraries", "")
	}
	return libs, nil
}

// GetLibrary returns a library or NOT_FOUND.
func (s *LibraryService) GetLibrary(ctx context.Context, libraryID string) (*domain.Library, error) {
	lib, err := s.store.GetLibrary(ctx, libraryID)
	if err != nil {
		return nil, translate(err, "library", libraryID)
	}
	return lib, nil
}

// CreateLibrary adds a library to the directory.
func (s *LibraryService) CreateLibrary(ctx context.Context, req CreateLibraryRequest) (*domain.Library, error) {
	name := strings.TrimSpace(req.Name)
	address := strings.TrimSpace(req.Address)
	if name == "" || address == "" {
		return nil, domainerrors.Validation("name and address are required")
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, domainerrors.Validation("latitude and longitude must be given together")
	}

	libraryID, err := id.Generate(id.PrefixLibrary)
	if err != nil {
		return nil, err
	}

	lib := &domain.Library{
		ID:           libraryID,
		Name:         name,
		Address:      address,
		Phone:        strings.TrimSpace(req.Phone),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		OpeningHours: req.OpeningHours,
		Description:  req.Description,
	}
	lib.InitTimestamps(s.now())

	if err := s.store.CreateLibrary(ctx, lib); err != nil {
		return nil, translate(err, "library", libraryID)
	}

	s.logger.Info("library created", "library_id", lib.ID, "name", lib.Name)
	return lib, nil
}

// UpdateLibrary applies a partial update.
func (s *LibraryService) UpdateLibrary(ctx context.Context, libraryID string, req UpdateLibraryRequest) (*domain.Library, error) {
	lib, err := s.GetLibrary(ctx, libraryID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		lib.Name = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		lib.Address = strings.TrimSpace(*req.Address)
	}
	if req.Phone != nil {
		lib.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Latitude != nil {
		lib.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		lib.Longitude = req.Longitude
	}
	if req.OpeningHours != nil {
		lib.OpeningHours = *req.OpeningHours
	}
	if req.Description != nil {
		lib.Description = *req.Description
	}

	if lib.Name == "" || lib.Address == "" {
		return nil, domainerrors.Validation("name and address cannot be empty")
	}

	lib.Touch(s.now())
	if err := s.store.UpdateLibrary(ctx, lib); err != nil {
		return nil, translate(err, "library", libraryID)
	}

	s.logger.Info("library updated", "library_id", lib.ID)
	return lib, nil
}

// DeleteLibrary removes a library that owns no books.
func (s *LibraryService) DeleteLibrary(ctx context.Context, libraryID string) error {
	err := s.store.DeleteLibrary(ctx, libraryID)
	if errors.Is(err, store.ErrHasDependents) {
		return domainerrors.InvalidStatef("library %s still has books", libraryID)
	}
	if err != nil {
		return translate(err, "library", libraryID)
	}

	s.logger.Info("library deleted", "library_id", libraryID)
	return nil
}

// SearchLibraries finds libraries by location, name or address, in that
// order of precedence. Geo results are sorted nearest first and carry their
// distance; the others are sorted by name.
func (s *LibraryService) SearchLibraries(ctx context.Context, q domain.LibrarySearch) ([]*domain.LibraryWithDistance, error) {
	if q.IsGeo() {
		return s.searchNear(ctx, *q.Latitude, *q.Longitude, q.RadiusKm)
	}

	var (
		libs []*domain.Library
		err  error
	)
	switch {
	case strings.TrimSpace(q.Name) != "":
		libs, err = s.store.SearchLibrariesByName(ctx, strings.TrimSpace(q.Name))
	case strings.TrimSpace(q.Address) != "":
		libs, err = s.store.SearchLibrariesByAddress(ctx, strings.TrimSpace(q.Address))
	default:
		libs, err = s.store.ListLibraries(ctx)
	}
	if err != nil {
		return nil, translate(err, "libraries", "")
	}

	out := make([]*domain.LibraryWithDistance, len(libs))
	for i, lib := range libs {
		out[i] = &domain.LibraryWithDistance{Library: lib}
	}
	return out, nil
}

// searchNear prefilters with a bounding box in SQL, then applies the exact
// haversine radius.
func (s *LibraryService) searchNear(ctx context.Context, lat, lng, radiusKm float64) ([]*domain.LibraryWithDistance, error) {
	if radiusKm == 0 {
		radiusKm = domain.DefaultSearchRadiusKm
	}
	switch {
	case lat < -90 || lat > 90 || lng < -180 || lng > 180:
		return nil, domainerrors.Validation("coordinates out of range")
	case radiusKm <= 0 || radiusKm > MaxSearchRadiusKm:
		return nil, domainerrors.Validationf("radius must be greater than 0 and at most %g km", MaxSearchRadiusKm)
	}

	candidates, err := s.store.LibrariesInBox(ctx, domain.BoundingBoxAround(lat, lng, radiusKm))
	if err != nil {
		return nil, translate(err, "libraries", "")
	}

	out := make([]*domain.LibraryWithDistance, 0, len(candidates))
	for _, lib := range candidates {
		d, ok := lib.DistanceFrom(lat, lng)
		if !ok || d > radiusKm {
			continue
		}
		out = append(out, &domain.LibraryWithDistance{Library: lib, DistanceKm: &d})
	}

	slices.SortStableFunc(out, func(a, b *domain.LibraryWithDistance) int {
		return cmp.Compare(*a.DistanceKm, *b.DistanceKm)
	})

	s.logger.Debug("geo library search",
		"lat", lat, "lng", lng, "radius_km", radiusKm,
		"candidates", len(candidates), "matches", len(out))
	return out, nil
}
