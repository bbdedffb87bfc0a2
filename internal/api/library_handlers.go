package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/library-server/internal/domain"
	domainerrors "github.com/listenupapp/library-server/internal/errors"
	"github.com/listenupapp/library-server/internal/service"
)

func (s *Server) registerLibraryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listLibraries",
		Method:      http.MethodGet,
		Path:        "/api/libraries",
		Summary:     "List libraries",
		Description: "Returns all libraries ordered by name",
		Tags:        []string{"Libraries"},
		Metadata:    withMessage("Libraries retrieved"),
	}, s.handleListLibraries)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchLibraries",
		Method:      http.MethodGet,
		Path:        "/api/libraries/search",
		Summary:     "Search libraries",
		Description: "Finds libraries near a point when latitude and longitude are both given, otherwise by name, otherwise by address",
		Tags:        []string{"Libraries"},
		Metadata:    withMessage("Libraries retrieved"),
	}, s.handleSearchLibraries)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createLibrary",
		Method:        http.MethodPost,
		Path:          "/api/libraries",
		Summary:       "Create library",
		Tags:          []string{"Libraries"},
		DefaultStatus: http.StatusCreated,
		Metadata:      withMessage("Library created"),
	}, s.handleCreateLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID: "getLibrary",
		Method:      http.MethodGet,
		Path:        "/api/libraries/{id}",
		Summary:     "Get library",
		Description: "Returns a library by ID",
		Tags:        []string{"Libraries"},
		Metadata:    withMessage("Library retrieved"),
	}, s.handleGetLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateLibrary",
		Method:      http.MethodPatch,
		Path:        "/api/libraries/{id}",
		Summary:     "Update library",
		Description: "Applies the given fields to a library",
		Tags:        []string{"Libraries"},
		Metadata:    withMessage("Library updated"),
	}, s.handleUpdateLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteLibrary",
		Method:      http.MethodDelete,
		Path:        "/api/libraries/{id}",
		Summary:     "Delete library",
		Description: "Deletes a library that holds no books",
		Tags:        []string{"Libraries"},
		Metadata:    withMessage("Library deleted"),
	}, s.handleDeleteLibrary)
}

// === DTOs ===

// LibraryIDInput identifies a library by path.
type LibraryIDInput struct {
	ID string `path:"id" doc:"Library ID"`
}

// SearchLibrariesInput contains library search parameters. Coordinates are
// strings so that absent and zero stay distinguishable.
type SearchLibrariesInput struct {
	Name      string  `query:"name" doc:"Case-insensitive substring of the name"`
	Address   string  `query:"address" doc:"Case-insensitive substring of the address"`
	Latitude  string  `query:"latitude" doc:"Origin latitude for a radius search"`
	Longitude string  `query:"longitude" doc:"Origin longitude for a radius search"`
	Radius    float64 `query:"radius" default:"5" doc:"Search radius in kilometres (0 < radius <= 100)"`
}

// LibraryOutput wraps a library for Huma.
type LibraryOutput struct {
	Body *domain.Library
}

// LibraryListOutput wraps a list of libraries for Huma.
type LibraryListOutput struct {
	Body []*domain.Library
}

// LibrarySearchOutput wraps search results, which carry distances for a
// radius search.
type LibrarySearchOutput struct {
	Body []*domain.LibraryWithDistance
}

// CreateLibraryInput wraps the create library request for Huma.
type CreateLibraryInput struct {
	Body service.CreateLibraryRequest
}

// UpdateLibraryInput wraps the update library request for Huma.
type UpdateLibraryInput struct {
	ID   string `path:"id" doc:"Library ID"`
	Body service.UpdateLibraryRequest
}

// DeletedResponse acknowledges a deletion.
type DeletedResponse struct {
	ID      string `json:"id" doc:"ID of the deleted entity"`
	Deleted bool   `json:"deleted"`
}

// DeletedOutput wraps a deletion acknowledgement for Huma.
type DeletedOutput struct {
	Body DeletedResponse
}

// === Handlers ===

func (s *Server) handleListLibraries(ctx context.Context, _ *struct{}) (*LibraryListOutput, error) {
	libraries, err := s.services.Library.ListLibraries(ctx)
	if err != nil {
		return nil, err
	}
	return &LibraryListOutput{Body: libraries}, nil
}

func (s *Server) handleSearchLibraries(ctx context.Context, input *SearchLibrariesInput) (*LibrarySearchOutput, error) {
	q := domain.LibrarySearch{
		Name:     strings.TrimSpace(input.Name),
		Address:  strings.TrimSpace(input.Address),
		RadiusKm: input.Radius,
	}

	var err error
	if q.Latitude, err = parseCoordinate("latitude", input.Latitude); err != nil {
		return nil, err
	}
	if q.Longitude, err = parseCoordinate("longitude", input.Longitude); err != nil {
		return nil, err
	}

	results, err := s.services.Library.SearchLibraries(ctx, q)
	if err != nil {
		return nil, err
	}
	return &LibrarySearchOutput{Body: results}, nil
}

func (s *Server) handleCreateLibrary(ctx context.Context, input *CreateLibraryInput) (*LibraryOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	lib, err := s.services.Library.CreateLibrary(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &LibraryOutput{Body: lib}, nil
}

func (s *Server) handleGetLibrary(ctx context.Context, input *LibraryIDInput) (*LibraryOutput, error) {
	lib, err := s.services.Library.GetLibrary(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &LibraryOutput{Body: lib}, nil
}

func (s *Server) handleUpdateLibrary(ctx context.Context, input *UpdateLibraryInput) (*LibraryOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	lib, err := s.services.Library.UpdateLibrary(ctx, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &LibraryOutput{Body: lib}, nil
}

func (s *Server) handleDeleteLibrary(ctx context.Context, input *LibraryIDInput) (*DeletedOutput, error) {
	if err := s.services.Library.DeleteLibrary(ctx, input.ID); err != nil {
		return nil, err
	}
	return &DeletedOutput{Body: DeletedResponse{ID: input.ID, Deleted: true}}, nil
}

// parseCoordinate parses an optional coordinate query value.
func parseCoordinate(name, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, domainerrors.Validationf("%s must be a number", name)
	}
	return &v, nil
}
