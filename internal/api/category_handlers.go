package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/library-server/internal/category"
	"github.com/listenupapp/library-server/internal/store"
)

func (s *Server) registerCategoryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCategories",
		Method:      http.MethodGet,
		Path:        "/api/books/categories",
		Summary:     "List categories",
		Description: "Returns the standard categories followed by any other category in use",
		Tags:        []string{"Categories"},
		Metadata:    withMessage("Categories retrieved"),
	}, s.handleListCategories)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPopularCategories",
		Method:      http.MethodGet,
		Path:        "/api/books/categories/popular",
		Summary:     "Popular categories",
		Description: "Returns the categories with the most books",
		Tags:        []string{"Categories"},
		Metadata:    withMessage("Popular categories retrieved"),
	}, s.handlePopularCategories)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCategoryStatistics",
		Method:      http.MethodGet,
		Path:        "/api/books/categories/statistics",
		Summary:     "Category statistics",
		Description: "Returns the number of books per category",
		Tags:        []string{"Categories"},
		Metadata:    withMessage("Category statistics retrieved"),
	}, s.handleCategoryStatistics)

	huma.Register(s.api, huma.Operation{
		OperationID: "getLibraryCategoryStatistics",
		Method:      http.MethodGet,
		Path:        "/api/books/categories/statistics/library/{libraryId}",
		Summary:     "Category statistics for a library",
		Tags:        []string{"Categories"},
		Metadata:    withMessage("Category statistics retrieved"),
	}, s.handleLibraryCategoryStatistics)

	huma.Register(s.api, huma.Operation{
		OperationID: "suggestCategories",
		Method:      http.MethodGet,
		Path:        "/api/books/categories/suggest",
		Summary:     "Suggest categories",
		Description: "Returns up to five standard categories containing the input",
		Tags:        []string{"Categories"},
		Metadata:    withMessage("Category suggestions retrieved"),
	}, s.handleSuggestCategories)

	huma.Register(s.api, huma.Operation{
		OperationID: "listStandardCategories",
		Method:      http.MethodGet,
		Path:        "/api/books/categories/standard",
		Summary:     "Standard categories",
		Description: "Returns the built-in taxonomy with descriptions and sub-categories",
		Tags:        []string{"Categories"},
		Metadata:    withMessage("Standard categories retrieved"),
	}, s.handleStandardCategories)
}

// === DTOs ===

// SuggestCategoriesInput carries the partial category name.
type SuggestCategoriesInput struct {
	Input string `query:"input" required:"true" doc:"Partial category name"`
}

// CategoryNamesOutput wraps a list of category names for Huma.
type CategoryNamesOutput struct {
	Body []string
}

// CategoryStatsOutput wraps per-category counts for Huma.
type CategoryStatsOutput struct {
	Body []store.CategoryCount
}

// StandardCategoriesOutput wraps the standard taxonomy for Huma.
type StandardCategoriesOutput struct {
	Body []category.Info
}

// === Handlers ===

func (s *Server) handleListCategories(ctx context.Context, _ *struct{}) (*CategoryNamesOutput, error) {
	names, err := s.services.Category.AllCategories(ctx)
	if err != nil {
		return nil, err
	}
	return &CategoryNamesOutput{Body: names}, nil
}

func (s *Server) handlePopularCategories(ctx context.Context, _ *struct{}) (*CategoryStatsOutput, error) {
	stats, err := s.services.Category.PopularCategories(ctx)
	if err != nil {
		return nil, err
	}
	return &CategoryStatsOutput{Body: stats}, nil
}

func (s *Server) handleCategoryStatistics(ctx context.Context, _ *struct{}) (*CategoryStatsOutput, error) {
	stats, err := s.services.Category.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	return &CategoryStatsOutput{Body: stats}, nil
}

func (s *Server) handleLibraryCategoryStatistics(ctx context.Context, input *LibraryPathInput) (*CategoryStatsOutput, error) {
	stats, err := s.services.Category.LibraryStatistics(ctx, input.LibraryID)
	if err != nil {
		return nil, err
	}
	return &CategoryStatsOutput{Body: stats}, nil
}

func (s *Server) handleSuggestCategories(_ context.Context, input *SuggestCategoriesInput) (*CategoryNamesOutput, error) {
	suggestions := s.services.Category.Suggest(input.Input)
	if suggestions == nil {
		suggestions = []string{}
	}
	return &CategoryNamesOutput{Body: suggestions}, nil
}

func (s *Server) handleStandardCategories(_ context.Context, _ *struct{}) (*StandardCategoriesOutput, error) {
	return &StandardCategoriesOutput{Body: s.services.Category.StandardCategories()}, nil
}
