package service

import (
	"context"
	"log/slog"

	"github.com/listenupapp/library-server/internal/category"
	"github.com/listenupapp/library-server/internal/store"
	"github.com/listenupapp/library-server/internal/store/sqlite"
)

// PopularCategoryLimit is the number of categories returned as popular.
const PopularCategoryLimit = 5

// CategoryService answers taxonomy and per-category statistics queries.
type CategoryService struct {
	store  *sqlite.Store
	logger *slog.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(store *sqlite.Store, logger *slog.Logger) *CategoryService {
	return &CategoryService{store: store, logger: logger}
}

// StandardCategories returns the built-in taxonomy with descriptions and
// sub-categories.
func (s *CategoryService) StandardCategories() []category.Info {
	out := make([]category.Info, len(category.Standard))
	for i, seed := range category.Standard {
		out[i] = category.InfoFor(seed.Name)
	}
	return out
}

// StandardNames returns the standard category names in display order.
func (s *CategoryService) StandardNames() []string {
	return category.Names()
}

// AllCategories returns the standard names followed by any other category
// used in the catalog.
func (s *CategoryService) AllCategories(ctx context.Context) ([]string, error) {
	used, err := s.store.DistinctCategories(ctx)
	if err != nil {
		return nil, translate(err, "categories", "")
	}
	return category.Merge(used), nil
}

// PopularCategories returns the categories with the most books.
func (s *CategoryService) PopularCategories(ctx context.Context) ([]store.CategoryCount, error) {
	counts, err := s.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	if len(counts) > PopularCategoryLimit {
		counts = counts[:PopularCategoryLimit]
	}
	return counts, nil
}

// Statistics returns the number of books per category across all libraries,
// largest first.
func (s *CategoryService) Statistics(ctx context.Context) ([]store.CategoryCount, error) {
	counts, err := s.store.CategoryCounts(ctx, "")
	if err != nil {
		return nil, translate(err, "categories", "")
	}
	if counts == nil {
		counts = []store.CategoryCount{}
	}
	return counts, nil
}

// LibraryStatistics returns the number of books per category in one library.
func (s *CategoryService) LibraryStatistics(ctx context.Context, libraryID string) ([]store.CategoryCount, error) {
	if _, err := s.store.GetLibrary(ctx, libraryID); err != nil {
		return nil, translate(err, "library", libraryID)
	}
	counts, err := s.store.CategoryCounts(ctx, libraryID)
	if err != nil {
		return nil, translate(err, "categories", "")
	}
	if counts == nil {
		counts = []store.CategoryCount{}
	}
	return counts, nil
}

// Suggest returns up to five standard categories matching input.
func (s *CategoryService) Suggest(input string) []string {
	return category.Suggest(input)
}
