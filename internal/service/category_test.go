package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/library-server/internal/category"
	domainerrors "github.com/listenupapp/library-server/internal/errors"
	"github.com/listenupapp/library-server/internal/store"
)

func TestCategoryService_Standard(t *testing.T) {
	env := setupTestEnv(t)

	std := env.categories.StandardCategories()
	require.Len(t, std, len(category.Standard))
	assert.Equal(t, category.ComputerIT, std[0].Name)
	assert.True(t, std[0].IsStandard)
	assert.NotEmpty(t, std[0].Description)
	assert.NotEmpty(t, std[0].SubCategories)

	assert.Equal(t, category.Names(), env.categories.StandardNames())
}

func TestCategoryService_Statistics(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	mapo := env.library(t, "Mapo")
	jongno := env.library(t, "Jongno")

	add := func(libraryID, cat string, n int) {
		for range n {
			_, err := env.books.CreateBook(ctx, CreateBookRequest{
				LibraryID: libraryID, Title: "T", Author: "A", Category: cat, TotalCopies: 1,
			})
			require.NoError(t, err)
		}
	}
	add(mapo.ID, category.Literature, 3)
	add(mapo.ID, category.Science, 2)
	add(jongno.ID, category.Science, 2)
	add(jongno.ID, "Cooking", 1)
	add(jongno.ID, category.History, 1)
	add(jongno.ID, category.Arts, 1)
	add(jongno.ID, category.Religion, 1)

	stats, err := env.categories.Statistics(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 6)
	assert.Equal(t, store.CategoryCount{Category: category.Science, Count: 4}, stats[0])
	assert.Equal(t, store.CategoryCount{Category: category.Literature, Count: 3}, stats[1])

	popular, err := env.categories.PopularCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, popular, PopularCategoryLimit)
	assert.Equal(t, stats[:PopularCategoryLimit], popular)

	perLib, err := env.categories.LibraryStatistics(ctx, mapo.ID)
	require.NoError(t, err)
	assert.Equal(t, []store.CategoryCount{
		{Category: category.Literature, Count: 3},
		{Category: category.Science, Count: 2},
	}, perLib)

	_, err = env.categories.LibraryStatistics(ctx, "lib-missing")
	assertCode(t, err, domainerrors.CodeNotFound)

	all, err := env.categories.AllCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, category.Names(), all[:len(category.Standard)])
	assert.Contains(t, all, "Cooking")
}

func TestCategoryService_EmptyStatistics(t *testing.T) {
	env := setupTestEnv(t)

	stats, err := env.categories.Statistics(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, stats)
	assert.Empty(t, stats)
}

func TestCategoryService_Suggest(t *testing.T) {
	env := setupTestEnv(t)

	assert.Contains(t, env.categories.Suggest("과학"), category.Science)
	assert.LessOrEqual(t, len(env.categories.Suggest("학")), 5)
	assert.Empty(t, env.categories.Suggest("  "))
}
