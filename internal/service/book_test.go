package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/library-server/internal/category"
	"github.com/listenupapp/library-server/internal/domain"
	domainerrors "github.com/listenupapp/library-server/internal/errors"
	"github.com/listenupapp/library-server/internal/sse"
)

// staticSearcher returns fixed ids for any query.
type staticSearcher []string

func (s staticSearcher) MatchingIDs(context.Context, string) ([]string, error) {
	return s, nil
}

func TestBookService_Create(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	lib := env.library(t, "Mapo")

	b, err := env.books.CreateBook(ctx, CreateBookRequest{
		LibraryID:   lib.ID,
		Title:       " Go in Practice ",
		Author:      "Matt Butcher",
		Category:    "  programming  ",
		TotalCopies: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Go in Practice", b.Title)
	assert.Equal(t, 3, b.AvailableCopies, "available defaults to total")
	assert.Equal(t, domain.BookStatusAvailable, b.Status)
	assert.Equal(t, "Mapo", b.LibraryName)
	assert.Equal(t, category.Canonical("programming"), b.Category)

	partial, err := env.books.CreateBook(ctx, CreateBookRequest{
		LibraryID:       lib.ID,
		Title:           "Partial",
		Author:          "A",
		TotalCopies:     2,
		AvailableCopies: ptr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, partial.AvailableCopies)
}

func TestBookService_CreateErrors(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	lib := env.library(t, "Mapo")

	_, err := env.books.CreateBook(ctx, CreateBookRequest{LibraryID: "lib-missing", Title: "T", Author: "A", TotalCopies: 1})
	assertCode(t, err, domainerrors.CodeInvalidReference)

	tests := []struct {
		name string
		req  CreateBookRequest
	}{
		{"no title", CreateBookRequest{LibraryID: lib.ID, Author: "A", TotalCopies: 1}},
		{"no author", CreateBookRequest{LibraryID: lib.ID, Title: "T", TotalCopies: 1}},
		{"zero copies", CreateBookRequest{LibraryID: lib.ID, Title: "T", Author: "A"}},
		{"available above total", CreateBookRequest{LibraryID: lib.ID, Title: "T", Author: "A", TotalCopies: 1, AvailableCopies: ptr(2)}},
		{"negative available", CreateBookRequest{LibraryID: lib.ID, Title: "T", Author: "A", TotalCopies: 1, AvailableCopies: ptr(-1)}},
		{"bad status", CreateBookRequest{LibraryID: lib.ID, Title: "T", Author: "A", TotalCopies: 1, Status: "LOST"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.books.CreateBook(ctx, tt.req)
			assertCode(t, err, domainerrors.CodeValidation)
		})
	}
}

func TestBookService_Update(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	lib := env.library(t, "Mapo")
	b := env.book(t, lib.ID, "Original", 2)

	updated, err := env.books.UpdateBook(ctx, b.ID, UpdateBookRequest{
		Title:       ptr("Renamed"),
		TotalCopies: ptr(4),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "Author of Original", updated.Author)
	assert.Equal(t, 4, updated.TotalCopies)
	assert.Equal(t, 2, updated.AvailableCopies)
	assert.Contains(t, env.events.types(), sse.EventAvailabilityChanged)

	_, err = env.books.UpdateBook(ctx, b.ID, UpdateBookRequest{AvailableCopies: ptr(5)})
	assertCode(t, err, domainerrors.CodeValidation)
	var verr *domainerrors.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{"available_copies": "must be between 0 and total_copies"}, verr.Details)

	_, err = env.books.UpdateBook(ctx, b.ID, UpdateBookRequest{TotalCopies: ptr(1)})
	assertCode(t, err, domainerrors.CodeValidation)

	_, err = env.books.UpdateBook(ctx, b.ID, UpdateBookRequest{LibraryID: ptr("lib-missing")})
	assertCode(t, err, domainerrors.CodeInvalidReference)

	_, err = env.books.UpdateBook(ctx, "book-missing", UpdateBookRequest{Title: ptr("x")})
	assertCode(t, err, domainerrors.CodeNotFound)

	stored := env.bookNow(t, b.ID)
	assert.Equal(t, 4, stored.TotalCopies)
	assert.True(t, stored.CopiesValid())
}

func TestBookService_Delete(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	lib := env.library(t, "Mapo")
	u := env.user(t, "reader")

	free := env.book(t, lib.ID, "Free", 1)
	require.NoError(t, env.books.DeleteBook(ctx, free.ID))
	_, err := env.books.GetBook(ctx, free.ID)
	assertCode(t, err, domainerrors.CodeNotFound)

	loaned := env.book(t, lib.ID, "Loaned", 1)
	_, err = env.loans.CreateLoan(ctx, CreateLoanRequest{UserID: u.ID, BookID: loaned.ID})
	require.NoError(t, err)

	err = env.books.DeleteBook(ctx, loaned.ID)
	assertCode(t, err, domainerrors.CodeInvalidState)
}

func TestBookService_Listings(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	mapo := env.library(t, "Mapo")
	jongno := env.library(t, "Jongno")

	a := env.book(t, mapo.ID, "A", 1)
	env.book(t, mapo.ID, "B", 1)
	env.book(t, jongno.ID, "C", 1)

	_, err := env.availability.BorrowBook(ctx, a.ID)
	require.NoError(t, err)

	all, err := env.books.ListBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byLib, err := env.books.ListBooksByLibrary(ctx, mapo.ID)
	require.NoError(t, err)
	assert.Len(t, byLib, 2)

	available, err := env.books.ListAvailableBooks(ctx, "")
	require.NoError(t, err)
	assert.Len(t, available, 2)

	availableMapo, err := env.books.ListAvailableBooks(ctx, mapo.ID)
	require.NoError(t, err)
	require.Len(t, availableMapo, 1)
	assert.Equal(t, "B", availableMapo[0].Title)

	_, err = env.books.ListBooksByLibrary(ctx, "lib-missing")
	assertCode(t, err, domainerrors.CodeNotFound)

	counts, err := env.books.LibraryBookCounts(ctx, mapo.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Total)
	assert.Equal(t, 1, counts.Available)
}

func TestBookService_Search(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	lib := env.library(t, "Mapo")

	create := func(title, author, cat string) *domain.Book {
		b, err := env.books.CreateBook(ctx, CreateBookRequest{
			LibraryID: lib.ID, Title: title, Author: author, Category: cat, TotalCopies: 1,
		})
		require.NoError(t, err)
		return b.Book
	}
	goBook := create("The Go Programming Language", "Donovan", category.ComputerIT)
	dbBook := create("Database Internals", "Petrov", "데이터베이스")
	create("Cosmos", "Sagan", category.Science)

	byTitle, err := env.books.SearchBooks(ctx, BookSearch{Title: "go programming"})
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, goBook.ID, byTitle[0].ID)

	exact, err := env.books.SearchBooks(ctx, BookSearch{Category: category.ComputerIT})
	require.NoError(t, err)
	assert.Len(t, exact, 1)

	withSubs, err := env.books.SearchBooks(ctx, BookSearch{Category: category.ComputerIT, IncludeSubCategories: true})
	require.NoError(t, err)
	assert.Len(t, withSubs, 2)

	_, err = env.books.SearchBooks(ctx, BookSearch{Status: "LOST"})
	assertCode(t, err, domainerrors.CodeValidation)

	_, err = env.books.SearchBooks(ctx, BookSearch{Query: "go"})
	assertCode(t, err, domainerrors.CodeValidation)

	env.books.searcher = staticSearcher{dbBook.ID, goBook.ID}
	text, err := env.books.SearchBooks(ctx, BookSearch{Query: "anything", Author: "petrov"})
	require.NoError(t, err)
	require.Len(t, text, 1, "text hits are intersected with the other filters")
	assert.Equal(t, dbBook.ID, text[0].ID)

	env.books.searcher = staticSearcher(nil)
	none, err := env.books.SearchBooks(ctx, BookSearch{Query: "nothing"})
	require.NoError(t, err)
	assert.Empty(t, none)
}
