package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/library-server/internal/domain"
	domainerrors "github.com/listenupapp/library-server/internal/errors"
	"github.com/listenupapp/library-server/internal/sse"
)

func TestAvailabilityService_Adjust(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	lib := env.library(t, "Mapo")
	b := env.book(t, lib.ID, "Counted", 3)

	got, err := env.availability.AdjustAvailableCopies(ctx, b.ID, -2)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableCopies)

	_, err = env.availability.AdjustAvailableCopies(ctx, b.ID, -2)
	assertCode(t, err, domainerrors.CodeInvalidState)

	_, err = env.availability.AdjustAvailableCopies(ctx, b.ID, 3)
	assertCode(t, err, domainerrors.CodeInvalidState)

	got, err = env.availability.AdjustAvailableCopies(ctx, b.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AvailableCopies)

	_, err = env.availability.AdjustAvailableCopies(ctx, b.ID, 0)
	assertCode(t, err, domainerrors.CodeValidation)

	_, err = env.availability.AdjustAvailableCopies(ctx, "book-missing", 1)
	assertCode(t, err, domainerrors.CodeNotFound)

	assert.True(t, env.bookNow(t, b.ID).CopiesValid())
}

func TestAvailabilityService_BorrowReturn(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	lib := env.library(t, "Mapo")
	b := env.book(t, lib.ID, "Direct", 1)

	_, err := env.availability.ReturnBook(ctx, b.ID)
	assertCode(t, err, domainerrors.CodeInvalidState)
	assert.Contains(t, err.Error(), "all copies already returned")

	got, err := env.availability.BorrowBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableCopies)

	_, err = env.availability.BorrowBook(ctx, b.ID)
	assertCode(t, err, domainerrors.CodeInvalidState)
	assert.Contains(t, err.Error(), "no available copies")

	got, err = env.availability.ReturnBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableCopies)

	_, err = env.availability.BorrowBook(ctx, "book-missing")
	assertCode(t, err, domainerrors.CodeNotFound)

	assert.Contains(t, env.events.types(), sse.EventAvailabilityChanged)
}

func TestAvailabilityService_BorrowRequiresAvailableStatus(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	lib := env.library(t, "Mapo")
	b := env.book(t, lib.ID, "Shelved", 2)

	_, err := env.books.UpdateBook(ctx, b.ID, UpdateBookRequest{Status: ptr(domain.BookStatusMaintenance)})
	require.NoError(t, err)

	_, err = env.availability.BorrowBook(ctx, b.ID)
	assertCode(t, err, domainerrors.CodeInvalidState)
}

func TestAvailabilityService_ReturnAdvancesQueue(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	f := setupQueue(t, env)

	_, err := env.availability.ReturnBook(ctx, f.book.ID)
	require.NoError(t, err)

	r, err := env.reservations.GetReservation(ctx, f.first)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationReady, r.Status)
}
