package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBooks_CreateAndGet(t *testing.T) {
	ts := setupTestServer(t, Options{})
	libID := ts.createLibrary(t, "Central", 37.5665, 126.9780)

	resp := ts.api.Post("/api/books", map[string]any{
		"library_id":       libID,
		"title":            "The Selfish Gene",
		"author":           "Richard Dawkins",
		"isbn":             "9780198788607",
		"publication_year": 1976,
		"category":         "생물학",
		"total_copies":     3,
	})
	env := decode[map[string]any](t, resp, http.StatusCreated)
	assert.Equal(t, "Book created", env.Message)
	assert.Equal(t, "AVAILABLE", env.Data["status"])
	assert.EqualValues(t, 3, env.Data["available_copies"], "available defaults to total")

	id := env.Data["id"].(string)
	env = decode[map[string]any](t, ts.api.Get("/api/books/"+id), http.StatusOK)
	assert.Equal(t, "Central", env.Data["library_name"])
}

func TestBooks_CreateValidation(t *testing.T) {
	ts := setupTestServer(t, Options{})
	libID := ts.createLibrary(t, "Central", 37.5665, 126.9780)

	t.Run("field rules", func(t *testing.T) {
		resp := ts.api.Post("/api/books", map[string]any{
			"library_id":   libID,
			"title":        "Bad ISBN",
			"author":       "Someone",
			"isbn":         "12345",
			"total_copies": 1,
		})
		env := decode[any](t, resp, http.StatusBadRequest)
		assert.False(t, env.Success)
		assert.Equal(t, "VALIDATION", env.Code)
		assert.Contains(t, env.Details, "isbn")
	})

	t.Run("available exceeds total", func(t *testing.T) {
		resp := ts.api.Post("/api/books", map[string]any{
			"library_id":       libID,
			"title":            "Too many",
			"author":           "Someone",
			"total_copies":     1,
			"available_copies": 2,
		})
		env := decode[any](t, resp, http.StatusBadRequest)
		assert.Equal(t, "VALIDATION", env.Code)
	})

	t.Run("schema rejects wrong type", func(t *testing.T) {
		resp := ts.api.Post("/api/books", map[string]any{
			"library_id":   libID,
			"title":        "Typed",
			"author":       "Someone",
			"total_copies": "three",
		})
		env := decode[any](t, resp, http.StatusBadRequest)
		assert.Equal(t, "VALIDATION", env.Code)
		assert.NotEmpty(t, env.Details)
	})

	t.Run("unknown library", func(t *testing.T) {
		resp := ts.api.Post("/api/books", map[string]any{
			"library_id":   "lib-missing",
			"title":        "Orphan",
			"author":       "Someone",
			"total_copies": 1,
		})
		env := decode[any](t, resp, http.StatusBadRequest)
		assert.Equal(t, "INVALID_REFERENCE", env.Code)
	})
}

func TestBooks_Update(t *testing.T) {
	ts := setupTestServer(t, Options{})
	libID := ts.createLibrary(t, "Central", 37.5665, 126.9780)
	id := ts.createBook(t, libID, "Cosmos", 2)

	env := decode[map[string]any](t, ts.api.Put("/api/books/"+id, map[string]any{
		"status": "MAINTENANCE",
	}), http.StatusOK)
	assert.Equal(t, "MAINTENANCE", env.Data["status"])
	assert.Equal(t, "Cosmos", env.Data["title"])

	// A book under maintenance cannot be borrowed.
	bad := decode[any](t, ts.api.Post("/api/books/"+id+"/borrow", nil), http.StatusBadRequest)
	assert.Equal(t, "INVALID_STATE", bad.Code)
}

func TestBooks_BorrowAndReturn(t *testing.T) {
	ts := setupTestServer(t, Options{})
	libID := ts.createLibrary(t, "Central", 37.5665, 126.9780)
	id := ts.createBook(t, libID, "Cosmos", 1)

	env := decode[map[string]any](t, ts.api.Post("/api/books/"+id+"/borrow", nil), http.StatusOK)
	assert.EqualValues(t, 0, env.Data["available_copies"])

	bad := decode[any](t, ts.api.Post("/api/books/"+id+"/borrow", nil), http.StatusBadRequest)
	assert.Equal(t, "INVALID_STATE", bad.Code)

	env = decode[map[string]any](t, ts.api.Post("/api/books/"+id+"/return", nil), http.StatusOK)
	assert.EqualValues(t, 1, env.Data["available_copies"])

	bad = decode[any](t, ts.api.Post("/api/books/"+id+"/return", nil), http.StatusBadRequest)
	assert.Equal(t, "INVALID_STATE", bad.Code)
}

func TestBooks_AdjustCopies(t *testing.T) {
	ts := setupTestServer(t, Options{})
	libID := ts.createLibrary(t, "Central", 37.5665, 126.9780)
	id := ts.createBook(t, libID, "Cosmos", 3)

	env := decode[map[string]any](t, ts.api.Post("/api/books/"+id+"/copies/adjust", map[string]any{"delta": -2}), http.StatusOK)
	assert.EqualValues(t, 1, env.Data["available_copies"])

	bad := decode[any](t, ts.api.Post("/api/books/"+id+"/copies/adjust", map[string]any{"delta": 5}), http.StatusBadRequest)
	assert.Equal(t, "INVALID_STATE", bad.Code)
}

func TestBooks_Search(t *testing.T) {
	ts := setupTestServer(t, Options{})
	central := ts.createLibrary(t, "Central", 37.5665, 126.9780)
	branch := ts.createLibrary(t, "Branch", 37.4979, 127.0276)

	cosmos := ts.createBook(t, central, "Cosmos", 1)
	ts.createBook(t, central, "Brief History of Time", 2)
	ts.createBook(t, branch, "Cosmos Revisited", 1)

	t.Run("title substring", func(t *testing.T) {
		env := decode[[]map[string]any](t, ts.api.Get("/api/books/search?title=cosmos"), http.StatusOK)
		assert.Len(t, env.Data, 2)
	})

	t.Run("scoped to library", func(t *testing.T) {
		env := decode[[]map[string]any](t, ts.api.Get("/api/books/search?title=cosmos&library_id="+central), http.StatusOK)
		require.Len(t, env.Data, 1)
		assert.Equal(t, cosmos, env.Data[0]["id"])
	})

	t.Run("full text", func(t *testing.T) {
		env := decode[[]map[string]any](t, ts.api.Get("/api/books/search?q=history"), http.StatusOK)
		require.Len(t, env.Data, 1)
		assert.Equal(t, "Brief History of Time", env.Data[0]["title"])
	})

	t.Run("full text without match", func(t *testing.T) {
		env := decode[[]map[string]any](t, ts.api.Get("/api/books/search?q=zoology"), http.StatusOK)
		assert.Empty(t, env.Data)
	})

	t.Run("unknown status", func(t *testing.T) {
		env := decode[any](t, ts.api.Get("/api/books/search?status=LOST"), http.StatusBadRequest)
		assert.Equal(t, "VALIDATION", env.Code)
	})

	t.Run("available only", func(t *testing.T) {
		decode[map[string]any](t, ts.api.Post("/api/books/"+cosmos+"/borrow", nil), http.StatusOK)

		env := decode[[]map[string]any](t, ts.api.Get("/api/books/available"), http.StatusOK)
		assert.Len(t, env.Data, 2)

		env = decode[[]map[string]any](t, ts.api.Get("/api/books/available/library/"+central), http.StatusOK)
		assert.Len(t, env.Data, 1)
	})

	t.Run("by library", func(t *testing.T) {
		env := decode[[]map[string]any](t, ts.api.Get("/api/books/library/"+branch), http.StatusOK)
		assert.Len(t, env.Data, 1)
	})
}

func TestBooks_LibraryStats(t *testing.T) {
	ts := setupTestServer(t, Options{})
	libID := ts.createLibrary(t, "Central", 37.5665, 126.9780)
	first := ts.createBook(t, libID, "Cosmos", 1)
	ts.createBook(t, libID, "Pale Blue Dot", 1)

	decode[map[string]any](t, ts.api.Post("/api/books/"+first+"/borrow", nil), http.StatusOK)

	total := decode[int](t, ts.api.Get("/api/books/stats/library/"+libID+"/total"), http.StatusOK)
	assert.Equal(t, 2, total.Data)

	available := decode[int](t, ts.api.Get("/api/books/stats/library/"+libID+"/available"), http.StatusOK)
	assert.Equal(t, 1, available.Data)

	missing := decode[any](t, ts.api.Get("/api/books/stats/library/lib-missing/total"), http.StatusNotFound)
	assert.Equal(t, "NOT_FOUND", missing.Code)
}

func TestBooks_DeleteWithActiveLoanFails(t *testing.T) {
	ts := setupTestServer(t, Options{})
	libID := ts.createLibrary(t, "Central", 37.5665, 126.9780)
	bookID := ts.createBook(t, libID, "Cosmos", 1)
	userID := ts.createUser(t, "reader")

	decode[map[string]any](t, ts.api.Post("/api/loans", map[string]any{
		"user_id": userID,
		"book_id": bookID,
	}), http.StatusCreated)

	env := decode[any](t, ts.api.Delete("/api/books/"+bookID), http.StatusBadRequest)
	assert.Equal(t, "INVALID_STATE", env.Code)
}
