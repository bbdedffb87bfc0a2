package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/listenupapp/library-server/internal/domain"
	"github.com/listenupapp/library-server/internal/store"
)

func TestCreateAndGetBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestLibrary(t, s, "lib-1")

	b := &domain.Book{
		ID:              "book-1",
		LibraryID:       "lib-1",
		Title:           "The Pragmatic Programmer",
		Author:          "Hunt & Thomas",
		ISBN:            "9780135957059",
		PublicationYear: ptr(2019),
		Category:        "컴퓨터/IT",
		TotalCopies:     3,
		AvailableCopies: 2,
		Status:          domain.BookStatusAvailable,
	}
	b.InitTimestamps(testNow)
	if err := s.CreateBook(ctx, b); err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	got := mustGetBook(t, s, "book-1")
	if got.Title != b.Title || got.Author != b.Author {
		t.Errorf("got %q by %q", got.Title, got.Author)
	}
	if got.PublicationYear == nil || *got.PublicationYear != 2019 {
		t.Errorf("PublicationYear: got %v", got.PublicationYear)
	}
	if got.Publisher != "" {
		t.Errorf("Publisher: got %q, want empty", got.Publisher)
	}
	if got.TotalCopies != 3 || got.AvailableCopies != 2 {
		t.Errorf("copies: got %d/%d, want 2/3", got.AvailableCopies, got.TotalCopies)
	}
	if got.Category != "컴퓨터/IT" {
		t.Errorf("Category: got %q", got.Category)
	}
}

func TestCreateBook_UnknownLibrary(t *testing.T) {
	s := newTestStore(t)

	b := &domain.Book{ID: "book-x", LibraryID: "lib-none", Title: "t", Author: "a", TotalCopies: 1, AvailableCopies: 1, Status: domain.BookStatusAvailable}
	b.InitTimestamps(testNow)
	if err := s.CreateBook(context.Background(), b); !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateBook_CopyInvariantEnforced(t *testing.T) {
	s := newTestStore(t)
	createTestLibrary(t, s, "lib-1")

	b := &domain.Book{ID: "book-bad", LibraryID: "lib-1", Title: "t", Author: "a", TotalCopies: 1, AvailableCopies: 2, Status: domain.BookStatusAvailable}
	b.InitTimestamps(testNow)
	if err := s.CreateBook(context.Background(), b); err == nil {
		t.Error("expected CHECK constraint failure for available > total")
	}
}

func TestSearchBooks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestLibrary(t, s, "lib-1")
	createTestLibrary(t, s, "lib-2")

	books := []*domain.Book{
		{ID: "book-go", LibraryID: "lib-1", Title: "Learning Go", Author: "Jon Bodner", Publisher: "O'Reilly", Category: "컴퓨터/IT", TotalCopies: 2, AvailableCopies: 2, Status: domain.BookStatusAvailable},
		{ID: "book-sql", LibraryID: "lib-1", Title: "SQL Antipatterns", Author: "Bill Karwin", Publisher: "Pragmatic", Category: "컴퓨터/IT", TotalCopies: 1, AvailableCopies: 0, Status: domain.BookStatusAvailable},
		{ID: "book-poem", LibraryID: "lib-2", Title: "Poems", Author: "Kim Sowol", Category: "문학", TotalCopies: 1, AvailableCopies: 1, Status: domain.BookStatusMaintenance},
	}
	for i, b := range books {
		b.InitTimestamps(testNow.Add(time.Duration(i) * time.Minute))
		if err := s.CreateBook(ctx, b); err != nil {
			t.Fatalf("CreateBook(%s): %v", b.ID, err)
		}
	}

	tests := []struct {
		name   string
		filter domain.BookFilter
		want   []string
	}{
		{"all newest first", domain.BookFilter{}, []string{"book-poem", "book-sql", "book-go"}},
		{"title substring", domain.BookFilter{Title: "go"}, []string{"book-go"}},
		{"author ignores case", domain.BookFilter{Author: "KARWIN"}, []string{"book-sql"}},
		{"publisher", domain.BookFilter{Publisher: "reilly"}, []string{"book-go"}},
		{"category", domain.BookFilter{Categories: []string{"컴퓨터/IT"}}, []string{"book-sql", "book-go"}},
		{"library", domain.BookFilter{LibraryID: "lib-2"}, []string{"book-poem"}},
		{"status", domain.BookFilter{Status: domain.BookStatusMaintenance}, []string{"book-poem"}},
		{"available", domain.BookFilter{Available: true}, []string{"book-go"}},
		{"ids", domain.BookFilter{IDs: []string{"book-go", "book-poem"}}, []string{"book-poem", "book-go"}},
		{"empty ids", domain.BookFilter{IDs: []string{}}, nil},
		{"combined", domain.BookFilter{LibraryID: "lib-1", Author: "jon"}, []string{"book-go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.SearchBooks(ctx, tt.filter)
			if err != nil {
				t.Fatalf("SearchBooks: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d books, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("result[%d]: got %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestUpdateBook_StaleCountersRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestLibrary(t, s, "lib-1")
	createTestBook(t, s, "book-1", "lib-1", 2)

	read := mustGetBook(t, s, "book-1")

	// A borrow lands between the read and the write.
	if _, err := s.BorrowCopy(ctx, "book-1", testNow); err != nil {
		t.Fatalf("BorrowCopy: %v", err)
	}

	edited := *read
	edited.Title = "New Title"
	if err := s.UpdateBook(ctx, &edited, read); !errors.Is(err, store.ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}

	fresh := mustGetBook(t, s, "book-1")
	edited = *fresh
	edited.Title = "New Title"
	if err := s.UpdateBook(ctx, &edited, fresh); err != nil {
		t.Fatalf("UpdateBook: %v", err)
	}
	if got := mustGetBook(t, s, "book-1"); got.Title != "New Title" || got.AvailableCopies != 1 {
		t.Errorf("got %q with %d available", got.Title, got.AvailableCopies)
	}
}

func TestUpdateBook_NotFound(t *testing.T) {
	s := newTestStore(t)

	b := &domain.Book{ID: "book-missing", LibraryID: "lib", Title: "t", Author: "a", TotalCopies: 1, Status: domain.BookStatusAvailable}
	if err := s.UpdateBook(context.Background(), b, b); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestLibrary(t, s, "lib-1")
	createTestUser(t, s, "user-1")
	createTestBook(t, s, "book-free", "lib-1", 1)
	createTestBook(t, s, "book-lent", "lib-1", 1)

	loan := domain.NewLoan("loan-1", "user-1", "book-lent", testNow, 14)
	if err := s.CreateLoan(ctx, loan); err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}

	if err := s.DeleteBook(ctx, "book-lent"); !errors.Is(err, store.ErrHasDependents) {
		t.Errorf("expected ErrHasDependents, got %v", err)
	}

	if err := s.DeleteBook(ctx, "book-free"); err != nil {
		t.Fatalf("DeleteBook: %v", err)
	}
	exists, err := s.BookExists(ctx, "book-free")
	if err != nil {
		t.Fatalf("BookExists: %v", err)
	}
	if exists {
		t.Error("book still exists after delete")
	}

	if err := s.DeleteBook(ctx, "book-free"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

type recordingIndexer struct {
	indexed []string
	deleted []string
}

func (r *recordingIndexer) IndexBook(_ context.Context, b *domain.Book) error {
	r.indexed = append(r.indexed, b.ID)
	return nil
}

func (r *recordingIndexer) DeleteBook(_ context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	return nil
}

func TestBookWritesUpdateSearchIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	idx := &recordingIndexer{}
	s.SetSearchIndexer(idx)

	createTestLibrary(t, s, "lib-1")
	b := createTestBook(t, s, "book-1", "lib-1", 1)

	edited := *b
	edited.Title = "Changed"
	if err := s.UpdateBook(ctx, &edited, b); err != nil {
		t.Fatalf("UpdateBook: %v", err)
	}
	if err := s.DeleteBook(ctx, "book-1"); err != nil {
		t.Fatalf("DeleteBook: %v", err)
	}

	if len(idx.indexed) != 2 {
		t.Errorf("indexed %d times, want 2", len(idx.indexed))
	}
	if len(idx.deleted) != 1 || idx.deleted[0] != "book-1" {
		t.Errorf("deleted: got %v", idx.deleted)
	}
}
