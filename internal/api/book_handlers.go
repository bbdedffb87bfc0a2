package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/library-server/internal/domain"
	"github.com/listenupapp/library-server/internal/dto"
	"github.com/listenupapp/library-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/books",
		Summary:     "List books",
		Description: "Returns the whole catalog, newest first",
		Tags:        []string{"Books"},
		Metadata:    withMessage("Books retrieved"),
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/books/search",
		Summary:     "Search books",
		Description: "Filters the catalog. All parameters are optional and combine with AND; q runs a full-text query",
		Tags:        []string{"Books"},
		Metadata:    withMessage("Books retrieved"),
	}, s.handleSearchBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "listAvailableBooks",
		Method:      http.MethodGet,
		Path:        "/api/books/available",
		Summary:     "List available books",
		Description: "Returns books that can be borrowed now",
		Tags:        []string{"Books"},
		Metadata:    withMessage("Available books retrieved"),
	}, s.handleListAvailableBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "listAvailableBooksByLibrary",
		Method:      http.MethodGet,
		Path:        "/api/books/available/library/{libraryId}",
		Summary:     "List available books in a library",
		Tags:        []string{"Books"},
		Metadata:    withMessage("Available books retrieved"),
	}, s.handleListAvailableBooksByLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBooksByLibrary",
		Method:      http.MethodGet,
		Path:        "/api/books/library/{libraryId}",
		Summary:     "List a library's books",
		Tags:        []string{"Books"},
		Metadata:    withMessage("Books retrieved"),
	}, s.handleListBooksByLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/books",
		Summary:       "Create book",
		Description:   "Adds a book to a library's catalog. available_copies defaults to total_copies",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
		Metadata:      withMessage("Book created"),
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/books/{id}",
		Summary:     "Get book",
		Tags:        []string{"Books"},
		Metadata:    withMessage("Book retrieved"),
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPut,
		Path:        "/api/books/{id}",
		Summary:     "Update book",
		Description: "Applies the given fields. Copy counts must stay within 0 <= available <= total",
		Tags:        []string{"Books"},
		Metadata:    withMessage("Book updated"),
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBook",
		Method:      http.MethodDelete,
		Path:        "/api/books/{id}",
		Summary:     "Delete book",
		Description: "Deletes a book without loan or reservation history",
		Tags:        []string{"Books"},
		Metadata:    withMessage("Book deleted"),
	}, s.handleDeleteBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "borrowBook",
		Method:      http.MethodPost,
		Path:        "/api/books/{id}/borrow",
		Summary:     "Take a copy off the shelf",
		Description: "Decrements the available copies of an AVAILABLE book without recording a loan",
		Tags:        []string{"Books"},
		Metadata:    withMessage("Book borrowed"),
	}, s.handleBorrowBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "returnBook",
		Method:      http.MethodPost,
		Path:        "/api/books/{id}/return",
		Summary:     "Put a copy back on the shelf",
		Description: "Increments the available copies and advances the reservation queue",
		Tags:        []string{"Books"},
		Metadata:    withMessage("Book returned"),
	}, s.handleReturnBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "adjustBookCopies",
		Method:      http.MethodPost,
		Path:        "/api/books/{id}/copies/adjust",
		Summary:     "Adjust available copies",
		Description: "Applies a signed delta to the available copies, bounded by 0 and total copies",
		Tags:        []string{"Books"},
		Metadata:    withMessage("Available copies adjusted"),
	}, s.handleAdjustBookCopies)

	huma.Register(s.api, huma.Operation{
		OperationID: "getLibraryTotalBooks",
		Method:      http.MethodGet,
		Path:        "/api/books/stats/library/{libraryId}/total",
		Summary:     "Count a library's books",
		Tags:        []string{"Stats"},
		Metadata:    withMessage("Total book count retrieved"),
	}, s.handleLibraryTotalBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getLibraryAvailableBooks",
		Method:      http.MethodGet,
		Path:        "/api/books/stats/library/{libraryId}/available",
		Summary:     "Count a library's available books",
		Tags:        []string{"Stats"},
		Metadata:    withMessage("Available book count retrieved"),
	}, s.handleLibraryAvailableBooks)
}

// === DTOs ===

// BookIDInput identifies a book by path.
type BookIDInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// LibraryPathInput identifies a library by path.
type LibraryPathInput struct {
	LibraryID string `path:"libraryId" doc:"Library ID"`
}

// SearchBooksInput contains catalog search parameters.
type SearchBooksInput struct {
	Query                string `query:"q" doc:"Full-text query over title, author, publisher and category"`
	Title                string `query:"title" doc:"Case-insensitive title substring"`
	Author               string `query:"author" doc:"Case-insensitive author substring"`
	Publisher            string `query:"publisher" doc:"Case-insensitive publisher substring"`
	Category             string `query:"category" doc:"Exact category"`
	IncludeSubCategories bool   `query:"include_sub_categories" doc:"Also match the category's standard sub-categories"`
	LibraryID            string `query:"library_id" doc:"Library ID"`
	ISBN                 string `query:"isbn" doc:"Exact ISBN"`
	Status               string `query:"status" enum:"AVAILABLE,UNAVAILABLE,MAINTENANCE" doc:"Book status"`
	Available            bool   `query:"available" doc:"Only books that can be borrowed now"`
}

// BookOutput wraps a book for Huma.
type BookOutput struct {
	Body *dto.Book
}

// BookRecordOutput wraps a bare book record for Huma.
type BookRecordOutput struct {
	Body *domain.Book
}

// BookListOutput wraps a list of books for Huma.
type BookListOutput struct {
	Body []*dto.Book
}

// CreateBookInput wraps the create book request for Huma.
type CreateBookInput struct {
	Body service.CreateBookRequest
}

// UpdateBookInput wraps the update book request for Huma.
type UpdateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body service.UpdateBookRequest
}

// AdjustCopiesRequest is the request body for adjusting available copies.
type AdjustCopiesRequest struct {
	Delta int `json:"delta" validate:"ne=0" doc:"Signed change to available copies"`
}

// AdjustCopiesInput wraps the adjust request for Huma.
type AdjustCopiesInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body AdjustCopiesRequest
}

// CountOutput wraps a single count for Huma.
type CountOutput struct {
	Body int
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, _ *struct{}) (*BookListOutput, error) {
	books, err := s.services.Book.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	return &BookListOutput{Body: books}, nil
}

func (s *Server) handleSearchBooks(ctx context.Context, input *SearchBooksInput) (*BookListOutput, error) {
	books, err := s.services.Book.SearchBooks(ctx, service.BookSearch{
		Query:                input.Query,
		Title:                input.Title,
		Author:               input.Author,
		Publisher:            input.Publisher,
		Category:             input.Category,
		IncludeSubCategories: input.IncludeSubCategories,
		LibraryID:            input.LibraryID,
		ISBN:                 input.ISBN,
		Status:               domain.BookStatus(input.Status),
		AvailableOnly:        input.Available,
	})
	if err != nil {
		return nil, err
	}
	return &BookListOutput{Body: books}, nil
}

func (s *Server) handleListAvailableBooks(ctx context.Context, _ *struct{}) (*BookListOutput, error) {
	books, err := s.services.Book.ListAvailableBooks(ctx, "")
	if err != nil {
		return nil, err
	}
	return &BookListOutput{Body: books}, nil
}

func (s *Server) handleListAvailableBooksByLibrary(ctx context.Context, input *LibraryPathInput) (*BookListOutput, error) {
	books, err := s.services.Book.ListAvailableBooks(ctx, input.LibraryID)
	if err != nil {
		return nil, err
	}
	return &BookListOutput{Body: books}, nil
}

func (s *Server) handleListBooksByLibrary(ctx context.Context, input *LibraryPathInput) (*BookListOutput, error) {
	books, err := s.services.Book.ListBooksByLibrary(ctx, input.LibraryID)
	if err != nil {
		return nil, err
	}
	return &BookListOutput{Body: books}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	book, err := s.services.Book.CreateBook(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.services.Book.GetBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	book, err := s.services.Book.UpdateBook(ctx, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookIDInput) (*DeletedOutput, error) {
	if err := s.services.Book.DeleteBook(ctx, input.ID); err != nil {
		return nil, err
	}
	return &DeletedOutput{Body: DeletedResponse{ID: input.ID, Deleted: true}}, nil
}

func (s *Server) handleBorrowBook(ctx context.Context, input *BookIDInput) (*BookRecordOutput, error) {
	book, err := s.services.Availability.BorrowBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookRecordOutput{Body: book}, nil
}

func (s *Server) handleReturnBook(ctx context.Context, input *BookIDInput) (*BookRecordOutput, error) {
	book, err := s.services.Availability.ReturnBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookRecordOutput{Body: book}, nil
}

func (s *Server) handleAdjustBookCopies(ctx context.Context, input *AdjustCopiesInput) (*BookRecordOutput, error) {
	book, err := s.services.Availability.AdjustAvailableCopies(ctx, input.ID, input.Body.Delta)
	if err != nil {
		return nil, err
	}
	return &BookRecordOutput{Body: book}, nil
}

func (s *Server) handleLibraryTotalBooks(ctx context.Context, input *LibraryPathInput) (*CountOutput, error) {
	counts, err := s.services.Book.LibraryBookCounts(ctx, input.LibraryID)
	if err != nil {
		return nil, err
	}
	return &CountOutput{Body: counts.Total}, nil
}

func (s *Server) handleLibraryAvailableBooks(ctx context.Context, input *LibraryPathInput) (*CountOutput, error) {
	counts, err := s.services.Book.LibraryBookCounts(ctx, input.LibraryID)
	if err != nil {
		return nil, err
	}
	return &CountOutput{Body: counts.Available}, nil
}
