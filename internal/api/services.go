package api

import (
	"github.com/listenupapp/library-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Library      *service.LibraryService
	Book         *service.BookService
	Category     *service.CategoryService
	Availability *service.AvailabilityService
	Loan         *service.LoanService
	Reservation  *service.ReservationService
	User         *service.UserService
	Search       *service.SearchService // nil when full-text search is disabled
}
