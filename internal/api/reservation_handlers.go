package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/library-server/internal/domain"
	"github.com/listenupapp/library-server/internal/dto"
	"github.com/listenupapp/library-server/internal/service"
)

func (s *Server) registerReservationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listReservations",
		Method:      http.MethodGet,
		Path:        "/api/reservations",
		Summary:     "List reservations",
		Description: "Returns every reservation with counts by status",
		Tags:        []string{"Reservations"},
		Metadata:    withMessage("Reservations retrieved"),
	}, s.handleListReservations)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createReservation",
		Method:        http.MethodPost,
		Path:          "/api/reservations",
		Summary:       "Create reservation",
		Description:   "Queues a user for a book that has no copy free",
		Tags:          []string{"Reservations"},
		DefaultStatus: http.StatusCreated,
		Metadata:      withMessage("Reservation created"),
	}, s.handleCreateReservation)

	huma.Register(s.api, huma.Operation{
		OperationID: "processExpiredReservations",
		Method:      http.MethodPut,
		Path:        "/api/reservations/expired/process",
		Summary:     "Expire lapsed holds",
		Description: "Expires READY reservations past their expiry date and advances the affected queues",
		Tags:        []string{"Reservations"},
		Metadata:    withMessage("Expired reservations processed"),
	}, s.handleProcessExpiredReservations)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUserReservations",
		Method:      http.MethodGet,
		Path:        "/api/reservations/user/{userId}",
		Summary:     "List a user's reservations",
		Tags:        []string{"Reservations"},
		Metadata:    withMessage("Reservations retrieved"),
	}, s.handleListUserReservations)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookReservationStatus",
		Method:      http.MethodGet,
		Path:        "/api/reservations/book/{bookId}",
		Summary:     "Book reservation status",
		Description: "Summarises a book's queue and the earliest due date among its active loans",
		Tags:        []string{"Reservations"},
		Metadata:    withMessage("Reservation status retrieved"),
	}, s.handleBookReservationStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBookReservations",
		Method:      http.MethodGet,
		Path:        "/api/reservations/book/{bookId}/queue",
		Summary:     "List a book's reservations",
		Description: "Returns the book's reservations in queue order",
		Tags:        []string{"Reservations"},
		Metadata:    withMessage("Reservations retrieved"),
	}, s.handleListBookReservations)

	huma.Register(s.api, huma.Operation{
		OperationID: "processBookQueue",
		Method:      http.MethodPost,
		Path:        "/api/reservations/book/{bookId}/process-queue",
		Summary:     "Advance a book's queue",
		Description: "Promotes the earliest PENDING reservation when a copy is free",
		Tags:        []string{"Reservations"},
		Metadata:    withMessage("Queue processed"),
	}, s.handleProcessBookQueue)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReservation",
		Method:      http.MethodGet,
		Path:        "/api/reservations/{id}",
		Summary:     "Get reservation",
		Tags:        []string{"Reservations"},
		Metadata:    withMessage("Reservation retrieved"),
	}, s.handleGetReservation)

	huma.Register(s.api, huma.Operation{
		OperationID: "cancelReservation",
		Method:      http.MethodPut,
		Path:        "/api/reservations/{id}/cancel",
		Summary:     "Cancel reservation",
		Description: "Cancels a PENDING or READY reservation and advances the queue",
		Tags:        []string{"Reservations"},
		Metadata:    withMessage("Reservation cancelled"),
	}, s.handleCancelReservation)
}

// === DTOs ===

// ReservationIDInput identifies a reservation by path.
type ReservationIDInput struct {
	ID string `path:"id" doc:"Reservation ID"`
}

// BookPathInput identifies a book by path.
type BookPathInput struct {
	BookID string `path:"bookId" doc:"Book ID"`
}

// CreateReservationInput wraps the create reservation request for Huma.
type CreateReservationInput struct {
	Body service.CreateReservationRequest
}

// CancelReservationInput wraps the optional cancellation body for Huma.
type CancelReservationInput struct {
	ID   string `path:"id" doc:"Reservation ID"`
	Body *service.CancelReservationRequest
}

// ReservationOutput wraps a reservation for Huma.
type ReservationOutput struct {
	Body *dto.Reservation
}

// ReservationListOutput wraps a list of reservations with counts for Huma.
type ReservationListOutput struct {
	Body *dto.ReservationList
}

// ExpiredReservationsOutput wraps the reservations a sweep expired.
type ExpiredReservationsOutput struct {
	Body []*dto.Reservation
}

// BookReservationStatusOutput wraps a book's queue summary for Huma.
type BookReservationStatusOutput struct {
	Body *domain.BookReservationStatus
}

// ProcessQueueResponse reports whether a reservation was promoted.
type ProcessQueueResponse struct {
	Promoted    bool             `json:"promoted"`
	Reservation *dto.Reservation `json:"reservation,omitempty" doc:"The reservation now READY"`
}

// ProcessQueueOutput wraps the queue result for Huma.
type ProcessQueueOutput struct {
	Body ProcessQueueResponse
}

// === Handlers ===

func (s *Server) handleListReservations(ctx context.Context, _ *struct{}) (*ReservationListOutput, error) {
	list, err := s.services.Reservation.ListReservations(ctx)
	if err != nil {
		return nil, err
	}
	return &ReservationListOutput{Body: list}, nil
}

func (s *Server) handleCreateReservation(ctx context.Context, input *CreateReservationInput) (*ReservationOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	r, err := s.services.Reservation.CreateReservation(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &ReservationOutput{Body: r}, nil
}

func (s *Server) handleProcessExpiredReservations(ctx context.Context, _ *struct{}) (*ExpiredReservationsOutput, error) {
	expired, err := s.services.Reservation.ProcessExpiredReservations(ctx)
	if err != nil {
		return nil, err
	}
	return &ExpiredReservationsOutput{Body: expired}, nil
}

func (s *Server) handleListUserReservations(ctx context.Context, input *UserPathInput) (*ReservationListOutput, error) {
	list, err := s.services.Reservation.ListUserReservations(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	return &ReservationListOutput{Body: list}, nil
}

func (s *Server) handleBookReservationStatus(ctx context.Context, input *BookPathInput) (*BookReservationStatusOutput, error) {
	status, err := s.services.Reservation.GetBookReservationStatus(ctx, input.BookID)
	if err != nil {
		return nil, err
	}
	return &BookReservationStatusOutput{Body: status}, nil
}

func (s *Server) handleListBookReservations(ctx context.Context, input *BookPathInput) (*ReservationListOutput, error) {
	list, err := s.services.Reservation.ListBookReservations(ctx, input.BookID)
	if err != nil {
		return nil, err
	}
	return &ReservationListOutput{Body: list}, nil
}

func (s *Server) handleProcessBookQueue(ctx context.Context, input *BookPathInput) (*ProcessQueueOutput, error) {
	promoted, err := s.services.Reservation.ProcessQueueForBook(ctx, input.BookID)
	if err != nil {
		return nil, err
	}
	return &ProcessQueueOutput{Body: ProcessQueueResponse{
		Promoted:    promoted != nil,
		Reservation: promoted,
	}}, nil
}

func (s *Server) handleGetReservation(ctx context.Context, input *ReservationIDInput) (*ReservationOutput, error) {
	r, err := s.services.Reservation.GetReservation(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ReservationOutput{Body: r}, nil
}

func (s *Server) handleCancelReservation(ctx context.Context, input *CancelReservationInput) (*ReservationOutput, error) {
	var reason string
	if input.Body != nil {
		if err := s.validator.Validate(input.Body); err != nil {
			return nil, err
		}
		reason = input.Body.Reason
	}

	r, err := s.services.Reservation.CancelReservation(ctx, input.ID, reason)
	if err != nil {
		return nil, err
	}
	return &ReservationOutput{Body: r}, nil
}
