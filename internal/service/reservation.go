package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/listenupapp/library-server/internal/domain"
	"github.com/listenupapp/library-server/internal/dto"
	domainerrors "github.com/listenupapp/library-server/internal/errors"
	"github.com/listenupapp/library-server/internal/id"
	"github.com/listenupapp/library-server/internal/sse"
	"github.com/listenupapp/library-server/internal/store"
	"github.com/listenupapp/library-server/internal/store/sqlite"
)

// ReservationService manages the per-book waiting queues.
type ReservationService struct {
	store    *sqlite.Store
	enricher *dto.Enricher
	events   store.EventEmitter
	policy   Policy
	logger   *slog.Logger
	now      Clock
}

// NewReservationService creates a new reservation service.
func NewReservationService(store *sqlite.Store, events store.EventEmitter, policy Policy, logger *slog.Logger, now Clock) *ReservationService {
	return &ReservationService{
		store:    store,
		enricher: dto.NewEnricher(store),
		events:   events,
		policy:   policy,
		logger:   logger,
		now:      clockOrNow(now),
	}
}

// CreateReservationRequest places a user in a book's queue.
type CreateReservationRequest struct {
	UserID string `json:"user_id" validate:"required"`
	BookID string `json:"book_id" validate:"required"`
}

// CancelReservationRequest carries an optional cancellation reason.
type CancelReservationRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// CreateReservation appends a PENDING reservation to the book's queue. A book
// that can be borrowed right now cannot be reserved.
func (s *ReservationService) CreateReservation(ctx context.Context, req CreateReservationRequest) (*dto.Reservation, error) {
	if _, err := s.store.GetUser(ctx, req.UserID); err != nil {
		return nil, requireRef(err, "user", req.UserID)
	}
	book, err := s.store.GetBook(ctx, req.BookID)
	if err != nil {
		return nil, requireRef(err, "book", req.BookID)
	}

	reservationID, err := id.Generate(id.PrefixReservation)
	if err != nil {
		return nil, err
	}

	now := s.now()
	r := domain.NewReservation(reservationID, req.UserID, req.BookID, now)

	err = s.store.CreateReservation(ctx, r)
	if errors.Is(err, store.ErrAlreadyExists) {
		return nil, domainerrors.InvalidState("user already has an active reservation for this book")
	}
	if err != nil {
		return nil, translate(err, "reservation", reservationID)
	}

	s.logger.Info("reservation created",
		"reservation_id", r.ID, "user_id", r.UserID, "book_id", r.BookID)
	s.events.Emit(sse.NewReservationEvent(sse.EventReservationCreated, r, book.LibraryID, now))

	return s.enricher.EnrichReservation(ctx, r, now)
}

// CancelReservation closes a PENDING or READY reservation and offers any
// copy it was holding to the next in line.
func (s *ReservationService) CancelReservation(ctx context.Context, reservationID, reason string) (*dto.Reservation, error) {
	now := s.now()

	r, err := s.store.CancelReservation(ctx, reservationID, strings.TrimSpace(reason), now)
	if errors.Is(err, store.ErrConditionFailed) {
		return nil, domainerrors.InvalidStatef("reservation %s is not active", reservationID)
	}
	if err != nil {
		return nil, translate(err, "reservation", reservationID)
	}

	s.logger.Info("reservation cancelled",
		"reservation_id", r.ID, "book_id", r.BookID, "reason", r.CancelReason)
	s.events.Emit(sse.NewReservationEvent(sse.EventReservationCancelled, r, s.libraryOf(ctx, r.BookID), now))

	if _, err := s.ProcessNextInQueue(ctx, r.BookID); err != nil {
		s.logger.Error("failed to advance queue after cancellation", "book_id", r.BookID, "error", err)
	}

	return s.enricher.EnrichReservation(ctx, r, now)
}

// ProcessNextInQueue promotes the earliest PENDING reservation to READY when
// the book has a copy on the shelf that no READY reservation holds. Returns
// the promoted reservation, or nil when nothing changed.
func (s *ReservationService) ProcessNextInQueue(ctx context.Context, bookID string) (*dto.Reservation, error) {
	now := s.now()
	expiry := now.AddDate(0, 0, s.policy.HoldDays)

	r, err := s.store.PromoteNext(ctx, bookID, expiry, now)
	if err != nil {
		return nil, translate(err, "book", bookID)
	}
	if r == nil {
		return nil, nil
	}

	s.logger.Info("reservation ready",
		"reservation_id", r.ID, "user_id", r.UserID, "book_id", r.BookID, "expires", expiry)
	s.events.Emit(sse.NewReservationEvent(sse.EventReservationReady, r, s.libraryOf(ctx, bookID), now))

	return s.enricher.EnrichReservation(ctx, r, now)
}

// ProcessQueueForBook is ProcessNextInQueue for a book addressed by path;
// an unknown book is NOT_FOUND rather than a no-op.
func (s *ReservationService) ProcessQueueForBook(ctx context.Context, bookID string) (*dto.Reservation, error) {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return nil, translate(err, "book", bookID)
	}
	return s.ProcessNextInQueue(ctx, bookID)
}

// GetBookReservationStatus summarises a book's queue and the earliest due
// date among its active loans.
func (s *ReservationService) GetBookReservationStatus(ctx context.Context, bookID string) (*domain.BookReservationStatus, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, translate(err, "book", bookID)
	}

	stats, err := s.store.BookQueueStats(ctx, bookID)
	if err != nil {
		return nil, translate(err, "book", bookID)
	}

	return &domain.BookReservationStatus{
		BookID:              book.ID,
		BookTitle:           book.Title,
		TotalReservations:   stats.Total,
		PendingReservations: stats.Pending,
		NextAvailableDate:   stats.NextDueDate,
	}, nil
}

// ProcessExpiredReservations expires every READY reservation whose hold has
// lapsed, then offers each released copy to the next in line. Returns the
// expired reservations.
func (s *ReservationService) ProcessExpiredReservations(ctx context.Context) ([]*dto.Reservation, error) {
	now := s.now()

	expired, err := s.store.ExpireReservations(ctx, now)
	if err != nil {
		return nil, translate(err, "reservations", "")
	}

	for _, r := range expired {
		s.events.Emit(sse.NewReservationEvent(sse.EventReservationExpired, r, s.libraryOf(ctx, r.BookID), now))
	}
	for _, r := range expired {
		if _, err := s.ProcessNextInQueue(ctx, r.BookID); err != nil {
			s.logger.Error("failed to advance queue after expiry", "book_id", r.BookID, "error", err)
		}
	}

	if len(expired) > 0 {
		s.logger.Info("expired reservations processed", "count", len(expired))
	}
	return s.enricher.EnrichReservations(ctx, expired, now)
}

// GetReservation returns a reservation or NOT_FOUND.
func (s *ReservationService) GetReservation(ctx context.Context, reservationID string) (*dto.Reservation, error) {
	r, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, translate(err, "reservation", reservationID)
	}
	return s.enricher.EnrichReservation(ctx, r, s.now())
}

// ListReservations returns every reservation with status counts.
func (s *ReservationService) ListReservations(ctx context.Context) (*dto.ReservationList, error) {
	return s.list(ctx, domain.ReservationFilter{})
}

// ListUserReservations returns a user's reservations with status counts.
func (s *ReservationService) ListUserReservations(ctx context.Context, userID string) (*dto.ReservationList, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, translate(err, "user", userID)
	}
	return s.list(ctx, domain.ReservationFilter{UserID: userID})
}

// ListBookReservations returns a book's reservations in queue order.
func (s *ReservationService) ListBookReservations(ctx context.Context, bookID string) (*dto.ReservationList, error) {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return nil, translate(err, "book", bookID)
	}
	return s.list(ctx, domain.ReservationFilter{BookID: bookID})
}

// SweepExpired runs ProcessExpiredReservations every interval until ctx is
// cancelled. A zero interval disables the sweep.
func (s *ReservationService) SweepExpired(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.logger.Info("reservation sweep disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("reservation sweep started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reservation sweep stopped")
			return
		case <-ticker.C:
			if _, err := s.ProcessExpiredReservations(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("reservation sweep failed", "error", err)
			}
		}
	}
}

func (s *ReservationService) list(ctx context.Context, f domain.ReservationFilter) (*dto.ReservationList, error) {
	rs, err := s.store.ListReservations(ctx, f)
	if err != nil {
		return nil, translate(err, "reservations", "")
	}
	views, err := s.enricher.EnrichReservations(ctx, rs, s.now())
	if err != nil {
		return nil, err
	}
	return dto.NewReservationList(views, rs), nil
}

// libraryOf returns the library of a book for event routing, or "" when the
// book cannot be read.
func (s *ReservationService) libraryOf(ctx context.Context, bookID string) string {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return ""
	}
	return b.LibraryID
}
