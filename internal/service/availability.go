package service

import (
	"context"
	"log/slog"

	"github.com/listenupapp/library-server/internal/domain"
	domainerrors "github.com/listenupapp/library-server/internal/errors"
	"github.com/listenupapp/library-server/internal/sse"
	"github.com/listenupapp/library-server/internal/store"
	"github.com/listenupapp/library-server/internal/store/sqlite"
)

// AvailabilityService owns the book copy counters. Every change goes through
// a single conditional update in the store: the borrow rule for decrements,
// the release rule for increments and a bounds check for arbitrary deltas.
type AvailabilityService struct {
	store  *sqlite.Store
	queue  *ReservationService
	events store.EventEmitter
	logger *slog.Logger
	now    Clock
}

// NewAvailabilityService creates a new availability service. queue is
// advanced after every copy returned to the shelf.
func NewAvailabilityService(store *sqlite.Store, queue *ReservationService, events store.EventEmitter, logger *slog.Logger, now Clock) *AvailabilityService {
	return &AvailabilityService{
		store:  store,
		queue:  queue,
		events: events,
		logger: logger,
		now:    clockOrNow(now),
	}
}

// AdjustAvailableCopies applies delta to a book's available copies. The
// result must stay within [0, total copies].
func (s *AvailabilityService) AdjustAvailableCopies(ctx context.Context, bookID string, delta int) (*domain.Book, error) {
	if delta == 0 {
		return nil, domainerrors.Validation("delta must not be zero")
	}

	now := s.now()
	b, err := s.store.AdjustAvailableCopies(ctx, bookID, delta, now)
	if err != nil {
		return nil, translate(err, "book", bookID)
	}

	s.logger.Info("available copies adjusted",
		"book_id", bookID, "delta", delta, "available", b.AvailableCopies, "total", b.TotalCopies)
	s.changed(ctx, b, delta > 0)
	return b, nil
}

// BorrowBook takes one copy off the shelf without recording a loan.
func (s *AvailabilityService) BorrowBook(ctx context.Context, bookID string) (*domain.Book, error) {
	b, err := s.store.BorrowCopy(ctx, bookID, s.now())
	if err != nil {
		return nil, translate(err, "book", bookID)
	}

	s.logger.Info("copy borrowed", "book_id", bookID, "available", b.AvailableCopies)
	s.changed(ctx, b, false)
	return b, nil
}

// ReturnBook puts one copy back on the shelf and advances the reservation queue.
func (s *AvailabilityService) ReturnBook(ctx context.Context, bookID string) (*domain.Book, error) {
	b, err := s.store.ReturnCopy(ctx, bookID, s.now())
	if err != nil {
		return nil, translate(err, "book", bookID)
	}

	s.logger.Info("copy returned", "book_id", bookID, "available", b.AvailableCopies)
	s.changed(ctx, b, true)
	return b, nil
}

// changed publishes the new counters and, when a copy came back, offers it
// to the reservation queue.
func (s *AvailabilityService) changed(ctx context.Context, b *domain.Book, released bool) {
	s.events.Emit(sse.NewAvailabilityEvent(b, s.now()))
	if !released || s.queue == nil {
		return
	}
	if _, err := s.queue.ProcessNextInQueue(ctx, b.ID); err != nil {
		s.logger.Error("failed to advance queue", "book_id", b.ID, "error", err)
	}
}
