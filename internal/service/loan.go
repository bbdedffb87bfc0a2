package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/listenupapp/library-server/internal/domain"
	"github.com/listenupapp/library-server/internal/dto"
	domainerrors "github.com/listenupapp/library-server/internal/errors"
	"github.com/listenupapp/library-server/internal/id"
	"github.com/listenupapp/library-server/internal/sse"
	"github.com/listenupapp/library-server/internal/store"
	"github.com/listenupapp/library-server/internal/store/sqlite"
)

// Accepted ranges for caller-supplied periods.
const (
	MaxLoanPeriodDays = 365
	MaxExtensionDays  = 90
)

// LoanService manages the loan lifecycle.
type LoanService struct {
	store    *sqlite.Store
	queue    *ReservationService
	enricher *dto.Enricher
	events   store.EventEmitter
	policy   Policy
	logger   *slog.Logger
	now      Clock
}

// NewLoanService creates a new loan service. queue is advanced after every
// return.
func NewLoanService(store *sqlite.Store, queue *ReservationService, events store.EventEmitter, policy Policy, logger *slog.Logger, now Clock) *LoanService {
	return &LoanService{
		store:    store,
		queue:    queue,
		enricher: dto.NewEnricher(store),
		events:   events,
		policy:   policy,
		logger:   logger,
		now:      clockOrNow(now),
	}
}

// CreateLoanRequest checks a copy out to a user. LoanPeriodDays defaults to
// the configured loan period.
type CreateLoanRequest struct {
	UserID         string `json:"user_id" validate:"required"`
	BookID         string `json:"book_id" validate:"required"`
	LoanPeriodDays *int   `json:"loan_period_days,omitempty" validate:"omitempty,gte=1,lte=365"`
}

// ExtendLoanRequest pushes the due date out. ExtensionDays defaults to the
// configured extension.
type ExtendLoanRequest struct {
	ExtensionDays *int `json:"extension_days,omitempty" validate:"omitempty,gte=1,lte=90"`
}

// CreateLoan checks out one copy of a book. The copy decrement and the loan
// insert commit together; if the borrower held a READY reservation for the
// book it is completed in the same transaction.
func (s *LoanService) CreateLoan(ctx context.Context, req CreateLoanRequest) (*dto.Loan, error) {
	period := s.policy.LoanPeriodDays
	if req.LoanPeriodDays != nil {
		period = *req.LoanPeriodDays
	}
	if period < 1 || period > MaxLoanPeriodDays {
		return nil, domainerrors.Validationf("loan period must be between 1 and %d days", MaxLoanPeriodDays)
	}

	if _, err := s.store.GetUser(ctx, req.UserID); err != nil {
		return nil, requireRef(err, "user", req.UserID)
	}
	book, err := s.store.GetBook(ctx, req.BookID)
	if err != nil {
		return nil, requireRef(err, "book", req.BookID)
	}

	loanID, err := id.Generate(id.PrefixLoan)
	if err != nil {
		return nil, err
	}

	now := s.now()
	l := domain.NewLoan(loanID, req.UserID, req.BookID, now, period)

	if err := s.store.CreateLoan(ctx, l); err != nil {
		return nil, requireRef(err, "book", req.BookID)
	}

	s.logger.Info("loan created",
		"loan_id", l.ID, "user_id", l.UserID, "book_id", l.BookID, "due", l.DueDate)
	s.events.Emit(sse.NewLoanEvent(sse.EventLoanCreated, l, book.LibraryID, now))
	s.emitAvailability(ctx, l.BookID)

	return s.enricher.EnrichLoan(ctx, l, now)
}

// ReturnLoan closes an ACTIVE loan, puts its copy back on the shelf and
// offers the copy to the reservation queue. returnDate defaults to now.
func (s *LoanService) ReturnLoan(ctx context.Context, loanID string, returnDate *time.Time) (*dto.Loan, error) {
	now := s.now()
	returned := now
	if returnDate != nil {
		returned = *returnDate
	}

	l, err := s.store.ReturnLoan(ctx, loanID, returned, now)
	if errors.Is(err, store.ErrConditionFailed) {
		return nil, domainerrors.InvalidStatef("loan %s is not active", loanID)
	}
	if err != nil {
		return nil, translate(err, "loan", loanID)
	}

	s.logger.Info("loan returned", "loan_id", l.ID, "book_id", l.BookID, "user_id", l.UserID)
	s.events.Emit(sse.NewLoanEvent(sse.EventLoanReturned, l, s.libraryOf(ctx, l.BookID), now))
	s.emitAvailability(ctx, l.BookID)

	if s.queue != nil {
		if _, err := s.queue.ProcessNextInQueue(ctx, l.BookID); err != nil {
			s.logger.Error("failed to advance queue after return", "book_id", l.BookID, "error", err)
		}
	}

	return s.enricher.EnrichLoan(ctx, l, now)
}

// ExtendLoan adds days to the due date of an ACTIVE loan. The write is a
// compare-and-swap on the due date read here, so concurrent extensions
// cannot both apply.
func (s *LoanService) ExtendLoan(ctx context.Context, loanID string, days *int) (*dto.Loan, error) {
	extension := s.policy.ExtensionDays
	if days != nil {
		extension = *days
	}
	if extension < 1 || extension > MaxExtensionDays {
		return nil, domainerrors.Validationf("extension must be between 1 and %d days", MaxExtensionDays)
	}

	l, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, translate(err, "loan", loanID)
	}
	if !l.IsActive() {
		return nil, domainerrors.InvalidStatef("loan %s is not active", loanID)
	}

	now := s.now()
	oldDue := l.DueDate
	newDue := oldDue.AddDate(0, 0, extension)

	if err := s.store.ExtendLoan(ctx, loanID, oldDue, newDue, now); err != nil {
		return nil, translate(err, "loan", loanID)
	}
	l.DueDate = newDue
	l.Touch(now)

	s.logger.Info("loan extended", "loan_id", l.ID, "days", extension, "due", newDue)
	s.events.Emit(sse.NewLoanEvent(sse.EventLoanExtended, l, s.libraryOf(ctx, l.BookID), now))

	return s.enricher.EnrichLoan(ctx, l, now)
}

// GetLoan returns a loan or NOT_FOUND.
func (s *LoanService) GetLoan(ctx context.Context, loanID string) (*dto.Loan, error) {
	l, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, translate(err, "loan", loanID)
	}
	return s.enricher.EnrichLoan(ctx, l, s.now())
}

// ListLoans returns every loan with counts.
func (s *LoanService) ListLoans(ctx context.Context) (*dto.LoanList, error) {
	return s.list(ctx, domain.LoanFilter{})
}

// ListUserLoans returns a user's loans with counts.
func (s *LoanService) ListUserLoans(ctx context.Context, userID string) (*dto.LoanList, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, translate(err, "user", userID)
	}
	return s.list(ctx, domain.LoanFilter{UserID: userID})
}

// ListOverdueLoans returns ACTIVE loans past their due date.
func (s *LoanService) ListOverdueLoans(ctx context.Context) (*dto.LoanList, error) {
	now := s.now()
	return s.list(ctx, domain.LoanFilter{Status: domain.LoanStatusActive, DueBefore: &now})
}

func (s *LoanService) list(ctx context.Context, f domain.LoanFilter) (*dto.LoanList, error) {
	now := s.now()
	loans, err := s.store.ListLoans(ctx, f)
	if err != nil {
		return nil, translate(err, "loans", "")
	}
	views, err := s.enricher.EnrichLoans(ctx, loans, now)
	if err != nil {
		return nil, err
	}
	return dto.NewLoanList(views, loans, now), nil
}

func (s *LoanService) emitAvailability(ctx context.Context, bookID string) {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		s.logger.Warn("failed to read book for availability event", "book_id", bookID, "error", err)
		return
	}
	s.events.Emit(sse.NewAvailabilityEvent(b, s.now()))
}

func (s *LoanService) libraryOf(ctx context.Context, bookID string) string {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return ""
	}
	return b.LibraryID
}
