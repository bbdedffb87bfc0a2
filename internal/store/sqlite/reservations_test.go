package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/listenupapp/library-server/internal/domain"
	"github.com/listenupapp/library-server/internal/store"
)

// setupFullyLoanedBook creates a one-copy book lent to "holder" plus the given waiting users.
func setupFullyLoanedBook(t *testing.T, s *Store, users ...string) {
	t.Helper()
	createTestLibrary(t, s, "lib-1")
	createTestBook(t, s, "book-1", "lib-1", 1)
	createTestUser(t, s, "holder")
	for _, u := range users {
		createTestUser(t, s, u)
	}
	if err := s.CreateLoan(context.Background(), domain.NewLoan("loan-holder", "holder", "book-1", testNow, 14)); err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
}

func reserve(t *testing.T, s *Store, id, userID string, at time.Time) *domain.Reservation {
	t.Helper()
	r := domain.NewReservation(id, userID, "book-1", at)
	if err := s.CreateReservation(context.Background(), r); err != nil {
		t.Fatalf("CreateReservation(%s): %v", id, err)
	}
	return r
}

func TestCreateReservation_RejectedWhileCopyAvailable(t *testing.T) {
	s := newTestStore(t)
	createTestLibrary(t, s, "lib-1")
	createTestBook(t, s, "book-1", "lib-1", 1)
	createTestUser(t, s, "user-1")

	r := domain.NewReservation("rsv-1", "user-1", "book-1", testNow)
	if err := s.CreateReservation(context.Background(), r); !errors.Is(err, store.ErrCopyAvailable) {
		t.Errorf("expected ErrCopyAvailable, got %v", err)
	}
}

func TestCreateReservation_OneActivePerUserAndBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	setupFullyLoanedBook(t, s, "user-1")

	reserve(t, s, "rsv-1", "user-1", testNow)

	dup := domain.NewReservation("rsv-2", "user-1", "book-1", testNow.Add(time.Minute))
	if err := s.CreateReservation(ctx, dup); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// Once the first one is closed the user can queue again.
	if _, err := s.CancelReservation(ctx, "rsv-1", "changed my mind", testNow); err != nil {
		t.Fatalf("CancelReservation: %v", err)
	}
	if err := s.CreateReservation(ctx, dup); err != nil {
		t.Errorf("CreateReservation after cancel: %v", err)
	}
}

func TestQueuePositions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	setupFullyLoanedBook(t, s, "user-a", "user-b", "user-c")

	reserve(t, s, "rsv-b", "user-b", testNow.Add(2*time.Minute))
	reserve(t, s, "rsv-a", "user-a", testNow.Add(1*time.Minute))
	reserve(t, s, "rsv-c", "user-c", testNow.Add(2*time.Minute))

	positions, err := s.QueuePositions(ctx, "book-1")
	if err != nil {
		t.Fatalf("QueuePositions: %v", err)
	}
	want := map[string]int{"rsv-a": 1, "rsv-b": 2, "rsv-c": 3}
	for id, pos := range want {
		if positions[id] != pos {
			t.Errorf("%s: got position %d, want %d", id, positions[id], pos)
		}
	}

	if _, err := s.CancelReservation(ctx, "rsv-a", "", testNow); err != nil {
		t.Fatalf("CancelReservation: %v", err)
	}
	positions, err = s.QueuePositions(ctx)
	if err != nil {
		t.Fatalf("QueuePositions: %v", err)
	}
	if _, ok := positions["rsv-a"]; ok {
		t.Error("cancelled reservation still ranked")
	}
	if positions["rsv-b"] != 1 || positions["rsv-c"] != 2 {
		t.Errorf("after cancel: got %v", positions)
	}
}

func TestPromoteNext(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	setupFullyLoanedBook(t, s, "user-a", "user-b")

	reserve(t, s, "rsv-a", "user-a", testNow.Add(time.Minute))
	reserve(t, s, "rsv-b", "user-b", testNow.Add(2*time.Minute))
	expiry := testNow.AddDate(0, 0, 3)

	// No copy on the shelf: nothing happens.
	promoted, err := s.PromoteNext(ctx, "book-1", expiry, testNow)
	if err != nil {
		t.Fatalf("PromoteNext: %v", err)
	}
	if promoted != nil {
		t.Fatalf("promoted %s with no free copy", promoted.ID)
	}

	if _, err := s.ReturnLoan(ctx, "loan-holder", testNow, testNow); err != nil {
		t.Fatalf("ReturnLoan: %v", err)
	}

	promoted, err = s.PromoteNext(ctx, "book-1", expiry, testNow)
	if err != nil {
		t.Fatalf("PromoteNext: %v", err)
	}
	if promoted == nil || promoted.ID != "rsv-a" {
		t.Fatalf("expected rsv-a promoted, got %v", promoted)
	}
	if promoted.Status != domain.ReservationReady || promoted.ExpiryDate == nil || !promoted.ExpiryDate.Equal(expiry) {
		t.Errorf("promoted: status %s expiry %v", promoted.Status, promoted.ExpiryDate)
	}

	// The only free copy is held for rsv-a.
	promoted, err = s.PromoteNext(ctx, "book-1", expiry, testNow)
	if err != nil {
		t.Fatalf("PromoteNext: %v", err)
	}
	if promoted != nil {
		t.Errorf("promoted %s while the free copy is already held", promoted.ID)
	}
}

func TestHeldCopy_OnlyHolderCanBorrow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	setupFullyLoanedBook(t, s, "user-a", "outsider")

	reserve(t, s, "rsv-a", "user-a", testNow.Add(time.Minute))
	if _, err := s.ReturnLoan(ctx, "loan-holder", testNow, testNow); err != nil {
		t.Fatalf("ReturnLoan: %v", err)
	}
	if _, err := s.PromoteNext(ctx, "book-1", testNow.AddDate(0, 0, 3), testNow); err != nil {
		t.Fatalf("PromoteNext: %v", err)
	}

	// The copy is on the shelf but held for user-a.
	err := s.CreateLoan(ctx, domain.NewLoan("loan-outsider", "outsider", "book-1", testNow, 14))
	if !errors.Is(err, store.ErrNoCopyAvailable) {
		t.Fatalf("outsider loan: expected ErrNoCopyAvailable, got %v", err)
	}
	if _, err := s.BorrowCopy(ctx, "book-1", testNow); !errors.Is(err, store.ErrNoCopyAvailable) {
		t.Fatalf("BorrowCopy: expected ErrNoCopyAvailable, got %v", err)
	}
	if got := mustGetBook(t, s, "book-1"); got.AvailableCopies != 1 {
		t.Fatalf("available changed to %d", got.AvailableCopies)
	}

	// A held copy does not count as free, so the outsider may queue.
	reserve(t, s, "rsv-outsider", "outsider", testNow.Add(2*time.Minute))

	available, err := s.SearchBooks(ctx, domain.BookFilter{Available: true})
	if err != nil {
		t.Fatalf("SearchBooks: %v", err)
	}
	if len(available) != 0 {
		t.Errorf("held book listed as available")
	}

	if err := s.CreateLoan(ctx, domain.NewLoan("loan-a", "user-a", "book-1", testNow, 14)); err != nil {
		t.Fatalf("holder loan: %v", err)
	}
	r, err := s.GetReservation(ctx, "rsv-a")
	if err != nil {
		t.Fatalf("GetReservation: %v", err)
	}
	if r.Status != domain.ReservationCompleted {
		t.Errorf("holder reservation: got %s, want COMPLETED", r.Status)
	}
}

func TestExpireReservations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	setupFullyLoanedBook(t, s, "user-a", "user-b")

	reserve(t, s, "rsv-a", "user-a", testNow.Add(time.Minute))
	reserve(t, s, "rsv-b", "user-b", testNow.Add(2*time.Minute))
	if _, err := s.ReturnLoan(ctx, "loan-holder", testNow, testNow); err != nil {
		t.Fatalf("ReturnLoan: %v", err)
	}
	if _, err := s.PromoteNext(ctx, "book-1", testNow.AddDate(0, 0, 3), testNow); err != nil {
		t.Fatalf("PromoteNext: %v", err)
	}

	// Before the hold lapses nothing expires.
	expired, err := s.ExpireReservations(ctx, testNow.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("ExpireReservations: %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("expired %d reservations early", len(expired))
	}

	expired, err = s.ExpireReservations(ctx, testNow.AddDate(0, 0, 4))
	if err != nil {
		t.Fatalf("ExpireReservations: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != "rsv-a" || expired[0].Status != domain.ReservationExpired {
		t.Fatalf("expected rsv-a expired, got %v", expired)
	}

	// The freed hold lets the next reservation through.
	promoted, err := s.PromoteNext(ctx, "book-1", testNow.AddDate(0, 0, 7), testNow.AddDate(0, 0, 4))
	if err != nil {
		t.Fatalf("PromoteNext: %v", err)
	}
	if promoted == nil || promoted.ID != "rsv-b" {
		t.Errorf("expected rsv-b promoted, got %v", promoted)
	}
}

func TestCancelReservation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	setupFullyLoanedBook(t, s, "user-a")
	reserve(t, s, "rsv-a", "user-a", testNow)

	r, err := s.CancelReservation(ctx, "rsv-a", "found another copy", testNow)
	if err != nil {
		t.Fatalf("CancelReservation: %v", err)
	}
	if r.Status != domain.ReservationCancelled || r.CancelReason != "found another copy" {
		t.Errorf("got status %s reason %q", r.Status, r.CancelReason)
	}

	if _, err := s.CancelReservation(ctx, "rsv-a", "", testNow); !errors.Is(err, store.ErrConditionFailed) {
		t.Errorf("second cancel: expected ErrConditionFailed, got %v", err)
	}
	if _, err := s.CancelReservation(ctx, "rsv-missing", "", testNow); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing: expected ErrNotFound, got %v", err)
	}
}

func TestBookQueueStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	setupFullyLoanedBook(t, s, "user-a", "user-b")

	reserve(t, s, "rsv-a", "user-a", testNow)
	reserve(t, s, "rsv-b", "user-b", testNow.Add(time.Minute))
	if _, err := s.CancelReservation(ctx, "rsv-a", "", testNow); err != nil {
		t.Fatalf("CancelReservation: %v", err)
	}

	stats, err := s.BookQueueStats(ctx, "book-1")
	if err != nil {
		t.Fatalf("BookQueueStats: %v", err)
	}
	if stats.Total != 2 || stats.Pending != 1 {
		t.Errorf("got total %d pending %d, want 2 and 1", stats.Total, stats.Pending)
	}
	if want := testNow.AddDate(0, 0, 14); stats.NextDueDate == nil || !stats.NextDueDate.Equal(want) {
		t.Errorf("NextDueDate: got %v, want %v", stats.NextDueDate, want)
	}
}
