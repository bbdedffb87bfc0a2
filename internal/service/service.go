// Package service implements the library's business operations: the library
// directory, the book catalog, availability bookkeeping, loans and the
// reservation queue.
//
// Services validate business rules, translate store errors into domain
// errors and publish circulation events. Persistence and the atomic copy
// count guards live in the store.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/listenupapp/library-server/internal/domain"
	domainerrors "github.com/listenupapp/library-server/internal/errors"
	"github.com/listenupapp/library-server/internal/store"
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// Policy holds the circulation defaults.
type Policy struct {
	LoanPeriodDays int
	ExtensionDays  int
	HoldDays       int
}

// DefaultPolicy returns the domain's standard loan, extension and hold lengths.
func DefaultPolicy() Policy {
	return Policy{
		LoanPeriodDays: domain.DefaultLoanPeriodDays,
		ExtensionDays:  domain.DefaultExtensionDays,
		HoldDays:       domain.DefaultHoldDays,
	}
}

// Messages for the availability rules, shared by every path that applies them.
const (
	msgNoCopies          = "no available copies"
	msgAllCopiesReturned = "all copies already returned"
	msgBorrowDirectly    = "book is available; borrow it directly"
)

// translate maps store errors to domain errors. kind and id name the entity
// addressed by the operation, for NOT_FOUND messages.
func translate(err error, kind, id string) error {
	if err == nil {
		return nil
	}

	var storeErr *store.Error
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFoundf("%s %s not found", kind, id)
	case errors.Is(err, store.ErrNoCopyAvailable):
		return domainerrors.InvalidState(msgNoCopies)
	case errors.Is(err, store.ErrAllCopiesReturned):
		return domainerrors.InvalidState(msgAllCopiesReturned)
	case errors.Is(err, store.ErrCopyAvailable):
		return domainerrors.InvalidState(msgBorrowDirectly)
	case errors.Is(err, store.ErrHasDependents) && errors.As(err, &storeErr):
		return domainerrors.InvalidState(storeErr.Message)
	case errors.Is(err, store.ErrInvalidInput) && errors.As(err, &storeErr):
		return domainerrors.InvalidReferencef("%s", storeErr.Message)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.AlreadyExists(kind + " already exists")
	case errors.Is(err, store.ErrConditionFailed):
		return domainerrors.Conflict(kind + " " + id + " was modified concurrently")
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return fmt.Errorf("%s %s: %w", kind, id, err)
}

// requireRef converts a missing referenced entity into INVALID_REFERENCE.
// Used where the id comes from a request body rather than the URL path.
func requireRef(err error, kind, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.InvalidReferencef("%s %s does not exist", kind, id)
	}
	return translate(err, kind, id)
}
