package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/library-server/internal/api"
	"github.com/listenupapp/library-server/internal/config"
	"github.com/listenupapp/library-server/internal/logger"
	"github.com/listenupapp/library-server/internal/service"
)

// ProvidePolicy builds the circulation policy from configuration.
func ProvidePolicy(i do.Injector) (service.Policy, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return service.Policy{
		LoanPeriodDays: cfg.Circulation.LoanPeriodDays,
		ExtensionDays:  cfg.Circulation.ExtensionDays,
		HoldDays:       cfg.Circulation.HoldDays,
	}, nil
}

// ProvideLibraryService provides the library directory service.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewLibraryService(storeHandle.Store, log.Logger, nil), nil
}

// ProvideBookService provides the catalog service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchServiceHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	// A nil *SearchService must not reach the interface as a typed nil.
	var searcher service.BookSearcher
	if searchHandle.SearchService != nil {
		searcher = searchHandle.SearchService
	}

	return service.NewBookService(storeHandle.Store, searcher, sseHandle.Manager, log.Logger, nil), nil
}

// ProvideCategoryService provides the category service.
func ProvideCategoryService(i do.Injector) (*service.CategoryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewCategoryService(storeHandle.Store, log.Logger), nil
}

// ProvideReservationService provides the reservation queue service.
func ProvideReservationService(i do.Injector) (*service.ReservationService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	policy := do.MustInvoke[service.Policy](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewReservationService(storeHandle.Store, sseHandle.Manager, policy, log.Logger, nil), nil
}

// ProvideAvailabilityService provides the copy bookkeeping service.
func ProvideAvailabilityService(i do.Injector) (*service.AvailabilityService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	reservations := do.MustInvoke[*service.ReservationService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewAvailabilityService(storeHandle.Store, reservations, sseHandle.Manager, log.Logger, nil), nil
}

// ProvideLoanService provides the loan lifecycle service.
func ProvideLoanService(i do.Injector) (*service.LoanService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	reservations := do.MustInvoke[*service.ReservationService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	policy := do.MustInvoke[service.Policy](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewLoanService(storeHandle.Store, reservations, sseHandle.Manager, policy, log.Logger, nil), nil
}

// ProvideUserService provides the patron service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewUserService(storeHandle.Store, log.Logger, nil), nil
}

// ProvideServices collects the services the HTTP layer needs.
func ProvideServices(i do.Injector) (*api.Services, error) {
	return &api.Services{
		Library:      do.MustInvoke[*service.LibraryService](i),
		Book:         do.MustInvoke[*service.BookService](i),
		Category:     do.MustInvoke[*service.CategoryService](i),
		Availability: do.MustInvoke[*service.AvailabilityService](i),
		Loan:         do.MustInvoke[*service.LoanService](i),
		Reservation:  do.MustInvoke[*service.ReservationService](i),
		User:         do.MustInvoke[*service.UserService](i),
		Search:       do.MustInvoke[*SearchServiceHandle](i).SearchService,
	}, nil
}
