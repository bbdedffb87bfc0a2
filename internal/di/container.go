// Package di wires the library server's components with samber/do.
package di

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/library-server/internal/api"
	"github.com/listenupapp/library-server/internal/config"
	"github.com/listenupapp/library-server/internal/di/providers"
	"github.com/listenupapp/library-server/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()
	Register(injector)
	return injector
}

// Register adds every provider to injector. Tests and the CLI register into
// their own scopes and override the config with do.OverrideValue.
func Register(injector do.Injector) {
	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage and events
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Business services
	do.Provide(injector, providers.ProvidePolicy)
	do.Provide(injector, providers.ProvideLibraryService)
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideCategoryService)
	do.Provide(injector, providers.ProvideReservationService)
	do.Provide(injector, providers.ProvideAvailabilityService)
	do.Provide(injector, providers.ProvideLoanService)
	do.Provide(injector, providers.ProvideUserService)
	do.Provide(injector, providers.ProvideServices)

	// Workers
	do.Provide(injector, providers.ProvideReservationSweep)

	// Server
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideHTTPServer)
}

// Bootstrap initializes all services and starts the HTTP server and the
// background workers.
func Bootstrap(injector do.Injector) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	log := do.MustInvoke[*logger.Logger](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*api.Services](injector); err != nil {
		return err
	}

	searchHandle, err := do.Invoke[*providers.SearchServiceHandle](injector)
	if err != nil {
		return err
	}
	if searchHandle.SearchService != nil {
		go func() {
			if err := searchHandle.EnsurePopulated(context.Background()); err != nil {
				log.Error("Initial search reindex failed", "error", err)
			}
		}()
	}

	if _, err := do.Invoke[*providers.ReservationSweep](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	return nil
}
