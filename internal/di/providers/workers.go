package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/library-server/internal/config"
	"github.com/listenupapp/library-server/internal/logger"
	"github.com/listenupapp/library-server/internal/service"
)

// ReservationSweep runs the periodic expiry of lapsed READY reservations.
type ReservationSweep struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (j *ReservationSweep) Shutdown() error {
	j.cancel()
	<-j.done
	return nil
}

// ProvideReservationSweep starts the expired-reservation sweep.
func ProvideReservationSweep(i do.Injector) (*ReservationSweep, error) {
	cfg := do.MustInvoke[*config.Config](i)
	reservations := do.MustInvoke[*service.ReservationService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		// Holds that lapsed while the server was down are expired right away.
		if expired, err := reservations.ProcessExpiredReservations(ctx); err != nil {
			log.Warn("Initial reservation sweep failed", "error", err)
		} else if len(expired) > 0 {
			log.Info("Initial reservation sweep completed", "expired", len(expired))
		}

		reservations.SweepExpired(ctx, cfg.Circulation.SweepInterval)
	}()

	return &ReservationSweep{cancel: cancel, done: done}, nil
}
