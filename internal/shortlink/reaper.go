package shortlink

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reaper periodically deactivates links whose expiry has passed. It never
// deletes anything; resolution independently checks expiry live, so a missed
// sweep is corrected on the next cycle.
type Reaper struct {
	store    Repository
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewReaper creates a reaper sweeping at the given interval.
func NewReaper(store Repository, interval time.Duration, logger *zap.Logger) *Reaper {
	if interval <= 0 {
		interval = time.Hour
	}

	return &Reaper{
		store:    store,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Sweep flips is_active off for every expired active link in one bulk
// update. Errors are logged and swallowed.
func (r *Reaper) Sweep(ctx context.Context, now time.Time) {
	count, err := r.store.DeactivateExpired(ctx, now)
	if err != nil {
		r.logger.Error("expiry sweep failed", zap.Error(err))

		return
	}

	if count == 0 {
		r.logger.Debug("expiry sweep found nothing to deactivate")

		return
	}

	r.logger.Info("expiry sweep deactivated links", zap.Int64("count", count))
}

// Start runs the sweep loop in the background until Shutdown.
func (r *Reaper) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	go r.run(ctx)

	return nil
}

func (r *Reaper) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx, r.now())
		}
	}
}

// Shutdown stops the sweep loop and waits for it to exit.
func (r *Reaper) Shutdown() error {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}

	return nil
}
