package shortlink

import (
	"context"
	"time"

	"github.com/serroba/linkly/internal/events"
	"github.com/serroba/linkly/internal/messaging"
	"go.uber.org/zap"
)

// Resolver looks up live links on the redirect path and records clicks.
type Resolver struct {
	store           Repository
	publishResolved messaging.Publish[events.LinkResolvedEvent]
	logger          *zap.Logger
	now             func() time.Time
}

// NewResolver creates a resolver. publishResolved is fire-and-forget; its
// failures never reach the redirect response.
func NewResolver(
	store Repository,
	publishResolved messaging.Publish[events.LinkResolvedEvent],
	logger *zap.Logger,
) *Resolver {
	return &Resolver{
		store:           store,
		publishResolved: publishResolved,
		logger:          logger,
		now:             time.Now,
	}
}

// Resolve resolves a short code, records the click atomically in the
// registry, and emits a link.resolved event. Absent, deactivated, and
// expired codes are all reported as ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, code string, click Click) (*Resolution, error) {
	now := r.now()
	if click.Timestamp.IsZero() {
		click.Timestamp = now
	}

	res, err := r.store.ResolveAndRecord(ctx, code, click, now)
	if err != nil {
		return nil, err
	}

	event := &events.LinkResolvedEvent{
		LinkID:     res.LinkID,
		OwnerID:    res.OwnerID,
		ShortCode:  res.ShortCode,
		Clicks:     res.Clicks,
		ResolvedAt: click.Timestamp,
		ClientIP:   click.IP,
		UserAgent:  click.UserAgent,
		Referrer:   click.Referrer,
	}

	if err := r.publishResolved(event); err != nil {
		r.logger.Error("failed to publish link resolved event",
			zap.String("code", res.ShortCode),
			zap.Error(err),
		)
	}

	return res, nil
}
