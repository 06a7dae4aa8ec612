package events

import (
	"context"

	"github.com/serroba/linkly/internal/messaging"
	"go.uber.org/zap"
)

// Notifier forwards link activity to the real-time push transport, keyed by
// owner id. Delivery is not guaranteed.
type Notifier interface {
	NotifyLinkCreated(ctx context.Context, event *LinkCreatedEvent) error
	NotifyLinkResolved(ctx context.Context, event *LinkResolvedEvent) error
}

// CreatedHandler adapts a Notifier into a consumer handler for the
// link.created topic.
func CreatedHandler(n Notifier) messaging.Handler[LinkCreatedEvent] {
	return n.NotifyLinkCreated
}

// ResolvedHandler adapts a Notifier into a consumer handler for the
// link.resolved topic.
func ResolvedHandler(n Notifier) messaging.Handler[LinkResolvedEvent] {
	return n.NotifyLinkResolved
}

// LogNotifier logs events instead of pushing them. It stands in for the
// external dashboard transport in development and in the consumer binary's
// default configuration.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a logging notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyLinkCreated(_ context.Context, event *LinkCreatedEvent) error {
	n.logger.Info("link created",
		zap.String("ownerId", event.OwnerID),
		zap.String("code", event.ShortCode),
		zap.String("originalUrl", event.OriginalURL),
		zap.Time("createdAt", event.CreatedAt),
	)

	return nil
}

func (n *LogNotifier) NotifyLinkResolved(_ context.Context, event *LinkResolvedEvent) error {
	n.logger.Info("link resolved",
		zap.String("ownerId", event.OwnerID),
		zap.String("code", event.ShortCode),
		zap.Int64("clicks", event.Clicks),
		zap.String("referrer", event.Referrer),
	)

	return nil
}
