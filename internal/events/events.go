package events

import "time"

const (
	// TopicLinkCreated carries events emitted when a short link is allocated.
	TopicLinkCreated = "link.created"

	// TopicLinkResolved carries events emitted on every successful redirect.
	TopicLinkResolved = "link.resolved"
)

// LinkCreatedEvent is emitted after a link is persisted. Delivery is
// best-effort; consumers key notifications by OwnerID.
type LinkCreatedEvent struct {
	LinkID      string    `json:"linkId"`
	OwnerID     string    `json:"ownerId"`
	ShortCode   string    `json:"shortCode"`
	OriginalURL string    `json:"originalUrl"`
	Title       string    `json:"title,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ClientIP    string    `json:"clientIp,omitempty"`
	UserAgent   string    `json:"userAgent,omitempty"`
}

// LinkResolvedEvent is emitted on every successful resolution. Clicks is the
// post-increment counter value.
type LinkResolvedEvent struct {
	LinkID     string    `json:"linkId"`
	OwnerID    string    `json:"ownerId"`
	ShortCode  string    `json:"shortCode"`
	Clicks     int64     `json:"clicks"`
	ResolvedAt time.Time `json:"resolvedAt"`
	ClientIP   string    `json:"clientIp,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	Referrer   string    `json:"referrer,omitempty"`
}
