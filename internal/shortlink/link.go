package shortlink

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"time"
)

var (
	// ErrNotFound is returned when a code does not map to a resolvable link.
	// Absent, deactivated, and expired links are deliberately indistinguishable.
	ErrNotFound = errors.New("link not found or expired")

	// ErrCodeExists is returned by a repository when an insert collides with
	// an existing short code.
	ErrCodeExists = errors.New("short code already exists")

	// ErrAliasTaken is returned when a user-requested alias collides with an
	// existing short code.
	ErrAliasTaken = errors.New("custom alias already exists")

	// ErrInvalidURL is returned when the original URL is not an absolute URL.
	ErrInvalidURL = errors.New("invalid url format")

	// ErrInvalidAlias is returned when a custom alias violates the allowed
	// charset or length bounds.
	ErrInvalidAlias = errors.New("invalid custom alias format")

	// ErrAllocationExhausted is returned when the attempt ceiling for
	// generating a free code is hit.
	ErrAllocationExhausted = errors.New("short code allocation exhausted")
)

// HistoryCap bounds the click history kept per link. The clicks counter is
// independent of this cap; eviction never decrements it.
const HistoryCap = 1000

// Click is a single recorded resolution of a short link.
type Click struct {
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
	Country   string    `json:"country,omitempty"`
	City      string    `json:"city,omitempty"`
}

// ShortLink is the registry entry mapping a short code to its target.
type ShortLink struct {
	ID           string
	ShortCode    string
	OriginalURL  string
	CustomAlias  string // equals ShortCode when user-chosen, empty otherwise
	Title        string
	Description  string
	Keywords     []string
	PreviewImage string
	Domain       string
	OwnerID      string
	IsActive     bool
	ExpiresAt    *time.Time
	Clicks       int64
	LastClicked  *time.Time
	ClickHistory []Click
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Resolvable reports whether the link may be resolved at the given instant.
func (l *ShortLink) Resolvable(now time.Time) bool {
	if !l.IsActive {
		return false
	}

	return l.ExpiresAt == nil || l.ExpiresAt.After(now)
}

// Resolution is the outcome of a successful resolve-and-record operation.
type Resolution struct {
	LinkID      string
	OwnerID     string
	ShortCode   string
	OriginalURL string
	Clicks      int64 // post-increment value
}

// Dashboard aggregation windows.
const (
	// RecentWindow bounds the "recently created" count.
	RecentWindow = 7 * 24 * time.Hour

	// ActivityWindow bounds the per-day click series.
	ActivityWindow = 30 * 24 * time.Hour
)

// OwnerStats aggregates dashboard figures across all of an owner's links.
// Clicks come from the counters, so they are unaffected by history eviction;
// the per-day series derives from retained history within ActivityWindow.
type OwnerStats struct {
	TotalLinks  int64
	ActiveLinks int64
	TotalClicks int64
	RecentLinks int64            // created within RecentWindow
	ClicksByDay map[string]int64 // UTC day -> clicks, within ActivityWindow
}

// Page describes pagination, ordering, and filtering for owner listings.
type Page struct {
	Page      int
	Limit     int
	SortBy    string // createdAt, updatedAt, clicks, lastClicked, title
	SortOrder string // asc or desc
	Filter    string // case-insensitive substring over URL, title, description, code
}

// Pagination describes the window a listing covers.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// UpdateFields carries the owner-editable fields. Nil pointers leave the
// corresponding field untouched.
type UpdateFields struct {
	Title        *string
	Description  *string
	Keywords     *[]string
	PreviewImage *string
	CustomAlias  *string
	ExpiresAt    *time.Time
	ClearExpiry  bool
	IsActive     *bool
}

// Repository is the persisted alias registry. Uniqueness of ShortCode is
// enforced by the storage layer, not by callers.
type Repository interface {
	// Save inserts a new link. A short code collision yields ErrCodeExists.
	Save(ctx context.Context, link *ShortLink) error

	// GetByCode returns the link for a code regardless of lifecycle state.
	GetByCode(ctx context.Context, code string) (*ShortLink, error)

	// GetOwned returns the link with the given id scoped to its owner.
	GetOwned(ctx context.Context, id, ownerID string) (*ShortLink, error)

	// ResolveAndRecord atomically resolves a currently-resolvable code,
	// increments the click counter, and appends the click to the bounded
	// history. Absent, inactive, and expired codes all yield ErrNotFound.
	ResolveAndRecord(ctx context.Context, code string, click Click, now time.Time) (*Resolution, error)

	// ListByOwner returns a page of the owner's links.
	ListByOwner(ctx context.Context, ownerID string, page Page) ([]*ShortLink, *Pagination, error)

	// Update applies the allowed fields to an owned link. An alias change
	// that collides yields ErrAliasTaken.
	Update(ctx context.Context, id, ownerID string, fields UpdateFields, now time.Time) (*ShortLink, error)

	// Delete hard-deletes an owned link.
	Delete(ctx context.Context, id, ownerID string) error

	// DeactivateExpired flips is_active off for every active link whose
	// expiry has passed, in one bulk update. Returns the affected count.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)

	// TopLinks returns the most-clicked active links.
	TopLinks(ctx context.Context, limit int) ([]*ShortLink, error)

	// OwnerStats aggregates dashboard figures over all the owner's links.
	OwnerStats(ctx context.Context, ownerID string, now time.Time) (*OwnerStats, error)
}

var aliasPattern = regexp.MustCompile(`^[a-zA-Z0-9-]{3,20}$`)

// ValidateURL checks that raw is a well-formed absolute http(s) URL.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}

	return nil
}

// ValidateAlias checks the custom alias charset (letters, digits, hyphen)
// and length bounds (3-20).
func ValidateAlias(alias string) error {
	if !aliasPattern.MatchString(alias) {
		return ErrInvalidAlias
	}

	return nil
}

// DomainOf extracts the host of an absolute URL, or "" if it cannot be parsed.
func DomainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	return u.Hostname()
}
