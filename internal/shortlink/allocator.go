package shortlink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultCodeLength is the starting length for generated codes.
	DefaultCodeLength = 6

	// attemptsPerLength is how many candidates are tried before the code
	// length is escalated by one.
	attemptsPerLength = 10

	// maxTotalAttempts is the overall ceiling across all lengths. Hitting it
	// means the code space is saturated far beyond anything expected in
	// practice and surfaces as ErrAllocationExhausted.
	maxTotalAttempts = 50
)

// CreateOptions carries the optional fields of an allocation request.
type CreateOptions struct {
	CustomAlias  string
	Title        string
	Description  string
	Keywords     []string
	PreviewImage string
	ExpiresAt    *time.Time
}

// Allocator turns creation requests into persisted, uniquely-coded links.
// Uniqueness is guaranteed by the repository's storage-level constraint; the
// allocator only retries around it.
type Allocator struct {
	store        Repository
	newGenerator func(int) (Generator, error)
	baseLength   int
	logger       *zap.Logger
	now          func() time.Time
}

// NewAllocator creates an allocator generating codes starting at baseLength.
func NewAllocator(store Repository, baseLength int, logger *zap.Logger) *Allocator {
	if baseLength <= 0 {
		baseLength = DefaultCodeLength
	}

	return &Allocator{
		store:        store,
		newGenerator: NewGenerator,
		baseLength:   baseLength,
		logger:       logger,
		now:          time.Now,
	}
}

// Allocate validates the request, reserves a unique short code, and persists
// the link. A user-supplied alias is used verbatim; otherwise codes are
// generated and retried on collision with bounded length escalation.
func (a *Allocator) Allocate(ctx context.Context, originalURL, ownerID string, opts CreateOptions) (*ShortLink, error) {
	if err := ValidateURL(originalURL); err != nil {
		return nil, err
	}

	now := a.now()
	link := &ShortLink{
		ID:           uuid.NewString(),
		OriginalURL:  originalURL,
		Title:        opts.Title,
		Description:  opts.Description,
		Keywords:     opts.Keywords,
		PreviewImage: opts.PreviewImage,
		Domain:       DomainOf(originalURL),
		OwnerID:      ownerID,
		IsActive:     true,
		ExpiresAt:    opts.ExpiresAt,
		ClickHistory: []Click{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if opts.CustomAlias != "" {
		return a.allocateAlias(ctx, link, opts.CustomAlias)
	}

	return a.allocateGenerated(ctx, link)
}

// allocateAlias reserves the exact code the user asked for. The insert's
// unique constraint is the authority; the pre-check only gives the common
// case a cheaper failure.
func (a *Allocator) allocateAlias(ctx context.Context, link *ShortLink, alias string) (*ShortLink, error) {
	if err := ValidateAlias(alias); err != nil {
		return nil, err
	}

	if _, err := a.store.GetByCode(ctx, alias); err == nil {
		return nil, ErrAliasTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	link.ShortCode = alias
	link.CustomAlias = alias

	if err := a.store.Save(ctx, link); err != nil {
		if errors.Is(err, ErrCodeExists) {
			// Lost a race for the exact code the user requested.
			return nil, ErrAliasTaken
		}

		return nil, err
	}

	return link, nil
}

// allocateGenerated retries random candidates, escalating the code length
// after attemptsPerLength collisions at the same length. A duplicate-key
// rejection from the store is an ordinary collision here, not a fault.
func (a *Allocator) allocateGenerated(ctx context.Context, link *ShortLink) (*ShortLink, error) {
	length := a.baseLength

	generate, err := a.newGenerator(length)
	if err != nil {
		return nil, fmt.Errorf("create code generator: %w", err)
	}

	attemptsAtLength := 0

	for total := 0; total < maxTotalAttempts; total++ {
		link.ShortCode = generate()

		err := a.store.Save(ctx, link)
		if err == nil {
			return link, nil
		}

		if !errors.Is(err, ErrCodeExists) {
			return nil, err
		}

		attemptsAtLength++
		if attemptsAtLength >= attemptsPerLength {
			length++
			attemptsAtLength = 0

			generate, err = a.newGenerator(length)
			if err != nil {
				return nil, fmt.Errorf("create code generator: %w", err)
			}

			a.logger.Warn("short code space congested, escalating length",
				zap.Int("length", length),
			)
		}
	}

	a.logger.Error("short code allocation exhausted",
		zap.Int("attempts", maxTotalAttempts),
		zap.Int("finalLength", length),
	)

	return nil, ErrAllocationExhausted
}
