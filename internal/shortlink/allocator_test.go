package shortlink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/serroba/linkly/internal/shortlink"
	"github.com/serroba/linkly/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// collidingStore rejects the first n saves with ErrCodeExists and records
// every attempted code.
type collidingStore struct {
	shortlink.Repository

	remaining int
	attempted []string
	saveErr   error
}

func (s *collidingStore) Save(_ context.Context, link *shortlink.ShortLink) error {
	s.attempted = append(s.attempted, link.ShortCode)

	if s.saveErr != nil {
		return s.saveErr
	}

	if s.remaining > 0 {
		s.remaining--

		return shortlink.ErrCodeExists
	}

	return nil
}

func TestAllocator_Allocate(t *testing.T) {
	t.Run("allocates a generated code", func(t *testing.T) {
		registry := store.NewMemoryStore()
		allocator := shortlink.NewAllocator(registry, 6, zap.NewNop())

		link, err := allocator.Allocate(context.Background(), "https://example.com/path?q=1", "user-1", shortlink.CreateOptions{})

		require.NoError(t, err)
		assert.Len(t, link.ShortCode, 6)
		assert.NotEmpty(t, link.ID)
		assert.Equal(t, "user-1", link.OwnerID)
		assert.Equal(t, "example.com", link.Domain)
		assert.Empty(t, link.CustomAlias)
		assert.True(t, link.IsActive)
		assert.Zero(t, link.Clicks)
		assert.Empty(t, link.ClickHistory)
	})

	t.Run("stored URL round-trips exactly", func(t *testing.T) {
		registry := store.NewMemoryStore()
		allocator := shortlink.NewAllocator(registry, 6, zap.NewNop())

		original := "https://example.com/Search?Q=Go%20URL&lang=en#Results"

		link, err := allocator.Allocate(context.Background(), original, "user-1", shortlink.CreateOptions{})

		require.NoError(t, err)

		stored, err := registry.GetByCode(context.Background(), link.ShortCode)

		require.NoError(t, err)
		assert.Equal(t, original, stored.OriginalURL)
	})

	t.Run("rejects invalid URLs", func(t *testing.T) {
		registry := store.NewMemoryStore()
		allocator := shortlink.NewAllocator(registry, 6, zap.NewNop())

		for _, raw := range []string{"", "not-a-url", "ftp://example.com/file", "https://"} {
			_, err := allocator.Allocate(context.Background(), raw, "user-1", shortlink.CreateOptions{})

			assert.ErrorIs(t, err, shortlink.ErrInvalidURL, "url %q", raw)
		}
	})

	t.Run("carries the expiry through", func(t *testing.T) {
		registry := store.NewMemoryStore()
		allocator := shortlink.NewAllocator(registry, 6, zap.NewNop())

		expiry := time.Now().Add(24 * time.Hour)

		link, err := allocator.Allocate(context.Background(), "https://example.com", "user-1", shortlink.CreateOptions{
			ExpiresAt: &expiry,
		})

		require.NoError(t, err)
		require.NotNil(t, link.ExpiresAt)
		assert.Equal(t, expiry, *link.ExpiresAt)
	})
}

func TestAllocator_CustomAlias(t *testing.T) {
	t.Run("uses the requested alias verbatim", func(t *testing.T) {
		registry := store.NewMemoryStore()
		allocator := shortlink.NewAllocator(registry, 6, zap.NewNop())

		link, err := allocator.Allocate(context.Background(), "https://example.com", "user-1", shortlink.CreateOptions{
			CustomAlias: "my-demo-link",
		})

		require.NoError(t, err)
		assert.Equal(t, "my-demo-link", link.ShortCode)
		assert.Equal(t, "my-demo-link", link.CustomAlias)
	})

	t.Run("rejects a taken alias", func(t *testing.T) {
		registry := store.NewMemoryStore()
		allocator := shortlink.NewAllocator(registry, 6, zap.NewNop())

		_, err := allocator.Allocate(context.Background(), "https://example.com/a", "user-1", shortlink.CreateOptions{
			CustomAlias: "demo",
		})

		require.NoError(t, err)

		_, err = allocator.Allocate(context.Background(), "https://example.com/b", "user-2", shortlink.CreateOptions{
			CustomAlias: "demo",
		})

		assert.ErrorIs(t, err, shortlink.ErrAliasTaken)
	})

	t.Run("maps a save race to alias taken", func(t *testing.T) {
		// GetByCode misses but the insert still collides.
		registry := &collidingStore{
			Repository: store.NewMemoryStore(),
			remaining:  1,
		}
		allocator := shortlink.NewAllocator(registry, 6, zap.NewNop())

		_, err := allocator.Allocate(context.Background(), "https://example.com", "user-1", shortlink.CreateOptions{
			CustomAlias: "contested",
		})

		assert.ErrorIs(t, err, shortlink.ErrAliasTaken)
	})

	t.Run("rejects malformed aliases", func(t *testing.T) {
		registry := store.NewMemoryStore()
		allocator := shortlink.NewAllocator(registry, 6, zap.NewNop())

		for _, alias := range []string{"ab", "has space", "under_score", "way-too-long-alias-over-twenty", "semi;colon"} {
			_, err := allocator.Allocate(context.Background(), "https://example.com", "user-1", shortlink.CreateOptions{
				CustomAlias: alias,
			})

			assert.ErrorIs(t, err, shortlink.ErrInvalidAlias, "alias %q", alias)
		}
	})
}

func TestAllocator_CollisionRetry(t *testing.T) {
	t.Run("retries with a fresh code on collision", func(t *testing.T) {
		registry := &collidingStore{remaining: 3}
		allocator := shortlink.NewAllocator(registry, 6, zap.NewNop())

		link, err := allocator.Allocate(context.Background(), "https://example.com", "user-1", shortlink.CreateOptions{})

		require.NoError(t, err)
		assert.Len(t, registry.attempted, 4)
		assert.Equal(t, registry.attempted[3], link.ShortCode)
	})

	t.Run("escalates the length after repeated collisions", func(t *testing.T) {
		registry := &collidingStore{remaining: 10}
		allocator := shortlink.NewAllocator(registry, 6, zap.NewNop())

		link, err := allocator.Allocate(context.Background(), "https://example.com", "user-1", shortlink.CreateOptions{})

		require.NoError(t, err)
		assert.Len(t, link.ShortCode, 7)

		for _, code := range registry.attempted[:10] {
			assert.Len(t, code, 6)
		}
	})

	t.Run("gives up after the attempt ceiling", func(t *testing.T) {
		registry := &collidingStore{remaining: 1000}
		allocator := shortlink.NewAllocator(registry, 6, zap.NewNop())

		_, err := allocator.Allocate(context.Background(), "https://example.com", "user-1", shortlink.CreateOptions{})

		assert.ErrorIs(t, err, shortlink.ErrAllocationExhausted)
		assert.Len(t, registry.attempted, 50)
	})

	t.Run("propagates non-collision store errors", func(t *testing.T) {
		storeErr := errors.New("connection reset")
		registry := &collidingStore{saveErr: storeErr}
		allocator := shortlink.NewAllocator(registry, 6, zap.NewNop())

		_, err := allocator.Allocate(context.Background(), "https://example.com", "user-1", shortlink.CreateOptions{})

		assert.ErrorIs(t, err, storeErr)
		assert.Len(t, registry.attempted, 1)
	})
}
