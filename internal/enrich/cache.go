package enrich

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedAnalyzer wraps an Analyzer with a Redis TTL cache keyed by the
// normalized URL hash, so repeated shortenings of the same target skip the
// fetch. Cache failures fall through to the inner analyzer silently.
type CachedAnalyzer struct {
	inner  Analyzer
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCachedAnalyzer creates a caching analyzer decorator.
func NewCachedAnalyzer(inner Analyzer, client *redis.Client, ttl time.Duration) *CachedAnalyzer {
	return &CachedAnalyzer{
		inner:  inner,
		client: client,
		prefix: "enrich:",
		ttl:    ttl,
	}
}

// Compile-time check.
var _ Analyzer = (*CachedAnalyzer)(nil)

func (c *CachedAnalyzer) Analyze(ctx context.Context, rawURL string) (*Metadata, error) {
	key := c.prefix + CacheKey(rawURL)

	if payload, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var meta Metadata
		if err := json.Unmarshal(payload, &meta); err == nil {
			return &meta, nil
		}
	}

	meta, err := c.inner.Analyze(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(meta); err == nil {
		// Write-through; failure only costs a refetch next time.
		_ = c.client.Set(ctx, key, payload, c.ttl).Err()
	}

	return meta, nil
}
