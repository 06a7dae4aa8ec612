package ratelimit

import (
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// MetadataKey is the key used to store rate limit config in operation metadata.
const MetadataKey = "rateLimit"

// LimitConfig is a single window/ceiling pair.
type LimitConfig struct {
	Window time.Duration
	Max    int64
}

// EndpointConfig defines per-endpoint rate limit configuration, attached to
// Huma operations via the Metadata field.
type EndpointConfig struct {
	// Limits defines the rate limits for this endpoint. When empty, the
	// middleware applies its default limits.
	Limits []LimitConfig

	// Disabled skips rate limiting entirely for this endpoint.
	Disabled bool
}

// GetEndpointConfig extracts the EndpointConfig from operation metadata, if present.
func GetEndpointConfig(ctx huma.Context) *EndpointConfig {
	op := ctx.Operation()
	if op == nil || op.Metadata == nil {
		return nil
	}

	cfg, ok := op.Metadata[MetadataKey].(EndpointConfig)
	if !ok {
		return nil
	}

	return &cfg
}
