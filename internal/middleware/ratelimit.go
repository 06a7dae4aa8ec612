package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/linkly/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimiter returns a Huma middleware enforcing per-endpoint limits from
// operation metadata, falling back to defaultLimits for endpoints that
// declare none. Keys combine the client fingerprint, the route template, and
// the window, so each endpoint and window is tracked independently.
func RateLimiter(
	api huma.API,
	store ratelimit.Store,
	defaultLimits []ratelimit.LimitConfig,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		limits := defaultLimits

		if cfg := ratelimit.GetEndpointConfig(ctx); cfg != nil {
			if cfg.Disabled {
				next(ctx)

				return
			}

			if len(cfg.Limits) > 0 {
				limits = cfg.Limits
			}
		}

		path := operationPath(ctx)
		client := clientKey(ctx)

		for _, limit := range limits {
			key := fmt.Sprintf("%s:%s:%d", client, path, limit.Window.Milliseconds())
			limiter := ratelimit.NewSlidingWindowLimiter(store, limit.Max, limit.Window)

			allowed, err := limiter.Allow(ctx.Context(), key)
			if err != nil {
				logger.Error("rate limit check failed",
					zap.String("path", path),
					zap.Error(err),
				)
				_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

				return
			}

			if !allowed {
				logger.Warn("rate limit exceeded",
					zap.String("path", path),
					zap.String("method", ctx.Method()),
					zap.Int64("max", limit.Max),
					zap.Duration("window", limit.Window),
					zap.String("client_ip", extractClientIP(ctx)),
				)

				msg := fmt.Sprintf("rate limit exceeded: more than %d requests in %s",
					limit.Max, limit.Window)
				_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, msg)

				return
			}
		}

		next(ctx)
	}
}

// operationPath returns the route template, so all requests matching the
// same pattern share counters per client.
func operationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ""
}

// clientKey fingerprints a client by IP and User-Agent.
func clientKey(ctx huma.Context) string {
	ip := clientIPForKey(ctx)
	ua := ctx.Header("User-Agent")

	hash := sha256.Sum256([]byte(ip + "|" + ua))

	return hex.EncodeToString(hash[:])
}

func clientIPForKey(ctx huma.Context) string {
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}

		return strings.TrimSpace(xff)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return xri
	}

	host := ctx.Host()

	ip, _, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}

	return ip
}
