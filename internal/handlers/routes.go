package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/linkly/internal/ratelimit"
)

// RegisterRoutes registers the management plane and the redirect hot path,
// with per-endpoint rate limit configuration.
func RegisterRoutes(api huma.API, h *LinkHandler) {
	// Write operations get strict limits.
	huma.Register(api, huma.Operation{
		Method:        http.MethodPost,
		Path:          "/api/urls/create",
		Summary:       "Create short link",
		Description:   "Creates a short link, optionally with a custom alias and expiry.",
		Tags:          []string{"URLs"},
		DefaultStatus: http.StatusCreated,
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 10},
					{Window: time.Hour, Max: 100},
					{Window: 24 * time.Hour, Max: 500},
				},
			},
		},
	}, h.CreateLink)

	huma.Register(api, huma.Operation{
		Method:  http.MethodGet,
		Path:    "/api/urls/user",
		Summary: "List a user's links",
		Tags:    []string{"URLs"},
	}, h.ListLinks)

	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/api/urls/user/stats",
		Summary:     "User dashboard statistics",
		Description: "Aggregates link counts, cumulative clicks, and daily click activity across the user's links.",
		Tags:        []string{"Analytics"},
	}, h.GetUserStats)

	huma.Register(api, huma.Operation{
		Method:  http.MethodGet,
		Path:    "/api/urls/top",
		Summary: "Most clicked links",
		Tags:    []string{"URLs"},
	}, h.TopLinks)

	huma.Register(api, huma.Operation{
		Method:  http.MethodGet,
		Path:    "/api/urls/{id}/stats",
		Summary: "Link click statistics",
		Tags:    []string{"URLs"},
	}, h.GetLinkStats)

	huma.Register(api, huma.Operation{
		Method:      http.MethodPut,
		Path:        "/api/urls/{id}",
		Summary:     "Update a link",
		Description: "Updates title, description, alias, expiry, or active flag. Alias changes re-validate uniqueness.",
		Tags:        []string{"URLs"},
	}, h.UpdateLink)

	huma.Register(api, huma.Operation{
		Method:  http.MethodDelete,
		Path:    "/api/urls/{id}",
		Summary: "Delete a link",
		Tags:    []string{"URLs"},
	}, h.DeleteLink)

	// The redirect path takes the bulk of traffic; limits stay relaxed.
	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/r/{shortCode}",
		Summary:     "Redirect to original URL",
		Description: "Redirects to the original URL and records the click.",
		Tags:        []string{"URLs"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 1000},
				},
			},
		},
	}, h.Redirect)
}
