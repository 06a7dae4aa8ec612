package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/linkly/internal/enrich"
	"github.com/serroba/linkly/internal/events"
	"github.com/serroba/linkly/internal/messaging"
	"github.com/serroba/linkly/internal/shortlink"
	"go.uber.org/zap"
)

const statsWindow = 7 * 24 * time.Hour

// LinkHandler handles the management plane and the redirect hot path.
type LinkHandler struct {
	allocator      *shortlink.Allocator
	resolver       *shortlink.Resolver
	store          shortlink.Repository
	analyzer       enrich.Analyzer
	publishCreated messaging.Publish[events.LinkCreatedEvent]
	baseURL        string
	enrichTimeout  time.Duration
	logger         *zap.Logger
}

// NewLinkHandler creates a link handler with injected collaborators.
func NewLinkHandler(
	allocator *shortlink.Allocator,
	resolver *shortlink.Resolver,
	store shortlink.Repository,
	analyzer enrich.Analyzer,
	publishCreated messaging.Publish[events.LinkCreatedEvent],
	baseURL string,
	enrichTimeout time.Duration,
	logger *zap.Logger,
) *LinkHandler {
	if enrichTimeout <= 0 {
		enrichTimeout = 3 * time.Second
	}

	return &LinkHandler{
		allocator:      allocator,
		resolver:       resolver,
		store:          store,
		analyzer:       analyzer,
		publishCreated: publishCreated,
		baseURL:        baseURL,
		enrichTimeout:  enrichTimeout,
		logger:         logger,
	}
}

func (h *LinkHandler) CreateLink(ctx context.Context, req *CreateLinkRequest) (*CreateLinkResponse, error) {
	body := req.Body

	if body.UserID == "" {
		return nil, huma.Error401Unauthorized("user authentication required")
	}

	meta := h.enrichMetadata(ctx, body.OriginalURL, body.Title, body.Description)

	opts := shortlink.CreateOptions{
		CustomAlias:  body.CustomAlias,
		Title:        firstNonEmpty(body.Title, meta.Title),
		Description:  firstNonEmpty(body.Description, meta.Description),
		Keywords:     meta.Keywords,
		PreviewImage: meta.PreviewImage,
		ExpiresAt:    body.ExpiresAt,
	}

	link, err := h.allocator.Allocate(ctx, body.OriginalURL, body.UserID, opts)
	if err != nil {
		return nil, h.createError(err)
	}

	reqMeta := RequestMetaFromContext(ctx)
	event := &events.LinkCreatedEvent{
		LinkID:      link.ID,
		OwnerID:     link.OwnerID,
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		Title:       link.Title,
		CreatedAt:   link.CreatedAt,
		ClientIP:    reqMeta.ClientIP,
		UserAgent:   reqMeta.UserAgent,
	}

	if err := h.publishCreated(event); err != nil {
		h.logger.Error("failed to publish link created event",
			zap.String("code", event.ShortCode),
			zap.Error(err),
		)
	}

	resp := &CreateLinkResponse{}
	resp.Body.Success = true
	resp.Body.Data = h.view(link)
	resp.Body.Metadata.SuggestedAlias = meta.SuggestedAlias
	resp.Body.Metadata.Category = meta.Category

	return resp, nil
}

// enrichMetadata runs the analyzer under a hard timeout. Any failure
// degrades to URL-derived metadata; enrichment never blocks creation.
func (h *LinkHandler) enrichMetadata(ctx context.Context, rawURL, title, description string) *enrich.Metadata {
	if title != "" && description != "" {
		// Caller supplied everything the analyzer would fill in.
		meta := enrich.Derived(rawURL)
		meta.Title = title
		meta.Description = description

		return meta
	}

	enrichCtx, cancel := context.WithTimeout(ctx, h.enrichTimeout)
	defer cancel()

	meta, err := h.analyzer.Analyze(enrichCtx, rawURL)
	if err != nil {
		h.logger.Warn("metadata enrichment failed, continuing without it",
			zap.String("url", rawURL),
			zap.Error(err),
		)

		return enrich.Derived(rawURL)
	}

	return meta
}

func (h *LinkHandler) createError(err error) error {
	switch {
	case errors.Is(err, shortlink.ErrInvalidURL):
		return huma.Error400BadRequest("invalid url format")
	case errors.Is(err, shortlink.ErrInvalidAlias):
		return huma.Error400BadRequest("invalid custom alias: 3-20 letters, digits, or hyphens")
	case errors.Is(err, shortlink.ErrAliasTaken):
		return huma.Error409Conflict("custom alias already exists")
	case errors.Is(err, shortlink.ErrAllocationExhausted):
		h.logger.Error("short code allocation exhausted", zap.Error(err))

		return huma.Error500InternalServerError("failed to allocate short code")
	default:
		return huma.Error500InternalServerError("failed to create short link")
	}
}

func (h *LinkHandler) Redirect(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	meta := RequestMetaFromContext(ctx)
	click := shortlink.Click{
		IP:        meta.ClientIP,
		UserAgent: meta.UserAgent,
		Referrer:  meta.Referrer,
		Country:   meta.Country,
		City:      meta.City,
	}

	res, err := h.resolver.Resolve(ctx, req.ShortCode, click)
	if err != nil {
		if errors.Is(err, shortlink.ErrNotFound) {
			// Absent, deactivated, and expired are indistinguishable here.
			return nil, huma.Error404NotFound("URL not found or expired")
		}

		return nil, huma.Error500InternalServerError("failed to resolve short link")
	}

	resp := &RedirectResponse{
		Status: http.StatusFound,
	}
	resp.Headers.Location = res.OriginalURL

	return resp, nil
}

func (h *LinkHandler) ListLinks(ctx context.Context, req *ListLinksRequest) (*ListLinksResponse, error) {
	if req.UserID == "" {
		return nil, huma.Error401Unauthorized("user authentication required")
	}

	links, pagination, err := h.store.ListByOwner(ctx, req.UserID, shortlink.Page{
		Page:      req.Page,
		Limit:     req.Limit,
		SortBy:    req.Sort,
		SortOrder: req.Order,
		Filter:    req.Filter,
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to fetch links")
	}

	resp := &ListLinksResponse{}
	resp.Body.Success = true
	resp.Body.Data = h.views(links)
	resp.Body.Pagination = *pagination

	return resp, nil
}

func (h *LinkHandler) GetLinkStats(ctx context.Context, req *LinkStatsRequest) (*LinkStatsResponse, error) {
	if req.UserID == "" {
		return nil, huma.Error401Unauthorized("user authentication required")
	}

	link, err := h.store.GetOwned(ctx, req.ID, req.UserID)
	if err != nil {
		if errors.Is(err, shortlink.ErrNotFound) {
			return nil, huma.Error404NotFound("link not found")
		}

		return nil, huma.Error500InternalServerError("failed to fetch link statistics")
	}

	uniqueIPs := make(map[string]struct{})
	clicksByDay := make(map[string]int64)
	cutoff := time.Now().Add(-statsWindow)

	for _, click := range link.ClickHistory {
		if click.IP != "" {
			uniqueIPs[click.IP] = struct{}{}
		}

		if click.Timestamp.After(cutoff) {
			day := click.Timestamp.UTC().Format("2006-01-02")
			clicksByDay[day]++
		}
	}

	resp := &LinkStatsResponse{}
	resp.Body.Success = true
	resp.Body.Data.TotalClicks = link.Clicks
	resp.Body.Data.UniqueClicks = len(uniqueIPs)
	resp.Body.Data.LastClicked = link.LastClicked
	resp.Body.Data.ClicksByDay = clicksByDay
	resp.Body.Data.TotalHistory = len(link.ClickHistory)

	return resp, nil
}

const topLinksPerOwner = 5

func (h *LinkHandler) GetUserStats(ctx context.Context, req *UserStatsRequest) (*UserStatsResponse, error) {
	if req.UserID == "" {
		return nil, huma.Error401Unauthorized("user authentication required")
	}

	stats, err := h.store.OwnerStats(ctx, req.UserID, time.Now())
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to fetch user statistics")
	}

	top, _, err := h.store.ListByOwner(ctx, req.UserID, shortlink.Page{
		Page:      1,
		Limit:     topLinksPerOwner,
		SortBy:    "clicks",
		SortOrder: "desc",
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to fetch user statistics")
	}

	resp := &UserStatsResponse{}
	resp.Body.Success = true
	resp.Body.Data.TotalLinks = stats.TotalLinks
	resp.Body.Data.ActiveLinks = stats.ActiveLinks
	resp.Body.Data.TotalClicks = stats.TotalClicks
	resp.Body.Data.RecentLinks = stats.RecentLinks
	resp.Body.Data.TopLinks = h.views(top)
	resp.Body.Data.ClicksByDay = stats.ClicksByDay

	return resp, nil
}

func (h *LinkHandler) TopLinks(ctx context.Context, req *TopLinksRequest) (*TopLinksResponse, error) {
	links, err := h.store.TopLinks(ctx, req.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to fetch top links")
	}

	resp := &TopLinksResponse{}
	resp.Body.Success = true
	resp.Body.Data = h.views(links)

	return resp, nil
}

func (h *LinkHandler) UpdateLink(ctx context.Context, req *UpdateLinkRequest) (*UpdateLinkResponse, error) {
	body := req.Body

	if body.UserID == "" {
		return nil, huma.Error401Unauthorized("user authentication required")
	}

	if body.CustomAlias != nil {
		if err := shortlink.ValidateAlias(*body.CustomAlias); err != nil {
			return nil, huma.Error400BadRequest("invalid custom alias: 3-20 letters, digits, or hyphens")
		}
	}

	fields := shortlink.UpdateFields{
		Title:        body.Title,
		Description:  body.Description,
		Keywords:     body.Keywords,
		PreviewImage: body.PreviewImage,
		CustomAlias:  body.CustomAlias,
		ExpiresAt:    body.ExpiresAt,
		ClearExpiry:  body.ClearExpiry,
		IsActive:     body.IsActive,
	}

	link, err := h.store.Update(ctx, req.ID, body.UserID, fields, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, shortlink.ErrNotFound):
			return nil, huma.Error404NotFound("link not found")
		case errors.Is(err, shortlink.ErrAliasTaken):
			return nil, huma.Error409Conflict("custom alias already exists")
		default:
			return nil, huma.Error500InternalServerError("failed to update link")
		}
	}

	resp := &UpdateLinkResponse{}
	resp.Body.Success = true
	resp.Body.Data = h.view(link)

	return resp, nil
}

func (h *LinkHandler) DeleteLink(ctx context.Context, req *DeleteLinkRequest) (*DeleteLinkResponse, error) {
	if req.UserID == "" {
		return nil, huma.Error401Unauthorized("user authentication required")
	}

	if err := h.store.Delete(ctx, req.ID, req.UserID); err != nil {
		if errors.Is(err, shortlink.ErrNotFound) {
			return nil, huma.Error404NotFound("link not found")
		}

		return nil, huma.Error500InternalServerError("failed to delete link")
	}

	resp := &DeleteLinkResponse{}
	resp.Body.Success = true
	resp.Body.Message = "link deleted successfully"

	return resp, nil
}

func (h *LinkHandler) view(link *shortlink.ShortLink) LinkView {
	return LinkView{
		ID:           link.ID,
		OriginalURL:  link.OriginalURL,
		ShortCode:    link.ShortCode,
		ShortURL:     fmt.Sprintf("%s/r/%s", h.baseURL, link.ShortCode),
		CustomAlias:  link.CustomAlias,
		Title:        link.Title,
		Description:  link.Description,
		Keywords:     link.Keywords,
		PreviewImage: link.PreviewImage,
		Domain:       link.Domain,
		OwnerID:      link.OwnerID,
		IsActive:     link.IsActive,
		ExpiresAt:    link.ExpiresAt,
		Clicks:       link.Clicks,
		LastClicked:  link.LastClicked,
		CreatedAt:    link.CreatedAt,
		UpdatedAt:    link.UpdatedAt,
	}
}

func (h *LinkHandler) views(links []*shortlink.ShortLink) []LinkView {
	views := make([]LinkView, 0, len(links))

	for _, link := range links {
		views = append(views, h.view(link))
	}

	return views
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
