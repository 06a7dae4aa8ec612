package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/serroba/linkly/internal/shortlink"
)

// MemoryStore is an in-memory implementation of shortlink.Repository. It
// mirrors the PostgreSQL semantics, including the uniqueness rejection on
// Save and the atomic resolve-and-record, and backs the unit tests.
type MemoryStore struct {
	mu     sync.Mutex
	byCode map[string]*shortlink.ShortLink
	byID   map[string]*shortlink.ShortLink
}

// NewMemoryStore creates a new in-memory registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byCode: make(map[string]*shortlink.ShortLink),
		byID:   make(map[string]*shortlink.ShortLink),
	}
}

// Compile-time check.
var _ shortlink.Repository = (*MemoryStore)(nil)

func (m *MemoryStore) Save(_ context.Context, link *shortlink.ShortLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byCode[link.ShortCode]; exists {
		return shortlink.ErrCodeExists
	}

	stored := cloneLink(link)
	m.byCode[stored.ShortCode] = stored
	m.byID[stored.ID] = stored

	return nil
}

func (m *MemoryStore) GetByCode(_ context.Context, code string) (*shortlink.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.byCode[code]
	if !ok {
		return nil, shortlink.ErrNotFound
	}

	return cloneLink(link), nil
}

func (m *MemoryStore) GetOwned(_ context.Context, id, ownerID string) (*shortlink.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.byID[id]
	if !ok || link.OwnerID != ownerID {
		return nil, shortlink.ErrNotFound
	}

	return cloneLink(link), nil
}

func (m *MemoryStore) ResolveAndRecord(
	_ context.Context, code string, click shortlink.Click, now time.Time,
) (*shortlink.Resolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.byCode[code]
	if !ok || !link.Resolvable(now) {
		return nil, shortlink.ErrNotFound
	}

	link.Clicks++
	last := now
	link.LastClicked = &last
	link.UpdatedAt = now

	link.ClickHistory = append(link.ClickHistory, click)
	if len(link.ClickHistory) > shortlink.HistoryCap {
		// Evict oldest entries; the counter is never decremented.
		link.ClickHistory = link.ClickHistory[len(link.ClickHistory)-shortlink.HistoryCap:]
	}

	return &shortlink.Resolution{
		LinkID:      link.ID,
		OwnerID:     link.OwnerID,
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		Clicks:      link.Clicks,
	}, nil
}

func (m *MemoryStore) ListByOwner(
	_ context.Context, ownerID string, page shortlink.Page,
) ([]*shortlink.ShortLink, *shortlink.Pagination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if page.Page < 1 {
		page.Page = 1
	}

	if page.Limit < 1 {
		page.Limit = 10
	}

	var owned []*shortlink.ShortLink

	for _, link := range m.byID {
		if link.OwnerID == ownerID && matchesFilter(link, page.Filter) {
			owned = append(owned, link)
		}
	}

	sortLinks(owned, page.SortBy, page.SortOrder)

	total := int64(len(owned))

	start := (page.Page - 1) * page.Limit
	if start > len(owned) {
		start = len(owned)
	}

	end := start + page.Limit
	if end > len(owned) {
		end = len(owned)
	}

	links := make([]*shortlink.ShortLink, 0, end-start)
	for _, link := range owned[start:end] {
		links = append(links, cloneLink(link))
	}

	return links, paginate(page, total), nil
}

func (m *MemoryStore) Update(
	_ context.Context, id, ownerID string, fields shortlink.UpdateFields, now time.Time,
) (*shortlink.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.byID[id]
	if !ok || link.OwnerID != ownerID {
		return nil, shortlink.ErrNotFound
	}

	if fields.CustomAlias != nil && *fields.CustomAlias != link.ShortCode {
		if _, taken := m.byCode[*fields.CustomAlias]; taken {
			return nil, shortlink.ErrAliasTaken
		}

		delete(m.byCode, link.ShortCode)
		link.ShortCode = *fields.CustomAlias
		link.CustomAlias = *fields.CustomAlias
		m.byCode[link.ShortCode] = link
	}

	if fields.Title != nil {
		link.Title = *fields.Title
	}

	if fields.Description != nil {
		link.Description = *fields.Description
	}

	if fields.Keywords != nil {
		link.Keywords = append([]string(nil), (*fields.Keywords)...)
	}

	if fields.PreviewImage != nil {
		link.PreviewImage = *fields.PreviewImage
	}

	if fields.ClearExpiry {
		link.ExpiresAt = nil
	} else if fields.ExpiresAt != nil {
		expiry := *fields.ExpiresAt
		link.ExpiresAt = &expiry
	}

	if fields.IsActive != nil {
		link.IsActive = *fields.IsActive
	}

	link.UpdatedAt = now

	return cloneLink(link), nil
}

func (m *MemoryStore) Delete(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.byID[id]
	if !ok || link.OwnerID != ownerID {
		return shortlink.ErrNotFound
	}

	delete(m.byID, id)
	delete(m.byCode, link.ShortCode)

	return nil
}

func (m *MemoryStore) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64

	for _, link := range m.byID {
		if link.IsActive && link.ExpiresAt != nil && link.ExpiresAt.Before(now) {
			link.IsActive = false
			link.UpdatedAt = now
			count++
		}
	}

	return count, nil
}

func (m *MemoryStore) TopLinks(_ context.Context, limit int) ([]*shortlink.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit < 1 {
		limit = 10
	}

	var active []*shortlink.ShortLink

	for _, link := range m.byID {
		if link.IsActive {
			active = append(active, link)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].Clicks > active[j].Clicks
	})

	if len(active) > limit {
		active = active[:limit]
	}

	links := make([]*shortlink.ShortLink, 0, len(active))
	for _, link := range active {
		links = append(links, cloneLink(link))
	}

	return links, nil
}

func (m *MemoryStore) OwnerStats(
	_ context.Context, ownerID string, now time.Time,
) (*shortlink.OwnerStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &shortlink.OwnerStats{ClicksByDay: make(map[string]int64)}

	recentCutoff := now.Add(-shortlink.RecentWindow)
	activityCutoff := now.Add(-shortlink.ActivityWindow)

	for _, link := range m.byID {
		if link.OwnerID != ownerID {
			continue
		}

		stats.TotalLinks++
		stats.TotalClicks += link.Clicks

		if link.IsActive {
			stats.ActiveLinks++
		}

		if !link.CreatedAt.Before(recentCutoff) {
			stats.RecentLinks++
		}

		for _, click := range link.ClickHistory {
			if !click.Timestamp.Before(activityCutoff) {
				day := click.Timestamp.UTC().Format("2006-01-02")
				stats.ClicksByDay[day]++
			}
		}
	}

	return stats, nil
}

func matchesFilter(link *shortlink.ShortLink, filter string) bool {
	if filter == "" {
		return true
	}

	needle := strings.ToLower(filter)

	for _, field := range []string{link.OriginalURL, link.Title, link.Description, link.ShortCode} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}

	return false
}

func sortLinks(links []*shortlink.ShortLink, sortBy, sortOrder string) {
	desc := !strings.EqualFold(sortOrder, "asc")

	less := func(i, j *shortlink.ShortLink) bool {
		switch sortBy {
		case "clicks":
			return i.Clicks < j.Clicks
		case "updatedAt":
			return i.UpdatedAt.Before(j.UpdatedAt)
		case "title":
			return i.Title < j.Title
		case "lastClicked":
			return timeOrZero(i.LastClicked).Before(timeOrZero(j.LastClicked))
		default:
			return i.CreatedAt.Before(j.CreatedAt)
		}
	}

	sort.SliceStable(links, func(i, j int) bool {
		if desc {
			return less(links[j], links[i])
		}

		return less(links[i], links[j])
	})
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}

	return *t
}

func cloneLink(link *shortlink.ShortLink) *shortlink.ShortLink {
	clone := *link
	clone.Keywords = append([]string(nil), link.Keywords...)
	clone.ClickHistory = append([]shortlink.Click(nil), link.ClickHistory...)

	if link.ExpiresAt != nil {
		expiry := *link.ExpiresAt
		clone.ExpiresAt = &expiry
	}

	if link.LastClicked != nil {
		last := *link.LastClicked
		clone.LastClicked = &last
	}

	return &clone
}
