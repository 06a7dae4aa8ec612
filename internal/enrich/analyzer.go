package enrich

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Metadata is the best-effort enrichment result for a target URL. Every
// field may be empty; callers fall back to their own values.
type Metadata struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Keywords       []string `json:"keywords"`
	PreviewImage   string   `json:"previewImage,omitempty"`
	SuggestedAlias string   `json:"suggestedAlias,omitempty"`
	Category       string   `json:"category"`
}

// Analyzer derives metadata for a URL. Implementations must be time-bounded
// and tolerate failure; a slow or broken target must never block link
// creation.
type Analyzer interface {
	Analyze(ctx context.Context, rawURL string) (*Metadata, error)
}

const maxBodyBytes = 256 << 10

// HTTPAnalyzer fetches the target page and scrapes title, description,
// keywords, and preview image from its head. Failures degrade to metadata
// derived from the URL alone.
type HTTPAnalyzer struct {
	client *http.Client
	logger *zap.Logger
}

// NewHTTPAnalyzer creates an analyzer with a hard per-request timeout.
func NewHTTPAnalyzer(timeout time.Duration, logger *zap.Logger) *HTTPAnalyzer {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &HTTPAnalyzer{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Compile-time check.
var _ Analyzer = (*HTTPAnalyzer)(nil)

// Analyze never fails outright: on any fetch or parse problem it returns
// URL-derived metadata.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, rawURL string) (*Metadata, error) {
	meta := Derived(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return meta, nil
	}

	req.Header.Set("User-Agent", "linkly-metadata/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Debug("metadata fetch failed", zap.String("url", rawURL), zap.Error(err))

		return meta, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		a.logger.Debug("metadata fetch non-200",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode),
		)

		return meta, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return meta, nil
	}

	html := string(body)

	if title := extractTitle(html); title != "" {
		meta.Title = title
	}

	if desc := extractMetaContent(html, `name="description"`); desc != "" {
		meta.Description = desc
	}

	if kw := extractMetaContent(html, `name="keywords"`); kw != "" {
		meta.Keywords = splitKeywords(kw)
	}

	if img := extractMetaContent(html, `property="og:image"`); img != "" {
		meta.PreviewImage = img
	}

	meta.Category = Categorize(meta.Title + " " + meta.Description + " " + rawURL)
	meta.SuggestedAlias = SuggestAlias(meta.Title, rawURL)

	return meta, nil
}

// Derived builds fallback metadata from the URL alone.
func Derived(rawURL string) *Metadata {
	meta := &Metadata{
		Keywords: []string{},
		Category: "general",
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return meta
	}

	host := strings.TrimPrefix(u.Hostname(), "www.")

	segments := strings.Fields(strings.ReplaceAll(u.Path, "/", " "))
	if len(segments) > 3 {
		segments = segments[:3]
	}

	if len(segments) > 0 {
		meta.Title = host + " - " + strings.Join(segments, " ")
	} else {
		meta.Title = host
	}

	meta.Category = Categorize(rawURL)
	meta.SuggestedAlias = SuggestAlias(meta.Title, rawURL)

	return meta
}

// categories maps a category name to the substrings that vote for it.
var categories = map[string][]string{
	"tech":      {"tech", "programming", "software", "developer", "github", "code"},
	"news":      {"news", "article", "press"},
	"blog":      {"blog", "post", "medium"},
	"education": {"tutorial", "learning", "course", "docs", "documentation"},
	"video":     {"video", "youtube", "vimeo", "watch"},
	"shopping":  {"shop", "store", "product", "amazon", "cart"},
	"social":    {"twitter", "facebook", "instagram", "linkedin", "reddit"},
}

// Categorize assigns a coarse content category from keyword hits, defaulting
// to "general".
func Categorize(text string) string {
	lower := strings.ToLower(text)

	best := "general"
	bestHits := 0

	for category, needles := range categories {
		hits := 0

		for _, needle := range needles {
			if strings.Contains(lower, needle) {
				hits++
			}
		}

		if hits > bestHits || (hits == bestHits && hits > 0 && category < best) {
			best = category
			bestHits = hits
		}
	}

	return best
}

// SuggestAlias derives an alias candidate from the page title, falling back
// to the URL host. The result satisfies the custom-alias charset and length
// bounds, or is empty when nothing usable can be derived.
func SuggestAlias(title, rawURL string) string {
	source := title
	if source == "" {
		if u, err := url.Parse(rawURL); err == nil {
			source = strings.TrimPrefix(u.Hostname(), "www.")
		}
	}

	var b strings.Builder

	lastHyphen := true // suppress leading hyphen

	for _, r := range strings.ToLower(source) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)

			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')

			lastHyphen = true
		}

		if b.Len() >= 20 {
			break
		}
	}

	alias := strings.Trim(b.String(), "-")
	if len(alias) < 3 {
		return ""
	}

	return alias
}

func extractTitle(html string) string {
	lower := strings.ToLower(html)

	start := strings.Index(lower, "<title")
	if start == -1 {
		return ""
	}

	open := strings.Index(lower[start:], ">")
	if open == -1 {
		return ""
	}

	start += open + 1

	end := strings.Index(lower[start:], "</title>")
	if end == -1 {
		return ""
	}

	return strings.TrimSpace(html[start : start+end])
}

// extractMetaContent finds a <meta> tag containing marker and returns its
// content attribute. Matches both attribute orders and quote styles.
func extractMetaContent(html, marker string) string {
	lower := strings.ToLower(html)
	marker = strings.ToLower(marker)
	markerAlt := strings.ReplaceAll(marker, `"`, `'`)

	offset := 0

	for {
		start := strings.Index(lower[offset:], "<meta")
		if start == -1 {
			return ""
		}

		start += offset

		end := strings.Index(lower[start:], ">")
		if end == -1 {
			return ""
		}

		tag := lower[start : start+end]
		if strings.Contains(tag, marker) || strings.Contains(tag, markerAlt) {
			return attrValue(html[start:start+end], tag, "content")
		}

		offset = start + end
	}
}

// attrValue extracts the quoted value of attr from a tag. tag is the
// lowercase copy used for case-insensitive matching; orig preserves the
// original casing of the value.
func attrValue(orig, tag, attr string) string {
	for _, quote := range []string{`"`, `'`} {
		needle := attr + "=" + quote

		start := strings.Index(tag, needle)
		if start == -1 {
			continue
		}

		start += len(needle)

		end := strings.Index(tag[start:], quote)
		if end == -1 {
			continue
		}

		return strings.TrimSpace(orig[start : start+end])
	}

	return ""
}

func splitKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	keywords := make([]string, 0, len(parts))

	for _, part := range parts {
		if kw := strings.TrimSpace(part); kw != "" {
			keywords = append(keywords, kw)
		}
	}

	return keywords
}
