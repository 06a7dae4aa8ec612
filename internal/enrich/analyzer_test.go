package enrich_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/serroba/linkly/internal/enrich"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title>Go Programming Tutorial</title>
<meta name="description" content="Learn Go from scratch">
<meta name="keywords" content="go, programming, tutorial">
<meta property="og:image" content="https://example.com/cover.png">
</head>
<body>content</body>
</html>`

func TestHTTPAnalyzer_Analyze(t *testing.T) {
	t.Run("scrapes title description keywords and image", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(samplePage))
		}))
		defer server.Close()

		analyzer := enrich.NewHTTPAnalyzer(time.Second, zap.NewNop())

		meta, err := analyzer.Analyze(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Equal(t, "Go Programming Tutorial", meta.Title)
		assert.Equal(t, "Learn Go from scratch", meta.Description)
		assert.Equal(t, []string{"go", "programming", "tutorial"}, meta.Keywords)
		assert.Equal(t, "https://example.com/cover.png", meta.PreviewImage)
		assert.NotEmpty(t, meta.SuggestedAlias)
	})

	t.Run("handles reversed attribute order and single quotes", func(t *testing.T) {
		page := `<html><head><meta content='From the meta' name='description'></head></html>`
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(page))
		}))
		defer server.Close()

		analyzer := enrich.NewHTTPAnalyzer(time.Second, zap.NewNop())

		meta, err := analyzer.Analyze(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Equal(t, "From the meta", meta.Description)
	})

	t.Run("falls back to derived metadata on non-200", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		analyzer := enrich.NewHTTPAnalyzer(time.Second, zap.NewNop())

		meta, err := analyzer.Analyze(context.Background(), server.URL+"/some/path")

		require.NoError(t, err)
		assert.NotEmpty(t, meta.Title)
		assert.Empty(t, meta.Description)
	})

	t.Run("falls back when the target is unreachable", func(t *testing.T) {
		analyzer := enrich.NewHTTPAnalyzer(100*time.Millisecond, zap.NewNop())

		meta, err := analyzer.Analyze(context.Background(), "http://127.0.0.1:1/nothing")

		require.NoError(t, err)
		assert.NotNil(t, meta)
		assert.NotEmpty(t, meta.Title)
	})

	t.Run("gives up on slow targets within the timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(500 * time.Millisecond)

			_, _ = w.Write([]byte(samplePage))
		}))
		defer server.Close()

		analyzer := enrich.NewHTTPAnalyzer(50*time.Millisecond, zap.NewNop())

		start := time.Now()
		meta, err := analyzer.Analyze(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Less(t, time.Since(start), 400*time.Millisecond)
		assert.NotNil(t, meta)
	})
}

func TestDerived(t *testing.T) {
	t.Run("builds a title from host and path", func(t *testing.T) {
		meta := enrich.Derived("https://www.example.com/blog/posts/hello")

		assert.Equal(t, "example.com - blog posts hello", meta.Title)
	})

	t.Run("uses the bare host for root URLs", func(t *testing.T) {
		meta := enrich.Derived("https://example.com/")

		assert.Equal(t, "example.com", meta.Title)
	})

	t.Run("survives unparseable input", func(t *testing.T) {
		meta := enrich.Derived("://broken")

		assert.Equal(t, "general", meta.Category)
		assert.Empty(t, meta.Title)
	})
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"GitHub code repository for developers", "tech"},
		{"Watch this youtube video", "video"},
		{"Breaking news article from the press", "news"},
		{"nothing matching here", "general"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, enrich.Categorize(tt.text))
		})
	}
}

func TestSuggestAlias(t *testing.T) {
	t.Run("slugifies the title", func(t *testing.T) {
		assert.Equal(t, "go-programming-tutor", enrich.SuggestAlias("Go Programming Tutorial", ""))
	})

	t.Run("falls back to the host", func(t *testing.T) {
		assert.Equal(t, "example-com", enrich.SuggestAlias("", "https://www.example.com/x"))
	})

	t.Run("returns empty when nothing usable remains", func(t *testing.T) {
		assert.Empty(t, enrich.SuggestAlias("!!", "://broken"))
	})
}
