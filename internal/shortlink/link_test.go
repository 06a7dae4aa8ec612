package shortlink_test

import (
	"testing"
	"time"

	"github.com/serroba/linkly/internal/shortlink"
	"github.com/stretchr/testify/assert"
)

func TestShortLink_Resolvable(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name      string
		isActive  bool
		expiresAt *time.Time
		want      bool
	}{
		{"active without expiry", true, nil, true},
		{"active with future expiry", true, &future, true},
		{"active but expired", true, &past, false},
		{"inactive without expiry", false, nil, false},
		{"inactive with future expiry", false, &future, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := &shortlink.ShortLink{
				IsActive:  tt.isActive,
				ExpiresAt: tt.expiresAt,
			}

			assert.Equal(t, tt.want, link.Resolvable(now))
		})
	}
}

func TestValidateURL(t *testing.T) {
	t.Run("accepts absolute http and https URLs", func(t *testing.T) {
		for _, raw := range []string{
			"https://example.com",
			"http://example.com/path?query=1",
			"https://sub.example.com:8080/deep/path#frag",
		} {
			assert.NoError(t, shortlink.ValidateURL(raw), "url %q", raw)
		}
	})

	t.Run("rejects everything else", func(t *testing.T) {
		for _, raw := range []string{
			"",
			"example.com",
			"//example.com",
			"ftp://example.com",
			"javascript:alert(1)",
			"https://",
		} {
			assert.ErrorIs(t, shortlink.ValidateURL(raw), shortlink.ErrInvalidURL, "url %q", raw)
		}
	})
}

func TestValidateAlias(t *testing.T) {
	t.Run("accepts letters digits and hyphens within bounds", func(t *testing.T) {
		for _, alias := range []string{"abc", "my-link", "ABC-123", "exactly-twenty-chars"} {
			assert.NoError(t, shortlink.ValidateAlias(alias), "alias %q", alias)
		}
	})

	t.Run("rejects bad charset or length", func(t *testing.T) {
		for _, alias := range []string{"", "ab", "this-alias-is-definitely-too-long", "has space", "under_score", "uniçode"} {
			assert.ErrorIs(t, shortlink.ValidateAlias(alias), shortlink.ErrInvalidAlias, "alias %q", alias)
		}
	})
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "example.com", shortlink.DomainOf("https://example.com/path"))
	assert.Equal(t, "sub.example.com", shortlink.DomainOf("http://sub.example.com:8080/x"))
	assert.Empty(t, shortlink.DomainOf("://broken"))
}
