package enrich

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// NormalizeURL normalizes a URL so that equivalent spellings share a cache
// entry.
// - Lowercases the scheme and host
// - Removes default ports (80 for http, 443 for https)
// - Removes trailing slashes from path (unless path is just "/")
// - Removes empty fragment
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	host := u.Host
	if strings.HasSuffix(host, ":80") && u.Scheme == "http" {
		u.Host = strings.TrimSuffix(host, ":80")
	} else if strings.HasSuffix(host, ":443") && u.Scheme == "https" {
		u.Host = strings.TrimSuffix(host, ":443")
	}

	if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	u.Fragment = ""

	return u.String(), nil
}

// CacheKey computes a stable key for a URL's metadata: the SHA256 of its
// normalized form, hex encoded. Unparseable URLs hash as-is.
func CacheKey(rawURL string) string {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		normalized = rawURL
	}

	h := sha256.Sum256([]byte(normalized))

	return hex.EncodeToString(h[:])
}
