// Package page implements saved-item lifecycle: create, upsert by normalized
// URL, reading progress, labels, and deletion. Writes land in the metadata
// store first; the search index is updated best-effort afterwards.
package page

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/readstash/readstash/internal/errors"
)

// NormalizeURL canonicalizes a URL for dedup purposes. Scheme and host are
// lowercased and the fragment is dropped; everything else, including a
// leading "www." and the query string, is preserved because stripping either
// can change what the URL points at.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.BadData("url is required")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.BadData(fmt.Sprintf("invalid url %q", raw))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.BadData(fmt.Sprintf("unsupported url scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return "", errors.BadData(fmt.Sprintf("url %q has no host", raw))
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	return u.String(), nil
}
