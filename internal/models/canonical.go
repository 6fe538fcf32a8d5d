package models

import (
	"errors"
	"net/url"
	"strings"
)

// ErrNotWebURL is returned for URLs that can never be governed by a
// budget, such as browser-internal pages.
var ErrNotWebURL = errors.New("not a blockable web url")

// CanonicalDomain resolves a raw URL or hostname to the canonical
// registrable domain used as a budget key: lowercase hostname with the
// scheme, "www." prefix, port, path and query stripped. Non-http(s)
// schemes (chrome://, about:, ...) are rejected.
func CanonicalDomain(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNotWebURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrNotWebURL
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", ErrNotWebURL
	}
	return host, nil
}

// URLPath extracts the path component of a raw URL for whitelist
// matching. Unparseable input yields an empty path.
func URLPath(raw string) string {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Path
}

// NormalizeRedirect turns a stored redirect target into a navigable
// URL, prefixing https:// when no scheme was given. Empty stays empty
// so the caller can fall back to the quote page.
func NormalizeRedirect(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return ""
	}
	if !strings.Contains(target, "://") {
		return "https://" + target
	}
	return target
}
