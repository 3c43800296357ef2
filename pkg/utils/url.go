package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// ErrNotAbsolute is returned when a URL lacks a scheme or host.
var ErrNotAbsolute = errors.New("url is not absolute")

const normalizeFlags = purell.FlagsSafe |
	purell.FlagRemoveFragment |
	purell.FlagSortQuery

// HashURL creates a SHA256 hash of a URL string.
// This is useful for creating consistent, safe keys for Redis.
func HashURL(rawURL string) string {
	h := sha256.New()
	h.Write([]byte(rawURL))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeURL returns the canonical string form of u used for frontier
// bookkeeping. Two URLs are the same crawl target iff their normalized forms
// are equal.
func NormalizeURL(u *url.URL) string {
	return purell.NormalizeURL(u, normalizeFlags)
}

// ParseAbsolute parses raw and rejects anything that is not an http(s) URL
// with a host.
func ParseAbsolute(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, ErrNotAbsolute
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, ErrNotAbsolute
	}
	return u, nil
}

// SameHost reports whether a and b point at the same host, ignoring case.
func SameHost(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Hostname(), b.Hostname())
}
