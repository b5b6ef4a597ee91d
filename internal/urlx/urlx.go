// Package urlx canonicalizes and validates submitted URLs.
package urlx

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned when a submitted URL cannot be turned into
// an http(s) URL with a host.
var ErrInvalidURL = errors.New("invalid url provided")

// Normalize returns the canonical form of a submitted URL. Input that
// already carries an http or https scheme is left unchanged; anything
// else has its leading slashes stripped and https:// prepended.
// Normalize is idempotent.
func Normalize(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + strings.TrimLeft(raw, "/")
}

// Validate normalizes raw and verifies the result parses as a URL with
// an http or https scheme and a non-empty host. It returns the
// canonical URL, or ErrInvalidURL.
func Validate(raw string) (string, error) {
	normalized := Normalize(raw)

	parsed, err := url.Parse(normalized)
	if err != nil {
		return "", ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if parsed.Host == "" {
		return "", ErrInvalidURL
	}
	// Normalizing an input like "ftp://example.com" yields
	// "https://ftp://example.com", which parses with host "ftp:" because
	// an empty port is legal. A host ending in a bare colon is never real.
	if strings.HasSuffix(parsed.Host, ":") {
		return "", ErrInvalidURL
	}

	return normalized, nil
}
