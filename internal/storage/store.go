// Package storage re-hosts generated images on storage the service controls.
package storage

import (
	"context"
	"net/url"
	"strings"
)

// Store writes an object and returns its public URL.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	PublicBaseURL() string
}

// IsHosted reports whether rawURL already lives under the store's public host.
func IsHosted(s Store, rawURL string) bool {
	base, err := url.Parse(s.PublicBaseURL())
	if err != nil || base.Host == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, base.Host)
}
