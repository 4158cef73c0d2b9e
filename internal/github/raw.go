// Package github wraps the GitHub REST v3 API used as the remote content
// store. This file implements the unauthenticated raw-content reader used by
// the public read path (chunk fan-out), which prefers the raw mirror over a
// CDN-fronted copy for freshness.
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RawReader fetches repository files over the raw-content host. Every fetch
// carries a cache-busting query parameter so a CDN in front of the host
// cannot serve stale chunks.
type RawReader struct {
	http    *http.Client
	baseURL string // e.g. https://raw.githubusercontent.com/owner/repo/branch
	now     func() time.Time
}

// NewRawReader builds a RawReader rooted at baseURL (already including
// owner/repo/branch, or any mirror exposing the same layout).
func NewRawReader(baseURL string, timeout time.Duration) *RawReader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RawReader{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// RawURL composes the public raw-content URL for a repository path, used for
// uploaded images and other public assets.
func RawURL(owner, repo, branch, path string) string {
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", owner, repo, branch, path)
}

// Fetch returns the bytes of path, or ErrNotFound when the host reports 404.
func (r *RawReader) Fetch(ctx context.Context, path string) ([]byte, error) {
	u := fmt.Sprintf("%s/%s?t=%d", r.baseURL, strings.TrimLeft(path, "/"), r.now().UnixMilli())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("github: build raw request: %w", err)
	}
	res, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: raw fetch %s: %w", path, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case res.StatusCode >= 400:
		return nil, fmt.Errorf("github: raw fetch %s: http %d", path, res.StatusCode)
	}
	return io.ReadAll(res.Body)
}
