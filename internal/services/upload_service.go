// Package services – UploadService
//
// This file implements the image-upload relay. The browser cannot post to
// the third-party image host directly (CORS), so the request body is
// forwarded verbatim. The host answers with the public URL of the stored
// file as plain text, which is passed back to the caller.
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultUploadEndpoint is the public API of the image host.
const DefaultUploadEndpoint = "https://catbox.moe/user/api.php"

// UploadService relays multipart uploads to the image host.
type UploadService struct {
	HTTP      *http.Client
	Endpoint  string
	UserAgent string
}

// NewUploadService constructs an UploadService with defaults applied.
func NewUploadService(endpoint string) *UploadService {
	if endpoint == "" {
		endpoint = DefaultUploadEndpoint
	}
	return &UploadService{
		HTTP:      &http.Client{Timeout: 60 * time.Second},
		Endpoint:  endpoint,
		UserAgent: "ArtistGenerator/1.0",
	}
}

// Relay forwards body (a multipart/form-data payload with the given content
// type) to the image host and returns the URL it responds with.
func (s *UploadService) Relay(ctx context.Context, contentType string, body io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, body)
	if err != nil {
		return "", fmt.Errorf("upload: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", s.UserAgent)

	res, err := s.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: relay: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("upload: read response: %w", err)
	}
	if res.StatusCode >= 400 {
		return "", fmt.Errorf("upload: host returned http %d: %s", res.StatusCode, strings.TrimSpace(string(raw)))
	}
	return strings.TrimSpace(string(raw)), nil
}
