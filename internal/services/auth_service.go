// Package services – AuthService
//
// This file implements the server-side half of the OAuth dance: exchanging
// an authorization code for an access token, so the client secret never
// reaches a browser. It is a thin relay with no retry; a rejected code
// surfaces as ErrBadCode for the handler to map to 401.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrBadCode is returned when the provider rejects the authorization code.
var ErrBadCode = errors.New("authorization code rejected")

// DefaultTokenURL is GitHub's OAuth token endpoint.
const DefaultTokenURL = "https://github.com/login/oauth/access_token"

// AuthService exchanges OAuth authorization codes for access tokens.
type AuthService struct {
	HTTP         *http.Client
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// NewAuthService constructs an AuthService with defaults applied.
func NewAuthService(clientID, clientSecret, tokenURL string) *AuthService {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &AuthService{
		HTTP:         &http.Client{Timeout: 15 * time.Second},
		TokenURL:     tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
}

// Exchange trades code for an access token.
func (s *AuthService) Exchange(ctx context.Context, code string) (string, error) {
	payload, _ := json.Marshal(map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"code":          code,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.TokenURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("auth: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := s.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth: token exchange: %w", err)
	}
	defer res.Body.Close()

	var body struct {
		AccessToken      string `json:"access_token"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("auth: decode token response: %w", err)
	}
	if body.Error != "" || body.AccessToken == "" {
		return "", fmt.Errorf("%w: %s", ErrBadCode, body.ErrorDescription)
	}
	return body.AccessToken, nil
}
