// Package github wraps the GitHub REST v3 API used as the remote content
// store. This file implements the authenticated client.
//
// Error semantics:
//   - 401 → ErrUnauthorized, 403 → ErrForbidden, 404 → ErrNotFound
//   - 409, and 422 responses mentioning a sha mismatch → ErrConflict
//   - transport failures are wrapped and returned as-is (transient)
//
// No operation is retried here; callers own the retry policy.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public GitHub API endpoint. Tests point BaseURL at
// an httptest server instead.
const DefaultBaseURL = "https://api.github.com"

// Config carries the settings needed to construct a Client.
type Config struct {
	BaseURL string // defaults to DefaultBaseURL
	Token   string // OAuth or PAT; empty means unauthenticated reads only
	Owner   string
	Repo    string
	Branch  string // defaults to "main"
	Timeout time.Duration
}

// Client talks to one repository of the GitHub API. It is safe for
// concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	owner   string
	repo    string
	branch  string
}

// NewClient constructs a Client from cfg, applying defaults for BaseURL,
// Branch, and Timeout.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		branch:  cfg.Branch,
	}
}

// Branch returns the branch this client reads from and writes to.
func (c *Client) Branch() string { return c.branch }

// ReadFile fetches path from the repository and returns its decoded content
// together with the blob SHA (the revision token for subsequent writes).
// A missing path yields ErrNotFound.
func (c *Client) ReadFile(ctx context.Context, path string) (*FileContent, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		c.baseURL, c.owner, c.repo, escapePath(path), url.QueryEscape(c.branch))

	var body struct {
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}
	if err := c.do(ctx, http.MethodGet, u, nil, &body); err != nil {
		return nil, err
	}

	// The contents API base64-encodes with embedded newlines.
	raw, err := base64.StdEncoding.DecodeString(stripWhitespace(body.Content))
	if err != nil {
		return nil, fmt.Errorf("github: decode %s: %w", path, err)
	}
	return &FileContent{Path: path, Content: raw, SHA: body.SHA}, nil
}

// WriteFile creates or updates path with content. An empty sha means
// "create"; a stale sha yields ErrConflict. message becomes the commit
// message.
func (c *Client) WriteFile(ctx context.Context, path string, content []byte, sha, message string) error {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, c.owner, c.repo, escapePath(path))

	payload := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  c.branch,
	}
	if sha != "" {
		payload["sha"] = sha
	}
	return c.do(ctx, http.MethodPut, u, payload, nil)
}

// ListIssues returns issues matching the filter, newest first, up to 100.
func (c *Client) ListIssues(ctx context.Context, f IssueFilter) ([]Issue, error) {
	q := url.Values{"per_page": {"100"}}
	if f.State != "" {
		q.Set("state", f.State)
	}
	if f.Labels != "" {
		q.Set("labels", f.Labels)
	}
	if f.Creator != "" {
		q.Set("creator", f.Creator)
	}
	u := fmt.Sprintf("%s/repos/%s/%s/issues?%s", c.baseURL, c.owner, c.repo, q.Encode())

	var out []Issue
	if err := c.do(ctx, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateIssue opens a new issue and returns it.
func (c *Client) CreateIssue(ctx context.Context, title, body string, labels []string) (*Issue, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/issues", c.baseURL, c.owner, c.repo)
	payload := map[string]any{"title": title, "body": body, "labels": labels}

	var out Issue
	if err := c.do(ctx, http.MethodPost, u, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateIssue patches the mutable fields of issue number.
func (c *Client) UpdateIssue(ctx context.Context, number int, upd IssueUpdate) error {
	u := fmt.Sprintf("%s/repos/%s/%s/issues/%d", c.baseURL, c.owner, c.repo, number)
	return c.do(ctx, http.MethodPatch, u, upd, nil)
}

// CommentOnIssue posts a comment on issue number.
func (c *Client) CommentOnIssue(ctx context.Context, number int, body string) error {
	u := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", c.baseURL, c.owner, c.repo, number)
	return c.do(ctx, http.MethodPost, u, map[string]any{"body": body}, nil)
}

// GetUser returns the authenticated user.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/user", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckPermissions reports whether the authenticated user has push access to
// the repository. Any API failure is reported as "no access" rather than an
// error, so callers can gate moderator UI without special-casing.
func (c *Client) CheckPermissions(ctx context.Context) bool {
	u := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, c.owner, c.repo)
	var out struct {
		Permissions struct {
			Push bool `json:"push"`
		} `json:"permissions"`
	}
	if err := c.do(ctx, http.MethodGet, u, nil, &out); err != nil {
		return false
	}
	return out.Permissions.Push
}

// do executes one API call, encoding payload as JSON when non-nil and
// decoding the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, urlStr string, payload, out any) error {
	var rd io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("github: encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, rd)
	if err != nil {
		return fmt.Errorf("github: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github: %s %s: %w", method, urlStr, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return apiError(res)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("github: decode response: %w", err)
		}
	}
	return nil
}

// apiError maps an error response onto the package sentinels, keeping the
// API's message for context.
func apiError(res *http.Response) error {
	msg := readMessage(res.Body)
	switch res.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	case http.StatusUnprocessableEntity:
		// The contents API reports stale SHAs as 422 with a message like
		// "... does not match ...sha...".
		if strings.Contains(strings.ToLower(msg), "sha") {
			return fmt.Errorf("%w: %s", ErrConflict, msg)
		}
		return fmt.Errorf("github: unprocessable: %s", msg)
	default:
		return fmt.Errorf("github: http %d: %s", res.StatusCode, msg)
	}
}

// readMessage extracts the "message" field from an error body, falling back
// to the raw text.
func readMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(raw))
}

// escapePath escapes each segment of a repository path while preserving the
// separators.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

// stripWhitespace removes the newlines GitHub inserts into base64 payloads.
func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
}
