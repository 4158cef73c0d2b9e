// Package github wraps the GitHub REST v3 API used as the remote content
// store. This file defines the wire-facing types exchanged with the API.
package github

import "time"

// FileContent is the decoded result of reading a repository file. SHA is the
// revision token that must accompany the next write to the same path.
type FileContent struct {
	Path    string
	Content []byte
	SHA     string
}

// Label is an issue label as returned by the issues API.
type Label struct {
	Name string `json:"name"`
}

// IssueUser identifies the creator of an issue.
type IssueUser struct {
	Login string `json:"login"`
}

// Issue is a submission ticket: the durable representation of a
// submitted-but-not-yet-published prompt.
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Labels    []Label   `json:"labels"`
	State     string    `json:"state"`
	User      IssueUser `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// HasLabel reports whether the issue carries the named label.
func (i Issue) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if l.Name == name {
			return true
		}
	}
	return false
}

// IssueFilter narrows ListIssues. Zero values mean "no constraint"; State
// defaults to "open" on the API side when empty.
type IssueFilter struct {
	State   string // open|closed|all
	Labels  string // comma-separated label names
	Creator string
}

// IssueUpdate carries the mutable issue fields for UpdateIssue. Nil pointer
// fields are left untouched; a nil Labels slice leaves labels unchanged.
type IssueUpdate struct {
	Title       *string  `json:"title,omitempty"`
	Body        *string  `json:"body,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	State       *string  `json:"state,omitempty"`
	StateReason *string  `json:"state_reason,omitempty"`
}

// User is the authenticated GitHub user.
type User struct {
	Login string `json:"login"`
}

// String returns a pointer to s, for filling optional IssueUpdate fields.
func String(s string) *string { return &s }
