// Package github wraps the subset of the GitHub REST v3 API the application
// uses as its remote content store: repository file contents (with SHA-based
// optimistic concurrency) and issues acting as submission tickets.
//
// This file centralizes the error taxonomy surfaced by the client. Callers
// branch on these sentinels with errors.Is; transient transport failures are
// returned wrapped and do not match any sentinel. The client never retries;
// retry policy belongs to the caller (see services.SubmissionService).
package github

import "errors"

var (
	// ErrUnauthorized indicates a missing or invalid credential (HTTP 401).
	// The user must re-authenticate.
	ErrUnauthorized = errors.New("github: unauthorized")

	// ErrForbidden indicates an authenticated caller without the required
	// repository access (HTTP 403). Not retried.
	ErrForbidden = errors.New("github: forbidden")

	// ErrNotFound indicates the requested file or issue does not exist
	// (HTTP 404). The chunked store treats a missing index/chunk as empty.
	ErrNotFound = errors.New("github: not found")

	// ErrConflict indicates a write carried a stale revision token (SHA).
	// GitHub reports this as 409, or 422 when the supplied SHA no longer
	// matches the file's current blob.
	ErrConflict = errors.New("github: sha conflict")
)
