// Package services defines the business logic for the submission lifecycle,
// the aggregate prompt/artist caches, voting, and the generator. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

var (
	// ErrInvalidVote is returned when a vote direction is outside the
	// allowed set ("up" or "down").
	ErrInvalidVote = errors.New("vote must be up or down")

	// ErrDuplicateVote is returned when a caller attempts to vote twice on
	// the same prompt.
	ErrDuplicateVote = errors.New("vote already recorded")

	// ErrNoClientIP is returned when a vote request carries no resolvable
	// client address to key uniqueness on.
	ErrNoClientIP = errors.New("client ip unavailable")

	// ErrTicketUnparseable is returned when a submission ticket body does
	// not contain a recognizable payload block.
	ErrTicketUnparseable = errors.New("ticket body has no parseable payload")

	// ErrEmptyPrompt is returned when a submission carries no prompt text.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrDraftNotFound indicates that the requested local draft does not
	// exist or is not accessible to the current user.
	ErrDraftNotFound = errors.New("draft not found")
)
