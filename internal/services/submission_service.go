// Package services – SubmissionService
//
// This file implements the submission lifecycle engine. A candidate prompt
// lives as an open ticket (issue) on the backing repository: pending tickets
// carry the default submission label, drafts are held back from review with
// a "draft" label, and the terminal outcomes are "approved" (record
// committed into the chunked store, ticket closed) or "rejected" (ticket
// closed with the reason recorded as a comment). pending ⇄ draft moves are
// bidirectional and rewrite the ticket from current edited data.
//
// The approve commit runs under an optimistic-concurrency retry policy:
// a conflicting writer changes which chunk is the current target, so each
// attempt re-reads the index before appending. When the attempt budget is
// exhausted the ticket is left open and the failure surfaces to the caller.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-prompt-backend/internal/domain"
	"github.com/tbourn/go-prompt-backend/internal/github"
	"github.com/tbourn/go-prompt-backend/internal/retry"
)

// Ticket labels used by the lifecycle engine.
const (
	LabelSubmission = "submission"
	LabelDraft      = "draft"
	LabelApproved   = "approved"
	LabelRejected   = "rejected"
)

// TicketClient is the issue surface of the remote store consumed by the
// lifecycle engine (implemented by *github.Client).
type TicketClient interface {
	ListIssues(ctx context.Context, f github.IssueFilter) ([]github.Issue, error)
	CreateIssue(ctx context.Context, title, body string, labels []string) (*github.Issue, error)
	UpdateIssue(ctx context.Context, number int, upd github.IssueUpdate) error
	CommentOnIssue(ctx context.Context, number int, body string) error
	GetUser(ctx context.Context) (*github.User, error)
}

// RecordCommitter is the chunked-store surface the engine commits approved
// records through (implemented by *storage.ChunkStore).
type RecordCommitter interface {
	Append(ctx context.Context, rec domain.PromptRecord, message string) error
}

// SubmissionService orchestrates the pending → draft → approved/rejected
// transitions, mapping tickets to domain records and committing approved
// records into the chunked store.
type SubmissionService struct {
	Tickets TicketClient
	Store   RecordCommitter

	// Commit is the retry policy applied to the approve commit sequence.
	Commit retry.Policy

	// OnApproved, when set, runs after a record is durably committed.
	// The router uses it to invalidate the aggregate prompt cache.
	OnApproved func()
}

// NewSubmissionService constructs a SubmissionService with the default
// commit policy: three total attempts, 500ms base backoff plus up to 500ms
// of jitter.
func NewSubmissionService(tickets TicketClient, store RecordCommitter) *SubmissionService {
	return &SubmissionService{
		Tickets: tickets,
		Store:   store,
		Commit: retry.Policy{
			MaxAttempts: 3,
			Backoff:     retry.JitterBackoff(500*time.Millisecond, 500*time.Millisecond, nil),
		},
	}
}

// Submit files rec as a new submission ticket and returns the record tagged
// with its ticket number. Local blob/data image URLs are cleared so the
// submitter knows to provide a real link.
func (s *SubmissionService) Submit(ctx context.Context, rec domain.PromptRecord) (*domain.PromptRecord, error) {
	if strings.TrimSpace(rec.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if strings.HasPrefix(rec.Image, "blob:") || strings.HasPrefix(rec.Image, "data:") {
		rec.Image = ""
	}
	rec.Status = domain.StatusPending
	if rec.CreatedAt == 0 {
		rec.CreatedAt = domain.NowMillis()
	}

	issue, err := s.Tickets.CreateIssue(ctx, ticketTitle(rec), ticketBody(rec, false), []string{LabelSubmission})
	if err != nil {
		return nil, err
	}
	rec.TicketNumber = issue.Number
	return &rec, nil
}

// Approve commits rec into the chunked store, stamped published, and then
// closes the backing ticket. The commit sequence (index read → chunk
// targeting → chunk and index writes) is retried as a whole on revision
// conflicts, up to the policy's attempt cap; after that the error surfaces
// and the ticket stays open so the record remains in the pending queue.
// A failure to close the ticket after a durable commit is logged, not
// surfaced: data durability takes priority over ticket bookkeeping.
func (s *SubmissionService) Approve(ctx context.Context, number int, rec domain.PromptRecord) error {
	rec.Status = domain.StatusPublished
	rec.ApprovedAt = domain.NowMillis()
	msg := fmt.Sprintf("feat: approve submission #%d", number)

	err := s.Commit.Do(ctx,
		func(err error) bool { return errors.Is(err, github.ErrConflict) },
		func(ctx context.Context) error { return s.Store.Append(ctx, rec, msg) },
	)
	if err != nil {
		return fmt.Errorf("approve #%d: %w", number, err)
	}
	if s.OnApproved != nil {
		s.OnApproved()
	}

	closeErr := s.Tickets.UpdateIssue(ctx, number, github.IssueUpdate{
		State:       github.String("closed"),
		StateReason: github.String("completed"),
		Labels:      []string{LabelApproved},
	})
	if closeErr != nil {
		log.Warn().Err(closeErr).Int("ticket", number).
			Msg("record committed but ticket close failed")
	}
	return nil
}

// Reject records the reason as a ticket comment and closes the ticket. No
// retry: if either call fails the error surfaces and the ticket stays open
// for a manual retry.
func (s *SubmissionService) Reject(ctx context.Context, number int, reason string) error {
	if err := s.Tickets.CommentOnIssue(ctx, number, "Submission rejected: "+reason); err != nil {
		return fmt.Errorf("reject #%d: %w", number, err)
	}
	err := s.Tickets.UpdateIssue(ctx, number, github.IssueUpdate{
		State:       github.String("closed"),
		StateReason: github.String("not_planned"),
		Labels:      []string{LabelRejected},
	})
	if err != nil {
		return fmt.Errorf("reject #%d: %w", number, err)
	}
	return nil
}

// SaveDraft demotes a pending ticket to draft, rewriting title and body from
// the current edited data.
func (s *SubmissionService) SaveDraft(ctx context.Context, number int, rec domain.PromptRecord) error {
	return s.rewrite(ctx, number, rec, []string{LabelDraft})
}

// PromoteToPending returns a draft ticket to the review queue.
func (s *SubmissionService) PromoteToPending(ctx context.Context, number int, rec domain.PromptRecord) error {
	return s.rewrite(ctx, number, rec, []string{LabelSubmission})
}

// rewrite updates a ticket's title, body, and labels from rec.
func (s *SubmissionService) rewrite(ctx context.Context, number int, rec domain.PromptRecord, labels []string) error {
	return s.Tickets.UpdateIssue(ctx, number, github.IssueUpdate{
		Title:  github.String(ticketTitle(rec)),
		Body:   github.String(ticketBody(rec, true)),
		Labels: labels,
	})
}

// ListPending returns the review queue. All open tickets are fetched, not
// just labeled ones, so externally-filed submissions without labels are
// caught; drafts are excluded.
func (s *SubmissionService) ListPending(ctx context.Context) ([]domain.PromptRecord, error) {
	issues, err := s.Tickets.ListIssues(ctx, github.IssueFilter{State: "open"})
	if err != nil {
		return nil, err
	}
	var out []domain.PromptRecord
	for _, is := range issues {
		if is.HasLabel(LabelDraft) {
			continue
		}
		out = appendParsed(out, is, domain.StatusPending)
	}
	return out, nil
}

// ListDrafts returns open tickets held back from review.
func (s *SubmissionService) ListDrafts(ctx context.Context) ([]domain.PromptRecord, error) {
	return s.list(ctx, github.IssueFilter{State: "open", Labels: LabelDraft}, domain.StatusDraft)
}

// ListRejected returns closed tickets that were rejected.
func (s *SubmissionService) ListRejected(ctx context.Context) ([]domain.PromptRecord, error) {
	return s.list(ctx, github.IssueFilter{State: "closed", Labels: LabelRejected}, domain.StatusRejected)
}

// ListMine returns all tickets created by the authenticated user, open and
// closed.
func (s *SubmissionService) ListMine(ctx context.Context) ([]domain.PromptRecord, error) {
	user, err := s.Tickets.GetUser(ctx)
	if err != nil {
		return nil, err
	}
	issues, err := s.Tickets.ListIssues(ctx, github.IssueFilter{State: "all", Creator: user.Login})
	if err != nil {
		return nil, err
	}
	var out []domain.PromptRecord
	for _, is := range issues {
		out = appendParsed(out, is, statusOf(is))
	}
	return out, nil
}

func (s *SubmissionService) list(ctx context.Context, f github.IssueFilter, status string) ([]domain.PromptRecord, error) {
	issues, err := s.Tickets.ListIssues(ctx, f)
	if err != nil {
		return nil, err
	}
	var out []domain.PromptRecord
	for _, is := range issues {
		out = appendParsed(out, is, status)
	}
	return out, nil
}

// appendParsed parses one ticket and appends the result; an unparseable body
// is skipped with a warning, never fatal to the batch.
func appendParsed(out []domain.PromptRecord, is github.Issue, status string) []domain.PromptRecord {
	rec, err := ParseTicket(is)
	if err != nil {
		log.Warn().Err(err).Int("ticket", is.Number).Msg("skipping unparseable submission ticket")
		return out
	}
	rec.Status = status
	return append(out, *rec)
}

// statusOf derives a record status from ticket state and labels.
func statusOf(is github.Issue) string {
	switch {
	case is.State == "closed" && is.HasLabel(LabelApproved):
		return domain.StatusApproved
	case is.State == "closed" && is.HasLabel(LabelRejected):
		return domain.StatusRejected
	case is.HasLabel(LabelDraft):
		return domain.StatusDraft
	default:
		return domain.StatusPending
	}
}

//
// Ticket body format
//

// payloadRE matches the fenced JSON payload block embedded in ticket bodies.
var payloadRE = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// imageRE recognizes an embedded markdown image link, used to recover the
// image URL when the JSON block omits it (drag-and-drop uploads).
var imageRE = regexp.MustCompile(`!\[[^\]]*\]\((https?://[^)\s]+)\)`)

// ticketTitle renders the canonical ticket title for a record.
func ticketTitle(rec domain.PromptRecord) string {
	return "[Submission] " + rec.Title
}

// ticketBody renders the ticket body: a fenced JSON payload followed by the
// free-text description.
func ticketBody(rec domain.PromptRecord, byModerator bool) string {
	payload, _ := json.MarshalIndent(struct {
		ID          string   `json:"id"`
		Title       string   `json:"title,omitempty"`
		Prompt      string   `json:"prompt"`
		Model       string   `json:"model"`
		Tags        []string `json:"tags"`
		Description string   `json:"description"`
		Image       string   `json:"image,omitempty"`
		Username    string   `json:"username,omitempty"`
	}{rec.ID, rec.Title, rec.Prompt, rec.Model, rec.Tags, rec.Description, rec.Image, rec.Username}, "", "  ")

	footer := "*Submitted via Artist Generator*"
	if byModerator {
		footer = "*Updated by Moderator*"
	}
	return fmt.Sprintf("```json\n%s\n```\n\n**Description:**\n%s\n\n%s", payload, rec.Description, footer)
}

// ParseTicket extracts the structured payload from a ticket body. It returns
// ErrTicketUnparseable when no payload block is present or the JSON does not
// decode; callers skip such tickets rather than failing the batch.
func ParseTicket(is github.Issue) (*domain.PromptRecord, error) {
	m := payloadRE.FindStringSubmatch(is.Body)
	if m == nil {
		return nil, fmt.Errorf("%w: ticket #%d", ErrTicketUnparseable, is.Number)
	}

	var rec domain.PromptRecord
	if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &rec); err != nil {
		return nil, fmt.Errorf("%w: ticket #%d: %v", ErrTicketUnparseable, is.Number, err)
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("%w: ticket #%d: payload has no id", ErrTicketUnparseable, is.Number)
	}

	if rec.Image == "" {
		if img := imageRE.FindStringSubmatch(is.Body); img != nil {
			rec.Image = img[1]
		}
	}
	if rec.Username == "" {
		rec.Username = is.User.Login
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = is.CreatedAt.UnixMilli()
	}
	rec.TicketNumber = is.Number
	return &rec, nil
}
