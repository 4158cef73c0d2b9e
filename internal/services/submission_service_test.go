package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-prompt-backend/internal/domain"
	"github.com/tbourn/go-prompt-backend/internal/github"
)

// fakeTickets records every issue call and replays canned results.
type fakeTickets struct {
	issues    []github.Issue
	listErr   error
	createErr error
	updateErr error

	created  []github.Issue
	updates  []github.IssueUpdate
	updNums  []int
	comments []string
	user     *github.User
	filters  []github.IssueFilter
}

func (f *fakeTickets) ListIssues(_ context.Context, flt github.IssueFilter) ([]github.Issue, error) {
	f.filters = append(f.filters, flt)
	return f.issues, f.listErr
}

func (f *fakeTickets) CreateIssue(_ context.Context, title, body string, labels []string) (*github.Issue, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	is := github.Issue{
		Number: 100 + len(f.created),
		Title:  title,
		Body:   body,
		State:  "open",
	}
	for _, l := range labels {
		is.Labels = append(is.Labels, github.Label{Name: l})
	}
	f.created = append(f.created, is)
	return &is, nil
}

func (f *fakeTickets) UpdateIssue(_ context.Context, number int, upd github.IssueUpdate) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updNums = append(f.updNums, number)
	f.updates = append(f.updates, upd)
	return nil
}

func (f *fakeTickets) CommentOnIssue(_ context.Context, _ int, body string) error {
	f.comments = append(f.comments, body)
	return nil
}

func (f *fakeTickets) GetUser(_ context.Context) (*github.User, error) {
	if f.user == nil {
		return nil, github.ErrUnauthorized
	}
	return f.user, nil
}

// fakeCommitter counts Append calls and fails the first n with err.
type fakeCommitter struct {
	failFirst int
	err       error
	calls     int
	last      domain.PromptRecord
}

func (f *fakeCommitter) Append(_ context.Context, rec domain.PromptRecord, _ string) error {
	f.calls++
	f.last = rec
	if f.calls <= f.failFirst {
		return f.err
	}
	return nil
}

func newSubSvc(tickets *fakeTickets, store *fakeCommitter) *SubmissionService {
	s := NewSubmissionService(tickets, store)
	// Collapse pauses so retry tests run instantly.
	s.Commit.Sleep = func(context.Context, time.Duration) error { return nil }
	return s
}

func ticketFor(t *testing.T, number int, rec domain.PromptRecord, labels ...string) github.Issue {
	t.Helper()
	is := github.Issue{
		Number:    number,
		Title:     ticketTitle(rec),
		Body:      ticketBody(rec, false),
		State:     "open",
		User:      github.IssueUser{Login: "alice"},
		CreatedAt: time.UnixMilli(1700000000000),
	}
	for _, l := range labels {
		is.Labels = append(is.Labels, github.Label{Name: l})
	}
	return is
}

func TestSubmit_CreatesPendingTicket(t *testing.T) {
	tickets := &fakeTickets{}
	svc := newSubSvc(tickets, &fakeCommitter{})

	out, err := svc.Submit(context.Background(), domain.PromptRecord{
		ID: "p1", Title: "Misty", Prompt: "a misty forest", Model: "test",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.TicketNumber != 100 || out.Status != domain.StatusPending {
		t.Fatalf("out = %+v", out)
	}
	if out.CreatedAt == 0 {
		t.Fatalf("created_at not stamped")
	}
	if len(tickets.created) != 1 {
		t.Fatalf("created = %d", len(tickets.created))
	}
	is := tickets.created[0]
	if is.Title != "[Submission] Misty" || !is.HasLabel(LabelSubmission) {
		t.Fatalf("ticket = %+v", is)
	}

	// The body must round-trip through the parser.
	rec, err := ParseTicket(is)
	if err != nil {
		t.Fatalf("parse own ticket: %v", err)
	}
	if rec.ID != "p1" || rec.Prompt != "a misty forest" {
		t.Fatalf("round-trip = %+v", rec)
	}
}

func TestSubmit_RejectsEmptyPromptAndClearsLocalImages(t *testing.T) {
	svc := newSubSvc(&fakeTickets{}, &fakeCommitter{})

	if _, err := svc.Submit(context.Background(), domain.PromptRecord{ID: "x", Prompt: "   "}); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("err = %v, want ErrEmptyPrompt", err)
	}

	out, err := svc.Submit(context.Background(), domain.PromptRecord{
		ID: "p1", Prompt: "ok", Image: "blob:http://localhost/xyz",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.Image != "" {
		t.Fatalf("blob image not cleared: %q", out.Image)
	}
}

func TestApprove_CommitsThenClosesTicket(t *testing.T) {
	tickets := &fakeTickets{}
	store := &fakeCommitter{}
	svc := newSubSvc(tickets, store)

	invalidated := false
	svc.OnApproved = func() { invalidated = true }

	err := svc.Approve(context.Background(), 42, domain.PromptRecord{ID: "p1", Prompt: "x"})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("append calls = %d", store.calls)
	}
	if store.last.Status != domain.StatusPublished || store.last.ApprovedAt == 0 {
		t.Fatalf("committed record = %+v", store.last)
	}
	if !invalidated {
		t.Fatalf("OnApproved hook not run")
	}
	if len(tickets.updates) != 1 || tickets.updNums[0] != 42 {
		t.Fatalf("updates = %+v", tickets.updNums)
	}
	upd := tickets.updates[0]
	if upd.State == nil || *upd.State != "closed" || upd.Labels[0] != LabelApproved {
		t.Fatalf("close update = %+v", upd)
	}
}

func TestApprove_RetriesConflictsThreeTimesTotal(t *testing.T) {
	tickets := &fakeTickets{}
	store := &fakeCommitter{failFirst: 10, err: fmt.Errorf("write: %w", github.ErrConflict)}
	svc := newSubSvc(tickets, store)

	err := svc.Approve(context.Background(), 42, domain.PromptRecord{ID: "p1", Prompt: "x"})
	if !errors.Is(err, github.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if store.calls != 3 {
		t.Fatalf("append calls = %d, want exactly 3 attempts", store.calls)
	}
	// The ticket must stay open so the record remains in the queue.
	if len(tickets.updates) != 0 {
		t.Fatalf("ticket must not be closed on commit failure, got %+v", tickets.updates)
	}
}

func TestApprove_ConflictsThenSuccessWithinBudget(t *testing.T) {
	tickets := &fakeTickets{}
	store := &fakeCommitter{failFirst: 2, err: fmt.Errorf("write: %w", github.ErrConflict)}
	svc := newSubSvc(tickets, store)

	err := svc.Approve(context.Background(), 42, domain.PromptRecord{ID: "p1", Prompt: "x"})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if store.calls != 3 {
		t.Fatalf("append calls = %d", store.calls)
	}
	if len(tickets.updates) != 1 {
		t.Fatalf("expected ticket close after eventual success")
	}
}

func TestApprove_NonConflictErrorNotRetried(t *testing.T) {
	tickets := &fakeTickets{}
	store := &fakeCommitter{failFirst: 10, err: errors.New("disk on fire")}
	svc := newSubSvc(tickets, store)

	err := svc.Approve(context.Background(), 42, domain.PromptRecord{ID: "p1", Prompt: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if store.calls != 1 {
		t.Fatalf("append calls = %d, non-conflict must not retry", store.calls)
	}
}

func TestApprove_CloseFailureStillSucceeds(t *testing.T) {
	tickets := &fakeTickets{updateErr: errors.New("api down")}
	store := &fakeCommitter{}
	svc := newSubSvc(tickets, store)

	// Data durability wins: the commit landed, so approve reports success.
	if err := svc.Approve(context.Background(), 42, domain.PromptRecord{ID: "p1", Prompt: "x"}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("append calls = %d", store.calls)
	}
}

func TestReject_CommentsAndClosesWithoutRetry(t *testing.T) {
	tickets := &fakeTickets{}
	svc := newSubSvc(tickets, &fakeCommitter{})

	if err := svc.Reject(context.Background(), 7, "low quality"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if len(tickets.comments) != 1 || tickets.comments[0] != "Submission rejected: low quality" {
		t.Fatalf("comments = %v", tickets.comments)
	}
	upd := tickets.updates[0]
	if upd.StateReason == nil || *upd.StateReason != "not_planned" || upd.Labels[0] != LabelRejected {
		t.Fatalf("update = %+v", upd)
	}
}

func TestReject_CloseFailureSurfaces(t *testing.T) {
	tickets := &fakeTickets{updateErr: errors.New("api down")}
	svc := newSubSvc(tickets, &fakeCommitter{})

	if err := svc.Reject(context.Background(), 7, "nope"); err == nil {
		t.Fatalf("expected error so the ticket stays actionable")
	}
}

func TestSaveDraftAndPromote_MoveLabels(t *testing.T) {
	tickets := &fakeTickets{}
	svc := newSubSvc(tickets, &fakeCommitter{})
	rec := domain.PromptRecord{ID: "p1", Title: "T", Prompt: "x"}

	if err := svc.SaveDraft(context.Background(), 5, rec); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if err := svc.PromoteToPending(context.Background(), 5, rec); err != nil {
		t.Fatalf("promote: %v", err)
	}

	if got := tickets.updates[0].Labels; len(got) != 1 || got[0] != LabelDraft {
		t.Fatalf("draft labels = %v", got)
	}
	if got := tickets.updates[1].Labels; len(got) != 1 || got[0] != LabelSubmission {
		t.Fatalf("promote labels = %v", got)
	}
	// Rewrites must carry the moderator footer.
	if body := *tickets.updates[0].Body; !strings.Contains(body, "*Updated by Moderator*") {
		t.Fatalf("body = %q", body)
	}
}

func TestListPending_ExcludesDraftsAndSkipsUnparseable(t *testing.T) {
	good := domain.PromptRecord{ID: "p1", Title: "One", Prompt: "x"}
	draft := domain.PromptRecord{ID: "p2", Title: "Two", Prompt: "y"}
	tickets := &fakeTickets{issues: []github.Issue{
		ticketFor(t, 1, good, LabelSubmission),
		ticketFor(t, 2, draft, LabelDraft),
		{Number: 3, Title: "spam", Body: "no payload here", State: "open"},
	}}
	svc := newSubSvc(tickets, &fakeCommitter{})

	out, err := svc.ListPending(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 || out[0].ID != "p1" {
		t.Fatalf("out = %+v", out)
	}
	if out[0].Status != domain.StatusPending || out[0].TicketNumber != 1 {
		t.Fatalf("record = %+v", out[0])
	}
	// Queue listing must fetch all open tickets, not only labeled ones.
	if tickets.filters[0].Labels != "" || tickets.filters[0].State != "open" {
		t.Fatalf("filter = %+v", tickets.filters[0])
	}
}

func TestListMine_DerivesStatusFromStateAndLabels(t *testing.T) {
	rec := domain.PromptRecord{ID: "p1", Title: "T", Prompt: "x"}
	approved := ticketFor(t, 1, rec, LabelApproved)
	approved.State = "closed"
	rejected := ticketFor(t, 2, rec, LabelRejected)
	rejected.State = "closed"

	tickets := &fakeTickets{
		user: &github.User{Login: "alice"},
		issues: []github.Issue{
			approved,
			rejected,
			ticketFor(t, 3, rec, LabelDraft),
			ticketFor(t, 4, rec, LabelSubmission),
		},
	}
	svc := newSubSvc(tickets, &fakeCommitter{})

	out, err := svc.ListMine(context.Background())
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	want := []string{domain.StatusApproved, domain.StatusRejected, domain.StatusDraft, domain.StatusPending}
	if len(out) != len(want) {
		t.Fatalf("len = %d", len(out))
	}
	for i, w := range want {
		if out[i].Status != w {
			t.Fatalf("status[%d] = %s, want %s", i, out[i].Status, w)
		}
	}
	if tickets.filters[0].Creator != "alice" || tickets.filters[0].State != "all" {
		t.Fatalf("filter = %+v", tickets.filters[0])
	}
}

func TestParseTicket_RecoversImageAndAuthor(t *testing.T) {
	rec := domain.PromptRecord{ID: "p1", Title: "T", Prompt: "x"}
	is := ticketFor(t, 9, rec)
	is.Body += "\n\n![screenshot](https://img.example/s.png)"

	got, err := ParseTicket(is)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Image != "https://img.example/s.png" {
		t.Fatalf("image = %q", got.Image)
	}
	if got.Username != "alice" {
		t.Fatalf("username = %q", got.Username)
	}
	if got.CreatedAt != 1700000000000 {
		t.Fatalf("created_at = %d", got.CreatedAt)
	}
	if got.TicketNumber != 9 {
		t.Fatalf("ticket number = %d", got.TicketNumber)
	}
}

func TestParseTicket_MissingPayloadOrID(t *testing.T) {
	_, err := ParseTicket(github.Issue{Number: 1, Body: "free text only"})
	if !errors.Is(err, ErrTicketUnparseable) {
		t.Fatalf("err = %v", err)
	}

	_, err = ParseTicket(github.Issue{Number: 2, Body: "```json\n{\"title\":\"no id\"}\n```"})
	if !errors.Is(err, ErrTicketUnparseable) {
		t.Fatalf("err = %v", err)
	}
}

func TestDefaultCommitPolicy(t *testing.T) {
	svc := NewSubmissionService(&fakeTickets{}, &fakeCommitter{})
	if svc.Commit.MaxAttempts != 3 {
		t.Fatalf("max attempts = %d", svc.Commit.MaxAttempts)
	}
	base := 500 * time.Millisecond
	for i := 0; i < 50; i++ {
		d := svc.Commit.Backoff(1)
		if d < base || d >= 2*base {
			t.Fatalf("backoff %v outside [500ms, 1s)", d)
		}
	}
}
