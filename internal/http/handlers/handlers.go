// Package handlers – constructor and service contracts.
//
// Handlers depend on the narrow interfaces declared here rather than on
// concrete service types, so each endpoint can be tested against small
// fakes. The interfaces mirror the methods the handlers actually call,
// nothing more.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-prompt-backend/internal/domain"
	gh "github.com/tbourn/go-prompt-backend/internal/github"
	"github.com/tbourn/go-prompt-backend/internal/prefs"
	"github.com/tbourn/go-prompt-backend/internal/services"
	"github.com/tbourn/go-prompt-backend/internal/utils"
)

// PromptAPI reads and edits the published prompt collection.
type PromptAPI interface {
	Get(ctx context.Context, force bool) ([]domain.PromptRecord, error)
	Search(ctx context.Context, query string) ([]domain.PromptRecord, error)
	Delete(ctx context.Context, id, chunkPath string) error
	UpdatePublished(ctx context.Context, rec domain.PromptRecord) error
}

// ArtistAPI exposes the cached artist pool.
type ArtistAPI interface {
	Get(ctx context.Context, force bool) ([]domain.Artist, error)
	Search(ctx context.Context, query string) ([]domain.Artist, error)
}

// SubmissionAPI drives the ticket-backed submission lifecycle.
type SubmissionAPI interface {
	Submit(ctx context.Context, rec domain.PromptRecord) (*domain.PromptRecord, error)
	Approve(ctx context.Context, number int, rec domain.PromptRecord) error
	Reject(ctx context.Context, number int, reason string) error
	SaveDraft(ctx context.Context, number int, rec domain.PromptRecord) error
	PromoteToPending(ctx context.Context, number int, rec domain.PromptRecord) error
	ListPending(ctx context.Context) ([]domain.PromptRecord, error)
	ListDrafts(ctx context.Context) ([]domain.PromptRecord, error)
	ListRejected(ctx context.Context) ([]domain.PromptRecord, error)
	ListMine(ctx context.Context) ([]domain.PromptRecord, error)
}

// VoteAPI records and counts prompt votes.
type VoteAPI interface {
	Vote(ctx context.Context, promptID, ip, direction string) (up, down int64, err error)
	Totals(ctx context.Context, promptID string) (up, down int64, err error)
}

// GeneratorAPI builds weighted artist strings.
type GeneratorAPI interface {
	Generate(pool []domain.Artist, opts services.GenerateOptions) string
}

// AuthAPI exchanges OAuth codes for access tokens.
type AuthAPI interface {
	Exchange(ctx context.Context, code string) (string, error)
}

// UploadAPI relays image payloads to the external host.
type UploadAPI interface {
	Relay(ctx context.Context, contentType string, body io.Reader) (string, error)
}

// PrefsAPI stores per-user favorites, drafts and generator state.
type PrefsAPI interface {
	Favorites(ctx context.Context, user string) ([]string, error)
	AddFavorite(ctx context.Context, user, name string) error
	RemoveFavorite(ctx context.Context, user, name string) error
	Drafts(ctx context.Context, user string) ([]domain.PromptRecord, error)
	SaveDraft(ctx context.Context, user string, rec domain.PromptRecord) (*domain.PromptRecord, error)
	DeleteDraft(ctx context.Context, user, id string) error
	GeneratorState(ctx context.Context, user string) (*prefs.GeneratorState, error)
	SaveGeneratorState(ctx context.Context, user string, st prefs.GeneratorState) error
}

// Deps bundles everything the handler set needs.
type Deps struct {
	Prompts     PromptAPI
	Artists     ArtistAPI
	Submissions SubmissionAPI
	Votes       VoteAPI
	Generator   GeneratorAPI
	Auth        AuthAPI
	Uploads     UploadAPI
	Prefs       PrefsAPI

	// ModSecret guards moderation actions (X-Mod-Pwd header).
	ModSecret string
}

// Handlers is the receiver for all endpoint methods.
type Handlers struct {
	prompts     PromptAPI
	artists     ArtistAPI
	submissions SubmissionAPI
	votes       VoteAPI
	generator   GeneratorAPI
	auth        AuthAPI
	uploads     UploadAPI
	prefs       PrefsAPI

	modSecret string
}

// New wires the handler set from its dependencies.
func New(d Deps) *Handlers {
	return &Handlers{
		prompts:     d.Prompts,
		artists:     d.Artists,
		submissions: d.Submissions,
		votes:       d.Votes,
		generator:   d.Generator,
		auth:        d.Auth,
		uploads:     d.Uploads,
		prefs:       d.Prefs,
		modSecret:   d.ModSecret,
	}
}

// failFromErr maps service and client errors onto the envelope taxonomy.
func failFromErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrDuplicateVote):
		fail(c, http.StatusConflict, ErrCodeAlreadyVoted, "vote already recorded for this address")
	case errors.Is(err, services.ErrInvalidVote),
		errors.Is(err, services.ErrEmptyPrompt),
		errors.Is(err, services.ErrTicketUnparseable):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrNoClientIP):
		fail(c, http.StatusBadRequest, ErrCodeIPUnavailable, "client address could not be determined")
	case errors.Is(err, services.ErrBadCode):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authorization code rejected")
	case errors.Is(err, gh.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "upstream rejected credentials")
	case errors.Is(err, gh.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "upstream denied access")
	case errors.Is(err, gh.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "resource not found")
	case errors.Is(err, gh.ErrConflict):
		fail(c, http.StatusConflict, ErrCodeConflict, "concurrent update, please retry")
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, ErrCodeInternal, "upstream timed out")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}

// atoiParam parses an integer path parameter, returning 0 when absent or
// malformed.
func atoiParam(c *gin.Context, name string) int {
	return utils.AtoiDefault(c.Param(name), 0)
}

// userID identifies the caller for preference storage. It prefers the
// X-User header set by the frontend after OAuth, falling back to the
// client IP so anonymous users still get stable local state.
func userID(c *gin.Context) string {
	if u := c.GetHeader("X-User"); u != "" {
		return u
	}
	return c.ClientIP()
}
