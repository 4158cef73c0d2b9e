package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-prompt-backend/internal/domain"
	"github.com/tbourn/go-prompt-backend/internal/http/middleware"
)

// Moderation actions accepted by the dispatch endpoint.
const (
	actionListPending = "listPending"
	actionApprove     = "approve"
	actionReject      = "reject"
	actionVote        = "vote"
)

// moderationRequest is the action-dispatch body for POST /moderation.
// Which fields are read depends on the action:
//
//	listPending – no extra fields
//	approve     – number, record
//	reject      – number, reason
//	vote        – id, vote ("up"|"down"); no moderator secret required
type moderationRequest struct {
	Action string               `json:"action"`
	Number int                  `json:"number"`
	Record *domain.PromptRecord `json:"record"`
	Reason string               `json:"reason"`
	ID     string               `json:"id"`
	Vote   string               `json:"vote"`
}

// Moderate handles POST /moderation, the single dispatch endpoint the
// frontend calls for queue listing, approval, rejection and voting.
// Voting is public; every other action requires the X-Mod-Pwd header.
func (h *Handlers) Moderate(c *gin.Context) {
	var req moderationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	if req.Action != actionVote && !h.moderatorOK(c) {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid moderator credential")
		return
	}

	switch req.Action {
	case actionListPending:
		recs, err := h.submissions.ListPending(c.Request.Context())
		if err != nil {
			failFromErr(c, err)
			return
		}
		ok(c, http.StatusOK, gin.H{"submissions": recs, "total": len(recs)})

	case actionApprove:
		if req.Number <= 0 || req.Record == nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "approve requires number and record")
			return
		}
		if err := h.submissions.Approve(c.Request.Context(), req.Number, *req.Record); err != nil {
			failFromErr(c, err)
			return
		}
		ok(c, http.StatusOK, gin.H{"number": req.Number, "status": domain.StatusApproved})

	case actionReject:
		if req.Number <= 0 {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "reject requires number")
			return
		}
		if err := h.submissions.Reject(c.Request.Context(), req.Number, req.Reason); err != nil {
			failFromErr(c, err)
			return
		}
		ok(c, http.StatusOK, gin.H{"number": req.Number, "status": domain.StatusRejected})

	case actionVote:
		if req.ID == "" {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "vote requires id")
			return
		}
		up, down, err := h.votes.Vote(c.Request.Context(), req.ID, clientIP(c), req.Vote)
		if err != nil {
			failFromErr(c, err)
			return
		}
		ok(c, http.StatusOK, gin.H{"id": req.ID, "upvotes": up, "downvotes": down})

	default:
		fail(c, http.StatusBadRequest, ErrCodeUnknownAction, "unknown action")
	}
}

// VoteTotals handles GET /prompts/:id/votes.
func (h *Handlers) VoteTotals(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing prompt id")
		return
	}
	up, down, err := h.votes.Totals(c.Request.Context(), id)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": id, "upvotes": up, "downvotes": down})
}

// moderatorOK compares the X-Mod-Pwd header against the configured secret
// in constant time. An empty configured secret disables moderation.
func (h *Handlers) moderatorOK(c *gin.Context) bool {
	if h.modSecret == "" {
		return false
	}
	got := c.GetHeader(middleware.ModPasswordHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.modSecret)) == 1
}

// clientIP resolves the caller address used for vote deduplication.
func clientIP(c *gin.Context) string {
	return c.ClientIP()
}
