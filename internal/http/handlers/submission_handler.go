package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-prompt-backend/internal/domain"
)

// CreateSubmission handles POST /submissions: opens a pending ticket for
// the submitted record and returns the stored form of it.
func (h *Handlers) CreateSubmission(c *gin.Context) {
	var rec domain.PromptRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	out, err := h.submissions.Submit(c.Request.Context(), rec)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusCreated, out)
}

// ListMySubmissions handles GET /submissions/mine: tickets opened by the
// authenticated service identity.
func (h *Handlers) ListMySubmissions(c *gin.Context) {
	recs, err := h.submissions.ListMine(c.Request.Context())
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"submissions": recs, "total": len(recs)})
}

// ListDrafts handles GET /submissions/drafts (moderator only).
func (h *Handlers) ListDrafts(c *gin.Context) {
	recs, err := h.submissions.ListDrafts(c.Request.Context())
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"submissions": recs, "total": len(recs)})
}

// ListRejected handles GET /submissions/rejected (moderator only).
func (h *Handlers) ListRejected(c *gin.Context) {
	recs, err := h.submissions.ListRejected(c.Request.Context())
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"submissions": recs, "total": len(recs)})
}

// DemoteSubmission handles POST /submissions/:number/draft: rewrites the
// ticket with the edited record and moves it to the draft label.
func (h *Handlers) DemoteSubmission(c *gin.Context) {
	number, rec, bad := bindTicketEdit(c)
	if bad {
		return
	}
	if err := h.submissions.SaveDraft(c.Request.Context(), number, rec); err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"number": number, "status": domain.StatusDraft})
}

// PromoteSubmission handles POST /submissions/:number/promote: moves a
// draft ticket back to the pending queue.
func (h *Handlers) PromoteSubmission(c *gin.Context) {
	number, rec, bad := bindTicketEdit(c)
	if bad {
		return
	}
	if err := h.submissions.PromoteToPending(c.Request.Context(), number, rec); err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"number": number, "status": domain.StatusPending})
}

// bindTicketEdit parses the :number path param and the record body shared
// by the draft/promote endpoints. Returns bad=true after writing the error.
func bindTicketEdit(c *gin.Context) (int, domain.PromptRecord, bool) {
	number := atoiParam(c, "number")
	if number <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid ticket number")
		return 0, domain.PromptRecord{}, true
	}
	var rec domain.PromptRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return 0, domain.PromptRecord{}, true
	}
	return number, rec, false
}
