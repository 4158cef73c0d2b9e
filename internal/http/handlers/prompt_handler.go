package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-prompt-backend/internal/domain"
	"github.com/tbourn/go-prompt-backend/internal/utils"
)

const maxPageSize = 100

// promptPage is the paginated list envelope.
type promptPage struct {
	Prompts  []domain.PromptRecord `json:"prompts"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

// ListPrompts handles GET /prompts.
//
// Query parameters:
//   - q: optional substring filter over title, prompt text, username and tags
//   - page, page_size: 1-based pagination (default 1 / 50, capped at 100)
//   - refresh=1: bypass the aggregate cache and reload from the store
func (h *Handlers) ListPrompts(c *gin.Context) {
	force := c.Query("refresh") == "1" || c.Query("refresh") == "true"

	var (
		records []domain.PromptRecord
		err     error
	)
	if q := c.Query("q"); q != "" {
		records, err = h.prompts.Search(c.Request.Context(), q)
	} else {
		records, err = h.prompts.Get(c.Request.Context(), force)
	}
	if err != nil {
		failFromErr(c, err)
		return
	}

	page := utils.AtoiDefault(c.Query("page"), 1)
	size := utils.AtoiDefault(c.Query("page_size"), 50)
	lo, hi := utils.PageBounds(len(records), page, size, maxPageSize)

	ok(c, http.StatusOK, promptPage{
		Prompts:  records[lo:hi],
		Total:    len(records),
		Page:     page,
		PageSize: hi - lo,
	})
}

// UpdatePrompt handles PUT /prompts/:id (moderator only). The body is the
// edited record; id from the path wins over any id in the payload.
func (h *Handlers) UpdatePrompt(c *gin.Context) {
	var rec domain.PromptRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	rec.ID = c.Param("id")
	if rec.ID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing prompt id")
		return
	}
	if err := h.prompts.UpdatePublished(c.Request.Context(), rec); err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, rec)
}

// DeletePrompt handles DELETE /prompts/:id (moderator only). An optional
// ?chunk= query names the chunk file the record lives in, saving a scan.
func (h *Handlers) DeletePrompt(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing prompt id")
		return
	}
	if err := h.prompts.Delete(c.Request.Context(), id, c.Query("chunk")); err != nil {
		failFromErr(c, err)
		return
	}
	noContent(c)
}
