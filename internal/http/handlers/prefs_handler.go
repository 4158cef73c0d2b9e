package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-prompt-backend/internal/domain"
	"github.com/tbourn/go-prompt-backend/internal/prefs"
)

// ListFavorites handles GET /prefs/favorites.
func (h *Handlers) ListFavorites(c *gin.Context) {
	names, err := h.prefs.Favorites(c.Request.Context(), userID(c))
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"favorites": names})
}

// AddFavorite handles PUT /prefs/favorites/:name.
func (h *Handlers) AddFavorite(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing artist name")
		return
	}
	if err := h.prefs.AddFavorite(c.Request.Context(), userID(c), name); err != nil {
		failFromErr(c, err)
		return
	}
	noContent(c)
}

// RemoveFavorite handles DELETE /prefs/favorites/:name.
func (h *Handlers) RemoveFavorite(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing artist name")
		return
	}
	if err := h.prefs.RemoveFavorite(c.Request.Context(), userID(c), name); err != nil {
		failFromErr(c, err)
		return
	}
	noContent(c)
}

// ListLocalDrafts handles GET /prefs/drafts: drafts kept server-side for
// the caller, distinct from the moderation draft queue.
func (h *Handlers) ListLocalDrafts(c *gin.Context) {
	recs, err := h.prefs.Drafts(c.Request.Context(), userID(c))
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"drafts": recs, "total": len(recs)})
}

// SaveLocalDraft handles POST /prefs/drafts: inserts or replaces a draft
// by id, assigning one when absent.
func (h *Handlers) SaveLocalDraft(c *gin.Context) {
	var rec domain.PromptRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	out, err := h.prefs.SaveDraft(c.Request.Context(), userID(c), rec)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// DeleteLocalDraft handles DELETE /prefs/drafts/:id.
func (h *Handlers) DeleteLocalDraft(c *gin.Context) {
	if err := h.prefs.DeleteDraft(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		failFromErr(c, err)
		return
	}
	noContent(c)
}

// GetGeneratorState handles GET /prefs/generator. Missing or corrupt
// state yields an empty object rather than an error.
func (h *Handlers) GetGeneratorState(c *gin.Context) {
	st, err := h.prefs.GeneratorState(c.Request.Context(), userID(c))
	if err != nil {
		failFromErr(c, err)
		return
	}
	if st == nil {
		st = &prefs.GeneratorState{}
	}
	ok(c, http.StatusOK, st)
}

// SaveGeneratorState handles PUT /prefs/generator.
func (h *Handlers) SaveGeneratorState(c *gin.Context) {
	var st prefs.GeneratorState
	if err := c.ShouldBindJSON(&st); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.prefs.SaveGeneratorState(c.Request.Context(), userID(c), st); err != nil {
		failFromErr(c, err)
		return
	}
	noContent(c)
}
