package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-prompt-backend/internal/services"
)

// ListArtists handles GET /artists. refresh=1 bypasses the pool cache.
func (h *Handlers) ListArtists(c *gin.Context) {
	force := c.Query("refresh") == "1" || c.Query("refresh") == "true"
	pool, err := h.artists.Get(c.Request.Context(), force)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"artists": pool, "total": len(pool)})
}

// SearchArtists handles GET /artists/search?q=...
func (h *Handlers) SearchArtists(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing query parameter q")
		return
	}
	matches, err := h.artists.Search(c.Request.Context(), q)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"artists": matches, "total": len(matches)})
}

// generateRequest mirrors services.GenerateOptions on the wire.
type generateRequest struct {
	Mode            string   `json:"mode"`
	Count           int      `json:"count"`
	Preselected     []string `json:"preselected"`
	FilterMode      string   `json:"filter_mode"`
	FilterThreshold int      `json:"filter_threshold"`
	BracketStyle    string   `json:"bracket_style"`
	NestLevels      int      `json:"nest_levels"`
	WeightMin       float64  `json:"weight_min"`
	WeightMax       float64  `json:"weight_max"`
	CustomFormat    string   `json:"custom_format"`
}

// Generate handles POST /generate: samples the artist pool and returns a
// formatted prompt string.
func (h *Handlers) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	pool, err := h.artists.Get(c.Request.Context(), false)
	if err != nil {
		failFromErr(c, err)
		return
	}

	result := h.generator.Generate(pool, services.GenerateOptions{
		Mode:            req.Mode,
		Count:           req.Count,
		Preselected:     req.Preselected,
		FilterMode:      req.FilterMode,
		FilterThreshold: req.FilterThreshold,
		BracketStyle:    req.BracketStyle,
		NestLevels:      req.NestLevels,
		WeightMin:       req.WeightMin,
		WeightMax:       req.WeightMax,
		CustomFormat:    req.CustomFormat,
	})

	ok(c, http.StatusOK, gin.H{"result": result, "pool_size": len(pool)})
}
