package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// maxUploadBytes caps relayed image payloads.
const maxUploadBytes = 10 << 20 // 10 MiB

// Authenticate handles GET /authenticate/:code, exchanging the OAuth
// authorization code for an access token.
func (h *Handlers) Authenticate(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing authorization code")
		return
	}
	token, err := h.auth.Exchange(c.Request.Context(), code)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"token": token})
}

// Upload handles POST /upload: streams the multipart body through to the
// external image host and returns the hosted URL.
func (h *Handlers) Upload(c *gin.Context) {
	body := io.LimitReader(c.Request.Body, maxUploadBytes)
	// Full header including the multipart boundary parameter.
	url, err := h.uploads.Relay(c.Request.Context(), c.GetHeader("Content-Type"), body)
	if err != nil {
		fail(c, http.StatusBadGateway, ErrCodeUploadFailed, "upload relay failed")
		return
	}
	ok(c, http.StatusOK, gin.H{"url": url})
}
