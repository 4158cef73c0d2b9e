// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, moderation auth, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-backend/internal/config"
	"github.com/tbourn/go-prompt-backend/internal/github"
	"github.com/tbourn/go-prompt-backend/internal/http/handlers"
	"github.com/tbourn/go-prompt-backend/internal/http/middleware"
	"github.com/tbourn/go-prompt-backend/internal/prefs"
	"github.com/tbourn/go-prompt-backend/internal/repo"
	"github.com/tbourn/go-prompt-backend/internal/services"
	"github.com/tbourn/go-prompt-backend/internal/storage"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// CORS and security headers, health and metrics endpoints, and then mounts
// the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with secret/PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Gzip for the large aggregate payloads
//  8. Rate limiter (per user/IP)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (moderator secret is masked
	//    by default; the OAuth code moves in the URL path, covered by the
	//    UUID/identifier patterns only partially, so avoid logging bodies).
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-User"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (upload relay is capped separately)
	r.Use(limitBody(12 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Compress the aggregate prompt/artist responses
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	corsHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		"X-User", middleware.ModPasswordHeader,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps
		// tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist
		// (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: remote store ← GitHub API + raw mirror
	gh := github.NewClient(github.Config{
		BaseURL: cfg.Repo.BaseURL,
		Token:   cfg.Repo.Token,
		Owner:   cfg.Repo.Owner,
		Repo:    cfg.Repo.Name,
		Branch:  cfg.Repo.Branch,
	})
	raw := github.NewRawReader(cfg.RawContentBase(), 15*time.Second)
	store := storage.NewChunkStore(gh, raw)

	promptSvc := services.NewPromptService(store, store, cfg.PromptCacheTTL)
	artistSvc := services.NewArtistService(raw, cfg.ArtistCacheTTL)
	subSvc := services.NewSubmissionService(gh, store)
	// Approving mutates the chunk files; drop the aggregate cache after.
	subSvc.OnApproved = promptSvc.Invalidate
	voteSvc := &services.VoteService{DB: db, Salt: cfg.Moderation.IPSalt}
	genSvc := services.NewGeneratorService(nil)
	authSvc := services.NewAuthService(cfg.OAuth.ClientID, cfg.OAuth.ClientSecret, cfg.OAuth.TokenURL)
	uploadSvc := services.NewUploadService(cfg.UploadEndpoint)
	prefSvc := prefs.NewManager(&repo.PrefStore{DB: db})

	h := handlers.New(handlers.Deps{
		Prompts:     promptSvc,
		Artists:     artistSvc,
		Submissions: subSvc,
		Votes:       voteSvc,
		Generator:   genSvc,
		Auth:        authSvc,
		Uploads:     uploadSvc,
		Prefs:       prefSvc,
		ModSecret:   cfg.Moderation.Password,
	})

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Published prompts
		api.GET("/prompts", h.ListPrompts)
		api.GET("/prompts/:id/votes", h.VoteTotals)

		// Artist pool and generation
		api.GET("/artists", h.ListArtists)
		api.GET("/artists/search", h.SearchArtists)
		api.POST("/generate", h.Generate)

		// Submission intake and self-service listing
		api.POST("/submissions", h.CreateSubmission)
		api.GET("/submissions/mine", h.ListMySubmissions)

		// Single dispatch endpoint used by the frontend; voting is the
		// only public action, the rest check the moderator secret inline.
		api.POST("/moderation", h.Moderate)

		// OAuth exchange and image relay
		api.GET("/authenticate/:code", h.Authenticate)
		api.POST("/upload", h.Upload)

		// Per-user preferences
		api.GET("/prefs/favorites", h.ListFavorites)
		api.PUT("/prefs/favorites/:name", h.AddFavorite)
		api.DELETE("/prefs/favorites/:name", h.RemoveFavorite)
		api.GET("/prefs/drafts", h.ListLocalDrafts)
		api.POST("/prefs/drafts", h.SaveLocalDraft)
		api.DELETE("/prefs/drafts/:id", h.DeleteLocalDraft)
		api.GET("/prefs/generator", h.GetGeneratorState)
		api.PUT("/prefs/generator", h.SaveGeneratorState)

		// Moderator REST surface (same operations as the dispatch
		// endpoint plus queue maintenance)
		mod := api.Group("", middleware.ModeratorAuth(cfg.Moderation.Password))
		{
			mod.PUT("/prompts/:id", h.UpdatePrompt)
			mod.DELETE("/prompts/:id", h.DeletePrompt)
			mod.GET("/submissions/drafts", h.ListDrafts)
			mod.GET("/submissions/rejected", h.ListRejected)
			mod.POST("/submissions/:number/draft", h.DemoteSubmission)
			mod.POST("/submissions/:number/promote", h.PromoteSubmission)
		}
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
