package config

import (
	"strings"
	"testing"
	"time"
)

// setRequired sets the minimum env the validator demands so tests can focus
// on the fields they care about.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("REPO_OWNER", "acme")
	t.Setenv("REPO_NAME", "prompts")
}

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	setRequired(t)
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	setRequired(t)

	// Server timeouts / sizes (valid)
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	// Logging
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("API_BASE_PATH", "api/v1/") // no leading slash + trailing slash -> "/api/v1"

	// App
	t.Setenv("DB_PATH", "db.sqlite")
	t.Setenv("PROMPT_CACHE_TTL", "90s")
	t.Setenv("ARTIST_CACHE_TTL", "30m")
	t.Setenv("UPLOAD_ENDPOINT", "https://img.example/api/upload")

	// Repo
	t.Setenv("REPO_BRANCH", "prod")
	t.Setenv("GITHUB_TOKEN", "tok-123")

	// Moderation
	t.Setenv("MODERATOR_PASSWORD", "hunter2")
	t.Setenv("IP_HASH_SALT", "pepper")

	// Rate limiting (use invalids for parse to fall back to defaults)
	t.Setenv("RATE_RPS", "x")      // -> default 5.0
	t.Setenv("RATE_BURST", "nope") // -> default 10

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Server
	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}

	// Logging
	if cfg.LogLevel != "warn" || !cfg.LogPretty || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging fields unexpected: %+v", cfg)
	}

	// App
	if cfg.DBPath != "db.sqlite" ||
		cfg.PromptCacheTTL != 90*time.Second ||
		cfg.ArtistCacheTTL != 30*time.Minute ||
		cfg.UploadEndpoint != "https://img.example/api/upload" {
		t.Fatalf("app fields unexpected: %+v", cfg)
	}

	// Repo + moderation
	if cfg.Repo.Owner != "acme" || cfg.Repo.Name != "prompts" ||
		cfg.Repo.Branch != "prod" || cfg.Repo.Token != "tok-123" {
		t.Fatalf("repo fields unexpected: %+v", cfg.Repo)
	}
	if cfg.Moderation.Password != "hunter2" || cfg.Moderation.IPSalt != "pepper" {
		t.Fatalf("moderation fields unexpected: %+v", cfg.Moderation)
	}

	// Rate limiting fell back to defaults on bad input
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate fields unexpected: rps=%v burst=%d", cfg.RateRPS, cfg.RateBurst)
	}

	// CORS list trimmed and filtered
	if len(cfg.CORS.AllowedOrigins) != 2 ||
		cfg.CORS.AllowedOrigins[0] != "https://a.com" ||
		cfg.CORS.AllowedOrigins[1] != "http://b" {
		t.Fatalf("cors origins unexpected: %v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security fields unexpected: %+v", cfg.Security)
	}

	// OTEL
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" ||
		cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" ||
		cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel fields unexpected: %+v", cfg.OTEL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "8080" || cfg.GinMode != "release" || cfg.LogLevel != "info" {
		t.Fatalf("defaults unexpected: %+v", cfg)
	}
	if cfg.Repo.Branch != "main" {
		t.Fatalf("default branch = %q, want main", cfg.Repo.Branch)
	}
	if cfg.PromptCacheTTL != 5*time.Minute || cfg.ArtistCacheTTL != 15*time.Minute {
		t.Fatalf("default TTLs unexpected: %v / %v", cfg.PromptCacheTTL, cfg.ArtistCacheTTL)
	}
	if cfg.Moderation.Password != "" {
		t.Fatalf("moderator password should default to empty (locked down)")
	}
}

// --- validation errors ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing repo coordinates",
			env:  map[string]string{"REPO_OWNER": "", "REPO_NAME": ""},
			want: "REPO_OWNER and REPO_NAME",
		},
		{
			name: "bad log level",
			env:  map[string]string{"LOG_LEVEL": "verbose"},
			want: "LOG_LEVEL",
		},
		{
			name: "negative timeout",
			env:  map[string]string{"READ_TIMEOUT": "-1s"},
			want: "timeouts",
		},
		{
			name: "zero cache ttl",
			env:  map[string]string{"PROMPT_CACHE_TTL": "-5m"},
			want: "cache TTLs",
		},
		{
			name: "bad rate burst",
			env:  map[string]string{"RATE_BURST": "0"},
			want: "RATE_BURST",
		},
		{
			name: "sampler out of range",
			env:  map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"},
			want: "OTEL_TRACES_SAMPLER_ARG",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

// --- RawContentBase ---

func TestRawContentBase(t *testing.T) {
	cfg := Config{Repo: RepoConfig{Owner: "acme", Name: "prompts", Branch: "main"}}
	if got, want := cfg.RawContentBase(), "https://raw.githubusercontent.com/acme/prompts/main"; got != want {
		t.Fatalf("RawContentBase() = %q, want %q", got, want)
	}

	cfg.Repo.RawBaseURL = "https://mirror.example/data"
	if got := cfg.RawContentBase(); got != "https://mirror.example/data" {
		t.Fatalf("mirror not preferred: %q", got)
	}
}

// --- helpers ---

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":        "/",
		"api":     "/api",
		"/api/":   "/api",
		"/":       "/",
		" /v2 ":   "/v2",
		"/api/v1": "/api/v1",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetBool(t *testing.T) {
	t.Setenv("FLAG", "on")
	if !getbool("FLAG", false) {
		t.Fatal("on should parse true")
	}
	t.Setenv("FLAG", "OFF")
	if getbool("FLAG", true) {
		t.Fatal("OFF should parse false")
	}
	t.Setenv("FLAG", "maybe")
	if !getbool("FLAG", true) {
		t.Fatal("unparseable should fall back to default")
	}
}
