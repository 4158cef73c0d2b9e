// Package search provides a simple, deterministic, concurrency-safe
// in-memory index over the artist-name pool. It is intentionally small and
// dependency-free:
//
//   - No logging in the library (callers decide how/what to log)
//   - Immutable, read-only index after construction (safe for concurrent use)
//   - Deterministic ordering (post count descending, name ascending on ties)
//   - Functional options for alias matching and result caps
//
// Matching is a case-insensitive substring test against the primary name
// and, optionally, each alias.
package search

import (
	"sort"
	"strings"

	"github.com/tbourn/go-prompt-backend/internal/domain"
)

// Index is the minimal interface implemented by the artist index.
type Index interface {
	Search(query string) []domain.Artist
}

// Option configures index construction.
type Option func(*config)

type config struct {
	includeAliases bool
	maxResults     int
}

func defaultConfig() config {
	return config{includeAliases: true, maxResults: 0}
}

// WithAliases controls whether alias names participate in matching
// (default true).
func WithAliases(v bool) Option {
	return func(c *config) { c.includeAliases = v }
}

// WithMaxResults caps the number of results returned per query; 0 means
// unlimited.
func WithMaxResults(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxResults = n
		}
	}
}

type entry struct {
	artist  domain.Artist
	name    string   // lowercased primary name
	aliases []string // lowercased aliases
}

type artistIndex struct {
	entries []entry
	cfg     config
}

// NewIndex builds an immutable index over the given pool. Entries are
// pre-sorted so query results come back in deterministic order without a
// per-query sort.
func NewIndex(pool []domain.Artist, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	entries := make([]entry, 0, len(pool))
	for _, a := range pool {
		e := entry{artist: a, name: strings.ToLower(a.Name)}
		if cfg.includeAliases {
			e.aliases = make([]string, 0, len(a.OtherNames))
			for _, n := range a.OtherNames {
				e.aliases = append(e.aliases, strings.ToLower(n))
			}
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].artist.PostCount != entries[j].artist.PostCount {
			return entries[i].artist.PostCount > entries[j].artist.PostCount
		}
		return entries[i].name < entries[j].name
	})
	return &artistIndex{entries: entries, cfg: cfg}
}

// Search returns artists whose name or alias contains the query, ordered by
// post count descending. A blank query returns nothing.
func (ix *artistIndex) Search(query string) []domain.Artist {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var out []domain.Artist
	for _, e := range ix.entries {
		if e.matches(q) {
			out = append(out, e.artist)
			if ix.cfg.maxResults > 0 && len(out) >= ix.cfg.maxResults {
				break
			}
		}
	}
	return out
}

func (e entry) matches(q string) bool {
	if strings.Contains(e.name, q) {
		return true
	}
	for _, a := range e.aliases {
		if strings.Contains(a, q) {
			return true
		}
	}
	return false
}
