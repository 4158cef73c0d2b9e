// Package services – ArtistService
//
// This file implements the artist-name pool: the list backing the
// generator, fetched from the raw-content mirror and cached with a longer
// TTL than the prompt list (the pool changes rarely). The loader accepts
// both the current format (a bare array) and the legacy wrapper object.
// Concurrent refreshes share a single in-flight load, mirroring
// PromptService.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tbourn/go-prompt-backend/internal/domain"
	"github.com/tbourn/go-prompt-backend/internal/search"
)

// ArtistsPath is the repository path of the artist pool document.
const ArtistsPath = "public/data/artists.json"

// PoolFetcher is the raw-content read surface (implemented by
// *github.RawReader).
type PoolFetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// ArtistService loads and caches the artist pool and serves name search
// over it.
type ArtistService struct {
	Fetcher PoolFetcher
	TTL     time.Duration

	mu        sync.Mutex
	pool      []domain.Artist
	index     search.Index
	fetchedAt time.Time
	inflight  *poolCall

	now func() time.Time // test seam
}

type poolCall struct {
	done chan struct{}
	pool []domain.Artist
	err  error
}

// NewArtistService constructs an ArtistService with the given TTL (the
// artist-pool default is 15 minutes).
func NewArtistService(f PoolFetcher, ttl time.Duration) *ArtistService {
	return &ArtistService{Fetcher: f, TTL: ttl, now: time.Now}
}

// Get returns the artist pool, serving the cache when fresh unless force is
// set. Concurrent callers during a refresh share one fetch.
func (s *ArtistService) Get(ctx context.Context, force bool) ([]domain.Artist, error) {
	s.mu.Lock()
	if !force && s.pool != nil && s.now().Sub(s.fetchedAt) < s.TTL {
		out := s.pool
		s.mu.Unlock()
		return out, nil
	}
	if c := s.inflight; c != nil {
		s.mu.Unlock()
		select {
		case <-c.done:
			return c.pool, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c := &poolCall{done: make(chan struct{})}
	s.inflight = c
	s.mu.Unlock()

	pool, err := s.load(ctx)

	s.mu.Lock()
	if err == nil {
		s.pool = pool
		s.index = search.NewIndex(pool)
		s.fetchedAt = s.now()
	}
	s.inflight = nil
	s.mu.Unlock()

	c.pool, c.err = pool, err
	close(c.done)
	return pool, err
}

// Search returns artists matching the query by name or alias, most-posted
// first. The pool is loaded (or refreshed past TTL) as needed.
func (s *ArtistService) Search(ctx context.Context, query string) ([]domain.Artist, error) {
	if _, err := s.Get(ctx, false); err != nil {
		return nil, err
	}
	s.mu.Lock()
	ix := s.index
	s.mu.Unlock()
	if ix == nil {
		return nil, nil
	}
	return ix.Search(query), nil
}

// Invalidate drops the cached pool so the next Get refetches.
func (s *ArtistService) Invalidate() {
	s.mu.Lock()
	s.pool = nil
	s.index = nil
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}

// load fetches and decodes the pool document, accepting the bare-array
// format and the legacy {"artists": [...]} wrapper.
func (s *ArtistService) load(ctx context.Context) ([]domain.Artist, error) {
	raw, err := s.Fetcher.Fetch(ctx, ArtistsPath)
	if err != nil {
		return nil, err
	}

	var pool []domain.Artist
	if err := json.Unmarshal(raw, &pool); err == nil && len(pool) > 0 {
		return pool, nil
	}

	var legacy struct {
		Artists []domain.Artist `json:"artists"`
	}
	if err := json.Unmarshal(raw, &legacy); err == nil && len(legacy.Artists) > 0 {
		return legacy.Artists, nil
	}
	return nil, fmt.Errorf("artist pool at %s has no recognizable format", ArtistsPath)
}
