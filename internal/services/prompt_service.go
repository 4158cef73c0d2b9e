// Package services – PromptService
//
// This file implements the aggregate cache over the chunked store's read
// path. The fully-materialized record list is cached with a TTL; concurrent
// callers during a refresh share a single in-flight load instead of issuing
// duplicate fan-outs. Published records can also be edited or deleted here,
// which delegates to the chunked store and invalidates the cache.
package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tbourn/go-prompt-backend/internal/domain"
)

// RecordLoader is the read surface of the chunked store (implemented by
// *storage.ChunkStore).
type RecordLoader interface {
	LoadAll(ctx context.Context) ([]domain.PromptRecord, error)
}

// RecordEditor is the in-place edit surface of the chunked store
// (implemented by *storage.ChunkStore).
type RecordEditor interface {
	Remove(ctx context.Context, id, knownChunkPath string) error
	Update(ctx context.Context, rec domain.PromptRecord) error
}

// loadCall is one shared in-flight refresh. All callers arriving while it is
// pending await its done channel and share its result.
type loadCall struct {
	done    chan struct{}
	records []domain.PromptRecord
	err     error
}

// PromptService serves the published prompt list from a TTL cache and
// applies edits to published records.
type PromptService struct {
	Loader RecordLoader
	Editor RecordEditor
	TTL    time.Duration

	mu        sync.Mutex
	cached    []domain.PromptRecord
	fetchedAt time.Time
	inflight  *loadCall

	now func() time.Time // test seam
}

// NewPromptService constructs a PromptService with the given TTL (the
// published-prompts default is 5 minutes).
func NewPromptService(loader RecordLoader, editor RecordEditor, ttl time.Duration) *PromptService {
	return &PromptService{Loader: loader, Editor: editor, TTL: ttl, now: time.Now}
}

// Get returns the published record list. The cached copy is served when
// force is false and the cache is non-empty and younger than the TTL;
// otherwise a load runs, shared with any concurrent caller.
func (s *PromptService) Get(ctx context.Context, force bool) ([]domain.PromptRecord, error) {
	s.mu.Lock()
	if !force && s.cached != nil && s.now().Sub(s.fetchedAt) < s.TTL {
		out := s.cached
		s.mu.Unlock()
		return out, nil
	}
	if c := s.inflight; c != nil {
		s.mu.Unlock()
		select {
		case <-c.done:
			return c.records, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c := &loadCall{done: make(chan struct{})}
	s.inflight = c
	s.mu.Unlock()

	records, err := s.Loader.LoadAll(ctx)

	s.mu.Lock()
	if err == nil {
		s.cached = records
		s.fetchedAt = s.now()
	}
	s.inflight = nil
	s.mu.Unlock()

	c.records, c.err = records, err
	close(c.done)
	return records, err
}

// Invalidate drops the cached list so the next Get reloads.
func (s *PromptService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}

// Search filters the cached record set by a case-insensitive substring match
// over title, prompt, tags, and username, newest first.
func (s *PromptService) Search(ctx context.Context, query string) ([]domain.PromptRecord, error) {
	records, err := s.Get(ctx, false)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return records, nil
	}

	var out []domain.PromptRecord
	for _, r := range records {
		if matchesRecord(r, q) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

// Delete removes a published record from its owning chunk and invalidates
// the cache. Deleting does not reopen the originating ticket.
func (s *PromptService) Delete(ctx context.Context, id, chunkPath string) error {
	if err := s.Editor.Remove(ctx, id, chunkPath); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// UpdatePublished edits a published record in place and invalidates the
// cache.
func (s *PromptService) UpdatePublished(ctx context.Context, rec domain.PromptRecord) error {
	if err := s.Editor.Update(ctx, rec); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

func matchesRecord(r domain.PromptRecord, q string) bool {
	if strings.Contains(strings.ToLower(r.Title), q) ||
		strings.Contains(strings.ToLower(r.Prompt), q) ||
		strings.Contains(strings.ToLower(r.Username), q) {
		return true
	}
	for _, t := range r.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}
