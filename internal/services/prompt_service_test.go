package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tbourn/go-prompt-backend/internal/domain"
)

// fakeLoader counts loads, optionally blocking until released.
type fakeLoader struct {
	records []domain.PromptRecord
	err     error
	calls   atomic.Int32

	block   chan struct{} // when non-nil, LoadAll waits on it
	started chan struct{} // signaled once per LoadAll entry
}

func (f *fakeLoader) LoadAll(ctx context.Context) ([]domain.PromptRecord, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.records, f.err
}

// fakeEditor records edits.
type fakeEditor struct {
	removed []string
	updated []domain.PromptRecord
	err     error
}

func (f *fakeEditor) Remove(_ context.Context, id, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeEditor) Update(_ context.Context, rec domain.PromptRecord) error {
	if f.err != nil {
		return f.err
	}
	f.updated = append(f.updated, rec)
	return nil
}

func published(id, title string, createdAt int64) domain.PromptRecord {
	return domain.PromptRecord{
		ID: id, Title: title, Prompt: "prompt for " + title,
		Status: domain.StatusPublished, CreatedAt: createdAt,
	}
}

func TestPromptGet_ServesCacheWithinTTL(t *testing.T) {
	loader := &fakeLoader{records: []domain.PromptRecord{published("a", "A", 1)}}
	svc := NewPromptService(loader, &fakeEditor{}, 5*time.Minute)

	now := time.Now()
	svc.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		out, err := svc.Get(context.Background(), false)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if len(out) != 1 {
			t.Fatalf("len = %d", len(out))
		}
	}
	if got := loader.calls.Load(); got != 1 {
		t.Fatalf("loads = %d, want 1", got)
	}
}

func TestPromptGet_ReloadsAfterTTL(t *testing.T) {
	loader := &fakeLoader{records: []domain.PromptRecord{published("a", "A", 1)}}
	svc := NewPromptService(loader, &fakeEditor{}, 5*time.Minute)

	now := time.Now()
	svc.now = func() time.Time { return now }

	_, _ = svc.Get(context.Background(), false)
	now = now.Add(5*time.Minute + time.Second)
	_, _ = svc.Get(context.Background(), false)

	if got := loader.calls.Load(); got != 2 {
		t.Fatalf("loads = %d, want 2", got)
	}
}

func TestPromptGet_ForceBypassesCache(t *testing.T) {
	loader := &fakeLoader{records: []domain.PromptRecord{published("a", "A", 1)}}
	svc := NewPromptService(loader, &fakeEditor{}, time.Hour)

	_, _ = svc.Get(context.Background(), false)
	_, _ = svc.Get(context.Background(), true)

	if got := loader.calls.Load(); got != 2 {
		t.Fatalf("loads = %d, want 2", got)
	}
}

func TestPromptGet_ConcurrentCallersShareOneLoad(t *testing.T) {
	loader := &fakeLoader{
		records: []domain.PromptRecord{published("a", "A", 1)},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	svc := NewPromptService(loader, &fakeEditor{}, time.Hour)

	var wg sync.WaitGroup
	results := make([]int, 5)

	// First caller owns the load.
	wg.Add(1)
	go func() {
		defer wg.Done()
		out, _ := svc.Get(context.Background(), false)
		results[0] = len(out)
	}()
	<-loader.started

	// Late arrivals must await the same in-flight call.
	for i := 1; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, _ := svc.Get(context.Background(), false)
			results[i] = len(out)
		}(i)
	}

	close(loader.block)
	wg.Wait()

	if got := loader.calls.Load(); got != 1 {
		t.Fatalf("loads = %d, want a single shared load", got)
	}
	for i, n := range results {
		if n != 1 {
			t.Fatalf("caller %d got %d records", i, n)
		}
	}
}

func TestPromptGet_ErrorNotCached(t *testing.T) {
	loader := &fakeLoader{err: errors.New("mirror down")}
	svc := NewPromptService(loader, &fakeEditor{}, time.Hour)

	if _, err := svc.Get(context.Background(), false); err == nil {
		t.Fatalf("expected error")
	}
	loader.err = nil
	loader.records = []domain.PromptRecord{published("a", "A", 1)}
	out, err := svc.Get(context.Background(), false)
	if err != nil || len(out) != 1 {
		t.Fatalf("recovery failed: %v %d", err, len(out))
	}
	if got := loader.calls.Load(); got != 2 {
		t.Fatalf("loads = %d", got)
	}
}

func TestPromptInvalidate_DropsCache(t *testing.T) {
	loader := &fakeLoader{records: []domain.PromptRecord{published("a", "A", 1)}}
	svc := NewPromptService(loader, &fakeEditor{}, time.Hour)

	_, _ = svc.Get(context.Background(), false)
	svc.Invalidate()
	_, _ = svc.Get(context.Background(), false)

	if got := loader.calls.Load(); got != 2 {
		t.Fatalf("loads = %d, want 2", got)
	}
}

func TestPromptSearch_MatchesFieldsNewestFirst(t *testing.T) {
	forest := published("a", "Misty Forest", 100)
	forest.Tags = []string{"landscape"}
	city := published("b", "Neon City", 200)
	city.Username = "misty_artist"
	ocean := published("c", "Ocean", 300)

	loader := &fakeLoader{records: []domain.PromptRecord{forest, city, ocean}}
	svc := NewPromptService(loader, &fakeEditor{}, time.Hour)

	out, err := svc.Search(context.Background(), "MISTY")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].ID != "b" || out[1].ID != "a" {
		t.Fatalf("order = %s, %s", out[0].ID, out[1].ID)
	}

	out, err = svc.Search(context.Background(), "landscape")
	if err != nil || len(out) != 1 || out[0].ID != "a" {
		t.Fatalf("tag search = %+v (%v)", out, err)
	}

	out, err = svc.Search(context.Background(), "  ")
	if err != nil || len(out) != 3 {
		t.Fatalf("blank query must return all: %d (%v)", len(out), err)
	}
}

func TestDeleteAndUpdate_InvalidateCache(t *testing.T) {
	loader := &fakeLoader{records: []domain.PromptRecord{published("a", "A", 1)}}
	editor := &fakeEditor{}
	svc := NewPromptService(loader, editor, time.Hour)

	_, _ = svc.Get(context.Background(), false)
	if err := svc.Delete(context.Background(), "a", "public/data/chunk_0.json"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, _ = svc.Get(context.Background(), false)

	if err := svc.UpdatePublished(context.Background(), published("a", "A2", 1)); err != nil {
		t.Fatalf("update: %v", err)
	}
	_, _ = svc.Get(context.Background(), false)

	if got := loader.calls.Load(); got != 3 {
		t.Fatalf("loads = %d, want reload after each edit", got)
	}
	if len(editor.removed) != 1 || len(editor.updated) != 1 {
		t.Fatalf("editor calls = %+v", editor)
	}
}

func TestDelete_EditorFailureKeepsCache(t *testing.T) {
	loader := &fakeLoader{records: []domain.PromptRecord{published("a", "A", 1)}}
	editor := &fakeEditor{err: errors.New("conflict")}
	svc := NewPromptService(loader, editor, time.Hour)

	_, _ = svc.Get(context.Background(), false)
	if err := svc.Delete(context.Background(), "a", ""); err == nil {
		t.Fatalf("expected error")
	}
	_, _ = svc.Get(context.Background(), false)

	if got := loader.calls.Load(); got != 1 {
		t.Fatalf("loads = %d, failed edit must not invalidate", got)
	}
}
