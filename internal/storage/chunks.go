// Package storage implements the chunked flat-file store for published
// prompt records, layered over the GitHub contents API.
//
// Layout: an index document (index.json) lists ordered chunk file names and
// aggregate counts; each chunk file holds up to ChunkSize records, newest
// first. The last chunk named by the index is always the current append
// target until it reaches capacity. Fixed-capacity sharding keeps every
// fetched/parsed file small regardless of how many records exist.
//
// Writes go through the authenticated API and carry the SHA obtained from
// the most recent read of the same file, so a concurrent writer surfaces as
// github.ErrConflict rather than a silent lost update. Reads on the public
// path go through the raw-content mirror with cache busting.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-prompt-backend/internal/domain"
	"github.com/tbourn/go-prompt-backend/internal/github"
)

const (
	// ChunkSize is the record capacity of a single chunk file.
	ChunkSize = 50

	// readBatchSize bounds the parallel fan-out when loading all chunks.
	readBatchSize = 5

	// BasePath is the repository directory holding the index, chunks, and
	// the legacy flat file.
	BasePath = "public/data"
)

// Well-known store paths.
var (
	IndexPath  = BasePath + "/index.json"
	LegacyPath = BasePath + "/prompts.json"
)

// Remote is the authenticated read/write surface of the content store
// consumed by ChunkStore (implemented by *github.Client).
type Remote interface {
	ReadFile(ctx context.Context, path string) (*github.FileContent, error)
	WriteFile(ctx context.Context, path string, content []byte, sha, message string) error
}

// RawFetcher is the unauthenticated read surface used for the public
// fan-out (implemented by *github.RawReader).
type RawFetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// ChunkStore presents an append-only, sharded record store over the remote
// content host. It is safe for concurrent use; cross-client consistency
// relies entirely on the host's SHA check.
type ChunkStore struct {
	remote Remote
	raw    RawFetcher
}

// NewChunkStore builds a ChunkStore over the given remote and raw reader.
func NewChunkStore(remote Remote, raw RawFetcher) *ChunkStore {
	return &ChunkStore{remote: remote, raw: raw}
}

// LoadAll materializes the full published record set: it reads the index,
// falls back to the legacy flat file when no index exists, and otherwise
// fan-out-reads every chunk in batches of five, concatenating contents in
// index order. A chunk that fails to fetch or parse contributes zero records
// instead of failing the load. Each record is tagged with its source chunk
// path.
func (s *ChunkStore) LoadAll(ctx context.Context) ([]domain.PromptRecord, error) {
	rawIdx, err := s.raw.Fetch(ctx, IndexPath)
	if err != nil {
		if errors.Is(err, github.ErrNotFound) {
			return s.loadLegacy(ctx)
		}
		return nil, err
	}

	var idx domain.ChunkIndex
	if err := json.Unmarshal(rawIdx, &idx); err != nil {
		log.Warn().Err(err).Msg("chunk index unparseable, trying legacy file")
		return s.loadLegacy(ctx)
	}
	if len(idx.Chunks) == 0 {
		return []domain.PromptRecord{}, nil
	}

	out := make([][]domain.PromptRecord, len(idx.Chunks))
	for start := 0; start < len(idx.Chunks); start += readBatchSize {
		end := start + readBatchSize
		if end > len(idx.Chunks) {
			end = len(idx.Chunks)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				out[i] = s.loadChunk(ctx, idx.Chunks[i])
			}(i)
		}
		wg.Wait()
	}

	var all []domain.PromptRecord
	for _, records := range out {
		all = append(all, records...)
	}
	if all == nil {
		all = []domain.PromptRecord{}
	}
	return all, nil
}

// loadChunk fetches and parses a single chunk, returning nil on any failure.
func (s *ChunkStore) loadChunk(ctx context.Context, name string) []domain.PromptRecord {
	path := BasePath + "/" + name
	raw, err := s.raw.Fetch(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("chunk", name).Msg("chunk fetch failed, skipping")
		return nil
	}
	var records []domain.PromptRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		log.Warn().Err(err).Str("chunk", name).Msg("chunk unparseable, skipping")
		return nil
	}
	for i := range records {
		records[i].ChunkPath = path
	}
	return records
}

// loadLegacy reads the pre-chunking flat file; absence means an empty store.
func (s *ChunkStore) loadLegacy(ctx context.Context) ([]domain.PromptRecord, error) {
	raw, err := s.raw.Fetch(ctx, LegacyPath)
	if err != nil {
		if errors.Is(err, github.ErrNotFound) {
			return []domain.PromptRecord{}, nil
		}
		return nil, err
	}
	var records []domain.PromptRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		log.Warn().Err(err).Msg("legacy prompt file unparseable")
		return []domain.PromptRecord{}, nil
	}
	for i := range records {
		records[i].ChunkPath = LegacyPath
	}
	return records, nil
}

// Append commits rec into the current target chunk: the last chunk named by
// the index, or a freshly allocated one when that chunk is full (or when no
// index exists yet). Appending a record whose ID is already present in the
// target chunk is a no-op. The chunk write happens before the index write;
// both carry the SHA from their own preceding read, so either write may
// fail with github.ErrConflict and the caller is expected to re-run the
// whole sequence.
func (s *ChunkStore) Append(ctx context.Context, rec domain.PromptRecord, message string) error {
	idx, idxSHA, err := s.readIndex(ctx)
	if err != nil {
		return err
	}

	var (
		chunkName string
		chunkSHA  string
		records   []domain.PromptRecord
	)

	if len(idx.Chunks) == 0 {
		chunkName = "chunk_0.json"
		idx.Chunks = []string{chunkName}
	} else {
		chunkName = idx.Chunks[len(idx.Chunks)-1]
		fc, err := s.remote.ReadFile(ctx, BasePath+"/"+chunkName)
		switch {
		case errors.Is(err, github.ErrNotFound):
			// Index names a chunk that was never written; treat as empty.
		case err != nil:
			return err
		default:
			chunkSHA = fc.SHA
			if err := json.Unmarshal(fc.Content, &records); err != nil {
				return fmt.Errorf("storage: chunk %s unparseable: %w", chunkName, err)
			}
		}

		if len(records) >= ChunkSize {
			chunkName = fmt.Sprintf("chunk_%d.json", len(idx.Chunks))
			idx.Chunks = append(idx.Chunks, chunkName)
			chunkSHA = ""
			records = nil
		}
	}

	for _, r := range records {
		if r.ID == rec.ID {
			return nil
		}
	}

	records = append([]domain.PromptRecord{stripProvenance(rec)}, records...)
	if err := s.writeJSON(ctx, BasePath+"/"+chunkName, records, chunkSHA, message); err != nil {
		return err
	}

	idx.Total++
	idx.LastUpdated = domain.NowMillis()
	return s.writeJSON(ctx, IndexPath, idx, idxSHA, message)
}

// Remove rewrites the owning chunk with the record filtered out. When the
// owning chunk is unknown (pre-chunking record), the legacy flat file is
// assumed.
func (s *ChunkStore) Remove(ctx context.Context, id, knownChunkPath string) error {
	path := knownChunkPath
	if path == "" {
		path = LegacyPath
	}

	fc, err := s.remote.ReadFile(ctx, path)
	if err != nil {
		return err
	}
	var records []domain.PromptRecord
	if err := json.Unmarshal(fc.Content, &records); err != nil {
		return fmt.Errorf("storage: chunk %s unparseable: %w", path, err)
	}

	kept := records[:0]
	for _, r := range records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	msg := fmt.Sprintf("chore: delete prompt %s", id)
	return s.writeJSON(ctx, path, kept, fc.SHA, msg)
}

// Update replaces a record in its owning chunk, merging rec over the stored
// fields and stamping updated_at.
func (s *ChunkStore) Update(ctx context.Context, rec domain.PromptRecord) error {
	path := rec.ChunkPath
	if path == "" {
		path = LegacyPath
	}

	fc, err := s.remote.ReadFile(ctx, path)
	if err != nil {
		return err
	}
	var records []domain.PromptRecord
	if err := json.Unmarshal(fc.Content, &records); err != nil {
		return fmt.Errorf("storage: chunk %s unparseable: %w", path, err)
	}

	for i := range records {
		if records[i].ID == rec.ID {
			records[i] = mergeRecord(records[i], rec)
		}
	}
	msg := fmt.Sprintf("feat: update prompt %s", rec.ID)
	return s.writeJSON(ctx, path, records, fc.SHA, msg)
}

// readIndex fetches the index through the authenticated API so the returned
// SHA can guard the subsequent write. A missing index is an empty store, not
// an error.
func (s *ChunkStore) readIndex(ctx context.Context) (domain.ChunkIndex, string, error) {
	fc, err := s.remote.ReadFile(ctx, IndexPath)
	if err != nil {
		if errors.Is(err, github.ErrNotFound) {
			return domain.ChunkIndex{}, "", nil
		}
		return domain.ChunkIndex{}, "", err
	}
	var idx domain.ChunkIndex
	if err := json.Unmarshal(fc.Content, &idx); err != nil {
		return domain.ChunkIndex{}, "", fmt.Errorf("storage: index unparseable: %w", err)
	}
	return idx, fc.SHA, nil
}

// writeJSON marshals v with indentation (keeping the files reviewable in the
// backing repository) and writes it through the API.
func (s *ChunkStore) writeJSON(ctx context.Context, path string, v any, sha, message string) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", path, err)
	}
	return s.remote.WriteFile(ctx, path, buf, sha, message)
}

// stripProvenance clears the process-local fields before a record is
// serialized into a chunk body.
func stripProvenance(rec domain.PromptRecord) domain.PromptRecord {
	rec.TicketNumber = 0
	rec.ChunkPath = ""
	return rec
}

// mergeRecord overlays upd onto old, preserving creation/approval metadata
// and vote counters that the caller did not supply.
func mergeRecord(old, upd domain.PromptRecord) domain.PromptRecord {
	out := stripProvenance(upd)
	if out.CreatedAt == 0 {
		out.CreatedAt = old.CreatedAt
	}
	if out.ApprovedAt == 0 {
		out.ApprovedAt = old.ApprovedAt
	}
	if out.Status == "" {
		out.Status = old.Status
	}
	if out.Upvotes == 0 {
		out.Upvotes = old.Upvotes
	}
	if out.Downvotes == 0 {
		out.Downvotes = old.Downvotes
	}
	out.UpdatedAt = domain.NowMillis()
	return out
}
