// Package domain defines the core data types shared across the storage,
// service, and HTTP layers: published prompt records, the chunked-store
// index, and the artist pool served by the generator.
package domain

import "time"

// PromptRecord statuses as they appear in stored chunks and ticket payloads.
const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusPublished = "published"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusArchived  = "archived"
)

// PromptRecord is a community prompt, either a candidate under review or a
// published entry in the chunked store.
//
// TicketNumber and ChunkPath are provenance fields maintained by this
// process only: TicketNumber links a record to its backing submission ticket
// while it is under review, and ChunkPath names the chunk file that owns the
// record once it has been committed. Neither field is written into chunk
// files; ChunkPath is echoed to API clients as _chunkPath so that
// edit/delete calls can address the owning chunk directly.
type PromptRecord struct {
	ID           string   `json:"id"`
	Title        string   `json:"title,omitempty"`
	Prompt       string   `json:"prompt"`
	Model        string   `json:"model"`
	Tags         []string `json:"tags"`
	Description  string   `json:"description"`
	Image        string   `json:"image,omitempty"`
	Username     string   `json:"username,omitempty"`
	Status       string   `json:"status"`
	CreatedAt    int64    `json:"created_at"`
	UpdatedAt    int64    `json:"updated_at,omitempty"`
	ApprovedAt   int64    `json:"approved_at,omitempty"`
	ReviewedBy   string   `json:"reviewed_by,omitempty"`
	ReviewReason string   `json:"review_reason,omitempty"`
	Upvotes      int      `json:"upvotes,omitempty"`
	Downvotes    int      `json:"downvotes,omitempty"`

	// Provenance (process-local, never persisted to the remote store body).
	TicketNumber int    `json:"ticket_number,omitempty"`
	ChunkPath    string `json:"_chunkPath,omitempty"`
}

// ChunkIndex enumerates chunk files and aggregate counts for the chunked
// prompt store. The last entry in Chunks is always the current append
// target until it reaches capacity.
type ChunkIndex struct {
	Chunks      []string `json:"chunks"`
	Total       int      `json:"total"`
	LastUpdated int64    `json:"lastUpdated"` // ms epoch
}

// Artist is one entry of the generator's artist-name pool.
type Artist struct {
	Name       string   `json:"name"`
	OtherNames []string `json:"other_names"`
	PostCount  int      `json:"post_count"`
}

// NowMillis returns the current time as a ms-epoch timestamp, the unit used
// throughout stored records and the chunk index.
func NowMillis() int64 { return time.Now().UnixMilli() }
