// Package services – VoteService
//
// This file implements public voting on published prompts. Uniqueness is
// enforced per caller per prompt by hashing the client IP with a
// server-side salt and inserting into a table with a unique
// (prompt_id, ip_hash) index; the raw address is never stored. Vote totals
// are derived from the ledger rather than mutating stored chunk files.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-backend/internal/domain"
	"github.com/tbourn/go-prompt-backend/internal/repo"
)

// Vote directions.
const (
	VoteUp   = "up"
	VoteDown = "down"
)

// VoteService records up/down votes with per-IP uniqueness.
type VoteService struct {
	// DB is the database handle used for all vote operations.
	DB *gorm.DB
	// Salt is mixed into the IP hash so the ledger cannot be reversed into
	// addresses by rainbow lookup.
	Salt string
}

// Vote records a vote for promptID keyed by the hashed caller address and
// returns the updated totals.
//
// Semantics and validation:
//   - direction must be exactly "up" or "down"; otherwise ErrInvalidVote.
//   - ip must be non-empty; otherwise ErrNoClientIP.
//   - A caller may vote at most once per prompt; a second vote yields
//     ErrDuplicateVote and leaves the totals unchanged.
func (s *VoteService) Vote(ctx context.Context, promptID, ip, direction string) (up, down int64, err error) {
	if direction != VoteUp && direction != VoteDown {
		return 0, 0, ErrInvalidVote
	}
	if strings.TrimSpace(ip) == "" {
		return 0, 0, ErrNoClientIP
	}

	v := &domain.Vote{
		ID:        uuid.NewString(),
		PromptID:  promptID,
		IPHash:    s.HashIP(ip),
		Vote:      direction,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateVote(ctx, s.DB, v); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err) {
			return 0, 0, ErrDuplicateVote
		}
		return 0, 0, err
	}
	return repo.CountVotes(ctx, s.DB, promptID)
}

// Totals returns the current vote counts for promptID without recording
// anything.
func (s *VoteService) Totals(ctx context.Context, promptID string) (up, down int64, err error) {
	return repo.CountVotes(ctx, s.DB, promptID)
}

// HashIP returns the hex sha256 of ip mixed with the service salt.
func (s *VoteService) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + ":" + s.Salt))
	return hex.EncodeToString(sum[:])
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
