// Package repo implements the local persistence layer, backed by GORM.
// This file provides repository functions for the vote ledger.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only CRUD persistence and query composition.
//
// Error semantics:
//   - Unique-constraint violations on (prompt_id, ip_hash) propagate as the
//     raw driver error; the service layer maps them to ErrDuplicateVote.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist. It aliases
// gorm.ErrRecordNotFound for convenience and consistency across the service
// layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateVote inserts a vote row. The unique (prompt_id, ip_hash) index makes
// a second vote by the same hashed caller fail with a constraint error.
func CreateVote(ctx context.Context, db *gorm.DB, v *domain.Vote) error {
	return db.WithContext(ctx).Create(v).Error
}

// CountVotes returns the up/down totals for a prompt.
func CountVotes(ctx context.Context, db *gorm.DB, promptID string) (up, down int64, err error) {
	q := db.WithContext(ctx).Model(&domain.Vote{}).Where("prompt_id = ?", promptID)
	if err = q.Where("vote = ?", "up").Count(&up).Error; err != nil {
		return 0, 0, err
	}
	q = db.WithContext(ctx).Model(&domain.Vote{}).Where("prompt_id = ?", promptID)
	if err = q.Where("vote = ?", "down").Count(&down).Error; err != nil {
		return 0, 0, err
	}
	return up, down, nil
}
