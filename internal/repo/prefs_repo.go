// Package repo implements the local persistence layer, backed by GORM.
// This file provides the durable implementation of the prefs.Store
// key-value port over the preferences table.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-backend/internal/domain"
)

// PrefStore persists preference key-value pairs through GORM. It satisfies
// prefs.Store.
type PrefStore struct {
	DB *gorm.DB
}

// Get returns the stored value for key and whether it exists.
func (s *PrefStore) Get(ctx context.Context, key string) (string, bool, error) {
	var row domain.Preference
	err := s.DB.WithContext(ctx).First(&row, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return row.Value, true, nil
}

// Set upserts value under key (Save performs an insert-or-update on the
// primary key).
func (s *PrefStore) Set(ctx context.Context, key, value string) error {
	return s.DB.WithContext(ctx).Save(&domain.Preference{Key: key, Value: value}).Error
}

// Remove deletes key; removing an absent key is a no-op.
func (s *PrefStore) Remove(ctx context.Context, key string) error {
	return s.DB.WithContext(ctx).Delete(&domain.Preference{}, "key = ?", key).Error
}
