// Package domain defines the core data types for the application. This file
// holds the models persisted in the local SQLite database: vote ledger rows
// and the generic preference key-value rows backing the prefs store. These
// types are mapped with GORM.
package domain

import "time"

// Vote records a single up/down vote on a published prompt, keyed by a
// salted hash of the caller's IP. The unique index on (prompt_id, ip_hash)
// is what enforces one vote per caller per prompt.
type Vote struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	PromptID  string    `json:"prompt_id" gorm:"type:varchar(64);not null;index;uniqueIndex:ux_vote_prompt_ip"`
	IPHash    string    `json:"-"         gorm:"type:char(64);not null;uniqueIndex:ux_vote_prompt_ip"`
	Vote      string    `json:"vote"      gorm:"type:varchar(8);not null;check:vote IN ('up','down')"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Vote.
func (Vote) TableName() string { return "prompt_votes" }

// Preference is a generic key-value row backing the prefs.Store port
// (favorites, unsynced local drafts, generator settings, and other small
// client-local state).
type Preference struct {
	Key       string    `gorm:"type:varchar(255);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the database table name for Preference.
func (Preference) TableName() string { return "preferences" }
