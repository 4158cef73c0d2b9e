// Package prefs provides the client-local preference store. This file
// implements the typed API over the key-value port: favorite artist names,
// locally-saved unsynced drafts, and the persisted generator settings.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tbourn/go-prompt-backend/internal/domain"
)

// GeneratorState is the persisted generator configuration, mirroring what
// the UI saves between sessions.
type GeneratorState struct {
	Mode            string   `json:"mode"`
	Count           int      `json:"count"`
	FilterMode      string   `json:"postFilterMode"`
	FilterThreshold int      `json:"postFilterThreshold"`
	BracketStyle    string   `json:"creativeBracketStyle"`
	NestLevels      int      `json:"creativeNestLevels"`
	WeightMin       float64  `json:"standardWeightMin"`
	WeightMax       float64  `json:"standardWeightMax"`
	NAIWeightMin    float64  `json:"naiWeightMin"`
	NAIWeightMax    float64  `json:"naiWeightMax"`
	CustomFormat    string   `json:"customFormatString"`
	Preselected     []string `json:"preselected"`
	LastResult      string   `json:"final"`
}

// Manager exposes typed preference operations over a Store.
type Manager struct {
	Store Store
}

// NewManager wraps store.
func NewManager(store Store) *Manager {
	return &Manager{Store: store}
}

// Favorites returns the favorite artist names for user, oldest first.
func (m *Manager) Favorites(ctx context.Context, user string) ([]string, error) {
	var names []string
	if err := m.getJSON(ctx, favKey(user), &names); err != nil {
		return nil, err
	}
	return names, nil
}

// AddFavorite appends name to the user's favorites; adding a name already
// present is a no-op.
func (m *Manager) AddFavorite(ctx context.Context, user, name string) error {
	names, err := m.Favorites(ctx, user)
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == name {
			return nil
		}
	}
	return m.setJSON(ctx, favKey(user), append(names, name))
}

// RemoveFavorite drops name from the user's favorites.
func (m *Manager) RemoveFavorite(ctx context.Context, user, name string) error {
	names, err := m.Favorites(ctx, user)
	if err != nil {
		return err
	}
	kept := names[:0]
	for _, n := range names {
		if n != name {
			kept = append(kept, n)
		}
	}
	return m.setJSON(ctx, favKey(user), kept)
}

// Drafts returns the user's locally-saved unsynced drafts.
func (m *Manager) Drafts(ctx context.Context, user string) ([]domain.PromptRecord, error) {
	var drafts []domain.PromptRecord
	if err := m.getJSON(ctx, draftKey(user), &drafts); err != nil {
		return nil, err
	}
	return drafts, nil
}

// SaveDraft stores rec as a local draft, assigning an ID when it has none,
// and returns the stored record. Saving an existing ID replaces that draft.
func (m *Manager) SaveDraft(ctx context.Context, user string, rec domain.PromptRecord) (*domain.PromptRecord, error) {
	drafts, err := m.Drafts(ctx, user)
	if err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Status = domain.StatusDraft
	rec.UpdatedAt = domain.NowMillis()
	if rec.CreatedAt == 0 {
		rec.CreatedAt = rec.UpdatedAt
	}

	replaced := false
	for i := range drafts {
		if drafts[i].ID == rec.ID {
			drafts[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		drafts = append(drafts, rec)
	}
	if err := m.setJSON(ctx, draftKey(user), drafts); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteDraft removes the draft with the given id.
func (m *Manager) DeleteDraft(ctx context.Context, user, id string) error {
	drafts, err := m.Drafts(ctx, user)
	if err != nil {
		return err
	}
	kept := drafts[:0]
	for _, d := range drafts {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	return m.setJSON(ctx, draftKey(user), kept)
}

// GeneratorState returns the persisted generator settings, or nil when the
// user has none saved.
func (m *Manager) GeneratorState(ctx context.Context, user string) (*GeneratorState, error) {
	raw, ok, err := m.Store.Get(ctx, genKey(user))
	if err != nil || !ok {
		return nil, err
	}
	var st GeneratorState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		// Corrupt saved state is dropped rather than surfaced forever.
		_ = m.Store.Remove(ctx, genKey(user))
		return nil, nil
	}
	return &st, nil
}

// SaveGeneratorState persists the generator settings for user.
func (m *Manager) SaveGeneratorState(ctx context.Context, user string, st GeneratorState) error {
	return m.setJSON(ctx, genKey(user), st)
}

func (m *Manager) getJSON(ctx context.Context, key string, out any) error {
	raw, ok, err := m.Store.Get(ctx, key)
	if err != nil || !ok {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("prefs: decode %s: %w", key, err)
	}
	return nil
}

func (m *Manager) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("prefs: encode %s: %w", key, err)
	}
	return m.Store.Set(ctx, key, string(raw))
}

func favKey(user string) string   { return "favorites:" + user }
func draftKey(user string) string { return "drafts:" + user }
func genKey(user string) string   { return "generator:" + user }
