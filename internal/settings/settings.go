// Package settings stores the singleton contact document edited from the admin console.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"

	platformfs "shusmogames.com/site/internal/platform/firestore"
)

const (
	Collection = "settings"
	DocumentID = "contact"
)

// Settings is the contact document.
type Settings struct {
	Email     string
	Phone     string
	Address   string
	UpdatedAt time.Time
}

// IsZero reports whether no contact field is set.
func (s Settings) IsZero() bool {
	return s.Email == "" && s.Phone == "" && s.Address == ""
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (s Settings) Trimmed() Settings {
	s.Email = strings.TrimSpace(s.Email)
	s.Phone = strings.TrimSpace(s.Phone)
	s.Address = strings.TrimSpace(s.Address)
	return s
}

// ErrReloadFailed reports a merge that succeeded followed by a failed read-back.
var ErrReloadFailed = errors.New("settings: saved but reload failed")

// Store reads and merges the settings document. A missing document reads as zero Settings.
type Store interface {
	Get(ctx context.Context) (Settings, error)
	Merge(ctx context.Context, s Settings) error
}

// Save trims the input, merges it into the store and returns what the store now holds.
// When only the read-back fails the trimmed input is returned with ErrReloadFailed.
func Save(ctx context.Context, store Store, in Settings) (Settings, error) {
	written := in.Trimmed()
	if err := store.Merge(ctx, written); err != nil {
		return Settings{}, fmt.Errorf("settings: save: %w", err)
	}
	out, err := store.Get(ctx)
	if err != nil {
		return written, fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}
	return out, nil
}

// FirestoreStore keeps settings at settings/contact.
type FirestoreStore struct {
	docs *platformfs.Collection[map[string]any]
}

func NewFirestoreStore(provider *platformfs.Provider) *FirestoreStore {
	return &FirestoreStore{docs: platformfs.NewCollection(provider, Collection, platformfs.MapDecoder())}
}

func (s *FirestoreStore) Get(ctx context.Context) (Settings, error) {
	doc, err := s.docs.Get(ctx, DocumentID)
	if platformfs.IsNotFound(err) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, err
	}
	out := Settings{
		Email:   stringValue(doc.Data["email"]),
		Phone:   stringValue(doc.Data["phone"]),
		Address: stringValue(doc.Data["address"]),
	}
	if ts, ok := doc.Data["updatedAt"].(time.Time); ok {
		out.UpdatedAt = ts
	}
	return out, nil
}

func (s *FirestoreStore) Merge(ctx context.Context, in Settings) error {
	return s.docs.Merge(ctx, DocumentID, map[string]any{
		"email":     in.Email,
		"phone":     in.Phone,
		"address":   in.Address,
		"updatedAt": firestore.ServerTimestamp,
	})
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// MemoryStore is an in-process Store for local development and tests.
type MemoryStore struct {
	mu      sync.Mutex
	current Settings
	now     func() time.Time
	// Err, when set, fails every call.
	Err error
	// GetErr, when set, fails Get only.
	GetErr error
}

func NewMemoryStore(initial Settings) *MemoryStore {
	return &MemoryStore{current: initial, now: time.Now}
}

func (m *MemoryStore) Get(context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return Settings{}, m.Err
	}
	if m.GetErr != nil {
		return Settings{}, m.GetErr
	}
	return m.current, nil
}

func (m *MemoryStore) Merge(_ context.Context, in Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.current = Settings{Email: in.Email, Phone: in.Phone, Address: in.Address, UpdatedAt: m.now().UTC()}
	return nil
}
