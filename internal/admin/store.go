package admin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cloud.google.com/go/firestore"

	"shusmogames.com/site/internal/catalog"
	platformfs "shusmogames.com/site/internal/platform/firestore"
)

// FirestoreGameStore edits the hosted games collection.
type FirestoreGameStore struct {
	docs *platformfs.Collection[map[string]any]
}

func NewFirestoreGameStore(provider *platformfs.Provider) *FirestoreGameStore {
	return &FirestoreGameStore{docs: platformfs.NewCollection(provider, catalog.GamesCollection, platformfs.MapDecoder())}
}

func (s *FirestoreGameStore) List(ctx context.Context) ([]GameRecord, error) {
	docs, err := s.docs.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy(catalog.FieldTitle, firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	out := make([]GameRecord, 0, len(docs))
	for _, doc := range docs {
		out = append(out, GameRecord{
			ID:          doc.ID,
			Title:       stringValue(doc.Data[catalog.FieldTitle]),
			Description: stringValue(doc.Data[catalog.FieldDescription]),
			Image:       stringValue(doc.Data[catalog.FieldImage]),
			DownloadURL: stringValue(doc.Data[catalog.FieldDownloadURL]),
		})
	}
	return out, nil
}

func (s *FirestoreGameStore) Create(ctx context.Context, rec GameRecord) error {
	return s.docs.Create(ctx, rec.ID, map[string]any{
		catalog.FieldTitle:       rec.Title,
		catalog.FieldDescription: rec.Description,
		catalog.FieldImage:       rec.Image,
		catalog.FieldDownloadURL: rec.DownloadURL,
	})
}

func (s *FirestoreGameStore) Merge(ctx context.Context, rec GameRecord) error {
	return s.docs.Merge(ctx, rec.ID, map[string]any{
		catalog.FieldTitle:       rec.Title,
		catalog.FieldDescription: rec.Description,
		catalog.FieldImage:       rec.Image,
		catalog.FieldDownloadURL: rec.DownloadURL,
		catalog.FieldUpdatedAt:   firestore.ServerTimestamp,
	})
}

func (s *FirestoreGameStore) Delete(ctx context.Context, id string) error {
	return s.docs.Delete(ctx, id)
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// MemoryGameStore keeps games in process, ordered like the hosted query.
type MemoryGameStore struct {
	mu    sync.Mutex
	games map[string]GameRecord
	// Fail maps an operation name (list, create, merge, delete) to an injected error.
	Fail map[string]error
}

func NewMemoryGameStore(seed ...GameRecord) *MemoryGameStore {
	m := &MemoryGameStore{games: make(map[string]GameRecord), Fail: map[string]error{}}
	for _, rec := range seed {
		m.games[rec.ID] = rec
	}
	return m
}

func (m *MemoryGameStore) List(context.Context) ([]GameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["list"]; err != nil {
		return nil, err
	}
	out := make([]GameRecord, 0, len(m.games))
	for _, rec := range m.games {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryGameStore) Create(_ context.Context, rec GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["create"]; err != nil {
		return err
	}
	if _, exists := m.games[rec.ID]; exists {
		return fmt.Errorf("games/%s already exists", rec.ID)
	}
	m.games[rec.ID] = rec
	return nil
}

func (m *MemoryGameStore) Merge(_ context.Context, rec GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["merge"]; err != nil {
		return err
	}
	m.games[rec.ID] = rec
	return nil
}

func (m *MemoryGameStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["delete"]; err != nil {
		return err
	}
	delete(m.games, id)
	return nil
}
