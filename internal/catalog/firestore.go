package catalog

import (
	"context"

	"cloud.google.com/go/firestore"

	platformfs "shusmogames.com/site/internal/platform/firestore"
)

// GamesCollection is the hosted collection holding catalog entries.
const GamesCollection = "games"

// FirestoreSource lists the hosted games collection ordered by title.
type FirestoreSource struct {
	games *platformfs.Collection[map[string]any]
}

// NewFirestoreSource binds the source to the shared provider.
func NewFirestoreSource(provider *platformfs.Provider) *FirestoreSource {
	return &FirestoreSource{
		games: platformfs.NewCollection(provider, GamesCollection, platformfs.MapDecoder()),
	}
}

func (s *FirestoreSource) List(ctx context.Context) ([]Game, error) {
	docs, err := s.games.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy(FieldTitle, firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	games := make([]Game, 0, len(docs))
	for _, doc := range docs {
		games = append(games, NormalizeDocument(doc.ID, doc.Data))
	}
	return games, nil
}
