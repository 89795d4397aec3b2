package admin

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shusmogames.com/site/internal/settings"
)

func newTestEditor(t *testing.T, games GameStore, store settings.Store) *Editor {
	t.Helper()
	var seq atomic.Int32
	editor, err := NewEditor(EditorDeps{
		Games:    games,
		Settings: store,
		IDGenerator: func() string {
			return "new-" + string(rune('a'+seq.Add(1)-1))
		},
	})
	require.NoError(t, err)
	return editor
}

func TestNewEditorRequiresStores(t *testing.T) {
	_, err := NewEditor(EditorDeps{Settings: settings.NewMemoryStore(settings.Settings{})})
	require.Error(t, err)
	_, err = NewEditor(EditorDeps{Games: NewMemoryGameStore()})
	require.Error(t, err)
}

func TestAddGameCreatesPlaceholderInTitleOrder(t *testing.T) {
	games := NewMemoryGameStore(
		GameRecord{ID: "1", Title: "Alpha"},
		GameRecord{ID: "2", Title: "Zeta"},
	)
	editor := newTestEditor(t, games, settings.NewMemoryStore(settings.Settings{}))

	id, err := editor.AddGame(context.Background())
	require.NoError(t, err)
	require.Equal(t, "new-a", id)

	list, err := editor.ListGames(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, []string{"Alpha", "Untitled", "Zeta"}, []string{list[0].Title, list[1].Title, list[2].Title})
	require.Equal(t, GameRecord{ID: "new-a", Title: "Untitled"}, list[1])
}

func TestDeleteGameRequiresConfirmation(t *testing.T) {
	games := NewMemoryGameStore(GameRecord{ID: "keep", Title: "Keep"})
	editor := newTestEditor(t, games, settings.NewMemoryStore(settings.Settings{}))

	err := editor.DeleteGame(context.Background(), "keep", false)
	require.ErrorIs(t, err, ErrDeleteNotConfirmed)
	list, err := editor.ListGames(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, editor.DeleteGame(context.Background(), "keep", true))
	list, err = editor.ListGames(context.Background())
	require.NoError(t, err)
	require.Empty(t, list)

	require.ErrorIs(t, editor.DeleteGame(context.Background(), " ", true), ErrInvalidGameID)
}

func TestDeleteGameFailureIsWrapped(t *testing.T) {
	games := NewMemoryGameStore(GameRecord{ID: "x", Title: "X"})
	boom := errors.New("permission denied")
	games.Fail["delete"] = boom
	editor := newTestEditor(t, games, settings.NewMemoryStore(settings.Settings{}))

	err := editor.DeleteGame(context.Background(), "x", true)
	require.ErrorIs(t, err, boom)
}

func TestSaveGameTrimsAndMerges(t *testing.T) {
	games := NewMemoryGameStore(GameRecord{ID: "g", Title: "Old"})
	editor := newTestEditor(t, games, settings.NewMemoryStore(settings.Settings{}))

	saved, err := editor.SaveGame(context.Background(), GameRecord{ID: "g", Title: " New ", DownloadURL: " https://x "})
	require.NoError(t, err)
	require.Equal(t, "New", saved.Title)
	require.Equal(t, "https://x", saved.DownloadURL)

	list, err := editor.ListGames(context.Background())
	require.NoError(t, err)
	require.Equal(t, saved, list[0])
}

func TestSaveGameFailureKeepsSubmittedValues(t *testing.T) {
	games := NewMemoryGameStore(GameRecord{ID: "g", Title: "Old"})
	games.Fail["merge"] = errors.New("unavailable")
	editor := newTestEditor(t, games, settings.NewMemoryStore(settings.Settings{}))

	rec, err := editor.SaveGame(context.Background(), GameRecord{ID: "g", Title: "Typed"})
	require.Error(t, err)
	require.Equal(t, "Typed", rec.Title)
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	editor := newTestEditor(t, NewMemoryGameStore(), settings.NewMemoryStore(settings.Settings{}))

	out, err := editor.SaveSettings(context.Background(), settings.Settings{Email: " a@b.c ", Address: "  Street  "})
	require.NoError(t, err)
	require.Equal(t, "a@b.c", out.Email)
	require.Equal(t, "Street", out.Address)

	loaded, err := editor.LoadSettings(context.Background())
	require.NoError(t, err)
	require.Equal(t, out, loaded)
}

func TestSaveSettingsReloadFailureReturnsWrittenValues(t *testing.T) {
	store := settings.NewMemoryStore(settings.Settings{})
	store.GetErr = errors.New("read timeout")
	editor := newTestEditor(t, NewMemoryGameStore(), store)

	out, err := editor.SaveSettings(context.Background(), settings.Settings{Phone: " 555 "})
	require.ErrorIs(t, err, settings.ErrReloadFailed)
	require.Equal(t, "555", out.Phone)
}

func TestLoadDashboardReportsFailuresIndependently(t *testing.T) {
	games := NewMemoryGameStore(GameRecord{ID: "1", Title: "One"})
	store := settings.NewMemoryStore(settings.Settings{})
	store.Err = errors.New("settings offline")
	editor := newTestEditor(t, games, store)

	dash := editor.LoadDashboard(context.Background())
	require.Error(t, dash.SettingsErr)
	require.NoError(t, dash.GamesErr)
	require.Len(t, dash.Games, 1)
}

type blockingStore struct {
	*MemoryGameStore
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingStore) List(ctx context.Context) ([]GameRecord, error) {
	b.calls.Add(1)
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.MemoryGameStore.List(ctx)
}

// staleStore reads its rows first and then holds only the first call until release
// closes, so that call returns whatever the store held when it began.
type staleStore struct {
	*MemoryGameStore
	calls   atomic.Int32
	release chan struct{}
}

func (s *staleStore) List(ctx context.Context) ([]GameRecord, error) {
	rows, err := s.MemoryGameStore.List(ctx)
	if s.calls.Add(1) == 1 {
		<-s.release
	}
	return rows, err
}

func TestListGamesCollapsesConcurrentLoads(t *testing.T) {
	store := &blockingStore{
		MemoryGameStore: NewMemoryGameStore(GameRecord{ID: "1", Title: "One"}),
		release:         make(chan struct{}),
	}
	editor := newTestEditor(t, store, settings.NewMemoryStore(settings.Settings{}))

	var wg sync.WaitGroup
	results := make([][]GameRecord, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = editor.ListGames(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return store.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()

	require.LessOrEqual(t, store.calls.Load(), int32(4))
	for _, res := range results {
		require.Len(t, res, 1)
	}
}

func TestListGamesAfterWriteStartsFreshLoad(t *testing.T) {
	store := &staleStore{
		MemoryGameStore: NewMemoryGameStore(GameRecord{ID: "1", Title: "Alpha"}),
		release:         make(chan struct{}),
	}
	editor := newTestEditor(t, store, settings.NewMemoryStore(settings.Settings{}))

	before := make(chan []GameRecord, 1)
	go func() {
		rows, _ := editor.ListGames(context.Background())
		before <- rows
	}()
	require.Eventually(t, func() bool { return store.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err := editor.AddGame(context.Background())
	require.NoError(t, err)

	after, err := editor.ListGames(context.Background())
	require.NoError(t, err)
	require.Len(t, after, 2)
	require.Equal(t, int32(2), store.calls.Load())

	close(store.release)
	require.Len(t, <-before, 1)
}

func TestListGamesSurvivesCancelledLeader(t *testing.T) {
	store := &blockingStore{
		MemoryGameStore: NewMemoryGameStore(GameRecord{ID: "1", Title: "One"}),
		release:         make(chan struct{}),
	}
	editor := newTestEditor(t, store, settings.NewMemoryStore(settings.Settings{}))

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := editor.ListGames(leaderCtx)
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return store.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		rows []GameRecord
		err  error
	}
	follower := make(chan result, 1)
	go func() {
		rows, err := editor.ListGames(context.Background())
		follower <- result{rows, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-leaderErr, context.Canceled)

	close(store.release)
	got := <-follower
	require.NoError(t, got.err)
	require.Len(t, got.rows, 1)
	require.Equal(t, int32(1), store.calls.Load())
}

func TestFailedWriteStillEndsSharedLoad(t *testing.T) {
	store := &staleStore{
		MemoryGameStore: NewMemoryGameStore(GameRecord{ID: "x", Title: "X"}),
		release:         make(chan struct{}),
	}
	editor := newTestEditor(t, store, settings.NewMemoryStore(settings.Settings{}))

	go func() { _, _ = editor.ListGames(context.Background()) }()
	require.Eventually(t, func() bool { return store.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	store.Fail["delete"] = errors.New("deadline exceeded")
	require.Error(t, editor.DeleteGame(context.Background(), "x", true))

	_, err := editor.ListGames(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), store.calls.Load())
	close(store.release)
}

func TestFindGame(t *testing.T) {
	games := NewMemoryGameStore(GameRecord{ID: "g1", Title: "Moss"})
	editor := newTestEditor(t, games, settings.NewMemoryStore(settings.Settings{}))

	got, err := editor.FindGame(context.Background(), " g1 ")
	require.NoError(t, err)
	require.Equal(t, "Moss", got.Title)

	_, err = editor.FindGame(context.Background(), "missing")
	require.ErrorIs(t, err, ErrGameNotFound)

	_, err = editor.FindGame(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidGameID)
}
