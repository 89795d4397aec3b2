// Package admin implements the console's editing operations over the hosted games
// collection and the contact settings document.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"shusmogames.com/site/internal/catalog"
	"shusmogames.com/site/internal/settings"
)

var (
	// ErrDeleteNotConfirmed is returned when a delete arrives without explicit confirmation.
	ErrDeleteNotConfirmed = errors.New("admin: delete not confirmed")
	// ErrInvalidGameID rejects blank document ids.
	ErrInvalidGameID = errors.New("admin: game id is required")
	// ErrGameNotFound is returned when no games document has the requested id.
	ErrGameNotFound = errors.New("admin: game not found")
)

// GameRecord is the editable projection of a games document.
type GameRecord struct {
	ID          string
	Title       string
	Description string
	Image       string
	DownloadURL string
}

// Trimmed strips surrounding whitespace from every editable field.
func (r GameRecord) Trimmed() GameRecord {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Image = strings.TrimSpace(r.Image)
	r.DownloadURL = strings.TrimSpace(r.DownloadURL)
	return r
}

// GameStore persists games documents. List returns documents ordered by title.
type GameStore interface {
	List(ctx context.Context) ([]GameRecord, error)
	Create(ctx context.Context, rec GameRecord) error
	Merge(ctx context.Context, rec GameRecord) error
	Delete(ctx context.Context, id string) error
}

// listLoadTimeout bounds a shared list load, which outlives any single caller's context.
const listLoadTimeout = 30 * time.Second

// EditorDeps wires the Editor.
type EditorDeps struct {
	Games       GameStore
	Settings    settings.Store
	Logger      *zap.Logger
	IDGenerator func() string
}

// Editor performs console mutations and serializes list reloads.
type Editor struct {
	games    GameStore
	settings settings.Store
	logger   *zap.Logger
	newID    func() string
	lists    singleflight.Group

	// generation advances after every write; loads are only shared within one generation.
	generation atomic.Uint64
}

func NewEditor(deps EditorDeps) (*Editor, error) {
	if deps.Games == nil {
		return nil, errors.New("admin editor: game store is required")
	}
	if deps.Settings == nil {
		return nil, errors.New("admin editor: settings store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &Editor{
		games:    deps.Games,
		settings: deps.Settings,
		logger:   logger,
		newID:    idGen,
	}, nil
}

// ListGames loads the games list. Concurrent callers share one in-flight load so a
// redraw never interleaves with another, but a load never spans a write: a caller that
// arrives after a mutation starts a fresh read. The shared read is detached from the
// first caller's cancellation; each caller still stops waiting when its own ctx ends.
func (e *Editor) ListGames(ctx context.Context) ([]GameRecord, error) {
	key := "games:" + strconv.FormatUint(e.generation.Load(), 10)
	ch := e.lists.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), listLoadTimeout)
		defer cancel()
		return e.games.List(loadCtx)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("admin: list games: %w", ctx.Err())
	case res = <-ch:
	}
	if res.Shared {
		e.logger.Debug("admin: games list load shared", zap.String("key", key))
	}
	if res.Err != nil {
		return nil, fmt.Errorf("admin: list games: %w", res.Err)
	}
	games := res.Val.([]GameRecord)
	out := make([]GameRecord, len(games))
	copy(out, games)
	return out, nil
}

// wrote marks a write boundary. Called after the store call returns, failed or not.
func (e *Editor) wrote() {
	e.generation.Add(1)
}

// FindGame returns the listed game with id.
func (e *Editor) FindGame(ctx context.Context, id string) (GameRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return GameRecord{}, ErrInvalidGameID
	}
	games, err := e.ListGames(ctx)
	if err != nil {
		return GameRecord{}, err
	}
	for _, g := range games {
		if g.ID == id {
			return g, nil
		}
	}
	return GameRecord{}, ErrGameNotFound
}

// AddGame creates a placeholder document and returns its id.
func (e *Editor) AddGame(ctx context.Context) (string, error) {
	rec := GameRecord{ID: e.newID(), Title: catalog.DefaultTitle}
	err := e.games.Create(ctx, rec)
	e.wrote()
	if err != nil {
		return "", fmt.Errorf("admin: add game: %w", err)
	}
	e.logger.Info("admin: game added", zap.String("game_id", rec.ID))
	return rec.ID, nil
}

// SaveGame merges the trimmed editable fields into the document; other fields are untouched.
func (e *Editor) SaveGame(ctx context.Context, rec GameRecord) (GameRecord, error) {
	rec = rec.Trimmed()
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.ID == "" {
		return rec, ErrInvalidGameID
	}
	err := e.games.Merge(ctx, rec)
	e.wrote()
	if err != nil {
		return rec, fmt.Errorf("admin: save game %s: %w", rec.ID, err)
	}
	e.logger.Info("admin: game saved", zap.String("game_id", rec.ID))
	return rec, nil
}

// DeleteGame removes the document only when confirmed is true.
func (e *Editor) DeleteGame(ctx context.Context, id string, confirmed bool) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidGameID
	}
	if !confirmed {
		return ErrDeleteNotConfirmed
	}
	err := e.games.Delete(ctx, id)
	e.wrote()
	if err != nil {
		return fmt.Errorf("admin: delete game %s: %w", id, err)
	}
	e.logger.Info("admin: game deleted", zap.String("game_id", id))
	return nil
}

// LoadSettings reads the contact document.
func (e *Editor) LoadSettings(ctx context.Context) (settings.Settings, error) {
	return e.settings.Get(ctx)
}

// SaveSettings trims and merges the contact document, returning the stored values.
func (e *Editor) SaveSettings(ctx context.Context, in settings.Settings) (settings.Settings, error) {
	out, err := settings.Save(ctx, e.settings, in)
	if errors.Is(err, settings.ErrReloadFailed) {
		e.logger.Warn("admin: settings saved but reload failed", zap.Error(err))
		return out, err
	}
	if err != nil {
		return in.Trimmed(), err
	}
	e.logger.Info("admin: settings saved")
	return out, nil
}

// Dashboard is the console's initial state; each half fails independently.
type Dashboard struct {
	Settings    settings.Settings
	SettingsErr error
	Games       []GameRecord
	GamesErr    error
}

// LoadDashboard loads settings and games concurrently and returns once both finish.
func (e *Editor) LoadDashboard(ctx context.Context) Dashboard {
	var (
		wg   sync.WaitGroup
		dash Dashboard
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		dash.Settings, dash.SettingsErr = e.LoadSettings(ctx)
	}()
	go func() {
		defer wg.Done()
		dash.Games, dash.GamesErr = e.ListGames(ctx)
	}()
	wg.Wait()

	if dash.SettingsErr != nil {
		e.logger.Warn("admin: settings load failed", zap.Error(dash.SettingsErr))
	}
	if dash.GamesErr != nil {
		e.logger.Warn("admin: games load failed", zap.Error(dash.GamesErr))
	}
	return dash
}
