package catalog

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"shusmogames.com/site/internal/platform/requestctx"
)

// Source lists every game it knows, already normalized.
type Source interface {
	List(ctx context.Context) ([]Game, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Game, error)

func (f SourceFunc) List(ctx context.Context) ([]Game, error) { return f(ctx) }

// Catalog looks games up across sources in priority order.
type Catalog struct {
	sources []Source
}

// New builds a Catalog. Nil sources are skipped.
func New(sources ...Source) *Catalog {
	c := &Catalog{}
	for _, s := range sources {
		if s != nil {
			c.sources = append(c.sources, s)
		}
	}
	return c
}

// Find returns the game with id from the highest-priority source that has it. A source
// failure is only reported when no other source has the game; an id known to nobody
// yields ErrNotFound. Every source is consulted so an id claimed by more than one source
// is logged; the earlier source wins.
func (c *Catalog) Find(ctx context.Context, id string) (Game, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Game{}, ErrNotFound
	}

	var (
		found   Game
		ok      bool
		errs    []error
		sources []SourceKind
	)
	for _, src := range c.sources {
		games, err := src.List(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		g, hit := FindByID(games, id)
		if !hit {
			continue
		}
		sources = append(sources, g.Source)
		if !ok {
			found, ok = g, true
		}
	}
	if len(sources) > 1 {
		requestctx.Logger(ctx).Warn("catalog: id present in more than one source",
			zap.String("game_id", id),
			zap.Any("sources", sources),
			zap.String("served", string(found.Source)),
		)
	}
	if ok {
		if len(errs) > 0 {
			requestctx.Logger(ctx).Debug("catalog: lookup served despite source failure", zap.Error(errors.Join(errs...)))
		}
		return found, nil
	}
	if len(errs) > 0 {
		return Game{}, errors.Join(errs...)
	}
	return Game{}, ErrNotFound
}

// FindByID scans games for id.
func FindByID(games []Game, id string) (Game, bool) {
	for _, g := range games {
		if g.ID == id {
			return g, true
		}
	}
	return Game{}, false
}
