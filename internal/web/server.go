// Package web serves the public catalog site.
package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"shusmogames.com/site/internal/catalog"
	"shusmogames.com/site/internal/platform/observability"
	"shusmogames.com/site/internal/settings"
	"shusmogames.com/site/internal/site"
	"shusmogames.com/site/internal/view"
	"shusmogames.com/site/public"
)

// Config wires the public server. Live and Settings are optional; without Live the /live page
// is not registered and without Settings the contact page uses the profile.
type Config struct {
	Address     string
	Profile     site.Profile
	Static      catalog.Source
	Live        catalog.Source
	Settings    settings.Store
	Views       *view.Renderer
	Logger      *zap.Logger
	ProjectID   string
	CatalogFile string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// New constructs the public http.Server.
func New(cfg Config) (*http.Server, error) {
	handler, err := NewRouter(cfg)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       durationOr(cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      durationOr(cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       durationOr(cfg.IdleTimeout, 60*time.Second),
	}, nil
}

// NewRouter builds the public routes.
func NewRouter(cfg Config) (http.Handler, error) {
	if cfg.Static == nil {
		return nil, errors.New("web: static catalog source is required")
	}
	if cfg.Views == nil {
		return nil, errors.New("web: views are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &handlers{
		profile:  cfg.Profile,
		static:   cfg.Static,
		live:     cfg.Live,
		lookup:   catalog.New(cfg.Static, cfg.Live),
		settings: cfg.Settings,
		views:    cfg.Views,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(observability.InjectLogger(logger.Named("web")))
	r.Use(observability.TraceMiddleware(cfg.ProjectID))
	r.Use(observability.RequestLogger())
	r.Use(observability.Recovery(logger))
	r.Use(chimw.Compress(5))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	static, err := public.StaticFS()
	if err != nil {
		return nil, err
	}
	r.Handle("/assets/*", AssetsWithCache(static))
	if cfg.CatalogFile != "" {
		r.Get("/data/games-data.json", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			http.ServeFile(w, req, cfg.CatalogFile)
		})
	}

	r.Get("/", h.Home)
	r.Get("/games", h.Games)
	r.Get("/game-details", h.Detail)
	r.Get("/game-details.html", h.Detail)
	r.With(RequireHTMX).Get("/games/{id}/media/{index}", h.Media)
	r.Get("/contact", h.Contact)
	if cfg.Live != nil {
		r.Get("/live", h.Live)
	}
	r.NotFound(h.NotFound)

	return r, nil
}

// RequireHTMX answers 404 to direct navigation of fragment routes.
func RequireHTMX(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "HX-Request")
		if r.Header.Get("HX-Request") != "true" {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeComponent(w http.ResponseWriter, r *http.Request, c templ.Component, status int) {
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
