// Package httpserver serves the administrator console.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"shusmogames.com/site/internal/admin"
	custommw "shusmogames.com/site/internal/admin/httpserver/middleware"
	"shusmogames.com/site/internal/admin/identity"
	"shusmogames.com/site/internal/platform/observability"
	"shusmogames.com/site/internal/view"
	"shusmogames.com/site/public"
)

// PasswordSigner exchanges administrator credentials for a Firebase ID token and renews
// expired tokens from the refresh token issued alongside.
type PasswordSigner interface {
	SignIn(ctx context.Context, email, password string) (*identity.Result, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.Result, error)
}

// Config holds runtime options for the console server.
type Config struct {
	Address       string
	BasePath      string
	Editor        *admin.Editor
	Sessions      custommw.SessionStore
	Authenticator custommw.Authenticator
	Signer        PasswordSigner
	Views         *view.Renderer
	Logger        *zap.Logger
	ProjectID     string
	CookieSecure  bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// New constructs the console http.Server.
func New(cfg Config) (*http.Server, error) {
	handler, err := NewRouter(cfg)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  durationOr(cfg.ReadTimeout, 10*time.Second),
		WriteTimeout: durationOr(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  durationOr(cfg.IdleTimeout, 60*time.Second),
	}, nil
}

// NewRouter builds the console routes and middleware stack.
func NewRouter(cfg Config) (http.Handler, error) {
	switch {
	case cfg.Editor == nil:
		return nil, errors.New("httpserver: editor is required")
	case cfg.Sessions == nil:
		return nil, errors.New("httpserver: session store is required")
	case cfg.Authenticator == nil:
		return nil, errors.New("httpserver: authenticator is required")
	case cfg.Signer == nil:
		return nil, errors.New("httpserver: password signer is required")
	case cfg.Views == nil:
		return nil, errors.New("httpserver: views are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(observability.InjectLogger(logger.Named("admin")))
	router.Use(observability.TraceMiddleware(cfg.ProjectID))
	router.Use(observability.RequestLogger())
	router.Use(observability.Recovery(logger))

	static, err := public.StaticFS()
	if err != nil {
		return nil, err
	}
	router.Handle("/assets/*", http.FileServer(http.FS(static)))
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	basePath := normalizeBasePath(cfg.BasePath)
	loginPath := resolveLoginPath(basePath)

	auth := newAuthHandlers(authDeps{
		authenticator: cfg.Authenticator,
		signer:        cfg.Signer,
		views:         cfg.Views,
		basePath:      basePath,
		loginPath:     loginPath,
		secure:        cfg.CookieSecure,
	})
	ui := &uiHandlers{editor: cfg.Editor, views: cfg.Views, basePath: basePath}

	csrf := custommw.CSRFConfig{
		CookiePath: cookiePath(basePath),
		Secure:     cfg.CookieSecure,
	}

	router.Route(basePath, func(r chi.Router) {
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())
		r.Use(custommw.Session(cfg.Sessions))
		r.Use(custommw.CSRF(csrf))

		r.Get("/login", auth.LoginForm)
		r.Post("/login", auth.LoginSubmit)
		r.Post("/logout", auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(custommw.Auth(cfg.Authenticator, loginPath,
				custommw.WithTokenRefresher(signerRefresher(cfg.Signer), cookiePath(basePath), cfg.CookieSecure),
			))

			r.Get("/", ui.Dashboard)
			r.Post("/settings", ui.SaveSettings)
			r.Post("/games", ui.AddGame)
			r.Post("/games/{id}", ui.SaveGame)
			r.Get("/games/{id}/delete", ui.ConfirmDelete)
			r.Post("/games/{id}/delete", ui.DeleteGame)
		})
	})
	return router, nil
}

func signerRefresher(signer PasswordSigner) custommw.TokenRefresher {
	return custommw.TokenRefresherFunc(func(ctx context.Context, refreshToken string) (string, string, error) {
		res, err := signer.Refresh(ctx, refreshToken)
		if err != nil {
			return "", "", err
		}
		return res.IDToken, res.RefreshToken, nil
	})
}

func writeComponent(w http.ResponseWriter, r *http.Request, c templ.Component, status int) {
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}

func normalizeBasePath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return "/admin"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return p
}

func resolveLoginPath(base string) string {
	if base == "/" {
		return "/login"
	}
	return base + "/login"
}

func cookiePath(base string) string {
	if base == "" {
		return "/"
	}
	return base
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
