// Package testutil runs the console over in-memory stores for handler tests.
package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shusmogames.com/site/internal/admin"
	"shusmogames.com/site/internal/admin/httpserver"
	"shusmogames.com/site/internal/admin/httpserver/middleware"
	"shusmogames.com/site/internal/admin/identity"
	"shusmogames.com/site/internal/admin/session"
	"shusmogames.com/site/internal/settings"
	"shusmogames.com/site/internal/view"
)

const (
	// Email and Password are the only credentials the fake signer accepts.
	Email    = "admin@example.com"
	Password = "correct horse"
	// Token is the ID token the fake signer issues and the fake authenticator accepts.
	Token = "test-token"
	// ExpiredToken is reported as expired by the fake authenticator.
	ExpiredToken = "expired-token"
	// RefreshToken is issued at sign-in and renews ExpiredToken into Token.
	RefreshToken = "test-refresh-token"
	// RejectionMessage is returned verbatim for bad credentials.
	RejectionMessage = "INVALID_LOGIN_CREDENTIALS"
)

// Options carries the stores behind a test server.
type Options struct {
	BasePath      string
	Games         *admin.MemoryGameStore
	Settings      *settings.MemoryStore
	Authenticator middleware.Authenticator
	Signer        httpserver.PasswordSigner
}

// ServerOption customises the test server.
type ServerOption func(*Options)

// WithGames seeds the games store.
func WithGames(store *admin.MemoryGameStore) ServerOption {
	return func(o *Options) { o.Games = store }
}

// WithSettings seeds the contact settings store.
func WithSettings(store *settings.MemoryStore) ServerOption {
	return func(o *Options) { o.Settings = store }
}

// WithAuthenticator overrides the ID token verifier.
func WithAuthenticator(auth middleware.Authenticator) ServerOption {
	return func(o *Options) { o.Authenticator = auth }
}

// WithBasePath mounts the console elsewhere.
func WithBasePath(path string) ServerOption {
	return func(o *Options) { o.BasePath = path }
}

// NewServer starts an httptest server running the console stack.
func NewServer(t testing.TB, opts ...ServerOption) (*httptest.Server, *Options) {
	t.Helper()

	o := &Options{
		BasePath:      "/admin",
		Games:         admin.NewMemoryGameStore(),
		Settings:      settings.NewMemoryStore(settings.Settings{}),
		Authenticator: TokenAuthenticator{},
		Signer:        FakeSigner{},
	}
	for _, opt := range opts {
		opt(o)
	}

	editor, err := admin.NewEditor(admin.EditorDeps{Games: o.Games, Settings: o.Settings})
	if err != nil {
		t.Fatalf("editor: %v", err)
	}
	sessions, err := session.NewManager(session.Config{
		HashKey:     []byte("0123456789abcdef0123456789abcdef"),
		BlockKey:    []byte("fedcba9876543210fedcba9876543210"),
		CookiePath:  o.BasePath,
		IdleTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	views, err := view.New()
	if err != nil {
		t.Fatalf("views: %v", err)
	}

	handler, err := httpserver.NewRouter(httpserver.Config{
		BasePath:      o.BasePath,
		Editor:        editor,
		Sessions:      sessions,
		Authenticator: o.Authenticator,
		Signer:        o.Signer,
		Views:         views,
	})
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts, o
}

// TokenAuthenticator accepts Token only and reports ExpiredToken as expired.
type TokenAuthenticator struct{}

func (TokenAuthenticator) Authenticate(_ *http.Request, token string) (*middleware.User, error) {
	if token == ExpiredToken {
		return nil, middleware.NewAuthError(middleware.ReasonTokenExpired, middleware.ErrUnauthorized)
	}
	if token != Token {
		return nil, middleware.NewAuthError(middleware.ReasonTokenInvalid, middleware.ErrUnauthorized)
	}
	return &middleware.User{UID: "admin-1", Email: Email, Token: token}, nil
}

// FakeSigner accepts Email and Password only.
type FakeSigner struct{}

func (FakeSigner) SignIn(_ context.Context, email, password string) (*identity.Result, error) {
	if email != Email || password != Password {
		return nil, &identity.Error{Status: http.StatusBadRequest, Message: RejectionMessage}
	}
	return &identity.Result{IDToken: Token, RefreshToken: RefreshToken, Email: email, LocalID: "admin-1"}, nil
}

func (FakeSigner) Refresh(_ context.Context, refreshToken string) (*identity.Result, error) {
	if refreshToken != RefreshToken {
		return nil, &identity.Error{Status: http.StatusBadRequest, Message: "TOKEN_EXPIRED"}
	}
	return &identity.Result{IDToken: Token, RefreshToken: RefreshToken, LocalID: "admin-1"}, nil
}

// NoRedirectClient returns a client that surfaces redirects instead of following them.
func NoRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
