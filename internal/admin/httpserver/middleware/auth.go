package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	appsession "shusmogames.com/site/internal/admin/session"
	"shusmogames.com/site/internal/platform/requestctx"
)

type authContextKey string

const userContextKey authContextKey = "auth.user"

// TokenCookieName holds the Firebase ID token issued at sign-in.
const TokenCookieName = "__session"

// User is the authenticated administrator.
type User struct {
	UID   string
	Email string
	Token string
}

// Authenticator resolves an ID token into a User.
type Authenticator interface {
	Authenticate(r *http.Request, token string) (*User, error)
}

// ErrUnauthorized is returned when authentication fails.
var ErrUnauthorized = errors.New("unauthorized")

// AuthError carries the reason code of a failed authentication.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError constructs an AuthError with the provided reason.
func NewAuthError(reason string, err error) error {
	return &AuthError{Reason: reason, Err: err}
}

const (
	// ReasonMissingToken indicates a request without credentials.
	ReasonMissingToken = "missing_token"
	// ReasonTokenInvalid indicates a malformed or rejected token.
	ReasonTokenInvalid = "token_invalid"
	// ReasonTokenExpired indicates an expired token; signing in again recovers.
	ReasonTokenExpired = "token_expired"
)

// TokenRefresher renews an ID token from the refresh token kept in the session.
type TokenRefresher interface {
	RefreshIDToken(ctx context.Context, refreshToken string) (idToken, nextRefreshToken string, err error)
}

// TokenRefresherFunc adapts a function to TokenRefresher.
type TokenRefresherFunc func(ctx context.Context, refreshToken string) (string, string, error)

func (f TokenRefresherFunc) RefreshIDToken(ctx context.Context, refreshToken string) (string, string, error) {
	return f(ctx, refreshToken)
}

// AuthOption customises Auth.
type AuthOption func(*authOptions)

type authOptions struct {
	refresher    TokenRefresher
	cookiePath   string
	cookieSecure bool
}

// WithTokenRefresher renews missing or expired ID tokens from the session's refresh token
// and reissues the token cookie with the given attributes.
func WithTokenRefresher(refresher TokenRefresher, cookiePath string, secure bool) AuthOption {
	return func(o *authOptions) {
		o.refresher = refresher
		o.cookiePath = cookiePath
		o.cookieSecure = secure
	}
}

// SetTokenCookie stores the ID token for later requests.
func SetTokenCookie(w http.ResponseWriter, token, path string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     path,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie expires the ID token cookie.
func ClearTokenCookie(w http.ResponseWriter, path string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Auth verifies the ID token cookie (or a Bearer header) and attaches the User to the context.
// A missing or expired token is renewed once when a refresher is configured and the session
// holds a refresh token. Unauthenticated requests are redirected to loginPath; htmx requests
// get HX-Redirect and 401.
func Auth(authenticator Authenticator, loginPath string, opts ...AuthOption) func(http.Handler) http.Handler {
	if authenticator == nil {
		panic("authenticator is required")
	}
	if loginPath == "" {
		loginPath = "/login"
	}
	options := authOptions{cookiePath: "/"}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := requestctx.Logger(r.Context())

			token := parseBearerToken(r.Header.Get("Authorization"))
			if token == "" {
				token = cookieToken(r)
			}

			user, reason, err := authenticate(r, authenticator, token)
			if user == nil && options.refresher != nil && (reason == ReasonMissingToken || reason == ReasonTokenExpired) {
				if fresh, ok := refreshToken(w, r, options); ok {
					user, reason, err = authenticate(r, authenticator, fresh)
				}
			}
			if user == nil {
				logger.Info("admin auth failure", zap.String("reason", reason), zap.Error(err))
				destroySession(r.Context())
				handleUnauthorized(w, r, loginPath, reason)
				return
			}

			if sess, ok := SessionFromContext(r.Context()); ok {
				sess.SetUser(&appsession.User{UID: user.UID, Email: user.Email})
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			ctx = requestctx.WithLogger(ctx, logger.With(zap.String("adminUID", user.UID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, authenticator Authenticator, token string) (*User, string, error) {
	if token == "" {
		return nil, ReasonMissingToken, ErrUnauthorized
	}
	user, err := authenticator.Authenticate(r, token)
	if err == nil && user != nil {
		return user, "", nil
	}
	reason := ReasonTokenInvalid
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Reason != "" {
		reason = authErr.Reason
	}
	if err == nil {
		err = ErrUnauthorized
	}
	return nil, reason, err
}

func refreshToken(w http.ResponseWriter, r *http.Request, options authOptions) (string, bool) {
	sess, ok := SessionFromContext(r.Context())
	if !ok || sess.RefreshToken() == "" {
		return "", false
	}
	logger := requestctx.Logger(r.Context())
	idToken, next, err := options.refresher.RefreshIDToken(r.Context(), sess.RefreshToken())
	if err != nil || idToken == "" {
		logger.Info("admin token refresh failed", zap.Error(err))
		return "", false
	}
	if next != "" {
		sess.SetRefreshToken(next)
	}
	SetTokenCookie(w, idToken, options.cookiePath, options.cookieSecure)
	logger.Debug("admin id token refreshed")
	return idToken, true
}

// UserFromContext retrieves the authenticated user if present.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey).(*User)
	return user, ok && user != nil
}

func parseBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func cookieToken(r *http.Request) string {
	c, err := r.Cookie(TokenCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

func handleUnauthorized(w http.ResponseWriter, r *http.Request, loginPath, reason string) {
	redirectURL := loginPath
	if u, err := url.Parse(loginPath); err == nil {
		q := u.Query()
		if reason == ReasonTokenExpired {
			q.Set("reason", "expired")
		}
		if r.Method == http.MethodGet && !IsHTMXRequest(r.Context()) {
			q.Set("next", r.URL.RequestURI())
		}
		u.RawQuery = q.Encode()
		redirectURL = u.String()
	}

	if IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", redirectURL)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

func destroySession(ctx context.Context) {
	if sess, ok := SessionFromContext(ctx); ok {
		sess.SetUser(nil)
	}
}
