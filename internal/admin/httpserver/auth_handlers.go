package httpserver

import (
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	custommw "shusmogames.com/site/internal/admin/httpserver/middleware"
	"shusmogames.com/site/internal/admin/identity"
	appsession "shusmogames.com/site/internal/admin/session"
	"shusmogames.com/site/internal/platform/requestctx"
	"shusmogames.com/site/internal/view"
)

const (
	msgCredentialsRequired = "Enter your email and password."
	msgSignInUnavailable   = "Sign-in is unavailable right now. Try again."
	msgFormInvalid         = "The form could not be read. Try again."
	msgSessionExpired      = "Your session expired. Sign in again."
)

type authDeps struct {
	authenticator custommw.Authenticator
	signer        PasswordSigner
	views         *view.Renderer
	basePath      string
	loginPath     string
	secure        bool
}

type authHandlers struct {
	authDeps
}

func newAuthHandlers(deps authDeps) *authHandlers {
	return &authHandlers{authDeps: deps}
}

func (h *authHandlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok && sess.SignedIn() {
		http.Redirect(w, r, h.redirectTarget(r.URL.Query().Get("next")), http.StatusFound)
		return
	}

	page := h.loginPage(r, "", r.URL.Query().Get("next"))
	if r.URL.Query().Get("reason") == "expired" {
		page.Error = msgSessionExpired
	}
	writeComponent(w, r, h.views.Page("admin/login", page), http.StatusOK)
}

func (h *authHandlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	logger := requestctx.Logger(r.Context())

	if err := r.ParseForm(); err != nil {
		page := h.loginPage(r, "", "")
		page.Error = msgFormInvalid
		writeComponent(w, r, h.views.Page("admin/login", page), http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	page := h.loginPage(r, email, r.PostFormValue("next"))

	if email == "" || password == "" {
		page.Error = msgCredentialsRequired
		writeComponent(w, r, h.views.Page("admin/login", page), http.StatusBadRequest)
		return
	}

	result, err := h.signer.SignIn(r.Context(), email, password)
	if err != nil {
		var idErr *identity.Error
		if errors.As(err, &idErr) {
			logger.Info("admin sign-in rejected", zap.String("reason", idErr.Message))
			page.Error = idErr.Message
			writeComponent(w, r, h.views.Page("admin/login", page), http.StatusUnauthorized)
			return
		}
		logger.Error("admin sign-in failed", zap.Error(err))
		page.Error = msgSignInUnavailable
		writeComponent(w, r, h.views.Page("admin/login", page), http.StatusBadGateway)
		return
	}

	user, err := h.authenticator.Authenticate(r, result.IDToken)
	if err != nil || user == nil {
		if err == nil {
			err = custommw.ErrUnauthorized
		}
		logger.Warn("admin id token rejected", zap.Error(err))
		page.Error = err.Error()
		writeComponent(w, r, h.views.Page("admin/login", page), http.StatusUnauthorized)
		return
	}
	if user.Email == "" {
		user.Email = result.Email
	}

	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		sess.SetUser(&appsession.User{UID: user.UID, Email: user.Email})
		sess.SetRefreshToken(result.RefreshToken)
	}
	custommw.SetTokenCookie(w, result.IDToken, cookiePath(h.basePath), h.secure)
	logger.Info("admin signed in", zap.String("adminUID", user.UID))

	target := h.redirectTarget(page.Next)
	if custommw.IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *authHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		sess.Destroy()
	}
	custommw.ClearTokenCookie(w, cookiePath(h.basePath), h.secure)

	if custommw.IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", h.loginPath)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, h.loginPath, http.StatusSeeOther)
}

func (h *authHandlers) loginPage(r *http.Request, email, next string) view.LoginPage {
	return view.LoginPage{
		AdminChrome: view.AdminChrome{
			Title:     "Sign in",
			BasePath:  h.basePath,
			CSRFToken: custommw.CSRFTokenFromContext(r.Context()),
		},
		Email: email,
		Next:  h.normalizeNext(next),
	}
}

func (h *authHandlers) redirectTarget(raw string) string {
	if next := h.normalizeNext(raw); next != "" {
		return next
	}
	return h.basePath
}

func (h *authHandlers) normalizeNext(raw string) string {
	sanitized := sanitizeNextTarget(h.basePath, raw)
	if sanitized == "" {
		return ""
	}
	if parsed, err := url.Parse(sanitized); err == nil && parsed.Path == h.loginPath {
		return ""
	}
	return sanitized
}

// sanitizeNextTarget keeps only same-origin paths under basePath.
func sanitizeNextTarget(basePath, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return ""
	}

	pathValue := parsed.Path
	if pathValue == "" {
		pathValue = "/"
	}
	unescaped, err := url.PathUnescape(pathValue)
	if err != nil || strings.Contains(unescaped, "\\") {
		return ""
	}

	cleaned := path.Clean(unescaped)
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	if strings.HasPrefix(cleaned, "//") {
		return ""
	}
	if basePath != "/" && !hasSafePrefix(cleaned, basePath) {
		return ""
	}

	target := cleaned
	if parsed.RawQuery != "" {
		target += "?" + parsed.RawQuery
	}
	return target
}

func hasSafePrefix(pathValue, base string) bool {
	if !strings.HasPrefix(pathValue, base) {
		return false
	}
	return len(pathValue) == len(base) || pathValue[len(base)] == '/'
}
