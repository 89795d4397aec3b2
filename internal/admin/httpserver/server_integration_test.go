package httpserver_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"shusmogames.com/site/internal/admin"
	"shusmogames.com/site/internal/admin/httpserver/middleware"
	"shusmogames.com/site/internal/admin/testutil"
	"shusmogames.com/site/internal/settings"
)

// csrfCookie visits the login page and returns the issued double-submit cookie.
func csrfCookie(t *testing.T, baseURL string) *http.Cookie {
	t.Helper()
	resp, err := testutil.NoRedirectClient().Get(baseURL + "/admin/login")
	require.NoError(t, err)
	defer resp.Body.Close()
	for _, c := range resp.Cookies() {
		if c.Name == "shusmo_admin_csrf" {
			return c
		}
	}
	t.Fatalf("no csrf cookie issued")
	return nil
}

type client struct {
	t       *testing.T
	baseURL string
	csrf    *http.Cookie
	signed  bool
}

func newClient(t *testing.T, baseURL string, signedIn bool) *client {
	return &client{t: t, baseURL: baseURL, csrf: csrfCookie(t, baseURL), signed: signedIn}
}

func (c *client) do(method, path string, form url.Values, htmx bool) (*http.Response, string) {
	c.t.Helper()
	var body io.Reader
	if form != nil {
		form.Set(middleware.CSRFFormField, c.csrf.Value)
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, c.baseURL+path, body)
	require.NoError(c.t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	req.AddCookie(c.csrf)
	if c.signed {
		req.AddCookie(&http.Cookie{Name: middleware.TokenCookieName, Value: testutil.Token})
	}
	resp, err := testutil.NoRedirectClient().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, string(raw)
}

func TestDashboardRedirectsWithoutAuth(t *testing.T) {
	t.Parallel()

	ts, _ := testutil.NewServer(t)

	resp, err := testutil.NoRedirectClient().Get(ts.URL + "/admin")
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	require.Equal(t, http.StatusFound, resp.StatusCode)
	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/admin/login", location.Path)
	require.Equal(t, "/admin", location.Query().Get("next"))
}

func TestLoginSuccessSetsTokenAndRedirects(t *testing.T) {
	t.Parallel()

	ts, _ := testutil.NewServer(t)
	c := newClient(t, ts.URL, false)

	resp, _ := c.do(http.MethodPost, "/admin/login", url.Values{
		"email":    {testutil.Email},
		"password": {testutil.Password},
		"next":     {"/admin/games/x/delete"},
	}, false)

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/games/x/delete", resp.Header.Get("Location"))

	var token, sess *http.Cookie
	for _, ck := range resp.Cookies() {
		switch ck.Name {
		case middleware.TokenCookieName:
			token = ck
		case "shusmo_admin_session":
			sess = ck
		}
	}
	require.NotNil(t, token)
	require.Equal(t, testutil.Token, token.Value)
	require.True(t, token.HttpOnly)
	require.NotNil(t, sess)
}

func TestExpiredTokenIsRenewedFromSession(t *testing.T) {
	t.Parallel()

	ts, _ := testutil.NewServer(t)
	c := newClient(t, ts.URL, false)

	resp, _ := c.do(http.MethodPost, "/admin/login", url.Values{
		"email":    {testutil.Email},
		"password": {testutil.Password},
	}, false)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	var sess *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == "shusmo_admin_session" {
			sess = ck
		}
	}
	require.NotNil(t, sess)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/admin", nil)
	require.NoError(t, err)
	req.AddCookie(sess)
	req.AddCookie(&http.Cookie{Name: middleware.TokenCookieName, Value: testutil.ExpiredToken})
	renewed, err := testutil.NoRedirectClient().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { renewed.Body.Close() })

	require.Equal(t, http.StatusOK, renewed.StatusCode)
	var token *http.Cookie
	for _, ck := range renewed.Cookies() {
		if ck.Name == middleware.TokenCookieName {
			token = ck
		}
	}
	require.NotNil(t, token)
	require.Equal(t, testutil.Token, token.Value)
}

func TestExpiredTokenWithoutSessionRedirects(t *testing.T) {
	t.Parallel()

	ts, _ := testutil.NewServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/admin", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: middleware.TokenCookieName, Value: testutil.ExpiredToken})
	resp, err := testutil.NoRedirectClient().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	require.Equal(t, http.StatusFound, resp.StatusCode)
	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "expired", location.Query().Get("reason"))
}

func TestLoginRejectionShowsMessageVerbatim(t *testing.T) {
	t.Parallel()

	ts, _ := testutil.NewServer(t)
	c := newClient(t, ts.URL, false)

	resp, body := c.do(http.MethodPost, "/admin/login", url.Values{
		"email":    {testutil.Email},
		"password": {"wrong"},
	}, false)

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	doc := testutil.ParseHTML(t, []byte(body))
	require.Equal(t, testutil.RejectionMessage, doc.Find("#login-error").Text())
	value, _ := doc.Find("#email").Attr("value")
	require.Equal(t, testutil.Email, value)
}

func TestLoginRejectsOffsiteNext(t *testing.T) {
	t.Parallel()

	ts, _ := testutil.NewServer(t)
	c := newClient(t, ts.URL, false)

	resp, _ := c.do(http.MethodPost, "/admin/login", url.Values{
		"email":    {testutil.Email},
		"password": {testutil.Password},
		"next":     {"https://evil.example.com/admin"},
	}, false)

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin", resp.Header.Get("Location"))
}

func TestLogoutClearsCookies(t *testing.T) {
	t.Parallel()

	ts, _ := testutil.NewServer(t)
	c := newClient(t, ts.URL, true)

	resp, _ := c.do(http.MethodPost, "/admin/logout", url.Values{}, false)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/login", resp.Header.Get("Location"))

	cleared := false
	for _, ck := range resp.Cookies() {
		if ck.Name == middleware.TokenCookieName && ck.MaxAge < 0 {
			cleared = true
		}
	}
	require.True(t, cleared)
}

func TestDashboardRendersBothPanels(t *testing.T) {
	t.Parallel()

	games := admin.NewMemoryGameStore(
		admin.GameRecord{ID: "b", Title: "Moss"},
		admin.GameRecord{ID: "a", Title: "Alpha"},
	)
	store := settings.NewMemoryStore(settings.Settings{Email: "hi@example.com"})
	ts, _ := testutil.NewServer(t, testutil.WithGames(games), testutil.WithSettings(store))
	c := newClient(t, ts.URL, true)

	resp, body := c.do(http.MethodGet, "/admin", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	doc := testutil.ParseHTML(t, []byte(body))
	email, _ := doc.Find("#contact-email").Attr("value")
	require.Equal(t, "hi@example.com", email)

	titles := doc.Find("#games-list .g-title").Map(func(_ int, s *goquery.Selection) string {
		v, _ := s.Attr("value")
		return v
	})
	require.Equal(t, []string{"Alpha", "Moss"}, titles)
	require.Contains(t, doc.Find(".admin-user").Text(), testutil.Email)
}

func TestDashboardReportsPanelFailuresIndependently(t *testing.T) {
	t.Parallel()

	games := admin.NewMemoryGameStore(admin.GameRecord{ID: "a", Title: "Alpha"})
	store := settings.NewMemoryStore(settings.Settings{})
	store.Err = errors.New("permission denied")
	ts, _ := testutil.NewServer(t, testutil.WithGames(games), testutil.WithSettings(store))
	c := newClient(t, ts.URL, true)

	resp, body := c.do(http.MethodGet, "/admin", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := testutil.ParseHTML(t, []byte(body))
	require.NotEmpty(t, doc.Find("#settings-form .error").Text())
	require.Equal(t, 1, doc.Find("#games-list .game-row").Length())
	require.Equal(t, 0, doc.Find("#games-list .error").Length())
}

func TestSaveSettingsReturnsTrimmedValues(t *testing.T) {
	t.Parallel()

	store := settings.NewMemoryStore(settings.Settings{})
	ts, _ := testutil.NewServer(t, testutil.WithSettings(store))
	c := newClient(t, ts.URL, true)

	resp, body := c.do(http.MethodPost, "/admin/settings", url.Values{
		"email":   {"  hi@example.com "},
		"phone":   {" +1 555 0100"},
		"address": {"1 Main St  "},
	}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := testutil.ParseHTML(t, []byte(body))
	require.Equal(t, "Saved ✓", doc.Find("#settings-status").Text())
	email, _ := doc.Find("#contact-email").Attr("value")
	require.Equal(t, "hi@example.com", email)

	stored, err := store.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "+1 555 0100", stored.Phone)
	require.Equal(t, "1 Main St", stored.Address)
}

func TestSaveSettingsFailureKeepsInput(t *testing.T) {
	t.Parallel()

	store := settings.NewMemoryStore(settings.Settings{})
	store.Err = errors.New("unavailable")
	ts, _ := testutil.NewServer(t, testutil.WithSettings(store))
	c := newClient(t, ts.URL, true)

	_, body := c.do(http.MethodPost, "/admin/settings", url.Values{"email": {"hi@example.com"}}, true)
	doc := testutil.ParseHTML(t, []byte(body))
	require.NotEmpty(t, doc.Find("#settings-form .error").Text())
	require.Empty(t, doc.Find("#settings-status").Text())
	email, _ := doc.Find("#contact-email").Attr("value")
	require.Equal(t, "hi@example.com", email)
}

func TestSaveSettingsReloadFailureStillReportsSaved(t *testing.T) {
	t.Parallel()

	store := settings.NewMemoryStore(settings.Settings{})
	store.GetErr = errors.New("read timeout")
	ts, _ := testutil.NewServer(t, testutil.WithSettings(store))
	c := newClient(t, ts.URL, true)

	resp, body := c.do(http.MethodPost, "/admin/settings", url.Values{"email": {" hi@example.com "}}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := testutil.ParseHTML(t, []byte(body))
	require.Equal(t, "Saved ✓", doc.Find("#settings-status").Text())
	require.Empty(t, doc.Find("#settings-form .error").Text())
	email, _ := doc.Find("#contact-email").Attr("value")
	require.Equal(t, "hi@example.com", email)
}

func TestAddGameInsertsUntitledInTitleOrder(t *testing.T) {
	t.Parallel()

	games := admin.NewMemoryGameStore(
		admin.GameRecord{ID: "1", Title: "Alpha"},
		admin.GameRecord{ID: "2", Title: "Zeta"},
	)
	ts, _ := testutil.NewServer(t, testutil.WithGames(games))
	c := newClient(t, ts.URL, true)

	resp, body := c.do(http.MethodPost, "/admin/games", url.Values{}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := testutil.ParseHTML(t, []byte(body))
	titles := doc.Find(".game-row .g-title").Map(func(_ int, s *goquery.Selection) string {
		v, _ := s.Attr("value")
		return v
	})
	require.Equal(t, []string{"Alpha", "Untitled", "Zeta"}, titles)

	listed, err := games.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 3)
	require.Empty(t, listed[1].Description)
	require.Empty(t, listed[1].Image)
	require.Empty(t, listed[1].DownloadURL)
}

func TestSaveGameFailureKeepsSubmittedValues(t *testing.T) {
	t.Parallel()

	games := admin.NewMemoryGameStore(admin.GameRecord{ID: "g1", Title: "Moss"})
	games.Fail["merge"] = errors.New("unavailable")
	ts, _ := testutil.NewServer(t, testutil.WithGames(games))
	c := newClient(t, ts.URL, true)

	_, body := c.do(http.MethodPost, "/admin/games/g1", url.Values{
		"title":       {"Moss 2"},
		"description": {"new"},
	}, true)

	doc := testutil.ParseHTML(t, []byte(body))
	require.NotEmpty(t, doc.Find(".game-row .error").Text())
	title, _ := doc.Find(".game-row .g-title").Attr("value")
	require.Equal(t, "Moss 2", title)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	t.Parallel()

	games := admin.NewMemoryGameStore(admin.GameRecord{ID: "g1", Title: "Moss"})
	ts, _ := testutil.NewServer(t, testutil.WithGames(games))
	c := newClient(t, ts.URL, true)

	_, body := c.do(http.MethodPost, "/admin/games/g1/delete", url.Values{}, true)
	doc := testutil.ParseHTML(t, []byte(body))
	require.Equal(t, 1, doc.Find(".game-row").Length())

	_, body = c.do(http.MethodPost, "/admin/games/g1/delete", url.Values{"confirm": {"yes"}}, true)
	doc = testutil.ParseHTML(t, []byte(body))
	require.Equal(t, 0, doc.Find(".game-row").Length())

	listed, err := games.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestDeleteFailureRefetchesList(t *testing.T) {
	t.Parallel()

	games := admin.NewMemoryGameStore(admin.GameRecord{ID: "g1", Title: "Moss"})
	games.Fail["delete"] = errors.New("unavailable")
	ts, _ := testutil.NewServer(t, testutil.WithGames(games))
	c := newClient(t, ts.URL, true)

	_, body := c.do(http.MethodPost, "/admin/games/g1/delete", url.Values{"confirm": {"yes"}}, true)
	doc := testutil.ParseHTML(t, []byte(body))
	require.NotEmpty(t, doc.Find("#games-list > .error").Text())
	require.Equal(t, 1, doc.Find(".game-row").Length())
}

func TestConfirmDeletePage(t *testing.T) {
	t.Parallel()

	games := admin.NewMemoryGameStore(admin.GameRecord{ID: "g1", Title: "Moss"})
	ts, _ := testutil.NewServer(t, testutil.WithGames(games))
	c := newClient(t, ts.URL, true)

	resp, body := c.do(http.MethodGet, "/admin/games/g1/delete", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := testutil.ParseHTML(t, []byte(body))
	confirm, _ := doc.Find(`input[name="confirm"]`).Attr("value")
	require.Equal(t, "yes", confirm)
	require.Contains(t, doc.Find("strong").Text(), "Moss")

	resp, _ = c.do(http.MethodGet, "/admin/games/missing/delete", nil, false)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMutationsRequireCSRFToken(t *testing.T) {
	t.Parallel()

	ts, o := testutil.NewServer(t)
	c := newClient(t, ts.URL, true)
	c.csrf = &http.Cookie{Name: "shusmo_admin_csrf", Value: "mismatch"}

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/admin/games", strings.NewReader("csrf_token=other"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(c.csrf)
	req.AddCookie(&http.Cookie{Name: middleware.TokenCookieName, Value: testutil.Token})
	resp, err := testutil.NoRedirectClient().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	listed, err := o.Games.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, listed)
}
