package view_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"shusmogames.com/site/internal/admin"
	"shusmogames.com/site/internal/catalog"
	"shusmogames.com/site/internal/nav"
	"shusmogames.com/site/internal/render"
	"shusmogames.com/site/internal/seo"
	"shusmogames.com/site/internal/site"
	"shusmogames.com/site/internal/view"
)

func renderDoc(t *testing.T, r *view.Renderer, page string, data any) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Page(page, data).Render(context.Background(), &buf))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func chrome(path string) view.Chrome {
	profile := site.Default()
	return view.Chrome{
		Site: profile,
		Nav:  nav.Build(profile.Nav, path),
		Head: seo.NewHead(profile),
	}
}

func TestRenderer_GamesPage(t *testing.T) {
	r, err := view.New()
	require.NoError(t, err)

	cards := render.Cards([]catalog.Game{
		{ID: "1", Title: "Star Drift", Description: "Fly **fast**", Tags: []string{"Arcade"}},
		{ID: "2", Title: "Moss"},
	})
	doc := renderDoc(t, r, "games", view.ListPage{Chrome: chrome("/games"), Heading: "Games", Cards: cards})

	require.Equal(t, 2, doc.Find("#gamesGrid .game-card").Length())
	href, ok := doc.Find(".game-card-link").First().Attr("href")
	require.True(t, ok)
	require.Equal(t, "/game-details?id=1", href)
	require.Equal(t, "Fly fast", doc.Find(".game-card p").First().Text())
	require.Equal(t, "Arcade", doc.Find(".tag").First().Text())
}

func TestRenderer_GamesPageError(t *testing.T) {
	r, err := view.New()
	require.NoError(t, err)

	doc := renderDoc(t, r, "games", view.ListPage{Chrome: chrome("/games"), Error: render.MsgGamesError})
	require.Equal(t, 0, doc.Find(".game-card").Length())
	require.Equal(t, render.MsgGamesError, doc.Find("#gamesGrid .error").Text())
}

func TestRenderer_DetailPage(t *testing.T) {
	r, err := view.New()
	require.NoError(t, err)

	g := catalog.Game{
		ID:          "7",
		Title:       "Moss",
		Description: "A small **forest** game",
		Screenshots: []string{"/a.png", "/b.png"},
		TrailerURL:  "https://youtu.be/abcdefghijk",
		Genre:       "Puzzle",
	}
	detail := render.NewDetail(g, "https://example.com/game-details?id=7")
	doc := renderDoc(t, r, "detail", view.DetailPage{Chrome: chrome("/game-details"), Detail: &detail})

	require.Contains(t, doc.Find("#gameContent").Text(), "Moss")
	require.Equal(t, 1, doc.Find("#gameContent strong").Length())
	require.Equal(t, 3, doc.Find("#media-section .thumbnail").Length())
	require.Equal(t, 1, doc.Find("#mediaFrame iframe").Length())
}

func TestRenderer_DetailMessage(t *testing.T) {
	r, err := view.New()
	require.NoError(t, err)

	doc := renderDoc(t, r, "detail", view.DetailPage{Chrome: chrome("/game-details"), Message: render.MsgGameNotFound})
	require.Contains(t, doc.Find("#gameContent").Text(), render.MsgGameNotFound)
	require.Equal(t, 0, doc.Find("#media-section").Length())
}

func TestRenderer_GalleryFragment(t *testing.T) {
	r, err := view.New()
	require.NoError(t, err)

	gallery, ok := render.NewGallery(catalog.Game{ID: "7", Title: "Moss", Screenshots: []string{"/a.png", "/b.png"}})
	require.True(t, ok)
	gallery, err = gallery.Select(1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Fragment("gallery", gallery).Render(context.Background(), &buf))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)

	src, _ := doc.Find("#mediaFrame img").Attr("src")
	require.Equal(t, "/b.png", src)
	require.True(t, doc.Find(".thumbnail").Eq(1).HasClass("active"))
}

func TestRenderer_AdminDashboard(t *testing.T) {
	r, err := view.New()
	require.NoError(t, err)

	page := view.DashboardPage{
		AdminChrome: view.AdminChrome{Title: "Dashboard", BasePath: "/admin", CSRFToken: "tok", User: "a@example.com"},
		Settings:    view.SettingsForm{BasePath: "/admin", CSRFToken: "tok", Status: "Saved ✓"},
		Games: view.GamesList{BasePath: "/admin", CSRFToken: "tok", Rows: []view.GameRow{
			{BasePath: "/admin", CSRFToken: "tok", Game: admin.GameRecord{ID: "g1", Title: "Moss"}},
		}},
	}
	doc := renderDoc(t, r, "admin/dashboard", page)

	require.Equal(t, "Saved ✓", doc.Find("#settings-status").Text())
	require.Equal(t, 1, doc.Find("#games-list .game-row").Length())
	val, _ := doc.Find(".game-row .g-title").Attr("value")
	require.Equal(t, "Moss", val)
	action, _ := doc.Find(".game-row .del").Attr("hx-post")
	require.Equal(t, "/admin/games/g1/delete", action)
	tok, _ := doc.Find(`#settings-form input[name="csrf_token"]`).Attr("value")
	require.Equal(t, "tok", tok)
}

func TestRenderer_UnknownPage(t *testing.T) {
	r, err := view.New()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.Error(t, r.Page("missing", nil).Render(context.Background(), &buf))
}
