package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"shusmogames.com/site/internal/catalog"
	"shusmogames.com/site/internal/nav"
	"shusmogames.com/site/internal/platform/requestctx"
	"shusmogames.com/site/internal/render"
	"shusmogames.com/site/internal/seo"
	"shusmogames.com/site/internal/settings"
	"shusmogames.com/site/internal/site"
	"shusmogames.com/site/internal/view"
)

type handlers struct {
	profile  site.Profile
	static   catalog.Source
	live     catalog.Source
	lookup   *catalog.Catalog
	settings settings.Store
	views    *view.Renderer
}

func (h *handlers) chrome(path string) view.Chrome {
	head := seo.NewHead(h.profile)
	head.Canonical = h.profile.AbsoluteURL(path)
	return view.Chrome{
		Site: h.profile,
		Nav:  nav.Build(h.profile.Nav, path),
		Head: head,
	}
}

func (h *handlers) Home(w http.ResponseWriter, r *http.Request) {
	page := view.ListPage{Chrome: h.chrome("/"), Heading: "Featured games", Hero: true}
	page.Head.SetSchema(seo.WebSite(h.profile.Name, h.profile.AbsoluteURL("/")))
	h.renderList(w, r, "home", page, h.static)
}

func (h *handlers) Games(w http.ResponseWriter, r *http.Request) {
	page := view.ListPage{Chrome: h.chrome("/games"), Heading: "Our games"}
	page.Head.Title = "Games - " + h.profile.Name
	h.renderList(w, r, "games", page, h.static)
}

func (h *handlers) Live(w http.ResponseWriter, r *http.Request) {
	page := view.ListPage{Chrome: h.chrome("/live"), Heading: "Our games", Intro: "Straight from the live catalog."}
	page.Head.Title = "Games - " + h.profile.Name
	h.renderList(w, r, "games", page, h.live)
}

func (h *handlers) renderList(w http.ResponseWriter, r *http.Request, name string, page view.ListPage, src catalog.Source) {
	games, err := src.List(r.Context())
	if err != nil {
		requestctx.Logger(r.Context()).Error("list games failed", zap.Error(err))
		page.Error = render.MsgGamesError
		writeComponent(w, r, h.views.Page(name, page), http.StatusBadGateway)
		return
	}
	page.Cards = render.Cards(games)
	writeComponent(w, r, h.views.Page(name, page), http.StatusOK)
}

// Detail reads only the id query parameter.
func (h *handlers) Detail(w http.ResponseWriter, r *http.Request) {
	page := view.DetailPage{Chrome: h.chrome("/game-details")}
	id := strings.TrimSpace(r.URL.Query().Get("id"))

	g, err := h.lookup.Find(r.Context(), id)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		page.Message = render.MsgGameNotFound
		page.Head.Set("name", "robots", "noindex")
		writeComponent(w, r, h.views.Page("detail", page), http.StatusNotFound)
		return
	case err != nil:
		requestctx.Logger(r.Context()).Error("load game failed", zap.String("gameID", id), zap.Error(err))
		page.Message = render.MsgDetailError
		writeComponent(w, r, h.views.Page("detail", page), http.StatusBadGateway)
		return
	}

	pageURL := h.profile.AbsoluteURL(render.DetailHref(g.ID))
	detail := render.NewDetail(g, pageURL)
	page.Detail = &detail
	page.Crumbs = nav.GameCrumbs(g.Title)
	page.Head.ApplyGame(h.profile, g, pageURL)
	writeComponent(w, r, h.views.Page("detail", page), http.StatusOK)
}

// Media swaps the gallery to another item.
func (h *handlers) Media(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid media index", http.StatusBadRequest)
		return
	}

	g, err := h.lookup.Find(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		http.Error(w, render.MsgGameNotFound, http.StatusNotFound)
		return
	case err != nil:
		requestctx.Logger(r.Context()).Error("load game media failed", zap.Error(err))
		http.Error(w, render.MsgDetailError, http.StatusBadGateway)
		return
	}

	gallery, ok := render.NewGallery(g)
	if !ok {
		http.NotFound(w, r)
		return
	}
	selected, err := gallery.Select(index)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeComponent(w, r, h.views.Fragment("gallery", selected), http.StatusOK)
}

func (h *handlers) Contact(w http.ResponseWriter, r *http.Request) {
	page := view.ContactPage{Chrome: h.chrome("/contact"), Contact: h.profile.Contact}
	page.Head.Title = "Contact - " + h.profile.Name

	if h.settings != nil {
		s, err := h.settings.Get(r.Context())
		switch {
		case err != nil:
			requestctx.Logger(r.Context()).Warn("load contact settings failed", zap.Error(err))
		case !s.IsZero():
			page.Contact = site.Contact{Email: s.Email, Phone: s.Phone, Address: s.Address}
		}
	}
	writeComponent(w, r, h.views.Page("contact", page), http.StatusOK)
}

func (h *handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	page := view.ListPage{Chrome: h.chrome(r.URL.Path)}
	page.Head.Title = "Not found - " + h.profile.Name
	page.Head.Set("name", "robots", "noindex")
	writeComponent(w, r, h.views.Page("notfound", page), http.StatusNotFound)
}
