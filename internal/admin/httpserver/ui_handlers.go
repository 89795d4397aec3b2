package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"shusmogames.com/site/internal/admin"
	custommw "shusmogames.com/site/internal/admin/httpserver/middleware"
	"shusmogames.com/site/internal/platform/requestctx"
	"shusmogames.com/site/internal/settings"
	"shusmogames.com/site/internal/view"
)

const (
	msgSettingsLoad   = "Could not load contact settings."
	msgSettingsSave   = "Could not save contact settings."
	msgGamesLoad      = "Could not load games."
	msgGameAdd        = "Could not add a game."
	msgGameSave       = "Could not save this game."
	msgGameDelete     = "Could not delete the game."
	msgGameNotFound   = "That game no longer exists."
	msgDeleteDeclined = "Nothing was deleted."
	msgGameAdded      = "Game added."
	msgGameDeleted    = "Game deleted."
	statusSaved       = "Saved ✓"
)

type uiHandlers struct {
	editor   *admin.Editor
	views    *view.Renderer
	basePath string
}

func (h *uiHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	page := h.dashboardPage(r, h.editor.LoadDashboard(r.Context()))
	writeComponent(w, r, h.views.Page("admin/dashboard", page), http.StatusOK)
}

func (h *uiHandlers) SaveSettings(w http.ResponseWriter, r *http.Request) {
	in := settings.Settings{
		Email:   r.PostFormValue("email"),
		Phone:   r.PostFormValue("phone"),
		Address: r.PostFormValue("address"),
	}

	out, err := h.editor.SaveSettings(r.Context(), in)
	if errors.Is(err, settings.ErrReloadFailed) {
		err = nil
	}
	form := h.settingsForm(r, out)
	if err != nil {
		requestctx.Logger(r.Context()).Error("save settings failed", zap.Error(err))
		form.Error = msgSettingsSave
	} else {
		form.Status = statusSaved
	}

	if custommw.IsHTMXRequest(r.Context()) {
		writeComponent(w, r, h.views.Fragment("settings_form", form), http.StatusOK)
		return
	}
	page := h.dashboardPage(r, h.editor.LoadDashboard(r.Context()))
	page.Settings = form
	writeComponent(w, r, h.views.Page("admin/dashboard", page), statusFor(err))
}

func (h *uiHandlers) AddGame(w http.ResponseWriter, r *http.Request) {
	var list view.GamesList
	id, err := h.editor.AddGame(r.Context())
	if err != nil {
		requestctx.Logger(r.Context()).Error("add game failed", zap.Error(err))
		list = h.gamesList(r, msgGameAdd)
	} else {
		list = h.gamesList(r, "")
		list.Notice = msgGameAdded
		requestctx.Logger(r.Context()).Debug("game added", zap.String("gameID", id))
	}
	h.respondGames(w, r, list, err)
}

func (h *uiHandlers) SaveGame(w http.ResponseWriter, r *http.Request) {
	rec := admin.GameRecord{
		ID:          chi.URLParam(r, "id"),
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Image:       r.PostFormValue("image"),
		DownloadURL: r.PostFormValue("download_url"),
	}

	saved, err := h.editor.SaveGame(r.Context(), rec)
	row := h.gameRow(r, saved)
	if err != nil {
		requestctx.Logger(r.Context()).Error("save game failed", zap.String("gameID", rec.ID), zap.Error(err))
		row.Error = msgGameSave
	} else {
		row.Saved = true
	}

	if custommw.IsHTMXRequest(r.Context()) {
		writeComponent(w, r, h.views.Fragment("game_row", row), http.StatusOK)
		return
	}
	list := h.gamesList(r, "")
	replaced := false
	for i := range list.Rows {
		if list.Rows[i].Game.ID == row.Game.ID {
			list.Rows[i] = row
			replaced = true
		}
	}
	if !replaced {
		list.Rows = append(list.Rows, row)
	}
	h.respondGames(w, r, list, err)
}

func (h *uiHandlers) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	game, err := h.editor.FindGame(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, admin.ErrGameNotFound), errors.Is(err, admin.ErrInvalidGameID):
		http.Error(w, msgGameNotFound, http.StatusNotFound)
		return
	case err != nil:
		requestctx.Logger(r.Context()).Error("load game for delete failed", zap.Error(err))
		http.Error(w, msgGamesLoad, http.StatusBadGateway)
		return
	}

	page := view.DeletePage{AdminChrome: h.chrome(r, "Delete game"), Game: game}
	writeComponent(w, r, h.views.Page("admin/delete", page), http.StatusOK)
}

func (h *uiHandlers) DeleteGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	confirmed := strings.EqualFold(strings.TrimSpace(r.PostFormValue("confirm")), "yes")

	err := h.editor.DeleteGame(r.Context(), id, confirmed)
	var list view.GamesList
	switch {
	case err == nil:
		list = h.gamesList(r, "")
		list.Notice = msgGameDeleted
	case errors.Is(err, admin.ErrDeleteNotConfirmed):
		list = h.gamesList(r, "")
		list.Notice = msgDeleteDeclined
		err = nil
	default:
		requestctx.Logger(r.Context()).Error("delete game failed", zap.String("gameID", id), zap.Error(err))
		list = h.gamesList(r, msgGameDelete)
	}
	h.respondGames(w, r, list, err)
}

func (h *uiHandlers) respondGames(w http.ResponseWriter, r *http.Request, list view.GamesList, err error) {
	if custommw.IsHTMXRequest(r.Context()) {
		writeComponent(w, r, h.views.Fragment("games_list", list), http.StatusOK)
		return
	}
	s, settingsErr := h.editor.LoadSettings(r.Context())
	page := view.DashboardPage{
		AdminChrome: h.chrome(r, "Dashboard"),
		Settings:    h.settingsForm(r, s),
		Games:       list,
	}
	if settingsErr != nil {
		page.Settings.Error = msgSettingsLoad
	}
	writeComponent(w, r, h.views.Page("admin/dashboard", page), statusFor(err))
}

func (h *uiHandlers) dashboardPage(r *http.Request, dash admin.Dashboard) view.DashboardPage {
	page := view.DashboardPage{
		AdminChrome: h.chrome(r, "Dashboard"),
		Settings:    h.settingsForm(r, dash.Settings),
		Games:       h.rows(r, dash.Games),
	}
	if dash.SettingsErr != nil {
		page.Settings.Error = msgSettingsLoad
	}
	if dash.GamesErr != nil {
		page.Games.Error = msgGamesLoad
	}
	return page
}

// gamesList re-reads the collection so the panel never shows a stale row. mutationErr is shown
// ahead of any load failure.
func (h *uiHandlers) gamesList(r *http.Request, mutationErr string) view.GamesList {
	games, err := h.editor.ListGames(r.Context())
	list := h.rows(r, games)
	var msgs []string
	if mutationErr != "" {
		msgs = append(msgs, mutationErr)
	}
	if err != nil {
		requestctx.Logger(r.Context()).Error("reload games failed", zap.Error(err))
		msgs = append(msgs, msgGamesLoad)
	}
	list.Error = strings.Join(msgs, " ")
	return list
}

func (h *uiHandlers) rows(r *http.Request, games []admin.GameRecord) view.GamesList {
	list := view.GamesList{BasePath: h.basePath, CSRFToken: csrfToken(r.Context())}
	for _, g := range games {
		list.Rows = append(list.Rows, h.gameRow(r, g))
	}
	return list
}

func (h *uiHandlers) gameRow(r *http.Request, g admin.GameRecord) view.GameRow {
	return view.GameRow{BasePath: h.basePath, CSRFToken: csrfToken(r.Context()), Game: g}
}

func (h *uiHandlers) settingsForm(r *http.Request, s settings.Settings) view.SettingsForm {
	return view.SettingsForm{BasePath: h.basePath, CSRFToken: csrfToken(r.Context()), Settings: s}
}

func (h *uiHandlers) chrome(r *http.Request, title string) view.AdminChrome {
	chrome := view.AdminChrome{Title: title, BasePath: h.basePath, CSRFToken: csrfToken(r.Context())}
	if user, ok := custommw.UserFromContext(r.Context()); ok {
		chrome.User = user.Email
		if chrome.User == "" {
			chrome.User = user.UID
		}
	}
	return chrome
}

func csrfToken(ctx context.Context) string {
	return custommw.CSRFTokenFromContext(ctx)
}

func statusFor(err error) int {
	if err != nil {
		return http.StatusBadGateway
	}
	return http.StatusOK
}
