package view

import (
	"shusmogames.com/site/internal/admin"
	"shusmogames.com/site/internal/nav"
	"shusmogames.com/site/internal/render"
	"shusmogames.com/site/internal/seo"
	"shusmogames.com/site/internal/settings"
	"shusmogames.com/site/internal/site"
)

// Chrome is the shared public layout data.
type Chrome struct {
	Site   site.Profile
	Nav    []nav.Item
	Head   *seo.Head
	Crumbs []nav.Crumb
}

// ListPage renders a grid of cards or the list error.
type ListPage struct {
	Chrome
	Heading string
	Intro   string
	Cards   []render.Card
	Error   string
	Hero    bool
}

// DetailPage renders a game or a message in its place.
type DetailPage struct {
	Chrome
	Detail  *render.Detail
	Message string
}

// ContactPage renders the contact details.
type ContactPage struct {
	Chrome
	Contact site.Contact
}

// AdminChrome is the shared console layout data.
type AdminChrome struct {
	Title     string
	BasePath  string
	CSRFToken string
	User      string
}

// LoginPage is the sign-in form.
type LoginPage struct {
	AdminChrome
	Email string
	Next  string
	Error string
}

// DashboardPage is the signed-in console.
type DashboardPage struct {
	AdminChrome
	Settings SettingsForm
	Games    GamesList
}

// SettingsForm is the contact settings panel.
type SettingsForm struct {
	BasePath  string
	CSRFToken string
	Settings  settings.Settings
	Status    string
	Error     string
}

// GamesList is the games panel. Notice reports the outcome of the last mutation.
type GamesList struct {
	BasePath  string
	CSRFToken string
	Rows      []GameRow
	Error     string
	Notice    string
}

// GameRow is one editable games document.
type GameRow struct {
	BasePath  string
	CSRFToken string
	Game      admin.GameRecord
	Error     string
	Saved     bool
}

// DeletePage asks for confirmation before deleting.
type DeletePage struct {
	AdminChrome
	Game admin.GameRecord
}
