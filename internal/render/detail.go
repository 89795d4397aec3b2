package render

import (
	"html/template"
	"strings"

	"shusmogames.com/site/internal/catalog"
)

// Messages shown in place of page content.
const (
	MsgGamesError    = "Error loading games. Please check the connection or try again later."
	MsgGameNotFound  = "Game not found."
	MsgDetailError   = "Error loading game details. Please try again later."
	MsgLinkCopied    = "Link copied to clipboard!"
	MsgLinkCopyError = "Could not copy link."
)

// InfoRow is one metadata line.
type InfoRow struct {
	Label string
	Value string
}

// Share feeds the share button.
type Share struct {
	Title string
	URL   string
}

// Detail is the detail page body.
type Detail struct {
	ID              string
	Title           string
	HeaderImage     string
	Downloads       []catalog.Download
	Gallery         *Gallery
	DescriptionHTML template.HTML
	Tags            []string
	Info            []InfoRow
	Share           Share
}

// NewDetail projects g into the detail view. pageURL is the absolute page address.
func NewDetail(g catalog.Game, pageURL string) Detail {
	d := Detail{
		ID:              g.ID,
		Title:           g.Title,
		HeaderImage:     g.HeaderImage(),
		Downloads:       g.Downloads,
		DescriptionHTML: DescriptionHTML(g.Description),
		Tags:            g.Tags,
		Info:            InfoRows(g),
		Share:           Share{Title: g.Title, URL: pageURL},
	}
	if gal, ok := NewGallery(g); ok {
		d.Gallery = &gal
	}
	return d
}

// InfoRows lists present metadata in display order.
func InfoRows(g catalog.Game) []InfoRow {
	var rows []InfoRow
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			rows = append(rows, InfoRow{Label: label, Value: value})
		}
	}
	add("Genre", g.Genre)
	add("Developer", g.Developer)
	add("Release Date", FormatDate(g.ReleaseDate))
	add("Version", g.Version)
	add("Size", g.Size)
	add("Languages", strings.Join(LanguageNames(g.Languages), ", "))
	add("Requires", g.Requires)
	return rows
}
