// Package render turns catalog games into view models. Everything here is pure so
// page behaviour can be tested without a browser.
package render

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"shusmogames.com/site/internal/catalog"
)

// CardDescriptionLimit is the rune budget for card descriptions.
const CardDescriptionLimit = 140

// Card is one tile of the catalog grid.
type Card struct {
	ID          string
	Title       string
	Image       string
	Description string
	Tags        []string
	Downloads   []catalog.Download
	Href        string
}

// Cards maps games to cards in received order.
func Cards(games []catalog.Game) []Card {
	out := make([]Card, 0, len(games))
	for _, g := range games {
		out = append(out, NewCard(g))
	}
	return out
}

// NewCard builds a single card.
func NewCard(g catalog.Game) Card {
	return Card{
		ID:          g.ID,
		Title:       g.Title,
		Image:       g.Image,
		Description: Truncate(PlainText(g.Description), CardDescriptionLimit),
		Tags:        g.Tags,
		Downloads:   g.Downloads,
		Href:        DetailHref(g.ID),
	}
}

// DetailHref is the detail page link for id.
func DetailHref(id string) string {
	return "/game-details?id=" + url.QueryEscape(id)
}

// Truncate cuts s to limit runes on a word boundary when possible and appends an ellipsis.
func Truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)[:limit]
	for i := len(runes) - 1; i > limit/2; i-- {
		if unicode.IsSpace(runes[i]) {
			runes = runes[:i]
			break
		}
	}
	return strings.TrimRightFunc(string(runes), func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(",.;:", r)
	}) + "…"
}
