package seo

import (
	"html/template"
	"strings"
	"unicode/utf8"

	"shusmogames.com/site/internal/catalog"
	"shusmogames.com/site/internal/render"
	"shusmogames.com/site/internal/site"
)

// DescriptionLimit is the rune budget for meta descriptions.
const DescriptionLimit = 160

// Tag is one meta element: <meta {Attr}="{Key}" content="{Content}">.
type Tag struct {
	Attr    string
	Key     string
	Content string
}

// Head is the document head metadata. Tags are keyed by attr and key, so at most one
// tag per key exists, and there is at most one JSON-LD block.
type Head struct {
	Title     string
	Canonical string

	tags   []Tag
	index  map[string]int
	schema map[string]any
}

// NewHead seeds site-wide defaults.
func NewHead(p site.Profile) *Head {
	h := &Head{Title: p.Name, index: make(map[string]int)}
	if p.Tagline != "" {
		h.Set("name", "description", p.Tagline)
		h.Set("property", "og:description", p.Tagline)
	}
	h.Set("property", "og:site_name", p.Name)
	h.Set("property", "og:title", p.Name)
	h.Set("property", "og:type", "website")
	if p.DefaultOG != "" {
		h.Set("property", "og:image", p.AbsoluteURL(p.DefaultOG))
	}
	h.Set("name", "twitter:card", p.TwitterCard)
	return h
}

// Set inserts or replaces the tag for attr and key.
func (h *Head) Set(attr, key, content string) {
	if h.index == nil {
		h.index = make(map[string]int)
	}
	k := attr + ":" + key
	if i, ok := h.index[k]; ok {
		h.tags[i].Content = content
		return
	}
	h.index[k] = len(h.tags)
	h.tags = append(h.tags, Tag{Attr: attr, Key: key, Content: content})
}

// Get returns the content for attr and key.
func (h *Head) Get(attr, key string) (string, bool) {
	i, ok := h.index[attr+":"+key]
	if !ok {
		return "", false
	}
	return h.tags[i].Content, true
}

// Tags returns the tags in insertion order.
func (h *Head) Tags() []Tag {
	out := make([]Tag, len(h.tags))
	copy(out, h.tags)
	return out
}

// SetSchema replaces the JSON-LD block.
func (h *Head) SetSchema(v map[string]any) { h.schema = v }

// Schema returns the JSON-LD block ready for a script element, or "" when unset.
func (h *Head) Schema() template.JS {
	if h.schema == nil {
		return ""
	}
	return template.JS(JSON(h.schema))
}

// ApplyGame points the head at a game detail page. Calling it again replaces every
// game-derived value in place.
func (h *Head) ApplyGame(p site.Profile, g catalog.Game, pageURL string) {
	desc := Summary(g.Description)
	image := ""
	if g.Image != "" {
		image = p.AbsoluteURL(g.Image)
	}

	h.Title = g.Title + " - " + p.Name
	h.Canonical = pageURL
	h.Set("name", "description", desc)
	h.Set("property", "og:title", g.Title)
	h.Set("property", "og:description", desc)
	h.Set("property", "og:url", pageURL)
	h.Set("property", "og:type", "website")
	if image != "" {
		h.Set("property", "og:image", image)
	}
	h.Set("name", "twitter:card", p.TwitterCard)
	h.SetSchema(MobileApplication(g, pageURL, image))
}

// Summary is the first DescriptionLimit runes of the plain-text description.
func Summary(description string) string {
	text := render.PlainText(description)
	if utf8.RuneCountInString(text) <= DescriptionLimit {
		return text
	}
	return strings.TrimSpace(string([]rune(text)[:DescriptionLimit]))
}
