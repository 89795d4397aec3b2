package render

import (
	"errors"
	"net/url"
	"strconv"

	"shusmogames.com/site/internal/catalog"
)

// ErrMediaIndex rejects a selection outside the gallery.
var ErrMediaIndex = errors.New("render: media index out of range")

// MediaKind distinguishes trailer and screenshot items.
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaImage MediaKind = "image"
)

// MediaItem is one thumbnail. Thumb is empty for a trailer whose video id is unknown.
type MediaItem struct {
	Index  int
	Kind   MediaKind
	Src    string
	Thumb  string
	Alt    string
	Active bool
}

// Frame describes what the primary media frame shows.
type Frame struct {
	Kind MediaKind
	Src  string
	Alt  string
}

// IsVideo reports whether the frame is an iframe.
func (f Frame) IsVideo() bool { return f.Kind == MediaVideo }

// Gallery is the media section of a detail page. Exactly one item is active.
type Gallery struct {
	GameID string
	Items  []MediaItem
	active int
}

// NewGallery builds the gallery for g: trailer first, then screenshots, first item active.
// ok is false when the game has no media.
func NewGallery(g catalog.Game) (Gallery, bool) {
	if !g.HasMedia() {
		return Gallery{}, false
	}
	gal := Gallery{GameID: g.ID}
	if g.TrailerURL != "" {
		item := MediaItem{Kind: MediaVideo, Src: catalog.TrailerEmbedURL(g.TrailerURL), Alt: "Trailer"}
		if id, ok := catalog.YouTubeID(g.TrailerURL); ok {
			item.Thumb = catalog.YouTubeThumbnail(id)
		}
		gal.Items = append(gal.Items, item)
	}
	for _, src := range g.Screenshots {
		gal.Items = append(gal.Items, MediaItem{Kind: MediaImage, Src: src, Thumb: src, Alt: "Screenshot"})
	}
	for i := range gal.Items {
		gal.Items[i].Index = i
	}
	return gal.withActive(0), true
}

// Active is the index of the active item.
func (g Gallery) Active() int { return g.active }

// Select returns a copy of the gallery with item i active. Out-of-range indexes return
// ErrMediaIndex and the receiver unchanged.
func (g Gallery) Select(i int) (Gallery, error) {
	if i < 0 || i >= len(g.Items) {
		return g, ErrMediaIndex
	}
	return g.withActive(i), nil
}

// Frame is the primary frame for the active item.
func (g Gallery) Frame() Frame {
	if len(g.Items) == 0 {
		return Frame{}
	}
	item := g.Items[g.active]
	return Frame{Kind: item.Kind, Src: item.Src, Alt: item.Alt}
}

func (g Gallery) withActive(i int) Gallery {
	items := make([]MediaItem, len(g.Items))
	copy(items, g.Items)
	for j := range items {
		items[j].Active = j == i
	}
	g.Items = items
	g.active = i
	return g
}

// Href is the fragment URL that selects item i.
func (g Gallery) Href(i int) string {
	return "/games/" + url.PathEscape(g.GameID) + "/media/" + strconv.Itoa(i)
}
