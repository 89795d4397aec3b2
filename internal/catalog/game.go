// Package catalog owns the canonical game entity and the sources that produce it.
// Every source normalizes at its boundary so renderers never branch on record shape.
package catalog

import "errors"

var (
	// ErrNotFound is returned when no source knows the requested id.
	ErrNotFound = errors.New("catalog: game not found")
	// ErrDuplicateID is returned when a static document lists the same id twice.
	ErrDuplicateID = errors.New("catalog: duplicate game id")
)

// SourceKind names where a game came from.
type SourceKind string

const (
	SourceStatic    SourceKind = "static"
	SourceFirestore SourceKind = "firestore"
)

// DefaultTitle is used when a record has no title.
const DefaultTitle = "Untitled"

// Game is the canonical catalog entry.
type Game struct {
	ID          string
	Title       string
	Description string
	Image       string
	Icon        string
	Downloads   []Download
	Tags        []string
	Screenshots []string
	TrailerURL  string
	Genre       string
	Developer   string
	ReleaseDate string
	Version     string
	Languages   []string
	Size        string
	Requires    string
	Rating      *Rating
	Source      SourceKind
}

// Download is one store or platform link.
type Download struct {
	Name  string
	URL   string
	Icon  string
	Color string
}

// Rating feeds aggregateRating structured data.
type Rating struct {
	Value float64
	Count int
}

// HeaderImage is the icon shown in the detail header, falling back to the card image.
func (g Game) HeaderImage() string {
	if g.Icon != "" {
		return g.Icon
	}
	return g.Image
}

// HasMedia reports whether the detail page has a gallery.
func (g Game) HasMedia() bool {
	return g.TrailerURL != "" || len(g.Screenshots) > 0
}

// HasInfo reports whether any metadata row would render.
func (g Game) HasInfo() bool {
	return g.Genre != "" || g.Developer != "" || g.ReleaseDate != "" || g.Version != "" ||
		g.Size != "" || g.Requires != "" || len(g.Languages) > 0
}
