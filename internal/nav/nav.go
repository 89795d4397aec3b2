package nav

import (
	"strings"

	"shusmogames.com/site/internal/site"
)

// Item is a rendered navigation link.
type Item struct {
	Href   string
	Label  string
	Active bool
}

// Crumb is a breadcrumb entry; the last one is Active.
type Crumb struct {
	Href   string
	Label  string
	Active bool
}

// sections maps pages that have no menu entry of their own to the entry that owns them.
var sections = map[string]string{
	"/game-details":      "/games",
	"/game-details.html": "/games",
	"/live":              "/games",
}

// Build marks the link that owns currentPath as active.
func Build(links []site.NavLink, currentPath string) []Item {
	if currentPath == "" {
		currentPath = "/"
	}
	if owner, ok := sections[currentPath]; ok {
		currentPath = owner
	}
	items := make([]Item, 0, len(links))
	for _, l := range links {
		items = append(items, Item{Href: l.Href, Label: l.Label, Active: isActive(l.Href, currentPath)})
	}
	return items
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "/" {
		return currentPath == "/"
	}
	// "/games" or "/games/..."
	return currentPath == itemPath || strings.HasPrefix(currentPath, itemPath+"/")
}

// GameCrumbs is Home > Games > title.
func GameCrumbs(title string) []Crumb {
	return []Crumb{
		{Href: "/", Label: "Home"},
		{Href: "/games", Label: "Games"},
		{Label: title, Active: true},
	}
}
