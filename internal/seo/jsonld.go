package seo

import (
	"encoding/json"
	"strconv"
	"strings"

	"shusmogames.com/site/internal/catalog"
)

// JSON marshals v to a compact JSON string. It returns an empty string on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// WebSite returns a minimal WebSite schema.
func WebSite(name, url string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	return m
}

// MobileApplication describes a game. aggregateRating appears only when the game carries
// a rating.
func MobileApplication(g catalog.Game, pageURL, imageURL string) map[string]any {
	m := map[string]any{
		"@context":            "https://schema.org",
		"@type":               "MobileApplication",
		"name":                g.Title,
		"description":         Summary(g.Description),
		"applicationCategory": "Game",
		"operatingSystem":     operatingSystems(g.Downloads),
		"offers":              map[string]any{"@type": "Offer", "price": "0"},
	}
	if pageURL != "" {
		m["url"] = pageURL
	}
	if imageURL != "" {
		m["image"] = imageURL
	}
	if g.ReleaseDate != "" {
		m["datePublished"] = g.ReleaseDate
	}
	if g.Version != "" {
		m["version"] = g.Version
	}
	if g.Genre != "" {
		m["genre"] = g.Genre
	}
	if g.Developer != "" {
		m["author"] = map[string]any{"@type": "Organization", "name": g.Developer}
	}
	if g.Rating != nil {
		m["aggregateRating"] = map[string]any{
			"@type":       "AggregateRating",
			"ratingValue": strconv.FormatFloat(g.Rating.Value, 'f', -1, 64),
			"reviewCount": strconv.Itoa(g.Rating.Count),
		}
	}
	return m
}

func operatingSystems(downloads []catalog.Download) string {
	var android, ios bool
	for _, d := range downloads {
		haystack := strings.ToLower(d.Name + " " + d.Icon + " " + d.URL)
		if strings.Contains(haystack, "android") || strings.Contains(haystack, "google-play") || strings.Contains(haystack, "play.google") {
			android = true
		}
		if strings.Contains(haystack, "apple") || strings.Contains(haystack, "app store") || strings.Contains(haystack, "ios") {
			ios = true
		}
	}
	switch {
	case android && !ios:
		return "Android"
	case ios && !android:
		return "iOS"
	default:
		return "Android, iOS"
	}
}
