package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StaticDocument is the top-level shape of games-data.json.
type StaticDocument struct {
	Games []StaticRecord `json:"games"`
}

// StaticRecord is one entry of the static catalog document. Ids may be numbers or strings
// and list fields may be a single string, so both decode through tolerant types.
type StaticRecord struct {
	ID          looseString      `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Image       string           `json:"image"`
	Icon        string           `json:"icon"`
	Platforms   []StaticPlatform `json:"platforms"`
	Tags        looseList        `json:"tags"`
	Screenshots looseList        `json:"screenshots"`
	TrailerURL  string           `json:"trailerUrl"`
	Genre       string           `json:"genre"`
	Developer   string           `json:"developer"`
	ReleaseDate string           `json:"releaseDate"`
	Version     looseString      `json:"version"`
	Languages   looseList        `json:"languages"`
	Size        string           `json:"size"`
	Requires    string           `json:"requires"`
	Rating      *StaticRating    `json:"rating"`
}

// StaticPlatform is a download button in the static document.
type StaticPlatform struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// StaticRating is the optional aggregate rating of a static record.
type StaticRating struct {
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("catalog: expected string or number, got %s", data)
	}
	*s = looseString(n.String())
	return nil
}

type looseList []string

func (l *looseList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = nil
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*l = splitList(v)
	default:
		var v []string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*l = v
	}
	return nil
}

// NormalizeStatic converts a static record into the canonical Game.
func NormalizeStatic(rec StaticRecord) Game {
	g := Game{
		ID:          strings.TrimSpace(string(rec.ID)),
		Title:       titleOrDefault(rec.Title),
		Description: strings.TrimSpace(rec.Description),
		Image:       strings.TrimSpace(rec.Image),
		Icon:        strings.TrimSpace(rec.Icon),
		Tags:        dedupe(cleanList(rec.Tags)),
		Screenshots: cleanList(rec.Screenshots),
		TrailerURL:  strings.TrimSpace(rec.TrailerURL),
		Genre:       strings.TrimSpace(rec.Genre),
		Developer:   strings.TrimSpace(rec.Developer),
		ReleaseDate: strings.TrimSpace(rec.ReleaseDate),
		Version:     strings.TrimSpace(string(rec.Version)),
		Languages:   cleanList(rec.Languages),
		Size:        strings.TrimSpace(rec.Size),
		Requires:    strings.TrimSpace(rec.Requires),
		Source:      SourceStatic,
	}
	for _, p := range rec.Platforms {
		d := Download{
			Name:  strings.TrimSpace(p.Name),
			URL:   strings.TrimSpace(p.URL),
			Icon:  strings.TrimSpace(p.Icon),
			Color: strings.TrimSpace(p.Color),
		}
		if d.URL == "" {
			continue
		}
		if d.Name == "" {
			d.Name = "Download"
		}
		g.Downloads = append(g.Downloads, d)
	}
	if rec.Rating != nil && rec.Rating.Value > 0 {
		g.Rating = &Rating{Value: rec.Rating.Value, Count: rec.Rating.Count}
	}
	return g
}

// Document field names written by the admin console.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldImage       = "image"
	FieldDownloadURL = "download_url"
	FieldUpdatedAt   = "updatedAt"
)

// NormalizeDocument converts a hosted document into the canonical Game. Unknown or
// mistyped fields are ignored.
func NormalizeDocument(id string, data map[string]any) Game {
	g := Game{
		ID:          strings.TrimSpace(id),
		Title:       titleOrDefault(stringField(data, FieldTitle)),
		Description: stringField(data, FieldDescription),
		Image:       stringField(data, FieldImage),
		Icon:        stringField(data, "icon"),
		Tags:        dedupe(listField(data, "tags")),
		Screenshots: listField(data, "screenshots"),
		TrailerURL:  stringField(data, "trailerUrl"),
		Genre:       stringField(data, "genre"),
		Developer:   stringField(data, "developer"),
		ReleaseDate: stringField(data, "releaseDate"),
		Version:     stringField(data, "version"),
		Languages:   listField(data, "languages"),
		Size:        stringField(data, "size"),
		Requires:    stringField(data, "requires"),
		Source:      SourceFirestore,
	}
	if link := stringField(data, FieldDownloadURL); link != "" {
		g.Downloads = []Download{{Name: "Download", URL: link, Icon: "download"}}
	}
	return g
}

func titleOrDefault(title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return DefaultTitle
}

func stringField(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func listField(data map[string]any, key string) []string {
	switch v := data[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return cleanList(out)
	case []string:
		return cleanList(v)
	case string:
		return cleanList(splitList(v))
	default:
		return nil
	}
}

func splitList(v string) []string {
	return strings.Split(v, ",")
}

func cleanList(items []string) []string {
	var out []string
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func dedupe(items []string) []string {
	if len(items) < 2 {
		return items
	}
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, item := range items {
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
