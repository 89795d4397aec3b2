package catalog

import "regexp"

var youTubePattern = regexp.MustCompile(`^.*(youtu.be/|v/|u/\w/|embed/|watch\?v=|&v=)([^#&?]*).*`)

// YouTubeID extracts the 11 character video id from common YouTube URL shapes.
func YouTubeID(rawURL string) (string, bool) {
	match := youTubePattern.FindStringSubmatch(rawURL)
	if len(match) < 3 || len(match[2]) != 11 {
		return "", false
	}
	return match[2], true
}

// YouTubeThumbnail is the medium-quality still for a video id.
func YouTubeThumbnail(id string) string {
	return "https://img.youtube.com/vi/" + id + "/mqdefault.jpg"
}

// TrailerEmbedURL returns the iframe source for a trailer: the canonical embed URL when
// the id is known, the raw URL otherwise.
func TrailerEmbedURL(rawURL string) string {
	if id, ok := YouTubeID(rawURL); ok {
		return "https://www.youtube.com/embed/" + id
	}
	return rawURL
}
