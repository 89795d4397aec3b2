package render

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"shusmogames.com/site/internal/catalog"
)

func TestCardsPreserveOrderAndLinks(t *testing.T) {
	cards := Cards([]catalog.Game{
		{ID: "z z", Title: "Zed"},
		{ID: "a&b", Title: "Ab"},
	})
	require.Len(t, cards, 2)
	require.Equal(t, "Zed", cards[0].Title)
	require.Equal(t, "/game-details?id=z+z", cards[0].Href)
	require.Equal(t, "/game-details?id=a%26b", cards[1].Href)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("  short ", 140))

	long := strings.Repeat("word ", 60)
	got := Truncate(long, CardDescriptionLimit)
	require.True(t, strings.HasSuffix(got, "…"))
	require.LessOrEqual(t, utf8.RuneCountInString(got), CardDescriptionLimit+1)
	require.False(t, strings.HasSuffix(strings.TrimSuffix(got, "…"), " "))

	arabic := strings.Repeat("ب", 200)
	got = Truncate(arabic, 10)
	require.Equal(t, strings.Repeat("ب", 10)+"…", got)
}

func TestNewCardStripsMarkdown(t *testing.T) {
	card := NewCard(catalog.Game{ID: "1", Description: "**Bold** move.\n\nSecond para."})
	require.Equal(t, "Bold move. Second para.", card.Description)
}

func TestDescriptionHTMLSanitizes(t *testing.T) {
	out := string(DescriptionHTML("Hello *world* <img src=x onerror=alert(1)> [link](https://example.com)"))
	require.Contains(t, out, "<em>world</em>")
	require.NotContains(t, out, "<img")
	require.Contains(t, out, "nofollow")
	require.Empty(t, DescriptionHTML("   "))
}

func TestNoMediaWithoutScreenshotsOrTrailer(t *testing.T) {
	_, ok := NewGallery(catalog.Game{ID: "x"})
	require.False(t, ok)

	detail := NewDetail(catalog.Game{ID: "x", Title: "X"}, "https://example.com/game-details?id=x")
	require.Nil(t, detail.Gallery)
}

func TestGalleryOrderingAndInitialState(t *testing.T) {
	g := catalog.Game{
		ID:          "g",
		TrailerURL:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Screenshots: []string{"/s1.png", "/s2.png"},
	}
	gal, ok := NewGallery(g)
	require.True(t, ok)
	require.Len(t, gal.Items, 3)
	require.Equal(t, MediaVideo, gal.Items[0].Kind)
	require.Equal(t, "https://img.youtube.com/vi/dQw4w9WgXcQ/mqdefault.jpg", gal.Items[0].Thumb)
	require.Equal(t, 0, gal.Active())
	require.Equal(t, Frame{Kind: MediaVideo, Src: "https://www.youtube.com/embed/dQw4w9WgXcQ", Alt: "Trailer"}, gal.Frame())
}

func TestGallerySelectLeavesExactlyOneActive(t *testing.T) {
	g := catalog.Game{
		ID:          "g",
		TrailerURL:  "https://youtu.be/dQw4w9WgXcQ",
		Screenshots: []string{"/s1.png", "/s2.png", "/s3.png"},
	}
	gal, _ := NewGallery(g)
	for i := range gal.Items {
		selected, err := gal.Select(i)
		require.NoError(t, err)

		active := 0
		for _, item := range selected.Items {
			if item.Active {
				active++
			}
		}
		require.Equal(t, 1, active)
		require.True(t, selected.Items[i].Active)
		require.Equal(t, selected.Items[i].Kind, selected.Frame().Kind)
		require.Equal(t, selected.Items[i].Src, selected.Frame().Src)
	}
	require.True(t, gal.Items[0].Active, "selection must not mutate the original gallery")
}

func TestGallerySelectOutOfRange(t *testing.T) {
	gal, _ := NewGallery(catalog.Game{ID: "g", Screenshots: []string{"/a.png"}})
	for _, i := range []int{-1, 1, 99} {
		same, err := gal.Select(i)
		require.ErrorIs(t, err, ErrMediaIndex)
		require.Equal(t, gal, same)
	}
}

func TestGalleryTrailerWithoutVideoID(t *testing.T) {
	gal, ok := NewGallery(catalog.Game{ID: "g", TrailerURL: "https://example.com/trailer.mp4"})
	require.True(t, ok)
	require.Len(t, gal.Items, 1)
	require.Empty(t, gal.Items[0].Thumb)
	require.Equal(t, Frame{Kind: MediaVideo, Src: "https://example.com/trailer.mp4", Alt: "Trailer"}, gal.Frame())
	require.True(t, gal.Frame().IsVideo())
}

func TestScreenshotsOnlyStartsWithImage(t *testing.T) {
	gal, _ := NewGallery(catalog.Game{ID: "g", Screenshots: []string{"/a.png", "/b.png"}})
	require.Equal(t, Frame{Kind: MediaImage, Src: "/a.png", Alt: "Screenshot"}, gal.Frame())
}

func TestInfoRows(t *testing.T) {
	rows := InfoRows(catalog.Game{
		Genre:       "Puzzle",
		ReleaseDate: "2024-03-05",
		Languages:   []string{"en", "ar", "not a tag"},
	})
	require.Equal(t, []InfoRow{
		{Label: "Genre", Value: "Puzzle"},
		{Label: "Release Date", Value: "Mar 5, 2024"},
		{Label: "Languages", Value: "English, Arabic, not a tag"},
	}, rows)
	require.Empty(t, InfoRows(catalog.Game{}))
}

func TestFormatDate(t *testing.T) {
	require.Equal(t, "Jan 2, 2025", FormatDate("2025-01-02T10:00:00Z"))
	require.Equal(t, "Spring 2025", FormatDate("Spring 2025"))
	require.Equal(t, "", FormatDate(""))
}

func TestNewDetail(t *testing.T) {
	d := NewDetail(catalog.Game{
		ID:    "g",
		Title: "Game",
		Image: "/img.png",
		Tags:  []string{"a"},
	}, "https://shusmogames.com/game-details?id=g")
	require.Equal(t, "/img.png", d.HeaderImage)
	require.Equal(t, Share{Title: "Game", URL: "https://shusmogames.com/game-details?id=g"}, d.Share)
	require.Equal(t, []string{"a"}, d.Tags)
}
