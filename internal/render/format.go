package render

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// FormatDate shows a release date as "Jan 2, 2006". Unparseable input is returned as is.
func FormatDate(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return raw
}

// LanguageName returns the English display name of a BCP 47 code, or code itself.
func LanguageName(code string) string {
	code = strings.TrimSpace(code)
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

// LanguageNames maps LanguageName over codes.
func LanguageNames(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, LanguageName(c))
	}
	return out
}
