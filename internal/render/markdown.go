package render

import (
	"bytes"
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)
	descriptionPolicy = newDescriptionPolicy()
	stripPolicy       = newStripPolicy()
)

func newStripPolicy() *bluemonday.Policy {
	policy := bluemonday.StrictPolicy()
	policy.AddSpaceWhenStrippingTag(true)
	return policy
}

func newDescriptionPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return policy
}

// DescriptionHTML renders a Markdown description into sanitized HTML.
func DescriptionHTML(src string) template.HTML {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(descriptionPolicy.SanitizeBytes(buf.Bytes()))
}

// PlainText strips Markdown and HTML from a description, collapsing whitespace.
func PlainText(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	text := src
	if err := markdown.Convert([]byte(src), &buf); err == nil {
		text = stripPolicy.Sanitize(buf.String())
	}
	return strings.Join(strings.Fields(html.UnescapeString(text)), " ")
}
