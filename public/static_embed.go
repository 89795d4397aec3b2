// Package public embeds the browser assets shared by the site and the console.
package public

import (
	"embed"
	"io/fs"
)

//go:embed static
var static embed.FS

// StaticFS roots the embedded assets so "assets/css/site.css" resolves directly.
func StaticFS() (fs.FS, error) {
	return fs.Sub(static, "static")
}
