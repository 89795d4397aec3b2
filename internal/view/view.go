// Package view renders the embedded html/template pages and fragments as templ components.
package view

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"

	"shusmogames.com/site/internal/render"
)

//go:embed templates
var embedded embed.FS

// Renderer caches one template set per page. In dev mode templates are reparsed from
// disk on every render.
type Renderer struct {
	fsys fs.FS
	dev  bool

	mu    sync.RWMutex
	pages map[string]*template.Template
	frags *template.Template
}

// Option customises the Renderer.
type Option func(*Renderer)

// WithDevDir reparses templates from dir on every render.
func WithDevDir(dir string) Option {
	return func(r *Renderer) {
		r.fsys = os.DirFS(dir)
		r.dev = true
	}
}

// New parses every page up front so template errors fail at startup.
func New(opts ...Option) (*Renderer, error) {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, err
	}
	r := &Renderer{fsys: sub, pages: make(map[string]*template.Template)}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Page renders the named page ("home", "admin/login", ...) through its layout.
func (r *Renderer) Page(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, err := r.page(name)
		if err != nil {
			return err
		}
		return t.ExecuteTemplate(w, "page", data)
	})
}

// Fragment renders a named partial without a layout, for htmx swaps.
func (r *Renderer) Fragment(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, err := r.fragments()
		if err != nil {
			return err
		}
		return t.ExecuteTemplate(w, name, data)
	})
}

func (r *Renderer) page(name string) (*template.Template, error) {
	if r.dev {
		if err := r.load(); err != nil {
			return nil, err
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.pages[name]
	if !ok {
		return nil, fmt.Errorf("view: unknown page %q", name)
	}
	return t, nil
}

func (r *Renderer) fragments() (*template.Template, error) {
	if r.dev {
		if err := r.load(); err != nil {
			return nil, err
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frags, nil
}

func (r *Renderer) load() error {
	shared, err := fs.Glob(r.fsys, "layouts/*.tmpl")
	if err != nil {
		return err
	}
	partials, err := fs.Glob(r.fsys, "partials/*.tmpl")
	if err != nil {
		return err
	}
	shared = append(shared, partials...)

	base, err := template.New("_root").Funcs(funcs()).ParseFS(r.fsys, shared...)
	if err != nil {
		return fmt.Errorf("view: parse shared templates: %w", err)
	}

	pages := make(map[string]*template.Template)
	for _, dir := range []string{"pages", "admin"} {
		files, err := fs.Glob(r.fsys, dir+"/*.tmpl")
		if err != nil {
			return err
		}
		for _, file := range files {
			clone, err := base.Clone()
			if err != nil {
				return err
			}
			t, err := clone.ParseFS(r.fsys, file)
			if err != nil {
				return fmt.Errorf("view: parse %s: %w", file, err)
			}
			pages[pageName(dir, file)] = t
		}
	}

	r.mu.Lock()
	r.pages = pages
	r.frags = base
	r.mu.Unlock()
	return nil
}

func pageName(dir, file string) string {
	name := strings.TrimSuffix(strings.TrimPrefix(file, dir+"/"), ".tmpl")
	if dir == "admin" {
		return "admin/" + name
	}
	return name
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"year":       func() int { return time.Now().Year() },
		"formatTime": formatTime,
		"join":       strings.Join,
		"msg": func(key string) string {
			return messages[key]
		},
	}
}

var messages = map[string]string{
	"games_error":     render.MsgGamesError,
	"not_found":       render.MsgGameNotFound,
	"detail_error":    render.MsgDetailError,
	"link_copied":     render.MsgLinkCopied,
	"link_copy_error": render.MsgLinkCopyError,
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("Jan 2, 2006 15:04 UTC")
}
