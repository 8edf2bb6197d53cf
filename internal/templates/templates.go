package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"

	"github.com/goliatone/go-lessons/internal/changes"
	"github.com/goliatone/go-lessons/internal/lessons"
	"github.com/goliatone/go-lessons/pkg/interfaces"
)

// View names accepted by Renderer.Render.
const (
	ViewHome   = "home"
	ViewIndex  = "index"
	ViewLesson = "lesson"
	ViewError  = "error"
)

const layoutFile = "layout.html"

//go:embed views/*.html
var embedded embed.FS

var views = []string{ViewHome, ViewIndex, ViewLesson, ViewError}

// SiteInfo is shared by every page.
type SiteInfo struct {
	Title    string
	HomeURL  string
	IndexURL string
	// Stylesheets and Scripts are theme asset URLs linked from the layout.
	Stylesheets []string
	Scripts     []string
}

// HomeView feeds the home page.
type HomeView struct {
	Site    SiteInfo
	State   changes.State
	Changes []changes.Change
}

// TagLink is one entry of the tag navigation.
type TagLink struct {
	Name   string
	URL    string
	Active bool
}

// IndexView feeds both the full and the tag filtered index.
type IndexView struct {
	Site      SiteInfo
	ActiveTag string
	Tags      []TagLink
	Lessons   []lessons.Record
}

// LessonView feeds a lesson page. Body is trusted rendered Markdown.
type LessonView struct {
	Site   SiteInfo
	Title  string
	Body   template.HTML
	Record lessons.Record
}

// ErrorView feeds error pages.
type ErrorView struct {
	Site    SiteInfo
	Status  int
	Message string
}

// Renderer executes the site views. Each view is parsed together with the
// layout into its own template set.
type Renderer struct {
	sets map[string]*template.Template
}

var _ interfaces.TemplateRenderer = (*Renderer)(nil)

// New parses the embedded views.
func New() (*Renderer, error) {
	views, err := fs.Sub(embedded, "views")
	if err != nil {
		return nil, err
	}
	return NewFromFS(views)
}

// NewFromDir parses views from dir, falling back to the embedded copy for
// any view the directory does not provide.
func NewFromDir(dir string) (*Renderer, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("inspect template directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template path %q is not a directory", dir)
	}
	base, err := fs.Sub(embedded, "views")
	if err != nil {
		return nil, err
	}
	return NewFromFS(overlayFS{primary: os.DirFS(dir), fallback: base})
}

// NewFromFS parses layout.html plus one <view>.html file per view from fsys.
func NewFromFS(fsys fs.FS) (*Renderer, error) {
	r := &Renderer{sets: make(map[string]*template.Template, len(views))}
	for _, name := range views {
		tpl, err := parseView(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("parse view %s: %w", name, err)
		}
		r.sets[name] = tpl
	}
	return r, nil
}

func parseView(fsys fs.FS, name string) (*template.Template, error) {
	tpl := template.New(name)
	for _, file := range []string{layoutFile, name + ".html"} {
		source, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, err
		}
		if _, err := tpl.New(file).Parse(string(source)); err != nil {
			return nil, err
		}
	}
	return tpl, nil
}

// Render executes view name. Output goes to out[0] when supplied, otherwise
// it is returned as a string.
func (r *Renderer) Render(name string, data any, out ...io.Writer) (string, error) {
	tpl, ok := r.sets[name]
	if !ok {
		return "", fmt.Errorf("template %q not found", name)
	}

	var buffer bytes.Buffer
	if err := tpl.ExecuteTemplate(&buffer, "layout", data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	if len(out) > 0 && out[0] != nil {
		_, err := buffer.WriteTo(out[0])
		return "", err
	}
	return buffer.String(), nil
}

type overlayFS struct {
	primary  fs.FS
	fallback fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	f, err := o.primary.Open(name)
	if err == nil {
		return f, nil
	}
	return o.fallback.Open(name)
}
