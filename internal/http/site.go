package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/goliatone/go-lessons/internal/changes"
	"github.com/goliatone/go-lessons/internal/lessons"
	"github.com/goliatone/go-lessons/internal/logging"
	"github.com/goliatone/go-lessons/internal/render"
	"github.com/goliatone/go-lessons/internal/routes"
	"github.com/goliatone/go-lessons/internal/templates"
	"github.com/goliatone/go-lessons/pkg/interfaces"
)

// IndexSource yields the current lesson index snapshot.
type IndexSource interface {
	Index() *lessons.Index
}

// ChangesSource yields the recent changes snapshot.
type ChangesSource interface {
	Snapshot() changes.Snapshot
}

// LessonRenderer renders a lesson identified by request parameters.
type LessonRenderer interface {
	Render(ctx context.Context, topic, lesson string) (*render.Page, error)
}

// ThemeAssets exposes the files a page theme links to.
type ThemeAssets interface {
	FS() fs.FS
	Assets() []string
}

// Site registers the public lesson routes.
type Site struct {
	index   IndexSource
	changes ChangesSource
	lessons LessonRenderer
	views   interfaces.TemplateRenderer
	routes  *routes.Routes
	static  fs.FS
	ext     string
	theme   ThemeAssets
	assets  map[string]struct{}
	info    templates.SiteInfo
	logger  interfaces.Logger
}

// SiteOption mutates the Site configuration.
type SiteOption func(*Site)

// WithIndex sets the lesson index source.
func WithIndex(index IndexSource) SiteOption {
	return func(s *Site) { s.index = index }
}

// WithChanges sets the recent changes source.
func WithChanges(source ChangesSource) SiteOption {
	return func(s *Site) { s.changes = source }
}

// WithLessons sets the lesson renderer.
func WithLessons(renderer LessonRenderer) SiteOption {
	return func(s *Site) { s.lessons = renderer }
}

// WithViews sets the page template renderer.
func WithViews(views interfaces.TemplateRenderer) SiteOption {
	return func(s *Site) { s.views = views }
}

// WithRoutes sets the URL builder used for navigation links.
func WithRoutes(r *routes.Routes) SiteOption {
	return func(s *Site) { s.routes = r }
}

// WithStatic serves assets from the content directory. ext names lesson
// sources, which are never served raw.
func WithStatic(content fs.FS, ext string) SiteOption {
	return func(s *Site) {
		s.static = content
		if ext != "" {
			s.ext = ext
		}
	}
}

// WithTheme serves the theme's assets under /_theme/ and links its
// stylesheets and scripts from every page.
func WithTheme(theme ThemeAssets) SiteOption {
	return func(s *Site) { s.theme = theme }
}

// WithSiteTitle sets the title shown in the layout.
func WithSiteTitle(title string) SiteOption {
	return func(s *Site) {
		if trimmed := strings.TrimSpace(title); trimmed != "" {
			s.info.Title = trimmed
		}
	}
}

// WithLogger sets the HTTP logger.
func WithLogger(logger interfaces.Logger) SiteOption {
	return func(s *Site) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSite constructs a Site.
func NewSite(opts ...SiteOption) *Site {
	s := &Site{
		ext:    lessons.DefaultExtension,
		info:   templates.SiteInfo{Title: "Courses"},
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Register mounts every route on mux.
func (s *Site) Register(mux *http.ServeMux) error {
	if mux == nil {
		return fmt.Errorf("http: mux is required")
	}
	if s == nil {
		return fmt.Errorf("http: site is nil")
	}
	if s.index == nil || s.lessons == nil || s.views == nil || s.routes == nil {
		return fmt.Errorf("http: site requires index, lessons, views and routes")
	}
	s.info.HomeURL = s.routes.Home()
	s.info.IndexURL = s.routes.Index()
	s.registerTheme(mux)

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /index", s.handleIndex)
	mux.HandleFunc("GET /index/tag/{tag}", s.handleTag)
	mux.HandleFunc("GET /courses/{topic}/{lesson}", s.handleLesson)
	mux.HandleFunc("GET /courses/{path...}", s.handleLessonAsset)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /", s.handleStatic)
	return nil
}

// Handler returns a mux with every route registered, wrapped with request
// logging.
func (s *Site) Handler() (http.Handler, error) {
	mux := http.NewServeMux()
	if err := s.Register(mux); err != nil {
		return nil, err
	}
	return withRequestLogging(mux, s.logger), nil
}

func (s *Site) handleHome(w http.ResponseWriter, r *http.Request) {
	view := templates.HomeView{Site: s.info, State: changes.StateReady}
	if s.changes != nil {
		snap := s.changes.Snapshot()
		view.State = snap.State
		view.Changes = snap.Changes
	}
	s.renderView(w, r, http.StatusOK, templates.ViewHome, view)
}

func (s *Site) handleIndex(w http.ResponseWriter, r *http.Request) {
	idx := s.index.Index()
	s.renderView(w, r, http.StatusOK, templates.ViewIndex, templates.IndexView{
		Site:    s.info,
		Tags:    s.tagLinks(r.Context(), idx.Tags(), ""),
		Lessons: idx.All(),
	})
}

func (s *Site) handleTag(w http.ResponseWriter, r *http.Request) {
	tag := r.PathValue("tag")
	idx := s.index.Index()
	s.renderView(w, r, http.StatusOK, templates.ViewIndex, templates.IndexView{
		Site:      s.info,
		ActiveTag: tag,
		Tags:      s.tagLinks(r.Context(), idx.Tags(), tag),
		Lessons:   idx.ByTag(tag),
	})
}

func (s *Site) handleLesson(w http.ResponseWriter, r *http.Request) {
	topic, lesson := r.PathValue("topic"), r.PathValue("lesson")

	page, err := s.lessons.Render(r.Context(), topic, lesson)
	if err != nil {
		if render.IsNotFound(err) && s.serveAsset(w, r, topic+"/"+lesson) {
			return
		}
		s.renderError(w, r, err)
		return
	}

	s.renderView(w, r, http.StatusOK, templates.ViewLesson, templates.LessonView{
		Site:   s.info,
		Title:  page.Title,
		Body:   template.HTML(page.HTML()),
		Record: page.Record,
	})
}

func (s *Site) handleLessonAsset(w http.ResponseWriter, r *http.Request) {
	if !s.serveAsset(w, r, r.PathValue("path")) {
		s.renderNotFound(w, r)
	}
}

func (s *Site) handleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.serveAsset(w, r, strings.TrimPrefix(r.URL.Path, "/")) {
		s.renderNotFound(w, r)
	}
}

type healthResponse struct {
	Status  string        `json:"status"`
	Lessons int           `json:"lessons"`
	Tags    int           `json:"tags"`
	Changes changes.State `json:"changes"`
}

func (s *Site) handleHealth(w http.ResponseWriter, r *http.Request) {
	idx := s.index.Index()
	resp := healthResponse{Status: "ok", Lessons: idx.Len(), Tags: len(idx.Tags()), Changes: changes.StateReady}
	if s.changes != nil {
		resp.Changes = s.changes.Snapshot().State
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Site) tagLinks(ctx context.Context, tags []string, active string) []templates.TagLink {
	links := make([]templates.TagLink, 0, len(tags))
	for _, tag := range tags {
		href, err := s.routes.Tag(tag)
		if err != nil {
			s.logger.WithContext(ctx).Warn("http.tag_link_failed", "tag", tag, "error", err)
			continue
		}
		links = append(links, templates.TagLink{Name: tag, URL: href, Active: tag == active})
	}
	return links
}

func (s *Site) renderView(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	body, err := s.views.Render(name, data)
	if err != nil {
		s.logger.WithContext(r.Context()).Error("http.render_failed", "view", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (s *Site) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithContext(r.Context()).Error("http.request_failed", "error", err)
	}
	s.renderView(w, r, status, templates.ViewError, templates.ErrorView{
		Site:    s.info,
		Status:  status,
		Message: payload.Message,
	})
}

func (s *Site) renderNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderView(w, r, http.StatusNotFound, templates.ViewError, templates.ErrorView{
		Site:    s.info,
		Status:  http.StatusNotFound,
		Message: "not found",
	})
}
