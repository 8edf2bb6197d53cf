package http

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-lessons/internal/changes"
	"github.com/goliatone/go-lessons/internal/lessons"
	"github.com/goliatone/go-lessons/internal/markdown"
	"github.com/goliatone/go-lessons/internal/render"
	"github.com/goliatone/go-lessons/internal/routes"
	"github.com/goliatone/go-lessons/internal/templates"
	"github.com/goliatone/go-lessons/pkg/interfaces"
)

type staticChanges struct {
	snapshot changes.Snapshot
}

func (s staticChanges) Snapshot() changes.Snapshot { return s.snapshot }

func contentFixture() fstest.MapFS {
	return fstest.MapFS{
		"intro/hello.md": {Data: []byte("---\ntitle: \"Hello\"\ntags: [\"basics\"]\n---\n# Hi\n")},
		"intro/shapes.md": {Data: []byte("---\ntitle: Shapes\ndescription: Circles and squares\ntags: [geometry]\n---\n" +
			"A `circle` and ``code``.\n\n++Main line /\\margin note++\n\n$a^2 + b^2 = c^2$\n")},
		"intro/untagged.md":    {Data: []byte("---\ntitle: Untagged\n---\nbody\n")},
		"intro/figure.png":     {Data: []byte("PNGDATA")},
		"intro/img/deep.png":   {Data: []byte("DEEP")},
		"intro/.secret.txt":    {Data: []byte("hidden")},
		"style.css":            {Data: []byte("body{}")},
		".git/config":          {Data: []byte("[core]")},
		"intro/notes/draft.md": {Data: []byte("# nested")},
	}
}

func newTestSite(t *testing.T, fsys fstest.MapFS, snap changes.Snapshot, extra ...SiteOption) http.Handler {
	t.Helper()

	rts, err := routes.New("http://localhost:3001")
	if err != nil {
		t.Fatalf("routes: %v", err)
	}
	idx, err := lessons.Build(context.Background(), fsys, lessons.BuildOptions{URL: rts.Lesson})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	store := lessons.NewStore(idx)
	views, err := templates.New()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	svc := markdown.NewService(nil, interfaces.ParseOptions{Extensions: []string{"gfm"}, Math: true})

	opts := []SiteOption{
		WithIndex(store),
		WithChanges(staticChanges{snapshot: snap}),
		WithLessons(render.New(store, fsys, svc)),
		WithViews(views),
		WithRoutes(rts),
		WithStatic(fsys, ".md"),
		WithSiteTitle("Test Courses"),
	}
	site := NewSite(append(opts, extra...)...)
	handler, err := site.Handler()
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	return handler
}

func doRequest(t *testing.T, handler http.Handler, path string, wantStatus int) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != wantStatus {
		t.Fatalf("GET %s: expected status %d got %d (%s)", path, wantStatus, rec.Code, rec.Body.String())
	}
	return rec
}

func TestEndToEndScenario(t *testing.T) {
	fsys := fstest.MapFS{
		"intro/hello.md": {Data: []byte("---\ntitle: \"Hello\"\ntags: [\"basics\"]\n---\n# Hi\n")},
	}
	handler := newTestSite(t, fsys, changes.Snapshot{State: changes.StateReady})

	index := doRequest(t, handler, "/index", http.StatusOK).Body.String()
	if strings.Count(index, `<a href="/courses/`) != 1 || !strings.Contains(index, `<a href="/courses/intro/hello">Hello</a>`) {
		t.Fatalf("expected one linked entry, got %s", index)
	}

	tagged := doRequest(t, handler, "/index/tag/basics", http.StatusOK).Body.String()
	if !strings.Contains(tagged, `<a href="/courses/intro/hello">Hello</a>`) {
		t.Fatalf("expected tagged entry, got %s", tagged)
	}

	lesson := doRequest(t, handler, "/courses/intro/hello", http.StatusOK).Body.String()
	if !strings.Contains(lesson, "<h1>Hi</h1>") {
		t.Fatalf("expected rendered heading, got %s", lesson)
	}
}

func TestIndexListsSortedLessonsAndTags(t *testing.T) {
	handler := newTestSite(t, contentFixture(), changes.Snapshot{State: changes.StateReady})

	body := doRequest(t, handler, "/index", http.StatusOK).Body.String()
	hello := strings.Index(body, ">Hello</a>")
	shapes := strings.Index(body, ">Shapes</a>")
	untagged := strings.Index(body, ">Untagged</a>")
	if hello < 0 || shapes < 0 || untagged < 0 || !(hello < shapes && shapes < untagged) {
		t.Fatalf("expected lessons sorted by title, got %s", body)
	}
	if !strings.Contains(body, `<a href="/index/tag/basics">basics</a>`) || !strings.Contains(body, `<a href="/index/tag/geometry">geometry</a>`) {
		t.Fatalf("expected tag navigation, got %s", body)
	}
	if !strings.Contains(body, "Circles and squares") {
		t.Fatalf("expected description, got %s", body)
	}
}

func TestTagFilterIsExact(t *testing.T) {
	handler := newTestSite(t, contentFixture(), changes.Snapshot{State: changes.StateReady})

	body := doRequest(t, handler, "/index/tag/geometry", http.StatusOK).Body.String()
	if !strings.Contains(body, ">Shapes</a>") || strings.Contains(body, ">Hello</a>") || strings.Contains(body, ">Untagged</a>") {
		t.Fatalf("unexpected filtered listing %s", body)
	}
	if !strings.Contains(body, `<a href="/index/tag/basics">basics</a>`) {
		t.Fatalf("expected full tag navigation on filtered page, got %s", body)
	}

	empty := doRequest(t, handler, "/index/tag/Geometry", http.StatusOK).Body.String()
	if strings.Contains(empty, ">Shapes</a>") || !strings.Contains(empty, "No lessons found.") {
		t.Fatalf("expected no case folding, got %s", empty)
	}
}

func TestLessonAppliesTransforms(t *testing.T) {
	handler := newTestSite(t, contentFixture(), changes.Snapshot{State: changes.StateReady})

	body := doRequest(t, handler, "/courses/intro/shapes", http.StatusOK).Body.String()
	for _, want := range []string{
		"<title>Shapes · Test Courses</title>",
		"<em>circle</em>",
		"<code>code</code>",
		`<div class="sidenote"><div class="sidenote-main">Main line</div><aside class="sidenote-margin">margin note</aside></div>`,
		`<span class="math math-inline">a^2 + b^2 = c^2</span>`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in %s", want, body)
		}
	}
}

func TestLessonNotFound(t *testing.T) {
	handler := newTestSite(t, contentFixture(), changes.Snapshot{State: changes.StateReady})

	for _, path := range []string{
		"/courses/intro/missing",
		"/courses/nope/hello",
		"/courses/intro/hello.md",
		"/courses/intro/notes",
	} {
		body := doRequest(t, handler, path, http.StatusNotFound).Body.String()
		if !strings.Contains(body, "not found") {
			t.Fatalf("GET %s: expected not found page, got %s", path, body)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	handler := newTestSite(t, contentFixture(), changes.Snapshot{State: changes.StateReady})

	if body := doRequest(t, handler, "/intro/figure.png", http.StatusOK).Body.String(); body != "PNGDATA" {
		t.Fatalf("unexpected root relative asset %q", body)
	}
	if body := doRequest(t, handler, "/courses/intro/figure.png", http.StatusOK).Body.String(); body != "PNGDATA" {
		t.Fatalf("unexpected lesson relative asset %q", body)
	}
	if body := doRequest(t, handler, "/courses/intro/img/deep.png", http.StatusOK).Body.String(); body != "DEEP" {
		t.Fatalf("unexpected nested asset %q", body)
	}
	if body := doRequest(t, handler, "/style.css", http.StatusOK).Body.String(); body != "body{}" {
		t.Fatalf("unexpected stylesheet %q", body)
	}

	for _, path := range []string{
		"/intro/hello.md",
		"/courses/intro/hello.md",
		"/intro/.secret.txt",
		"/.git/config",
		"/intro",
		"/intro/",
		"/missing.png",
	} {
		doRequest(t, handler, path, http.StatusNotFound)
	}
}

func TestHomeRendersChangeStates(t *testing.T) {
	pending := newTestSite(t, contentFixture(), changes.Snapshot{State: changes.StatePending})
	if body := doRequest(t, pending, "/", http.StatusOK).Body.String(); !strings.Contains(body, "still loading") {
		t.Fatalf("expected pending notice, got %s", body)
	}

	ready := newTestSite(t, contentFixture(), changes.Snapshot{State: changes.StateReady, Changes: []changes.Change{
		{Kind: changes.KindModified, Title: "Hello", URL: "/courses/intro/hello"},
	}})
	body := doRequest(t, ready, "/", http.StatusOK).Body.String()
	if !strings.Contains(body, `<span class="kind">Modified</span> <a href="/courses/intro/hello">Hello</a>`) {
		t.Fatalf("expected change list, got %s", body)
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestSite(t, contentFixture(), changes.Snapshot{State: changes.StatePending})

	rec := doRequest(t, handler, "/healthz", http.StatusOK)
	var payload healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Lessons != 3 || payload.Tags != 2 || payload.Changes != changes.StatePending {
		t.Fatalf("unexpected health payload %#v", payload)
	}
}

func TestRequestIDHeader(t *testing.T) {
	handler := newTestSite(t, contentFixture(), changes.Snapshot{State: changes.StateReady})

	rec := doRequest(t, handler, "/healthz", http.StatusOK)
	if rec.Header().Get(HeaderRequestID) == "" {
		t.Fatal("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "req-1234")
	out := httptest.NewRecorder()
	handler.ServeHTTP(out, req)
	if out.Header().Get(HeaderRequestID) != "req-1234" {
		t.Fatalf("expected request id to be echoed, got %q", out.Header().Get(HeaderRequestID))
	}
}

type failingRenderer struct{ err error }

func (f failingRenderer) Render(context.Context, string, string) (*render.Page, error) {
	return nil, f.err
}

func TestLessonInternalErrorHidesDetails(t *testing.T) {
	rts, err := routes.New("http://localhost:3001")
	if err != nil {
		t.Fatalf("routes: %v", err)
	}
	views, err := templates.New()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	site := NewSite(
		WithIndex(lessons.NewStore(lessons.NewIndex(nil, lessons.DefaultLanguage))),
		WithLessons(failingRenderer{err: errors.New("disk on fire at /srv/content")}),
		WithViews(views),
		WithRoutes(rts),
	)
	handler, err := site.Handler()
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}

	body := doRequest(t, handler, "/courses/intro/hello", http.StatusInternalServerError).Body.String()
	if strings.Contains(body, "/srv/content") {
		t.Fatalf("expected internal details to stay out of the response, got %s", body)
	}
}

func TestRegisterRequiresDependencies(t *testing.T) {
	if err := NewSite().Register(http.NewServeMux()); err == nil {
		t.Fatal("expected missing dependency error")
	}
	if err := NewSite().Register(nil); err == nil {
		t.Fatal("expected nil mux error")
	}
}

func TestAssetName(t *testing.T) {
	cases := map[string]bool{
		"intro/figure.png": true,
		"style.css":        true,
		"":                 false,
		"intro/hello.md":   false,
		"intro/HELLO.MD":   false,
		"../etc/passwd":    false,
		"intro/../x.png":   false,
		".env":             false,
		"intro//x.png":     false,
		"intro/x.png/":     false,
		`intro\x.png`:      false,
	}
	for name, want := range cases {
		if _, ok := assetName(name, ".md"); ok != want {
			t.Fatalf("assetName(%q) = %v, want %v", name, ok, want)
		}
	}
}

type fixedTheme struct {
	fsys   fstest.MapFS
	assets []string
}

func (f fixedTheme) FS() fs.FS        { return f.fsys }
func (f fixedTheme) Assets() []string { return f.assets }

func TestThemeAssetsServedAndLinked(t *testing.T) {
	theme := fixedTheme{
		fsys: fstest.MapFS{
			"css/chalk.css": {Data: []byte("body{color:#111}")},
			"js/menu.js":    {Data: []byte("void 0")},
			"lesson.html":   {Data: []byte("unlisted")},
		},
		assets: []string{"css/chalk.css", "js/menu.js"},
	}
	handler := newTestSite(t, contentFixture(), changes.Snapshot{State: changes.StateReady}, WithTheme(theme))

	home := doRequest(t, handler, "/", http.StatusOK).Body.String()
	for _, want := range []string{
		`<link rel="stylesheet" href="/_theme/css/chalk.css">`,
		`<script defer src="/_theme/js/menu.js"></script>`,
	} {
		if !strings.Contains(home, want) {
			t.Fatalf("expected %q in home page, got %s", want, home)
		}
	}

	css := doRequest(t, handler, "/_theme/css/chalk.css", http.StatusOK)
	if css.Body.String() != "body{color:#111}" {
		t.Fatalf("unexpected theme asset body %q", css.Body.String())
	}
	doRequest(t, handler, "/_theme/lesson.html", http.StatusNotFound)
	doRequest(t, handler, "/_theme/missing.css", http.StatusNotFound)
}

func TestNoThemeRouteWithoutTheme(t *testing.T) {
	handler := newTestSite(t, contentFixture(), changes.Snapshot{State: changes.StateReady})
	doRequest(t, handler, "/_theme/css/chalk.css", http.StatusNotFound)
}
