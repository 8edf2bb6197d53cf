package export

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	sitehttp "github.com/goliatone/go-lessons/internal/http"
	"github.com/goliatone/go-lessons/internal/lessons"
	"github.com/goliatone/go-lessons/internal/markdown"
	"github.com/goliatone/go-lessons/internal/render"
	"github.com/goliatone/go-lessons/internal/routes"
	"github.com/goliatone/go-lessons/internal/templates"
	"github.com/goliatone/go-lessons/pkg/interfaces"
)

func exportFixture() fstest.MapFS {
	return fstest.MapFS{
		"intro/hello.md":    {Data: []byte("---\ntitle: Hello\ntags: [basics, go]\n---\n# Hi\n")},
		"intro/world.md":    {Data: []byte("---\ntitle: World\ntags: [go]\n---\nText\n")},
		"intro/figure.png":  {Data: []byte("PNG")},
		"intro/.draft.txt":  {Data: []byte("hidden")},
		"style.css":         {Data: []byte("body{}")},
		".git/HEAD":         {Data: []byte("ref")},
		"algebra/groups.md": {Data: []byte("---\ntitle: Groups\n---\n$x$\n")},
	}
}

func newExporter(t *testing.T, fsys fstest.MapFS) *Exporter {
	t.Helper()
	return buildExporter(t, fsys, nil)
}

func buildExporter(t *testing.T, fsys fstest.MapFS, theme ThemeAssets) *Exporter {
	t.Helper()
	rts, err := routes.New("https://lessons.example.com/site")
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
	opts := []sitehttp.SiteOption{
		sitehttp.WithIndex(store),
		sitehttp.WithLessons(render.New(store, fsys, svc)),
		sitehttp.WithViews(views),
		sitehttp.WithRoutes(rts),
		sitehttp.WithStatic(fsys, ".md"),
	}
	if theme != nil {
		opts = append(opts, sitehttp.WithTheme(theme))
	}
	site := sitehttp.NewSite(opts...)
	handler, err := site.Handler()
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	return New(Dependencies{Site: handler, Index: store, Routes: rts, Content: fsys, Theme: theme})
}

func readOutput(t *testing.T, dir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

func TestExportWritesPagesAssetsAndSitemap(t *testing.T) {
	out := t.TempDir()
	exporter := newExporter(t, exportFixture())

	result, err := exporter.Export(context.Background(), Options{OutputDir: out, Workers: 2, Sitemap: true})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	// home, index, tags basics+go, three lessons
	if result.Pages != 7 {
		t.Fatalf("expected 7 pages, got %d (%v)", result.Pages, result.Written)
	}
	if !result.Sitemap {
		t.Fatal("expected sitemap to be written")
	}

	if body := readOutput(t, out, "courses/intro/hello/index.html"); !strings.Contains(body, "<h1>Hi</h1>") {
		t.Fatalf("expected rendered lesson, got %s", body)
	}
	if body := readOutput(t, out, "index/tag/go/index.html"); !strings.Contains(body, "World") || strings.Contains(body, "Groups") {
		t.Fatalf("unexpected tag page: %s", body)
	}
	readOutput(t, out, "index.html")
	readOutput(t, out, "index/index.html")

	if got := readOutput(t, out, "style.css"); got != "body{}" {
		t.Fatalf("expected copied asset, got %q", got)
	}
	if got := readOutput(t, out, "courses/intro/figure.png"); got != "PNG" {
		t.Fatalf("expected mirrored lesson asset, got %q", got)
	}
	for _, rel := range []string{"intro/hello.md", "intro/.draft.txt", ".git/HEAD"} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(rel))); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected %s to be skipped, stat err %v", rel, err)
		}
	}

	sitemap := readOutput(t, out, "sitemap.xml")
	for _, loc := range []string{
		"<loc>https://lessons.example.com/site/</loc>",
		"<loc>https://lessons.example.com/site/courses/intro/hello</loc>",
		"<loc>https://lessons.example.com/site/index/tag/basics</loc>",
	} {
		if !strings.Contains(sitemap, loc) {
			t.Fatalf("expected %s in sitemap:\n%s", loc, sitemap)
		}
	}
}

type fixedTheme struct {
	fsys   fstest.MapFS
	assets []string
}

func (f fixedTheme) FS() fs.FS        { return f.fsys }
func (f fixedTheme) Assets() []string { return f.assets }

func TestExportCopiesThemeAssets(t *testing.T) {
	out := t.TempDir()
	theme := fixedTheme{
		fsys: fstest.MapFS{
			"css/chalk.css": {Data: []byte("body{color:#111}")},
			"notes.txt":     {Data: []byte("unlisted")},
		},
		assets: []string{"css/chalk.css"},
	}
	exporter := buildExporter(t, exportFixture(), theme)

	result, err := exporter.Export(context.Background(), Options{OutputDir: out, Workers: 1})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if got := readOutput(t, out, "_theme/css/chalk.css"); got != "body{color:#111}" {
		t.Fatalf("unexpected theme asset %q", got)
	}
	if _, err := os.Stat(filepath.Join(out, "_theme", "notes.txt")); !os.IsNotExist(err) {
		t.Fatalf("expected unlisted theme file to be skipped, got %v", err)
	}
	if home := readOutput(t, out, "index.html"); !strings.Contains(home, `href="/_theme/css/chalk.css"`) {
		t.Fatalf("expected theme stylesheet link in exported home, got %s", home)
	}
	found := false
	for _, rel := range result.Written {
		if rel == "_theme/css/chalk.css" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected theme asset in written list, got %v", result.Written)
	}
}

func TestExportRejectsInvalidThemeAsset(t *testing.T) {
	theme := fixedTheme{fsys: fstest.MapFS{}, assets: []string{"../escape.css"}}
	exporter := buildExporter(t, exportFixture(), theme)
	if _, err := exporter.Export(context.Background(), Options{OutputDir: t.TempDir()}); err == nil {
		t.Fatal("expected error for an asset outside the theme directory")
	}
}

func TestExportCleanRemovesStaleFiles(t *testing.T) {
	out := t.TempDir()
	stale := filepath.Join(out, "stale.html")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("write stale: %v", err)
	}

	exporter := newExporter(t, exportFixture())
	if _, err := exporter.Export(context.Background(), Options{OutputDir: out, Clean: true}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected stale file removed, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "sitemap.xml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no sitemap when disabled, got %v", err)
	}
}

func TestExportRequiresOutputDir(t *testing.T) {
	exporter := newExporter(t, exportFixture())
	if _, err := exporter.Export(context.Background(), Options{}); !errors.Is(err, ErrOutputDirRequired) {
		t.Fatalf("expected ErrOutputDirRequired, got %v", err)
	}
}

func TestExportFailsOnMissingLessonFile(t *testing.T) {
	fsys := exportFixture()
	exporter := newExporter(t, fsys)
	delete(fsys, "intro/world.md")

	_, err := exporter.Export(context.Background(), Options{OutputDir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("expected 404 failure for stale lesson, got %v", err)
	}
}

func TestExportHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exporter := newExporter(t, exportFixture())
	if _, err := exporter.Export(ctx, Options{OutputDir: t.TempDir()}); err == nil {
		t.Fatal("expected cancelled export to fail")
	}
}

func TestTargetPath(t *testing.T) {
	cases := map[string]string{
		"/":                   "index.html",
		"/index":              "index/index.html",
		"/index/tag/go":       "index/tag/go/index.html",
		"/courses/a/b%20c":    "courses/a/b c/index.html",
		"/index/tag/c%2B%2B/": "index/tag/c++/index.html",
	}
	for route, want := range cases {
		got, err := targetPath(route)
		if err != nil {
			t.Fatalf("targetPath(%q): %v", route, err)
		}
		if got != want {
			t.Fatalf("targetPath(%q): expected %q got %q", route, want, got)
		}
	}
	for _, route := range []string{"/index/tag/..", "/courses/.hidden/x"} {
		if _, err := targetPath(route); err == nil {
			t.Fatalf("expected %q to be rejected", route)
		}
	}
}

func TestWorkerCount(t *testing.T) {
	if got := workerCount(8, 3); got != 3 {
		t.Fatalf("expected workers capped by jobs, got %d", got)
	}
	if got := workerCount(2, 10); got != 2 {
		t.Fatalf("expected configured workers, got %d", got)
	}
	if got := workerCount(-1, 0); got < 1 {
		t.Fatalf("expected at least one worker, got %d", got)
	}
}

type statusHandler int

func (s statusHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(int(s))
}

func TestPageRecorderDefaultsToOK(t *testing.T) {
	rec := newPageRecorder()
	_, _ = rec.Write([]byte("x"))
	rec.WriteHeader(http.StatusTeapot)
	if rec.status != http.StatusOK {
		t.Fatalf("expected first status to win, got %d", rec.status)
	}

	failing := newPageRecorder()
	statusHandler(http.StatusInternalServerError).ServeHTTP(failing, nil)
	if failing.status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", failing.status)
	}
}
