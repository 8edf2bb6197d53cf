package render

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-lessons/internal/lessons"
	"github.com/goliatone/go-lessons/internal/markdown"
	"github.com/goliatone/go-lessons/pkg/interfaces"
)

func newTestRenderer(t *testing.T, content fs.FS, index fs.FS) *Renderer {
	t.Helper()
	idx, err := lessons.Build(context.Background(), index, lessons.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	svc := markdown.NewService(nil, interfaces.ParseOptions{Extensions: []string{"gfm"}, Math: true})
	return New(lessons.NewStore(idx), content, svc)
}

func fixture() fstest.MapFS {
	return fstest.MapFS{
		"intro/hello.md": {Data: []byte("---\ntitle: \"Hello\"\ntags: [\"basics\"]\n---\n# Hi\n")},
	}
}

func TestRenderKnownLesson(t *testing.T) {
	fsys := fixture()
	r := newTestRenderer(t, fsys, fsys)

	page, err := r.Render(context.Background(), "intro", "hello")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if page.Title != "Hello" {
		t.Fatalf("expected title Hello, got %q", page.Title)
	}
	if got := strings.TrimSpace(string(page.HTML())); got != "<h1>Hi</h1>" {
		t.Fatalf("unexpected html %q", got)
	}
}

func TestRenderRejectsUnknownPairs(t *testing.T) {
	fsys := fixture()
	fsys["secret.md"] = &fstest.MapFile{Data: []byte("# secret")}
	r := newTestRenderer(t, fsys, fsys)

	pairs := [][2]string{
		{"intro", "missing"},
		{"nope", "hello"},
		{"..", "secret"},
		{"intro", "../secret"},
		{"intro", "hello.md"},
	}
	for _, pair := range pairs {
		_, err := r.Render(context.Background(), pair[0], pair[1])
		if err == nil {
			t.Fatalf("expected not found for %v", pair)
		}
		if !IsNotFound(err) {
			t.Fatalf("expected not found category for %v, got %v", pair, err)
		}
		if !errors.Is(err, lessons.ErrLessonNotFound) {
			t.Fatalf("expected ErrLessonNotFound for %v, got %v", pair, err)
		}
	}
}

func TestRenderStaleIndexIsNotFound(t *testing.T) {
	indexed := fixture()
	r := newTestRenderer(t, fstest.MapFS{}, indexed)

	_, err := r.Render(context.Background(), "intro", "hello")
	if !IsNotFound(err) {
		t.Fatalf("expected not found for a removed file, got %v", err)
	}
}

type brokenFS struct{}

func (brokenFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
}

func TestRenderReadFailureIsInternal(t *testing.T) {
	r := newTestRenderer(t, brokenFS{}, fixture())

	_, err := r.Render(context.Background(), "intro", "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if IsNotFound(err) {
		t.Fatalf("expected permission failure not to be reported as not found: %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryInternal) {
		t.Fatalf("expected internal category, got %v", err)
	}
}

func TestRenderReadsFilePerRequest(t *testing.T) {
	fsys := fixture()
	r := newTestRenderer(t, fsys, fsys)

	fsys["intro/hello.md"] = &fstest.MapFile{Data: []byte("---\ntitle: Updated\n---\n## Changed\n")}

	page, err := r.Render(context.Background(), "intro", "hello")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if page.Title != "Updated" || !strings.Contains(string(page.HTML()), "<h2>Changed</h2>") {
		t.Fatalf("expected fresh content, got %q / %q", page.Title, page.HTML())
	}
}
