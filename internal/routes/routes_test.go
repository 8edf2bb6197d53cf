package routes

import "testing"

func TestRoutes(t *testing.T) {
	r, err := New("https://courses.example.com/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	lesson, err := r.Lesson("intro", "hello")
	if err != nil {
		t.Fatalf("Lesson: %v", err)
	}
	if lesson != "/courses/intro/hello" {
		t.Fatalf("unexpected lesson path %q", lesson)
	}

	tag, err := r.Tag("basics")
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if tag != "/index/tag/basics" {
		t.Fatalf("unexpected tag path %q", tag)
	}

	if r.Home() != "/" || r.Index() != "/index" {
		t.Fatalf("unexpected static paths %q %q", r.Home(), r.Index())
	}
}

func TestRoutesRejectEmptyParams(t *testing.T) {
	r, err := New("http://localhost:3001")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := r.Lesson("intro", ""); err == nil {
		t.Fatal("expected error for empty lesson")
	}
	if _, err := r.Tag(""); err == nil {
		t.Fatal("expected error for empty tag")
	}
}

func TestRoutesAbsolute(t *testing.T) {
	r, err := New("https://example.com/site/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := r.Absolute("/courses/intro/hello"); got != "https://example.com/site/courses/intro/hello" {
		t.Fatalf("unexpected absolute url %q", got)
	}
	if got := r.Absolute("/"); got != "https://example.com/site/" {
		t.Fatalf("unexpected absolute root %q", got)
	}
}

func TestNewRequiresAbsoluteBase(t *testing.T) {
	for _, base := range []string{"", "/relative", "localhost:3001/x"} {
		if _, err := New(base); err == nil {
			t.Fatalf("expected error for base %q", base)
		}
	}
}

func TestThemeAssetPath(t *testing.T) {
	r, err := New("https://courses.example.com/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cases := map[string]string{
		"css/chalk.css":      "/_theme/css/chalk.css",
		"/js/app.js":         "/_theme/js/app.js",
		"fonts/my font.woff": "/_theme/fonts/my%20font.woff",
	}
	for asset, want := range cases {
		if got := r.ThemeAsset(asset); got != want {
			t.Fatalf("ThemeAsset(%q) = %q, want %q", asset, got, want)
		}
	}
}
