package markdown

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-lessons/pkg/interfaces"
)

func TestServiceRenderAppliesTransformsInOrder(t *testing.T) {
	svc := NewService(nil, interfaces.ParseOptions{Extensions: []string{"gfm"}, Math: true})

	source := []byte(`---
title: Pipeline
---
# Hi

Use ` + "`care`" + ` with ` + "``code``" + `.

++main text /\margin text
second line++

Inline $x^2$ math.
`)

	doc, err := svc.Render(context.Background(), "intro/pipeline.md", source)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := string(doc.BodyHTML)

	expect := []string{
		"<h1>Hi</h1>",
		"<em>care</em>",
		"<code>code</code>",
		`<div class="sidenote"><div class="sidenote-main">main text` + "\n" + `second line</div><aside class="sidenote-margin">margin text</aside></div>`,
		`<span class="math math-inline">x^2</span>`,
	}
	for _, want := range expect {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in rendered html:\n%s", want, html)
		}
	}
	if doc.FrontMatter.Title != "Pipeline" {
		t.Fatalf("expected front matter title, got %q", doc.FrontMatter.Title)
	}
}

func TestServiceRenderHonoursCancellation(t *testing.T) {
	svc := NewService(nil, interfaces.ParseOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Render(ctx, "x.md", []byte("# x")); err == nil {
		t.Fatal("expected context error")
	}
}

type stubParser struct {
	seen []byte
}

func (s *stubParser) Parse(markdown []byte) ([]byte, error) {
	return s.ParseWithOptions(markdown, interfaces.ParseOptions{})
}

func (s *stubParser) ParseWithOptions(markdown []byte, _ interfaces.ParseOptions) ([]byte, error) {
	s.seen = append([]byte(nil), markdown...)
	return []byte("<p>++a /\\b++</p>"), nil
}

func TestServiceRenderBodyUsesInjectedParser(t *testing.T) {
	stub := &stubParser{}
	svc := NewService(stub, interfaces.ParseOptions{})

	html, err := svc.RenderBody([]byte("`x`"))
	if err != nil {
		t.Fatalf("RenderBody: %v", err)
	}
	if string(stub.seen) != "<em>x</em>" {
		t.Fatalf("expected emphasis before parsing, parser saw %q", stub.seen)
	}
	if !strings.Contains(string(html), `<aside class="sidenote-margin">b</aside>`) {
		t.Fatalf("expected side notes after parsing, got %q", html)
	}
}

func TestServiceRenderBodyStrayMathFence(t *testing.T) {
	svc := NewService(nil, interfaces.ParseOptions{Extensions: []string{"gfm"}, Math: true})

	html, err := svc.RenderBody([]byte("$$\n# Heading\n\nSome *bold* text\n\n- item\n"))
	if err != nil {
		t.Fatalf("RenderBody: %v", err)
	}
	for _, want := range []string{"<h1>Heading</h1>", "<em>bold</em>", "<ul>", "<li>item</li>"} {
		if !strings.Contains(string(html), want) {
			t.Fatalf("expected %q after an unclosed fence, got %s", want, html)
		}
	}
}

func TestServiceRenderBodyKeepsTildeFenceVerbatim(t *testing.T) {
	svc := NewService(nil, interfaces.ParseOptions{Extensions: []string{"gfm"}})

	html, err := svc.RenderBody([]byte("~~~js\nconst s = `hi`;\n~~~\n\nafter `x`\n"))
	if err != nil {
		t.Fatalf("RenderBody: %v", err)
	}
	out := string(html)
	if !strings.Contains(out, "const s = `hi`;") {
		t.Fatalf("expected raw backticks in code block, got %s", out)
	}
	if strings.Contains(out, "&lt;em&gt;") {
		t.Fatalf("did not expect escaped emphasis in code block, got %s", out)
	}
	if !strings.Contains(out, "after <em>x</em>") {
		t.Fatalf("expected emphasis after the fence, got %s", out)
	}
}
