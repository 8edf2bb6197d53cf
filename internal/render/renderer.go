package render

import (
	"context"
	"errors"
	"io/fs"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-lessons/internal/lessons"
	"github.com/goliatone/go-lessons/internal/logging"
	"github.com/goliatone/go-lessons/internal/markdown"
	"github.com/goliatone/go-lessons/pkg/interfaces"
)

const (
	// TextCodeLessonNotFound tags lookups that miss the index or the disk.
	TextCodeLessonNotFound = "LESSON_NOT_FOUND"
	// TextCodeLessonUnreadable tags I/O failures other than a missing file.
	TextCodeLessonUnreadable = "LESSON_UNREADABLE"
	// TextCodeLessonRender tags Markdown conversion failures.
	TextCodeLessonRender = "LESSON_RENDER_FAILED"
)

// IndexSource yields the current lesson index.
type IndexSource interface {
	Index() *lessons.Index
}

// Page is a rendered lesson ready for the lesson template.
type Page struct {
	Record   lessons.Record
	Title    string
	Document *interfaces.Document
}

// HTML returns the final lesson body.
func (p *Page) HTML() []byte {
	if p == nil || p.Document == nil {
		return nil
	}
	return p.Document.BodyHTML
}

// Renderer loads lesson sources on demand. Only files named by an index
// record are ever opened, so request identifiers never reach the
// filesystem directly.
type Renderer struct {
	index    IndexSource
	content  fs.FS
	markdown *markdown.Service
	logger   interfaces.Logger
}

// Option customises a Renderer.
type Option func(*Renderer)

// WithLogger sets the renderer logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a Renderer reading sources from content.
func New(index IndexSource, content fs.FS, svc *markdown.Service, opts ...Option) *Renderer {
	r := &Renderer{
		index:    index,
		content:  content,
		markdown: svc,
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render produces the page for topic/lesson. Unknown pairs and files removed
// since indexing fail with a not found error; other read failures are
// internal errors.
func (r *Renderer) Render(ctx context.Context, topic, lesson string) (*Page, error) {
	rec, ok := r.index.Index().Lookup(topic, lesson)
	if !ok {
		return nil, notFound(topic, lesson)
	}
	return r.RenderRecord(ctx, rec)
}

// RenderRecord renders an already resolved record.
func (r *Renderer) RenderRecord(ctx context.Context, rec lessons.Record) (*Page, error) {
	logger := logging.WithLessonContext(r.logger, rec.Topic, rec.Lesson, rec.Path)

	source, err := fs.ReadFile(r.content, rec.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("lesson.source_missing", "error", err)
			return nil, notFound(rec.Topic, rec.Lesson)
		}
		logger.Error("lesson.read_failed", "error", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "lesson source unreadable").
			WithTextCode(TextCodeLessonUnreadable)
	}

	doc, err := r.markdown.Render(ctx, rec.Path, source)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Error("lesson.render_failed", "error", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "lesson render failed").
			WithTextCode(TextCodeLessonRender)
	}

	title := doc.FrontMatter.Title
	if title == "" {
		title = rec.Title
	}
	logger.Debug("lesson.rendered", "bytes", len(doc.BodyHTML))

	return &Page{Record: rec, Title: title, Document: doc}, nil
}

func notFound(topic, lesson string) error {
	return goerrors.Wrap(lessons.ErrLessonNotFound, goerrors.CategoryNotFound, "lesson not found").
		WithTextCode(TextCodeLessonNotFound).
		WithMetadata(map[string]any{"topic": topic, "lesson": lesson})
}

// IsNotFound reports whether err is a lesson lookup miss.
func IsNotFound(err error) bool {
	return goerrors.IsCategory(err, goerrors.CategoryNotFound) || errors.Is(err, lessons.ErrLessonNotFound)
}
