package markdown

import (
	"context"
	"fmt"

	"github.com/goliatone/go-lessons/pkg/interfaces"
)

// Service renders lesson sources into documents. Transform order matters:
// backtick emphasis runs on the Markdown source, side notes on the HTML.
type Service struct {
	parser  interfaces.MarkdownParser
	options interfaces.ParseOptions
}

// NewService constructs a Service. When parser is nil a GoldmarkParser with
// opts as defaults is created.
func NewService(parser interfaces.MarkdownParser, opts interfaces.ParseOptions) *Service {
	if parser == nil {
		parser = NewGoldmarkParser(opts)
	}
	return &Service{parser: parser, options: opts}
}

// Render splits front matter from source and converts the body into the
// final lesson HTML.
func (s *Service) Render(ctx context.Context, path string, source []byte) (*interfaces.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := BuildDocument(path, source)
	if err != nil {
		return nil, fmt.Errorf("markdown render %s: %w", path, err)
	}

	html, err := s.RenderBody(doc.Body)
	if err != nil {
		return nil, fmt.Errorf("markdown render %s: %w", path, err)
	}
	doc.BodyHTML = html
	return doc, nil
}

// RenderBody runs the transform chain on a Markdown body without front matter.
func (s *Service) RenderBody(body []byte) ([]byte, error) {
	html, err := s.parser.ParseWithOptions(EmphasizeBackticks(body), s.options)
	if err != nil {
		return nil, err
	}
	return SplitSidenotes(html), nil
}
