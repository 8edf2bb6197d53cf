package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindMathInline and KindMathBlock identify TeX nodes in the goldmark AST.
var (
	KindMathInline = ast.NewNodeKind("MathInline")
	KindMathBlock  = ast.NewNodeKind("MathBlock")
)

// MathInline is a `$...$` or single line `$$...$$` span.
type MathInline struct {
	ast.BaseInline
	Display bool
	Value   []byte
}

func (n *MathInline) Kind() ast.NodeKind { return KindMathInline }

func (n *MathInline) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Value": string(n.Value)}, nil)
}

// MathBlock is a `$$` fenced display block. Closed is false when the
// enclosing container ended before the closing fence.
type MathBlock struct {
	ast.BaseBlock
	Closed bool
}

func (n *MathBlock) Kind() ast.NodeKind { return KindMathBlock }

func (n *MathBlock) IsRaw() bool { return true }

func (n *MathBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

type mathExtension struct{}

// Math adds TeX spans to goldmark. Spans are emitted as escaped TeX inside
// elements carrying the "math" class and typeset in the browser; input that
// does not form a complete span stays literal text.
var Math goldmark.Extender = &mathExtension{}

func (e *mathExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithInlineParsers(util.Prioritized(&mathInlineParser{}, 150)),
		parser.WithBlockParsers(util.Prioritized(&mathBlockParser{}, 150)),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(util.Prioritized(&mathRenderer{}, 150)),
	)
}

type mathInlineParser struct{}

func (p *mathInlineParser) Trigger() []byte { return []byte{'$'} }

func (p *mathInlineParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()

	opener := 0
	for opener < len(line) && line[opener] == '$' {
		opener++
	}
	if opener > 2 {
		return nil
	}

	body := line[opener:]
	end := closingDollars(body, opener)
	if end <= 0 {
		return nil
	}
	value := body[:end]
	if opener == 1 && (isSpace(value[0]) || isSpace(value[len(value)-1])) {
		return nil
	}

	block.Advance(opener + end + opener)
	return &MathInline{
		Display: opener == 2,
		Value:   append([]byte(nil), value...),
	}
}

// closingDollars returns the offset of the first run of exactly n dollars in
// body, skipping backslash escapes, or -1.
func closingDollars(body []byte, n int) int {
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\\':
			i++
		case '$':
			run := 1
			for i+run < len(body) && body[i+run] == '$' {
				run++
			}
			if run == n {
				return i
			}
			i += run - 1
		}
	}
	return -1
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

type mathBlockParser struct{}

func (p *mathBlockParser) Trigger() []byte { return []byte{'$'} }

func (p *mathBlockParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || !isMathFence(line[pos:]) {
		return nil, parser.NoChildren
	}
	if !hasClosingFence(reader.Source(), segment.Stop) {
		return nil, parser.NoChildren
	}
	reader.Advance(segment.Len() - 1)
	return &MathBlock{}, parser.NoChildren
}

func (p *mathBlockParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, segment := reader.PeekLine()
	if isMathFence(util.TrimLeftSpace(line)) {
		node.(*MathBlock).Closed = true
		reader.Advance(segment.Len() - 1)
		return parser.Close
	}
	node.Lines().Append(segment)
	reader.Advance(segment.Len() - 1)
	return parser.Continue | parser.NoChildren
}

func (p *mathBlockParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (p *mathBlockParser) CanInterruptParagraph() bool { return true }

func (p *mathBlockParser) CanAcceptIndentedLine() bool { return false }

// hasClosingFence reports whether a "$$" fence line follows offset from.
// Without one the opening line is left to the paragraph parser, so a stray
// fence stays literal text and the lines after it keep their Markdown.
func hasClosingFence(source []byte, from int) bool {
	for from < len(source) {
		line := source[from:]
		if end := bytes.IndexByte(line, '\n'); end >= 0 {
			line = line[:end]
			from += end + 1
		} else {
			from = len(source)
		}
		if isMathFence(bytes.TrimLeft(line, " \t>")) {
			return true
		}
	}
	return false
}

// isMathFence reports whether line is exactly "$$" plus trailing space.
func isMathFence(line []byte) bool {
	if len(line) < 2 || line[0] != '$' || line[1] != '$' {
		return false
	}
	return util.IsBlank(line[2:])
}

type mathRenderer struct{}

func (r *mathRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindMathInline, r.renderInline)
	reg.Register(KindMathBlock, r.renderBlock)
}

func (r *mathRenderer) renderInline(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*MathInline)
	if n.Display {
		_, _ = w.WriteString(`<span class="math math-display">`)
	} else {
		_, _ = w.WriteString(`<span class="math math-inline">`)
	}
	_, _ = w.Write(util.EscapeHTML(n.Value))
	_, _ = w.WriteString("</span>")
	return ast.WalkSkipChildren, nil
}

func (r *mathRenderer) renderBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*MathBlock)
	if n.Closed {
		_, _ = w.WriteString(`<div class="math math-display">`)
	} else {
		_, _ = w.WriteString("<p>$$\n")
	}
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		_, _ = w.Write(util.EscapeHTML(segment.Value(source)))
	}
	if n.Closed {
		_, _ = w.WriteString("</div>\n")
	} else {
		_, _ = w.WriteString("</p>\n")
	}
	return ast.WalkSkipChildren, nil
}
