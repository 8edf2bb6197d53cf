package markdown

import (
	"bytes"
	"strings"
)

const (
	sidenoteDelimiter = "++"
	marginMarker      = `/\`
)

// protected regions are copied verbatim and never searched for delimiters.
var protectedTags = []struct{ open, close string }{
	{"<pre", "</pre>"},
	{"<code", "</code>"},
}

// SplitSidenotes rewrites ++...++ blocks in rendered HTML into side-note
// markup. Inside a block, text following a /\ marker on a line is margin
// commentary and everything else is main text. Main parts are joined with a
// newline, margin parts with a space. A paragraph wrapping the whole block is
// dropped and replaced by block markup; a block sharing its paragraph with
// other text is emitted as inline spans. Blocks without a closing delimiter are left untouched, as is
// anything inside <pre> or <code>.
func SplitSidenotes(html []byte) []byte {
	src := string(html)
	if !strings.Contains(src, sidenoteDelimiter) {
		return html
	}

	var out strings.Builder
	out.Grow(len(src) + 64)

	for i := 0; i < len(src); {
		next, kind := nextToken(src, i)
		if next < 0 {
			out.WriteString(src[i:])
			break
		}
		out.WriteString(src[i:next])

		if kind >= 0 {
			end := skipProtected(src, next, kind)
			out.WriteString(src[next:end])
			i = end
			continue
		}

		closeAt := findCloser(src, next+len(sidenoteDelimiter))
		if closeAt < 0 {
			out.WriteString(src[next:])
			break
		}

		inner := src[next+len(sidenoteDelimiter) : closeAt]
		i = closeAt + len(sidenoteDelimiter)

		written := out.String()
		block := strings.HasSuffix(written, "<p>") && strings.HasPrefix(src[i:], "</p>")
		if block {
			out.Reset()
			out.WriteString(strings.TrimSuffix(written, "<p>"))
			i += len("</p>")
		}
		out.WriteString(renderSidenote(inner, block))
	}

	return []byte(out.String())
}

// nextToken finds the next delimiter or protected opening tag at or after
// from. kind is the protectedTags index, or -1 for a delimiter.
func nextToken(src string, from int) (int, int) {
	pos, kind := -1, -1
	if idx := strings.Index(src[from:], sidenoteDelimiter); idx >= 0 {
		pos = from + idx
	}
	for k, tag := range protectedTags {
		idx := indexTag(src[from:], tag.open)
		if idx < 0 {
			continue
		}
		if pos < 0 || from+idx < pos {
			pos, kind = from+idx, k
		}
	}
	return pos, kind
}

// indexTag locates an opening tag, ignoring prefixes of longer tag names.
func indexTag(src, open string) int {
	offset := 0
	for {
		idx := strings.Index(src[offset:], open)
		if idx < 0 {
			return -1
		}
		at := offset + idx
		end := at + len(open)
		if end >= len(src) || src[end] == '>' || src[end] == ' ' || src[end] == '\t' || src[end] == '\n' {
			return at
		}
		offset = end
	}
}

func skipProtected(src string, start, kind int) int {
	closeTag := protectedTags[kind].close
	idx := strings.Index(src[start:], closeTag)
	if idx < 0 {
		return len(src)
	}
	return start + idx + len(closeTag)
}

// findCloser returns the offset of the closing delimiter, stepping over
// protected regions inside the block.
func findCloser(src string, from int) int {
	for i := from; i < len(src); {
		next, kind := nextToken(src, i)
		if next < 0 {
			return -1
		}
		if kind < 0 {
			return next
		}
		i = skipProtected(src, next, kind)
	}
	return -1
}

// renderSidenote builds the markup for one block. block selects <div> and
// <aside> containers; otherwise <span> elements are used.
func renderSidenote(inner string, block bool) string {
	var main, margin []string
	for _, line := range strings.Split(inner, "\n") {
		line = trimParagraphTags(line)
		text, note, hasNote := strings.Cut(line, marginMarker)
		if text = strings.TrimSpace(text); text != "" {
			main = append(main, text)
		}
		if hasNote {
			if note = strings.TrimSpace(note); note != "" {
				margin = append(margin, note)
			}
		}
	}

	var buf bytes.Buffer
	if block {
		buf.WriteString(`<div class="sidenote"><div class="sidenote-main">`)
		buf.WriteString(strings.Join(main, "\n"))
		buf.WriteString(`</div><aside class="sidenote-margin">`)
		buf.WriteString(strings.Join(margin, " "))
		buf.WriteString(`</aside></div>`)
		return buf.String()
	}
	// Phrasing content only: the note sits inside its paragraph.
	buf.WriteString(`<span class="sidenote"><span class="sidenote-main">`)
	buf.WriteString(strings.Join(main, "\n"))
	buf.WriteString(`</span><span class="sidenote-margin" role="note">`)
	buf.WriteString(strings.Join(margin, " "))
	buf.WriteString(`</span></span>`)
	return buf.String()
}

func trimParagraphTags(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "<p>")
	return strings.TrimSuffix(line, "</p>")
}
