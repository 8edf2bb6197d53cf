package markdown

import "bytes"

// EmphasizeBackticks wraps text between single backticks in <em> tags. The
// closing backtick must be on the same line and the enclosed text must be
// non-empty. Runs of two or more backticks (code spans and fences) are copied
// unchanged up to and including their matching closing run, and so are `~~~`
// fenced blocks up to their closing fence, so nothing inside them is
// rewritten. Input without backticks is returned as is.
func EmphasizeBackticks(source []byte) []byte {
	if bytes.IndexByte(source, '`') < 0 {
		return source
	}

	var out bytes.Buffer
	out.Grow(len(source) + 16)

	for i := 0; i < len(source); {
		if i == 0 || source[i-1] == '\n' {
			if end := tildeFenceEnd(source, i); end > i {
				out.Write(source[i:end])
				i = end
				continue
			}
		}
		if source[i] != '`' {
			next := bytes.IndexAny(source[i:], "`\n")
			if next < 0 {
				out.Write(source[i:])
				break
			}
			if source[i+next] == '\n' {
				next++
			}
			out.Write(source[i : i+next])
			i += next
			continue
		}

		run := backtickRun(source, i)
		if run > 1 {
			end := matchingRun(source, i+run, run)
			if end < 0 {
				out.Write(source[i : i+run])
				i += run
				continue
			}
			out.Write(source[i:end])
			i = end
			continue
		}

		if closer := singleCloser(source, i+1); closer > i+1 {
			out.WriteString("<em>")
			out.Write(source[i+1 : closer])
			out.WriteString("</em>")
			i = closer + 1
			continue
		}
		out.WriteByte('`')
		i++
	}

	return out.Bytes()
}

func backtickRun(source []byte, start int) int {
	n := 0
	for start+n < len(source) && source[start+n] == '`' {
		n++
	}
	return n
}

// matchingRun returns the offset just past the next run of exactly n
// backticks at or after from, or -1.
func matchingRun(source []byte, from, n int) int {
	for i := from; i < len(source); {
		if source[i] != '`' {
			i++
			continue
		}
		run := backtickRun(source, i)
		if run == n {
			return i + run
		}
		i += run
	}
	return -1
}

// singleCloser returns the offset of the backtick closing a span opened just
// before from, or -1 when the line ends first or the next backtick starts a
// longer run.
func singleCloser(source []byte, from int) int {
	for i := from; i < len(source); i++ {
		switch source[i] {
		case '\n':
			return -1
		case '`':
			if backtickRun(source, i) != 1 {
				return -1
			}
			return i
		}
	}
	return -1
}

// tildeFenceEnd returns the offset just past the `~~~` fenced block opening
// on the line at start, or -1 when the line is not a tilde fence. A block
// without a closing fence runs to the end of the input.
func tildeFenceEnd(source []byte, start int) int {
	width := tildeFence(lineAt(source, start))
	if width == 0 {
		return -1
	}
	i := nextLine(source, start)
	for i < len(source) {
		line := lineAt(source, i)
		next := nextLine(source, i)
		rest := bytes.TrimLeft(bytes.TrimLeft(line, " "), "~")
		if tildeFence(line) >= width && len(bytes.TrimSpace(rest)) == 0 {
			return next
		}
		i = next
	}
	return len(source)
}

// tildeFence returns the length of the tilde run opening line, indented by
// at most three spaces, or 0 when it is shorter than three.
func tildeFence(line []byte) int {
	indent := 0
	for indent < len(line) && indent < 4 && line[indent] == ' ' {
		indent++
	}
	if indent > 3 {
		return 0
	}
	n := 0
	for indent+n < len(line) && line[indent+n] == '~' {
		n++
	}
	if n < 3 {
		return 0
	}
	return n
}

func lineAt(source []byte, start int) []byte {
	if end := bytes.IndexByte(source[start:], '\n'); end >= 0 {
		return source[start : start+end]
	}
	return source[start:]
}

func nextLine(source []byte, start int) int {
	if end := bytes.IndexByte(source[start:], '\n'); end >= 0 {
		return start + end + 1
	}
	return len(source)
}
