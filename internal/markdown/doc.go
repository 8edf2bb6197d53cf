// Package markdown turns lesson sources into HTML: front matter extraction,
// the backtick emphasis and side-note rewrites, and goldmark rendering with an
// optional TeX math extension.
package markdown
