package interfaces

// MarkdownParser defines how raw Markdown bytes are converted into HTML.
// Parser instances are reusable so a single value can serve every request.
type MarkdownParser interface {
	// Parse converts Markdown into HTML using the parser's default settings.
	Parse(markdown []byte) ([]byte, error)
	// ParseWithOptions converts Markdown into HTML using the supplied overrides.
	ParseWithOptions(markdown []byte, opts ParseOptions) ([]byte, error)
}

// ParseOptions customises Markdown parsing behaviour, keeping option names
// readable for configuration unmarshalling and CLI flags.
type ParseOptions struct {
	Extensions []string
	HardWraps  bool
	SafeMode   bool
	// Math enables $inline$ and $$display$$ TeX spans rendered client side.
	Math bool
}

// FrontMatter models the metadata block at the top of a lesson file.
type FrontMatter struct {
	Title       string         `yaml:"title" json:"title"`
	Description string         `yaml:"description" json:"description"`
	Tags        []string       `yaml:"tags" json:"tags"`
	Raw         map[string]any `yaml:"-" json:"raw"`
}

// Document is a lesson file split into metadata, Markdown body and the
// rendered HTML produced by the lesson pipeline.
type Document struct {
	FilePath    string
	FrontMatter FrontMatter
	Body        []byte
	BodyHTML    []byte
}
