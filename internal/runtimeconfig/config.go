package runtimeconfig

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/language"
)

// Config is the runtime configuration for the lessons site.
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Content   ContentConfig   `yaml:"content" json:"content"`
	Site      SiteConfig      `yaml:"site" json:"site"`
	Markdown  MarkdownConfig  `yaml:"markdown" json:"markdown"`
	Templates TemplatesConfig `yaml:"templates" json:"templates"`
	Changes   ChangesConfig   `yaml:"changes" json:"changes"`
	Export    ExportConfig    `yaml:"export" json:"export"`
	Watch     WatchConfig     `yaml:"watch" json:"watch"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr" json:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// ContentConfig points at the lesson tree (content/<topic>/<lesson>.md).
type ContentConfig struct {
	Dir       string `yaml:"dir" json:"dir" env:"CONTENT_DIR"`
	Extension string `yaml:"extension" json:"extension"`
	// Language is the BCP 47 tag used to collate lesson titles.
	Language string `yaml:"language" json:"language"`
}

// SiteConfig holds presentation values shared by every page.
type SiteConfig struct {
	Title   string `yaml:"title" json:"title" env:"SITE_TITLE"`
	BaseURL string `yaml:"base_url" json:"base_url" env:"BASE_URL"`
}

// MarkdownConfig mirrors interfaces.ParseOptions for runtime configuration.
type MarkdownConfig struct {
	Extensions []string `yaml:"extensions" json:"extensions"`
	HardWraps  bool     `yaml:"hard_wraps" json:"hard_wraps"`
	SafeMode   bool     `yaml:"safe_mode" json:"safe_mode"`
	Math       bool     `yaml:"math" json:"math"`
}

// TemplatesConfig optionally overrides the embedded page templates. A
// directory holding a theme.json manifest is loaded as a theme whose variant
// selects the templates and assets to use.
type TemplatesConfig struct {
	Dir     string `yaml:"dir" json:"dir" env:"TEMPLATES_DIR"`
	Variant string `yaml:"variant" json:"variant" env:"TEMPLATES_VARIANT"`
}

// ChangesConfig configures the recent-changes reporter.
type ChangesConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled" env:"CHANGES_ENABLED"`
	GitBinary    string        `yaml:"git_binary" json:"git_binary"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	AwaitTimeout time.Duration `yaml:"await_timeout" json:"await_timeout"`
}

// ExportConfig captures behaviour for the static export.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir" json:"output_dir" env:"EXPORT_OUTPUT_DIR"`
	Workers   int    `yaml:"workers" json:"workers"`
	Clean     bool   `yaml:"clean" json:"clean"`
	Sitemap   bool   `yaml:"sitemap" json:"sitemap"`
}

// WatchConfig enables rebuilding the lesson index when content changes.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled" env:"WATCH_ENABLED"`
	Debounce time.Duration `yaml:"debounce" json:"debounce"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `yaml:"provider" json:"provider" env:"LOG_PROVIDER"`
	Level     string   `yaml:"level" json:"level" env:"LOG_LEVEL"`
	Format    string   `yaml:"format" json:"format"`
	AddSource bool     `yaml:"add_source" json:"add_source"`
	Focus     []string `yaml:"focus" json:"focus"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":3001",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Content: ContentConfig{
			Dir:       "content",
			Extension: ".md",
			Language:  "en",
		},
		Site: SiteConfig{
			Title:   "Courses",
			BaseURL: "http://localhost:3001",
		},
		Markdown: MarkdownConfig{
			Extensions: []string{"gfm"},
			Math:       true,
		},
		Changes: ChangesConfig{
			Enabled:      true,
			GitBinary:    "git",
			Timeout:      10 * time.Second,
			AwaitTimeout: 5 * time.Second,
		},
		Export: ExportConfig{
			OutputDir: "dist",
			Workers:   4,
			Clean:     true,
			Sitemap:   true,
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
	}
}

// CollationLanguage returns the parsed content language, defaulting to English.
func (c ContentConfig) CollationLanguage() language.Tag {
	tag, err := language.Parse(strings.TrimSpace(c.Language))
	if err != nil {
		return language.English
	}
	return tag
}

// Validate performs consistency checks across every section.
func (cfg Config) Validate() error {
	return validation.ValidateStruct(&cfg,
		validation.Field(&cfg.Server),
		validation.Field(&cfg.Content),
		validation.Field(&cfg.Site),
		validation.Field(&cfg.Changes),
		validation.Field(&cfg.Export),
		validation.Field(&cfg.Watch),
		validation.Field(&cfg.Logging),
	)
}

// Validate satisfies validation.Validatable.
func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.ReadTimeout, validation.By(nonNegativeDuration)),
		validation.Field(&c.WriteTimeout, validation.By(nonNegativeDuration)),
		validation.Field(&c.ShutdownTimeout, validation.By(nonNegativeDuration)),
	)
}

// Validate satisfies validation.Validatable.
func (c ContentConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Extension, validation.Required, validation.By(func(value any) error {
			if !strings.HasPrefix(value.(string), ".") {
				return validation.NewError("lessons.config.extension_dot", "extension must start with a dot")
			}
			return nil
		})),
		validation.Field(&c.Language, validation.By(func(value any) error {
			raw := strings.TrimSpace(value.(string))
			if raw == "" {
				return nil
			}
			if _, err := language.Parse(raw); err != nil {
				return validation.NewError("lessons.config.language", "language must be a BCP 47 tag")
			}
			return nil
		})),
	)
}

// Validate satisfies validation.Validatable.
func (c SiteConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.By(func(value any) error {
			raw := strings.TrimSpace(value.(string))
			if raw == "" {
				return nil
			}
			parsed, err := url.Parse(raw)
			if err != nil || parsed.Scheme == "" || parsed.Host == "" {
				return validation.NewError("lessons.config.base_url", "base url must be absolute")
			}
			return nil
		})),
	)
}

// Validate satisfies validation.Validatable.
func (c ChangesConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.GitBinary, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Timeout, validation.By(nonNegativeDuration)),
		validation.Field(&c.AwaitTimeout, validation.By(nonNegativeDuration)),
	)
}

// Validate satisfies validation.Validatable.
func (c ExportConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.OutputDir, validation.Required),
		validation.Field(&c.Workers, validation.Min(0)),
	)
}

// Validate satisfies validation.Validatable.
func (c WatchConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Debounce, validation.By(nonNegativeDuration)),
	)
}

// Validate satisfies validation.Validatable.
func (c LoggingConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Provider, validation.Required, validation.In("console", "gologger")),
		validation.Field(&c.Level, validation.In("trace", "debug", "info", "warn", "warning", "error", "fatal")),
		validation.Field(&c.Format, validation.When(c.Provider == "gologger", validation.In("json", "console", "pretty"))),
	)
}

func nonNegativeDuration(value any) error {
	d, ok := value.(time.Duration)
	if !ok {
		return fmt.Errorf("expected duration, got %T", value)
	}
	if d < 0 {
		return validation.NewError("lessons.config.negative_duration", "must not be negative")
	}
	return nil
}
