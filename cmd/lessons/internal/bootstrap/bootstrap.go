package bootstrap

import (
	"context"
	"fmt"
	"strings"

	lessons "github.com/goliatone/go-lessons"
)

// Options captures the CLI flags shared by every lessons command. Empty
// values keep whatever the config file and environment supplied.
type Options struct {
	ConfigPath string
	ContentDir string
	BaseURL    string
	Addr       string
	LogLevel   string
	Watch      *bool
}

// LoadConfig reads the config file and applies flag overrides.
func LoadConfig(opts Options) (lessons.Config, error) {
	cfg, err := lessons.LoadConfig(opts.ConfigPath)
	if err != nil {
		return lessons.Config{}, err
	}
	ApplyOverrides(&cfg, opts)
	if err := cfg.Validate(); err != nil {
		return lessons.Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// ApplyOverrides copies non-empty flag values onto cfg.
func ApplyOverrides(cfg *lessons.Config, opts Options) {
	if v := strings.TrimSpace(opts.ContentDir); v != "" {
		cfg.Content.Dir = v
	}
	if v := strings.TrimSpace(opts.BaseURL); v != "" {
		cfg.Site.BaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(opts.Addr); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(opts.LogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if opts.Watch != nil {
		cfg.Watch.Enabled = *opts.Watch
	}
}

// BuildModule loads configuration and constructs the lessons module.
func BuildModule(ctx context.Context, opts Options, moduleOpts ...lessons.Option) (*lessons.Module, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, err
	}
	module, err := lessons.New(ctx, cfg, moduleOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise lessons module: %w", err)
	}
	return module, nil
}
