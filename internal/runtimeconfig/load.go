package runtimeconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const envPrefix = "LESSONS_"

// Environment variables that override file values. They are bound through
// the env struct tags on the config sections.
const (
	EnvAddr             = envPrefix + "ADDR"
	EnvContentDir       = envPrefix + "CONTENT_DIR"
	EnvSiteTitle        = envPrefix + "SITE_TITLE"
	EnvBaseURL          = envPrefix + "BASE_URL"
	EnvTemplatesDir     = envPrefix + "TEMPLATES_DIR"
	EnvTemplatesVariant = envPrefix + "TEMPLATES_VARIANT"
	EnvChangesEnabled   = envPrefix + "CHANGES_ENABLED"
	EnvExportOutputDir  = envPrefix + "EXPORT_OUTPUT_DIR"
	EnvWatchEnabled     = envPrefix + "WATCH_ENABLED"
	EnvLogLevel         = envPrefix + "LOG_LEVEL"
	EnvLogProvider      = envPrefix + "LOG_PROVIDER"
)

// Load reads a YAML config file on top of DefaultConfig, applies environment
// overrides and validates the result. A missing file is not an error when
// path is empty; an explicit path that does not exist is.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("lessons config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("lessons config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(nil); err != nil {
		return Config{}, err
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("lessons config: %w", err)
	}
	return cfg, nil
}

// ErrConfigPathEmpty is returned by Save when no destination is supplied.
var ErrConfigPathEmpty = errors.New("lessons config: path is required")

// Save writes cfg as YAML, used by the CLI to scaffold a config file.
func Save(path string, cfg Config) error {
	if strings.TrimSpace(path) == "" {
		return ErrConfigPathEmpty
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("lessons config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("lessons config: write %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays LESSONS_* variables. A nil environ reads the process
// environment.
func (cfg *Config) applyEnv(environ map[string]string) error {
	opts := env.Options{Prefix: envPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("lessons config: environment: %w", err)
	}
	return nil
}

func (cfg *Config) normalize() {
	cfg.Content.Dir = strings.TrimSpace(cfg.Content.Dir)
	cfg.Content.Extension = strings.ToLower(strings.TrimSpace(cfg.Content.Extension))
	cfg.Site.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Site.BaseURL), "/")
	cfg.Logging.Provider = strings.ToLower(strings.TrimSpace(cfg.Logging.Provider))
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
}
