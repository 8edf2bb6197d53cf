package lessons

import "github.com/goliatone/go-lessons/internal/runtimeconfig"

var (
	ErrConfigPathEmpty = runtimeconfig.ErrConfigPathEmpty
)

type (
	Config          = runtimeconfig.Config
	ServerConfig    = runtimeconfig.ServerConfig
	ContentConfig   = runtimeconfig.ContentConfig
	SiteConfig      = runtimeconfig.SiteConfig
	MarkdownConfig  = runtimeconfig.MarkdownConfig
	TemplatesConfig = runtimeconfig.TemplatesConfig
	ChangesConfig   = runtimeconfig.ChangesConfig
	ExportConfig    = runtimeconfig.ExportConfig
	WatchConfig     = runtimeconfig.WatchConfig
	LoggingConfig   = runtimeconfig.LoggingConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads a YAML file over the defaults and applies LESSONS_*
// environment overrides. An empty path loads defaults only.
func LoadConfig(path string) (Config, error) {
	return runtimeconfig.Load(path)
}

// SaveConfig writes cfg as YAML.
func SaveConfig(path string, cfg Config) error {
	return runtimeconfig.Save(path, cfg)
}
