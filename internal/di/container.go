package di

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"

	"github.com/goliatone/go-lessons/internal/changes"
	"github.com/goliatone/go-lessons/internal/commands"
	sitecmd "github.com/goliatone/go-lessons/internal/commands/site"
	"github.com/goliatone/go-lessons/internal/export"
	sitehttp "github.com/goliatone/go-lessons/internal/http"
	"github.com/goliatone/go-lessons/internal/lessons"
	"github.com/goliatone/go-lessons/internal/logging"
	"github.com/goliatone/go-lessons/internal/logging/console"
	"github.com/goliatone/go-lessons/internal/logging/gologger"
	"github.com/goliatone/go-lessons/internal/markdown"
	"github.com/goliatone/go-lessons/internal/render"
	"github.com/goliatone/go-lessons/internal/routes"
	"github.com/goliatone/go-lessons/internal/runtimeconfig"
	"github.com/goliatone/go-lessons/internal/templates"
	"github.com/goliatone/go-lessons/internal/watch"
	"github.com/goliatone/go-lessons/pkg/interfaces"
)

// Container wires the lessons runtime from a Config. The lesson index is
// built once on construction; everything else is created eagerly and shared.
type Container struct {
	cfg runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	content        fs.FS
	gitRunner      changes.Runner
	views          interfaces.TemplateRenderer
	theme          *templates.Theme

	routes   *routes.Routes
	store    *lessons.Store
	reloader *lessons.Reloader
	markdown *markdown.Service
	renderer *render.Renderer
	reporter *changes.Reporter
	site     *sitehttp.Site
	handler  http.Handler
	exporter *export.Exporter

	reindexHandler *sitecmd.ReindexHandler
	exportHandler  *sitecmd.ExportHandler
}

// Option mutates the container before it builds its services.
type Option func(*Container)

// WithLoggerProvider overrides the provider selected by the logging config.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		if provider != nil {
			c.loggerProvider = provider
		}
	}
}

// WithContentFS reads lessons from fsys instead of the configured directory.
// The git reporter still runs against the configured directory.
func WithContentFS(fsys fs.FS) Option {
	return func(c *Container) {
		if fsys != nil {
			c.content = fsys
		}
	}
}

// WithTemplate overrides the page templates.
func WithTemplate(tr interfaces.TemplateRenderer) Option {
	return func(c *Container) {
		if tr != nil {
			c.views = tr
		}
	}
}

// WithGitRunner replaces the git command runner used by the reporter.
func WithGitRunner(r changes.Runner) Option {
	return func(c *Container) {
		if r != nil {
			c.gitRunner = r
		}
	}
}

// NewContainer validates cfg, builds the lesson index and wires every
// service. An index failure is returned as is; no partial index is served.
func NewContainer(ctx context.Context, cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Container{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if err := c.configureLogger(); err != nil {
		return nil, err
	}
	if c.content == nil {
		c.content = os.DirFS(cfg.Content.Dir)
	}
	if c.gitRunner == nil {
		c.gitRunner = changes.GitRunner{Binary: cfg.Changes.GitBinary}
	}
	if err := c.configureViews(); err != nil {
		return nil, err
	}

	baseURL := cfg.Site.BaseURL
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "http://localhost"
	}
	rts, err := routes.New(baseURL)
	if err != nil {
		return nil, err
	}
	c.routes = rts

	buildOpts := lessons.BuildOptions{
		Extension: cfg.Content.Extension,
		Language:  cfg.Content.CollationLanguage(),
		URL:       rts.Lesson,
		Logger:    logging.IndexLogger(c.loggerProvider),
	}
	idx, err := lessons.Build(ctx, c.content, buildOpts)
	if err != nil {
		return nil, err
	}
	c.store = lessons.NewStore(idx)
	c.reloader = lessons.NewReloader(c.store, c.content, buildOpts)

	c.markdown = markdown.NewService(nil, interfaces.ParseOptions{
		Extensions: cfg.Markdown.Extensions,
		HardWraps:  cfg.Markdown.HardWraps,
		SafeMode:   cfg.Markdown.SafeMode,
		Math:       cfg.Markdown.Math,
	})
	c.renderer = render.New(c.store, c.content, c.markdown,
		render.WithLogger(logging.RenderLogger(c.loggerProvider)))

	c.reporter = changes.NewReporter(changes.Config{
		Enabled:   cfg.Changes.Enabled,
		Dir:       cfg.Content.Dir,
		Extension: cfg.Content.Extension,
		Timeout:   cfg.Changes.Timeout,
	},
		changes.WithRunner(c.gitRunner),
		changes.WithResolver(func(topic, lesson string) (lessons.Record, bool) {
			return c.store.Index().Lookup(topic, lesson)
		}),
		changes.WithURLFunc(rts.Lesson),
		changes.WithLogger(logging.ChangesLogger(c.loggerProvider)),
	)

	siteOpts := []sitehttp.SiteOption{
		sitehttp.WithIndex(c.store),
		sitehttp.WithChanges(c.reporter),
		sitehttp.WithLessons(c.renderer),
		sitehttp.WithViews(c.views),
		sitehttp.WithRoutes(rts),
		sitehttp.WithStatic(c.content, cfg.Content.Extension),
		sitehttp.WithSiteTitle(cfg.Site.Title),
		sitehttp.WithLogger(logging.HTTPLogger(c.loggerProvider)),
	}
	exportDeps := export.Dependencies{
		Index:   c.store,
		Routes:  rts,
		Content: c.content,
		Logger:  logging.ExportLogger(c.loggerProvider),
	}
	if c.theme != nil {
		siteOpts = append(siteOpts, sitehttp.WithTheme(c.theme))
		exportDeps.Theme = c.theme
	}
	c.site = sitehttp.NewSite(siteOpts...)
	handler, err := c.site.Handler()
	if err != nil {
		return nil, err
	}
	c.handler = handler

	exportDeps.Site = handler
	c.exporter = export.New(exportDeps)

	c.reindexHandler = sitecmd.NewReindexHandler(c.reloader, commands.CommandLogger(c.loggerProvider, commands.ModuleIndex))
	c.exportHandler = sitecmd.NewExportHandler(c.exporter, cfg.Content.Extension, commands.CommandLogger(c.loggerProvider, commands.ModuleExport))

	return c, nil
}

func (c *Container) configureLogger() error {
	if c.loggerProvider != nil {
		return nil
	}
	logCfg := c.cfg.Logging
	switch strings.ToLower(strings.TrimSpace(logCfg.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     logCfg.Level,
			Format:    logCfg.Format,
			AddSource: logCfg.AddSource,
			Focus:     logCfg.Focus,
		})
		if err != nil {
			return err
		}
		c.loggerProvider = provider
	case "", "console":
		opts := console.Options{Writer: os.Stderr}
		if level, ok := console.ParseLevel(logCfg.Level); ok {
			opts.MinLevel = &level
		}
		c.loggerProvider = console.NewProvider(opts)
	default:
		return fmt.Errorf("di: unknown logging provider %q", logCfg.Provider)
	}
	return nil
}

func (c *Container) configureViews() error {
	if c.views != nil {
		return nil
	}
	var (
		views *templates.Renderer
		err   error
	)
	dir := strings.TrimSpace(c.cfg.Templates.Dir)
	switch {
	case dir != "" && templates.HasThemeManifest(dir):
		theme, loadErr := templates.LoadTheme(dir, c.cfg.Templates.Variant)
		if loadErr != nil {
			return loadErr
		}
		c.theme = theme
		views, err = templates.NewFromTheme(theme)
	case dir != "":
		views, err = templates.NewFromDir(dir)
	default:
		views, err = templates.New()
	}
	if err != nil {
		return err
	}
	c.views = views
	return nil
}

// RegisterCommands subscribes the command handlers with the go-command
// dispatcher. The returned function removes the subscriptions.
func (c *Container) RegisterCommands() func() {
	subs := []interface{ Unsubscribe() }{
		dispatcher.SubscribeCommand(c.reindexHandler, runner.WithMaxRetries(1)),
		dispatcher.SubscribeCommand(c.exportHandler),
	}
	return func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}
}

// Reindex rebuilds the lesson index through the reindex command handler.
func (c *Container) Reindex(ctx context.Context) error {
	return c.reindexHandler.Execute(ctx, sitecmd.ReindexCommand{Reason: "manual"})
}

// Watcher returns a content watcher that rebuilds the index, or nil when
// watching is disabled.
func (c *Container) Watcher() *watch.Watcher {
	if !c.cfg.Watch.Enabled {
		return nil
	}
	return watch.New(c.cfg.Content.Dir, func(ctx context.Context, paths []string) error {
		return c.reindexHandler.Execute(ctx, sitecmd.ReindexCommand{Reason: "watch", Paths: paths})
	},
		watch.WithDebounce(c.cfg.Watch.Debounce),
		watch.WithLogger(logging.WatchLogger(c.loggerProvider)),
	)
}

// Config returns the validated configuration.
func (c *Container) Config() runtimeconfig.Config { return c.cfg }

// LoggerProvider exposes the configured logger provider.
func (c *Container) LoggerProvider() interfaces.LoggerProvider { return c.loggerProvider }

// Logger returns the root lessons logger.
func (c *Container) Logger() interfaces.Logger {
	return logging.ModuleLogger(c.loggerProvider, "")
}

// Content exposes the lesson file system.
func (c *Container) Content() fs.FS { return c.content }

// Routes exposes the site URL builder.
func (c *Container) Routes() *routes.Routes { return c.routes }

// Store exposes the current index holder.
func (c *Container) Store() *lessons.Store { return c.store }

// Markdown exposes the lesson Markdown pipeline.
func (c *Container) Markdown() *markdown.Service { return c.markdown }

// Renderer exposes the allow-listed lesson renderer.
func (c *Container) Renderer() *render.Renderer { return c.renderer }

// Reporter exposes the recent-changes reporter. It is not started.
func (c *Container) Reporter() *changes.Reporter { return c.reporter }

// Theme returns the loaded template theme, nil without a theme manifest.
func (c *Container) Theme() *templates.Theme { return c.theme }

// Handler returns the site HTTP handler.
func (c *Container) Handler() http.Handler { return c.handler }

// Exporter exposes the static exporter.
func (c *Container) Exporter() *export.Exporter { return c.exporter }

// ReindexHandler exposes the reindex command handler.
func (c *Container) ReindexHandler() *sitecmd.ReindexHandler { return c.reindexHandler }

// ExportHandler exposes the export command handler.
func (c *Container) ExportHandler() *sitecmd.ExportHandler { return c.exportHandler }
