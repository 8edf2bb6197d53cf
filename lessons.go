package lessons

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/goliatone/go-command/dispatcher"

	"github.com/goliatone/go-lessons/internal/changes"
	sitecmd "github.com/goliatone/go-lessons/internal/commands/site"
	"github.com/goliatone/go-lessons/internal/di"
	"github.com/goliatone/go-lessons/internal/export"
	lessonindex "github.com/goliatone/go-lessons/internal/lessons"
	"github.com/goliatone/go-lessons/internal/markdown"
	"github.com/goliatone/go-lessons/pkg/interfaces"
)

// Index is an immutable snapshot of every lesson and tag.
type Index = lessonindex.Index

// Record describes one lesson in the index.
type Record = lessonindex.Record

// ChangesSnapshot is the recent-changes reporter state.
type ChangesSnapshot = changes.Snapshot

// ExportResult reports what a static export wrote.
type ExportResult = export.Result

// Option customises module construction.
type Option = di.Option

var (
	WithLoggerProvider = di.WithLoggerProvider
	WithContentFS      = di.WithContentFS
	WithTemplate       = di.WithTemplate
	WithGitRunner      = di.WithGitRunner
)

// Module is the assembled lessons site.
type Module struct {
	container *di.Container
}

// New validates cfg, indexes the content tree and wires the site.
func New(ctx context.Context, cfg Config, opts ...Option) (*Module, error) {
	container, err := di.NewContainer(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying dependency container.
func (m *Module) Container() *di.Container { return m.container }

// Handler returns the site HTTP handler.
func (m *Module) Handler() http.Handler { return m.container.Handler() }

// Index returns the current index snapshot.
func (m *Module) Index() *Index { return m.container.Store().Index() }

// Changes returns the current recent-changes snapshot.
func (m *Module) Changes() ChangesSnapshot { return m.container.Reporter().Snapshot() }

// Reindex rebuilds the index snapshot. On failure the previous snapshot
// keeps serving.
func (m *Module) Reindex(ctx context.Context, reason string) error {
	return m.container.ReindexHandler().Execute(ctx, sitecmd.ReindexCommand{Reason: reason})
}

// Export writes the static site described by cfg through the command
// dispatcher. The recent-changes query runs first, bounded by the configured
// await timeout, so the exported home page carries its result.
func (m *Module) Export(ctx context.Context, cfg ExportConfig) (*ExportResult, error) {
	m.awaitChanges(ctx, m.container.Logger().WithContext(ctx))

	unsubscribe := m.container.RegisterCommands()
	defer unsubscribe()

	var result *ExportResult
	err := dispatcher.Dispatch(ctx, sitecmd.ExportCommand{
		OutputDir: cfg.OutputDir,
		Workers:   cfg.Workers,
		Clean:     cfg.Clean,
		Sitemap:   cfg.Sitemap,
		ResultCallback: func(env sitecmd.ResultEnvelope) {
			result = env.Result
		},
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Preview renders a single Markdown file from disk through the lesson
// pipeline, whether or not it is part of the index.
func (m *Module) Preview(ctx context.Context, path string) (*interfaces.Document, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lessons preview: %w", err)
	}
	return m.container.Markdown().Render(ctx, path, source)
}

// PreviewLesson renders an indexed lesson by its identifiers.
func (m *Module) PreviewLesson(ctx context.Context, topic, lesson string) (*interfaces.Document, error) {
	page, err := m.container.Renderer().Render(ctx, topic, lesson)
	if err != nil {
		return nil, err
	}
	return page.Document, nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (m *Module) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.container.Config().Server.Addr)
	if err != nil {
		return fmt.Errorf("lessons serve: listen: %w", err)
	}
	return m.Serve(ctx, ln)
}

// Serve starts the recent-changes reporter, waits for it up to the
// configured await timeout, then serves HTTP on ln until ctx is cancelled.
// The content watcher runs alongside the server when enabled.
func (m *Module) Serve(ctx context.Context, ln net.Listener) error {
	cfg := m.container.Config()
	logger := m.container.Logger().WithContext(ctx)

	m.awaitChanges(ctx, logger)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var wg sync.WaitGroup
	if watcher := m.container.Watcher(); watcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.Run(runCtx); err != nil {
				logger.Error("lessons.watch.failed", "error", err)
			}
		}()
	}
	defer wg.Wait()

	srv := &http.Server{
		Handler:      m.container.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("lessons.serve.listening", "addr", ln.Addr().String(), "lessons", m.Index().Len())

	select {
	case err := <-errCh:
		stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.Background(), context.CancelFunc(func() {})
	if cfg.Server.ShutdownTimeout > 0 {
		shutdownCtx, cancel = context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	}
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	<-errCh
	stop()
	logger.Info("lessons.serve.stopped")
	if err != nil {
		return fmt.Errorf("lessons serve: shutdown: %w", err)
	}
	return nil
}

// awaitChanges starts the recent-changes reporter and waits for it up to
// changes.await_timeout. A reporter still running afterwards leaves the home
// page in its pending state.
func (m *Module) awaitChanges(ctx context.Context, logger interfaces.Logger) {
	timeout := m.container.Config().Changes.AwaitTimeout
	reporter := m.container.Reporter()
	reporter.Start(ctx)

	awaitCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		awaitCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	snap, err := reporter.Await(awaitCtx)
	if err != nil {
		logger.Warn("lessons.changes.pending", "await_timeout", timeout.String())
		return
	}
	logger.Debug("lessons.changes.ready", "state", snap.State, "changes", len(snap.Changes))
}

// RenderBody runs the lesson Markdown pipeline over a body without front
// matter.
func RenderBody(body []byte, opts interfaces.ParseOptions) ([]byte, error) {
	return markdown.NewService(nil, opts).RenderBody(body)
}

// BuildIndex indexes fsys without wiring a site.
func BuildIndex(ctx context.Context, fsys fs.FS) (*Index, error) {
	return lessonindex.Build(ctx, fsys, lessonindex.BuildOptions{})
}
