package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-lessons/internal/lessons"
	"github.com/goliatone/go-lessons/internal/logging"
	"github.com/goliatone/go-lessons/internal/routes"
	"github.com/goliatone/go-lessons/pkg/interfaces"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrOutputDirRequired is returned when no output directory is configured.
	ErrOutputDirRequired = errors.New("export: output directory is required")
	// ErrUnsafeOutputDir guards clean builds against wiping the filesystem root.
	ErrUnsafeOutputDir = errors.New("export: refusing to clean output directory")
	errHandlerRequired = errors.New("export: site handler is required")
)

// IndexSource yields the lesson index snapshot to export.
type IndexSource interface {
	Index() *lessons.Index
}

// Options narrows an export run.
type Options struct {
	OutputDir string
	Workers   int
	Clean     bool
	Sitemap   bool
	Extension string
}

// Result reports what an export wrote.
type Result struct {
	OutputDir string
	Pages     int
	Assets    int
	Sitemap   bool
	Duration  time.Duration
	Written   []string
}

// ThemeAssets exposes the files a page theme links to.
type ThemeAssets interface {
	FS() fs.FS
	Assets() []string
}

// Dependencies lists the collaborators of an Exporter. Content may be nil
// when no assets should be copied, Theme when pages use no theme.
type Dependencies struct {
	Site    http.Handler
	Index   IndexSource
	Routes  *routes.Routes
	Content fs.FS
	Theme   ThemeAssets
	Logger  interfaces.Logger
}

// Exporter writes a static copy of the site. Pages are produced by the same
// handler that serves them, so exported HTML matches the live site.
type Exporter struct {
	deps Dependencies
	now  func() time.Time
}

// New constructs an Exporter.
func New(deps Dependencies) *Exporter {
	if deps.Logger == nil {
		deps.Logger = logging.NoOp()
	}
	return &Exporter{deps: deps, now: time.Now}
}

// Export renders every page and copies assets into opts.OutputDir.
func (e *Exporter) Export(ctx context.Context, opts Options) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.deps.Site == nil || e.deps.Index == nil || e.deps.Routes == nil {
		return nil, errHandlerRequired
	}
	outDir := strings.TrimSpace(opts.OutputDir)
	if outDir == "" {
		return nil, ErrOutputDirRequired
	}
	if opts.Extension == "" {
		opts.Extension = lessons.DefaultExtension
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := e.now()
	logger := e.deps.Logger.WithContext(ctx)

	if opts.Clean {
		if err := cleanDir(outDir); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create output dir: %w", err)
	}

	idx := e.deps.Index.Index()
	pages, err := e.collectPages(idx)
	if err != nil {
		return nil, err
	}

	result := &Result{OutputDir: outDir}
	var mu sync.Mutex
	record := func(rel string) {
		mu.Lock()
		result.Written = append(result.Written, rel)
		mu.Unlock()
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workerCount(opts.Workers, len(pages)))
	for _, route := range pages {
		group.Go(func() error {
			rel, err := e.exportPage(groupCtx, outDir, route)
			if err != nil {
				return err
			}
			record(rel)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		logger.Error("export.pages_failed", "error", err)
		return nil, err
	}
	result.Pages = len(result.Written)

	if e.deps.Content != nil {
		copied, err := copyAssets(ctx, e.deps.Content, outDir, opts.Extension)
		if err != nil {
			logger.Error("export.assets_failed", "error", err)
			return nil, err
		}
		result.Assets = len(copied)
		result.Written = append(result.Written, copied...)
	}

	if e.deps.Theme != nil && e.deps.Theme.FS() != nil {
		copied, err := copyThemeAssets(ctx, e.deps.Theme, outDir)
		if err != nil {
			logger.Error("export.theme_assets_failed", "error", err)
			return nil, err
		}
		result.Assets += len(copied)
		result.Written = append(result.Written, copied...)
	}

	if opts.Sitemap {
		content := buildSitemap(e.deps.Routes, pages, started)
		if err := writeFile(outDir, sitemapFile, content); err != nil {
			return nil, err
		}
		result.Sitemap = true
		result.Written = append(result.Written, sitemapFile)
	}

	result.Duration = e.now().Sub(started)
	logger.Info("export.completed",
		"output_dir", outDir,
		"pages", result.Pages,
		"assets", result.Assets,
		"sitemap", result.Sitemap,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// collectPages lists every site path in a deterministic order: home, index,
// tag pages, then lessons in index order.
func (e *Exporter) collectPages(idx *lessons.Index) ([]string, error) {
	r := e.deps.Routes
	pages := []string{r.Home(), r.Index()}
	for _, tag := range idx.Tags() {
		href, err := r.Tag(tag)
		if err != nil {
			return nil, fmt.Errorf("export: tag %q: %w", tag, err)
		}
		pages = append(pages, href)
	}
	for _, rec := range idx.All() {
		href, err := r.Lesson(rec.Topic, rec.Lesson)
		if err != nil {
			return nil, fmt.Errorf("export: lesson %s/%s: %w", rec.Topic, rec.Lesson, err)
		}
		pages = append(pages, href)
	}
	return pages, nil
}

func (e *Exporter) exportPage(ctx context.Context, outDir, route string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel, err := targetPath(route)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, route, nil)
	if err != nil {
		return "", fmt.Errorf("export: request %s: %w", route, err)
	}
	resp := newPageRecorder()
	e.deps.Site.ServeHTTP(resp, req)
	if resp.status != http.StatusOK {
		return "", fmt.Errorf("export: %s returned status %d", route, resp.status)
	}
	if err := writeFile(outDir, rel, resp.body.Bytes()); err != nil {
		return "", err
	}
	return rel, nil
}

func writeFile(outDir, rel string, content []byte) error {
	dest := filepath.Join(outDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("export: create dir for %s: %w", rel, err)
	}
	if err := os.WriteFile(dest, content, 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", rel, err)
	}
	return nil
}

func cleanDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("export: resolve output dir: %w", err)
	}
	if abs == filepath.Dir(abs) {
		return fmt.Errorf("%w: %s", ErrUnsafeOutputDir, abs)
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("export: clean output dir: %w", err)
	}
	return nil
}

func workerCount(configured, jobs int) int {
	workers := configured
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if jobs > 0 && workers > jobs {
		workers = jobs
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// pageRecorder captures a handler response in memory.
type pageRecorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newPageRecorder() *pageRecorder {
	return &pageRecorder{header: http.Header{}}
}

func (p *pageRecorder) Header() http.Header { return p.header }

func (p *pageRecorder) WriteHeader(status int) {
	if p.status == 0 {
		p.status = status
	}
}

func (p *pageRecorder) Write(b []byte) (int, error) {
	if p.status == 0 {
		p.status = http.StatusOK
	}
	return p.body.Write(b)
}
