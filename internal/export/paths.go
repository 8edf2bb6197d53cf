package export

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-lessons/internal/routes"
)

const (
	indexFile   = "index.html"
	sitemapFile = "sitemap.xml"
	lessonsRoot = "courses"
)

// targetPath maps a site path to the file that serves it from a static
// host: "/" becomes index.html and "/a/b" becomes a/b/index.html.
func targetPath(route string) (string, error) {
	decoded, err := url.PathUnescape(route)
	if err != nil {
		return "", fmt.Errorf("export: decode %s: %w", route, err)
	}
	trimmed := strings.Trim(decoded, "/")
	if trimmed == "" {
		return indexFile, nil
	}
	rel := path.Join(trimmed, indexFile)
	if !fs.ValidPath(rel) {
		return "", fmt.Errorf("export: invalid target for %s", route)
	}
	for _, segment := range strings.Split(trimmed, "/") {
		if strings.HasPrefix(segment, ".") {
			return "", fmt.Errorf("export: invalid target for %s", route)
		}
	}
	return rel, nil
}

// copyAssets copies every regular, non-hidden file that is not a lesson
// source. Files inside topic directories are also mirrored under courses/
// where lesson pages resolve their relative links.
func copyAssets(ctx context.Context, content fs.FS, outDir, ext string) ([]string, error) {
	var written []string
	err := fs.WalkDir(content, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if name == "." {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if strings.EqualFold(path.Ext(name), ext) {
			return nil
		}

		targets := []string{name}
		if strings.Contains(name, "/") {
			targets = append(targets, path.Join(lessonsRoot, name))
		}
		for _, target := range targets {
			if err := copyFile(content, name, outDir, target); err != nil {
				return err
			}
			written = append(written, target)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export: copy assets: %w", err)
	}
	return written, nil
}

// copyThemeAssets copies the files a theme lists to the paths the site
// serves them from.
func copyThemeAssets(ctx context.Context, theme ThemeAssets, outDir string) ([]string, error) {
	var written []string
	for _, asset := range theme.Assets() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !fs.ValidPath(asset) || asset == "." {
			return nil, fmt.Errorf("export: invalid theme asset %q", asset)
		}
		target := path.Join(routes.ThemeAssetRoot, asset)
		if err := copyFile(theme.FS(), asset, outDir, target); err != nil {
			return nil, fmt.Errorf("export: copy theme asset %s: %w", asset, err)
		}
		written = append(written, target)
	}
	return written, nil
}

func copyFile(content fs.FS, name, outDir, target string) error {
	src, err := content.Open(name)
	if err != nil {
		return err
	}
	defer src.Close()

	dest := filepath.Join(outDir, filepath.FromSlash(target))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
