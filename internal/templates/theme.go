package templates

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	gotheme "github.com/goliatone/go-theme"
)

// ThemeManifest is the go-theme manifest looked up in the templates directory.
const ThemeManifest = "theme.json"

// Theme is a go-theme selection over a templates directory. Its manifest maps
// view names to template files and lists the assets the pages link to.
type Theme struct {
	fsys      fs.FS
	selection *gotheme.Selection
}

// HasThemeManifest reports whether dir carries a go-theme manifest.
func HasThemeManifest(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ThemeManifest))
	return err == nil && info.Mode().IsRegular()
}

// LoadTheme reads the manifest in dir and selects variant, or the manifest's
// default variant when empty.
func LoadTheme(dir, variant string) (*Theme, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("theme directory required")
	}
	dir = filepath.Clean(strings.TrimSpace(dir))
	return loadTheme(os.DirFS(dir), filepath.Base(dir), variant)
}

func loadTheme(fsys fs.FS, fallbackName, variant string) (*Theme, error) {
	manifest, err := gotheme.LoadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("load theme manifest: %w", err)
	}

	normalized := *manifest
	if strings.TrimSpace(normalized.Name) == "" {
		normalized.Name = fallbackName
	}
	if strings.TrimSpace(normalized.Version) == "" {
		normalized.Version = "0.0.0"
	}

	registry := gotheme.NewRegistry()
	if err := registry.Register(&normalized); err != nil {
		return nil, fmt.Errorf("register theme %s: %w", normalized.Name, err)
	}

	selector := gotheme.Selector{
		Registry:       registry,
		DefaultTheme:   normalized.Name,
		DefaultVariant: strings.TrimSpace(variant),
	}
	selection, err := selector.Select(normalized.Name, strings.TrimSpace(variant))
	if err != nil {
		return nil, fmt.Errorf("select theme %s: %w", normalized.Name, err)
	}
	return &Theme{fsys: fsys, selection: selection}, nil
}

// Name returns the selected theme name.
func (t *Theme) Name() string { return t.selection.Theme }

// Variant returns the selected variant, empty for the base theme.
func (t *Theme) Variant() string { return t.selection.Variant }

// FS exposes the theme directory.
func (t *Theme) FS() fs.FS { return t.fsys }

// ViewPath resolves the template file for a view, defaulting to <view>.html.
func (t *Theme) ViewPath(view string) string {
	fallback := view + ".html"
	resolved := path.Clean(strings.TrimPrefix(filepath.ToSlash(t.selection.Template(view, fallback)), "/"))
	if !fs.ValidPath(resolved) || resolved == "." {
		return fallback
	}
	return resolved
}

// Assets lists the asset files of the selection, variant files overriding
// base files with the same key. Paths are slash separated and relative to
// the theme directory.
func (t *Theme) Assets() []string {
	manifest := t.selection.Manifest
	if manifest == nil {
		return nil
	}

	files := make(map[string]string, len(manifest.Assets.Files))
	for key, file := range manifest.Assets.Files {
		files[key] = file
	}
	if variant := strings.TrimSpace(t.selection.Variant); variant != "" {
		if v, ok := manifest.Variants[variant]; ok {
			for key, file := range v.Assets.Files {
				files[key] = file
			}
		}
	}

	seen := map[string]struct{}{}
	var out []string
	for _, file := range files {
		file = path.Clean(strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(file)), "/"))
		if file == "." || !fs.ValidPath(file) {
			continue
		}
		if _, ok := seen[file]; ok {
			continue
		}
		seen[file] = struct{}{}
		out = append(out, file)
	}
	sort.Strings(out)
	return out
}

// NewFromTheme parses the views the theme resolves, falling back to the
// embedded copy for any file the theme does not provide.
func NewFromTheme(theme *Theme) (*Renderer, error) {
	if theme == nil {
		return nil, fmt.Errorf("theme is required")
	}
	base, err := fs.Sub(embedded, "views")
	if err != nil {
		return nil, err
	}
	return NewFromFS(overlayFS{primary: themeViews{theme: theme}, fallback: base})
}

// themeViews serves <view>.html requests from the file the theme maps the
// view to.
type themeViews struct {
	theme *Theme
}

func (v themeViews) Open(name string) (fs.File, error) {
	view, ok := strings.CutSuffix(name, ".html")
	if !ok || strings.Contains(view, "/") {
		return v.theme.fsys.Open(name)
	}
	return v.theme.fsys.Open(v.theme.ViewPath(view))
}
