package http

import (
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/goliatone/go-lessons/internal/routes"
)

// serveAsset writes the content file at name when it is a regular,
// non-hidden file that is not a lesson source. It reports whether a response
// was written.
func (s *Site) serveAsset(w http.ResponseWriter, r *http.Request, name string) bool {
	if s.static == nil {
		return false
	}
	name, ok := assetName(name, s.ext)
	if !ok {
		return false
	}
	info, err := fs.Stat(s.static, name)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	http.ServeFileFS(w, r, s.static, name)
	return true
}

// assetName validates a slash separated request path against the content
// root. Dot segments, hidden files and lesson sources are refused.
func assetName(name, ext string) (string, bool) {
	if name == "" || strings.Contains(name, "\\") || strings.Contains(name, "\x00") {
		return "", false
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == "" || strings.HasPrefix(segment, ".") {
			return "", false
		}
	}
	if !fs.ValidPath(name) {
		return "", false
	}
	if ext != "" && strings.EqualFold(path.Ext(name), ext) {
		return "", false
	}
	return name, true
}

// registerTheme links the theme's stylesheets and scripts and mounts the
// handler for its listed assets. Files the manifest does not list are not
// served.
func (s *Site) registerTheme(mux *http.ServeMux) {
	if s.theme == nil || s.theme.FS() == nil {
		return
	}
	s.assets = map[string]struct{}{}
	s.info.Stylesheets, s.info.Scripts = nil, nil
	for _, asset := range s.theme.Assets() {
		s.assets[asset] = struct{}{}
		switch strings.ToLower(path.Ext(asset)) {
		case ".css":
			s.info.Stylesheets = append(s.info.Stylesheets, s.routes.ThemeAsset(asset))
		case ".js":
			s.info.Scripts = append(s.info.Scripts, s.routes.ThemeAsset(asset))
		}
	}
	mux.HandleFunc("GET /"+routes.ThemeAssetRoot+"/{path...}", s.handleThemeAsset)
}

func (s *Site) handleThemeAsset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("path")
	if _, ok := s.assets[name]; !ok {
		s.renderNotFound(w, r)
		return
	}
	info, err := fs.Stat(s.theme.FS(), name)
	if err != nil || !info.Mode().IsRegular() {
		s.renderNotFound(w, r)
		return
	}
	http.ServeFileFS(w, r, s.theme.FS(), name)
}
