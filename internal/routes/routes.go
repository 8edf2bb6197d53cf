package routes

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-urlkit"
)

// Route names registered with the site group.
const (
	GroupSite   = "site"
	RouteHome   = "home"
	RouteIndex  = "index"
	RouteTag    = "tag"
	RouteLesson = "lesson"
)

var sitePaths = map[string]string{
	RouteHome:   "/",
	RouteIndex:  "/index",
	RouteTag:    "/index/tag/:tag",
	RouteLesson: "/courses/:topic/:lesson",
}

// Routes builds the public URLs of the lesson site.
type Routes struct {
	group *urlkit.Group
	base  *url.URL
}

// New registers the site routes. baseURL must be absolute; its path, if any,
// only prefixes Absolute links.
func New(baseURL string) (*Routes, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("routes: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("routes: base url %q must be absolute", baseURL)
	}

	manager := urlkit.NewRouteManager(&urlkit.Config{
		Groups: []urlkit.GroupConfig{
			{
				Name:    GroupSite,
				BaseURL: base.Scheme + "://" + base.Host,
				Paths:   sitePaths,
			},
		},
	})
	group, err := lookupGroup(manager, GroupSite)
	if err != nil {
		return nil, err
	}
	return &Routes{group: group, base: base}, nil
}

// Home returns the home page path.
func (r *Routes) Home() string { return sitePaths[RouteHome] }

// Index returns the full index path.
func (r *Routes) Index() string { return sitePaths[RouteIndex] }

// Tag returns the filtered index path for tag.
func (r *Routes) Tag(tag string) (string, error) {
	return r.build(RouteTag, map[string]string{"tag": tag})
}

// Lesson returns the lesson page path.
func (r *Routes) Lesson(topic, lesson string) (string, error) {
	return r.build(RouteLesson, map[string]string{"topic": topic, "lesson": lesson})
}

// ThemeAssetRoot is the first path segment of theme asset URLs.
const ThemeAssetRoot = "_theme"

// ThemeAsset returns the path a theme asset is served from. asset is slash
// separated and relative to the theme directory.
func (r *Routes) ThemeAsset(asset string) string {
	segments := strings.Split(strings.Trim(asset, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return "/" + ThemeAssetRoot + "/" + strings.Join(segments, "/")
}

// Absolute prefixes a site path with the configured base URL.
func (r *Routes) Absolute(path string) string {
	out := *r.base
	out.Path = strings.TrimRight(r.base.Path, "/") + path
	out.RawPath = ""
	return out.String()
}

func (r *Routes) build(route string, params map[string]string) (built string, err error) {
	for name, value := range params {
		if value == "" {
			return "", fmt.Errorf("routes: %s requires %s", route, name)
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("routes: build %s: %v", route, rec)
		}
	}()

	builder := r.group.Builder(route)
	for name, value := range params {
		builder.WithParam(name, value)
	}
	raw, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("routes: build %s: %w", route, err)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("routes: parse %s: %w", raw, err)
	}
	return parsed.EscapedPath(), nil
}

func lookupGroup(manager *urlkit.RouteManager, name string) (group *urlkit.Group, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("routes: group %q not found", name)
		}
	}()
	return manager.Group(name), nil
}
