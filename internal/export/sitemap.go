package export

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-lessons/internal/routes"
)

type sitemapEntry struct {
	Location string
	LastMod  time.Time
}

func buildSitemap(r *routes.Routes, pages []string, generatedAt time.Time) []byte {
	entries := make([]sitemapEntry, 0, len(pages))
	seen := map[string]struct{}{}
	for _, page := range pages {
		location := r.Absolute(page)
		if _, ok := seen[location]; ok {
			continue
		}
		seen[location] = struct{}{}
		entries = append(entries, sitemapEntry{Location: location, LastMod: generatedAt})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Location < entries[j].Location
	})

	var builder strings.Builder
	builder.WriteString(xml.Header)
	builder.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for _, entry := range entries {
		builder.WriteString("  <url>\n")
		builder.WriteString("    <loc>")
		_ = xml.EscapeText(&builder, []byte(entry.Location))
		builder.WriteString("</loc>\n")
		if !entry.LastMod.IsZero() {
			builder.WriteString(fmt.Sprintf("    <lastmod>%s</lastmod>\n", entry.LastMod.UTC().Format(time.RFC3339)))
		}
		builder.WriteString("  </url>\n")
	}
	builder.WriteString("</urlset>\n")
	return []byte(builder.String())
}
