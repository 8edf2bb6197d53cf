package markdown

import (
	"bytes"
	"fmt"
	"maps"
	"strings"

	"github.com/adrg/frontmatter"

	"github.com/goliatone/go-lessons/pkg/interfaces"
)

// ParseFrontMatter extracts metadata and Markdown body content from the
// provided source bytes. Sources without a front matter block return an empty
// FrontMatter and the whole input as body.
func ParseFrontMatter(source []byte) (interfaces.FrontMatter, []byte, error) {
	var meta map[string]any

	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return interfaces.FrontMatter{}, nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	raw := normalizeMap(meta)
	return interfaces.FrontMatter{
		Title:       stringField(raw, "title"),
		Description: stringField(raw, "description"),
		Tags:        stringsField(raw, "tags"),
		Raw:         raw,
	}, body, nil
}

// BuildDocument assembles an interfaces.Document from the supplied file path
// and raw content. BodyHTML is left empty so callers can render lazily.
func BuildDocument(path string, source []byte) (*interfaces.Document, error) {
	fm, body, err := ParseFrontMatter(source)
	if err != nil {
		return nil, err
	}

	return &interfaces.Document{
		FilePath:    path,
		FrontMatter: fm,
		Body:        body,
	}, nil
}

func stringField(raw map[string]any, key string) string {
	value, ok := raw[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func stringsField(raw map[string]any, key string) []string {
	items, ok := raw[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// normalizeMap converts the map[interface{}]interface{} values produced by the
// YAML decoder into map[string]any so metadata can be JSON encoded and
// validated.
func normalizeMap(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	maps.Copy(out, input)
	for key, value := range out {
		out[key] = normalizeValue(value)
	}
	return out
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return normalizeMap(v)
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
