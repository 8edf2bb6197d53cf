package lessons

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"github.com/goliatone/go-slug"
	"golang.org/x/text/language"

	"github.com/goliatone/go-lessons/internal/logging"
	"github.com/goliatone/go-lessons/internal/markdown"
	"github.com/goliatone/go-lessons/pkg/interfaces"
)

// DefaultExtension is the lesson source suffix.
const DefaultExtension = ".md"

// DefaultLanguage drives title collation when none is configured.
var DefaultLanguage = language.English

// URLFunc builds the public URL of a lesson.
type URLFunc func(topic, lesson string) (string, error)

// BuildOptions configures Build.
type BuildOptions struct {
	Extension string
	Language  language.Tag
	URL       URLFunc
	Validator *MetadataValidator
	Logger    interfaces.Logger
}

// LessonURL is the default URLFunc: /courses/<topic>/<lesson>.
func LessonURL(topic, lesson string) (string, error) {
	return "/courses/" + url.PathEscape(topic) + "/" + url.PathEscape(lesson), nil
}

// Build scans fsys for <topic>/<lesson><ext> files and returns an index of
// their metadata. Files at the root and below the topic level are ignored,
// as are dot-prefixed entries. Any read, parse or validation failure aborts
// the build; no partial index is returned.
func Build(ctx context.Context, fsys fs.FS, opts BuildOptions) (*Index, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger

	topics, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("lessons index: read content root: %w", err)
	}

	var records []Record
	for _, topic := range topics {
		if !topic.IsDir() || hidden(topic.Name()) {
			continue
		}
		entries, err := fs.ReadDir(fsys, topic.Name())
		if err != nil {
			return nil, fmt.Errorf("lessons index: read topic %s: %w", topic.Name(), err)
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !entry.Type().IsRegular() || hidden(entry.Name()) || path.Ext(entry.Name()) != opts.Extension {
				continue
			}
			rec, err := buildRecord(fsys, topic.Name(), entry.Name(), opts)
			if err != nil {
				return nil, err
			}
			if !slug.IsValid(rec.Topic) || !slug.IsValid(rec.Lesson) {
				logger.Warn("lessons.index.identifier_not_slug", "topic", rec.Topic, "lesson", rec.Lesson)
			}
			records = append(records, rec)
		}
	}

	idx := NewIndex(records, opts.Language)
	logger.Info("lessons.index.built", "lessons", idx.Len(), "tags", len(idx.tags))
	return idx, nil
}

func buildRecord(fsys fs.FS, topic, name string, opts BuildOptions) (Record, error) {
	sourcePath := path.Join(topic, name)
	source, err := fs.ReadFile(fsys, sourcePath)
	if err != nil {
		return Record{}, fmt.Errorf("lessons index: read %s: %w", sourcePath, err)
	}

	fm, _, err := markdown.ParseFrontMatter(source)
	if err != nil {
		return Record{}, fmt.Errorf("lessons index: %s: %w", sourcePath, err)
	}
	if err := opts.Validator.Validate(fm.Raw); err != nil {
		return Record{}, fmt.Errorf("lessons index: %s: %w", sourcePath, err)
	}

	lesson := strings.TrimSuffix(name, opts.Extension)
	lessonURL, err := opts.URL(topic, lesson)
	if err != nil {
		return Record{}, fmt.Errorf("lessons index: url for %s: %w", sourcePath, err)
	}

	title := fm.Title
	if title == "" {
		title = lesson
		logging.WithLessonContext(opts.Logger, topic, lesson, sourcePath).Warn("lessons.index.title_missing")
	}
	tags := fm.Tags
	if tags == nil {
		tags = []string{}
	}

	return Record{
		Title:       title,
		Description: fm.Description,
		URL:         lessonURL,
		Tags:        tags,
		Topic:       topic,
		Lesson:      lesson,
		Path:        sourcePath,
	}, nil
}

func (opts BuildOptions) withDefaults() (BuildOptions, error) {
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	if opts.Language == language.Und {
		opts.Language = DefaultLanguage
	}
	if opts.URL == nil {
		opts.URL = LessonURL
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOp()
	}
	if opts.Validator == nil {
		validator, err := NewMetadataValidator()
		if err != nil {
			return opts, err
		}
		opts.Validator = validator
	}
	return opts, nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
