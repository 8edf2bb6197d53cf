package lessons

import (
	"errors"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrLessonNotFound reports a topic/lesson pair that is not in the index or
// whose source file disappeared.
var ErrLessonNotFound = errors.New("lesson not found")

// Record describes one lesson discovered under content/<topic>/<lesson>.md.
type Record struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Tags        []string `json:"tags"`
	Topic       string   `json:"topic"`
	Lesson      string   `json:"lesson"`
	// Path is the slash separated source path relative to the content root.
	Path string `json:"path"`
}

// HasTag reports whether the record carries tag exactly.
func (r Record) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}

// Index is an immutable snapshot of every lesson. Records are ordered by
// title using locale aware collation; Tags is the sorted set of all tags.
// Values returned by Index must not be modified.
type Index struct {
	records []Record
	tags    []string
	byKey   map[string]int
}

// NewIndex sorts records for lang and derives the tag set. The input slice
// is copied.
func NewIndex(records []Record, lang language.Tag) *Index {
	sorted := slices.Clone(records)
	collator := collate.New(lang)
	slices.SortStableFunc(sorted, func(a, b Record) int {
		if c := collator.CompareString(a.Title, b.Title); c != 0 {
			return c
		}
		return strings.Compare(a.URL, b.URL)
	})

	var tags []string
	byKey := make(map[string]int, len(sorted))
	for i, rec := range sorted {
		tags = append(tags, rec.Tags...)
		byKey[key(rec.Topic, rec.Lesson)] = i
	}
	slices.Sort(tags)
	tags = slices.Compact(tags)
	if tags == nil {
		tags = []string{}
	}

	return &Index{records: sorted, tags: tags, byKey: byKey}
}

// All returns every record in title order.
func (idx *Index) All() []Record {
	if idx == nil {
		return nil
	}
	return slices.Clone(idx.records)
}

// Tags returns the sorted, de-duplicated tag set.
func (idx *Index) Tags() []string {
	if idx == nil {
		return []string{}
	}
	return slices.Clone(idx.tags)
}

// ByTag returns records whose tag set contains tag, in title order. Matching
// is exact: no case folding and no partial matches.
func (idx *Index) ByTag(tag string) []Record {
	if idx == nil {
		return nil
	}
	out := make([]Record, 0)
	for _, rec := range idx.records {
		if rec.HasTag(tag) {
			out = append(out, rec)
		}
	}
	return out
}

// Lookup finds the record for a topic/lesson pair.
func (idx *Index) Lookup(topic, lesson string) (Record, bool) {
	if idx == nil {
		return Record{}, false
	}
	i, ok := idx.byKey[key(topic, lesson)]
	if !ok {
		return Record{}, false
	}
	return idx.records[i], true
}

// LookupPath finds the record built from a source path such as
// "intro/hello.md".
func (idx *Index) LookupPath(path string) (Record, bool) {
	if idx == nil {
		return Record{}, false
	}
	for _, rec := range idx.records {
		if rec.Path == path {
			return rec, true
		}
	}
	return Record{}, false
}

// Len returns the number of lessons.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.records)
}

func key(topic, lesson string) string {
	return topic + "/" + lesson
}
