package changes

import (
	"bufio"
	"bytes"
	"path"
	"strings"
)

// Entry is one status line of `git log --name-status`.
type Entry struct {
	Status string
	Path   string
}

// ParseNameStatus reads tab separated "status<TAB>path" lines. Renames and
// copies carry two paths; the destination is kept. Blank and malformed lines
// are skipped.
func ParseNameStatus(output []byte) []Entry {
	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		status := strings.TrimSpace(fields[0])
		file := strings.TrimSpace(fields[len(fields)-1])
		if status == "" || file == "" {
			continue
		}
		entries = append(entries, Entry{Status: status, Path: file})
	}
	return entries
}

// Kind labels a change for display.
type Kind string

const (
	KindAdded    Kind = "Added"
	KindModified Kind = "Modified"
)

// KindFor maps a git status letter onto a Kind. Only additions are
// distinguished; every other status reads as a modification.
func KindFor(status string) Kind {
	if strings.HasPrefix(status, "A") {
		return KindAdded
	}
	return KindModified
}

// splitLessonPath accepts "<topic>/<lesson><ext>" and rejects every other
// shape.
func splitLessonPath(file, ext string) (topic, lesson string, ok bool) {
	file = path.Clean(strings.TrimPrefix(file, "./"))
	topic, name, found := strings.Cut(file, "/")
	if !found || topic == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	if path.Ext(name) != ext {
		return "", "", false
	}
	lesson = strings.TrimSuffix(name, ext)
	if lesson == "" {
		return "", "", false
	}
	return topic, lesson, true
}
