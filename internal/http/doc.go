// Package http serves the lesson site on a net/http ServeMux:
//   - Home with recent changes: /
//   - Lesson index: /index, /index/tag/{tag}
//   - Lessons: /courses/{topic}/{lesson}
//   - Health: /healthz
//
// Any other GET falls through to the content directory for static assets.
package http
