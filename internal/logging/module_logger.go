package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-lessons/pkg/interfaces"
)

const (
	rootModule    = "lessons"
	indexModule   = "lessons.index"
	changesModule = "lessons.changes"
	renderModule  = "lessons.render"
	httpModule    = "lessons.http"
	exportModule  = "lessons.export"
	watchModule   = "lessons.watch"
)

const (
	fieldLessonTopic = "topic"
	fieldLessonName  = "lesson"
	fieldLessonPath  = "lesson_path"
	fieldRequestID   = "request_id"
	fieldRequestPath = "path"
	fieldRequestVerb = "method"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The returned logger attaches
// the module identifier as structured context so downstream entries can be
// filtered predictably.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	if fieldsLogger, ok := logger.(interfaces.FieldsLogger); ok {
		return fieldsLogger.WithFields(map[string]any{
			"module": module,
		})
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// IndexLogger returns the logger namespace reserved for the content indexer.
func IndexLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, indexModule)
}

// ChangesLogger returns the logger namespace reserved for the recent-changes reporter.
func ChangesLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, changesModule)
}

// RenderLogger returns the logger namespace reserved for lesson rendering.
func RenderLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, renderModule)
}

// HTTPLogger returns the logger namespace reserved for the HTTP layer.
func HTTPLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, httpModule)
}

// ExportLogger returns the logger namespace reserved for static exports.
func ExportLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, exportModule)
}

// WatchLogger returns the logger namespace reserved for the content watcher.
func WatchLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, watchModule)
}

// WithLessonContext enriches the provided logger with the lesson identifiers
// and source path. Empty values are ignored.
func WithLessonContext(logger interfaces.Logger, topic, lesson, path string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(topic); trimmed != "" {
		fields[fieldLessonTopic] = trimmed
	}
	if trimmed := strings.TrimSpace(lesson); trimmed != "" {
		fields[fieldLessonName] = trimmed
	}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		fields[fieldLessonPath] = trimmed
	}
	return WithFields(logger, fields)
}

// RequestFields builds the context fields attached to every log entry emitted
// while serving a request.
func RequestFields(requestID, method, path string) map[string]any {
	fields := map[string]any{}
	if requestID != "" {
		fields[fieldRequestID] = requestID
	}
	if method != "" {
		fields[fieldRequestVerb] = method
	}
	if path != "" {
		fields[fieldRequestPath] = path
	}
	return fields
}

// NoOp returns a logger that drops every log entry. It satisfies the Logger
// contract so services can safely operate when logging is disabled.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
