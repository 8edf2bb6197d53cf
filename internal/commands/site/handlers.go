package sitecmd

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-lessons/internal/commands"
	"github.com/goliatone/go-lessons/internal/export"
	"github.com/goliatone/go-lessons/internal/lessons"
	"github.com/goliatone/go-lessons/pkg/interfaces"
)

// ErrServiceMissing is returned when a handler runs without its backing service.
var ErrServiceMissing = errors.New("sitecmd: service is required")

// Reindexer rebuilds and installs the lesson index.
type Reindexer interface {
	Reindex(ctx context.Context) (*lessons.Index, error)
}

// Exporter writes the static site.
type Exporter interface {
	Export(ctx context.Context, opts export.Options) (*export.Result, error)
}

// ReindexHandler rebuilds the index snapshot.
type ReindexHandler struct {
	inner *commands.Handler[ReindexCommand]
}

// NewReindexHandler constructs a handler backed by reindexer.
func NewReindexHandler(reindexer Reindexer, logger interfaces.Logger, opts ...commands.HandlerOption[ReindexCommand]) *ReindexHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg ReindexCommand) error {
		if reindexer == nil {
			return ErrServiceMissing
		}
		idx, err := reindexer.Reindex(ctx)
		if err != nil {
			return err
		}
		baseLogger.WithContext(ctx).Info("lessons.index.rebuilt",
			"lessons", idx.Len(),
			"tags", len(idx.Tags()),
			"reason", strings.TrimSpace(msg.Reason),
		)
		return nil
	}

	handlerOpts := []commands.HandlerOption[ReindexCommand]{
		commands.WithLogger[ReindexCommand](baseLogger),
		commands.WithOperation[ReindexCommand]("index.rebuild"),
		commands.WithMessageFields(func(msg ReindexCommand) map[string]any {
			fields := map[string]any{}
			if len(msg.Paths) > 0 {
				fields["paths"] = len(msg.Paths)
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[ReindexCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ReindexHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[ReindexCommand].
func (h *ReindexHandler) Execute(ctx context.Context, msg ReindexCommand) error {
	return h.inner.Execute(ctx, msg)
}

// ExportHandler runs static exports.
type ExportHandler struct {
	inner *commands.Handler[ExportCommand]
}

// NewExportHandler constructs a handler backed by exporter. ext is the
// lesson source extension excluded from copied assets.
func NewExportHandler(exporter Exporter, ext string, logger interfaces.Logger, opts ...commands.HandlerOption[ExportCommand]) *ExportHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg ExportCommand) error {
		if exporter == nil {
			return ErrServiceMissing
		}
		result, err := exporter.Export(ctx, export.Options{
			OutputDir: strings.TrimSpace(msg.OutputDir),
			Workers:   msg.Workers,
			Clean:     msg.Clean,
			Sitemap:   msg.Sitemap,
			Extension: ext,
		})
		if err != nil {
			return err
		}
		if msg.ResultCallback != nil {
			msg.ResultCallback(ResultEnvelope{
				Result: result,
				Metadata: map[string]any{
					"operation": "export",
				},
			})
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[ExportCommand]{
		commands.WithLogger[ExportCommand](baseLogger),
		commands.WithOperation[ExportCommand]("export.build"),
		commands.WithMessageFields(func(msg ExportCommand) map[string]any {
			fields := map[string]any{"output_dir": msg.OutputDir}
			if msg.Clean {
				fields["clean"] = true
			}
			if msg.Sitemap {
				fields["sitemap"] = true
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[ExportCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ExportHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[ExportCommand].
func (h *ExportHandler) Execute(ctx context.Context, msg ExportCommand) error {
	return h.inner.Execute(ctx, msg)
}
