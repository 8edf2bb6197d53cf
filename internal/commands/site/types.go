package sitecmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-lessons/internal/export"
)

const (
	reindexMessageType = "lessons.index.rebuild"
	exportMessageType  = "lessons.export.build"
)

// ResultCallback receives export results. It is optional and invoked
// synchronously from the handler.
type ResultCallback func(ResultEnvelope)

// ResultEnvelope captures the outcome of an export command.
type ResultEnvelope struct {
	Result   *export.Result
	Metadata map[string]any
}

// ReindexCommand rebuilds the lesson index snapshot.
type ReindexCommand struct {
	Reason string   `json:"reason,omitempty"`
	Paths  []string `json:"paths,omitempty"`
}

// Type implements command.Message.
func (ReindexCommand) Type() string { return reindexMessageType }

// Validate ensures reported paths are non-empty.
func (m ReindexCommand) Validate() error {
	for _, p := range m.Paths {
		if strings.TrimSpace(p) == "" {
			return validation.Errors{
				"paths": validation.NewError("lessons.index.rebuild.path_invalid", "paths must not contain empty values"),
			}
		}
	}
	return nil
}

// ExportCommand writes a static copy of the site.
type ExportCommand struct {
	OutputDir      string         `json:"output_dir"`
	Workers        int            `json:"workers,omitempty"`
	Clean          bool           `json:"clean,omitempty"`
	Sitemap        bool           `json:"sitemap,omitempty"`
	ResultCallback ResultCallback `json:"-"`
}

// Type implements command.Message.
func (ExportCommand) Type() string { return exportMessageType }

// Validate ensures an output directory is set and the worker count is sane.
func (m ExportCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.OutputDir,
			validation.Required.ErrorObject(validation.NewError("lessons.export.build.output_dir_required", "output_dir is required")),
		),
		validation.Field(&m.Workers,
			validation.Min(0).ErrorObject(validation.NewError("lessons.export.build.workers_invalid", "workers must not be negative")),
		),
	)
}
