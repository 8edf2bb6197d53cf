package lessons

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const frontMatterSchemaName = "lesson-frontmatter.json"

var frontMatterSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"title":       map[string]any{"type": "string"},
		"description": map[string]any{"type": "string"},
		"tags": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string", "minLength": 1},
		},
	},
}

// MetadataValidator checks lesson front matter against the lesson schema.
type MetadataValidator struct {
	schema *jsonschema.Schema
}

// NewMetadataValidator compiles the front matter schema.
func NewMetadataValidator() (*MetadataValidator, error) {
	encoded, err := json.Marshal(frontMatterSchema)
	if err != nil {
		return nil, fmt.Errorf("lessons schema: encode: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(frontMatterSchemaName, bytes.NewReader(encoded)); err != nil {
		return nil, fmt.Errorf("lessons schema: add resource: %w", err)
	}
	schema, err := compiler.Compile(frontMatterSchemaName)
	if err != nil {
		return nil, fmt.Errorf("lessons schema: compile: %w", err)
	}
	return &MetadataValidator{schema: schema}, nil
}

// Validate checks raw front matter. The map is round-tripped through JSON so
// YAML scalars validate the same way JSON documents do.
func (v *MetadataValidator) Validate(raw map[string]any) error {
	if raw == nil {
		raw = map[string]any{}
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode front matter: %w", err)
	}
	var doc any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return fmt.Errorf("decode front matter: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return describeValidationError(err)
	}
	return nil
}

func describeValidationError(err error) error {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) || verr == nil {
		return err
	}
	var issues []string
	collectIssues(verr, &issues)
	if len(issues) == 0 {
		return err
	}
	return fmt.Errorf("invalid front matter: %s", strings.Join(issues, "; "))
}

func collectIssues(verr *jsonschema.ValidationError, issues *[]string) {
	if len(verr.Causes) == 0 {
		location := strings.TrimSpace(verr.InstanceLocation)
		if location == "" {
			location = "/"
		}
		*issues = append(*issues, location+": "+strings.TrimSpace(verr.Message))
		return
	}
	for _, cause := range verr.Causes {
		collectIssues(cause, issues)
	}
}
