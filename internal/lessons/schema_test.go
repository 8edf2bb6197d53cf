package lessons

import (
	"strings"
	"testing"
)

func TestMetadataValidator(t *testing.T) {
	validator, err := NewMetadataValidator()
	if err != nil {
		t.Fatalf("NewMetadataValidator: %v", err)
	}

	valid := []map[string]any{
		nil,
		{"title": "Hello"},
		{"title": "Hello", "description": "d", "tags": []any{"a", "b"}, "extra": map[string]any{"k": 1}},
	}
	for _, raw := range valid {
		if err := validator.Validate(raw); err != nil {
			t.Fatalf("expected %v to be valid, got %v", raw, err)
		}
	}

	invalid := []struct {
		raw      map[string]any
		location string
	}{
		{raw: map[string]any{"title": 3}, location: "/title"},
		{raw: map[string]any{"tags": "basics"}, location: "/tags"},
		{raw: map[string]any{"tags": []any{"ok", 2}}, location: "/tags/1"},
		{raw: map[string]any{"tags": []any{""}}, location: "/tags/0"},
	}
	for _, tc := range invalid {
		err := validator.Validate(tc.raw)
		if err == nil {
			t.Fatalf("expected %v to be invalid", tc.raw)
		}
		if !strings.Contains(err.Error(), tc.location) {
			t.Fatalf("expected error to mention %s, got %v", tc.location, err)
		}
	}
}
