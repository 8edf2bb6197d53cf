package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// LoadFixture reads a file below testdata/.
func LoadFixture(t testing.TB, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}

// LoadJSON decodes a testdata/ JSON fixture into v.
func LoadJSON(t testing.TB, name string, v any) {
	t.Helper()
	if err := json.Unmarshal(LoadFixture(t, name), v); err != nil {
		t.Fatalf("unmarshal fixture %s: %v", name, err)
	}
}
