package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestJsonString(t *testing.T) {
	got := JsonString(map[string]int{"a": 1})
	if got != `{"a":1}` {
		t.Errorf("JsonString = %q", got)
	}
}

func TestJsonFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.json")
	if err := os.WriteFile(path, []byte(`{"x": ["m", "l"]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	var out map[string][]string
	if err := JsonFile(path, &out); err != nil {
		t.Fatalf("JsonFile failed: %v", err)
	}
	if len(out["x"]) != 2 || out["x"][0] != "m" {
		t.Errorf("unexpected content: %v", out)
	}
}

func TestJsonFileMissing(t *testing.T) {
	var out map[string]string
	if err := JsonFile(filepath.Join(t.TempDir(), "nope.json"), &out); err == nil {
		t.Error("expected error for missing file")
	}
}
