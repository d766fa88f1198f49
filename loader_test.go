// loader_test.go - document loading and format detection tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package themis

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want ConfigFormat
	}{
		{"config.json", FormatJSON},
		{"config.yaml", FormatYAML},
		{"config.yml", FormatYAML},
		{".roomodes", FormatJSON},
		{"/etc/app/.roomodes", FormatJSON},
		{"modes.JSON", FormatJSON},
		{"modes", FormatJSON},
	}

	for _, tt := range tests {
		if got := DetectFormat(tt.path); got != tt.want {
			t.Errorf("DetectFormat(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestParseDocument_CanonicalKey(t *testing.T) {
	t.Parallel()

	data := []byte(`{"customModes": [{"slug": "ask"}], "other": true}`)
	doc, err := ParseDocument(data, FormatJSON)
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}

	if doc.UsesAlias() {
		t.Error("canonical key should not be flagged as alias")
	}
	if doc.ContainerKey() != "customModes" {
		t.Errorf("ContainerKey = %q, want customModes", doc.ContainerKey())
	}
	if len(doc.Records()) != 1 {
		t.Errorf("Records count = %d, want 1", len(doc.Records()))
	}
	if _, ok := doc.Raw()["other"]; !ok {
		t.Error("sibling top-level keys must be preserved in Raw")
	}
}

func TestParseDocument_AliasKey(t *testing.T) {
	t.Parallel()

	data := []byte(`{"modes": []}`)
	doc, err := ParseDocument(data, FormatJSON)
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}

	if !doc.UsesAlias() {
		t.Error("deprecated alias key should be flagged")
	}
	if doc.ContainerKey() != "modes" {
		t.Errorf("ContainerKey = %q, want modes", doc.ContainerKey())
	}
}

func TestParseDocument_CanonicalWinsOverAlias(t *testing.T) {
	t.Parallel()

	data := []byte(`{"customModes": [{"slug": "a"}], "modes": [{"slug": "b"}]}`)
	doc, err := ParseDocument(data, FormatJSON)
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}

	if doc.UsesAlias() {
		t.Error("canonical key must win when both keys are present")
	}
	if doc.ContainerKey() != "customModes" {
		t.Errorf("ContainerKey = %q, want customModes", doc.ContainerKey())
	}
}

func TestParseDocument_StructuralErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want error
	}{
		{"missing container", `{"something": 1}`, ErrMissingContainer},
		{"container not array", `{"customModes": {"slug": "x"}}`, ErrContainerNotArray},
		{"container is string", `{"modes": "nope"}`, ErrContainerNotArray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseDocument([]byte(tt.data), FormatJSON)
			if err != tt.want {
				t.Errorf("ParseDocument error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseDocument_MalformedJSON(t *testing.T) {
	t.Parallel()

	_, err := ParseDocument([]byte(`{"customModes": [`), FormatJSON)
	if err == nil {
		t.Fatal("malformed JSON should fail")
	}
	if code := GetValidationErrorCode(err); code != ErrCodeParseError {
		t.Errorf("error code = %s, want %s", code, ErrCodeParseError)
	}
}

func TestParseDocument_YAML(t *testing.T) {
	t.Parallel()

	data := []byte("customModes:\n  - slug: ask\n    name: Ask\n")
	doc, err := ParseDocument(data, FormatYAML)
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	if len(doc.Records()) != 1 {
		t.Errorf("Records count = %d, want 1", len(doc.Records()))
	}
}

func TestLoadDocument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ".roomodes")
	content := `{"customModes": [{"slug": "code", "name": "Code", "roleDefinition": "You are Roo", "groups": ["read"]}]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("LoadDocument failed: %v", err)
	}
	if doc.Path() != path {
		t.Errorf("Path = %q, want %q", doc.Path(), path)
	}
	if doc.Format() != FormatJSON {
		t.Errorf("Format = %v, want JSON", doc.Format())
	}
}

func TestLoadDocument_NotFound(t *testing.T) {
	t.Parallel()

	_, err := LoadDocument(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("missing file should fail")
	}
	if code := GetValidationErrorCode(err); code != ErrCodeFileNotFound {
		t.Errorf("error code = %s, want %s", code, ErrCodeFileNotFound)
	}
}

func TestLoadDocumentWithFormat_Explicit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "modes.txt")
	if err := os.WriteFile(path, []byte("customModes: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := LoadDocumentWithFormat(path, "yaml")
	if err != nil {
		t.Fatalf("LoadDocumentWithFormat failed: %v", err)
	}
	if doc.Format() != FormatYAML {
		t.Errorf("Format = %v, want YAML", doc.Format())
	}

	if _, err := LoadDocumentWithFormat(path, "toml"); err == nil {
		t.Error("unsupported explicit format should fail")
	}
}
