// writer_test.go - document writer tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package themis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDocumentWriter_WriteAndReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".roomodes-fixed")

	writer, err := NewDocumentWriter(path, FormatJSON, nil)
	if err != nil {
		t.Fatalf("NewDocumentWriter failed: %v", err)
	}
	writer.MergePreserving(map[string]interface{}{
		"customModes": []interface{}{
			map[string]interface{}{"slug": "ask"},
		},
	})

	if err := writer.WriteDocument(); err != nil {
		t.Fatalf("WriteDocument failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var loaded map[string]interface{}
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("written file is not valid JSON: %v", err)
	}
	if _, ok := loaded["customModes"]; !ok {
		t.Error("written document missing customModes")
	}
}

func TestDocumentWriter_EmptyPath(t *testing.T) {
	t.Parallel()

	if _, err := NewDocumentWriter("", FormatJSON, nil); err == nil {
		t.Error("empty path should fail")
	}
}

func TestDocumentWriter_SkipsUnchangedWrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.json")

	writer, err := NewDocumentWriter(path, FormatJSON, nil)
	if err != nil {
		t.Fatal(err)
	}
	writer.MergePreserving(map[string]interface{}{"key": "value"})
	if err := writer.WriteDocument(); err != nil {
		t.Fatal(err)
	}

	stat1, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	// Nothing changed: the second write must be a no-op.
	if err := writer.WriteDocument(); err != nil {
		t.Fatal(err)
	}
	stat2, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !stat1.ModTime().Equal(stat2.ModTime()) {
		t.Error("unchanged document was rewritten")
	}

	if writer.HasChanges() {
		t.Error("HasChanges = true after write")
	}
}

func TestDocumentWriter_InitialConfigIsBaseline(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.json")
	writer, err := NewDocumentWriter(path, FormatJSON, map[string]interface{}{"key": "value"})
	if err != nil {
		t.Fatal(err)
	}

	// The seed config is the baseline, not a pending change.
	if writer.HasChanges() {
		t.Error("HasChanges = true right after construction")
	}
	if err := writer.WriteDocument(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no-op write created the target file")
	}
}

func TestDocumentWriter_MergePreservesHandWrittenSections(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.json")
	existing := `{"customModes": [{"slug": "old"}], "notes": "hand-written", "pins": [1, 2]}`
	if err := os.WriteFile(path, []byte(existing), 0644); err != nil {
		t.Fatal(err)
	}

	// nil initial config loads the existing file as the merge base.
	writer, err := NewDocumentWriter(path, FormatJSON, nil)
	if err != nil {
		t.Fatal(err)
	}

	writer.MergePreserving(map[string]interface{}{
		"customModes": []interface{}{
			map[string]interface{}{"slug": "new"},
		},
	})

	if !writer.HasChanges() {
		t.Fatal("merge with new content should report changes")
	}
	if err := writer.WriteDocument(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var loaded map[string]interface{}
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatal(err)
	}

	if loaded["notes"] != "hand-written" {
		t.Error("hand-written section lost during merge")
	}
	records := loaded["customModes"].([]interface{})
	if records[0].(map[string]interface{})["slug"] != "new" {
		t.Error("computed section not replaced during merge")
	}
}

func TestDocumentWriter_YAMLOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "modes.yaml")
	writer, err := NewDocumentWriter(path, FormatYAML, nil)
	if err != nil {
		t.Fatal(err)
	}
	writer.MergePreserving(map[string]interface{}{
		"customModes": []interface{}{},
	})
	if err := writer.WriteDocument(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "customModes") {
		t.Errorf("YAML output missing key: %s", data)
	}
}

func TestDocumentWriter_WriteDocumentAs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writer, err := NewDocumentWriter(filepath.Join(dir, "a.json"), FormatJSON, map[string]interface{}{"k": "v"})
	if err != nil {
		t.Fatal(err)
	}

	exportPath := filepath.Join(dir, "b.json")
	if err := writer.WriteDocumentAs(exportPath); err != nil {
		t.Fatalf("WriteDocumentAs failed: %v", err)
	}
	if _, err := os.Stat(exportPath); err != nil {
		t.Errorf("exported file missing: %v", err)
	}
	// The writer's own target must not have been created.
	if _, err := os.Stat(filepath.Join(dir, "a.json")); !os.IsNotExist(err) {
		t.Error("WriteDocumentAs touched the writer's own target")
	}
}

func TestDeepCopy_NoAliasing(t *testing.T) {
	t.Parallel()

	src := map[string]interface{}{
		"nested": map[string]interface{}{"a": 1},
		"list":   []interface{}{map[string]interface{}{"b": 2}},
	}

	dst := deepCopy(src)
	dst["nested"].(map[string]interface{})["a"] = 99
	dst["list"].([]interface{})[0].(map[string]interface{})["b"] = 99

	if src["nested"].(map[string]interface{})["a"] != 1 {
		t.Error("nested map aliased")
	}
	if src["list"].([]interface{})[0].(map[string]interface{})["b"] != 2 {
		t.Error("nested slice element aliased")
	}
}

func TestHashDocument_OrderIndependent(t *testing.T) {
	t.Parallel()

	a := map[string]interface{}{"x": 1, "y": "two", "z": []interface{}{true}}
	b := map[string]interface{}{"z": []interface{}{true}, "y": "two", "x": 1}

	if hashDocument(a) != hashDocument(b) {
		t.Error("equal documents hash differently")
	}

	c := map[string]interface{}{"x": 2, "y": "two", "z": []interface{}{true}}
	if hashDocument(a) == hashDocument(c) {
		t.Error("different documents hash equally")
	}
}
