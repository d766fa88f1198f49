// validate_test.go - document-level validation tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package themis

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, data string) *Document {
	t.Helper()
	doc, err := ParseDocument([]byte(data), FormatJSON)
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	return doc
}

func TestValidateDocument_ValidDocument(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `{"customModes": [
		{"slug": "ask", "name": "Ask", "roleDefinition": "You are Roo, an assistant.", "groups": ["read"]}
	]}`)

	result := ValidateDocument(doc, DefaultRuleset())
	if !result.Valid() {
		t.Fatalf("valid document flagged: %v", result.Diagnostics)
	}
	if result.String() != "Document is valid" {
		t.Errorf("String() = %q", result.String())
	}
}

func TestValidateDocument_AliasIsWarningOnly(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `{"modes": [
		{"slug": "ask", "name": "Ask", "roleDefinition": "You are Roo, an assistant.", "groups": ["read"]}
	]}`)

	result := ValidateDocument(doc, DefaultRuleset())
	if !result.Valid() {
		t.Fatalf("alias-only document must stay valid: %v", result.Diagnostics)
	}
	if result.WarningCount() != 1 {
		t.Fatalf("warning count = %d, want 1", result.WarningCount())
	}

	d := result.Diagnostics[0]
	if d.RecordIndex != -1 {
		t.Errorf("alias diagnostic RecordIndex = %d, want -1", d.RecordIndex)
	}
	if !d.Fixable {
		t.Error("alias diagnostic must be fixable (key rename)")
	}
	if !strings.Contains(d.Message, "customModes") {
		t.Errorf("alias diagnostic should name the canonical key: %q", d.Message)
	}
}

func TestValidateDocument_CollectsEverything(t *testing.T) {
	t.Parallel()

	// Three defective records; validation must not stop at the first.
	doc := mustParse(t, `{"customModes": [
		{"slug": "A B", "name": "", "groups": "oops"},
		{"slug": "ask", "name": "Ask", "roleDefinition": "You are Roo", "groups": ["read"]},
		{"slug": "ask", "name": "Dup", "roleDefinition": "You are Roo", "groups": ["read"]}
	]}`)

	result := ValidateDocument(doc, DefaultRuleset())
	if result.Valid() {
		t.Fatal("defective document flagged valid")
	}

	// Record 0: slug charset, empty name, missing role, bad groups = 4 errors.
	// Record 2: duplicate slug = 1 error.
	if got := result.ErrorCount(); got != 5 {
		t.Errorf("error count = %d, want 5; diags: %v", got, result.Diagnostics)
	}
	if !result.RecordValid(1) {
		t.Error("clean middle record flagged invalid")
	}
	if result.RecordValid(0) || result.RecordValid(2) {
		t.Error("defective records flagged valid")
	}
	if len(result.RecordDiagnostics(0)) != 4 {
		t.Errorf("record 0 diagnostics = %d, want 4", len(result.RecordDiagnostics(0)))
	}
}

func TestResult_Counts(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `{"modes": [
		{"slug": "x", "name": "X", "roleDefinition": "Just a helper.", "groups": ["read"]}
	]}`)

	result := ValidateDocument(doc, DefaultRuleset())
	if result.ErrorCount() != 0 {
		t.Errorf("ErrorCount = %d, want 0", result.ErrorCount())
	}
	// Alias warning plus lead-in warning.
	if result.WarningCount() != 2 {
		t.Errorf("WarningCount = %d, want 2", result.WarningCount())
	}
	// Only the alias rename is fixable by default.
	if result.FixableCount() != 1 {
		t.Errorf("FixableCount = %d, want 1", result.FixableCount())
	}
	if !result.HasFixable() {
		t.Error("HasFixable = false, want true")
	}
	if got := result.String(); got != "Document is valid with 2 warning(s)" {
		t.Errorf("String() = %q", got)
	}
}
