// cli_integration_test.go: CLI integration testing
//
// Tests the Manager directly, driving real commands against temp documents
// and capturing the transcript output.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agilira/themis"
)

// CLITestFixture manages CLI testing in isolated environments.
type CLITestFixture struct {
	t       *testing.T
	tempDir string
	manager *Manager
	out     *bytes.Buffer
}

// NewCLITestFixture creates an isolated environment for CLI testing.
func NewCLITestFixture(t *testing.T) *CLITestFixture {
	t.Helper()

	out := &bytes.Buffer{}
	return &CLITestFixture{
		t:       t,
		tempDir: t.TempDir(),
		manager: NewManager().WithOutput(out),
		out:     out,
	}
}

// RunCLI executes CLI commands via Manager and captures transcript output.
func (f *CLITestFixture) RunCLI(args ...string) (string, error) {
	f.t.Helper()

	f.out.Reset()
	err := f.manager.Run(args)
	return f.out.String(), err
}

// CreateTempDocument writes a document into the temp directory.
func (f *CLITestFixture) CreateTempDocument(name, content string) string {
	f.t.Helper()

	path := filepath.Join(f.tempDir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		f.t.Fatalf("Failed to create temp document: %v", err)
	}
	return path
}

func TestCLI_ValidateCommand(t *testing.T) {
	fixture := NewCLITestFixture(t)

	t.Run("valid_document", func(t *testing.T) {
		path := fixture.CreateTempDocument("valid.json", `{"customModes": [
			{"slug": "ask", "name": "Ask", "roleDefinition": "You are Roo, a helper.", "groups": ["read"]}
		]}`)

		output, err := fixture.RunCLI("validate", path)
		if err != nil {
			t.Errorf("valid document should exit clean: %v", err)
		}
		if !strings.Contains(output, "PASS record 0 (ask)") {
			t.Errorf("transcript missing PASS line:\n%s", output)
		}
	})

	t.Run("invalid_document_fails", func(t *testing.T) {
		path := fixture.CreateTempDocument("broken.json", `{"customModes": [
			{"slug": "Bad Slug"}
		]}`)

		output, err := fixture.RunCLI("validate", path)
		if err == nil {
			t.Error("invalid document must surface an error for the non-zero exit")
		}
		if !strings.Contains(output, "FAIL record 0") {
			t.Errorf("transcript missing FAIL line:\n%s", output)
		}
		if themis.GetValidationErrorCode(err) != themis.ErrCodeInvalidDocument {
			t.Errorf("error code = %q, want %q", themis.GetValidationErrorCode(err), themis.ErrCodeInvalidDocument)
		}
	})

	t.Run("fix_writes_corrected_copy", func(t *testing.T) {
		path := fixture.CreateTempDocument("fixme.json", `{"modes": [
			{"slug": "Bad Slug", "groups": ["read", "bogus"]}
		]}`)
		outputPath := filepath.Join(fixture.tempDir, "fixed.json")

		output, err := fixture.RunCLI("validate", path, "--fix", "--output", outputPath)
		if err == nil {
			t.Error("pre-fix errors still make the run fail")
		}
		if !strings.Contains(output, "Fixed document written to "+outputPath) {
			t.Errorf("fix announcement missing:\n%s", output)
		}

		fixed, loadErr := themis.LoadDocumentWithFormat(outputPath, "json")
		if loadErr != nil {
			t.Fatalf("fixed document unreadable: %v", loadErr)
		}
		result := themis.ValidateDocument(fixed, themis.DefaultRuleset())
		if result.ErrorCount() != 0 {
			t.Errorf("fixed document still invalid: %s", result.String())
		}
	})

	t.Run("structural_failure", func(t *testing.T) {
		path := fixture.CreateTempDocument("scalar.json", `{"customModes": 42}`)

		output, err := fixture.RunCLI("validate", path)
		if err == nil {
			t.Error("container defect must fail the run")
		}
		if !strings.Contains(output, "FAIL document") {
			t.Errorf("structural failure not rendered:\n%s", output)
		}
	})

	t.Run("missing_document", func(t *testing.T) {
		_, err := fixture.RunCLI("validate", filepath.Join(fixture.tempDir, "absent.json"))
		if err == nil {
			t.Error("missing document must fail the run")
		}
	})
}

func TestCLI_InfoCommand(t *testing.T) {
	fixture := NewCLITestFixture(t)

	output, err := fixture.RunCLI("info")
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	if !strings.Contains(output, "Version: "+Version) {
		t.Errorf("info output missing version:\n%s", output)
	}

	output, err = fixture.RunCLI("info", "--verbose")
	if err != nil {
		t.Fatalf("verbose info failed: %v", err)
	}
	if !strings.Contains(output, "Container key: customModes (legacy alias: modes)") {
		t.Errorf("verbose info missing rule summary:\n%s", output)
	}
}

func TestCLI_CompletionCommand(t *testing.T) {
	fixture := NewCLITestFixture(t)

	for _, shell := range []string{"bash", "zsh", "fish"} {
		output, err := fixture.RunCLI("completion", shell)
		if err != nil {
			t.Errorf("completion %s failed: %v", shell, err)
		}
		if !strings.Contains(output, "themis") {
			t.Errorf("completion %s output looks empty:\n%s", shell, output)
		}
	}

	if _, err := fixture.RunCLI("completion", "powershell"); err == nil {
		t.Error("unsupported shell should fail")
	}
}

func TestCLI_AuditCommandsRequireLogger(t *testing.T) {
	fixture := NewCLITestFixture(t)

	if _, err := fixture.RunCLI("audit", "stats"); err == nil {
		t.Error("audit stats without a logger should fail")
	}
	if _, err := fixture.RunCLI("audit", "cleanup"); err == nil {
		t.Error("audit cleanup without a logger should fail")
	}
}

func TestCLI_AuditStatsWithLogger(t *testing.T) {
	fixture := NewCLITestFixture(t)

	config := themis.DefaultAuditConfig()
	config.OutputFile = filepath.Join(fixture.tempDir, "audit.jsonl")
	config.FlushInterval = 0

	logger, err := themis.NewAuditLogger(config)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = logger.Close() }()

	fixture.manager.WithAudit(logger)

	path := fixture.CreateTempDocument("audited.json", `{"customModes": []}`)
	if _, err := fixture.RunCLI("validate", path); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if err := logger.Flush(); err != nil {
		t.Fatal(err)
	}

	output, err := fixture.RunCLI("audit", "stats")
	if err != nil {
		t.Fatalf("audit stats failed: %v", err)
	}
	if !strings.Contains(output, "Audit trail statistics:") {
		t.Errorf("stats output missing header:\n%s", output)
	}

	output, err = fixture.RunCLI("audit", "cleanup", "--dry-run")
	if err != nil {
		t.Fatalf("audit cleanup dry run failed: %v", err)
	}
	if !strings.Contains(output, "Dry run:") {
		t.Errorf("dry run output missing:\n%s", output)
	}
}
