// Package cli provides the command-line interface for Themis document validation.
//
// This package implements the CLI using the Orpheus framework, providing
// git-style subcommands with integrated audit logging.
//
// Architecture:
// - Manager: Core CLI orchestration and command routing
// - Handlers: Individual command implementations
// - Utils: Shared utilities for format detection and file checks
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cli

import (
	"io"
	"os"

	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/agilira/themis"
)

// Version is the CLI version reported by the info command.
const Version = "1.0.0"

// Manager provides CLI operations for Themis document validation.
type Manager struct {
	app         *orpheus.App
	auditLogger *themis.AuditLogger // Optional audit integration
	out         io.Writer
}

// NewManager creates a CLI manager with all commands registered.
func NewManager() *Manager {
	app := orpheus.New("themis").
		SetDescription("Validation and auto-remediation for mode-definition documents").
		SetVersion(Version)

	manager := &Manager{
		app: app,
		out: os.Stdout,
	}

	manager.setupValidateCommand()
	manager.setupWatchCommand()
	manager.setupUtilityCommands()

	return manager
}

// WithAudit enables audit logging for all CLI operations.
func (m *Manager) WithAudit(auditLogger *themis.AuditLogger) *Manager {
	m.auditLogger = auditLogger
	return m
}

// WithOutput redirects transcript output, mainly for tests.
func (m *Manager) WithOutput(out io.Writer) *Manager {
	m.out = out
	return m
}

// Run executes the CLI application with the provided arguments.
func (m *Manager) Run(args []string) error {
	return m.app.Run(args)
}

// setupValidateCommand configures the primary 'validate' command.
func (m *Manager) setupValidateCommand() {
	validateCmd := orpheus.NewCommand("validate", "Validate a mode-definition document")

	// validate [path] [--fix] [--output=] [--format=auto] [--smooth]
	validateCmd.SetHandler(m.handleValidate)
	validateCmd.AddFlag("output", "o", "", "Output path for the corrected copy")
	validateCmd.AddFlag("format", "f", "auto", "Document format (auto|json|yaml)")
	validateCmd.AddBoolFlag("fix", "", false, "Write a corrected copy of the document")
	validateCmd.AddBoolFlag("smooth", "", false, "Also rewrite role definitions missing the lead-in phrase")

	m.app.AddCommand(validateCmd)
}

// setupWatchCommand configures the 'watch' command for continuous validation.
func (m *Manager) setupWatchCommand() {
	watchCmd := orpheus.NewCommand("watch", "Re-validate a document whenever it changes")

	// watch [path] [--interval=5s] [--format=auto] [--fix]
	watchCmd.SetHandler(m.handleWatch)
	watchCmd.AddFlag("interval", "i", "5s", "Polling interval")
	watchCmd.AddFlag("format", "f", "auto", "Document format (auto|json|yaml)")
	watchCmd.AddBoolFlag("fix", "", false, "Write a corrected copy after each failing validation")

	m.app.AddCommand(watchCmd)
}

// setupUtilityCommands configures audit, info, and completion commands.
func (m *Manager) setupUtilityCommands() {
	// audit command group
	auditCmd := orpheus.NewCommand("audit", "Audit trail management")

	auditCmd.Subcommand("stats", "Show audit trail statistics", m.handleAuditStats)

	cleanupCmd := auditCmd.Subcommand("cleanup", "Remove audit entries past the retention window", m.handleAuditCleanup)
	cleanupCmd.AddBoolFlag("dry-run", "d", false, "Show what would be deleted")

	m.app.AddCommand(auditCmd)

	// info command
	infoCmd := orpheus.NewCommand("info", "System information and diagnostics")
	infoCmd.SetHandler(m.handleInfo)
	infoCmd.AddBoolFlag("verbose", "v", false, "Verbose system information")
	m.app.AddCommand(infoCmd)

	// completion command
	completionCmd := orpheus.NewCommand("completion", "Generate shell completion scripts")
	completionCmd.SetHandler(m.handleCompletion)
	m.app.AddCommand(completionCmd)
}
