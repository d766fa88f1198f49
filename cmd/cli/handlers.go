// Command handlers for the Themis CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/agilira/themis"
)

// handleValidate runs the validation pipeline: load, validate, render the
// transcript, and optionally write a corrected copy. Returns a coded error
// when the pre-fix document has errors, so the process exits non-zero.
func (m *Manager) handleValidate(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)
	if path == "" {
		path = "./.roomodes"
	}

	if m.auditLogger != nil {
		m.auditLogger.LogDocumentWatch("cli_validate", path)
	}

	opts := &themis.Options{
		Path:           path,
		Fix:            ctx.GetFlagBool("fix"),
		OutputPath:     ctx.GetFlagString("output"),
		Format:         ctx.GetFlagString("format"),
		SmoothWarnings: ctx.GetFlagBool("smooth"),
	}
	opts = opts.WithDefaults()

	if err := opts.Validate(); err != nil {
		return err
	}

	if opts.Fix {
		if err := checkFileWriteable(opts.OutputPath); err != nil {
			return errors.Wrap(err, themis.ErrCodeWriterError, "output path is not writable")
		}
	}

	result, err := themis.Execute(opts, m.auditLogger, m.out)
	if err != nil {
		return err
	}

	if !result.Valid() {
		return errors.New(themis.ErrCodeInvalidDocument, result.String())
	}

	return nil
}

// handleWatch re-validates the document whenever its modification time
// advances. Polling-based, matching the document sizes involved.
func (m *Manager) handleWatch(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)
	if path == "" {
		path = "./.roomodes"
	}

	interval, err := time.ParseDuration(ctx.GetFlagString("interval"))
	if err != nil {
		return errors.New(themis.ErrCodeInvalidOptions, fmt.Sprintf("invalid interval: %v", err))
	}

	opts := (&themis.Options{
		Path:   path,
		Format: ctx.GetFlagString("format"),
		Fix:    ctx.GetFlagBool("fix"),
	}).WithDefaults()

	if m.auditLogger != nil {
		m.auditLogger.LogDocumentWatch("watch_started", path)
	}

	fmt.Fprintf(m.out, "Watching %s (interval: %v)\n", path, interval)
	fmt.Fprintln(m.out, "Press Ctrl+C to stop...")

	var lastModTime time.Time
	if stat, err := os.Stat(path); err == nil {
		lastModTime = stat.ModTime()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		stat, err := os.Stat(path)
		if err != nil {
			continue
		}

		if stat.ModTime().After(lastModTime) {
			lastModTime = stat.ModTime()
			fmt.Fprintf(m.out, "Document changed: %s\n", path)

			if m.auditLogger != nil {
				m.auditLogger.LogDocumentWatch("document_changed", path)
			}

			if _, err := themis.Execute(opts, m.auditLogger, m.out); err != nil {
				fmt.Fprintf(m.out, "Validation failed: %v\n", err)
			}
		}
	}

	return nil
}

// handleAuditStats prints audit store statistics.
func (m *Manager) handleAuditStats(ctx *orpheus.Context) error {
	if m.auditLogger == nil {
		return errors.New(themis.ErrCodeInvalidAuditConfig, "audit logging not enabled")
	}

	stats, err := m.auditLogger.Stats()
	if err != nil {
		return err
	}

	fmt.Fprintf(m.out, "Audit trail statistics:\n")
	fmt.Fprintf(m.out, "  Total events: %d\n", stats.TotalEvents)
	fmt.Fprintf(m.out, "  Store size: %d bytes\n", stats.DatabaseSize)

	if len(stats.EventsByLevel) > 0 {
		fmt.Fprintf(m.out, "  By level:\n")
		for level, count := range stats.EventsByLevel {
			fmt.Fprintf(m.out, "    %s: %d\n", level, count)
		}
	}
	if len(stats.EventsByEvent) > 0 {
		fmt.Fprintf(m.out, "  By event:\n")
		for event, count := range stats.EventsByEvent {
			fmt.Fprintf(m.out, "    %s: %d\n", event, count)
		}
	}
	if stats.OldestEvent != nil && stats.NewestEvent != nil {
		fmt.Fprintf(m.out, "  Range: %s to %s\n",
			stats.OldestEvent.Format(time.RFC3339),
			stats.NewestEvent.Format(time.RFC3339))
	}

	return nil
}

// handleAuditCleanup removes audit entries past the retention window.
func (m *Manager) handleAuditCleanup(ctx *orpheus.Context) error {
	if m.auditLogger == nil {
		return errors.New(themis.ErrCodeInvalidAuditConfig, "audit logging not enabled")
	}

	if ctx.GetFlagBool("dry-run") {
		stats, err := m.auditLogger.Stats()
		if err != nil {
			return err
		}
		fmt.Fprintf(m.out, "Dry run: %d events currently stored, retention window is 90 days\n", stats.TotalEvents)
		return nil
	}

	if err := m.auditLogger.Maintain(); err != nil {
		return err
	}

	fmt.Fprintln(m.out, "Audit cleanup completed")
	return nil
}

// handleInfo displays system information and diagnostics.
func (m *Manager) handleInfo(ctx *orpheus.Context) error {
	verbose := ctx.GetFlagBool("verbose")

	fmt.Fprintf(m.out, "Themis Document Validation System\n")
	fmt.Fprintf(m.out, "Version: %s\n", Version)
	fmt.Fprintf(m.out, "Framework: Orpheus\n")

	if verbose {
		rules := themis.DefaultRuleset()
		fmt.Fprintf(m.out, "\nValidation rules:\n")
		fmt.Fprintf(m.out, "  Container key: %s (legacy alias: %s)\n", rules.CanonicalKey, rules.LegacyKey)
		fmt.Fprintf(m.out, "  Group tags: %v\n", rules.GroupTags)
		fmt.Fprintf(m.out, "  Default tag: %s\n", rules.DefaultTag)
		fmt.Fprintf(m.out, "Supported formats: JSON, YAML\n")
		fmt.Fprintf(m.out, "Audit logging: %v\n", m.auditLogger != nil)
	}

	return nil
}

// handleCompletion generates shell completion scripts.
func (m *Manager) handleCompletion(ctx *orpheus.Context) error {
	shell := ctx.GetArg(0)

	switch shell {
	case "bash":
		fmt.Fprintf(m.out, "# Bash completion for themis\n")
		fmt.Fprintf(m.out, "# Add to ~/.bashrc: source <(themis completion bash)\n")
		fmt.Fprintf(m.out, "_themis_completion() {\n")
		fmt.Fprintf(m.out, "  COMPREPLY=($(compgen -W 'validate watch audit info completion' -- \"${COMP_WORDS[COMP_CWORD]}\"))\n")
		fmt.Fprintf(m.out, "}\n")
		fmt.Fprintf(m.out, "complete -F _themis_completion themis\n")
	case "zsh":
		fmt.Fprintf(m.out, "# Zsh completion for themis\n")
		fmt.Fprintf(m.out, "# Add to ~/.zshrc: source <(themis completion zsh)\n")
		fmt.Fprintf(m.out, "#compdef themis\n")
		fmt.Fprintf(m.out, "_themis() {\n")
		fmt.Fprintf(m.out, "  _arguments '1: :(validate watch audit info completion)'\n")
		fmt.Fprintf(m.out, "}\n")
	case "fish":
		fmt.Fprintf(m.out, "# Fish completion for themis\n")
		fmt.Fprintf(m.out, "complete -c themis -f -a 'validate watch audit info completion'\n")
	default:
		return errors.New(themis.ErrCodeInvalidOptions, fmt.Sprintf("unsupported shell: %s", shell))
	}

	return nil
}
