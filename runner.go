// runner.go: FlashFlags integration layer for Themis
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// The Runner combines FlashFlags parsing, THEMIS_* environment variables,
// and programmatic defaults into a single entry point for embedding the
// validation pipeline in other tools. The full-featured CLI lives in
// cmd/themis; the Runner is the minimal flag-driven alternative.

package themis

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flashflags "github.com/agilira/flash-flags"
)

// Runner wires command-line flags to the validation pipeline.
type Runner struct {
	flags *flashflags.FlagSet

	appName string
	out     io.Writer
}

// NewRunner creates a runner with the standard Themis flag set registered.
func NewRunner(appName string) *Runner {
	r := &Runner{
		flags:   flashflags.New(appName),
		appName: appName,
		out:     os.Stdout,
	}

	r.flags.String("path", "./.roomodes", "Document to validate")
	r.flags.Bool("fix", false, "Write a corrected copy of the document")
	r.flags.String("output", "", "Output path for the corrected copy")
	r.flags.String("format", "auto", "Document format: auto, json, or yaml")
	r.flags.Bool("smooth", false, "Also rewrite role definitions missing the lead-in phrase")
	r.flags.Bool("audit", false, "Record the run in the audit trail")
	r.flags.String("audit-file", "", "Audit store path (.db or .jsonl)")
	r.flags.Duration("audit-flush", 5*time.Second, "Audit flush interval")

	return r
}

// SetDescription sets the help text description.
func (r *Runner) SetDescription(description string) *Runner {
	r.flags.SetDescription(description)
	return r
}

// SetVersion sets the help text version.
func (r *Runner) SetVersion(version string) *Runner {
	r.flags.SetVersion(version)
	return r
}

// SetOutput redirects transcript output, mainly for tests.
func (r *Runner) SetOutput(out io.Writer) *Runner {
	r.out = out
	return r
}

// Parse parses command-line arguments. Environment variables with the
// THEMIS_ prefix fill any flag not given on the command line.
func (r *Runner) Parse(args []string) error {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return fmt.Errorf("help requested")
		}
	}

	r.flags.SetEnvPrefix(strings.ToUpper(r.appName))

	if err := r.flags.Parse(args); err != nil {
		return fmt.Errorf("failed to parse command-line flags: %w", err)
	}

	return nil
}

// Options converts the parsed flags into run options.
func (r *Runner) Options() *Options {
	opts := &Options{
		Path:           r.flags.GetString("path"),
		Fix:            r.flags.GetBool("fix"),
		OutputPath:     r.flags.GetString("output"),
		Format:         r.flags.GetString("format"),
		SmoothWarnings: r.flags.GetBool("smooth"),
	}

	if r.flags.GetBool("audit") {
		opts.Audit = DefaultAuditConfig()
		opts.Audit.OutputFile = r.flags.GetString("audit-file")
		opts.Audit.FlushInterval = r.flags.GetDuration("audit-flush")
	}

	return opts.WithDefaults()
}

// Run parses args and executes the validation pipeline. The returned result
// reflects the pre-fix document; err is non-nil for structural, option, or
// I/O failures.
func (r *Runner) Run(args []string) (*Result, error) {
	if err := r.Parse(args); err != nil {
		return nil, err
	}

	opts := r.Options()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var logger *AuditLogger
	if opts.Audit.Enabled {
		var err error
		logger, err = NewAuditLogger(opts.Audit)
		if err != nil {
			return nil, err
		}
		defer func() {
			if closeErr := logger.Close(); closeErr != nil {
				fmt.Fprintf(os.Stderr, "Failed to close audit logger: %v\n", closeErr)
			}
		}()
	}

	return Execute(opts, logger, r.out)
}

// RunOrExit runs the pipeline and exits with the conventional process
// signal: 0 when the pre-fix document had no errors, 1 otherwise.
func (r *Runner) RunOrExit() {
	result, err := r.Run(os.Args[1:])
	if err != nil {
		if err.Error() == "help requested" {
			r.PrintUsage()
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !result.Valid() {
		os.Exit(1)
	}
	os.Exit(0)
}

// PrintUsage prints help information for all flags.
func (r *Runner) PrintUsage() {
	r.flags.PrintHelp()
}

// BoundFlags returns the registered flag names and their THEMIS_* env keys.
func (r *Runner) BoundFlags() map[string]string {
	result := make(map[string]string)
	r.flags.VisitAll(func(flag *flashflags.Flag) {
		name := flag.Name()
		result[name] = strings.ToUpper(r.appName + "_" + strings.ReplaceAll(name, "-", "_"))
	})
	return result
}
