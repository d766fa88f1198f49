// options.go: Run options for the Themis validation pipeline
//
// Options describe one invocation of the engine: which document to check,
// whether to write a corrected copy and where, which format to assume, and
// how the audit trail behaves. Defaults mirror the CLI's conventions so the
// embedded API and the command line agree on behavior.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package themis

import (
	"fmt"
	"path/filepath"

	"github.com/agilira/go-errors"
)

// Option validation sentinels. ErrOutputWithoutFix only ever surfaces as a
// warning in ValidateDetailed.
var (
	ErrEmptyPath          = errors.New(ErrCodeInvalidOptions, "document path cannot be empty")
	ErrOutputWithoutFix   = errors.New(ErrCodeInvalidOptions, "output path requires fix mode")
	ErrOutputEqualsInput  = errors.New(ErrCodeInvalidOptions, "output path must differ from the input document")
	ErrUnknownFormat      = errors.New(ErrCodeInvalidFormat, "format must be auto, json, or yaml")
	ErrInvalidAuditBuffer = errors.New(ErrCodeInvalidAuditConfig, "audit buffer size must be positive")
)

// Options configures a single validation run.
type Options struct {
	// Path is the document to validate. Defaults to "./.roomodes".
	Path string `json:"path"`

	// Fix enables writing a corrected copy of the document.
	Fix bool `json:"fix"`

	// OutputPath is where the corrected copy goes. Defaults to
	// ".roomodes-fixed" next to the input document.
	OutputPath string `json:"output_path"`

	// Format forces a document format: "json", "yaml", or "auto" to
	// detect from the file extension.
	Format string `json:"format"`

	// SmoothWarnings also rewrites role definitions that merely miss the
	// expected lead-in phrase, not just records with errors.
	SmoothWarnings bool `json:"smooth_warnings"`

	// Audit configures the audit trail for this run.
	Audit AuditConfig `json:"audit"`
}

// DefaultOptions returns options matching the CLI defaults.
func DefaultOptions() *Options {
	return (&Options{}).WithDefaults()
}

// WithDefaults fills empty fields with their default values and returns the
// options. Safe to call on nil.
func (o *Options) WithDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.Path == "" {
		o.Path = "./.roomodes"
	}
	if o.OutputPath == "" {
		o.OutputPath = DefaultOutputPath(o.Path)
	}
	if o.Format == "" {
		o.Format = "auto"
	}
	if o.Audit.Enabled && o.Audit.BufferSize == 0 {
		outputFile := o.Audit.OutputFile
		o.Audit = DefaultAuditConfig()
		o.Audit.OutputFile = outputFile
	}
	return o
}

// DefaultOutputPath derives the corrected-copy path for a document: a file
// named ".roomodes-fixed" in the document's directory.
func DefaultOutputPath(path string) string {
	return filepath.Join(filepath.Dir(path), ".roomodes-fixed")
}

// OptionsValidationResult contains detailed option validation feedback.
type OptionsValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// String returns a human-readable representation of the validation result.
func (vr OptionsValidationResult) String() string {
	if vr.Valid {
		if len(vr.Warnings) == 0 {
			return "Options are valid"
		}
		return fmt.Sprintf("Options are valid with %d warning(s)", len(vr.Warnings))
	}
	return fmt.Sprintf("Options are invalid: %d error(s), %d warning(s)",
		len(vr.Errors), len(vr.Warnings))
}

// Validate checks the options and returns the first error found.
func (o *Options) Validate() error {
	result := o.ValidateDetailed()
	if !result.Valid && len(result.Errors) > 0 {
		firstError := result.Errors[0]
		switch firstError {
		case ErrEmptyPath.Error():
			return ErrEmptyPath
		case ErrOutputWithoutFix.Error():
			return ErrOutputWithoutFix
		case ErrOutputEqualsInput.Error():
			return ErrOutputEqualsInput
		case ErrUnknownFormat.Error():
			return ErrUnknownFormat
		case ErrInvalidAuditBuffer.Error():
			return ErrInvalidAuditBuffer
		default:
			return errors.New(ErrCodeInvalidOptions, firstError)
		}
	}
	return nil
}

// ValidateDetailed checks the options and returns every error and warning.
func (o *Options) ValidateDetailed() OptionsValidationResult {
	result := OptionsValidationResult{
		Valid:    true,
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}

	if o.Path == "" {
		result.Valid = false
		result.Errors = append(result.Errors, ErrEmptyPath.Error())
	}

	// WithDefaults always fills OutputPath; only an explicitly chosen
	// path is worth flagging when fix mode is off.
	if o.OutputPath != "" && !o.Fix && o.OutputPath != DefaultOutputPath(o.Path) {
		result.Warnings = append(result.Warnings, ErrOutputWithoutFix.Error())
	}

	if o.Fix && o.OutputPath != "" && o.OutputPath == o.Path {
		result.Valid = false
		result.Errors = append(result.Errors, ErrOutputEqualsInput.Error())
	}

	switch o.Format {
	case "", "auto", "json", "yaml":
	default:
		result.Valid = false
		result.Errors = append(result.Errors, ErrUnknownFormat.Error())
	}

	if o.Audit.Enabled && o.Audit.BufferSize < 0 {
		result.Valid = false
		result.Errors = append(result.Errors, ErrInvalidAuditBuffer.Error())
	}

	return result
}
