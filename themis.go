// themis: Validation and auto-remediation engine for mode-definition documents
//
// Philosophy:
// - Minimal dependencies (AGILira ecosystem: go-errors, go-timecache)
// - Single synchronous validation pass that surfaces every defect at once
// - Deterministic, copy-and-rebuild fixing (never mutate the parsed document)
// - Constant rule tables passed explicitly to keep validators pure and testable
//
// Example Usage:
//   doc, err := themis.LoadDocument(".roomodes")
//   if err != nil {
//       log.Fatal(err)
//   }
//
//   result := themis.ValidateDocument(doc, themis.DefaultRuleset())
//   if !result.Valid() {
//       fixed := themis.NewFixer(themis.DefaultRuleset()).Fix(doc, result.Diagnostics)
//       // write fixed.Config() back to disk
//   }
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package themis

import (
	"fmt"
	"io"

	"github.com/agilira/go-errors"
)

// Error codes for Themis operations
const (
	ErrCodeParseError         = "THEMIS_PARSE_ERROR"
	ErrCodeStructuralError    = "THEMIS_STRUCTURAL_ERROR"
	ErrCodeInvalidDocument    = "THEMIS_INVALID_DOCUMENT"
	ErrCodeInvalidOptions     = "THEMIS_INVALID_OPTIONS"
	ErrCodeInvalidFormat      = "THEMIS_INVALID_FORMAT"
	ErrCodeFileNotFound       = "THEMIS_FILE_NOT_FOUND"
	ErrCodeIOError            = "THEMIS_IO_ERROR"
	ErrCodeSerializationError = "THEMIS_SERIALIZATION_ERROR"
	ErrCodeWriterError        = "THEMIS_WRITER_ERROR"
	ErrCodeWriterBusy         = "THEMIS_WRITER_BUSY"
	ErrCodeInvalidAuditConfig = "THEMIS_INVALID_AUDIT_CONFIG"
)

// Severity classifies a diagnostic. Errors make a record (and the document)
// invalid; warnings never affect validity.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic describes a single defect found during validation.
// RecordIndex is the zero-based position of the offending record, or -1 for
// structural issues with the document container itself.
type Diagnostic struct {
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
	RecordIndex int      `json:"record_index"`
	Fixable     bool     `json:"fixable"`
}

func (d Diagnostic) String() string {
	if d.RecordIndex < 0 {
		return fmt.Sprintf("[%s] document: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("[%s] record %d: %s", d.Severity, d.RecordIndex, d.Message)
}

// Ruleset holds the constant tables that drive validation and fixing.
// A Ruleset is built once (usually via DefaultRuleset) and passed explicitly
// into every validator, keeping the validation logic free of ambient state.
type Ruleset struct {
	// CanonicalKey is the top-level key holding the record list.
	CanonicalKey string

	// LegacyKey is the deprecated alias for CanonicalKey that older
	// documents may still use.
	LegacyKey string

	// GroupTags is the enumerated set of permission group tags.
	GroupTags []string

	// DefaultTag is the safest read-only tag, used as the fallback for
	// unknown tuple tags and as the single entry of an otherwise empty
	// fixed group list.
	DefaultTag string

	// MatchAllPattern replaces file patterns that fail to compile or are
	// missing entirely.
	MatchAllPattern string

	// GenericNote replaces missing restriction descriptions.
	GenericNote string

	// LeadIn is the phrase every role definition is expected to open with.
	LeadIn string
}

// DefaultRuleset returns the rule tables for `.roomodes` mode-definition
// documents.
func DefaultRuleset() Ruleset {
	return Ruleset{
		CanonicalKey:    "customModes",
		LegacyKey:       "modes",
		GroupTags:       []string{"read", "edit", "browser", "command", "mcp"},
		DefaultTag:      "read",
		MatchAllPattern: ".*",
		GenericNote:     "Restricted file access",
		LeadIn:          "You are Roo",
	}
}

// hasTag reports whether tag belongs to the enumerated group tag set.
func (r Ruleset) hasTag(tag string) bool {
	for _, t := range r.GroupTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Execute runs the full validation pipeline for the given options: load the
// document, validate it, render the transcript to out and, when fix mode is
// active and at least one fixable diagnostic exists (or smoothing is
// requested and warnings exist), write the corrected document. The returned
// Result reflects the pre-fix document; callers decide the process signal
// from Result.Valid().
//
// The audit logger is optional and may be nil.
func Execute(opts *Options, logger *AuditLogger, out io.Writer) (*Result, error) {
	opts = opts.WithDefaults()

	reporter := NewReporter(out)
	rules := DefaultRuleset()

	doc, err := LoadDocumentWithFormat(opts.Path, opts.Format)
	if err != nil {
		// Structural failures are part of the transcript contract:
		// report them before the caller exits non-zero.
		reporter.RenderStructuralFailure(err)
		return nil, err
	}

	result := ValidateDocument(doc, rules)
	reporter.Render(result)

	if logger != nil {
		logger.LogValidation(opts.Path, result.ErrorCount(), result.WarningCount())
	}

	// Smoothing targets warning-only records, which carry no fixable
	// diagnostics of their own.
	smoothable := opts.SmoothWarnings && result.WarningCount() > 0
	if opts.Fix && (result.HasFixable() || smoothable) {
		fixer := NewFixer(rules)
		fixer.Smooth = opts.SmoothWarnings
		fixed := fixer.Fix(doc, result.Diagnostics)

		if err := writeFixedDocument(opts.OutputPath, doc.Format(), fixed, logger); err != nil {
			return result, err
		}
		reporter.RenderFixWritten(opts.OutputPath)

		if logger != nil {
			logger.LogFixApplied(opts.Path, opts.OutputPath, result.FixableCount())
		}
	}

	return result, nil
}

// writeFixedDocument persists a fixed document, merging into an existing
// output file so hand-written sections survive repeated fix runs.
func writeFixedDocument(path string, format ConfigFormat, fixed *FixedDocument, logger *AuditLogger) error {
	writer, err := NewDocumentWriterWithAudit(path, format, nil, logger)
	if err != nil {
		return err
	}
	writer.MergePreserving(fixed.Config())
	return writer.WriteDocument()
}

// GetValidationErrorCode extracts the error code from a Themis error.
func GetValidationErrorCode(err error) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()

	// go-errors format: [CODE]: Message
	if len(errStr) > 3 && errStr[0] == '[' {
		for idx := 1; idx < len(errStr); idx++ {
			if errStr[idx] == ']' {
				return errStr[1:idx]
			}
		}
	}

	// Fallback for old format: CODE: Message
	for idx := 0; idx < len(errStr); idx++ {
		if errStr[idx] == ':' {
			return errStr[:idx]
		}
	}

	return errStr
}

// IsValidationError checks if an error originated from Themis validation.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}

	errorStr := err.Error()

	// go-errors format: [THEMIS_*]: Message
	if len(errorStr) > 9 && errorStr[0] == '[' && errorStr[1:8] == "THEMIS_" {
		return true
	}

	// Fallback for old format: THEMIS_*: Message
	return len(errorStr) > 7 && errorStr[:7] == "THEMIS_"
}

// wrapIO decorates file errors with the appropriate Themis code.
func wrapIO(err error, msg string) error {
	return errors.Wrap(err, ErrCodeIOError, msg)
}
