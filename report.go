// report.go: Human-readable validation transcript rendering for Themis
//
// The reporter turns a validation Result into the per-record transcript and
// the aggregate summary line. Output goes to an injected io.Writer so the CLI,
// the embedded API, and the tests all share one rendering path.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package themis

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	passColor    = color.New(color.FgGreen, color.Bold)
	failColor    = color.New(color.FgRed, color.Bold)
	errorColor   = color.New(color.FgRed)
	warningColor = color.New(color.FgYellow)
)

// Reporter renders validation transcripts. The zero value is not usable;
// construct it with NewReporter.
type Reporter struct {
	out io.Writer
}

// NewReporter creates a reporter writing to out.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// Render writes the full transcript for a validation result: document-level
// diagnostics first, then one PASS/FAIL section per record with its
// diagnostics, then the aggregate summary line.
func (r *Reporter) Render(result *Result) {
	for _, d := range result.Diagnostics {
		if d.RecordIndex < 0 {
			r.renderDiagnostic(d)
		}
	}

	records := result.Doc.Records()
	for i := range records {
		label := recordLabel(records[i], i)

		if result.RecordValid(i) {
			fmt.Fprintf(r.out, "%s %s\n", passColor.Sprint("PASS"), label)
			continue
		}
		fmt.Fprintf(r.out, "%s %s\n", failColor.Sprint("FAIL"), label)

		for _, d := range result.RecordDiagnostics(i) {
			r.renderDiagnostic(d)
		}
	}

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, result.String())
}

// renderDiagnostic writes a single indented diagnostic line.
func (r *Reporter) renderDiagnostic(d Diagnostic) {
	tag := errorColor.Sprint("error")
	if d.Severity == SeverityWarning {
		tag = warningColor.Sprint("warning")
	}

	suffix := ""
	if d.Fixable {
		suffix = " (fixable)"
	}

	fmt.Fprintf(r.out, "  %s: %s%s\n", tag, d.Message, suffix)
}

// RenderStructuralFailure writes the transcript for a document that could not
// be loaded or whose container is malformed.
func (r *Reporter) RenderStructuralFailure(err error) {
	fmt.Fprintf(r.out, "%s %s\n", failColor.Sprint("FAIL"), "document")
	fmt.Fprintf(r.out, "  %s: %v\n", errorColor.Sprint("error"), err)
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Document is invalid: structural failure")
}

// RenderFixWritten announces the corrected document's output path.
func (r *Reporter) RenderFixWritten(path string) {
	fmt.Fprintf(r.out, "Fixed document written to %s\n", path)
}

// recordLabel derives the transcript label for a record: its slug when one is
// present and usable, otherwise a positional fallback.
func recordLabel(entry interface{}, index int) string {
	if record, ok := entry.(map[string]interface{}); ok {
		if slug, ok := record[fieldSlug].(string); ok && slug != "" {
			return fmt.Sprintf("record %d (%s)", index, slug)
		}
	}
	return fmt.Sprintf("record %d", index)
}
