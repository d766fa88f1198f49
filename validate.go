// validate.go - document-level validation orchestration for Themis
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package themis

import "fmt"

// Result contains the full outcome of validating a Document, with detailed
// per-record diagnostics in discovery order.
type Result struct {
	// Doc is the validated (pre-fix) document.
	Doc *Document

	// Diagnostics lists every structural and record-level issue found.
	// Structural diagnostics carry RecordIndex -1 and come first.
	Diagnostics []Diagnostic
}

// Valid reports whether the document carries zero errors. Warnings (including
// the deprecated-alias structural diagnostic) never affect validity.
func (r *Result) Valid() bool {
	return r.ErrorCount() == 0
}

// ErrorCount returns the number of error-severity diagnostics.
func (r *Result) ErrorCount() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}

// WarningCount returns the number of warning-severity diagnostics.
func (r *Result) WarningCount() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

// FixableCount returns the number of diagnostics a fix run would address.
func (r *Result) FixableCount() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Fixable {
			n++
		}
	}
	return n
}

// HasFixable reports whether a fix run would change anything: at least one
// fixable error, or the benign alias-key rename.
func (r *Result) HasFixable() bool {
	return r.FixableCount() > 0
}

// RecordDiagnostics returns the diagnostics attached to record index.
func (r *Result) RecordDiagnostics(index int) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.RecordIndex == index {
			out = append(out, d)
		}
	}
	return out
}

// RecordValid reports whether record index carries zero errors.
func (r *Result) RecordValid(index int) bool {
	for _, d := range r.Diagnostics {
		if d.RecordIndex == index && d.Severity == SeverityError {
			return false
		}
	}
	return true
}

// String returns a human-readable summary of the validation result.
func (r *Result) String() string {
	if r.Valid() {
		if r.WarningCount() == 0 {
			return "Document is valid"
		}
		return fmt.Sprintf("Document is valid with %d warning(s)", r.WarningCount())
	}
	return fmt.Sprintf("Document is invalid: %d error(s), %d warning(s)",
		r.ErrorCount(), r.WarningCount())
}

// ValidateDocument runs every check against the parsed document and collects
// all diagnostics in a single pass: the structural alias diagnostic first,
// then each record's field and group checks in record order. Validation never
// aborts on a record-level defect.
func ValidateDocument(doc *Document, rules Ruleset) *Result {
	result := &Result{Doc: doc}

	if doc.UsesAlias() {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Severity:    SeverityWarning,
			Message:     fmt.Sprintf("deprecated container key %q; rename to %q", rules.LegacyKey, rules.CanonicalKey),
			RecordIndex: -1,
			Fixable:     true,
		})
	}

	for _, oc := range checkRecords(doc.Records(), rules) {
		result.Diagnostics = append(result.Diagnostics, oc.diags...)
	}

	return result
}

// checkRecords validates every record and finalizes the fix substitutions.
// Slug assignment happens in a second pass: records with zero errors keep
// their slugs verbatim, so those slugs are claimed first and every fixed
// record receives the first free "base" or "base-<k>" identifier, keeping
// post-fix slugs pairwise distinct and the whole procedure deterministic.
func checkRecords(records []interface{}, rules Ruleset) []recordOutcome {
	outcomes := make([]recordOutcome, 0, len(records))
	seen := make(map[string]bool)

	for i, entry := range records {
		outcomes = append(outcomes, checkRecord(entry, i, seen, rules))
	}

	used := make(map[string]bool)
	for i := range outcomes {
		if outcomes[i].errors == 0 && !outcomes[i].drop {
			used[outcomes[i].slugBase] = true
			outcomes[i].slugFinal = outcomes[i].slugBase
		}
	}
	for i := range outcomes {
		if outcomes[i].errors > 0 && !outcomes[i].drop {
			outcomes[i].slugFinal = claimSlug(outcomes[i].slugBase, used)
		}
	}

	return outcomes
}
