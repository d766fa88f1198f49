// fixer.go: Deterministic document remediation for Themis
//
// The fixer rebuilds a corrected document from scratch instead of editing the
// parsed one in place: every kept value is deep-copied and every defective
// value replaced with its substitution, so the FixedDocument never aliases
// the Document's internal state. Re-validating a fixed document yields zero
// errors.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package themis

// FixedDocument is a corrected document built fresh from a Document plus the
// deterministic substitutions its diagnostics call for. It is created once
// and never mutated afterwards.
type FixedDocument struct {
	config  map[string]interface{}
	changed bool
}

// Config returns the corrected top-level map, ready for serialization.
func (f *FixedDocument) Config() map[string]interface{} { return f.config }

// Changed reports whether any substitution (including the alias-key rename)
// was actually applied.
func (f *FixedDocument) Changed() bool { return f.changed }

// Fixer derives corrected documents. Smooth additionally applies cosmetic
// warning-level fixes (the lead-in phrase prepend); it is off by default and
// never required for validity.
type Fixer struct {
	Rules  Ruleset
	Smooth bool
}

// NewFixer creates a fixer bound to the given rule tables.
func NewFixer(rules Ruleset) *Fixer {
	return &Fixer{Rules: rules}
}

// Fix derives a corrected document. It is a pure function of the document and
// its diagnostics: substitutions are applied per record in the order the
// diagnostics were discovered, records with zero errors are copied verbatim
// (even when they carry warnings, unless Smooth is set), and records whose
// fix is removal are dropped. The alias container key is renamed to the
// canonical one without reordering records.
func (f *Fixer) Fix(doc *Document, diags []Diagnostic) *FixedDocument {
	fixed := &FixedDocument{}

	errored := make(map[int]bool)
	for _, d := range diags {
		if d.Severity == SeverityError && d.RecordIndex >= 0 {
			errored[d.RecordIndex] = true
		}
	}

	outcomes := checkRecords(doc.Records(), f.Rules)
	records := make([]interface{}, 0, len(outcomes))
	for i, oc := range outcomes {
		switch {
		case oc.drop:
			fixed.changed = true
		case errored[i]:
			records = append(records, buildFixedRecord(&outcomes[i], f.Rules, f.Smooth))
			fixed.changed = true
		case f.Smooth && oc.leadInWarn:
			records = append(records, buildFixedRecord(&outcomes[i], f.Rules, true))
			fixed.changed = true
		default:
			records = append(records, deepCopyValue(doc.Records()[i]))
		}
	}

	// Rebuild the top level, renaming the deprecated alias key and keeping
	// every hand-written sibling section.
	config := make(map[string]interface{}, len(doc.Raw()))
	for k, v := range doc.Raw() {
		if k == doc.ContainerKey() {
			continue
		}
		config[k] = deepCopyValue(v)
	}
	config[f.Rules.CanonicalKey] = records
	if doc.UsesAlias() {
		fixed.changed = true
	}

	fixed.config = config
	return fixed
}

// deepCopyValue deep-copies an arbitrary parsed value.
func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return deepCopy(val)
	case []interface{}:
		return deepCopySlice(val)
	default:
		return val
	}
}
