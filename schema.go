// schema.go - per-record schema validation for Themis
//
// This module runs every field check for a record in a fixed order and keeps
// going after the first failure, so a single pass surfaces every defect the
// record carries. Each failed check contributes exactly one diagnostic and a
// deterministic fix substitution.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package themis

import (
	"fmt"
	"strconv"
	"strings"
)

// Record field keys as serialized in mode-definition documents.
const (
	fieldSlug        = "slug"
	fieldName        = "name"
	fieldRole        = "roleDefinition"
	fieldGroups      = "groups"
	fieldFileRegex   = "fileRegex"
	fieldDescription = "description"
)

// roleKind tracks which substitution the roleDefinition field needs.
type roleKind int

const (
	roleOK roleKind = iota
	roleStringified
	rolePlaceholder
)

// recordOutcome is the combined validation/fix state of a single record.
// The slug assignment is finalized in a second pass once the set of slugs
// kept verbatim by clean records is known.
type recordOutcome struct {
	diags  []Diagnostic
	errors int
	drop   bool

	raw        map[string]interface{}
	slugRaw    string
	slugBase   string
	slugFinal  string
	nameRaw    string
	nameOK     bool
	role       roleKind
	roleValue  string
	leadInWarn bool
	groups     []interface{}
}

// RecordResult is the outcome of validating one record in isolation.
type RecordResult struct {
	Diagnostics []Diagnostic
	Fixed       map[string]interface{}
}

// Valid reports whether the record carries zero errors. Warnings never
// affect validity.
func (rr RecordResult) Valid() bool {
	for _, d := range rr.Diagnostics {
		if d.Severity == SeverityError {
			return false
		}
	}
	return true
}

// ValidateRecord runs all field checks for a single record. seen maps the
// slugs of earlier records and is updated with this record's slug; passing a
// fresh map validates the record in isolation. The returned RecordResult
// carries the diagnostics in discovery order and the fixed record (nil when
// the entry is not an object and the fix is to drop it).
func ValidateRecord(entry interface{}, index int, seen map[string]bool, rules Ruleset) RecordResult {
	used := make(map[string]bool, len(seen))
	for s := range seen {
		used[s] = true
	}

	oc := checkRecord(entry, index, seen, rules)
	if oc.drop {
		return RecordResult{Diagnostics: oc.diags}
	}
	oc.slugFinal = claimSlug(oc.slugBase, used)

	return RecordResult{
		Diagnostics: oc.diags,
		Fixed:       buildFixedRecord(&oc, rules, false),
	}
}

// checkRecord runs the fixed check sequence against one raw record entry.
// It appends one diagnostic per failed check and never aborts early. seen is
// consulted for the duplicate-slug check and updated with this record's raw
// slug.
func checkRecord(entry interface{}, index int, seen map[string]bool, rules Ruleset) recordOutcome {
	oc := recordOutcome{}

	m, ok := entry.(map[string]interface{})
	if !ok {
		oc.drop = true
		oc.errors = 1
		oc.diags = append(oc.diags, Diagnostic{
			Severity:    SeverityError,
			Message:     "record must be an object",
			RecordIndex: index,
			Fixable:     true,
		})
		return oc
	}
	oc.raw = m

	oc.checkSlug(m, index, seen, rules)
	oc.checkName(m, index)
	oc.checkRole(m, index, rules)
	oc.checkGroups(m, index, rules)

	for _, d := range oc.diags {
		if d.Severity == SeverityError {
			oc.errors++
		}
	}
	return oc
}

// checkSlug validates presence, charset and uniqueness of the identifier.
func (oc *recordOutcome) checkSlug(m map[string]interface{}, index int, seen map[string]bool, rules Ruleset) {
	v, present := m[fieldSlug]
	s, isStr := v.(string)

	switch {
	case !present || !isStr || s == "":
		oc.diags = append(oc.diags, Diagnostic{
			Severity:    SeverityError,
			Message:     "slug is missing or empty",
			RecordIndex: index,
			Fixable:     true,
		})
		oc.slugBase = syntheticSlug(index)
	case !slugCharsetOK(s):
		oc.diags = append(oc.diags, Diagnostic{
			Severity:    SeverityError,
			Message:     fmt.Sprintf("slug %q contains characters outside [a-z0-9-]", s),
			RecordIndex: index,
			Fixable:     true,
		})
		oc.slugBase = sanitizeSlug(s, index)
	default:
		oc.slugBase = s
	}

	if isStr && s != "" {
		oc.slugRaw = s
		if seen[s] {
			oc.diags = append(oc.diags, Diagnostic{
				Severity:    SeverityError,
				Message:     fmt.Sprintf("slug %q duplicates an earlier record", s),
				RecordIndex: index,
				Fixable:     true,
			})
		}
		seen[s] = true
	}
}

// checkName validates the display name.
func (oc *recordOutcome) checkName(m map[string]interface{}, index int) {
	v, present := m[fieldName]
	s, isStr := v.(string)
	if !present || !isStr || s == "" {
		oc.diags = append(oc.diags, Diagnostic{
			Severity:    SeverityError,
			Message:     "name is missing or empty",
			RecordIndex: index,
			Fixable:     true,
		})
		return
	}
	oc.nameRaw = s
	oc.nameOK = true
}

// checkRole validates the role definition text and its lead-in phrase.
func (oc *recordOutcome) checkRole(m map[string]interface{}, index int, rules Ruleset) {
	v, present := m[fieldRole]
	if !present {
		oc.role = rolePlaceholder
		oc.diags = append(oc.diags, Diagnostic{
			Severity:    SeverityError,
			Message:     "roleDefinition is missing",
			RecordIndex: index,
			Fixable:     true,
		})
		return
	}

	s, isStr := v.(string)
	if !isStr {
		oc.diags = append(oc.diags, Diagnostic{
			Severity:    SeverityError,
			Message:     "roleDefinition must be a string",
			RecordIndex: index,
			Fixable:     true,
		})
		switch v.(type) {
		case bool, int, int64, float32, float64:
			oc.role = roleStringified
			oc.roleValue = fmt.Sprintf("%v", v)
		default:
			oc.role = rolePlaceholder
		}
		return
	}

	if s == "" {
		oc.role = rolePlaceholder
		oc.diags = append(oc.diags, Diagnostic{
			Severity:    SeverityError,
			Message:     "roleDefinition is missing",
			RecordIndex: index,
			Fixable:     true,
		})
		return
	}

	oc.role = roleOK
	oc.roleValue = s
	if !strings.HasPrefix(s, rules.LeadIn) {
		oc.leadInWarn = true
		oc.diags = append(oc.diags, Diagnostic{
			Severity:    SeverityWarning,
			Message:     fmt.Sprintf("roleDefinition does not open with %q", rules.LeadIn),
			RecordIndex: index,
			Fixable:     false,
		})
	}
}

// checkGroups validates the capability list shape and delegates entry-level
// checks to the group validator.
func (oc *recordOutcome) checkGroups(m map[string]interface{}, index int, rules Ruleset) {
	v, present := m[fieldGroups]
	arr, isArr := v.([]interface{})
	if !present || !isArr {
		oc.diags = append(oc.diags, Diagnostic{
			Severity:    SeverityError,
			Message:     "groups is missing or not an array",
			RecordIndex: index,
			Fixable:     true,
		})
		oc.groups = []interface{}{rules.DefaultTag}
		return
	}

	gr := ValidateGroups(arr, index, rules)
	oc.diags = append(oc.diags, gr.Errors...)
	oc.diags = append(oc.diags, gr.Warnings...)
	oc.groups = gr.Fixed
}

// buildFixedRecord assembles the corrected record from the outcome. The raw
// record is deep-copied first so unknown fields survive and no value is
// shared with the original document.
func buildFixedRecord(oc *recordOutcome, rules Ruleset, smooth bool) map[string]interface{} {
	fixed := deepCopy(oc.raw)

	fixed[fieldSlug] = oc.slugFinal

	name := oc.nameRaw
	if !oc.nameOK {
		name = titleFromSlug(oc.slugFinal)
	}
	fixed[fieldName] = name

	var role string
	switch oc.role {
	case roleOK, roleStringified:
		role = oc.roleValue
	case rolePlaceholder:
		role = fmt.Sprintf("%s, operating in the %s mode.", rules.LeadIn, name)
	}
	if smooth && oc.leadInWarn {
		role = rules.LeadIn + ". " + role
	}
	fixed[fieldRole] = role

	fixed[fieldGroups] = oc.groups
	return fixed
}

// slugCharsetOK reports whether s contains only lowercase letters, digits
// and hyphens.
func slugCharsetOK(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
			continue
		}
		return false
	}
	return true
}

// sanitizeSlug derives a charset-conforming slug: lowercase, disallowed
// characters replaced with '-', repeated hyphens collapsed, edges trimmed.
// Falls back to the synthetic slug when nothing survives.
func sanitizeSlug(s string, index int) string {
	lower := strings.ToLower(s)
	var b strings.Builder
	lastHyphen := false
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return syntheticSlug(index)
	}
	return out
}

// syntheticSlug builds the fallback identifier for record number index.
func syntheticSlug(index int) string {
	return "record-" + strconv.Itoa(index+1)
}

// claimSlug returns base or, when base is already claimed, the first
// "base-<k>" (k >= 2) that is free, and marks the result as claimed.
func claimSlug(base string, used map[string]bool) string {
	if !used[base] {
		used[base] = true
		return base
	}
	for k := 2; ; k++ {
		cand := base + "-" + strconv.Itoa(k)
		if !used[cand] {
			used[cand] = true
			return cand
		}
	}
}

// titleFromSlug derives a human display name from a slug: hyphen-separated
// words, each with its first letter upper-cased.
func titleFromSlug(slug string) string {
	parts := strings.Split(slug, "-")
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		words = append(words, strings.ToUpper(p[:1])+p[1:])
	}
	if len(words) == 0 {
		return "Mode"
	}
	return strings.Join(words, " ")
}
