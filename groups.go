// groups.go: Permission group validation for Themis
//
// A record's capability list mixes bare tags ("read") with restricted
// tuples (["edit", {fileRegex, description}]). Entries are classified into
// an explicit tagged variant instead of being probed ad hoc, and every
// defect gets a deterministic substitution so the fixed list is always
// usable and never empty.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package themis

import (
	"fmt"
	"regexp"
)

// Capability is the tagged variant a group entry is classified into:
// either a BareCapability or a RestrictedCapability.
type Capability interface {
	// Tag returns the permission group tag this capability grants.
	Tag() string
}

// BareCapability is an unrestricted permission group tag.
type BareCapability string

// Tag implements Capability.
func (b BareCapability) Tag() string { return string(b) }

// RestrictedCapability is a permission group scoped to file paths matching
// Pattern, with a human-readable Note explaining the restriction.
type RestrictedCapability struct {
	Group   string
	Pattern string
	Note    string
}

// Tag implements Capability.
func (r RestrictedCapability) Tag() string { return r.Group }

// GroupResult is the outcome of validating one record's capability list.
// Fixed holds the corrected raw list, guaranteed non-empty, suitable for
// direct re-serialization. Capabilities is the classified view of Fixed.
type GroupResult struct {
	Errors       []Diagnostic
	Warnings     []Diagnostic
	Fixed        []interface{}
	Capabilities []Capability
}

// ValidateGroups classifies and validates each entry of a raw capability
// sequence. Every defect is recorded and substituted; after fixing, an empty
// list receives exactly one default read-only capability.
func ValidateGroups(raw []interface{}, index int, rules Ruleset) GroupResult {
	gr := GroupResult{}

	for _, entry := range raw {
		switch e := entry.(type) {
		case string:
			gr.checkBare(e, index, rules)
		case []interface{}:
			if len(e) == 2 {
				gr.checkRestricted(e, index, rules)
				continue
			}
			gr.dropEntry(index, fmt.Sprintf("invalid group entry shape: expected 2 elements, got %d", len(e)))
		default:
			gr.dropEntry(index, "invalid group entry shape")
		}
	}

	if len(gr.Fixed) == 0 {
		gr.Fixed = append(gr.Fixed, rules.DefaultTag)
		gr.Capabilities = append(gr.Capabilities, BareCapability(rules.DefaultTag))
	}
	return gr
}

// checkBare validates a bare tag entry. Unknown tags are dropped.
func (gr *GroupResult) checkBare(tag string, index int, rules Ruleset) {
	if !rules.hasTag(tag) {
		gr.dropEntry(index, fmt.Sprintf("unknown group %q", tag))
		return
	}
	gr.Fixed = append(gr.Fixed, tag)
	gr.Capabilities = append(gr.Capabilities, BareCapability(tag))
}

// checkRestricted validates a [tag, restriction] tuple. Each defect is its
// own diagnostic with its own substitution, so one pass corrects the tag,
// the pattern and the note independently.
func (gr *GroupResult) checkRestricted(e []interface{}, index int, rules Ruleset) {
	tag, isStr := e[0].(string)
	if !isStr || !rules.hasTag(tag) {
		gr.appendError(index, fmt.Sprintf("unknown group tag %v in restricted entry, falling back to %q", e[0], rules.DefaultTag))
		tag = rules.DefaultTag
	}

	restriction, isMap := e[1].(map[string]interface{})
	if !isMap {
		gr.dropEntry(index, "invalid group entry shape: restriction must be an object")
		return
	}

	pattern := gr.checkPattern(restriction, index, rules)
	note := gr.checkNote(restriction, index, rules)

	fixed := deepCopy(restriction)
	fixed[fieldFileRegex] = pattern
	fixed[fieldDescription] = note

	gr.Fixed = append(gr.Fixed, []interface{}{tag, fixed})
	gr.Capabilities = append(gr.Capabilities, RestrictedCapability{Group: tag, Pattern: pattern, Note: note})
}

// checkPattern validates the fileRegex field: it must be present, compile as
// a regular expression, and not contain a lone backslash escape that would
// not survive re-serialization.
func (gr *GroupResult) checkPattern(restriction map[string]interface{}, index int, rules Ruleset) string {
	v, present := restriction[fieldFileRegex]
	pattern, isStr := v.(string)
	if !present {
		gr.appendError(index, "restricted group is missing fileRegex")
		return rules.MatchAllPattern
	}
	if !isStr || pattern == "" {
		gr.appendError(index, "restricted group fileRegex must be a non-empty string")
		return rules.MatchAllPattern
	}

	if _, err := regexp.Compile(pattern); err != nil {
		gr.appendError(index, fmt.Sprintf("fileRegex %q does not compile: %v", pattern, err))
		return rules.MatchAllPattern
	}

	if hasLoneBackslash(pattern) {
		gr.appendError(index, fmt.Sprintf("fileRegex %q contains a single backslash escape", pattern))
		gr.Warnings = append(gr.Warnings, Diagnostic{
			Severity:    SeverityWarning,
			Message:     fmt.Sprintf("backslashes in fileRegex must be doubled: use %q", doubleLoneBackslashes(pattern)),
			RecordIndex: index,
			Fixable:     false,
		})
		return doubleLoneBackslashes(pattern)
	}

	return pattern
}

// checkNote validates the restriction description.
func (gr *GroupResult) checkNote(restriction map[string]interface{}, index int, rules Ruleset) string {
	v, present := restriction[fieldDescription]
	note, isStr := v.(string)
	if !present || !isStr || note == "" {
		gr.appendError(index, "restricted group is missing description")
		return rules.GenericNote
	}
	return note
}

// dropEntry records an error whose fix is dropping the entry entirely.
func (gr *GroupResult) dropEntry(index int, msg string) {
	gr.appendError(index, msg)
}

func (gr *GroupResult) appendError(index int, msg string) {
	gr.Errors = append(gr.Errors, Diagnostic{
		Severity:    SeverityError,
		Message:     msg,
		RecordIndex: index,
		Fixable:     true,
	})
}

// hasLoneBackslash reports whether the pattern contains a single backslash
// followed by exactly one non-backslash character. Doubled backslashes are
// skipped as a unit, so `\\.` passes while `\.` is flagged.
func hasLoneBackslash(pattern string) bool {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '\\' {
			continue
		}
		if i+1 < len(pattern) && pattern[i+1] == '\\' {
			i++ // skip the escaped pair
			continue
		}
		if i+1 < len(pattern) {
			return true
		}
	}
	return false
}

// doubleLoneBackslashes re-escapes the pattern by doubling every backslash
// that is not already part of a doubled pair.
func doubleLoneBackslashes(pattern string) string {
	var out []byte
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		if i+1 < len(pattern) && pattern[i+1] == '\\' {
			out = append(out, '\\', '\\')
			i++
			continue
		}
		out = append(out, '\\', '\\')
	}
	return string(out)
}
