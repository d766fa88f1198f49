// Package themis provides validation and deterministic auto-remediation for
// mode-definition documents: JSON or YAML files whose top-level key holds a
// list of mode records (slug, name, roleDefinition, groups).
//
// # Philosophy: Report Everything, Fix Deterministically
//
// Themis never stops at the first defect. Validation is a single synchronous
// pass that surfaces every error and warning in one run, so a document is
// fixed in one iteration instead of one defect at a time. Fixing is pure and
// deterministic: the same document and the same diagnostics always produce
// the same corrected output, and running the fixer on its own output changes
// nothing.
//
// # Architecture Overview
//
// Themis consists of five integrated subsystems:
//  1. **Loader**: Parses JSON/YAML and locates the record container,
//     accepting the deprecated "modes" alias for "customModes"
//  2. **Validators**: Per-record schema checks plus group/permission checks
//     with regex compilation and escaping analysis
//  3. **Fixer**: Copy-and-rebuild remediation with post-fix slug uniqueness
//  4. **Document Writer**: Atomic, merge-preserving writes with change detection
//  5. **Audit System**: Buffered trail of every run with SQLite backend
//
// # Validating a Document
//
// Load, validate, and inspect the diagnostics:
//
//	doc, err := themis.LoadDocument(".roomodes")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result := themis.ValidateDocument(doc, themis.DefaultRuleset())
//	for _, d := range result.Diagnostics {
//		fmt.Println(d)
//	}
//
// Validity is decided by errors only; warnings (deprecated alias usage,
// missing lead-in phrase) never make a document invalid.
//
// # Fixing a Document
//
// The fixer rebuilds a corrected copy, leaving the parsed document untouched:
//
//	fixer := themis.NewFixer(themis.DefaultRuleset())
//	fixed := fixer.Fix(doc, result.Diagnostics)
//
//	writer, _ := themis.NewDocumentWriter(".roomodes-fixed", doc.Format(), nil)
//	writer.MergePreserving(fixed.Config())
//	_ = writer.WriteDocument()
//
// Substitutions follow fixed rules: sanitized or synthesized slugs (made
// pairwise unique), names derived from slugs, placeholder role definitions,
// and group lists reduced to their valid entries with safe fallbacks. Writes
// are atomic (temp file plus rename) and merge into an existing output file
// so hand-written sections survive repeated fix runs.
//
// # The Full Pipeline
//
// Execute runs load, validate, render, and optional fix in one call:
//
//	opts := &themis.Options{Path: ".roomodes", Fix: true}
//	result, err := themis.Execute(opts.WithDefaults(), nil, os.Stdout)
//
// The Runner binds the same pipeline to FlashFlags and THEMIS_* environment
// variables; the themis binary in cmd/themis adds git-style subcommands
// (validate, watch, audit, info, completion) on Orpheus.
//
// # Audit Trail
//
// Every validation and fix can be recorded with tamper-detection checksums:
//
//	auditConfig := themis.DefaultAuditConfig()
//	logger, err := themis.NewAuditLogger(auditConfig)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer logger.Close()
//
//	result, err = themis.Execute(opts, logger, os.Stdout)
//
// The default backend is a unified SQLite database (WAL mode, buffered
// batch inserts); a .jsonl output file selects the human-readable JSONL
// backend instead.
//
// # Thread Safety
//
// Validators and the fixer are pure functions over their inputs and safe for
// concurrent use. The DocumentWriter serializes writes internally. The
// AuditLogger buffers concurrently and flushes in the background.
//
// Repository: https://github.com/agilira/themis
package themis
