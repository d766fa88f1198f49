// loader.go: Document loading and format detection for Themis
//
// The loader turns raw text into an immutable Document and locates the
// top-level records container, accepting both the canonical key and its
// deprecated alias.
//
// Supported Formats:
// - JSON (.json, .roomodes default) - Full production support
// - YAML (.yml, .yaml) - via go.yaml.in/yaml/v3
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package themis

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agilira/go-errors"
	yaml "go.yaml.in/yaml/v3"
)

// ConfigFormat represents supported document serialization formats.
type ConfigFormat int

const (
	FormatJSON ConfigFormat = iota
	FormatYAML
	FormatUnknown
)

// String returns the string representation of the format for debugging and logging.
func (cf ConfigFormat) String() string {
	switch cf {
	case FormatJSON:
		return "JSON"
	case FormatYAML:
		return "YAML"
	default:
		return "Unknown"
	}
}

// Structural errors - the records container itself is missing or malformed.
// These abort all record-level checks immediately.
var (
	ErrRootNotObject     = errors.New(ErrCodeStructuralError, "document root must be an object")
	ErrMissingContainer  = errors.New(ErrCodeStructuralError, "records container is missing ('customModes' or 'modes')")
	ErrContainerNotArray = errors.New(ErrCodeStructuralError, "records container must be an array")
)

// Document is the immutable result of parsing a mode-definition document.
// It is never mutated after Parse; fixes are applied to a freshly built
// FixedDocument instead.
type Document struct {
	raw          map[string]interface{}
	records      []interface{}
	containerKey string
	aliasUsed    bool
	format       ConfigFormat
	path         string
}

// Records returns the ordered raw record sequence. The returned slice is the
// document's internal state and must be treated as read-only.
func (d *Document) Records() []interface{} { return d.records }

// Raw returns the full parsed top-level map, read-only.
func (d *Document) Raw() map[string]interface{} { return d.raw }

// ContainerKey returns the top-level key the records were found under.
func (d *Document) ContainerKey() string { return d.containerKey }

// UsesAlias reports whether the records were found only under the deprecated
// alias key rather than the canonical one.
func (d *Document) UsesAlias() bool { return d.aliasUsed }

// Format returns the serialization format the document was parsed from.
func (d *Document) Format() ConfigFormat { return d.format }

// Path returns the source file path, if the document was loaded from disk.
func (d *Document) Path() string { return d.path }

// DetectFormat detects the document format from the file extension.
// Extensionless files (like the default `.roomodes`) are treated as JSON.
func DetectFormat(filePath string) ConfigFormat {
	lower := strings.ToLower(filePath)
	switch {
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return FormatYAML
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON
	default:
		// .roomodes and other dotfiles carry JSON payloads
		return FormatJSON
	}
}

// ParseFormat parses an explicitly requested format string ("auto" defers to
// extension detection and returns FormatUnknown here).
func ParseFormat(formatStr string) ConfigFormat {
	switch strings.ToLower(formatStr) {
	case "json":
		return FormatJSON
	case "yaml", "yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// ParseDocument parses raw document text into an immutable Document and
// locates the records container. A malformed payload or container yields a
// structural error; a document that carries its records only under the
// deprecated alias key parses successfully and is flagged via UsesAlias.
func ParseDocument(data []byte, format ConfigFormat) (*Document, error) {
	raw, err := parsePayload(data, format)
	if err != nil {
		return nil, err
	}
	return newDocument(raw, format, "")
}

// LoadDocument reads and parses the document at path, auto-detecting the
// format from the file extension.
func LoadDocument(path string) (*Document, error) {
	return LoadDocumentWithFormat(path, "auto")
}

// LoadDocumentWithFormat reads and parses the document at path using the
// explicitly requested format, or extension detection when formatStr is
// "auto" or empty.
func LoadDocumentWithFormat(path, formatStr string) (*Document, error) {
	format := DetectFormat(path)
	if formatStr != "" && formatStr != "auto" {
		format = ParseFormat(formatStr)
		if format == FormatUnknown {
			return nil, errors.New(ErrCodeInvalidFormat, fmt.Sprintf("unsupported format: %s", formatStr))
		}
	}

	f, err := os.Open(path) // #nosec G304 - path is the user-requested document, intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(ErrCodeFileNotFound, "document '"+path+"' not found")
		}
		return nil, wrapIO(err, "cannot open document '"+path+"'")
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, wrapIO(err, "failed to read document '"+path+"'")
	}

	doc, err := ParseDocument(data, format)
	if err != nil {
		return nil, err
	}
	doc.path = path
	return doc, nil
}

// parsePayload decodes the raw bytes into a generic map.
func parsePayload(data []byte, format ConfigFormat) (map[string]interface{}, error) {
	switch format {
	case FormatJSON:
		var raw map[string]interface{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, ErrCodeParseError, "invalid JSON document")
		}
		if raw == nil {
			return nil, ErrRootNotObject
		}
		return raw, nil
	case FormatYAML:
		var raw map[string]interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, ErrCodeParseError, "invalid YAML document")
		}
		if raw == nil {
			return nil, ErrRootNotObject
		}
		return raw, nil
	default:
		return nil, errors.New(ErrCodeInvalidFormat, fmt.Sprintf("unsupported format: %s", format))
	}
}

// newDocument locates the records container and freezes the Document.
// The canonical key wins when both keys are present.
func newDocument(raw map[string]interface{}, format ConfigFormat, path string) (*Document, error) {
	rules := DefaultRuleset()

	key := rules.CanonicalKey
	container, ok := raw[rules.CanonicalKey]
	alias := false
	if !ok {
		container, ok = raw[rules.LegacyKey]
		if !ok {
			return nil, ErrMissingContainer
		}
		key = rules.LegacyKey
		alias = true
	}

	records, ok := container.([]interface{})
	if !ok {
		return nil, ErrContainerNotArray
	}

	return &Document{
		raw:          raw,
		records:      records,
		containerKey: key,
		aliasUsed:    alias,
		format:       format,
		path:         path,
	}, nil
}
