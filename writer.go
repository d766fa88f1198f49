// writer.go: Fixed-document writing system for Themis
//
// This file implements atomic document writing with change detection,
// hand-written-section preservation, and audit integration. Writes go
// through a temporary file plus rename so an interrupted run never leaves a
// corrupted output document.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package themis

import (
	"encoding/json"
	"fmt"
	"hash"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	yaml "go.yaml.in/yaml/v3"
)

// DocumentWriter persists corrected documents. When the target file already
// exists its content is loaded first, so MergePreserving can fold computed
// sections into it without discarding hand-written ones.
//
// Thread safety: safe for concurrent reads, serialized writes.
type DocumentWriter struct {
	filePath string
	format   ConfigFormat

	config       map[string]interface{}
	originalHash uint64

	auditLogger *AuditLogger // Optional - can be nil

	mu      sync.RWMutex
	writing bool
}

// NewDocumentWriter creates a writer for the given output path and format.
// When initialConfig is nil and the target file exists, its current content
// becomes the merge base.
func NewDocumentWriter(filePath string, format ConfigFormat, initialConfig map[string]interface{}) (*DocumentWriter, error) {
	return NewDocumentWriterWithAudit(filePath, format, initialConfig, nil)
}

// NewDocumentWriterWithAudit creates a document writer with optional audit
// logging of every completed write.
func NewDocumentWriterWithAudit(filePath string, format ConfigFormat, initialConfig map[string]interface{}, auditLogger *AuditLogger) (*DocumentWriter, error) {
	if filePath == "" {
		return nil, errors.New(ErrCodeWriterError, "filePath cannot be empty")
	}

	writer := &DocumentWriter{
		filePath:    filePath,
		format:      format,
		auditLogger: auditLogger,
	}

	switch {
	case initialConfig != nil:
		writer.config = deepCopy(initialConfig)
	default:
		if existing, err := loadExisting(filePath, format); err == nil && existing != nil {
			writer.config = existing
		} else {
			writer.config = make(map[string]interface{})
		}
	}
	writer.originalHash = hashDocument(writer.config)

	return writer, nil
}

// loadExisting reads the current target file content as a merge base.
// A missing or unparseable target simply yields no base.
func loadExisting(filePath string, format ConfigFormat) (map[string]interface{}, error) {
	data, err := os.ReadFile(filePath) // #nosec G304 - filePath is the caller's output target
	if err != nil {
		return nil, err
	}
	return parsePayload(data, format)
}

// MergePreserving folds the given top-level sections into the writer's
// current state, replacing computed keys while leaving every other
// hand-written section untouched.
func (w *DocumentWriter) MergePreserving(updates map[string]interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for k, v := range updates {
		w.config[k] = deepCopyValue(v)
	}
}

// Config returns a deep copy of the writer's current state.
func (w *DocumentWriter) Config() map[string]interface{} {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return deepCopy(w.config)
}

// HasChanges reports whether the state differs from what was last loaded or
// written, using a fast hash comparison.
func (w *DocumentWriter) HasChanges() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return hashDocument(w.config) != w.originalHash
}

// WriteDocument atomically writes the current state to disk. Uses a
// temporary file plus rename; either the write succeeds completely or the
// original file is left unchanged. A no-op when nothing changed.
func (w *DocumentWriter) WriteDocument() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writing {
		return errors.New(ErrCodeWriterBusy, "concurrent write operation in progress")
	}
	w.writing = true
	defer func() { w.writing = false }()

	currentHash := hashDocument(w.config)
	if currentHash == w.originalHash {
		return nil // No changes to write
	}

	serialized, err := serializeDocument(w.config, w.format)
	if err != nil {
		return errors.Wrap(err, ErrCodeSerializationError, "serialization failed")
	}

	if err := w.atomicWrite(serialized); err != nil {
		return errors.Wrap(err, ErrCodeIOError, "atomic write failed")
	}

	w.originalHash = currentHash

	if w.auditLogger != nil {
		w.auditLogger.LogDocumentWatch("document_written", w.filePath)
	}

	return nil
}

// WriteDocumentAs writes the current state to a different path, leaving the
// writer's own target unchanged.
func (w *DocumentWriter) WriteDocumentAs(filePath string) error {
	if filePath == "" {
		return errors.New(ErrCodeWriterError, "filePath cannot be empty")
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	serialized, err := serializeDocument(w.config, w.format)
	if err != nil {
		return errors.Wrap(err, ErrCodeSerializationError, "serialization failed")
	}

	tempPath := filePath + ".tmp." + fmt.Sprintf("%d", time.Now().UnixNano())
	if err := os.WriteFile(tempPath, serialized, 0644); err != nil {
		return errors.Wrap(err, ErrCodeIOError, fmt.Sprintf("failed to write temp file: %v", err))
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			fmt.Printf("Failed to cleanup temp file %s: %v\n", tempPath, removeErr)
		}
		return errors.Wrap(err, ErrCodeIOError, fmt.Sprintf("failed to rename temp file: %v", err))
	}

	if w.auditLogger != nil {
		w.auditLogger.LogDocumentWatch("document_exported", filePath)
	}

	return nil
}

// atomicWrite performs the temp-file-plus-rename dance in the target's own
// directory, which keeps the rename on a single filesystem.
func (w *DocumentWriter) atomicWrite(data []byte) error {
	dir := filepath.Dir(w.filePath)
	base := filepath.Base(w.filePath)

	tempPath := filepath.Join(dir, "."+base+".tmp."+fmt.Sprintf("%d", time.Now().UnixNano()))

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempPath, w.filePath); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			fmt.Printf("Failed to cleanup temp file %s: %v\n", tempPath, removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// serializeDocument converts the document map to the requested format.
func serializeDocument(config map[string]interface{}, format ConfigFormat) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeSerializationError, "JSON marshal failed")
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(config)
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeSerializationError, "YAML marshal failed")
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported format: %v", format)
	}
}

// deepCopy creates a deep copy of a document map.
func deepCopy(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}

	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		switch val := v.(type) {
		case map[string]interface{}:
			dst[k] = deepCopy(val)
		case []interface{}:
			dst[k] = deepCopySlice(val)
		default:
			dst[k] = val
		}
	}
	return dst
}

// deepCopySlice creates a deep copy of a slice.
func deepCopySlice(src []interface{}) []interface{} {
	if src == nil {
		return nil
	}

	dst := make([]interface{}, len(src))
	for i, v := range src {
		switch val := v.(type) {
		case map[string]interface{}:
			dst[i] = deepCopy(val)
		case []interface{}:
			dst[i] = deepCopySlice(val)
		default:
			dst[i] = val
		}
	}
	return dst
}

// hashDocument computes a fast FNV-1a hash of the document for change
// detection.
func hashDocument(config map[string]interface{}) uint64 {
	if config == nil {
		return 0
	}

	h := fnv.New64a()
	hashValue(h, config)
	return h.Sum64()
}

// hashValue recursively hashes a document value. Map keys are visited in
// sorted order so equal documents always hash equally.
func hashValue(h hash.Hash64, v interface{}) {
	switch val := v.(type) {
	case nil:
		h.Write([]byte("nil"))
	case bool:
		if val {
			h.Write([]byte("true"))
		} else {
			h.Write([]byte("false"))
		}
	case int:
		h.Write([]byte(fmt.Sprintf("%d", val)))
	case int64:
		h.Write([]byte(fmt.Sprintf("%d", val)))
	case float64:
		h.Write([]byte(fmt.Sprintf("%f", val)))
	case string:
		h.Write([]byte(val))
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			h.Write([]byte(k))
			hashValue(h, val[k])
		}
	case []interface{}:
		for _, item := range val {
			hashValue(h, item)
		}
	default:
		h.Write([]byte(fmt.Sprintf("%v", val)))
	}
}
