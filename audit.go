// audit.go: Audit trail system for Themis
//
// Every validation run and every applied fix leaves an immutable audit
// record, giving operators a queryable history of which documents were
// checked, what was wrong, and what was rewritten.
//
// Features:
// - Immutable audit logs with tamper detection
// - Buffered writes with background flushing
// - Pluggable storage backends (SQLite, JSONL)
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package themis

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/agilira/go-timecache"
)

// AuditLevel represents the severity of audit events
type AuditLevel int

const (
	AuditInfo AuditLevel = iota
	AuditWarn
	AuditCritical
)

func (al AuditLevel) String() string {
	switch al {
	case AuditInfo:
		return "INFO"
	case AuditWarn:
		return "WARN"
	case AuditCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// AuditEvent represents a single auditable event
type AuditEvent struct {
	Timestamp   time.Time              `json:"timestamp"`
	Level       AuditLevel             `json:"level"`
	Event       string                 `json:"event"`
	Component   string                 `json:"component"`
	FilePath    string                 `json:"file_path,omitempty"`
	ProcessID   int                    `json:"process_id"`
	ProcessName string                 `json:"process_name"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Checksum    string                 `json:"checksum"` // For tamper detection
}

// AuditConfig configures the audit system
type AuditConfig struct {
	Enabled       bool          `json:"enabled"`
	OutputFile    string        `json:"output_file"`
	MinLevel      AuditLevel    `json:"min_level"`
	BufferSize    int           `json:"buffer_size"`
	FlushInterval time.Duration `json:"flush_interval"`
}

// DefaultAuditConfig returns the default audit configuration.
//
// The default uses the unified SQLite audit database so every Themis run on
// the host lands in one queryable store. For a human-readable trail, set
// OutputFile to a path with a .jsonl extension.
func DefaultAuditConfig() AuditConfig {
	// Empty OutputFile triggers the unified SQLite backend
	return AuditConfig{
		Enabled:       true,
		OutputFile:    "",
		MinLevel:      AuditInfo,
		BufferSize:    256,
		FlushInterval: 5 * time.Second,
	}
}

// AuditLogger provides buffered audit logging with pluggable backends.
//
// The logger buffers events and flushes them in the background, so audit
// overhead never shows up on the validation path. Backends are selected
// automatically: SQLite when available, JSONL as the fallback.
type AuditLogger struct {
	config      AuditConfig
	backend     auditBackend
	buffer      []AuditEvent
	bufferMu    sync.Mutex
	flushTicker *time.Ticker
	stopCh      chan struct{}
	processID   int
	processName string
}

// NewAuditLogger creates an audit logger with automatic backend selection.
// SQLite is preferred for its queryable unified trail; JSONL is the fallback
// when SQLite cannot be initialized or when the output file carries a .jsonl
// extension.
func NewAuditLogger(config AuditConfig) (*AuditLogger, error) {
	backend, err := createAuditBackend(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit backend: %w", err)
	}

	logger := &AuditLogger{
		config:      config,
		backend:     backend,
		buffer:      make([]AuditEvent, 0, config.BufferSize),
		stopCh:      make(chan struct{}),
		processID:   os.Getpid(),
		processName: "themis",
	}

	if config.FlushInterval > 0 {
		logger.flushTicker = time.NewTicker(config.FlushInterval)
		go logger.flushLoop()
	}

	return logger, nil
}

// Log records an audit event. Safe to call on a nil logger.
func (al *AuditLogger) Log(level AuditLevel, event, filePath string, context map[string]interface{}) {
	if al == nil || al.backend == nil || !al.config.Enabled || level < al.config.MinLevel {
		return
	}

	// Cached timestamp keeps logging off the hot path
	auditEvent := AuditEvent{
		Timestamp:   timecache.CachedTime(),
		Level:       level,
		Event:       event,
		Component:   "themis",
		FilePath:    filePath,
		ProcessID:   al.processID,
		ProcessName: al.processName,
		Context:     context,
	}
	auditEvent.Checksum = al.generateChecksum(auditEvent)

	al.bufferMu.Lock()
	al.buffer = append(al.buffer, auditEvent)
	if len(al.buffer) >= al.config.BufferSize {
		_ = al.flushBufferUnsafe() // Flush errors must not stall validation
	}
	al.bufferMu.Unlock()
}

// LogValidation records the outcome of a validation run.
func (al *AuditLogger) LogValidation(filePath string, errorCount, warningCount int) {
	level := AuditInfo
	if errorCount > 0 {
		level = AuditWarn
	}
	al.Log(level, "document_validated", filePath, map[string]interface{}{
		"errors":   errorCount,
		"warnings": warningCount,
	})
}

// LogFixApplied records that a corrected document was written.
func (al *AuditLogger) LogFixApplied(filePath, outputPath string, substitutions int) {
	al.Log(AuditCritical, "fix_applied", filePath, map[string]interface{}{
		"output_path":   outputPath,
		"substitutions": substitutions,
	})
}

// LogDocumentWatch records document lifecycle events (writes, watch starts).
func (al *AuditLogger) LogDocumentWatch(event, filePath string) {
	al.Log(AuditInfo, event, filePath, nil)
}

// Stats returns backend statistics for the audit store.
func (al *AuditLogger) Stats() (*AuditDatabaseStats, error) {
	if al == nil || al.backend == nil {
		return nil, fmt.Errorf("audit logger not initialized")
	}
	return al.backend.GetStats()
}

// Maintain runs backend maintenance (retention cleanup, optimization).
func (al *AuditLogger) Maintain() error {
	if al == nil || al.backend == nil {
		return fmt.Errorf("audit logger not initialized")
	}
	return al.backend.Maintenance()
}

// Flush immediately writes all buffered events
func (al *AuditLogger) Flush() error {
	al.bufferMu.Lock()
	defer al.bufferMu.Unlock()
	return al.flushBufferUnsafe()
}

// Close gracefully shuts down the audit logger
func (al *AuditLogger) Close() error {
	close(al.stopCh)
	if al.flushTicker != nil {
		al.flushTicker.Stop()
	}

	if err := al.Flush(); err != nil {
		return fmt.Errorf("failed to flush audit logger during close: %w", err)
	}

	if al.backend != nil {
		if err := al.backend.Close(); err != nil {
			return fmt.Errorf("failed to close audit backend: %w", err)
		}
	}

	return nil
}

// flushLoop runs the background flush process
func (al *AuditLogger) flushLoop() {
	for {
		select {
		case <-al.flushTicker.C:
			_ = al.Flush()
		case <-al.stopCh:
			return
		}
	}
}

// flushBufferUnsafe writes the buffer to the backend (caller holds bufferMu).
func (al *AuditLogger) flushBufferUnsafe() error {
	if len(al.buffer) == 0 {
		return nil
	}

	if err := al.backend.Write(al.buffer); err != nil {
		return fmt.Errorf("failed to write audit events to backend: %w", err)
	}

	al.buffer = al.buffer[:0]
	return nil
}

// generateChecksum creates a tamper-detection checksum using SHA-256
func (al *AuditLogger) generateChecksum(event AuditEvent) string {
	data := fmt.Sprintf("%s:%s:%s:%s",
		event.Timestamp.Format(time.RFC3339Nano),
		event.Event, event.Component, event.FilePath)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
