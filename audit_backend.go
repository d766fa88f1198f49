// audit_backend.go: Storage backends for the Themis audit system
//
// Defines the pluggable backend contract and its two implementations:
// a SQLite unified store (preferred, queryable, WAL mode) and a JSONL
// file store (human-readable fallback).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package themis

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

// auditBackend abstracts audit storage. The contract is deliberately small:
// Write a batch, Flush pending data, Close, plus Maintenance and GetStats for
// operational tooling. Backend selection degrades gracefully (SQLite first,
// JSONL fallback) so audit setup never prevents a validation run.
type auditBackend interface {
	// Write persists a batch of audit events. Must be safe for
	// concurrent callers.
	Write(events []AuditEvent) error

	// Flush commits all pending writes to storage.
	Flush() error

	// Close releases resources. The backend must not be used afterwards.
	Close() error

	// Maintenance performs backend-specific upkeep: retention cleanup
	// and optimization for SQLite, a no-op for JSONL.
	Maintenance() error

	// GetStats returns statistics about the audit store.
	GetStats() (*AuditDatabaseStats, error)
}

// createAuditBackend selects the audit backend for the given configuration.
// A .jsonl OutputFile forces the JSONL backend; everything else tries SQLite
// first and falls back to JSONL.
func createAuditBackend(config AuditConfig) (auditBackend, error) {
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".jsonl" {
		return newJSONLBackend(config)
	}

	backend, err := newSQLiteBackend(config)
	if err == nil {
		return backend, nil
	}

	jsonlBackend, jsonlErr := newJSONLBackend(config)
	if jsonlErr != nil {
		return nil, fmt.Errorf("all audit backends failed - SQLite: %w, JSONL: %v", err, jsonlErr)
	}

	return jsonlBackend, nil
}

// unifiedAuditPath is the standard location for the system-wide SQLite
// audit database shared by every Themis run on the host.
func unifiedAuditPath() string {
	return filepath.Join(os.TempDir(), "themis", "validation-audit.db")
}

// sqliteAuditBackend stores audit events in a single SQLite database,
// regardless of which document was validated. The source_file column tracks
// the configured OutputFile for correlation.
type sqliteAuditBackend struct {
	db         *sql.DB
	dbPath     string
	sourceFile string
	insertStmt *sql.Stmt
	mu         sync.RWMutex
	closed     bool
}

// newSQLiteBackend opens (or creates) the SQLite audit database, initializes
// the schema, and prepares the batch insert statement.
//
// WAL mode keeps writers from blocking readers, which matters here: Themis
// writes audit rows frequently and queries them rarely. The busy timeout
// covers concurrent CLI invocations sharing the unified database.
func newSQLiteBackend(config AuditConfig) (*sqliteAuditBackend, error) {
	dbPath := unifiedAuditPath()
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".db" {
		dbPath = config.OutputFile
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create audit database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database (close error: %v): %w", closeErr, err)
		}
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	backend := &sqliteAuditBackend{
		db:         db,
		dbPath:     dbPath,
		sourceFile: config.OutputFile,
	}

	if err := backend.initializeSchema(); err != nil {
		if closeErr := backend.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema (close error: %v): %w", closeErr, err)
		}
		return nil, fmt.Errorf("failed to initialize audit database schema: %w", err)
	}

	if err := backend.prepareStatements(); err != nil {
		if closeErr := backend.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to prepare statements (close error: %v): %w", closeErr, err)
		}
		return nil, fmt.Errorf("failed to prepare audit database statements: %w", err)
	}

	// Maintenance failures on startup are non-fatal
	_ = backend.performMaintenance()

	return backend, nil
}

// initializeSchema creates the audit table and its indexes.
func (s *sqliteAuditBackend) initializeSchema() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS audit_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		level TEXT NOT NULL,
		event TEXT NOT NULL,
		component TEXT NOT NULL,
		source_file TEXT NOT NULL,
		file_path TEXT,
		process_id INTEGER NOT NULL,
		process_name TEXT NOT NULL,
		context TEXT,
		checksum TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := s.db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create audit_events table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_audit_level ON audit_events(level)",
		"CREATE INDEX IF NOT EXISTS idx_audit_event ON audit_events(event)",
		"CREATE INDEX IF NOT EXISTS idx_audit_file_path ON audit_events(file_path)",
		"CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_events(created_at)",
	}

	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// prepareStatements prepares the insert statement used for batch writes.
func (s *sqliteAuditBackend) prepareStatements() error {
	insertSQL := `
	INSERT INTO audit_events (
		timestamp, level, event, component,
		source_file, file_path, process_id, process_name,
		context, checksum
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := s.db.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	s.insertStmt = stmt
	return nil
}

// performMaintenance cleans events past the retention window and refreshes
// query planner statistics.
func (s *sqliteAuditBackend) performMaintenance() error {
	const retentionDays = 90

	cleanupSQL := `
		DELETE FROM audit_events
		WHERE created_at < datetime('now', '-' || ? || ' days')
	`
	if _, err := s.db.Exec(cleanupSQL, retentionDays); err != nil {
		return fmt.Errorf("failed to cleanup old audit events: %w", err)
	}

	for _, task := range []string{"PRAGMA optimize", "PRAGMA wal_checkpoint(FULL)"} {
		if _, err := s.db.Exec(task); err != nil {
			continue
		}
	}

	return nil
}

// AuditDatabaseStats describes the contents of the audit store.
type AuditDatabaseStats struct {
	TotalEvents   int64            `json:"total_events"`
	EventsByLevel map[string]int64 `json:"events_by_level"`
	EventsByEvent map[string]int64 `json:"events_by_event"`
	OldestEvent   *time.Time       `json:"oldest_event"`
	NewestEvent   *time.Time       `json:"newest_event"`
	DatabaseSize  int64            `json:"database_size_bytes"`
}

// Write persists a batch of audit events inside a single transaction.
func (s *sqliteAuditBackend) Write(events []AuditEvent) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("cannot write to closed SQLite audit backend")
	}
	s.mu.RUnlock()

	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				fmt.Fprintf(os.Stderr, "Failed to rollback audit transaction: %v\n", rollbackErr)
			}
		}
	}()

	txStmt := tx.Stmt(s.insertStmt)
	defer func() {
		if closeErr := txStmt.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to close transaction statement: %v\n", closeErr)
		}
	}()

	for _, event := range events {
		err = s.insertEvent(txStmt, event)
		if err != nil {
			return fmt.Errorf("failed to insert audit event: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit transaction: %w", err)
	}

	return nil
}

// insertEvent inserts one audit event with JSON-serialized context.
func (s *sqliteAuditBackend) insertEvent(stmt *sql.Stmt, event AuditEvent) error {
	contextJSON := ""
	if event.Context != nil {
		data, err := json.Marshal(event.Context)
		if err != nil {
			return fmt.Errorf("failed to serialize context: %w", err)
		}
		contextJSON = string(data)
	}

	_, err := stmt.Exec(
		event.Timestamp.Format(time.RFC3339Nano),
		event.Level.String(),
		event.Event,
		event.Component,
		s.sourceFile,
		event.FilePath,
		event.ProcessID,
		event.ProcessName,
		contextJSON,
		event.Checksum,
	)

	return err
}

// Flush forces a WAL checkpoint so recent transactions hit the main database
// file.
func (s *sqliteAuditBackend) Flush() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to flush SQLite audit backend: %w", err)
	}

	return nil
}

// Maintenance runs retention cleanup and database optimization.
func (s *sqliteAuditBackend) Maintenance() error {
	return s.performMaintenance()
}

// GetStats returns event counts, grouping, time range, and file size.
func (s *sqliteAuditBackend) GetStats() (*AuditDatabaseStats, error) {
	stats := &AuditDatabaseStats{
		EventsByLevel: make(map[string]int64),
		EventsByEvent: make(map[string]int64),
	}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM audit_events").Scan(&stats.TotalEvents); err != nil {
		return nil, fmt.Errorf("failed to get total events count: %w", err)
	}

	if err := s.countGrouped("level", stats.EventsByLevel); err != nil {
		return nil, err
	}
	if err := s.countGrouped("event", stats.EventsByEvent); err != nil {
		return nil, err
	}

	var oldestStr, newestStr sql.NullString
	err := s.db.QueryRow(`
		SELECT MIN(created_at), MAX(created_at) FROM audit_events
	`).Scan(&oldestStr, &newestStr)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get event time range: %w", err)
	}

	if oldestStr.Valid {
		if oldest, err := time.Parse("2006-01-02 15:04:05", oldestStr.String); err == nil {
			stats.OldestEvent = &oldest
		}
	}
	if newestStr.Valid {
		if newest, err := time.Parse("2006-01-02 15:04:05", newestStr.String); err == nil {
			stats.NewestEvent = &newest
		}
	}

	if info, err := os.Stat(s.dbPath); err == nil {
		stats.DatabaseSize = info.Size()
	}

	return stats, nil
}

// countGrouped fills dst with per-value event counts for the given column.
func (s *sqliteAuditBackend) countGrouped(column string, dst map[string]int64) error {
	rows, err := s.db.Query(fmt.Sprintf("SELECT %s, COUNT(*) FROM audit_events GROUP BY %s", column, column))
	if err != nil {
		return fmt.Errorf("failed to get events by %s: %w", column, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan %s stats: %w", column, err)
		}
		dst[key] = count
	}
	return rows.Err()
}

// Close flushes pending WAL data and releases database resources. Safe to
// call multiple times.
func (s *sqliteAuditBackend) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	var errs []error

	// Final flush commits WAL data before the connection goes away.
	// Unlock temporarily so Flush can take its read lock.
	s.mu.Unlock()
	if err := s.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush audit backend during close: %w", err))
	}
	s.mu.Lock()

	if s.insertStmt != nil {
		if err := s.insertStmt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close insert statement: %w", err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	s.closed = true

	if len(errs) > 0 {
		return fmt.Errorf("errors closing SQLite audit backend: %v", errs)
	}

	return nil
}

// jsonlAuditBackend stores audit events as one JSON object per line. Used
// when SQLite is unavailable or when the operator asked for a .jsonl file.
type jsonlAuditBackend struct {
	file       *os.File
	sourceFile string
	mu         sync.Mutex
	closed     bool
}

// newJSONLBackend opens the JSONL audit file for appending.
func newJSONLBackend(config AuditConfig) (*jsonlAuditBackend, error) {
	if config.OutputFile == "" {
		return nil, fmt.Errorf("JSONL backend requires OutputFile to be specified")
	}

	if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0750); err != nil {
		return nil, fmt.Errorf("failed to create JSONL audit log directory: %w", err)
	}

	file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL audit log file: %w", err)
	}

	return &jsonlAuditBackend{
		file:       file,
		sourceFile: config.OutputFile,
	}, nil
}

// Write appends a batch of events, one JSON line each.
func (j *jsonlAuditBackend) Write(events []AuditEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return fmt.Errorf("cannot write to closed JSONL audit backend")
	}

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to serialize audit event: %w", err)
		}

		if _, err := j.file.Write(data); err != nil {
			return fmt.Errorf("failed to write audit event to JSONL: %w", err)
		}
		if _, err := j.file.Write([]byte("\n")); err != nil {
			return fmt.Errorf("failed to write audit event newline: %w", err)
		}
	}

	return nil
}

// Flush fsyncs the JSONL file.
func (j *jsonlAuditBackend) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}

	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync JSONL audit file: %w", err)
	}

	return nil
}

// Maintenance is a no-op for JSONL files.
func (j *jsonlAuditBackend) Maintenance() error {
	return nil
}

// GetStats returns the limited statistics a flat file can provide.
func (j *jsonlAuditBackend) GetStats() (*AuditDatabaseStats, error) {
	stats := &AuditDatabaseStats{
		EventsByLevel: make(map[string]int64),
		EventsByEvent: make(map[string]int64),
	}

	if info, err := os.Stat(j.sourceFile); err == nil {
		stats.DatabaseSize = info.Size()
	}

	return stats, nil
}

// Close releases the file handle. Safe to call multiple times.
func (j *jsonlAuditBackend) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}

	var err error
	if j.file != nil {
		err = j.file.Close()
	}

	j.closed = true
	return err
}
