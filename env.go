// env.go: Environment variable support for Themis options
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Environment-based option loading for container and CI deployments, where
// flags are awkward and THEMIS_* variables are the natural interface.

package themis

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agilira/go-errors"
)

// Environment variables recognized by LoadOptionsFromEnv:
//
//	THEMIS_PATH                 document to validate
//	THEMIS_FIX                  enable fix mode (true/false/1/0/yes/no/on/off)
//	THEMIS_OUTPUT               corrected-copy output path
//	THEMIS_FORMAT               auto, json, or yaml
//	THEMIS_SMOOTH_WARNINGS      also rewrite lead-in warnings in fix mode
//	THEMIS_AUDIT_ENABLED        enable the audit trail
//	THEMIS_AUDIT_OUTPUT_FILE    audit store path (.db or .jsonl)
//	THEMIS_AUDIT_MIN_LEVEL      info, warn, or critical
//	THEMIS_AUDIT_BUFFER_SIZE    audit event buffer size
//	THEMIS_AUDIT_FLUSH_INTERVAL audit flush interval (Go duration)

// LoadOptionsFromEnv builds run options from THEMIS_* environment variables,
// filling anything unset with the standard defaults.
func LoadOptionsFromEnv() (*Options, error) {
	opts := &Options{}

	opts.Path = os.Getenv("THEMIS_PATH")
	opts.OutputPath = os.Getenv("THEMIS_OUTPUT")

	if fixStr := os.Getenv("THEMIS_FIX"); fixStr != "" {
		opts.Fix = parseBool(fixStr)
	}
	if smoothStr := os.Getenv("THEMIS_SMOOTH_WARNINGS"); smoothStr != "" {
		opts.SmoothWarnings = parseBool(smoothStr)
	}

	if formatStr := os.Getenv("THEMIS_FORMAT"); formatStr != "" {
		switch strings.ToLower(formatStr) {
		case "auto", "json", "yaml":
			opts.Format = strings.ToLower(formatStr)
		default:
			return nil, errors.New(ErrCodeInvalidFormat, "invalid THEMIS_FORMAT value")
		}
	}

	if err := loadAuditEnv(opts); err != nil {
		return nil, err
	}

	return opts.WithDefaults(), nil
}

// loadAuditEnv fills the audit section of the options from THEMIS_AUDIT_*
// variables.
func loadAuditEnv(opts *Options) error {
	if auditStr := os.Getenv("THEMIS_AUDIT_ENABLED"); auditStr != "" {
		opts.Audit.Enabled = parseBool(auditStr)
	}

	opts.Audit.OutputFile = os.Getenv("THEMIS_AUDIT_OUTPUT_FILE")

	if levelStr := os.Getenv("THEMIS_AUDIT_MIN_LEVEL"); levelStr != "" {
		level, err := parseAuditLevel(levelStr)
		if err != nil {
			return err
		}
		opts.Audit.MinLevel = level
	}

	if bufferStr := os.Getenv("THEMIS_AUDIT_BUFFER_SIZE"); bufferStr != "" {
		if buffer, err := strconv.Atoi(bufferStr); err == nil && buffer > 0 {
			opts.Audit.BufferSize = buffer
		} else {
			return errors.New(ErrCodeInvalidAuditConfig, "invalid THEMIS_AUDIT_BUFFER_SIZE value")
		}
	}

	if flushStr := os.Getenv("THEMIS_AUDIT_FLUSH_INTERVAL"); flushStr != "" {
		if duration, err := time.ParseDuration(flushStr); err == nil {
			opts.Audit.FlushInterval = duration
		} else {
			return errors.New(ErrCodeInvalidAuditConfig, "invalid THEMIS_AUDIT_FLUSH_INTERVAL format")
		}
	}

	return nil
}

// parseAuditLevel parses an audit level name.
func parseAuditLevel(levelStr string) (AuditLevel, error) {
	switch strings.ToLower(levelStr) {
	case "info":
		return AuditInfo, nil
	case "warn", "warning":
		return AuditWarn, nil
	case "critical":
		return AuditCritical, nil
	default:
		return AuditInfo, errors.New(ErrCodeInvalidAuditConfig, "invalid audit level: "+levelStr)
	}
}

// parseBool accepts the usual true/false spellings.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on", "enabled":
		return true
	default:
		return false
	}
}
