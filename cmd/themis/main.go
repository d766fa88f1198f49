// Themis CLI - validation and auto-remediation for mode-definition documents
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/agilira/themis"
	"github.com/agilira/themis/cmd/cli"
)

func main() {
	manager := cli.NewManager()

	// THEMIS_AUDIT_ENABLED=true turns on the audit trail for every command.
	if opts, err := themis.LoadOptionsFromEnv(); err == nil && opts.Audit.Enabled {
		if logger, err := themis.NewAuditLogger(opts.Audit); err == nil {
			manager.WithAudit(logger)
			defer func() {
				if closeErr := logger.Close(); closeErr != nil {
					fmt.Fprintf(os.Stderr, "Failed to close audit logger: %v\n", closeErr)
				}
			}()
		}
	}

	if err := manager.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
