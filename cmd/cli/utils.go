// Utility functions for the Themis CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

// checkFileWriteable verifies a file can be written to. Returns an error if
// the file exists but is read-only, or its directory is not writable.
func checkFileWriteable(filePath string) error {
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return checkDirectoryWriteable(filepath.Dir(filePath))
	}
	if err != nil {
		return fmt.Errorf("cannot stat file: %w", err)
	}

	mode := info.Mode()
	if mode&0200 == 0 {
		return fmt.Errorf("file is read-only (mode: %v)", mode)
	}

	return nil
}

// checkDirectoryWriteable verifies a directory can be written to.
func checkDirectoryWriteable(dirPath string) error {
	info, err := os.Stat(dirPath)
	if err != nil {
		return fmt.Errorf("cannot access directory %s: %w", dirPath, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dirPath)
	}

	mode := info.Mode()
	if mode&0200 == 0 {
		return fmt.Errorf("directory is not writable (mode: %v)", mode)
	}

	return nil
}
