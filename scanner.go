// scanner.go: Collaborator contract for repository size scanning
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package themis

// SizeScanner finds files whose estimated token footprint exceeds a
// threshold. Themis does not implement scanning itself; the contract exists
// so companion tools can plug into the same merge-preserving document writes
// that fix mode uses.
//
// Scan returns relative paths under rootDir whose estimated size exceeds
// tokenThreshold. Estimation is charCount/4 for small text files and
// byteSize/4 as a proxy for large or binary files.
type SizeScanner interface {
	Scan(rootDir string, tokenThreshold int) ([]string, error)
}
