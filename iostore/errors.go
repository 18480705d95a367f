// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package iostore

import "errors"

var (
	// ErrInvalidMagic indicates the file does not start with the toc magic.
	ErrInvalidMagic = errors.New("invalid utoc magic")
	// ErrUnsupportedVersion indicates toc version outside supported range.
	ErrUnsupportedVersion = errors.New("unsupported utoc version")
	// ErrCorruptToc indicates malformed toc sections.
	ErrCorruptToc = errors.New("corrupt utoc")
	// ErrCorruptDirectoryIndex indicates malformed directory index.
	ErrCorruptDirectoryIndex = errors.New("corrupt directory index")
	// ErrMissingPartition indicates a required .ucas file does not exist.
	ErrMissingPartition = errors.New("missing ucas partition")
	// ErrKeyRequired indicates encrypted container opened without key.
	ErrKeyRequired = errors.New("encryption key required")
	// ErrInvalidKey indicates key has wrong size or does not decrypt the container.
	ErrInvalidKey = errors.New("invalid encryption key")
	// ErrEntryNotFound indicates entry path does not exist in directory index.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrInvalidChunk indicates chunk ranges or blocks are out of bounds.
	ErrInvalidChunk = errors.New("invalid chunk")
	// ErrClosed indicates operation on closed reader.
	ErrClosed = errors.New("reader is closed")
)
