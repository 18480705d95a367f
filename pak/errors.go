// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package pak

import "errors"

// Sentinel errors for pak operations. Use errors.Is in callers.
var (
	// ErrInvalidMagic means no supported footer with pak magic was found.
	ErrInvalidMagic = errors.New("invalid pak file: footer magic not found")
	// ErrUnsupportedVersion means footer version is outside supported range.
	ErrUnsupportedVersion = errors.New("unsupported pak version")
	// ErrFrozenIndex means the pak uses the frozen (memory image) index layout.
	ErrFrozenIndex = errors.New("frozen pak index is not supported")
	// ErrCorruptIndex means index structure could not be decoded.
	ErrCorruptIndex = errors.New("corrupt pak index")
	// ErrMissingDirectoryIndex means the pak was built without full directory index, so names are unknown.
	ErrMissingDirectoryIndex = errors.New("pak has no full directory index")
	// ErrIndexHashMismatch means SHA1 of the index differs from footer hash.
	ErrIndexHashMismatch = errors.New("pak index hash mismatch")
	// ErrKeyRequired means encrypted content was requested without a key.
	ErrKeyRequired = errors.New("pak is encrypted and no key was provided")
	// ErrInvalidKey means the provided key does not decrypt the index or entry data.
	ErrInvalidKey = errors.New("pak key does not match encrypted data")
	// ErrInvalidEntry means entry record fields are inconsistent or out of file bounds.
	ErrInvalidEntry = errors.New("invalid pak entry")
	// ErrEntryNotFound means the entry is not found.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrNilReader means the reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrClosed means the reader is already closed.
	ErrClosed = errors.New("reader already closed")
)
