// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package pak

import (
	"crypto/cipher"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/woozymasta/uepak/internal/uebin"
)

// Reader provides read-only access to a parsed pak file.
type Reader struct {
	// ra is the underlying random-access reader used for payload reads.
	ra io.ReaderAt
	// file is set when Reader owns an *os.File opened via Open.
	file *os.File
	// block is AES cipher built from ReaderOptions.Key; nil without key.
	block cipher.Block
	// mountPoint is the index mount point prefix (usually "../../../").
	mountPoint string
	// entries stores parsed immutable entry metadata in index order.
	entries []EntryInfo
	// footer is parsed trailer.
	footer Footer
	// layout is matched serialization variant.
	layout layout
	// size is total source size in bytes.
	size int64
	// mu guards closed state and close operation.
	mu sync.Mutex
	// closed reports whether Close was already called.
	closed bool
}

// Open opens pak file by path and parses footer and index.
func Open(path string) (*Reader, error) {
	return OpenWithOptions(path, ReaderOptions{})
}

// OpenWithOptions opens pak file by path using explicit reader options.
func OpenWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}

	r, err := NewReaderFromReaderAtWithOptions(f, size, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	r.file = f
	return r, nil
}

// NewReaderFromReaderAt parses pak from existing ReaderAt and known size.
func NewReaderFromReaderAt(ra io.ReaderAt, size int64) (*Reader, error) {
	return NewReaderFromReaderAtWithOptions(ra, size, ReaderOptions{})
}

// NewReaderFromReaderAtWithOptions parses pak from existing ReaderAt and known size using explicit reader options.
func NewReaderFromReaderAtWithOptions(ra io.ReaderAt, size int64, opts ReaderOptions) (*Reader, error) {
	if ra == nil {
		return nil, ErrNilReader
	}

	r := &Reader{ra: ra, size: size}
	if len(opts.Key) > 0 {
		block, err := uebin.NewCipher(opts.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
		}

		r.block = block
	}

	footer, l, err := readFooter(ra, size)
	if err != nil {
		return nil, err
	}
	if l.version > VersionLatest || l.version < VersionInitial {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, l.version)
	}

	idx, err := parseIndex(ra, size, footer, l, r.block, opts.VerifyIndexHash)
	if err != nil {
		return nil, err
	}

	r.footer = footer
	r.layout = l
	r.mountPoint = idx.mountPoint
	r.entries = idx.entries
	return r, nil
}

// Entries returns a copy of parsed entries in index order.
func (r *Reader) Entries() []EntryInfo {
	if r == nil {
		return nil
	}

	entries := make([]EntryInfo, len(r.entries))
	copy(entries, r.entries)
	return entries
}

// MountPoint returns index mount point.
func (r *Reader) MountPoint() string {
	if r == nil {
		return ""
	}

	return r.mountPoint
}

// Footer returns parsed footer.
func (r *Reader) Footer() Footer {
	if r == nil {
		return Footer{}
	}

	return r.footer
}

// Encrypted reports whether index or any entry payload is encrypted.
func (r *Reader) Encrypted() bool {
	if r == nil {
		return false
	}
	if r.footer.EncryptedIndex {
		return true
	}

	for i := range r.entries {
		if r.entries[i].Encrypted {
			return true
		}
	}

	return false
}

// Close closes the underlying file if reader owns one.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	if r.file != nil {
		return r.file.Close()
	}

	return nil
}

// checkOpen returns error when reader is nil or closed.
func (r *Reader) checkOpen() error {
	if r == nil || r.ra == nil {
		return ErrNilReader
	}

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}

	return nil
}

// openFileWithSize opens a file and returns a handle plus current size.
func openFileWithSize(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open pak: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat: %w", err)
	}

	return f, fi.Size(), nil
}
