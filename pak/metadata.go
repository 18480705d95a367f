// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package pak

import (
	"errors"
	"io"
)

// ListEntries opens a pak and returns entry metadata without payload reads.
func ListEntries(path string) ([]EntryInfo, error) {
	return ListEntriesWithOptions(path, ReaderOptions{})
}

// ListEntriesWithOptions opens a pak and returns entry metadata using reader options.
func ListEntriesWithOptions(path string, opts ReaderOptions) ([]EntryInfo, error) {
	r, err := OpenWithOptions(path, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	return r.Entries(), nil
}

// RequiresKey reports whether the pak index or any entry is encrypted.
// Entry flags are visible only when the index itself is readable without key.
func RequiresKey(path string) (bool, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	return RequiresKeyFromReaderAt(f, size)
}

// RequiresKeyFromReaderAt is RequiresKey for a random-access source.
func RequiresKeyFromReaderAt(ra io.ReaderAt, size int64) (bool, error) {
	footer, err := ReadFooter(ra, size)
	if err != nil {
		return false, err
	}
	if footer.EncryptedIndex {
		return true, nil
	}

	r, err := NewReaderFromReaderAt(ra, size)
	if err != nil {
		if errors.Is(err, ErrKeyRequired) {
			return true, nil
		}

		return false, err
	}

	return r.Encrypted(), nil
}
