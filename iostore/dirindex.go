// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package iostore

import (
	"fmt"

	"github.com/woozymasta/uepak/internal/uebin"
)

// dirEntry is one directory node of the directory index.
type dirEntry struct {
	name, firstChild, nextSibling, firstFile uint32
}

// fileEntry is one file node of the directory index.
type fileEntry struct {
	name, nextFile, userData uint32
}

// directoryIndex is decoded directory tree.
type directoryIndex struct {
	mountPoint string
	dirs       []dirEntry
	files      []fileEntry
	strings    []string
}

// namedChunk pairs relative file path with toc chunk index.
type namedChunk struct {
	path  string
	chunk int
}

// decodeDirectoryIndex parses decrypted directory index bytes.
func decodeDirectoryIndex(buf []byte) (*directoryIndex, error) {
	d := uebin.NewDecoder(buf)
	idx := &directoryIndex{mountPoint: d.FString()}

	n := d.Count(16)
	idx.dirs = make([]dirEntry, 0, n)
	for i := 0; i < n; i++ {
		idx.dirs = append(idx.dirs, dirEntry{d.U32(), d.U32(), d.U32(), d.U32()})
	}

	n = d.Count(12)
	idx.files = make([]fileEntry, 0, n)
	for i := 0; i < n; i++ {
		idx.files = append(idx.files, fileEntry{d.U32(), d.U32(), d.U32()})
	}

	n = d.Count(4)
	idx.strings = make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx.strings = append(idx.strings, d.FString())
	}

	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptDirectoryIndex, err)
	}
	if d.Len() >= uebin.AESBlockSize {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptDirectoryIndex, d.Len())
	}
	if len(idx.dirs) == 0 {
		return nil, fmt.Errorf("%w: no root directory", ErrCorruptDirectoryIndex)
	}

	return idx, nil
}

// walk returns all files with their paths in tree order.
func (idx *directoryIndex) walk(chunkCount int) ([]namedChunk, error) {
	var out []namedChunk
	visited := make([]bool, len(idx.dirs))

	var visit func(dir uint32, prefix string) error
	visit = func(dir uint32, prefix string) error {
		if int(dir) >= len(idx.dirs) {
			return fmt.Errorf("%w: directory %d out of range", ErrCorruptDirectoryIndex, dir)
		}
		if visited[dir] {
			return fmt.Errorf("%w: directory cycle at %d", ErrCorruptDirectoryIndex, dir)
		}
		visited[dir] = true

		e := idx.dirs[dir]
		if e.name != noneIndex {
			name, err := idx.name(e.name)
			if err != nil {
				return err
			}
			prefix += name + "/"
		}

		seen := 0
		for f := e.firstFile; f != noneIndex; {
			if int(f) >= len(idx.files) || seen > len(idx.files) {
				return fmt.Errorf("%w: file %d out of range", ErrCorruptDirectoryIndex, f)
			}
			seen++

			fe := idx.files[f]
			name, err := idx.name(fe.name)
			if err != nil {
				return err
			}
			if int(fe.userData) >= chunkCount {
				return fmt.Errorf("%w: file %s references chunk %d", ErrCorruptDirectoryIndex, prefix+name, fe.userData)
			}

			out = append(out, namedChunk{path: prefix + name, chunk: int(fe.userData)})
			f = fe.nextFile
		}

		for c := e.firstChild; c != noneIndex; c = idx.dirs[c].nextSibling {
			if err := visit(c, prefix); err != nil {
				return err
			}
		}

		return nil
	}

	if err := visit(0, ""); err != nil {
		return nil, err
	}

	return out, nil
}

// name resolves string table index.
func (idx *directoryIndex) name(i uint32) (string, error) {
	if int(i) >= len(idx.strings) {
		return "", fmt.Errorf("%w: string %d out of range", ErrCorruptDirectoryIndex, i)
	}

	return idx.strings[i], nil
}
