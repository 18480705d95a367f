// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package uepak

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/woozymasta/uepak/codec"
	"github.com/woozymasta/uepak/iostore"
	"github.com/woozymasta/uepak/pak"
)

// Container file extensions.
const (
	extPak  = ".pak"
	extUtoc = ".utoc"
	extUcas = ".ucas"
)

// ContainerHandle is one opened and validated container. It exclusively owns
// its open files and is not safe for concurrent use.
type ContainerHandle struct {
	pak     *pak.Reader
	io      *iostore.Reader
	path    string
	entries []EntryInfo
	kind    ContainerKind
}

// OpenContainer detects the container kind of path and opens it with optional key.
// A .ucas path opens its .utoc sibling. A key for an unencrypted container is ignored.
func OpenContainer(path string, key *DecryptionKey) (*ContainerHandle, error) {
	kind, indexPath, err := detectContainer(path)
	if err != nil {
		return nil, err
	}

	h := &ContainerHandle{kind: kind, path: indexPath}
	switch kind {
	case KindPak:
		r, err := pak.OpenWithOptions(indexPath, pak.ReaderOptions{Key: key.bytes()})
		if err != nil {
			return nil, wrapError("open", indexPath, err)
		}
		h.pak = r
	case KindIoStore:
		companion := iostore.PartitionPath(indexPath, 0)
		if _, err := os.Stat(companion); err != nil {
			return nil, missingCompanion(indexPath, companion, err)
		}

		r, err := iostore.OpenWithOptions(indexPath, iostore.ReaderOptions{Key: key.bytes()})
		if err != nil {
			return nil, wrapError("open", indexPath, err)
		}
		h.io = r
	default:
		return nil, &Error{Kind: ErrInternal, Op: "open", Path: path, Err: fmt.Errorf("container kind %s", kind)}
	}

	if err := h.loadEntries(); err != nil {
		_ = h.Close()
		return nil, wrapError("open", indexPath, err)
	}

	return h, nil
}

// detectContainer resolves kind and index file path by extension, confirming by magic
// only when the extension is not a container extension.
func detectContainer(path string) (ContainerKind, string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return KindUnknown, "", wrapError("open", path, err)
	}
	if fi.IsDir() {
		return KindUnknown, "", &Error{Kind: ErrInvalidArgument, Op: "open", Path: path, Err: errors.New("is a directory")}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case extPak:
		return KindPak, path, nil
	case extUtoc:
		return KindIoStore, path, nil
	case extUcas:
		utoc := strings.TrimSuffix(path, filepath.Ext(path)) + extUtoc
		if _, err := os.Stat(utoc); err != nil {
			return KindUnknown, "", missingCompanion(path, utoc, err)
		}
		return KindIoStore, utoc, nil
	}

	kind, err := sniffContainer(path)
	if err != nil {
		return KindUnknown, "", wrapError("open", path, err)
	}
	if kind == KindUnknown {
		return KindUnknown, "", &Error{Kind: ErrInvalidFormat, Op: "open", Path: path, Err: ErrUnsupportedInput}
	}

	return kind, path, nil
}

// sniffContainer checks utoc header magic, then pak footer magic.
func sniffContainer(path string) (ContainerKind, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, err
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, len(iostore.Magic))
	if _, err := io.ReadFull(f, head); err == nil && string(head) == iostore.Magic {
		return KindIoStore, nil
	}

	fi, err := f.Stat()
	if err != nil {
		return KindUnknown, err
	}
	if _, err := pak.ReadFooter(f, fi.Size()); err == nil {
		return KindPak, nil
	}

	return KindUnknown, nil
}

// missingCompanion builds ErrMissingFile naming the expected sibling.
func missingCompanion(path string, companion string, cause error) error {
	if !errors.Is(cause, os.ErrNotExist) {
		return wrapError("open", companion, cause)
	}

	return &Error{Kind: ErrMissingFile, Op: "open", Path: path, Companion: companion, Err: cause}
}

// loadEntries builds mount-point-qualified entry metadata in native order.
func (h *ContainerHandle) loadEntries() error {
	switch h.kind {
	case KindPak:
		mount := h.pak.MountPoint()
		for _, e := range h.pak.Entries() {
			a, err := NewAssetPath(joinMountPath(mount, e.Path))
			if err != nil {
				return fmt.Errorf("%w: entry %q", pak.ErrInvalidEntry, e.Path)
			}

			h.entries = append(h.entries, EntryInfo{
				Path:           a,
				Size:           e.UncompressedSize,
				CompressedSize: e.Size,
				Compression:    entryCompression(e.Compression),
				Encrypted:      e.Encrypted,
				name:           e.Path,
			})
		}
	case KindIoStore:
		mount := h.io.MountPoint()
		for _, e := range h.io.Entries() {
			a, err := NewAssetPath(joinMountPath(mount, e.Path))
			if err != nil {
				return fmt.Errorf("%w: entry %q", iostore.ErrCorruptDirectoryIndex, e.Path)
			}

			h.entries = append(h.entries, EntryInfo{
				Path:           a,
				Size:           int64(e.Size),           //nolint:gosec // 40-bit field
				CompressedSize: int64(e.CompressedSize), //nolint:gosec // sum of 24-bit fields
				Compression:    entryCompression(e.Compression),
				Encrypted:      e.Encrypted,
				name:           e.Path,
			})
		}
	default:
		return fmt.Errorf("%w: container kind %s", ErrInternal, h.kind)
	}

	return nil
}

// entryCompression maps empty method to MethodNone.
func entryCompression(m codec.Method) codec.Method {
	if m == "" {
		return codec.MethodNone
	}

	return m
}

// Kind returns the container format.
func (h *ContainerHandle) Kind() ContainerKind {
	return h.kind
}

// Path returns the container index file path.
func (h *ContainerHandle) Path() string {
	return h.path
}

// List returns all entry asset paths in native container order.
func (h *ContainerHandle) List() []AssetPath {
	out := make([]AssetPath, len(h.entries))
	for i := range h.entries {
		out[i] = h.entries[i].Path
	}

	return out
}

// Entries returns a copy of entry metadata in native container order.
func (h *ContainerHandle) Entries() []EntryInfo {
	return slices.Clone(h.entries)
}

// Info summarizes the container.
func (h *ContainerHandle) Info() ContainerInfo {
	info := ContainerInfo{Path: h.path, Kind: h.kind, Entries: len(h.entries)}

	switch h.kind {
	case KindPak:
		footer := h.pak.Footer()
		info.Version = uint32(footer.Version)
		info.MountPoint = h.pak.MountPoint()
		info.Encrypted = h.pak.Encrypted()
		info.CompressionMethods = footer.CompressionMethods
	case KindIoStore:
		header := h.io.Header()
		info.Version = uint32(header.Version)
		info.MountPoint = h.io.MountPoint()
		info.Encrypted = h.io.Encrypted()
		info.CompressionMethods = h.io.CompressionMethods()
		info.Partitions = int(header.PartitionCount)
	}

	if len(info.CompressionMethods) == 0 {
		info.CompressionMethods = usedMethods(h.entries)
	}

	return info
}

// usedMethods collects distinct non-None codecs referenced by entries.
func usedMethods(entries []EntryInfo) []codec.Method {
	var out []codec.Method
	for _, e := range entries {
		if e.Compression != codec.MethodNone && !slices.Contains(out, e.Compression) {
			out = append(out, e.Compression)
		}
	}

	return out
}

// openEntry opens one entry payload stream.
func (h *ContainerHandle) openEntry(e EntryInfo) (io.ReadCloser, error) {
	switch h.kind {
	case KindPak:
		return h.pak.OpenEntry(e.name)
	case KindIoStore:
		return h.io.OpenEntry(e.name)
	default:
		return nil, fmt.Errorf("%w: container kind %s", ErrInternal, h.kind)
	}
}

// Close releases container files. It is safe to call more than once.
func (h *ContainerHandle) Close() error {
	if h == nil {
		return nil
	}

	switch h.kind {
	case KindPak:
		if h.pak != nil {
			return h.pak.Close()
		}
	case KindIoStore:
		if h.io != nil {
			return h.io.Close()
		}
	}

	return nil
}

// RequiresKey reports whether the container at path is encrypted.
func RequiresKey(path string) (bool, error) {
	kind, indexPath, err := detectContainer(path)
	if err != nil {
		return false, err
	}

	var need bool
	switch kind {
	case KindPak:
		need, err = pak.RequiresKey(indexPath)
	case KindIoStore:
		need, err = iostore.RequiresKey(indexPath)
	default:
		err = fmt.Errorf("%w: container kind %s", ErrInternal, kind)
	}
	if err != nil {
		return false, wrapError("requires key", indexPath, err)
	}

	return need, nil
}
