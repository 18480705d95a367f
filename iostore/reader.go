// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package iostore

import (
	"crypto/cipher"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/woozymasta/uepak/codec"
	"github.com/woozymasta/uepak/internal/uebin"
)

// Reader provides read-only access to a .utoc/.ucas container.
type Reader struct {
	toc        *toc
	block      cipher.Block
	partitions []*os.File
	sizes      []int64
	mountPoint string
	tocPath    string
	entries    []EntryInfo
	byPath     map[string]int
	mu         sync.Mutex
	closed     bool
}

// PartitionPath returns .ucas path of partition i for the given .utoc path.
// Partition 0 is <stem>.ucas, others are <stem>_s<i>.ucas.
func PartitionPath(tocPath string, i int) string {
	stem := strings.TrimSuffix(tocPath, filepath.Ext(tocPath))
	if i == 0 {
		return stem + ".ucas"
	}

	return fmt.Sprintf("%s_s%d.ucas", stem, i)
}

// Open opens .utoc file and its .ucas partitions.
func Open(tocPath string) (*Reader, error) {
	return OpenWithOptions(tocPath, ReaderOptions{})
}

// OpenWithOptions opens .utoc file and its .ucas partitions using reader options.
func OpenWithOptions(tocPath string, opts ReaderOptions) (*Reader, error) {
	buf, err := os.ReadFile(tocPath)
	if err != nil {
		return nil, fmt.Errorf("open utoc: %w", err)
	}

	t, err := parseToc(buf)
	if err != nil {
		return nil, err
	}

	r := &Reader{toc: t, tocPath: tocPath}
	if len(opts.Key) > 0 {
		if r.block, err = uebin.NewCipher(opts.Key); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
		}
	}

	if err := r.loadDirectoryIndex(); err != nil {
		return nil, err
	}
	if err := r.openPartitions(); err != nil {
		return nil, err
	}

	return r, nil
}

// loadDirectoryIndex decrypts and walks the directory index.
func (r *Reader) loadDirectoryIndex() error {
	r.byPath = make(map[string]int)
	if len(r.toc.dirIndex) == 0 {
		return nil
	}

	raw := append([]byte(nil), r.toc.dirIndex...)
	if r.toc.header.Flags.Has(FlagEncrypted) {
		if r.block == nil {
			return ErrKeyRequired
		}
		if err := uebin.DecryptECB(r.block, raw); err != nil {
			return fmt.Errorf("%w: %w", ErrCorruptDirectoryIndex, err)
		}
	}

	idx, err := decodeDirectoryIndex(raw)
	if err == nil {
		var named []namedChunk
		named, err = idx.walk(len(r.toc.ids))
		if err == nil {
			r.mountPoint = idx.mountPoint
			r.buildEntries(named)
			return nil
		}
	}

	if r.toc.header.Flags.Has(FlagEncrypted) {
		return fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	return err
}

// buildEntries fills entry metadata for named chunks.
func (r *Reader) buildEntries(named []namedChunk) {
	r.entries = make([]EntryInfo, 0, len(named))
	for _, n := range named {
		id := r.toc.ids[n.chunk]
		e := EntryInfo{
			Path:      n.path,
			ChunkID:   id,
			Type:      id.Type(),
			Size:      r.toc.offsets[n.chunk][1],
			Encrypted: r.toc.header.Flags.Has(FlagEncrypted),
			chunk:     n.chunk,
		}

		if first, last, err := r.toc.chunkBlocks(n.chunk); err == nil && last >= first {
			b := r.toc.blocks[first]
			e.Compression, _ = r.toc.method(b)
			e.Partition = r.partitionOf(b.Offset)
			for i := first; i <= last; i++ {
				e.CompressedSize += uint64(r.toc.blocks[i].CompressedSize)
			}
		}

		r.byPath[e.Path] = len(r.entries)
		r.entries = append(r.entries, e)
	}
}

// openPartitions opens every .ucas partition declared by the header.
func (r *Reader) openPartitions() error {
	count := int(r.toc.header.PartitionCount)
	for i := 0; i < count; i++ {
		p := PartitionPath(r.tocPath, i)
		f, err := os.Open(p)
		if err != nil {
			_ = r.Close()
			if errors.Is(err, fs.ErrNotExist) {
				return &MissingPartitionError{Path: p, Err: err}
			}

			return fmt.Errorf("open ucas: %w", err)
		}

		fi, err := f.Stat()
		if err != nil {
			_ = f.Close()
			_ = r.Close()
			return fmt.Errorf("stat ucas: %w", err)
		}

		r.partitions = append(r.partitions, f)
		r.sizes = append(r.sizes, fi.Size())
	}

	return nil
}

// MissingPartitionError names the .ucas file that was expected next to the .utoc.
type MissingPartitionError struct {
	Path string
	Err  error
}

// Error implements error.
func (e *MissingPartitionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingPartition, e.Path)
}

// Unwrap returns both the sentinel and the fs error.
func (e *MissingPartitionError) Unwrap() []error {
	return []error{ErrMissingPartition, e.Err}
}

// partitionOf maps absolute block offset to partition index.
func (r *Reader) partitionOf(off uint64) int {
	size := r.toc.header.PartitionSize
	if size == 0 || r.toc.header.PartitionCount <= 1 {
		return 0
	}

	return int(off / size) //nolint:gosec // bounded by partition count on read
}

// Header returns parsed toc header.
func (r *Reader) Header() Header {
	return r.toc.header
}

// MountPoint returns directory index mount point.
func (r *Reader) MountPoint() string {
	return r.mountPoint
}

// CompressionMethods returns method names declared by the toc.
func (r *Reader) CompressionMethods() []codec.Method {
	return append([]codec.Method(nil), r.toc.methods...)
}

// Encrypted reports whether the container is encrypted.
func (r *Reader) Encrypted() bool {
	return r.toc.header.Flags.Has(FlagEncrypted)
}

// Entries returns a copy of named entries in directory index order.
func (r *Reader) Entries() []EntryInfo {
	out := make([]EntryInfo, len(r.entries))
	copy(out, r.entries)
	return out
}

// Chunks returns all chunks including those without a directory index name.
func (r *Reader) Chunks() []ChunkInfo {
	out := make([]ChunkInfo, 0, len(r.toc.ids))
	for i, id := range r.toc.ids {
		out = append(out, ChunkInfo{
			ID:     id,
			Type:   id.Type(),
			Offset: r.toc.offsets[i][0],
			Size:   r.toc.offsets[i][1],
			Index:  i,
		})
	}

	return out
}

// Listing returns JSON-friendly container description.
func (r *Reader) Listing() Listing {
	return Listing{
		Header:             r.toc.header,
		MountPoint:         r.mountPoint,
		CompressionMethods: r.CompressionMethods(),
		Entries:            r.Entries(),
	}
}

// MarshalJSON encodes container listing.
func (r *Reader) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Listing())
}

// Close closes all partition files.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for _, f := range r.partitions {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// checkOpen returns ErrClosed after Close.
func (r *Reader) checkOpen() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	return nil
}

// RequiresKey reports whether the container at tocPath is encrypted.
func RequiresKey(tocPath string) (bool, error) {
	f, err := os.Open(tocPath)
	if err != nil {
		return false, fmt.Errorf("open utoc: %w", err)
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidMagic, err)
	}
	if string(buf[:len(Magic)]) != Magic {
		return false, ErrInvalidMagic
	}

	return Flags(buf[headerFlagsOffset]).Has(FlagEncrypted), nil
}
