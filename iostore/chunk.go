// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package iostore

import (
	"fmt"
	"io"

	"github.com/woozymasta/uepak/codec"
	"github.com/woozymasta/uepak/internal/uebin"
)

// OpenEntry opens named entry for reading.
func (r *Reader) OpenEntry(name string) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	i, ok := r.byPath[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	return r.openChunk(r.entries[i].chunk)
}

// ReadEntry reads full content of the named entry.
func (r *Reader) ReadEntry(name string) ([]byte, error) {
	rc, err := r.OpenEntry(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}

// ReadChunk reads full content of chunk at toc index.
func (r *Reader) ReadChunk(index int) ([]byte, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(r.toc.ids) {
		return nil, fmt.Errorf("%w: index %d", ErrInvalidChunk, index)
	}

	rc, err := r.openChunk(index)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}

// openChunk validates chunk range and returns block-wise reader.
func (r *Reader) openChunk(index int) (io.ReadCloser, error) {
	if r.Encrypted() && r.block == nil {
		return nil, ErrKeyRequired
	}

	first, last, err := r.toc.chunkBlocks(index)
	if err != nil {
		return nil, err
	}

	bs := uint64(r.toc.header.CompressionBlockSize)
	cr := &chunkReader{
		r:         r,
		next:      first,
		last:      last,
		remaining: r.toc.offsets[index][1],
	}
	if last >= first {
		cr.skip = r.toc.offsets[index][0] - uint64(first)*bs
	}

	return cr, nil
}

// chunkReader decodes chunk payload one compression block per refill.
type chunkReader struct {
	r         *Reader
	buf       []byte
	next      int
	last      int
	skip      uint64
	remaining uint64
}

// Read implements io.Reader.
func (cr *chunkReader) Read(p []byte) (int, error) {
	for len(cr.buf) == 0 {
		if cr.remaining == 0 {
			return 0, io.EOF
		}
		if cr.next > cr.last {
			return 0, fmt.Errorf("%w: %d bytes missing after last block", ErrInvalidChunk, cr.remaining)
		}
		if err := cr.fill(); err != nil {
			return 0, err
		}
	}

	n := copy(p, cr.buf)
	cr.buf = cr.buf[n:]
	return n, nil
}

// Close releases buffered data.
func (cr *chunkReader) Close() error {
	cr.buf = nil
	cr.remaining = 0
	return nil
}

// fill decodes next block and trims it to the chunk range.
func (cr *chunkReader) fill() error {
	i := cr.next
	cr.next++

	out, err := cr.r.readBlock(i)
	if err != nil {
		return err
	}

	if cr.skip > 0 {
		if cr.skip >= uint64(len(out)) {
			cr.skip -= uint64(len(out))
			return nil
		}
		out = out[cr.skip:]
		cr.skip = 0
	}
	if uint64(len(out)) > cr.remaining {
		out = out[:cr.remaining]
	}

	cr.buf = out
	cr.remaining -= uint64(len(out))
	return nil
}

// readBlock reads, decrypts and decompresses one compression block.
func (r *Reader) readBlock(i int) ([]byte, error) {
	b := r.toc.blocks[i]
	if b.UncompressedSize > maxUncompressedSize {
		return nil, fmt.Errorf("%w: block %d uncompressed size %d", ErrInvalidChunk, i, b.UncompressedSize)
	}

	part := r.partitionOf(b.Offset)
	if part >= len(r.partitions) {
		return nil, fmt.Errorf("%w: block %d in partition %d of %d", ErrInvalidChunk, i, part, len(r.partitions))
	}

	off := b.Offset
	if r.toc.header.PartitionCount > 1 {
		off %= r.toc.header.PartitionSize
	}

	readLen := int64(b.CompressedSize)
	if r.Encrypted() {
		readLen = uebin.Align(readLen)
	}
	if int64(off)+readLen > r.sizes[part] { //nolint:gosec // offset is 40-bit
		return nil, fmt.Errorf("%w: block %d range %d+%d outside partition %d", ErrInvalidChunk, i, off, readLen, part)
	}

	raw, err := uebin.ReadFull(r.partitions[part], int64(off), readLen) //nolint:gosec // offset is 40-bit
	if err != nil {
		return nil, fmt.Errorf("read block %d: %w", i, err)
	}
	if r.Encrypted() {
		if err := uebin.DecryptECB(r.block, raw); err != nil {
			return nil, fmt.Errorf("decrypt block %d: %w", i, err)
		}
	}
	raw = raw[:b.CompressedSize]

	method, err := r.toc.method(b)
	if err != nil {
		return nil, err
	}

	out, err := codec.Decompress(method, raw, int(b.UncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", i, err)
	}

	return out, nil
}
