// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package pak

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // pak format requires SHA1.
	"fmt"
	"io"

	"github.com/woozymasta/uepak/codec"
	"github.com/woozymasta/uepak/internal/uebin"
)

const (
	// maxBlockSize bounds one decompressed block allocation.
	maxBlockSize = 1 << 24
	// maxDeflateRatio bounds single-block legacy entries against their stored size.
	maxDeflateRatio = 1032
)

// findEntryByName resolves one entry by exact path relative to mount point.
func (r *Reader) findEntryByName(name string) *EntryInfo {
	for i := range r.entries {
		if r.entries[i].Path == name {
			return &r.entries[i]
		}
	}

	return nil
}

// OpenEntry opens named entry for reading.
// Returned stream yields decrypted and decompressed content block by block.
func (r *Reader) OpenEntry(name string) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	info := r.findEntryByName(name)
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	return r.openEntryByInfo(*info)
}

// OpenEntryInfo opens entry stream by already resolved metadata.
func (r *Reader) OpenEntryInfo(info EntryInfo) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	return r.openEntryByInfo(info)
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

// openEntryByInfo validates entry and builds block reader.
func (r *Reader) openEntryByInfo(info EntryInfo) (io.ReadCloser, error) {
	if info.Encrypted && r.block == nil {
		return nil, fmt.Errorf("%s: %w", info.Path, ErrKeyRequired)
	}
	if info.IsCompressed() && !codec.Supported(info.Compression) {
		return nil, fmt.Errorf("%s: %w: %s", info.Path, codec.ErrUnsupported, info.Compression)
	}
	if info.Size < 0 || info.UncompressedSize < 0 || info.Offset < 0 || info.Offset > r.size {
		return nil, fmt.Errorf("%w: %s: negative or out of range fields", ErrInvalidEntry, info.Path)
	}
	if info.IsCompressed() && info.BlockSize > maxBlockSize {
		return nil, fmt.Errorf("%w: %s: block size %d", ErrInvalidEntry, info.Path, info.BlockSize)
	}

	ranges, err := r.payloadRanges(&info)
	if err != nil {
		return nil, err
	}
	if info.Encrypted {
		if err := r.verifyEncrypted(&info, ranges); err != nil {
			return nil, err
		}
	}

	return &entryReader{r: r, info: info, ranges: ranges, remaining: info.UncompressedSize}, nil
}

// payloadRanges returns absolute [start, end) ranges of stored payload parts.
func (r *Reader) payloadRanges(info *EntryInfo) ([]Block, error) {
	if !info.IsCompressed() {
		start := info.Offset + serializedEntrySize(r.layout, false, 0)
		return []Block{{Start: start, End: start + info.Size}}, nil
	}

	if len(info.Blocks) == 0 {
		if r.layout.version >= VersionCompressionEncryption {
			return nil, nil
		}

		base := info.Offset + serializedEntrySize(r.layout, true, 0)
		return []Block{{Start: base, End: base + info.Size}}, nil
	}

	out := make([]Block, 0, len(info.Blocks))
	for i, b := range info.Blocks {
		if r.layout.version >= VersionRelativeChunkOffsets {
			b.Start += info.Offset
			b.End += info.Offset
		}
		if b.End < b.Start {
			return nil, fmt.Errorf("%w: %s: block %d has negative size", ErrInvalidEntry, info.Path, i)
		}

		out = append(out, b)
	}

	return out, nil
}

// entryHash returns the expected payload hash from the index or the in-data record.
func (r *Reader) entryHash(info *EntryInfo) ([hashSize]byte, error) {
	if info.Hash != ([hashSize]byte{}) {
		return info.Hash, nil
	}

	var sum [hashSize]byte
	off := info.Offset + entryHashOffset(r.layout)
	if off+hashSize > r.size {
		return sum, fmt.Errorf("%w: %s: entry record outside file", ErrInvalidEntry, info.Path)
	}

	buf, err := uebin.ReadFull(r.ra, off, hashSize)
	if err != nil {
		return sum, fmt.Errorf("read %s: %w", info.Path, err)
	}

	copy(sum[:], buf)
	return sum, nil
}

// verifyEncrypted checks the decrypted payload of an encrypted entry against its SHA1.
// Packers hash either the plain or the stored bytes, so both forms are accepted.
// A zero hash is not checked.
func (r *Reader) verifyEncrypted(info *EntryInfo, parts []Block) error {
	if len(parts) == 0 {
		return nil
	}

	want, err := r.entryHash(info)
	if err != nil {
		return err
	}
	if want == ([hashSize]byte{}) {
		return nil
	}

	plain := sha1.New()  //nolint:gosec // pak format requires SHA1.
	stored := sha1.New() //nolint:gosec // pak format requires SHA1.
	for _, b := range parts {
		n := b.End - b.Start
		readLen := uebin.Align(n)
		if b.Start < 0 || b.Start+readLen > r.size {
			return fmt.Errorf("%w: %s: range %d+%d outside file", ErrInvalidEntry, info.Path, b.Start, readLen)
		}

		buf, err := uebin.ReadFull(r.ra, b.Start, readLen)
		if err != nil {
			return fmt.Errorf("read %s: %w", info.Path, err)
		}

		_, _ = stored.Write(buf)
		if err := uebin.DecryptECB(r.block, buf); err != nil {
			return fmt.Errorf("decrypt %s: %w", info.Path, err)
		}
		_, _ = plain.Write(buf[:n])
	}

	if bytes.Equal(plain.Sum(nil), want[:]) || bytes.Equal(stored.Sum(nil), want[:]) {
		return nil
	}

	return fmt.Errorf("%w: %s: payload hash mismatch", ErrInvalidKey, info.Path)
}

// entryReader decodes one entry payload lazily, one block per refill.
type entryReader struct {
	r         *Reader
	info      EntryInfo
	ranges    []Block
	buf       []byte
	block     int
	remaining int64
	done      bool
}

// Read implements io.Reader.
func (er *entryReader) Read(p []byte) (int, error) {
	for len(er.buf) == 0 {
		if er.remaining == 0 || er.done {
			return 0, io.EOF
		}
		if err := er.fill(); err != nil {
			return 0, err
		}
	}

	n := copy(p, er.buf)
	er.buf = er.buf[n:]
	return n, nil
}

// Close releases buffered block data.
func (er *entryReader) Close() error {
	er.buf = nil
	er.done = true
	return nil
}

// fill decodes next chunk of payload into buffer.
func (er *entryReader) fill() error {
	info := &er.info
	if !info.IsCompressed() {
		er.done = true
		data, err := er.r.readRange(info, er.ranges[0].Start, info.Size)
		if err != nil {
			return err
		}
		if int64(len(data)) < info.UncompressedSize {
			return fmt.Errorf("%w: %s: payload shorter than declared size", ErrInvalidEntry, info.Path)
		}

		er.buf = data[:info.UncompressedSize]
		er.remaining = 0
		return nil
	}

	if er.block >= len(er.ranges) {
		return fmt.Errorf("%w: %s: %d bytes missing after last block", ErrInvalidEntry, info.Path, er.remaining)
	}

	b := er.ranges[er.block]
	er.block++

	raw, err := er.r.readRange(info, b.Start, b.End-b.Start)
	if err != nil {
		return err
	}

	want := er.remaining
	if info.BlockSize > 0 && int64(info.BlockSize) < want {
		want = int64(info.BlockSize)
	}

	limit := int64(maxBlockSize)
	if len(info.Blocks) == 0 {
		limit = max(limit, int64(len(raw))*maxDeflateRatio)
	}
	if want > limit {
		return fmt.Errorf("%w: %s: block %d decompresses to %d bytes", ErrInvalidEntry, info.Path, er.block-1, want)
	}

	out, err := codec.Decompress(info.Compression, raw, int(want))
	if err != nil {
		return fmt.Errorf("%s: block %d: %w", info.Path, er.block-1, err)
	}

	er.buf = out
	er.remaining -= int64(len(out))
	return nil
}

// readRange reads [start, start+n) and decrypts it when entry is encrypted.
func (r *Reader) readRange(info *EntryInfo, start int64, n int64) ([]byte, error) {
	readLen := n
	if info.Encrypted {
		readLen = uebin.Align(n)
	}
	if start < 0 || readLen < 0 || start+readLen > r.size {
		return nil, fmt.Errorf("%w: %s: range %d+%d outside file", ErrInvalidEntry, info.Path, start, readLen)
	}

	buf, err := uebin.ReadFull(r.ra, start, readLen)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", info.Path, err)
	}

	if info.Encrypted {
		if err := uebin.DecryptECB(r.block, buf); err != nil {
			return nil, fmt.Errorf("decrypt %s: %w", info.Path, err)
		}
	}

	return buf[:n], nil
}
