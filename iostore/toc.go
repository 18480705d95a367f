// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package iostore

import (
	"fmt"
	"math"
	"strings"

	"github.com/woozymasta/uepak/codec"
	"github.com/woozymasta/uepak/internal/uebin"
)

// toc is decoded .utoc content except the directory index payload.
type toc struct {
	header  Header
	ids     []ChunkID
	offsets [][2]uint64 // offset, length in uncompressed container space
	blocks  []Block
	methods []codec.Method
	// dirIndex is raw (possibly encrypted) directory index bytes.
	dirIndex []byte
}

// parseToc decodes header and fixed toc sections.
func parseToc(buf []byte) (*toc, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidMagic, len(buf))
	}
	if string(buf[:len(Magic)]) != Magic {
		return nil, ErrInvalidMagic
	}

	d := uebin.NewDecoder(buf)
	d.Skip(len(Magic))

	var h Header
	h.Version = Version(d.U8())
	d.Skip(1 + 2) // reserved
	tocHeaderSize := d.U32()
	h.EntryCount = d.U32()
	h.CompressedBlockCount = d.U32()
	h.CompressedBlockSize = d.U32()
	h.MethodNameCount = d.U32()
	h.MethodNameLength = d.U32()
	h.CompressionBlockSize = d.U32()
	h.DirectoryIndexSize = d.U32()
	h.PartitionCount = d.U32()
	h.ContainerID = d.U64()
	copy(h.EncryptionKeyGUID[:], d.Bytes(16))
	h.Flags = Flags(d.U8())
	d.Skip(1 + 2) // reserved
	h.PerfectHashSeedsCount = d.U32()
	h.PartitionSize = d.U64()
	h.ChunksWithoutPerfectHash = d.U32()

	if h.Version < VersionInitial || h.Version > VersionLatest {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if tocHeaderSize != headerSize {
		return nil, fmt.Errorf("%w: header size %d", ErrCorruptToc, tocHeaderSize)
	}
	if h.CompressedBlockCount > 0 && h.CompressedBlockSize != blockEntrySize {
		return nil, fmt.Errorf("%w: block entry size %d", ErrCorruptToc, h.CompressedBlockSize)
	}
	if h.Version < VersionPartitionSize || h.PartitionCount == 0 {
		h.PartitionCount = 1
		h.PartitionSize = math.MaxUint64
	}
	if h.Version < VersionPerfectHash {
		h.PerfectHashSeedsCount = 0
	}
	if h.Version < VersionPerfectHashWithOverflow {
		h.ChunksWithoutPerfectHash = 0
	}

	d.Seek(headerSize)
	t := &toc{header: h}

	t.ids = make([]ChunkID, 0, boundedCount(h.EntryCount, chunkIDSize, d.Len()))
	for i := uint32(0); i < h.EntryCount && d.Err() == nil; i++ {
		var id ChunkID
		copy(id[:], d.Bytes(chunkIDSize))
		t.ids = append(t.ids, id)
	}

	t.offsets = make([][2]uint64, 0, boundedCount(h.EntryCount, offsetLengthSize, d.Len()))
	for i := uint32(0); i < h.EntryCount && d.Err() == nil; i++ {
		raw := d.Bytes(offsetLengthSize)
		if raw == nil {
			break
		}
		t.offsets = append(t.offsets, [2]uint64{uint40BE(raw[:5]), uint40BE(raw[5:])})
	}

	d.Skip(int(h.PerfectHashSeedsCount) * 4)
	d.Skip(int(h.ChunksWithoutPerfectHash) * 4)

	t.blocks = make([]Block, 0, boundedCount(h.CompressedBlockCount, blockEntrySize, d.Len()))
	for i := uint32(0); i < h.CompressedBlockCount && d.Err() == nil; i++ {
		raw := d.Bytes(blockEntrySize)
		if raw == nil {
			break
		}
		t.blocks = append(t.blocks, decodeBlock(raw))
	}

	for i := uint32(0); i < h.MethodNameCount && d.Err() == nil; i++ {
		name := strings.TrimRight(string(d.Bytes(int(h.MethodNameLength))), "\x00")
		method, err := codec.ParseMethod(name)
		if err != nil {
			method = codec.Method(name)
		}
		t.methods = append(t.methods, method)
	}

	if h.Flags.Has(FlagSigned) {
		hashSize := d.I32()
		if hashSize < 0 {
			return nil, fmt.Errorf("%w: signature size %d", ErrCorruptToc, hashSize)
		}
		d.Skip(int(hashSize) * 2) // toc and block signatures
		d.Skip(int(h.CompressedBlockCount) * blockSignatureSize)
	}

	if h.Version >= VersionDirectoryIndex && h.Flags.Has(FlagIndexed) && h.DirectoryIndexSize > 0 {
		t.dirIndex = d.Bytes(int(h.DirectoryIndexSize))
	}

	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptToc, err)
	}

	return t, nil
}

// boundedCount caps preallocation by remaining buffer length.
func boundedCount(n uint32, elem int, remaining int) int {
	if limit := remaining / elem; int64(n) > int64(limit) {
		return limit
	}

	return int(n)
}

// uint40BE decodes 5-byte big-endian integer.
func uint40BE(b []byte) uint64 {
	return uint64(b[0])<<32 | uint64(b[1])<<24 | uint64(b[2])<<16 | uint64(b[3])<<8 | uint64(b[4])
}

// decodeBlock decodes 12-byte compression block record.
func decodeBlock(b []byte) Block {
	return Block{
		Offset: uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 |
			uint64(b[3])<<24 | uint64(b[4])<<32,
		CompressedSize:   uint32(b[5]) | uint32(b[6])<<8 | uint32(b[7])<<16,
		UncompressedSize: uint32(b[8]) | uint32(b[9])<<8 | uint32(b[10])<<16,
		Method:           b[11],
	}
}

// method resolves block method index to codec method.
func (t *toc) method(b Block) (codec.Method, error) {
	if b.Method == 0 {
		return codec.MethodNone, nil
	}
	if int(b.Method) > len(t.methods) {
		return "", fmt.Errorf("%w: compression method %d not declared", ErrCorruptToc, b.Method)
	}

	return t.methods[b.Method-1], nil
}

// chunkBlocks returns block index range covering chunk i.
func (t *toc) chunkBlocks(i int) (first, last int, err error) {
	off, size := t.offsets[i][0], t.offsets[i][1]
	bs := uint64(t.header.CompressionBlockSize)
	if size == 0 {
		return 0, -1, nil
	}
	if bs == 0 {
		return 0, 0, fmt.Errorf("%w: zero compression block size", ErrCorruptToc)
	}

	first = int(off / bs)             //nolint:gosec // bounded by block count check
	last = int((off + size - 1) / bs) //nolint:gosec // bounded by block count check
	if last >= len(t.blocks) || first < 0 {
		return 0, 0, fmt.Errorf("%w: chunk %d spans blocks %d..%d of %d", ErrInvalidChunk, i, first, last, len(t.blocks))
	}

	return first, last, nil
}
