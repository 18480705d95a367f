// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package pak

import (
	"bytes"
	"crypto/cipher"
	"crypto/sha1" //nolint:gosec // pak format requires SHA1.
	"fmt"
	"io"
	"strings"

	"github.com/woozymasta/uepak/codec"
	"github.com/woozymasta/uepak/internal/uebin"
)

// Encoded entry bit layout for versions >= VersionPathHashIndex.
const (
	encodedBlockSizeMask  = 0x3f
	encodedBlockSizeShift = 11
	encodedBlockCountBits = 6
	encodedBlockCountMask = 0xffff
	encodedEncryptedBit   = 22
	encodedMethodShift    = 23
	encodedMethodMask     = 0x3f
	encodedSize32Bit      = 29
	encodedUSize32Bit     = 30
	encodedOffset32Bit    = 31
)

// indexResult is decoded primary index content.
type indexResult struct {
	mountPoint string
	entries    []EntryInfo
}

// readIndexRegion reads, decrypts and optionally verifies one index region.
func readIndexRegion(
	ra io.ReaderAt,
	fileSize int64,
	offset int64,
	size int64,
	encrypted bool,
	block cipher.Block,
	wantHash *[hashSize]byte,
) ([]byte, error) {
	if offset < 0 || size < 0 || offset+size > fileSize || offset+size < offset {
		return nil, fmt.Errorf("%w: index range %d+%d outside file of %d bytes", ErrCorruptIndex, offset, size, fileSize)
	}

	buf, err := uebin.ReadFull(ra, offset, size)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	if encrypted {
		if block == nil {
			return nil, ErrKeyRequired
		}
		if err := uebin.DecryptECB(block, buf); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptIndex, err)
		}
	}

	if wantHash != nil {
		if sum := sha1.Sum(buf); !bytes.Equal(sum[:], wantHash[:]) { //nolint:gosec // pak format requires SHA1.
			if encrypted {
				return nil, ErrInvalidKey
			}

			return nil, ErrIndexHashMismatch
		}
	}

	return buf, nil
}

// parseIndex decodes primary index and, for v10+, the full directory index.
func parseIndex(
	ra io.ReaderAt,
	fileSize int64,
	footer Footer,
	l layout,
	block cipher.Block,
	verify bool,
) (indexResult, error) {
	if footer.Frozen {
		return indexResult{}, ErrFrozenIndex
	}

	var wantHash *[hashSize]byte
	if footer.EncryptedIndex || verify {
		wantHash = &footer.IndexHash
	}

	buf, err := readIndexRegion(ra, fileSize, footer.IndexOffset, footer.IndexSize, footer.EncryptedIndex, block, wantHash)
	if err != nil {
		return indexResult{}, err
	}

	d := uebin.NewDecoder(buf)
	res := indexResult{mountPoint: d.FString()}
	if l.version < VersionPathHashIndex {
		res.entries, err = parseLegacyEntries(d, footer, l)
	} else {
		res.entries, err = parsePathHashIndex(ra, fileSize, d, footer, l, block, verify)
	}
	if err != nil {
		return indexResult{}, err
	}

	return res, nil
}

// parseLegacyEntries decodes name + entry records of indexes before v10.
func parseLegacyEntries(d *uebin.Decoder, footer Footer, l layout) ([]EntryInfo, error) {
	count := d.Count(1)
	entries := make([]EntryInfo, 0, count)
	for i := 0; i < count; i++ {
		name := d.FString()
		entry, err := readLegacyEntry(d, footer, l)
		if err != nil {
			return nil, err
		}
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrCorruptIndex, i, err)
		}

		entry.Path = name
		entries = append(entries, entry)
	}

	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptIndex, err)
	}

	return entries, nil
}

// readLegacyEntry decodes one serialized FPakEntry record.
func readLegacyEntry(d *uebin.Decoder, footer Footer, l layout) (EntryInfo, error) {
	var entry EntryInfo
	entry.Offset = int64(d.U64())           //nolint:gosec // validated on read
	entry.Size = int64(d.U64())             //nolint:gosec // validated on read
	entry.UncompressedSize = int64(d.U64()) //nolint:gosec // validated on read

	var rawMethod uint32
	if l.v8a {
		rawMethod = uint32(d.U8())
	} else {
		rawMethod = d.U32()
	}

	if l.version == VersionInitial {
		d.Skip(8) // timestamp
	}

	copy(entry.Hash[:], d.Bytes(hashSize))

	method, err := resolveMethod(footer, l, rawMethod)
	if err != nil {
		return EntryInfo{}, err
	}
	entry.Compression = method

	if l.version >= VersionCompressionEncryption {
		if entry.IsCompressed() {
			count := d.Count(16)
			entry.Blocks = make([]Block, 0, count)
			for i := 0; i < count; i++ {
				entry.Blocks = append(entry.Blocks, Block{
					Start: int64(d.U64()), //nolint:gosec // validated on read
					End:   int64(d.U64()), //nolint:gosec // validated on read
				})
			}
		}

		entry.Encrypted = d.U8()&entryFlagEncrypted != 0
		entry.BlockSize = d.U32()
	}

	return entry, nil
}

// resolveMethod maps stored compression field to codec method.
func resolveMethod(footer Footer, l layout, raw uint32) (codec.Method, error) {
	if raw == 0 {
		return codec.MethodNone, nil
	}

	if l.version < VersionFNameBasedCompression {
		switch {
		case raw&legacyFlagZlib != 0:
			return codec.MethodZlib, nil
		case raw&legacyFlagGzip != 0:
			return codec.MethodGzip, nil
		case raw&legacyFlagCustom != 0:
			return codec.MethodOodle, nil
		default:
			return "", fmt.Errorf("%w: compression flags 0x%x", ErrInvalidEntry, raw)
		}
	}

	idx := int(raw) - 1
	if idx >= len(footer.CompressionMethods) {
		return "", fmt.Errorf("%w: compression slot %d not declared in footer", ErrInvalidEntry, raw)
	}

	return footer.CompressionMethods[idx], nil
}

// parsePathHashIndex decodes v10+ primary index tail and resolves names from full directory index.
func parsePathHashIndex(
	ra io.ReaderAt,
	fileSize int64,
	d *uebin.Decoder,
	footer Footer,
	l layout,
	block cipher.Block,
	verify bool,
) ([]EntryInfo, error) {
	_ = d.U32() // entry count, names come from directory index
	d.Skip(8)   // path hash seed

	if d.U32() != 0 {
		d.Skip(8 + 8 + hashSize) // path hash index offset, size, hash
	}

	hasFDI := d.U32() != 0
	var fdiOffset, fdiSize int64
	var fdiHash [hashSize]byte
	if hasFDI {
		fdiOffset = int64(d.U64()) //nolint:gosec // validated on read
		fdiSize = int64(d.U64())   //nolint:gosec // validated on read
		copy(fdiHash[:], d.Bytes(hashSize))
	}

	encoded := d.Bytes(d.Count(1))
	plainCount := d.Count(1)
	plain := make([]EntryInfo, 0, plainCount)
	for i := 0; i < plainCount; i++ {
		entry, err := readLegacyEntry(d, footer, l)
		if err != nil {
			return nil, err
		}

		plain = append(plain, entry)
	}

	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptIndex, err)
	}

	if !hasFDI {
		return nil, ErrMissingDirectoryIndex
	}

	var wantHash *[hashSize]byte
	if verify {
		wantHash = &fdiHash
	}

	fdi, err := readIndexRegion(ra, fileSize, fdiOffset, fdiSize, footer.EncryptedIndex, block, wantHash)
	if err != nil {
		return nil, fmt.Errorf("directory index: %w", err)
	}

	return parseDirectoryIndex(fdi, encoded, plain, footer, l)
}

// parseDirectoryIndex walks directory -> file records in stored order.
func parseDirectoryIndex(fdi []byte, encoded []byte, plain []EntryInfo, footer Footer, l layout) ([]EntryInfo, error) {
	d := uebin.NewDecoder(fdi)
	dirCount := d.Count(1)
	entries := make([]EntryInfo, 0, dirCount)

	for i := 0; i < dirCount; i++ {
		dirName := d.FString()
		fileCount := d.Count(1)
		for j := 0; j < fileCount; j++ {
			fileName := d.FString()
			location := d.I32()
			if err := d.Err(); err != nil {
				return nil, fmt.Errorf("%w: directory index: %w", ErrCorruptIndex, err)
			}

			entry, err := resolveLocation(location, encoded, plain, footer, l)
			if err != nil {
				return nil, fmt.Errorf("%s%s: %w", dirName, fileName, err)
			}

			entry.Path = joinDirectoryPath(dirName, fileName)
			entries = append(entries, entry)
		}
	}

	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: directory index: %w", ErrCorruptIndex, err)
	}

	return entries, nil
}

// joinDirectoryPath builds entry path from directory index names.
func joinDirectoryPath(dir string, file string) string {
	dir = strings.TrimPrefix(dir, "/")
	if dir != "" && !strings.HasSuffix(dir, "/") {
		dir += "/"
	}

	return dir + file
}

// resolveLocation maps FDI entry location to encoded (>= 0) or plain (< 0) entry.
func resolveLocation(location int32, encoded []byte, plain []EntryInfo, footer Footer, l layout) (EntryInfo, error) {
	if location < 0 {
		idx := -int(location) - 1
		if idx >= len(plain) {
			return EntryInfo{}, fmt.Errorf("%w: plain entry %d out of range", ErrCorruptIndex, idx)
		}

		return plain[idx], nil
	}

	if int(location) >= len(encoded) {
		return EntryInfo{}, fmt.Errorf("%w: encoded entry offset %d out of range", ErrCorruptIndex, location)
	}

	d := uebin.NewDecoder(encoded)
	d.Seek(int(location))
	return decodeEncodedEntry(d, footer, l)
}

// decodeEncodedEntry decodes one bit-packed entry record.
func decodeEncodedEntry(d *uebin.Decoder, footer Footer, l layout) (EntryInfo, error) {
	bits := d.U32()

	var entry EntryInfo
	method, err := resolveMethod(footer, l, (bits>>encodedMethodShift)&encodedMethodMask)
	if err != nil {
		return EntryInfo{}, err
	}
	entry.Compression = method
	entry.Encrypted = bits&(1<<encodedEncryptedBit) != 0

	blockCount := (bits >> encodedBlockCountBits) & encodedBlockCountMask
	blockSize := bits & encodedBlockSizeMask
	if blockSize == encodedBlockSizeMask {
		blockSize = d.U32()
	} else {
		blockSize <<= encodedBlockSizeShift
	}
	entry.BlockSize = blockSize

	varInt := func(bit uint) int64 {
		if bits&(1<<bit) != 0 {
			return int64(d.U32())
		}

		return int64(d.U64()) //nolint:gosec // validated on read
	}

	entry.Offset = varInt(encodedOffset32Bit)
	entry.UncompressedSize = varInt(encodedUSize32Bit)
	entry.Size = entry.UncompressedSize
	if entry.IsCompressed() {
		entry.Size = varInt(encodedSize32Bit)
	}

	base := serializedEntrySize(l, entry.IsCompressed(), int(blockCount))
	switch {
	case blockCount == 1 && !entry.Encrypted:
		entry.Blocks = []Block{{Start: base, End: base + entry.Size}}
	case blockCount > 0:
		entry.Blocks = make([]Block, 0, blockCount)
		cursor := base
		for i := uint32(0); i < blockCount; i++ {
			size := int64(d.U32())
			entry.Blocks = append(entry.Blocks, Block{Start: cursor, End: cursor + size})
			if entry.Encrypted {
				size = uebin.Align(size)
			}
			cursor += size
		}
	}

	if err := d.Err(); err != nil {
		return EntryInfo{}, fmt.Errorf("%w: encoded entry: %w", ErrCorruptIndex, err)
	}

	return entry, nil
}

// entryHashOffset returns position of the SHA1 field inside a serialized entry header.
func entryHashOffset(l layout) int64 {
	size := int64(8 + 8 + 8) // offset, size, uncompressed size
	if l.v8a {
		size++
	} else {
		size += 4
	}
	if l.version == VersionInitial {
		size += 8
	}

	return size
}

// serializedEntrySize returns size of the entry header stored in front of payload data.
func serializedEntrySize(l layout, compressed bool, blockCount int) int64 {
	size := entryHashOffset(l) + hashSize
	if l.version >= VersionCompressionEncryption {
		if compressed {
			size += 4 + 16*int64(blockCount)
		}

		size += 1 + 4 // flags, block size
	}

	return size
}
