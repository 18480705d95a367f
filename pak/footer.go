// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package pak

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/woozymasta/uepak/codec"
	"github.com/woozymasta/uepak/internal/uebin"
)

// layout identifies one footer/entry serialization variant.
type layout struct {
	version Version
	// methodSlots is number of 32-byte compression name slots (v8+).
	methodSlots int
	// v8a marks early v8 with 4 method slots and one-byte entry compression field.
	v8a bool
}

// footerLayouts are tried newest first; v8 has two variants with different slot count.
var footerLayouts = []layout{
	{version: VersionFnv64BugFix, methodSlots: 5},
	{version: VersionPathHashIndex, methodSlots: 5},
	{version: VersionFrozenIndex, methodSlots: 5},
	{version: VersionFNameBasedCompression, methodSlots: 5},
	{version: VersionFNameBasedCompression, methodSlots: 4, v8a: true},
	{version: VersionEncryptionKeyGUID},
	{version: VersionDeleteRecords},
	{version: VersionRelativeChunkOffsets},
	{version: VersionIndexEncryption},
	{version: VersionCompressionEncryption},
	{version: VersionNoTimestamps},
	{version: VersionInitial},
}

// footerSize returns serialized footer length for layout.
func (l layout) footerSize() int64 {
	size := int64(4 + 4 + 8 + 8 + hashSize) // magic, version, index offset, index size, index hash
	if l.version >= VersionEncryptionKeyGUID {
		size += guidSize
	}
	if l.version >= VersionIndexEncryption {
		size++
	}
	if l.version == VersionFrozenIndex {
		size++
	}

	return size + int64(l.methodSlots*compressionNameLength)
}

// magicOffset returns offset of magic inside serialized footer.
func (l layout) magicOffset() int {
	off := 0
	if l.version >= VersionEncryptionKeyGUID {
		off += guidSize
	}
	if l.version >= VersionIndexEncryption {
		off++
	}

	return off
}

// readFooter tries supported footer layouts from the end of file.
func readFooter(ra io.ReaderAt, size int64) (Footer, layout, error) {
	for _, l := range footerLayouts {
		fs := l.footerSize()
		if size < fs {
			continue
		}

		buf, err := uebin.ReadFull(ra, size-fs, fs)
		if err != nil {
			return Footer{}, layout{}, fmt.Errorf("read footer: %w", err)
		}

		mo := l.magicOffset()
		if binary.LittleEndian.Uint32(buf[mo:mo+4]) != Magic {
			continue
		}

		stored := Version(binary.LittleEndian.Uint32(buf[mo+4 : mo+8]))
		if stored != l.version {
			continue
		}

		footer, err := decodeFooter(buf, l)
		if err != nil {
			return Footer{}, layout{}, err
		}

		return footer, l, nil
	}

	return Footer{}, layout{}, ErrInvalidMagic
}

// decodeFooter decodes footer fields for a layout whose magic and version already matched.
func decodeFooter(buf []byte, l layout) (Footer, error) {
	d := uebin.NewDecoder(buf)
	var footer Footer

	if l.version >= VersionEncryptionKeyGUID {
		copy(footer.EncryptionKeyGUID[:], d.Bytes(guidSize))
	}
	if l.version >= VersionIndexEncryption {
		footer.EncryptedIndex = d.U8() != 0
	}

	d.Skip(4) // magic
	footer.Version = Version(d.U32())
	footer.IndexOffset = int64(d.U64()) //nolint:gosec // bounds validated below
	footer.IndexSize = int64(d.U64())   //nolint:gosec // bounds validated below
	copy(footer.IndexHash[:], d.Bytes(hashSize))

	if l.version == VersionFrozenIndex {
		footer.Frozen = d.U8() != 0
	}

	// Slots stay positional: entries reference methods by slot index.
	last := -1
	methods := make([]codec.Method, 0, l.methodSlots)
	for i := 0; i < l.methodSlots; i++ {
		slot := d.Bytes(compressionNameLength)
		name := strings.TrimRight(string(slot), "\x00")
		if name == "" {
			methods = append(methods, codec.MethodNone)
			continue
		}

		method, err := codec.ParseMethod(name)
		if err != nil {
			method = codec.Method(name)
		}

		methods = append(methods, method)
		last = i
	}
	if last >= 0 {
		footer.CompressionMethods = methods[:last+1]
	}

	if err := d.Err(); err != nil {
		return Footer{}, fmt.Errorf("%w: footer: %w", ErrCorruptIndex, err)
	}

	return footer, nil
}

// ReadFooter reads only footer metadata from a random-access source.
func ReadFooter(ra io.ReaderAt, size int64) (Footer, error) {
	if ra == nil {
		return Footer{}, ErrNilReader
	}

	footer, _, err := readFooter(ra, size)
	return footer, err
}
