// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package iostore

import (
	"encoding/hex"
	"fmt"

	"github.com/woozymasta/uepak/codec"
)

// Magic is the 16-byte signature at the start of every .utoc file.
const Magic = "-==--==--==--==-"

// Version is the toc header version.
type Version uint8

// Toc versions.
const (
	VersionInitial                      Version = 1
	VersionDirectoryIndex               Version = 2
	VersionPartitionSize                Version = 3
	VersionPerfectHash                  Version = 4
	VersionPerfectHashWithOverflow      Version = 5
	VersionOnDemandMetaData             Version = 6
	VersionRemovedOnDemandMetaData      Version = 7
	VersionReplaceIoChunkHashWithIoHash Version = 8
)

// VersionLatest is the newest supported version.
const VersionLatest = VersionReplaceIoChunkHashWithIoHash

// Flags are container flags stored in toc header.
type Flags uint8

// Container flags.
const (
	FlagCompressed Flags = 1 << 0
	FlagEncrypted  Flags = 1 << 1
	FlagSigned     Flags = 1 << 2
	FlagIndexed    Flags = 1 << 3
	FlagOnDemand   Flags = 1 << 4
)

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Layout constants.
const (
	headerSize          = 144
	headerFlagsOffset   = 80
	chunkIDSize         = 12
	offsetLengthSize    = 10
	blockEntrySize      = 12
	methodNameLength    = 32
	blockSignatureSize  = 20
	noneIndex           = 0xFFFFFFFF
	maxUncompressedSize = 1 << 24
)

// ChunkType is the kind of data stored in a chunk.
type ChunkType uint8

// Known chunk types.
const (
	ChunkInvalid ChunkType = iota
	ChunkExportBundleData
	ChunkBulkData
	ChunkOptionalBulkData
	ChunkMemoryMappedBulkData
	ChunkScriptObjects
	ChunkContainerHeader
	ChunkExternalFile
	ChunkShaderCodeLibrary
	ChunkShaderCode
	ChunkPackageStoreEntry
	ChunkDerivedData
	ChunkEditorDerivedData
	ChunkPackageResource
)

var chunkTypeNames = [...]string{
	"Invalid", "ExportBundleData", "BulkData", "OptionalBulkData", "MemoryMappedBulkData",
	"ScriptObjects", "ContainerHeader", "ExternalFile", "ShaderCodeLibrary", "ShaderCode",
	"PackageStoreEntry", "DerivedData", "EditorDerivedData", "PackageResource",
}

// String returns chunk type name.
func (t ChunkType) String() string {
	if int(t) < len(chunkTypeNames) {
		return chunkTypeNames[t]
	}

	return fmt.Sprintf("ChunkType(%d)", uint8(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t ChunkType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ChunkID identifies one chunk in the container.
type ChunkID [chunkIDSize]byte

// Type returns chunk type stored in the last byte.
func (id ChunkID) Type() ChunkType {
	return ChunkType(id[chunkIDSize-1])
}

// String returns lowercase hex form.
func (id ChunkID) String() string {
	return hex.EncodeToString(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id ChunkID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// Header is the parsed fixed-size toc header.
type Header struct {
	Version                  Version  `json:"version"`
	EntryCount               uint32   `json:"entry_count"`
	CompressedBlockCount     uint32   `json:"compressed_block_count"`
	CompressedBlockSize      uint32   `json:"-"`
	MethodNameCount          uint32   `json:"-"`
	MethodNameLength         uint32   `json:"-"`
	CompressionBlockSize     uint32   `json:"compression_block_size"`
	DirectoryIndexSize       uint32   `json:"directory_index_size"`
	PartitionCount           uint32   `json:"partition_count"`
	ContainerID              uint64   `json:"container_id"`
	EncryptionKeyGUID        [16]byte `json:"-"`
	Flags                    Flags    `json:"flags"`
	PerfectHashSeedsCount    uint32   `json:"-"`
	PartitionSize            uint64   `json:"partition_size"`
	ChunksWithoutPerfectHash uint32   `json:"-"`
}

// Block is one compression block record.
type Block struct {
	// Offset is absolute offset across all partitions.
	Offset uint64
	// CompressedSize is stored size without AES padding.
	CompressedSize uint32
	// UncompressedSize is block size after decompression.
	UncompressedSize uint32
	// Method is index into compression method names; zero means none.
	Method uint8
}

// ChunkInfo describes one chunk and its location in uncompressed container space.
type ChunkInfo struct {
	ID     ChunkID   `json:"id"`
	Type   ChunkType `json:"type"`
	Offset uint64    `json:"offset"`
	Size   uint64    `json:"size"`
	// Index is position in toc chunk arrays.
	Index int `json:"-"`
}

// EntryInfo describes one named file from the directory index.
type EntryInfo struct {
	// Path is file path relative to the mount point.
	Path string `json:"path"`
	// ChunkID identifies payload chunk.
	ChunkID ChunkID `json:"chunk_id"`
	// Type is chunk type.
	Type ChunkType `json:"type"`
	// Size is uncompressed payload size.
	Size uint64 `json:"size"`
	// CompressedSize is sum of stored block sizes covering the chunk.
	CompressedSize uint64 `json:"compressed_size"`
	// Compression is method of the first covering block.
	Compression codec.Method `json:"compression,omitempty"`
	// Partition is .ucas partition index of the first covering block.
	Partition int `json:"partition"`
	// Encrypted reports whether payload blocks are encrypted.
	Encrypted bool `json:"encrypted,omitempty"`

	chunk int
}

// ReaderOptions configures toc parsing.
type ReaderOptions struct {
	// Key is raw 32-byte AES-256 key; nil for unencrypted containers.
	Key []byte `json:"-"`
}

// Listing is JSON view of a container.
type Listing struct {
	Header             Header         `json:"header"`
	MountPoint         string         `json:"mount_point"`
	CompressionMethods []codec.Method `json:"compression_methods,omitempty"`
	Entries            []EntryInfo    `json:"entries"`
}
