// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package pak

import "github.com/woozymasta/uepak/codec"

// Magic is the footer signature of every pak file.
const Magic uint32 = 0x5A6F12E1

// Version is the pak footer format version.
type Version uint32

// Pak format versions.
const (
	VersionInitial               Version = 1
	VersionNoTimestamps          Version = 2
	VersionCompressionEncryption Version = 3
	VersionIndexEncryption       Version = 4
	VersionRelativeChunkOffsets  Version = 5
	VersionDeleteRecords         Version = 6
	VersionEncryptionKeyGUID     Version = 7
	VersionFNameBasedCompression Version = 8
	VersionFrozenIndex           Version = 9
	VersionPathHashIndex         Version = 10
	VersionFnv64BugFix           Version = 11
)

// VersionLatest is the newest supported version.
const VersionLatest = VersionFnv64BugFix

// Internal layout constants.
const (
	hashSize              = 20 // SHA1 digest size
	guidSize              = 16 // encryption key GUID size
	compressionNameLength = 32 // fixed footer slot per compression method name
	entryFlagEncrypted    = 0x01
	legacyFlagZlib        = 0x01
	legacyFlagGzip        = 0x02
	legacyFlagCustom      = 0x04
)

// Block is one compressed block range. Offsets are relative to entry offset
// for versions >= VersionRelativeChunkOffsets and absolute before that.
type Block struct {
	Start int64 `json:"start" yaml:"start"`
	End   int64 `json:"end" yaml:"end"`
}

// EntryInfo describes one parsed pak entry.
type EntryInfo struct {
	// Path is entry path relative to the pak mount point.
	Path string `json:"path" yaml:"path"`
	// Offset is absolute offset of the serialized in-data entry header.
	Offset int64 `json:"offset" yaml:"offset"`
	// Size is stored payload size in bytes.
	Size int64 `json:"size" yaml:"size"`
	// UncompressedSize is payload size after decompression.
	UncompressedSize int64 `json:"uncompressed_size" yaml:"uncompressed_size"`
	// Compression is declared payload compression method.
	Compression codec.Method `json:"compression,omitempty" yaml:"compression,omitempty"`
	// Blocks are compressed block ranges; empty for uncompressed entries.
	Blocks []Block `json:"blocks,omitempty" yaml:"blocks,omitempty"`
	// BlockSize is uncompressed size of one full block.
	BlockSize uint32 `json:"block_size,omitempty" yaml:"block_size,omitempty"`
	// Encrypted reports whether payload is AES encrypted.
	Encrypted bool `json:"encrypted,omitempty" yaml:"encrypted,omitempty"`
	// Hash is SHA1 of the stored payload as written by the packer.
	Hash [hashSize]byte `json:"-" yaml:"-"`
}

// IsCompressed reports whether the entry payload is block compressed.
func (e *EntryInfo) IsCompressed() bool {
	return e.Compression != "" && e.Compression != codec.MethodNone
}

// Footer is the parsed pak trailer.
type Footer struct {
	// Version is the pak format version.
	Version Version `json:"version" yaml:"version"`
	// EncryptionKeyGUID identifies the key used for encryption (zero for default key).
	EncryptionKeyGUID [guidSize]byte `json:"-" yaml:"-"`
	// EncryptedIndex reports whether the index is AES encrypted.
	EncryptedIndex bool `json:"encrypted_index" yaml:"encrypted_index"`
	// Frozen reports v9 frozen index layout.
	Frozen bool `json:"frozen,omitempty" yaml:"frozen,omitempty"`
	// IndexOffset is absolute offset of the primary index.
	IndexOffset int64 `json:"index_offset" yaml:"index_offset"`
	// IndexSize is size of the primary index in bytes.
	IndexSize int64 `json:"index_size" yaml:"index_size"`
	// IndexHash is SHA1 of the decrypted primary index.
	IndexHash [hashSize]byte `json:"-" yaml:"-"`
	// CompressionMethods are method names declared by footer slots (v8+).
	CompressionMethods []codec.Method `json:"compression_methods,omitempty" yaml:"compression_methods,omitempty"`
}

// ReaderOptions configures pak parsing.
type ReaderOptions struct {
	// Key is a raw 32-byte AES-256 key; nil for unencrypted paks.
	Key []byte `json:"-" yaml:"-"`
	// VerifyIndexHash checks SHA1 of unencrypted indexes too.
	// Encrypted indexes are always verified; a mismatch there means a wrong key.
	VerifyIndexHash bool `json:"verify_index_hash,omitempty" yaml:"verify_index_hash,omitempty"`
}
