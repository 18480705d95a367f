// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package uepak

import (
	"fmt"

	"github.com/woozymasta/uepak/codec"
)

// DefaultStripPrefix is the UE mount-point prefix removed from entry paths on extraction.
const DefaultStripPrefix = "../../../"

// ContainerKind identifies one supported container format.
type ContainerKind uint8

// Supported container kinds.
const (
	// KindUnknown is the zero value.
	KindUnknown ContainerKind = iota
	// KindPak is a classic monolithic .pak container.
	KindPak
	// KindIoStore is a split .utoc index with .ucas payload partitions.
	KindIoStore
)

// String returns the canonical kind name.
func (k ContainerKind) String() string {
	switch k {
	case KindPak:
		return "pak"
	case KindIoStore:
		return "iostore"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ContainerKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// OutputFormat selects listing output rendering.
type OutputFormat string

// Listing output formats.
const (
	// FormatText renders one asset path per line.
	FormatText OutputFormat = "text"
	// FormatJSON renders a JSON array or object.
	FormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates s; empty means FormatText.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: output format %q", ErrInvalidArgument, s)
	}
}

// StripPolicy controls entries that do not start with the strip prefix.
type StripPolicy uint8

// Strip policies.
const (
	// StripKeepUnmatched writes unmatched entries under their original path.
	StripKeepUnmatched StripPolicy = iota
	// StripRejectUnmatched fails extraction with ErrInvalidArgument on the first unmatched entry.
	StripRejectUnmatched
)

// EntryInfo describes one container entry for detailed listings.
type EntryInfo struct {
	// Path is the mount-point-qualified asset path.
	Path AssetPath `json:"path" yaml:"path"`
	// Size is uncompressed size in bytes.
	Size int64 `json:"size" yaml:"size"`
	// CompressedSize is stored size in bytes.
	CompressedSize int64 `json:"compressed_size" yaml:"compressed_size"`
	// Compression is the codec declared by the container for this entry.
	Compression codec.Method `json:"compression,omitempty" yaml:"compression,omitempty"`
	// Encrypted reports AES encrypted payload.
	Encrypted bool `json:"encrypted,omitempty" yaml:"encrypted,omitempty"`

	name string // container-native name used for reads
}

// ContainerInfo summarizes one opened container.
type ContainerInfo struct {
	// Path is the container index file.
	Path string `json:"path" yaml:"path"`
	// Kind is the container format.
	Kind ContainerKind `json:"kind" yaml:"kind"`
	// Version is the format version number.
	Version uint32 `json:"version" yaml:"version"`
	// MountPoint is the prefix of every entry path.
	MountPoint string `json:"mount_point" yaml:"mount_point"`
	// Entries is the named entry count.
	Entries int `json:"entries" yaml:"entries"`
	// Encrypted reports encrypted index or payload.
	Encrypted bool `json:"encrypted" yaml:"encrypted"`
	// CompressionMethods are codecs declared by the container.
	CompressionMethods []codec.Method `json:"compression_methods,omitempty" yaml:"compression_methods,omitempty"`
	// Partitions is the .ucas partition count; zero for pak.
	Partitions int `json:"partitions,omitempty" yaml:"partitions,omitempty"`
}

// UnpackOptions is an immutable extraction configuration built by UnpackOptionsBuilder.
type UnpackOptions struct {
	key         *DecryptionKey
	include     *includeMatcher
	stripPrefix string
	patterns    []string
	policy      StripPolicy
	force       bool
	quiet       bool
	rawNames    bool
}

// Key returns the decryption key or nil.
func (o UnpackOptions) Key() *DecryptionKey { return o.key }

// StripPrefix returns the prefix removed from entry paths.
func (o UnpackOptions) StripPrefix() string { return o.stripPrefix }

// StripPolicy returns handling of entries outside the strip prefix.
func (o UnpackOptions) StripPolicy() StripPolicy { return o.policy }

// Force reports whether existing output files are overwritten.
func (o UnpackOptions) Force() bool { return o.force }

// Quiet reports whether per-entry logging is suppressed.
func (o UnpackOptions) Quiet() bool { return o.quiet }

// RawNames reports whether output name sanitization is disabled.
func (o UnpackOptions) RawNames() bool { return o.rawNames }

// Include returns a copy of the include globs.
func (o UnpackOptions) Include() []string { return append([]string(nil), o.patterns...) }

// ListOptions is an immutable listing configuration built by ListOptionsBuilder.
type ListOptions struct {
	key        *DecryptionKey
	format     OutputFormat
	sorted     bool
	assetsOnly bool
	quiet      bool
}

// Key returns the decryption key or nil.
func (o ListOptions) Key() *DecryptionKey { return o.key }

// Format returns output rendering format.
func (o ListOptions) Format() OutputFormat {
	if o.format == "" {
		return FormatText
	}

	return o.format
}

// Sorted reports whether output is sorted and deduplicated instead of native order.
func (o ListOptions) Sorted() bool { return o.sorted }

// AssetsOnly reports whether only recognized asset extensions are listed.
func (o ListOptions) AssetsOnly() bool { return o.assetsOnly }

// Quiet reports whether informational logging is suppressed.
func (o ListOptions) Quiet() bool { return o.quiet }
