// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package uepak

import "errors"

// errUnknownStripPolicy rejects StripPolicy values outside the declared set.
var errUnknownStripPolicy = errors.New("unknown strip policy")

// UnpackOptionsBuilder accumulates extraction settings; Build freezes them.
// Builder methods return the builder for chaining.
type UnpackOptionsBuilder struct {
	opts   UnpackOptions
	hexKey string
	hasKey bool
}

// NewUnpackOptionsBuilder returns a builder with default strip prefix.
func NewUnpackOptionsBuilder() *UnpackOptionsBuilder {
	return &UnpackOptionsBuilder{opts: UnpackOptions{stripPrefix: DefaultStripPrefix}}
}

// WithKey sets a parsed key.
func (b *UnpackOptionsBuilder) WithKey(key *DecryptionKey) *UnpackOptionsBuilder {
	b.opts.key = key
	b.hasKey = false
	return b
}

// WithHexKey sets a hex key to be parsed by Build.
func (b *UnpackOptionsBuilder) WithHexKey(hexKey string) *UnpackOptionsBuilder {
	b.hexKey = hexKey
	b.hasKey = hexKey != ""
	return b
}

// WithStripPrefix sets the prefix removed from entry paths; empty disables stripping.
func (b *UnpackOptionsBuilder) WithStripPrefix(prefix string) *UnpackOptionsBuilder {
	b.opts.stripPrefix = prefix
	return b
}

// WithStripPolicy sets handling of entries outside the strip prefix.
func (b *UnpackOptionsBuilder) WithStripPolicy(policy StripPolicy) *UnpackOptionsBuilder {
	b.opts.policy = policy
	return b
}

// WithForce enables overwriting existing output files.
func (b *UnpackOptionsBuilder) WithForce(force bool) *UnpackOptionsBuilder {
	b.opts.force = force
	return b
}

// WithQuiet suppresses per-entry logging.
func (b *UnpackOptionsBuilder) WithQuiet(quiet bool) *UnpackOptionsBuilder {
	b.opts.quiet = quiet
	return b
}

// WithRawNames disables output name sanitization.
func (b *UnpackOptionsBuilder) WithRawNames(raw bool) *UnpackOptionsBuilder {
	b.opts.rawNames = raw
	return b
}

// WithInclude appends include globs. An entry is extracted when any glob matches.
func (b *UnpackOptionsBuilder) WithInclude(patterns ...string) *UnpackOptionsBuilder {
	b.opts.patterns = append(b.opts.patterns, patterns...)
	return b
}

// Build validates the key and compiles include globs.
func (b *UnpackOptionsBuilder) Build() (UnpackOptions, error) {
	out := b.opts
	out.patterns = append([]string(nil), b.opts.patterns...)

	if b.hasKey {
		key, err := ParseKey(b.hexKey)
		if err != nil {
			return UnpackOptions{}, err
		}
		out.key = key
	}

	switch out.policy {
	case StripKeepUnmatched, StripRejectUnmatched:
	default:
		return UnpackOptions{}, &Error{Kind: ErrInvalidArgument, Op: "build options", Err: errUnknownStripPolicy}
	}

	m, err := newIncludeMatcher(out.patterns)
	if err != nil {
		return UnpackOptions{}, &Error{Kind: ErrInvalidArgument, Op: "build options", Err: err}
	}
	out.include = m

	return out, nil
}

// ListOptionsBuilder accumulates listing settings; Build freezes them.
type ListOptionsBuilder struct {
	opts   ListOptions
	hexKey string
	format string
	hasKey bool
}

// NewListOptionsBuilder returns a builder producing native-order text listings.
func NewListOptionsBuilder() *ListOptionsBuilder {
	return &ListOptionsBuilder{}
}

// WithKey sets a parsed key.
func (b *ListOptionsBuilder) WithKey(key *DecryptionKey) *ListOptionsBuilder {
	b.opts.key = key
	b.hasKey = false
	return b
}

// WithHexKey sets a hex key to be parsed by Build.
func (b *ListOptionsBuilder) WithHexKey(hexKey string) *ListOptionsBuilder {
	b.hexKey = hexKey
	b.hasKey = hexKey != ""
	return b
}

// WithFormat sets output format name ("text" or "json").
func (b *ListOptionsBuilder) WithFormat(format string) *ListOptionsBuilder {
	b.format = format
	return b
}

// WithSorted requests sorted, deduplicated output.
func (b *ListOptionsBuilder) WithSorted(sorted bool) *ListOptionsBuilder {
	b.opts.sorted = sorted
	return b
}

// WithAssetsOnly keeps only recognized asset extensions.
func (b *ListOptionsBuilder) WithAssetsOnly(assetsOnly bool) *ListOptionsBuilder {
	b.opts.assetsOnly = assetsOnly
	return b
}

// WithQuiet suppresses informational logging.
func (b *ListOptionsBuilder) WithQuiet(quiet bool) *ListOptionsBuilder {
	b.opts.quiet = quiet
	return b
}

// Build validates the key and output format.
func (b *ListOptionsBuilder) Build() (ListOptions, error) {
	out := b.opts

	if b.hasKey {
		key, err := ParseKey(b.hexKey)
		if err != nil {
			return ListOptions{}, err
		}
		out.key = key
	}

	format, err := ParseOutputFormat(b.format)
	if err != nil {
		return ListOptions{}, &Error{Kind: ErrInvalidArgument, Op: "build options", Err: err}
	}
	out.format = format

	return out, nil
}
