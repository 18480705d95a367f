// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

/*
Package codec provides block decompressors for container payloads.

Containers declare the algorithm per block or per entry; readers relay that
declaration through Decompress and never pick the algorithm themselves.

Built-in methods: Zlib, Gzip, Zstd, LZ4. Oodle is proprietary and has no Go
implementation, so it reports ErrUnsupported until a decoder is registered:

	codec.Register(codec.MethodOodle, func(src []byte, dstLen int) ([]byte, error) {
	    return myOodleBinding.Decompress(src, dstLen)
	})
*/
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Method names one block compression algorithm as declared by a container.
type Method string

// Known compression methods.
const (
	MethodNone  Method = "None"
	MethodZlib  Method = "Zlib"
	MethodGzip  Method = "Gzip"
	MethodOodle Method = "Oodle"
	MethodZstd  Method = "Zstd"
	MethodLZ4   Method = "LZ4"
)

var (
	// ErrUnsupported means no decoder is registered for the method.
	ErrUnsupported = errors.New("unsupported compression method")
	// ErrCorrupt means compressed data could not be decoded.
	ErrCorrupt = errors.New("corrupt compressed data")
	// ErrSizeMismatch means decoded size differs from declared size.
	ErrSizeMismatch = errors.New("decompressed size mismatch")
)

// Func decodes src into exactly dstLen bytes.
type Func func(src []byte, dstLen int) ([]byte, error)

var (
	registryMu sync.RWMutex
	registry   = map[Method]Func{
		MethodZlib: decompressZlib,
		MethodGzip: decompressGzip,
		MethodZstd: decompressZstd,
		MethodLZ4:  decompressLZ4,
	}

	// zstdDecoder is shared; DecodeAll is safe for concurrent use.
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	})
)

// ParseMethod resolves a method name as stored in container headers.
// Matching is case-insensitive and accepts common aliases; empty means MethodNone.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimRight(strings.TrimSpace(name), "\x00")) {
	case "", "none", "no", "uncompressed":
		return MethodNone, nil
	case "zlib", "deflate":
		return MethodZlib, nil
	case "gzip":
		return MethodGzip, nil
	case "oodle", "oodle2":
		return MethodOodle, nil
	case "zstd", "zstandard":
		return MethodZstd, nil
	case "lz4":
		return MethodLZ4, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, name)
	}
}

// Register installs or replaces decoder for method.
func Register(method Method, fn Func) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if fn == nil {
		delete(registry, method)
		return
	}

	registry[method] = fn
}

// Supported reports whether method can be decoded.
func Supported(method Method) bool {
	if method == MethodNone {
		return true
	}

	registryMu.RLock()
	defer registryMu.RUnlock()

	_, ok := registry[method]
	return ok
}

// Decompress decodes src with method into exactly dstLen bytes.
func Decompress(method Method, src []byte, dstLen int) ([]byte, error) {
	if dstLen < 0 {
		return nil, fmt.Errorf("%w: negative output size", ErrSizeMismatch)
	}

	if method == MethodNone {
		if len(src) < dstLen {
			return nil, fmt.Errorf("%w: have %d, want %d", ErrSizeMismatch, len(src), dstLen)
		}

		return src[:dstLen], nil
	}

	registryMu.RLock()
	fn, ok := registry[method]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, method)
	}

	out, err := fn(src, dstLen)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if len(out) != dstLen {
		return nil, fmt.Errorf("%s: %w: got %d, want %d", method, ErrSizeMismatch, len(out), dstLen)
	}

	return out, nil
}

// readExactly drains rc into a dstLen buffer.
func readExactly(rc io.ReadCloser, dstLen int) ([]byte, error) {
	defer func() { _ = rc.Close() }()

	out := make([]byte, dstLen)
	if _, err := io.ReadFull(rc, out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return out, nil
}

// decompressZlib decodes zlib stream.
func decompressZlib(src []byte, dstLen int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return readExactly(zr, dstLen)
}

// decompressGzip decodes gzip stream.
func decompressGzip(src []byte, dstLen int) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return readExactly(zr, dstLen)
}

// decompressZstd decodes one zstd frame sequence.
func decompressZstd(src []byte, dstLen int) ([]byte, error) {
	dec, err := zstdDecoder()
	if err != nil {
		return nil, fmt.Errorf("init zstd decoder: %w", err)
	}

	out, err := dec.DecodeAll(src, make([]byte, 0, dstLen))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return out, nil
}

// decompressLZ4 decodes raw LZ4 block (no frame header).
func decompressLZ4(src []byte, dstLen int) ([]byte, error) {
	out := make([]byte, dstLen)
	n, err := lz4.UncompressBlock(src, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return out[:n], nil
}
