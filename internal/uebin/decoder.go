// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

// Package uebin holds little-endian decoding helpers shared by the container readers.
package uebin

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/text/encoding/unicode"
)

// MaxStringLen bounds one serialized FString in bytes.
const MaxStringLen = 64 * 1024

var (
	// ErrShortBuffer means a field extends beyond the decoded buffer.
	ErrShortBuffer = errors.New("field extends beyond buffer")
	// ErrBadString means an FString has an implausible length or missing terminator.
	ErrBadString = errors.New("malformed string")
)

// utf16le decodes FString payloads serialized with negative length.
var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Decoder reads little-endian fields from an in-memory buffer.
// The first error is sticky; later reads return zero values.
type Decoder struct {
	buf []byte
	pos int
	err error
}

// NewDecoder returns decoder positioned at buffer start.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Err returns the first decode error.
func (d *Decoder) Err() error {
	return d.err
}

// Pos returns current read offset.
func (d *Decoder) Pos() int {
	return d.pos
}

// Len returns number of unread bytes.
func (d *Decoder) Len() int {
	return len(d.buf) - d.pos
}

// Seek moves read offset to absolute position.
func (d *Decoder) Seek(pos int) {
	if d.err != nil {
		return
	}
	if pos < 0 || pos > len(d.buf) {
		d.err = fmt.Errorf("%w: seek to %d of %d", ErrShortBuffer, pos, len(d.buf))
		return
	}

	d.pos = pos
}

// take returns next n bytes or records ErrShortBuffer.
func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || n > len(d.buf)-d.pos {
		d.err = fmt.Errorf("%w: need %d bytes at %d, have %d", ErrShortBuffer, n, d.pos, len(d.buf)-d.pos)
		return nil
	}

	out := d.buf[d.pos : d.pos+n]
	d.pos += n
	return out
}

// Bytes returns next n bytes as a sub-slice of the buffer.
func (d *Decoder) Bytes(n int) []byte {
	return d.take(n)
}

// Skip advances n bytes.
func (d *Decoder) Skip(n int) {
	d.take(n)
}

// U8 reads one byte.
func (d *Decoder) U8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}

	return b[0]
}

// U32 reads little-endian uint32.
func (d *Decoder) U32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint32(b)
}

// I32 reads little-endian int32.
func (d *Decoder) I32() int32 {
	return int32(d.U32()) //nolint:gosec // two's complement reinterpretation
}

// U64 reads little-endian uint64.
func (d *Decoder) U64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint64(b)
}

// Count reads a non-negative int32 array length and checks it against remaining bytes.
func (d *Decoder) Count(elemSize int) int {
	n := d.I32()
	if d.err != nil {
		return 0
	}
	if n < 0 || (elemSize > 0 && int64(n)*int64(elemSize) > int64(d.Len())) {
		d.err = fmt.Errorf("%w: array length %d", ErrShortBuffer, n)
		return 0
	}

	return int(n)
}

// FString reads an engine string: int32 length, then NUL-terminated ASCII (positive)
// or UTF-16LE code units (negative).
func (d *Decoder) FString() string {
	n := d.I32()
	if d.err != nil || n == 0 {
		return ""
	}

	if n > 0 {
		if n > MaxStringLen {
			d.err = fmt.Errorf("%w: length %d", ErrBadString, n)
			return ""
		}

		raw := d.take(int(n))
		if raw == nil {
			return ""
		}
		if raw[len(raw)-1] != 0 {
			d.err = fmt.Errorf("%w: missing terminator", ErrBadString)
			return ""
		}

		return string(raw[:len(raw)-1])
	}

	if n == math.MinInt32 || -n > MaxStringLen/2 {
		d.err = fmt.Errorf("%w: length %d", ErrBadString, n)
		return ""
	}

	raw := d.take(int(-n) * 2)
	if raw == nil {
		return ""
	}
	if raw[len(raw)-1] != 0 || raw[len(raw)-2] != 0 {
		d.err = fmt.Errorf("%w: missing terminator", ErrBadString)
		return ""
	}

	out, err := utf16le.NewDecoder().Bytes(raw[:len(raw)-2])
	if err != nil {
		d.err = fmt.Errorf("%w: %w", ErrBadString, err)
		return ""
	}

	return string(out)
}

// ReadFull reads exactly n bytes at offset from ra.
func ReadFull(ra io.ReaderAt, off int64, n int64) ([]byte, error) {
	if n < 0 || off < 0 {
		return nil, fmt.Errorf("%w: range %d+%d", ErrShortBuffer, off, n)
	}

	buf := make([]byte, n)
	if read, err := ra.ReadAt(buf, off); err != nil && int64(read) != n {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: range %d+%d: %w", ErrShortBuffer, off, n, io.ErrUnexpectedEOF)
		}

		return nil, err
	}

	return buf, nil
}
