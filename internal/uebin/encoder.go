// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package uebin

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/text/encoding/unicode"
)

// Encoder appends little-endian fields to an in-memory buffer.
type Encoder struct {
	bytes.Buffer
}

// U8 appends one byte.
func (e *Encoder) U8(v uint8) {
	_ = e.WriteByte(v)
}

// U32 appends little-endian uint32.
func (e *Encoder) U32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, _ = e.Write(b[:])
}

// I32 appends little-endian int32.
func (e *Encoder) I32(v int32) {
	e.U32(uint32(v)) //nolint:gosec // two's complement reinterpretation
}

// U64 appends little-endian uint64.
func (e *Encoder) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, _ = e.Write(b[:])
}

// FString appends an engine string. Non-ASCII input is written as UTF-16LE.
func (e *Encoder) FString(s string) {
	if s == "" {
		e.I32(0)
		return
	}

	if isASCII(s) {
		e.I32(int32(len(s) + 1)) //nolint:gosec // bounded by caller
		_, _ = e.WriteString(s)
		e.U8(0)
		return
	}

	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		e.I32(0)
		return
	}

	e.I32(-int32(len(encoded)/2 + 1)) //nolint:gosec // bounded by caller
	_, _ = e.Write(encoded)
	_, _ = e.Write([]byte{0, 0})
}

// Pad appends zero bytes until buffer length is block aligned.
func (e *Encoder) Pad() {
	for int64(e.Len()) != Align(int64(e.Len())) {
		e.U8(0)
	}
}

// isASCII reports whether s holds only 7-bit characters.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}

	return true
}
