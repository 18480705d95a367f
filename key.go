// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package uepak

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/woozymasta/uepak/internal/uebin"
)

// redacted replaces key material in every textual representation.
const redacted = "[REDACTED]"

// DecryptionKey is a validated AES-256 key. It is immutable and safe to share
// between goroutines. Its string forms never reveal the key.
type DecryptionKey struct {
	b []byte
}

// ParseKey decodes a hex key with an optional "0x" prefix.
// Odd length, non-hex input and lengths other than 32 bytes fail with ErrInvalidAesKey.
func ParseKey(s string) (*DecryptionKey, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	switch {
	case s == "":
		return nil, &Error{Kind: ErrInvalidAesKey, Op: "parse key", Err: errors.New("empty key")}
	case len(s)%2 != 0:
		return nil, &Error{Kind: ErrInvalidAesKey, Op: "parse key", Err: fmt.Errorf("odd hex length %d", len(s))}
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		// hex errors quote the offending byte; keep it out of the message.
		return nil, &Error{Kind: ErrInvalidAesKey, Op: "parse key", Err: errors.New("not a hex string " + redacted)}
	}
	if len(b) != uebin.KeySize {
		return nil, &Error{
			Kind: ErrInvalidAesKey,
			Op:   "parse key",
			Err:  fmt.Errorf("decoded length %d, want %d", len(b), uebin.KeySize),
		}
	}

	return &DecryptionKey{b: b}, nil
}

// bytes returns raw key material; nil for a nil key.
func (k *DecryptionKey) bytes() []byte {
	if k == nil {
		return nil
	}

	return k.b
}

// String implements fmt.Stringer.
func (k *DecryptionKey) String() string {
	return redacted
}

// GoString implements fmt.GoStringer.
func (k *DecryptionKey) GoString() string {
	return redacted
}

// LogValue implements slog.LogValuer.
func (k *DecryptionKey) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// MarshalText implements encoding.TextMarshaler.
func (k *DecryptionKey) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}
