// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package uebin

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

// AESBlockSize is alignment unit for encrypted container regions.
const AESBlockSize = aes.BlockSize

// KeySize is the only AES key length used by both container formats.
const KeySize = 32

// ErrUnaligned means encrypted buffer length is not a multiple of AES block size.
var ErrUnaligned = errors.New("encrypted buffer is not block aligned")

// Align rounds n up to AES block size.
func Align(n int64) int64 {
	return (n + AESBlockSize - 1) &^ (AESBlockSize - 1)
}

// NewCipher builds AES-256 block cipher from raw key bytes.
func NewCipher(key []byte) (cipher.Block, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("aes key must be %d bytes, got %d", KeySize, len(key))
	}

	return aes.NewCipher(key)
}

// DecryptECB decrypts buf in place block by block.
func DecryptECB(block cipher.Block, buf []byte) error {
	if len(buf)%AESBlockSize != 0 {
		return fmt.Errorf("%w: %d bytes", ErrUnaligned, len(buf))
	}

	for off := 0; off < len(buf); off += AESBlockSize {
		block.Decrypt(buf[off:off+AESBlockSize], buf[off:off+AESBlockSize])
	}

	return nil
}

// EncryptECB encrypts buf in place block by block.
func EncryptECB(block cipher.Block, buf []byte) error {
	if len(buf)%AESBlockSize != 0 {
		return fmt.Errorf("%w: %d bytes", ErrUnaligned, len(buf))
	}

	for off := 0; off < len(buf); off += AESBlockSize {
		block.Encrypt(buf[off:off+AESBlockSize], buf[off:off+AESBlockSize])
	}

	return nil
}
