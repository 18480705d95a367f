// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package uepak

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"syscall"

	"github.com/woozymasta/uepak/codec"
	"github.com/woozymasta/uepak/iostore"
	"github.com/woozymasta/uepak/pak"
)

// Error kinds. Every error returned by the Unpacker matches exactly one of them
// via errors.Is; use KindOf to get it directly.
var (
	// ErrIO means a filesystem read or write failed.
	ErrIO = errors.New("i/o error")
	// ErrContainer means the container library rejected an otherwise readable file.
	ErrContainer = errors.New("container error")
	// ErrCompression means a compressed block could not be decoded.
	ErrCompression = errors.New("compression error")
	// ErrEncryption means the container is encrypted and cannot be read as requested.
	ErrEncryption = errors.New("encryption error")
	// ErrInvalidAesKey means the key is malformed or does not match the container.
	ErrInvalidAesKey = fmt.Errorf("%w: invalid AES key", ErrEncryption)
	// ErrFileNotFound means the input path does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrMissingFile means a required companion file is absent.
	ErrMissingFile = errors.New("missing companion file")
	// ErrInvalidFormat means the input is structurally corrupt.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrPermissionDenied means the OS refused access.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrOutOfMemory means an allocation limit was hit.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrExternalTool means the external unarchiver is missing or failed.
	ErrExternalTool = errors.New("external tool error")
	// ErrInvalidArgument means a caller-supplied value was rejected.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTimeout means a caller deadline or the external tool time budget expired.
	ErrTimeout = errors.New("timeout")
	// ErrCancelled means the caller cancelled the operation explicitly.
	ErrCancelled = errors.New("cancelled")
	// ErrInternal means a bug; recovered panics are reported with it.
	ErrInternal = errors.New("internal error")
	// ErrOther is the fallback kind.
	ErrOther = errors.New("error")
)

// Detail errors wrapped inside kinds.
var (
	// ErrInvalidExtractPath means an entry path cannot be mapped below the output directory.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrExtractPathOutsideRoot means resolved extraction path escapes destination root.
	ErrExtractPathOutsideRoot = errors.New("extract path escapes destination root")
	// ErrInvalidIncludePattern means one or more include globs failed to compile.
	ErrInvalidIncludePattern = errors.New("invalid include pattern")
	// ErrUnsupportedInput means the input is neither a container nor a supported archive.
	ErrUnsupportedInput = errors.New("unsupported input")
	// ErrRarToolNotFound means no RAR extraction tool was found.
	ErrRarToolNotFound = errors.New("rar extraction tool not found")
)

// kinds is checked in order; specific kinds precede their parents.
var kinds = []error{
	ErrInvalidAesKey,
	ErrEncryption,
	ErrCancelled,
	ErrTimeout,
	ErrMissingFile,
	ErrFileNotFound,
	ErrPermissionDenied,
	ErrInvalidFormat,
	ErrCompression,
	ErrContainer,
	ErrExternalTool,
	ErrInvalidArgument,
	ErrOutOfMemory,
	ErrInternal,
	ErrIO,
	ErrOther,
}

// Error carries the kind of a failure and the artifact it concerns.
type Error struct {
	// Kind is one of the Err* kind sentinels.
	Kind error
	// Op names the failed operation ("open", "extract", "stage", ...).
	Op string
	// Path is the offending input or entry path.
	Path string
	// Companion is the expected sibling path for ErrMissingFile.
	Companion string
	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.Path)
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}

	kind := e.Kind
	if kind == nil {
		kind = ErrOther
	}
	b.WriteString(kind.Error())

	if e.Companion != "" {
		b.WriteString(" (expected ")
		b.WriteString(e.Companion)
		b.WriteByte(')')
	}
	if e.Err != nil && e.Err != e.Kind {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}

	return out
}

// KindOf returns the kind sentinel of err, or nil for a nil error.
func KindOf(err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) && e.Kind != nil {
		return e.Kind
	}

	return classifyError(err)
}

// wrapError attaches operation context and a kind to err.
// Errors that already carry a kind keep it.
func wrapError(op string, path string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	out := &Error{Kind: classifyError(err), Op: op, Path: path, Err: err}

	var mp *iostore.MissingPartitionError
	if errors.As(err, &mp) {
		out.Companion = mp.Path
	}

	return out
}

// contextError reports a done context: a deadline is ErrTimeout, anything else ErrCancelled.
func contextError(op string, path string, err error) *Error {
	kind := ErrCancelled
	if errors.Is(err, context.DeadlineExceeded) {
		kind = ErrTimeout
	}

	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// classifyError maps library, context and OS errors to a kind sentinel.
func classifyError(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return ErrCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, pak.ErrInvalidKey), errors.Is(err, iostore.ErrInvalidKey):
		return ErrInvalidAesKey
	case errors.Is(err, pak.ErrKeyRequired), errors.Is(err, iostore.ErrKeyRequired):
		return ErrEncryption
	case errors.Is(err, iostore.ErrMissingPartition):
		return ErrMissingFile
	case errors.Is(err, codec.ErrUnsupported),
		errors.Is(err, codec.ErrCorrupt),
		errors.Is(err, codec.ErrSizeMismatch):
		return ErrCompression
	case errors.Is(err, pak.ErrInvalidMagic),
		errors.Is(err, pak.ErrCorruptIndex),
		errors.Is(err, pak.ErrIndexHashMismatch),
		errors.Is(err, pak.ErrInvalidEntry),
		errors.Is(err, pak.ErrMissingDirectoryIndex),
		errors.Is(err, iostore.ErrInvalidMagic),
		errors.Is(err, iostore.ErrCorruptToc),
		errors.Is(err, iostore.ErrCorruptDirectoryIndex),
		errors.Is(err, iostore.ErrInvalidChunk),
		errors.Is(err, ErrInvalidExtractPath),
		errors.Is(err, ErrExtractPathOutsideRoot):
		return ErrInvalidFormat
	case errors.Is(err, pak.ErrUnsupportedVersion),
		errors.Is(err, pak.ErrFrozenIndex),
		errors.Is(err, pak.ErrEntryNotFound),
		errors.Is(err, pak.ErrClosed),
		errors.Is(err, pak.ErrNilReader),
		errors.Is(err, iostore.ErrUnsupportedVersion),
		errors.Is(err, iostore.ErrEntryNotFound),
		errors.Is(err, iostore.ErrClosed):
		return ErrContainer
	case errors.Is(err, ErrInvalidIncludePattern), errors.Is(err, ErrUnsupportedInput):
		return ErrInvalidArgument
	case errors.Is(err, ErrRarToolNotFound), errors.Is(err, exec.ErrNotFound):
		return ErrExternalTool
	case errors.Is(err, fs.ErrNotExist):
		return ErrFileNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	case errors.Is(err, syscall.ENOMEM):
		return ErrOutOfMemory
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, syscall.ENOSPC) {
		return ErrIO
	}

	return ErrOther
}
