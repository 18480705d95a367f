// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package uepak

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// extractCopyBufferSize defines buffer size for file copy during extraction.
const extractCopyBufferSize = 64 * 1024

// extractWorkItem stores one selected entry with prepared output relative paths.
type extractWorkItem struct {
	relPath string
	relDir  string
	entry   EntryInfo
}

// extractHooks are optional observers of one extraction.
type extractHooks struct {
	log     *slog.Logger
	onEntry func(done int, total int)
}

// ExtractAll writes entries selected by opts below outputDir and returns their asset paths
// in native order. Existing files are skipped unless opts.Force() and still reported.
// Cancellation is checked between entries; a file is either fully written or absent.
func (h *ContainerHandle) ExtractAll(ctx context.Context, outputDir string, opts UnpackOptions) ([]AssetPath, error) {
	return h.extractAll(ctx, outputDir, opts, extractHooks{})
}

// extractAll implements ExtractAll with observers.
func (h *ContainerHandle) extractAll(
	ctx context.Context,
	outputDir string,
	opts UnpackOptions,
	hooks extractHooks,
) ([]AssetPath, error) {
	if h == nil {
		return nil, &Error{Kind: ErrInvalidArgument, Op: "extract", Err: errors.New("nil container")}
	}
	if strings.TrimSpace(outputDir) == "" {
		return nil, &Error{Kind: ErrInvalidArgument, Op: "extract", Path: h.path, Err: errors.New("empty output directory")}
	}

	dstRootAbs, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, wrapError("resolve output dir", outputDir, err)
	}
	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return nil, wrapError("create output dir", dstRootAbs, err)
	}

	workItems, err := prepareExtractWorkItems(h.entries, opts)
	if err != nil {
		return nil, wrapError("extract", h.path, err)
	}
	if err := prepareExtractDirs(dstRootAbs, workItems); err != nil {
		return nil, err
	}

	copyBuf := make([]byte, extractCopyBufferSize)
	out := make([]AssetPath, 0, len(workItems))
	for i, task := range workItems {
		if err := ctx.Err(); err != nil {
			return nil, contextError("extract", h.path, err)
		}

		skipped, err := h.extractPreparedEntry(dstRootAbs, task, opts.force, copyBuf)
		if err != nil {
			return nil, wrapError("extract", task.entry.Path.String(), err)
		}

		if hooks.log != nil && !opts.quiet {
			hooks.log.Debug("entry extracted",
				slog.String("entry", task.entry.Path.String()),
				slog.String("output", task.relPath),
				slog.Bool("skipped", skipped))
		}

		out = append(out, task.entry.Path)
		if hooks.onEntry != nil {
			hooks.onEntry(i+1, len(workItems))
		}
	}

	return out, nil
}

// prepareExtractWorkItems applies include globs and strip prefix and prepares relative fs paths.
func prepareExtractWorkItems(entries []EntryInfo, opts UnpackOptions) ([]extractWorkItem, error) {
	var sanitizer *pathSanitizer
	if !opts.rawNames {
		sanitizer = newPathSanitizer()
	}

	workItems := make([]extractWorkItem, 0, len(entries))
	for _, entry := range entries {
		full := entry.Path.String()
		rel, matched := entry.Path.TrimPrefix(opts.stripPrefix)
		if !matched {
			if opts.policy == StripRejectUnmatched {
				return nil, &Error{
					Kind: ErrInvalidArgument,
					Op:   "strip prefix",
					Path: full,
					Err:  fmt.Errorf("entry does not start with %q", opts.stripPrefix),
				}
			}
			rel = full
		}
		rel = stripParentRefs(rel)

		if !opts.include.Match(full, rel) {
			continue
		}

		normalizedPath, err := normalizeExtractEntryPath(rel)
		if err != nil {
			return nil, fmt.Errorf("normalize entry path %s: %w", full, err)
		}
		if sanitizer != nil {
			if normalizedPath, err = sanitizer.Sanitize(normalizedPath); err != nil {
				return nil, fmt.Errorf("sanitize entry path %s: %w", full, err)
			}
		}

		relPath := filepath.FromSlash(normalizedPath)
		relDir := filepath.Dir(relPath)
		if relDir == "." {
			relDir = ""
		}

		workItems = append(workItems, extractWorkItem{
			entry:   entry,
			relPath: relPath,
			relDir:  relDir,
		})
	}

	return workItems, nil
}

// prepareExtractDirs creates all unique parent directories needed by work items.
func prepareExtractDirs(dstRootAbs string, workItems []extractWorkItem) error {
	seen := make(map[string]struct{}, len(workItems))
	for _, task := range workItems {
		if task.relDir == "" {
			continue
		}

		dirPath := filepath.Join(dstRootAbs, task.relDir)
		if _, exists := seen[dirPath]; exists {
			continue
		}

		seen[dirPath] = struct{}{}
		if err := os.MkdirAll(dirPath, 0o750); err != nil {
			return wrapError("create output directory", dirPath, err)
		}
	}

	return nil
}

// extractPreparedEntry writes one work item through a temp file and rename.
// It reports true when an existing file was kept because force is off.
func (h *ContainerHandle) extractPreparedEntry(
	dstRootAbs string,
	task extractWorkItem,
	force bool,
	copyBuf []byte,
) (bool, error) {
	outPath := filepath.Join(dstRootAbs, task.relPath)
	if !isWithinRoot(dstRootAbs, outPath) {
		return false, fmt.Errorf("%w: %s", ErrExtractPathOutsideRoot, task.relPath)
	}

	if !force {
		if _, err := os.Lstat(outPath); err == nil {
			return true, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
	}

	rc, err := h.openEntry(task.entry)
	if err != nil {
		return false, err
	}
	defer func() { _ = rc.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(outPath), "."+filepath.Base(outPath)+".*.tmp")
	if err != nil {
		return false, err
	}
	tmpPath := tmp.Name()

	_, copyErr := copyExtractData(tmp, rc, copyBuf)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpPath)
		if copyErr != nil {
			return false, fmt.Errorf("write %s: %w", task.entry.Path, copyErr)
		}

		return false, fmt.Errorf("close %s: %w", task.entry.Path, closeErr)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return false, err
	}

	return false, nil
}

// isWithinRoot reports whether target resolves inside root.
func isWithinRoot(root string, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// copyExtractData copies one entry stream to output file using fixed buffer.
func copyExtractData(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	if len(buf) == 0 {
		return 0, io.ErrShortBuffer
	}

	var total int64
	for {
		readN, readErr := src.Read(buf)
		if readN > 0 {
			writeN, writeErr := dst.Write(buf[:readN])
			total += int64(writeN)

			if writeErr != nil {
				return total, writeErr
			}

			if writeN != readN {
				return total, io.ErrShortWrite
			}
		}

		if readErr == nil {
			continue
		}

		if readErr == io.EOF {
			return total, nil
		}

		return total, readErr
	}
}

// normalizeExtractEntryPath normalizes entry path and rejects absolute/traversal inputs.
func normalizeExtractEntryPath(entryPath string) (string, error) {
	raw := strings.TrimSpace(entryPath)
	if raw == "" {
		return "", ErrInvalidExtractPath
	}
	if strings.ContainsRune(raw, 0) {
		return "", ErrInvalidExtractPath
	}
	if strings.HasPrefix(raw, `/`) || strings.HasPrefix(raw, `\`) {
		return "", ErrInvalidExtractPath
	}

	raw = strings.ReplaceAll(raw, `\`, `/`)
	if hasWindowsAbsDrivePrefix(raw) {
		return "", ErrInvalidExtractPath
	}

	parts := strings.Split(raw, `/`)
	cleanParts := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", ErrInvalidExtractPath
		default:
			cleanParts = append(cleanParts, part)
		}
	}
	if len(cleanParts) == 0 {
		return "", ErrInvalidExtractPath
	}

	return strings.Join(cleanParts, `/`), nil
}

// hasWindowsAbsDrivePrefix reports whether path starts with drive-root prefix like C:/.
func hasWindowsAbsDrivePrefix(path string) bool {
	if len(path) < 3 {
		return false
	}

	return isASCIIAlpha(path[0]) && path[1] == ':' && path[2] == '/'
}

// isASCIIAlpha reports whether byte is ASCII latin letter.
func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
