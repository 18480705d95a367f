// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package uepak

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bodgit/sevenzip"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
)

// DefaultRarTimeout bounds one external RAR extraction.
const DefaultRarTimeout = 5 * time.Minute

// stagingDirPrefix prefixes every staging directory name.
const stagingDirPrefix = "uepak-"

// StagingArea is a per-call temporary directory holding containers extracted
// from generic archives. The directory is created on first Stage and removed
// by Release unless keep was requested. It must not be shared between calls.
type StagingArea struct {
	log        *slog.Logger
	root       string
	dir        string
	rarTool    string
	rarTimeout time.Duration
	mu         sync.Mutex
	seq        int
	keep       bool
	released   bool
}

// NewStagingArea returns a staging area below root (os.TempDir when empty).
func NewStagingArea(root string, keep bool) *StagingArea {
	return &StagingArea{root: root, keep: keep, rarTimeout: DefaultRarTimeout}
}

// SetRarTool overrides RAR tool path and timeout; zero values keep defaults.
func (s *StagingArea) SetRarTool(path string, timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rarTool = path
	if timeout > 0 {
		s.rarTimeout = timeout
	}
}

// setLogger sets the logger used for staging diagnostics.
func (s *StagingArea) setLogger(log *slog.Logger) {
	s.log = log
}

// Dir returns the staging directory, or "" before the first Stage.
func (s *StagingArea) Dir() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dir
}

// ensureDir creates the staging directory on first use.
func (s *StagingArea) ensureDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return "", &Error{Kind: ErrInternal, Op: "stage", Err: errors.New("staging area already released")}
	}
	if s.dir != "" {
		return s.dir, nil
	}

	root := s.root
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return "", wrapError("create staging root", root, err)
	}

	dir := filepath.Join(root, stagingDirPrefix+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", wrapError("create staging dir", dir, err)
	}

	s.dir = dir
	return dir, nil
}

// nextSubdir reserves a fresh directory for one archive.
func (s *StagingArea) nextSubdir(base string) (string, error) {
	s.mu.Lock()
	s.seq++
	name := "archive-" + strconv.Itoa(s.seq)
	s.mu.Unlock()

	dir := filepath.Join(base, name)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", wrapError("create staging dir", dir, err)
	}

	return dir, nil
}

// Stage extracts the container members of archivePath and returns local paths of
// staged .pak and .utoc files sorted by path. Unrelated members are not kept.
// On failure nothing staged for this archive remains.
func (s *StagingArea) Stage(ctx context.Context, archivePath string, format ArchiveFormat) ([]string, error) {
	var tool RarTool
	if format == ArchiveRar {
		var err error
		if tool, err = lookupRarTool(s.rarToolPath()); err != nil {
			return nil, err
		}
	}

	base, err := s.ensureDir()
	if err != nil {
		return nil, err
	}
	dest, err := s.nextSubdir(base)
	if err != nil {
		return nil, err
	}

	staged, err := s.stageInto(ctx, archivePath, format, tool, dest)
	if err != nil {
		_ = os.RemoveAll(dest)
		return nil, err
	}

	slices.Sort(staged)
	return staged, nil
}

// rarToolPath returns explicit tool path or RAR_TOOL_PATH.
func (s *StagingArea) rarToolPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rarTool != "" {
		return s.rarTool
	}

	return os.Getenv(RarToolEnv)
}

// stageInto dispatches by archive format.
func (s *StagingArea) stageInto(
	ctx context.Context,
	archivePath string,
	format ArchiveFormat,
	tool RarTool,
	dest string,
) ([]string, error) {
	switch format {
	case ArchiveZip, Archive7z:
		members, err := ListMembers(archivePath, format)
		if err != nil {
			return nil, err
		}

		selected := selectContainerMembers(members)
		if len(selected) == 0 {
			return nil, nil
		}

		if format == ArchiveZip {
			err = stageZip(ctx, archivePath, dest, selected)
		} else {
			err = stage7z(ctx, archivePath, dest, selected)
		}
		if err != nil {
			return nil, err
		}

		return stagedContainers(dest, selected), nil
	case ArchiveRar:
		return s.stageRar(ctx, archivePath, tool, dest)
	default:
		return nil, &Error{Kind: ErrInvalidArgument, Op: "stage", Path: archivePath, Err: fmt.Errorf("%w: format %q", ErrUnsupportedInput, format)}
	}
}

// memberSet indexes selected member names.
func memberSet(selected []Member) map[string]struct{} {
	set := make(map[string]struct{}, len(selected))
	for _, m := range selected {
		set[m.Name] = struct{}{}
	}

	return set
}

// stageZip writes selected ZIP members below dest.
func stageZip(ctx context.Context, archivePath string, dest string, selected []Member) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return archiveError("stage", archivePath, err)
	}
	defer func() { _ = r.Close() }()

	want := memberSet(selected)
	for _, f := range r.File {
		name := NormalizePath(f.Name)
		if _, ok := want[name]; !ok || f.FileInfo().IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return contextError("stage", archivePath, err)
		}

		if err := writeMember(dest, name, f.Open); err != nil {
			return stageMemberError(archivePath, name, err)
		}
	}

	return nil
}

// stage7z writes selected 7z members below dest.
func stage7z(ctx context.Context, archivePath string, dest string, selected []Member) error {
	r, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return archiveError("stage", archivePath, err)
	}
	defer func() { _ = r.Close() }()

	want := memberSet(selected)
	for _, f := range r.File {
		name := NormalizePath(f.Name)
		if _, ok := want[name]; !ok || f.FileInfo().IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return contextError("stage", archivePath, err)
		}

		if err := writeMember(dest, name, f.Open); err != nil {
			return stageMemberError(archivePath, name, err)
		}
	}

	return nil
}

// stageMemberError keeps OS error kinds and reports decode failures as corrupt archive.
func stageMemberError(archivePath string, name string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return wrapError("stage", pathErr.Path, err)
	}

	return &Error{Kind: ErrInvalidFormat, Op: "stage", Path: archivePath + ":" + name, Err: err}
}

// writeMember copies one member to dest/name, rejecting paths that escape dest.
func writeMember(dest string, name string, open func() (io.ReadCloser, error)) error {
	rel, err := normalizeExtractEntryPath(name)
	if err != nil {
		return &Error{Kind: ErrInvalidFormat, Op: "stage", Path: name, Err: err}
	}

	outPath := filepath.Join(dest, filepath.FromSlash(rel))
	if !isWithinRoot(dest, outPath) {
		return &Error{Kind: ErrInvalidFormat, Op: "stage", Path: name, Err: ErrExtractPathOutsideRoot}
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return err
	}

	rc, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	_, copyErr := copyExtractData(f, rc, make([]byte, extractCopyBufferSize))
	closeErr := f.Close()
	if copyErr != nil {
		return copyErr
	}

	return closeErr
}

// stagedContainers returns local index paths (pak and utoc) of selected members.
func stagedContainers(dest string, selected []Member) []string {
	var out []string
	for _, m := range selected {
		if m.Role == RolePak || m.Role == RoleUtoc {
			out = append(out, filepath.Join(dest, filepath.FromSlash(m.Name)))
		}
	}

	return out
}

// stageRar extracts a RAR archive with the external tool, then keeps only container members.
// An in-process header listing skips the tool when the archive holds no containers;
// when that listing fails the tool still runs, and a tool failure is then reported as corrupt data.
func (s *StagingArea) stageRar(ctx context.Context, archivePath string, tool RarTool, dest string) ([]string, error) {
	members, listErr := ListMembers(archivePath, ArchiveRar)
	if listErr == nil && len(selectContainerMembers(members)) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	timeout := s.rarTimeout
	s.mu.Unlock()

	if err := runRarTool(ctx, tool, archivePath, dest, timeout); err != nil {
		var e *Error
		if listErr != nil && errors.As(err, &e) && e.Kind == ErrExternalTool {
			return nil, &Error{Kind: ErrInvalidFormat, Op: "stage", Path: archivePath, Err: errors.Join(listErr, err)}
		}

		return nil, err
	}

	if s.log != nil {
		s.log.Debug("rar archive extracted", slog.String("archive", archivePath), slog.String("tool", tool.Path))
	}

	return pruneStaged(dest)
}

// runRarTool runs tool with timeout; expiry kills the process and reports ErrTimeout.
func runRarTool(ctx context.Context, tool RarTool, archivePath string, dest string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultRarTimeout
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(tctx, tool.Path, tool.args(archivePath, dest)...)
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return contextError("stage", archivePath, ctx.Err())
	case errors.Is(tctx.Err(), context.DeadlineExceeded):
		return &Error{Kind: ErrTimeout, Op: "stage", Path: archivePath, Err: fmt.Errorf("%s exceeded %s", filepath.Base(tool.Path), timeout)}
	}

	msg := strings.TrimSpace(stderr.String())
	if msg != "" {
		err = fmt.Errorf("%w: %s", err, msg)
	}

	return &Error{Kind: ErrExternalTool, Op: "stage", Path: archivePath, Err: err}
}

// pruneStaged walks dest, removes non-container files and returns container index paths.
func pruneStaged(dest string) ([]string, error) {
	var members []Member
	err := filepath.WalkDir(dest, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dest, p)
		if err != nil {
			return err
		}
		if m, ok := newMember(filepath.ToSlash(rel), 0, false); ok {
			members = append(members, m)
		}

		return nil
	})
	if err != nil {
		return nil, wrapError("stage", dest, err)
	}

	selected := selectContainerMembers(members)
	keep := memberSet(selected)
	for _, m := range members {
		if _, ok := keep[m.Name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(dest, filepath.FromSlash(m.Name))); err != nil {
			return nil, wrapError("stage", m.Name, err)
		}
	}

	return stagedContainers(dest, selected), nil
}

// Release removes the staging directory unless keep was requested.
// It is safe to call more than once.
func (s *StagingArea) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil
	}
	s.released = true

	if s.dir == "" || s.keep {
		return nil
	}

	if err := os.RemoveAll(s.dir); err != nil {
		return wrapError("release staging", s.dir, err)
	}

	return nil
}
