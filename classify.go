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
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/zip"
	"github.com/mholt/archives"
	"github.com/nwaples/rardecode/v2"
)

// RarToolEnv overrides RAR tool lookup with an explicit executable path.
const RarToolEnv = "RAR_TOOL_PATH"

// ArchiveFormat names a generic archive format used as a container wrapper.
type ArchiveFormat string

// Supported archive formats.
const (
	ArchiveZip ArchiveFormat = "zip"
	ArchiveRar ArchiveFormat = "rar"
	Archive7z  ArchiveFormat = "7z"
)

// Class is the coarse classification of an input file.
type Class uint8

// Input classes.
const (
	// ClassUnsupported is neither a container nor a supported archive.
	ClassUnsupported Class = iota
	// ClassContainer is a pak, utoc or ucas file.
	ClassContainer
	// ClassArchive is a ZIP, RAR or 7z archive.
	ClassArchive
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassContainer:
		return "container"
	case ClassArchive:
		return "archive"
	default:
		return "unsupported"
	}
}

// Classification is the result of Classify.
type Classification struct {
	// Format is set for ClassArchive.
	Format ArchiveFormat `json:"format,omitempty" yaml:"format,omitempty"`
	// Class is the coarse class.
	Class Class `json:"class" yaml:"class"`
	// Kind is set for ClassContainer.
	Kind ContainerKind `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// MemberRole is the role of one archive member in container discovery.
type MemberRole uint8

// Member roles.
const (
	// RoleOther is an unrelated member.
	RoleOther MemberRole = iota
	// RolePak is a classic container.
	RolePak
	// RoleUtoc is a split container index.
	RoleUtoc
	// RoleUcas is a split container payload partition.
	RoleUcas
)

// Member is one file inside a generic archive.
type Member struct {
	// Name is the normalized slash path inside the archive.
	Name string `json:"name" yaml:"name"`
	// Size is uncompressed size in bytes.
	Size int64 `json:"size" yaml:"size"`
	// Role is the member role by extension.
	Role MemberRole `json:"role" yaml:"role"`
}

// ucasPartitionPattern matches "<stem>_s<N>" partition stems.
var ucasPartitionPattern = regexp.MustCompile(`^(.*)_s[0-9]+$`)

// Classify determines whether path is a container or a supported archive.
// Extensions decide first; content is sniffed only for unknown extensions.
func Classify(ctx context.Context, path string) (Classification, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Classification{}, wrapError("classify", path, err)
	}
	if fi.IsDir() {
		return Classification{}, &Error{Kind: ErrInvalidArgument, Op: "classify", Path: path, Err: errors.New("is a directory")}
	}

	if c, ok := classifyByExt(path); ok {
		return c, nil
	}

	kind, err := sniffContainer(path)
	if err != nil {
		return Classification{}, wrapError("classify", path, err)
	}
	if kind != KindUnknown {
		return Classification{Class: ClassContainer, Kind: kind}, nil
	}

	format, err := sniffArchive(ctx, path)
	if err != nil {
		return Classification{}, wrapError("classify", path, err)
	}
	if format != "" {
		return Classification{Class: ClassArchive, Format: format}, nil
	}

	return Classification{Class: ClassUnsupported}, nil
}

// classifyByExt maps known extensions.
func classifyByExt(name string) (Classification, bool) {
	switch strings.ToLower(path.Ext(filepath.ToSlash(name))) {
	case extPak:
		return Classification{Class: ClassContainer, Kind: KindPak}, true
	case extUtoc, extUcas:
		return Classification{Class: ClassContainer, Kind: KindIoStore}, true
	case ".zip":
		return Classification{Class: ClassArchive, Format: ArchiveZip}, true
	case ".rar":
		return Classification{Class: ClassArchive, Format: ArchiveRar}, true
	case ".7z":
		return Classification{Class: ClassArchive, Format: Archive7z}, true
	default:
		return Classification{}, false
	}
}

// sniffArchive identifies supported archive formats by content.
func sniffArchive(ctx context.Context, path string) (ArchiveFormat, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	format, _, err := archives.Identify(ctx, "", f)
	if err != nil {
		if errors.Is(err, archives.NoMatch) {
			return "", nil
		}

		return "", err
	}

	switch strings.TrimPrefix(format.Extension(), ".") {
	case "zip":
		return ArchiveZip, nil
	case "rar":
		return ArchiveRar, nil
	case "7z":
		return Archive7z, nil
	default:
		return "", nil
	}
}

// memberRole maps a member name to its role by extension.
func memberRole(name string) MemberRole {
	switch strings.ToLower(path.Ext(name)) {
	case extPak:
		return RolePak
	case extUtoc:
		return RoleUtoc
	case extUcas:
		return RoleUcas
	default:
		return RoleOther
	}
}

// newMember builds a member from a raw archive name; directories and empty names are skipped.
func newMember(raw string, size int64, isDir bool) (Member, bool) {
	if isDir {
		return Member{}, false
	}

	name := NormalizePath(raw)
	if name == "" || strings.HasSuffix(raw, "/") {
		return Member{}, false
	}

	return Member{Name: name, Size: size, Role: memberRole(name)}, true
}

// ListMembers enumerates files of a generic archive in archive order.
func ListMembers(path string, format ArchiveFormat) ([]Member, error) {
	var (
		members []Member
		err     error
	)

	switch format {
	case ArchiveZip:
		members, err = listZipMembers(path)
	case ArchiveRar:
		members, err = listRarMembers(path)
	case Archive7z:
		members, err = list7zMembers(path)
	default:
		return nil, &Error{Kind: ErrInvalidArgument, Op: "list archive", Path: path, Err: fmt.Errorf("%w: format %q", ErrUnsupportedInput, format)}
	}
	if err != nil {
		return nil, archiveError("list archive", path, err)
	}

	return members, nil
}

// listZipMembers lists a ZIP archive.
func listZipMembers(path string) ([]Member, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	out := make([]Member, 0, len(r.File))
	for _, f := range r.File {
		if m, ok := newMember(f.Name, int64(f.UncompressedSize64), f.FileInfo().IsDir()); ok { //nolint:gosec // archive sizes fit int64
			out = append(out, m)
		}
	}

	return out, nil
}

// listRarMembers lists a RAR archive by walking its headers.
func listRarMembers(path string) ([]Member, error) {
	r, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	var out []Member
	for {
		header, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		if m, ok := newMember(header.Name, header.UnPackedSize, header.IsDir); ok {
			out = append(out, m)
		}
	}
}

// list7zMembers lists a 7z archive.
func list7zMembers(path string) ([]Member, error) {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	out := make([]Member, 0, len(r.File))
	for _, f := range r.File {
		if m, ok := newMember(f.Name, int64(f.UncompressedSize), f.FileInfo().IsDir()); ok { //nolint:gosec // archive sizes fit int64
			out = append(out, m)
		}
	}

	return out, nil
}

// archiveError maps archive library failures: OS errors keep their kind,
// everything else is a corrupt archive.
func archiveError(op string, path string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return wrapError(op, path, err)
	}

	return &Error{Kind: ErrInvalidFormat, Op: op, Path: path, Err: err}
}

// memberStem returns the directory-qualified lowercase stem shared by container pair members.
// Partitioned payloads "<stem>_s<N>.ucas" map to "<stem>".
func memberStem(m Member) string {
	stem := strings.ToLower(strings.TrimSuffix(m.Name, path.Ext(m.Name)))
	if m.Role == RoleUcas {
		if sub := ucasPartitionPattern.FindStringSubmatch(stem); sub != nil {
			return sub[1]
		}
	}

	return stem
}

// selectContainerMembers keeps pak files, utoc files and the ucas payloads of selected utoc files.
// Orphan ucas files and unrelated members are dropped. Archive order is preserved.
func selectContainerMembers(members []Member) []Member {
	utocStems := make(map[string]struct{})
	for _, m := range members {
		if m.Role == RoleUtoc {
			utocStems[memberStem(m)] = struct{}{}
		}
	}

	out := make([]Member, 0, len(members))
	for _, m := range members {
		switch m.Role {
		case RolePak, RoleUtoc:
			out = append(out, m)
		case RoleUcas:
			if _, ok := utocStems[memberStem(m)]; ok {
				out = append(out, m)
			}
		}
	}

	return out
}

// RarTool is an external executable able to extract RAR archives.
type RarTool struct {
	// Path is the executable path.
	Path string `json:"path" yaml:"path"`
}

// args builds extraction arguments; 7-Zip uses "-o<dir>", unrar/rar take a trailing dir.
func (t RarTool) args(archive string, dest string) []string {
	base := strings.ToLower(filepath.Base(t.Path))
	if strings.HasPrefix(base, "7z") {
		return []string{"x", "-y", "-o" + dest, archive}
	}

	return []string{"x", "-y", archive, dest + string(os.PathSeparator)}
}

// windowsRarPaths are default WinRAR install locations.
var windowsRarPaths = []string{
	`C:\Program Files\WinRAR\rar.exe`,
	`C:\Program Files (x86)\WinRAR\rar.exe`,
	`C:\WinRAR\rar.exe`,
}

// rarToolNames are searched in PATH in order.
var rarToolNames = []string{"unrar", "rar", "7zz", "7z"}

// LookupRarTool finds a RAR extraction tool: RAR_TOOL_PATH, then PATH, then WinRAR defaults.
// Absence is reported as ErrExternalTool before any process is spawned.
func LookupRarTool() (RarTool, error) {
	return lookupRarTool(os.Getenv(RarToolEnv))
}

// lookupRarTool resolves explicit path first when set.
func lookupRarTool(explicit string) (RarTool, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		p, err := exec.LookPath(explicit)
		if err != nil {
			return RarTool{}, &Error{Kind: ErrExternalTool, Op: "lookup rar tool", Path: explicit, Err: errors.Join(ErrRarToolNotFound, err)}
		}

		return RarTool{Path: p}, nil
	}

	for _, name := range rarToolNames {
		if p, err := exec.LookPath(name); err == nil {
			return RarTool{Path: p}, nil
		}
	}

	if runtime.GOOS == "windows" {
		if i := slices.IndexFunc(windowsRarPaths, fileExists); i >= 0 {
			return RarTool{Path: windowsRarPaths[i]}, nil
		}
	}

	return RarTool{}, &Error{Kind: ErrExternalTool, Op: "lookup rar tool", Err: ErrRarToolNotFound}
}

// fileExists reports whether p is an existing regular file.
func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}
