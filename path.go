// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package uepak

import (
	"path"
	"strings"
)

// NormalizePath converts a container/internal path to normalized slash-separated form.
// It trims spaces, accepts both "/" and "\", removes leading "./" and "/", and cleans "." segments.
// A leading "../" chain, as used by UE mount points, is kept verbatim.
func NormalizePath(raw string) string {
	raw = normalizePathForMatching(raw)

	parents := 0
	for {
		switch {
		case strings.HasPrefix(raw, "../"):
			raw = raw[3:]
			parents++
			continue
		case raw == "..":
			raw = ""
			parents++
		}
		break
	}

	raw = strings.TrimPrefix(raw, "/")
	raw = path.Clean("/" + raw)
	raw = strings.TrimPrefix(raw, "/")
	if raw == "." {
		raw = ""
	}

	out := strings.Repeat("../", parents) + raw
	return strings.TrimSuffix(out, "/")
}

// normalizePathForMatching normalizes user/input paths for matcher use.
func normalizePathForMatching(path string) string {
	path = strings.TrimSpace(path)
	path = strings.ReplaceAll(path, `\`, `/`)
	path = strings.TrimPrefix(path, "./")
	return path
}

// joinMountPath prefixes entry path with container mount point.
func joinMountPath(mountPoint string, entry string) string {
	mountPoint = normalizePathForMatching(mountPoint)
	entry = strings.TrimPrefix(normalizePathForMatching(entry), "/")
	if mountPoint == "" || mountPoint == "/" {
		return entry
	}
	if !strings.HasSuffix(mountPoint, "/") {
		mountPoint += "/"
	}

	return mountPoint + entry
}

// trimPathPrefix removes prefix from normalized p on a segment boundary.
// It reports false when p does not start with prefix or nothing would remain.
func trimPathPrefix(p string, prefix string) (string, bool) {
	prefix = normalizePathForMatching(prefix)
	if prefix == "" {
		return p, true
	}

	bare := strings.TrimSuffix(prefix, "/")
	if bare == "" || !strings.HasPrefix(p, bare) {
		return p, false
	}

	rest := p[len(bare):]
	if rest == "" || rest[0] != '/' {
		return p, false
	}

	rest = strings.TrimLeft(rest, "/")
	if rest == "" {
		return p, false
	}

	return rest, true
}
