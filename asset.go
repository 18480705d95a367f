// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package uepak

import (
	"fmt"
	"path"
	"slices"
	"strings"
)

// assetExtensions is the fixed set of extensions recognized as assets:
// packages, maps, bulk data, sound banks, configs, audio, models, shaders and plugin descriptors.
var assetExtensions = map[string]struct{}{
	"uasset":  {},
	"umap":    {},
	"uexp":    {},
	"ubulk":   {},
	"uptnl":   {},
	"bnk":     {},
	"json":    {},
	"wem":     {},
	"fbx":     {},
	"obj":     {},
	"glb":     {},
	"gltf":    {},
	"ini":     {},
	"wav":     {},
	"mp3":     {},
	"ogg":     {},
	"uplugin": {},
	"usf":     {},
	"ush":     {},
}

// AssetExtensions returns the recognized asset extensions in sorted order.
func AssetExtensions() []string {
	out := make([]string, 0, len(assetExtensions))
	for ext := range assetExtensions {
		out = append(out, ext)
	}
	slices.Sort(out)

	return out
}

// IsAssetExt reports whether ext (with or without leading dot) is a recognized asset extension.
func IsAssetExt(ext string) bool {
	_, ok := assetExtensions[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return ok
}

// AssetPath is a normalized, non-empty, forward-slash path of one container entry.
// The zero value is not a valid path; construct with NewAssetPath.
type AssetPath struct {
	p string
}

// NewAssetPath normalizes raw and rejects empty results.
func NewAssetPath(raw string) (AssetPath, error) {
	p := NormalizePath(raw)
	if p == "" || strings.Trim(p, "./") == "" {
		return AssetPath{}, fmt.Errorf("%w: empty asset path %q", ErrInvalidArgument, raw)
	}

	return AssetPath{p: p}, nil
}

// MustAssetPath is NewAssetPath that panics on error.
func MustAssetPath(raw string) AssetPath {
	a, err := NewAssetPath(raw)
	if err != nil {
		panic(err)
	}

	return a
}

// String returns the normalized path.
func (a AssetPath) String() string {
	return a.p
}

// IsZero reports whether a was not built by NewAssetPath.
func (a AssetPath) IsZero() bool {
	return a.p == ""
}

// Ext returns the extension without the dot, as stored.
func (a AssetPath) Ext() string {
	return strings.TrimPrefix(path.Ext(a.p), ".")
}

// HasExt reports whether the extension equals ext, case-insensitively.
func (a AssetPath) HasExt(ext string) bool {
	return strings.EqualFold(a.Ext(), strings.TrimPrefix(ext, "."))
}

// IsAsset reports whether the extension is in the recognized asset set.
func (a AssetPath) IsAsset() bool {
	return IsAssetExt(a.Ext())
}

// Base returns the last path element.
func (a AssetPath) Base() string {
	return path.Base(a.p)
}

// Dir returns all but the last element, or "" for a top-level entry.
func (a AssetPath) Dir() string {
	d := path.Dir(a.p)
	if d == "." {
		return ""
	}

	return d
}

// HasPrefix reports whether a starts with prefix on a segment boundary.
func (a AssetPath) HasPrefix(prefix string) bool {
	if normalizePathForMatching(prefix) == "" {
		return true
	}

	_, ok := trimPathPrefix(a.p, prefix)
	return ok
}

// TrimPrefix returns a with prefix removed, or a unchanged with false when it does not match.
func (a AssetPath) TrimPrefix(prefix string) (string, bool) {
	return trimPathPrefix(a.p, prefix)
}

// MarshalText implements encoding.TextMarshaler.
func (a AssetPath) MarshalText() ([]byte, error) {
	return []byte(a.p), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AssetPath) UnmarshalText(text []byte) error {
	v, err := NewAssetPath(string(text))
	if err != nil {
		return err
	}

	*a = v
	return nil
}

// compareAssetPaths orders asset paths lexically.
func compareAssetPaths(x, y AssetPath) int {
	return strings.Compare(x.p, y.p)
}

// sortAssetPaths sorts in place and drops adjacent duplicates.
func sortAssetPaths(paths []AssetPath) []AssetPath {
	slices.SortFunc(paths, compareAssetPaths)
	return slices.Compact(paths)
}

// filterAssets keeps paths with recognized asset extensions.
func filterAssets(paths []AssetPath) []AssetPath {
	out := make([]AssetPath, 0, len(paths))
	for _, p := range paths {
		if p.IsAsset() {
			out = append(out, p)
		}
	}

	return out
}

// assetStrings converts paths to plain strings.
func assetStrings(paths []AssetPath) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.p
	}

	return out
}
