// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package uepak

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Unpacker is the entry point for listing and unpacking containers and
// discovering containers inside generic archives. Construct once with New;
// it is safe for concurrent use.
type Unpacker struct {
	log         *slog.Logger
	reporter    *Reporter
	defaultKey  *DecryptionKey
	stagingRoot string
	rarTool     string
	rarTimeout  time.Duration
	workers     int
	keepTemp    bool
}

// Option configures an Unpacker.
type Option func(*Unpacker)

// WithLogger sets the logger; nil keeps the discard logger.
func WithLogger(log *slog.Logger) Option {
	return func(u *Unpacker) {
		if log != nil {
			u.log = log
		}
	}
}

// WithReporter sets the progress reporter.
func WithReporter(r *Reporter) Option {
	return func(u *Unpacker) { u.reporter = r }
}

// WithWorkers caps batch concurrency; values <= 0 mean GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(u *Unpacker) { u.workers = n }
}

// WithStagingRoot sets the parent directory of staging areas.
func WithStagingRoot(dir string) Option {
	return func(u *Unpacker) { u.stagingRoot = dir }
}

// WithRarTool sets an explicit RAR tool path.
func WithRarTool(path string) Option {
	return func(u *Unpacker) { u.rarTool = path }
}

// WithRarTimeout bounds one RAR tool run.
func WithRarTimeout(d time.Duration) Option {
	return func(u *Unpacker) {
		if d > 0 {
			u.rarTimeout = d
		}
	}
}

// WithDefaultKey sets the key used when a call passes none.
func WithDefaultKey(key *DecryptionKey) Option {
	return func(u *Unpacker) { u.defaultKey = key }
}

// WithConfig applies a validated Config.
func WithConfig(cfg Config) Option {
	return func(u *Unpacker) {
		u.workers = cfg.Workers
		u.stagingRoot = cfg.StagingRoot
		u.rarTool = cfg.RarTool
		u.keepTemp = cfg.KeepTemp
		if d, err := cfg.rarTimeout(); err == nil {
			u.rarTimeout = d
		}
		if key, err := cfg.Key(); err == nil && key != nil {
			u.defaultKey = key
		}
	}
}

// New returns an Unpacker with opts applied.
func New(opts ...Option) *Unpacker {
	u := &Unpacker{
		log:        slog.New(slog.DiscardHandler),
		rarTimeout: DefaultRarTimeout,
	}
	for _, opt := range opts {
		opt(u)
	}

	return u
}

// begin starts one reported operation.
func (u *Unpacker) begin(name string) (*Operation, *slog.Logger) {
	id := uuid.NewString()
	return u.reporter.Begin(id), u.log.With(slog.String("op", name), slog.String("op_id", id))
}

// resolveKey prefers the call key over the default key.
func (u *Unpacker) resolveKey(key *DecryptionKey) *DecryptionKey {
	if key != nil {
		return key
	}

	return u.defaultKey
}

// UnpackContainer writes the entries of one container selected by opts below
// outputDir and returns their asset paths in native order.
func (u *Unpacker) UnpackContainer(ctx context.Context, path string, outputDir string, opts UnpackOptions) ([]AssetPath, error) {
	op, log := u.begin("unpack")
	assets, err := u.unpackContainer(ctx, path, outputDir, opts, op, log)
	op.Finish(err, path)

	return assets, err
}

// unpackContainer implements UnpackContainer; op may be nil.
func (u *Unpacker) unpackContainer(
	ctx context.Context,
	path string,
	outputDir string,
	opts UnpackOptions,
	op *Operation,
	log *slog.Logger,
) ([]AssetPath, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError("unpack", path, err)
	}

	op.Report(StageOpen, 0, path)
	h, err := OpenContainer(path, u.resolveKey(opts.Key()))
	if err != nil {
		return nil, err
	}
	defer func() { _ = h.Close() }()

	op.Report(StageIndex, 5, h.Path())
	assets, err := h.extractAll(ctx, outputDir, opts, extractHooks{
		log: log,
		onEntry: func(done int, total int) {
			op.Report(StageExtract, scalePercent(done, total, 5, 99), "")
		},
	})
	if err != nil {
		return nil, err
	}

	if !opts.Quiet() {
		log.Info("container unpacked",
			slog.String("path", h.Path()),
			slog.String("kind", h.Kind().String()),
			slog.Int("entries", len(assets)))
	}

	return assets, nil
}

// ListContainer returns the asset paths of one container shaped by opts.
// Listing ignores include globs and strip prefix.
func (u *Unpacker) ListContainer(ctx context.Context, path string, opts ListOptions) ([]AssetPath, error) {
	op, log := u.begin("list")
	assets, err := u.listContainer(ctx, path, opts, op, log)
	op.Finish(err, path)

	return assets, err
}

// listContainer implements ListContainer; op may be nil.
func (u *Unpacker) listContainer(
	ctx context.Context,
	path string,
	opts ListOptions,
	op *Operation,
	log *slog.Logger,
) ([]AssetPath, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError("list", path, err)
	}

	op.Report(StageOpen, 0, path)
	h, err := OpenContainer(path, u.resolveKey(opts.Key()))
	if err != nil {
		return nil, err
	}
	defer func() { _ = h.Close() }()

	op.Report(StageList, 50, h.Path())
	assets := h.List()
	if opts.AssetsOnly() {
		assets = filterAssets(assets)
	}
	if opts.Sorted() {
		assets = sortAssetPaths(assets)
	}

	if !opts.Quiet() {
		log.Info("container listed",
			slog.String("path", h.Path()),
			slog.String("kind", h.Kind().String()),
			slog.Int("entries", len(assets)))
	}

	return assets, nil
}

// ListEntries returns detailed entry metadata of one container in native order.
func (u *Unpacker) ListEntries(ctx context.Context, path string, key *DecryptionKey) ([]EntryInfo, error) {
	op, _ := u.begin("list entries")

	entries, err := func() ([]EntryInfo, error) {
		if err := ctx.Err(); err != nil {
			return nil, contextError("list", path, err)
		}

		h, err := OpenContainer(path, u.resolveKey(key))
		if err != nil {
			return nil, err
		}
		defer func() { _ = h.Close() }()

		return h.Entries(), nil
	}()

	op.Finish(err, path)
	return entries, err
}

// ContainerInfo opens one container and summarizes it.
func (u *Unpacker) ContainerInfo(ctx context.Context, path string, key *DecryptionKey) (ContainerInfo, error) {
	if err := ctx.Err(); err != nil {
		return ContainerInfo{}, contextError("info", path, err)
	}

	h, err := OpenContainer(path, u.resolveKey(key))
	if err != nil {
		return ContainerInfo{}, err
	}
	defer func() { _ = h.Close() }()

	return h.Info(), nil
}

// ExtractAssetPathsFromArchive returns recognized asset paths of path.
// A container input is listed directly. A ZIP, RAR or 7z input is staged and every
// discovered container is listed; a pak sharing its stem with a utoc is skipped.
// An archive without containers yields an empty result. Staged files are removed
// on return unless keepTemp is set.
func (u *Unpacker) ExtractAssetPathsFromArchive(
	ctx context.Context,
	path string,
	key *DecryptionKey,
	keepTemp bool,
) ([]AssetPath, error) {
	op, log := u.begin("extract")
	assets, err := u.extractFromArchive(ctx, path, key, keepTemp, op, log)
	op.Finish(err, path)

	return assets, err
}

// extractFromArchive implements ExtractAssetPathsFromArchive; op may be nil.
func (u *Unpacker) extractFromArchive(
	ctx context.Context,
	path string,
	key *DecryptionKey,
	keepTemp bool,
	op *Operation,
	log *slog.Logger,
) (assets []AssetPath, err error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError("extract", path, err)
	}

	op.Report(StageOpen, 0, path)
	class, err := Classify(ctx, path)
	if err != nil {
		return nil, err
	}

	switch class.Class {
	case ClassContainer:
		return u.containerAssets(path, key)
	case ClassArchive:
	default:
		return nil, &Error{Kind: ErrInvalidFormat, Op: "extract", Path: path, Err: ErrUnsupportedInput}
	}

	staging := NewStagingArea(u.stagingRoot, keepTemp || u.keepTemp)
	staging.SetRarTool(u.rarTool, u.rarTimeout)
	staging.setLogger(log)
	defer func() {
		if relErr := staging.Release(); relErr != nil && err == nil {
			assets, err = nil, relErr
		}
	}()

	op.Report(StageStage, 5, string(class.Format))
	staged, err := staging.Stage(ctx, path, class.Format)
	if err != nil {
		return nil, err
	}

	containers := skipPairedPaks(staged)
	log.Debug("archive staged",
		slog.String("path", path),
		slog.String("format", string(class.Format)),
		slog.String("staging", staging.Dir()),
		slog.Int("containers", len(containers)))

	assets = make([]AssetPath, 0)
	for i, c := range containers {
		if err := ctx.Err(); err != nil {
			return nil, contextError("extract", path, err)
		}

		found, err := u.containerAssets(c, key)
		if err != nil {
			return nil, err
		}
		assets = append(assets, found...)

		op.Report(StageList, scalePercent(i+1, len(containers), 50, 99), filepath.Base(c))
	}

	return assets, nil
}

// containerAssets lists recognized asset paths of one container.
func (u *Unpacker) containerAssets(path string, key *DecryptionKey) ([]AssetPath, error) {
	h, err := OpenContainer(path, u.resolveKey(key))
	if err != nil {
		return nil, err
	}
	defer func() { _ = h.Close() }()

	return filterAssets(h.List()), nil
}

// skipPairedPaks drops pak paths whose directory-qualified stem matches a utoc path.
func skipPairedPaks(paths []string) []string {
	utocs := make(map[string]struct{})
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), extUtoc) {
			utocs[strings.ToLower(strings.TrimSuffix(p, filepath.Ext(p)))] = struct{}{}
		}
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), extPak) {
			if _, ok := utocs[strings.ToLower(strings.TrimSuffix(p, filepath.Ext(p)))]; ok {
				continue
			}
		}
		out = append(out, p)
	}

	return out
}

// batch runs fn over inputs under one reported operation keyed by input path.
func (u *Unpacker) batch(
	ctx context.Context,
	name string,
	inputs []string,
	fn func(ctx context.Context, path string, log *slog.Logger) ([]AssetPath, error),
) BatchResult[string] {
	op, log := u.begin(name)
	op.Report(StageOpen, 0, name)

	total := len(inputs)
	var done atomic.Int64
	result := RunMany(ctx, inputs, u.workers, func(ctx context.Context, path string) ([]AssetPath, error) {
		assets, err := fn(ctx, path, log)
		if err != nil {
			log.Warn("batch item failed", slog.String("path", path), slog.Any("error", err))
		}

		n := int(done.Add(1))
		op.Report(StageExtract, scalePercent(n, total, 0, 99), filepath.Base(path))
		return assets, err
	})

	if err := ctx.Err(); err != nil {
		op.Fail(contextError(name, "", err))
	} else {
		op.Done(name)
	}

	return result
}

// UnpackMany unpacks every container into outputDir concurrently. Results are keyed by input path.
func (u *Unpacker) UnpackMany(ctx context.Context, paths []string, outputDir string, opts UnpackOptions) BatchResult[string] {
	return u.batch(ctx, "unpack many", paths, func(ctx context.Context, path string, log *slog.Logger) ([]AssetPath, error) {
		return u.unpackContainer(ctx, path, outputDir, opts, nil, log)
	})
}

// ListMany lists every container concurrently. Results are keyed by input path.
func (u *Unpacker) ListMany(ctx context.Context, paths []string, opts ListOptions) BatchResult[string] {
	return u.batch(ctx, "list many", paths, func(ctx context.Context, path string, log *slog.Logger) ([]AssetPath, error) {
		return u.listContainer(ctx, path, opts, nil, log)
	})
}

// ExtractManyFromArchives runs ExtractAssetPathsFromArchive for every path concurrently,
// each with its own staging area. Results are keyed by file stem, or by full path
// when stems collide.
func (u *Unpacker) ExtractManyFromArchives(
	ctx context.Context,
	paths []string,
	key *DecryptionKey,
	keepTemp bool,
) BatchResult[string] {
	raw := u.batch(ctx, "extract many", paths, func(ctx context.Context, path string, log *slog.Logger) ([]AssetPath, error) {
		return u.extractFromArchive(ctx, path, key, keepTemp, nil, log)
	})

	return rekey(raw, stemKeys(paths))
}

// rekey maps path-keyed results to the given keys.
func rekey(in BatchResult[string], keys map[string]string) BatchResult[string] {
	out := make(BatchResult[string], len(in))
	for p, o := range in {
		out[keys[p]] = o
	}

	return out
}

// AssetMapFromFolder lists recognized assets of every container below dir.
// A pak sharing its stem with a utoc is skipped. Results are keyed by container
// stem, or by full path when stems collide.
func (u *Unpacker) AssetMapFromFolder(ctx context.Context, dir string, key *DecryptionKey) (BatchResult[string], error) {
	var containers []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		switch strings.ToLower(filepath.Ext(p)) {
		case extPak, extUtoc:
			containers = append(containers, p)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, contextError("scan folder", dir, err)
		}

		return nil, wrapError("scan folder", dir, err)
	}

	containers = skipPairedPaks(containers)
	raw := u.batch(ctx, "asset map", containers, func(_ context.Context, path string, _ *slog.Logger) ([]AssetPath, error) {
		return u.containerAssets(path, key)
	})

	return rekey(raw, stemKeys(containers)), nil
}
