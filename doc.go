// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

/*
Package uepak lists and unpacks Unreal Engine containers: classic .pak files
and split .utoc/.ucas IoStore pairs, optionally wrapped in ZIP, RAR or 7z
archives. Container formats live in the pak and iostore packages; this
package resolves inputs to containers, stages archives, runs batches and
reports progress.

Behavior summary:
  - asset paths are mount-point qualified, for example "../../../Game/Content/A.uasset";
  - listing always enumerates every entry, include globs affect only extraction;
  - extraction strips DefaultStripPrefix unless configured otherwise;
  - files are written through a temp file and rename, never half-written;
  - archive staging is removed on every exit path unless keepTemp is set;
  - errors carry a kind sentinel usable with errors.Is and KindOf.

# Listing

	u := uepak.New()
	opts, err := uepak.NewListOptionsBuilder().
	    WithSorted(true).
	    WithAssetsOnly(true).
	    Build()
	if err != nil {
	    return err
	}
	assets, err := u.ListContainer(ctx, "pakchunk0-Windows.pak", opts)
	if err != nil {
	    return err
	}
	for _, a := range assets {
	    fmt.Println(a)
	}

# Unpacking

	opts, err := uepak.NewUnpackOptionsBuilder().
	    WithHexKey(os.Getenv("UEPAK_KEY")).
	    WithInclude("Game/Content/Maps/**").
	    WithForce(true).
	    Build()
	if err != nil {
	    return err
	}
	_, err = u.UnpackContainer(ctx, "pakchunk0-Windows.utoc", "out", opts)

# Archives

ZIP and 7z archives are read in-process. RAR archives are listed in-process
and extracted with an external tool found via RAR_TOOL_PATH or PATH:

	assets, err := u.ExtractAssetPathsFromArchive(ctx, "mod.zip", nil, false)
	if errors.Is(err, uepak.ErrExternalTool) {
	    // install unrar or set RAR_TOOL_PATH
	}

# Batches

Batch calls isolate failures per input:

	res := u.ListMany(ctx, paths, opts)
	for path, out := range res {
	    if !out.OK() {
	        log.Printf("%s: %v", path, out.Err)
	    }
	}

# Progress

	r := uepak.NewReporter(0)
	stop := r.Subscribe(func(ev uepak.ProgressEvent) {
	    fmt.Printf("%s %s %d%%\n", ev.Op, ev.Stage, ev.Percentage)
	})
	defer stop()
	u := uepak.New(uepak.WithReporter(r))
*/
package uepak
