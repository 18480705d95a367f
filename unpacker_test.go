package uepak

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/woozymasta/uepak/internal/testsupport"
)

func buildUnpackOptions(t *testing.T, b *UnpackOptionsBuilder) UnpackOptions {
	t.Helper()

	opts, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	return opts
}

func buildListOptions(t *testing.T, b *ListOptionsBuilder) ListOptions {
	t.Helper()

	opts, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	return opts
}

// listFiles returns slash relative paths of regular files below root, sorted.
func listFiles(t *testing.T, root string) []string {
	t.Helper()

	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	slices.Sort(out)

	return out
}

func TestListContainer_Idempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	inputs := []string{
		writePakFixture(t, dir, "a.pak", testsupport.PakOptions{Compress: true}),
		writeIoStoreFixture(t, dir, "b", testsupport.IoStoreOptions{Compress: true}),
	}

	u := New()
	native := buildListOptions(t, NewListOptionsBuilder())
	shaped := buildListOptions(t, NewListOptionsBuilder().WithSorted(true).WithAssetsOnly(true))

	for _, in := range inputs {
		first, err := u.ListContainer(context.Background(), in, native)
		if err != nil {
			t.Fatalf("ListContainer(%s): %v", in, err)
		}
		second, err := u.ListContainer(context.Background(), in, native)
		if err != nil {
			t.Fatalf("ListContainer(%s) again: %v", in, err)
		}
		if !slices.Equal(first, second) {
			t.Fatalf("listing not idempotent: %v vs %v", first, second)
		}
		if got := sortedStrings(first); !slices.Equal(got, fixtureAssetPaths(false)) {
			t.Fatalf("native listing=%v", got)
		}

		got, err := u.ListContainer(context.Background(), in, shaped)
		if err != nil {
			t.Fatalf("ListContainer shaped: %v", err)
		}
		if !slices.Equal(assetStrings(got), fixtureAssetPaths(true)) {
			t.Fatalf("shaped listing=%v, want %v", assetStrings(got), fixtureAssetPaths(true))
		}
	}
}

func TestUnpackContainer_StripsDefaultPrefix(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	pakPath := writePakFixture(t, dir, "a.pak", testsupport.PakOptions{Compress: true, BlockSize: 4096})

	assets, err := New().UnpackContainer(context.Background(), pakPath, out, buildUnpackOptions(t, NewUnpackOptionsBuilder()))
	if err != nil {
		t.Fatalf("UnpackContainer: %v", err)
	}
	if got := sortedStrings(assets); !slices.Equal(got, fixtureAssetPaths(false)) {
		t.Fatalf("assets=%v", got)
	}

	var want []string
	for _, f := range fixtureFiles() {
		want = append(want, f.Path)
	}
	slices.Sort(want)
	if got := listFiles(t, out); !slices.Equal(got, want) {
		t.Fatalf("written=%v, want %v", got, want)
	}

	for _, f := range fixtureFiles() {
		data, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(f.Path)))
		if err != nil {
			t.Fatalf("read %s: %v", f.Path, err)
		}
		if !bytes.Equal(data, f.Data) {
			t.Fatalf("%s content mismatch", f.Path)
		}
	}
}

func TestUnpackContainer_IncludeGlobs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	utocPath := writeIoStoreFixture(t, dir, "game", testsupport.IoStoreOptions{})

	u := New()
	listing, err := u.ListContainer(context.Background(), utocPath, buildListOptions(t, NewListOptionsBuilder()))
	if err != nil {
		t.Fatalf("ListContainer: %v", err)
	}

	opts := buildUnpackOptions(t, NewUnpackOptionsBuilder().WithInclude("*.umap", "Game/Config/**"))
	assets, err := u.UnpackContainer(context.Background(), utocPath, out, opts)
	if err != nil {
		t.Fatalf("UnpackContainer: %v", err)
	}

	want := []string{"../../../Game/Config/DefaultGame.ini", "../../../Game/Content/Maps/Level1.umap"}
	if got := sortedStrings(assets); !slices.Equal(got, want) {
		t.Fatalf("assets=%v, want %v", got, want)
	}
	if got := listFiles(t, out); !slices.Equal(got, []string{"Game/Config/DefaultGame.ini", "Game/Content/Maps/Level1.umap"}) {
		t.Fatalf("written=%v", got)
	}
	if len(listing) != len(fixtureFiles()) {
		t.Fatalf("listing must ignore include globs: %d entries", len(listing))
	}
}

func TestUnpackContainer_StripPolicy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pakPath := writePakFixture(t, dir, "a.pak", testsupport.PakOptions{})
	u := New()

	keepOut := filepath.Join(dir, "keep")
	keep := buildUnpackOptions(t, NewUnpackOptionsBuilder().WithStripPrefix("../../../Game/Content"))
	if _, err := u.UnpackContainer(context.Background(), pakPath, keepOut, keep); err != nil {
		t.Fatalf("UnpackContainer keep: %v", err)
	}

	want := []string{
		"Characters/Hero.uasset",
		"Characters/Hero.uexp",
		"Game/Config/DefaultGame.ini",
		"Maps/Level1.umap",
		"readme.txt",
	}
	if got := listFiles(t, keepOut); !slices.Equal(got, want) {
		t.Fatalf("written=%v, want %v", got, want)
	}

	rejectOut := filepath.Join(dir, "reject")
	reject := buildUnpackOptions(t, NewUnpackOptionsBuilder().
		WithStripPrefix("../../../Game/Content").
		WithStripPolicy(StripRejectUnmatched))
	_, err := u.UnpackContainer(context.Background(), pakPath, rejectOut, reject)
	if KindOf(err) != ErrInvalidArgument {
		t.Fatalf("err=%v, want ErrInvalidArgument", err)
	}
	if !strings.Contains(err.Error(), "DefaultGame.ini") {
		t.Fatalf("error must name the entry: %v", err)
	}
	if got := listFiles(t, rejectOut); len(got) != 0 {
		t.Fatalf("reject policy wrote files: %v", got)
	}
}

func TestUnpackContainer_EmptyStripPrefix(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pakPath := writePakFixture(t, dir, "a.pak", testsupport.PakOptions{MountPoint: "../../../Mod/"})
	out := filepath.Join(dir, "out")

	opts := buildUnpackOptions(t, NewUnpackOptionsBuilder().WithStripPrefix("").WithStripPolicy(StripRejectUnmatched))
	if _, err := New().UnpackContainer(context.Background(), pakPath, out, opts); err != nil {
		t.Fatalf("UnpackContainer: %v", err)
	}

	want := []string{
		"Mod/Game/Config/DefaultGame.ini",
		"Mod/Game/Content/Characters/Hero.uasset",
		"Mod/Game/Content/Characters/Hero.uexp",
		"Mod/Game/Content/Maps/Level1.umap",
		"Mod/Game/Content/readme.txt",
	}
	if got := listFiles(t, out); !slices.Equal(got, want) {
		t.Fatalf("written=%v, want %v", got, want)
	}
}

func TestUnpackContainer_Force(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	pakPath := writePakFixture(t, dir, "a.pak", testsupport.PakOptions{})
	target := filepath.Join(out, "Game", "Content", "Maps", "Level1.umap")

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	u := New()
	assets, err := u.UnpackContainer(context.Background(), pakPath, out, buildUnpackOptions(t, NewUnpackOptionsBuilder()))
	if err != nil {
		t.Fatalf("UnpackContainer: %v", err)
	}
	if len(assets) != len(fixtureFiles()) {
		t.Fatalf("skipped entries must still be reported: %d", len(assets))
	}
	if data, _ := os.ReadFile(target); string(data) != "old" {
		t.Fatalf("existing file overwritten without force: %q", data)
	}

	force := buildUnpackOptions(t, NewUnpackOptionsBuilder().WithForce(true))
	if _, err := u.UnpackContainer(context.Background(), pakPath, out, force); err != nil {
		t.Fatalf("UnpackContainer force: %v", err)
	}
	if data, _ := os.ReadFile(target); string(data) != "level one map payload" {
		t.Fatalf("force did not replace file: %q", data)
	}
}

func TestUnpackContainer_RawNamesAndSanitize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pakPath := filepath.Join(dir, "odd.pak")
	files := []testsupport.File{
		{Path: "Game/aux.uasset", Data: []byte("a")},
		{Path: "Game/Maps/con.umap", Data: []byte("b")},
	}
	if err := testsupport.WritePak(pakPath, files, testsupport.PakOptions{}); err != nil {
		t.Fatal(err)
	}

	u := New()
	sanitized := filepath.Join(dir, "sanitized")
	if _, err := u.UnpackContainer(context.Background(), pakPath, sanitized, buildUnpackOptions(t, NewUnpackOptionsBuilder())); err != nil {
		t.Fatalf("UnpackContainer: %v", err)
	}
	if got := listFiles(t, sanitized); !slices.Equal(got, []string{"Game/Maps/_con.umap", "Game/_aux.uasset"}) {
		t.Fatalf("sanitized output=%v", got)
	}

	raw := filepath.Join(dir, "raw")
	opts := buildUnpackOptions(t, NewUnpackOptionsBuilder().WithRawNames(true))
	if _, err := u.UnpackContainer(context.Background(), pakPath, raw, opts); err != nil {
		t.Fatalf("UnpackContainer raw: %v", err)
	}
	if got := listFiles(t, raw); !slices.Equal(got, []string{"Game/Maps/con.umap", "Game/aux.uasset"}) {
		t.Fatalf("raw output=%v", got)
	}
}

func TestUnpackContainer_Cancellation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pakPath := writePakFixture(t, dir, "a.pak", testsupport.PakOptions{Compress: true, BlockSize: 4096})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewReporter(0)
	r.Subscribe(func(ev ProgressEvent) {
		if ev.Stage == StageExtract {
			cancel()
		}
	})

	out := filepath.Join(dir, "out")
	_, err := New(WithReporter(r)).UnpackContainer(ctx, pakPath, out, buildUnpackOptions(t, NewUnpackOptionsBuilder()))
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err=%v, want ErrCancelled", err)
	}

	written := listFiles(t, out)
	if len(written) != 1 {
		t.Fatalf("written=%v, want exactly the entry finished before cancel", written)
	}
	for _, p := range written {
		if strings.HasSuffix(p, ".tmp") {
			t.Fatalf("partial file left: %s", p)
		}
	}

	var last ProgressEvent
	for _, ev := range drainEvents(r) {
		last = ev
	}
	if last.Stage != StageFailed {
		t.Fatalf("last event=%+v, want failed", last)
	}

	pre, stop := context.WithCancel(context.Background())
	stop()
	out2 := filepath.Join(dir, "out2")
	if _, err := New().UnpackContainer(pre, pakPath, out2, buildUnpackOptions(t, NewUnpackOptionsBuilder())); !errors.Is(err, ErrCancelled) {
		t.Fatalf("pre-cancelled err=%v", err)
	}
	if _, err := os.Stat(out2); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("pre-cancelled call touched output: %v", err)
	}
}

func TestUnpackOptions_InvalidKeyFailsEarly(t *testing.T) {
	t.Parallel()

	_, err := NewUnpackOptionsBuilder().WithHexKey("0xdeadbeef").Build()
	if !errors.Is(err, ErrInvalidAesKey) {
		t.Fatalf("err=%v, want ErrInvalidAesKey", err)
	}

	_, err = NewListOptionsBuilder().WithHexKey("not-hex").Build()
	if !errors.Is(err, ErrInvalidAesKey) {
		t.Fatalf("err=%v, want ErrInvalidAesKey", err)
	}

	_, err = NewListOptionsBuilder().WithFormat("yaml").Build()
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err=%v, want ErrInvalidArgument", err)
	}

	_, err = NewUnpackOptionsBuilder().WithStripPolicy(StripPolicy(9)).Build()
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err=%v, want ErrInvalidArgument", err)
	}
}

func TestUnpackContainer_ProgressMonotonic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	utocPath := writeIoStoreFixture(t, dir, "game", testsupport.IoStoreOptions{Compress: true})

	r := NewReporter(0)
	if _, err := New(WithReporter(r)).UnpackContainer(
		context.Background(), utocPath, filepath.Join(dir, "out"), buildUnpackOptions(t, NewUnpackOptionsBuilder()),
	); err != nil {
		t.Fatalf("UnpackContainer: %v", err)
	}

	events := drainEvents(r)
	if len(events) < 3 {
		t.Fatalf("too few events: %+v", events)
	}

	var prev uint8
	for _, ev := range events {
		if ev.Percentage < prev {
			t.Fatalf("percentage decreased: %+v", events)
		}
		if ev.Op != events[0].Op {
			t.Fatalf("op changed within one call: %+v", events)
		}
		prev = ev.Percentage
	}

	last := events[len(events)-1]
	if last.Stage != StageDone || last.Percentage != 100 {
		t.Fatalf("last event=%+v", last)
	}
}

func TestBatch_OneCorruptInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good1 := writePakFixture(t, dir, "good1.pak", testsupport.PakOptions{})
	good2 := writeIoStoreFixture(t, dir, "good2", testsupport.IoStoreOptions{})
	bad := writeGarbage(t, dir, "bad.pak")
	inputs := []string{good1, bad, good2}

	u := New(WithWorkers(2))

	listed := u.ListMany(context.Background(), inputs, buildListOptions(t, NewListOptionsBuilder().WithSorted(true)))
	if len(listed) != 3 {
		t.Fatalf("len(ListMany)=%d", len(listed))
	}
	for _, in := range []string{good1, good2} {
		if o := listed[in]; !o.OK() || !slices.Equal(assetStrings(o.Assets), fixtureAssetPaths(false)) {
			t.Fatalf("%s outcome=%+v", in, o)
		}
	}
	if o := listed[bad]; KindOf(o.Err) != ErrInvalidFormat {
		t.Fatalf("bad outcome err=%v", o.Err)
	}

	unpacked := u.UnpackMany(context.Background(), inputs, filepath.Join(dir, "out"), buildUnpackOptions(t, NewUnpackOptionsBuilder().WithForce(true)))
	if failed := unpacked.Failed(); !slices.Equal(failed, []string{bad}) {
		t.Fatalf("Failed()=%v", failed)
	}

	extracted := u.ExtractManyFromArchives(context.Background(), inputs, nil, false)
	if o := extracted["good1"]; !o.OK() || len(o.Assets) != len(fixtureAssetPaths(true)) {
		t.Fatalf("good1 outcome=%+v", o)
	}
	if o := extracted["bad"]; o.OK() {
		t.Fatal("bad input must fail")
	}
}

func TestExtractAssetPathsFromArchive_DirectContainer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	utocPath := writeIoStoreFixture(t, dir, "game", testsupport.IoStoreOptions{})

	u := New()
	for _, in := range []string{utocPath, strings.TrimSuffix(utocPath, ".utoc") + ".ucas"} {
		assets, err := u.ExtractAssetPathsFromArchive(context.Background(), in, nil, false)
		if err != nil {
			t.Fatalf("ExtractAssetPathsFromArchive(%s): %v", in, err)
		}
		if got := sortedStrings(assets); !slices.Equal(got, fixtureAssetPaths(true)) {
			t.Fatalf("assets=%v", got)
		}
	}

	if _, err := u.ExtractAssetPathsFromArchive(context.Background(), writeGarbage(t, dir, "x.bin"), nil, false); KindOf(err) != ErrInvalidFormat {
		t.Fatalf("unsupported input err=%v", err)
	}
}

func TestUnpacker_DefaultKeyFromConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pakPath := writePakFixture(t, dir, "enc.pak", testsupport.PakOptions{Key: testsupport.TestKey, EncryptIndex: true})

	cfg := DefaultConfig()
	cfg.DefaultKey = testsupport.TestKeyHex
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	opts := buildListOptions(t, NewListOptionsBuilder())
	if _, err := New().ListContainer(context.Background(), pakPath, opts); KindOf(err) != ErrEncryption {
		t.Fatalf("without key err=%v", err)
	}

	assets, err := New(WithConfig(cfg)).ListContainer(context.Background(), pakPath, opts)
	if err != nil {
		t.Fatalf("ListContainer with default key: %v", err)
	}
	if len(assets) != len(fixtureFiles()) {
		t.Fatalf("assets=%v", assets)
	}
}

func TestUnpacker_InfoAndEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	utocPath := writeIoStoreFixture(t, dir, "split", testsupport.IoStoreOptions{BlockSize: 4096, PartitionSize: 8192})

	u := New()
	info, err := u.ContainerInfo(context.Background(), utocPath, nil)
	if err != nil {
		t.Fatalf("ContainerInfo: %v", err)
	}
	if info.Kind != KindIoStore || info.Partitions < 2 || info.Entries != len(fixtureFiles()) {
		t.Fatalf("info=%+v", info)
	}

	entries, err := u.ListEntries(context.Background(), utocPath, nil)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	for _, e := range entries {
		if e.Path.Base() == "Hero.uasset" && e.Size != 20000 {
			t.Fatalf("hero size=%d", e.Size)
		}
	}
}

func TestAssetMapFromFolder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePakFixture(t, dir, "alpha.pak", testsupport.PakOptions{})
	writeIoStoreFixture(t, dir, "beta", testsupport.IoStoreOptions{})
	writePakFixture(t, dir, "beta.pak", testsupport.PakOptions{})
	writeGarbage(t, dir, "broken.pak")
	writeGarbage(t, dir, "notes.txt")

	res, err := New().AssetMapFromFolder(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("AssetMapFromFolder: %v", err)
	}

	keys := make([]string, 0, len(res))
	for k := range res {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if !slices.Equal(keys, []string{"alpha", "beta", "broken"}) {
		t.Fatalf("keys=%v", keys)
	}
	if !res["alpha"].OK() || !res["beta"].OK() || res["broken"].OK() {
		t.Fatalf("outcomes=%+v", res)
	}
	if got := sortedStrings(res["beta"].Assets); !slices.Equal(got, fixtureAssetPaths(true)) {
		t.Fatalf("beta assets=%v", got)
	}
}

func TestSkipPairedPaks(t *testing.T) {
	t.Parallel()

	in := []string{"/s/a.pak", "/s/A.utoc", "/s/b.pak", "/s/sub/a.pak"}
	got := skipPairedPaks(in)
	want := []string{"/s/A.utoc", "/s/b.pak", "/s/sub/a.pak"}
	if !slices.Equal(got, want) {
		t.Fatalf("skipPairedPaks=%v, want %v", got, want)
	}
}

// writeModPaks writes n pak fixtures, each mounted under its own mod directory.
func writeModPaks(t *testing.T, dir string, n int) []string {
	t.Helper()

	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		paths = append(paths, writePakFixture(t, dir, fmt.Sprintf("mod%02d.pak", i), testsupport.PakOptions{
			MountPoint: fmt.Sprintf("%sMod%02d/", testsupport.DefaultMountPoint, i),
		}))
	}

	return paths
}

func TestListMany_ConcurrentProgressMonotonic(t *testing.T) {
	t.Parallel()

	inputs := writeModPaks(t, t.TempDir(), 64)

	var (
		mu     sync.Mutex
		events []ProgressEvent
	)
	r := NewReporter(1)
	r.Subscribe(func(ev ProgressEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	result := New(WithReporter(r), WithWorkers(8)).ListMany(context.Background(), inputs, buildListOptions(t, NewListOptionsBuilder()))
	if len(result) != len(inputs) || len(result.Failed()) != 0 {
		t.Fatalf("result len=%d failed=%v", len(result), result.Failed())
	}

	mu.Lock()
	defer mu.Unlock()

	if len(events) != len(inputs)+2 {
		t.Fatalf("got %d events, want %d", len(events), len(inputs)+2)
	}

	var prev uint8
	for i, ev := range events {
		if ev.Percentage < prev {
			t.Fatalf("event %d: percentage %d after %d", i, ev.Percentage, prev)
		}
		prev = ev.Percentage
	}

	if last := events[len(events)-1]; last.Stage != StageDone || last.Percentage != 100 {
		t.Fatalf("last event=%+v", last)
	}
}

func TestUnpackMany_CancelMidBatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	inputs := writeModPaks(t, dir, 16)
	out := filepath.Join(dir, "out")

	const workers = 2

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewReporter(0)
	r.Subscribe(func(ev ProgressEvent) {
		if ev.Stage == StageExtract {
			cancel()
		}
	})

	result := New(WithReporter(r), WithWorkers(workers)).UnpackMany(ctx, inputs, out, buildUnpackOptions(t, NewUnpackOptionsBuilder()))
	if len(result) == 0 || len(result) > workers {
		t.Fatalf("result has %d keys, want 1..%d started items", len(result), workers)
	}

	started := make(map[string]bool, len(result))
	finished := 0
	for in, o := range result {
		started[StemKey(in)] = true
		if o.OK() {
			finished++
			continue
		}
		if KindOf(o.Err) != ErrCancelled {
			t.Fatalf("%s err=%v, want ErrCancelled", in, o.Err)
		}
	}
	if finished == 0 {
		t.Fatal("the item that triggered cancel must have finished")
	}

	for _, p := range listFiles(t, out) {
		if strings.HasSuffix(p, ".tmp") {
			t.Fatalf("partial file left: %s", p)
		}

		mod := strings.ToLower(strings.SplitN(p, "/", 2)[0])
		if !started[mod] {
			t.Fatalf("output %s belongs to an input that never started", p)
		}
	}

	var last ProgressEvent
	for _, ev := range drainEvents(r) {
		last = ev
	}
	if last.Stage != StageFailed {
		t.Fatalf("last event=%+v, want failed", last)
	}
}

func TestExtractManyFromArchives_DuplicateInputKeepsStem(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pakPath := writePakFixture(t, dir, "good1.pak", testsupport.PakOptions{})

	result := New(WithStagingRoot(t.TempDir())).ExtractManyFromArchives(context.Background(), []string{pakPath, pakPath}, nil, false)
	if len(result) != 1 {
		t.Fatalf("result=%v, want one entry", result)
	}
	if o, ok := result["good1"]; !ok || !o.OK() {
		t.Fatalf("result=%v, want key good1", result)
	}
}

func TestListContainer_CallerDeadline(t *testing.T) {
	t.Parallel()

	pakPath := writePakFixture(t, t.TempDir(), "a.pak", testsupport.PakOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	_, err := New().ListContainer(ctx, pakPath, buildListOptions(t, NewListOptionsBuilder()))
	if KindOf(err) != ErrTimeout {
		t.Fatalf("err=%v, want ErrTimeout", err)
	}
}
