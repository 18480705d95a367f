package uepak

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/woozymasta/uepak/codec"
	"github.com/woozymasta/uepak/internal/testsupport"
)

func fixtureFiles() []testsupport.File {
	return []testsupport.File{
		{Path: "Game/Content/Maps/Level1.umap", Data: []byte("level one map payload")},
		{Path: "Game/Content/Characters/Hero.uasset", Data: bytes.Repeat([]byte("hero-"), 4000)},
		{Path: "Game/Content/Characters/Hero.uexp", Data: []byte{}},
		{Path: "Game/Config/DefaultGame.ini", Data: []byte("[/Script/Engine]\nkey=value\n")},
		{Path: "Game/Content/readme.txt", Data: []byte("not an asset")},
	}
}

// fixtureAssetPaths returns mount-qualified paths of fixtureFiles, sorted.
func fixtureAssetPaths(assetsOnly bool) []string {
	var out []string
	for _, f := range fixtureFiles() {
		p := testsupport.DefaultMountPoint + f.Path
		if assetsOnly && !MustAssetPath(p).IsAsset() {
			continue
		}
		out = append(out, p)
	}
	slices.Sort(out)

	return out
}

func writePakFixture(t *testing.T, dir string, name string, opts testsupport.PakOptions) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := testsupport.WritePak(path, fixtureFiles(), opts); err != nil {
		t.Fatalf("WritePak: %v", err)
	}

	return path
}

func writeIoStoreFixture(t *testing.T, dir string, stem string, opts testsupport.IoStoreOptions) string {
	t.Helper()

	path, err := testsupport.WriteIoStore(dir, stem, fixtureFiles(), opts)
	if err != nil {
		t.Fatalf("WriteIoStore: %v", err)
	}

	return path
}

func writeGarbage(t *testing.T, dir string, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, bytes.Repeat([]byte{0xAB}, 512), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func sortedStrings(paths []AssetPath) []string {
	out := assetStrings(paths)
	slices.Sort(out)
	return out
}

func mustKey(t *testing.T) *DecryptionKey {
	t.Helper()

	key, err := ParseKey(testsupport.TestKeyHex)
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}

	return key
}

func TestOpenContainer_Kinds(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pakPath := writePakFixture(t, dir, "pakchunk0.pak", testsupport.PakOptions{Compress: true, BlockSize: 4096})
	utocPath := writeIoStoreFixture(t, dir, "pakchunk1", testsupport.IoStoreOptions{Compress: true, BlockSize: 4096})

	renamed := filepath.Join(dir, "pakchunk2.bin")
	data, err := os.ReadFile(pakPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(renamed, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name      string
		path      string
		wantKind  ContainerKind
		wantIndex string
	}{
		{name: "pak", path: pakPath, wantKind: KindPak, wantIndex: pakPath},
		{name: "utoc", path: utocPath, wantKind: KindIoStore, wantIndex: utocPath},
		{name: "ucas resolves utoc", path: strings.TrimSuffix(utocPath, ".utoc") + ".ucas", wantKind: KindIoStore, wantIndex: utocPath},
		{name: "pak by magic", path: renamed, wantKind: KindPak, wantIndex: renamed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h, err := OpenContainer(tc.path, nil)
			if err != nil {
				t.Fatalf("OpenContainer: %v", err)
			}
			defer func() { _ = h.Close() }()

			if h.Kind() != tc.wantKind || h.Path() != tc.wantIndex {
				t.Fatalf("kind=%s path=%s", h.Kind(), h.Path())
			}
			if got := sortedStrings(h.List()); !slices.Equal(got, fixtureAssetPaths(false)) {
				t.Fatalf("List()=%v", got)
			}
		})
	}
}

func TestContainerHandle_EntriesAndInfo(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pakPath := writePakFixture(t, dir, "a.pak", testsupport.PakOptions{Compress: true, BlockSize: 4096})

	h, err := OpenContainer(pakPath, nil)
	if err != nil {
		t.Fatalf("OpenContainer: %v", err)
	}
	defer func() { _ = h.Close() }()

	var hero EntryInfo
	for _, e := range h.Entries() {
		if e.Path.Base() == "Hero.uasset" {
			hero = e
		}
	}
	if hero.Size != 20000 || hero.Compression != codec.MethodZlib || hero.CompressedSize >= hero.Size {
		t.Fatalf("hero entry=%+v", hero)
	}

	info := h.Info()
	if info.Kind != KindPak || info.Version != 11 || info.Entries != len(fixtureFiles()) {
		t.Fatalf("info=%+v", info)
	}
	if info.MountPoint != testsupport.DefaultMountPoint || info.Encrypted {
		t.Fatalf("info=%+v", info)
	}
	if !slices.Contains(info.CompressionMethods, codec.MethodZlib) {
		t.Fatalf("compression methods=%v", info.CompressionMethods)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	var nilHandle *ContainerHandle
	if err := nilHandle.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}

func TestOpenContainer_MissingUcas(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	utocPath := writeIoStoreFixture(t, dir, "solo", testsupport.IoStoreOptions{SkipUcas: true})

	_, err := OpenContainer(utocPath, nil)
	if !errors.Is(err, ErrMissingFile) {
		t.Fatalf("err=%v, want ErrMissingFile", err)
	}

	var e *Error
	if !errors.As(err, &e) || e.Companion != filepath.Join(dir, "solo.ucas") {
		t.Fatalf("companion not reported: %v", err)
	}
	if !strings.Contains(err.Error(), "solo.ucas") {
		t.Fatalf("message must name companion: %v", err)
	}
}

func TestOpenContainer_MissingSecondPartition(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	utocPath := writeIoStoreFixture(t, dir, "split", testsupport.IoStoreOptions{BlockSize: 4096, PartitionSize: 8192})
	second := filepath.Join(dir, "split_s1.ucas")
	if err := os.Remove(second); err != nil {
		t.Fatalf("remove partition: %v", err)
	}

	_, err := OpenContainer(utocPath, nil)
	if KindOf(err) != ErrMissingFile {
		t.Fatalf("err=%v, want ErrMissingFile", err)
	}

	var e *Error
	if !errors.As(err, &e) || e.Companion != second {
		t.Fatalf("err=%v, want companion %q", err, second)
	}
}

func TestOpenContainer_OrphanUcas(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ucas := writeGarbage(t, dir, "orphan.ucas")

	_, err := OpenContainer(ucas, nil)
	if !errors.Is(err, ErrMissingFile) {
		t.Fatalf("err=%v, want ErrMissingFile", err)
	}
}

func TestOpenContainer_Encryption(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pakPath := writePakFixture(t, dir, "enc.pak", testsupport.PakOptions{
		Key:          testsupport.TestKey,
		EncryptIndex: true,
		EncryptData:  true,
	})
	utocPath := writeIoStoreFixture(t, dir, "enc", testsupport.IoStoreOptions{Key: testsupport.TestKey, Encrypt: true})

	wrong, err := ParseKey(strings.Repeat("11", 32))
	if err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{pakPath, utocPath} {
		need, err := RequiresKey(path)
		if err != nil || !need {
			t.Fatalf("RequiresKey(%s)=%v, %v", path, need, err)
		}

		if _, err := OpenContainer(path, nil); KindOf(err) != ErrEncryption {
			t.Fatalf("%s without key: err=%v, want ErrEncryption", path, err)
		}

		_, err = OpenContainer(path, wrong)
		if !errors.Is(err, ErrInvalidAesKey) {
			t.Fatalf("%s wrong key: err=%v, want ErrInvalidAesKey", path, err)
		}
		if strings.Contains(err.Error(), "1111111111") {
			t.Fatalf("error leaks key: %v", err)
		}

		h, err := OpenContainer(path, mustKey(t))
		if err != nil {
			t.Fatalf("%s right key: %v", path, err)
		}
		if got := sortedStrings(h.List()); !slices.Equal(got, fixtureAssetPaths(false)) {
			t.Fatalf("List()=%v", got)
		}
		_ = h.Close()
	}
}

func TestExtractAll_EncryptedDataWrongKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pakPath := writePakFixture(t, dir, "data.pak", testsupport.PakOptions{Key: testsupport.TestKey, EncryptData: true})

	wrong, err := ParseKey(strings.Repeat("22", 32))
	if err != nil {
		t.Fatal(err)
	}

	h, err := OpenContainer(pakPath, wrong)
	if err != nil {
		t.Fatalf("OpenContainer: %v", err)
	}
	defer func() { _ = h.Close() }()

	out := filepath.Join(dir, "out")
	assets, err := h.ExtractAll(context.Background(), out, buildUnpackOptions(t, NewUnpackOptionsBuilder()))
	if !errors.Is(err, ErrInvalidAesKey) {
		t.Fatalf("err=%v, want ErrInvalidAesKey", err)
	}
	if len(assets) != 0 {
		t.Fatalf("assets=%v, want none", assets)
	}
	for _, p := range listFiles(t, out) {
		fi, err := os.Stat(filepath.Join(out, p))
		if err != nil {
			t.Fatal(err)
		}
		if fi.Size() != 0 {
			t.Fatalf("undecryptable payload written: %s", p)
		}
	}

	right, err := OpenContainer(pakPath, mustKey(t))
	if err != nil {
		t.Fatalf("OpenContainer right key: %v", err)
	}
	defer func() { _ = right.Close() }()

	assets, err = right.ExtractAll(context.Background(), filepath.Join(dir, "ok"), buildUnpackOptions(t, NewUnpackOptionsBuilder()))
	if err != nil {
		t.Fatalf("ExtractAll right key: %v", err)
	}
	if len(assets) != len(fixtureFiles()) {
		t.Fatalf("assets=%v", assets)
	}
}

func TestOpenContainer_KeyIgnoredForPlain(t *testing.T) {
	t.Parallel()

	pakPath := writePakFixture(t, t.TempDir(), "plain.pak", testsupport.PakOptions{})

	need, err := RequiresKey(pakPath)
	if err != nil || need {
		t.Fatalf("RequiresKey=%v, %v", need, err)
	}

	h, err := OpenContainer(pakPath, mustKey(t))
	if err != nil {
		t.Fatalf("OpenContainer: %v", err)
	}
	_ = h.Close()
}

func TestOpenContainer_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cases := []struct {
		name string
		path string
		want error
	}{
		{name: "not found", path: filepath.Join(dir, "nope.pak"), want: ErrFileNotFound},
		{name: "directory", path: dir, want: ErrInvalidArgument},
		{name: "corrupt pak", path: writeGarbage(t, dir, "bad.pak"), want: ErrInvalidFormat},
		{name: "unknown", path: writeGarbage(t, dir, "bad.bin"), want: ErrInvalidFormat},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := OpenContainer(tc.path, nil)
			if KindOf(err) != tc.want {
				t.Fatalf("err=%v, want kind %v", err, tc.want)
			}
		})
	}
}
