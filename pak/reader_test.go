package pak

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sort"
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
	}
}

func writeFixture(t *testing.T, opts testsupport.PakOptions) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.pak")
	if err := testsupport.WritePak(path, fixtureFiles(), opts); err != nil {
		t.Fatalf("WritePak: %v", err)
	}

	return path
}

func sortedPaths(entries []EntryInfo) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	sort.Strings(out)
	return out
}

func TestOpen_Layouts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		opts testsupport.PakOptions
	}{
		{name: "v3", opts: testsupport.PakOptions{Version: 3}},
		{name: "v4 compressed absolute blocks", opts: testsupport.PakOptions{Version: 4, Compress: true, BlockSize: 4096}},
		{name: "v7", opts: testsupport.PakOptions{Version: 7}},
		{name: "v8 compressed", opts: testsupport.PakOptions{Version: 8, Compress: true, BlockSize: 4096}},
		{name: "v10", opts: testsupport.PakOptions{Version: 10}},
		{name: "v11 compressed", opts: testsupport.PakOptions{Version: 11, Compress: true, BlockSize: 4096}},
		{name: "v11 odd block size", opts: testsupport.PakOptions{Version: 11, Compress: true, BlockSize: 3000}},
		{
			name: "v11 encrypted",
			opts: testsupport.PakOptions{
				Compress: true, BlockSize: 4096, Key: testsupport.TestKey,
				EncryptIndex: true, EncryptData: true,
			},
		},
		{
			name: "v8 encrypted data only",
			opts: testsupport.PakOptions{Version: 8, Key: testsupport.TestKey, EncryptData: true},
		},
	}

	want := map[string][]byte{}
	for _, f := range fixtureFiles() {
		want[f.Path] = f.Data
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := writeFixture(t, tc.opts)
			var key []byte
			if tc.opts.EncryptIndex || tc.opts.EncryptData {
				key = testsupport.TestKey
			}

			r, err := OpenWithOptions(path, ReaderOptions{Key: key, VerifyIndexHash: true})
			if err != nil {
				t.Fatalf("OpenWithOptions: %v", err)
			}
			defer func() { _ = r.Close() }()

			if r.MountPoint() != testsupport.DefaultMountPoint {
				t.Fatalf("MountPoint=%q", r.MountPoint())
			}
			wantVersion := Version(tc.opts.Version)
			if wantVersion == 0 {
				wantVersion = VersionLatest
			}
			if got := r.Footer().Version; got != wantVersion {
				t.Fatalf("Version=%d, want %d", got, wantVersion)
			}

			entries := r.Entries()
			if len(entries) != len(want) {
				t.Fatalf("len(entries)=%d, want %d", len(entries), len(want))
			}

			for _, e := range entries {
				got, err := r.ReadEntry(e.Path)
				if err != nil {
					t.Fatalf("ReadEntry(%s): %v", e.Path, err)
				}
				if !bytes.Equal(got, want[e.Path]) {
					t.Fatalf("ReadEntry(%s) mismatch: got %d bytes, want %d", e.Path, len(got), len(want[e.Path]))
				}
			}
		})
	}
}

func TestOpen_DirectoryIndexPaths(t *testing.T) {
	t.Parallel()

	r, err := Open(writeFixture(t, testsupport.PakOptions{}))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	got := sortedPaths(r.Entries())
	want := []string{
		"Game/Config/DefaultGame.ini",
		"Game/Content/Characters/Hero.uasset",
		"Game/Content/Characters/Hero.uexp",
		"Game/Content/Maps/Level1.umap",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("paths=%v, want %v", got, want)
	}
}

func TestOpen_EncryptedIndexRequiresKey(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, testsupport.PakOptions{Key: testsupport.TestKey, EncryptIndex: true})

	_, err := Open(path)
	if !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("Open without key err=%v, want ErrKeyRequired", err)
	}

	need, err := RequiresKey(path)
	if err != nil {
		t.Fatalf("RequiresKey: %v", err)
	}
	if !need {
		t.Fatal("RequiresKey=false for encrypted index")
	}
}

func TestOpen_WrongKey(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, testsupport.PakOptions{Key: testsupport.TestKey, EncryptIndex: true})
	wrong := bytes.Repeat([]byte{0x11}, 32)

	_, err := OpenWithOptions(path, ReaderOptions{Key: wrong})
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("err=%v, want ErrInvalidKey", err)
	}
}

func TestOpen_ShortKey(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, testsupport.PakOptions{})
	_, err := OpenWithOptions(path, ReaderOptions{Key: []byte("short")})
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("err=%v, want ErrInvalidKey", err)
	}
}

func TestReadEntry_EncryptedDataWithoutKey(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, testsupport.PakOptions{Version: 8, Key: testsupport.TestKey, EncryptData: true})

	need, err := RequiresKey(path)
	if err != nil {
		t.Fatalf("RequiresKey: %v", err)
	}
	if !need {
		t.Fatal("RequiresKey=false for encrypted entries")
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	_, err = r.ReadEntry("Game/Content/Maps/Level1.umap")
	if !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("ReadEntry err=%v, want ErrKeyRequired", err)
	}
}

func TestOpen_InvalidMagic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.pak")
	if err := os.WriteFile(path, bytes.Repeat([]byte{0xAB}, 512), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path)
	if !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("err=%v, want ErrInvalidMagic", err)
	}
}

func TestOpen_TruncatedIndex(t *testing.T) {
	t.Parallel()

	data, err := testsupport.BuildPak(fixtureFiles(), testsupport.PakOptions{Version: 8})
	if err != nil {
		t.Fatal(err)
	}

	footer, err := ReadFooter(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ReadFooter: %v", err)
	}

	// Overwrite entry table past the mount point and count.
	for i := footer.IndexOffset + 20; i < footer.IndexOffset+footer.IndexSize; i++ {
		data[i] = 0xFF
	}

	_, err = NewReaderFromReaderAtWithOptions(bytes.NewReader(data), int64(len(data)), ReaderOptions{VerifyIndexHash: true})
	if !errors.Is(err, ErrIndexHashMismatch) {
		t.Fatalf("verify err=%v, want ErrIndexHashMismatch", err)
	}

	_, err = NewReaderFromReaderAt(bytes.NewReader(data), int64(len(data)))
	if !errors.Is(err, ErrCorruptIndex) {
		t.Fatalf("err=%v, want ErrCorruptIndex", err)
	}
}

func TestReadEntry_CorruptedCompressedPayload(t *testing.T) {
	t.Parallel()

	data, err := testsupport.BuildPak(fixtureFiles(), testsupport.PakOptions{Compress: true})
	if err != nil {
		t.Fatal(err)
	}

	r, err := NewReaderFromReaderAt(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewReaderFromReaderAt: %v", err)
	}

	var target EntryInfo
	for _, e := range r.Entries() {
		if e.Path == "Game/Content/Characters/Hero.uasset" {
			target = e
		}
	}
	if len(target.Blocks) == 0 {
		t.Fatal("expected compressed blocks")
	}

	start := target.Offset + target.Blocks[0].Start
	for i := start; i < start+8; i++ {
		data[i] ^= 0xFF
	}

	_, err = r.ReadEntry(target.Path)
	if !errors.Is(err, codec.ErrCorrupt) {
		t.Fatalf("err=%v, want codec.ErrCorrupt", err)
	}
}

func TestReadEntry_NotFoundAndClosed(t *testing.T) {
	t.Parallel()

	r, err := Open(writeFixture(t, testsupport.PakOptions{}))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := r.ReadEntry("missing.uasset"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("err=%v, want ErrEntryNotFound", err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := r.ReadEntry("Game/Config/DefaultGame.ini"); !errors.Is(err, ErrClosed) {
		t.Fatalf("err=%v, want ErrClosed", err)
	}
}

func TestListEntries_MatchesOpen(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, testsupport.PakOptions{Version: 8, Compress: true})
	listed, err := ListEntries(path)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	if strings.Join(sortedPaths(listed), ",") != strings.Join(sortedPaths(r.Entries()), ",") {
		t.Fatal("ListEntries differs from reader entries")
	}

	for _, e := range listed {
		if e.UncompressedSize > 0 && e.Compression != codec.MethodZlib {
			t.Fatalf("%s compression=%q, want Zlib", e.Path, e.Compression)
		}
	}
}

func TestRequiresKey_Plain(t *testing.T) {
	t.Parallel()

	need, err := RequiresKey(writeFixture(t, testsupport.PakOptions{}))
	if err != nil {
		t.Fatalf("RequiresKey: %v", err)
	}
	if need {
		t.Fatal("RequiresKey=true for plain pak")
	}
}

func TestNewReaderFromReaderAt_Nil(t *testing.T) {
	t.Parallel()

	if _, err := NewReaderFromReaderAt(nil, 0); !errors.Is(err, ErrNilReader) {
		t.Fatalf("err=%v, want ErrNilReader", err)
	}
}

func TestReadEntry_OversizedBlock(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		usize     uint64
		blockSize uint32
	}{
		{name: "zero block size", usize: 1 << 40},
		{name: "huge block size", usize: 1 << 40, blockSize: 1 << 30},
		{name: "block above cap", usize: maxBlockSize + 1, blockSize: maxBlockSize + 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			files := []testsupport.File{{Path: "a.bin", Data: bytes.Repeat([]byte("a"), 100)}}
			data, err := testsupport.BuildPak(files, testsupport.PakOptions{Version: 3, Compress: true})
			if err != nil {
				t.Fatal(err)
			}

			footer, err := ReadFooter(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				t.Fatalf("ReadFooter: %v", err)
			}

			// mount FString, count, name FString, offset, size.
			usizeAt := footer.IndexOffset + int64(4+len(testsupport.DefaultMountPoint)+1) + 4 + int64(4+len("a.bin")+1) + 8 + 8
			binary.LittleEndian.PutUint64(data[usizeAt:], tc.usize)
			blockSizeAt := footer.IndexOffset + footer.IndexSize - 4
			binary.LittleEndian.PutUint32(data[blockSizeAt:], tc.blockSize)

			r, err := NewReaderFromReaderAt(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				t.Fatalf("NewReaderFromReaderAt: %v", err)
			}

			entries := r.Entries()
			if len(entries) != 1 || uint64(entries[0].UncompressedSize) != tc.usize || entries[0].BlockSize != tc.blockSize {
				t.Fatalf("patched entries=%+v", entries)
			}

			if _, err := r.ReadEntry("a.bin"); !errors.Is(err, ErrInvalidEntry) {
				t.Fatalf("err=%v, want ErrInvalidEntry", err)
			}
		})
	}
}

func TestReadEntry_EncryptedDataWrongKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		opts testsupport.PakOptions
	}{
		{name: "v8 plain", opts: testsupport.PakOptions{Version: 8}},
		{name: "v8 compressed", opts: testsupport.PakOptions{Version: 8, Compress: true, BlockSize: 4096}},
		{name: "v11 plain", opts: testsupport.PakOptions{Version: 11}},
		{name: "v11 compressed", opts: testsupport.PakOptions{Version: 11, Compress: true, BlockSize: 4096}},
	}

	wrong := bytes.Repeat([]byte{0x11}, 32)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			opts := tc.opts
			opts.Key = testsupport.TestKey
			opts.EncryptData = true
			path := writeFixture(t, opts)

			good, err := OpenWithOptions(path, ReaderOptions{Key: testsupport.TestKey})
			if err != nil {
				t.Fatalf("Open right key: %v", err)
			}
			defer func() { _ = good.Close() }()

			got, err := good.ReadEntry("Game/Content/Maps/Level1.umap")
			if err != nil || string(got) != "level one map payload" {
				t.Fatalf("right key ReadEntry=%q, %v", got, err)
			}

			// Unencrypted index opens with any key.
			bad, err := OpenWithOptions(path, ReaderOptions{Key: wrong})
			if err != nil {
				t.Fatalf("Open wrong key: %v", err)
			}
			defer func() { _ = bad.Close() }()

			if _, err := bad.ReadEntry("Game/Content/Maps/Level1.umap"); !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("wrong key err=%v, want ErrInvalidKey", err)
			}
		})
	}
}
