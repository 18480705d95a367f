package codec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

func samplePayload() []byte {
	return bytes.Repeat([]byte("/Game/Maps/Arena.umap payload "), 200)
}

func compressFor(t *testing.T, method Method, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	switch method {
	case MethodZlib:
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			t.Fatalf("zlib write: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("zlib close: %v", err)
		}
	case MethodGzip:
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			t.Fatalf("gzip write: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("gzip close: %v", err)
		}
	case MethodZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			t.Fatalf("zstd writer: %v", err)
		}
		out := enc.EncodeAll(data, nil)
		_ = enc.Close()
		return out
	case MethodLZ4:
		out := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, out, nil)
		if err != nil || n == 0 {
			t.Fatalf("lz4 compress: n=%d err=%v", n, err)
		}
		return out[:n]
	default:
		t.Fatalf("no compressor for %s", method)
	}

	return buf.Bytes()
}

func TestDecompress_BuiltinMethods(t *testing.T) {
	t.Parallel()

	data := samplePayload()
	for _, method := range []Method{MethodZlib, MethodGzip, MethodZstd, MethodLZ4} {
		method := method
		t.Run(string(method), func(t *testing.T) {
			t.Parallel()

			packed := compressFor(t, method, data)
			got, err := Decompress(method, packed, len(data))
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if !bytes.Equal(got, data) {
				t.Fatal("decompressed payload mismatch")
			}
		})
	}
}

func TestDecompress_None(t *testing.T) {
	t.Parallel()

	got, err := Decompress(MethodNone, []byte("abcdef"), 3)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("got %q, want abc", got)
	}

	if _, err := Decompress(MethodNone, []byte("ab"), 3); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("short none err=%v, want ErrSizeMismatch", err)
	}
}

func TestDecompress_OodleUnsupported(t *testing.T) {
	t.Parallel()

	_, err := Decompress(MethodOodle, []byte{1, 2, 3}, 10)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err=%v, want ErrUnsupported", err)
	}
	if Supported(MethodOodle) {
		t.Fatal("Oodle reported as supported")
	}
}

func TestDecompress_Corrupt(t *testing.T) {
	t.Parallel()

	_, err := Decompress(MethodZlib, []byte("definitely not zlib"), 10)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err=%v, want ErrCorrupt", err)
	}
}

func TestRegister_CustomMethod(t *testing.T) {
	t.Parallel()

	custom := Method("Reverse")
	Register(custom, func(src []byte, dstLen int) ([]byte, error) {
		out := make([]byte, len(src))
		for i := range src {
			out[len(src)-1-i] = src[i]
		}
		return out[:dstLen], nil
	})
	defer Register(custom, nil)

	got, err := Decompress(custom, []byte("cba"), 3)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("got %q, want abc", got)
	}
}

func TestParseMethod(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want Method
	}{
		{in: "", want: MethodNone},
		{in: "Zlib\x00\x00", want: MethodZlib},
		{in: "deflate", want: MethodZlib},
		{in: "OODLE", want: MethodOodle},
		{in: "zstandard", want: MethodZstd},
		{in: "lz4", want: MethodLZ4},
	}

	for _, tc := range testCases {
		got, err := ParseMethod(tc.in)
		if err != nil {
			t.Fatalf("ParseMethod(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseMethod(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := ParseMethod("brotli"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("ParseMethod(brotli) err=%v, want ErrUnsupported", err)
	}
}
