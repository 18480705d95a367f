// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

// Package testsupport builds small pak and utoc/ucas containers for tests.
package testsupport

import (
	"bytes"
	"crypto/cipher"
	"crypto/sha1" //nolint:gosec // pak format requires SHA1.
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/woozymasta/uepak/internal/uebin"
)

// File is one container entry fixture.
type File struct {
	Path string
	Data []byte
}

// TestKey is a fixed AES-256 key for encrypted fixtures.
var TestKey = bytes.Repeat([]byte{0x5a}, uebin.KeySize)

// TestKeyHex is TestKey in hex form with 0x prefix.
const TestKeyHex = "0x5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a"

// DefaultMountPoint is the engine default mount point.
const DefaultMountPoint = "../../../"

const (
	pakMagic          = 0x5A6F12E1
	pakSlots          = 5
	pakSlotLen        = 32
	defaultBlockSize  = 64 * 1024
	pathHashIndexFrom = 10
)

// PakOptions configures fixture pak layout.
type PakOptions struct {
	// Version is pak version; supported: 3..8, 10, 11. Zero means 11.
	Version uint32
	// MountPoint defaults to DefaultMountPoint.
	MountPoint string
	// Compress enables zlib block compression.
	Compress bool
	// BlockSize is uncompressed block size; defaults to 64 KiB.
	BlockSize int
	// Key enables encryption when EncryptIndex or EncryptData is set.
	Key []byte
	// EncryptIndex encrypts primary and directory index.
	EncryptIndex bool
	// EncryptData encrypts entry payloads.
	EncryptData bool
}

// applyDefaults fills zero fields.
func (o *PakOptions) applyDefaults() {
	if o.Version == 0 {
		o.Version = 11
	}
	if o.MountPoint == "" {
		o.MountPoint = DefaultMountPoint
	}
	if o.BlockSize <= 0 {
		o.BlockSize = defaultBlockSize
	}
}

// pakRecord is written metadata for one entry.
type pakRecord struct {
	path       string
	offset     int64
	size       int64
	usize      int64
	blockSizes []int64
	blocks     [][2]int64
	hash       [20]byte
}

// WritePak builds a pak and writes it to dst.
func WritePak(dst string, files []File, opts PakOptions) error {
	data, err := BuildPak(files, opts)
	if err != nil {
		return err
	}

	return os.WriteFile(dst, data, 0o600)
}

// BuildPak returns serialized pak bytes.
func BuildPak(files []File, opts PakOptions) ([]byte, error) {
	opts.applyDefaults()
	if opts.Version < 3 || opts.Version == 9 || opts.Version > 11 {
		return nil, fmt.Errorf("fixture pak version %d not supported", opts.Version)
	}

	var block cipher.Block
	if opts.EncryptIndex || opts.EncryptData {
		var err error
		if block, err = uebin.NewCipher(opts.Key); err != nil {
			return nil, err
		}
	}

	w := &pakWriter{opts: opts, block: block}
	for _, f := range files {
		if err := w.writeEntry(f); err != nil {
			return nil, err
		}
	}

	if opts.Version >= pathHashIndexFrom {
		if err := w.writePathHashIndex(); err != nil {
			return nil, err
		}
	} else if err := w.writeLegacyIndex(); err != nil {
		return nil, err
	}

	return w.out.Bytes(), nil
}

// pakWriter accumulates pak bytes.
type pakWriter struct {
	out     bytes.Buffer
	block   cipher.Block
	records []pakRecord
	opts    PakOptions
}

// method returns stored compression field for entries.
func (w *pakWriter) method() uint32 {
	if !w.opts.Compress {
		return 0
	}

	return 1 // zlib flag before v8, first footer slot after
}

// headerSize mirrors serialized entry size for current version.
func (w *pakWriter) headerSize(blockCount int) int64 {
	size := int64(8+8+8+4) + 20
	if w.opts.Compress {
		size += 4 + 16*int64(blockCount)
	}

	return size + 1 + 4
}

// writeEntry appends entry header and payload.
func (w *pakWriter) writeEntry(f File) error {
	rec := pakRecord{path: f.Path, offset: int64(w.out.Len()), usize: int64(len(f.Data))}

	var payload bytes.Buffer
	digest := sha1.New() //nolint:gosec // pak format requires SHA1.
	if w.opts.Compress {
		var chunks [][]byte
		for start := 0; start < len(f.Data); start += w.opts.BlockSize {
			end := min(start+w.opts.BlockSize, len(f.Data))
			chunk, err := zlibBytes(f.Data[start:end])
			if err != nil {
				return err
			}

			chunks = append(chunks, chunk)
		}

		base := w.headerSize(len(chunks))
		cursor := base
		for _, chunk := range chunks {
			stored := chunk
			if w.opts.EncryptData {
				stored = w.encrypt(chunk)
			}

			start := cursor
			if w.opts.Version < 5 {
				start += rec.offset
			}

			_, _ = digest.Write(chunk)
			rec.blocks = append(rec.blocks, [2]int64{start, start + int64(len(chunk))})
			rec.blockSizes = append(rec.blockSizes, int64(len(chunk)))
			payload.Write(stored)
			cursor += int64(len(stored))
		}

		rec.size = int64(payload.Len())
	} else {
		rec.size = int64(len(f.Data))
		_, _ = digest.Write(f.Data)
		if w.opts.EncryptData {
			payload.Write(w.encrypt(f.Data))
		} else {
			payload.Write(f.Data)
		}
	}

	// Hash covers the unpadded payload before encryption.
	copy(rec.hash[:], digest.Sum(nil))

	var hdr uebin.Encoder
	w.encodeRecord(&hdr, rec, 0)
	w.out.Write(hdr.Bytes())
	w.out.Write(payload.Bytes())

	w.records = append(w.records, rec)
	return nil
}

// encodeRecord writes one FPakEntry record with given offset field.
func (w *pakWriter) encodeRecord(e *uebin.Encoder, rec pakRecord, offset int64) {
	e.U64(uint64(offset))    //nolint:gosec // fixture sizes are small
	e.U64(uint64(rec.size))  //nolint:gosec // fixture sizes are small
	e.U64(uint64(rec.usize)) //nolint:gosec // fixture sizes are small
	e.U32(w.method())
	_, _ = e.Write(rec.hash[:])
	if w.opts.Compress {
		e.U32(uint32(len(rec.blocks))) //nolint:gosec // fixture sizes are small
		for _, b := range rec.blocks {
			e.U64(uint64(b[0])) //nolint:gosec // fixture sizes are small
			e.U64(uint64(b[1])) //nolint:gosec // fixture sizes are small
		}
	}

	var flags uint8
	if w.opts.EncryptData {
		flags = 1
	}
	e.U8(flags)

	if w.opts.Compress {
		e.U32(uint32(w.opts.BlockSize)) //nolint:gosec // fixture sizes are small
	} else {
		e.U32(0)
	}
}

// writeLegacyIndex appends v3..v8 index and footer.
func (w *pakWriter) writeLegacyIndex() error {
	var idx uebin.Encoder
	idx.FString(w.opts.MountPoint)
	idx.U32(uint32(len(w.records))) //nolint:gosec // fixture sizes are small
	for _, rec := range w.records {
		idx.FString(rec.path)
		w.encodeRecord(&idx, rec, rec.offset)
	}

	offset, size, hash := w.appendIndexRegion(idx.Bytes())
	w.writeFooter(offset, size, hash)
	return nil
}

// writePathHashIndex appends directory index, primary index and footer.
func (w *pakWriter) writePathHashIndex() error {
	var encoded uebin.Encoder
	locations := make([]int32, len(w.records))
	for i, rec := range w.records {
		locations[i] = int32(encoded.Len()) //nolint:gosec // fixture sizes are small
		w.encodeEntry(&encoded, rec)
	}

	dirs, order := groupByDirectory(w.records)
	var fdi uebin.Encoder
	fdi.U32(uint32(len(order))) //nolint:gosec // fixture sizes are small
	for _, dir := range order {
		fdi.FString(dir)
		fdi.U32(uint32(len(dirs[dir]))) //nolint:gosec // fixture sizes are small
		for _, i := range dirs[dir] {
			fdi.FString(path.Base(w.records[i].path))
			fdi.I32(locations[i])
		}
	}

	fdiOffset, fdiSize, fdiHash := w.appendIndexRegion(fdi.Bytes())

	var idx uebin.Encoder
	idx.FString(w.opts.MountPoint)
	idx.U32(uint32(len(w.records))) //nolint:gosec // fixture sizes are small
	idx.U64(0)                      // path hash seed
	idx.U32(0)                      // no path hash index
	idx.U32(1)                      // has full directory index
	idx.U64(uint64(fdiOffset))      //nolint:gosec // fixture sizes are small
	idx.U64(uint64(fdiSize))        //nolint:gosec // fixture sizes are small
	_, _ = idx.Write(fdiHash[:])
	idx.U32(uint32(encoded.Len())) //nolint:gosec // fixture sizes are small
	_, _ = idx.Write(encoded.Bytes())
	idx.U32(0) // plain entries

	offset, size, hash := w.appendIndexRegion(idx.Bytes())
	w.writeFooter(offset, size, hash)
	return nil
}

// encodeEntry writes bit-packed entry for path hash index versions.
func (w *pakWriter) encodeEntry(e *uebin.Encoder, rec pakRecord) {
	var bits uint32
	blockSizeField := uint32(0)
	extraBlockSize := false
	if w.opts.Compress {
		bs := uint32(w.opts.BlockSize) //nolint:gosec // fixture sizes are small
		if bs%2048 == 0 && bs>>11 < 0x3f {
			blockSizeField = bs >> 11
		} else {
			blockSizeField = 0x3f
			extraBlockSize = true
		}
	}

	bits |= blockSizeField
	bits |= uint32(len(rec.blocks)) << 6 //nolint:gosec // fixture sizes are small
	if w.opts.EncryptData {
		bits |= 1 << 22
	}
	bits |= w.method() << 23
	bits |= 1<<29 | 1<<30 | 1<<31

	e.U32(bits)
	if extraBlockSize {
		e.U32(uint32(w.opts.BlockSize)) //nolint:gosec // fixture sizes are small
	}
	e.U32(uint32(rec.offset)) //nolint:gosec // fixture sizes are small
	e.U32(uint32(rec.usize))  //nolint:gosec // fixture sizes are small
	if w.opts.Compress {
		e.U32(uint32(rec.size)) //nolint:gosec // fixture sizes are small
		if len(rec.blocks) > 1 || w.opts.EncryptData {
			for _, size := range rec.blockSizes {
				e.U32(uint32(size)) //nolint:gosec // fixture sizes are small
			}
		}
	}
}

// appendIndexRegion pads, hashes, optionally encrypts and appends index bytes.
func (w *pakWriter) appendIndexRegion(plain []byte) (int64, int64, [20]byte) {
	buf := append([]byte(nil), plain...)
	if w.opts.EncryptIndex {
		for int64(len(buf)) != uebin.Align(int64(len(buf))) {
			buf = append(buf, 0)
		}
	}

	hash := sha1.Sum(buf) //nolint:gosec // pak format requires SHA1.
	if w.opts.EncryptIndex {
		_ = uebin.EncryptECB(w.block, buf)
	}

	offset := int64(w.out.Len())
	w.out.Write(buf)
	return offset, int64(len(buf)), hash
}

// writeFooter appends footer for configured version.
func (w *pakWriter) writeFooter(offset, size int64, hash [20]byte) {
	var f uebin.Encoder
	if w.opts.Version >= 7 {
		_, _ = f.Write(make([]byte, 16))
	}
	if w.opts.Version >= 4 {
		if w.opts.EncryptIndex {
			f.U8(1)
		} else {
			f.U8(0)
		}
	}

	f.U32(pakMagic)
	f.U32(w.opts.Version)
	f.U64(uint64(offset)) //nolint:gosec // fixture sizes are small
	f.U64(uint64(size))   //nolint:gosec // fixture sizes are small
	_, _ = f.Write(hash[:])

	if w.opts.Version >= 8 {
		for i := 0; i < pakSlots; i++ {
			slot := make([]byte, pakSlotLen)
			if i == 0 && w.opts.Compress {
				copy(slot, "Zlib")
			}
			_, _ = f.Write(slot)
		}
	}

	w.out.Write(f.Bytes())
}

// encrypt returns padded encrypted copy of data.
func (w *pakWriter) encrypt(data []byte) []byte {
	buf := make([]byte, uebin.Align(int64(len(data))))
	copy(buf, data)
	_ = uebin.EncryptECB(w.block, buf)
	return buf
}

// groupByDirectory groups record indexes by directory in first-seen order.
func groupByDirectory(records []pakRecord) (map[string][]int, []string) {
	dirs := make(map[string][]int)
	var order []string
	for i, rec := range records {
		dir := path.Dir(rec.path)
		if dir == "." {
			dir = "/"
		} else {
			dir = strings.TrimSuffix(dir, "/") + "/"
		}

		if _, ok := dirs[dir]; !ok {
			order = append(order, dir)
		}
		dirs[dir] = append(dirs[dir], i)
	}

	return dirs, order
}

// zlibBytes compresses data with zlib.
func zlibBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
