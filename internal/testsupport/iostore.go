// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package testsupport

import (
	"bytes"
	"crypto/cipher"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"

	"github.com/woozymasta/uepak/internal/uebin"
)

const (
	tocMagic        = "-==--==--==--==-"
	tocHeaderSize   = 144
	tocFlagCompress = 1
	tocFlagEncrypt  = 2
	tocFlagIndexed  = 8
	chunkTypeExport = 1
	chunkTypeHeader = 6
	tocNone         = 0xFFFFFFFF
)

// IoStoreOptions configures fixture utoc/ucas layout.
type IoStoreOptions struct {
	// Version is toc version; zero means 8.
	Version uint8
	// MountPoint defaults to DefaultMountPoint.
	MountPoint string
	// Compress enables zlib block compression.
	Compress bool
	// BlockSize is compression block size; defaults to 64 KiB.
	BlockSize int
	// PartitionSize splits .ucas into <stem>_s<N>.ucas files when > 0.
	PartitionSize int
	// Key and Encrypt enable AES encryption of blocks and directory index.
	Key     []byte
	Encrypt bool
	// SkipUcas leaves .ucas partitions unwritten.
	SkipUcas bool
}

// applyDefaults fills zero fields.
func (o *IoStoreOptions) applyDefaults() {
	if o.Version == 0 {
		o.Version = 8
	}
	if o.MountPoint == "" {
		o.MountPoint = DefaultMountPoint
	}
	if o.BlockSize <= 0 {
		o.BlockSize = defaultBlockSize
	}
}

// WriteIoStore writes <dir>/<stem>.utoc and its .ucas partitions, returning utoc path.
// A container header chunk without directory entry is appended like real containers do.
func WriteIoStore(dir string, stem string, files []File, opts IoStoreOptions) (string, error) {
	opts.applyDefaults()

	var block cipher.Block
	if opts.Encrypt {
		var err error
		if block, err = uebin.NewCipher(opts.Key); err != nil {
			return "", err
		}
	}

	w := &tocWriter{opts: opts, block: block, partitions: []*bytes.Buffer{{}}}
	for _, f := range files {
		if err := w.addChunk(chunkID(f.Path, chunkTypeExport), f.Data); err != nil {
			return "", err
		}
	}
	if err := w.addChunk(chunkID(stem, chunkTypeHeader), []byte("container-header")); err != nil {
		return "", err
	}

	dirIndex := buildDirectoryIndex(opts.MountPoint, files)
	if opts.Encrypt {
		dirIndex = padTo(dirIndex)
		_ = uebin.EncryptECB(block, dirIndex)
	}

	tocPath := filepath.Join(dir, stem+".utoc")
	if err := os.WriteFile(tocPath, w.toc(dirIndex), 0o600); err != nil {
		return "", err
	}

	if opts.SkipUcas {
		return tocPath, nil
	}

	for i, p := range w.partitions {
		name := stem + ".ucas"
		if i > 0 {
			name = fmt.Sprintf("%s_s%d.ucas", stem, i)
		}
		if err := os.WriteFile(filepath.Join(dir, name), p.Bytes(), 0o600); err != nil {
			return "", err
		}
	}

	return tocPath, nil
}

// tocWriter accumulates chunk and block tables.
type tocWriter struct {
	block      cipher.Block
	partitions []*bytes.Buffer
	ids        [][12]byte
	offsets    [][2]uint64
	blocks     [][12]byte
	opts       IoStoreOptions
	cursor     uint64
}

// addChunk splits data into compression blocks and appends them to partitions.
func (w *tocWriter) addChunk(id [12]byte, data []byte) error {
	bs := w.opts.BlockSize
	w.ids = append(w.ids, id)
	w.offsets = append(w.offsets, [2]uint64{w.cursor, uint64(len(data))})

	for start := 0; start < len(data); start += bs {
		end := min(start+bs, len(data))
		plain := data[start:end]

		stored := plain
		method := uint8(0)
		if w.opts.Compress {
			var err error
			if stored, err = zlibBytes(plain); err != nil {
				return err
			}
			method = 1
		}

		payload := stored
		if w.opts.Encrypt {
			payload = padTo(stored)
			_ = uebin.EncryptECB(w.block, payload)
		}

		part := w.partitions[len(w.partitions)-1]
		if ps := w.opts.PartitionSize; ps > 0 && part.Len() > 0 && part.Len()+len(payload) > ps {
			part = &bytes.Buffer{}
			w.partitions = append(w.partitions, part)
		}

		abs := uint64(part.Len())
		if w.opts.PartitionSize > 0 {
			abs += uint64(len(w.partitions)-1) * uint64(w.opts.PartitionSize)
		}
		part.Write(payload)

		var entry [12]byte
		for i := 0; i < 5; i++ {
			entry[i] = byte(abs >> (8 * i))
		}
		for i := 0; i < 3; i++ {
			entry[5+i] = byte(len(stored) >> (8 * i))
			entry[8+i] = byte(len(plain) >> (8 * i))
		}
		entry[11] = method
		w.blocks = append(w.blocks, entry)
	}

	blocks := (len(data) + bs - 1) / bs
	w.cursor += uint64(blocks) * uint64(bs)
	return nil
}

// toc serializes header and sections.
func (w *tocWriter) toc(dirIndex []byte) []byte {
	var e uebin.Encoder
	_, _ = e.WriteString(tocMagic)
	e.U8(w.opts.Version)
	e.U8(0)
	e.U8(0)
	e.U8(0)
	e.U32(tocHeaderSize)
	e.U32(uint32(len(w.ids)))    //nolint:gosec // fixture sizes are small
	e.U32(uint32(len(w.blocks))) //nolint:gosec // fixture sizes are small
	e.U32(12)

	methods := uint32(0)
	if w.opts.Compress {
		methods = 1
	}
	e.U32(methods)
	e.U32(32)
	e.U32(uint32(w.opts.BlockSize))  //nolint:gosec // fixture sizes are small
	e.U32(uint32(len(dirIndex)))     //nolint:gosec // fixture sizes are small
	e.U32(uint32(len(w.partitions))) //nolint:gosec // fixture sizes are small
	e.U64(0x1234_5678_9abc_def0)     // container id
	_, _ = e.Write(make([]byte, 16)) // key guid

	flags := uint8(tocFlagIndexed)
	if w.opts.Compress {
		flags |= tocFlagCompress
	}
	if w.opts.Encrypt {
		flags |= tocFlagEncrypt
	}
	e.U8(flags)
	e.U8(0)
	e.U8(0)
	e.U8(0)
	e.U32(0) // perfect hash seeds

	partitionSize := uint64(1<<64 - 1)
	if w.opts.PartitionSize > 0 {
		partitionSize = uint64(w.opts.PartitionSize)
	}
	e.U64(partitionSize)
	e.U32(0) // chunks without perfect hash
	e.U32(0)
	_, _ = e.Write(make([]byte, 40))

	for _, id := range w.ids {
		_, _ = e.Write(id[:])
	}
	for _, ol := range w.offsets {
		_, _ = e.Write(uint40(ol[0]))
		_, _ = e.Write(uint40(ol[1]))
	}
	for _, b := range w.blocks {
		_, _ = e.Write(b[:])
	}
	if w.opts.Compress {
		name := make([]byte, 32)
		copy(name, "Zlib")
		_, _ = e.Write(name)
	}
	_, _ = e.Write(dirIndex)

	return e.Bytes()
}

// dirNode is directory tree node used while building directory index.
type dirNode struct {
	name     string
	children []*dirNode
	files    []int
}

// buildDirectoryIndex serializes directory index for files; chunk index equals file index.
func buildDirectoryIndex(mountPoint string, files []File) []byte {
	root := &dirNode{}
	for i, f := range files {
		parts := strings.Split(f.Path, "/")
		node := root
		for _, p := range parts[:len(parts)-1] {
			var next *dirNode
			for _, c := range node.children {
				if c.name == p {
					next = c
					break
				}
			}
			if next == nil {
				next = &dirNode{name: p}
				node.children = append(node.children, next)
			}
			node = next
		}
		node.files = append(node.files, i)
	}

	strs := map[string]uint32{}
	var table []string
	intern := func(s string) uint32 {
		if i, ok := strs[s]; ok {
			return i
		}
		strs[s] = uint32(len(table)) //nolint:gosec // fixture sizes are small
		table = append(table, s)
		return strs[s]
	}

	type dirRec struct{ name, child, sibling, file uint32 }
	type fileRec struct{ name, next, data uint32 }
	var dirs []dirRec
	var fileRecs []fileRec

	var emit func(n *dirNode, isRoot bool) uint32
	emit = func(n *dirNode, isRoot bool) uint32 {
		idx := uint32(len(dirs)) //nolint:gosec // fixture sizes are small
		rec := dirRec{name: tocNone, child: tocNone, sibling: tocNone, file: tocNone}
		if !isRoot {
			rec.name = intern(n.name)
		}
		dirs = append(dirs, rec)

		prevFile := uint32(tocNone)
		for _, fi := range n.files {
			fidx := uint32(len(fileRecs)) //nolint:gosec // fixture sizes are small
			fileRecs = append(fileRecs, fileRec{
				name: intern(filepathBase(files[fi].Path)),
				next: tocNone,
				data: uint32(fi), //nolint:gosec // fixture sizes are small
			})
			if prevFile == tocNone {
				dirs[idx].file = fidx
			} else {
				fileRecs[prevFile].next = fidx
			}
			prevFile = fidx
		}

		prevChild := uint32(tocNone)
		for _, c := range n.children {
			cidx := emit(c, false)
			if prevChild == tocNone {
				dirs[idx].child = cidx
			} else {
				dirs[prevChild].sibling = cidx
			}
			prevChild = cidx
		}

		return idx
	}
	emit(root, true)

	var e uebin.Encoder
	e.FString(mountPoint)
	e.U32(uint32(len(dirs))) //nolint:gosec // fixture sizes are small
	for _, d := range dirs {
		e.U32(d.name)
		e.U32(d.child)
		e.U32(d.sibling)
		e.U32(d.file)
	}
	e.U32(uint32(len(fileRecs))) //nolint:gosec // fixture sizes are small
	for _, f := range fileRecs {
		e.U32(f.name)
		e.U32(f.next)
		e.U32(f.data)
	}
	e.U32(uint32(len(table))) //nolint:gosec // fixture sizes are small
	for _, s := range table {
		e.FString(s)
	}

	return e.Bytes()
}

// chunkID derives deterministic chunk id from name and type.
func chunkID(name string, typ uint8) [12]byte {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	sum := h.Sum64()

	var id [12]byte
	for i := 0; i < 8; i++ {
		id[i] = byte(sum >> (8 * i))
	}
	id[11] = typ
	return id
}

// uint40 encodes 5-byte big-endian integer.
func uint40(v uint64) []byte {
	return []byte{byte(v >> 32), byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// padTo returns copy of b padded with zeros to AES block size.
func padTo(b []byte) []byte {
	out := make([]byte, uebin.Align(int64(len(b))))
	copy(out, b)
	return out
}

// filepathBase returns last slash-separated element.
func filepathBase(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}

	return p
}
