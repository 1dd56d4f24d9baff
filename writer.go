package bptreekv

import (
	"fmt"
	"os"

	"github.com/nyan233/bptreekv/internal/sys"
)

// paddingUnit is the alignment boundary every record (head or page/value
// blob) is padded to before being written. Pinned here as a named format
// constant per spec §9's open question: the padding-record size must be
// pinned explicitly, because writer.find pads to it before stepping
// backward in head-record-sized strides, so headRecordSize must be a
// multiple of it or head-record recovery breaks.
const paddingUnit = 8

// ioMode selects whether writer.read/write runs payloads through the
// configured Codec. Head records are always modeUncompressed so their
// on-disk size is known exactly without consulting the codec.
type ioMode int

const (
	modeUncompressed ioMode = iota
	modeCompressed
)

// writer is the append-only file primitive spec §4.1 describes: it tracks
// filesize itself rather than trusting repeated stat calls, appends
// zero-padding to keep every record alignment-addressable, and optionally
// runs payloads through the codec.
type writer struct {
	file     *os.File
	path     string
	filesize uint64
	codec    Codec
	locked   bool
}

func createWriter(path string, codec Codec, lock bool) (*writer, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, &Error{Kind: KindFile, Op: "create", Err: err}
	}
	if lock {
		if err := sys.Flock(file); err != nil {
			file.Close()
			return nil, &Error{Kind: KindFile, Op: "lock", Err: err}
		}
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, &Error{Kind: KindFile, Op: "stat", Err: err}
	}
	return &writer{file: file, path: path, filesize: uint64(info.Size()), codec: codec, locked: lock}, nil
}

func (w *writer) close() error {
	if w.locked {
		if err := sys.Funlock(w.file); err != nil {
			w.file.Close()
			return &Error{Kind: KindFile, Op: "unlock", Err: err}
		}
	}
	if err := w.file.Close(); err != nil {
		return &Error{Kind: KindFile, Op: "close", Err: err}
	}
	return nil
}

// pad emits zero bytes so that filesize becomes a multiple of paddingUnit.
// Called before every write and before every find, so records tile the
// file on fixed-size boundaries.
func (w *writer) pad() error {
	rem := w.filesize % paddingUnit
	if rem == 0 {
		return nil
	}
	padding := paddingUnit - rem
	zeros := make([]byte, padding)
	n, err := w.file.WriteAt(zeros, int64(w.filesize))
	if err != nil {
		return &Error{Kind: KindIO, Op: "pad", Err: err}
	}
	if uint64(n) != padding {
		return &Error{Kind: KindIO, Op: "pad", Err: fmt.Errorf("short write: %d != %d", n, padding)}
	}
	w.filesize += padding
	return nil
}

// read reads exactly size bytes at offset and, if mode is compressed, runs
// them through the codec's decompressor.
func (w *writer) read(mode ioMode, offset, size uint64) ([]byte, error) {
	if offset+size > w.filesize {
		return nil, &Error{Kind: KindOutOfBounds, Op: "read", Err: fmt.Errorf("offset %d size %d exceeds filesize %d", offset, size, w.filesize)}
	}
	if size == 0 {
		return []byte{}, nil
	}
	raw := make([]byte, size)
	n, err := w.file.ReadAt(raw, int64(offset))
	if err != nil {
		return nil, &Error{Kind: KindIO, Op: "read", Err: err}
	}
	if uint64(n) != size {
		return nil, &Error{Kind: KindIO, Op: "read", Err: fmt.Errorf("short read: %d != %d", n, size)}
	}
	if mode == modeUncompressed {
		return raw, nil
	}
	decodedLen, err := w.codec.UncompressedSize(raw)
	if err != nil {
		return nil, &Error{Kind: KindCodec, Op: "uncompressed-size", Err: err}
	}
	scratch := make([]byte, decodedLen)
	decoded, err := w.codec.Decompress(scratch, raw)
	if err != nil {
		return nil, &Error{Kind: KindCodec, Op: "decompress", Err: err}
	}
	return decoded, nil
}

// write pads, then appends data (compressed if mode says so), and reports
// the offset the payload landed at and its stored (on-disk) size. A nil or
// empty data still pads the file, matching bp__writer_write's
// "ignore empty writes after padding" behavior.
func (w *writer) write(mode ioMode, data []byte) (offset uint64, storedSize uint64, err error) {
	if err := w.pad(); err != nil {
		return 0, 0, err
	}
	if len(data) == 0 {
		return w.filesize, 0, nil
	}
	offset = w.filesize
	var payload []byte
	if mode == modeUncompressed {
		payload = data
	} else {
		maxSize := w.codec.MaxCompressedSize(len(data))
		scratch := make([]byte, maxSize)
		payload, err = w.codec.Compress(scratch, data)
		if err != nil {
			return 0, 0, &Error{Kind: KindCodec, Op: "compress", Err: err}
		}
	}
	n, err := w.file.WriteAt(payload, int64(offset))
	if err != nil {
		return 0, 0, &Error{Kind: KindIO, Op: "write", Err: err}
	}
	if n != len(payload) {
		return 0, 0, &Error{Kind: KindIO, Op: "write", Err: fmt.Errorf("short write: %d != %d", n, len(payload))}
	}
	w.filesize += uint64(n)
	return offset, uint64(len(payload)), nil
}

// find steps backward from the end of the file in size-byte strides,
// reading each stride uncompressed and handing it to probe, until probe
// reports a match or the file start is reached. It pads first so the
// search starts from an alignment-addressable offset, matching
// bp__writer_find's initial no-op write call. Each step allocates a fresh
// buffer (spec §9's open question about the C callback's ambiguous buffer
// lifetime): no buffer is reused across iterations.
func (w *writer) find(size uint64, probe func(data []byte) (bool, error)) ([]byte, bool, error) {
	if err := w.pad(); err != nil {
		return nil, false, err
	}
	offset := w.filesize
	for offset >= size {
		data, err := w.read(modeUncompressed, offset-size, size)
		if err != nil {
			return nil, false, err
		}
		matched, err := probe(data)
		if err != nil {
			return nil, false, err
		}
		if matched {
			return data, true, nil
		}
		offset -= size
	}
	return nil, false, nil
}
