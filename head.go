package bptreekv

import (
	"encoding/binary"
	"fmt"
)

// headMagic identifies a valid head record among the padding noise
// writer.find walks over; headVersion lets a future format change refuse
// to open files it doesn't understand rather than misreading them.
const (
	headMagic   uint64 = 0x42504b56 // "BPKV"
	headVersion uint64 = 1
)

// headRecordSize is the fixed, uncompressed size of a head record: five
// big-endian 64-bit fields — magic, version, page_size, root offset, root
// config — per spec §4.5. Fixed size is what lets writer.find step
// backward by exactly this many bytes per candidate.
const headRecordSize = 8 + 8 + 8 + 8 + 8

// headRecord is the root pointer and format parameters recovered by
// scanning the file backward for the most recent valid one. pageSize
// doubles as this engine's fanout (spec's glossary treats "page_size" and
// "fanout" as the same quantity, the slot-count cap that triggers a
// split); there is no separate fanout field in the on-disk record. Every
// Set/Remove/Compact that changes the root appends a fresh headRecord;
// the old ones are simply dead bytes, reclaimed only by Compact.
type headRecord struct {
	pageSize   uint64
	rootOffset uint64
	rootConfig uint64
}

func encodeHead(h headRecord) []byte {
	buf := make([]byte, headRecordSize)
	binary.BigEndian.PutUint64(buf[0:8], headMagic)
	binary.BigEndian.PutUint64(buf[8:16], headVersion)
	binary.BigEndian.PutUint64(buf[16:24], h.pageSize)
	binary.BigEndian.PutUint64(buf[24:32], h.rootOffset)
	binary.BigEndian.PutUint64(buf[32:40], h.rootConfig)
	return buf
}

func decodeHead(buf []byte) (headRecord, bool) {
	if len(buf) != headRecordSize {
		return headRecord{}, false
	}
	if binary.BigEndian.Uint64(buf[0:8]) != headMagic {
		return headRecord{}, false
	}
	if binary.BigEndian.Uint64(buf[8:16]) != headVersion {
		return headRecord{}, false
	}
	h := headRecord{
		pageSize:   binary.BigEndian.Uint64(buf[16:24]),
		rootOffset: binary.BigEndian.Uint64(buf[24:32]),
		rootConfig: binary.BigEndian.Uint64(buf[32:40]),
	}
	return h, true
}

// findHead scans w backward in headRecordSize strides looking for the
// most recently written valid head record. Returns ErrNotFound if none is
// found, which Open treats as "empty/new file."
func findHead(w *writer) (headRecord, error) {
	data, ok, err := w.find(headRecordSize, func(data []byte) (bool, error) {
		_, valid := decodeHead(data)
		return valid, nil
	})
	if err != nil {
		return headRecord{}, err
	}
	if !ok {
		return headRecord{}, ErrNotFound
	}
	h, valid := decodeHead(data)
	if !valid {
		return headRecord{}, &Error{Kind: KindIO, Op: "find-head", Err: fmt.Errorf("corrupt head record")}
	}
	return h, nil
}
