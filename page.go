package bptreekv

import (
	"encoding/binary"
	"fmt"
)

// slotHeaderSize is the fixed portion of an on-disk slot: key length (8),
// value/child offset (8), config word (8), each a big-endian 64-bit field
// per spec §4.3. No padding, no per-slot kind or ownership byte.
const slotHeaderSize = 8 + 8 + 8

// pageKind distinguishes leaf pages (slots point at values) from internal
// pages (slots point at child pages), mirroring the is_leaf bit spec §3
// packs into a slot's config word.
type pageKind uint8

const (
	leafPage pageKind = iota
	internalPage
)

// slot is one (key, pointer) pair inside a page. For a leaf page, offset
// and config describe the value blob written by writer.write; for an
// internal page, they describe a child page. owned marks whether this
// instance holds the only reference to the bytes backing key, set when a
// slot is freshly built from caller-supplied data rather than loaded off
// disk (mirrors the teacher's btree_disk.go ownership bookkeeping, which
// distinguishes caller-owned buffers from ones safe to alias).
type slot struct {
	key    []byte
	offset uint64
	config uint64
	owned  bool
}

func (s slot) childSize() uint64 {
	return s.config >> 1
}

// isLeaf reports whether this slot's pointee (a page, not a value) is a
// leaf, per the bit spec §3 packs into config's low bit. Callers loading a
// child page pass this to loadPage instead of letting the child's own
// serialized bytes say what kind it is.
func (s slot) isLeaf() bool {
	return s.config&1 != 0
}

func makeInternalConfig(size uint64, isLeaf bool) uint64 {
	c := size << 1
	if isLeaf {
		c |= 1
	}
	return c
}

// page is the in-memory form of one B+ tree node. fanout caps len(slots);
// kind distinguishes leaf/internal. Internal pages keep a leftmost
// sentinel slot at index 0 whose key is never compared against (search
// starts scanning at index 1), matching bp__page_search.
type page struct {
	kind   pageKind
	fanout int
	slots  []slot
	// offset and config are this page's own on-disk identity, set once the
	// page has been saved; zero until then.
	offset uint64
	config uint64
}

func (p *page) length() int {
	return len(p.slots)
}

func newLeafPage(fanout int) *page {
	return &page{kind: leafPage, fanout: fanout}
}

// newInternalPage builds an internal page with the mandatory sentinel slot
// at index 0, pointing at child with the given leaf-ness and size.
func newInternalPage(fanout int, sentinelKey []byte, child *page) *page {
	p := &page{kind: internalPage, fanout: fanout}
	p.slots = append(p.slots, slot{
		key:    sentinelKey,
		offset: child.offset,
		config: makeInternalConfig(child.config>>1, child.kind == leafPage),
		owned:  true,
	})
	return p
}

// searchResult is what page.search reports: the index of the slot whose
// subtree (internal) or value (leaf) the key belongs under, and whether
// the key exactly matched that slot.
type searchResult struct {
	index int
	exact bool
}

// search implements spec §4.3's page search: a linear scan comparing key
// against each slot's key (starting at index 1 for internal pages, since
// slot 0 is the sentinel), stopping at the first slot whose key is >= key.
// The tie-break matches bp__page_search exactly: on a non-zero last
// comparison the index steps back one, so an exact match on an internal
// page descends into the child to the right of (not left of) the matching
// slot, and a miss lands on the last slot whose key was < key.
func (p *page) search(cmp Comparator, key []byte) searchResult {
	start := 0
	if p.kind == internalPage {
		start = 1
	}
	i := start
	c := -1
	for ; i < len(p.slots); i++ {
		c = cmp(p.slots[i].key, key)
		if c >= 0 {
			break
		}
	}
	if c != 0 {
		i--
	}
	if i < start-1 {
		i = start - 1
	}
	return searchResult{index: i, exact: c == 0}
}

// kv pairs a slot with its decoded payload, used when returning internal
// (child page, leaf-ness) or leaf (value) lookups to callers that need
// both the slot metadata and its materialized contents.
type kv struct {
	slot  slot
	value []byte
}

// shiftRight makes room for a new slot at idx by moving idx..end one
// position to the right.
func (p *page) shiftRight(idx int) {
	p.slots = append(p.slots, slot{})
	copy(p.slots[idx+1:], p.slots[idx:len(p.slots)-1])
}

// shiftLeft removes the gap at idx by moving idx+1..end one position left.
func (p *page) shiftLeft(idx int) {
	copy(p.slots[idx:], p.slots[idx+1:])
	p.slots = p.slots[:len(p.slots)-1]
}

func (p *page) removeIdx(idx int) {
	p.shiftLeft(idx)
}

func (p *page) insertAt(idx int, s slot) {
	p.shiftRight(idx)
	p.slots[idx] = s
}

// encode serializes p's slots per spec §4.3: the concatenation of slots,
// each three big-endian 64-bit fields (key length, offset, config) followed
// by the raw key bytes. No page header: a page's kind is carried entirely
// by the is-leaf bit in the slot the parent uses to point at it, so the
// page body itself never needs to say what it is or how many slots follow.
func (p *page) encode() []byte {
	size := 0
	for _, s := range p.slots {
		size += slotHeaderSize + len(s.key)
	}
	buf := make([]byte, size)
	off := 0
	for _, s := range p.slots {
		binary.BigEndian.PutUint64(buf[off:off+8], uint64(len(s.key)))
		binary.BigEndian.PutUint64(buf[off+8:off+16], s.offset)
		binary.BigEndian.PutUint64(buf[off+16:off+24], s.config)
		copy(buf[off+slotHeaderSize:], s.key)
		off += slotHeaderSize + len(s.key)
	}
	return buf
}

// decodePage walks buf left to right, consuming slots until the buffer is
// exhausted (there's no count field to loop on), mirroring the original
// load loop's byte_size-driven walk. kind comes from the caller, not from
// the buffer.
func decodePage(buf []byte, kind pageKind, fanout int) (*page, error) {
	p := &page{kind: kind, fanout: fanout}
	off := 0
	for off < len(buf) {
		if off+slotHeaderSize > len(buf) {
			return nil, &Error{Kind: KindIO, Op: "decode-page", Err: fmt.Errorf("truncated slot header at %d", off)}
		}
		keyLen := int(binary.BigEndian.Uint64(buf[off : off+8]))
		s := slot{
			offset: binary.BigEndian.Uint64(buf[off+8 : off+16]),
			config: binary.BigEndian.Uint64(buf[off+16 : off+24]),
		}
		off += slotHeaderSize
		if off+keyLen > len(buf) {
			return nil, &Error{Kind: KindIO, Op: "decode-page", Err: fmt.Errorf("truncated key at %d", off)}
		}
		s.key = make([]byte, keyLen)
		copy(s.key, buf[off:off+keyLen])
		off += keyLen
		p.slots = append(p.slots, s)
	}
	return p, nil
}

// save appends the page's current encoding via w, recording the resulting
// offset/config on the page itself (config packs stored size + leaf bit,
// matching the slot that a parent will build to point at this page).
func (p *page) save(w *writer) error {
	buf := p.encode()
	offset, storedSize, err := w.write(modeCompressed, buf)
	if err != nil {
		return err
	}
	p.offset = offset
	p.config = makeInternalConfig(storedSize, p.kind == leafPage)
	return nil
}

// loadPage reads back a page previously written at offset with the given
// stored (compressed) size. isLeaf must come from the parent slot's config
// bit (or, for the root, the head record's root config bit) per spec
// §4.3's Load: a page's kind is never re-derived from its own bytes.
func loadPage(w *writer, offset, storedSize uint64, isLeaf bool, fanout int) (*page, error) {
	buf, err := w.read(modeCompressed, offset, storedSize)
	if err != nil {
		return nil, err
	}
	kind := internalPage
	if isLeaf {
		kind = leafPage
	}
	p, err := decodePage(buf, kind, fanout)
	if err != nil {
		return nil, err
	}
	p.offset = offset
	p.config = makeInternalConfig(storedSize, isLeaf)
	return p, nil
}
