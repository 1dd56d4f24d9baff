package bptreekv

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// Tree is an open handle on one on-disk B+ tree file. All public methods
// are safe for concurrent use by multiple goroutines within this process;
// cross-process safety relies on the exclusive advisory lock taken in
// Open (spec §5). root is the in-memory copy of the current root page;
// every mutation updates it in place or replaces it, appends the rewritten
// pages, and then appends a head record pointing at the new root.
type Tree struct {
	mu     sync.RWMutex
	w      *writer
	opts   Options
	root   *page
	stats  statCounters
	closed bool
}

// Open opens or creates the file at path as a B+ tree store. If the file
// already contains a valid head record, its root and format parameters
// (page size, fanout) are recovered and take precedence over opts; an
// empty or brand-new file is initialized with a single empty leaf root.
func Open(path string, options ...Option) (*Tree, error) {
	opts := defaultOptions()
	for _, opt := range options {
		opt(&opts)
	}
	w, err := createWriter(path, opts.codec, !opts.readOnly)
	if err != nil {
		return nil, err
	}
	t := &Tree{w: w, opts: opts}

	head, err := findHead(w)
	switch {
	case err == nil:
		t.stats.headRecoveries.Add(1)
		t.opts.fanout = int(head.pageSize)
		t.opts.pageSize = int(head.pageSize)
		root, rerr := loadPage(w, head.rootOffset, head.rootConfig>>1, head.rootConfig&1 != 0, t.opts.fanout)
		if rerr != nil {
			w.close()
			return nil, rerr
		}
		t.root = root
	case IsNotFound(err) && opts.readOnly:
		w.close()
		return nil, &Error{Kind: KindNotFound, Op: "open", Err: fmt.Errorf("no head record in read-only open of empty file %s", path)}
	case IsNotFound(err):
		root := newLeafPage(opts.fanout)
		if serr := root.save(w); serr != nil {
			w.close()
			return nil, serr
		}
		t.root = root
		if herr := t.commitHead(); herr != nil {
			w.close()
			return nil, herr
		}
	default:
		w.close()
		return nil, err
	}
	opts.logger.Debug("opened tree", "path", path, "fanout", t.opts.fanout)
	return t, nil
}

// Close releases the file lock and closes the underlying file. The Tree
// must not be used after Close returns.
func (t *Tree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.w.close()
}

// Stats returns a snapshot of the engine's running counters.
func (t *Tree) Stats() Stats {
	return t.stats.snapshot()
}

func (t *Tree) cmp(a, b []byte) int {
	return t.opts.comparator(a, b)
}

// validateKey enforces only the upper bound (spec's boundary behaviors
// explicitly accept a zero-length key, so there is no lower bound here).
func (t *Tree) validateKey(key []byte) error {
	if len(key) > t.opts.maxKeySize {
		return &Error{Kind: KindOutOfBounds, Op: "validate-key", Err: fmt.Errorf("key of %d bytes exceeds MaxKeySize %d", len(key), t.opts.maxKeySize)}
	}
	return nil
}

// Get looks up key and returns its current value. Returns ErrNotFound if
// the key isn't present.
func (t *Tree) Get(key []byte) ([]byte, error) {
	if err := t.validateKey(key); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	t.stats.gets.Add(1)
	_, kv, err := t.descendToLeaf(t.root, key)
	if err != nil {
		return nil, err
	}
	if kv == nil {
		return nil, ErrNotFound
	}
	return kv.value, nil
}

// descendToLeaf walks from p down to the leaf that would contain key,
// returning the leaf page and, if key is present there, its kv. Returns a
// nil kv (not an error) when the leaf doesn't contain key.
func (t *Tree) descendToLeaf(p *page, key []byte) (*page, *kv, error) {
	for p.kind == internalPage {
		r := p.search(t.cmp, key)
		s := p.slots[r.index]
		child, err := loadPage(t.w, s.offset, s.childSize(), s.isLeaf(), t.opts.fanout)
		if err != nil {
			return nil, nil, err
		}
		p = child
	}
	r := p.search(t.cmp, key)
	if !r.exact || r.index < 0 {
		return p, nil, nil
	}
	s := p.slots[r.index]
	value, err := t.w.read(modeCompressed, s.offset, s.config)
	if err != nil {
		return nil, nil, err
	}
	return p, &kv{slot: s, value: value}, nil
}

// Set inserts or overwrites key's value, appending the value blob and
// every page rewritten on the path from root to leaf (copy-on-write: the
// old page images are left in place as dead bytes, reclaimed only by
// Compact), then committing a new head record pointing at the new root.
func (t *Tree) Set(key, value []byte) error {
	if err := t.validateKey(key); err != nil {
		return err
	}
	if t.opts.readOnly {
		return &Error{Kind: KindFile, Op: "set", Err: fmt.Errorf("tree opened read-only")}
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	offset, storedSize, err := t.w.write(modeCompressed, value)
	if err != nil {
		return err
	}
	newSlot := slot{key: append([]byte{}, key...), offset: offset, config: storedSize, owned: true}

	newLeft, right, err := t.pageInsert(t.root, newSlot)
	if err != nil {
		return err
	}
	newRoot := newLeft
	if right != nil {
		newRoot = newInternalPage(t.opts.fanout, append([]byte{}, newLeft.slots[0].key...), newLeft)
		newRoot.slots = append(newRoot.slots, slot{
			key:    append([]byte{}, right.slots[0].key...),
			offset: right.offset,
			config: makeInternalConfig(right.config>>1, right.kind == leafPage),
			owned:  true,
		})
		if err := t.save(newRoot); err != nil {
			return err
		}
	}
	t.root = newRoot
	t.stats.sets.Add(1)
	return t.commitHead()
}

// pageInsert inserts s into p (or the appropriate descendant of p),
// saving every rewritten page on the path. It returns the (possibly
// unchanged) page p became, and, if p reached fanout and had to be split,
// the new right sibling that the caller must link into its own slots (or
// into a fresh root, if p was the root). A nil right return means no
// split occurred. Splitting at length==fanout rather than fanout+1 keeps
// every saved page strictly under fanout.
func (t *Tree) pageInsert(p *page, s slot) (*page, *page, error) {
	if p.kind == leafPage {
		r := p.search(t.cmp, s.key)
		if r.exact {
			p.slots[r.index] = s
		} else {
			p.insertAt(r.index+1, s)
		}
	} else {
		r := p.search(t.cmp, s.key)
		childSlot := p.slots[r.index]
		child, err := loadPage(t.w, childSlot.offset, childSlot.childSize(), childSlot.isLeaf(), t.opts.fanout)
		if err != nil {
			return nil, nil, err
		}
		newChild, newGrandchild, err := t.pageInsert(child, s)
		if err != nil {
			return nil, nil, err
		}
		p.slots[r.index].offset = newChild.offset
		p.slots[r.index].config = makeInternalConfig(newChild.config>>1, newChild.kind == leafPage)
		if newGrandchild != nil {
			p.insertAt(r.index+1, slot{
				key:    append([]byte{}, newGrandchild.slots[0].key...),
				offset: newGrandchild.offset,
				config: makeInternalConfig(newGrandchild.config>>1, newGrandchild.kind == leafPage),
				owned:  true,
			})
		}
	}

	if p.length() < p.fanout {
		return p, nil, t.save(p)
	}

	right, err := t.pageSplit(p)
	if err != nil {
		return nil, nil, err
	}
	return p, right, nil
}

func (t *Tree) save(p *page) error {
	if err := p.save(t.w); err != nil {
		return err
	}
	t.stats.pageWrites.Add(1)
	return nil
}

// pageSplit moves the upper half of p's slots into a new sibling page of
// the same kind, saves both, and returns the sibling. The sibling's slot
//0 key is whatever key happened to land there after the split (the
// original C implementation never rewrites it into a sentinel, and
// bp__page_search never reads slot 0's key on an internal page, so this
// engine preserves the same quirk rather than "cleaning" it).
func (t *Tree) pageSplit(p *page) (*page, error) {
	mid := p.length() / 2
	right := &page{kind: p.kind, fanout: p.fanout, slots: append([]slot{}, p.slots[mid:]...)}
	p.slots = p.slots[:mid]
	t.stats.splits.Add(1)
	if err := t.save(p); err != nil {
		return nil, err
	}
	if err := t.save(right); err != nil {
		return nil, err
	}
	return right, nil
}

// Remove deletes key if present. Returns ErrNotFound if the key isn't
// present, in which case nothing is written.
func (t *Tree) Remove(key []byte) error {
	if err := t.validateKey(key); err != nil {
		return err
	}
	if t.opts.readOnly {
		return &Error{Kind: KindFile, Op: "remove", Err: fmt.Errorf("tree opened read-only")}
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	newRoot, _, err := t.pageRemove(t.root, key)
	if err != nil {
		return err
	}
	if newRoot.kind == internalPage && newRoot.length() == 0 {
		// The lift in pageRemove never collapses the root itself (spec.md's
		// Remove algorithm guards it with "and is not the root"), so an
		// internal root whose one remaining child was just destroyed is left
		// empty rather than replaced. Collapse it here instead: "a root that
		// becomes empty becomes a fresh empty leaf" (spec.md §4.4).
		newRoot = newLeafPage(t.opts.fanout)
		if err := t.save(newRoot); err != nil {
			return err
		}
	}
	t.root = newRoot
	t.stats.removes.Add(1)
	return t.commitHead()
}

// pageRemove deletes key from p or its descendants. The bool return
// reports whether p itself ended up empty after the deletion happened
// directly on it (p is a leaf whose last key was just removed). An empty
// leaf is never saved — the immediate caller removes its slot and drops
// the child entirely, matching bp__page_remove's BP_EEMPTYPAGE signal —
// except at the root, which has no parent to notify and so is left as a
// saved empty leaf (spec §4.4: "a root that becomes empty becomes a fresh
// empty leaf").
//
// An internal page never reports itself empty this way: when destroying
// an emptied child leaves it with exactly one child, that child is
// lifted to replace it in place immediately (offset/config taken from
// the lone remaining slot, then reloaded from disk), collapsing one tree
// level — except at the root, which is left at length 1 rather than
// lifted (spec.md's Remove algorithm guards the lift with "and is not
// the root"). Remove handles the root's own collapse separately: if the
// root ends up an empty internal page (its one remaining child was
// itself destroyed), Remove replaces it with a fresh empty leaf. This
// engine does no merging or rebalancing beyond the single-level lift.
func (t *Tree) pageRemove(p *page, key []byte) (*page, bool, error) {
	if p.kind == leafPage {
		r := p.search(t.cmp, key)
		if !r.exact || r.index < 0 {
			return nil, false, ErrNotFound
		}
		p.removeIdx(r.index)
		if p.length() == 0 && p != t.root {
			return p, true, nil
		}
		return p, false, t.save(p)
	}

	r := p.search(t.cmp, key)
	childSlot := p.slots[r.index]
	child, err := loadPage(t.w, childSlot.offset, childSlot.childSize(), childSlot.isLeaf(), t.opts.fanout)
	if err != nil {
		return nil, false, err
	}
	newChild, childEmpty, err := t.pageRemove(child, key)
	if err != nil {
		return nil, false, err
	}

	if childEmpty {
		p.removeIdx(r.index)
		if p.length() == 1 && p != t.root {
			lone := p.slots[0]
			reloaded, err := loadPage(t.w, lone.offset, lone.childSize(), lone.isLeaf(), t.opts.fanout)
			if err != nil {
				return nil, false, err
			}
			*p = *reloaded
		}
	} else {
		p.slots[r.index].offset = newChild.offset
		p.slots[r.index].config = makeInternalConfig(newChild.config>>1, newChild.kind == leafPage)
	}

	return p, false, t.save(p)
}

// maxKey returns the largest key currently stored, descending the
// rightmost path from root. Used by Cursor to detect end-of-tree without
// risking an infinite re-descend loop at the boundary.
func (t *Tree) maxKey() ([]byte, bool) {
	p := t.root
	for p.kind == internalPage {
		if p.length() == 0 {
			return nil, false
		}
		last := p.slots[len(p.slots)-1]
		child, err := loadPage(t.w, last.offset, last.childSize(), last.isLeaf(), t.opts.fanout)
		if err != nil {
			return nil, false
		}
		p = child
	}
	if p.length() == 0 {
		return nil, false
	}
	return p.slots[len(p.slots)-1].key, true
}

// commitHead appends a fresh head record pointing at t.root.
func (t *Tree) commitHead() error {
	h := headRecord{
		pageSize:   uint64(t.opts.fanout),
		rootOffset: t.root.offset,
		rootConfig: t.root.config,
	}
	buf := encodeHead(h)
	_, storedSize, err := t.w.write(modeUncompressed, buf)
	if err != nil {
		return err
	}
	t.stats.bytesWritten.Add(storedSize)
	return nil
}

// Range returns a Cursor over every live key k with start <= k <= end, in
// comparator order. A nil start means "from the smallest key"; a nil end
// means "to the largest key." Advance with Cursor.Next.
func (t *Tree) Range(start, end []byte) (*Cursor, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return newCursor(t, start, end)
}

// Compact rewrites every reachable page and value into a fresh scratch
// file alongside path, then atomically renames it over the original,
// reclaiming space held by dead copy-on-write page images and superseded
// head records (spec §7). Compact takes the tree's exclusive lock for its
// whole duration; concurrent Get/Set/Remove block until it completes.
func (t *Tree) Compact() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.opts.readOnly {
		return &Error{Kind: KindFile, Op: "compact", Err: fmt.Errorf("tree opened read-only")}
	}

	scratchPath := t.w.path + ".compact"
	scratch, err := createWriter(scratchPath, t.opts.codec, true)
	if err != nil {
		return err
	}

	newRoot, err := t.copyPage(scratch, t.root)
	if err != nil {
		scratch.close()
		os.Remove(scratchPath)
		return err
	}
	h := headRecord{
		pageSize:   uint64(t.opts.fanout),
		rootOffset: newRoot.offset,
		rootConfig: newRoot.config,
	}
	if _, _, err := scratch.write(modeUncompressed, encodeHead(h)); err != nil {
		scratch.close()
		os.Remove(scratchPath)
		return err
	}
	if err := scratch.close(); err != nil {
		os.Remove(scratchPath)
		return err
	}
	if err := t.w.close(); err != nil {
		return err
	}
	if err := os.Rename(scratchPath, t.w.path); err != nil {
		return &Error{Kind: KindCompactionConflict, Op: "compact-rename", Err: err}
	}
	w, err := createWriter(t.w.path, t.opts.codec, true)
	if err != nil {
		return err
	}
	t.w = w
	t.root = newRoot
	t.stats.compactions.Add(1)
	t.opts.logger.Debug("compacted", "path", t.w.path)
	return nil
}

// copyPage recursively copies p (read via the old writer, implicitly
// through t.w) and its descendants into scratch, returning the
// newly-written page with fresh offset/config. Dead page images and
// orphaned values (overwritten by later Sets, removed by Remove) are
// simply never visited, so they don't survive the copy.
func (t *Tree) copyPage(scratch *writer, p *page) (*page, error) {
	if p.kind == leafPage {
		fresh := &page{kind: leafPage, fanout: p.fanout}
		for _, s := range p.slots {
			value, err := t.w.read(modeCompressed, s.offset, s.config)
			if err != nil {
				return nil, err
			}
			offset, storedSize, err := scratch.write(modeCompressed, value)
			if err != nil {
				return nil, err
			}
			fresh.slots = append(fresh.slots, slot{key: append([]byte{}, s.key...), offset: offset, config: storedSize, owned: true})
		}
		if err := fresh.save(scratch); err != nil {
			return nil, err
		}
		return fresh, nil
	}

	fresh := &page{kind: internalPage, fanout: p.fanout}
	for _, s := range p.slots {
		child, err := loadPage(t.w, s.offset, s.childSize(), s.isLeaf(), t.opts.fanout)
		if err != nil {
			return nil, err
		}
		newChild, err := t.copyPage(scratch, child)
		if err != nil {
			return nil, err
		}
		fresh.slots = append(fresh.slots, slot{
			key:    append([]byte{}, s.key...),
			offset: newChild.offset,
			config: makeInternalConfig(newChild.config>>1, newChild.kind == leafPage),
			owned:  true,
		})
	}
	if err := fresh.save(scratch); err != nil {
		return nil, err
	}
	return fresh, nil
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
