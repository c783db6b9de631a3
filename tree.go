package pageengine

import (
	"sync"
	"sync/atomic"
)

// Tree is an ordered key→value index built entirely on a BufferManager: a
// disk-backed B+-tree with fixed-size keys and values, per spec.md §4.2.
// Reads couple shared latches parent→child→release-parent. Writes take one
// coarse mutex across the whole insert/erase path (spec.md §9's documented
// simplification). Inserts additionally use exclusive latch coupling during
// descent so concurrent readers never observe a half-built split; Erase
// descends with shared latches and fixes only the target leaf exclusively.
type Tree[K, V any] struct {
	bm        *BufferManager
	segmentID uint16

	keyCodec Codec[K]
	valCodec Codec[V]
	cmp      Comparator[K]

	writerMu sync.Mutex

	rootID     atomic.Uint64
	nextPageID atomic.Uint64
	empty      atomic.Bool
}

// NewTree creates an empty tree whose pages all live in segment segmentID of
// bm. keyCodec/valCodec describe the fixed-size POD key and value types;
// cmp is their total order.
func NewTree[K, V any](bm *BufferManager, segmentID uint16, keyCodec Codec[K], valCodec Codec[V], cmp Comparator[K]) *Tree[K, V] {
	t := &Tree[K, V]{
		bm:        bm,
		segmentID: segmentID,
		keyCodec:  keyCodec,
		valCodec:  valCodec,
		cmp:       cmp,
	}
	t.nextPageID.Store(uint64(firstPageID(segmentID)))
	t.empty.Store(true)
	return t
}

// IsEmpty reports whether the tree has never had a root allocated. It stays
// false once the first Insert has run, even if every key is later erased.
func (t *Tree[K, V]) IsEmpty() bool {
	return t.empty.Load()
}

func (t *Tree[K, V]) getRootID() PageID {
	return PageID(t.rootID.Load())
}

func (t *Tree[K, V]) setRootID(id PageID) {
	t.rootID.Store(uint64(id))
}

// allocatePage hands out the next page id in this tree's segment. Never
// recycled, per spec.md §9's append-only allocator.
func (t *Tree[K, V]) allocatePage() PageID {
	return PageID(t.nextPageID.Add(1) - 1)
}

func (t *Tree[K, V]) initLeafPage(h *Handle) {
	writeLevel(h.Bytes(), 0)
	writeCount(h.Bytes(), 0)
	writeLeafNext(h.Bytes(), 0)
}

// Lookup returns the stored value for key if present, per spec.md §4.2.
func (t *Tree[K, V]) Lookup(key K) (value V, found bool, err error) {
	if t.IsEmpty() {
		return value, false, nil
	}

	leaf, err := t.descend(key, false)
	if err != nil {
		return value, false, err
	}
	defer t.bm.UnfixPage(leaf, false)

	idx, found := leafLowerBound(leaf.Bytes(), t.keyCodec, t.cmp, key)
	if !found {
		return value, false, nil
	}
	return leafValueAt(leaf.Bytes(), t.keyCodec.Size(), t.valCodec, idx), true, nil
}

// Insert adds (key, value), overwriting the existing value if key is
// already present. On return the tree is well-formed, per spec.md §4.2.
func (t *Tree[K, V]) Insert(key K, value V) error {
	t.writerMu.Lock()
	defer t.writerMu.Unlock()

	if t.IsEmpty() {
		rootID := t.allocatePage()
		h, err := t.bm.FixPage(rootID, true)
		if err != nil {
			return err
		}
		t.initLeafPage(h)
		leafInsert(h.Bytes(), t.keyCodec, t.valCodec, t.cmp, key, value)
		t.bm.UnfixPage(h, true)

		t.setRootID(rootID)
		t.empty.Store(false)
		return nil
	}

	leaf, parent, err := t.descendForWrite(key)
	if err != nil {
		return err
	}

	pageSize := t.bm.PageSize()
	ks, vs := t.keyCodec.Size(), t.valCodec.Size()
	count := int(readCount(leaf.Bytes()))
	_, found := leafLowerBound(leaf.Bytes(), t.keyCodec, t.cmp, key)

	if found || !leafIsFull(pageSize, count, ks, vs) {
		leafInsert(leaf.Bytes(), t.keyCodec, t.valCodec, t.cmp, key, value)
		t.bm.UnfixPage(leaf, true)
		if parent != nil {
			t.bm.UnfixPage(parent, false)
		}
		return nil
	}

	return t.splitLeafAndInsert(leaf, parent, key, value)
}

// splitLeafAndInsert implements spec.md §4.2 Insert step 4: the target leaf
// is full, so allocate a sibling, split, route the new entry to whichever
// half the comparator selects, and link the separator into the parent (or
// mint a new root if the leaf was the whole tree).
func (t *Tree[K, V]) splitLeafAndInsert(leaf, parent *Handle, key K, value V) error {
	newLeafID := t.allocatePage()
	newLeaf, err := t.bm.FixPage(newLeafID, true)
	if err != nil {
		t.bm.UnfixPage(leaf, false)
		if parent != nil {
			t.bm.UnfixPage(parent, false)
		}
		return err
	}

	sep := leafSplit(leaf.Bytes(), newLeaf.Bytes(), t.keyCodec, t.valCodec)
	writeLeafNext(leaf.Bytes(), newLeafID)

	target := leaf
	if t.cmp(key, sep) > 0 {
		target = newLeaf
	}
	leafInsert(target.Bytes(), t.keyCodec, t.valCodec, t.cmp, key, value)

	if parent == nil {
		newRootID := t.allocatePage()
		newRoot, err := t.bm.FixPage(newRootID, true)
		if err != nil {
			t.bm.UnfixPage(leaf, true)
			t.bm.UnfixPage(newLeaf, true)
			return err
		}
		innerFirstInsert(newRoot.Bytes(), t.keyCodec, sep, leaf.PageID(), newLeafID)
		writeLevel(newRoot.Bytes(), 1)
		t.bm.UnfixPage(newRoot, true)
		t.setRootID(newRootID)
	} else {
		idx := innerChildIndexOf(parent.Bytes(), t.keyCodec.Size(), leaf.PageID())
		innerInsertSplit(parent.Bytes(), t.keyCodec, idx, sep, newLeafID)
		t.bm.UnfixPage(parent, true)
	}

	t.bm.UnfixPage(leaf, true)
	t.bm.UnfixPage(newLeaf, true)
	return nil
}

// Erase removes key's entry if present; idempotent when absent. Underflow
// is intentionally left uncorrected, per spec.md §4.2/§9.
func (t *Tree[K, V]) Erase(key K) error {
	t.writerMu.Lock()
	defer t.writerMu.Unlock()

	if t.IsEmpty() {
		return nil
	}

	leaf, err := t.descend(key, true)
	if err != nil {
		return err
	}
	leafErase(leaf.Bytes(), t.keyCodec, t.valCodec, t.cmp, key)
	t.bm.UnfixPage(leaf, true)
	return nil
}

// descend walks from the root to the leaf that would hold key, using shared
// latches coupled parent→child→release-parent. If leafExclusive, the final
// leaf is re-fixed exclusively (Erase needs to mutate it; Lookup does not).
// No splits are performed here — this is the read-mode / erase-mode path.
func (t *Tree[K, V]) descend(key K, leafExclusive bool) (*Handle, error) {
	cur, err := t.bm.FixPage(t.getRootID(), false)
	if err != nil {
		return nil, err
	}

	for {
		if isLeafLevel(readLevel(cur.Bytes())) {
			if !leafExclusive {
				return cur, nil
			}
			id := cur.PageID()
			t.bm.UnfixPage(cur, false)
			return t.bm.FixPage(id, true)
		}

		idx := innerLowerBound(cur.Bytes(), t.keyCodec, t.cmp, key)
		childID := innerChildAt(cur.Bytes(), t.keyCodec.Size(), idx)

		child, err := t.bm.FixPage(childID, false)
		t.bm.UnfixPage(cur, false)
		if err != nil {
			return nil, err
		}
		cur = child
	}
}

// descendForWrite implements spec.md §4.2's insert-mode traversal: inner
// nodes encountered while descending are split eagerly if full (the parent
// is still fixed, so insert_split is safe), so a later leaf split never
// needs to reach back up to an ancestor that has already been released. It
// returns the target leaf and its direct parent, both still fixed
// exclusively (parent is nil only if the leaf is the whole tree).
func (t *Tree[K, V]) descendForWrite(key K) (leaf, parent *Handle, err error) {
	pageSize := t.bm.PageSize()
	ks := t.keyCodec.Size()

	root, err := t.bm.FixPage(t.getRootID(), true)
	if err != nil {
		return nil, nil, err
	}

	if isLeafLevel(readLevel(root.Bytes())) {
		return root, nil, nil
	}

	cur := root
	if innerIsFull(pageSize, int(readCount(cur.Bytes())), ks) {
		cur, err = t.splitFullRootAndChoose(cur, key)
		if err != nil {
			return nil, nil, err
		}
	}

	for {
		idx := innerLowerBound(cur.Bytes(), t.keyCodec, t.cmp, key)
		childID := innerChildAt(cur.Bytes(), ks, idx)

		child, err := t.bm.FixPage(childID, true)
		if err != nil {
			t.bm.UnfixPage(cur, false)
			return nil, nil, err
		}

		if isLeafLevel(readLevel(child.Bytes())) {
			return child, cur, nil
		}

		if innerIsFull(pageSize, int(readCount(child.Bytes())), ks) {
			child, err = t.splitFullInnerChild(cur, child, idx, key)
			if err != nil {
				t.bm.UnfixPage(cur, false)
				return nil, nil, err
			}
			if isLeafLevel(readLevel(child.Bytes())) {
				return child, cur, nil
			}
		}

		t.bm.UnfixPage(cur, true)
		cur = child
	}
}

// splitFullRootAndChoose splits a full inner root in place (the old root
// page becomes the left half), mints a brand new root page one level
// taller, and returns whichever half's subtree contains key, still fixed.
func (t *Tree[K, V]) splitFullRootAndChoose(root *Handle, key K) (*Handle, error) {
	newRightID := t.allocatePage()
	newRight, err := t.bm.FixPage(newRightID, true)
	if err != nil {
		t.bm.UnfixPage(root, false)
		return nil, err
	}

	level := readLevel(root.Bytes())
	sep := innerSplit(root.Bytes(), newRight.Bytes(), t.keyCodec, level)

	newRootID := t.allocatePage()
	newRoot, err := t.bm.FixPage(newRootID, true)
	if err != nil {
		t.bm.UnfixPage(root, true)
		t.bm.UnfixPage(newRight, true)
		return nil, err
	}
	innerFirstInsert(newRoot.Bytes(), t.keyCodec, sep, root.PageID(), newRightID)
	writeLevel(newRoot.Bytes(), level+1)
	t.bm.UnfixPage(newRoot, true)
	t.setRootID(newRootID)

	if t.cmp(key, sep) <= 0 {
		t.bm.UnfixPage(newRight, true)
		return root, nil
	}
	t.bm.UnfixPage(root, true)
	return newRight, nil
}

// splitFullInnerChild splits a full inner node encountered mid-descent,
// links the separator into the still-fixed parent, and returns whichever
// half's subtree contains key, still fixed.
func (t *Tree[K, V]) splitFullInnerChild(parent, child *Handle, childIdx int, key K) (*Handle, error) {
	newSiblingID := t.allocatePage()
	newSibling, err := t.bm.FixPage(newSiblingID, true)
	if err != nil {
		t.bm.UnfixPage(child, false)
		return nil, err
	}

	level := readLevel(child.Bytes())
	sep := innerSplit(child.Bytes(), newSibling.Bytes(), t.keyCodec, level)
	innerInsertSplit(parent.Bytes(), t.keyCodec, childIdx, sep, newSiblingID)

	if t.cmp(key, sep) <= 0 {
		t.bm.UnfixPage(newSibling, true)
		return child, nil
	}
	t.bm.UnfixPage(child, true)
	return newSibling, nil
}

// innerChildIndexOf finds the slot in an inner node's children array holding
// childID, used after a leaf split to locate where to insert_split without
// threading an index through the whole descent.
func innerChildIndexOf(page []byte, keySize int, childID PageID) int {
	count := int(readCount(page))
	for i := 0; i <= count; i++ {
		if innerChildAt(page, keySize, i) == childID {
			return i
		}
	}
	panic("pageengine: child page id not found in its parent")
}
