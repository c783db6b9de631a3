package pageengine

// Iterator walks a tree's entries in key order via leftmost descent followed
// by the leaf sibling chain, per SPEC_FULL.md's Iteration addition: once the
// leftmost leaf is found, every subsequent leaf is reached through its
// predecessor's next pointer instead of re-descending from the root.
//
// An Iterator holds a shared latch on its current leaf between calls to
// Next. Callers that stop draining early must call Close to release it.
type Iterator[K, V any] struct {
	t    *Tree[K, V]
	leaf *Handle
	idx  int
}

// NewIterator returns an iterator positioned before the first entry.
func (t *Tree[K, V]) NewIterator() (*Iterator[K, V], error) {
	if t.IsEmpty() {
		return &Iterator[K, V]{t: t}, nil
	}
	leaf, err := t.leftmostLeaf()
	if err != nil {
		return nil, err
	}
	return &Iterator[K, V]{t: t, leaf: leaf}, nil
}

func (t *Tree[K, V]) leftmostLeaf() (*Handle, error) {
	cur, err := t.bm.FixPage(t.getRootID(), false)
	if err != nil {
		return nil, err
	}
	for !isLeafLevel(readLevel(cur.Bytes())) {
		childID := innerChildAt(cur.Bytes(), t.keyCodec.Size(), 0)
		child, err := t.bm.FixPage(childID, false)
		t.bm.UnfixPage(cur, false)
		if err != nil {
			return nil, err
		}
		cur = child
	}
	return cur, nil
}

// Next returns the next (key, value) pair in order, or ok=false once
// exhausted, at which point the iterator has released its latch on its own.
func (it *Iterator[K, V]) Next() (key K, value V, ok bool) {
	for it.leaf != nil && it.idx >= int(readCount(it.leaf.Bytes())) {
		// next == 0 only ever means "no successor": page id 0 lies outside
		// any segment but segment 0, and in segment 0 it is the tree's first
		// leaf, which stays leftmost, so no split can later assign it as
		// some other leaf's sibling.
		next := readLeafNext(it.leaf.Bytes())
		it.t.bm.UnfixPage(it.leaf, false)
		it.leaf = nil
		if next == 0 {
			break
		}
		h, err := it.t.bm.FixPage(next, false)
		if err != nil {
			break
		}
		it.leaf, it.idx = h, 0
	}
	if it.leaf == nil {
		return key, value, false
	}

	key = leafKeyAt(it.leaf.Bytes(), it.t.keyCodec, it.idx)
	value = leafValueAt(it.leaf.Bytes(), it.t.keyCodec.Size(), it.t.valCodec, it.idx)
	it.idx++
	return key, value, true
}

// Close releases the iterator's latch on its current leaf, if any. Safe to
// call after Next has already returned ok=false.
func (it *Iterator[K, V]) Close() {
	if it.leaf != nil {
		it.t.bm.UnfixPage(it.leaf, false)
		it.leaf = nil
	}
}
