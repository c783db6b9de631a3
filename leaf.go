package pageengine

// Leaf node layout (level == 0): header (16 bytes, see node.go) then a keys
// array of maxLeafKeys(pageSize,...) fixed-size keys, then a values array of
// the same length. Both arrays are fully reserved up front — "count" says
// how many leading slots are live.

func leafKeyOffset(keySize, i int) int {
	return leafHeaderSize + i*keySize
}

func leafValueOffset(pageSize, keySize, valSize, i int) int {
	maxKeys := maxLeafKeys(pageSize, keySize, valSize)
	return leafHeaderSize + maxKeys*keySize + i*valSize
}

func leafKeyAt[K any](page []byte, keyCodec Codec[K], i int) K {
	ks := keyCodec.Size()
	off := leafKeyOffset(ks, i)
	return keyCodec.Decode(page[off : off+ks])
}

func setLeafKeyAt[K any](page []byte, keyCodec Codec[K], i int, key K) {
	ks := keyCodec.Size()
	off := leafKeyOffset(ks, i)
	keyCodec.Encode(page[off:off+ks], key)
}

func leafValueAt[V any](page []byte, keySize int, valCodec Codec[V], i int) V {
	vs := valCodec.Size()
	off := leafValueOffset(len(page), keySize, vs, i)
	return valCodec.Decode(page[off : off+vs])
}

func setLeafValueAt[V any](page []byte, keySize int, valCodec Codec[V], i int, val V) {
	vs := valCodec.Size()
	off := leafValueOffset(len(page), keySize, vs, i)
	valCodec.Encode(page[off:off+vs], val)
}

// leafLowerBound returns the index of the first slot whose key is not less
// than key, and whether that slot's key equals key, per spec.md §4.2.
func leafLowerBound[K any](page []byte, keyCodec Codec[K], cmp Comparator[K], key K) (idx int, found bool) {
	count := int(readCount(page))
	lo, hi := 0, count
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(leafKeyAt(page, keyCodec, mid), key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < count && cmp(leafKeyAt(page, keyCodec, lo), key) == 0 {
		return lo, true
	}
	return lo, false
}

// leafInsert overwrites the value at key if present, else shifts the tail
// right by one slot and inserts (key, value). Returns true if it was an
// overwrite (node count unchanged). Caller must have checked the node is not
// full when inserting a new key.
func leafInsert[K, V any](page []byte, keyCodec Codec[K], valCodec Codec[V], cmp Comparator[K], key K, value V) bool {
	idx, found := leafLowerBound(page, keyCodec, cmp, key)
	count := int(readCount(page))
	ks := keyCodec.Size()

	if found {
		setLeafValueAt(page, ks, valCodec, idx, value)
		return true
	}

	for i := count; i > idx; i-- {
		setLeafKeyAt(page, keyCodec, i, leafKeyAt(page, keyCodec, i-1))
		setLeafValueAt(page, ks, valCodec, i, leafValueAt(page, ks, valCodec, i-1))
	}
	setLeafKeyAt(page, keyCodec, idx, key)
	setLeafValueAt(page, ks, valCodec, idx, value)
	writeCount(page, uint16(count+1))
	return false
}

// leafErase removes the entry for key if present, shifting the tail left by
// one slot. It is a no-op if key is absent.
func leafErase[K, V any](page []byte, keyCodec Codec[K], valCodec Codec[V], cmp Comparator[K], key K) bool {
	idx, found := leafLowerBound(page, keyCodec, cmp, key)
	if !found {
		return false
	}
	count := int(readCount(page))
	ks := keyCodec.Size()

	for i := idx; i < count-1; i++ {
		setLeafKeyAt(page, keyCodec, i, leafKeyAt(page, keyCodec, i+1))
		setLeafValueAt(page, ks, valCodec, i, leafValueAt(page, ks, valCodec, i+1))
	}
	writeCount(page, uint16(count-1))
	return true
}

// leafIsFull reports whether a leaf holding the given key/value sizes has no
// room for one more entry.
func leafIsFull(pageSize, count, keySize, valSize int) bool {
	return count >= maxLeafKeys(pageSize, keySize, valSize)
}

// leafSplit moves the upper half of page into the empty page newPage and
// returns the separator key keys[m], per spec.md §4.2: m = count/2, the new
// leaf gets slots [m+1, count), the old leaf keeps [0, m].
func leafSplit[K, V any](page, newPage []byte, keyCodec Codec[K], valCodec Codec[V]) K {
	count := int(readCount(page))
	m := count / 2
	ks := keyCodec.Size()

	n := 0
	for i := m + 1; i < count; i++ {
		setLeafKeyAt(newPage, keyCodec, n, leafKeyAt(page, keyCodec, i))
		setLeafValueAt(newPage, ks, valCodec, n, leafValueAt(page, ks, valCodec, i))
		n++
	}
	writeLevel(newPage, 0)
	writeCount(newPage, uint16(n))
	writeLeafNext(newPage, readLeafNext(page))

	separator := leafKeyAt(page, keyCodec, m)
	writeCount(page, uint16(m+1))
	return separator
}
