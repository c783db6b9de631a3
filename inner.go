package pageengine

import "encoding/binary"

// Inner node layout (level > 0): header (8 bytes, see node.go), then a keys
// array of maxInnerKeys(pageSize, keySize) fixed-size keys, then a children
// array of maxInnerKeys+1 PageIDs (8 bytes each).
//
// spec.md §9 notes the "sentinel last key" is one valid layout and that
// "reimplementations may instead binary-search over count − 1 keys and
// handle the rightmost child separately." This is that alternative: count
// is the number of real separator keys (no duplicate sentinel), and there
// are always count+1 children. See DESIGN.md for the rationale.

func innerKeysBase() int {
	return innerHeaderSize
}

func innerChildrenBase(pageSize, keySize int) int {
	maxKeys := maxInnerKeys(pageSize, keySize)
	return innerHeaderSize + maxKeys*keySize
}

func innerKeyAt[K any](page []byte, keyCodec Codec[K], i int) K {
	ks := keyCodec.Size()
	off := innerKeysBase() + i*ks
	return keyCodec.Decode(page[off : off+ks])
}

func setInnerKeyAt[K any](page []byte, keyCodec Codec[K], i int, key K) {
	ks := keyCodec.Size()
	off := innerKeysBase() + i*ks
	keyCodec.Encode(page[off:off+ks], key)
}

func innerChildAt(page []byte, keySize, i int) PageID {
	off := innerChildrenBase(len(page), keySize) + i*8
	return PageID(binary.LittleEndian.Uint64(page[off : off+8]))
}

func setInnerChildAt(page []byte, keySize, i int, child PageID) {
	off := innerChildrenBase(len(page), keySize) + i*8
	binary.LittleEndian.PutUint64(page[off:off+8], uint64(child))
}

// innerLowerBound returns the index of the child to descend into for key:
// the smallest i in [0,count] such that i == count or key <= keys[i],
// per spec.md §4.2's inner lower-bound / lookup rule.
func innerLowerBound[K any](page []byte, keyCodec Codec[K], cmp Comparator[K], key K) int {
	count := int(readCount(page))
	lo, hi := 0, count
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(innerKeyAt(page, keyCodec, mid), key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// innerIsFull reports whether an inner node holding count keys of keySize
// has no room for one more separator.
func innerIsFull(pageSize, count, keySize int) bool {
	return count >= maxInnerKeys(pageSize, keySize)
}

// innerFirstInsert initializes a freshly minted inner node (a new root) with
// exactly one separator and two children, per spec.md §4.2's first_insert.
func innerFirstInsert[K any](page []byte, keyCodec Codec[K], key K, left, right PageID) {
	writeLevel(page, 1) // caller overwrites with the correct height afterward
	writeCount(page, 1)
	setInnerKeyAt(page, keyCodec, 0, key)
	setInnerChildAt(page, keyCodec.Size(), 0, left)
	setInnerChildAt(page, keyCodec.Size(), 1, right)
}

// innerInsertSplit inserts (key, rightChild) immediately to the right of the
// child at childIdx, shifting keys and children to make room. The caller
// must have already ensured the node is not full.
func innerInsertSplit[K any](page []byte, keyCodec Codec[K], childIdx int, key K, rightChild PageID) {
	count := int(readCount(page))
	ks := keyCodec.Size()

	for i := count; i > childIdx; i-- {
		setInnerKeyAt(page, keyCodec, i, innerKeyAt(page, keyCodec, i-1))
	}
	setInnerKeyAt(page, keyCodec, childIdx, key)

	for i := count + 1; i > childIdx+1; i-- {
		setInnerChildAt(page, ks, i, innerChildAt(page, ks, i-1))
	}
	setInnerChildAt(page, ks, childIdx+1, rightChild)

	writeCount(page, uint16(count+1))
}

// innerSplit splits a full inner node (count == maxInnerKeys, count+1
// children) into itself (left half) and newPage (right half), returning the
// separator key removed from both halves to be inserted one level up, per
// spec.md §4.2's inner split.
func innerSplit[K any](page, newPage []byte, keyCodec Codec[K], level uint16) K {
	count := int(readCount(page))
	ks := keyCodec.Size()
	s := count / 2

	separator := innerKeyAt(page, keyCodec, s)

	n := 0
	for i := s + 1; i < count; i++ {
		setInnerKeyAt(newPage, keyCodec, n, innerKeyAt(page, keyCodec, i))
		n++
	}
	nc := 0
	for i := s + 1; i <= count; i++ {
		setInnerChildAt(newPage, ks, nc, innerChildAt(page, ks, i))
		nc++
	}
	writeLevel(newPage, level)
	writeCount(newPage, uint16(n))

	writeCount(page, uint16(s))
	return separator
}
