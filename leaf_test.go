package pageengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newLeafPage(t *testing.T, pageSize int) []byte {
	t.Helper()
	page := make([]byte, pageSize)
	writeLevel(page, 0)
	writeCount(page, 0)
	writeLeafNext(page, 0)
	return page
}

func TestLeafInsertKeepsKeysSorted(t *testing.T) {
	page := newLeafPage(t, 256)

	for _, k := range []uint32{5, 1, 9, 3, 7} {
		leafInsert(page, Uint32Codec{}, Uint32Codec{}, CompareUint32, k, k*10)
	}

	require.Equal(t, uint16(5), readCount(page))
	for i, want := range []uint32{1, 3, 5, 7, 9} {
		require.Equal(t, want, leafKeyAt(page, Uint32Codec{}, i))
	}
}

func TestLeafInsertOverwritesExisting(t *testing.T) {
	page := newLeafPage(t, 256)
	leafInsert(page, Uint32Codec{}, Uint32Codec{}, CompareUint32, 1, 100)
	overwrote := leafInsert(page, Uint32Codec{}, Uint32Codec{}, CompareUint32, 1, 200)

	require.True(t, overwrote)
	require.Equal(t, uint16(1), readCount(page))
	require.Equal(t, uint32(200), leafValueAt(page, 4, Uint32Codec{}, 0))
}

func TestLeafLowerBoundFindsInsertionPoint(t *testing.T) {
	page := newLeafPage(t, 256)
	for _, k := range []uint32{10, 20, 30} {
		leafInsert(page, Uint32Codec{}, Uint32Codec{}, CompareUint32, k, k)
	}

	idx, found := leafLowerBound(page, Uint32Codec{}, CompareUint32, 20)
	require.True(t, found)
	require.Equal(t, 1, idx)

	idx, found = leafLowerBound(page, Uint32Codec{}, CompareUint32, 15)
	require.False(t, found)
	require.Equal(t, 1, idx)

	idx, found = leafLowerBound(page, Uint32Codec{}, CompareUint32, 99)
	require.False(t, found)
	require.Equal(t, 3, idx)
}

func TestLeafEraseShiftsTail(t *testing.T) {
	page := newLeafPage(t, 256)
	for _, k := range []uint32{1, 2, 3} {
		leafInsert(page, Uint32Codec{}, Uint32Codec{}, CompareUint32, k, k)
	}

	require.True(t, leafErase(page, Uint32Codec{}, Uint32Codec{}, CompareUint32, 2))
	require.Equal(t, uint16(2), readCount(page))
	require.Equal(t, uint32(1), leafKeyAt(page, Uint32Codec{}, 0))
	require.Equal(t, uint32(3), leafKeyAt(page, Uint32Codec{}, 1))

	require.False(t, leafErase(page, Uint32Codec{}, Uint32Codec{}, CompareUint32, 999))
}

func TestLeafSplitProducesTwoNonEmptySortedHalves(t *testing.T) {
	pageSize := 256
	ks := maxLeafKeys(pageSize, 4, 4)

	page := newLeafPage(t, pageSize)
	for k := 0; k < ks; k++ {
		leafInsert(page, Uint32Codec{}, Uint32Codec{}, CompareUint32, uint32(k), uint32(k))
	}
	writeLeafNext(page, PageID(777))

	newPage := newLeafPage(t, pageSize)
	sep := leafSplit(page, newPage, Uint32Codec{}, Uint32Codec{})

	m := ks / 2
	require.Equal(t, uint32(m), sep)
	require.Equal(t, uint16(m+1), readCount(page))
	require.Equal(t, uint16(ks-m-1), readCount(newPage))

	// The new leaf inherits the old leaf's next pointer (wired by the caller
	// to the new leaf's own page id after allocation).
	require.Equal(t, PageID(777), readLeafNext(newPage))

	for i := 0; i < int(readCount(page)); i++ {
		require.Equal(t, uint32(i), leafKeyAt(page, Uint32Codec{}, i))
	}
	for i := 0; i < int(readCount(newPage)); i++ {
		require.Equal(t, uint32(m+1+i), leafKeyAt(newPage, Uint32Codec{}, i))
	}
}

func TestLeafIsFull(t *testing.T) {
	require.False(t, leafIsFull(256, 0, 4, 4))
	max := maxLeafKeys(256, 4, 4)
	require.False(t, leafIsFull(256, max-1, 4, 4))
	require.True(t, leafIsFull(256, max, 4, 4))
}
