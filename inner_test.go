package pageengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newInnerPage(t *testing.T, pageSize int, level uint16) []byte {
	t.Helper()
	page := make([]byte, pageSize)
	writeLevel(page, level)
	writeCount(page, 0)
	return page
}

func TestInnerFirstInsert(t *testing.T) {
	page := newInnerPage(t, 256, 0)
	innerFirstInsert(page, Uint32Codec{}, uint32(50), PageID(1), PageID(2))
	writeLevel(page, 1)

	require.Equal(t, uint16(1), readCount(page))
	require.Equal(t, uint32(50), innerKeyAt(page, Uint32Codec{}, 0))
	require.Equal(t, PageID(1), innerChildAt(page, 4, 0))
	require.Equal(t, PageID(2), innerChildAt(page, 4, 1))
}

func TestInnerLowerBoundPicksCorrectChild(t *testing.T) {
	page := newInnerPage(t, 256, 1)
	innerFirstInsert(page, Uint32Codec{}, uint32(50), PageID(1), PageID(2))
	writeLevel(page, 1)
	innerInsertSplit(page, Uint32Codec{}, 1, uint32(100), PageID(3))

	require.Equal(t, 0, innerLowerBound(page, Uint32Codec{}, CompareUint32, uint32(10)))
	require.Equal(t, 0, innerLowerBound(page, Uint32Codec{}, CompareUint32, uint32(50)))
	require.Equal(t, 1, innerLowerBound(page, Uint32Codec{}, CompareUint32, uint32(75)))
	require.Equal(t, 1, innerLowerBound(page, Uint32Codec{}, CompareUint32, uint32(100)))
	require.Equal(t, 2, innerLowerBound(page, Uint32Codec{}, CompareUint32, uint32(150)))
}

func TestInnerInsertSplitShiftsKeysAndChildren(t *testing.T) {
	page := newInnerPage(t, 256, 1)
	innerFirstInsert(page, Uint32Codec{}, uint32(20), PageID(1), PageID(2))
	writeLevel(page, 1)

	innerInsertSplit(page, Uint32Codec{}, 0, uint32(10), PageID(3))

	require.Equal(t, uint16(2), readCount(page))
	require.Equal(t, uint32(10), innerKeyAt(page, Uint32Codec{}, 0))
	require.Equal(t, uint32(20), innerKeyAt(page, Uint32Codec{}, 1))
	require.Equal(t, PageID(1), innerChildAt(page, 4, 0))
	require.Equal(t, PageID(3), innerChildAt(page, 4, 1))
	require.Equal(t, PageID(2), innerChildAt(page, 4, 2))
}

func TestInnerSplitRemovesAndReturnsSeparator(t *testing.T) {
	pageSize := 256
	maxKeys := maxInnerKeys(pageSize, 4)

	page := newInnerPage(t, pageSize, 1)
	innerFirstInsert(page, Uint32Codec{}, uint32(0), PageID(0), PageID(1))
	writeLevel(page, 1)
	for i := 1; i < maxKeys; i++ {
		innerInsertSplit(page, Uint32Codec{}, i, uint32(i), PageID(uint64(i+1)))
	}
	require.Equal(t, maxKeys, int(readCount(page)))

	newPage := newInnerPage(t, pageSize, 1)
	sep := innerSplit(page, newPage, Uint32Codec{}, 1)

	s := maxKeys / 2
	require.Equal(t, uint32(s), sep)
	require.Equal(t, uint16(s), readCount(page))
	require.Equal(t, uint16(maxKeys-s-1), readCount(newPage))

	// Every key preserved on each side still respects the separator.
	for i := 0; i < int(readCount(page)); i++ {
		require.Less(t, innerKeyAt(page, Uint32Codec{}, i), sep)
	}
	for i := 0; i < int(readCount(newPage)); i++ {
		require.Greater(t, innerKeyAt(newPage, Uint32Codec{}, i), sep)
	}
}

func TestInnerIsFull(t *testing.T) {
	require.False(t, innerIsFull(256, 0, 4))
	max := maxInnerKeys(256, 4)
	require.False(t, innerIsFull(256, max-1, 4))
	require.True(t, innerIsFull(256, max, 4))
}
