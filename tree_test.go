package pageengine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T, pageSize int) *Tree[uint32, uint32] {
	t.Helper()
	bm := newTestBuffer(t, pageSize, 4096)
	return NewTree[uint32, uint32](bm, 0, Uint32Codec{}, Uint32Codec{}, CompareUint32)
}

// Scenario 3 from spec.md §8: 10,000 shuffled keys, verify every lookup and
// that a key never inserted is absent.
func TestInsertLookupShuffledKeys(t *testing.T) {
	tree := newTestTree(t, 1024)

	const n = 10_000
	order := rand.New(rand.NewSource(1)).Perm(n)

	for _, k := range order {
		require.NoError(t, tree.Insert(uint32(k), uint32(k)*10))
	}

	for k := 0; k < n; k++ {
		v, found, err := tree.Lookup(uint32(k))
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, uint32(k)*10, v)
	}

	_, found, err := tree.Lookup(uint32(n))
	require.NoError(t, err)
	require.False(t, found)
}

// Scenario 4 from spec.md §8: inserting K_leaf+1 keys in sorted order must
// split the root into an inner node at level 1 with two leaf children and a
// median separator.
func TestSortedInsertSplitsRootIntoInnerNode(t *testing.T) {
	bm := newTestBuffer(t, 1024, 64)
	tree := NewTree[uint32, uint32](bm, 0, Uint32Codec{}, Uint32Codec{}, CompareUint32)

	kLeaf := maxLeafKeys(1024, 4, 4)
	for k := 0; k < kLeaf+1; k++ {
		require.NoError(t, tree.Insert(uint32(k), uint32(k)))
	}

	root, err := bm.FixPage(tree.getRootID(), false)
	require.NoError(t, err)
	defer bm.UnfixPage(root, false)

	require.Equal(t, uint16(1), readLevel(root.Bytes()))
	require.Equal(t, uint16(1), readCount(root.Bytes()))

	sep := innerKeyAt(root.Bytes(), Uint32Codec{}, 0)
	m := kLeaf / 2
	require.Equal(t, uint32(m), sep)

	left := innerChildAt(root.Bytes(), 4, 0)
	right := innerChildAt(root.Bytes(), 4, 1)

	leftH, err := bm.FixPage(left, false)
	require.NoError(t, err)
	rightH, err := bm.FixPage(right, false)
	require.NoError(t, err)
	defer bm.UnfixPage(leftH, false)
	defer bm.UnfixPage(rightH, false)

	require.True(t, isLeafLevel(readLevel(leftH.Bytes())))
	require.True(t, isLeafLevel(readLevel(rightH.Bytes())))
}

func TestInsertOverwritesExistingKey(t *testing.T) {
	tree := newTestTree(t, 1024)

	require.NoError(t, tree.Insert(7, 100))
	require.NoError(t, tree.Insert(7, 200))

	v, found, err := tree.Lookup(7)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint32(200), v)
}

func TestEraseRemovesEvenKeys(t *testing.T) {
	tree := newTestTree(t, 1024)

	const n = 2_000
	for k := 0; k < n; k++ {
		require.NoError(t, tree.Insert(uint32(k), uint32(k)))
	}
	for k := 0; k < n; k += 2 {
		require.NoError(t, tree.Erase(uint32(k)))
	}

	for k := 0; k < n; k++ {
		_, found, err := tree.Lookup(uint32(k))
		require.NoError(t, err)
		if k%2 == 0 {
			require.False(t, found, "key %d should have been erased", k)
		} else {
			require.True(t, found, "key %d should still be present", k)
		}
	}
}

func TestEraseAbsentKeyIsNoop(t *testing.T) {
	tree := newTestTree(t, 1024)
	require.NoError(t, tree.Insert(1, 1))
	require.NoError(t, tree.Erase(999))

	v, found, err := tree.Lookup(1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint32(1), v)
}

func TestIteratorWalksInOrder(t *testing.T) {
	tree := newTestTree(t, 1024)

	const n = 5_000
	order := rand.New(rand.NewSource(2)).Perm(n)
	for _, k := range order {
		require.NoError(t, tree.Insert(uint32(k), uint32(k)*2))
	}

	it, err := tree.NewIterator()
	require.NoError(t, err)

	count := 0
	var prev uint32
	for {
		k, v, ok := it.Next()
		if !ok {
			break
		}
		require.Equal(t, k*2, v)
		if count > 0 {
			require.Greater(t, k, prev)
		}
		prev = k
		count++
	}
	require.Equal(t, n, count)
}

func TestIteratorOnEmptyTreeYieldsNothing(t *testing.T) {
	tree := newTestTree(t, 1024)
	it, err := tree.NewIterator()
	require.NoError(t, err)

	_, _, ok := it.Next()
	require.False(t, ok)
}

func TestLookupOnEmptyTree(t *testing.T) {
	tree := newTestTree(t, 1024)
	_, found, err := tree.Lookup(42)
	require.NoError(t, err)
	require.False(t, found)
}

// Height bound: with n keys and branching factor derived from the runtime
// capacity formulas (never hardcoded spec constants), the root's level must
// not exceed ceil(log_b(n)) for b = K_inner+1, the full inner fan-out.
func TestTreeHeightIsBounded(t *testing.T) {
	bm := newTestBuffer(t, 1024, 8192)
	tree := NewTree[uint32, uint32](bm, 0, Uint32Codec{}, Uint32Codec{}, CompareUint32)

	const n = 20_000
	for k := 0; k < n; k++ {
		require.NoError(t, tree.Insert(uint32(k), uint32(k)))
	}

	branch := maxInnerKeys(1024, 4) + 1

	root, err := bm.FixPage(tree.getRootID(), false)
	require.NoError(t, err)
	height := int(readLevel(root.Bytes()))
	bm.UnfixPage(root, false)

	maxHeight := 1
	size := branch
	for size < n {
		size *= branch
		maxHeight++
	}
	require.LessOrEqual(t, height, maxHeight)
}
