package storage

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/elastic/go-freelru"
)

// defaultHandleCacheSize bounds how many segment files stay open at once.
// This is independent of the buffer manager's page-frame 2Q cache one layer
// up: a segment can hold thousands of resident pages behind one open file
// descriptor, so the two caches are sized on entirely different axes.
const defaultHandleCacheSize = 64

// handleCache tracks which segment ids have been recently touched and calls
// onEvict for whichever id falls out the back. It holds no data of its own —
// Manager still owns the *os.File map — it only decides when a descriptor is
// cold enough to close.
type handleCache struct {
	lru *freelru.LRU[uint16, struct{}]
}

func newHandleCache(size int, onEvict func(segment uint16)) *handleCache {
	if size <= 0 {
		size = defaultHandleCacheSize
	}

	lru, err := freelru.New[uint16, struct{}](uint32(size), hashSegmentID)
	if err != nil {
		// Only returned for a zero capacity, which defaultHandleCacheSize
		// above rules out.
		panic("pageengine/storage: failed to build handle cache: " + err.Error())
	}
	lru.SetOnEvict(func(segment uint16, _ struct{}) {
		onEvict(segment)
	})

	return &handleCache{lru: lru}
}

// touch marks segment as most-recently-used, evicting the coldest entry's
// file handle if the cache is full.
func (h *handleCache) touch(segment uint16) {
	h.lru.Add(segment, struct{}{})
}

func hashSegmentID(segment uint16) uint32 {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], segment)
	return uint32(xxhash.Sum64(buf[:]))
}
