package pageengine

import (
	"errors"
	"fmt"

	"pageengine/internal/cache"
	"pageengine/internal/storage"
)

// BufferManager is a resident cache of fixed-size pages with 2Q replacement
// and per-page shared/exclusive latches, backed by on-demand reads from and
// write-back to segment files. See spec.md §4.1.
type BufferManager struct {
	pageSize  int
	pageCount int

	table    *cache.Table
	segments *storage.Manager
	logger   Logger
}

// New pre-allocates a single contiguous pool of pageSize*pageCount bytes and
// opens the configured segment directory. pageSize and pageCount must both
// be positive.
func New(pageSize, pageCount int, opts ...Option) (*BufferManager, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	segments, err := storage.New(o.segmentDir, o.handleCacheSize)
	if err != nil {
		if errors.Is(err, storage.ErrSegmentLocked) {
			return nil, err
		}
		return nil, fmt.Errorf("pageengine: open segment directory: %w", err)
	}

	table := cache.NewTable(pageSize, pageCount, segments, o.logger)

	return &BufferManager{
		pageSize:  pageSize,
		pageCount: pageCount,
		table:     table,
		segments:  segments,
		logger:    o.logger,
	}, nil
}

// Handle grants access to the bytes of one fixed page between a FixPage and
// its matching UnfixPage. Its zero value is not usable; obtain one only from
// FixPage.
type Handle struct {
	id        PageID
	frame     *cache.Frame
	exclusive bool
	unfixed   bool
}

// Bytes returns the page's raw bytes. Callers must only mutate them while
// holding an exclusive Handle, and only between FixPage and UnfixPage.
func (h *Handle) Bytes() []byte {
	return h.frame.Data
}

// PageID returns the id this handle was fixed for.
func (h *Handle) PageID() PageID {
	return h.id
}

// FixPage returns a handle granting read (exclusive=false) or read/write
// (exclusive=true) access to page id's bytes, per spec.md §4.1.
func (b *BufferManager) FixPage(id PageID, exclusive bool) (*Handle, error) {
	offset := int64(id.PageInSegment()) * int64(b.pageSize)

	frame, err := b.table.Acquire(uint64(id), id.SegmentID(), offset)
	if err != nil {
		if cache.IsBufferFull(err) {
			return nil, ErrBufferFull
		}
		return nil, err
	}

	if exclusive {
		frame.Latch.Lock()
	} else {
		frame.Latch.RLock()
	}

	return &Handle{id: id, frame: frame, exclusive: exclusive}, nil
}

// UnfixPage releases the latch h holds; if dirty is true the frame is marked
// DIRTY. h must not be used again afterward. Unfixing the same handle twice
// is a programming error and panics.
func (b *BufferManager) UnfixPage(h *Handle, dirty bool) {
	if h.unfixed {
		panic(fmt.Errorf("%w: page %d", ErrDoubleUnfix, h.id))
	}
	h.unfixed = true

	if h.exclusive {
		h.frame.Latch.Unlock()
	} else {
		h.frame.Latch.RUnlock()
	}
	b.table.Release(uint64(h.id), dirty)
}

// GetFIFOList returns the current FIFO queue contents, head first. Test-only:
// not safe to call while other fixes/unfixes are in flight.
func (b *BufferManager) GetFIFOList() []PageID {
	return wrapIDs(b.table.FIFOList())
}

// GetLRUList returns the current LRU queue contents, head first. Test-only:
// not safe to call while other fixes/unfixes are in flight.
func (b *BufferManager) GetLRUList() []PageID {
	return wrapIDs(b.table.LRUList())
}

func wrapIDs(raw []uint64) []PageID {
	ids := make([]PageID, len(raw))
	for i, id := range raw {
		ids[i] = PageID(id)
	}
	return ids
}

// GetSegmentID returns the segment id encoded in a page id.
func (b *BufferManager) GetSegmentID(id PageID) uint16 {
	return id.SegmentID()
}

// GetSegmentPageID returns the segment-local page index encoded in a page id.
func (b *BufferManager) GetSegmentPageID(id PageID) uint64 {
	return id.PageInSegment()
}

// PageSize returns the fixed page size this manager was constructed with.
func (b *BufferManager) PageSize() int {
	return b.pageSize
}

// Close writes back every dirty resident frame and closes all segment
// files. No fixes may be outstanding.
func (b *BufferManager) Close() error {
	if err := b.table.Flush(); err != nil {
		return err
	}
	return b.segments.Close()
}
