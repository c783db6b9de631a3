// Package cache implements the buffer manager's resident frame table: a 2Q
// (FIFO admission queue + LRU retention queue) replacement policy over a
// fixed-size pool of page-sized byte slices, guarded by one coarse mutex
// plus a per-frame reader/writer latch. It knows nothing about B+-tree
// semantics — it serves raw fixed-size byte buffers keyed by an opaque id.
package cache

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Logger is the narrow diagnostic interface the table logs eviction and
// write-back decisions through. pageengine.Logger satisfies it.
type Logger interface {
	Info(msg string, args ...any)
}

type discardLogger struct{}

func (discardLogger) Info(string, ...any) {}

// Queue names which 2Q queue currently holds a frame.
type Queue int

const (
	FIFO Queue = iota
	LRU
)

func (q Queue) String() string {
	if q == FIFO {
		return "FIFO"
	}
	return "LRU"
}

// Segment is the positional block I/O collaborator the table reads pages
// from and writes dirty pages back to. Implemented by internal/storage.Manager.
type Segment interface {
	ReadBlock(segment uint16, offset int64, dst []byte) error
	WriteBlock(segment uint16, offset int64, src []byte) error
}

// Frame is a resident copy of one page.
type Frame struct {
	ID       uint64
	Data     []byte
	Dirty    bool
	PinCount int
	Queue    Queue

	Latch sync.RWMutex

	elem    *list.Element // position in its current queue
	segment uint16
	offset  int64
	slot    int // index into the table's pool this frame's Data backs
}

// Table is the frame table plus FIFO/LRU queues, protected by one mutex.
type Table struct {
	mu sync.Mutex

	pageSize int
	capacity int

	pool    []byte
	free    []int // indices into pool not yet claimed by a frame
	frames  map[uint64]*Frame
	fifo    *list.List
	lruList *list.List

	segment Segment
	logger  Logger
}

// NewTable pre-allocates a single contiguous pool of pageSize*pageCount
// bytes; frames are handed out of it lazily. A nil logger discards.
func NewTable(pageSize, pageCount int, segment Segment, logger Logger) *Table {
	if pageSize <= 0 || pageCount <= 0 {
		panic("pageengine/cache: page size and page count must be positive")
	}
	if logger == nil {
		logger = discardLogger{}
	}

	pool := make([]byte, pageSize*pageCount)
	free := make([]int, pageCount)
	for i := range free {
		free[i] = pageCount - 1 - i // pop from the end, so slot 0 is handed out first
	}

	return &Table{
		pageSize: pageSize,
		capacity: pageCount,
		pool:     pool,
		free:     free,
		frames:   make(map[uint64]*Frame, pageCount),
		fifo:     list.New(),
		lruList:  list.New(),
		segment:  segment,
		logger:   logger,
	}
}

// Acquire resolves id to a resident frame, loading it from segment/offset on
// a miss and evicting a victim if the table is at capacity. It returns the
// frame with PinCount already incremented; the caller is responsible for
// acquiring the frame's latch itself, after releasing the table's mutex, per
// the lock-ordering rule in spec.md §5 (manager mutex before frame latch,
// released before the caller touches page bytes).
func (t *Table) Acquire(id uint64, segment uint16, offset int64) (*Frame, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if f, ok := t.frames[id]; ok {
		t.promote(f)
		f.PinCount++
		return f, nil
	}

	if len(t.free) > 0 {
		slot := t.free[len(t.free)-1]
		t.free = t.free[:len(t.free)-1]
		return t.installNew(id, segment, offset, slot)
	}

	victim := t.selectVictim()
	if victim == nil {
		return nil, errBufferFull
	}

	if victim.Dirty {
		t.logger.Info("evicting dirty frame", "page", victim.ID, "queue", victim.Queue.String(),
			"fingerprint", xxhash.Sum64(victim.Data))
		if err := t.segment.WriteBlock(victim.segment, victim.offset, victim.Data); err != nil {
			// Leave the victim exactly as it was; the caller may retry
			// after reducing its own working set.
			return nil, err
		}
		victim.Dirty = false
	}

	slot := t.frameSlot(victim)
	originQueue := victim.Queue
	t.removeFromQueue(victim)
	delete(t.frames, victim.ID)

	return t.installInto(id, segment, offset, slot, originQueue)
}

// installNew reads a page into a freshly claimed pool slot and inserts the
// new frame at the FIFO tail, per spec.md §4.1 step 2.
func (t *Table) installNew(id uint64, segment uint16, offset int64, slot int) (*Frame, error) {
	return t.load(id, segment, offset, slot, FIFO)
}

// installInto reads a page into a reused slot and installs it into whichever
// queue the evicted victim came from, per spec.md §4.1 step 3.
func (t *Table) installInto(id uint64, segment uint16, offset int64, slot int, queue Queue) (*Frame, error) {
	return t.load(id, segment, offset, slot, queue)
}

func (t *Table) load(id uint64, segment uint16, offset int64, slot int, queue Queue) (*Frame, error) {
	data := t.pool[slot*t.pageSize : (slot+1)*t.pageSize]
	if err := t.segment.ReadBlock(segment, offset, data); err != nil {
		t.free = append(t.free, slot)
		return nil, err
	}

	f := &Frame{
		ID:       id,
		Data:     data,
		PinCount: 1,
		Queue:    queue,
		segment:  segment,
		offset:   offset,
		slot:     slot,
	}
	if queue == FIFO {
		f.elem = t.fifo.PushBack(f)
	} else {
		f.elem = t.lruList.PushBack(f)
	}
	t.frames[id] = f
	return f, nil
}

// promote implements the 2Q second-touch rule: a frame found in FIFO moves
// to the LRU tail; a frame already in LRU moves to the LRU tail.
func (t *Table) promote(f *Frame) {
	switch f.Queue {
	case FIFO:
		t.fifo.Remove(f.elem)
		f.Queue = LRU
		f.elem = t.lruList.PushBack(f)
	case LRU:
		t.lruList.MoveToBack(f.elem)
	}
}

// selectVictim scans FIFO then LRU for the first unpinned frame.
func (t *Table) selectVictim() *Frame {
	for e := t.fifo.Front(); e != nil; e = e.Next() {
		if f := e.Value.(*Frame); f.PinCount == 0 {
			return f
		}
	}
	for e := t.lruList.Front(); e != nil; e = e.Next() {
		if f := e.Value.(*Frame); f.PinCount == 0 {
			return f
		}
	}
	return nil
}

func (t *Table) removeFromQueue(f *Frame) {
	if f.Queue == FIFO {
		t.fifo.Remove(f.elem)
	} else {
		t.lruList.Remove(f.elem)
	}
}

// frameSlot returns which pool slot a frame's Data backs.
func (t *Table) frameSlot(f *Frame) int {
	return f.slot
}

// Release decrements a frame's pin count and, if dirty, marks it so. The
// caller must have already released the frame's own latch; PinCount is only
// ever touched under t.mu, per spec.md §5.
func (t *Table) Release(id uint64, dirty bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, ok := t.frames[id]
	if !ok {
		panic(fmt.Sprintf("pageengine/cache: unfix of non-resident page %d", id))
	}
	if dirty {
		f.Dirty = true
	}
	if f.PinCount == 0 {
		panic(fmt.Sprintf("pageengine/cache: double-unfix of page %d", id))
	}
	f.PinCount--
}

// FIFOList returns the current FIFO queue contents, head first. Test-only,
// not safe to call concurrently with other table operations.
func (t *Table) FIFOList() []uint64 {
	return listIDs(t.fifo)
}

// LRUList returns the current LRU queue contents, head first. Test-only,
// not safe to call concurrently with other table operations.
func (t *Table) LRUList() []uint64 {
	return listIDs(t.lruList)
}

func listIDs(l *list.List) []uint64 {
	ids := make([]uint64, 0, l.Len())
	for e := l.Front(); e != nil; e = e.Next() {
		ids = append(ids, e.Value.(*Frame).ID)
	}
	return ids
}

// Flush writes back every dirty resident frame. Called on shutdown; the
// caller must guarantee no fixes are outstanding.
func (t *Table) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var first error
	for _, f := range t.frames {
		if !f.Dirty {
			continue
		}
		t.logger.Info("flushing dirty frame", "page", f.ID, "fingerprint", xxhash.Sum64(f.Data))
		if err := t.segment.WriteBlock(f.segment, f.offset, f.Data); err != nil {
			if first == nil {
				first = err
			}
			continue
		}
		f.Dirty = false
	}
	return first
}
