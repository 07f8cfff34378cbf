package ingress

import "sync/atomic"

// QueueCapacity is the per-instrument order queue depth: the smallest
// power of two above the required 10240.
const QueueCapacity = 16384

// Queue is a lock-free SPSC ring of wire orders between the dispatcher
// and one engine worker. Push and Pop are non-blocking; the callers
// spin with a yield cadence on full/empty.
type Queue struct {
	head atomic.Uint64
	_    [56]byte
	tail atomic.Uint64
	_    [56]byte
	buf  []WireOrder
	mask uint64
}

func NewQueue(size uint64) *Queue {
	if size&(size-1) != 0 {
		panic("ingress.Queue size must be power of two")
	}
	return &Queue{
		buf:  make([]WireOrder, size),
		mask: size - 1,
	}
}

func (q *Queue) Push(w WireOrder) bool {
	head := q.head.Load()
	tail := q.tail.Load()
	if head-tail == uint64(len(q.buf)) {
		return false
	}
	q.buf[head&q.mask] = w
	q.head.Store(head + 1)
	return true
}

func (q *Queue) Pop() (WireOrder, bool) {
	tail := q.tail.Load()
	head := q.head.Load()
	if tail == head {
		return WireOrder{}, false
	}
	w := q.buf[tail&q.mask]
	q.tail.Store(tail + 1)
	return w, true
}

func (q *Queue) Len() int {
	return int(q.head.Load() - q.tail.Load())
}
