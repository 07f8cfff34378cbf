package orderbook

import "sync/atomic"

// Trade is an immutable fill record. Quantity is strictly positive and
// the price is always the resting order's price.
type Trade struct {
	Token         Token
	AggressorSide Side
	AggressorID   OrderID
	RestingSide   Side
	RestingID     OrderID
	Price         Price
	Qty           Qty
}

const tradeRingCapacity = 2048

// tradeRing decouples hot-path trade recording from listener dispatch.
// The matching goroutine is the sole producer and the dispatch
// goroutine the sole consumer. Overflow is newest-wins: a full ring
// advances the consumer cursor, dropping the oldest undelivered trade,
// so matching throughput is preserved under listener stalls. The
// producer advances the cursor with a CAS so the consumer never
// delivers a slot that is being overwritten.
type tradeRing struct {
	head  atomic.Uint64
	_     [56]byte
	tail  atomic.Uint64
	_     [56]byte
	buf   []Trade
	mask  uint64
	drops atomic.Uint64
}

func newTradeRing(size uint64) *tradeRing {
	if size&(size-1) != 0 {
		panic("tradeRing size must be power of two")
	}
	return &tradeRing{
		buf:  make([]Trade, size),
		mask: size - 1,
	}
}

func (r *tradeRing) push(t Trade) {
	for {
		head := r.head.Load()
		tail := r.tail.Load()
		if head-tail >= uint64(len(r.buf)) {
			if r.tail.CompareAndSwap(tail, tail+1) {
				r.drops.Add(1)
			}
			continue
		}
		r.buf[head&r.mask] = t
		r.head.Store(head + 1)
		return
	}
}

func (r *tradeRing) pop() (Trade, bool) {
	for {
		tail := r.tail.Load()
		head := r.head.Load()
		if tail == head {
			return Trade{}, false
		}
		t := r.buf[tail&r.mask]
		if r.tail.CompareAndSwap(tail, tail+1) {
			return t, true
		}
	}
}

func (r *tradeRing) empty() bool {
	return r.tail.Load() == r.head.Load()
}

func (r *tradeRing) dropped() uint64 {
	return r.drops.Load()
}
