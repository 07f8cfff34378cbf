package orderbook

const (
	ringCapacity = 1024
	ringMask     = ringCapacity - 1
	ringHalf     = ringCapacity / 2
)

type ringSlot struct {
	level  Level
	price  Price
	active bool
}

// ringIndex keys price levels into a power-of-two window of slots at
// (price - base) & mask. The base is latched on first use so the
// window centres on observed prices. A cached best slot avoids
// rescanning on every top-of-book lookup; it is advanced by
// MarkNonEmpty and recomputed lazily after the best level empties.
type ringIndex struct {
	side        Side
	mode        RingMode
	slots       []ringSlot
	baseSet     bool
	base        Price
	activeCount int
	bestSlot    int32
	bestPrice   Price
}

func newRingIndex(side Side, mode RingMode) *ringIndex {
	return &ringIndex{
		side:     side,
		mode:     mode,
		slots:    make([]ringSlot, ringCapacity),
		bestSlot: invalidSlot,
	}
}

func (r *ringIndex) inWindow(price Price) bool {
	off := price - r.base
	return off >= 0 && off < ringCapacity
}

func (r *ringIndex) slotIndex(price Price) int32 {
	return int32(uint64(price-r.base) & ringMask)
}

func (r *ringIndex) latchBase(price Price) {
	base := price - ringHalf
	if base < 0 {
		base = 0
	}
	r.base = base
	r.baseSet = true
	r.activeCount = 0
	r.bestSlot = invalidSlot
	for i := range r.slots {
		r.slots[i].active = false
		r.slots[i].price = 0
		r.slots[i].level.reset()
	}
}

func (r *ringIndex) Find(price Price) *Level {
	if !r.baseSet || !r.inWindow(price) {
		return nil
	}
	slot := &r.slots[r.slotIndex(price)]
	if !slot.active || slot.price != price {
		return nil
	}
	return &slot.level
}

func (r *ringIndex) Ensure(price Price) (*Level, error) {
	if !r.baseSet {
		r.latchBase(price)
	}
	if !r.inWindow(price) {
		if r.mode == RingReject {
			return nil, ErrPriceOutOfRange
		}
		if err := r.rebalance(price); err != nil {
			return nil, err
		}
	}
	idx := r.slotIndex(price)
	slot := &r.slots[idx]
	if !slot.active {
		slot.active = true
		slot.price = price
		slot.level.reset()
		r.activeCount++
	}
	r.updateBestCandidate(idx)
	return &slot.level, nil
}

func (r *ringIndex) Erase(price Price) {
	if r.Find(price) == nil {
		return
	}
	idx := r.slotIndex(price)
	slot := &r.slots[idx]
	slot.level.reset()
	slot.active = false
	if r.activeCount > 0 {
		r.activeCount--
	}
	if r.bestSlot == idx {
		r.bestSlot = invalidSlot
		r.recomputeBest()
	}
}

func (r *ringIndex) MarkNonEmpty(price Price) {
	if !r.baseSet || !r.inWindow(price) {
		return
	}
	r.updateBestCandidate(r.slotIndex(price))
}

func (r *ringIndex) Best() (Price, *Level, bool) {
	if !r.ensureBestSlot() {
		return 0, nil, false
	}
	return r.bestPrice, &r.slots[r.bestSlot].level, true
}

func (r *ringIndex) ForEach(fn func(Price, *Level) bool) {
	for i := range r.slots {
		slot := &r.slots[i]
		if !slot.active || slot.level.Empty() {
			continue
		}
		if !fn(slot.price, &slot.level) {
			return
		}
	}
}

// rebalance recentres the window on the current best (or on the
// incoming price when the side is empty) and migrates live levels.
// A live level that cannot fit the new window fails the insert.
func (r *ringIndex) rebalance(incoming Price) error {
	centre := incoming
	if r.ensureBestSlot() {
		centre = r.bestPrice
	}
	newBase := centre - ringHalf
	if newBase < 0 {
		newBase = 0
	}
	if off := incoming - newBase; off < 0 || off >= ringCapacity {
		return ErrPriceOutOfRange
	}

	newSlots := make([]ringSlot, ringCapacity)
	migrated := 0
	for i := range r.slots {
		slot := &r.slots[i]
		if !slot.active {
			continue
		}
		if slot.level.Empty() {
			continue
		}
		off := slot.price - newBase
		if off < 0 || off >= ringCapacity {
			return ErrPriceOutOfRange
		}
		newSlots[off] = *slot
		migrated++
	}

	r.slots = newSlots
	r.base = newBase
	r.activeCount = migrated
	r.bestSlot = invalidSlot
	return nil
}

func (r *ringIndex) better(price, than Price) bool {
	if r.side == Buy {
		return price > than
	}
	return price < than
}

func (r *ringIndex) updateBestCandidate(idx int32) {
	slot := &r.slots[idx]
	if !slot.active || slot.level.Empty() {
		if idx == r.bestSlot {
			r.bestSlot = invalidSlot
		}
		return
	}
	if r.bestSlot == invalidSlot || r.better(slot.price, r.bestPrice) {
		r.bestSlot = idx
		r.bestPrice = slot.price
	}
}

func (r *ringIndex) recomputeBest() {
	r.bestSlot = invalidSlot
	for i := range r.slots {
		slot := &r.slots[i]
		if !slot.active || slot.level.Empty() {
			continue
		}
		if r.bestSlot == invalidSlot || r.better(slot.price, r.bestPrice) {
			r.bestSlot = int32(i)
			r.bestPrice = slot.price
		}
	}
}

func (r *ringIndex) ensureBestSlot() bool {
	if r.bestSlot == invalidSlot {
		r.recomputeBest()
	}
	if r.bestSlot == invalidSlot {
		return false
	}
	slot := &r.slots[r.bestSlot]
	if !slot.active || slot.level.Empty() {
		r.bestSlot = invalidSlot
		r.recomputeBest()
		return r.bestSlot != invalidSlot
	}
	r.bestPrice = slot.price
	return true
}
