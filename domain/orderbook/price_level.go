package orderbook

const (
	invalidSlot  = int32(-1)
	invalidOrder = OrderID(1<<64 - 1)
)

type levelNode struct {
	order OrderID
	next  int32
	prev  int32
}

// Level is the FIFO of orders resting at one price: an intrusive
// doubly-linked list over a slot pool. Freed slots are reused before
// the pool grows, keeping the node storage hot. The open quantity is
// cached so depth queries never walk the list.
type Level struct {
	nodes    []levelNode
	headSlot int32
	tailSlot int32
	freeHead int32
	count    int
	openQty  Qty
}

// Append inserts at the tail and returns the slot token. The token
// stays valid until this exact order is removed.
func (l *Level) Append(id OrderID, pending Qty) int32 {
	slot := l.allocSlot()
	node := &l.nodes[slot]
	node.order = id
	node.prev = l.tailSlot
	node.next = invalidSlot

	if l.tailSlot != invalidSlot {
		l.nodes[l.tailSlot].next = slot
	} else {
		l.headSlot = slot
	}
	l.tailSlot = slot

	l.count++
	l.openQty += pending
	return slot
}

// RemoveAt unlinks the order recorded at slot. A slot/id mismatch is a
// benign no-op returning false.
func (l *Level) RemoveAt(slot int32, id OrderID, pending Qty) bool {
	if slot < 0 || int(slot) >= len(l.nodes) {
		return false
	}
	node := &l.nodes[slot]
	if node.order != id {
		return false
	}

	l.DecOpenQty(pending)

	if node.prev != invalidSlot {
		l.nodes[node.prev].next = node.next
	} else {
		l.headSlot = node.next
	}
	if node.next != invalidSlot {
		l.nodes[node.next].prev = node.prev
	} else {
		l.tailSlot = node.prev
	}

	l.freeSlot(slot)

	if l.count > 0 {
		l.count--
	}
	if l.count == 0 {
		l.headSlot = invalidSlot
		l.tailSlot = invalidSlot
	}
	return true
}

func (l *Level) HeadID() (OrderID, bool) {
	if l.count == 0 || l.headSlot == invalidSlot {
		return 0, false
	}
	return l.nodes[l.headSlot].order, true
}

// DecOpenQty saturates at zero; an aggressor may consume quantity from
// a resting order without removing it.
func (l *Level) DecOpenQty(q Qty) {
	if q >= l.openQty {
		l.openQty = 0
		return
	}
	l.openQty -= q
}

func (l *Level) Empty() bool  { return l.count == 0 }
func (l *Level) OpenQty() Qty { return l.openQty }
func (l *Level) Len() int     { return l.count }

func (l *Level) reset() {
	l.nodes = l.nodes[:0]
	l.headSlot = invalidSlot
	l.tailSlot = invalidSlot
	l.freeHead = invalidSlot
	l.count = 0
	l.openQty = 0
}

func (l *Level) allocSlot() int32 {
	if len(l.nodes) == 0 {
		l.headSlot = invalidSlot
		l.tailSlot = invalidSlot
		l.freeHead = invalidSlot
	}
	if l.freeHead != invalidSlot {
		slot := l.freeHead
		l.freeHead = l.nodes[slot].next
		l.nodes[slot] = levelNode{order: invalidOrder, next: invalidSlot, prev: invalidSlot}
		return slot
	}
	l.nodes = append(l.nodes, levelNode{order: invalidOrder, next: invalidSlot, prev: invalidSlot})
	return int32(len(l.nodes) - 1)
}

func (l *Level) freeSlot(slot int32) {
	l.nodes[slot].order = invalidOrder
	l.nodes[slot].prev = invalidSlot
	l.nodes[slot].next = l.freeHead
	l.freeHead = slot
}
