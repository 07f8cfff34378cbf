package orderbook

import "fmt"

const arenaChunk = 512

// Arena is the owning store for live orders, keyed by dense order id.
// Capacity grows in fixed chunks to amortise allocation. There is no
// iteration API; traversal goes through the levels and the order index.
type Arena struct {
	slots []*Order
}

// Store adopts an order whose id has already been assigned.
func (a *Arena) Store(o *Order) *Order {
	a.ensureCapacity(o.ID)
	a.slots[o.ID] = o
	return o
}

// Find returns nil when the id is not present. Absence is a normal
// outcome for cancel and modify of unknown ids.
func (a *Arena) Find(id OrderID) *Order {
	if uint64(id) >= uint64(len(a.slots)) {
		return nil
	}
	return a.slots[id]
}

// Require is Find for callers that hold a live reference; a miss is an
// internal consistency failure, not a caller error.
func (a *Arena) Require(id OrderID) (*Order, error) {
	o := a.Find(id)
	if o == nil {
		return nil, fmt.Errorf("%w: arena missing order %d", ErrInvariant, id)
	}
	return o, nil
}

func (a *Arena) Erase(id OrderID) {
	if uint64(id) < uint64(len(a.slots)) {
		a.slots[id] = nil
	}
}

func (a *Arena) ensureCapacity(id OrderID) {
	required := int(id) + 1
	if required <= len(a.slots) {
		return
	}
	newSize := (required + arenaChunk - 1) / arenaChunk * arenaChunk
	grown := make([]*Order, newSize)
	copy(grown, a.slots)
	a.slots = grown
}
