package orderbook

const orderIndexChunk = 1024

// orderRef locates a resting order: which side, which price level and
// which slot inside the level FIFO. side == SideInvalid marks an empty
// entry.
type orderRef struct {
	side  Side
	price Price
	slot  int32
}

// orderIndex is a dense back-reference vector keyed by order id. An id
// is present iff its order currently rests on a level.
type orderIndex struct {
	refs []orderRef
}

func (x *orderIndex) ensureCapacity(id OrderID) {
	required := int(id) + 1
	if required <= len(x.refs) {
		return
	}
	newSize := (required + orderIndexChunk - 1) / orderIndexChunk * orderIndexChunk
	grown := make([]orderRef, newSize)
	copy(grown, x.refs)
	x.refs = grown
}

func (x *orderIndex) get(id OrderID) (orderRef, bool) {
	if uint64(id) >= uint64(len(x.refs)) {
		return orderRef{}, false
	}
	ref := x.refs[id]
	if ref.side == SideInvalid {
		return orderRef{}, false
	}
	return ref, true
}

func (x *orderIndex) set(id OrderID, ref orderRef) {
	x.ensureCapacity(id)
	x.refs[id] = ref
}

func (x *orderIndex) clear(id OrderID) {
	if uint64(id) < uint64(len(x.refs)) {
		x.refs[id] = orderRef{}
	}
}
