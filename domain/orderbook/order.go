package orderbook

import "errors"

type (
	OrderID uint64
	Token   uint32
	Price   int64
	Qty     int64
)

type Side uint8

const (
	SideInvalid Side = iota
	Buy
	Sell
)

func (s Side) Opposite() Side {
	switch s {
	case Buy:
		return Sell
	case Sell:
		return Buy
	default:
		return SideInvalid
	}
}

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "INVALID"
	}
}

type OrderType uint8

const (
	Limit OrderType = iota
	Market
	IOC
	FOK
	Iceberg
)

func (t OrderType) String() string {
	switch t {
	case Limit:
		return "LIMIT"
	case Market:
		return "MARKET"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	case Iceberg:
		return "ICEBERG"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrNotFound        = errors.New("orderbook: order not found")
	ErrInvalid         = errors.New("orderbook: invalid order")
	ErrInvariant       = errors.New("orderbook: invariant violation")
	ErrPriceOutOfRange = errors.New("orderbook: price outside ring window")
)

// Order is a live order owned by the Arena for its lifetime.
// The working quantity is cached and refreshed explicitly so the hot
// matching loop never recomputes the iceberg clip.
type Order struct {
	ID        OrderID
	Token     Token
	Side      Side
	Type      OrderType
	Price     Price
	Total     Qty
	Filled    Qty
	Display   Qty
	Timestamp int64

	working Qty
}

func (o *Order) Remaining() Qty {
	if o.Total < o.Filled {
		return 0
	}
	return o.Total - o.Filled
}

// Pending is the quantity currently eligible to match.
func (o *Order) Pending() Qty {
	if o.working < o.Filled {
		return 0
	}
	return o.working - o.Filled
}

func (o *Order) Working() Qty {
	return o.working
}

func (o *Order) hasDisplay() bool {
	return o.Type == Iceberg && o.Display > 0
}

// refreshWorking recomputes the exposed clip. For an iceberg with a
// hidden remainder the new clip starts behind orders already queued
// at the price.
func (o *Order) refreshWorking() {
	if !o.hasDisplay() {
		o.working = o.Total
		return
	}
	remaining := o.Remaining()
	if remaining == 0 {
		o.working = o.Filled
		return
	}
	clip := o.Display
	if remaining < clip {
		clip = remaining
	}
	o.working = o.Filled + clip
}

func (o *Order) addFill(q Qty) {
	o.Filled += q
}

// modifyQty replaces the total quantity. Reducing below the filled
// quantity is rejected.
func (o *Order) modifyQty(newTotal Qty) bool {
	if newTotal < o.Filled {
		return false
	}
	o.Total = newTotal
	o.refreshWorking()
	return true
}
