package orderbook

import (
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Config fixes the per-side price-index backend at construction.
type Config struct {
	Backend  Backend
	RingMode RingMode
}

type TradeListener func(Trade)

// OrderView is a read-only copy of a resting order.
type OrderView struct {
	ID      OrderID
	Side    Side
	Type    OrderType
	Price   Price
	Total   Qty
	Filled  Qty
	Pending Qty
}

// LevelView is one (price, open quantity) depth entry.
type LevelView struct {
	Price Price
	Qty   Qty
}

type Stats struct {
	Submitted uint64
	Trades    uint64
	Rejected  uint64
	RingDrops uint64
}

// Book is the per-instrument matching engine. All mutation must come
// from a single goroutine; the only concurrent parts are the trade
// ring, the last-trade atomics and the stats counters.
type Book struct {
	token Token
	cfg   Config

	orders Arena
	index  orderIndex
	bids   priceIndex
	asks   priceIndex

	ring     *tradeRing
	listener atomic.Pointer[TradeListener]

	lastPrice atomic.Int64
	lastQty   atomic.Int64

	submitted atomic.Uint64
	trades    atomic.Uint64
	rejected  atomic.Uint64

	// set after an internal consistency violation; the book then
	// refuses further mutation for this instrument.
	broken bool

	closing atomic.Bool
	done    chan struct{}
	started bool
}

func NewBook(token Token, cfg Config) *Book {
	return &Book{
		token: token,
		cfg:   cfg,
		bids:  newPriceIndex(Buy, cfg.Backend, cfg.RingMode),
		asks:  newPriceIndex(Sell, cfg.Backend, cfg.RingMode),
		ring:  newTradeRing(tradeRingCapacity),
		done:  make(chan struct{}),
	}
}

func (b *Book) Token() Token { return b.token }

// SetTradeListener registers the sink invoked from the dispatch
// goroutine. The listener must be safe with respect to any external
// state it touches.
func (b *Book) SetTradeListener(fn TradeListener) {
	if fn == nil {
		b.listener.Store(nil)
		return
	}
	b.listener.Store(&fn)
}

// Start launches the trade-dispatch goroutine.
func (b *Book) Start() {
	if b.started {
		return
	}
	b.started = true
	go b.dispatchLoop()
}

// Close drains the trade ring and joins the dispatch goroutine.
func (b *Book) Close() {
	if !b.started {
		return
	}
	b.closing.Store(true)
	<-b.done
}

func (b *Book) dispatchLoop() {
	defer close(b.done)
	for {
		t, ok := b.ring.pop()
		if !ok {
			if b.closing.Load() && b.ring.empty() {
				return
			}
			runtime.Gosched()
			continue
		}
		if fn := b.listener.Load(); fn != nil {
			(*fn)(t)
		}
	}
}

// Submit interns the order in the arena and runs it through the
// crossing loop under its type's policy.
func (b *Book) Submit(o *Order) error {
	if b.broken {
		return ErrInvariant
	}
	b.submitted.Add(1)
	if o == nil || o.Total <= 0 {
		b.rejected.Add(1)
		log.Warn().Uint32("token", uint32(b.token)).Msg("rejected order with non-positive quantity")
		return fmt.Errorf("%w: non-positive quantity", ErrInvalid)
	}
	if o.Type == Iceberg {
		if o.Display <= 0 {
			o.Display = o.Total
		}
		if o.Display > o.Total {
			o.Display = o.Total
		}
	}
	o.refreshWorking()
	b.orders.Store(o)
	return b.process(o.ID)
}

func (b *Book) process(id OrderID) error {
	o, err := b.orders.Require(id)
	if err != nil {
		return b.fail(err)
	}
	switch o.Type {
	case Limit:
		return b.executeMatch(o, true, true)
	case Market:
		return b.executeMatch(o, false, false)
	case IOC:
		return b.executeMatch(o, true, false)
	case FOK:
		if !b.fokLiquidityOK(o) {
			b.rejected.Add(1)
			b.release(id)
			return nil
		}
		return b.executeMatch(o, true, false)
	case Iceberg:
		o.refreshWorking()
		return b.executeMatch(o, true, true)
	default:
		b.rejected.Add(1)
		b.release(id)
		return fmt.Errorf("%w: unknown order type %d", ErrInvalid, o.Type)
	}
}

func crosses(side Side, limit, best Price) bool {
	if side == Buy {
		return limit >= best
	}
	return limit <= best
}

// executeMatch is the uniform crossing loop. The five order types are
// parameterisations (respectLimit, allowRest) of this one loop, with
// FOK adding a liquidity preflight and iceberg a clip refresh.
func (b *Book) executeMatch(o *Order, respectLimit, allowRest bool) error {
	opp := o.Side.Opposite()
	oppIdx := b.sideIndex(opp)

	for o.Pending() > 0 {
		bestPrice, level, ok := oppIdx.Best()
		if !ok || level.Empty() {
			break
		}
		if respectLimit && !crosses(o.Side, o.Price, bestPrice) {
			break
		}

		headID, ok := level.HeadID()
		if !ok {
			return b.fail(fmt.Errorf("%w: non-empty level without head at %d", ErrInvariant, bestPrice))
		}
		head, err := b.orders.Require(headID)
		if err != nil {
			return b.fail(err)
		}

		qty := o.Pending()
		if head.Pending() < qty {
			qty = head.Pending()
		}
		// Trade at the resting price, never the aggressor's.
		price := head.Price

		o.addFill(qty)
		head.addFill(qty)
		level.DecOpenQty(qty)

		if qty > 0 {
			b.publishTrade(Trade{
				Token:         b.token,
				AggressorSide: o.Side,
				AggressorID:   o.ID,
				RestingSide:   opp,
				RestingID:     headID,
				Price:         price,
				Qty:           qty,
			})
		}

		if head.Pending() == 0 {
			if err := b.removeResting(opp, price, level, headID); err != nil {
				return err
			}
		}
	}

	if allowRest && o.Pending() > 0 {
		return b.rest(o)
	}
	b.release(o.ID)
	return nil
}

func (b *Book) publishTrade(t Trade) {
	b.lastPrice.Store(int64(t.Price))
	b.lastQty.Store(int64(t.Qty))
	b.trades.Add(1)
	b.ring.push(t)
}

// removeResting takes a fully consumed head off its level. An iceberg
// with a hidden remainder refreshes its clip and re-queues at the tail
// of the same level, losing time priority; anything else is released.
func (b *Book) removeResting(side Side, price Price, level *Level, id OrderID) error {
	order, err := b.orders.Require(id)
	if err != nil {
		return b.fail(err)
	}
	slot := invalidSlot
	if ref, ok := b.index.get(id); ok {
		slot = ref.slot
	}
	if !level.RemoveAt(slot, id, order.Pending()) {
		// a consumed head that cannot be unlinked would pin the crossing
		// loop on a zero-pending order
		return b.fail(fmt.Errorf("%w: indexed slot mismatch for resting order %d", ErrInvariant, id))
	}
	b.index.clear(id)
	if level.Empty() {
		b.sideIndex(side).Erase(price)
	}

	if order.hasDisplay() && order.Remaining() > 0 {
		order.refreshWorking()
		return b.rest(order)
	}
	b.release(id)
	return nil
}

func (b *Book) rest(o *Order) error {
	o.refreshWorking()
	idx := b.sideIndex(o.Side)
	level, err := idx.Ensure(o.Price)
	if err != nil {
		b.rejected.Add(1)
		b.release(o.ID)
		log.Warn().
			Uint64("order", uint64(o.ID)).
			Int64("price", int64(o.Price)).
			Msg("rest rejected: price outside ring window")
		return fmt.Errorf("%w: price %d outside ring window", ErrInvalid, o.Price)
	}
	wasEmpty := level.Empty()
	slot := level.Append(o.ID, o.Pending())
	b.index.set(o.ID, orderRef{side: o.Side, price: o.Price, slot: slot})
	if wasEmpty {
		idx.MarkNonEmpty(o.Price)
	}
	return nil
}

func (b *Book) release(id OrderID) {
	b.index.clear(id)
	b.orders.Erase(id)
}

func (b *Book) fokLiquidityOK(o *Order) bool {
	need := o.Pending()
	return b.availableAgainst(o.Side, o.Price, need) >= need
}

// availableAgainst sums opposite-side open quantity over levels whose
// price satisfies the limit, stopping once the running sum covers the
// requirement.
func (b *Book) availableAgainst(side Side, limit Price, need Qty) Qty {
	opp := b.sideIndex(side.Opposite())
	var total Qty
	opp.ForEach(func(px Price, lvl *Level) bool {
		if side == Buy && px > limit {
			return true
		}
		if side == Sell && px < limit {
			return true
		}
		total += lvl.OpenQty()
		return total < need
	})
	return total
}

// Cancel removes a resting order. Unknown ids are a normal outcome.
func (b *Book) Cancel(id OrderID) bool {
	if b.broken {
		return false
	}
	ref, ok := b.index.get(id)
	if !ok {
		log.Warn().Uint64("order", uint64(id)).Msg("cancel: order not found")
		return false
	}
	idx := b.sideIndex(ref.side)
	level := idx.Find(ref.price)
	order := b.orders.Find(id)
	if level == nil || order == nil {
		b.index.clear(id)
		return false
	}
	if !level.RemoveAt(ref.slot, id, order.Pending()) {
		b.index.clear(id)
		return false
	}
	b.index.clear(id)
	if level.Empty() {
		idx.Erase(ref.price)
	}
	b.orders.Erase(id)
	return true
}

// Modify reprices and resizes a resting order. A reduce at the same
// price is applied in place and keeps time priority; a reprice or a
// quantity increase re-enters the submit path and loses it.
func (b *Book) Modify(id OrderID, newPrice Price, newQty Qty) error {
	if b.broken {
		return ErrInvariant
	}
	ref, ok := b.index.get(id)
	if !ok {
		log.Warn().Uint64("order", uint64(id)).Msg("modify: order not found")
		return ErrNotFound
	}
	order, err := b.orders.Require(id)
	if err != nil {
		return b.fail(err)
	}
	if newQty < order.Filled {
		log.Warn().
			Uint64("order", uint64(id)).
			Int64("qty", int64(newQty)).
			Msg("modify: quantity below filled")
		return fmt.Errorf("%w: quantity %d below filled %d", ErrInvalid, newQty, order.Filled)
	}
	level := b.sideIndex(ref.side).Find(ref.price)
	if level == nil {
		return b.fail(fmt.Errorf("%w: indexed order %d has no level at %d", ErrInvariant, id, ref.price))
	}

	priceChanged := newPrice != order.Price
	qtyIncrease := newQty > order.Total

	if !priceChanged && !qtyIncrease {
		before := order.Pending()
		order.modifyQty(newQty)
		after := order.Pending()
		if after < before {
			level.DecOpenQty(before - after)
		}
		return nil
	}

	if !level.RemoveAt(ref.slot, id, order.Pending()) {
		return b.fail(fmt.Errorf("%w: indexed slot mismatch for order %d", ErrInvariant, id))
	}
	b.index.clear(id)
	if level.Empty() {
		b.sideIndex(ref.side).Erase(ref.price)
	}

	order.Total = newQty
	order.Price = newPrice
	order.refreshWorking()
	return b.process(id)
}

func (b *Book) sideIndex(side Side) priceIndex {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

func (b *Book) BestBid() (OrderView, bool) { return b.bestOf(b.bids) }
func (b *Book) BestAsk() (OrderView, bool) { return b.bestOf(b.asks) }

func (b *Book) bestOf(idx priceIndex) (OrderView, bool) {
	_, level, ok := idx.Best()
	if !ok {
		return OrderView{}, false
	}
	headID, ok := level.HeadID()
	if !ok {
		return OrderView{}, false
	}
	order := b.orders.Find(headID)
	if order == nil {
		return OrderView{}, false
	}
	return OrderView{
		ID:      order.ID,
		Side:    order.Side,
		Type:    order.Type,
		Price:   order.Price,
		Total:   order.Total,
		Filled:  order.Filled,
		Pending: order.Pending(),
	}, true
}

func (b *Book) OpenQtyAt(side Side, price Price) Qty {
	level := b.sideIndex(side).Find(price)
	if level == nil {
		return 0
	}
	return level.OpenQty()
}

// Snapshot fills both sides best-first as (price, open quantity).
func (b *Book) Snapshot(bids, asks *[]LevelView) {
	*bids = collectSide(b.bids, (*bids)[:0], true)
	*asks = collectSide(b.asks, (*asks)[:0], false)
}

func collectSide(idx priceIndex, out []LevelView, descending bool) []LevelView {
	idx.ForEach(func(px Price, lvl *Level) bool {
		out = append(out, LevelView{Price: px, Qty: lvl.OpenQty()})
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if descending {
			return out[i].Price > out[j].Price
		}
		return out[i].Price < out[j].Price
	})
	return out
}

func (b *Book) LastTradePrice() Price { return Price(b.lastPrice.Load()) }
func (b *Book) LastTradeQty() Qty     { return Qty(b.lastQty.Load()) }

func (b *Book) Stats() Stats {
	return Stats{
		Submitted: b.submitted.Load(),
		Trades:    b.trades.Load(),
		Rejected:  b.rejected.Load(),
		RingDrops: b.ring.dropped(),
	}
}

func (b *Book) fail(err error) error {
	b.broken = true
	log.Error().
		Uint32("token", uint32(b.token)).
		Err(err).
		Msg("book stopped: internal consistency violation")
	return err
}
