package main

import (
	"math"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"simex/domain/orderbook"
)

func TestNextOrderPriceBand(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var ids atomic.Uint64

	lo := orderbook.Price(math.Round(refPrice * (1 - bandPct)))
	hi := orderbook.Price(math.Round(refPrice * (1 + bandPct)))

	for i := 0; i < 10000; i++ {
		w := nextOrder(rng, &ids, time.Hour, 0)
		if w.Price < lo || w.Price > hi {
			t.Fatalf("price %d outside [%d, %d]", w.Price, lo, hi)
		}
		if w.Qty < minQty || w.Qty > maxQty {
			t.Fatalf("qty %d outside [%d, %d]", w.Qty, minQty, maxQty)
		}
		if w.Type != orderbook.Limit || w.Instrument != genToken {
			t.Fatalf("unexpected order shape: %+v", w)
		}
	}
}

func TestNextOrderBuyOnlyWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	var ids atomic.Uint64

	for i := 0; i < 1000; i++ {
		w := nextOrder(rng, &ids, 2*time.Second, 5)
		if w.Side != orderbook.Buy {
			t.Fatal("sell generated inside the buy-only window")
		}
	}

	sells := 0
	for i := 0; i < 1000; i++ {
		if nextOrder(rng, &ids, 10*time.Second, 5).Side == orderbook.Sell {
			sells++
		}
	}
	if sells == 0 || sells == 1000 {
		t.Errorf("after the window flow should be two-sided, got %d sells of 1000", sells)
	}
}

func TestNextOrderIDsMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var ids atomic.Uint64
	var last orderbook.OrderID
	for i := 0; i < 100; i++ {
		w := nextOrder(rng, &ids, 0, 0)
		if w.OrderID <= last {
			t.Fatalf("id %d not after %d", w.OrderID, last)
		}
		last = w.OrderID
	}
}
