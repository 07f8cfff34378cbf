package orderbook

import (
	"sync"
	"testing"
)

func TestTradeRingFIFO(t *testing.T) {
	r := newTradeRing(8)
	for i := 1; i <= 5; i++ {
		r.push(Trade{Qty: Qty(i)})
	}
	for i := 1; i <= 5; i++ {
		tr, ok := r.pop()
		if !ok || tr.Qty != Qty(i) {
			t.Fatalf("pop %d: got %v %v", i, tr.Qty, ok)
		}
	}
	if _, ok := r.pop(); ok {
		t.Error("drained ring returned a trade")
	}
}

func TestTradeRingNewestWins(t *testing.T) {
	r := newTradeRing(4)
	for i := 1; i <= 6; i++ {
		r.push(Trade{Qty: Qty(i)})
	}
	if got := r.dropped(); got != 2 {
		t.Fatalf("drops = %d, want 2", got)
	}

	// oldest two were overwritten; survivors are 3..6
	var got []Qty
	for {
		tr, ok := r.pop()
		if !ok {
			break
		}
		got = append(got, tr.Qty)
	}
	want := []Qty{3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("survivors = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("survivors = %v, want %v", got, want)
		}
	}
}

func TestTradeRingConcurrent(t *testing.T) {
	const n = 100000
	r := newTradeRing(tradeRingCapacity)

	var consumed uint64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var last Qty
		done := false
		for !done || !r.empty() {
			tr, ok := r.pop()
			if !ok {
				if consumed+r.dropped() >= n {
					done = true
				}
				continue
			}
			if tr.Qty <= last {
				t.Errorf("out of order: %d after %d", tr.Qty, last)
				return
			}
			last = tr.Qty
			consumed++
		}
	}()

	for i := 1; i <= n; i++ {
		r.push(Trade{Qty: Qty(i)})
	}
	wg.Wait()

	if consumed+r.dropped() != n {
		t.Errorf("consumed %d + dropped %d != %d", consumed, r.dropped(), n)
	}
}

func TestTradeRingPanicsOnBadSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for non-power-of-two size")
		}
	}()
	newTradeRing(100)
}
