package ingress

import (
	"runtime"
	"sync"
	"testing"

	"simex/domain/orderbook"
)

func TestQueuePushPop(t *testing.T) {
	q := NewQueue(8)
	for i := 1; i <= 8; i++ {
		if !q.Push(WireOrder{OrderID: orderbook.OrderID(i)}) {
			t.Fatalf("push %d failed", i)
		}
	}
	if q.Push(WireOrder{OrderID: 9}) {
		t.Error("push on full queue should fail")
	}
	if q.Len() != 8 {
		t.Errorf("len = %d, want 8", q.Len())
	}

	for i := 1; i <= 8; i++ {
		w, ok := q.Pop()
		if !ok || w.OrderID != orderbook.OrderID(i) {
			t.Fatalf("pop %d: got %v %v", i, w.OrderID, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("pop on empty queue should fail")
	}
}

func TestQueuePanicsOnBadSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for non-power-of-two size")
		}
	}()
	NewQueue(1000)
}

func TestQueueSPSC(t *testing.T) {
	const n = 200000
	q := NewQueue(1024)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		next := orderbook.OrderID(1)
		for next <= n {
			w, ok := q.Pop()
			if !ok {
				runtime.Gosched()
				continue
			}
			if w.OrderID != next {
				t.Errorf("got id %d, want %d", w.OrderID, next)
				return
			}
			next++
		}
	}()

	for i := 1; i <= n; i++ {
		w := WireOrder{OrderID: orderbook.OrderID(i)}
		for !q.Push(w) {
			runtime.Gosched()
		}
	}
	wg.Wait()
}
