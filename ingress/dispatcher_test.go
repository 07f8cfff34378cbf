package ingress

import (
	"testing"

	"simex/domain/orderbook"
)

func newTestDispatcher() (*Dispatcher, map[orderbook.Token]*Queue) {
	queues := map[orderbook.Token]*Queue{
		26000: NewQueue(16),
		35000: NewQueue(16),
	}
	return NewDispatcher(queues), queues
}

func TestDispatchRouting(t *testing.T) {
	d, queues := newTestDispatcher()
	d.Dispatch([]byte("1,26000,BUY,1518,100,LIMIT,0"))
	d.Dispatch([]byte("2,35000,SELL,900,50,LIMIT,0"))

	w, ok := queues[26000].Pop()
	if !ok || w.OrderID != 1 {
		t.Errorf("queue 26000: got %v %v", w.OrderID, ok)
	}
	w, ok = queues[35000].Pop()
	if !ok || w.OrderID != 2 {
		t.Errorf("queue 35000: got %v %v", w.OrderID, ok)
	}
	if got := d.Stats().Parsed; got != 2 {
		t.Errorf("parsed = %d, want 2", got)
	}
}

func TestDispatchDropsMalformed(t *testing.T) {
	d, queues := newTestDispatcher()
	d.Dispatch([]byte("not an order"))

	if got := d.Stats().DroppedMalformed; got != 1 {
		t.Errorf("dropped malformed = %d, want 1", got)
	}
	if queues[26000].Len() != 0 || queues[35000].Len() != 0 {
		t.Error("malformed payload reached a queue")
	}
}

func TestDispatchDropsUnknownInstrument(t *testing.T) {
	d, queues := newTestDispatcher()
	d.Dispatch([]byte("1,99999,BUY,1518,100,LIMIT,0"))

	if got := d.Stats().DroppedUnknown; got != 1 {
		t.Errorf("dropped unknown = %d, want 1", got)
	}
	if queues[26000].Len() != 0 {
		t.Error("unknown instrument reached a queue")
	}
}

func TestDispatchStopsWhenClosed(t *testing.T) {
	queues := map[orderbook.Token]*Queue{26000: NewQueue(2)}
	d := NewDispatcher(queues)

	d.Dispatch([]byte("1,26000,BUY,1518,100,LIMIT,0"))
	d.Dispatch([]byte("2,26000,BUY,1518,100,LIMIT,0"))
	d.Close()
	// queue is full; a closed dispatcher must give up instead of spinning
	d.Dispatch([]byte("3,26000,BUY,1518,100,LIMIT,0"))

	if got := queues[26000].Len(); got != 2 {
		t.Errorf("queue len = %d, want 2", got)
	}
}
