package ingress

import (
	"runtime"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"simex/domain/orderbook"
)

// Dispatcher parses ingest payloads and routes them to per-instrument
// queues. Malformed payloads and unknown instruments are dropped with
// a warning; routing blocks with a yield cadence when a queue is full.
type Dispatcher struct {
	queues map[orderbook.Token]*Queue
	closed atomic.Bool

	parsed           atomic.Uint64
	droppedMalformed atomic.Uint64
	droppedUnknown   atomic.Uint64
}

type DispatchStats struct {
	Parsed           uint64
	DroppedMalformed uint64
	DroppedUnknown   uint64
}

func NewDispatcher(queues map[orderbook.Token]*Queue) *Dispatcher {
	return &Dispatcher{queues: queues}
}

func (d *Dispatcher) Dispatch(payload []byte) {
	w, err := ParseWire(payload)
	if err != nil {
		d.droppedMalformed.Add(1)
		log.Warn().Err(err).Bytes("payload", payload).Msg("dropped malformed order")
		return
	}

	q, ok := d.queues[w.Instrument]
	if !ok {
		d.droppedUnknown.Add(1)
		log.Warn().Uint32("instrument", uint32(w.Instrument)).Msg("dropped order for unknown instrument")
		return
	}

	d.parsed.Add(1)
	spins := 0
	for !q.Push(w) {
		if d.closed.Load() {
			return
		}
		spins++
		if spins%1000 == 0 {
			runtime.Gosched()
		}
	}
}

func (d *Dispatcher) Close() {
	d.closed.Store(true)
}

func (d *Dispatcher) Stats() DispatchStats {
	return DispatchStats{
		Parsed:           d.parsed.Load(),
		DroppedMalformed: d.droppedMalformed.Load(),
		DroppedUnknown:   d.droppedUnknown.Load(),
	}
}
