// Package service wires the ingest queues, the per-instrument books,
// the snapshot publisher and the trade feed into running workers.
package service

import (
	"errors"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/tomb.v2"

	"simex/domain/orderbook"
	"simex/infra/affinity"
	"simex/ingress"
	"simex/snapshot"
)

// Engine runs one worker goroutine per instrument. A worker owns all
// mutation of its book: it drains the instrument's SPSC queue, submits
// each order, and publishes the throttled snapshot inline.
type Engine struct {
	books     *orderbook.Manager
	queues    map[orderbook.Token]*ingress.Queue
	publisher *snapshot.Publisher
	cores     []int
}

func NewEngine(
	books *orderbook.Manager,
	queues map[orderbook.Token]*ingress.Queue,
	publisher *snapshot.Publisher,
	cores []int,
) *Engine {
	return &Engine{
		books:     books,
		queues:    queues,
		publisher: publisher,
		cores:     cores,
	}
}

// Run starts the workers under the daemon tomb, pinning them
// round-robin across the configured cores.
func (e *Engine) Run(t *tomb.Tomb) {
	next := 0
	for token, queue := range e.queues {
		book, ok := e.books.Book(token)
		if !ok {
			log.Warn().Uint32("token", uint32(token)).Msg("queue without book, skipping")
			continue
		}
		core := -1
		if len(e.cores) > 0 {
			core = e.cores[next%len(e.cores)]
			next++
		}
		token, queue, book, core := token, queue, book, core
		t.Go(func() error {
			return e.worker(t, token, queue, book, core)
		})
	}
}

func (e *Engine) worker(t *tomb.Tomb, token orderbook.Token, queue *ingress.Queue, book *orderbook.Book, core int) error {
	if core >= 0 {
		runtime.LockOSThread()
		if err := affinity.Pin(core); err != nil {
			log.Warn().Int("core", core).Err(err).Msg("engine worker pin failed")
		} else {
			log.Info().Uint32("token", uint32(token)).Int("core", core).Msg("engine worker pinned")
		}
	}

	invariantSeen := false
	spins := 0
	for {
		inbound, ok := queue.Pop()
		if !ok {
			select {
			case <-t.Dying():
				// drain whatever raced in before the dispatcher stopped
				if queue.Len() == 0 {
					return nil
				}
			default:
			}
			spins++
			if spins%1000 == 0 {
				runtime.Gosched()
			}
			continue
		}
		spins = 0

		order := buildOrder(token, inbound)
		if err := book.Submit(order); err != nil {
			if errors.Is(err, orderbook.ErrInvariant) {
				if !invariantSeen {
					invariantSeen = true
					log.Error().
						Uint32("token", uint32(token)).
						Err(err).
						Msg("book aborted, discarding further orders for instrument")
				}
				continue
			}
			// invalid orders are logged inside the book
		}
		e.publisher.MaybePublish(token, book)
	}
}

func buildOrder(token orderbook.Token, w ingress.WireOrder) *orderbook.Order {
	price := w.Price
	if w.Type == orderbook.Market {
		price = 0
	}
	return &orderbook.Order{
		ID:        w.OrderID,
		Token:     token,
		Side:      w.Side,
		Type:      w.Type,
		Price:     price,
		Total:     w.Qty,
		Display:   w.Display,
		Timestamp: time.Now().UnixNano(),
	}
}
