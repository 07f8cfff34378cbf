// Synthetic order flow generator. Prices follow a lognormal random
// walk around a reference level so the book fills out realistically.
package main

import (
	"flag"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"simex/config"
	"simex/domain/orderbook"
	"simex/ingress"
	"simex/logging"
)

const (
	genToken = orderbook.Token(26000)

	refPrice  = 1518.20
	walkSigma = 0.005
	bandPct   = 0.05

	minQty = 10
	maxQty = 200
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config/app.ini", "path to the INI config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("config load failed")
		return 1
	}
	logging.Setup(cfg.Logging)

	threads := cfg.Generator.Threads
	perWorkerRate := cfg.Generator.OrdersPerSecond / float64(threads)
	if perWorkerRate <= 0 {
		log.Error().Float64("orders_per_second", cfg.Generator.OrdersPerSecond).
			Msg("order rate must be positive")
		return 1
	}
	spacing := time.Duration(float64(time.Second) / perWorkerRate)

	stop := make(chan struct{})
	start := time.Now()
	var (
		nextID atomic.Uint64
		sent   atomic.Uint64
		errs   atomic.Uint64
		wg     sync.WaitGroup
	)

	for i := 0; i < threads; i++ {
		conn, err := ingress.DialGroup(cfg.Network.McastIP, cfg.Network.McastIface, cfg.Network.McastPort)
		if err != nil {
			log.Error().Err(err).Msg("multicast dial failed")
			close(stop)
			wg.Wait()
			return 1
		}

		wg.Add(1)
		go func(worker int, conn *ingress.Conn) {
			defer wg.Done()
			defer conn.Close()

			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)))
			ticker := time.NewTicker(spacing)
			defer ticker.Stop()

			buf := make([]byte, 0, 128)
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
				}

				w := nextOrder(rng, &nextID, time.Since(start), cfg.Generator.BuyOnlySeconds)
				buf = w.Append(buf[:0])
				if err := conn.Send(buf); err != nil {
					errs.Add(1)
					continue
				}
				sent.Add(1)
			}
		}(i, conn)
	}

	log.Info().
		Int("threads", threads).
		Float64("orders_per_second", cfg.Generator.OrdersPerSecond).
		Int("buy_only_seconds", cfg.Generator.BuyOnlySeconds).
		Msg("load generator running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	metrics := time.NewTicker(time.Second)
	defer metrics.Stop()

	var lastSent uint64
	for {
		select {
		case <-sig:
			close(stop)
			wg.Wait()
			log.Info().
				Uint64("sent", sent.Load()).
				Uint64("errors", errs.Load()).
				Dur("elapsed", time.Since(start)).
				Msg("load generator stopped")
			return 0
		case <-metrics.C:
			total := sent.Load()
			log.Info().
				Uint64("rate", total-lastSent).
				Uint64("total", total).
				Uint64("errors", errs.Load()).
				Msg("generator tick")
			lastSent = total
		}
	}
}

// nextOrder draws a limit order around the reference price. The first
// buyOnlySeconds of the run send only buys so the book seeds before
// two-sided flow starts crossing it.
func nextOrder(rng *rand.Rand, nextID *atomic.Uint64, elapsed time.Duration, buyOnlySeconds int) ingress.WireOrder {
	side := orderbook.Buy
	if elapsed >= time.Duration(buyOnlySeconds)*time.Second && rng.Intn(2) == 1 {
		side = orderbook.Sell
	}

	price := refPrice * math.Exp(rng.NormFloat64()*walkSigma)
	lo, hi := refPrice*(1-bandPct), refPrice*(1+bandPct)
	price = math.Min(math.Max(price, lo), hi)
	p := orderbook.Price(math.Round(price))
	if p < 1 {
		p = 1
	}

	return ingress.WireOrder{
		OrderID:    orderbook.OrderID(nextID.Add(1)),
		Instrument: genToken,
		Side:       side,
		Price:      p,
		Qty:        orderbook.Qty(minQty + rng.Int63n(maxQty-minQty+1)),
		Type:       orderbook.Limit,
	}
}
