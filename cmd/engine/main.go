// The matching engine daemon: multicast ingest, per-instrument books,
// shared-memory snapshots, and (optionally) the Kafka trade feed.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/tomb.v2"

	"simex/config"
	"simex/domain/orderbook"
	"simex/feed"
	"simex/infra/journal"
	"simex/infra/sequence"
	"simex/ingress"
	"simex/logging"
	"simex/service"
	"simex/snapshot"
)

// The venue trades a fixed instrument set.
var instruments = []orderbook.Token{26000, 35000}

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

	bookCfg := orderbook.Config{Backend: orderbook.BackendRing}
	if cfg.OrderBook.Backend == "map" {
		bookCfg.Backend = orderbook.BackendMap
	}
	if cfg.OrderBook.RingRebalance {
		bookCfg.RingMode = orderbook.RingRebalance
	}
	books := orderbook.NewManager(bookCfg, instruments)

	// ---------------- Trade feed ----------------

	var (
		outbox  *journal.Journal
		feedPub *feed.Publisher
	)
	if cfg.Feed.Enabled {
		outbox, err = journal.Open(cfg.Feed.Dir)
		if err != nil {
			log.Error().Err(err).Msg("trade journal open failed")
			return 1
		}
		defer outbox.Close()

		seq := sequence.New(0)
		if err := service.RecoverFeed(outbox, seq); err != nil {
			log.Error().Err(err).Msg("feed recovery failed")
			return 1
		}

		recorder := service.NewTradeRecorder(outbox, seq, feed.NewCodec())
		books.ForEach(func(b *orderbook.Book) {
			b.SetTradeListener(recorder)
		})

		feedPub, err = feed.NewPublisher(cfg.Feed.Brokers, cfg.Feed.Topic, outbox)
		if err != nil {
			log.Error().Err(err).Msg("feed publisher init failed")
			return 1
		}
		defer feedPub.Close()
	}

	books.Start()
	defer books.Close()

	// ---------------- Snapshots ----------------

	snapPub, err := snapshot.NewPublisher(
		snapshot.DefaultDir,
		cfg.Snapshot.ShmPrefix,
		time.Duration(cfg.Snapshot.IntervalMS)*time.Millisecond,
		cfg.Snapshot.Levels,
		instruments,
	)
	if err != nil {
		log.Error().Err(err).Msg("snapshot publisher init failed")
		return 1
	}
	defer snapPub.Close()

	// ---------------- Ingest ----------------

	queues := make(map[orderbook.Token]*ingress.Queue, len(instruments))
	for _, token := range instruments {
		queues[token] = ingress.NewQueue(ingress.QueueCapacity)
	}
	dispatcher := ingress.NewDispatcher(queues)

	conn, err := ingress.JoinGroup(cfg.Network.McastIP, cfg.Network.McastIface, cfg.Network.McastPort)
	if err != nil {
		log.Error().Err(err).Msg("multicast join failed")
		return 1
	}
	defer conn.Close()

	// ---------------- Workers ----------------

	var t tomb.Tomb
	service.NewEngine(books, queues, snapPub, cfg.Affinity.EngineCores).Run(&t)
	if feedPub != nil {
		t.Go(func() error { return feedPub.Run(&t) })
	}
	mcastListener := ingress.NewListener(conn, dispatcher)
	t.Go(func() error { return mcastListener.Run(&t) })

	log.Info().
		Str("group", cfg.Network.McastIP).
		Int("port", cfg.Network.McastPort).
		Str("iface", cfg.Network.McastIface).
		Str("backend", cfg.OrderBook.Backend).
		Msg("engine ready")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
		t.Kill(nil)
	case <-t.Dying():
	}

	dispatcher.Close()
	if err := t.Wait(); err != nil {
		log.Error().Err(err).Msg("worker exited with error")
		return 1
	}

	for _, token := range instruments {
		if book, ok := books.Book(token); ok {
			stats := book.Stats()
			log.Info().
				Uint32("token", uint32(token)).
				Uint64("submitted", stats.Submitted).
				Uint64("trades", stats.Trades).
				Uint64("rejected", stats.Rejected).
				Uint64("ring_drops", stats.RingDrops).
				Msg("book stats")
		}
	}
	return 0
}
