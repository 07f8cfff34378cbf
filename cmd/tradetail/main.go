// Tails the Kafka trade feed and prints one line per executed trade.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"simex/config"
	"simex/feed"
	"simex/infra/kafka"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config/app.ini", "path to the INI config")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("config load failed")
		return 1
	}

	reader := kafka.NewReader(cfg.Feed.Brokers, cfg.Feed.Topic)
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	log.Info().Strs("brokers", cfg.Feed.Brokers).Str("topic", cfg.Feed.Topic).
		Msg("tailing trade feed")

	codec := feed.NewCodec()
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return 0
			}
			log.Error().Err(err).Msg("feed read failed")
			return 1
		}

		rec, err := codec.Decode(msg.Value)
		if err != nil {
			log.Warn().Int64("offset", msg.Offset).Err(err).Msg("skipping corrupt frame")
			continue
		}

		log.Info().
			Uint64("seq", rec.Seq).
			Uint32("token", uint32(rec.Token)).
			Str("aggressor", rec.AggressorSide.String()).
			Uint64("aggressor_id", uint64(rec.AggressorID)).
			Uint64("resting_id", uint64(rec.RestingID)).
			Int64("price", int64(rec.Price)).
			Int64("qty", int64(rec.Qty)).
			Msg("trade")
	}
}
