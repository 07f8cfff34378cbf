// Terminal book viewer. Reads the engine's shared-memory snapshots and
// renders a bid/ask ladder per instrument.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"simex/config"
	"simex/snapshot"
)

var instruments = []uint32{26000, 35000}

const (
	clearScreen = "\033[2J\033[H"
	colorBid    = "\033[32m"
	colorAsk    = "\033[31m"
	colorReset  = "\033[0m"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config/app.ini", "path to the INI config")
	refresh := flag.Duration("refresh", 250*time.Millisecond, "render interval")
	depth := flag.Int("depth", 10, "ladder depth to display")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("config load failed")
		return 1
	}

	regions := make(map[uint32]*snapshot.Region, len(instruments))
	for _, token := range instruments {
		name := snapshot.RegionName(cfg.Snapshot.ShmPrefix, token)
		region, err := snapshot.OpenRead(snapshot.DefaultDir, name)
		if err != nil {
			log.Error().Uint32("token", token).Str("region", name).Err(err).
				Msg("snapshot region open failed, is the engine running?")
			return 1
		}
		defer region.Close()
		regions[token] = region
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*refresh)
	defer ticker.Stop()

	var view snapshot.View
	for {
		select {
		case <-sig:
			return 0
		case <-ticker.C:
		}

		var b strings.Builder
		b.WriteString(clearScreen)
		for _, token := range instruments {
			if err := regions[token].Read(&view); err != nil {
				if errors.Is(err, snapshot.ErrBusy) {
					continue
				}
				log.Error().Uint32("token", token).Err(err).Msg("snapshot read failed")
				return 1
			}
			renderBook(&b, token, &view, *depth)
		}
		os.Stdout.WriteString(b.String())
	}
}

func renderBook(b *strings.Builder, token uint32, v *snapshot.View, depth int) {
	fmt.Fprintf(b, "instrument %d   seq=%d   ts=%s\n",
		token, v.Sequence, time.Unix(0, int64(v.TimestampNS)).Format("15:04:05.000"))
	fmt.Fprintf(b, "last trade: %.2f x %.0f\n\n", v.LTP, v.LTQ)

	fmt.Fprintf(b, "  %12s %12s | %-12s %-12s\n", "BID QTY", "BID", "ASK", "ASK QTY")
	for i := 0; i < depth; i++ {
		bid, ask := "", ""
		bidQty, askQty := "", ""
		if i < len(v.Bids) && v.Bids[i].Qty > 0 {
			bid = fmt.Sprintf("%.2f", v.Bids[i].Price)
			bidQty = fmt.Sprintf("%.0f", v.Bids[i].Qty)
		}
		if i < len(v.Asks) && v.Asks[i].Qty > 0 {
			ask = fmt.Sprintf("%.2f", v.Asks[i].Price)
			askQty = fmt.Sprintf("%.0f", v.Asks[i].Qty)
		}
		if bid == "" && ask == "" {
			break
		}
		fmt.Fprintf(b, "  %s%12s %12s%s | %s%-12s %-12s%s\n",
			colorBid, bidQty, bid, colorReset,
			colorAsk, ask, askQty, colorReset)
	}
	b.WriteByte('\n')
}
