// Interactive order entry over the engine's multicast feed.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"simex/config"
	"simex/domain/orderbook"
	"simex/ingress"
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

	conn, err := ingress.DialGroup(cfg.Network.McastIP, cfg.Network.McastIface, cfg.Network.McastPort)
	if err != nil {
		log.Error().Err(err).Msg("multicast dial failed")
		return 1
	}
	defer conn.Close()

	fmt.Printf("sending to %s:%d (q to quit)\n", cfg.Network.McastIP, cfg.Network.McastPort)

	in := bufio.NewReader(os.Stdin)
	buf := make([]byte, 0, 128)
	for {
		w, quit, err := promptOrder(in)
		if quit {
			return 0
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid input: %v\n", err)
			continue
		}

		buf = w.Append(buf[:0])
		if err := conn.Send(buf); err != nil {
			log.Error().Err(err).Msg("send failed")
			continue
		}
		fmt.Printf("sent: %s\n", strings.TrimSpace(string(buf)))
	}
}

// promptOrder walks the operator through one order. Any field may be
// answered with q/quit to exit.
func promptOrder(in *bufio.Reader) (ingress.WireOrder, bool, error) {
	var w ingress.WireOrder

	fields := []struct {
		label string
		parse func(string) error
	}{
		{"Order ID", func(s string) error {
			v, err := strconv.ParseUint(s, 10, 64)
			w.OrderID = orderbook.OrderID(v)
			return err
		}},
		{"Instrument token", func(s string) error {
			v, err := strconv.ParseUint(s, 10, 32)
			w.Instrument = orderbook.Token(v)
			return err
		}},
		{"Side (BUY/SELL)", func(s string) error {
			switch strings.ToUpper(s) {
			case "BUY":
				w.Side = orderbook.Buy
			case "SELL":
				w.Side = orderbook.Sell
			default:
				return fmt.Errorf("unknown side %q", s)
			}
			return nil
		}},
		{"Quantity", func(s string) error {
			v, err := strconv.ParseInt(s, 10, 64)
			if err == nil && v <= 0 {
				return fmt.Errorf("quantity must be positive")
			}
			w.Qty = orderbook.Qty(v)
			return err
		}},
		{"Price (0 for MARKET)", func(s string) error {
			v, err := strconv.ParseInt(s, 10, 64)
			if err == nil && v < 0 {
				return fmt.Errorf("price cannot be negative")
			}
			w.Price = orderbook.Price(v)
			return err
		}},
		{"Order type (LIMIT/MARKET/IOC/FOK/ICEBERG)", func(s string) error {
			switch strings.ToUpper(s) {
			case "LIMIT":
				w.Type = orderbook.Limit
			case "MARKET":
				w.Type = orderbook.Market
			case "IOC":
				w.Type = orderbook.IOC
			case "FOK":
				w.Type = orderbook.FOK
			case "ICEBERG":
				w.Type = orderbook.Iceberg
			default:
				return fmt.Errorf("unknown order type %q", s)
			}
			return nil
		}},
	}

	for _, f := range fields {
		line, quit, err := readLine(in, f.label)
		if quit || err != nil {
			return w, quit, err
		}
		if err := f.parse(line); err != nil {
			return w, false, err
		}
	}

	if w.Type == orderbook.Iceberg {
		line, quit, err := readLine(in, "Display quantity")
		if quit || err != nil {
			return w, quit, err
		}
		v, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return w, false, err
		}
		if v <= 0 {
			return w, false, fmt.Errorf("display quantity must be positive")
		}
		w.Display = orderbook.Qty(v)
	}
	return w, false, nil
}

func readLine(in *bufio.Reader, label string) (string, bool, error) {
	fmt.Printf("%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil {
		// EOF on stdin means the operator is done
		return "", true, nil
	}
	line = strings.TrimSpace(line)
	if line == "q" || line == "quit" {
		return "", true, nil
	}
	return line, false, nil
}
