package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

type Network struct {
	McastIP    string
	McastIface string
	McastPort  int
}

type Snapshot struct {
	ShmPrefix  string
	IntervalMS int
	Levels     int
}

type OrderBook struct {
	// Backend is "ring" or "map".
	Backend string
	// RingRebalance selects window migration instead of rejecting
	// out-of-window prices.
	RingRebalance bool
}

type Logging struct {
	QueueSize     int
	WorkerThreads int
	Level         string
}

type Feed struct {
	Enabled bool
	Brokers []string
	Topic   string
	Dir     string
}

type Affinity struct {
	EngineCores  []int
	LoggingCores []int
}

type Generator struct {
	OrdersPerSecond float64
	Threads         int
	BuyOnlySeconds  int
}

type Config struct {
	Network   Network
	Snapshot  Snapshot
	OrderBook OrderBook
	Logging   Logging
	Feed      Feed
	Affinity  Affinity
	Generator Generator
}

func defaults() *Config {
	return &Config{
		Network: Network{
			McastIP:    "239.192.1.1",
			McastIface: "lo",
			McastPort:  5001,
		},
		Snapshot: Snapshot{
			ShmPrefix:  "/simex_book",
			IntervalMS: 50,
			Levels:     32,
		},
		OrderBook: OrderBook{
			Backend: "ring",
		},
		Logging: Logging{
			QueueSize:     8192,
			WorkerThreads: 1,
			Level:         "info",
		},
		Feed: Feed{
			Enabled: false,
			Brokers: []string{"localhost:9092"},
			Topic:   "simex.trades",
			Dir:     "./feed_journal",
		},
		Generator: Generator{
			OrdersPerSecond: 200,
			Threads:         runtime.NumCPU(),
			BuyOnlySeconds:  0,
		},
	}
}

// Load reads the INI file at path. A missing file is an error; callers
// treat it as an unrecoverable initialization failure.
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := defaults()

	net := file.Section("network")
	cfg.Network.McastIP = net.Key("mcast_ip").MustString(cfg.Network.McastIP)
	cfg.Network.McastIface = net.Key("mcast_iface").MustString(cfg.Network.McastIface)
	cfg.Network.McastPort = net.Key("mcast_port").MustInt(cfg.Network.McastPort)

	snap := file.Section("snapshot")
	cfg.Snapshot.ShmPrefix = snap.Key("shm_prefix").MustString(cfg.Snapshot.ShmPrefix)
	cfg.Snapshot.IntervalMS = snap.Key("interval_ms").MustInt(cfg.Snapshot.IntervalMS)
	cfg.Snapshot.Levels = snap.Key("levels").MustInt(cfg.Snapshot.Levels)
	if cfg.Snapshot.Levels < 1 {
		cfg.Snapshot.Levels = 1
	}

	book := file.Section("orderbook")
	cfg.OrderBook.Backend = strings.ToLower(book.Key("backend").MustString(cfg.OrderBook.Backend))
	// legacy knob from earlier revisions of the config format
	if book.Key("use_std_map").MustBool(false) {
		cfg.OrderBook.Backend = "map"
	}
	if cfg.OrderBook.Backend != "ring" && cfg.OrderBook.Backend != "map" {
		return nil, fmt.Errorf("config: unknown orderbook backend %q", cfg.OrderBook.Backend)
	}
	cfg.OrderBook.RingRebalance = book.Key("ring_rebalance").MustBool(false)

	logging := file.Section("logging")
	cfg.Logging.QueueSize = logging.Key("queue_size").MustInt(cfg.Logging.QueueSize)
	cfg.Logging.WorkerThreads = logging.Key("worker_threads").MustInt(cfg.Logging.WorkerThreads)
	cfg.Logging.Level = logging.Key("level").MustString(cfg.Logging.Level)
	if cfg.Logging.WorkerThreads < 1 {
		cfg.Logging.WorkerThreads = 1
	}

	feed := file.Section("feed")
	cfg.Feed.Enabled = feed.Key("enabled").MustBool(cfg.Feed.Enabled)
	if brokers := feed.Key("brokers").MustString(""); brokers != "" {
		cfg.Feed.Brokers = splitList(brokers)
	}
	cfg.Feed.Topic = feed.Key("topic").MustString(cfg.Feed.Topic)
	cfg.Feed.Dir = feed.Key("dir").MustString(cfg.Feed.Dir)

	aff := file.Section("affinity")
	if cfg.Affinity.EngineCores, err = parseCores(aff.Key("engine_cores").MustString("")); err != nil {
		return nil, fmt.Errorf("config: engine_cores: %w", err)
	}
	if cfg.Affinity.LoggingCores, err = parseCores(aff.Key("logging_cores").MustString("")); err != nil {
		return nil, fmt.Errorf("config: logging_cores: %w", err)
	}

	gen := file.Section("generator")
	cfg.Generator.OrdersPerSecond = gen.Key("orders_per_second").MustFloat64(cfg.Generator.OrdersPerSecond)
	cfg.Generator.Threads = gen.Key("threads").MustInt(cfg.Generator.Threads)
	if cfg.Generator.Threads < 1 {
		cfg.Generator.Threads = 1
	}
	cfg.Generator.BuyOnlySeconds = gen.Key("buy_only_seconds").MustInt(cfg.Generator.BuyOnlySeconds)

	return cfg, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseCores(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var cores []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		core, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		cores = append(cores, core)
	}
	return cores, nil
}
