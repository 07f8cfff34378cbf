package logging

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
	"github.com/rs/zerolog/log"

	"simex/config"
)

// Setup wires the global zerolog logger through a diode writer so the
// engine never blocks on a slow stderr. The diode drops on overflow
// and reports the miss count; dropping matches the trade ring's own
// newest-wins philosophy.
func Setup(cfg config.Logging) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	queueSize := cfg.QueueSize
	if queueSize < 1 {
		queueSize = 8192
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMicro}
	writer := diode.NewWriter(console, queueSize, 10*time.Millisecond, func(missed int) {
		fmt.Fprintf(os.Stderr, "logging: dropped %d lines\n", missed)
	})

	log.Logger = zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
