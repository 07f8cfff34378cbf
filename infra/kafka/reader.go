package kafka

import (
	"github.com/segmentio/kafka-go"
)

// NewReader builds a single-partition tail reader for the trade feed.
// Starting at LastOffset: the tailer is a live view, not a replayer.
func NewReader(brokers []string, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		Partition:   0,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
}
