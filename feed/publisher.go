package feed

import (
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog/log"
	"gopkg.in/tomb.v2"

	"simex/infra/journal"
)

const (
	scanBatch   = 256
	maxAttempts = 5
)

// Publisher drains the trade outbox to Kafka. Each tick it scans
// pending entries, marks them sent, produces, and marks them acked;
// an entry that keeps failing is parked as FAILED so it stops
// blocking the scan.
type Publisher struct {
	journal  *journal.Journal
	producer sarama.SyncProducer
	codec    *Codec
	topic    string
	interval time.Duration
}

func NewPublisher(brokers []string, topic string, j *journal.Journal) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		journal:  j,
		producer: producer,
		codec:    NewCodec(),
		topic:    topic,
		interval: 250 * time.Millisecond,
	}, nil
}

// Run is the ticker loop; it lives under the daemon tomb.
func (p *Publisher) Run(t *tomb.Tomb) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.Dying():
			return nil
		case <-ticker.C:
			p.flushOnce()
		}
	}
}

func (p *Publisher) flushOnce() {
	entries, err := p.journal.ScanPending(scanBatch)
	if err != nil {
		log.Warn().Err(err).Msg("feed: outbox scan failed")
		return
	}

	for i := range entries {
		entry := &entries[i]
		now := time.Now().UnixNano()

		if entry.Attempts >= maxAttempts {
			if err := p.journal.MarkFailed(entry.Seq, now); err != nil {
				log.Warn().Uint64("seq", entry.Seq).Err(err).Msg("feed: mark failed")
			}
			log.Error().Uint64("seq", entry.Seq).Uint32("attempts", entry.Attempts).
				Msg("feed: trade parked after repeated send failures")
			continue
		}

		// Mark SENT before producing so a crash cannot double-count the
		// attempt as NEW.
		if err := p.journal.MarkSent(entry.Seq, now); err != nil {
			log.Warn().Uint64("seq", entry.Seq).Err(err).Msg("feed: mark sent")
			continue
		}

		key := []byte(strconv.FormatUint(uint64(p.messageKey(entry.Frame)), 10))
		msg := &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.ByteEncoder(key),
			Value: sarama.ByteEncoder(entry.Frame),
		}
		if _, _, err := p.producer.SendMessage(msg); err != nil {
			log.Warn().Uint64("seq", entry.Seq).Err(err).Msg("feed: send failed, will retry")
			continue
		}

		if err := p.journal.MarkAcked(entry.Seq, time.Now().UnixNano()); err != nil {
			log.Warn().Uint64("seq", entry.Seq).Err(err).Msg("feed: mark acked")
		}
	}
}

// messageKey partitions by instrument so one instrument's trades stay
// ordered.
func (p *Publisher) messageKey(frame []byte) uint32 {
	rec, err := p.codec.Decode(frame)
	if err != nil {
		return 0
	}
	return uint32(rec.Token)
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
