package service

import (
	"time"

	"github.com/rs/zerolog/log"

	"simex/domain/orderbook"
	"simex/feed"
	"simex/infra/journal"
	"simex/infra/sequence"
)

// NewTradeRecorder builds the trade listener that journals every fill
// into the outbox. It runs on the dispatch goroutine, off the matching
// hot path; the sync journal write is the price of a durable feed.
func NewTradeRecorder(j *journal.Journal, seq *sequence.Sequencer, codec *feed.Codec) orderbook.TradeListener {
	return func(t orderbook.Trade) {
		now := time.Now().UnixNano()
		rec := &feed.Record{
			Seq:           seq.Next(),
			Token:         t.Token,
			AggressorSide: t.AggressorSide,
			AggressorID:   t.AggressorID,
			RestingSide:   t.RestingSide,
			RestingID:     t.RestingID,
			Price:         t.Price,
			Qty:           t.Qty,
			TimestampNS:   uint64(now),
		}
		if err := j.Append(rec.Seq, codec.Encode(rec), now); err != nil {
			log.Warn().Uint64("seq", rec.Seq).Err(err).Msg("trade journal append failed")
		}
	}
}

// RecoverFeed resumes the feed sequencer after the highest journaled
// sequence so restarts never reuse a sequence number.
func RecoverFeed(j *journal.Journal, seq *sequence.Sequencer) error {
	max, err := j.MaxSeq()
	if err != nil {
		return err
	}
	seq.Reset(max)
	if max > 0 {
		log.Info().Uint64("seq", max).Msg("feed sequencer recovered from journal")
	}
	return nil
}
