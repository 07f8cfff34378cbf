package service

import (
	"testing"

	"simex/domain/orderbook"
	"simex/feed"
	"simex/infra/journal"
	"simex/infra/sequence"
)

func TestTradeRecorderJournals(t *testing.T) {
	j, err := journal.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer j.Close()

	seq := sequence.New(0)
	codec := feed.NewCodec()
	recorder := NewTradeRecorder(j, seq, codec)

	recorder(orderbook.Trade{
		Token:         26000,
		AggressorSide: orderbook.Buy,
		AggressorID:   2,
		RestingSide:   orderbook.Sell,
		RestingID:     1,
		Price:         1518,
		Qty:           10,
	})

	e, err := j.Get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e.State != journal.StateNew {
		t.Errorf("state = %v, want NEW", e.State)
	}
	rec, err := codec.Decode(e.Frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Seq != 1 || rec.Token != 26000 || rec.Price != 1518 || rec.Qty != 10 {
		t.Errorf("record = %+v", rec)
	}
	if rec.TimestampNS == 0 {
		t.Error("timestamp not stamped")
	}
}

func TestRecoverFeedResumesSequencer(t *testing.T) {
	dir := t.TempDir()
	j, err := journal.Open(dir)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}

	seq := sequence.New(0)
	codec := feed.NewCodec()
	recorder := NewTradeRecorder(j, seq, codec)
	for i := 0; i < 3; i++ {
		recorder(orderbook.Trade{Token: 26000, Qty: 1, Price: 1})
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	j2, err := journal.Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j2.Close()

	seq2 := sequence.New(0)
	if err := RecoverFeed(j2, seq2); err != nil {
		t.Fatalf("recover: %v", err)
	}
	if got := seq2.Next(); got != 4 {
		t.Errorf("first seq after recovery = %d, want 4", got)
	}
}
