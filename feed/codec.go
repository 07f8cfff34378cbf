package feed

import (
	"encoding/binary"
	"errors"
	"hash/crc32"

	"google.golang.org/protobuf/encoding/protowire"

	"simex/domain/orderbook"
	"simex/infra/memory"
)

// Record is one executed trade as carried on the feed.
type Record struct {
	Seq           uint64
	Token         orderbook.Token
	AggressorSide orderbook.Side
	AggressorID   orderbook.OrderID
	RestingSide   orderbook.Side
	RestingID     orderbook.OrderID
	Price         orderbook.Price
	Qty           orderbook.Qty
	TimestampNS   uint64
}

// protowire field numbers
const (
	fieldSeq = iota + 1
	fieldToken
	fieldAggressorSide
	fieldAggressorID
	fieldRestingSide
	fieldRestingID
	fieldPrice
	fieldQty
	fieldTimestamp
)

var ErrCorruptFrame = errors.New("feed: corrupt frame")

const frameHeader = 8

// Codec frames protowire-encoded records as
// [len u32 LE][crc32 u32 LE][payload]. Scratch buffers are pooled so
// the listener path does not allocate per trade.
type Codec struct {
	scratch *memory.Pool[[]byte]
}

func NewCodec() *Codec {
	return &Codec{
		scratch: memory.NewPool(func() *[]byte {
			buf := make([]byte, 0, 128)
			return &buf
		}),
	}
}

func (c *Codec) Encode(rec *Record) []byte {
	bufp := c.scratch.Get()
	body := (*bufp)[:0]

	body = appendVarintField(body, fieldSeq, rec.Seq)
	body = appendVarintField(body, fieldToken, uint64(rec.Token))
	body = appendVarintField(body, fieldAggressorSide, uint64(rec.AggressorSide))
	body = appendVarintField(body, fieldAggressorID, uint64(rec.AggressorID))
	body = appendVarintField(body, fieldRestingSide, uint64(rec.RestingSide))
	body = appendVarintField(body, fieldRestingID, uint64(rec.RestingID))
	body = appendVarintField(body, fieldPrice, uint64(rec.Price))
	body = appendVarintField(body, fieldQty, uint64(rec.Qty))
	body = appendVarintField(body, fieldTimestamp, rec.TimestampNS)

	frame := make([]byte, frameHeader+len(body))
	binary.LittleEndian.PutUint32(frame[:4], uint32(len(body)))
	binary.LittleEndian.PutUint32(frame[4:8], crc32.ChecksumIEEE(body))
	copy(frame[frameHeader:], body)

	*bufp = body
	c.scratch.Put(bufp)
	return frame
}

func (c *Codec) Decode(frame []byte) (*Record, error) {
	if len(frame) < frameHeader {
		return nil, ErrCorruptFrame
	}
	bodyLen := binary.LittleEndian.Uint32(frame[:4])
	if int(bodyLen) != len(frame)-frameHeader {
		return nil, ErrCorruptFrame
	}
	body := frame[frameHeader:]
	if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(frame[4:8]) {
		return nil, ErrCorruptFrame
	}

	rec := &Record{}
	for len(body) > 0 {
		num, typ, n := protowire.ConsumeTag(body)
		if n < 0 {
			return nil, ErrCorruptFrame
		}
		body = body[n:]
		if typ != protowire.VarintType {
			return nil, ErrCorruptFrame
		}
		v, n := protowire.ConsumeVarint(body)
		if n < 0 {
			return nil, ErrCorruptFrame
		}
		body = body[n:]

		switch num {
		case fieldSeq:
			rec.Seq = v
		case fieldToken:
			rec.Token = orderbook.Token(v)
		case fieldAggressorSide:
			rec.AggressorSide = orderbook.Side(v)
		case fieldAggressorID:
			rec.AggressorID = orderbook.OrderID(v)
		case fieldRestingSide:
			rec.RestingSide = orderbook.Side(v)
		case fieldRestingID:
			rec.RestingID = orderbook.OrderID(v)
		case fieldPrice:
			rec.Price = orderbook.Price(v)
		case fieldQty:
			rec.Qty = orderbook.Qty(v)
		case fieldTimestamp:
			rec.TimestampNS = v
		}
	}
	return rec, nil
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}
