package snapshot

import (
	"encoding/binary"
	"math"
	"time"

	"simex/domain/orderbook"
)

// Publisher owns one region per instrument and publishes throttled
// depth snapshots inline on the engine goroutine. Publication is a
// two-phase seqlock write: bump the sequence to odd, write the body,
// bump to even. It never blocks.
type Publisher struct {
	interval time.Duration
	regions  map[orderbook.Token]*publisherRegion
}

type publisherRegion struct {
	region *Region
	next   time.Time
	bids   []orderbook.LevelView
	asks   []orderbook.LevelView
}

func NewPublisher(dir, prefix string, interval time.Duration, levels int, tokens []orderbook.Token) (*Publisher, error) {
	p := &Publisher{
		interval: interval,
		regions:  make(map[orderbook.Token]*publisherRegion, len(tokens)),
	}
	for _, token := range tokens {
		region, err := Create(dir, RegionName(prefix, uint32(token)), levels)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.regions[token] = &publisherRegion{region: region}
	}
	return p, nil
}

// MaybePublish writes a fresh snapshot when the throttle interval for
// this instrument has elapsed.
func (p *Publisher) MaybePublish(token orderbook.Token, book *orderbook.Book) {
	pr, ok := p.regions[token]
	if !ok {
		return
	}
	now := time.Now()
	if now.Before(pr.next) {
		return
	}
	pr.next = now.Add(p.interval)
	p.publish(pr, book)
}

// Publish writes unconditionally, bypassing the throttle.
func (p *Publisher) Publish(token orderbook.Token, book *orderbook.Book) {
	if pr, ok := p.regions[token]; ok {
		p.publish(pr, book)
	}
}

func (p *Publisher) publish(pr *publisherRegion, book *orderbook.Book) {
	r := pr.region
	book.Snapshot(&pr.bids, &pr.asks)

	seq := r.loadSeq()
	r.storeSeq(seq + 1) // odd: write in progress

	maxLevels := r.maxLevels
	bidCount := writeLevels(r.data[headerBytes:], pr.bids, maxLevels)
	askCount := writeLevels(r.data[headerBytes+maxLevels*levelBytes:], pr.asks, maxLevels)

	binary.LittleEndian.PutUint32(r.data[offBidCount:], uint32(bidCount))
	binary.LittleEndian.PutUint32(r.data[offAskCount:], uint32(askCount))
	binary.LittleEndian.PutUint64(r.data[offTimestamp:], uint64(time.Now().UnixNano()))
	putFloat(r.data[offLTP:], float64(book.LastTradePrice()))
	putFloat(r.data[offLTQ:], float64(book.LastTradeQty()))

	r.storeSeq(seq + 2) // even: consistent
}

func writeLevels(dst []byte, levels []orderbook.LevelView, maxLevels int) int {
	count := len(levels)
	if count > maxLevels {
		count = maxLevels
	}
	for i := 0; i < count; i++ {
		putFloat(dst[i*levelBytes:], float64(levels[i].Price))
		putFloat(dst[i*levelBytes+8:], float64(levels[i].Qty))
	}
	for i := count; i < maxLevels; i++ {
		putFloat(dst[i*levelBytes:], 0)
		putFloat(dst[i*levelBytes+8:], 0)
	}
	return count
}

func putFloat(dst []byte, v float64) {
	binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
}

func (p *Publisher) Close() {
	for _, pr := range p.regions {
		pr.region.Close()
	}
}
