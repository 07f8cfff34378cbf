package snapshot

import (
	"encoding/binary"
	"errors"
	"math"
	"runtime"
)

// Level is one depth entry as stored at the boundary.
type Level struct {
	Price float64
	Qty   float64
}

// View is a consistent copy of one region.
type View struct {
	Sequence    uint64
	TimestampNS uint64
	LTP         float64
	LTQ         float64
	Bids        []Level
	Asks        []Level
}

// ErrBusy means the writer kept the region in flux for the whole retry
// budget.
var ErrBusy = errors.New("snapshot: region busy")

const readAttempts = 64

// Read copies the region under the seqlock discipline: load the
// sequence (odd means a write is in progress), copy the body, reload,
// and retry on change.
func (r *Region) Read(v *View) error {
	for attempt := 0; attempt < readAttempts; attempt++ {
		before := r.loadSeq()
		if before&1 == 1 {
			runtime.Gosched()
			continue
		}

		bidCount := int(binary.LittleEndian.Uint32(r.data[offBidCount:]))
		askCount := int(binary.LittleEndian.Uint32(r.data[offAskCount:]))
		if bidCount > r.maxLevels {
			bidCount = r.maxLevels
		}
		if askCount > r.maxLevels {
			askCount = r.maxLevels
		}

		v.TimestampNS = binary.LittleEndian.Uint64(r.data[offTimestamp:])
		v.LTP = getFloat(r.data[offLTP:])
		v.LTQ = getFloat(r.data[offLTQ:])
		v.Bids = readLevels(r.data[headerBytes:], v.Bids[:0], bidCount)
		v.Asks = readLevels(r.data[headerBytes+r.maxLevels*levelBytes:], v.Asks[:0], askCount)

		if after := r.loadSeq(); after == before {
			v.Sequence = before
			return nil
		}
	}
	return ErrBusy
}

func readLevels(src []byte, out []Level, count int) []Level {
	for i := 0; i < count; i++ {
		out = append(out, Level{
			Price: getFloat(src[i*levelBytes:]),
			Qty:   getFloat(src[i*levelBytes+8:]),
		})
	}
	return out
}

func getFloat(src []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(src))
}
