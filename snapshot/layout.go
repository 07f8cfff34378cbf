// Package snapshot publishes per-instrument depth to shared-memory
// regions guarded by a seqlock, and reads them back.
//
// Region layout (little-endian, prices and quantities as IEEE-754
// bits):
//
//	0   sequence     u64  (atomic seqlock; odd = write in progress)
//	8   max_levels   u32
//	12  bid_count    u32
//	16  ask_count    u32
//	24  timestamp_ns u64
//	32  ltp          f64
//	40  ltq          f64
//	48  bid_levels[max_levels]{price f64, qty f64}
//	..  ask_levels[max_levels]
package snapshot

import (
	"fmt"
	"strings"
)

const (
	offSequence  = 0
	offMaxLevels = 8
	offBidCount  = 12
	offAskCount  = 16
	offTimestamp = 24
	offLTP       = 32
	offLTQ       = 40
	headerBytes  = 48
	levelBytes   = 16
)

// DefaultDir is where shm regions live on linux.
const DefaultDir = "/dev/shm"

func regionBytes(maxLevels int) int {
	if maxLevels < 1 {
		maxLevels = 1
	}
	return headerBytes + 2*maxLevels*levelBytes
}

// RegionName builds "<prefix>_<token>", enforcing the leading slash
// shm names carry.
func RegionName(prefix string, token uint32) string {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return fmt.Sprintf("%s_%d", prefix, token)
}
