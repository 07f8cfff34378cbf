package orderbook

// Backend selects the price-index implementation for both sides of a
// book. The ring window is a latency optimisation for instruments
// whose prices stay inside a bounded band; the ordered map is the
// universal fallback.
type Backend uint8

const (
	BackendRing Backend = iota
	BackendMap
)

// RingMode fixes, at construction, what the ring window does with a
// price outside its current band.
type RingMode uint8

const (
	// RingReject refuses out-of-window inserts with ErrPriceOutOfRange.
	RingReject RingMode = iota
	// RingRebalance recentres the window and migrates live levels.
	RingRebalance
)

// priceIndex is the per-side contract both backends satisfy. Best
// returns the non-empty level with the highest price for the buy side
// and the lowest for the sell side; price ties cannot occur because
// price is the key.
type priceIndex interface {
	// Best returns the best-of-side level, or ok == false when the side
	// has no non-empty level.
	Best() (Price, *Level, bool)
	// Find returns nil when no level exists at the price.
	Find(price Price) *Level
	// Ensure returns the level at price, creating it when absent.
	Ensure(price Price) (*Level, error)
	Erase(price Price)
	// MarkNonEmpty hints that the level at price just gained its first
	// order, so the best cache can be advanced without a rescan.
	MarkNonEmpty(price Price)
	// ForEach visits non-empty levels in no particular order. Returning
	// false stops the walk.
	ForEach(fn func(Price, *Level) bool)
}

func newPriceIndex(side Side, backend Backend, mode RingMode) priceIndex {
	if backend == BackendMap {
		return newMapIndex(side)
	}
	return newRingIndex(side, mode)
}
