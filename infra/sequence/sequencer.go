// Package sequence issues the strictly increasing numbers that order
// the trade feed.
package sequence

import "sync/atomic"

// Sequencer hands out feed sequence numbers. Safe for concurrent use;
// every number is issued exactly once.
type Sequencer struct {
	next atomic.Uint64
}

// New starts issuing after start: 0 on a fresh outbox, the highest
// journaled sequence when resuming.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued number, or the start value if none
// was issued yet.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset repositions the sequencer. Only outbox recovery at startup may
// call this; a reset on a live sequencer would reissue numbers.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}
