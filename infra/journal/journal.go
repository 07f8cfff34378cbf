package journal

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Entry --------------------

// Entry is one outbox record: an encoded trade frame plus its delivery
// state. Frames move NEW → SENT → ACKED, or to FAILED after too many
// attempts.
type Entry struct {
	Seq         uint64
	State       State
	Attempts    uint32
	LastAttempt int64
	Frame       []byte
}

const metaBytes = 1 + 4 + 8

// value encoding: [state:1][attempts:4][lastAttempt:8][frame...]
func encodeValue(e *Entry) []byte {
	buf := make([]byte, metaBytes+len(e.Frame))
	buf[0] = byte(e.State)
	binary.BigEndian.PutUint32(buf[1:5], e.Attempts)
	binary.BigEndian.PutUint64(buf[5:13], uint64(e.LastAttempt))
	copy(buf[metaBytes:], e.Frame)
	return buf
}

func decodeValue(seq uint64, b []byte) (Entry, error) {
	if len(b) < metaBytes {
		return Entry{}, errors.New("journal: truncated entry")
	}
	frame := make([]byte, len(b)-metaBytes)
	copy(frame, b[metaBytes:])
	return Entry{
		Seq:         seq,
		State:       State(b[0]),
		Attempts:    binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Frame:       frame,
	}, nil
}

// -------------------- Journal --------------------

// Journal is the durable trade outbox: a pebble DB keyed by sequence
// number, written with sync so an acknowledged append survives a
// crash.
type Journal struct {
	db *pebble.DB
}

var ErrNotFoundEntry = errors.New("journal: entry not found")

func Open(dir string) (*Journal, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // we WANT durability
	})
	if err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Append inserts a new outbox entry in state NEW.
func (j *Journal) Append(seq uint64, frame []byte, now int64) error {
	e := Entry{Seq: seq, State: StateNew, LastAttempt: now, Frame: frame}
	return j.db.Set(keyFor(seq), encodeValue(&e), pebble.Sync)
}

// MarkSent advances an entry to SENT and counts the attempt.
func (j *Journal) MarkSent(seq uint64, now int64) error {
	return j.update(seq, func(e *Entry) {
		e.State = StateSent
		e.Attempts++
		e.LastAttempt = now
	})
}

func (j *Journal) MarkAcked(seq uint64, now int64) error {
	return j.update(seq, func(e *Entry) {
		e.State = StateAcked
		e.LastAttempt = now
	})
}

func (j *Journal) MarkFailed(seq uint64, now int64) error {
	return j.update(seq, func(e *Entry) {
		e.State = StateFailed
		e.LastAttempt = now
	})
}

func (j *Journal) update(seq uint64, fn func(*Entry)) error {
	e, err := j.Get(seq)
	if err != nil {
		return err
	}
	fn(&e)
	return j.db.Set(keyFor(seq), encodeValue(&e), pebble.Sync)
}

func (j *Journal) Get(seq uint64) (Entry, error) {
	val, closer, err := j.db.Get(keyFor(seq))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Entry{}, ErrNotFoundEntry
		}
		return Entry{}, err
	}
	defer closer.Close()
	return decodeValue(seq, val)
}

// ScanPending returns up to max entries still awaiting delivery
// (NEW, or SENT but never acked), in sequence order.
func (j *Journal) ScanPending(max int) ([]Entry, error) {
	iter, err := j.newIter()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Entry
	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return nil, err
		}
		e, err := decodeValue(seq, iter.Value())
		if err != nil {
			return nil, err
		}
		if e.State != StateNew && e.State != StateSent {
			continue
		}
		out = append(out, e)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out, iter.Error()
}

// PruneAcked deletes acked entries with seq < beforeSeq.
func (j *Journal) PruneAcked(beforeSeq uint64) error {
	iter, err := j.newIter()
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		if seq >= beforeSeq {
			break
		}
		if len(iter.Value()) >= 1 && State(iter.Value()[0]) != StateAcked {
			continue
		}
		if err := j.db.Delete(keyFor(seq), pebble.Sync); err != nil {
			return err
		}
	}
	return iter.Error()
}

// MaxSeq returns the highest journaled sequence, or 0 when empty.
// Used to recover the sequencer after a restart.
func (j *Journal) MaxSeq() (uint64, error) {
	iter, err := j.newIter()
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	return parseKey(iter.Key())
}

// -------------------- Helpers --------------------

func (j *Journal) newIter() (*pebble.Iterator, error) {
	return j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("trade/"),
		UpperBound: []byte("trade/~"),
	})
}

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("trade/%020d", seq))
}

func parseKey(key []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(key), "trade/%d", &seq)
	return seq, err
}
