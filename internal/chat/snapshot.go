package chat

import (
	"bytes"
	"encoding/json"

	"github.com/cespare/xxhash/v2"

	"github.com/tOgg1/reperage/internal/models"
)

// Snapshot is the change detector's record of the last applied message list.
// The zero value is the sentinel: it never matches a fetched list.
type Snapshot struct {
	sum   uint64
	data  []byte
	valid bool
}

// TakeSnapshot serializes msgs in order, covering every displayed field
// (id, author, name, content, timestamp, read flag).
func TakeSnapshot(msgs []models.Message) Snapshot {
	if msgs == nil {
		msgs = []models.Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		// Unreachable for plain structs; an invalid snapshot only costs a render.
		return Snapshot{}
	}
	return Snapshot{sum: xxhash.Sum64(data), data: data, valid: true}
}

// IsZero reports whether s is the reset sentinel.
func (s Snapshot) IsZero() bool {
	return !s.valid
}

// Equal compares two snapshots. The digest is only a fast path; equal digests
// fall through to a byte comparison so a collision can never hide a change.
func (s Snapshot) Equal(other Snapshot) bool {
	if !s.valid || !other.valid {
		return false
	}
	if s.sum != other.sum {
		return false
	}
	return bytes.Equal(s.data, other.data)
}

// Digest returns the 64-bit digest, for logging.
func (s Snapshot) Digest() uint64 {
	return s.sum
}

// Detect compares msgs with prev. It returns the snapshot to store and whether
// the list changed; an unchanged list means the cycle should be suppressed.
func Detect(prev Snapshot, msgs []models.Message) (Snapshot, bool) {
	next := TakeSnapshot(msgs)
	if prev.Equal(next) {
		return prev, false
	}
	return next, true
}
