// internal/store/valuestore.go
package store

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/tamzrod/modbus-gateway/internal/register"
)

// ErrFieldNotFound is returned when no descriptor carries the requested name.
var ErrFieldNotFound = errors.New("store: field not found")

// BlockSnapshot is the live raw-word buffer of one source block.
//
// Words is sized to Block.TotalWords once and mutated in place.
// PendingID is 0 when no read is outstanding.
type BlockSnapshot struct {
	Block *register.Block
	Words []uint16

	PendingID uint16

	// Diagnostics.
	LastID    uint16
	UpdatedAt time.Time
	Reads     uint64
}

// HasData reports whether at least one read has been committed.
func (s *BlockSnapshot) HasData() bool {
	return s.Reads > 0
}

// ValueStore holds the latest raw words of every valid source block.
//
// Only the control loop mutates it. Other goroutines (status page,
// telemetry) read through the locked accessors.
type ValueStore struct {
	mu     sync.RWMutex
	schema *register.Schema
	snaps  []*BlockSnapshot
	byName map[string]*BlockSnapshot
}

// NewValueStore creates one zero-filled snapshot per schema block.
func NewValueStore(schema *register.Schema) *ValueStore {
	vs := &ValueStore{
		schema: schema,
		byName: make(map[string]*BlockSnapshot),
	}
	for _, b := range schema.Blocks() {
		snap := &BlockSnapshot{
			Block: b,
			Words: make([]uint16, b.TotalWords),
		}
		vs.snaps = append(vs.snaps, snap)
		vs.byName[b.Name] = snap
	}
	return vs
}

func (vs *ValueStore) Schema() *register.Schema {
	return vs.schema
}

// Block returns the live snapshot for name.
// The pointer is owned by the control loop; use Copy from other goroutines.
func (vs *ValueStore) Block(name string) (*BlockSnapshot, bool) {
	s, ok := vs.byName[name]
	return s, ok
}

// Blocks returns the live snapshots in schema order.
func (vs *ValueStore) Blocks() []*BlockSnapshot {
	return vs.snaps
}

// Copy returns a detached copy of a snapshot.
func (vs *ValueStore) Copy(name string) (BlockSnapshot, bool) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	s, ok := vs.byName[name]
	if !ok {
		return BlockSnapshot{}, false
	}
	c := *s
	c.Words = append([]uint16(nil), s.Words...)
	return c, true
}

// FieldValue decodes the current value of a field.
func (vs *ValueStore) FieldValue(name string) (float64, error) {
	b, d, ok := vs.schema.Field(name)
	if !ok {
		return 0, errors.Wrap(ErrFieldNotFound, name)
	}

	vs.mu.RLock()
	defer vs.mu.RUnlock()

	snap := vs.byName[b.Name]
	off := b.Offset(d)
	return register.Decode(snap.Words[off:off+int(d.WordCount)], d), nil
}

// HasData reports whether the block owning name has been read at least once.
// Unknown names report false.
func (vs *ValueStore) HasData(name string) bool {
	b, _, ok := vs.schema.Field(name)
	if !ok {
		return false
	}

	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.byName[b.Name].HasData()
}

// Values decodes every field of every block that has data.
func (vs *ValueStore) Values() map[string]float64 {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	out := make(map[string]float64)
	for _, s := range vs.snaps {
		if !s.HasData() {
			continue
		}
		for _, d := range s.Block.Descriptors {
			off := s.Block.Offset(d)
			out[d.Name] = register.Decode(s.Words[off:off+int(d.WordCount)], d)
		}
	}
	return out
}

// ---- mutation (control loop only) ----

// Commit copies a completed read into the snapshot buffer.
func (vs *ValueStore) Commit(s *BlockSnapshot, id uint16, words []uint16, at time.Time) error {
	if len(words) != len(s.Words) {
		return errors.Errorf("store: block %q: got %d words, want %d", s.Block.Name, len(words), len(s.Words))
	}

	vs.mu.Lock()
	defer vs.mu.Unlock()

	copy(s.Words, words)
	s.LastID = id
	s.UpdatedAt = at
	s.Reads++
	if s.PendingID == id {
		s.PendingID = 0
	}
	return nil
}

func (vs *ValueStore) MarkPending(s *BlockSnapshot, id uint16) {
	vs.mu.Lock()
	s.PendingID = id
	vs.mu.Unlock()
}

// ClearPending resets PendingID if it still equals id.
func (vs *ValueStore) ClearPending(s *BlockSnapshot, id uint16) {
	vs.mu.Lock()
	if s.PendingID == id {
		s.PendingID = 0
	}
	vs.mu.Unlock()
}

func (vs *ValueStore) ClearAllPending() {
	vs.mu.Lock()
	for _, s := range vs.snaps {
		s.PendingID = 0
	}
	vs.mu.Unlock()
}
