// internal/store/exposure.go
package store

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/tamzrod/modbus-gateway/internal/register"
)

var (
	// ErrIllegalAddress is returned for addresses the exposure does not back.
	ErrIllegalAddress = errors.New("store: illegal address")

	// ErrAddressInUse is returned when a reservation overlaps backed addresses.
	ErrAddressInUse = errors.New("store: address already in use")
)

// FieldValue is one named engineering value.
type FieldValue struct {
	Name  string
	Value float64
}

// Exposure is the register memory served to the downstream master.
// Keyed by absolute address. Every schema descriptor is pre-seeded
// from its default.
type Exposure struct {
	mu     sync.RWMutex
	schema *register.Schema
	words  map[uint16]uint16
}

func NewExposure(schema *register.Schema) *Exposure {
	e := &Exposure{
		schema: schema,
		words:  make(map[uint16]uint16),
	}
	for _, b := range schema.Blocks() {
		for _, d := range b.Descriptors {
			for i, w := range d.DefaultWords() {
				e.words[d.Address+uint16(i)] = w
			}
		}
	}
	return e
}

func (e *Exposure) Schema() *register.Schema {
	return e.schema
}

// SetFieldValue encodes v and stores it at the descriptor's address.
func (e *Exposure) SetFieldValue(name string, v float64) error {
	_, d, ok := e.schema.Field(name)
	if !ok {
		return errors.Wrap(ErrFieldNotFound, name)
	}

	words := register.Encode(v, d)

	e.mu.Lock()
	e.put(d.Address, words)
	e.mu.Unlock()
	return nil
}

// Apply sets several fields under one lock.
// Unknown names are skipped and reported together.
func (e *Exposure) Apply(values []FieldValue) error {
	var errs error

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, fv := range values {
		_, d, ok := e.schema.Field(fv.Name)
		if !ok {
			errs = multierr.Append(errs, errors.Wrap(ErrFieldNotFound, fv.Name))
			continue
		}
		e.put(d.Address, register.Encode(fv.Value, d))
	}
	return errs
}

// FieldValue decodes the currently exposed value of a field.
func (e *Exposure) FieldValue(name string) (float64, error) {
	_, d, ok := e.schema.Field(name)
	if !ok {
		return 0, errors.Wrap(ErrFieldNotFound, name)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	words := make([]uint16, d.WordCount)
	for i := range words {
		words[i] = e.words[d.Address+uint16(i)]
	}
	return register.Decode(words, d), nil
}

// Values decodes every exposed field.
func (e *Exposure) Values() map[string]float64 {
	out := make(map[string]float64)
	for _, name := range e.schema.Fields() {
		if v, err := e.FieldValue(name); err == nil {
			out[name] = v
		}
	}
	return out
}

// ---- raw word access (sink server, status block) ----

func (e *Exposure) Word(addr uint16) (uint16, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	w, ok := e.words[addr]
	return w, ok
}

func (e *Exposure) SetWord(addr, v uint16) error {
	return e.WriteWords(addr, []uint16{v})
}

// ReadWords returns qty words at addr. Every address must be backed.
func (e *Exposure) ReadWords(addr, qty uint16) ([]uint16, error) {
	if uint32(addr)+uint32(qty) > 0x10000 {
		return nil, ErrIllegalAddress
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]uint16, qty)
	for i := range out {
		w, ok := e.words[addr+uint16(i)]
		if !ok {
			return nil, errors.Wrapf(ErrIllegalAddress, "address %d", addr+uint16(i))
		}
		out[i] = w
	}
	return out, nil
}

// WriteWords stores words at addr. Nothing is written unless every
// address is backed.
func (e *Exposure) WriteWords(addr uint16, words []uint16) error {
	if uint32(addr)+uint32(len(words)) > 0x10000 {
		return ErrIllegalAddress
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range words {
		if _, ok := e.words[addr+uint16(i)]; !ok {
			return errors.Wrapf(ErrIllegalAddress, "address %d", addr+uint16(i))
		}
	}
	e.put(addr, words)
	return nil
}

// Reserve backs n zeroed words at addr that are not part of the schema.
func (e *Exposure) Reserve(addr, n uint16) error {
	if uint32(addr)+uint32(n) > 0x10000 {
		return ErrIllegalAddress
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i := uint16(0); i < n; i++ {
		if _, ok := e.words[addr+i]; ok {
			return errors.Wrapf(ErrAddressInUse, "address %d", addr+i)
		}
	}
	for i := uint16(0); i < n; i++ {
		e.words[addr+i] = 0
	}
	return nil
}

func (e *Exposure) put(addr uint16, words []uint16) {
	for i, w := range words {
		e.words[addr+uint16(i)] = w
	}
}
