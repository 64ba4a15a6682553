// internal/register/types.go
package register

import (
	"math"

	"github.com/pkg/errors"
)

// Type is the closed set of register encodings.
type Type uint8

const (
	Invalid Type = iota
	Int16
	Uint16
	Int32
	Uint32
	Float32
)

var typeNames = map[Type]string{
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Float32: "float32",
}

// Words returns the register width of the type (0 for Invalid).
func (t Type) Words() uint16 {
	switch t {
	case Int16, Uint16:
		return 1
	case Int32, Uint32, Float32:
		return 2
	}
	return 0
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "invalid"
}

// ParseType maps "int16" .. "float32" to a Type.
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return Invalid, errors.Errorf("register: unknown type %q", s)
}

// ---- TAGGED RAW VALUE ----

// RawValue is a typed raw bit pattern in register order.
// Words beyond Type.Words() are zero.
type RawValue struct {
	Type  Type
	Words [2]uint16
}

func Int16Value(v int16) RawValue {
	return RawValue{Type: Int16, Words: [2]uint16{uint16(v)}}
}

func Uint16Value(v uint16) RawValue {
	return RawValue{Type: Uint16, Words: [2]uint16{v}}
}

// Int32Value stores the low 16 bits in the first word.
func Int32Value(v int32) RawValue {
	u := uint32(v)
	return RawValue{Type: Int32, Words: [2]uint16{uint16(u), uint16(u >> 16)}}
}

// Uint32Value stores the low 16 bits in the first word.
func Uint32Value(v uint32) RawValue {
	return RawValue{Type: Uint32, Words: [2]uint16{uint16(v), uint16(v >> 16)}}
}

// Float32Value stores the high half of the IEEE-754 pattern in the first word.
func Float32Value(v float32) RawValue {
	b := math.Float32bits(v)
	return RawValue{Type: Float32, Words: [2]uint16{uint16(b >> 16), uint16(b)}}
}

// Slice returns the first n words (n is clamped to 2).
func (r RawValue) Slice(n uint16) []uint16 {
	if n > 2 {
		n = 2
	}
	out := make([]uint16, n)
	copy(out, r.Words[:n])
	return out
}
