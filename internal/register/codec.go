// internal/register/codec.go
package register

import "math"

// Decode converts the words of one descriptor into an engineering value.
//
// float32: words[0] high, words[1] low, IEEE-754, Scale ignored.
// 32-bit integers: words[0] low 16 bits, words[1] high 16 bits.
// Integers are divided by Scale exactly once.
//
// A buffer shorter than the descriptor decodes as zero.
func Decode(words []uint16, d Descriptor) float64 {
	if len(words) < int(d.Type.Words()) {
		return 0
	}

	scale := float64(d.Scale)
	if scale == 0 {
		scale = 1
	}

	switch d.Type {
	case Int16:
		return float64(int16(words[0])) / scale
	case Uint16:
		return float64(words[0]) / scale
	case Int32:
		return float64(int32(join32(words[0], words[1]))) / scale
	case Uint32:
		return float64(join32(words[0], words[1])) / scale
	case Float32:
		bits := uint32(words[0])<<16 | uint32(words[1])
		return float64(math.Float32frombits(bits))
	}
	return 0
}

// Encode is the inverse of Decode.
// Integers are multiplied by Scale, rounded to nearest and clamped to the type range.
func Encode(v float64, d Descriptor) []uint16 {
	scale := float64(d.Scale)
	if scale == 0 {
		scale = 1
	}

	switch d.Type {
	case Int16:
		r := clamp(math.Round(v*scale), math.MinInt16, math.MaxInt16)
		return Int16Value(int16(r)).Slice(1)
	case Uint16:
		r := clamp(math.Round(v*scale), 0, math.MaxUint16)
		return Uint16Value(uint16(r)).Slice(1)
	case Int32:
		r := clamp(math.Round(v*scale), math.MinInt32, math.MaxInt32)
		return Int32Value(int32(r)).Slice(2)
	case Uint32:
		r := clamp(math.Round(v*scale), 0, math.MaxUint32)
		return Uint32Value(uint32(r)).Slice(2)
	case Float32:
		return Float32Value(float32(v)).Slice(2)
	}
	return nil
}

func join32(lo, hi uint16) uint32 {
	return uint32(hi)<<16 | uint32(lo)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
