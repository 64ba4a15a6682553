// internal/register/block.go
package register

import "fmt"

// Descriptor is typed metadata for one named measurement.
type Descriptor struct {
	Name      string
	Address   uint16
	WordCount uint16
	Type      Type
	Scale     uint32
	Default   RawValue

	// Display only.
	Unit        string
	Description string
}

// DefaultWords returns the seed words for an exposure.
func (d Descriptor) DefaultWords() []uint16 {
	if d.Default.Type != d.Type {
		return make([]uint16, d.WordCount)
	}
	return d.Default.Slice(d.WordCount)
}

// Block is an ordered, contiguous group of descriptors read as one unit.
// BaseAddress and TotalWords are only meaningful after Validate succeeds.
type Block struct {
	Name        string       `yaml:"name" toml:"name"`
	Descriptors []Descriptor `yaml:"registers" toml:"registers"`

	BaseAddress uint16 `yaml:"-" toml:"-"`
	TotalWords  uint16 `yaml:"-" toml:"-"`
}

// ValidationError describes why a block was rejected.
type ValidationError struct {
	Block  string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("register: block %q: %s", e.Block, e.Reason)
	}
	return fmt.Sprintf("register: block %q field %q: %s", e.Block, e.Field, e.Reason)
}

// Validate walks the descriptors in stored order with an address cursor.
// Any gap, overlap or reordering fails. On success BaseAddress and
// TotalWords are recorded.
func (b *Block) Validate() error {
	if len(b.Descriptors) == 0 {
		return &ValidationError{Block: b.Name, Reason: "block has no descriptors"}
	}

	cursor := uint32(b.Descriptors[0].Address)
	base := cursor

	for _, d := range b.Descriptors {
		if d.Name == "" {
			return &ValidationError{Block: b.Name, Reason: fmt.Sprintf("descriptor at %d has no name", d.Address)}
		}
		if d.WordCount != 1 && d.WordCount != 2 {
			return &ValidationError{Block: b.Name, Field: d.Name, Reason: fmt.Sprintf("word count %d not in {1,2}", d.WordCount)}
		}
		if d.Type.Words() != d.WordCount {
			return &ValidationError{Block: b.Name, Field: d.Name, Reason: fmt.Sprintf("type %s needs %d words, has %d", d.Type, d.Type.Words(), d.WordCount)}
		}
		if d.Scale == 0 {
			return &ValidationError{Block: b.Name, Field: d.Name, Reason: "scale must be > 0"}
		}
		if uint32(d.Address) != cursor {
			return &ValidationError{Block: b.Name, Field: d.Name, Reason: fmt.Sprintf("address %d, expected %d", d.Address, cursor)}
		}
		cursor += uint32(d.WordCount)
	}

	if cursor-1 > 0xFFFF {
		return &ValidationError{Block: b.Name, Reason: "block runs past address 65535"}
	}

	b.BaseAddress = uint16(base)
	b.TotalWords = uint16(cursor - base)
	return nil
}

// Offset returns the word offset of d inside the block buffer.
func (b *Block) Offset(d Descriptor) int {
	return int(d.Address) - int(b.BaseAddress)
}

// Covers reports whether [addr, addr+qty) lies inside the block.
func (b *Block) Covers(addr, qty uint16) bool {
	end := uint32(addr) + uint32(qty)
	return addr >= b.BaseAddress && end <= uint32(b.BaseAddress)+uint32(b.TotalWords)
}
