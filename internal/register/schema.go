// internal/register/schema.go
package register

import (
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrNoValidBlocks is returned when every candidate block was rejected.
var ErrNoValidBlocks = errors.New("register: schema has no valid blocks")

type fieldRef struct {
	block *Block
	index int
}

// Schema is a named set of validated blocks.
// Field names form one namespace across all blocks.
// A Schema is immutable after NewSchema returns.
type Schema struct {
	Name string

	blocks  []*Block
	byBlock map[string]*Block
	byField map[string]fieldRef
}

// NewSchema validates every candidate and keeps the valid ones.
// Rejected blocks are logged and excluded. Duplicate block or field
// names reject the later block.
func NewSchema(name string, candidates []Block, log *zap.Logger) (*Schema, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("schema", name))

	s := &Schema{
		Name:    name,
		byBlock: make(map[string]*Block),
		byField: make(map[string]fieldRef),
	}

	for i := range candidates {
		b := candidates[i]
		b.Descriptors = append([]Descriptor(nil), b.Descriptors...)

		if err := b.Validate(); err != nil {
			log.Warn("block rejected", zap.String("block", b.Name), zap.Error(err))
			continue
		}
		if _, dup := s.byBlock[b.Name]; dup {
			log.Warn("block rejected", zap.String("block", b.Name), zap.String("reason", "duplicate block name"))
			continue
		}
		if f, dup := s.firstDuplicateField(&b); dup {
			log.Warn("block rejected", zap.String("block", b.Name), zap.String("field", f), zap.String("reason", "duplicate field name"))
			continue
		}

		bp := &b
		s.blocks = append(s.blocks, bp)
		s.byBlock[bp.Name] = bp
		for j, d := range bp.Descriptors {
			s.byField[d.Name] = fieldRef{block: bp, index: j}
		}
	}

	if len(s.blocks) == 0 {
		return nil, errors.Wrapf(ErrNoValidBlocks, "schema %q", name)
	}
	return s, nil
}

func (s *Schema) firstDuplicateField(b *Block) (string, bool) {
	seen := make(map[string]struct{}, len(b.Descriptors))
	for _, d := range b.Descriptors {
		if _, ok := s.byField[d.Name]; ok {
			return d.Name, true
		}
		if _, ok := seen[d.Name]; ok {
			return d.Name, true
		}
		seen[d.Name] = struct{}{}
	}
	return "", false
}

// Blocks returns the valid blocks in definition order.
func (s *Schema) Blocks() []*Block {
	return s.blocks
}

func (s *Schema) Block(name string) (*Block, bool) {
	b, ok := s.byBlock[name]
	return b, ok
}

// Field locates a descriptor and its owning block by name.
func (s *Schema) Field(name string) (*Block, Descriptor, bool) {
	ref, ok := s.byField[name]
	if !ok {
		return nil, Descriptor{}, false
	}
	return ref.block, ref.block.Descriptors[ref.index], true
}

// Fields returns all field names, sorted.
func (s *Schema) Fields() []string {
	out := make([]string, 0, len(s.byField))
	for n := range s.byField {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// BlockAt returns the block covering addr.
func (s *Schema) BlockAt(addr uint16) (*Block, bool) {
	for _, b := range s.blocks {
		if b.Covers(addr, 1) {
			return b, true
		}
	}
	return nil, false
}
