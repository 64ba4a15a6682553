// internal/mapper/mapper.go
package mapper

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tamzrod/modbus-gateway/internal/register"
	"github.com/tamzrod/modbus-gateway/internal/store"
)

// Term is one weighted source of a mapping: value(Field) * Weight / Divisor.
// An unset Weight or Divisor means 1. An explicit zero is rejected by Validate.
type Term struct {
	Field   string   `yaml:"field" toml:"field"`
	Weight  *float64 `yaml:"weight" toml:"weight"`
	Divisor *float64 `yaml:"divisor" toml:"divisor"`
}

// Divided is value(field) / divisor.
func Divided(field string, divisor float64) Term {
	return Term{Field: field, Divisor: &divisor}
}

// Weighted is value(field) * weight.
func Weighted(field string, weight float64) Term {
	return Term{Field: field, Weight: &weight}
}

func (t Term) weight() float64 {
	w, d := 1.0, 1.0
	if t.Weight != nil {
		w = *t.Weight
	}
	if t.Divisor != nil {
		d = *t.Divisor
	}
	return w / d
}

// check rejects factors that make the term meaningless.
func (t Term) check() error {
	if t.Weight != nil && *t.Weight == 0 {
		return errors.Errorf("term %q: weight must not be 0", t.Field)
	}
	if t.Divisor != nil && *t.Divisor <= 0 {
		return errors.Errorf("term %q: divisor must be > 0", t.Field)
	}
	return nil
}

// Mapping computes Dest as the sum of its terms.
type Mapping struct {
	Dest  string `yaml:"dest" toml:"dest"`
	Terms []Term `yaml:"terms" toml:"terms"`
}

// Identity copies src to dest.
func Identity(dest, src string) Mapping {
	return Mapping{Dest: dest, Terms: []Term{{Field: src}}}
}

// Sum adds all srcs.
func Sum(dest string, srcs ...string) Mapping {
	m := Mapping{Dest: dest}
	for _, s := range srcs {
		m.Terms = append(m.Terms, Term{Field: s})
	}
	return m
}

// Ratio divides src by a constant.
func Ratio(dest, src string, divisor float64) Mapping {
	return Mapping{Dest: dest, Terms: []Term{Divided(src, divisor)}}
}

// ---- collaborators ----

// Source is the read side (the source value store).
type Source interface {
	FieldValue(name string) (float64, error)
	HasData(name string) bool
}

// Sink is the write side (the exposure).
type Sink interface {
	Apply(values []store.FieldValue) error
}

// Mapper evaluates a static mapping table on every refresh.
type Mapper struct {
	mappings []Mapping
	src      Source
	dst      Sink
	log      *zap.Logger

	batch  []store.FieldValue
	warned map[string]struct{}
}

func New(mappings []Mapping, src Source, dst Sink, log *zap.Logger) *Mapper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mapper{
		mappings: mappings,
		src:      src,
		dst:      dst,
		log:      log.With(zap.String("module", "mapper")),
		batch:    make([]store.FieldValue, 0, len(mappings)),
		warned:   make(map[string]struct{}),
	}
}

// Refresh evaluates every mapping top to bottom and writes the results
// in one batch. A mapping with a missing or never-read source is skipped
// and its destination keeps the previous value. Returns the number of
// destinations written.
func (m *Mapper) Refresh() int {
	m.batch = m.batch[:0]

	for _, mp := range m.mappings {
		v, ok := m.eval(mp)
		if !ok {
			continue
		}
		m.batch = append(m.batch, store.FieldValue{Name: mp.Dest, Value: v})
	}

	if err := m.dst.Apply(m.batch); err != nil {
		for _, e := range multierr.Errors(err) {
			m.warnOnce(e.Error(), "destination not in sink schema", zap.Error(e))
		}
	}
	return len(m.batch)
}

func (m *Mapper) eval(mp Mapping) (float64, bool) {
	var sum float64
	for _, t := range mp.Terms {
		if !m.src.HasData(t.Field) {
			if _, err := m.src.FieldValue(t.Field); errors.Is(err, store.ErrFieldNotFound) {
				m.warnOnce(t.Field, "source field not found", zap.String("dest", mp.Dest), zap.String("field", t.Field))
			}
			return 0, false
		}
		v, err := m.src.FieldValue(t.Field)
		if err != nil {
			return 0, false
		}
		sum += v * t.weight()
	}
	return sum, len(mp.Terms) > 0
}

func (m *Mapper) warnOnce(key, msg string, fields ...zap.Field) {
	if _, done := m.warned[key]; done {
		return
	}
	m.warned[key] = struct{}{}
	m.log.Warn(msg, fields...)
}

// ---- validation ----

// Validate checks that every source and destination exists and that
// every term has usable factors.
func Validate(mappings []Mapping, src, dst *register.Schema) error {
	var errs error
	for i, mp := range mappings {
		if _, _, ok := dst.Field(mp.Dest); !ok {
			errs = multierr.Append(errs, errors.Errorf("mapping %d: destination %q not in schema %q", i, mp.Dest, dst.Name))
		}
		if len(mp.Terms) == 0 {
			errs = multierr.Append(errs, errors.Errorf("mapping %d (%s): no terms", i, mp.Dest))
		}
		for _, t := range mp.Terms {
			if _, _, ok := src.Field(t.Field); !ok {
				errs = multierr.Append(errs, errors.Errorf("mapping %d (%s): source %q not in schema %q", i, mp.Dest, t.Field, src.Name))
			}
			if err := t.check(); err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "mapping %d (%s)", i, mp.Dest))
			}
		}
	}
	return errs
}
