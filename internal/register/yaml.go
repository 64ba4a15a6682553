// internal/register/yaml.go
package register

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SchemaFile is the on-disk form of a schema definition.
//
//	name: em24
//	blocks:
//	  - name: time
//	    registers:
//	      - [hour, 0x5a, 2, int32, 100, 0]
type SchemaFile struct {
	Name   string  `yaml:"name"`
	Blocks []Block `yaml:"blocks"`
}

// LoadSchemaFile reads a schema definition. Validation happens in NewSchema.
func LoadSchemaFile(path string) (SchemaFile, error) {
	var sf SchemaFile

	b, err := os.ReadFile(path)
	if err != nil {
		return sf, errors.Wrap(err, "register: read schema file")
	}
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return sf, errors.Wrapf(err, "register: parse schema file %s", path)
	}
	if sf.Name == "" {
		return sf, errors.Errorf("register: schema file %s has no name", path)
	}
	return sf, nil
}

// UnmarshalYAML accepts the descriptor tuple
// [name, address, wordCount, type, scalingFactor, defaultValue]
// optionally followed by [unit, description].
func (d *Descriptor) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.SequenceNode {
		return errors.Errorf("register: line %d: descriptor must be a sequence", n.Line)
	}
	if len(n.Content) != 6 && len(n.Content) != 8 {
		return errors.Errorf("register: line %d: descriptor needs 6 or 8 elements, got %d", n.Line, len(n.Content))
	}

	var typ string
	head := []interface{}{&d.Name, &d.Address, &d.WordCount, &typ, &d.Scale}
	for i, dst := range head {
		if err := n.Content[i].Decode(dst); err != nil {
			return errors.Wrapf(err, "register: line %d: element %d", n.Line, i)
		}
	}

	t, err := ParseType(typ)
	if err != nil {
		return errors.Wrapf(err, "register: line %d", n.Line)
	}
	d.Type = t

	def, err := decodeDefault(n.Content[5], t)
	if err != nil {
		return errors.Wrapf(err, "register: line %d: default of %q", n.Line, d.Name)
	}
	d.Default = def

	if len(n.Content) == 8 {
		if err := n.Content[6].Decode(&d.Unit); err != nil {
			return errors.Wrapf(err, "register: line %d: unit", n.Line)
		}
		if err := n.Content[7].Decode(&d.Description); err != nil {
			return errors.Wrapf(err, "register: line %d: description", n.Line)
		}
	}
	return nil
}

func decodeDefault(n *yaml.Node, t Type) (RawValue, error) {
	switch t {
	case Int16:
		var v int16
		err := n.Decode(&v)
		return Int16Value(v), err
	case Uint16:
		var v uint16
		err := n.Decode(&v)
		return Uint16Value(v), err
	case Int32:
		var v int32
		err := n.Decode(&v)
		return Int32Value(v), err
	case Uint32:
		var v uint32
		err := n.Decode(&v)
		return Uint32Value(v), err
	case Float32:
		var v float32
		err := n.Decode(&v)
		return Float32Value(v), err
	}
	return RawValue{}, errors.Errorf("register: no default for type %s", t)
}
