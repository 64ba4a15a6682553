// internal/device/helpers.go
package device

import "github.com/tamzrod/modbus-gateway/internal/register"

// Table shorthands. Each returns a descriptor with WordCount implied by type.

func i16(name string, addr uint16, scale uint32, def int16, unit, desc string) register.Descriptor {
	return register.Descriptor{
		Name: name, Address: addr, WordCount: 1, Type: register.Int16, Scale: scale,
		Default: register.Int16Value(def), Unit: unit, Description: desc,
	}
}

func u16(name string, addr uint16, scale uint32, def uint16, unit, desc string) register.Descriptor {
	return register.Descriptor{
		Name: name, Address: addr, WordCount: 1, Type: register.Uint16, Scale: scale,
		Default: register.Uint16Value(def), Unit: unit, Description: desc,
	}
}

func i32(name string, addr uint16, scale uint32, unit, desc string) register.Descriptor {
	return register.Descriptor{
		Name: name, Address: addr, WordCount: 2, Type: register.Int32, Scale: scale,
		Default: register.Int32Value(0), Unit: unit, Description: desc,
	}
}

func u32(name string, addr uint16, def uint32, unit, desc string) register.Descriptor {
	return register.Descriptor{
		Name: name, Address: addr, WordCount: 2, Type: register.Uint32, Scale: 1,
		Default: register.Uint32Value(def), Unit: unit, Description: desc,
	}
}

func f32(name string, addr uint16, unit, desc string) register.Descriptor {
	return register.Descriptor{
		Name: name, Address: addr, WordCount: 2, Type: register.Float32, Scale: 1,
		Default: register.Float32Value(0), Unit: unit, Description: desc,
	}
}
