// internal/status/constants.go
package status

// Source meter status block, exposed next to the emulated meter
// registers so the master can tell live values from frozen ones.
// The layout is fixed and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

const (
	// SlotsPerDevice is the size of the block in registers.
	SlotsPerDevice = 20

	SlotHealthCode     = 0
	SlotLastErrorCode  = 1
	SlotSecondsInError = 2 // saturates at 65535

	// Slots 3..10 stay zero.
	SlotReservedStart = 3
	SlotReservedEnd   = 10

	// The device name always occupies the tail of the block,
	// two ASCII bytes per register.
	SlotDeviceNameStart = 11
	SlotDeviceNameSlots = 8
	SlotDeviceNameEnd   = SlotDeviceNameStart + SlotDeviceNameSlots - 1

	DeviceNameMaxChars = 2 * SlotDeviceNameSlots
)

// ---- HEALTH (slot 0) ----

const (
	HealthUnknown  uint16 = iota // no outcome seen since start
	HealthOK                     // last read succeeded
	HealthError                  // last read failed
	HealthStale                  // OK, but no success for too long
	HealthDisabled               // reserved
)

// ---- ERROR CODES (slot 1) ----
// Modbus exceptions are reported as 0x80 | exception code.

const (
	ErrorNone    uint16 = 0
	ErrorGeneric uint16 = 1 // failure without a code of its own
	ErrorTimeout uint16 = 2
	ErrorReset   uint16 = 3 // connection reset after repeated timeouts
)

// Snapshot is exactly what the status block shows.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
}
