// internal/device/em24.go
package device

import "github.com/tamzrod/modbus-gateway/internal/register"

// EM24Name is the schema name of the Carlo Gavazzi EM24 source meter.
const EM24Name = "em24"

// EM24Blocks returns the EM24 input register map.
// The meter is read with FC4; 32-bit values are low word first.
func EM24Blocks() []register.Block {
	return []register.Block{
		{Name: "dynamic", Descriptors: []register.Descriptor{
			i32("l1_voltage", 0x0000, 10, "V", "L1 Voltage"),
			i32("l2_voltage", 0x0002, 10, "V", "L2 Voltage"),
			i32("l3_voltage", 0x0004, 10, "V", "L3 Voltage"),
			i32("l12_voltage", 0x0006, 10, "V", "L1-L2 Voltage"),
			i32("l23_voltage", 0x0008, 10, "V", "L2-L3 Voltage"),
			i32("l31_voltage", 0x000a, 10, "V", "L3-L1 Voltage"),
			i32("l1_current", 0x000c, 1000, "A", "L1 Current"),
			i32("l2_current", 0x000e, 1000, "A", "L2 Current"),
			i32("l3_current", 0x0010, 1000, "A", "L3 Current"),
			i32("l1_power_active", 0x0012, 10, "W", "L1 Power (Active)"),
			i32("l2_power_active", 0x0014, 10, "W", "L2 Power (Active)"),
			i32("l3_power_active", 0x0016, 10, "W", "L3 Power (Active)"),
			i32("l1_power_apparent", 0x0018, 10, "VA", "L1 Power (Apparent)"),
			i32("l2_power_apparent", 0x001a, 10, "VA", "L2 Power (Apparent)"),
			i32("l3_power_apparent", 0x001c, 10, "VA", "L3 Power (Apparent)"),
			i32("l1_power_reactive", 0x001e, 10, "VAr", "L1 Power (Reactive)"),
			i32("l2_power_reactive", 0x0020, 10, "VAr", "L2 Power (Reactive)"),
			i32("l3_power_reactive", 0x0022, 10, "VAr", "L3 Power (Reactive)"),
			i32("voltage_ln", 0x0024, 10, "V", "L-N Voltage"),
			i32("voltage_ll", 0x0026, 10, "V", "L-L Voltage"),
			i32("power_active", 0x0028, 10, "W", "Total Power (Active)"),
			i32("power_apparent", 0x002a, 10, "VA", "Total Power (Apparent)"),
			i32("power_reactive", 0x002c, 10, "VAr", "Total Power (Reactive)"),
			i16("l1_power_factor", 0x002e, 1000, 0, "", "L1 Power Factor"),
			i16("l2_power_factor", 0x002f, 1000, 0, "", "L2 Power Factor"),
			i16("l3_power_factor", 0x0030, 1000, 0, "", "L3 Power Factor"),
			i16("total_pf", 0x0031, 1000, 0, "", "Total Power Factor"),
			i16("phase_sequence", 0x0032, 1, 0, "", "Phase Sequence"),
			u16("frequency", 0x0033, 10, 0, "Hz", "Frequency"),
		}},
		{Name: "energy", Descriptors: []register.Descriptor{
			i32("import_energy_active", 0x0034, 10, "kWh", "Imported Energy (Active)"),
			i32("import_energy_reactive", 0x0036, 10, "kvarh", "Imported Energy (Reactive)"),
			i32("demand_power_active", 0x0038, 10, "W", "Demand Power Active"),
			i32("maximum_demand_power_active", 0x003a, 10, "W", "Maximum Demand Power Active"),
			i32("import_energy_active_partial", 0x003c, 10, "kWh", "Partial imported Energy (Active)"),
			i32("import_energy_reactive_partial", 0x003e, 10, "kvarh", "Partial imported Energy (Reactive)"),
			i32("l1_import_energy_active", 0x0040, 10, "kWh", "L1 Imported Energy (Active)"),
			i32("l2_import_energy_active", 0x0042, 10, "kWh", "L2 Imported Energy (Active)"),
			i32("l3_import_energy_active", 0x0044, 10, "kWh", "L3 Imported Energy (Active)"),
			i32("t1_import_energy", 0x0046, 10, "kWh", "Tariff 1 imported energy (Active)"),
			i32("t2_import_energy", 0x0048, 10, "kWh", "Tariff 2 imported energy (Active)"),
			i32("t3_import_energy", 0x004a, 10, "kWh", "Tariff 3 imported energy (Active)"),
			i32("t4_import_energy", 0x004c, 10, "kWh", "Tariff 4 imported energy (Active)"),
			i32("export_energy_active", 0x004e, 10, "kWh", "Exported Energy (Active)"),
			i32("export_energy_reactive", 0x0050, 10, "kvarh", "Exported Energy (Reactive)"),
		}},
		{Name: "time", Descriptors: []register.Descriptor{
			i32("hour", 0x005a, 100, "hour", "Hour"),
		}},
		{Name: "tariff", Descriptors: []register.Descriptor{
			i32("t1_import_reactive", 0x006e, 10, "kvarh", "Tariff 1 imported energy (Reactive)"),
			i32("t2_import_reactive", 0x0070, 10, "kvarh", "Tariff 2 imported energy (Reactive)"),
			i32("t3_import_reactive", 0x0072, 10, "kvarh", "Tariff 3 imported energy (Reactive)"),
			i32("t4_import_reactive", 0x0074, 10, "kvarh", "Tariff 4 imported energy (Reactive)"),
			i32("demand_power_apparent", 0x0076, 10, "VA", "Demand Power (Apparent)"),
			i32("maximum_demand_power_apparent", 0x0078, 10, "VA", "Maximum Demand Power (Apparent)"),
			i32("maximum_demand_current", 0x007a, 1000, "A", "Maximum Demand current (Active)"),
		}},
	}
}
