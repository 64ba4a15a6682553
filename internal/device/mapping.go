// internal/device/mapping.go
package device

import "github.com/tamzrod/modbus-gateway/internal/mapper"

// EM24ToWattNode is the default translation table.
// The EM24 has no per-phase export counters, so export is split evenly.
func EM24ToWattNode() []mapper.Mapping {
	return []mapper.Mapping{
		// block1001
		mapper.Sum("energy_active", "import_energy_active", "export_energy_active"),
		mapper.Identity("import_energy_active", "import_energy_active"),
		mapper.Sum("energy_active_nr", "import_energy_active", "export_energy_active"),
		mapper.Identity("import_energy_active_nr", "import_energy_active"),
		mapper.Identity("power_active", "power_active"),
		mapper.Identity("l1_power_active", "l1_power_active"),
		mapper.Identity("l2_power_active", "l2_power_active"),
		mapper.Identity("l3_power_active", "l3_power_active"),
		mapper.Identity("voltage_ln", "voltage_ln"),
		mapper.Identity("l1n_voltage", "l1_voltage"),
		mapper.Identity("l2n_voltage", "l2_voltage"),
		mapper.Identity("l3n_voltage", "l3_voltage"),
		mapper.Identity("voltage_ll", "voltage_ll"),
		mapper.Identity("l12_voltage", "l12_voltage"),
		mapper.Identity("l23_voltage", "l23_voltage"),
		mapper.Identity("l31_voltage", "l31_voltage"),
		mapper.Identity("frequency", "frequency"),

		// block1101
		phaseEnergy("l1_energy_active", "l1_import_energy_active"),
		phaseEnergy("l2_energy_active", "l2_import_energy_active"),
		phaseEnergy("l3_energy_active", "l3_import_energy_active"),
		mapper.Identity("l1_import_energy_active", "l1_import_energy_active"),
		mapper.Identity("l2_import_energy_active", "l2_import_energy_active"),
		mapper.Identity("l3_import_energy_active", "l3_import_energy_active"),
		mapper.Identity("export_energy_active", "export_energy_active"),
		mapper.Identity("export_energy_active_nr", "export_energy_active"),
		mapper.Ratio("l1_export_energy_active", "export_energy_active", 3),
		mapper.Ratio("l2_export_energy_active", "export_energy_active", 3),
		mapper.Ratio("l3_export_energy_active", "export_energy_active", 3),
		mapper.Sum("energy_reactive", "import_energy_reactive", "export_energy_reactive"),
		mapper.Identity("power_factor", "total_pf"),
		mapper.Identity("l1_power_factor", "l1_power_factor"),
		mapper.Identity("l2_power_factor", "l2_power_factor"),
		mapper.Identity("l3_power_factor", "l3_power_factor"),
		mapper.Identity("power_reactive", "power_reactive"),
		mapper.Identity("l1_power_reactive", "l1_power_reactive"),
		mapper.Identity("l2_power_reactive", "l2_power_reactive"),
		mapper.Identity("l3_power_reactive", "l3_power_reactive"),
		mapper.Identity("power_apparent", "power_apparent"),
		mapper.Identity("l1_power_apparent", "l1_power_apparent"),
		mapper.Identity("l2_power_apparent", "l2_power_apparent"),
		mapper.Identity("l3_power_apparent", "l3_power_apparent"),
		mapper.Identity("l1_current", "l1_current"),
		mapper.Identity("l2_current", "l2_current"),
		mapper.Identity("l3_current", "l3_current"),
		mapper.Identity("demand_power_active", "demand_power_active"),
		mapper.Identity("maximum_demand_power_active", "maximum_demand_power_active"),
		mapper.Identity("demand_power_apparent", "demand_power_apparent"),
	}
}

// phaseEnergy is lN import plus a third of total export.
func phaseEnergy(dest, imported string) mapper.Mapping {
	return mapper.Mapping{Dest: dest, Terms: []mapper.Term{
		{Field: imported},
		mapper.Divided("export_energy_active", 3),
	}}
}
