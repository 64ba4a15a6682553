// internal/device/wattnode.go
package device

import "github.com/tamzrod/modbus-gateway/internal/register"

// WattNodeName is the schema name of the emulated WattNode meter.
const WattNodeName = "wattnode"

// WattNodeBlocks returns the register map exposed to the downstream master.
// Measurements are float32; configuration and diagnostics are integers.
func WattNodeBlocks() []register.Block {
	return []register.Block{
		{Name: "block0001", Descriptors: []register.Descriptor{
			u16("dummy1", 0, 1, 0, "", "Dummy 1 always returns 0"),
			u16("dummy2", 1, 1, 0, "", "Dummy 2 always returns 0"),
		}},
		{Name: "block1001", Descriptors: []register.Descriptor{
			f32("energy_active", 1000, "kWh", "Total Energy (Active)"),
			f32("import_energy_active", 1002, "kWh", "Imported Total Energy (Active)"),
			f32("energy_active_nr", 1004, "kWh", "Total Energy (Active) NR"),
			f32("import_energy_active_nr", 1006, "kWh", "Imported Total Energy NR (Active)"),
			f32("power_active", 1008, "W", "Total Power (Active)"),
			f32("l1_power_active", 1010, "W", "L1 Power (Active)"),
			f32("l2_power_active", 1012, "W", "L2 Power (Active)"),
			f32("l3_power_active", 1014, "W", "L3 Power (Active)"),
			f32("voltage_ln", 1016, "V", "Voltage L-N"),
			f32("l1n_voltage", 1018, "V", "Voltage L1-N"),
			f32("l2n_voltage", 1020, "V", "Voltage L2-N"),
			f32("l3n_voltage", 1022, "V", "Voltage L3-N"),
			f32("voltage_ll", 1024, "V", "Voltage LL"),
			f32("l12_voltage", 1026, "V", "Voltage L1-L2"),
			f32("l23_voltage", 1028, "V", "Voltage L2-L3"),
			f32("l31_voltage", 1030, "V", "Voltage L3-L1"),
			f32("frequency", 1032, "", "Frequency"),
		}},
		{Name: "block1101", Descriptors: []register.Descriptor{
			f32("l1_energy_active", 1100, "kWh", "L1 Energy (Active)"),
			f32("l2_energy_active", 1102, "kWh", "L2 Energy (Active)"),
			f32("l3_energy_active", 1104, "kWh", "L3 Energy (Active)"),
			f32("l1_import_energy_active", 1106, "kWh", "L1 Imported Energy (Active)"),
			f32("l2_import_energy_active", 1108, "kWh", "L2 Imported Energy (Active)"),
			f32("l3_import_energy_active", 1110, "kWh", "L3 Imported Energy (Active)"),
			f32("export_energy_active", 1112, "kWh", "Exported Energy (Active)"),
			f32("export_energy_active_nr", 1114, "kWh", "Exported Energy NR (Active)"),
			f32("l1_export_energy_active", 1116, "kWh", "L1 Exported Energy (Active)"),
			f32("l2_export_energy_active", 1118, "kWh", "L2 Exported Energy (Active)"),
			f32("l3_export_energy_active", 1120, "kWh", "L3 Exported Energy (Active)"),
			f32("energy_reactive", 1122, "kWh", "Energy (Reactive)"),
			f32("l1_energy_reactive", 1124, "kWh", "L1 Energy (Reactive)"),
			f32("l2_energy_reactive", 1126, "kWh", "L2 Energy (Reactive)"),
			f32("l3_energy_reactive", 1128, "kWh", "L3 Energy (Reactive)"),
			f32("energy_apparent", 1130, "kWh", "Energy (Apparent)"),
			f32("l1_energy_apparent", 1132, "kWh", "L1 Energy (Apparent)"),
			f32("l2_energy_apparent", 1134, "kWh", "L2 Energy (Apparent)"),
			f32("l3_energy_apparent", 1136, "kWh", "L3 Energy (Apparent)"),
			f32("power_factor", 1138, "", "Power Factor"),
			f32("l1_power_factor", 1140, "", "L1 Power Factor"),
			f32("l2_power_factor", 1142, "", "L2 Power Factor"),
			f32("l3_power_factor", 1144, "", "L3 Power Factor"),
			f32("power_reactive", 1146, "VAr", "Power (Reactive)"),
			f32("l1_power_reactive", 1148, "VAr", "L1 Power (Reactive)"),
			f32("l2_power_reactive", 1150, "VAr", "L2 Power (Reactive)"),
			f32("l3_power_reactive", 1152, "VAr", "L3 Power (Reactive)"),
			f32("power_apparent", 1154, "VA", "Power (Apparent)"),
			f32("l1_power_apparent", 1156, "VA", "L1 Power (Apparent)"),
			f32("l2_power_apparent", 1158, "VA", "L2 Power (Apparent)"),
			f32("l3_power_apparent", 1160, "VA", "L3 Power (Apparent)"),
			f32("l1_current", 1162, "A", "L1 Current"),
			f32("l2_current", 1164, "A", "L2 Current"),
			f32("l3_current", 1166, "A", "L3 Current"),
			f32("demand_power_active", 1168, "W", "Demand Power (Active)"),
			f32("minimum_demand_power_active", 1170, "W", "Minimum Demand Power (Active)"),
			f32("maximum_demand_power_active", 1172, "W", "Maximum Demand Power (Active)"),
			f32("demand_power_apparent", 1174, "VA", "Demand Power (Apparent)"),
			f32("l1_demand_power_active", 1176, "W", "L1 Demand Power (Active)"),
			f32("l2_demand_power_active", 1178, "W", "L2 Demand Power (Active)"),
			f32("l3_demand_power_active", 1180, "W", "L3 Demand Power (Active)"),
		}},
		{Name: "block1601", Descriptors: []register.Descriptor{
			u32("passcode", 1600, 1234, "", "Passcode"),
			i16("ct_current", 1602, 1, 0, "A", "CT Current"),
			i16("ct_current_l1", 1603, 1, 0, "A", "L1 CT Current"),
			i16("ct_current_l2", 1604, 1, 0, "A", "L2 CT Current"),
			i16("ct_current_l3", 1605, 1, 0, "A", "L3 CT Current"),
			i16("ct_inverted", 1606, 1, 0, "", "CT Inverted"),
			i16("measurement_averaging", 1607, 1, 0, "", "Measurement Averaging"),
			i16("power_scale", 1608, 1, 0, "", "Power Scale"),
			i16("demand_period", 1609, 1, 15, "Minute", "Demand Period"),
			i16("demand_subintervals", 1610, 1, 0, "", "Demand Subintervals"),
			i16("l1_power_energy_adj", 1611, 1, 10000, "", "Power/Energy adjustment l1"),
			i16("l2_power_energy_adj", 1612, 1, 10000, "", "Power/Energy adjustment l2"),
			i16("l3_power_energy_adj", 1613, 1, 10000, "", "Power/Energy adjustment l3"),
			i16("l1_ct_phase_angle_adj", 1614, 1, -1000, "", "L1 CT Phase Angle Adjustment"),
			i16("l2_ct_phase_angle_adj", 1615, 1, -1000, "", "L2 CT Phase Angle Adjustment"),
			i16("l3_ct_phase_angle_adj", 1616, 1, -1000, "", "L3 CT Phase Angle Adjustment"),
			i16("minimum_power_reading", 1617, 1, 0, "", "Minimum Power Reading"),
			i16("phase_offset", 1618, 1, 0, "", "Phase Offset"),
			i16("reset_energy", 1619, 1, 0, "", "Reset Energy"),
			i16("reset_demand", 1620, 1, 0, "", "Reset Demand"),
			i16("current_scale", 1621, 1, 20000, "", "Current Scale"),
			i16("io_pin_mode", 1622, 1, 0, "", "IO Pin Mode"),
		}},
		{Name: "block1651", Descriptors: []register.Descriptor{
			i16("apply_config", 1650, 1, 0, "", "Apply Config"),
			i16("modbus_address", 1651, 1, 0, "", "Modbus Address"),
			i16("baud_rate", 1652, 1, 0, "", "Baud Rate"),
			i16("parity_mode", 1653, 1, 0, "", "Parity Mode"),
			i16("modbus_mode", 1654, 1, 0, "", "Modbus Mode"),
			i16("message_delay", 1655, 10, 0, "ms", "Message Delay"),
		}},
		{Name: "block1700", Descriptors: []register.Descriptor{
			u32("serial_number", 1700, 12345678, "", "Serial Number"),
			u32("uptime", 1702, 0, "s", "Uptime"),
			u32("total_uptime", 1704, 0, "s", "Total Uptime"),
			i16("wattnode_model", 1706, 1, 202, "", "Wattnode Model"),
			i16("firmware_version", 1707, 1, 31, "", "Firmware Version"),
			i16("options", 1708, 1, 0, "", "Options"),
			i16("error_status", 1709, 1, 0, "", "Error Status"),
			i16("power_fail_count", 1710, 1, 0, "", "Power Fail Count"),
			i16("crc_error_count", 1711, 1, 0, "", "CRC Error Count"),
			i16("frame_error_count", 1712, 1, 0, "", "Frame Error Count"),
			i16("packet_error_count", 1713, 1, 0, "", "Packet Error Count"),
			i16("overrun_count", 1714, 1, 0, "", "Overrun Count"),
			i16("error_status_1", 1715, 1, 0, "", "Error Status 1"),
			i16("error_status_2", 1716, 1, 0, "", "Error Status 2"),
			i16("error_status_3", 1717, 1, 0, "", "Error Status 3"),
			i16("error_status_4", 1718, 1, 0, "", "Error Status 4"),
			i16("error_status_5", 1719, 1, 0, "", "Error Status 5"),
			i16("error_status_6", 1720, 1, 0, "", "Error Status 6"),
			i16("error_status_7", 1721, 1, 0, "", "Error Status 7"),
			i16("error_status_8", 1722, 1, 0, "", "Error Status 8"),
		}},
		{Name: "block_1736", Descriptors: []register.Descriptor{
			u32("unknown_1736", 1736, 0, "", "Unknown"),
		}},
		{Name: "block_2127", Descriptors: []register.Descriptor{
			u16("unknown_2127", 2127, 1, 1, "", "Unknown"),
		}},
	}
}
