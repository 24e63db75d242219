package rules

import (
	telemetry "gridwatch/internal/telemetry/domain"
)

// parameterAliases maps a logical rule parameter to the raw field names
// it may appear under, in probe order. Sensor firmware variants disagree
// on naming, so resolution walks the candidates until one parses. The
// grid and generator tables deliberately share the generic "voltage" and
// "frequency" fallbacks; a reading that carries both meters under
// generic names resolves to whichever field its rule's alias list
// reaches first.
var parameterAliases = map[string][]string{
	// Fuel
	"fuel_level": {"fuel_level", "diesel_deep_cm"},
	"fuel_drop":  {"fuel_level"},

	// Grid
	"voltage":        {"voltage", "voltage_l1", "voltage_l2", "voltage_l3", "grid_voltage"},
	"voltage_l1":     {"voltage_l1", "voltage_phase_1"},
	"voltage_l2":     {"voltage_l2", "voltage_phase_2"},
	"voltage_l3":     {"voltage_l3", "voltage_phase_3"},
	"current_sum":    {"current_total", "load_current", "current_l1_l2_l3_sum"},
	"grid_frequency": {"frequency", "grid_frequency"},
	"grid_power":     {"grid_power_kw", "ac_power"},

	// Battery
	"battery_voltage": {"battery_voltage", "dc_voltage", "System_DC_Voltage"},
	"battery_current": {"battery_current", "dc_current", "System_DC_Current"},
	"battery_power":   {"battery_power_kw", "dc_power"},

	// Solar
	"solar_current": {"solar_current", "pv_current"},
	"solar_power":   {"solar_power_kw", "pv_power"},

	// Generator
	"gen_voltage":   {"gen_voltage", "generator_voltage", "voltage"},
	"gen_current":   {"gen_current", "generator_current"},
	"gen_frequency": {"gen_frequency", "generator_frequency", "frequency"},
	"gen_power":     {"gen_power_kw", "generator_power"},

	// Temperature
	"temperature": {"temperature", "ambient_temp", "shelter_temp"},

	// Tenant load
	"tenant_consumption": {"tenant_power", "load_power", "consumption_kw"},

	// Power status
	"rectifier_power": {"rectifier_power", "output_power"},
}

// frequencyParameters take the Hz x10 firmware correction below.
var frequencyParameters = map[string]bool{
	"frequency":      true,
	"grid_frequency": true,
	"gen_frequency":  true,
}

// ResolveParameter extracts a logical parameter value from a raw
// reading. It returns the first alias candidate present with a finite
// numeric value; missing, null and non-numeric fields are skipped. A
// parameter without a registered alias list is tried as a literal field
// key. Frequency values above 100 are divided by 10: some meters report
// Hz x10. Absence is (0, false), never an error.
func ResolveParameter(parameter string, reading telemetry.Reading) (float64, bool) {
	if parameter == "" {
		return 0, false
	}
	aliases, ok := parameterAliases[parameter]
	if !ok {
		aliases = []string{parameter}
	}
	for _, field := range aliases {
		value, ok := reading.Field(field)
		if !ok {
			continue
		}
		if frequencyParameters[parameter] && value > 100 {
			value = value / 10
		}
		return value, true
	}
	return 0, false
}
