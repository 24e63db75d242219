package rules

// Rule categories as they appear in the operations threshold workbook.
const (
	CategoryFuelSensor  = "Fuel Sensor"
	CategoryGridACEM    = "Grid ACEM"
	CategoryGenACEM     = "Gen ACEM"
	CategoryBattery     = "Battery"
	CategorySolar       = "Solar"
	CategoryTemperature = "Temperature Sensor"
	CategoryPowerAlarms = "Power Alarms"
	CategoryPowerStatus = "Power Status"
	CategoryTenant      = "Tenant"
)

// BuiltinRules returns the default rule catalog. Thresholds mirror the
// operations threshold workbook: 174 V phase availability, 46 V battery
// floor, a +-3 A float band, 0.6 kW power-state detection, 45-55 Hz
// frequency bands and the 3-day tenant-load baselines.
func BuiltinRules() []Rule {
	return []Rule{
		// Fuel
		{
			ID: "fuel_low", Name: "Fuel Low", Description: "When Fuel Level is <= 10 cm",
			Category: CategoryFuelSensor, Severity: SeverityCritical, Type: TypeSimple, Enabled: true,
			Conditions: []Condition{{Parameter: "fuel_level", Operator: OperatorLessOrEqual, Value: 10, Unit: "cm"}},
		},
		{
			ID: "fuel_drop", Name: "Fuel Drop", Description: "When Fuel Level Drop more than 10L at once",
			Category: CategoryFuelSensor, Severity: SeverityWarning, Type: TypeRateChange, Enabled: true,
			Conditions: []Condition{{Parameter: "fuel_level", Operator: OperatorGreater, Value: 10, Unit: "L"}},
		},
		{
			ID: "refuel", Name: "Refuel", Description: "When there is increase in Fuel Level >= 20L",
			Category: CategoryFuelSensor, Severity: SeverityInfo, Type: TypeRateChange, Enabled: true,
			Conditions: []Condition{{Parameter: "fuel_level", Operator: OperatorGreaterOrEqual, Value: 20, Unit: "L"}},
		},

		// Grid
		{
			ID: "grid_available", Name: "Grid Available", Description: "When one or more phase voltages >= 174V",
			Category: CategoryGridACEM, Severity: SeverityInfo, Type: TypeSimple, Enabled: true,
			Conditions: []Condition{{Parameter: "voltage", Operator: OperatorGreaterOrEqual, Value: 174, Unit: "V"}},
		},
		{
			ID: "grid_not_available", Name: "Grid Not Available", Description: "When All phase voltages < 174V",
			Category: CategoryGridACEM, Severity: SeverityCritical, Type: TypeSimple, Enabled: true,
			Conditions: []Condition{{Parameter: "voltage", Operator: OperatorLess, Value: 174, Unit: "V"}},
		},
		{
			ID: "grid_low_phase", Name: "Grid Low Phase Voltage", Description: "When one or two phase voltages < 174V",
			Category: CategoryGridACEM, Severity: SeverityWarning, Type: TypeSimple, Enabled: true,
			Conditions: []Condition{{Parameter: "voltage", Operator: OperatorLess, Value: 174, Unit: "V"}},
		},
		{
			ID: "grid_high_frequency", Name: "Grid High Frequency", Description: "When Grid Frequency > 55 Hz",
			Category: CategoryGridACEM, Severity: SeverityWarning, Type: TypeSimple, Enabled: true,
			Conditions: []Condition{{Parameter: "grid_frequency", Operator: OperatorGreater, Value: 55, Unit: "Hz"}},
		},
		{
			ID: "grid_low_frequency", Name: "Grid Low Frequency", Description: "When Grid Frequency < 45 Hz and Grid is Available",
			Category: CategoryGridACEM, Severity: SeverityWarning, Type: TypeSimple, Enabled: true,
			Conditions: []Condition{{Parameter: "grid_frequency", Operator: OperatorLess, Value: 45, Unit: "Hz"}},
		},
		{
			ID: "grid_on_load", Name: "Grid Available and on Load", Description: "Voltage >= 174V AND Current > 3A",
			Category: CategoryGridACEM, Severity: SeverityInfo, Type: TypeComposite, Enabled: true, LogicalOperator: LogicalAnd,
			Conditions: []Condition{
				{Parameter: "voltage", Operator: OperatorGreaterOrEqual, Value: 174, Unit: "V"},
				{Parameter: "current_sum", Operator: OperatorGreater, Value: 3, Unit: "A"},
			},
		},
		{
			ID: "grid_available_not_on_load", Name: "Grid Available But Not on Load", Description: "Voltage >= 174V AND Current < 3A",
			Category: CategoryGridACEM, Severity: SeverityInfo, Type: TypeComposite, Enabled: true, LogicalOperator: LogicalAnd,
			Conditions: []Condition{
				{Parameter: "voltage", Operator: OperatorGreaterOrEqual, Value: 174, Unit: "V"},
				{Parameter: "current_sum", Operator: OperatorLess, Value: 3, Unit: "A"},
			},
		},

		// Battery
		{
			ID: "battery_low", Name: "Battery Low", Description: "When Battery Voltage <= 46V",
			Category: CategoryBattery, Severity: SeverityCritical, Type: TypeSimple, Enabled: true,
			Conditions: []Condition{{Parameter: "battery_voltage", Operator: OperatorLessOrEqual, Value: 46, Unit: "V"}},
		},
		{
			ID: "battery_discharge", Name: "Battery Discharge", Description: "When Battery Current is < -3A",
			Category: CategoryBattery, Severity: SeverityInfo, Type: TypeSimple, Enabled: true,
			Conditions: []Condition{{Parameter: "battery_current", Operator: OperatorLess, Value: -3, Unit: "A"}},
		},
		{
			ID: "battery_charge", Name: "Battery Charge", Description: "When Battery Current is > 3A",
			Category: CategoryBattery, Severity: SeverityInfo, Type: TypeSimple, Enabled: true,
			Conditions: []Condition{{Parameter: "battery_current", Operator: OperatorGreater, Value: 3, Unit: "A"}},
		},
		{
			ID: "battery_floating", Name: "Battery Floating", Description: "When -3 <= Battery Current <= 3A",
			Category: CategoryBattery, Severity: SeverityInfo, Type: TypeComposite, Enabled: true, LogicalOperator: LogicalAnd,
			Conditions: []Condition{
				{Parameter: "battery_current", Operator: OperatorGreaterOrEqual, Value: -3, Unit: "A"},
				{Parameter: "battery_current", Operator: OperatorLessOrEqual, Value: 3, Unit: "A"},
			},
		},

		// Solar
		{
			ID: "solar_on", Name: "Solar On", Description: "Solar Current >= 5A",
			Category: CategorySolar, Severity: SeverityInfo, Type: TypeSimple, Enabled: true,
			Conditions: []Condition{{Parameter: "solar_current", Operator: OperatorGreaterOrEqual, Value: 5, Unit: "A"}},
		},
		{
			ID: "solar_off", Name: "Solar Off", Description: "Solar Current < 5A",
			Category: CategorySolar, Severity: SeverityInfo, Type: TypeSimple, Enabled: true,
			Conditions: []Condition{{Parameter: "solar_current", Operator: OperatorLess, Value: 5, Unit: "A"}},
		},

		// Generator
		{
			ID: "gen_on", Name: "Gen On", Description: "When one or more phase voltages >= 174V",
			Category: CategoryGenACEM, Severity: SeverityInfo, Type: TypeSimple, Enabled: true,
			Conditions: []Condition{{Parameter: "gen_voltage", Operator: OperatorGreaterOrEqual, Value: 174, Unit: "V"}},
		},
		{
			ID: "gen_off", Name: "Gen Off", Description: "When All phase voltages < 174V",
			Category: CategoryGenACEM, Severity: SeverityInfo, Type: TypeSimple, Enabled: true,
			Conditions: []Condition{{Parameter: "gen_voltage", Operator: OperatorLess, Value: 174, Unit: "V"}},
		},
		{
			ID: "gen_low_phase", Name: "Gen Low Phase Voltage", Description: "When one or more phase voltages < 174V and > 0V",
			Category: CategoryGenACEM, Severity: SeverityWarning, Type: TypeComposite, Enabled: true, LogicalOperator: LogicalAnd,
			Conditions: []Condition{
				{Parameter: "gen_voltage", Operator: OperatorLess, Value: 174, Unit: "V"},
				{Parameter: "gen_voltage", Operator: OperatorGreater, Value: 0, Unit: "V"},
			},
		},
		{
			ID: "gen_high_frequency", Name: "Gen High Frequency", Description: "When Gen Frequency > 55 Hz",
			Category: CategoryGenACEM, Severity: SeverityWarning, Type: TypeSimple, Enabled: true,
			Conditions: []Condition{{Parameter: "gen_frequency", Operator: OperatorGreater, Value: 55, Unit: "Hz"}},
		},
		{
			ID: "gen_low_frequency", Name: "Gen Low Frequency", Description: "When Gen Frequency < 45 Hz",
			Category: CategoryGenACEM, Severity: SeverityWarning, Type: TypeSimple, Enabled: true,
			Conditions: []Condition{{Parameter: "gen_frequency", Operator: OperatorLess, Value: 45, Unit: "Hz"}},
		},
		{
			ID: "gen_on_load", Name: "Gen on Load", Description: "Gen Voltage >= 174V AND Current > 3A",
			Category: CategoryGenACEM, Severity: SeverityInfo, Type: TypeComposite, Enabled: true, LogicalOperator: LogicalAnd,
			Conditions: []Condition{
				{Parameter: "gen_voltage", Operator: OperatorGreaterOrEqual, Value: 174, Unit: "V"},
				{Parameter: "gen_current", Operator: OperatorGreater, Value: 3, Unit: "A"},
			},
		},
		{
			ID: "gen_on_not_on_load", Name: "Gen On but Not on Load", Description: "Gen Voltage >= 174V AND Current < 3A",
			Category: CategoryGenACEM, Severity: SeverityInfo, Type: TypeComposite, Enabled: true, LogicalOperator: LogicalAnd,
			Conditions: []Condition{
				{Parameter: "gen_voltage", Operator: OperatorGreaterOrEqual, Value: 174, Unit: "V"},
				{Parameter: "gen_current", Operator: OperatorLess, Value: 3, Unit: "A"},
			},
		},

		// Temperature
		{
			ID: "high_temperature", Name: "High Temperature", Description: "When temperature > 30 Degrees C",
			Category: CategoryTemperature, Severity: SeverityWarning, Type: TypeSimple, Enabled: true,
			Conditions: []Condition{{Parameter: "temperature", Operator: OperatorGreater, Value: 30, Unit: "°C"}},
		},

		// Power
		{
			ID: "site_down", Name: "Site Down", Description: "Rectifier with No Power",
			Category: CategoryPowerAlarms, Severity: SeverityCritical, Type: TypeSimple, Enabled: true,
			Conditions: []Condition{{Parameter: "rectifier_power", Operator: OperatorEqual, Value: 0, Unit: "KW"}},
		},
		{
			ID: "site_on_grid", Name: "Site on Grid", Description: "Grid > 0.6KW AND Battery = 0 AND Gen = 0 AND Solar = 0",
			Category: CategoryPowerStatus, Severity: SeverityInfo, Type: TypeComposite, Enabled: true, LogicalOperator: LogicalAnd,
			Conditions: []Condition{
				{Parameter: "grid_power", Operator: OperatorGreater, Value: 0.6, Unit: "KW"},
				{Parameter: "battery_power", Operator: OperatorEqual, Value: 0, Unit: "KW"},
				{Parameter: "gen_power", Operator: OperatorEqual, Value: 0, Unit: "KW"},
				{Parameter: "solar_power", Operator: OperatorEqual, Value: 0, Unit: "KW"},
			},
		},
		{
			ID: "site_on_battery", Name: "Site on Battery", Description: "Battery >= 0.6KW AND Grid = 0 AND Gen = 0 AND Solar = 0",
			Category: CategoryPowerStatus, Severity: SeverityInfo, Type: TypeComposite, Enabled: true, LogicalOperator: LogicalAnd,
			Conditions: []Condition{
				{Parameter: "grid_power", Operator: OperatorEqual, Value: 0, Unit: "KW"},
				{Parameter: "battery_power", Operator: OperatorGreaterOrEqual, Value: 0.6, Unit: "KW"},
				{Parameter: "gen_power", Operator: OperatorEqual, Value: 0, Unit: "KW"},
				{Parameter: "solar_power", Operator: OperatorEqual, Value: 0, Unit: "KW"},
			},
		},
		{
			ID: "site_on_generator", Name: "Site on Generator", Description: "Gen >= 0.6KW AND Grid = 0 AND Battery = 0 AND Solar = 0",
			Category: CategoryPowerStatus, Severity: SeverityInfo, Type: TypeComposite, Enabled: true, LogicalOperator: LogicalAnd,
			Conditions: []Condition{
				{Parameter: "grid_power", Operator: OperatorEqual, Value: 0, Unit: "KW"},
				{Parameter: "battery_power", Operator: OperatorEqual, Value: 0, Unit: "KW"},
				{Parameter: "gen_power", Operator: OperatorGreaterOrEqual, Value: 0.6, Unit: "KW"},
				{Parameter: "solar_power", Operator: OperatorEqual, Value: 0, Unit: "KW"},
			},
		},
		{
			ID: "site_on_solar_with_grid", Name: "Site on Solar with Grid", Description: "Solar >= 0.6KW AND Grid >= 0.6KW AND Battery = 0 AND Gen = 0",
			Category: CategoryPowerStatus, Severity: SeverityInfo, Type: TypeComposite, Enabled: true, LogicalOperator: LogicalAnd,
			Conditions: []Condition{
				{Parameter: "grid_power", Operator: OperatorGreaterOrEqual, Value: 0.6, Unit: "KW"},
				{Parameter: "battery_power", Operator: OperatorEqual, Value: 0, Unit: "KW"},
				{Parameter: "gen_power", Operator: OperatorEqual, Value: 0, Unit: "KW"},
				{Parameter: "solar_power", Operator: OperatorGreaterOrEqual, Value: 0.6, Unit: "KW"},
			},
		},
		{
			ID: "site_on_solar_with_battery", Name: "Site on Solar with Battery", Description: "Solar >= 0.6KW AND Battery >= 0.6KW AND Grid = 0 AND Gen = 0",
			Category: CategoryPowerStatus, Severity: SeverityInfo, Type: TypeComposite, Enabled: true, LogicalOperator: LogicalAnd,
			Conditions: []Condition{
				{Parameter: "grid_power", Operator: OperatorEqual, Value: 0, Unit: "KW"},
				{Parameter: "battery_power", Operator: OperatorGreaterOrEqual, Value: 0.6, Unit: "KW"},
				{Parameter: "gen_power", Operator: OperatorEqual, Value: 0, Unit: "KW"},
				{Parameter: "solar_power", Operator: OperatorGreaterOrEqual, Value: 0.6, Unit: "KW"},
			},
		},
		{
			ID: "site_on_solar_with_generator", Name: "Site on Solar with Generator", Description: "Solar >= 0.6KW AND Gen >= 0.6KW AND Grid = 0 AND Battery = 0",
			Category: CategoryPowerStatus, Severity: SeverityInfo, Type: TypeComposite, Enabled: true, LogicalOperator: LogicalAnd,
			Conditions: []Condition{
				{Parameter: "grid_power", Operator: OperatorEqual, Value: 0, Unit: "KW"},
				{Parameter: "battery_power", Operator: OperatorEqual, Value: 0, Unit: "KW"},
				{Parameter: "gen_power", Operator: OperatorGreaterOrEqual, Value: 0.6, Unit: "KW"},
				{Parameter: "solar_power", Operator: OperatorGreaterOrEqual, Value: 0.6, Unit: "KW"},
			},
		},

		// Tenant load baselines
		{
			ID: "tenant_down", Name: "Tenant Down", Description: "Tenant Consumption Average Last 3 Days < 50%",
			Category: CategoryTenant, Severity: SeverityCritical, Type: TypeHistorical, Enabled: true,
			WindowMinutes: 4320, Aggregation: AggregateAvg,
			Conditions: []Condition{{Parameter: "tenant_consumption", Operator: OperatorLess, Value: 50, Unit: "%"}},
		},
		{
			ID: "load_increase", Name: "Load Increase", Description: "Tenant Consumption Last 3 Days > 115%",
			Category: CategoryTenant, Severity: SeverityWarning, Type: TypeHistorical, Enabled: true,
			WindowMinutes: 4320, Aggregation: AggregateAvg,
			Conditions: []Condition{{Parameter: "tenant_consumption", Operator: OperatorGreater, Value: 115, Unit: "%"}},
		},
	}
}
