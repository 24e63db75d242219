package excel

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	rules "gridwatch/internal/rules/domain"
)

func buildWorkbook(t *testing.T, cells map[string]any) *bytes.Buffer {
	t.Helper()
	file := excelize.NewFile()
	defer file.Close()
	for ref, value := range cells {
		if err := file.SetCellValue("Sheet1", ref, value); err != nil {
			t.Fatalf("set cell %s: %v", ref, err)
		}
	}
	buf, err := file.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestParseThresholdWorkbook(t *testing.T) {
	buf := buildWorkbook(t, map[string]any{
		"B1": "Component", "C1": "Parameter", "D1": "Condition", "E1": "Value", "F1": "Unit",

		"B4": "Fuel Sensor", "C4": "Fuel Low", "D4": "<= 10", "E4": 10, "F4": "%",
		// Continuation row: inherits the fuel component.
		"D5": ">= 20", "E5": 20, "F5": "%",
		"B6": "Battery", "C6": "Battery Voltage Low", "D6": "less than 46", "E6": 46, "F6": "V",
		// No value, skipped.
		"B7": "Grid", "C7": "Grid Note", "D7": "informational",
	})

	parsed, err := Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed) != 3 {
		t.Fatalf("parsed = %d rules, want 3", len(parsed))
	}

	fuel := parsed[0]
	if fuel.Category != "Fuel Sensor" || fuel.Severity != rules.SeverityCritical {
		t.Fatalf("fuel rule = %s/%s", fuel.Category, fuel.Severity)
	}
	if fuel.Type != rules.TypeSimple || !fuel.Enabled {
		t.Fatalf("fuel rule type/enabled = %s/%t", fuel.Type, fuel.Enabled)
	}
	if len(fuel.Conditions) != 1 {
		t.Fatalf("fuel conditions = %d", len(fuel.Conditions))
	}
	condition := fuel.Conditions[0]
	if condition.Parameter != "fuel_level" || condition.Operator != rules.OperatorLessOrEqual {
		t.Fatalf("fuel condition = %s %s", condition.Parameter, condition.Operator)
	}
	if condition.Value != 10 || condition.Unit != "%" || condition.Source != "excel" {
		t.Fatalf("fuel condition = %+v", condition)
	}

	continuation := parsed[1]
	if continuation.Category != "Fuel Sensor" || continuation.Name != "Fuel Low" {
		t.Fatalf("continuation rule = %s/%s", continuation.Category, continuation.Name)
	}
	if continuation.Conditions[0].Operator != rules.OperatorGreaterOrEqual {
		t.Fatalf("continuation operator = %s", continuation.Conditions[0].Operator)
	}

	battery := parsed[2]
	if battery.Category != "Battery" || battery.Conditions[0].Parameter != "battery_voltage" {
		t.Fatalf("battery rule = %s/%s", battery.Category, battery.Conditions[0].Parameter)
	}
	if battery.Conditions[0].Operator != rules.OperatorLess {
		t.Fatalf("battery operator = %s", battery.Conditions[0].Operator)
	}
	if battery.Severity != rules.SeverityCritical {
		t.Fatalf("battery severity = %s", battery.Severity)
	}
}

func TestParseWorkbookValidRules(t *testing.T) {
	buf := buildWorkbook(t, map[string]any{
		"B4": "Temperature", "C4": "Temp High", "D4": " > 45", "E4": 45, "F4": "C",
	})

	parsed, err := Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed) != 1 {
		t.Fatalf("parsed = %d rules, want 1", len(parsed))
	}
	if err := parsed[0].Validate(); err != nil {
		t.Fatalf("imported rule invalid: %v", err)
	}
	if parsed[0].Severity != rules.SeverityWarning {
		t.Fatalf("severity = %s", parsed[0].Severity)
	}
	if parsed[0].Conditions[0].Operator != rules.OperatorGreater {
		t.Fatalf("operator = %s", parsed[0].Conditions[0].Operator)
	}
}

func TestExtractOperator(t *testing.T) {
	cases := []struct {
		text string
		want rules.Operator
	}{
		{">= 45", rules.OperatorGreaterOrEqual},
		{"≥ 45", rules.OperatorGreaterOrEqual},
		{"≤ 10", rules.OperatorLessOrEqual},
		{"Voltage < 174", rules.OperatorLess},
		{"greater than 55", rules.OperatorGreater},
		{"equals 0", rules.OperatorEqual},
		{"between phases", rules.OperatorGreaterOrEqual},
		{"", rules.OperatorGreaterOrEqual},
	}
	for _, tc := range cases {
		if got := extractOperator(tc.text); got != tc.want {
			t.Fatalf("extractOperator(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestComponentCategoryOrder(t *testing.T) {
	cases := map[string]string{
		"Generator Power": "Gen ACEM",
		"Power Alarm":     "Power Alarms",
		"Power Status":    "Power Status",
		"Tenant Load":     "Tenant",
		"Mystery Box":     "Unknown",
	}
	for component, want := range cases {
		if got := componentCategory(component); got != want {
			t.Fatalf("componentCategory(%q) = %s, want %s", component, got, want)
		}
	}
}
