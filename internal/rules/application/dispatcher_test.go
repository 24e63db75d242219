package application

import (
	"context"
	"testing"

	rules "gridwatch/internal/rules/domain"
)

func newTestDispatcher(t *testing.T, readings *stubReadingSource) *Dispatcher {
	t.Helper()
	dispatcher, err := NewDispatcher(newHistoricalEvaluator(t, readings), newRateChangeEvaluator(t, readings))
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return dispatcher
}

func TestDispatcherRoutesByRuleType(t *testing.T) {
	readings := newStubReadingSource()
	previous := testReading("asset-1", map[string]any{"fuel_level": 80.0})
	readings.previous["asset-1"] = &previous
	readings.windows["asset-1"] = windowReadings("asset-1", "fuel_level", 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15)
	dispatcher := newTestDispatcher(t, readings)
	reading := testReading("asset-1", map[string]any{"fuel_level": 60.0, "battery_voltage": 45.0})

	cases := []struct {
		name string
		rule rules.Rule
		want string
	}{
		{"simple", simpleRule("batt-low", "Battery", "battery_voltage", rules.OperatorLess, 46), "battery_voltage is 45 V"},
		{"composite", compositeRule("Combo", rules.LogicalAnd,
			rules.Condition{Parameter: "battery_voltage", Operator: rules.OperatorLess, Value: 46, Unit: "V"}), "Combo: 1/1 conditions met"},
		{"historical", historicalRule("fuel-trend", "fuel_level", rules.OperatorLess, 20, "%", ""), "AVG fuel_level over 72h: 15.00%"},
		{"rate_change", rateChangeRule("fuel-drop", "fuel_level", 10, "%"), "ALERT: fuel_level decrease of 20.00% exceeds threshold 10%"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := dispatcher.Evaluate(context.Background(), tc.rule, "asset-1", reading)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if !result.Triggered {
				t.Fatalf("result = %+v, want triggered", result)
			}
			if result.Message != tc.want {
				t.Fatalf("message = %q, want %q", result.Message, tc.want)
			}
		})
	}
}

func TestDispatcherUnknownRuleType(t *testing.T) {
	dispatcher := newTestDispatcher(t, newStubReadingSource())

	rule := simpleRule("odd", "Battery", "battery_voltage", rules.OperatorLess, 46)
	rule.Type = rules.RuleType("predictive")
	result, err := dispatcher.Evaluate(context.Background(), rule, "asset-1", testReading("asset-1", nil))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Reason != rules.ReasonUnknownRuleType {
		t.Fatalf("reason = %q", result.Reason)
	}
	if result.Message != "Unknown rule type: predictive" {
		t.Fatalf("message = %q", result.Message)
	}
}
