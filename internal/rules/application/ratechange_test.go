package application

import (
	"context"
	"testing"

	rules "gridwatch/internal/rules/domain"
)

func rateChangeRule(id, parameter string, value float64, unit string) rules.Rule {
	return rules.Rule{
		ID:       id,
		Name:     id,
		Severity: rules.SeverityCritical,
		Category: "Fuel",
		Type:     rules.TypeRateChange,
		Enabled:  true,
		Conditions: []rules.Condition{
			{Parameter: parameter, Operator: rules.OperatorGreater, Value: value, Unit: unit},
		},
	}
}

func newRateChangeEvaluator(t *testing.T, readings *stubReadingSource) *RateChangeEvaluator {
	t.Helper()
	evaluator, err := NewRateChangeEvaluator(readings)
	if err != nil {
		t.Fatalf("NewRateChangeEvaluator: %v", err)
	}
	return evaluator
}

func TestRateChangeEvaluatorNoPreviousReading(t *testing.T) {
	evaluator := newRateChangeEvaluator(t, newStubReadingSource())

	result, err := evaluator.Evaluate(context.Background(), rateChangeRule("fuel-drop", "fuel_level", 10, "%"),
		"asset-1", testReading("asset-1", map[string]any{"fuel_level": 60.0}))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Reason != rules.ReasonNoPreviousReading {
		t.Fatalf("reason = %q", result.Reason)
	}
	if result.Message != "No previous reading available" {
		t.Fatalf("message = %q", result.Message)
	}
}

func TestRateChangeEvaluatorMissingData(t *testing.T) {
	readings := newStubReadingSource()
	previous := testReading("asset-1", map[string]any{"temperature": 30.0})
	readings.previous["asset-1"] = &previous
	evaluator := newRateChangeEvaluator(t, readings)

	result, err := evaluator.Evaluate(context.Background(), rateChangeRule("fuel-drop", "fuel_level", 10, "%"),
		"asset-1", testReading("asset-1", map[string]any{"fuel_level": 60.0}))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Reason != rules.ReasonMissingData {
		t.Fatalf("reason = %q", result.Reason)
	}
	if result.Message != "Missing data for fuel_level" {
		t.Fatalf("message = %q", result.Message)
	}
}

func TestRateChangeEvaluatorTriggeredDrop(t *testing.T) {
	readings := newStubReadingSource()
	previous := testReading("asset-1", map[string]any{"fuel_level": 80.0})
	readings.previous["asset-1"] = &previous
	evaluator := newRateChangeEvaluator(t, readings)

	result, err := evaluator.Evaluate(context.Background(), rateChangeRule("fuel-drop", "fuel_level", 10, "%"),
		"asset-1", testReading("asset-1", map[string]any{"fuel_level": 60.0}))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !result.Triggered {
		t.Fatalf("result = %+v, want triggered", result)
	}
	if result.Message != "ALERT: fuel_level decrease of 20.00% exceeds threshold 10%" {
		t.Fatalf("message = %q", result.Message)
	}
	if result.RateOfChange == nil || *result.RateOfChange != 20 {
		t.Fatalf("rate of change = %v", result.RateOfChange)
	}
}

func TestRateChangeEvaluatorSmallIncreaseClear(t *testing.T) {
	readings := newStubReadingSource()
	previous := testReading("asset-1", map[string]any{"fuel_level": 50.0})
	readings.previous["asset-1"] = &previous
	evaluator := newRateChangeEvaluator(t, readings)

	result, err := evaluator.Evaluate(context.Background(), rateChangeRule("fuel-drop", "fuel_level", 10, "%"),
		"asset-1", testReading("asset-1", map[string]any{"fuel_level": 52.0}))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Triggered || result.Skipped() {
		t.Fatalf("result = %+v, want clear", result)
	}
	if result.Message != "fuel_level increase of 2.00%" {
		t.Fatalf("message = %q", result.Message)
	}
	if result.RateOfChange == nil || *result.RateOfChange != 2 {
		t.Fatalf("rate of change = %v", result.RateOfChange)
	}
}
