package application

import (
	"testing"

	rules "gridwatch/internal/rules/domain"
)

func TestSimpleEvaluatorTriggered(t *testing.T) {
	rule := simpleRule("batt-low", "Battery", "battery_voltage", rules.OperatorLess, 46)
	reading := testReading("asset-1", map[string]any{"battery_voltage": 45.0})

	result := SimpleEvaluator{}.Evaluate(rule, reading)
	if !result.Triggered {
		t.Fatal("expected triggered")
	}
	if result.Message != "battery_voltage is 45 V" {
		t.Fatalf("message = %q", result.Message)
	}
	if result.Value == nil || *result.Value != 45 {
		t.Fatalf("value = %v", result.Value)
	}
	if result.Threshold == nil || *result.Threshold != 46 {
		t.Fatalf("threshold = %v", result.Threshold)
	}
}

func TestSimpleEvaluatorClear(t *testing.T) {
	rule := simpleRule("batt-low", "Battery", "battery_voltage", rules.OperatorLess, 46)
	reading := testReading("asset-1", map[string]any{"battery_voltage": 48.5})

	result := SimpleEvaluator{}.Evaluate(rule, reading)
	if result.Triggered || result.Skipped() {
		t.Fatalf("result = %+v, want clear", result)
	}
	if result.Message != "battery_voltage check passed" {
		t.Fatalf("message = %q", result.Message)
	}
}

func TestSimpleEvaluatorNoData(t *testing.T) {
	rule := simpleRule("batt-low", "Battery", "battery_voltage", rules.OperatorLess, 46)
	reading := testReading("asset-1", map[string]any{"fuel_level": 80.0})

	result := SimpleEvaluator{}.Evaluate(rule, reading)
	if !result.Skipped() || result.Reason != rules.ReasonNoData {
		t.Fatalf("result = %+v, want no-data skip", result)
	}
	if result.Message != "No data for battery_voltage" {
		t.Fatalf("message = %q", result.Message)
	}
}

func TestSimpleEvaluatorNoConditions(t *testing.T) {
	rule := rules.Rule{ID: "empty", Name: "empty", Severity: rules.SeverityInfo, Category: "Battery", Type: rules.TypeSimple}

	result := SimpleEvaluator{}.Evaluate(rule, testReading("asset-1", nil))
	if result.Reason != rules.ReasonNoConditions {
		t.Fatalf("reason = %q", result.Reason)
	}
	if result.Message != "No conditions defined" {
		t.Fatalf("message = %q", result.Message)
	}
}

func TestSimpleEvaluatorResolvesAlias(t *testing.T) {
	// Some rectifiers export the DC bus as System_DC_Voltage.
	rule := simpleRule("batt-low", "Battery", "battery_voltage", rules.OperatorLess, 46)
	reading := testReading("asset-1", map[string]any{"System_DC_Voltage": 44.2})

	result := SimpleEvaluator{}.Evaluate(rule, reading)
	if !result.Triggered {
		t.Fatalf("result = %+v, want triggered via alias", result)
	}
}

func compositeRule(name, operator string, conditions ...rules.Condition) rules.Rule {
	return rules.Rule{
		ID:              name,
		Name:            name,
		Severity:        rules.SeverityCritical,
		Category:        "Power Status",
		Type:            rules.TypeComposite,
		Enabled:         true,
		LogicalOperator: operator,
		Conditions:      conditions,
	}
}

func TestCompositeEvaluatorAllMet(t *testing.T) {
	rule := compositeRule("Site Power Failure", rules.LogicalAnd,
		rules.Condition{Parameter: "voltage", Operator: rules.OperatorLess, Value: 100, Unit: "V"},
		rules.Condition{Parameter: "battery_voltage", Operator: rules.OperatorLess, Value: 46, Unit: "V"},
	)
	reading := testReading("asset-1", map[string]any{"voltage": 0.0, "battery_voltage": 45.0})

	result := CompositeEvaluator{}.Evaluate(rule, reading)
	if !result.Triggered {
		t.Fatalf("result = %+v, want triggered", result)
	}
	if result.ConditionsMet != 2 || result.TotalConditions != 2 {
		t.Fatalf("conditions = %d/%d", result.ConditionsMet, result.TotalConditions)
	}
	if result.Message != "Site Power Failure: 2/2 conditions met" {
		t.Fatalf("message = %q", result.Message)
	}
}

func TestCompositeEvaluatorPartial(t *testing.T) {
	rule := compositeRule("Site Power Failure", rules.LogicalAnd,
		rules.Condition{Parameter: "voltage", Operator: rules.OperatorLess, Value: 100, Unit: "V"},
		rules.Condition{Parameter: "battery_voltage", Operator: rules.OperatorLess, Value: 46, Unit: "V"},
	)
	reading := testReading("asset-1", map[string]any{"voltage": 0.0, "battery_voltage": 52.0})

	result := CompositeEvaluator{}.Evaluate(rule, reading)
	if result.Triggered {
		t.Fatalf("result = %+v, want not triggered", result)
	}
	if result.Message != "Site Power Failure: Only 1/2 conditions met" {
		t.Fatalf("message = %q", result.Message)
	}
}

func TestCompositeEvaluatorOrOperator(t *testing.T) {
	rule := compositeRule("Any Supply Loss", rules.LogicalOr,
		rules.Condition{Parameter: "voltage", Operator: rules.OperatorLess, Value: 100, Unit: "V"},
		rules.Condition{Parameter: "gen_voltage", Operator: rules.OperatorLess, Value: 100, Unit: "V"},
	)
	reading := testReading("asset-1", map[string]any{"voltage": 0.0, "gen_voltage": 230.0})

	result := CompositeEvaluator{}.Evaluate(rule, reading)
	if !result.Triggered || result.ConditionsMet != 1 {
		t.Fatalf("result = %+v, want triggered with 1 met", result)
	}
}

func TestCompositeEvaluatorMissingParameterCountsUnmet(t *testing.T) {
	rule := compositeRule("Site Power Failure", rules.LogicalAnd,
		rules.Condition{Parameter: "voltage", Operator: rules.OperatorLess, Value: 100, Unit: "V"},
		rules.Condition{Parameter: "battery_voltage", Operator: rules.OperatorLess, Value: 46, Unit: "V"},
	)
	reading := testReading("asset-1", map[string]any{"voltage": 0.0})

	result := CompositeEvaluator{}.Evaluate(rule, reading)
	if result.Triggered || result.Skipped() {
		t.Fatalf("result = %+v, want unmet without skip", result)
	}
	if result.ConditionsMet != 1 || result.TotalConditions != 2 {
		t.Fatalf("conditions = %d/%d", result.ConditionsMet, result.TotalConditions)
	}
}

func TestCompositeEvaluatorNoConditions(t *testing.T) {
	rule := compositeRule("empty", rules.LogicalAnd)

	result := CompositeEvaluator{}.Evaluate(rule, testReading("asset-1", nil))
	if result.Reason != rules.ReasonNoConditions {
		t.Fatalf("reason = %q", result.Reason)
	}
}
