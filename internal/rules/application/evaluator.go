package application

import (
	"fmt"

	rules "gridwatch/internal/rules/domain"
	telemetry "gridwatch/internal/telemetry/domain"
)

// SimpleEvaluator checks the first condition of a rule against the
// current reading.
type SimpleEvaluator struct{}

// Evaluate resolves the condition parameter and compares it.
func (SimpleEvaluator) Evaluate(rule rules.Rule, reading telemetry.Reading) rules.EvaluationResult {
	if len(rule.Conditions) == 0 {
		return rules.SkipResult(rules.ReasonNoConditions, "No conditions defined")
	}

	condition := rule.Conditions[0]
	value, ok := rules.ResolveParameter(condition.Parameter, reading)
	if !ok {
		return rules.SkipResult(rules.ReasonNoData, fmt.Sprintf("No data for %s", condition.Parameter))
	}

	triggered := condition.Operator.Compare(value, condition.Value)
	message := fmt.Sprintf("%s check passed", condition.Parameter)
	if triggered {
		message = fmt.Sprintf("%s is %g %s", condition.Parameter, value, condition.Unit)
	}

	return rules.EvaluationResult{
		Triggered: triggered,
		Value:     rules.Float(value),
		Threshold: rules.Float(condition.Value),
		Message:   message,
	}
}

// CompositeEvaluator checks every condition of a rule and combines the
// outcomes with the rule's logical operator.
type CompositeEvaluator struct{}

// Evaluate resolves each condition; an unresolvable parameter counts as
// an unmet condition rather than skipping the rule.
func (CompositeEvaluator) Evaluate(rule rules.Rule, reading telemetry.Reading) rules.EvaluationResult {
	if len(rule.Conditions) == 0 {
		return rules.SkipResult(rules.ReasonNoConditions, "No conditions defined")
	}

	met := 0
	total := len(rule.Conditions)
	for _, condition := range rule.Conditions {
		value, ok := rules.ResolveParameter(condition.Parameter, reading)
		if !ok {
			continue
		}
		if condition.Operator.Compare(value, condition.Value) {
			met++
		}
	}

	var triggered bool
	switch rule.LogicalOperator {
	case rules.LogicalOr:
		triggered = met > 0
	default:
		triggered = met == total
	}

	message := fmt.Sprintf("%s: %d/%d conditions met", rule.Name, met, total)
	if !triggered {
		message = fmt.Sprintf("%s: Only %d/%d conditions met", rule.Name, met, total)
	}

	return rules.EvaluationResult{
		Triggered:       triggered,
		ConditionsMet:   met,
		TotalConditions: total,
		Message:         message,
	}
}
