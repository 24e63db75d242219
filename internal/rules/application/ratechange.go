package application

import (
	"context"
	"errors"
	"fmt"
	"math"

	rules "gridwatch/internal/rules/domain"
	telemetry "gridwatch/internal/telemetry/domain"
)

// PreviousSource provides the reading immediately before the latest one.
type PreviousSource interface {
	Previous(ctx context.Context, assetID string) (*telemetry.Reading, error)
}

// RateChangeEvaluator detects sudden deltas between consecutive
// readings of the same asset.
type RateChangeEvaluator struct {
	readings PreviousSource
}

// NewRateChangeEvaluator constructs a rate-of-change evaluator.
func NewRateChangeEvaluator(readings PreviousSource) (*RateChangeEvaluator, error) {
	if readings == nil {
		return nil, errors.New("rules: nil previous source")
	}
	return &RateChangeEvaluator{readings: readings}, nil
}

// Evaluate compares |current - previous| against the rule threshold.
// The delta is always absolute; the message carries the direction.
func (e *RateChangeEvaluator) Evaluate(ctx context.Context, rule rules.Rule, assetID string, current telemetry.Reading) (rules.EvaluationResult, error) {
	if len(rule.Conditions) == 0 {
		return rules.SkipResult(rules.ReasonNoConditions, "No conditions defined"), nil
	}

	previous, err := e.readings.Previous(ctx, assetID)
	if err != nil {
		return rules.EvaluationResult{}, err
	}
	if previous == nil {
		return rules.SkipResult(rules.ReasonNoPreviousReading, "No previous reading available"), nil
	}

	condition := rule.Conditions[0]
	currentValue, okCurrent := rules.ResolveParameter(condition.Parameter, current)
	previousValue, okPrevious := rules.ResolveParameter(condition.Parameter, *previous)
	if !okCurrent || !okPrevious {
		return rules.SkipResult(rules.ReasonMissingData, fmt.Sprintf("Missing data for %s", condition.Parameter)), nil
	}

	change := math.Abs(currentValue - previousValue)
	direction := "decrease"
	if currentValue > previousValue {
		direction = "increase"
	}

	triggered := condition.Operator.Compare(change, condition.Value)
	message := fmt.Sprintf("%s %s of %.2f%s", condition.Parameter, direction, change, condition.Unit)
	if triggered {
		message = fmt.Sprintf("ALERT: %s exceeds threshold %g%s", message, condition.Value, condition.Unit)
	}

	return rules.EvaluationResult{
		Triggered:    triggered,
		Value:        rules.Float(change),
		Threshold:    rules.Float(condition.Value),
		RateOfChange: rules.Float(change),
		Message:      message,
	}, nil
}
