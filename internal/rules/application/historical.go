package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	rules "gridwatch/internal/rules/domain"
	telemetry "gridwatch/internal/telemetry/domain"
)

// WindowSource provides the trailing reading history for an asset.
type WindowSource interface {
	Window(ctx context.Context, assetID string, minutes int) ([]telemetry.Reading, error)
}

// HistoricalEvaluator aggregates a parameter over a trailing window and
// compares the aggregate against the rule threshold.
type HistoricalEvaluator struct {
	readings WindowSource
}

// NewHistoricalEvaluator constructs a historical evaluator.
func NewHistoricalEvaluator(readings WindowSource) (*HistoricalEvaluator, error) {
	if readings == nil {
		return nil, errors.New("rules: nil window source")
	}
	return &HistoricalEvaluator{readings: readings}, nil
}

// Evaluate fetches the window, aggregates the resolved values and
// compares. Samples always reports the number of readings examined, not
// the number that resolved.
func (e *HistoricalEvaluator) Evaluate(ctx context.Context, rule rules.Rule, assetID string) (rules.EvaluationResult, error) {
	if len(rule.Conditions) == 0 {
		return rules.SkipResult(rules.ReasonNoConditions, "No conditions defined"), nil
	}

	minutes := rule.Window()
	readings, err := e.readings.Window(ctx, assetID, minutes)
	if err != nil {
		return rules.EvaluationResult{}, err
	}
	if len(readings) < rules.MinHistorySamples {
		result := rules.SkipResult(rules.ReasonInsufficientData, fmt.Sprintf("Insufficient data: %d readings", len(readings)))
		result.Samples = len(readings)
		return result, nil
	}

	condition := rule.Conditions[0]
	values := make([]float64, 0, len(readings))
	for _, reading := range readings {
		if value, ok := rules.ResolveParameter(condition.Parameter, reading); ok {
			values = append(values, value)
		}
	}
	if len(values) == 0 {
		result := rules.SkipResult(rules.ReasonNoValidData, fmt.Sprintf("No valid data for %s", condition.Parameter))
		result.Samples = len(readings)
		return result, nil
	}

	aggregate := aggregateValues(values, rule.Aggregation)
	triggered := condition.Operator.Compare(aggregate, condition.Value)

	label := rule.Aggregation
	if label == "" {
		label = rules.AggregateAvg
	}
	message := fmt.Sprintf("%s %s over %dh: %.2f%s",
		strings.ToUpper(label), condition.Parameter, minutes/60, aggregate, condition.Unit)

	return rules.EvaluationResult{
		Triggered: triggered,
		Value:     rules.Float(aggregate),
		Threshold: rules.Float(condition.Value),
		Samples:   len(readings),
		Message:   message,
	}, nil
}

// aggregateValues folds values; an unrecognized aggregation falls back
// to the average.
func aggregateValues(values []float64, aggregation string) float64 {
	switch aggregation {
	case rules.AggregateSum:
		return sum(values)
	case rules.AggregateMin:
		minimum := values[0]
		for _, v := range values[1:] {
			if v < minimum {
				minimum = v
			}
		}
		return minimum
	case rules.AggregateMax:
		maximum := values[0]
		for _, v := range values[1:] {
			if v > maximum {
				maximum = v
			}
		}
		return maximum
	default:
		return sum(values) / float64(len(values))
	}
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
