package application

import (
	"context"
	"errors"
	"fmt"

	rules "gridwatch/internal/rules/domain"
	telemetry "gridwatch/internal/telemetry/domain"
)

// Dispatcher routes a rule to the evaluator for its type.
type Dispatcher struct {
	simple     SimpleEvaluator
	composite  CompositeEvaluator
	historical *HistoricalEvaluator
	rateChange *RateChangeEvaluator
}

// NewDispatcher constructs a dispatcher over the stateful evaluators.
func NewDispatcher(historical *HistoricalEvaluator, rateChange *RateChangeEvaluator) (*Dispatcher, error) {
	if historical == nil {
		return nil, errors.New("rules: nil historical evaluator")
	}
	if rateChange == nil {
		return nil, errors.New("rules: nil rate-change evaluator")
	}
	return &Dispatcher{historical: historical, rateChange: rateChange}, nil
}

// Evaluate runs the rule against the asset's current reading. An
// unknown rule type yields a skipped result, not an error, so one bad
// stored rule cannot poison a pass.
func (d *Dispatcher) Evaluate(ctx context.Context, rule rules.Rule, assetID string, reading telemetry.Reading) (rules.EvaluationResult, error) {
	switch rule.Type {
	case rules.TypeSimple:
		return d.simple.Evaluate(rule, reading), nil
	case rules.TypeComposite:
		return d.composite.Evaluate(rule, reading), nil
	case rules.TypeHistorical:
		return d.historical.Evaluate(ctx, rule, assetID)
	case rules.TypeRateChange:
		return d.rateChange.Evaluate(ctx, rule, assetID, reading)
	default:
		return rules.SkipResult(rules.ReasonUnknownRuleType, fmt.Sprintf("Unknown rule type: %s", rule.Type)), nil
	}
}
