package rules

// Skip reasons reported on results that never reached a comparison.
const (
	ReasonNoConditions      = "No conditions"
	ReasonNoData            = "No data"
	ReasonInsufficientData  = "Insufficient data"
	ReasonNoValidData       = "No valid data"
	ReasonNoPreviousReading = "No previous reading"
	ReasonMissingData       = "Missing data"
	ReasonUnknownRuleType   = "Unknown rule type"
)

// EvaluationResult is the transient outcome of evaluating one rule
// against one asset. A non-empty Reason marks a skipped evaluation
// rather than a clean pass/fail comparison; skips are never errors.
type EvaluationResult struct {
	Triggered       bool     `json:"triggered"`
	Value           *float64 `json:"value,omitempty"`
	Threshold       *float64 `json:"threshold,omitempty"`
	Message         string   `json:"message"`
	Reason          string   `json:"reason,omitempty"`
	ConditionsMet   int      `json:"conditions_met,omitempty"`
	TotalConditions int      `json:"total_conditions,omitempty"`
	Samples         int      `json:"samples,omitempty"`
	RateOfChange    *float64 `json:"rate_of_change,omitempty"`
}

// Skipped reports whether the evaluation never reached a comparison.
func (r EvaluationResult) Skipped() bool {
	return r.Reason != ""
}

// SkipResult builds a non-triggered result carrying a skip reason.
func SkipResult(reason, message string) EvaluationResult {
	return EvaluationResult{Message: message, Reason: reason}
}

// Float returns a pointer for optional numeric result fields.
func Float(v float64) *float64 {
	return &v
}
