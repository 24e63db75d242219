package rules

import (
	"errors"
	"math"
	"time"
)

// Operator compares an observed value against a rule threshold.
type Operator string

const (
	OperatorLess           Operator = "<"
	OperatorLessOrEqual    Operator = "<="
	OperatorGreater        Operator = ">"
	OperatorGreaterOrEqual Operator = ">="
	OperatorEqual          Operator = "=="
	OperatorNotEqual       Operator = "!="
)

// EqualityEpsilon bounds floating-point equality for == and !=.
const EqualityEpsilon = 0.01

// Valid returns true when the operator is supported.
func (o Operator) Valid() bool {
	switch o {
	case OperatorLess, OperatorLessOrEqual, OperatorGreater, OperatorGreaterOrEqual, OperatorEqual, OperatorNotEqual:
		return true
	default:
		return false
	}
}

// Compare evaluates value against threshold. An unrecognized operator
// compares false instead of failing the evaluation.
func (o Operator) Compare(value, threshold float64) bool {
	switch o {
	case OperatorLess:
		return value < threshold
	case OperatorLessOrEqual:
		return value <= threshold
	case OperatorGreater:
		return value > threshold
	case OperatorGreaterOrEqual:
		return value >= threshold
	case OperatorEqual:
		return math.Abs(value-threshold) < EqualityEpsilon
	case OperatorNotEqual:
		return math.Abs(value-threshold) >= EqualityEpsilon
	default:
		return false
	}
}

// RuleType selects the evaluation strategy for a rule.
type RuleType string

const (
	TypeSimple     RuleType = "simple"
	TypeComposite  RuleType = "composite"
	TypeHistorical RuleType = "historical"
	TypeRateChange RuleType = "rate_change"
)

// Valid returns true when the rule type is a known strategy.
func (t RuleType) Valid() bool {
	switch t {
	case TypeSimple, TypeComposite, TypeHistorical, TypeRateChange:
		return true
	default:
		return false
	}
}

const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

const (
	LogicalAnd = "AND"
	LogicalOr  = "OR"
)

const (
	AggregateAvg = "avg"
	AggregateSum = "sum"
	AggregateMin = "min"
	AggregateMax = "max"
)

const (
	// DefaultWindowMinutes is the trailing history window when a
	// historical rule does not set one (3 days).
	DefaultWindowMinutes = 4320

	// MinHistorySamples is the floor below which a historical rule is
	// skipped so a handful of noisy readings cannot fire a long-window
	// alarm.
	MinHistorySamples = 10
)

const (
	AppliesToAll    = "all"
	AppliesToSite   = "site"
	AppliesToRegion = "region"
)

// Condition is one threshold comparison inside a rule. Immutable once
// loaded.
type Condition struct {
	Parameter string   `json:"parameter"`
	Operator  Operator `json:"operator"`
	Value     float64  `json:"value"`
	Unit      string   `json:"unit,omitempty"`
	Source    string   `json:"source,omitempty"`
}

// Rule is a stored alarm rule definition.
type Rule struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Description     string      `json:"description,omitempty"`
	Severity        string      `json:"severity"`
	Category        string      `json:"category"`
	Type            RuleType    `json:"rule_type"`
	Enabled         bool        `json:"enabled"`
	Conditions      []Condition `json:"conditions"`
	LogicalOperator string      `json:"logical_operator,omitempty"`
	WindowMinutes   int         `json:"time_window_minutes,omitempty"`
	Aggregation     string      `json:"aggregation_type,omitempty"`
	AppliesTo       string      `json:"applies_to,omitempty"`
	SiteID          string      `json:"site_id,omitempty"`
	RegionID        string      `json:"region_id,omitempty"`
	TriggerCount    int         `json:"trigger_count,omitempty"`
	CreatedAt       time.Time   `json:"created_at,omitempty"`
	UpdatedAt       time.Time   `json:"updated_at,omitempty"`
}

// Validate checks rule invariants for storage.
func (r Rule) Validate() error {
	if r.ID == "" {
		return errors.New("rule: empty id")
	}
	if r.Name == "" {
		return errors.New("rule: empty name")
	}
	if !validSeverity(r.Severity) {
		return errors.New("rule: invalid severity")
	}
	if !r.Type.Valid() {
		return errors.New("rule: invalid rule type")
	}
	if len(r.Conditions) == 0 {
		return errors.New("rule: no conditions")
	}
	for _, condition := range r.Conditions {
		if condition.Parameter == "" {
			return errors.New("rule: condition missing parameter")
		}
		if !condition.Operator.Valid() {
			return errors.New("rule: condition has invalid operator")
		}
	}
	return nil
}

// Window returns the trailing history window in minutes, defaulted.
func (r Rule) Window() int {
	if r.WindowMinutes > 0 {
		return r.WindowMinutes
	}
	return DefaultWindowMinutes
}

// AppliesToScope reports whether the rule covers an asset at the given
// site and region. An empty or "all" scope covers everything.
func (r Rule) AppliesToScope(siteID, regionID string) bool {
	switch r.AppliesTo {
	case "", AppliesToAll:
		return true
	case AppliesToSite:
		return r.SiteID == "" || r.SiteID == siteID
	case AppliesToRegion:
		return r.RegionID == "" || r.RegionID == regionID
	default:
		return true
	}
}

func validSeverity(severity string) bool {
	switch severity {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return true
	default:
		return false
	}
}

// RuleStats summarizes the stored catalog.
type RuleStats struct {
	Total      int            `json:"total"`
	ByType     map[string]int `json:"by_type"`
	ByCategory map[string]int `json:"by_category"`
	BySeverity map[string]int `json:"by_severity"`
}
