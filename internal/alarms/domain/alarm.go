package alarms

import "time"

const (
	StatusActive       = "active"
	StatusAcknowledged = "acknowledged"
	StatusResolved     = "resolved"
	StatusArchived     = "archived"
)

// Alarm represents an alarm instance raised from a rule evaluation.
type Alarm struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	Site            string    `json:"site"`
	Region          string    `json:"region"`
	Severity        string    `json:"severity"`
	Category        string    `json:"category"`
	Message         string    `json:"message"`
	Status          string    `json:"status"`
	RuleID          string    `json:"rule_id"`
	AssetID         string    `json:"asset_id"`
	ConditionsMet   int       `json:"conditions_met,omitempty"`
	TotalConditions int       `json:"total_conditions,omitempty"`
	Samples         int       `json:"samples,omitempty"`
	RateOfChange    *float64  `json:"rate_of_change,omitempty"`
	AcknowledgedAt  time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy  string    `json:"acknowledged_by,omitempty"`
	ResolvedAt      time.Time `json:"resolved_at,omitempty"`
	ResolvedBy      string    `json:"resolved_by,omitempty"`
	ResolutionNotes string    `json:"resolution_notes,omitempty"`
	ArchivedAt      time.Time `json:"archived_at,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ValidStatus reports whether the status is a known lifecycle state.
func ValidStatus(status string) bool {
	switch status {
	case StatusActive, StatusAcknowledged, StatusResolved, StatusArchived:
		return true
	}
	return false
}

// Open reports whether the status still counts for deduplication.
func Open(status string) bool {
	return status == StatusActive || status == StatusAcknowledged
}

// Terminal reports whether the status permits no further transitions.
func Terminal(status string) bool {
	return status == StatusResolved || status == StatusArchived
}

// CanTransition reports whether an alarm may move between two statuses.
// The lifecycle only moves forward: active, acknowledged, then resolved.
// Archiving is reachable from either open status and skips resolved.
func CanTransition(from, to string) bool {
	switch from {
	case StatusActive:
		return to == StatusAcknowledged || to == StatusResolved || to == StatusArchived
	case StatusAcknowledged:
		return to == StatusResolved || to == StatusArchived
	}
	return false
}

// Fingerprint identifies "the same" alarm condition for deduplication.
// At most one open alarm may exist per fingerprint.
func Fingerprint(assetID, ruleID, severity string) string {
	return assetID + "|" + ruleID + "|" + severity
}

// ListFilter narrows alarm queries. Zero values mean "no filter".
type ListFilter struct {
	Status          string
	Severity        string
	Category        string
	Site            string
	From            time.Time
	To              time.Time
	IncludeArchived bool
}
