package constants

import "strings"

// VaccineStatus is the urgency state of a vaccine record. It is always derived
// from the record's next due date and the current time, never stored.
type VaccineStatus string

const (
	StatusCompleted VaccineStatus = "completed" // nothing further expected
	StatusPending   VaccineStatus = "pending"   // follow-up due in the future
	StatusOverdue   VaccineStatus = "overdue"   // follow-up date has passed
)

// Importance is the priority tag attached to schedule rules and recommendations.
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

var allImportance = []Importance{ImportanceHigh, ImportanceMedium, ImportanceLow}

// ImportanceValues returns the accepted importance strings in priority order.
func ImportanceValues() []string {
	out := make([]string, len(allImportance))
	for i, v := range allImportance {
		out[i] = string(v)
	}
	return out
}

// ParseImportance canonicalizes s; ok is false for unknown values.
func ParseImportance(s string) (Importance, bool) {
	n := Importance(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range allImportance {
		if n == v {
			return v, true
		}
	}
	return "", false
}

// Rank orders importance for sorting: high=0, medium=1, low=2, unknown=3.
func (i Importance) Rank() int {
	for idx, v := range allImportance {
		if i == v {
			return idx
		}
	}
	return len(allImportance)
}
