// Package schedule compares vaccination history with an immunization table and
// reports which vaccines are due.
package schedule

import "github.com/joseph-ayodele/vaccine-tracker/constants"

// Rule is one row of the immunization table.
type Rule struct {
	Name          string               `json:"name"`
	Description   string               `json:"description"`
	DueAge        int                  `json:"due_age"`        // years
	IntervalYears float64              `json:"interval_years"` // repeat interval
	Importance    constants.Importance `json:"importance"`
}

// DefaultRules returns a fresh copy of the built-in table. Illustrative only, not clinical guidance.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:          "Tetanus",
			Description:   "Tetanus booster shot",
			DueAge:        30,
			IntervalYears: 10,
			Importance:    constants.ImportanceHigh,
		},
		{
			Name:          "Flu Shot",
			Description:   "Annual influenza vaccine",
			DueAge:        0,
			IntervalYears: 1,
			Importance:    constants.ImportanceMedium,
		},
		{
			Name:          "Pneumonia",
			Description:   "Pneumococcal vaccine",
			DueAge:        65,
			IntervalYears: 5,
			Importance:    constants.ImportanceMedium,
		},
	}
}
