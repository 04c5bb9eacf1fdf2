package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/vaccine-tracker/internal/entity"
)

// MatchPolicy picks the prior record when several history entries match a rule.
type MatchPolicy string

const (
	// MatchLast keeps the last matching record in history order.
	MatchLast MatchPolicy = "last"
	// MatchLatest keeps the matching record with the most recent date.
	MatchLatest MatchPolicy = "latest"
)

// ParseMatchPolicy accepts "last" or "latest"; empty means MatchLast.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch MatchPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchLast:
		return MatchLast, nil
	case MatchLatest:
		return MatchLatest, nil
	default:
		return "", fmt.Errorf("unknown match policy %q (want last|latest)", s)
	}
}

const (
	hoursPerYear = 24 * 365
	dueInDays    = 30
)

// Engine evaluates a rule table. It is immutable and safe for concurrent use.
type Engine struct {
	rules  []Rule
	policy MatchPolicy
}

// NewEngine copies rules; an empty slice falls back to DefaultRules.
func NewEngine(rules []Rule, policy MatchPolicy) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	if policy == "" {
		policy = MatchLast
	}
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return &Engine{rules: cp, policy: policy}
}

// Rules returns a copy of the table in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

func (e *Engine) Policy() MatchPolicy { return e.policy }

// Recommend emits at most one recommendation per rule, in rule order. A rule
// with no matching record fires once age reaches DueAge; a matched rule fires
// once IntervalYears (365-day years) have elapsed since the record's date.
// Every recommendation is due 30 days after now's calendar date.
func (e *Engine) Recommend(history []*entity.VaccineRecord, age int, now time.Time) []entity.Recommendation {
	y, m, d := now.Date()
	due := time.Date(y, m, d+dueInDays, 0, 0, 0, 0, now.Location())

	out := make([]entity.Recommendation, 0, len(e.rules))
	for _, r := range e.rules {
		prior := e.match(history, r.Name)
		if prior == nil {
			if age < r.DueAge {
				continue
			}
		} else if elapsedYears(prior.Date, now) < r.IntervalYears {
			continue
		}
		out = append(out, entity.Recommendation{
			Name:        r.Name,
			Description: r.Description,
			DueDate:     due,
			Importance:  r.Importance,
		})
	}
	return out
}

func (e *Engine) match(history []*entity.VaccineRecord, ruleName string) *entity.VaccineRecord {
	needle := strings.ToLower(ruleName)
	var found *entity.VaccineRecord
	for _, rec := range history {
		if rec == nil || !strings.Contains(strings.ToLower(rec.Name), needle) {
			continue
		}
		if e.policy == MatchLatest && found != nil && !rec.Date.After(found.Date) {
			continue
		}
		found = rec
	}
	return found
}

func elapsedYears(from, now time.Time) float64 {
	return now.Sub(from).Hours() / hoursPerYear
}
