package records

import (
	"time"

	"github.com/joseph-ayodele/vaccine-tracker/constants"
	"github.com/joseph-ayodele/vaccine-tracker/internal/entity"
)

// Classify derives a record's status at day granularity. A nil nextDue is
// completed, a due date before now's calendar date is overdue and anything
// else, including a record due today, is pending.
func Classify(nextDue *time.Time, now time.Time) constants.VaccineStatus {
	switch {
	case nextDue == nil:
		return constants.StatusCompleted
	case civilDate(*nextDue).Before(civilDate(now)):
		return constants.StatusOverdue
	default:
		return constants.StatusPending
	}
}

// civilDate keeps only t's calendar date as read in t's own location.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// View classifies every record against now. Status is never cached on the record.
func View(recs []*entity.VaccineRecord, now time.Time) []entity.VaccineView {
	out := make([]entity.VaccineView, 0, len(recs))
	for _, r := range recs {
		out = append(out, entity.VaccineView{Record: r, Status: Classify(r.NextDueDate, now)})
	}
	return out
}

// AgeAt returns whole years elapsed between birth and now, or 0 if birth is in the future.
func AgeAt(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
