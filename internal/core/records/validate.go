// Package records turns extraction drafts into vaccine records and derives
// their read-time status.
package records

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/vaccine-tracker/internal/entity"
)

var (
	ErrMissingName = errors.New("vaccine name is required")
	ErrMissingDate = errors.New("vaccination date is required")
)

// ValidationError names the draft field that failed. errors.Is matches the
// ErrMissing* sentinels through Unwrap.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid vaccine record: %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// RecordContext carries the caller-owned attributes of a new record.
type RecordContext struct {
	OwnerID     uuid.UUID
	SourceRef   string
	NextDueDate *time.Time
}

// Validate accepts a draft that has a name and a date. Nothing else is checked here.
func Validate(d entity.VaccineDraft, rc RecordContext) (*entity.VaccineRecord, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Err: ErrMissingName}
	}
	if d.Date == nil {
		return nil, &ValidationError{Field: "date", Err: ErrMissingDate}
	}

	rec := &entity.VaccineRecord{
		OwnerID:     rc.OwnerID,
		Name:        name,
		Date:        truncateDay(*d.Date),
		Provider:    optional(d.Provider),
		BatchNumber: optional(d.BatchNumber),
		SourceRef:   optional(rc.SourceRef),
	}
	if rc.NextDueDate != nil {
		nd := truncateDay(*rc.NextDueDate)
		rec.NextDueDate = &nd
	}
	return rec, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func truncateDay(t time.Time) time.Time { return civilDate(t) }
