package server

import (
	"fmt"
	"math"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/vaccine-tracker/constants"
	"github.com/joseph-ayodele/vaccine-tracker/internal/entity"
	"github.com/joseph-ayodele/vaccine-tracker/internal/ingest"
)

const ymd = "2006-01-02"

// request field readers

func str(s *structpb.Struct, key string) string {
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

func boolField(s *structpb.Struct, key string) bool {
	v, ok := s.GetFields()[key]
	return ok && v.GetBoolValue()
}

// optInt reads an optional whole number.
func optInt(s *structpb.Struct, key string) (*int, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	n := v.GetNumberValue()
	if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		return nil, fmt.Errorf("%s must be a whole number", key)
	}
	i := int(n)
	return &i, nil
}

// ParseYMD parses a calendar date at midnight UTC.
func ParseYMD(s string) (time.Time, error) {
	t, err := time.ParseInLocation(ymd, s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// optDate parses an optional YYYY-MM-DD field; blank means nil.
func optDate(s *structpb.Struct, key string) (*time.Time, error) {
	raw := str(s, key)
	if raw == "" {
		return nil, nil
	}
	t, err := ParseYMD(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD", key)
	}
	return &t, nil
}

// response builders

func strOrNil(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func dateOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(ymd)
}

func vaccineToMap(r *entity.VaccineRecord, status constants.VaccineStatus) map[string]any {
	m := map[string]any{
		"id":            r.ID.String(),
		"subject_id":    r.OwnerID.String(),
		"name":          r.Name,
		"date":          r.Date.Format(ymd),
		"provider":      strOrNil(r.Provider),
		"batch_number":  strOrNil(r.BatchNumber),
		"next_due_date": dateOrNil(r.NextDueDate),
		"source_ref":    strOrNil(r.SourceRef),
		"created_at":    r.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":    r.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if status != "" {
		m["status"] = string(status)
	}
	return m
}

func subjectToMap(s *entity.Subject) map[string]any {
	return map[string]any{
		"id":         s.ID.String(),
		"name":       s.Name,
		"birth_date": dateOrNil(s.BirthDate),
		"created_at": s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func recommendationToMap(r entity.Recommendation) map[string]any {
	return map[string]any{
		"name":        r.Name,
		"description": r.Description,
		"due_date":    r.DueDate.Format(ymd),
		"importance":  string(r.Importance),
	}
}

func draftToMap(d entity.VaccineDraft) map[string]any {
	return map[string]any{
		"name":         d.Name,
		"date":         dateOrNil(d.Date),
		"provider":     d.Provider,
		"batch_number": d.BatchNumber,
	}
}

func ingestionToMap(r ingest.IngestionResult) map[string]any {
	m := map[string]any{
		"source_path": r.SourcePath,
		"vaccine_id":  r.VaccineID,
		"name":        r.Name,
		"rejected":    r.Rejected,
		"deleted":     r.Deleted,
		"error":       r.Err,
	}
	if !r.Date.IsZero() {
		m["date"] = r.Date.Format(ymd)
	}
	return m
}

func list[T any](in []T, conv func(T) map[string]any) []any {
	out := make([]any, 0, len(in))
	for _, v := range in {
		out = append(out, conv(v))
	}
	return out
}
