package server

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/vaccine-tracker/internal/common"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core/records"
	"github.com/joseph-ayodele/vaccine-tracker/internal/entity"
)

// Processor is the slice of core.Processor the RPC layer calls.
type Processor interface {
	ProcessCertificate(ctx context.Context, ownerID uuid.UUID, doc entity.RawDocument, sourceRef string) (*core.ProcessResult, error)
	AddManualRecord(ctx context.Context, ownerID uuid.UUID, draft entity.VaccineDraft, nextDue *time.Time) (*entity.VaccineRecord, error)
	History(ctx context.Context, ownerID uuid.UUID, from, to *time.Time, now time.Time) ([]entity.VaccineView, error)
	Recommendations(ctx context.Context, ownerID uuid.UUID, age *int, now time.Time) ([]entity.Recommendation, error)
}

// ProcessCertificate runs the ingestion pipeline on an uploaded certificate:
// {subject_id, content_type, data (base64), source_ref?} -> {vaccine, extraction}.
func (s *VaccineService) ProcessCertificate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	subjectID, err := s.subjectID(ctx, req)
	if err != nil {
		return nil, err
	}
	v := common.NewValidator().
		Field("content_type", str(req, "content_type"), common.Required).
		Field("data", str(req, "data"), common.Required)
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(str(req, "data"))
	if err != nil {
		return nil, common.InvalidArgumentError("data must be base64")
	}

	res, err := s.proc.ProcessCertificate(ctx, subjectID,
		entity.RawDocument{Data: data, ContentType: str(req, "content_type")},
		str(req, "source_ref"))
	if err != nil {
		st := toStatus(err)
		if res != nil && isDraftRejection(err) {
			// tell the caller what was read so they can correct it
			if withDraft, derr := status.New(codes.InvalidArgument, err.Error()).WithDetails(draftDetail(res.Draft)); derr == nil {
				st = withDraft.Err()
			}
		}
		return nil, st
	}

	now := s.now()
	return newStruct(map[string]any{
		"vaccine": vaccineToMap(res.Record, records.Classify(res.Record.NextDueDate, now)),
		"extraction": map[string]any{
			"method":      res.Extraction.Method,
			"source_type": res.Extraction.SourceType,
			"confidence":  float64(res.Extraction.Confidence),
			"duration_ms": res.Extraction.Duration.Milliseconds(),
		},
	})
}

// CreateVaccine stores a manually entered record:
// {subject_id, name, date, provider?, batch_number?, next_due_date?} -> {vaccine}.
func (s *VaccineService) CreateVaccine(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	subjectID, err := s.subjectID(ctx, req)
	if err != nil {
		return nil, err
	}
	v := common.NewValidator().
		Field("name", str(req, "name"), common.Required).
		Field("date", str(req, "date"), common.Required, common.ISODate).
		Field("next_due_date", str(req, "next_due_date"), common.ISODate)
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	date, _ := optDate(req, "date")
	nextDue, _ := optDate(req, "next_due_date")

	rec, err := s.proc.AddManualRecord(ctx, subjectID, entity.VaccineDraft{
		Name:        str(req, "name"),
		Date:        date,
		Provider:    str(req, "provider"),
		BatchNumber: str(req, "batch_number"),
	}, nextDue)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"vaccine": vaccineToMap(rec, records.Classify(rec.NextDueDate, s.now()))})
}

// ListVaccines returns a subject's history newest first with status computed
// now: {subject_id, from_date?, to_date?} -> {vaccines}.
func (s *VaccineService) ListVaccines(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	subjectID, err := s.subjectID(ctx, req)
	if err != nil {
		return nil, err
	}
	from, to, err := window(req)
	if err != nil {
		return nil, err
	}
	views, err := s.proc.History(ctx, subjectID, from, to, s.now())
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"vaccines": list(views, func(v entity.VaccineView) map[string]any {
		return vaccineToMap(v.Record, v.Status)
	})})
}

// DeleteVaccine removes one of the subject's records: {subject_id, vaccine_id} -> {}.
func (s *VaccineService) DeleteVaccine(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	subjectID, err := s.subjectID(ctx, req)
	if err != nil {
		return nil, err
	}
	vaccineID, err := uuid.Parse(str(req, "vaccine_id"))
	if err != nil {
		return nil, common.InvalidArgumentError("vaccine_id must be a UUID")
	}
	rec, err := s.vaccines.GetByID(ctx, vaccineID)
	if err != nil {
		return nil, toStatus(err)
	}
	if rec.OwnerID != subjectID {
		return nil, common.NotFoundError("vaccine not found")
	}
	if err := s.vaccines.Delete(ctx, vaccineID); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("vaccine deleted", "subject_id", subjectID, "vaccine_id", vaccineID)
	return newStruct(map[string]any{})
}

// GetRecommendations evaluates the schedule against the full history:
// {subject_id, age?} -> {recommendations}.
func (s *VaccineService) GetRecommendations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	subjectID, err := s.subjectID(ctx, req)
	if err != nil {
		return nil, err
	}
	age, err := optInt(req, "age")
	if err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}
	recs, err := s.proc.Recommendations(ctx, subjectID, age, s.now())
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"recommendations": list(recs, recommendationToMap)})
}

// subjectID validates subject_id and that the subject exists.
func (s *VaccineService) subjectID(ctx context.Context, req *structpb.Struct) (uuid.UUID, error) {
	raw := str(req, "subject_id")
	if err := common.ValidateAndReturnError(common.NewValidator().Field("subject_id", raw, common.Required, common.UUID)); err != nil {
		return uuid.Nil, err
	}
	sub, err := s.subjects.GetSubject(ctx, raw)
	if err != nil {
		return uuid.Nil, err
	}
	return sub.ID, nil
}

// window reads the optional from_date/to_date bounds.
func window(req *structpb.Struct) (*time.Time, *time.Time, error) {
	from, err := optDate(req, "from_date")
	if err != nil {
		return nil, nil, common.InvalidArgumentError(err.Error())
	}
	to, err := optDate(req, "to_date")
	if err != nil {
		return nil, nil, common.InvalidArgumentError(err.Error())
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, common.InvalidArgumentError("to_date must not be before from_date")
	}
	return from, to, nil
}

func isDraftRejection(err error) bool {
	return errors.Is(err, records.ErrMissingName) || errors.Is(err, records.ErrMissingDate)
}

func draftDetail(d entity.VaccineDraft) *structpb.Struct {
	out, err := structpb.NewStruct(draftToMap(d))
	if err != nil {
		return &structpb.Struct{}
	}
	return out
}
