package server

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/vaccine-tracker/internal/common"
	"github.com/joseph-ayodele/vaccine-tracker/internal/export"
)

// ExportVaccines renders the subject's history as XLSX:
// {subject_id, from_date?, to_date?, age?, skip_recommendations?} -> bytes.
// Only from_date means from..today.
func (s *VaccineService) ExportVaccines(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	subjectID, err := s.subjectID(ctx, req)
	if err != nil {
		return nil, err
	}
	from, to, err := window(req)
	if err != nil {
		return nil, err
	}
	age, err := optInt(req, "age")
	if err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}

	xlsx, err := s.exporter.ExportVaccinesXLSX(ctx, export.Request{
		OwnerID:             subjectID,
		From:                from,
		To:                  to,
		Age:                 age,
		SkipRecommendations: boolField(req, "skip_recommendations"),
		Now:                 s.now(),
	})
	if err != nil {
		s.logger.Error("export.xlsx.failed", "subject_id", subjectID, "error", err)
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(xlsx), nil
}
