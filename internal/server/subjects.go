package server

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/vaccine-tracker/internal/services/subject"
)

// CreateSubject creates a new subject: {name, birth_date?} -> {subject}.
func (s *VaccineService) CreateSubject(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sub, err := s.subjects.CreateSubject(ctx, subject.CreateSubjectRequest{
		Name:      str(req, "name"),
		BirthDate: str(req, "birth_date"),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"subject": subjectToMap(sub)})
}

// ListSubjects lists all the subjects.
func (s *VaccineService) ListSubjects(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	subs, err := s.subjects.ListSubjects(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"subjects": list(subs, subjectToMap)})
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

