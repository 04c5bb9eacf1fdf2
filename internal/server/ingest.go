package server

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	ingestsvc "github.com/joseph-ayodele/vaccine-tracker/internal/services/ingest"
)

// IngestDirectory processes every certificate under a server-side directory:
// {subject_id, root_path, include_hidden?} -> {stats, results}.
func (s *VaccineService) IngestDirectory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.ingest == nil {
		return nil, status.Error(codes.Unimplemented, "directory ingest is not enabled")
	}
	res, err := s.ingest.IngestDirectory(ctx, ingestsvc.DirectoryIngestRequest{
		SubjectID:     str(req, "subject_id"),
		RootPath:      str(req, "root_path"),
		IncludeHidden: boolField(req, "include_hidden"),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	st := res.Statistics
	return newStruct(map[string]any{
		"stats": map[string]any{
			"scanned":   st.Scanned,
			"matched":   st.Matched,
			"succeeded": st.Succeeded,
			"rejected":  st.Rejected,
			"failed":    st.Failed,
		},
		"results": list(res.Results, ingestionToMap),
	})
}
