package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/vaccine-tracker/internal/export"
	"github.com/joseph-ayodele/vaccine-tracker/internal/repository"
	ingestsvc "github.com/joseph-ayodele/vaccine-tracker/internal/services/ingest"
	"github.com/joseph-ayodele/vaccine-tracker/internal/services/subject"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "vaccines.v1.VaccineService"

// VaccineServiceServer is the server API. Requests and responses are
// google.protobuf.Struct documents; ExportVaccines answers with raw XLSX bytes.
type VaccineServiceServer interface {
	CreateSubject(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSubjects(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProcessCertificate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateVaccine(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListVaccines(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteVaccine(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRecommendations(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportVaccines(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
	IngestDirectory(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VaccineServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateSubject", VaccineServiceServer.CreateSubject),
		unary("ListSubjects", VaccineServiceServer.ListSubjects),
		unary("ProcessCertificate", VaccineServiceServer.ProcessCertificate),
		unary("CreateVaccine", VaccineServiceServer.CreateVaccine),
		unary("ListVaccines", VaccineServiceServer.ListVaccines),
		unary("DeleteVaccine", VaccineServiceServer.DeleteVaccine),
		unary("GetRecommendations", VaccineServiceServer.GetRecommendations),
		unary("ExportVaccines", VaccineServiceServer.ExportVaccines),
		unary("IngestDirectory", VaccineServiceServer.IngestDirectory),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vaccines/v1/vaccines.proto",
}

// RegisterVaccineServiceServer registers srv on s.
func RegisterVaccineServiceServer(s grpc.ServiceRegistrar, srv VaccineServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

func unary[Resp proto.Message](name string, call func(VaccineServiceServer, context.Context, *structpb.Struct) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(VaccineServiceServer), ctx, req.(*structpb.Struct))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// VaccineService implements VaccineServiceServer on top of the processor and
// the subject, ingest and export services.
type VaccineService struct {
	proc     Processor
	vaccines repository.VaccineRepository
	subjects *subject.Service
	ingest   *ingestsvc.Service
	exporter *export.Service
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*VaccineService)

// WithClock overrides the clock used for status and recommendations.
func WithClock(now func() time.Time) Option {
	return func(s *VaccineService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIngest enables IngestDirectory.
func WithIngest(svc *ingestsvc.Service) Option {
	return func(s *VaccineService) { s.ingest = svc }
}

func NewVaccineService(
	proc Processor,
	vaccines repository.VaccineRepository,
	subjects *subject.Service,
	exporter *export.Service,
	logger *slog.Logger,
	opts ...Option,
) *VaccineService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &VaccineService{
		proc:     proc,
		vaccines: vaccines,
		subjects: subjects,
		exporter: exporter,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ VaccineServiceServer = (*VaccineService)(nil)
