package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/vaccine-tracker/internal/common"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core/async"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core/records"
	"github.com/joseph-ayodele/vaccine-tracker/internal/ingest"
	"github.com/joseph-ayodele/vaccine-tracker/internal/repository"
)

// Service handles ingestion business logic.
type Service struct {
	ingestor    ingest.Ingestor
	subjectRepo repository.SubjectRepository
	queue       async.Queue
	logger      *slog.Logger
}

// NewService creates a new ingest service. queue may be nil when only
// synchronous ingestion is used.
func NewService(ing ingest.Ingestor, subjects repository.SubjectRepository, q async.Queue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ingestor:    ing,
		subjectRepo: subjects,
		queue:       q,
		logger:      logger,
	}
}

// FileIngestRequest represents file ingestion parameters.
type FileIngestRequest struct {
	SubjectID string
	Path      string
}

// DirectoryIngestResult represents directory ingestion results.
type DirectoryIngestResult struct {
	Statistics ingest.DirStats
	Results    []ingest.IngestionResult
}

// IngestFile ingests a single file synchronously.
func (s *Service) IngestFile(ctx context.Context, req FileIngestRequest) (ingest.IngestionResult, error) {
	subjectID, err := s.resolveSubject(ctx, req.SubjectID)
	if err != nil {
		return ingest.IngestionResult{}, err
	}

	path := strings.TrimSpace(req.Path)
	if path == "" {
		s.logger.Error("ingest request missing path", "subject_id", subjectID)
		return ingest.IngestionResult{}, status.Error(codes.InvalidArgument, "path is required")
	}

	s.logger.Info("starting file ingest", "subject_id", subjectID, "path", path)
	r, err := s.ingestor.IngestPath(ctx, subjectID, path)
	if err != nil {
		s.logger.Warn("file ingest failed", "subject_id", subjectID, "path", path, "error", err)
		return r, ingestStatus("ingest", err)
	}

	s.logger.Info("file ingest succeeded", "subject_id", subjectID, "vaccine_id", r.VaccineID, "deleted", r.Deleted)
	return r, nil
}

// DirectoryIngestRequest represents directory ingestion parameters.
type DirectoryIngestRequest struct {
	SubjectID     string
	RootPath      string
	IncludeHidden bool
}

// IngestDirectory ingests all certificate files under a directory.
func (s *Service) IngestDirectory(ctx context.Context, req DirectoryIngestRequest) (*DirectoryIngestResult, error) {
	subjectID, err := s.resolveSubject(ctx, req.SubjectID)
	if err != nil {
		return nil, err
	}

	root := strings.TrimSpace(req.RootPath)
	if root == "" {
		s.logger.Error("ingest directory request missing root_path", "subject_id", subjectID)
		return nil, status.Error(codes.InvalidArgument, "root_path is required")
	}

	skipHidden := !req.IncludeHidden
	s.logger.Info("starting directory ingest", "subject_id", subjectID, "root", root, "skip_hidden", skipHidden)
	results, stats, err := s.ingestor.IngestDirectory(ctx, subjectID, root, skipHidden)
	if err != nil {
		s.logger.Error("directory ingest failed", "subject_id", subjectID, "root", root, "error", err)
		return nil, ingestStatus("ingest directory", err)
	}

	return &DirectoryIngestResult{
		Statistics: stats,
		Results:    results,
	}, nil
}

// WatchRequest describes an inbox to follow.
type WatchRequest struct {
	SubjectID   string
	Roots       []string
	InitialScan bool
	Debounce    time.Duration
}

// Watch follows the inbox directories and queues every certificate file that
// appears. It returns once ctx is done.
func (s *Service) Watch(ctx context.Context, req WatchRequest) error {
	if s.queue == nil {
		return errors.New("watch requires a processing queue")
	}
	subjectID, err := s.resolveSubject(ctx, req.SubjectID)
	if err != nil {
		return err
	}

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       req.Roots,
		InitialScan: req.InitialScan,
		SkipHidden:  true,
		Debounce:    req.Debounce,
		Logger:      s.logger,
	})
	if err != nil {
		return err
	}
	s.logger.Info("watching inbox", "subject_id", subjectID, "roots", req.Roots)

	for events != nil || errs != nil {
		select {
		case path, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			job := async.Job{OwnerID: subjectID, Path: path, SubmittedAt: time.Now(), TraceID: uuid.NewString()}
			if err := s.queue.Enqueue(ctx, job); err != nil {
				s.logger.Error("enqueue failed for file", "path", path, "error", err)
			}
		case _, ok := <-errs:
			// watcher errors are logged at the source and are not fatal
			if !ok {
				errs = nil
			}
		}
	}
	return ctx.Err()
}

// ingestStatus maps an ingestor failure onto a gRPC status. Only refused paths
// and rejected certificates are the caller's fault.
func ingestStatus(op string, err error) error {
	switch {
	case errors.Is(err, ingest.ErrInvalidPath),
		errors.Is(err, records.ErrMissingName),
		errors.Is(err, records.ErrMissingDate):
		return common.InvalidArgumentError(fmt.Sprintf("%s: %v", op, err))
	case errors.Is(err, ocr.ErrExtraction):
		return common.FailedPreconditionError(fmt.Sprintf("%s: %v", op, err))
	default:
		return common.StatusFor(common.WrapError(err, op))
	}
}

// resolveSubject parses raw and checks the subject exists.
func (s *Service) resolveSubject(ctx context.Context, raw string) (uuid.UUID, error) {
	subjectID, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		s.logger.Error("invalid subject_id format for ingest", "subject_id", raw, "error", err)
		return uuid.Nil, status.Error(codes.InvalidArgument, "subject_id must be a UUID")
	}
	if _, err := s.subjectRepo.GetByID(ctx, subjectID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Error("subject not found for ingest", "subject_id", subjectID)
			return uuid.Nil, status.Error(codes.NotFound, "subject not found")
		}
		return uuid.Nil, common.InternalErrorf("load subject: %v", err)
	}
	return subjectID, nil
}
