package subject

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/vaccine-tracker/internal/common"
	"github.com/joseph-ayodele/vaccine-tracker/internal/entity"
	"github.com/joseph-ayodele/vaccine-tracker/internal/repository"
)

// Service handles subject business logic.
type Service struct {
	subjectRepo repository.SubjectRepository
	logger      *slog.Logger
}

// NewService creates a new subject service.
func NewService(subjectRepo repository.SubjectRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		subjectRepo: subjectRepo,
		logger:      logger,
	}
}

// CreateSubjectRequest represents subject creation parameters.
type CreateSubjectRequest struct {
	Name      string
	BirthDate string // YYYY-MM-DD, optional
}

// CreateSubject creates a new subject. Names are unique.
func (s *Service) CreateSubject(ctx context.Context, req CreateSubjectRequest) (*entity.Subject, error) {
	validator := common.NewValidator()
	validator.Field("name", strings.TrimSpace(req.Name), common.Required, common.MaxLength(200))
	validator.Field("birth_date", strings.TrimSpace(req.BirthDate), common.ISODate)

	if err := common.ValidateAndReturnError(validator); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	var birth *time.Time
	if bd := strings.TrimSpace(req.BirthDate); bd != "" {
		t, _ := time.Parse("2006-01-02", bd)
		if t.After(time.Now().UTC()) {
			return nil, common.InvalidArgumentError("birth_date must not be in the future")
		}
		birth = &t
	}

	if existing, err := s.subjectRepo.GetByName(ctx, name); err == nil {
		s.logger.Warn("subject already exists", "subject_id", existing.ID, "name", name)
		return nil, common.AlreadyExistsErrorf("subject %q already exists", name)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, common.InternalErrorf("lookup subject: %v", err)
	}

	sub, err := s.subjectRepo.Create(ctx, name, birth)
	if err != nil {
		return nil, common.InternalErrorf("create subject: %v", err)
	}

	s.logger.Info("subject created successfully", "subject_id", sub.ID, "name", sub.Name)
	return sub, nil
}

// GetSubject loads a subject by id.
func (s *Service) GetSubject(ctx context.Context, id string) (*entity.Subject, error) {
	subjectID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, common.InvalidArgumentError("subject_id must be a UUID")
	}
	sub, err := s.subjectRepo.GetByID(ctx, subjectID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.NotFoundError("subject not found")
	}
	if err != nil {
		return nil, common.InternalErrorf("get subject: %v", err)
	}
	return sub, nil
}

// ListSubjects returns all subjects.
func (s *Service) ListSubjects(ctx context.Context) ([]*entity.Subject, error) {
	s.logger.Info("listing subjects")

	subs, err := s.subjectRepo.List(ctx)
	if err != nil {
		// DB error already logged in repository layer
		return nil, common.InternalErrorf("list subjects: %v", err)
	}

	s.logger.Info("subjects listed successfully", "count", len(subs))
	return subs, nil
}
