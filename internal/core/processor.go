package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/vaccine-tracker/constants"
	"github.com/joseph-ayodele/vaccine-tracker/internal/common"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core/fields"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core/records"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core/schedule"
	"github.com/joseph-ayodele/vaccine-tracker/internal/entity"
	"github.com/joseph-ayodele/vaccine-tracker/internal/repository"
)

// ErrAgeUnknown is returned when neither the request, the subject's birth date
// nor the configured default supplies an age.
var ErrAgeUnknown = errors.New("subject age unknown")

// TextExtractor is the text extraction capability the processor depends on.
type TextExtractor interface {
	Extract(ctx context.Context, doc entity.RawDocument) (ocr.ExtractionResult, error)
}

// Recommender evaluates an immunization schedule.
type Recommender interface {
	Recommend(history []*entity.VaccineRecord, age int, now time.Time) []entity.Recommendation
}

type Options struct {
	MaxUploadBytes int64 // default constants.MaxUploadBytes
	// DefaultAge is used when neither the request nor the subject gives an age.
	// Nil leaves the age unknown.
	DefaultAge *int
}

// Processor coordinates extraction, field parsing, validation and storage for
// certificates, and read-time status and recommendations for history.
type Processor struct {
	logger      *slog.Logger
	extractor   TextExtractor
	recommender Recommender
	vaccines    repository.VaccineRepository
	subjects    repository.SubjectRepository
	opts        Options
}

func NewProcessor(
	logger *slog.Logger,
	extractor TextExtractor,
	recommender Recommender,
	vaccines repository.VaccineRepository,
	subjects repository.SubjectRepository,
	opts Options,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if recommender == nil {
		recommender = schedule.NewEngine(nil, schedule.MatchLast)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = constants.MaxUploadBytes
	}
	return &Processor{
		logger:      logger,
		extractor:   extractor,
		recommender: recommender,
		vaccines:    vaccines,
		subjects:    subjects,
		opts:        opts,
	}
}

// ProcessResult describes one processed certificate.
type ProcessResult struct {
	Record     *entity.VaccineRecord
	Draft      entity.VaccineDraft
	Extraction ocr.ExtractionResult
}

// ProcessCertificate runs upload checks, text extraction, field extraction and
// validation, then stores the record. Failures are terminal and never retried:
// *ocr.ExtractionError, records.ErrMissingName or records.ErrMissingDate, or an
// AppError with ErrInvalidInput for upload checks.
func (p *Processor) ProcessCertificate(ctx context.Context, ownerID uuid.UUID, doc entity.RawDocument, sourceRef string) (*ProcessResult, error) {
	logger := common.LoggerFromContext(ctx, p.logger).With("owner_id", ownerID, "source_ref", sourceRef)

	if err := p.checkUpload(doc); err != nil {
		logger.Warn("certificate rejected", "content_type", doc.ContentType, "bytes", len(doc.Data), "error", err)
		return nil, err
	}

	ext, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		logger.Error("certificate text extraction failed", "error", err)
		return nil, err
	}
	for _, w := range ext.Warnings {
		logger.Warn("text extraction warning", "warning", w)
	}

	draft := fields.Extract(ext.Text)
	logger.Debug("fields extracted",
		"name", draft.Name,
		"has_date", draft.Date != nil,
		"provider", draft.Provider,
		"batch_number", draft.BatchNumber,
	)

	rec, err := records.Validate(draft, records.RecordContext{OwnerID: ownerID, SourceRef: sourceRef})
	if err != nil {
		logger.Warn("certificate draft rejected", "error", err)
		return &ProcessResult{Draft: draft, Extraction: ext}, err
	}

	stored, err := p.vaccines.Upsert(ctx, rec)
	if err != nil {
		logger.Error("failed to store vaccine record", "error", err)
		return &ProcessResult{Draft: draft, Extraction: ext}, err
	}

	logger.Info("certificate processed",
		"vaccine_id", stored.ID,
		"name", stored.Name,
		"date", stored.Date.Format("2006-01-02"),
		"method", ext.Method,
		"confidence", ext.Confidence,
		"duration_ms", ext.Duration.Milliseconds(),
	)
	return &ProcessResult{Record: stored, Draft: draft, Extraction: ext}, nil
}

// AddManualRecord validates and stores a user-entered record, optionally with a
// known follow-up date.
func (p *Processor) AddManualRecord(ctx context.Context, ownerID uuid.UUID, draft entity.VaccineDraft, nextDue *time.Time) (*entity.VaccineRecord, error) {
	rec, err := records.Validate(draft, records.RecordContext{OwnerID: ownerID, NextDueDate: nextDue})
	if err != nil {
		return nil, err
	}
	stored, err := p.vaccines.Upsert(ctx, rec)
	if err != nil {
		p.logger.Error("failed to store manual vaccine record", "owner_id", ownerID, "name", rec.Name, "error", err)
		return nil, err
	}
	p.logger.Info("manual vaccine record stored", "owner_id", ownerID, "vaccine_id", stored.ID, "name", stored.Name)
	return stored, nil
}

// History lists a subject's records newest first, each classified against now.
func (p *Processor) History(ctx context.Context, ownerID uuid.UUID, from, to *time.Time, now time.Time) ([]entity.VaccineView, error) {
	recs, err := p.vaccines.ListByOwner(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list vaccines: %w", err)
	}
	return records.View(recs, now), nil
}

// Recommendations evaluates the schedule over the subject's full history. age
// overrides the subject's birth date when non-nil.
func (p *Processor) Recommendations(ctx context.Context, ownerID uuid.UUID, age *int, now time.Time) ([]entity.Recommendation, error) {
	resolved, err := p.resolveAge(ctx, ownerID, age, now)
	if err != nil {
		return nil, err
	}
	recs, err := p.vaccines.ListByOwner(ctx, ownerID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list vaccines: %w", err)
	}
	out := p.recommender.Recommend(recs, resolved, now)
	p.logger.Debug("recommendations computed", "owner_id", ownerID, "age", resolved, "history", len(recs), "count", len(out))
	return out, nil
}

func (p *Processor) resolveAge(ctx context.Context, ownerID uuid.UUID, age *int, now time.Time) (int, error) {
	if age != nil {
		if *age < 0 {
			return 0, common.NewAppError("INVALID_AGE", "age must not be negative", common.ErrInvalidInput)
		}
		return *age, nil
	}
	if p.subjects != nil {
		s, err := p.subjects.GetByID(ctx, ownerID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return 0, fmt.Errorf("load subject: %w", err)
		}
		if s != nil && s.BirthDate != nil {
			return records.AgeAt(*s.BirthDate, now), nil
		}
	}
	if p.opts.DefaultAge != nil {
		return *p.opts.DefaultAge, nil
	}
	return 0, ErrAgeUnknown
}

func (p *Processor) checkUpload(doc entity.RawDocument) error {
	if len(doc.Data) == 0 {
		return common.NewAppError("EMPTY_UPLOAD", "certificate is empty", common.ErrInvalidInput)
	}
	if int64(len(doc.Data)) > p.opts.MaxUploadBytes {
		return common.NewAppError("UPLOAD_TOO_LARGE",
			fmt.Sprintf("certificate is %d bytes, limit is %d", len(doc.Data), p.opts.MaxUploadBytes),
			common.ErrInvalidInput)
	}
	if !constants.IsAllowedContentType(doc.ContentType) {
		return common.NewAppError("UNSUPPORTED_TYPE",
			fmt.Sprintf("content type %q is not one of pdf, jpeg, png", doc.ContentType),
			common.ErrInvalidInput)
	}
	return nil
}
