// Package app wires the repositories, extractor, schedule engine and services
// from a loaded configuration. Binaries build one App and share it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/vaccine-tracker/internal/common"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core/schedule"
	"github.com/joseph-ayodele/vaccine-tracker/internal/export"
	"github.com/joseph-ayodele/vaccine-tracker/internal/ingest"
	"github.com/joseph-ayodele/vaccine-tracker/internal/repository"
	"github.com/joseph-ayodele/vaccine-tracker/internal/services/subject"
)

type App struct {
	DB        *repository.DB
	Subjects  repository.SubjectRepository
	Vaccines  repository.VaccineRepository
	Engine    *schedule.Engine
	Processor *core.Processor
	Ingestor  *ingest.FSIngestor
	Subject   *subject.Service
	Exporter  *export.Service
}

type buildOptions struct {
	extractor core.TextExtractor
}

type Option func(*buildOptions)

// WithExtractor replaces the pdftotext/tesseract extractor.
func WithExtractor(x core.TextExtractor) Option {
	return func(o *buildOptions) { o.extractor = x }
}

// Build opens and migrates the database, loads the schedule and assembles the
// pipeline. Close releases the database.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var bo buildOptions
	for _, o := range opts {
		o(&bo)
	}

	rules, err := schedule.LoadRules(cfg.Schedule.File)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	policy, err := schedule.ParseMatchPolicy(cfg.Schedule.MatchPolicy)
	if err != nil {
		return nil, err
	}

	db, err := repository.Open(ctx, repository.Config{
		Driver:           cfg.Database.Driver,
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("database health: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	extractor := bo.extractor
	if extractor == nil {
		extractor = ocr.NewExtractor(ocr.Config{
			Pdftotext:         cfg.OCR.PdftotextBin,
			Tesseract:         cfg.OCR.TesseractBin,
			TesseractLang:     cfg.OCR.TesseractLang,
			TessdataDir:       cfg.OCR.TessdataDir,
			PSM:               cfg.OCR.PSM,
			MaxImageDimension: cfg.OCR.MaxImageDimension,
		}, logger)
	}

	a := &App{
		DB:       db,
		Subjects: repository.NewSubjectRepository(db, logger),
		Vaccines: repository.NewVaccineRepository(db, logger),
		Engine:   schedule.NewEngine(rules, policy),
	}
	a.Processor = core.NewProcessor(logger, extractor, a.Engine, a.Vaccines, a.Subjects, core.Options{
		MaxUploadBytes: cfg.MaxUpload,
		DefaultAge:     defaultAge(cfg.Schedule.DefaultSubjectAge),
	})
	a.Ingestor = ingest.NewFSIngestor(a.Processor, logger,
		ingest.WithWorkers(cfg.Ingest.Workers),
		ingest.WithMaxBytes(cfg.MaxUpload),
		ingest.WithDeleteAfterStore(cfg.Ingest.DeleteAfterStore),
	)
	a.Subject = subject.NewService(a.Subjects, logger)
	a.Exporter = export.NewService(a.Processor, logger)

	logger.Info("application wired",
		"db_driver", cfg.Database.Driver,
		"rules", len(a.Engine.Rules()),
		"match_policy", string(policy),
		"default_subject_age", cfg.Schedule.DefaultSubjectAge,
	)
	return a, nil
}

// defaultAge maps the -1 "unset" config value to nil.
func defaultAge(age int) *int {
	if age < 0 {
		return nil
	}
	return &age
}

func (a *App) Close() {
	a.DB.Close()
}
