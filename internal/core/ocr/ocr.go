package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/vaccine-tracker/constants"
	"github.com/joseph-ayodele/vaccine-tracker/internal/entity"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	PSM           int // e.g., 6 is good for uniform block of text

	MaxImageDimension int // longest side after resize, default 2000
}

type ExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE
	Method     string // "pdf-text" | "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// Extractor turns a raw certificate into linear text. It holds no per-request
// state: OCR engines are acquired and released inside each Extract call.
type Extractor struct {
	cfg         Config
	runner      Runner
	engines     EngineFactory
	pageCounter func([]byte) (int, error)
	logger      *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the command runner used for pdftotext and the default engine.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithEngineFactory replaces the OCR engine factory.
func WithEngineFactory(f EngineFactory) Option {
	return func(e *Extractor) {
		if f != nil {
			e.engines = f
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.MaxImageDimension <= 0 {
		cfg.MaxImageDimension = 2000
	}
	e := &Extractor{cfg: cfg, runner: execRunner{}, pageCounter: pdfPageCount, logger: logger}
	for _, o := range opts {
		o(e)
	}
	if e.engines == nil {
		e.engines = NewTesseractFactory(cfg, e.runner, logger)
	}
	return e
}

// Extract picks a strategy based on the document content type. Failures of the
// underlying capability are returned as *ExtractionError.
func (e *Extractor) Extract(ctx context.Context, doc entity.RawDocument) (ExtractionResult, error) {
	start := time.Now()
	ct := constants.NormalizeContentType(doc.ContentType)
	e.logger.Debug("starting text extraction", "content_type", ct, "bytes", len(doc.Data))

	var (
		res ExtractionResult
		err error
	)
	switch constants.FormatForContentType(ct) {
	case constants.PDF:
		res, err = e.extractPDF(ctx, doc.Data)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, doc.Data)
	default:
		e.logger.Error("unsupported content type", "content_type", ct)
		return ExtractionResult{}, newExtractionError(ct, fmt.Errorf("unsupported content type %q", ct))
	}
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Error("text extraction failed", "content_type", ct, "duration_ms", res.Duration.Milliseconds(), "error", err)
		return res, newExtractionError(ct, err)
	}

	e.logger.Debug("text extraction ok",
		"content_type", ct,
		"method", res.Method,
		"pages", res.Pages,
		"text_bytes", len(res.Text),
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
