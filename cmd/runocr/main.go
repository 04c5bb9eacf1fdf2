package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/vaccine-tracker/constants"
	"github.com/joseph-ayodele/vaccine-tracker/internal/common"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core/fields"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/vaccine-tracker/internal/entity"
)

// runocr prints the extracted text and field draft for one certificate file,
// without touching the database.
func main() {
	cfg := common.LoadConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <certificate.pdf|.jpg|.png>")
		os.Exit(2)
	}
	path := os.Args[1]
	contentType := constants.ContentTypeForExt(filepath.Ext(path))
	if contentType == "" {
		logger.Error("unsupported file type", "path", path)
		os.Exit(2)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	x := ocr.NewExtractor(ocr.Config{
		Pdftotext:         cfg.OCR.PdftotextBin,
		Tesseract:         cfg.OCR.TesseractBin,
		TesseractLang:     cfg.OCR.TesseractLang,
		TessdataDir:       cfg.OCR.TessdataDir,
		PSM:               cfg.OCR.PSM,
		MaxImageDimension: cfg.OCR.MaxImageDimension,
	}, logger)

	res, err := x.Extract(ctx, entity.RawDocument{Data: data, ContentType: contentType})
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err)
		os.Exit(1)
	}
	logger.Info("text extraction OK",
		"method", res.Method,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		Text  string              `json:"text"`
		Draft entity.VaccineDraft `json:"draft"`
	}{res.Text, fields.Extract(res.Text)}); err != nil {
		logger.Error("write output", "error", err)
		os.Exit(1)
	}
}
