package ocr

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/vaccine-tracker/constants"
)

var disablePDFConfigDir sync.Once

// pdfPageCount parses the buffer with pdfcpu (relaxed validation) so that corrupt
// files fail before any external tool runs.
func pdfPageCount(data []byte) (int, error) {
	disablePDFConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) (ExtractionResult, error) {
	pages, err := e.pageCounter(data)
	if err != nil {
		return ExtractionResult{SourceType: constants.PDF}, fmt.Errorf("read pdf: %w", err)
	}

	// pdftotext -layout -enc UTF-8 -eol unix - -   (stdin -> stdout)
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, e.logger, data, "-layout", "-enc", "UTF-8", "-eol", "unix", "-", "-")
	if err != nil {
		return ExtractionResult{SourceType: constants.PDF, Pages: pages}, fmt.Errorf("pdftotext: %w: %s", err, truncate(string(errb), 512))
	}
	raw := string(out)

	var warns []string
	if strings.TrimSpace(raw) == "" {
		warns = append(warns, "pdf has no text layer")
	}
	txt := Normalize(raw)
	return ExtractionResult{
		Text:       txt,
		Pages:      pages,
		SourceType: constants.PDF,
		Method:     "pdf-text",
		Warnings:   warns,
		Confidence: heuristicConfidence(txt),
	}, nil
}
