package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	"image/png"

	"golang.org/x/image/draw"

	"github.com/joseph-ayodele/vaccine-tracker/constants"
)

// Percentiles used for contrast stretching; outliers beyond them are clipped.
const (
	lowClip  = 0.01
	highClip = 0.99
)

func (e *Extractor) extractImage(ctx context.Context, data []byte) (ExtractionResult, error) {
	prepared, w, h, err := preprocessImage(data, e.cfg.MaxImageDimension)
	if err != nil {
		return ExtractionResult{SourceType: constants.IMAGE}, err
	}
	e.logger.Debug("image prepared for ocr", "width", w, "height", h, "png_bytes", len(prepared))

	txt, err := e.recognize(ctx, prepared)
	if err != nil {
		return ExtractionResult{SourceType: constants.IMAGE}, err
	}
	txt = Normalize(txt)

	return ExtractionResult{
		Text:       txt,
		Pages:      1,
		SourceType: constants.IMAGE,
		Method:     "image-ocr",
		Language:   e.cfg.TesseractLang,
		Confidence: heuristicConfidence(txt),
	}, nil
}

// recognize acquires an engine for exactly this call and releases it on every path.
func (e *Extractor) recognize(ctx context.Context, img []byte) (string, error) {
	eng, err := e.engines(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire ocr engine: %w", err)
	}
	defer func() {
		if cerr := eng.Close(); cerr != nil {
			e.logger.Warn("failed to release ocr engine", "error", cerr)
		}
	}()
	return eng.Recognize(ctx, img)
}

// preprocessImage decodes a JPEG/PNG, fits it inside maxDim x maxDim (never upscaling),
// converts it to grayscale with stretched contrast and re-encodes it as PNG.
func preprocessImage(data []byte, maxDim int) ([]byte, int, int, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	w, h := fitInside(b.Dx(), b.Dy(), maxDim)
	if w == 0 || h == 0 {
		return nil, 0, 0, fmt.Errorf("decode image: empty bounds %v", b)
	}

	gray := image.NewGray(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(gray, gray.Bounds(), src, b, draw.Src, nil)
	}
	stretchContrast(gray)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, 0, 0, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), w, h, nil
}

func fitInside(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	if w >= h {
		nh := h * maxDim / w
		if nh < 1 {
			nh = 1
		}
		return maxDim, nh
	}
	nw := w * maxDim / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxDim
}

// stretchContrast maps the [1%, 99%] luminance range of img onto [0, 255].
func stretchContrast(img *image.Gray) {
	var hist [256]int
	total := 0
	for y := 0; y < img.Rect.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+img.Rect.Dx()]
		for _, v := range row {
			hist[v]++
		}
		total += len(row)
	}
	if total == 0 {
		return
	}

	lo, hi := percentile(&hist, total, lowClip), percentile(&hist, total, highClip)
	if hi <= lo {
		return
	}

	var lut [256]uint8
	span := int(hi) - int(lo)
	for v := 0; v < 256; v++ {
		switch {
		case v <= int(lo):
			lut[v] = 0
		case v >= int(hi):
			lut[v] = 255
		default:
			lut[v] = uint8((v - int(lo)) * 255 / span)
		}
	}
	for y := 0; y < img.Rect.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+img.Rect.Dx()]
		for i, v := range row {
			row[i] = lut[v]
		}
	}
}

func percentile(hist *[256]int, total int, p float64) uint8 {
	target := int(float64(total) * p)
	seen := 0
	for v := 0; v < 256; v++ {
		seen += hist[v]
		if seen > target {
			return uint8(v)
		}
	}
	return 255
}
