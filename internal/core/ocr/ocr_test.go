package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/vaccine-tracker/constants"
	"github.com/joseph-ayodele/vaccine-tracker/internal/entity"
)

type fakeRunner struct {
	calls  []fakeCall
	stdout string
	err    error
}

type fakeCall struct {
	name  string
	args  []string
	stdin []byte
}

func (f *fakeRunner) Run(_ context.Context, name string, _ *slog.Logger, stdin []byte, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, fakeCall{name: name, args: args, stdin: stdin})
	if f.err != nil {
		return nil, []byte("boom"), f.err
	}
	return []byte(f.stdout), nil, nil
}

type fakeEngine struct {
	text    string
	err     error
	closed  int
	images  [][]byte
	factory *fakeFactory
}

func (f *fakeEngine) Recognize(_ context.Context, img []byte) (string, error) {
	f.images = append(f.images, img)
	return f.text, f.err
}

func (f *fakeEngine) Close() error {
	f.closed++
	f.factory.open--
	return nil
}

type fakeFactory struct {
	text     string
	err      error
	acquired []*fakeEngine
	open     int
}

func (f *fakeFactory) New(context.Context) (Engine, error) {
	e := &fakeEngine{text: f.text, err: f.err, factory: f}
	f.acquired = append(f.acquired, e)
	f.open++
	return e, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// low-contrast gradient in [64, 192)
			img.SetGray(x, y, color.Gray{Y: uint8(64 + x*128/w)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestExtract_ImageUsesOneEngineAndReleasesIt(t *testing.T) {
	ff := &fakeFactory{text: "Vaccine: Tetanus\r\n\r\n\r\nDate:   05/20/2022\n"}
	e := NewExtractor(Config{}, discardLogger(), WithEngineFactory(ff.New))

	res, err := e.Extract(context.Background(), entity.RawDocument{Data: pngBytes(t, 40, 20), ContentType: "image/png"})
	require.NoError(t, err)

	assert.Equal(t, "Vaccine: Tetanus\n\nDate: 05/20/2022", res.Text)
	assert.Equal(t, constants.IMAGE, res.SourceType)
	assert.Equal(t, "image-ocr", res.Method)
	assert.Equal(t, "eng", res.Language)
	require.Len(t, ff.acquired, 1)
	assert.Equal(t, 1, ff.acquired[0].closed)
	assert.Zero(t, ff.open)
}

func TestExtract_ImageEngineFailureStillReleases(t *testing.T) {
	cause := errors.New("engine crashed")
	ff := &fakeFactory{err: cause}
	e := NewExtractor(Config{}, discardLogger(), WithEngineFactory(ff.New))

	_, err := e.Extract(context.Background(), entity.RawDocument{Data: pngBytes(t, 10, 10), ContentType: "image/jpeg"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, cause)

	var xe *ExtractionError
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, constants.ContentTypeJPEG, xe.ContentType)

	require.Len(t, ff.acquired, 1)
	assert.Equal(t, 1, ff.acquired[0].closed)
}

func TestExtract_ConcurrentCallsGetOwnEngines(t *testing.T) {
	ff := &fakeFactory{text: "x"}
	e := NewExtractor(Config{}, discardLogger(), WithEngineFactory(ff.New))
	doc := entity.RawDocument{Data: pngBytes(t, 8, 8), ContentType: constants.ContentTypePNG}

	for i := 0; i < 3; i++ {
		_, err := e.Extract(context.Background(), doc)
		require.NoError(t, err)
	}
	require.Len(t, ff.acquired, 3)
	for _, eng := range ff.acquired {
		assert.Equal(t, 1, eng.closed)
		assert.Len(t, eng.images, 1)
	}
}

func TestExtract_CorruptImageIsExtractionFailure(t *testing.T) {
	ff := &fakeFactory{text: "unused"}
	e := NewExtractor(Config{}, discardLogger(), WithEngineFactory(ff.New))

	_, err := e.Extract(context.Background(), entity.RawDocument{Data: []byte("not an image"), ContentType: constants.ContentTypePNG})
	assert.ErrorIs(t, err, ErrExtraction)
	assert.Empty(t, ff.acquired, "engine must not be acquired before the image decodes")
}

func TestExtract_UnsupportedContentType(t *testing.T) {
	e := NewExtractor(Config{}, discardLogger(), WithRunner(&fakeRunner{}))
	_, err := e.Extract(context.Background(), entity.RawDocument{Data: []byte("x"), ContentType: "text/plain"})
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestExtract_PDFStreamsBufferToPdftotext(t *testing.T) {
	r := &fakeRunner{stdout: "Immunization Record\fVaccine: Flu Shot\n"}
	e := NewExtractor(Config{Pdftotext: "/usr/bin/pdftotext"}, discardLogger(), WithRunner(r))
	e.pageCounter = func([]byte) (int, error) { return 2, nil }

	data := []byte("%PDF-1.7 fake")
	res, err := e.Extract(context.Background(), entity.RawDocument{Data: data, ContentType: "application/pdf"})
	require.NoError(t, err)

	assert.Equal(t, "Immunization Record\nVaccine: Flu Shot", res.Text)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "pdf-text", res.Method)
	require.Len(t, r.calls, 1)
	assert.Equal(t, "/usr/bin/pdftotext", r.calls[0].name)
	assert.Equal(t, data, r.calls[0].stdin)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", "-eol", "unix", "-", "-"}, r.calls[0].args)
}

func TestExtract_PDFToolFailure(t *testing.T) {
	cause := errors.New("exit status 1")
	r := &fakeRunner{err: cause}
	e := NewExtractor(Config{}, discardLogger(), WithRunner(r))
	e.pageCounter = func([]byte) (int, error) { return 1, nil }

	_, err := e.Extract(context.Background(), entity.RawDocument{Data: []byte("%PDF"), ContentType: constants.ContentTypePDF})
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, cause)
}

func TestExtract_CorruptPDFRejectedBeforeTool(t *testing.T) {
	r := &fakeRunner{stdout: "unused"}
	e := NewExtractor(Config{}, discardLogger(), WithRunner(r))

	_, err := e.Extract(context.Background(), entity.RawDocument{Data: []byte("definitely not a pdf"), ContentType: constants.ContentTypePDF})
	assert.ErrorIs(t, err, ErrExtraction)
	assert.Empty(t, r.calls)
}

func TestPreprocessImage_BoundsLongestSideAndStretchesContrast(t *testing.T) {
	out, w, h, err := preprocessImage(pngBytes(t, 400, 100), 200)
	require.NoError(t, err)
	assert.Equal(t, 200, w)
	assert.Equal(t, 50, h)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 50), img.Bounds())

	var lo, hi uint8 = 255, 0
	g := img.(*image.Gray)
	for _, v := range g.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	assert.Equal(t, uint8(0), lo)
	assert.Equal(t, uint8(255), hi)
}

func TestPreprocessImage_NeverUpscales(t *testing.T) {
	_, w, h, err := preprocessImage(pngBytes(t, 30, 60), 2000)
	require.NoError(t, err)
	assert.Equal(t, 30, w)
	assert.Equal(t, 60, h)
}

func TestFitInside(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{4000, 3000, 2000, 2000, 1500},
		{3000, 4000, 2000, 1500, 2000},
		{1000, 500, 2000, 1000, 500},
		{5000, 1, 2000, 2000, 1},
	}
	for _, tt := range tests {
		w, h := fitInside(tt.w, tt.h, tt.max)
		assert.Equal(t, tt.wantW, w)
		assert.Equal(t, tt.wantH, h)
	}
}

func TestTesseractEngine_CloseRemovesWorkdir(t *testing.T) {
	r := &fakeRunner{stdout: "text"}
	factory := NewTesseractFactory(Config{Tesseract: "tesseract", TesseractLang: "eng", PSM: 6}, r, discardLogger())

	eng, err := factory(context.Background())
	require.NoError(t, err)
	te := eng.(*tesseractEngine)
	dir := te.workDir

	txt, err := eng.Recognize(context.Background(), []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "text", txt)
	require.Len(t, r.calls, 1)
	assert.Contains(t, r.calls[0].args, "--psm")

	require.NoError(t, eng.Close())
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))

	_, err = eng.Recognize(context.Background(), []byte("png"))
	assert.Error(t, err)
	assert.NoError(t, eng.Close())
}

func TestNormalize(t *testing.T) {
	in := "Vaccine:\tTetanus  \r\n-----\n\n\n\nLot No.:   TET-01\fPage 2"
	assert.Equal(t, "Vaccine: Tetanus\n\nLot No.: TET-01\nPage 2", Normalize(in))
	assert.Equal(t, "05/20/2022", Normalize("05/20/2022"))
}
