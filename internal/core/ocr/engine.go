package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// Engine is a single text-recognition instance. An Engine is acquired for one
// extraction and must be closed afterwards; instances are never shared.
type Engine interface {
	Recognize(ctx context.Context, png []byte) (string, error)
	Close() error
}

// EngineFactory acquires a fresh Engine.
type EngineFactory func(ctx context.Context) (Engine, error)

// NewTesseractFactory returns a factory for tesseract-backed engines. Each engine
// owns a private scratch directory that Close removes.
func NewTesseractFactory(cfg Config, r Runner, logger *slog.Logger) EngineFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context) (Engine, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir, err := os.MkdirTemp("", "vt-ocr-*")
		if err != nil {
			return nil, fmt.Errorf("create ocr workdir: %w", err)
		}
		logger.Debug("ocr engine acquired", "workdir", dir)
		return &tesseractEngine{cfg: cfg, runner: r, logger: logger, workDir: dir}, nil
	}
}

type tesseractEngine struct {
	cfg     Config
	runner  Runner
	logger  *slog.Logger
	workDir string
}

func (t *tesseractEngine) Recognize(ctx context.Context, png []byte) (string, error) {
	if t.workDir == "" {
		return "", fmt.Errorf("ocr engine already closed")
	}
	in := filepath.Join(t.workDir, "page.png")
	if err := os.WriteFile(in, png, 0o600); err != nil {
		return "", fmt.Errorf("write ocr input: %w", err)
	}

	// tesseract <file> stdout -l <lang> [--psm N] [--tessdata-dir DIR]
	args := []string{in, "stdout", "-l", t.cfg.TesseractLang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, t.logger, nil, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

func (t *tesseractEngine) Close() error {
	if t.workDir == "" {
		return nil
	}
	dir := t.workDir
	t.workDir = ""
	t.logger.Debug("ocr engine released", "workdir", dir)
	return os.RemoveAll(dir)
}
