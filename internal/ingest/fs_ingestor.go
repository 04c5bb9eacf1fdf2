package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/vaccine-tracker/constants"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core/records"
	"github.com/joseph-ayodele/vaccine-tracker/internal/entity"
)

// CertificateProcessor is the part of core.Processor the ingestor drives.
type CertificateProcessor interface {
	ProcessCertificate(ctx context.Context, ownerID uuid.UUID, doc entity.RawDocument, sourceRef string) (*core.ProcessResult, error)
}

// FSIngestor reads certificates from the local filesystem.
type FSIngestor struct {
	proc   CertificateProcessor
	logger *slog.Logger

	workers          int
	maxBytes         int64
	deleteAfterStore bool
}

type Option func(*FSIngestor)

// WithWorkers bounds how many files IngestDirectory processes at once.
func WithWorkers(n int) Option {
	return func(i *FSIngestor) {
		if n > 0 {
			i.workers = n
		}
	}
}

func WithMaxBytes(n int64) Option {
	return func(i *FSIngestor) {
		if n > 0 {
			i.maxBytes = n
		}
	}
}

// WithDeleteAfterStore removes a source file once its record is stored.
func WithDeleteAfterStore(on bool) Option {
	return func(i *FSIngestor) { i.deleteAfterStore = on }
}

func NewFSIngestor(proc CertificateProcessor, logger *slog.Logger, opts ...Option) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	i := &FSIngestor{
		proc:     proc,
		logger:   logger,
		workers:  4,
		maxBytes: constants.MaxUploadBytes,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

func (i *FSIngestor) IngestPath(ctx context.Context, ownerID uuid.UUID, path string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		i.logger.Error("abs path error", "path", path, "error", err)
		return out, err
	}
	out.SourcePath = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	contentType := constants.ContentTypeForExt(ext)
	if contentType == "" {
		i.logger.Warn("unsupported or missing extension", "path", abs, "ext", ext)
		return out, fmt.Errorf("%w: unsupported or missing extension %q", ErrInvalidPath, ext)
	}

	info, err := os.Stat(abs)
	if err != nil {
		i.logger.Error("stat error", "path", abs, "error", err)
		return out, fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	if !info.Mode().IsRegular() {
		return out, fmt.Errorf("%w: %s is not a regular file", ErrInvalidPath, abs)
	}
	// refuse before reading the whole file into memory
	if info.Size() > i.maxBytes {
		return out, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrInvalidPath, abs, info.Size(), i.maxBytes)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		i.logger.Error("read error", "path", abs, "error", err)
		return out, err
	}

	res, err := i.proc.ProcessCertificate(ctx, ownerID, entity.RawDocument{Data: data, ContentType: contentType}, abs)
	if err != nil {
		if res != nil {
			out.Name = res.Draft.Name
		}
		out.Rejected = errors.Is(err, records.ErrMissingName) || errors.Is(err, records.ErrMissingDate)
		return out, err
	}

	out.VaccineID = res.Record.ID.String()
	out.Name = res.Record.Name
	out.Date = res.Record.Date

	if i.deleteAfterStore {
		if err := os.Remove(abs); err != nil {
			// the record is stored; a leftover file is only re-ingested as an upsert
			i.logger.Warn("failed to delete ingested file", "path", abs, "error", err)
		} else {
			out.Deleted = true
		}
	}
	return out, nil
}

// IngestDirectory walks root, skips hidden entries if requested, and runs
// IngestPath for each certificate file on a bounded pool. Results keep walk order.
func (i *FSIngestor) IngestDirectory(
	ctx context.Context,
	ownerID uuid.UUID,
	root string,
	skipHidden bool,
) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, fmt.Errorf("%w: root_path is required", ErrInvalidPath)
	}

	var (
		results []IngestionResult
		stats   DirStats
		paths   []string
		slots   []int // result index for each path
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !allowedPath(path) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		slots = append(slots, len(results))
		results = append(results, IngestionResult{SourcePath: path})
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w: %w", ErrInvalidPath, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)
	for n, path := range paths {
		slot := slots[n]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[slot].Err = err.Error()
				return nil
			}
			r, err := i.IngestPath(gctx, ownerID, path)
			if err != nil {
				r.Err = err.Error()
			}
			results[slot] = r
			return nil
		})
	}
	_ = g.Wait()

	for _, slot := range slots {
		r := results[slot]
		switch {
		case r.Err == "":
			stats.Succeeded++
		case r.Rejected:
			stats.Rejected++
		default:
			stats.Failed++
		}
	}
	i.logger.Info("directory ingested",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"rejected", stats.Rejected,
		"failed", stats.Failed,
	)
	return results, stats, ctx.Err()
}
