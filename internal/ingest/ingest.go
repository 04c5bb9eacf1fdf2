package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidPath marks a path the ingestor refuses before processing: missing,
// not a regular file, wrong extension or over the size limit.
var ErrInvalidPath = errors.New("invalid path")

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath string
	VaccineID  string
	Name       string
	Date       time.Time
	Rejected   bool // extracted but missing a required field
	Deleted    bool // source file removed after the record was stored
	Err        string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Rejected  uint32
	Failed    uint32
}

// Ingestor is the behavior the service depends on.
type Ingestor interface {
	// IngestPath processes a single certificate file for ownerID.
	IngestPath(ctx context.Context, ownerID uuid.UUID, path string) (IngestionResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, ownerID uuid.UUID, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
