package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/vaccine-tracker/internal/ingest"
)

type stubIngestor struct {
	mu    sync.Mutex
	paths []string
	block chan struct{}
}

func (s *stubIngestor) IngestPath(_ context.Context, _ uuid.UUID, path string) (ingest.IngestionResult, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	s.paths = append(s.paths, path)
	s.mu.Unlock()
	if path == "bad.pdf" {
		return ingest.IngestionResult{SourcePath: path}, errors.New("corrupt")
	}
	return ingest.IngestionResult{SourcePath: path, VaccineID: uuid.NewString()}, nil
}

func TestProcessorQueue_DrainsOnShutdown(t *testing.T) {
	ing := &stubIngestor{}
	var (
		mu     sync.Mutex
		failed []string
	)
	q := NewProcessorQueue(ing, nil, WithWorkers(2), WithResultHook(func(j Job, _ ingest.IngestionResult, err error) {
		if err != nil {
			mu.Lock()
			failed = append(failed, j.Path)
			mu.Unlock()
		}
	}))

	owner := uuid.New()
	for _, p := range []string{"a.pdf", "bad.pdf", "c.png"} {
		require.NoError(t, q.Enqueue(context.Background(), Job{OwnerID: owner, Path: p}))
	}
	q.Shutdown(context.Background())

	assert.ElementsMatch(t, []string{"a.pdf", "bad.pdf", "c.png"}, ing.paths)
	assert.Equal(t, []string{"bad.pdf"}, failed)

	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{Path: "late.pdf"}), ErrQueueClosed)
	q.Shutdown(context.Background()) // idempotent
}

func TestProcessorQueue_BackpressureHonorsContext(t *testing.T) {
	ing := &stubIngestor{block: make(chan struct{})}
	q := NewProcessorQueue(ing, nil, WithWorkers(1), WithQueueSize(1))

	// one job held by the worker, one buffered
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "1.pdf"}))
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "2.pdf"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, Job{Path: "3.pdf"}), context.DeadlineExceeded)

	close(ing.block)
	q.Shutdown(context.Background())
	assert.ElementsMatch(t, []string{"1.pdf", "2.pdf"}, ing.paths)
}
