package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/vaccine-tracker/constants"
	"github.com/joseph-ayodele/vaccine-tracker/internal/common"
	"github.com/joseph-ayodele/vaccine-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/vaccine-tracker/internal/entity"
)

type plainText struct{}

func (plainText) Extract(_ context.Context, doc entity.RawDocument) (ocr.ExtractionResult, error) {
	return ocr.ExtractionResult{Text: string(doc.Data), SourceType: constants.FormatForContentType(doc.ContentType)}, nil
}

func sqliteConfig(t *testing.T) *common.Config {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_URL", ":memory:")
	cfg := common.LoadConfig()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestBuild_EndToEnd(t *testing.T) {
	cfg := sqliteConfig(t)
	a, err := Build(context.Background(), cfg, nil, WithExtractor(plainText{}))
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	sub, err := a.Subjects.GetOrCreateByName(ctx, "inbox")
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "flu.pdf")
	require.NoError(t, os.WriteFile(path, []byte("Vaccine: Flu Shot\nDate: 10/01/2026"), 0o644))

	res, err := a.Ingestor.IngestPath(ctx, sub.ID, path)
	require.NoError(t, err)
	assert.Equal(t, "Flu Shot", res.Name)

	age := 40
	recs, err := a.Processor.Recommendations(ctx, sub.ID, &age, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, recs, 1, "flu shot is recent")
	assert.Equal(t, "Tetanus", recs[0].Name)
}

func TestBuild_CustomSchedule(t *testing.T) {
	file := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"rules":[{"name":"Shingles","description":"Zoster","due_age":50,"interval_years":5,"importance":"low"}]}`), 0o644))
	t.Setenv("SCHEDULE_FILE", file)
	t.Setenv("RECOMMEND_MATCH_POLICY", "latest")

	a, err := Build(context.Background(), sqliteConfig(t), nil, WithExtractor(plainText{}))
	require.NoError(t, err)
	defer a.Close()
	require.Len(t, a.Engine.Rules(), 1)
	assert.Equal(t, "Shingles", a.Engine.Rules()[0].Name)
	assert.EqualValues(t, "latest", a.Engine.Policy())
}

func TestBuild_BadSchedule(t *testing.T) {
	file := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"rules":[]}`), 0o644))
	t.Setenv("SCHEDULE_FILE", file)

	_, err := Build(context.Background(), sqliteConfig(t), nil)
	assert.ErrorContains(t, err, "load schedule")
}

func TestDefaultAge(t *testing.T) {
	assert.Nil(t, defaultAge(-1))
	require.NotNil(t, defaultAge(0))
	assert.Equal(t, 0, *defaultAge(0))
	assert.Equal(t, 30, *defaultAge(30))
}
