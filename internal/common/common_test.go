package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"DB_DRIVER", "DB_URL", "GRPC_ADDR", "RECOMMEND_MATCH_POLICY", "DEFAULT_SUBJECT_AGE", "INGEST_WORKERS", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.Server.GRPCAddr)
	assert.Equal(t, "last", cfg.Schedule.MatchPolicy)
	assert.Equal(t, -1, cfg.Schedule.DefaultSubjectAge)
	assert.Equal(t, 2000, cfg.OCR.MaxImageDimension)
	assert.Equal(t, int64(5<<20), cfg.MaxUpload)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())

	err := cfg.Validate()
	require.Error(t, err, "postgres requires DB_URL")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_URL", "file:vaccines.db")
	t.Setenv("RECOMMEND_MATCH_POLICY", "latest")
	t.Setenv("DEFAULT_SUBJECT_AGE", "30")
	t.Setenv("INGEST_WORKERS", "8")
	t.Setenv("DELETE_AFTER_STORE", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "latest", cfg.Schedule.MatchPolicy)
	assert.Equal(t, 30, cfg.Schedule.DefaultSubjectAge)
	assert.Equal(t, 8, cfg.Ingest.Workers)
	assert.True(t, cfg.Ingest.DeleteAfterStore)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestConfigValidate_Rejects(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("RECOMMEND_MATCH_POLICY", "first")
	t.Setenv("INGEST_WORKERS", "0")

	err := LoadConfig().Validate()
	require.Error(t, err)
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
	assert.Contains(t, err.Error(), "MatchPolicy")
	assert.Contains(t, err.Error(), "Workers")
}

func TestValidator_Rules(t *testing.T) {
	v := NewValidator().
		Field("name", "", Required).
		Field("date", "2024-13-01", ISODate).
		Field("importance", "HIGH", OneOf("high", "medium", "low")).
		Field("owner_id", "nope", UUID)

	require.True(t, v.HasErrors())
	fields := map[string]bool{}
	for _, e := range v.Errors() {
		fields[e.Field] = true
	}
	assert.Equal(t, map[string]bool{"name": true, "date": true, "owner_id": true}, fields)
	assert.Error(t, ValidateAndReturnError(v))

	assert.NoError(t, ValidateAndReturnError(NewValidator().Field("date", "2024-02-29", ISODate)))

	long := NewValidator().Field("name", "abcdef", MaxLength(5)).Field("alias", "abcde", MaxLength(5))
	require.Len(t, long.Errors(), 1)
	assert.Equal(t, "name", long.Errors()[0].Field)
	assert.Contains(t, long.ErrorMessage(), "at most 5 characters")
	assert.Empty(t, NewValidator().ErrorMessage())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
		msg  string
	}{
		{"canceled", context.Canceled, codes.Canceled, ""},
		{"deadline", fmt.Errorf("load: %w", context.DeadlineExceeded), codes.DeadlineExceeded, ""},
		{"not found", fmt.Errorf("vaccine: %w", ErrNotFound), codes.NotFound, ""},
		{"app error message", NewAppError("EMPTY_UPLOAD", "certificate is empty", ErrInvalidInput), codes.InvalidArgument, "certificate is empty"},
		{"validation", ErrValidation, codes.InvalidArgument, ""},
		{"status passes through", AlreadyExistsErrorf("subject %q already exists", "ada"), codes.AlreadyExists, `subject "ada" already exists`},
		{"unknown", errors.New("disk full"), codes.Internal, "disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ok := status.FromError(StatusFor(tt.err))
			require.True(t, ok)
			assert.Equal(t, tt.code, st.Code())
			if tt.msg != "" {
				assert.Equal(t, tt.msg, st.Message())
			}
		})
	}
	assert.NoError(t, StatusFor(nil))
	assert.Equal(t, codes.FailedPrecondition, status.Code(FailedPreconditionError("unreadable")))
}

func TestContextHelpers(t *testing.T) {
	ctx := WithSubjectID(WithRequestID(context.Background(), "req-1"), "sub-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "sub-1", SubjectIDFromContext(ctx))

	fallback := slog.Default()
	assert.Same(t, fallback, LoggerFromContext(ctx, fallback))
	scoped := slog.Default().With("request_id", "req-1")
	assert.Same(t, scoped, LoggerFromContext(WithLogger(ctx, scoped), fallback))
}
