package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/forest-rights-tracker/constants"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, ":8080", cfg.Server.GRPCAddr)
	assert.Equal(t, ":8000", cfg.Server.HTTPAddr)
	assert.Equal(t, "cli", cfg.OCR.Engine)
	assert.Equal(t, 50, cfg.OCR.MaxPages)
	assert.InDelta(t, 0.3, cfg.Recommend.MinScore, 1e-9)
	assert.Equal(t, int64(10<<20), cfg.Ingest.MaxBytes)
	assert.Empty(t, cfg.Ingest.WatchDirs)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("OCR_DPI", "150")
	t.Setenv("OCR_PSM", "6")
	t.Setenv("OCR_OEM", "1")
	t.Setenv("RECOMMEND_MIN_SCORE", "0.5")
	t.Setenv("WATCH_DIRS", " /a, ,/b ")
	t.Setenv("INGEST_PROCESS_TIMEOUT", "45s")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg := LoadConfig()
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.Store.SQLitePath)
	assert.Equal(t, 150, cfg.OCR.DPI)
	assert.Equal(t, 6, cfg.OCR.PSM)
	assert.Equal(t, 1, cfg.OCR.OEM)
	assert.InDelta(t, 0.5, cfg.Recommend.MinScore, 1e-9)
	assert.Equal(t, []string{"/a", "/b"}, cfg.Ingest.WatchDirs)
	assert.Equal(t, 45*time.Second, cfg.Ingest.ProcessTimeout)
	assert.Equal(t, int32(20), cfg.Store.MaxConns)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = "postgres"; c.Store.DSN = "" }},
		{"sqlite without path", func(c *Config) { c.Store.Driver = "sqlite"; c.Store.SQLitePath = "" }},
		{"no listeners", func(c *Config) { c.Server.GRPCAddr = ""; c.Server.HTTPAddr = "" }},
		{"bad engine", func(c *Config) { c.OCR.Engine = "magic" }},
		{"score out of range", func(c *Config) { c.Recommend.MinScore = 1.5 }},
		{"no upload budget", func(c *Config) { c.Ingest.MaxBytes = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, CodeConfig, ErrorCode(err))
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		grpc codes.Code
		http int
	}{
		{nil, codes.OK, http.StatusOK},
		{NewAppError(CodeNotFound, "claim", ErrNotFound), codes.NotFound, http.StatusNotFound},
		{NewAppError(CodeUnsupportedFormat, "docx", ErrUnsupportedFormat), codes.InvalidArgument, http.StatusUnsupportedMediaType},
		{NewAppError(CodeFileTooLarge, "big", ErrFileTooLarge), codes.InvalidArgument, http.StatusRequestEntityTooLarge},
		{fmt.Errorf("wrapped: %w", ErrExtractionFailed), codes.FailedPrecondition, http.StatusUnprocessableEntity},
		{ErrIncompleteClaim, codes.FailedPrecondition, http.StatusUnprocessableEntity},
		{ErrInvalidSchemeDefinition, codes.InvalidArgument, http.StatusBadRequest},
		{errors.New("boom"), codes.Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.grpc, GRPCCode(tt.err), "%v", tt.err)
		assert.Equal(t, tt.http, HTTPStatus(tt.err), "%v", tt.err)
	}

	st, ok := status.FromError(ToStatus(NewAppError(CodeNotFound, "claim", ErrNotFound)))
	require.True(t, ok)
	assert.Equal(t, codes.NotFound, st.Code())

	already := status.Error(codes.Aborted, "x")
	assert.Equal(t, already, ToStatus(already))
	assert.NoError(t, ToStatus(nil))
}

func TestAppError(t *testing.T) {
	err := NewAppError(CodeExtractionFailed, "ocr", ErrExtractionFailed)
	assert.Equal(t, "EXTRACTION_FAILED: ocr: text extraction failed", err.Error())
	assert.True(t, errors.Is(err, ErrExtractionFailed))
	assert.Equal(t, CodeExtractionFailed, ErrorCode(fmt.Errorf("outer: %w", err)))
	assert.Equal(t, "", ErrorCode(errors.New("plain")))
	assert.Nil(t, WrapError(nil, "x"))
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("claim_id", "not-a-uuid", Required, UUID).
		Field("claim_id", "", Required, UUID).
		Field("status", "granted", Status).
		Field("other_status", "maybe", Status)
	require.True(t, v.HasErrors())
	require.Len(t, v.Errors(), 3)
	assert.Equal(t, "must be a valid UUID", v.Errors()[0].Message)
	assert.Equal(t, "is required", v.Errors()[1].Message)

	err := v.Error()
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.True(t, errors.Is(err, ErrInvalidInput))

	st, ok := status.FromError(ToStatus(err))
	require.True(t, ok)
	assert.Equal(t, codes.InvalidArgument, st.Code())

	ok2 := NewValidator().Field("status", "", Status).Field("id", "6a1f4a1e-3c1f-4c8e-9a61-2c5b7c8d9e0f", UUID)
	assert.NoError(t, ok2.Error())
}

func TestParseClaimQuery(t *testing.T) {
	tests := []struct {
		status, limit, offset string
		want                  ClaimQuery
		wantErr               bool
	}{
		{"", "", "", ClaimQuery{}, false},
		{"GRANTED", "10", "5", ClaimQuery{Status: constants.StatusGranted, Limit: 10, Offset: 5}, false},
		{" approved ", "", "", ClaimQuery{Status: constants.StatusGranted}, false},
		{"maybe", "", "", ClaimQuery{}, true},
		{"", "-1", "", ClaimQuery{}, true},
		{"", "", "1.5", ClaimQuery{}, true},
	}
	for _, tt := range tests {
		got, err := ParseClaimQuery(tt.status, tt.limit, tt.offset)
		if tt.wantErr {
			assert.True(t, IsValidationError(err), "%+v", tt)
			continue
		}
		require.NoError(t, err, "%+v", tt)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseClaimID(t *testing.T) {
	id, err := ParseClaimID(" 6a1f4a1e-3c1f-4c8e-9a61-2c5b7c8d9e0f ")
	require.NoError(t, err)
	assert.Equal(t, "6a1f4a1e-3c1f-4c8e-9a61-2c5b7c8d9e0f", id.String())

	_, err = ParseClaimID("nope")
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestContextHelpers(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "", RequestIDFromContext(context.Background()))

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	Logger(ctx, base).Info("tagged")
	Logger(context.Background(), base).Info("plain")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "request_id=req-1")
	assert.NotContains(t, lines[1], "request_id")
	assert.NotNil(t, Logger(ctx, nil))

	tctx, cancel := WithTimeout(context.Background(), 0)
	_, hasDeadline := tctx.Deadline()
	assert.False(t, hasDeadline)
	cancel()
	assert.Error(t, tctx.Err())

	dctx, cancel := WithTimeout(context.Background(), time.Minute)
	defer cancel()
	_, hasDeadline = dctx.Deadline()
	assert.True(t, hasDeadline)
}
