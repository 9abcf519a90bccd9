package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ToolError is a failed pdftoppm or tesseract invocation.
type ToolError struct {
	Tool    string
	Stderr  string // first 512 bytes
	Missing bool   // binary not found on PATH
	Err     error
}

func (e *ToolError) Error() string {
	switch {
	case e.Missing:
		return fmt.Sprintf("%s: not installed: %v", e.Tool, e.Err)
	case e.Stderr != "":
		return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, e.Stderr)
	default:
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
}

func (e *ToolError) Unwrap() error { return e.Err }

// toolError builds a ToolError from a Runner result.
func toolError(tool string, stderr []byte, err error) *ToolError {
	return &ToolError{
		Tool:    tool,
		Stderr:  strings.TrimSpace(truncate(string(stderr), 512)),
		Missing: errors.Is(err, exec.ErrNotFound),
		Err:     err,
	}
}

type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	logger := r.logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	var out, errb bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()

	attrs := []any{"cmd", name, "args", len(args), "duration_ms", time.Since(start).Milliseconds()}
	switch {
	case err == nil:
		logger.Debug("ocr tool ok", append(attrs, "stdout_bytes", out.Len())...)
	case ctx.Err() != nil:
		// the caller reports cancellation
		logger.Debug("ocr tool cancelled", append(attrs, "error", ctx.Err())...)
	default:
		logger.Error("ocr tool failed", append(attrs, "error", err, "stderr", truncate(errb.String(), 8<<10))...)
	}
	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
