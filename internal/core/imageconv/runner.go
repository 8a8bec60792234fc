package imageconv

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Runner executes a converter tool. Tests replace it with a stub that writes the output file.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs converter binaries found on PATH.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	bin, err := exec.LookPath(name)
	if err != nil {
		return nil, nil, fmt.Errorf("%s not found on PATH: %w", name, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	err = cmd.Run()
	attrs := []any{"tool", name, "bin", bin, "duration_ms", time.Since(start).Milliseconds()}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		attrs = append(attrs, "error", err, "stderr", tail(stderr.String(), 4<<10))
		logger.Warn("imageconv.exec.failed", attrs...)
		return stdout.Bytes(), stderr.Bytes(), err
	}
	logger.Debug("imageconv.exec.ok", attrs...)
	return stdout.Bytes(), stderr.Bytes(), nil
}

// tail keeps the end of s; converters print the actual failure last.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
