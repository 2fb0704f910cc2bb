// Package runner executes the external VPN management program with a
// fixed working directory, a bounded wait, and output size limits.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ErrTimeout is returned when the program does not exit within the
// runner's timeout. The process is killed before Run returns.
var ErrTimeout = errors.New("command timed out")

// Runner executes a single configured program.
type Runner struct {
	Program   string // absolute path to the executable
	WorkDir   string
	Timeout   time.Duration
	MaxOutput int // bytes, per stream
}

// Run executes Program with args appended, inside WorkDir, and waits for
// it to exit. A non-zero exit status is reported through Result.ExitCode,
// not as an error. Errors are reserved for launch failures and timeouts.
func (r *Runner) Run(ctx context.Context, args []string) (*Result, error) {
	if r.Program == "" {
		return nil, fmt.Errorf("no program configured")
	}

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	runID := uuid.New().String()

	cmd := exec.CommandContext(runCtx, r.Program, args...)
	cmd.Dir = r.WorkDir
	// Children that inherit the pipes must not keep Wait blocked after a kill.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitWriter{buf: &stdout, limit: r.MaxOutput}
	cmd.Stderr = &limitWriter{buf: &stderr, limit: r.MaxOutput}

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if timedOut(runErr, runCtx, ctx) {
		return nil, fmt.Errorf("%s %v after %s: %w", filepath.Base(r.Program), args, r.Timeout, ErrTimeout)
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) && ctx.Err() == nil {
			exitCode = exitErr.ExitCode()
		} else {
			// Program missing, not executable, or the caller gave up.
			return nil, fmt.Errorf("executing %s: %w", r.Program, runErr)
		}
	}

	truncated := r.MaxOutput > 0 && (stdout.Len() >= r.MaxOutput || stderr.Len() >= r.MaxOutput)

	return &Result{
		RunID:     runID,
		ExitCode:  exitCode,
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Truncated: truncated,
		Duration:  elapsed,
	}, nil
}

// timedOut reports whether a failed run was killed by the runner's own
// deadline. A program that exited cleanly just before the deadline fired
// did not time out, and neither did one whose caller gave up.
func timedOut(runErr error, runCtx, parent context.Context) bool {
	return runErr != nil &&
		errors.Is(runCtx.Err(), context.DeadlineExceeded) &&
		parent.Err() == nil
}

// CheckExecutable reports whether path names an existing regular file
// with at least one execute bit set. It is meant to run once at startup.
func CheckExecutable(path string) error {
	if path == "" {
		return fmt.Errorf("program path is empty")
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("program path %q is not absolute", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("program %s not found", path)
		}
		return fmt.Errorf("checking program %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("program %s is a directory", path)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("program %s is not executable", path)
	}
	return nil
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
// A limit of zero or less means no limit.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if w.limit <= 0 {
		return w.buf.Write(p)
	}
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Report all bytes as consumed to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
