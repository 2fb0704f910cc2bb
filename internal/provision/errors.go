package provision

import (
	"fmt"
	"strings"

	"github.com/deixis/ovpnbot/internal/runner"
)

// ErrTimeout is returned when the script outlives the runner timeout.
var ErrTimeout = runner.ErrTimeout

// ExecutionError is returned when the script exits with a non-zero status.
// Diagnostic holds its stderr, or stdout when stderr was empty.
type ExecutionError struct {
	Op         string // e.g. "client add", "server status"
	RunID      string
	ExitCode   int
	Diagnostic string
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Op, e.ExitCode)
	if d := strings.TrimSpace(e.Diagnostic); d != "" {
		msg += ": " + d
	}
	return msg
}

// ArtifactNotFoundError is returned when client add succeeded but no
// configuration file exists at any candidate path.
type ArtifactNotFoundError struct {
	Client string
	Probed []string // in probe order, expected path first
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("configuration for %s not found after client add (probed %s)",
		e.Client, strings.Join(e.Probed, ", "))
}

// InvalidClientNameError is returned for names that are unsafe to pass
// to the script or to use as a file name.
type InvalidClientNameError struct {
	Name   string
	Reason string
}

func (e *InvalidClientNameError) Error() string {
	return fmt.Sprintf("invalid client name %q: %s", e.Name, e.Reason)
}
