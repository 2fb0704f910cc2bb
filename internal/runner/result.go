package runner

import "time"

// Result holds the output of one program invocation.
type Result struct {
	RunID     string        // correlates log lines for this invocation
	ExitCode  int           // process exit code
	Stdout    []byte        // captured stdout (may be truncated)
	Stderr    []byte        // captured stderr (may be truncated)
	Truncated bool          // true if either stream exceeded the size cap
	Duration  time.Duration // wall time from start to exit
}

// Diagnostic returns the text that best explains a failed run:
// stderr when it is non-empty, stdout otherwise.
func (r *Result) Diagnostic() string {
	if len(r.Stderr) > 0 {
		return string(r.Stderr)
	}
	return string(r.Stdout)
}
