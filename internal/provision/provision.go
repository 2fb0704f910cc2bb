// Package provision drives the external VPN management script: it adds
// clients, locates the configuration file the script produced, and
// reports server status. It is consumed by both the Telegram bot and
// the MCP server.
package provision

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deixis/ovpnbot/internal/runner"
)

// CommandRunner executes the management script with the given arguments.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, args []string) (*runner.Result, error)
}

// Provisioner holds the shared, read-only dependencies for all script
// operations. Its zero-value lock state is ready to use; a Provisioner
// must not be copied after first use.
type Provisioner struct {
	Runner    CommandRunner
	WorkDir   string
	Extension string   // expected artifact extension, without dot
	Fallbacks []string // candidate templates with {workdir} and {name}
	Serialize Serialization

	locks keyedLock
}

// ProvisionClient runs "client add <name>" and returns the configuration
// file the script produced. The expected location is
// <WorkDir>/<name>.<Extension>; when it is missing, the Fallbacks are
// probed in order. The probing works around scripts that write their
// output elsewhere and is not meant to grow further.
func (p *Provisioner) ProvisionClient(ctx context.Context, name string) (*Artifact, error) {
	if err := ValidateClientName(name); err != nil {
		return nil, err
	}

	release, err := p.acquire(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("waiting to add %s: %w", name, err)
	}
	defer release()

	log.Printf("adding VPN client %s", name)

	args := []string{"client", "add", name}
	res, err := p.Runner.Run(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("client add %s: %w", name, err)
	}
	logResult(args, res)

	if res.ExitCode != 0 {
		return nil, &ExecutionError{
			Op:         "client add",
			RunID:      res.RunID,
			ExitCode:   res.ExitCode,
			Diagnostic: res.Diagnostic(),
		}
	}

	candidates := p.Candidates(name)
	for i, path := range candidates {
		if !isFile(path) {
			continue
		}
		if i > 0 {
			log.Printf("configuration for %s found at fallback path %s", name, path)
		} else {
			log.Printf("configuration for %s created at %s", name, path)
		}
		return &Artifact{Path: path, Owner: name, CreatedAt: time.Now()}, nil
	}
	return nil, &ArtifactNotFoundError{Client: name, Probed: candidates}
}

// ServerStatus runs "server status" and returns its stdout verbatim.
func (p *Provisioner) ServerStatus(ctx context.Context) (string, error) {
	log.Printf("checking server status")

	args := []string{"server", "status"}
	res, err := p.Runner.Run(ctx, args)
	if err != nil {
		return "", fmt.Errorf("server status: %w", err)
	}
	logResult(args, res)

	if res.ExitCode != 0 {
		return "", &ExecutionError{
			Op:         "server status",
			RunID:      res.RunID,
			ExitCode:   res.ExitCode,
			Diagnostic: res.Diagnostic(),
		}
	}
	return string(res.Stdout), nil
}

// Candidates returns every path probed for name, expected path first,
// without duplicates.
func (p *Provisioner) Candidates(name string) []string {
	ext := strings.TrimPrefix(p.Extension, ".")
	if ext == "" {
		ext = "ovpn"
	}
	r := strings.NewReplacer("{workdir}", p.WorkDir, "{name}", name)

	paths := make([]string, 0, len(p.Fallbacks)+1)
	seen := make(map[string]bool, len(p.Fallbacks)+1)
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}
	add(filepath.Join(p.WorkDir, name+"."+ext))
	for _, f := range p.Fallbacks {
		add(r.Replace(f))
	}
	return paths
}

// Discard removes every candidate file for name and returns the paths it
// removed. It is used after a failed delivery, when the script may have
// written a file before failing. Errors are logged, never returned.
func (p *Provisioner) Discard(name string) []string {
	if ValidateClientName(name) != nil {
		return nil
	}
	var removed []string
	for _, path := range p.Candidates(name) {
		if !isFile(path) {
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Printf("warning: discarding %s: %v", path, err)
			continue
		}
		log.Printf("discarded %s", path)
		removed = append(removed, path)
	}
	return removed
}

func (p *Provisioner) acquire(ctx context.Context, name string) (func(), error) {
	switch p.Serialize {
	case SerializeNone:
		return func() {}, nil
	case SerializeClient:
		return p.locks.acquire(ctx, name)
	default:
		return p.locks.acquire(ctx, "")
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func logResult(args []string, res *runner.Result) {
	cmd := strings.Join(args, " ")
	if out := bytes.TrimSpace(res.Stdout); len(out) > 0 {
		log.Printf("run %s (%s): stdout: %s", res.RunID, cmd, out)
	}
	if out := bytes.TrimSpace(res.Stderr); len(out) > 0 {
		log.Printf("warning: run %s (%s): stderr: %s", res.RunID, cmd, out)
	}
	if res.Truncated {
		log.Printf("warning: run %s (%s): output truncated", res.RunID, cmd)
	}
	log.Printf("run %s (%s): exit %d in %s", res.RunID, cmd, res.ExitCode, res.Duration.Round(time.Millisecond))
}
