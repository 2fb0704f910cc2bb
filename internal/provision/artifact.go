package provision

import (
	"fmt"
	"log"
	"os"
	"time"
)

// Artifact is a client configuration file produced by the script.
// The caller that received it owns the file and must call Remove once
// it has been delivered, whether delivery succeeded or not.
type Artifact struct {
	Path      string
	Owner     string // client name
	CreatedAt time.Time
}

// Read returns the file contents.
func (a *Artifact) Read() ([]byte, error) {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration for %s: %w", a.Owner, err)
	}
	return data, nil
}

// Remove deletes the file. A file that is already gone is not an error.
// Failures are logged and returned for callers that want them; request
// handlers are expected to ignore them.
func (a *Artifact) Remove() error {
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: removing %s: %v", a.Path, err)
		return err
	}
	log.Printf("removed %s", a.Path)
	return nil
}
