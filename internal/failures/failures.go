// Package failures persists the ids of songs that did not import.
//
// The log is plain text with one numeric id per line. It is only ever appended to:
// this tool never reads it back, so duplicates across runs are kept.
package failures

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"
)

// DefaultPath is the failure log written when none is configured.
const DefaultPath = "failed_ids.txt"

// Sink appends song ids to a failure log.
//
// The file is opened and closed for every record, so a crash never leaves a
// buffered line behind. Writes are serialised across processes with an
// advisory lock held on a sibling ".lock" file.
type Sink struct {
	path string
	lock *flock.Flock
}

// NewSink creates a Sink for the log at path. Nothing is created until the first record.
func NewSink(path string) *Sink {
	if path == "" {
		path = DefaultPath
	}
	return &Sink{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the failure log location.
func (s *Sink) Path() string {
	return s.path
}

// Record appends id on its own line, creating the log and its directory if needed.
func (s *Sink) Record(id int64) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create failure log directory: %w", err)
		}
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock failure log: %w", err)
	}
	defer s.lock.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open failure log: %w", err)
	}

	if _, err := f.WriteString(strconv.FormatInt(id, 10) + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("failed to write failure log: %w", err)
	}
	return f.Close()
}
