package models

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of an [ImportRun].
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ImportRun records one invocation of the import pipeline.
type ImportRun struct {
	id             string
	sequence       int
	catalogPath    string
	status         RunStatus
	songsTotal     int
	songsResolved  int
	songsSucceeded int
	songsSkipped   int
	songsExhausted int
	errorMessage   string
	startedAt      time.Time
	completedAt    *time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

// NewImportRun creates a running [ImportRun] for the given catalog.
func NewImportRun(sequence int, catalogPath string) *ImportRun {
	now := time.Now()
	return &ImportRun{
		sequence:    sequence,
		catalogPath: catalogPath,
		status:      RunRunning,
		startedAt:   now,
		createdAt:   now,
		updatedAt:   now,
	}
}

func (r *ImportRun) ID() string              { return r.id }
func (r *ImportRun) Sequence() int           { return r.sequence }
func (r *ImportRun) CatalogPath() string     { return r.catalogPath }
func (r *ImportRun) Status() RunStatus       { return r.status }
func (r *ImportRun) SongsTotal() int         { return r.songsTotal }
func (r *ImportRun) SongsResolved() int      { return r.songsResolved }
func (r *ImportRun) SongsSucceeded() int     { return r.songsSucceeded }
func (r *ImportRun) SongsSkipped() int       { return r.songsSkipped }
func (r *ImportRun) SongsExhausted() int     { return r.songsExhausted }
func (r *ImportRun) ErrorMessage() string    { return r.errorMessage }
func (r *ImportRun) StartedAt() time.Time    { return r.startedAt }
func (r *ImportRun) CompletedAt() *time.Time { return r.completedAt }
func (r *ImportRun) CreatedAt() time.Time    { return r.createdAt }
func (r *ImportRun) UpdatedAt() time.Time    { return r.updatedAt }

func (r *ImportRun) SetID(id string)             { r.id = id }
func (r *ImportRun) SetSequence(seq int)         { r.sequence = seq }
func (r *ImportRun) SetStatus(s RunStatus)       { r.status = s }
func (r *ImportRun) SetCreatedAt(t time.Time)    { r.createdAt = t }
func (r *ImportRun) SetUpdatedAt(t time.Time)    { r.updatedAt = t }
func (r *ImportRun) SetStartedAt(t time.Time)    { r.startedAt = t }
func (r *ImportRun) SetCompletedAt(t *time.Time) { r.completedAt = t }
func (r *ImportRun) SetErrorMessage(msg string)  { r.errorMessage = msg }

// RunCounts tallies songs through each stage of an import.
type RunCounts struct {
	Total     int // Catalog entries loaded
	Resolved  int // Unique importable songs after detail lookup
	Succeeded int
	Skipped   int // Already in the cloud locker
	Exhausted int // Gave up after the retry budget
}

// Counts returns the run's song counters.
func (r *ImportRun) Counts() RunCounts {
	return RunCounts{
		Total:     r.songsTotal,
		Resolved:  r.songsResolved,
		Succeeded: r.songsSucceeded,
		Skipped:   r.songsSkipped,
		Exhausted: r.songsExhausted,
	}
}

// SetCounts stores the run's song counters.
func (r *ImportRun) SetCounts(c RunCounts) {
	r.songsTotal = c.Total
	r.songsResolved = c.Resolved
	r.songsSucceeded = c.Succeeded
	r.songsSkipped = c.Skipped
	r.songsExhausted = c.Exhausted
}

// Complete marks the run finished, failed when err is non-nil.
func (r *ImportRun) Complete(err error) {
	now := time.Now()
	r.completedAt = &now
	r.updatedAt = now
	if err != nil {
		r.status = RunFailed
		r.errorMessage = err.Error()
		return
	}
	r.status = RunCompleted
}

// Validate checks the run's invariants.
func (r *ImportRun) Validate() error {
	if r.catalogPath == "" {
		return fmt.Errorf("catalog path is required")
	}
	switch r.status {
	case RunRunning, RunCompleted, RunFailed:
	default:
		return fmt.Errorf("invalid run status: %q", r.status)
	}
	if r.songsSucceeded+r.songsSkipped+r.songsExhausted > r.songsResolved {
		return fmt.Errorf("outcome counts exceed resolved songs")
	}
	return nil
}

// OutcomeRecord is one song's terminal state within an [ImportRun].
type OutcomeRecord struct {
	ID          string
	RunID       string
	SongID      int64
	Name        string
	Artist      string
	Album       string
	State       ImportState
	Attempts    int
	RateLimited int
	Detail      string
	CreatedAt   time.Time
}

// NewOutcomeRecord builds an [OutcomeRecord] for runID from an [ImportResult].
func NewOutcomeRecord(runID string, res ImportResult) *OutcomeRecord {
	return &OutcomeRecord{
		RunID:       runID,
		SongID:      res.Song.ID,
		Name:        res.Song.Name,
		Artist:      res.Song.Artist,
		Album:       res.Song.Album,
		State:       res.State,
		Attempts:    res.Attempts,
		RateLimited: res.RateLimited,
		Detail:      res.Detail,
		CreatedAt:   time.Now(),
	}
}
