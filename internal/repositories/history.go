package repositories

import (
	"fmt"

	"github.com/desertthunder/cloudx/internal/models"
)

// HistoryAdapter implements tasks.RunRecorder using RunRepository and OutcomeRepository.
type HistoryAdapter struct {
	runs     *RunRepository
	outcomes *OutcomeRepository
}

// NewHistoryAdapter creates a new HistoryAdapter with the given repositories
func NewHistoryAdapter(runs *RunRepository, outcomes *OutcomeRepository) *HistoryAdapter {
	return &HistoryAdapter{runs: runs, outcomes: outcomes}
}

// StartRun creates a running [models.ImportRun] and returns its ID.
func (a *HistoryAdapter) StartRun(catalogPath string) (string, error) {
	run := models.NewImportRun(0, catalogPath)
	if err := a.runs.Create(run); err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return run.ID(), nil
}

// RecordOutcome stores the terminal state of one song.
func (a *HistoryAdapter) RecordOutcome(runID string, res models.ImportResult) error {
	return a.outcomes.Create(models.NewOutcomeRecord(runID, res))
}

// FinishRun stores the final counts and marks the run completed, or failed when runErr is set.
func (a *HistoryAdapter) FinishRun(runID string, counts models.RunCounts, runErr error) error {
	run, err := a.runs.Get(runID)
	if err != nil {
		return err
	}

	run.SetCounts(counts)
	run.Complete(runErr)
	return a.runs.Update(run)
}
