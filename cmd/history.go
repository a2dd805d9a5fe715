package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/cloudx/internal/formatter"
	"github.com/desertthunder/cloudx/internal/models"
	"github.com/desertthunder/cloudx/internal/repositories"
	"github.com/desertthunder/cloudx/internal/shared"
	"github.com/urfave/cli/v3"
)

// runView is the JSON shape of a run in `history list --json`.
type runView struct {
	ID          string           `json:"id"`
	Sequence    int              `json:"sequence"`
	CatalogPath string           `json:"catalog_path"`
	Status      models.RunStatus `json:"status"`
	Counts      models.RunCounts `json:"counts"`
	Error       string           `json:"error,omitempty"`
	StartedAt   string           `json:"started_at"`
}

// HistoryList prints recorded import runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	db, _, err := r.openHistory()
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("%w: database.path is not set", shared.ErrMissingConfig)
	}
	defer db.Close()

	runs, err := repositories.NewRunRepository(db).List(map[string]any{
		"status": cmd.String("status"),
		"limit":  cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]runView, 0, len(runs))
		for _, run := range runs {
			views = append(views, runView{
				ID:          run.ID(),
				Sequence:    run.Sequence(),
				CatalogPath: run.CatalogPath(),
				Status:      run.Status(),
				Counts:      run.Counts(),
				Error:       run.ErrorMessage(),
				StartedAt:   run.StartedAt().Format("2006-01-02T15:04:05Z07:00"),
			})
		}
		return r.writeJSON(views, true)
	}

	if len(runs) == 0 {
		return r.writePlain("No import runs recorded\n")
	}
	return r.writePlain("%s\n", formatter.RenderRuns(runs))
}

// HistoryShow prints or exports the per-song outcomes of one run.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("run")
	if ref == "" {
		return fmt.Errorf("%w: run number or ID", shared.ErrMissingArgument)
	}

	db, _, err := r.openHistory()
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("%w: database.path is not set", shared.ErrMissingConfig)
	}
	defer db.Close()

	run, err := repositories.NewRunRepository(db).Find(ref)
	if err != nil {
		return err
	}

	var states []models.ImportState
	if s := cmd.String("state"); s != "" {
		states = append(states, models.ImportState(s))
	}
	outcomes, err := repositories.NewOutcomeRepository(db).ListByRun(run.ID(), states...)
	if err != nil {
		return err
	}

	format := cmd.String("format")
	output := cmd.String("output")
	if format == "" && output == "" {
		return r.writePlain("%s", formatter.RenderRun(run, outcomes))
	}
	if format == "" {
		format = "csv"
	}

	if output != "" {
		if err := formatter.WriteExport(outcomes, format, output); err != nil {
			return err
		}
		r.logger.Info("outcomes exported", "run", run.Sequence(), "format", format, "path", output)
		return r.writePlain("✓ Exported %d outcomes to %s\n", len(outcomes), output)
	}

	data, err := formatter.Export(outcomes, format)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}
