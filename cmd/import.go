package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/cloudx/internal/catalog"
	"github.com/desertthunder/cloudx/internal/formatter"
	"github.com/desertthunder/cloudx/internal/shared"
	"github.com/desertthunder/cloudx/internal/tasks"
	"github.com/desertthunder/cloudx/internal/ui"
	"github.com/urfave/cli/v3"
)

// Import loads the catalog, resolves it against the gateway and imports every song into the cloud locker.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	token, err := r.token(ctx, cmd)
	if err != nil {
		return err
	}

	cloud, err := r.sessions.Verify(ctx, token)
	if err != nil {
		return err
	}
	r.writePlain("%s\n", formatter.RenderCloudInfo(cloud.Count, int64(cloud.Size), int64(cloud.MaxSize)))

	var history tasks.RunRecorder
	if !cmd.Bool("no-history") {
		db, adapter, err := r.openHistory()
		if err != nil {
			r.logger.Warn("import history disabled", "error", err)
		} else if db != nil {
			defer db.Close()
			history = adapter
		}
	}

	catalogPath := cmd.String("catalog")
	if catalogPath == "" {
		catalogPath = r.config.Import.CatalogPath
	}
	if catalogPath == "" {
		catalogPath = catalog.DefaultPath
	}

	for {
		var summary *tasks.Summary
		if cmd.Bool("tui") {
			summary, err = r.importTUI(ctx, history, token, catalogPath)
		} else {
			summary, err = r.importPlain(ctx, history, token, catalogPath)
		}

		if summary == nil && isCatalogError(err) && r.prompter != nil {
			r.logger.Error("cannot read catalog", "path", catalogPath, "error", err)
			next, perr := r.promptCatalog(catalogPath)
			if perr != nil {
				return perr
			}
			catalogPath = next
			continue
		}

		if summary != nil && !cmd.Bool("tui") {
			r.writeSummary(summary)
		}
		return err
	}
}

// importPlain runs the pipeline and prints progress lines as they arrive.
func (r *Runner) importPlain(ctx context.Context, history tasks.RunRecorder, token, catalogPath string) (*tasks.Summary, error) {
	pipeline := r.newPipeline(history)
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.LoadCatalog:
				r.writePlain("📂 %s\n", update.Message)
			case tasks.ResolveBatch:
				r.writePlain("🔍 %s\n", update.Message)
			case tasks.ImportSong:
				r.writePlain("\n⬆  %s\n", update.Message)
			case tasks.RateLimited:
				r.writePlain("   ⏳ %s\n", update.Message)
			case tasks.RetryImport:
				r.writePlain("   ↻ %s\n", update.Message)
			case tasks.SongFinished:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	summary, err := pipeline.Run(ctx, token, catalogPath, progressCh)
	close(progressCh)
	<-done

	return summary, err
}

// importTUI runs the pipeline behind the full-screen progress view.
func (r *Runner) importTUI(ctx context.Context, history tasks.RunRecorder, token, catalogPath string) (*tasks.Summary, error) {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/cloudx-tui.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	previous := r.logger
	r.SetLogger(fileLogger)
	defer r.SetLogger(previous)

	pipeline := r.newPipeline(history)
	run := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.Summary, error) {
		return pipeline.Run(ctx, token, catalogPath, progress)
	}

	model := ui.NewModel(ctx, run, r.config.Import.FailureLog)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return nil, fmt.Errorf("error running TUI: %w", err)
	}
	return model.Summary()
}

func (r *Runner) writeSummary(summary *tasks.Summary) {
	r.writePlain("\n")
	r.writePlainHeader("Import Complete!")
	if summary.RunID != "" {
		r.writePlain("Run: %s\n", summary.RunID)
	}
	r.writePlain("%s", formatter.RenderSummary(summary.RunCounts, summary.Failed(), r.config.Import.FailureLog))
}

// promptCatalog asks whether to try another catalog path and returns it.
func (r *Runner) promptCatalog(current string) (string, error) {
	choice, err := r.prompter.Choose("The catalog could not be read", []ui.Choice{
		{Label: "Try another file", Detail: "Enter a different catalog path"},
		{Label: "Abort", Detail: "Exit without importing"},
	})
	if err != nil {
		return "", err
	}
	if choice != 0 {
		return "", shared.ErrAborted
	}

	initial := current
	if initial == "" {
		initial = catalog.DefaultPath
	}
	path, err := r.prompter.Input("Catalog path", catalog.DefaultPath, initial, false)
	if err != nil {
		return "", err
	}
	if path == "" {
		path = catalog.DefaultPath
	}
	return path, nil
}

func isCatalogError(err error) bool {
	return errors.Is(err, shared.ErrCatalogNotFound) ||
		errors.Is(err, shared.ErrInvalidCatalog) ||
		errors.Is(err, shared.ErrEmptyCatalog)
}
