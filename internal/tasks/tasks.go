// package tasks implements the cloud import pipeline.
//
// The core abstraction is Pipeline, which loads a catalog, resolves it against the gateway and imports every song.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cloudx/internal/models"
	"github.com/desertthunder/cloudx/internal/shared"
)

// CatalogLoader reads song descriptors from a catalog file. Implemented by catalog.Loader.
type CatalogLoader interface {
	Load(path string) ([]models.SongDescriptor, error)
}

// RunRecorder stores the history of a pipeline run. Implemented by repositories.HistoryAdapter.
//
// History is informational only: recorder errors are logged and never stop an import.
type RunRecorder interface {
	StartRun(catalogPath string) (string, error)
	RecordOutcome(runID string, res models.ImportResult) error
	FinishRun(runID string, counts models.RunCounts, runErr error) error
}

// Summary is the outcome of a full pipeline run.
type Summary struct {
	models.RunCounts
	RunID       string                // History run id, empty without a recorder
	CatalogPath string                // Catalog that was imported
	Results     []models.ImportResult // Terminal result per resolved song, in import order
}

// Failed returns the results that did not end in success.
func (s *Summary) Failed() []models.ImportResult {
	var out []models.ImportResult
	for _, r := range s.Results {
		if r.State != models.StateSucceeded {
			out = append(out, r)
		}
	}
	return out
}

// Pipeline wires the catalog loader, detail resolver and import driver into one run.
type Pipeline struct {
	loader   CatalogLoader
	resolver *DetailResolver
	driver   *ImportDriver
	history  RunRecorder
	logger   *log.Logger
}

// NewPipeline creates a Pipeline. history may be nil.
func NewPipeline(loader CatalogLoader, resolver *DetailResolver, driver *ImportDriver, history RunRecorder, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Pipeline{
		loader:   loader,
		resolver: resolver,
		driver:   driver,
		history:  history,
		logger:   logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run imports every song in the catalog at catalogPath using token.
//
// Catalog errors are returned before anything is sent to the gateway, so a caller
// may retry with a different path. After that point the returned Summary is always
// non-nil and reflects the songs processed, even when ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, token, catalogPath string, progress chan<- ProgressUpdate) (*Summary, error) {
	if p.loader == nil || p.resolver == nil || p.driver == nil {
		return nil, fmt.Errorf("%w: import pipeline not initialized", shared.ErrServiceUnavailable)
	}
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}

	sendProgress(progress, loadCatalogUpdate(catalogPath))
	songs, err := p.loader.Load(catalogPath)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, loadedCatalogUpdate(catalogPath, len(songs)))

	summary := &Summary{CatalogPath: catalogPath}
	summary.Total = len(songs)
	summary.RunID = p.startRun(catalogPath)

	resolved, err := p.resolver.Resolve(ctx, token, songs, progress)
	summary.Resolved = len(resolved)
	if err != nil {
		p.finishRun(summary, err)
		return summary, err
	}
	p.logger.Info("songs resolved", "catalog", summary.Total, "importable", summary.Resolved)

	results, err := p.driver.ImportAll(ctx, token, resolved, progress, func(res models.ImportResult) {
		p.recordOutcome(summary.RunID, res)
	})
	summary.Results = results
	for _, r := range results {
		switch r.State {
		case models.StateSucceeded:
			summary.Succeeded++
		case models.StateSkippedExisting:
			summary.Skipped++
		case models.StateExhaustedRetries:
			summary.Exhausted++
		}
	}

	p.finishRun(summary, err)
	return summary, err
}

func (p *Pipeline) startRun(catalogPath string) string {
	if p.history == nil {
		return ""
	}
	id, err := p.history.StartRun(catalogPath)
	if err != nil {
		p.logger.Warn("failed to start history run", "error", err)
		return ""
	}
	return id
}

func (p *Pipeline) recordOutcome(runID string, res models.ImportResult) {
	if p.history == nil || runID == "" {
		return
	}
	if err := p.history.RecordOutcome(runID, res); err != nil {
		p.logger.Warn("failed to record outcome", "song_id", res.Song.ID, "error", err)
	}
}

func (p *Pipeline) finishRun(s *Summary, runErr error) {
	if p.history == nil || s.RunID == "" {
		return
	}
	if err := p.history.FinishRun(s.RunID, s.RunCounts, runErr); err != nil {
		p.logger.Warn("failed to finish history run", "run_id", s.RunID, "error", err)
	}
}
