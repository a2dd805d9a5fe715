package tasks

import (
	"fmt"
	"time"

	"github.com/desertthunder/cloudx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LoadCatalog Phase = iota
	ResolveBatch
	ImportSong
	RateLimited
	RetryImport
	SongFinished
)

func (p Phase) String() string {
	switch p {
	case LoadCatalog:
		return "load_catalog"
	case ResolveBatch:
		return "resolve_batch"
	case ImportSong:
		return "import_song"
	case RateLimited:
		return "rate_limited"
	case RetryImport:
		return "retry_import"
	case SongFinished:
		return "song_finished"
	default:
		return ""
	}
}

func loadCatalogUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadCatalog,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loading catalog %s...", path),
	}
}

func loadedCatalogUpdate(path string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadCatalog,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded %d songs from %s", count, path),
		Data:    count,
	}
}

func resolveBatchUpdate(step, total, size int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveBatch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Looking up %d songs...", step, total, size),
	}
}

func importSongUpdate(step, total int, song models.ResolvedSong) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportSong,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, song),
		Data:    song,
	}
}

func rateLimitedUpdate(song models.ResolvedSong, wait time.Duration, hits int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RateLimited,
		Step:    hits,
		Message: fmt.Sprintf("Rate limited on %s, waiting %s", song.Name, wait),
	}
}

func retryUpdate(song models.ResolvedSong, attempt, limit int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RetryImport,
		Step:    attempt,
		Total:   limit,
		Message: fmt.Sprintf("Import of %s failed (attempt %d/%d)", song.Name, attempt, limit),
	}
}

func songFinishedUpdate(step, total int, res models.ImportResult) ProgressUpdate {
	mark := "✓"
	switch res.State {
	case models.StateSkippedExisting:
		mark = "="
	case models.StateExhaustedRetries:
		mark = "✗"
	}
	return ProgressUpdate{
		Phase:   SongFinished,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s (%s)", step, total, mark, res.Song, res.State),
		Data:    res,
	}
}
