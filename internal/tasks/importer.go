package tasks

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cloudx/internal/models"
	"github.com/desertthunder/cloudx/internal/services"
	"github.com/desertthunder/cloudx/internal/shared"
)

// ImportClient issues cloud import calls. Implemented by [services.GatewayService].
type ImportClient interface {
	CloudImport(ctx context.Context, token string, song models.ResolvedSong) (*services.CloudImportResponse, error)
}

// FailureRecorder persists the id of a song that ended without importing.
// Implemented by failures.Sink.
type FailureRecorder interface {
	Record(id int64) error
}

// SleepFunc blocks for d or until ctx is done, returning ctx's error in the latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy bounds the per-song retry loop.
type RetryPolicy struct {
	MaxAttempts         int           // Counted attempts per song
	RetryDelay          time.Duration // Wait after a business failure
	RateLimitDelay      time.Duration // Wait after a rate-limit response
	MaxRateLimitRetries int           // Rate-limit waits allowed per song before giving up
}

// DefaultRetryPolicy returns the policy used when nothing is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:         3,
		RetryDelay:          5 * time.Second,
		RateLimitDelay:      40 * time.Second,
		MaxRateLimitRetries: 15,
	}
}

// ImportDriver imports resolved songs one at a time and applies the retry policy.
type ImportDriver struct {
	client ImportClient
	sink   FailureRecorder
	policy RetryPolicy
	sleep  SleepFunc
	logger *log.Logger
}

// NewImportDriver creates a driver that records skipped and exhausted songs in sink.
func NewImportDriver(client ImportClient, sink FailureRecorder, policy RetryPolicy, logger *log.Logger) *ImportDriver {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultRetryPolicy().MaxAttempts
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &ImportDriver{
		client: client,
		sink:   sink,
		policy: policy,
		sleep:  sleepContext,
		logger: logger,
	}
}

// WithSleeper replaces the wait used between attempts.
func (d *ImportDriver) WithSleeper(fn SleepFunc) *ImportDriver {
	if fn != nil {
		d.sleep = fn
	}
	return d
}

// Policy returns the driver's retry policy.
func (d *ImportDriver) Policy() RetryPolicy {
	return d.policy
}

// Interpret classifies a single import response.
//
// A response without successSongs whose failed entries all carry the
// file-exists code is treated as already present; an empty failed list
// counts as well.
func Interpret(resp *services.CloudImportResponse) models.ImportOutcome {
	if resp.Code == services.CodeRateLimited {
		return models.ImportOutcome{Kind: models.OutcomeRateLimited}
	}
	if len(resp.Data.SuccessSongs) > 0 {
		return models.ImportOutcome{Kind: models.OutcomeSuccess}
	}
	for _, f := range resp.Data.Failed {
		if f.Code != services.CodeFileExists {
			return models.ImportOutcome{Kind: models.OutcomeOtherFailure, Detail: failureDetail(resp)}
		}
	}
	return models.ImportOutcome{Kind: models.OutcomeAlreadyExists}
}

// Import runs the retry loop for a single song and returns its terminal state.
//
// Rate-limit responses do not consume the attempt budget, but more than
// MaxRateLimitRetries of them end the song as exhausted. Skipped and exhausted
// songs are written to the failure log exactly once. When ctx is cancelled the
// song is abandoned unrecorded and ctx's error is returned.
func (d *ImportDriver) Import(ctx context.Context, token string, song models.ResolvedSong, progress chan<- ProgressUpdate) (models.ImportResult, error) {
	res := models.ImportResult{Song: song, State: models.StatePending}
	logger := shared.WithLogger(d.logger, "song_id", song.ID)

	for res.Attempts < d.policy.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.State = models.StateAttempting

		resp, err := d.client.CloudImport(ctx, token, song)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Attempts++
			res.Detail = err.Error()
			logger.Warn("import request failed", "attempt", res.Attempts, "error", err)
			sendProgress(progress, retryUpdate(song, res.Attempts, d.policy.MaxAttempts))
			continue
		}

		outcome := Interpret(resp)
		switch outcome.Kind {
		case models.OutcomeRateLimited:
			res.RateLimited++
			if res.RateLimited > d.policy.MaxRateLimitRetries {
				res.Detail = fmt.Sprintf("%v: gave up after %d rate-limit waits", shared.ErrRateLimited, d.policy.MaxRateLimitRetries)
				return d.finish(logger, res, models.StateExhaustedRetries), nil
			}
			logger.Warn("rate limited, waiting", "delay", d.policy.RateLimitDelay, "hits", res.RateLimited)
			sendProgress(progress, rateLimitedUpdate(song, d.policy.RateLimitDelay, res.RateLimited))
			if err := d.sleep(ctx, d.policy.RateLimitDelay); err != nil {
				return res, err
			}

		case models.OutcomeSuccess:
			res.Attempts++
			res.Detail = ""
			return d.finish(logger, res, models.StateSucceeded), nil

		case models.OutcomeAlreadyExists:
			res.Attempts++
			res.Detail = "file already exists in cloud"
			return d.finish(logger, res, models.StateSkippedExisting), nil

		default:
			res.Detail = outcome.Detail
			logger.Warn("import failed, retrying", "attempt", res.Attempts+1, "delay", d.policy.RetryDelay, "detail", outcome.Detail)
			sendProgress(progress, retryUpdate(song, res.Attempts+1, d.policy.MaxAttempts))
			if err := d.sleep(ctx, d.policy.RetryDelay); err != nil {
				return res, err
			}
			res.Attempts++
		}
	}

	return d.finish(logger, res, models.StateExhaustedRetries), nil
}

// ImportAll imports songs strictly in order. onResult, when set, observes each terminal result.
//
// On cancellation the results gathered so far are returned with ctx's error.
func (d *ImportDriver) ImportAll(
	ctx context.Context,
	token string,
	songs []models.ResolvedSong,
	progress chan<- ProgressUpdate,
	onResult func(models.ImportResult),
) ([]models.ImportResult, error) {
	results := make([]models.ImportResult, 0, len(songs))
	total := len(songs)

	for i, song := range songs {
		sendProgress(progress, importSongUpdate(i+1, total, song))

		res, err := d.Import(ctx, token, song, progress)
		if err != nil {
			return results, err
		}

		results = append(results, res)
		if onResult != nil {
			onResult(res)
		}
		sendProgress(progress, songFinishedUpdate(i+1, total, res))
	}
	return results, nil
}

func (d *ImportDriver) finish(logger *log.Logger, res models.ImportResult, state models.ImportState) models.ImportResult {
	res.State = state
	switch state {
	case models.StateSucceeded:
		logger.Info("imported", "name", res.Song.Name, "attempts", res.Attempts)
	case models.StateSkippedExisting:
		logger.Info("already in cloud, skipped", "name", res.Song.Name)
	default:
		logger.Error("giving up", "name", res.Song.Name, "attempts", res.Attempts, "rate_limited", res.RateLimited, "detail", res.Detail)
	}

	if state.Recorded() && d.sink != nil {
		if err := d.sink.Record(res.Song.ID); err != nil {
			logger.Error("failed to record song in failure log", "error", err)
		}
	}
	return res
}

func failureDetail(resp *services.CloudImportResponse) string {
	if len(resp.Raw) > 0 {
		return truncateDetail(string(resp.Raw), 300)
	}
	if resp.Message != "" {
		return resp.Message
	}
	return fmt.Sprintf("code %d", resp.Code)
}

// truncateDetail cuts s to at most n bytes without splitting a rune.
func truncateDetail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
