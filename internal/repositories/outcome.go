package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/cloudx/internal/models"
	"github.com/desertthunder/cloudx/internal/shared"
)

// OutcomeRepository stores the terminal state of each song in a run.
type OutcomeRepository struct {
	db *sql.DB
}

// NewOutcomeRepository creates a new OutcomeRepository with the given database connection
func NewOutcomeRepository(db *sql.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// Create inserts an outcome with a generated ID
func (r *OutcomeRepository) Create(o *models.OutcomeRecord) error {
	if o.RunID == "" {
		return fmt.Errorf("validation failed: run id is required")
	}
	if !o.State.Terminal() {
		return fmt.Errorf("validation failed: state %q is not terminal", o.State)
	}

	o.ID = shared.GenerateID()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO import_outcomes (id, run_id, song_id, name, artist, album, state, attempts, rate_limited, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		o.ID,
		o.RunID,
		o.SongID,
		o.Name,
		o.Artist,
		o.Album,
		o.State,
		o.Attempts,
		o.RateLimited,
		o.Detail,
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}

	return nil
}

// ListByRun returns a run's outcomes in the order they were recorded.
//
// When states are given only outcomes in one of them are returned.
func (r *OutcomeRepository) ListByRun(runID string, states ...models.ImportState) ([]*models.OutcomeRecord, error) {
	query := `
		SELECT id, run_id, song_id, name, artist, album, state, attempts, rate_limited, detail, created_at
		FROM import_outcomes
		WHERE run_id = ?
	`
	args := []any{runID}

	if len(states) > 0 {
		query += " AND state IN (?" + strings.Repeat(", ?", len(states)-1) + ")"
		for _, s := range states {
			args = append(args, string(s))
		}
	}

	query += " ORDER BY rowid ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*models.OutcomeRecord
	for rows.Next() {
		var (
			o     models.OutcomeRecord
			state string
		)
		err := rows.Scan(&o.ID, &o.RunID, &o.SongID, &o.Name, &o.Artist, &o.Album, &state, &o.Attempts, &o.RateLimited, &o.Detail, &o.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.State = models.ImportState(state)
		outcomes = append(outcomes, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return outcomes, nil
}

// CountByState tallies a run's outcomes per state.
func (r *OutcomeRepository) CountByState(runID string) (map[models.ImportState]int, error) {
	rows, err := r.db.Query(`SELECT state, COUNT(*) FROM import_outcomes WHERE run_id = ? GROUP BY state`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer rows.Close()

	counts := map[models.ImportState]int{}
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan outcome count: %w", err)
		}
		counts[models.ImportState(state)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return counts, nil
}
