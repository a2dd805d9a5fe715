package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/cloudx/internal/models"
	"github.com/desertthunder/cloudx/internal/shared"
)

const runColumns = `
	id, sequence, catalog_path, status, songs_total, songs_resolved,
	songs_succeeded, songs_skipped, songs_exhausted, error_message,
	started_at, completed_at, created_at, updated_at
`

// RunRepository implements models.Repository[*models.ImportRun] for import history.
//
// Deleting a run removes its outcomes through the foreign key cascade.
type RunRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.ImportRun] = (*RunRepository)(nil)

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run into the database with generated ID and sequence
func (r *RunRepository) Create(run *models.ImportRun) error {
	sequence, err := NextSequence(r.db, "import_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `INSERT INTO import_runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	counts := run.Counts()
	_, err = r.db.Exec(query,
		id,
		sequence,
		run.CatalogPath(),
		run.Status(),
		counts.Total,
		counts.Resolved,
		counts.Succeeded,
		counts.Skipped,
		counts.Exhausted,
		nullString(run.ErrorMessage()),
		run.StartedAt(),
		run.CompletedAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID
func (r *RunRepository) Get(id string) (*models.ImportRun, error) {
	query := `SELECT ` + runColumns + ` FROM import_runs WHERE id = ?`
	return scanRun(r.db.QueryRow(query, id))
}

// GetBySequence retrieves a run by its sequence number
func (r *RunRepository) GetBySequence(sequence int) (*models.ImportRun, error) {
	query := `SELECT ` + runColumns + ` FROM import_runs WHERE sequence = ?`
	return scanRun(r.db.QueryRow(query, sequence))
}

// Find resolves ref as a sequence number when it is numeric, otherwise as a run ID.
func (r *RunRepository) Find(ref string) (*models.ImportRun, error) {
	if seq, err := strconv.Atoi(ref); err == nil {
		return r.GetBySequence(seq)
	}
	return r.Get(ref)
}

// Update modifies an existing run in the database
func (r *RunRepository) Update(run *models.ImportRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE import_runs
		SET status = ?, songs_total = ?, songs_resolved = ?, songs_succeeded = ?,
			songs_skipped = ?, songs_exhausted = ?, error_message = ?,
			completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	counts := run.Counts()
	result, err := r.db.Exec(query,
		run.Status(),
		counts.Total,
		counts.Resolved,
		counts.Succeeded,
		counts.Skipped,
		counts.Exhausted,
		nullString(run.ErrorMessage()),
		run.CompletedAt(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return expectAffected(result, "run", run.ID())
}

// Delete removes a run and its outcomes by ID
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM import_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return expectAffected(result, "run", id)
}

// List retrieves runs matching the given criteria, newest first.
//
// Supported criteria: "status" (string), "catalog_path" (string) and "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.ImportRun, error) {
	query := `SELECT ` + runColumns + ` FROM import_runs WHERE 1 = 1`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if path, ok := criteria["catalog_path"].(string); ok && path != "" {
		query += " AND catalog_path = ?"
		args = append(args, path)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ImportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// scanRun scans a single row into a [models.ImportRun]
func scanRun(row rowScanner) (*models.ImportRun, error) {
	var (
		id           string
		sequence     int
		catalogPath  string
		status       string
		counts       models.RunCounts
		errorMessage sql.NullString
		startedAt    time.Time
		completedAt  sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(
		&id, &sequence, &catalogPath, &status,
		&counts.Total, &counts.Resolved, &counts.Succeeded, &counts.Skipped, &counts.Exhausted,
		&errorMessage, &startedAt, &completedAt, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run := models.NewImportRun(sequence, catalogPath)
	run.SetID(id)
	run.SetStatus(models.RunStatus(status))
	run.SetCounts(counts)
	run.SetErrorMessage(errorMessage.String)
	run.SetStartedAt(startedAt)
	if completedAt.Valid {
		run.SetCompletedAt(&completedAt.Time)
	}
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)

	return run, nil
}
