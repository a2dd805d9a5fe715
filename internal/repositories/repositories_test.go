package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/cloudx/internal/models"
	"github.com/desertthunder/cloudx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func testResult(id int64, state models.ImportState) models.ImportResult {
	return models.ImportResult{
		Song: models.ResolvedSong{
			SongDescriptor: models.SongDescriptor{ID: id, Size: 1, Ext: "mp3"},
			Name:           fmt.Sprintf("Song %d", id),
			Artist:         "Artist",
			Album:          "Album",
		},
		State:    state,
		Attempts: 1,
	}
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "import_runs")
		if err != nil {
			t.Fatalf("NextSequence() error = %v", err)
		}
		if got != want {
			t.Errorf("NextSequence() = %d, want %d", got, want)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for table without a sequence")
	}
}

func TestRunRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := models.NewImportRun(0, "songs.json")

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if run.ID() == "" {
			t.Error("run ID should be set after creation")
		}
		if run.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", run.Sequence())
		}
	})

	t.Run("Satisfies Generic Repository", func(t *testing.T) {
		var repo models.Repository[*models.ImportRun] = NewRunRepository(setupTestDB(t))
		run := models.NewImportRun(0, "songs.json")
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		runs, err := repo.List(nil)
		if err != nil || len(runs) != 1 || runs[0].ID() != run.ID() {
			t.Fatalf("List() = %v, %v", runs, err)
		}
		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		if _, err := repo.Get(run.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("Create Validation Error", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		if err := repo.Create(models.NewImportRun(0, "")); err == nil {
			t.Fatal("expected validation error for empty catalog path")
		}
	})

	t.Run("Get And Find", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := models.NewImportRun(0, "songs.json")
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		byID, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if byID.CatalogPath() != "songs.json" || byID.Status() != models.RunRunning {
			t.Errorf("unexpected run %+v", byID)
		}
		if byID.CompletedAt() != nil {
			t.Error("expected running run to have no completion time")
		}

		bySeq, err := repo.Find("1")
		if err != nil || bySeq.ID() != run.ID() {
			t.Errorf("Find(\"1\") = %v, %v", bySeq, err)
		}

		byRef, err := repo.Find(run.ID())
		if err != nil || byRef.Sequence() != 1 {
			t.Errorf("Find(id) = %v, %v", byRef, err)
		}
	})

	t.Run("Get Not Found", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		if _, err := repo.Get("nonexistent"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := repo.Find("42"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := models.NewImportRun(0, "songs.json")
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		counts := models.RunCounts{Total: 10, Resolved: 8, Succeeded: 5, Skipped: 2, Exhausted: 1}
		run.SetCounts(counts)
		run.Complete(errors.New("interrupted"))

		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Counts() != counts {
			t.Errorf("counts = %+v, want %+v", got.Counts(), counts)
		}
		if got.Status() != models.RunFailed || got.ErrorMessage() != "interrupted" {
			t.Errorf("unexpected status %s / %q", got.Status(), got.ErrorMessage())
		}
		if got.CompletedAt() == nil {
			t.Error("expected completion time to be stored")
		}
	})

	t.Run("Update Not Found", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := models.NewImportRun(0, "songs.json")
		run.SetID("missing")
		if err := repo.Update(run); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete Cascades Outcomes", func(t *testing.T) {
		db := setupTestDB(t)
		runs := NewRunRepository(db)
		outcomes := NewOutcomeRepository(db)

		run := models.NewImportRun(0, "songs.json")
		if err := runs.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if err := outcomes.Create(models.NewOutcomeRecord(run.ID(), testResult(1, models.StateSucceeded))); err != nil {
			t.Fatalf("failed to create outcome: %v", err)
		}

		if err := runs.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		if err := runs.Delete(run.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}

		left, err := outcomes.ListByRun(run.ID())
		if err != nil {
			t.Fatalf("failed to list outcomes: %v", err)
		}
		if len(left) != 0 {
			t.Errorf("expected outcomes to be removed, got %d", len(left))
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		for i, path := range []string{"a.json", "b.json", "a.json"} {
			run := models.NewImportRun(0, path)
			if err := repo.Create(run); err != nil {
				t.Fatalf("failed to create run %d: %v", i, err)
			}
			if i == 0 {
				run.Complete(nil)
				if err := repo.Update(run); err != nil {
					t.Fatalf("failed to update run: %v", err)
				}
			}
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(all) != 3 || all[0].Sequence() != 3 {
			t.Fatalf("expected 3 runs newest first, got %d", len(all))
		}

		tests := []struct {
			name     string
			criteria map[string]any
			want     int
		}{
			{name: "by status", criteria: map[string]any{"status": string(models.RunCompleted)}, want: 1},
			{name: "by catalog", criteria: map[string]any{"catalog_path": "a.json"}, want: 2},
			{name: "with limit", criteria: map[string]any{"limit": 2}, want: 2},
			{name: "ignores wrong types", criteria: map[string]any{"limit": "2"}, want: 3},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				runs, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("List() error = %v", err)
				}
				if len(runs) != tt.want {
					t.Errorf("List() returned %d runs, want %d", len(runs), tt.want)
				}
			})
		}
	})
}

func TestOutcomeRepository(t *testing.T) {
	t.Run("Create And List", func(t *testing.T) {
		db := setupTestDB(t)
		runs := NewRunRepository(db)
		repo := NewOutcomeRepository(db)

		run := models.NewImportRun(0, "songs.json")
		if err := runs.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		states := []models.ImportState{models.StateSucceeded, models.StateSkippedExisting, models.StateExhaustedRetries, models.StateSucceeded}
		for i, state := range states {
			res := testResult(int64(i+1), state)
			res.Detail = fmt.Sprintf("detail %d", i)
			if err := repo.Create(models.NewOutcomeRecord(run.ID(), res)); err != nil {
				t.Fatalf("failed to create outcome %d: %v", i, err)
			}
		}

		all, err := repo.ListByRun(run.ID())
		if err != nil {
			t.Fatalf("failed to list outcomes: %v", err)
		}
		if len(all) != 4 {
			t.Fatalf("expected 4 outcomes, got %d", len(all))
		}
		for i, o := range all {
			if o.SongID != int64(i+1) || o.State != states[i] {
				t.Errorf("outcome %d = song %d %s, want song %d %s", i, o.SongID, o.State, i+1, states[i])
			}
		}
		if all[0].Name != "Song 1" || all[0].Artist != "Artist" || all[0].Detail != "detail 0" {
			t.Errorf("unexpected fields %+v", all[0])
		}

		failed, err := repo.ListByRun(run.ID(), models.StateSkippedExisting, models.StateExhaustedRetries)
		if err != nil {
			t.Fatalf("failed to list failed outcomes: %v", err)
		}
		if len(failed) != 2 {
			t.Errorf("expected 2 failed outcomes, got %d", len(failed))
		}

		counts, err := repo.CountByState(run.ID())
		if err != nil {
			t.Fatalf("failed to count outcomes: %v", err)
		}
		if counts[models.StateSucceeded] != 2 || counts[models.StateSkippedExisting] != 1 || counts[models.StateExhaustedRetries] != 1 {
			t.Errorf("unexpected counts %v", counts)
		}
	})

	t.Run("Create Validation", func(t *testing.T) {
		repo := NewOutcomeRepository(setupTestDB(t))

		if err := repo.Create(models.NewOutcomeRecord("", testResult(1, models.StateSucceeded))); err == nil {
			t.Error("expected error without run id")
		}
		if err := repo.Create(models.NewOutcomeRecord("run", testResult(1, models.StateAttempting))); err == nil {
			t.Error("expected error for non-terminal state")
		}
		if err := repo.Create(models.NewOutcomeRecord("unknown-run", testResult(1, models.StateSucceeded))); err == nil {
			t.Error("expected foreign key error for unknown run")
		}
	})
}

func TestHistoryAdapter(t *testing.T) {
	db := setupTestDB(t)
	runs := NewRunRepository(db)
	outcomes := NewOutcomeRepository(db)
	history := NewHistoryAdapter(runs, outcomes)

	runID, err := history.StartRun("songs.json")
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}

	if err := history.RecordOutcome(runID, testResult(1, models.StateSucceeded)); err != nil {
		t.Fatalf("RecordOutcome() error = %v", err)
	}
	if err := history.RecordOutcome(runID, testResult(2, models.StateExhaustedRetries)); err != nil {
		t.Fatalf("RecordOutcome() error = %v", err)
	}

	counts := models.RunCounts{Total: 3, Resolved: 2, Succeeded: 1, Exhausted: 1}
	if err := history.FinishRun(runID, counts, nil); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	run, err := runs.Get(runID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if run.Status() != models.RunCompleted || run.Counts() != counts {
		t.Errorf("unexpected run %s %+v", run.Status(), run.Counts())
	}

	stored, err := outcomes.ListByRun(runID)
	if err != nil || len(stored) != 2 {
		t.Errorf("ListByRun() = %d outcomes, %v", len(stored), err)
	}

	if err := history.FinishRun("missing", counts, nil); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown run, got %v", err)
	}
}
