package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/cloudx/internal/models"
	"github.com/desertthunder/cloudx/internal/shared"
	"github.com/desertthunder/cloudx/internal/tasks"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPromptModel(t *testing.T) {
	t.Run("Submits Trimmed Value", func(t *testing.T) {
		m := NewPromptModel("Catalog path", "songs.json", "", false)
		m.Update(runes("  other.json "))
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

		if cmd == nil {
			t.Fatal("expected quit command on enter")
		}
		got, err := m.Value()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != "other.json" {
			t.Errorf("expected other.json, got %q", got)
		}
		if m.View() != "" {
			t.Error("expected empty view once submitted")
		}
	})

	t.Run("Keeps Initial Value", func(t *testing.T) {
		m := NewPromptModel("Catalog path", "", "songs.json", false)
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})

		if got, _ := m.Value(); got != "songs.json" {
			t.Errorf("expected initial value, got %q", got)
		}
	})

	t.Run("Escape Aborts", func(t *testing.T) {
		m := NewPromptModel("Cookie", "", "", true)
		m.Update(runes("MUSIC_U=abc"))
		m.Update(tea.KeyMsg{Type: tea.KeyEsc})

		if _, err := m.Value(); !errors.Is(err, shared.ErrAborted) {
			t.Errorf("expected ErrAborted, got %v", err)
		}
	})

	t.Run("Unsubmitted Is Aborted", func(t *testing.T) {
		m := NewPromptModel("Cookie", "", "", true)
		if _, err := m.Value(); !errors.Is(err, shared.ErrAborted) {
			t.Errorf("expected ErrAborted, got %v", err)
		}
	})

	t.Run("Secret Input Is Masked", func(t *testing.T) {
		m := NewPromptModel("Cookie", "", "", true)
		m.Update(runes("hunter2"))

		view := m.View()
		if strings.Contains(view, "hunter2") {
			t.Error("expected secret value to be masked")
		}
		if !strings.Contains(view, "Cookie") {
			t.Error("expected title in view")
		}
	})
}

func TestChooseModel(t *testing.T) {
	choices := []Choice{
		{Label: "Scan a QR code", Detail: "opens the code in your browser"},
		{Label: "Paste a cookie"},
	}

	t.Run("Enter Picks Highlighted", func(t *testing.T) {
		m := NewChooseModel("Log in", choices)
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})

		got, err := m.Chosen()
		if err != nil || got != 0 {
			t.Errorf("Chosen() = %d, %v; want 0, nil", got, err)
		}
	})

	t.Run("Down Then Enter", func(t *testing.T) {
		m := NewChooseModel("Log in", choices)
		m.Update(tea.KeyMsg{Type: tea.KeyDown})
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})

		got, err := m.Chosen()
		if err != nil || got != 1 {
			t.Errorf("Chosen() = %d, %v; want 1, nil", got, err)
		}
	})

	t.Run("Quit Aborts", func(t *testing.T) {
		m := NewChooseModel("Log in", choices)
		m.Update(runes("q"))

		if _, err := m.Chosen(); !errors.Is(err, shared.ErrAborted) {
			t.Errorf("expected ErrAborted, got %v", err)
		}
	})

	t.Run("View Lists Choices", func(t *testing.T) {
		m := NewChooseModel("Log in", choices)
		view := m.View()
		if !strings.Contains(view, "Scan a QR code") {
			t.Errorf("expected first choice in view, got %q", view)
		}
	})
}

// drain feeds the model's commands back into Update until the import completes.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for i := 0; i < 100 && cmd != nil; i++ {
		msg := cmd()
		_, cmd = m.Update(msg)
		if m.view == ResultView {
			return
		}
	}
	if m.view != ResultView {
		t.Fatal("import never completed")
	}
}

func TestModel(t *testing.T) {
	song := models.ResolvedSong{SongDescriptor: models.SongDescriptor{ID: 7}, Name: "Seven", Artist: "Band"}

	t.Run("Progress Then Result", func(t *testing.T) {
		summary := &tasks.Summary{
			RunCounts: models.RunCounts{Total: 2, Resolved: 2, Succeeded: 1, Exhausted: 1},
			Results: []models.ImportResult{
				{Song: song, State: models.StateExhaustedRetries, Attempts: 3, Detail: "boom"},
			},
		}
		run := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.Summary, error) {
			progress <- tasks.ProgressUpdate{Phase: tasks.ImportSong, Message: "Importing Seven"}
			progress <- tasks.ProgressUpdate{Phase: tasks.RateLimited, Message: "Rate limited, waiting"}
			progress <- tasks.ProgressUpdate{Phase: tasks.SongFinished, Message: "Seven: exhausted_retries"}
			return summary, nil
		}

		m := NewModel(context.Background(), run, "failed_ids.txt")
		drain(t, m, m.startImport())

		got, err := m.Summary()
		if err != nil || got != summary {
			t.Fatalf("Summary() = %v, %v", got, err)
		}
		if len(m.recent) != 1 || m.recent[0] != "Seven: exhausted_retries" {
			t.Errorf("unexpected recent songs %v", m.recent)
		}

		view := m.View()
		if !strings.Contains(view, "Import Complete") {
			t.Error("expected completion banner")
		}
		if !strings.Contains(view, "Seven") {
			t.Error("expected failed song in result view")
		}
	})

	t.Run("Rate Limit Flag Clears On Next Song", func(t *testing.T) {
		m := NewModel(context.Background(), nil, "")
		m.applyProgress(tasks.ProgressUpdate{Phase: tasks.RateLimited, Message: "waiting"})
		if !m.rateLimited {
			t.Fatal("expected rate limited flag")
		}
		m.applyProgress(tasks.ProgressUpdate{Phase: tasks.ImportSong, Message: "next"})
		if m.rateLimited {
			t.Error("expected flag cleared")
		}
	})

	t.Run("Keeps Recent Songs Bounded", func(t *testing.T) {
		m := NewModel(context.Background(), nil, "")
		for i := 0; i < recentLimit+5; i++ {
			m.applyProgress(tasks.ProgressUpdate{Phase: tasks.SongFinished, Message: "done"})
		}
		if len(m.recent) != recentLimit {
			t.Errorf("expected %d recent songs, got %d", recentLimit, len(m.recent))
		}
	})

	t.Run("Ctrl+C Cancels Run", func(t *testing.T) {
		started := make(chan struct{})
		run := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.Summary, error) {
			close(started)
			<-ctx.Done()
			return &tasks.Summary{}, ctx.Err()
		}

		m := NewModel(context.Background(), run, "")
		cmd := m.startImport()
		<-started

		m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		if !m.cancelling {
			t.Fatal("expected cancelling state")
		}
		drain(t, m, cmd)

		if _, err := m.Summary(); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if !strings.Contains(m.View(), "Import stopped") {
			t.Error("expected stopped banner")
		}
	})

	t.Run("Failure Without Summary", func(t *testing.T) {
		run := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.Summary, error) {
			return nil, shared.ErrEmptyCatalog
		}

		m := NewModel(context.Background(), run, "")
		drain(t, m, m.startImport())

		if !strings.Contains(m.View(), "Import failed") {
			t.Error("expected failure banner")
		}
	})

	t.Run("Result View Quits", func(t *testing.T) {
		m := NewModel(context.Background(), nil, "")
		m.view = ResultView
		m.summary = &tasks.Summary{}

		if _, cmd := m.Update(runes("q")); cmd == nil {
			t.Error("expected quit command")
		}
	})
}

func TestPalette(t *testing.T) {
	p := Styles()
	render := map[string]func(string) string{
		"Title": p.Title,
		"OK":    p.OK,
		"Error": p.Error,
		"Warn":  p.Warn,
		"Muted": p.Muted,
	}

	for name, fn := range render {
		t.Run(name, func(t *testing.T) {
			if got := fn("导入 done"); !strings.Contains(got, "导入 done") {
				t.Errorf("%s() = %q, expected it to contain the text", name, got)
			}
		})
	}
}
