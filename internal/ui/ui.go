package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/cloudx/internal/formatter"
	"github.com/desertthunder/cloudx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ImportingView ViewState = iota
	ResultView
)

// recentLimit is how many finished songs the import view keeps on screen.
const recentLimit = 8

// RunFunc starts an import and reports progress on the channel until it returns.
type RunFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.Summary, error)

// Model represents the import view state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	run          RunFunc
	view         ViewState
	failureLog   string
	spinner      spinner.Model
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	recent       []string
	rateLimited  bool
	cancelling   bool
	summary      *tasks.Summary
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates an import view that runs run when started.
func NewModel(ctx context.Context, run RunFunc, failureLog string) *Model {
	ctx, cancel := context.WithCancel(ctx)
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		ctx:        ctx,
		cancel:     cancel,
		run:        run,
		view:       ImportingView,
		failureLog: failureLog,
		spinner:    sp,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init starts the import and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startImport())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		if m.view != ImportingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.applyProgress(msg.data.(tasks.ProgressUpdate))
			return m, m.waitForProgress()
		case MsgImportComplete:
			done := msg.data.(importComplete)
			m.summary = done.summary
			m.err = done.err
			m.view = ResultView
			return m, nil
		}
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ImportingView:
		return m.renderImporting()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// Summary returns the finished run's summary and error.
func (m *Model) Summary() (*tasks.Summary, error) {
	return m.summary, m.err
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view == ResultView {
		if key.Matches(msg, m.keys.quit) || key.Matches(msg, m.keys.enter) {
			return m, tea.Quit
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.cancel) {
		m.cancelling = true
		m.cancel()
	}
	return m, nil
}

func (m *Model) applyProgress(update tasks.ProgressUpdate) {
	m.progress = update
	switch update.Phase {
	case tasks.RateLimited:
		m.rateLimited = true
	case tasks.SongFinished:
		m.rateLimited = false
		m.recent = append(m.recent, update.Message)
		if len(m.recent) > recentLimit {
			m.recent = m.recent[len(m.recent)-recentLimit:]
		}
	case tasks.ImportSong:
		m.rateLimited = false
	}
}

func (m *Model) startImport() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	go func() {
		summary, err := m.run(m.ctx, m.progressChan)
		m.summary = summary
		m.err = err
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.progressChan
		if !ok {
			return importCompleteMsg(m.summary, m.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderImporting() string {
	var b strings.Builder
	b.WriteString(styles.Title("Importing to cloud"))
	b.WriteString("\n")

	for _, line := range m.recent {
		b.WriteString(styles.Muted(line))
		b.WriteString("\n")
	}

	status := m.progress.Message
	if status == "" {
		status = "Starting..."
	}
	if m.rateLimited {
		status = styles.Warn(status)
	}
	fmt.Fprintf(&b, "\n%s %s\n", m.spinner.View(), status)

	if m.cancelling {
		b.WriteString(styles.Warn("Cancelling after the current request..."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.cancel}))
	return b.String()
}

func (m *Model) renderResult() string {
	var b strings.Builder
	switch {
	case m.err != nil && m.summary == nil:
		b.WriteString(styles.Error(fmt.Sprintf("Import failed: %v", m.err)))
		b.WriteString("\n")
	case m.err != nil:
		b.WriteString(styles.Warn(fmt.Sprintf("Import stopped: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(formatter.RenderSummary(m.summary.RunCounts, m.summary.Failed(), m.failureLog))
	default:
		b.WriteString(styles.OK("✓ Import Complete!"))
		b.WriteString("\n\n")
		b.WriteString(formatter.RenderSummary(m.summary.RunCounts, m.summary.Failed(), m.failureLog))
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}
