package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/cloudx/internal/shared"
)

// PromptModel asks for a single line of text.
type PromptModel struct {
	title   string
	input   textinput.Model
	help    help.Model
	keys    keyMap
	value   string
	done    bool
	aborted bool
}

// NewPromptModel creates a text prompt. secret masks the typed value.
func NewPromptModel(title, placeholder, initial string, secret bool) *PromptModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 8192
	ti.Width = 60
	ti.SetValue(initial)
	ti.Focus()
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}

	return &PromptModel{
		title: title,
		input: ti,
		help:  help.New(),
		keys:  newKeyMap(),
	}
}

func (m *PromptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *PromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.enter):
			m.value = strings.TrimSpace(m.input.Value())
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.cancel):
			m.aborted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *PromptModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	return fmt.Sprintf("%s\n%s\n\n%s\n", styles.Title(m.title), m.input.View(), m.help.ShortHelpView(m.keys.ShortHelp()))
}

// Value returns the submitted text, or [shared.ErrAborted] when the prompt was dismissed.
func (m *PromptModel) Value() (string, error) {
	if m.aborted || !m.done {
		return "", shared.ErrAborted
	}
	return m.value, nil
}

// ChooseModel asks the user to pick one of a few options.
type ChooseModel struct {
	list    list.Model
	keys    keyMap
	chosen  int
	aborted bool
}

// NewChooseModel creates a single-selection list titled title.
func NewChooseModel(title string, choices []Choice) *ChooseModel {
	l := list.New(choiceItems(choices), list.NewDefaultDelegate(), 60, len(choices)*3+6)
	l.Title = title
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)

	return &ChooseModel{list: l, keys: newKeyMap(), chosen: -1}
}

func (m *ChooseModel) Init() tea.Cmd {
	return nil
}

func (m *ChooseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width - 4)
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.enter):
			if len(m.list.Items()) > 0 {
				m.chosen = m.list.Index()
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
			m.aborted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *ChooseModel) View() string {
	if m.chosen >= 0 || m.aborted {
		return ""
	}
	return m.list.View()
}

// Chosen returns the selected index, or [shared.ErrAborted] when nothing was picked.
func (m *ChooseModel) Chosen() (int, error) {
	if m.aborted || m.chosen < 0 {
		return -1, shared.ErrAborted
	}
	return m.chosen, nil
}

// TerminalPrompter runs prompts as inline bubbletea programs on the given streams.
type TerminalPrompter struct {
	in  io.Reader
	out io.Writer
}

// NewTerminalPrompter creates a prompter reading keys from in and drawing to out.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: in, out: out}
}

// Input asks for a line of text.
func (p *TerminalPrompter) Input(title, placeholder, initial string, secret bool) (string, error) {
	final, err := tea.NewProgram(NewPromptModel(title, placeholder, initial, secret), tea.WithInput(p.in), tea.WithOutput(p.out)).Run()
	if err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return final.(*PromptModel).Value()
}

// Choose asks the user to pick one of choices and returns its index.
func (p *TerminalPrompter) Choose(title string, choices []Choice) (int, error) {
	final, err := tea.NewProgram(NewChooseModel(title, choices), tea.WithInput(p.in), tea.WithOutput(p.out)).Run()
	if err != nil {
		return -1, fmt.Errorf("prompt failed: %w", err)
	}
	return final.(*ChooseModel).Chosen()
}
