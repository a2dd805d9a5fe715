package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/cloudx/internal/tasks"
)

// MsgKind enumerates all message types in the import view.
type MsgKind int

// Msg represents all possible messages in the import view (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgImportComplete
)

type importComplete struct {
	summary *tasks.Summary
	err     error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// importCompleteMsg is the constructor for [MsgImportComplete]
func importCompleteMsg(summary *tasks.Summary, err error) Msg {
	return Msg{kind: MsgImportComplete, data: importComplete{summary: summary, err: err}}
}
