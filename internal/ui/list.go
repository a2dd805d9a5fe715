package ui

import (
	"github.com/charmbracelet/bubbles/list"
)

var _ list.Item = choiceItem{}

// Choice is one option offered by [ChooseModel].
type Choice struct {
	Label  string
	Detail string
}

// choiceItem wraps [Choice] to implement [list.Item].
type choiceItem struct {
	choice Choice
}

func (i choiceItem) FilterValue() string { return i.choice.Label }
func (i choiceItem) Title() string       { return i.choice.Label }
func (i choiceItem) Description() string { return i.choice.Detail }

func choiceItems(choices []Choice) []list.Item {
	items := make([]list.Item, len(choices))
	for i, c := range choices {
		items[i] = choiceItem{choice: c}
	}
	return items
}
