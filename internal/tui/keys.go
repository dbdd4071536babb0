package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	ToggleMode key.Binding
	Record     key.Binding
	Submit     key.Binding
	Stage1     key.Binding
	Stage2     key.Binding
	Stage3     key.Binding
	Copy       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		ToggleMode: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "text/voice")),
		Record:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "record/stop")),
		Submit:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "generate/execute")),
		Stage1:     key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "question")),
		Stage2:     key.NewBinding(key.WithKeys("f2"), key.WithHelp("f2", "query")),
		Stage3:     key.NewBinding(key.WithKeys("f3"), key.WithHelp("f3", "result")),
		Copy:       key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ToggleMode, k.Record, k.Submit, k.Stage1, k.Stage2, k.Stage3, k.Copy, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
