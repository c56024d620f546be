package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the chat screen bindings.
type KeyMap struct {
	Send             key.Binding
	ToggleSidebar    key.Binding
	NextConversation key.Binding
	PrevConversation key.Binding
	NewConversation  key.Binding
	RecheckBackend   key.Binding
	ScrollUp         key.Binding
	ScrollDown       key.Binding
	Quit             key.Binding
}

// DefaultKeyMap mirrors the original web client's gestures where a terminal
// equivalent exists.
var DefaultKeyMap = KeyMap{
	Send:             key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	ToggleSidebar:    key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "sidebar")),
	NextConversation: key.NewBinding(key.WithKeys("ctrl+down", "ctrl+j"), key.WithHelp("ctrl+↓", "next conversation")),
	PrevConversation: key.NewBinding(key.WithKeys("ctrl+up", "ctrl+k"), key.WithHelp("ctrl+↑", "previous conversation")),
	NewConversation:  key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new conversation")),
	RecheckBackend:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "re-check backend")),
	ScrollUp:         key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
	ScrollDown:       key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdown", "scroll down")),
	Quit:             key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}
