package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/chat-assistant/internal/service/engine"
)

// Update is the single mutation point for the shell. Network work happens in
// commands; their results land here as typed messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.applyWidth(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		// Keeps the optimistic append visible while a send is in flight.
		m.refreshTimeline()
		return m, cmd

	case sessionRestoredMsg:
		if msg.user == nil {
			return m, nil
		}
		m.user = msg.user
		m.mode = modeChat
		m.applySizes()
		return m, m.refreshRegistryCmd()

	case loggedInMsg:
		m.user = msg.user
		m.mode = modeChat
		m.authBusy = false
		m.applySizes()
		m.setNotice("Login successful!", false)
		return m, m.refreshRegistryCmd()

	case registeredMsg:
		m.authBusy = false
		m.registerTab = false
		m.password.SetValue("")
		m.setNotice("Registration successful! Please login.", false)
		return m, nil

	case authFailedMsg:
		m.authBusy = false
		m.setNotice(msg.err.Error(), true)
		return m, nil

	case loggedOutMsg:
		m.user = nil
		m.mode = modeAuth
		m.registry.Reset()
		m.engine.Clear()
		m.selected = 0
		m.username.SetValue("")
		m.password.SetValue("")
		m.email.SetValue("")
		m.focusAuthField(0)
		m.refreshTimeline()
		m.setNotice("Logged out.", false)
		return m, nil

	case healthCheckedMsg:
		if !msg.reachable {
			m.setNotice("Backend is not running. Messages are disabled until it comes back.", true)
		}
		return m, nil

	case healthTickMsg:
		return m, tea.Batch(m.checkHealthCmd(), m.healthTickCmd())

	case registryRefreshedMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
		}
		m.clampSelection()
		return m, nil

	case conversationMadeMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
			return m, nil
		}
		m.syncSelection()
		if m.width > 0 && m.width < narrowWidth {
			m.collapsed = true
		}
		gen, load := m.engine.Select(msg.id)
		if !load {
			return m, nil
		}
		return m, m.loadHistoryCmd(msg.id, gen)

	case conversationGoneMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
			return m, nil
		}
		if m.engine.Snapshot().ActiveID == msg.id {
			m.engine.Select("")
		}
		m.clampSelection()
		m.refreshTimeline()
		m.setNotice("Conversation deleted.", false)
		return m, nil

	case historyLoadedMsg:
		if msg.err != nil {
			// Previous timeline stays visible; the failure is only a notice.
			m.setNotice("Failed to load conversation history: "+msg.err.Error(), true)
		}
		m.refreshTimeline()
		m.viewport.GotoBottom()
		return m, nil

	case sendFinishedMsg:
		m.refreshTimeline()
		m.viewport.GotoBottom()
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
			return m, nil
		}
		return m, m.reconcileTickCmd()

	case reconcileTickMsg:
		return m, m.reconcileCmd()

	case reconciledMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
		}
		m.refreshTimeline()
		m.viewport.GotoBottom()
		return m, nil

	case weatherMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
		} else {
			m.setNotice(formatWeather(msg.report), false)
		}
		return m, nil

	case tea.KeyMsg:
		if m.mode == modeAuth {
			return m.updateAuth(msg)
		}
		return m.updateChat(msg)
	}

	return m, nil
}

func (m Model) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case msg.String() == "ctrl+t":
		m.registerTab = !m.registerTab
		m.focusAuthField(0)
		m.setNotice("", false)
		return m, nil

	case msg.String() == "tab" || msg.String() == "down":
		m.focusAuthField(m.focus + 1)
		return m, nil

	case msg.String() == "shift+tab" || msg.String() == "up":
		m.focusAuthField(m.focus - 1)
		return m, nil

	case msg.String() == "enter":
		if m.authBusy {
			return m, nil
		}
		username := strings.TrimSpace(m.username.Value())
		password := m.password.Value()
		if username == "" || password == "" {
			m.setNotice("Please fill in username and password.", true)
			return m, nil
		}
		m.authBusy = true
		m.setNotice("", false)
		if m.registerTab {
			return m, m.registerCmd(username, strings.TrimSpace(m.email.Value()), password)
		}
		return m, m.loginCmd(username, password)
	}

	var cmd tea.Cmd
	switch m.focus {
	case 0:
		m.username, cmd = m.username.Update(msg)
	case 1:
		if m.registerTab {
			m.email, cmd = m.email.Update(msg)
		} else {
			m.password, cmd = m.password.Update(msg)
		}
	default:
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.ToggleSidebar):
		// Purely visual; never touches registry or engine state.
		m.userCollapsed = !m.collapsed
		m.collapsed = m.userCollapsed
		m.applySizes()
		return m, nil

	case key.Matches(msg, m.keys.NextConversation):
		return m.moveSelection(1)

	case key.Matches(msg, m.keys.PrevConversation):
		return m.moveSelection(-1)

	case key.Matches(msg, m.keys.NewConversation):
		return m, m.createConversationCmd("New Conversation")

	case key.Matches(msg, m.keys.RecheckBackend):
		m.setNotice("Checking backend...", false)
		return m, m.checkHealthCmd()

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.ScrollUp(3)
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.ScrollDown(3)
		return m, nil

	case key.Matches(msg, m.keys.Send):
		return m.submitInput()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitInput sends the typed text, or runs it as a slash command.
func (m Model) submitInput() (tea.Model, tea.Cmd) {
	raw := strings.TrimSpace(m.input.Value())
	if raw == "" {
		m.setNotice("Please enter a message.", true)
		return m, nil
	}

	if strings.HasPrefix(raw, "/") {
		m.input.Reset()
		return m.execCommand(raw)
	}

	snap := m.engine.Snapshot()
	switch snap.Phase {
	case engine.PhaseSending, engine.PhaseReconciling:
		m.setNotice("Still waiting for the previous message.", true)
		return m, nil
	case engine.PhaseEmpty, engine.PhaseLoading, engine.PhaseReady:
	}
	if !m.gate.Reachable() {
		m.setNotice("Backend is not available. Please start the server.", true)
		return m, nil
	}

	m.input.Reset()
	m.setNotice("", false)
	return m, m.sendCmd(raw)
}

func (m Model) execCommand(raw string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(raw)
	command, args := fields[0], fields[1:]

	switch command {
	case "/help":
		m.setNotice("/new [title], /delete, /clear, /health, /weather <city>, /logout, /quit", false)
		return m, nil

	case "/new":
		title := "New Conversation"
		if len(args) > 0 {
			title = strings.Join(args, " ")
		}
		return m, m.createConversationCmd(title)

	case "/delete":
		active := m.registry.Active()
		if active == "" {
			m.setNotice("No active conversation to delete.", true)
			return m, nil
		}
		return m, m.deleteConversationCmd(active)

	case "/clear":
		// Local reset only; the conversation stays on the server.
		m.engine.Clear()
		m.registry.Select("")
		m.refreshTimeline()
		m.setNotice("Chat cleared.", false)
		return m, nil

	case "/health":
		m.setNotice("Checking backend...", false)
		return m, m.checkHealthCmd()

	case "/weather":
		if len(args) == 0 {
			m.setNotice("Usage: /weather <city>", true)
			return m, nil
		}
		return m, m.weatherCmd(strings.Join(args, " "))

	case "/logout":
		return m, m.logoutCmd()

	case "/quit":
		return m, tea.Quit
	}

	m.setNotice("Unknown command: "+command, true)
	return m, nil
}

// moveSelection steps through the sidebar and activates the conversation
// under the cursor.
func (m Model) moveSelection(delta int) (tea.Model, tea.Cmd) {
	list := m.registry.List()
	if len(list) == 0 {
		return m, nil
	}

	m.selected += delta
	if m.selected < 0 {
		m.selected = 0
	}
	if m.selected >= len(list) {
		m.selected = len(list) - 1
	}

	id := list[m.selected].ID
	m.registry.Select(id)
	if m.width > 0 && m.width < narrowWidth {
		// Selection may auto-collapse on narrow viewports; it never changes
		// anything beyond the selection itself.
		m.collapsed = true
	}

	gen, load := m.engine.Select(id)
	if !load {
		return m, nil
	}
	return m, m.loadHistoryCmd(id, gen)
}

func (m *Model) clampSelection() {
	count := len(m.registry.List())
	if count == 0 {
		m.selected = 0
		return
	}
	if m.selected >= count {
		m.selected = count - 1
	}
	m.syncSelection()
}

// syncSelection moves the sidebar cursor to the active conversation.
func (m *Model) syncSelection() {
	active := m.registry.Active()
	if active == "" {
		return
	}
	for i, conv := range m.registry.List() {
		if conv.ID == active {
			m.selected = i
			return
		}
	}
}

func (m *Model) focusAuthField(index int) {
	fields := 2
	if m.registerTab {
		fields = 3
	}
	if index < 0 {
		index = fields - 1
	}
	if index >= fields {
		index = 0
	}
	m.focus = index

	m.username.Blur()
	m.email.Blur()
	m.password.Blur()
	switch {
	case index == 0:
		m.username.Focus()
	case index == 1 && m.registerTab:
		m.email.Focus()
	default:
		m.password.Focus()
	}
}
