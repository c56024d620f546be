package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/chat-assistant/internal/model/chat"
	"github.com/zhouzirui/chat-assistant/internal/service/engine"
)

func (m Model) View() string {
	if m.mode == modeAuth {
		return m.viewAuth()
	}
	return m.viewChat()
}

func (m Model) viewAuth() string {
	var b strings.Builder

	b.WriteString(m.styles.Header.Render("AI Chat Assistant"))
	b.WriteString("\n\n")

	loginTab, registerTab := "[ Login ]", "  Register  "
	if m.registerTab {
		loginTab, registerTab = "  Login  ", "[ Register ]"
	}
	b.WriteString(m.styles.Help.Render(loginTab+registerTab+"  (ctrl+t to switch)") + "\n\n")

	b.WriteString("Username\n" + m.username.View() + "\n")
	if m.registerTab {
		b.WriteString("Email\n" + m.email.View() + "\n")
	}
	b.WriteString("Password\n" + m.password.View() + "\n\n")

	if m.authBusy {
		b.WriteString(m.spin.View() + " working...\n")
	}
	if m.notice != "" {
		b.WriteString(m.noticeView() + "\n")
	}
	b.WriteString(m.styles.Help.Render("enter submit • tab next field • ctrl+c quit"))

	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, b.String())
	}
	return b.String()
}

func (m Model) viewChat() string {
	header := m.headerView()
	body := m.viewport.View()
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), body)
	}

	sections := []string{
		header,
		body,
		m.styles.InputBox.Render(m.input.View()),
		m.statusView(),
		m.styles.Help.Render("enter send • ctrl+n new • ctrl+b sidebar • ctrl+↑/↓ switch • /help commands"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) headerView() string {
	badge := m.styles.Offline.Render("● offline")
	if m.gate.Reachable() {
		badge = m.styles.Online.Render("● online")
	}

	who := ""
	if m.user != nil {
		who = "  " + m.styles.Timestamp.Render(m.user.Username)
	}
	return m.styles.Header.Render("AI Chat Assistant") + who + "  " + badge
}

func (m Model) sidebarView() string {
	list := m.registry.List()
	active := m.registry.Active()

	lines := make([]string, 0, len(list)+1)
	lines = append(lines, m.styles.Header.Render("Conversations"))
	if len(list) == 0 {
		lines = append(lines, m.styles.Help.Render("none yet"))
	}
	for i, conv := range list {
		title := conv.Title
		if len(title) > sidebarWidth-4 {
			title = title[:sidebarWidth-4] + "…"
		}
		style := m.styles.SidebarItem
		switch {
		case conv.ID == active:
			style = m.styles.ActiveItem
		case i == m.selected:
			style = m.styles.SelectedItem
		}
		lines = append(lines, style.Render(title))
	}

	return m.styles.Sidebar.
		Width(sidebarWidth).
		Height(m.viewport.Height).
		Render(strings.Join(lines, "\n"))
}

func (m Model) statusView() string {
	snap := m.engine.Snapshot()
	switch snap.Phase {
	case engine.PhaseLoading:
		return m.spin.View() + " loading history..."
	case engine.PhaseSending:
		return m.spin.View() + " AI is thinking..."
	case engine.PhaseReconciling:
		return m.spin.View() + " syncing..."
	case engine.PhaseEmpty, engine.PhaseReady:
	}
	if m.notice != "" {
		return m.noticeView()
	}
	return ""
}

func (m Model) noticeView() string {
	if m.noticeIsError {
		return m.styles.ErrorNotice.Render(m.notice)
	}
	return m.styles.Notice.Render(m.notice)
}

// refreshTimeline re-renders the engine snapshot into the viewport.
func (m *Model) refreshTimeline() {
	if !m.ready {
		return
	}

	snap := m.engine.Snapshot()
	if len(snap.Timeline) == 0 {
		placeholder := "Start a conversation by typing a message below."
		if snap.Phase == engine.PhaseEmpty && snap.ActiveID == "" {
			placeholder = "Hello! How can I help you today?"
		}
		m.viewport.SetContent(m.styles.Notice.Render(placeholder))
		return
	}

	atBottom := m.viewport.AtBottom()
	blocks := make([]string, 0, len(snap.Timeline))
	for _, msg := range snap.Timeline {
		blocks = append(blocks, m.renderMessage(msg))
	}
	m.viewport.SetContent(strings.Join(blocks, "\n"))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderMessage(msg chat.Message) string {
	label := m.styles.UserLabel.Render("You")
	if msg.Role == chat.RoleAssistant {
		label = m.styles.AssistLabel.Render("AI")
	}

	meta := m.styles.Timestamp.Render(msg.Timestamp.Local().Format("15:04"))
	if msg.Pending {
		meta = m.styles.PendingMark.Render("sending…")
	}

	body := msg.Content
	if msg.Role == chat.RoleAssistant && m.renderer != nil {
		if rendered, err := m.renderer.Render(msg.Content); err == nil {
			body = strings.TrimRight(rendered, "\n")
		}
	}

	return fmt.Sprintf("%s %s\n%s\n", label, meta, body)
}
