package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/chat-assistant/internal/model/chat"
	"github.com/zhouzirui/chat-assistant/internal/service/engine"
)

// Messages resolved back onto the single Update loop. All shared-state
// mutation happens in the services; these only carry outcomes.
type (
	sessionRestoredMsg struct{ user *chat.User }
	loggedInMsg        struct{ user *chat.User }
	registeredMsg      struct{ username string }
	authFailedMsg      struct{ err error }
	loggedOutMsg       struct{}

	healthCheckedMsg struct{ reachable bool }
	healthTickMsg    struct{}

	registryRefreshedMsg struct{ err error }
	conversationMadeMsg  struct {
		id  string
		err error
	}
	conversationGoneMsg struct {
		id  string
		err error
	}

	historyLoadedMsg struct {
		id  string
		err error
	}
	sendFinishedMsg struct {
		result engine.SendResult
		err    error
	}
	reconcileTickMsg struct{}
	reconciledMsg    struct{ err error }

	weatherMsg struct {
		report map[string]any
		err    error
	}
)

func (m Model) restoreSessionCmd() tea.Cmd {
	return func() tea.Msg {
		user, err := m.sessions.Restore()
		if err != nil {
			m.log.Warn().Err(err).Msg("session restore failed")
			return sessionRestoredMsg{user: nil}
		}
		return sessionRestoredMsg{user: user}
	}
}

func (m Model) loginCmd(username, password string) tea.Cmd {
	return func() tea.Msg {
		user, err := m.sessions.Login(context.Background(), username, password)
		if err != nil {
			return authFailedMsg{err: err}
		}
		return loggedInMsg{user: user}
	}
}

func (m Model) registerCmd(username, email, password string) tea.Cmd {
	return func() tea.Msg {
		user, err := m.sessions.Register(context.Background(), username, email, password)
		if err != nil {
			return authFailedMsg{err: err}
		}
		return registeredMsg{username: user.Username}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.sessions.Logout(); err != nil {
			m.log.Warn().Err(err).Msg("logout failed")
		}
		return loggedOutMsg{}
	}
}

func (m Model) checkHealthCmd() tea.Cmd {
	return func() tea.Msg {
		return healthCheckedMsg{reachable: m.gate.Check(context.Background())}
	}
}

func (m Model) healthTickCmd() tea.Cmd {
	if m.healthInterval <= 0 {
		return nil
	}
	return tea.Tick(m.healthInterval, func(time.Time) tea.Msg {
		return healthTickMsg{}
	})
}

func (m Model) refreshRegistryCmd() tea.Cmd {
	return func() tea.Msg {
		return registryRefreshedMsg{err: m.registry.Refresh(context.Background())}
	}
}

func (m Model) createConversationCmd(title string) tea.Cmd {
	return func() tea.Msg {
		conv, err := m.registry.Create(context.Background(), title)
		return conversationMadeMsg{id: conv.ID, err: err}
	}
}

func (m Model) deleteConversationCmd(id string) tea.Cmd {
	return func() tea.Msg {
		return conversationGoneMsg{id: id, err: m.registry.Delete(context.Background(), id)}
	}
}

func (m Model) loadHistoryCmd(id string, gen uint64) tea.Cmd {
	return func() tea.Msg {
		return historyLoadedMsg{id: id, err: m.engine.LoadHistory(context.Background(), id, gen)}
	}
}

func (m Model) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.engine.Send(context.Background(), text)
		return sendFinishedMsg{result: result, err: err}
	}
}

func (m Model) reconcileTickCmd() tea.Cmd {
	return tea.Tick(m.reconcileDelay, func(time.Time) tea.Msg {
		return reconcileTickMsg{}
	})
}

func (m Model) reconcileCmd() tea.Cmd {
	return func() tea.Msg {
		return reconciledMsg{err: m.engine.Reconcile(context.Background())}
	}
}

func (m Model) weatherCmd(city string) tea.Cmd {
	return func() tea.Msg {
		report, err := m.client.Weather(context.Background(), city)
		return weatherMsg{report: report, err: err}
	}
}

// formatWeather renders the ad-hoc weather map in key order.
func formatWeather(report map[string]any) string {
	keys := make([]string, 0, len(report))
	for key := range report {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", key, report[key]))
	}
	return strings.Join(parts, ", ")
}
