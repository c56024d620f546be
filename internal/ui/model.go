// Package ui is the presentation shell. It renders session, registry and
// engine state and translates key gestures into calls on them; the only state
// it owns itself is visual (sidebar collapse, focus, sizes, notices).
package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/chat-assistant/internal/gateway"
	"github.com/zhouzirui/chat-assistant/internal/model/chat"
	"github.com/zhouzirui/chat-assistant/internal/service/engine"
	"github.com/zhouzirui/chat-assistant/internal/service/health"
	"github.com/zhouzirui/chat-assistant/internal/service/registry"
	"github.com/zhouzirui/chat-assistant/internal/service/session"
)

const (
	// Below this width the sidebar auto-collapses.
	narrowWidth  = 80
	sidebarWidth = 28
)

type mode int

const (
	modeAuth mode = iota
	modeChat
)

// Options tunes shell timing; zero values get sensible defaults.
type Options struct {
	ReconcileDelay time.Duration
	HealthInterval time.Duration
}

// Model is the bubbletea model for the whole client.
type Model struct {
	sessions *session.Store
	registry *registry.Registry
	engine   *engine.Engine
	gate     *health.Gate
	client   *gateway.Client
	log      zerolog.Logger

	reconcileDelay time.Duration
	healthInterval time.Duration

	mode mode
	user *chat.User

	// auth form
	registerTab bool
	username    textinput.Model
	email       textinput.Model
	password    textinput.Model
	focus       int
	authBusy    bool

	// chat screen
	input    textarea.Model
	viewport viewport.Model
	spin     spinner.Model
	keys     KeyMap
	styles   Styles
	renderer *glamour.TermRenderer

	width         int
	height        int
	collapsed     bool
	userCollapsed bool
	selected      int
	notice        string
	noticeIsError bool
	ready         bool
}

// NewModel wires the shell to the core components.
func NewModel(
	sessions *session.Store,
	reg *registry.Registry,
	eng *engine.Engine,
	gate *health.Gate,
	client *gateway.Client,
	log zerolog.Logger,
	opts Options,
) Model {
	if opts.ReconcileDelay <= 0 {
		opts.ReconcileDelay = 500 * time.Millisecond
	}

	username := textinput.New()
	username.Placeholder = "username"
	username.Focus()

	email := textinput.New()
	email.Placeholder = "email"

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword

	input := textarea.New()
	input.Placeholder = "Type your message... (enter to send, /help for commands)"
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		sessions:       sessions,
		registry:       reg,
		engine:         eng,
		gate:           gate,
		client:         client,
		log:            log.With().Str("component", "ui").Logger(),
		reconcileDelay: opts.ReconcileDelay,
		healthInterval: opts.HealthInterval,
		mode:           modeAuth,
		username:       username,
		email:          email,
		password:       password,
		input:          input,
		spin:           spin,
		keys:           DefaultKeyMap,
		styles:         DefaultStyles(),
	}
}

// Init restores the session and fires the first health probe.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.restoreSessionCmd(),
		m.checkHealthCmd(),
		textarea.Blink,
		m.spin.Tick,
	}
	if tick := m.healthTickCmd(); tick != nil {
		cmds = append(cmds, tick)
	}
	return tea.Batch(cmds...)
}

// sidebarVisible derives the effective collapse state.
func (m Model) sidebarVisible() bool {
	return m.mode == modeChat && !m.collapsed
}

// applyWidth recomputes collapse and component sizes after a resize.
func (m *Model) applyWidth(width, height int) {
	m.width = width
	m.height = height
	if width < narrowWidth {
		m.collapsed = true
	} else {
		m.collapsed = m.userCollapsed
	}
	m.applySizes()
}

// applySizes recomputes component sizes from the current collapse state.
func (m *Model) applySizes() {
	width, height := m.width, m.height

	contentWidth := width
	if m.sidebarVisible() {
		contentWidth -= sidebarWidth + 1
	}
	if contentWidth < 20 {
		contentWidth = 20
	}

	// header + input + status lines
	contentHeight := height - 8
	if contentHeight < 3 {
		contentHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(contentWidth, contentHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = contentHeight
	}
	m.input.SetWidth(contentWidth - 2)

	if renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(contentWidth-4),
	); err == nil {
		m.renderer = renderer
	}

	m.refreshTimeline()
}

// setNotice records a transient status line.
func (m *Model) setNotice(text string, isError bool) {
	m.notice = text
	m.noticeIsError = isError
}
