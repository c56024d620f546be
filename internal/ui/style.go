package ui

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles used by the shell.
type Styles struct {
	Header       lipgloss.Style
	Sidebar      lipgloss.Style
	SidebarItem  lipgloss.Style
	ActiveItem   lipgloss.Style
	SelectedItem lipgloss.Style
	UserLabel    lipgloss.Style
	AssistLabel  lipgloss.Style
	PendingMark  lipgloss.Style
	Timestamp    lipgloss.Style
	Notice       lipgloss.Style
	ErrorNotice  lipgloss.Style
	Online       lipgloss.Style
	Offline      lipgloss.Style
	Help         lipgloss.Style
	InputBox     lipgloss.Style
}

// DefaultStyles uses adaptive colors so both light and dark terminals work.
func DefaultStyles() Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#6c6c6c", Dark: "#8c8c8c"}
	accent := lipgloss.AdaptiveColor{Light: "#1890ff", Dark: "#69b4ff"}
	good := lipgloss.AdaptiveColor{Light: "#237804", Dark: "#52c41a"}
	bad := lipgloss.AdaptiveColor{Light: "#a8071a", Dark: "#ff4d4f"}

	return Styles{
		Header:       lipgloss.NewStyle().Bold(true).Foreground(accent),
		Sidebar:      lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderRight(true).BorderForeground(subtle).PaddingRight(1),
		SidebarItem:  lipgloss.NewStyle().PaddingLeft(1),
		ActiveItem:   lipgloss.NewStyle().PaddingLeft(1).Bold(true).Foreground(accent),
		SelectedItem: lipgloss.NewStyle().PaddingLeft(1).Reverse(true),
		UserLabel:    lipgloss.NewStyle().Bold(true),
		AssistLabel:  lipgloss.NewStyle().Bold(true).Foreground(accent),
		PendingMark:  lipgloss.NewStyle().Foreground(subtle).Italic(true),
		Timestamp:    lipgloss.NewStyle().Foreground(subtle),
		Notice:       lipgloss.NewStyle().Foreground(subtle),
		ErrorNotice:  lipgloss.NewStyle().Foreground(bad),
		Online:       lipgloss.NewStyle().Foreground(good),
		Offline:      lipgloss.NewStyle().Foreground(bad),
		Help:         lipgloss.NewStyle().Foreground(subtle),
		InputBox:     lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderTop(true).BorderForeground(subtle),
	}
}
