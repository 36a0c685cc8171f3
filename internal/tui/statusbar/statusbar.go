package statusbar

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/anmolpansara/ChatWithDB/internal/database"
	"github.com/anmolpansara/ChatWithDB/internal/tui/theme"
)

const hints = "Enter: Ask │ Tab: Pane │ ?: Help │ Ctrl+C: Quit"

// Model is the status bar: connection indicator on the left, the last
// notification or key hints on the right.
type Model struct {
	width   int
	status  database.Status
	target  string
	message string
}

// New creates a status bar showing a disconnected session.
func New() Model {
	return Model{status: database.Disconnected}
}

// SetWidth updates the component width.
func (m *Model) SetWidth(w int) {
	m.width = w
}

// SetStatus updates the connection indicator. target is shown only while
// connected and must already be redacted.
func (m *Model) SetStatus(s database.Status, target string) {
	m.status = s
	m.target = target
}

// Status returns the last reported connection status.
func (m Model) Status() database.Status {
	return m.status
}

// SetMessage sets a notification; an empty message restores the hints.
func (m *Model) SetMessage(msg string) {
	m.message = msg
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages (the status bar has no interactive behavior).
func (m Model) Update(_ tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the status bar.
func (m Model) View() string {
	var left string
	if m.status == database.Connected {
		left = lipgloss.NewStyle().Foreground(theme.ColorSuccess).Render("●") + " " + m.target
	} else {
		left = lipgloss.NewStyle().Foreground(theme.ColorError).Render("●") + " disconnected"
	}

	right := hints
	if m.message != "" {
		right = m.message
	}

	padding := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	return theme.StyleStatusBar.Width(m.width).Render(left + strings.Repeat(" ", padding) + right)
}
