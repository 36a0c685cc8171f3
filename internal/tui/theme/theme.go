package theme

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	ColorPrimary   = lipgloss.Color("39")  // blue
	ColorAccent    = lipgloss.Color("141") // violet, used for the user's questions
	ColorSuccess   = lipgloss.Color("42")  // green
	ColorError     = lipgloss.Color("196") // red
	ColorBorder    = lipgloss.Color("240") // gray
	ColorMuted     = lipgloss.Color("245") // light gray
	ColorHighlight = lipgloss.Color("214") // orange
	ColorCode      = lipgloss.Color("180") // sand, SQL text
)

// Pane frames.
var (
	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleActiveBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)
)

// Text.
var (
	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true).
			Padding(0, 1)

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError)

	StyleQuestion = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	StyleSQL = lipgloss.NewStyle().
			Foreground(ColorCode)

	StyleSelected = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true)

	StyleKey = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	StyleStatusBar = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)
)
