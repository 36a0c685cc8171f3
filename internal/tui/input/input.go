package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/anmolpansara/ChatWithDB/internal/tui/theme"
)

// SubmitMsg is sent when the user asks a question.
type SubmitMsg struct {
	Question string
}

// Model is the question input with table-name completion.
type Model struct {
	textarea textarea.Model
	width    int
	height   int
	focused  bool
	disabled bool

	tableNames  []string
	completing  bool
	completions []string
	compIndex   int
}

// New creates a new question input.
func New() Model {
	ta := textarea.New()
	ta.Placeholder = "Ask a question about your data..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.Prompt = "│ "
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle()
	ta.BlurredStyle.Base = lipgloss.NewStyle()
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(theme.ColorMuted)
	ta.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(theme.ColorMuted)
	ta.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(theme.ColorAccent)
	ta.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(theme.ColorBorder)
	// Enter submits; newlines are entered with ctrl+j.
	ta.KeyMap.InsertNewline.SetKeys("ctrl+j")

	return Model{textarea: ta}
}

// SetSize updates the component dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.textarea.SetWidth(max(1, w-2))
	m.textarea.SetHeight(max(1, h-2))
}

// SetFocused sets the focus state.
func (m *Model) SetFocused(f bool) {
	m.focused = f
	if f {
		m.textarea.Focus()
	} else {
		m.textarea.Blur()
	}
}

// SetDisabled blocks submission while a question is being answered.
func (m *Model) SetDisabled(d bool) {
	m.disabled = d
}

// Value returns the current text.
func (m Model) Value() string {
	return m.textarea.Value()
}

// SetValue replaces the text.
func (m *Model) SetValue(s string) {
	m.textarea.SetValue(s)
}

// SetTableNames sets the candidates for Tab completion.
func (m *Model) SetTableNames(names []string) {
	m.tableNames = names
	m.cancelCompletion()
}

// Reset empties the input.
func (m *Model) Reset() {
	m.textarea.Reset()
	m.cancelCompletion()
}

// Completing reports whether a Tab completion cycle is in progress.
func (m Model) Completing() bool {
	return m.completing
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages for the input.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		key := msg.String()
		switch key {
		case "enter":
			question := strings.TrimSpace(m.textarea.Value())
			if question == "" || m.disabled {
				return m, nil
			}
			m.Reset()
			return m, func() tea.Msg {
				return SubmitMsg{Question: question}
			}
		case "ctrl+k":
			m.Reset()
			return m, nil
		case "tab":
			m.Complete()
			return m, nil
		case "esc":
			if m.completing {
				m.cancelCompletion()
				return m, nil
			}
		}
		if m.completing {
			m.cancelCompletion()
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// Complete replaces the word before the cursor with the next table name it
// prefixes. It reports whether a completion was applied.
func (m *Model) Complete() bool {
	if m.completing && len(m.completions) > 0 {
		m.compIndex = (m.compIndex + 1) % len(m.completions)
		m.applyCompletion()
		return true
	}

	partial := lastWord(m.textarea.Value())
	matches := Matches(m.tableNames, partial)
	if len(matches) == 0 {
		return false
	}

	m.completing = true
	m.completions = matches
	m.compIndex = 0
	m.applyCompletion()
	return true
}

// Matches returns the names that start with partial, ignoring case.
// An empty partial matches nothing.
func Matches(names []string, partial string) []string {
	if partial == "" {
		return nil
	}
	lower := strings.ToLower(partial)
	var out []string
	for _, name := range names {
		if strings.HasPrefix(strings.ToLower(name), lower) {
			out = append(out, name)
		}
	}
	return out
}

func (m *Model) applyCompletion() {
	val := m.textarea.Value()
	base := strings.TrimSuffix(val, lastWord(val))
	m.textarea.SetValue(base + m.completions[m.compIndex])
}

func (m *Model) cancelCompletion() {
	m.completing = false
	m.completions = nil
	m.compIndex = 0
}

// lastWord returns the trailing identifier of s, or "" when s ends in a space.
func lastWord(s string) string {
	i := len(s)
	for i > 0 && isIdentChar(s[i-1]) {
		i--
	}
	return s[i:]
}

func isIdentChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') || c == '_' || c == '.'
}

// View renders the input.
func (m Model) View() string {
	title := theme.StyleTitle.Render("Ask")
	if m.disabled {
		title += theme.StyleMuted.Render(" thinking...")
	}

	var hint string
	if m.completing && len(m.completions) > 1 {
		parts := make([]string, len(m.completions))
		for i, c := range m.completions {
			if i == m.compIndex {
				parts[i] = theme.StyleSelected.Render(c)
			} else {
				parts[i] = theme.StyleMuted.Render(c)
			}
		}
		hint = "\n " + theme.StyleMuted.Render("Tab: ") + strings.Join(parts, " │ ")
	}

	return title + "\n" + m.textarea.View() + hint
}
