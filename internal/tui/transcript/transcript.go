package transcript

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/anmolpansara/ChatWithDB/internal/app"
	"github.com/anmolpansara/ChatWithDB/internal/tui/theme"
)

// Model is the chat transcript: every answered turn, oldest first, plus
// the question currently being answered.
type Model struct {
	turns   []*app.Turn
	pending string
	lines   []string
	width   int
	height  int
	focused bool
	scrollY int
	showSQL bool
}

// New creates an empty transcript that shows generated SQL.
func New() Model {
	return Model{showSQL: true}
}

// SetSize updates the component dimensions and re-wraps the content.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.render()
}

// SetFocused sets the focus state.
func (m *Model) SetFocused(f bool) {
	m.focused = f
}

// SetTurns replaces the transcript and scrolls to the newest turn.
func (m *Model) SetTurns(turns []*app.Turn) {
	m.turns = turns
	m.pending = ""
	m.render()
	m.scrollToBottom()
}

// SetPending shows question as being answered.
func (m *Model) SetPending(question string) {
	m.pending = question
	m.render()
	m.scrollToBottom()
}

// ToggleSQL shows or hides the generated SQL of each turn.
func (m *Model) ToggleSQL() {
	m.showSQL = !m.showSQL
	m.render()
}

// Len returns the number of turns shown.
func (m Model) Len() int {
	return len(m.turns)
}

func (m *Model) render() {
	m.lines = m.lines[:0]
	wrap := lipgloss.NewStyle().Width(max(10, m.width-4))

	for i, t := range m.turns {
		if i > 0 {
			m.lines = append(m.lines, "")
		}
		m.lines = append(m.lines, strings.Split(wrap.Render(theme.StyleQuestion.Render("You: ")+t.Question), "\n")...)
		if m.showSQL && t.SQL != "" {
			for _, l := range strings.Split(t.SQL, "\n") {
				m.lines = append(m.lines, "  "+theme.StyleSQL.Render(l))
			}
		}
		m.lines = append(m.lines, m.answerLines(t, wrap)...)
	}

	if m.pending != "" {
		if len(m.turns) > 0 {
			m.lines = append(m.lines, "")
		}
		m.lines = append(m.lines, strings.Split(wrap.Render(theme.StyleQuestion.Render("You: ")+m.pending), "\n")...)
		m.lines = append(m.lines, theme.StyleMuted.Render("  Thinking..."))
	}
}

// answerLines keeps result tables unwrapped so their columns stay aligned.
func (m *Model) answerLines(t *app.Turn, wrap lipgloss.Style) []string {
	style := lipgloss.NewStyle()
	if t.Err != nil {
		style = theme.StyleError
	}
	var out []string
	for _, l := range strings.Split(t.Answer, "\n") {
		if strings.ContainsAny(l, "┌│├└") {
			out = append(out, "  "+l)
			continue
		}
		for _, w := range strings.Split(wrap.Render(l), "\n") {
			out = append(out, "  "+style.Render(w))
		}
	}
	return out
}

func (m *Model) visibleRows() int {
	return max(1, m.height-2)
}

func (m *Model) maxScroll() int {
	return max(0, len(m.lines)-m.visibleRows())
}

func (m *Model) scrollToBottom() {
	m.scrollY = m.maxScroll()
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles scrolling while focused.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			m.scrollY--
		case "down", "j":
			m.scrollY++
		case "pgup":
			m.scrollY -= m.visibleRows() / 2
		case "pgdown":
			m.scrollY += m.visibleRows() / 2
		case "home", "g":
			m.scrollY = 0
		case "end", "G":
			m.scrollY = m.maxScroll()
		case "v":
			m.ToggleSQL()
		}
		m.scrollY = min(max(0, m.scrollY), m.maxScroll())
	}
	return m, nil
}

// View renders the transcript.
func (m Model) View() string {
	title := theme.StyleTitle.Render("Chat")
	if len(m.lines) == 0 {
		return title + "\n" + theme.StyleMuted.Render("  Ask a question to get started.")
	}

	end := min(len(m.lines), m.scrollY+m.visibleRows())
	return title + "\n" + strings.Join(m.lines[m.scrollY:end], "\n")
}
