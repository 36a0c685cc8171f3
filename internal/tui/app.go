package tui

import (
	"context"
	"errors"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/anmolpansara/ChatWithDB/internal/app"
	"github.com/anmolpansara/ChatWithDB/internal/database"
	"github.com/anmolpansara/ChatWithDB/internal/tui/explorer"
	"github.com/anmolpansara/ChatWithDB/internal/tui/input"
	"github.com/anmolpansara/ChatWithDB/internal/tui/statusbar"
	"github.com/anmolpansara/ChatWithDB/internal/tui/theme"
	"github.com/anmolpansara/ChatWithDB/internal/tui/transcript"
)

// Backend is what the TUI needs from the application service.
type Backend interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Status(ctx context.Context) database.Status
	Describe(ctx context.Context) (*database.SchemaDescription, error)
	Ask(ctx context.Context, question string) (*app.Turn, error)
	Turns() []*app.Turn
	ClearHistory()
	LastSQL() (string, bool)
	ExportLastResult(w io.Writer) error
	Target() string
}

// Pane identifies a focusable area.
type Pane int

const (
	PaneInput Pane = iota
	PaneTranscript
	PaneSchema
)

func (p Pane) String() string {
	switch p {
	case PaneInput:
		return "input"
	case PaneTranscript:
		return "transcript"
	case PaneSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// AppMode tracks the current UI state.
type AppMode int

const (
	ModeWelcome AppMode = iota // disconnected, Ctrl+O connects
	ModeMain                   // connected chat
)

// Options tunes the TUI.
type Options struct {
	// ExportDir is where Ctrl+S writes CSV files. Empty means the working directory.
	ExportDir string
	// ProbeInterval is how often the connection is probed while connected.
	ProbeInterval time.Duration
}

// ExampleQuestions are shown on the welcome screen.
var ExampleQuestions = []string{
	"How many orders were placed last month?",
	"Which ten customers spent the most?",
	"What is the average order value per country?",
}

// Custom messages for async operations.
type (
	connectedMsg struct {
		err error
	}
	disconnectedMsg struct {
		err error
	}
	schemaLoadedMsg struct {
		desc *database.SchemaDescription
		err  error
	}
	answeredMsg struct {
		turn *app.Turn
		err  error
	}
	probeTickMsg struct {
		seq int
	}
	probedMsg struct {
		status database.Status
	}
)

// Model is the top-level bubbletea model orchestrating all components.
type Model struct {
	backend    Backend
	opts       Options
	explorer   explorer.Model
	input      input.Model
	transcript transcript.Model
	statusbar  statusbar.Model
	activePane Pane
	mode       AppMode
	width      int
	height     int
	showHelp   bool
	busy       bool
	connecting bool
	err        string
	probeSeq   int
}

// NewModel creates the top-level model. The session starts disconnected.
func NewModel(backend Backend, opts Options) Model {
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = 15 * time.Second
	}
	m := Model{
		backend:    backend,
		opts:       opts,
		explorer:   explorer.New(),
		input:      input.New(),
		transcript: transcript.New(),
		statusbar:  statusbar.New(),
		mode:       ModeWelcome,
	}
	m.setFocus(PaneInput)
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return m.input.Init()
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if msg.String() == "f1" || (msg.String() == "?" && (m.mode == ModeWelcome || m.activePane != PaneInput)) {
			m.showHelp = true
			return m, nil
		}
		if m.mode == ModeWelcome {
			return m.updateWelcome(msg)
		}
		return m.updateMain(msg)

	case connectedMsg:
		m.connecting = false
		if msg.err != nil {
			m.err = app.Explain(msg.err)
			m.statusbar.SetStatus(database.Disconnected, "")
			return m, nil
		}
		m.err = ""
		m.mode = ModeMain
		m.statusbar.SetStatus(database.Connected, m.backend.Target())
		m.statusbar.SetMessage("")
		m.explorer.SetLoading(true)
		m.transcript.SetTurns(m.backend.Turns())
		m.setFocus(PaneInput)
		m.layout()
		m.probeSeq++
		return m, tea.Batch(m.loadSchemaCmd(), m.probeTickCmd())

	case disconnectedMsg:
		m.mode = ModeWelcome
		m.probeSeq++
		m.busy = false
		m.input.SetDisabled(false)
		m.input.SetTableNames(nil)
		m.explorer.Clear()
		m.transcript.SetTurns(nil)
		m.statusbar.SetStatus(database.Disconnected, "")
		m.err = ""
		if msg.err != nil {
			m.err = app.Explain(msg.err)
		}
		return m, nil

	case schemaLoadedMsg:
		if msg.err != nil {
			m.explorer.SetError(app.Explain(msg.err))
			return m, nil
		}
		m.explorer.SetSchema(msg.desc)
		m.input.SetTableNames(msg.desc.TableNames())
		return m, nil

	case answeredMsg:
		m.busy = false
		m.input.SetDisabled(false)
		m.statusbar.SetMessage("")
		if errors.Is(msg.err, app.ErrBusy) || errors.Is(msg.err, app.ErrEmptyQuestion) {
			m.statusbar.SetMessage(app.Explain(msg.err))
		}
		var connErr *app.ErrConnection
		if errors.As(msg.err, &connErr) {
			m.statusbar.SetStatus(database.Disconnected, "")
		}
		m.transcript.SetTurns(m.backend.Turns())
		return m, nil

	case probeTickMsg:
		if msg.seq != m.probeSeq || m.mode != ModeMain {
			return m, nil
		}
		return m, m.probeCmd()

	case probedMsg:
		if m.mode != ModeMain {
			return m, nil
		}
		target := ""
		if msg.status == database.Connected {
			target = m.backend.Target()
		}
		m.statusbar.SetStatus(msg.status, target)
		return m, m.probeTickCmd()

	case transcript.StatusNotifyMsg:
		m.statusbar.SetMessage(msg.Message)
		return m, nil

	case input.SubmitMsg:
		if m.busy {
			m.statusbar.SetMessage(app.Explain(app.ErrBusy))
			return m, nil
		}
		m.busy = true
		m.input.SetDisabled(true)
		m.statusbar.SetMessage("Thinking...")
		m.transcript.SetPending(msg.Question)
		return m, m.askCmd(msg.Question)
	}

	if m.mode == ModeMain {
		return m.updateComponents(msg)
	}
	return m, nil
}

func (m Model) updateWelcome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+o", "enter":
		if m.connecting {
			return m, nil
		}
		m.connecting = true
		m.err = ""
		return m, m.connectCmd()
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+o":
		m.statusbar.SetMessage("Reconnecting...")
		return m, m.connectCmd()
	case "ctrl+d":
		return m, m.disconnectCmd()
	case "ctrl+l":
		m.backend.ClearHistory()
		m.transcript.SetTurns(nil)
		m.statusbar.SetMessage("History cleared")
		return m, nil
	case "ctrl+y":
		return m, transcript.CopySQLCmd(m.backend)
	case "ctrl+s":
		return m, transcript.ExportCSVCmd(m.opts.ExportDir, m.backend.ExportLastResult)
	case "tab":
		if m.activePane == PaneInput && m.input.Complete() {
			return m, nil
		}
		m.cyclePane(1)
		return m, nil
	case "shift+tab":
		m.cyclePane(-1)
		return m, nil
	}
	return m.updateComponents(msg)
}

func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.activePane {
	case PaneInput:
		m.input, cmd = m.input.Update(msg)
	case PaneTranscript:
		m.transcript, cmd = m.transcript.Update(msg)
	case PaneSchema:
		m.explorer, cmd = m.explorer.Update(msg)
	}
	return m, cmd
}

func (m *Model) cyclePane(step int) {
	const panes = 3
	m.setFocus(Pane((int(m.activePane) + step + panes) % panes))
}

func (m *Model) setFocus(pane Pane) {
	m.activePane = pane
	m.input.SetFocused(pane == PaneInput)
	m.transcript.SetFocused(pane == PaneTranscript)
	m.explorer.SetFocused(pane == PaneSchema)
}

const inputHeight = 5

func (m Model) schemaWidth() int {
	return min(max(m.width/4, 22), 40)
}

func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	avail := m.height - 1 - 2 // status bar, borders
	right := m.width - m.schemaWidth() - 2

	m.explorer.SetSize(m.schemaWidth()-2, avail)
	m.transcript.SetSize(right-2, avail-inputHeight-2)
	m.input.SetSize(right-2, inputHeight)
	m.statusbar.SetWidth(m.width)
}

// Async commands

func (m Model) connectCmd() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return connectedMsg{err: backend.Connect(ctx)}
	}
}

func (m Model) disconnectCmd() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		return disconnectedMsg{err: backend.Disconnect()}
	}
}

func (m Model) loadSchemaCmd() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		desc, err := backend.Describe(ctx)
		return schemaLoadedMsg{desc: desc, err: err}
	}
}

// askCmd relies on the orchestrator's own completion and statement deadlines.
func (m Model) askCmd(question string) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		turn, err := backend.Ask(context.Background(), question)
		return answeredMsg{turn: turn, err: err}
	}
}

func (m Model) probeTickCmd() tea.Cmd {
	seq := m.probeSeq
	return tea.Tick(m.opts.ProbeInterval, func(time.Time) tea.Msg {
		return probeTickMsg{seq: seq}
	})
}

func (m Model) probeCmd() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		return probedMsg{status: backend.Status(context.Background())}
	}
}

// View renders the entire application.
func (m Model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}
	if m.mode == ModeWelcome {
		return m.viewWelcome()
	}
	return m.viewMain()
}

func (m Model) viewWelcome() string {
	title := lipgloss.NewStyle().Foreground(theme.ColorPrimary).Bold(true).Padding(1, 0).Render("ChatWithDB")
	subtitle := theme.StyleMuted.Render("Ask your PostgreSQL database questions in plain English.")

	parts := []string{
		"",
		title,
		subtitle,
		"",
		lipgloss.NewStyle().Foreground(theme.ColorPrimary).Render("Database: ") + m.backend.Target(),
		"",
		theme.StyleSelected.Render("Example questions"),
	}
	for _, q := range ExampleQuestions {
		parts = append(parts, "  • "+q)
	}
	parts = append(parts,
		"",
		theme.StyleSelected.Render("Configuration"),
		theme.StyleMuted.Render("  Set DB_HOST, DB_PORT, DB_NAME, DB_USER, DB_PASSWORD and GROQ_API_KEY,"),
		theme.StyleMuted.Render("  or edit ~/.chatwithdb/config.yaml."),
	)

	if m.connecting {
		parts = append(parts, "", theme.StyleMuted.Render("  Connecting..."))
	}
	if m.err != "" {
		parts = append(parts, "", theme.StyleError.Render("  "+m.err))
	}
	parts = append(parts, "", theme.StyleMuted.Render("  Ctrl+O / Enter: Connect │ ?: Help │ q: Quit"))

	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}

func (m Model) border(p Pane) lipgloss.Style {
	if m.activePane == p {
		return theme.StyleActiveBorder
	}
	return theme.StyleBorder
}

func (m Model) viewMain() string {
	avail := m.height - 1 - 2
	right := m.width - m.schemaWidth() - 2

	schemaView := m.border(PaneSchema).
		Width(m.schemaWidth() - 2).
		Height(avail).
		Render(m.explorer.View())

	transcriptView := m.border(PaneTranscript).
		Width(right - 2).
		Height(avail - inputHeight - 2).
		Render(m.transcript.View())

	inputView := m.border(PaneInput).
		Width(right - 2).
		Height(inputHeight).
		Render(m.input.View())

	mainArea := lipgloss.JoinHorizontal(lipgloss.Top,
		schemaView,
		lipgloss.JoinVertical(lipgloss.Left, transcriptView, inputView),
	)

	return lipgloss.JoinVertical(lipgloss.Left, mainArea, m.statusbar.View())
}

func (m Model) viewHelp() string {
	section := func(s string) string { return theme.StyleSelected.Render(s) }
	row := func(key, desc string) string {
		return theme.StyleKey.Render("  "+padRight(key, 14)) + theme.StyleMuted.Render(desc)
	}

	help := lipgloss.JoinVertical(lipgloss.Left,
		theme.StyleTitle.Render("ChatWithDB - Keyboard Shortcuts"),
		"",
		section("Global"),
		row("Ctrl+C", "Quit"),
		row("? / F1", "Toggle this help"),
		row("Tab", "Complete table name, or switch pane"),
		row("Shift+Tab", "Switch pane (reverse)"),
		"",
		section("Session"),
		row("Ctrl+O", "Connect / reconnect"),
		row("Ctrl+D", "Disconnect (clears the chat)"),
		row("Ctrl+L", "Clear chat history"),
		"",
		section("Ask"),
		row("Enter", "Ask the question"),
		row("Ctrl+J", "New line"),
		row("Ctrl+K", "Clear input"),
		row("Ctrl+Y", "Copy last SQL"),
		row("Ctrl+S", "Export last result as CSV"),
		"",
		section("Chat / Database Info"),
		row("↑/k  ↓/j", "Scroll / move"),
		row("PgUp/PgDn", "Page up/down"),
		row("v", "Show or hide generated SQL"),
		row("Enter/→  ←", "Expand / collapse"),
		"",
		theme.StyleMuted.Render("Press any key to close"),
	)

	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		help,
	)
}

func padRight(s string, n int) string {
	for lipgloss.Width(s) < n {
		s += " "
	}
	return s
}
