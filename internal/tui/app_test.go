package tui

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anmolpansara/ChatWithDB/internal/app"
	"github.com/anmolpansara/ChatWithDB/internal/database"
	"github.com/anmolpansara/ChatWithDB/internal/tui/input"
	"github.com/anmolpansara/ChatWithDB/internal/tui/transcript"
)

type fakeBackend struct {
	connectErr error
	status     database.Status
	turns      []*app.Turn
	cleared    bool
	asked      []string
}

func (f *fakeBackend) Connect(context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.status = database.Connected
	return nil
}

func (f *fakeBackend) Disconnect() error {
	f.status = database.Disconnected
	f.turns = nil
	return nil
}

func (f *fakeBackend) Status(context.Context) database.Status { return f.status }

func (f *fakeBackend) Describe(context.Context) (*database.SchemaDescription, error) {
	return &database.SchemaDescription{
		Database: "shop",
		Tables: []database.Table{
			{Schema: "public", Name: "customers", Kind: "table", Columns: []database.Column{{Name: "id", DataType: "integer"}}},
			{Schema: "public", Name: "orders", Kind: "table", Columns: []database.Column{{Name: "total", DataType: "numeric"}}},
		},
	}, nil
}

func (f *fakeBackend) Ask(_ context.Context, q string) (*app.Turn, error) {
	f.asked = append(f.asked, q)
	t := &app.Turn{Question: q, SQL: "SELECT count(*) FROM orders;", Answer: "count: 3"}
	f.turns = append(f.turns, t)
	return t, nil
}

func (f *fakeBackend) Turns() []*app.Turn { return f.turns }

func (f *fakeBackend) ClearHistory() {
	f.turns = nil
	f.cleared = true
}

func (f *fakeBackend) LastSQL() (string, bool) {
	if len(f.turns) == 0 {
		return "", false
	}
	return f.turns[len(f.turns)-1].SQL, true
}

func (f *fakeBackend) ExportLastResult(w io.Writer) error {
	if len(f.turns) == 0 {
		return errors.New("no result to export yet")
	}
	_, err := io.WriteString(w, "count\n3\n")
	return err
}

func (f *fakeBackend) Target() string { return "app@db.internal:5432/shop" }

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+o":
		return tea.KeyMsg{Type: tea.KeyCtrlO}
	case "ctrl+d":
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	case "ctrl+l":
		return tea.KeyMsg{Type: tea.KeyCtrlL}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send delivers msg and runs the resulting command chain synchronously,
// skipping ticks and batches.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	for cmd != nil {
		out := cmd()
		switch out.(type) {
		case nil, tea.BatchMsg, probeTickMsg:
			return m
		}
		next, cmd = m.Update(out)
		m = next.(Model)
	}
	return m
}

func connected(t *testing.T, b *fakeBackend) Model {
	t.Helper()
	m := NewModel(b, Options{ExportDir: t.TempDir(), ProbeInterval: time.Millisecond})
	m = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = send(t, m, key("ctrl+o"))
	require.Equal(t, ModeMain, m.mode)
	m = send(t, m, schemaLoadedMsg{desc: must(b.Describe(context.Background()))})
	return m
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func TestWelcomeScreenShowsHints(t *testing.T) {
	m := NewModel(&fakeBackend{}, Options{})
	m = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	view := m.View()
	assert.Contains(t, view, "app@db.internal:5432/shop")
	assert.Contains(t, view, ExampleQuestions[0])
	assert.Contains(t, view, "GROQ_API_KEY")
}

func TestConnectFailureStaysOnWelcome(t *testing.T) {
	b := &fakeBackend{connectErr: &app.ErrConnection{Reason: database.ReasonAuth}}
	m := NewModel(b, Options{})
	m = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m = send(t, m, key("ctrl+o"))

	assert.Equal(t, ModeWelcome, m.mode)
	assert.Contains(t, m.err, "rejected the credentials")
}

func TestConnectLoadsSchema(t *testing.T) {
	m := connected(t, &fakeBackend{})

	assert.Equal(t, database.Connected, m.statusbar.Status())
	assert.Contains(t, m.View(), "customers")
	assert.Contains(t, m.statusbar.View(), "app@db.internal:5432/shop")
}

func TestAskShowsAnswer(t *testing.T) {
	b := &fakeBackend{}
	m := connected(t, b)

	m.input.SetValue("how many orders?")
	m = send(t, m, key("enter"))

	assert.Equal(t, []string{"how many orders?"}, b.asked)
	assert.False(t, m.busy)
	assert.Equal(t, 1, m.transcript.Len())
	assert.Contains(t, m.View(), "count: 3")
}

func TestSubmitWhileBusyIsRejected(t *testing.T) {
	b := &fakeBackend{}
	m := connected(t, b)
	m.busy = true

	next, cmd := m.Update(input.SubmitMsg{Question: "again"})

	assert.Nil(t, cmd)
	assert.Empty(t, b.asked)
	assert.Contains(t, next.(Model).statusbar.View(), "Still working")
}

func TestTabCompletesTableName(t *testing.T) {
	m := connected(t, &fakeBackend{})
	m.input.SetValue("rows in ord")

	m = send(t, m, key("tab"))

	assert.Equal(t, "rows in orders", m.input.Value())
	assert.Equal(t, PaneInput, m.activePane)
}

func TestTabWithoutCandidateSwitchesPane(t *testing.T) {
	m := connected(t, &fakeBackend{})

	m = send(t, m, key("tab"))

	assert.Equal(t, PaneTranscript, m.activePane)
}

func TestClearHistoryKeepsSession(t *testing.T) {
	b := &fakeBackend{}
	m := connected(t, b)
	m.input.SetValue("how many orders?")
	m = send(t, m, key("enter"))

	m = send(t, m, key("ctrl+l"))

	assert.True(t, b.cleared)
	assert.Zero(t, m.transcript.Len())
	assert.Equal(t, ModeMain, m.mode)
}

func TestDisconnectReturnsToWelcome(t *testing.T) {
	b := &fakeBackend{}
	m := connected(t, b)

	m = send(t, m, key("ctrl+d"))

	assert.Equal(t, ModeWelcome, m.mode)
	assert.Equal(t, database.Disconnected, m.statusbar.Status())
	assert.Zero(t, m.transcript.Len())
}

func TestProbeReportsLostConnection(t *testing.T) {
	b := &fakeBackend{}
	m := connected(t, b)
	b.status = database.Disconnected

	m = send(t, m, probeTickMsg{seq: m.probeSeq})

	assert.Equal(t, database.Disconnected, m.statusbar.Status())
}

func TestStaleProbeIsIgnored(t *testing.T) {
	m := connected(t, &fakeBackend{})

	_, cmd := m.Update(probeTickMsg{seq: m.probeSeq - 1})

	assert.Nil(t, cmd)
}

func TestExportWritesCSV(t *testing.T) {
	b := &fakeBackend{}
	m := connected(t, b)
	m.input.SetValue("how many orders?")
	m = send(t, m, key("enter"))

	m = send(t, m, key("ctrl+s"))

	files, err := filepath.Glob(filepath.Join(m.opts.ExportDir, "chatwithdb_export_*.csv"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "count\n3\n", string(data))
	assert.Contains(t, m.statusbar.View(), "Exported to")
}

func TestExportWithoutResult(t *testing.T) {
	m := connected(t, &fakeBackend{})

	m = send(t, m, key("ctrl+s"))

	assert.Contains(t, m.statusbar.View(), "Export failed")
	files, _ := filepath.Glob(filepath.Join(m.opts.ExportDir, "*.csv"))
	assert.Empty(t, files)
}

func TestStatusNotifyMessage(t *testing.T) {
	m := connected(t, &fakeBackend{})

	m = send(t, m, transcript.StatusNotifyMsg{Message: "Copied SQL to clipboard"})

	assert.Contains(t, m.statusbar.View(), "Copied SQL")
}

func TestHelpToggle(t *testing.T) {
	m := connected(t, &fakeBackend{})
	m = send(t, m, key("tab"))

	m = send(t, m, key("?"))
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	m = send(t, m, key("x"))
	assert.NotContains(t, m.View(), "Keyboard Shortcuts")
}
