package repl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anmolpansara/ChatWithDB/internal/app"
	"github.com/anmolpansara/ChatWithDB/internal/database"
)

type fakeBackend struct {
	status  database.Status
	lastSQL string
	cleared bool
	askErr  error
}

func (f *fakeBackend) Connect(context.Context) error {
	f.status = database.Connected
	return nil
}

func (f *fakeBackend) Disconnect() error {
	f.status = database.Disconnected
	return nil
}

func (f *fakeBackend) Status(context.Context) database.Status { return f.status }

func (f *fakeBackend) Describe(context.Context) (*database.SchemaDescription, error) {
	if f.status != database.Connected {
		return nil, &app.ErrConnection{Reason: app.ReasonNotConnected}
	}
	return &database.SchemaDescription{
		Database: "shop",
		Tables:   []database.Table{{Name: "orders", Columns: []database.Column{{Name: "id", DataType: "integer"}}}},
	}, nil
}

func (f *fakeBackend) Ask(_ context.Context, q string) (*app.Turn, error) {
	if f.askErr != nil {
		return nil, f.askErr
	}
	f.lastSQL = "SELECT count(*) FROM orders;"
	return &app.Turn{Question: q, SQL: f.lastSQL, Answer: "count: 3"}, nil
}

func (f *fakeBackend) ClearHistory() { f.cleared = true }

func (f *fakeBackend) LastSQL() (string, bool) { return f.lastSQL, f.lastSQL != "" }

func (f *fakeBackend) ExportLastResult(w io.Writer) error {
	if f.lastSQL == "" {
		return errors.New("no result to export yet")
	}
	_, err := io.WriteString(w, "count\n3\n")
	return err
}

func (f *fakeBackend) Target() string { return "app@db.internal:5432/shop" }

func run(t *testing.T, b *fakeBackend, line string) (string, bool) {
	t.Helper()
	var out bytes.Buffer
	keepGoing := NewSession(b, &out).Handle(context.Background(), line)
	return out.String(), keepGoing
}

func TestQuestionPrintsSQLAndAnswer(t *testing.T) {
	out, ok := run(t, &fakeBackend{status: database.Connected}, "how many orders?")

	assert.True(t, ok)
	assert.Equal(t, "SQL: SELECT count(*) FROM orders;\n\ncount: 3\n", out)
}

func TestQuestionWithoutTurnExplainsError(t *testing.T) {
	out, _ := run(t, &fakeBackend{askErr: app.ErrBusy}, "again")

	assert.Contains(t, out, "Still working")
}

func TestQuitCommands(t *testing.T) {
	for _, line := range []string{`\q`, `\quit`, "exit", "  quit  "} {
		_, ok := run(t, &fakeBackend{}, line)
		assert.False(t, ok, line)
	}
}

func TestEmptyLineIsIgnored(t *testing.T) {
	out, ok := run(t, &fakeBackend{}, "   ")

	assert.True(t, ok)
	assert.Empty(t, out)
}

func TestConnectAndStatus(t *testing.T) {
	b := &fakeBackend{}

	out, _ := run(t, b, `\status`)
	assert.Equal(t, "disconnected\n", out)

	out, _ = run(t, b, `\connect`)
	assert.Equal(t, "Connected to app@db.internal:5432/shop.\n", out)

	out, _ = run(t, b, `\status`)
	assert.Equal(t, "connected to app@db.internal:5432/shop\n", out)

	out, _ = run(t, b, `\disconnect`)
	assert.Equal(t, "Disconnected.\n", out)
	assert.Equal(t, database.Disconnected, b.status)
}

func TestSchema(t *testing.T) {
	out, _ := run(t, &fakeBackend{status: database.Connected}, `\schema`)
	assert.Equal(t, "Database: shop\norders(id integer)\n", out)

	out, _ = run(t, &fakeBackend{}, `\schema`)
	assert.Contains(t, out, "Not connected")
}

func TestClearAndSQL(t *testing.T) {
	b := &fakeBackend{status: database.Connected}

	out, _ := run(t, b, `\sql`)
	assert.Equal(t, "No SQL generated yet.\n", out)

	run(t, b, "how many orders?")
	out, _ = run(t, b, `\sql`)
	assert.Equal(t, "SELECT count(*) FROM orders;\n", out)

	out, _ = run(t, b, `\clear`)
	assert.True(t, b.cleared)
	assert.Equal(t, "History cleared.\n", out)
}

func TestExportCSV(t *testing.T) {
	b := &fakeBackend{status: database.Connected}
	path := filepath.Join(t.TempDir(), "out.csv")

	out, _ := run(t, b, `\csv `+path)
	assert.Contains(t, out, "Export failed")
	assert.NoFileExists(t, path)

	run(t, b, "how many orders?")
	out, _ = run(t, b, `\csv `+path)
	assert.Equal(t, "Exported to "+path+".\n", out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "count\n3\n", string(data))

	out, _ = run(t, b, `\csv`)
	assert.Contains(t, out, "Usage")
}

func TestUnknownCommand(t *testing.T) {
	out, ok := run(t, &fakeBackend{}, `\frobnicate now`)

	assert.True(t, ok)
	assert.Equal(t, "Unknown command \\frobnicate. Type \\help for the list.\n", out)
}
