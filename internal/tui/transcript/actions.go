package transcript

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// StatusNotifyMsg tells the app to show a message in the status bar.
type StatusNotifyMsg struct {
	Message string
}

// SQLSource returns the most recent generated SQL.
type SQLSource interface {
	LastSQL() (string, bool)
}

// copyToClipboard is replaced in tests.
var copyToClipboard = clipboard.WriteAll

// CopySQLCmd copies the last generated SQL to the clipboard.
func CopySQLCmd(src SQLSource) tea.Cmd {
	return func() tea.Msg {
		sql, ok := src.LastSQL()
		if !ok {
			return StatusNotifyMsg{Message: "No SQL to copy yet"}
		}
		if err := copyToClipboard(sql); err != nil {
			return StatusNotifyMsg{Message: "Copy failed: " + err.Error()}
		}
		return StatusNotifyMsg{Message: "Copied SQL to clipboard"}
	}
}

// ExportCSVCmd writes the last result to chatwithdb_export_<timestamp>.csv
// in dir.
func ExportCSVCmd(dir string, export func(w io.Writer) error) tea.Cmd {
	return func() tea.Msg {
		name := fmt.Sprintf("chatwithdb_export_%s.csv", time.Now().Format("20060102_150405"))
		name = filepath.Join(dir, name)

		f, err := os.Create(name)
		if err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		if err := export(f); err != nil {
			f.Close()
			os.Remove(name)
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		if err := f.Close(); err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		return StatusNotifyMsg{Message: "Exported to " + name}
	}
}
