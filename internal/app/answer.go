package app

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/anmolpansara/ChatWithDB/internal/database"
)

var printer = message.NewPrinter(language.English)

// FormatAnswer summarises a result for the transcript: a row count line and
// a preview of at most previewRows rows.
func FormatAnswer(result *database.QueryResult, previewRows int) string {
	if result == nil {
		return ""
	}
	if len(result.Columns) == 0 {
		return printer.Sprintf("Statement executed. %d %s affected.", result.RowsAffected, plural(int(result.RowsAffected), "row", "rows"))
	}
	if result.RowCount == 0 {
		return "No rows matched."
	}

	var b strings.Builder
	switch {
	case result.Truncated:
		b.WriteString(printer.Sprintf("Showing the first %d rows; the query returned more.", result.RowCount))
	case result.RowCount == 1 && len(result.Columns) == 1:
		return fmt.Sprintf("%s: %s", result.Columns[0], result.Rows[0][0])
	default:
		b.WriteString(printer.Sprintf("Found %d %s.", result.RowCount, plural(result.RowCount, "row", "rows")))
	}

	if previewRows <= 0 {
		previewRows = 20
	}
	shown := min(previewRows, len(result.Rows))
	b.WriteString("\n\n")
	b.WriteString(renderTable(result.Columns, result.Rows[:shown]))
	if shown < result.RowCount {
		b.WriteString("\n")
		b.WriteString(printer.Sprintf("(%d of %d rows shown)", shown, result.RowCount))
	}
	return b.String()
}

func renderTable(columns []string, rows [][]string) string {
	t := newTableWriter(columns, rows)
	t.SuppressTrailingSpaces()
	return t.Render()
}

// newTableWriter keeps column names as they are; the default style would
// upper-case them.
func newTableWriter(columns []string, rows [][]string) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(toRow(columns))
	for _, r := range rows {
		t.AppendRow(toRow(r))
	}
	t.SetStyle(table.StyleLight)
	t.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	return t
}

// WriteCSV writes every fetched row of result, with a header line.
func WriteCSV(w io.Writer, result *database.QueryResult) error {
	if result == nil || len(result.Columns) == 0 {
		return fmt.Errorf("no tabular result to export")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(result.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range result.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func toRow(values []string) table.Row {
	row := make(table.Row, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
