// Package repl is the plain line-oriented surface: one question per line,
// backslash commands for session control.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/anmolpansara/ChatWithDB/internal/app"
	"github.com/anmolpansara/ChatWithDB/internal/database"
)

// Backend is what the REPL needs from the application service.
type Backend interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Status(ctx context.Context) database.Status
	Describe(ctx context.Context) (*database.SchemaDescription, error)
	Ask(ctx context.Context, question string) (*app.Turn, error)
	ClearHistory()
	LastSQL() (string, bool)
	ExportLastResult(w io.Writer) error
	Target() string
}

const helpText = `Type a question in plain English, or one of:
  \schema          show the tables and columns the model sees
  \status          probe the connection
  \connect         connect, or reconnect
  \disconnect      disconnect and clear the history
  \clear           clear the chat history
  \sql             show the last generated SQL
  \csv <file>      export the last result as CSV
  \help            show this help
  \quit            exit`

var commands = []string{`\schema`, `\status`, `\connect`, `\disconnect`, `\clear`, `\sql`, `\csv`, `\help`, `\quit`}

// Session handles input lines against a backend and writes replies to out.
type Session struct {
	backend Backend
	out     io.Writer
}

// NewSession creates a session writing to out.
func NewSession(backend Backend, out io.Writer) *Session {
	return &Session{backend: backend, out: out}
}

// Handle processes one input line. It reports false when the user asked
// to quit.
func (s *Session) Handle(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}
	if trimmed == "exit" || trimmed == "quit" {
		return false
	}
	if !strings.HasPrefix(trimmed, `\`) {
		s.ask(ctx, trimmed)
		return true
	}

	cmd, arg, _ := strings.Cut(trimmed, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case `\q`, `\quit`:
		return false
	case `\h`, `\help`, `\?`:
		s.println(helpText)
	case `\schema`, `\d`:
		s.schema(ctx)
	case `\status`:
		if s.backend.Status(ctx) == database.Connected {
			s.printf("connected to %s\n", s.backend.Target())
		} else {
			s.println("disconnected")
		}
	case `\connect`:
		if err := s.backend.Connect(ctx); err != nil {
			s.println(app.Explain(err))
			return true
		}
		s.printf("Connected to %s.\n", s.backend.Target())
	case `\disconnect`:
		if err := s.backend.Disconnect(); err != nil {
			s.println(app.Explain(err))
			return true
		}
		s.println("Disconnected.")
	case `\clear`:
		s.backend.ClearHistory()
		s.println("History cleared.")
	case `\sql`:
		if sql, ok := s.backend.LastSQL(); ok {
			s.println(sql)
		} else {
			s.println("No SQL generated yet.")
		}
	case `\csv`:
		s.exportCSV(arg)
	default:
		s.printf("Unknown command %s. Type \\help for the list.\n", cmd)
	}
	return true
}

func (s *Session) ask(ctx context.Context, question string) {
	turn, err := s.backend.Ask(ctx, question)
	if turn == nil {
		s.println(app.Explain(err))
		return
	}
	if turn.SQL != "" {
		s.printf("SQL: %s\n\n", turn.SQL)
	}
	s.println(turn.Answer)
}

func (s *Session) schema(ctx context.Context) {
	desc, err := s.backend.Describe(ctx)
	if err != nil {
		s.println(app.Explain(err))
		return
	}
	s.printf("Database: %s\n%s\n", desc.Database, desc.Text())
}

func (s *Session) exportCSV(path string) {
	if path == "" {
		s.println(`Usage: \csv <file>`)
		return
	}
	f, err := os.Create(path)
	if err != nil {
		s.printf("Export failed: %v\n", err)
		return
	}
	if err := s.backend.ExportLastResult(f); err != nil {
		f.Close()
		os.Remove(path)
		s.printf("Export failed: %v\n", err)
		return
	}
	if err := f.Close(); err != nil {
		s.printf("Export failed: %v\n", err)
		return
	}
	s.printf("Exported to %s.\n", path)
}

func (s *Session) println(msg string) {
	fmt.Fprintln(s.out, msg)
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// Config holds the readline settings.
type Config struct {
	HistoryFile string
}

// Run reads lines until \quit, EOF or an interrupt on an empty line.
// The session connects first; a failed connect is reported and the
// prompt still opens so the user can \connect again.
func Run(ctx context.Context, backend Backend, cfg Config) error {
	items := make([]readline.PrefixCompleterInterface, len(commands))
	for i, c := range commands {
		items[i] = readline.PcItem(c)
	}

	l, err := readline.NewEx(&readline.Config{
		Prompt:          "chatwithdb> ",
		HistoryFile:     cfg.HistoryFile,
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("start readline: %w", err)
	}
	defer l.Close()

	session := NewSession(backend, l.Stdout())
	session.println("Welcome to ChatWithDB. Type \\help for commands.")
	session.Handle(ctx, `\connect`)

	for {
		line, err := l.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read line: %w", err)
		}
		if !session.Handle(ctx, line) {
			return nil
		}
	}
}
