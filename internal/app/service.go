package app

import (
	"context"
	"errors"
	"io"

	"github.com/anmolpansara/ChatWithDB/internal/database"
)

// Service coordinates application-level operations between the user
// surfaces and the core: one connection, one orchestrator, one history.
type Service struct {
	conn         *ConnectionManager
	introspector *SchemaIntrospector
	orchestrator *Orchestrator
	history      History
}

// NewService creates a new application service.
func NewService(conn *ConnectionManager, introspector *SchemaIntrospector, orchestrator *Orchestrator) *Service {
	return &Service{conn: conn, introspector: introspector, orchestrator: orchestrator}
}

// Connect establishes the database connection.
func (s *Service) Connect(ctx context.Context) error {
	return s.conn.Connect(ctx)
}

// Disconnect closes the database connection and clears the chat history.
func (s *Service) Disconnect() error {
	s.history.Clear()
	return s.conn.Disconnect()
}

// Status probes the connection.
func (s *Service) Status(ctx context.Context) database.Status {
	return s.conn.Status(ctx)
}

// Describe returns the current schema for the schema viewer.
func (s *Service) Describe(ctx context.Context) (*database.SchemaDescription, error) {
	return s.introspector.Describe(ctx)
}

// Ask answers question and records the turn. ErrBusy turns are not recorded.
func (s *Service) Ask(ctx context.Context, question string) (*Turn, error) {
	t, err := s.orchestrator.Ask(ctx, question)
	if errors.Is(err, ErrBusy) || errors.Is(err, ErrEmptyQuestion) {
		return t, err
	}
	s.history.Append(t)
	return t, err
}

// Turns returns the chat history, oldest first.
func (s *Service) Turns() []*Turn {
	return s.history.Turns()
}

// ClearHistory empties the chat history and keeps the connection.
func (s *Service) ClearHistory() {
	s.history.Clear()
}

// LastSQL returns the SQL of the most recent turn that produced one.
func (s *Service) LastSQL() (string, bool) {
	t, ok := s.history.LastWithSQL()
	if !ok {
		return "", false
	}
	return t.SQL, true
}

// ExportLastResult writes the most recent tabular result as CSV.
func (s *Service) ExportLastResult(w io.Writer) error {
	t, ok := s.history.LastResult()
	if !ok {
		return errors.New("no result to export yet")
	}
	return WriteCSV(w, t.Result)
}

// Target returns the redacted connection target.
func (s *Service) Target() string {
	return s.conn.Target()
}

// DatabaseName returns the current database name.
func (s *Service) DatabaseName() string {
	return s.conn.DatabaseName()
}
