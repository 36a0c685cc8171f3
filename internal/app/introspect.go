package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/anmolpansara/ChatWithDB/internal/database"
)

// SchemaIntrospector describes the tables of the connected database. The
// description is read fresh on every call.
type SchemaIntrospector struct {
	conn   *ConnectionManager
	logger *slog.Logger
}

func NewSchemaIntrospector(conn *ConnectionManager, logger *slog.Logger) *SchemaIntrospector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SchemaIntrospector{conn: conn, logger: logger}
}

// Describe lists user tables and views with their columns. It fails with
// *ErrConnection when there is no usable handle and *ErrIntrospection when
// the catalog cannot be read.
func (s *SchemaIntrospector) Describe(ctx context.Context) (*database.SchemaDescription, error) {
	start := time.Now()
	desc, err := s.conn.describe(ctx)
	if err != nil {
		if errors.Is(err, database.ErrNotConnected) {
			return nil, &ErrConnection{Reason: ReasonNotConnected, Cause: err}
		}
		if kind, ok := database.KindOf(err); ok {
			switch kind {
			case database.KindConnectionLost:
				return nil, &ErrConnection{Reason: ReasonConnectionLost, Cause: err}
			case database.KindTimeout:
				return nil, err
			}
		}
		s.logger.Warn("describe_failed", slog.String("error", err.Error()))
		return nil, &ErrIntrospection{Cause: err}
	}
	s.logger.Debug("described",
		slog.Int("tables", len(desc.Tables)),
		slog.Duration("duration", time.Since(start)),
	)
	return desc, nil
}
