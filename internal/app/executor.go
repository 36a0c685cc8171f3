package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/anmolpansara/ChatWithDB/internal/database"
	"github.com/anmolpansara/ChatWithDB/internal/observability"
	"github.com/anmolpansara/ChatWithDB/internal/sqlguard"
)

// ExecutorConfig bounds what a statement may do and return.
type ExecutorConfig struct {
	Policy           sqlguard.Policy
	RowLimit         int
	StatementTimeout time.Duration
}

// Executor runs exactly one statement per call under the mutation policy.
type Executor struct {
	conn    *ConnectionManager
	cfg     ExecutorConfig
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewExecutor(conn *ConnectionManager, cfg ExecutorConfig, logger *slog.Logger, metrics *observability.Metrics) *Executor {
	if cfg.RowLimit <= 0 {
		cfg.RowLimit = 1000
	}
	if cfg.StatementTimeout <= 0 {
		cfg.StatementTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Executor{conn: conn, cfg: cfg, logger: logger, metrics: metrics}
}

// AllowsMutations reports whether the policy lets writes through.
func (e *Executor) AllowsMutations() bool {
	return e.cfg.Policy.AllowMutations
}

// Execute validates and runs sqlText. Multi-statement text and denied
// statements fail before anything is sent to the server. Every failure is a
// *database.QueryError.
func (e *Executor) Execute(ctx context.Context, sqlText string) (*database.QueryResult, error) {
	stmt, err := e.cfg.Policy.Check(sqlText)
	if err != nil {
		e.observeFailure(ctx, err)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.StatementTimeout)
	defer cancel()

	result, err := e.conn.query(ctx, stmt, database.QueryOptions{
		MaxRows:  e.cfg.RowLimit,
		ReadOnly: !e.cfg.Policy.AllowMutations,
	})
	if err != nil {
		e.observeFailure(ctx, err)
		return nil, err
	}

	e.metrics.ObserveQuery(result.Duration)
	e.logger.InfoContext(ctx, "statement_executed",
		slog.String("turn_id", observability.TurnIDFromContext(ctx)),
		slog.Int("rows", result.RowCount),
		slog.Bool("truncated", result.Truncated),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

func (e *Executor) observeFailure(ctx context.Context, err error) {
	kind, _ := database.KindOf(err)
	e.metrics.ObserveQueryFailure(kind.String())
	e.logger.WarnContext(ctx, "statement_failed",
		slog.String("turn_id", observability.TurnIDFromContext(ctx)),
		slog.String("kind", kind.String()),
	)
}
