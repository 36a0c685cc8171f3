package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anmolpansara/ChatWithDB/internal/database"
	"github.com/anmolpansara/ChatWithDB/internal/llm"
	"github.com/anmolpansara/ChatWithDB/internal/observability"
)

// State is a step of a question's life cycle.
type State string

const (
	StateIdle               State = "idle"
	StatePromptBuilt        State = "prompt_built"
	StateAwaitingCompletion State = "awaiting_completion"
	StateSQLExtracted       State = "sql_extracted"
	StateExecuted           State = "executed"
	StateAnswered           State = "answered"
	StateErrored            State = "errored"
)

// Turn is one question and everything produced while answering it.
type Turn struct {
	ID         string
	Question   string
	States     []State
	Prompt     string
	Completion string
	SQL        string
	Result     *database.QueryResult
	Err        error
	Answer     string
	Started    time.Time
	Duration   time.Duration
}

// State returns the last state the turn reached.
func (t *Turn) State() State {
	if len(t.States) == 0 {
		return StateIdle
	}
	return t.States[len(t.States)-1]
}

// OrchestratorConfig holds the model parameters and presentation limits.
type OrchestratorConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
	LLMTimeout  time.Duration
	PreviewRows int
	RowLimit    int
}

// Orchestrator answers questions: schema, prompt, completion, SQL, result.
// One question is answered at a time.
type Orchestrator struct {
	conn         *ConnectionManager
	introspector *SchemaIntrospector
	executor     *Executor
	completer    llm.Completer
	cfg          OrchestratorConfig
	redactor     *Redactor
	logger       *slog.Logger
	metrics      *observability.Metrics

	busy sync.Mutex
}

func NewOrchestrator(
	conn *ConnectionManager,
	introspector *SchemaIntrospector,
	executor *Executor,
	completer llm.Completer,
	cfg OrchestratorConfig,
	redactor *Redactor,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Orchestrator {
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 30 * time.Second
	}
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = 20
	}
	if cfg.RowLimit <= 0 {
		cfg.RowLimit = 1000
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		conn:         conn,
		introspector: introspector,
		executor:     executor,
		completer:    completer,
		cfg:          cfg,
		redactor:     redactor,
		logger:       logger,
		metrics:      metrics,
	}
}

// Ask answers question. The returned turn is always complete: on failure
// its Answer holds a user-safe explanation and Err the cause, which is also
// returned. A call made while another is running fails with ErrBusy and
// returns no turn.
func (o *Orchestrator) Ask(ctx context.Context, question string) (*Turn, error) {
	if !o.busy.TryLock() {
		return nil, ErrBusy
	}
	defer o.busy.Unlock()

	t := &Turn{
		ID:       uuid.NewString(),
		Question: strings.TrimSpace(question),
		States:   []State{StateIdle},
		Started:  time.Now(),
	}
	ctx = observability.ContextWithTurnID(ctx, t.ID)
	o.logger.InfoContext(ctx, "turn_started", slog.String("turn_id", t.ID))

	if err := o.run(ctx, t); err != nil {
		t.Err = err
		t.Answer = o.redactor.Redact(Explain(err))
		o.advance(ctx, t, StateErrored)
		o.metrics.ObserveTurn(outcome(err))
	} else {
		o.metrics.ObserveTurn("answered")
	}
	t.Duration = time.Since(t.Started)
	o.logger.InfoContext(ctx, "turn_finished",
		slog.String("turn_id", t.ID),
		slog.String("state", string(t.State())),
		slog.Duration("duration", t.Duration),
	)
	return t, t.Err
}

func (o *Orchestrator) run(ctx context.Context, t *Turn) error {
	if t.Question == "" {
		return ErrEmptyQuestion
	}

	desc, err := o.describe(ctx)
	if err != nil {
		return err
	}

	t.Prompt, err = BuildPrompt(PromptData{
		Database:       o.conn.DatabaseName(),
		Schema:         desc.Text(),
		Question:       t.Question,
		AllowMutations: o.executor.AllowsMutations(),
		RowLimit:       o.cfg.RowLimit,
	})
	if err != nil {
		return err
	}
	o.advance(ctx, t, StatePromptBuilt)

	o.advance(ctx, t, StateAwaitingCompletion)
	t.Completion, err = o.complete(ctx, t.Prompt)
	if err != nil {
		return err
	}

	t.SQL, err = ExtractSQL(t.Completion)
	if err != nil {
		return err
	}
	o.advance(ctx, t, StateSQLExtracted)

	t.Result, err = o.execute(ctx, t.SQL)
	if err != nil {
		return err
	}
	o.advance(ctx, t, StateExecuted)

	t.Answer = FormatAnswer(t.Result, o.cfg.PreviewRows)
	o.advance(ctx, t, StateAnswered)
	return nil
}

func (o *Orchestrator) describe(ctx context.Context) (*database.SchemaDescription, error) {
	desc, err := o.introspector.Describe(ctx)
	var connErr *ErrConnection
	if errors.As(err, &connErr) && connErr.Reason == ReasonConnectionLost {
		if o.reconnect(ctx) == nil {
			return o.introspector.Describe(ctx)
		}
	}
	return desc, err
}

// complete calls the model under the LLM timeout. It returns when the
// deadline passes even if the completer ignores its context.
func (o *Orchestrator) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.LLMTimeout)
	defer cancel()

	type reply struct {
		resp llm.Response
		err  error
	}
	done := make(chan reply, 1)
	start := time.Now()
	go func() {
		resp, err := o.completer.Complete(ctx, llm.Request{
			Prompt:      prompt,
			Model:       o.cfg.Model,
			MaxTokens:   o.cfg.MaxTokens,
			Temperature: o.cfg.Temperature,
		})
		done <- reply{resp, err}
	}()

	var r reply
	select {
	case r = <-done:
	case <-ctx.Done():
		r.err = ctx.Err()
	}
	o.metrics.ObserveLLMRequest(time.Since(start))

	if r.err != nil {
		return "", o.completionError(ctx, r.err)
	}
	return r.resp.Text, nil
}

// completionError classifies a failed request by the error it returned, not
// by the state of ctx: a reply that lands just before the deadline keeps
// its own cause.
func (o *Orchestrator) completionError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ErrTimeout{Stage: "language model request", After: o.cfg.LLMTimeout}
	}
	o.logger.WarnContext(ctx, "completion_failed", slog.String("error", o.redactor.Redact(err.Error())))
	return &ErrCompletion{Cause: err}
}

// execute runs sqlText, recovering the handle after a lost connection or a
// timeout. A statement is retried once after a reconnect, and only when
// the policy keeps it read-only.
func (o *Orchestrator) execute(ctx context.Context, sqlText string) (*database.QueryResult, error) {
	result, err := o.executor.Execute(ctx, sqlText)
	kind, ok := database.KindOf(err)
	if !ok {
		return result, err
	}

	switch kind {
	case database.KindConnectionLost:
		if o.reconnect(ctx) != nil || o.executor.AllowsMutations() {
			return nil, err
		}
		return o.executor.Execute(ctx, sqlText)
	case database.KindTimeout:
		// The server may still be running the statement; start clean.
		_ = o.reconnect(ctx)
	}
	return nil, err
}

func (o *Orchestrator) reconnect(ctx context.Context) error {
	o.metrics.ObserveReconnect()
	err := o.conn.Reconnect(ctx)
	if err != nil {
		o.logger.WarnContext(ctx, "reconnect_failed", slog.String("turn_id", observability.TurnIDFromContext(ctx)))
	} else {
		o.logger.InfoContext(ctx, "reconnected", slog.String("turn_id", observability.TurnIDFromContext(ctx)))
	}
	return err
}

func (o *Orchestrator) advance(ctx context.Context, t *Turn, s State) {
	t.States = append(t.States, s)
	o.logger.DebugContext(ctx, "turn_state",
		slog.String("turn_id", t.ID),
		slog.String("state", string(s)),
	)
}

func outcome(err error) string {
	var extractErr *ErrExtraction
	var timeoutErr *ErrTimeout
	switch {
	case errors.As(err, &extractErr) && extractErr.Refusal:
		return "refused"
	case errors.As(err, &extractErr):
		return "extraction_error"
	case errors.As(err, &timeoutErr):
		return "llm_timeout"
	}
	if kind, ok := database.KindOf(err); ok {
		return kind.String()
	}
	return "errored"
}
