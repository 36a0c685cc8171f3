package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/anmolpansara/ChatWithDB/internal/database"
	"github.com/anmolpansara/ChatWithDB/internal/llm"
	"github.com/anmolpansara/ChatWithDB/internal/observability"
	"github.com/anmolpansara/ChatWithDB/internal/sqlguard"
)

var testConn = database.ConnectionConfig{
	Host:     "db.internal",
	Port:     5432,
	Database: "shop",
	User:     "app",
	Password: "hunter2",
}

var ordersSchema = &database.SchemaDescription{
	Database: "shop",
	Tables: []database.Table{{
		Schema: "public",
		Name:   "orders",
		Kind:   "table",
		Columns: []database.Column{
			{Name: "id", DataType: "integer", OrdinalPos: 1},
			{Name: "total", DataType: "numeric", Nullable: true, OrdinalPos: 2},
		},
	}},
}

type queryCall struct {
	sql  string
	opts database.QueryOptions
}

// fakeDriver is an in-memory database.Driver.
type fakeDriver struct {
	mu sync.Mutex

	connectErr  error
	pingErr     error
	desc        *database.SchemaDescription
	describeErr error
	queryFn     func(ctx context.Context, call int, sql string) (*database.QueryResult, error)

	connected bool
	connects  int
	closes    int
	pings     int
	queries   []queryCall
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{desc: ordersSchema}
}

func (d *fakeDriver) Connect(_ context.Context, _ database.ConnectionConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connects++
	if d.connectErr != nil {
		return d.connectErr
	}
	d.connected = true
	return nil
}

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connected {
		d.closes++
	}
	d.connected = false
	return nil
}

func (d *fakeDriver) Ping(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pings++
	if !d.connected {
		return database.ErrNotConnected
	}
	return d.pingErr
}

func (d *fakeDriver) Describe(context.Context) (*database.SchemaDescription, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.describeErr != nil {
		return nil, d.describeErr
	}
	return d.desc, nil
}

func (d *fakeDriver) Query(ctx context.Context, sql string, opts database.QueryOptions) (*database.QueryResult, error) {
	d.mu.Lock()
	d.queries = append(d.queries, queryCall{sql: sql, opts: opts})
	call := len(d.queries)
	fn := d.queryFn
	d.mu.Unlock()

	if fn == nil {
		return &database.QueryResult{SQL: sql, Columns: []string{"?column?"}, Rows: [][]string{{"1"}}, RowCount: 1}, nil
	}
	return fn(ctx, call, sql)
}

func (d *fakeDriver) DatabaseName() string {
	return "shop"
}

func (d *fakeDriver) queryCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queries)
}

func (d *fakeDriver) pingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pings
}

func (d *fakeDriver) connectCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connects
}

type completerFunc func(ctx context.Context, req llm.Request) (llm.Response, error)

func (f completerFunc) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return f(ctx, req)
}

func replyWith(text string) completerFunc {
	return func(context.Context, llm.Request) (llm.Response, error) {
		return llm.Response{Text: text, Model: "test"}, nil
	}
}

type harness struct {
	driver       *fakeDriver
	conn         *ConnectionManager
	executor     *Executor
	orchestrator *Orchestrator
	service      *Service
	metrics      *observability.Metrics
}

type harnessOption func(*ExecutorConfig, *OrchestratorConfig)

func allowMutations() harnessOption {
	return func(ec *ExecutorConfig, _ *OrchestratorConfig) {
		ec.Policy.AllowMutations = true
	}
}

func llmTimeout(d time.Duration) harnessOption {
	return func(_ *ExecutorConfig, oc *OrchestratorConfig) {
		oc.LLMTimeout = d
	}
}

// newHarness wires the app layer over a fake driver. The connection is
// opened unless the driver is configured to refuse it.
func newHarness(t *testing.T, driver *fakeDriver, completer llm.Completer, opts ...harnessOption) *harness {
	t.Helper()
	ec := ExecutorConfig{Policy: sqlguard.DefaultPolicy(), RowLimit: 1000, StatementTimeout: 5 * time.Second}
	oc := OrchestratorConfig{Model: "test-model", MaxTokens: 512, LLMTimeout: 5 * time.Second, PreviewRows: 20, RowLimit: 1000}
	for _, opt := range opts {
		opt(&ec, &oc)
	}

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	conn := NewConnectionManager(driver, testConn, nil)
	introspector := NewSchemaIntrospector(conn, nil)
	executor := NewExecutor(conn, ec, nil, metrics)
	orchestrator := NewOrchestrator(conn, introspector, executor, completer, oc,
		NewRedactor(testConn.Password, "gsk-secret"), nil, metrics)

	if driver.connectErr == nil {
		require.NoError(t, conn.Connect(context.Background()))
	}
	return &harness{
		driver:       driver,
		conn:         conn,
		executor:     executor,
		orchestrator: orchestrator,
		service:      NewService(conn, introspector, orchestrator),
		metrics:      metrics,
	}
}
