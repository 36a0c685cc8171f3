package app

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anmolpansara/ChatWithDB/internal/database"
	"github.com/anmolpansara/ChatWithDB/internal/sqlguard"
)

func TestDisconnectIsIdempotent(t *testing.T) {
	driver := newFakeDriver()
	conn := NewConnectionManager(driver, testConn, nil)

	assert.NoError(t, conn.Disconnect())
	assert.NoError(t, conn.Disconnect())
	assert.Zero(t, driver.closes)

	require.NoError(t, conn.Connect(context.Background()))
	assert.NoError(t, conn.Disconnect())
	assert.NoError(t, conn.Disconnect())
	assert.Equal(t, 1, driver.closes)
}

func TestConnectFailureKeepsReason(t *testing.T) {
	driver := newFakeDriver()
	driver.connectErr = &database.ConnectError{Reason: database.ReasonAuth, Cause: errors.New("password authentication failed")}
	conn := NewConnectionManager(driver, testConn, nil)

	err := conn.Connect(context.Background())

	var connErr *ErrConnection
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, database.ReasonAuth, connErr.Reason)
	assert.Equal(t, database.Disconnected, conn.Status(context.Background()))
}

func TestConnectReplacesHandle(t *testing.T) {
	driver := newFakeDriver()
	conn := NewConnectionManager(driver, testConn, nil)

	require.NoError(t, conn.Connect(context.Background()))
	require.NoError(t, conn.Connect(context.Background()))

	assert.Equal(t, 2, driver.connects)
	assert.Equal(t, 1, driver.closes)
}

func TestStatusPingsServer(t *testing.T) {
	driver := newFakeDriver()
	conn := NewConnectionManager(driver, testConn, nil)
	assert.Equal(t, database.Disconnected, conn.Status(context.Background()))

	require.NoError(t, conn.Connect(context.Background()))
	assert.Equal(t, database.Connected, conn.Status(context.Background()))

	driver.pingErr = io.EOF
	assert.Equal(t, database.Disconnected, conn.Status(context.Background()))

	driver.pingErr = nil
	require.NoError(t, conn.Disconnect())
	assert.Equal(t, database.Disconnected, conn.Status(context.Background()))
}

func TestStatusDoesNotPingBusyHandle(t *testing.T) {
	driver := newFakeDriver()
	started := make(chan struct{})
	release := make(chan struct{})
	driver.queryFn = func(_ context.Context, _ int, sql string) (*database.QueryResult, error) {
		close(started)
		<-release
		return &database.QueryResult{SQL: sql}, nil
	}
	conn := NewConnectionManager(driver, testConn, nil)
	require.NoError(t, conn.Connect(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := conn.query(context.Background(), "SELECT pg_sleep(1)", database.QueryOptions{ReadOnly: true})
		done <- err
	}()
	<-started

	assert.Equal(t, database.Connected, conn.Status(context.Background()))
	assert.Zero(t, driver.pingCount())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, database.Connected, conn.Status(context.Background()))
	assert.Equal(t, 1, driver.pingCount())
}

func TestReconnect(t *testing.T) {
	driver := newFakeDriver()
	conn := NewConnectionManager(driver, testConn, nil)
	require.NoError(t, conn.Connect(context.Background()))

	require.NoError(t, conn.Reconnect(context.Background()))

	assert.Equal(t, 2, driver.connects)
	assert.Equal(t, 1, driver.closes)
	assert.Equal(t, database.Connected, conn.Status(context.Background()))
}

func TestTargetIsRedacted(t *testing.T) {
	conn := NewConnectionManager(newFakeDriver(), testConn, nil)

	assert.Equal(t, "app@db.internal:5432/shop", conn.Target())
	assert.NotContains(t, conn.Target(), "hunter2")
}

func TestIntrospectorDescribeIsStable(t *testing.T) {
	h := newHarness(t, newFakeDriver(), replyWith(""))
	introspector := NewSchemaIntrospector(h.conn, nil)

	first, err := introspector.Describe(context.Background())
	require.NoError(t, err)
	second, err := introspector.Describe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Text(), second.Text())
}

func TestIntrospectorLostConnection(t *testing.T) {
	driver := newFakeDriver()
	driver.describeErr = &database.QueryError{Kind: database.KindConnectionLost}
	h := newHarness(t, driver, replyWith(""))

	_, err := NewSchemaIntrospector(h.conn, nil).Describe(context.Background())

	var connErr *ErrConnection
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, ReasonConnectionLost, connErr.Reason)
}

func TestExecutorReadOnlyByDefault(t *testing.T) {
	h := newHarness(t, newFakeDriver(), replyWith(""))

	_, err := h.executor.Execute(context.Background(), "SELECT 1;")
	require.NoError(t, err)

	require.Len(t, h.driver.queries, 1)
	assert.Equal(t, "SELECT 1", h.driver.queries[0].sql)
	assert.True(t, h.driver.queries[0].opts.ReadOnly)
	assert.Equal(t, 1000, h.driver.queries[0].opts.MaxRows)
}

func TestExecutorDenylist(t *testing.T) {
	for _, stmt := range []string{
		"DROP TABLE orders",
		"delete from orders",
		"TRUNCATE orders",
		"ALTER TABLE orders ADD COLUMN x int",
		"UPDATE orders SET total = 0",
		"  /* sneaky */ INSERT INTO orders VALUES (1, 2)",
	} {
		t.Run(stmt, func(t *testing.T) {
			h := newHarness(t, newFakeDriver(), replyWith(""))

			_, err := h.executor.Execute(context.Background(), stmt)

			kind, ok := database.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, database.KindPolicyViolation, kind)
			assert.Zero(t, h.driver.queryCount())
		})
	}
}

func TestExecutorAllowsMutationsWhenConfigured(t *testing.T) {
	h := newHarness(t, newFakeDriver(), replyWith(""), allowMutations())

	_, err := h.executor.Execute(context.Background(), "DELETE FROM orders WHERE id = 1")
	require.NoError(t, err)

	require.Len(t, h.driver.queries, 1)
	assert.False(t, h.driver.queries[0].opts.ReadOnly)
}

func TestExecutorAppliesStatementTimeout(t *testing.T) {
	driver := newFakeDriver()
	driver.queryFn = func(ctx context.Context, _ int, sql string) (*database.QueryResult, error) {
		<-ctx.Done()
		return nil, &database.QueryError{Kind: database.KindTimeout, SQL: sql, Cause: ctx.Err()}
	}
	conn := NewConnectionManager(driver, testConn, nil)
	require.NoError(t, conn.Connect(context.Background()))
	executor := NewExecutor(conn, ExecutorConfig{Policy: sqlguard.DefaultPolicy(), StatementTimeout: 20 * time.Millisecond}, nil, nil)

	start := time.Now()
	_, err := executor.Execute(context.Background(), "SELECT pg_sleep(10)")

	kind, _ := database.KindOf(err)
	assert.Equal(t, database.KindTimeout, kind)
	assert.Less(t, time.Since(start), time.Second)
}
