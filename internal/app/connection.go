package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anmolpansara/ChatWithDB/internal/database"
)

const statusProbeTimeout = 2 * time.Second

// ConnectionManager owns the single connection handle. Every use of the
// handle holds mu, so statements, schema reads, pings and reconnects never
// overlap on the one server session.
type ConnectionManager struct {
	driver database.Driver
	cfg    database.ConnectionConfig
	logger *slog.Logger

	mu        sync.Mutex
	connected atomic.Bool
}

// NewConnectionManager creates a manager for driver. Nothing is opened yet.
func NewConnectionManager(driver database.Driver, cfg database.ConnectionConfig, logger *slog.Logger) *ConnectionManager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ConnectionManager{driver: driver, cfg: cfg, logger: logger}
}

// Connect opens the handle, replacing any existing one.
func (m *ConnectionManager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked(ctx)
}

func (m *ConnectionManager) connectLocked(ctx context.Context) error {
	if m.connected.Load() {
		_ = m.driver.Close()
		m.connected.Store(false)
	}

	start := time.Now()
	if err := m.driver.Connect(ctx, m.cfg); err != nil {
		reason := database.ReasonUnreachable
		var ce *database.ConnectError
		if errors.As(err, &ce) {
			reason = ce.Reason
		}
		m.logger.Warn("connect_failed",
			slog.String("target", m.cfg.String()),
			slog.String("reason", string(reason)),
		)
		return &ErrConnection{Reason: reason, Cause: err}
	}
	m.connected.Store(true)
	m.logger.Info("connected",
		slog.String("target", m.cfg.String()),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// Disconnect releases the handle. Calling it without a handle is a no-op.
func (m *ConnectionManager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnectLocked()
}

func (m *ConnectionManager) disconnectLocked() error {
	if !m.connected.Load() {
		return nil
	}
	m.connected.Store(false)
	err := m.driver.Close()
	m.logger.Info("disconnected", slog.String("target", m.cfg.String()))
	return err
}

// Reconnect closes the handle, ignoring close errors, and opens a new one.
func (m *ConnectionManager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = m.disconnectLocked()
	return m.connectLocked(ctx)
}

// Status probes the server with a round trip. A handle that fails the probe
// reports Disconnected even though it has not been closed. A handle busy
// with a statement is reported Connected without a ping.
func (m *ConnectionManager) Status(ctx context.Context) database.Status {
	if !m.connected.Load() {
		return database.Disconnected
	}
	if !m.mu.TryLock() {
		return database.Connected
	}
	defer m.mu.Unlock()
	if !m.connected.Load() {
		return database.Disconnected
	}

	ctx, cancel := context.WithTimeout(ctx, statusProbeTimeout)
	defer cancel()
	if err := m.driver.Ping(ctx); err != nil {
		m.logger.Debug("status_probe_failed", slog.String("error", err.Error()))
		return database.Disconnected
	}
	return database.Connected
}

// Target is the redacted connection target, e.g. app@db:5432/shop.
func (m *ConnectionManager) Target() string {
	return m.cfg.String()
}

// DatabaseName returns the configured database name.
func (m *ConnectionManager) DatabaseName() string {
	return m.cfg.Database
}

func (m *ConnectionManager) describe(ctx context.Context) (*database.SchemaDescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected.Load() {
		return nil, database.ErrNotConnected
	}
	return m.driver.Describe(ctx)
}

func (m *ConnectionManager) query(ctx context.Context, sqlText string, opts database.QueryOptions) (*database.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected.Load() {
		return nil, &database.QueryError{
			Kind:    database.KindConnectionLost,
			SQL:     sqlText,
			Message: "not connected",
			Cause:   database.ErrNotConnected,
		}
	}
	return m.driver.Query(ctx, sqlText, opts)
}
