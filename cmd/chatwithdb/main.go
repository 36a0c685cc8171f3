package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/anmolpansara/ChatWithDB/internal/app"
	"github.com/anmolpansara/ChatWithDB/internal/config"
	"github.com/anmolpansara/ChatWithDB/internal/database/postgres"
	"github.com/anmolpansara/ChatWithDB/internal/llm"
	"github.com/anmolpansara/ChatWithDB/internal/observability"
	"github.com/anmolpansara/ChatWithDB/internal/repl"
	"github.com/anmolpansara/ChatWithDB/internal/sqlguard"
	"github.com/anmolpansara/ChatWithDB/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "config file (default ~/.chatwithdb/config.yaml)")
	plain := flag.Bool("plain", false, "use the line-oriented prompt instead of the full-screen UI")
	remember := flag.Bool("remember-password", false, "store the configured database password in the OS keyring")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	flag.Parse()

	overrides := map[string]any{}
	if *metricsAddr != "" {
		overrides["metrics.addr"] = *metricsAddr
	}

	cfg, err := config.Load(config.Options{File: *configPath, Overrides: overrides})
	if err != nil {
		fmt.Fprintln(os.Stderr, app.Explain(&app.ErrConfig{Cause: err}))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := cfg.ResolvePassword(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, app.Explain(&app.ErrConfig{Cause: err}))
		os.Exit(2)
	}
	if *remember {
		if err := cfg.RememberPassword(); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "Password stored in the OS keyring.")
	}

	logFile, err := observability.OpenLogFile(cfg.Log.File)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logFile, *plain); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logFile *os.File, plain bool) error {
	logger := observability.NewLogger(cfg.Log, uuid.NewString(), logFile)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	if cfg.Metrics.Addr != "" {
		observability.Serve(ctx, cfg.Metrics.Addr, registry, logger)
	}

	// Set up dependencies
	conn := app.NewConnectionManager(postgres.New(), cfg.ConnectionConfig(), logger)
	introspector := app.NewSchemaIntrospector(conn, logger)

	policy := sqlguard.DefaultPolicy()
	policy.AllowMutations = cfg.Policy.AllowMutations
	executor := app.NewExecutor(conn, app.ExecutorConfig{
		Policy:           policy,
		RowLimit:         cfg.Policy.RowLimit,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger, metrics)

	client, err := llm.NewClient(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		return fmt.Errorf("create llm client: %w", err)
	}

	orchestrator := app.NewOrchestrator(conn, introspector, executor, client, app.OrchestratorConfig{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		LLMTimeout:  cfg.LLM.Timeout,
		PreviewRows: cfg.UI.PreviewRows,
		RowLimit:    cfg.Policy.RowLimit,
	}, app.NewRedactor(cfg.Secrets()...), logger, metrics)

	service := app.NewService(conn, introspector, orchestrator)
	defer func() {
		// Graceful cleanup
		_ = service.Disconnect()
		logger.Info("session_finished")
	}()

	logger.Info("session_started",
		slog.String("target", service.Target()),
		slog.Bool("plain", plain),
		slog.Bool("allow_mutations", policy.AllowMutations),
	)

	if plain {
		historyFile := ""
		if dir, err := config.Dir(); err == nil {
			historyFile = filepath.Join(dir, "history")
		}
		return repl.Run(ctx, service, repl.Config{HistoryFile: historyFile})
	}

	p := tea.NewProgram(tui.NewModel(service, tui.Options{}),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
