// Package main is the entry point for the barrioflow daemon. It wires
// the workflow engine, scheduler, automation manager, and chatbot, and
// serves the operational HTTP endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mcastro2021/barrioflow/internal/action"
	"github.com/mcastro2021/barrioflow/internal/automation"
	"github.com/mcastro2021/barrioflow/internal/chatbot"
	"github.com/mcastro2021/barrioflow/internal/config"
	"github.com/mcastro2021/barrioflow/internal/notify"
	"github.com/mcastro2021/barrioflow/internal/observability"
	"github.com/mcastro2021/barrioflow/internal/repository"
	"github.com/mcastro2021/barrioflow/internal/scheduler"
	"github.com/mcastro2021/barrioflow/internal/transport"
	"github.com/mcastro2021/barrioflow/internal/workflow"
	"github.com/mcastro2021/barrioflow/model"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "barrioflow", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}
	defer func() {
		if err := tracingShutdown(context.Background()); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// Core collaborators.
	repo := repository.NewMemRepo()
	notifier := notify.NewLogNotifier(logger)
	resolver := notify.NewStaticResolver()
	dispatcher := action.NewDispatcher(repo, notifier, resolver, logger)

	engine := workflow.NewEngine(dispatcher, logger, workflow.Options{
		HistoryLimit: cfg.Engine.HistoryLimit,
		ExecTimeout:  cfg.Engine.ExecTimeout,
		Metrics:      metrics,
	})

	mgr := automation.NewManager(engine, logger, metrics)
	if err := automation.RegisterDefaults(engine, mgr); err != nil {
		logger.Error("default automation registration failed", zap.Error(err))
		return 1
	}

	if cfg.Engine.DefinitionsFile != "" {
		defs, err := workflow.LoadDefinitions(cfg.Engine.DefinitionsFile)
		if err != nil {
			logger.Error("workflow definitions load failed", zap.Error(err))
			return 1
		}
		for _, def := range defs {
			if err := engine.Register(def); err != nil {
				logger.Error("workflow registration failed",
					zap.String("workflow_id", def.ID), zap.Error(err))
				return 1
			}
		}
		logger.Info("workflow definitions loaded",
			zap.String("file", cfg.Engine.DefinitionsFile),
			zap.Int("count", len(defs)))
	}

	// Session mirror.
	mirror, mirrorChecker, poolCloser, err := buildMirror(ctx, cfg.Chatbot.Mirror, logger)
	if err != nil {
		logger.Error("session mirror initialization failed", zap.Error(err))
		return 1
	}
	if poolCloser != nil {
		defer poolCloser()
	}

	// Chatbot.
	machine := chatbot.NewStateMachine(
		chatbot.NewRegistry(),
		chatbot.NewRegexClassifier(),
		engine,
		mgr,
		mirror,
		logger,
		metrics,
		nil,
	)

	// Scheduler with configured jobs and threshold rules. The built-in
	// samplers cover the record-count and error-rate metrics.
	source := scheduler.NewFuncSource()
	scheduler.RegisterDefaultSamplers(source, repo, engine)
	checker := scheduler.NewThresholdChecker(
		source,
		scheduler.NewAlertStore(),
		engine,
		logger,
		metrics,
		scheduler.RulesFromConfig(cfg.Scheduler.Thresholds),
	)
	sched := scheduler.New(engine, checker, logger, model.SystemClock(), metrics, cfg.Scheduler.TickInterval)
	for _, job := range cfg.Scheduler.Jobs {
		if err := sched.Every(job.Interval, job.WorkflowID, nil); err != nil {
			logger.Error("scheduler job registration failed",
				zap.String("workflow_id", job.WorkflowID), zap.Error(err))
			return 1
		}
	}
	go sched.Run(ctx)

	// HTTP API plus operational endpoints.
	readiness := observability.ReadinessChecks{
		WorkflowsRegistered: engine.Registered,
		SessionMirror:       mirrorChecker,
	}

	deps := transport.Dependencies{
		Engine:        engine,
		Automations:   mgr,
		Chatbot:       machine,
		Alerts:        checker,
		Logger:        logger,
		HealthHandler: observability.HandleHealth(),
		ReadyHandler:  observability.HandleReady(readiness),
	}
	if cfg.Observability.Metrics.Enabled {
		deps.MetricsHandler = promhttp.Handler()
		deps.MetricsPath = cfg.Observability.Metrics.Path
	}
	router := transport.NewRouter(deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
		return 1
	}

	logger.Info("shutdown complete")
	return 0
}

// buildMirror constructs the configured session mirror. The Postgres
// DSN is read from the environment variable the config names, never
// from the config file itself.
func buildMirror(ctx context.Context, cfg config.MirrorConfig, logger *zap.Logger) (model.SessionMirror, observability.HealthChecker, func(), error) {
	switch cfg.Driver {
	case "", "none":
		return chatbot.NoopMirror{}, nil, nil, nil
	case "postgres":
		dsn := os.Getenv(cfg.DSNEnv)
		if dsn == "" {
			return nil, nil, nil, fmt.Errorf("mirror driver is postgres but %s is not set", cfg.DSNEnv)
		}
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect session mirror: %w", err)
		}
		mirror, err := chatbot.NewPgMirror(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		logger.Info("postgres session mirror connected")
		return mirror, mirror, pool.Close, nil
	}
	return nil, nil, nil, fmt.Errorf("unsupported mirror driver %q", cfg.Driver)
}
