package main

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/autodev/internal/agent"
	"github.com/fyrsmithlabs/autodev/internal/artifacts"
	"github.com/fyrsmithlabs/autodev/internal/buildcheck"
	"github.com/fyrsmithlabs/autodev/internal/config"
	"github.com/fyrsmithlabs/autodev/internal/llm"
	"github.com/fyrsmithlabs/autodev/internal/logging"
	"github.com/fyrsmithlabs/autodev/internal/orchestrator"
	"github.com/fyrsmithlabs/autodev/internal/probe"
	"github.com/fyrsmithlabs/autodev/internal/progress"
	"github.com/fyrsmithlabs/autodev/internal/telemetry"
	"go.uber.org/zap"
)

// app holds everything a command needs to start runs.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	store     artifacts.Store
	pipeline  *orchestrator.Pipeline
}

// newApp loads configuration and wires the pipeline:
//  1. config (file + env)
//  2. telemetry, then logging (the OTEL bridge needs the provider)
//  3. generation client
//  4. artifact store, build checker, URL prober
//  5. orchestrator pipeline
func newApp(ctx context.Context, events progress.Callback) (*app, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry, version))
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	logCfg, err := logging.FromAppConfig(cfg.Logging, cfg.Telemetry.Enabled)
	if err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	client, err := llm.NewClient(llm.FromAppConfig(cfg.LLM), llm.WithLogger(logger.Named("llm")))
	if err != nil {
		return nil, fmt.Errorf("creating generation client: %w", err)
	}

	store, err := artifacts.New(cfg.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("creating artifact store: %w", err)
	}
	if objects, ok := store.(*artifacts.ObjectStore); ok {
		if err := objects.EnsureBucket(ctx); err != nil {
			return nil, err
		}
	}

	checker, err := buildcheck.New(cfg.Pipeline.Check)
	if err != nil {
		return nil, fmt.Errorf("creating build checker: %w", err)
	}

	deps := orchestrator.Dependencies{
		Generator: client,
		Template:  artifacts.FileTemplate{Path: cfg.Artifacts.TemplatePath},
		Store:     store,
		Prober:    probe.NewHTTPProber(nil, cfg.Probe.Timeout.Duration()),
		Checker:   checker,
		Backend: agent.BackendSettings{
			MaxBugAttempts: cfg.Pipeline.MaxBugAttempts,
			SkipImprove:    cfg.Pipeline.SkipImprove,
		},
		Logger:   logger,
		Tracer:   tel.Tracer("autodev"),
		Progress: progress.Tee(events, logEvents(logger)),
	}

	logger.Debug(ctx, "pipeline configured",
		zap.String("model", cfg.LLM.Model),
		logging.Secret("api_key", cfg.LLM.APIKey),
		zap.String("artifacts", store.Location()),
		zap.Bool("build_check", cfg.Pipeline.Check.Enabled),
		zap.Int("max_bug_attempts", cfg.Pipeline.MaxBugAttempts),
	)

	return &app{
		cfg:       cfg,
		logger:    logger,
		telemetry: tel,
		store:     store,
		pipeline:  orchestrator.NewPipeline(deps, orchestrator.WithContinueOnError(cfg.Pipeline.ContinueOnError)),
	}, nil
}

// close flushes telemetry and logs.
func (a *app) close(ctx context.Context) {
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// logEvents mirrors agent messages into the structured log.
func logEvents(logger *logging.Logger) progress.Callback {
	return func(e progress.Event) {
		logger.Debug(context.Background(), "agent message",
			zap.String("kind", string(e.Kind)),
			zap.String("agent.position", e.Position),
			zap.String("statement", e.Statement),
		)
	}
}
