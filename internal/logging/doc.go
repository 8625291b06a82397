// Package logging provides structured logging with OpenTelemetry integration.
//
// The package wraps Zap with:
//   - a Trace level below Debug for prompt and response bodies
//   - writer output (stderr by default) plus an optional OTEL log bridge
//   - context correlation fields (trace_id, run.id, agent.position, request.id)
//   - key and pattern based secret redaction
//   - truncation of oversized string fields
//
// Usage:
//
//	cfg, err := logging.FromAppConfig(appCfg.Logging, appCfg.Telemetry.Enabled)
//	logger, err := logging.NewLogger(cfg, tel.LoggerProvider())
//	defer logger.Sync()
//
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithAgent(ctx, "Solutions Architect")
//	logger.Info(ctx, "agent finished", zap.Duration("duration", d))
package logging
