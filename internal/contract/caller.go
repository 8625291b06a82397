// Package contract wraps every generation call in a fixed protocol: one
// instruction message built from an intent template, exactly one retry on
// failure, and optional JSON decoding of the reply.
package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fyrsmithlabs/autodev/internal/llm"
	"github.com/fyrsmithlabs/autodev/internal/logging"
	"github.com/fyrsmithlabs/autodev/internal/progress"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	// ErrFatalCall is returned when both attempts of a call fail.
	ErrFatalCall = errors.New("generation call failed after retry")

	// ErrFatalDecode is returned when a reply cannot be decoded into the
	// requested type. Decode failures are never retried.
	ErrFatalDecode = errors.New("generation response could not be decoded")
)

const maxAttempts = 2

const instruction = "INSTRUCTION: You are a function printer. You ONLY print results of functions. " +
	"Nothing else, no commentary. Here is the input of the function: %s."

// Request is one contract invocation.
type Request struct {
	Agent  string // position of the calling agent, used for progress messages
	Intent Intent
	Input  string
}

// Caller issues contract invocations against a Generator.
type Caller struct {
	gen      llm.Generator
	logger   *logging.Logger
	tracer   trace.Tracer
	progress progress.Callback
}

// Option configures a Caller.
type Option func(*Caller)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Caller) { c.logger = l }
}

// WithTracer sets the tracer used for "contract.invoke" spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Caller) { c.tracer = t }
}

// WithProgress sets the callback that receives an AI-call event per invocation.
func WithProgress(cb progress.Callback) Option {
	return func(c *Caller) { c.progress = cb }
}

// NewCaller creates a Caller.
func NewCaller(gen llm.Generator, opts ...Option) *Caller {
	c := &Caller{gen: gen}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer("autodev/contract")
	}
	return c
}

// BuildMessage composes the single system message sent for an intent.
func BuildMessage(intent Intent, input string) llm.Message {
	return llm.Message{
		Role:    llm.RoleSystem,
		Content: "FUNCTION " + intent.Template() + "\n" + fmt.Sprintf(instruction, input),
	}
}

// Invoke sends the intent's message and returns the raw reply. A failed
// attempt is retried once with the identical message unless ctx is done.
func (c *Caller) Invoke(ctx context.Context, req Request) (string, error) {
	if !req.Intent.Valid() {
		return "", fmt.Errorf("%w: unknown intent %d", ErrFatalCall, int(req.Intent))
	}

	ctx, span := c.tracer.Start(ctx, "contract.invoke",
		trace.WithAttributes(
			attribute.String("contract.intent", req.Intent.String()),
			attribute.String("agent.position", req.Agent),
		),
	)
	defer span.End()

	intent := req.Intent.String()
	start := time.Now()
	defer func() { CallDuration.WithLabelValues(intent).Observe(time.Since(start).Seconds()) }()

	c.progress.Report(progress.KindAICall, req.Agent, intent)

	messages := []llm.Message{BuildMessage(req.Intent, req.Input)}
	c.logger.Trace(ctx, "contract request", zap.String("intent", intent), zap.String("message", messages[0].Content))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if ctx.Err() != nil {
				break
			}
			RetriesTotal.WithLabelValues(intent).Inc()
			c.logger.Warn(ctx, "retrying generation call",
				zap.String("intent", intent),
				zap.Error(lastErr),
			)
		}

		text, err := c.gen.Generate(ctx, messages)
		if err == nil {
			outcome := "success"
			if attempt > 1 {
				outcome = "retried_success"
			}
			CallsTotal.WithLabelValues(intent, outcome).Inc()
			span.SetAttributes(attribute.Int("contract.attempts", attempt))
			return text, nil
		}
		lastErr = err
	}

	CallsTotal.WithLabelValues(intent, "fatal").Inc()
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "generation call failed")

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("%w: %s: %w (%v)", ErrFatalCall, intent, ctxErr, lastErr)
	}
	c.logger.Error(ctx, "generation call failed after retry",
		zap.String("intent", intent),
		zap.Error(lastErr),
	)
	return "", fmt.Errorf("%w: %s: %w", ErrFatalCall, intent, lastErr)
}

// InvokeDecoded invokes the contract and decodes the extracted JSON into T.
func InvokeDecoded[T any](ctx context.Context, c *Caller, req Request) (T, error) {
	var out T

	text, err := c.Invoke(ctx, req)
	if err != nil {
		return out, err
	}

	if err := decodePayload(ExtractJSON(text), &out); err != nil {
		DecodeFailuresTotal.WithLabelValues(req.Intent.String()).Inc()
		c.logger.Warn(ctx, "generation response does not match expected structure",
			zap.String("intent", req.Intent.String()),
			zap.String("response", text),
			zap.Error(err),
		)
		return out, fmt.Errorf("%w: %s: %w", ErrFatalDecode, req.Intent, err)
	}
	return out, nil
}

// decodePayload decodes exactly one JSON value. Unknown object keys and a
// top-level null are rejected.
func decodePayload(payload string, v any) error {
	if strings.TrimSpace(payload) == "null" {
		return errors.New("unexpected null")
	}
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}
