// Package gateway wraps a provider with the retry, time ceiling and error
// rendering every AI call in the pipeline goes through.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
	"github.com/tjfontaine/grant-pipeline/internal/core/ports"
)

const (
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3

	// DefaultCeiling bounds the total wall time of one call, backoff included.
	DefaultCeiling = 5 * time.Minute

	// DefaultMaxOutputTokens is used when the request sets none.
	DefaultMaxOutputTokens = 4096
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Result is the outcome of one gateway call. Text is always displayable:
// the generated artifact on success, otherwise a user-facing explanation.
type Result struct {
	Text     string
	Model    string
	Usage    domain.Usage
	Attempts int
	Waited   time.Duration

	// Err is nil on success. When set, Text carries the message to show.
	Err error
}

// Failed reports whether Text is an explanation rather than an artifact.
func (r Result) Failed() bool { return r.Err != nil }

// Client performs generation calls with bounded retries.
type Client struct {
	provider        ports.Provider
	maxRetries      int
	ceiling         time.Duration
	maxOutputTokens int
	sleep           SleepFunc
	logger          *slog.Logger
	tracer          trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithMaxRetries sets the retry count. Negative values are ignored.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithCeiling sets the total time ceiling. Non-positive values are ignored.
func WithCeiling(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.ceiling = d
		}
	}
}

// WithMaxOutputTokens sets the default output limit.
func WithMaxOutputTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxOutputTokens = n
		}
	}
}

// WithSleep replaces the backoff sleeper.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTracer sets the tracer used for call spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// New creates a Client for the given provider.
func New(p ports.Provider, opts ...Option) *Client {
	c := &Client{
		provider:        p,
		maxRetries:      DefaultMaxRetries,
		ceiling:         DefaultCeiling,
		maxOutputTokens: DefaultMaxOutputTokens,
		sleep:           Sleep,
		logger:          slog.Default(),
		tracer:          otel.Tracer("github.com/tjfontaine/grant-pipeline/internal/gateway"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the name of the wrapped provider.
func (c *Client) Provider() string { return c.provider.Name() }

// Generate runs the request with retries on transient failures. It never
// returns a Go error; failures are reported through Result.Err with a
// displayable Result.Text.
func (c *Client) Generate(ctx context.Context, req domain.GenerateRequest) Result {
	ctx, span := c.tracer.Start(ctx, "ai.generate", trace.WithAttributes(
		attribute.String("ai.provider", c.provider.Name()),
		attribute.Bool("ai.search", req.SearchEnabled),
		attribute.Int("ai.max_retries", c.maxRetries),
	))
	defer span.End()

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, c.ceiling)
	defer cancel()

	if req.MaxOutputTokens <= 0 {
		req.MaxOutputTokens = c.maxOutputTokens
	}

	res := c.run(ctx, parent, &req)

	span.SetAttributes(
		attribute.Int("ai.attempts", res.Attempts),
		attribute.Int("ai.input_tokens", res.Usage.InputTokens),
		attribute.Int("ai.output_tokens", res.Usage.OutputTokens),
		attribute.Int64("ai.waited_ms", res.Waited.Milliseconds()),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	return res
}

func (c *Client) run(ctx, parent context.Context, req *domain.GenerateRequest) Result {
	var res Result
	var lastErr *domain.APIError

	for attempt := 1; attempt <= c.maxRetries+1; attempt++ {
		res.Attempts = attempt

		resp, err := c.provider.Generate(ctx, req)
		if err == nil {
			res.Model = resp.Model
			res.Usage = resp.Usage
			if strings.TrimSpace(resp.Text) == "" {
				c.logger.Warn("ai returned empty response",
					"provider", c.provider.Name(), "attempt", attempt, "stop_reason", resp.StopReason)
				res.Text = MsgNoResponse
				res.Err = ErrEmpty
				return res
			}
			c.logger.Debug("ai call succeeded",
				"provider", c.provider.Name(),
				"attempt", attempt,
				"input_tokens", resp.Usage.InputTokens,
				"output_tokens", resp.Usage.OutputTokens)
			res.Text = resp.Text
			return res
		}

		if ctx.Err() != nil {
			return c.stopped(res, parent)
		}

		apiErr := classify(err)
		lastErr = apiErr
		if !apiErr.Retryable() {
			c.logger.Error("ai call failed", "provider", c.provider.Name(), "attempt", attempt, "error", err)
			res.Text = userMessage(apiErr)
			res.Err = apiErr
			return res
		}
		if attempt > c.maxRetries {
			break
		}

		delay := Backoff(apiErr, attempt)
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
			c.logger.Warn("ai retry would exceed ceiling",
				"provider", c.provider.Name(), "attempt", attempt, "delay", delay)
			res.Text = MsgExhausted
			res.Err = errors.Join(ErrCeiling, apiErr)
			return res
		}

		c.logger.Warn("ai call failed, retrying",
			"provider", c.provider.Name(),
			"attempt", attempt,
			"error_type", apiErr.Type,
			"delay", delay)
		if err := c.sleep(ctx, delay); err != nil {
			return c.stopped(res, parent)
		}
		res.Waited += delay
	}

	c.logger.Error("ai retries exhausted",
		"provider", c.provider.Name(), "attempts", res.Attempts, "error", lastErr)
	res.Text = MsgExhausted
	res.Err = errors.Join(ErrExhausted, lastErr)
	return res
}

// stopped builds the result for a call ended by its context. A cancelled
// caller and a breached ceiling are told apart by the parent context.
func (c *Client) stopped(res Result, parent context.Context) Result {
	if err := parent.Err(); err != nil {
		c.logger.Info("ai call cancelled", "provider", c.provider.Name(), "attempts", res.Attempts)
		res.Text = MsgCancelled
		res.Err = err
		return res
	}
	c.logger.Error("ai call exceeded ceiling", "provider", c.provider.Name(), "attempts", res.Attempts)
	res.Text = MsgExhausted
	res.Err = ErrCeiling
	return res
}
