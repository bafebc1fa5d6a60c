package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/redact"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Gateway is the production Generator. It wraps a Transport with the backoff
// Policy and validates each response. It keeps no state between calls.
type Gateway struct {
	transport Transport
	policy    Policy
	sleep     SleepFunc
	logger    *slog.Logger
}

// GatewayOption customizes a Gateway.
type GatewayOption func(*Gateway)

// WithSleep replaces the wall-clock wait between retries.
func WithSleep(sleep SleepFunc) GatewayOption {
	return func(g *Gateway) {
		g.sleep = sleep
	}
}

// NewGateway creates a Gateway around transport.
func NewGateway(transport Transport, policy Policy, logger *slog.Logger, opts ...GatewayOption) (*Gateway, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: transport cannot be nil", ErrInvalidConfig)
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfig)
	}
	if policy.MaxRetries < 0 || policy.Unit < 0 {
		return nil, fmt.Errorf("%w: invalid backoff policy %+v", ErrInvalidConfig, policy)
	}

	g := &Gateway{
		transport: transport,
		policy:    policy,
		sleep:     sleepContext,
		logger:    logger.With("component", "generation_gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate sends req through the transport, retrying rate limit and
// availability failures with exponential backoff. Fatal failures return after
// the first attempt. When the retry budget runs out the last failure is
// returned wrapped in ErrQuotaExceeded or ErrServiceUnavailable.
func (g *Gateway) Generate(ctx context.Context, req Request) (*Image, error) {
	maxAttempts := g.policy.Attempts()

	for attempt := 1; ; attempt++ {
		g.logger.DebugContext(ctx, "sending generation request",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"model", req.Model,
			"parts", len(req.Parts))

		img, err := g.attempt(ctx, req)
		if err == nil {
			g.logger.InfoContext(ctx, "generation succeeded",
				"attempt", attempt,
				"bytes", len(img.Data))
			return img, nil
		}

		c := classify(err)
		if c == causeFatal {
			g.logger.WarnContext(ctx, "generation failed permanently",
				"attempt", attempt,
				"error", redact.Error(err))
			if errors.Is(err, ErrFatal) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", ErrFatal, err)
		}

		delay, ok := g.policy.Delay(attempt)
		if !ok {
			g.logger.WarnContext(ctx, "maximum retry attempts reached",
				"attempts", attempt,
				"error", redact.Error(err))
			if c == causeQuota {
				return nil, fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
			}
			return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
		}

		g.logger.InfoContext(ctx, "retrying generation after delay",
			"attempt", attempt,
			"delay", delay,
			"error", redact.Error(err))

		if err := g.sleep(ctx, delay); err != nil {
			g.logger.WarnContext(ctx, "generation cancelled during retry delay",
				"attempt", attempt,
				"ctx_err", err)
			return nil, fmt.Errorf("%w: %w", ErrFatal, err)
		}
	}
}

func (g *Gateway) attempt(ctx context.Context, req Request) (*Image, error) {
	resp, err := g.transport.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return ExtractImage(resp)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
