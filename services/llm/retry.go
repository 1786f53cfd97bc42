package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Retrying retries failed calls with exponential backoff. With zero retries
// it is a pass-through and every failure is returned as is.
type Retrying struct {
	next     LLMClient
	retries  uint
	interval time.Duration
	logger   *slog.Logger
}

// NewRetrying wraps next. interval is the first backoff delay.
func NewRetrying(next LLMClient, retries uint, interval time.Duration, logger *slog.Logger) *Retrying {
	if interval <= 0 {
		interval = backoff.DefaultInitialInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{next: next, retries: retries, interval: interval, logger: logger}
}

// Generate implements LLMClient.
func (r *Retrying) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if r.retries == 0 {
		return r.next.Generate(ctx, prompt, params)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.interval

	attempt := 0
	return backoff.Retry(ctx, func() (string, error) {
		attempt++
		out, err := r.next.Generate(ctx, prompt, params)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrNoProvider) {
			return "", backoff.Permanent(err)
		}
		return "", err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.retries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			recordRetry(ctx)
			r.logger.Warn("llm call failed, retrying",
				slog.String("model", params.Model),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", next),
				slog.String("error", err.Error()))
		}),
	)
}
