package transflow

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig holds configuration for retry behavior against a single
// provider. The budget resets for every provider in the fallback chain.
type RetryConfig struct {
	MaxRetries     int           // Retry attempts after the first call
	BaseDelay      time.Duration // Initial delay between retries
	MaxDelay       time.Duration // Cap on the backoff delay
	Jitter         float64       // Extra random delay as a fraction of the backoff (0..1)
	AttemptTimeout time.Duration // Per-attempt deadline; 0 disables it
}

// DefaultRetryConfig returns sensible defaults for retry behavior.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		BaseDelay:      1 * time.Second,
		MaxDelay:       30 * time.Second,
		Jitter:         0.2,
		AttemptTimeout: 30 * time.Second,
	}
}

// backoffDelay computes the delay before retry number attempt (0-based):
// exponential doubling from BaseDelay, capped at MaxDelay, plus random
// jitter so herds of retries spread out.
func backoffDelay(cfg RetryConfig, attempt int, rnd func() float64) time.Duration {
	delay := cfg.BaseDelay << uint(attempt)
	if delay <= 0 || delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	if cfg.Jitter > 0 {
		delay += time.Duration(rnd() * cfg.Jitter * float64(delay))
	}
	return delay
}

// Executor wraps an ordered provider chain with retry and fallback.
// Transient failures are retried with exponential backoff; permanent and
// unsupported-language failures advance to the next provider immediately.
// When every provider is exhausted the call fails with a
// ProvidersExhaustedError naming each provider's final failure.
type Executor struct {
	providers []Provider
	cfg       RetryConfig
	logger    Logger
}

// NewExecutor creates an executor over an ordered provider chain. The first
// provider is the primary; the rest are fallbacks in order.
func NewExecutor(providers []Provider, cfg RetryConfig, logger Logger) *Executor {
	if logger == nil {
		logger = NopLogger{}
	}
	return &Executor{providers: providers, cfg: cfg, logger: logger}
}

// Execute runs the request against the provider chain and tags the result
// with the name of the provider that produced it.
func (e *Executor) Execute(ctx context.Context, req Request) (Result, error) {
	preq := ProviderRequest{
		Text:       NormalizeText(req.Text),
		SourceLang: NormalizeLang(req.SourceLang),
		TargetLang: NormalizeLang(req.TargetLang),
		Options:    req.Options,
	}

	var failures []ProviderFailure
	for _, p := range e.providers {
		res, attempts, err := e.tryProvider(ctx, p, preq)
		if err == nil {
			return Result{
				Text:       res.Text,
				SourceLang: resolvedSource(res.SourceLang, preq.SourceLang),
				TargetLang: preq.TargetLang,
				Provider:   p.Name(),
			}, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		failures = append(failures, ProviderFailure{Provider: p.Name(), Attempts: attempts, Err: err})
		e.logger.Warn("provider failed, trying next", Fields{
			"provider": p.Name(),
			"attempts": attempts,
			"error":    err.Error(),
		})
	}

	return Result{}, &ProvidersExhaustedError{Failures: failures}
}

// tryProvider runs one provider with the full retry budget. It returns the
// number of calls actually issued alongside the final outcome.
func (e *Executor) tryProvider(ctx context.Context, p Provider, req ProviderRequest) (ProviderResult, int, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return ProviderResult{}, attempts, lastErr
			}
			return ProviderResult{}, attempts, err
		}

		attempts++
		res, err := e.attempt(ctx, p, req)
		if err == nil {
			return res, attempts, nil
		}
		lastErr = err

		if classify(err) != KindTransient {
			return ProviderResult{}, attempts, err
		}

		if attempt < e.cfg.MaxRetries {
			delay := backoffDelay(e.cfg, attempt, rand.Float64)
			e.logger.Debug("transient provider error, backing off", Fields{
				"provider": p.Name(),
				"attempt":  attempts,
				"delay":    delay.String(),
			})
			select {
			case <-ctx.Done():
				return ProviderResult{}, attempts, lastErr
			case <-time.After(delay):
			}
		}
	}

	return ProviderResult{}, attempts, lastErr
}

// attempt issues one provider call under the per-attempt timeout. A timeout
// surfaces as a transient ProviderError so it is eligible for retry.
func (e *Executor) attempt(ctx context.Context, p Provider, req ProviderRequest) (ProviderResult, error) {
	if e.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.AttemptTimeout)
		defer cancel()
	}

	res, err := p.Translate(ctx, req)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		return ProviderResult{}, &ProviderError{
			Provider: p.Name(),
			Kind:     KindTransient,
			Message:  "attempt timed out",
			Cause:    err,
		}
	}
	return res, err
}

// resolvedSource picks the provider-resolved source language, falling back
// to the requested one. The result is never AutoDetect unless the provider
// could not resolve an auto request at all.
func resolvedSource(resolved, requested string) string {
	if resolved != "" && resolved != AutoDetect {
		return NormalizeLang(resolved)
	}
	return requested
}
