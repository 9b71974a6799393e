package transflow

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerProvider wraps a Provider with a circuit breaker so a provider
// that keeps failing gets taken out of rotation for a cooldown window
// instead of burning the retry budget on every request. An open breaker
// surfaces as a transient error, which the executor treats like any other
// retryable failure before falling back.
type BreakerProvider struct {
	provider Provider
	cb       *gobreaker.CircuitBreaker
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	MaxFailures uint32        // Consecutive failures before the breaker opens (default 5)
	OpenFor     time.Duration // How long the breaker stays open (default 30s)
}

// NewBreakerProvider wraps provider with a circuit breaker.
func NewBreakerProvider(provider Provider, cfg BreakerConfig) *BreakerProvider {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	openFor := cfg.OpenFor
	if openFor <= 0 {
		openFor = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    provider.Name(),
		Timeout: openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	})

	return &BreakerProvider{provider: provider, cb: cb}
}

func (b *BreakerProvider) Name() string {
	return b.provider.Name()
}

// Translate implements Provider through the breaker.
func (b *BreakerProvider) Translate(ctx context.Context, req ProviderRequest) (ProviderResult, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.provider.Translate(ctx, req)
	})
	if err != nil {
		return ProviderResult{}, b.wrapOpen(err)
	}
	return out.(ProviderResult), nil
}

// DetectLanguage implements Provider through the breaker.
func (b *BreakerProvider) DetectLanguage(ctx context.Context, text string) (Detection, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.provider.DetectLanguage(ctx, text)
	})
	if err != nil {
		return Detection{}, b.wrapOpen(err)
	}
	return out.(Detection), nil
}

// SupportedLanguages implements Provider; it bypasses the breaker since the
// supported set is usually static or cached by the provider.
func (b *BreakerProvider) SupportedLanguages(ctx context.Context) ([]string, error) {
	return b.provider.SupportedLanguages(ctx)
}

// State exposes the breaker state for monitoring.
func (b *BreakerProvider) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerProvider) wrapOpen(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &ProviderError{
			Provider: b.provider.Name(),
			Kind:     KindTransient,
			Message:  "circuit breaker open",
			Cause:    err,
		}
	}
	return err
}
