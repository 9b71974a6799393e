package transflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a provider failure for the retry/fallback policy.
type ErrorKind int

const (
	// KindTransient covers network timeouts, rate limits and other failures
	// worth retrying against the same provider.
	KindTransient ErrorKind = iota
	// KindPermanent covers failures retrying cannot fix (bad credentials,
	// malformed request); the executor advances to the next provider.
	KindPermanent
	// KindUnsupported means the provider does not handle the requested
	// language pair; no retry, but fallback providers are still attempted
	// since their supported sets may differ.
	KindUnsupported
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindUnsupported:
		return "unsupported"
	}
	return "unknown"
}

// ProviderError is a classified failure from a translation provider.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %s: %s (%s): %v", e.Provider, e.Message, e.Kind, e.Cause)
	}
	return fmt.Sprintf("provider %s: %s (%s)", e.Provider, e.Message, e.Kind)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// UnsupportedLanguageError indicates a language code that is invalid or not
// handled by a provider.
type UnsupportedLanguageError struct {
	Language string
	Provider string // Empty when rejected before reaching any provider
}

func (e *UnsupportedLanguageError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("language %q is not supported by %s", e.Language, e.Provider)
	}
	return fmt.Sprintf("language %q is not supported", e.Language)
}

// CacheError indicates a cache backend failure. The Translator recovers
// these locally: the call degrades to an uncached translation and the error
// is logged, never surfaced as the primary result.
type CacheError struct {
	Backend string // "memory", "file", "sqlite", "redis"
	Op      string // "get", "set", "clear", ...
	Cause   error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s: %s: %v", e.Backend, e.Op, e.Cause)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// OptionError indicates an invalid translation option value, rejected at
// key derivation instead of being silently hashed.
type OptionError struct {
	Name  string
	Value string
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("invalid option %s=%q", e.Name, e.Value)
}

// ProcessorError indicates a content processing failure (parse error, etc.).
type ProcessorError struct {
	Message     string
	ContentType string
	Cause       error
}

func (e *ProcessorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("processor %s: %s: %v", e.ContentType, e.Message, e.Cause)
	}
	return fmt.Sprintf("processor %s: %s", e.ContentType, e.Message)
}

func (e *ProcessorError) Unwrap() error {
	return e.Cause
}

// ProviderFailure records one provider's final failure inside a
// ProvidersExhaustedError.
type ProviderFailure struct {
	Provider string
	Attempts int
	Err      error
}

// ProvidersExhaustedError aggregates the final failure of every provider in
// the fallback chain.
type ProvidersExhaustedError struct {
	Failures []ProviderFailure
}

func (e *ProvidersExhaustedError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v (after %d attempts)", f.Provider, f.Err, f.Attempts)
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

func (e *ProvidersExhaustedError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// classify maps an error to the kind driving the retry/fallback decision.
// Unclassified errors are treated as permanent so an unknown failure mode
// never loops the retry budget.
func classify(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var ue *UnsupportedLanguageError
	if errors.As(err, &ue) {
		return KindUnsupported
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	return KindPermanent
}
