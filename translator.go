package transflow

import (
	"context"
	"time"
)

// Translator is the single-item orchestrator. It composes key derivation,
// the cache store, in-flight coalescing and the retry/fallback executor.
//
// A Translator is safe for concurrent use. The cache store and coalescer
// are injected (or created once per Translator) and shared by every call,
// including batches scheduled on top of it.
type Translator struct {
	providers []Provider
	cache     Cache
	coalescer *Coalescer
	retry     RetryConfig
	ttl       time.Duration
	logger    Logger

	exec *Executor
}

// TranslatorOption is a functional option for configuring the Translator.
type TranslatorOption func(*Translator)

// WithCache sets the cache store. Without it every call is a pass-through
// translation.
func WithCache(cache Cache) TranslatorOption {
	return func(t *Translator) {
		t.cache = cache
	}
}

// WithCacheTTL sets the TTL passed to the store on writes. Zero defers to
// the store's configured default.
func WithCacheTTL(ttl time.Duration) TranslatorOption {
	return func(t *Translator) {
		t.ttl = ttl
	}
}

// WithFallbacks appends fallback providers tried in order after the
// primary exhausts its retry budget or fails permanently.
func WithFallbacks(providers ...Provider) TranslatorOption {
	return func(t *Translator) {
		t.providers = append(t.providers, providers...)
	}
}

// WithRetryConfig sets the retry/backoff policy.
func WithRetryConfig(cfg RetryConfig) TranslatorOption {
	return func(t *Translator) {
		t.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) TranslatorOption {
	return func(t *Translator) {
		t.logger = logger
	}
}

// WithCoalescer shares an in-flight registry across translators. Rarely
// needed: a Translator and its batch schedulers already share one.
func WithCoalescer(c *Coalescer) TranslatorOption {
	return func(t *Translator) {
		t.coalescer = c
	}
}

// NewTranslator creates a Translator with the given primary provider.
func NewTranslator(primary Provider, opts ...TranslatorOption) *Translator {
	t := &Translator{
		providers: []Provider{primary},
		coalescer: NewCoalescer(),
		retry:     DefaultRetryConfig(),
		logger:    NopLogger{},
	}

	for _, opt := range opts {
		opt(t)
	}

	t.exec = NewExecutor(t.providers, t.retry, t.logger)
	return t
}

// Translate translates one request through the cache: a hit returns
// immediately with Cached=true and no provider call; a miss goes through
// the in-flight coalescer so concurrent misses for the same key share one
// provider call, and the owner writes the result back on success.
func (t *Translator) Translate(ctx context.Context, req Request) (Result, error) {
	return t.translate(ctx, req, true)
}

// TranslateUncached bypasses the cache entirely: no read, no write, no
// coalescing. Every call reaches the provider chain.
func (t *Translator) TranslateUncached(ctx context.Context, req Request) (Result, error) {
	return t.translate(ctx, req, false)
}

func (t *Translator) translate(ctx context.Context, req Request, useCache bool) (Result, error) {
	if NormalizeText(req.Text) == "" {
		return Result{
			SourceLang: NormalizeLang(req.SourceLang),
			TargetLang: NormalizeLang(req.TargetLang),
			Provider:   t.providers[0].Name(),
		}, nil
	}

	if src := NormalizeLang(req.SourceLang); src != AutoDetect && !ValidateLang(src) {
		return Result{}, &UnsupportedLanguageError{Language: req.SourceLang}
	}
	if tgt := NormalizeLang(req.TargetLang); tgt == AutoDetect || !ValidateLang(tgt) {
		return Result{}, &UnsupportedLanguageError{Language: req.TargetLang}
	}

	if !useCache || t.cache == nil {
		return t.exec.Execute(ctx, req)
	}

	key, err := DeriveKey(req)
	if err != nil {
		return Result{}, err
	}

	ent, ok, err := t.cache.Get(ctx, key)
	if err != nil {
		// Backend failure degrades to a pass-through translation; the
		// request must not fail because the cache did.
		t.logger.Warn("cache get failed, bypassing cache", Fields{
			"key":   key.String(),
			"error": err.Error(),
		})
		return t.exec.Execute(ctx, req)
	}
	if ok {
		return Result{
			Text:       ent.Value,
			SourceLang: ent.SourceLang,
			TargetLang: ent.TargetLang,
			Cached:     true,
			Provider:   t.providers[0].Name(),
		}, nil
	}

	res, _, err := t.coalescer.Do(ctx, key, func() (Result, error) {
		res, err := t.exec.Execute(ctx, req)
		if err != nil {
			return Result{}, err
		}
		// Only successes are cached; a set failure is logged and the
		// result returned anyway.
		ent := CacheEntry{
			Key:        key,
			Value:      res.Text,
			SourceLang: res.SourceLang,
			TargetLang: res.TargetLang,
		}
		if err := t.cache.Set(ctx, key, ent, t.ttl); err != nil {
			t.logger.Warn("cache set failed", Fields{
				"key":   key.String(),
				"error": err.Error(),
			})
		}
		return res, nil
	})
	if err != nil {
		return Result{}, err
	}

	// Observers share the value, not cache-derived metadata: nobody in the
	// coalesced group read the store.
	res.Cached = false
	return res, nil
}

// DetectLanguage identifies the language of a text via the primary
// provider.
func (t *Translator) DetectLanguage(ctx context.Context, text string) (Detection, error) {
	return t.providers[0].DetectLanguage(ctx, text)
}

// ProviderLanguages lists the languages supported by the primary provider.
func (t *Translator) ProviderLanguages(ctx context.Context) ([]string, error) {
	return t.providers[0].SupportedLanguages(ctx)
}

// Cache returns the configured cache store, if any.
func (t *Translator) Cache() Cache {
	return t.cache
}

// Providers returns the ordered provider chain.
func (t *Translator) Providers() []Provider {
	return t.providers
}
