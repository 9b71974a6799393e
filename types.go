package transflow

import (
	"context"
	"time"
)

// AutoDetect is the sentinel source language requesting provider-side
// language detection.
const AutoDetect = "auto"

// Formality controls the register a provider should translate into.
// Providers that do not support formality ignore it; it still contributes
// to the cache key.
type Formality string

const (
	FormalityDefault Formality = ""
	FormalityMore    Formality = "more"
	FormalityLess    Formality = "less"
)

// Options is the closed set of translation options that influence the
// result and therefore the cache key. Unknown options do not exist by
// construction; invalid values are rejected by DeriveKey.
type Options struct {
	Formality          Formality // Desired register (provider-dependent)
	Domain             string    // Subject domain hint (e.g., "legal", "medical")
	PreserveFormatting bool      // Keep line breaks and spacing verbatim
}

// Request is a single translation request. Immutable once submitted.
type Request struct {
	Text       string  // Text to translate
	SourceLang string  // ISO 639-1 code or AutoDetect
	TargetLang string  // ISO 639-1 code
	Options    Options // Translation options
}

// Result is the outcome of translating one Request.
type Result struct {
	Text       string // Translated text
	SourceLang string // Resolved source language, never AutoDetect
	TargetLang string // Target language
	Cached     bool   // True when served from the cache store
	Provider   string // Name of the provider that produced the text
	Err        error  // Per-item failure; set only in batch result slots
}

// ProviderRequest is the narrowed request handed to a Provider.
type ProviderRequest struct {
	Text       string
	SourceLang string // May be AutoDetect; the provider resolves it
	TargetLang string
	Options    Options
}

// ProviderResult is what a Provider returns on success.
type ProviderResult struct {
	Text       string
	SourceLang string // Resolved source language
}

// Detection is the outcome of provider-side language detection.
type Detection struct {
	Language   string  // ISO 639-1 code
	Confidence float64 // 0 when the provider reports none
}

// Provider is the interface for external translation backends.
// Implementations classify their failures via ProviderError kinds.
type Provider interface {
	// Name identifies the provider in results and aggregate errors.
	Name() string

	// Translate translates a single text. When req.SourceLang is
	// AutoDetect the provider resolves the actual language and reports it
	// in ProviderResult.SourceLang.
	Translate(ctx context.Context, req ProviderRequest) (ProviderResult, error)

	// DetectLanguage identifies the language of a text.
	DetectLanguage(ctx context.Context, text string) (Detection, error)

	// SupportedLanguages lists the ISO 639-1 codes the provider accepts.
	SupportedLanguages(ctx context.Context) ([]string, error)
}

// CacheEntry is one cached translation as stored by a cache backend.
// Backends own these records; callers only read them.
type CacheEntry struct {
	Key            Key       // Derived request fingerprint
	Value          string    // Translated text
	SourceLang     string    // Resolved source language (never AutoDetect)
	TargetLang     string    // Target language
	CreatedAt      time.Time // Write time
	ExpiresAt      time.Time // CreatedAt + TTL; zero means no expiry
	LastAccessedAt time.Time // Last read time
	SizeBytes      int64     // Size of Value in bytes
}

// Expired reports whether the entry is logically absent at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Cache is the read/write surface the Translator needs from a cache
// backend. The full backend contract (eviction, clearing, stats) lives in
// the cache package; all backends there satisfy this interface.
//
// Implementations must be safe for concurrent use and write-through: Set
// does not return until the value is durably recorded.
type Cache interface {
	// Get returns (entry, true, nil) on a live hit and (nil, false, nil) on
	// a miss. Expired entries are treated as misses and removed. A non-nil
	// error means the backend itself failed.
	Get(ctx context.Context, key Key) (*CacheEntry, bool, error)

	// Set stores entry under key with the given TTL. A non-positive ttl
	// uses the backend's configured default; if that is also zero the entry
	// never expires. The backend stamps CreatedAt, ExpiresAt,
	// LastAccessedAt and SizeBytes.
	Set(ctx context.Context, key Key, entry CacheEntry, ttl time.Duration) error
}
