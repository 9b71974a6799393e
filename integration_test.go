package transflow_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ZaguanLabs/transflow"
	"github.com/ZaguanLabs/transflow/cache"
	"github.com/ZaguanLabs/transflow/processor"
	"github.com/ZaguanLabs/transflow/provider"
)

// Integration tests using all real components

func TestIntegration_BasicTranslation(t *testing.T) {
	p := provider.NewMockProvider()
	c := cache.NewMemory(cache.MemoryConfig{MaxEntries: 100})

	translator := transflow.NewTranslator(p, transflow.WithCache(c))

	result, err := translator.Translate(context.Background(), transflow.Request{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "es",
	})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if result.Text != "Hola" {
		t.Errorf("Expected 'Hola', got: %s", result.Text)
	}
	if result.Cached {
		t.Error("First call should not be cached")
	}
	if result.Provider != "mock" {
		t.Errorf("Expected provider 'mock', got: %s", result.Provider)
	}
}

func TestIntegration_CacheHit(t *testing.T) {
	p := provider.NewMockProvider()
	c := cache.NewMemory(cache.MemoryConfig{MaxEntries: 100})

	translator := transflow.NewTranslator(p, transflow.WithCache(c))

	req := transflow.Request{Text: "Hello", SourceLang: "en", TargetLang: "es"}

	// First call
	result1, err := translator.Translate(context.Background(), req)
	if err != nil {
		t.Fatalf("First call failed: %v", err)
	}
	if result1.Cached {
		t.Error("First call should not be cached")
	}

	// Second call - should use cache
	result2, err := translator.Translate(context.Background(), req)
	if err != nil {
		t.Fatalf("Second call failed: %v", err)
	}
	if !result2.Cached {
		t.Error("Second call should be cached")
	}
	if result2.Text != result1.Text {
		t.Errorf("Expected same text, got %q and %q", result1.Text, result2.Text)
	}

	// Provider should only be called once
	if p.CallCount() != 1 {
		t.Errorf("Provider should be called once, was called %d times", p.CallCount())
	}

	stats, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %d and %d", stats.Hits, stats.Misses)
	}
}

func TestIntegration_FallbackProvider(t *testing.T) {
	primary := provider.NewMockProvider()
	primary.NameValue = "primary"
	primary.FailWith(&transflow.ProviderError{
		Provider: "primary",
		Kind:     transflow.KindPermanent,
		Message:  "service disabled",
	})

	fallback := provider.NewMockProvider()
	fallback.NameValue = "fallback"

	translator := transflow.NewTranslator(primary,
		transflow.WithFallbacks(fallback),
	)

	result, err := translator.Translate(context.Background(), transflow.Request{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "es",
	})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if result.Provider != "fallback" {
		t.Errorf("Expected fallback provider, got: %s", result.Provider)
	}
	if result.Text != "Hola" {
		t.Errorf("Expected 'Hola', got: %s", result.Text)
	}
}

func TestIntegration_AutoDetect(t *testing.T) {
	p := provider.NewMockProvider()
	p.Detected = transflow.Detection{Language: "fr", Confidence: 0.95}
	c := cache.NewMemory(cache.MemoryConfig{MaxEntries: 100})

	translator := transflow.NewTranslator(p, transflow.WithCache(c))

	result, err := translator.Translate(context.Background(), transflow.Request{
		Text:       "Hello",
		SourceLang: transflow.AutoDetect,
		TargetLang: "es",
	})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if result.SourceLang != "fr" {
		t.Errorf("Expected resolved source 'fr', got: %s", result.SourceLang)
	}

	// Same auto request again hits the cache under the same key.
	result2, err := translator.Translate(context.Background(), transflow.Request{
		Text:       "Hello",
		SourceLang: transflow.AutoDetect,
		TargetLang: "es",
	})
	if err != nil {
		t.Fatalf("Second call failed: %v", err)
	}
	if !result2.Cached {
		t.Error("Second auto-detect call should be cached")
	}
	if result2.SourceLang != "fr" {
		t.Errorf("Expected resolved source 'fr' from cache, got: %s", result2.SourceLang)
	}
}

func TestIntegration_Batch(t *testing.T) {
	p := provider.NewMockProvider()
	c := cache.NewMemory(cache.MemoryConfig{MaxEntries: 100})

	translator := transflow.NewTranslator(p, transflow.WithCache(c))
	scheduler := transflow.NewBatchScheduler(translator)

	reqs := []transflow.Request{
		{Text: "Hello", SourceLang: "en", TargetLang: "es"},
		{Text: "World", SourceLang: "en", TargetLang: "es"},
		{Text: "Good night", SourceLang: "en", TargetLang: "es"},
	}

	results := scheduler.TranslateBatch(context.Background(), reqs, transflow.DefaultBatchOptions())

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	expected := []string{"Hola", "Mundo", "Buenas noches"}
	for i, want := range expected {
		if results[i].Err != nil {
			t.Errorf("Result %d failed: %v", i, results[i].Err)
		}
		if results[i].Text != want {
			t.Errorf("Result %d: expected %q, got %q", i, want, results[i].Text)
		}
	}

	// Second pass is served entirely from cache.
	results2 := scheduler.TranslateBatch(context.Background(), reqs, transflow.DefaultBatchOptions())
	for i, r := range results2 {
		if !r.Cached {
			t.Errorf("Result %d: expected cached on second pass", i)
		}
	}
	if p.CallCount() != 3 {
		t.Errorf("Provider should be called 3 times, was called %d times", p.CallCount())
	}
}

func TestIntegration_HTMLDocument(t *testing.T) {
	p := provider.NewMockProvider()
	c := cache.NewMemory(cache.MemoryConfig{MaxEntries: 100})

	translator := transflow.NewTranslator(p, transflow.WithCache(c))
	scheduler := transflow.NewBatchScheduler(translator)
	docs := transflow.NewDocumentTranslator(scheduler, processor.NewHTMLProcessor())

	html := `<html><body><h1>Hello</h1><p>World</p></body></html>`

	result, err := docs.Translate(context.Background(), html, "html", "en", "es", transflow.DefaultBatchOptions())
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if !strings.Contains(result.Content, "Hola") || !strings.Contains(result.Content, "Mundo") {
		t.Errorf("Expected translations in result, got: %s", result.Content)
	}
	if result.TotalNodes != 2 {
		t.Errorf("Expected 2 nodes, got %d", result.TotalNodes)
	}
	if result.TranslatedCount != 2 {
		t.Errorf("Expected 2 translated, got %d", result.TranslatedCount)
	}
}

func TestIntegration_IgnoredTags(t *testing.T) {
	p := provider.NewMockProvider()

	translator := transflow.NewTranslator(p)
	scheduler := transflow.NewBatchScheduler(translator)
	docs := transflow.NewDocumentTranslator(scheduler, processor.NewHTMLProcessor())

	html := `<html><body><p>Hello</p><script>var x = "Hello";</script></body></html>`

	result, err := docs.Translate(context.Background(), html, "html", "en", "es", transflow.DefaultBatchOptions())
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if !strings.Contains(result.Content, `var x = "Hello";`) {
		t.Errorf("Script content should be untouched, got: %s", result.Content)
	}
	if result.TotalNodes != 1 {
		t.Errorf("Expected 1 node, got %d", result.TotalNodes)
	}
}

func TestIntegration_DataNoTranslate(t *testing.T) {
	p := provider.NewMockProvider()

	translator := transflow.NewTranslator(p)
	scheduler := transflow.NewBatchScheduler(translator)
	docs := transflow.NewDocumentTranslator(scheduler, processor.NewHTMLProcessor())

	html := `<html><body><p>Hello</p><p data-no-translate>Hello</p></body></html>`

	result, err := docs.Translate(context.Background(), html, "html", "en", "es", transflow.DefaultBatchOptions())
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if !strings.Contains(result.Content, `<p data-no-translate>Hello</p>`) {
		t.Errorf("Marked element should be untouched, got: %s", result.Content)
	}
}

func TestIntegration_TransientErrorRetried(t *testing.T) {
	p := provider.NewMockProvider()
	p.FailWith(&transflow.ProviderError{
		Provider: "mock",
		Kind:     transflow.KindTransient,
		Message:  "rate limited",
	})

	translator := transflow.NewTranslator(p,
		transflow.WithRetryConfig(transflow.RetryConfig{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
		}),
	)

	result, err := translator.Translate(context.Background(), transflow.Request{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "es",
	})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if result.Text != "Hola" {
		t.Errorf("Expected 'Hola' after retry, got: %s", result.Text)
	}
	if p.CallCount() != 2 {
		t.Errorf("Expected 2 calls, got %d", p.CallCount())
	}
}

func TestIntegration_AllProvidersFail(t *testing.T) {
	p := provider.NewMockProvider()
	p.FailWith(
		&transflow.ProviderError{Provider: "mock", Kind: transflow.KindPermanent, Message: "down"},
	)

	translator := transflow.NewTranslator(p)

	_, err := translator.Translate(context.Background(), transflow.Request{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "es",
	})
	if err == nil {
		t.Fatal("Expected error when the only provider fails")
	}

	var exhausted *transflow.ProvidersExhaustedError
	if !errors.As(err, &exhausted) {
		t.Errorf("Expected ProvidersExhaustedError, got %T", err)
	}
}
