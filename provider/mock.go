package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ZaguanLabs/transflow"
)

// MockProvider is a scriptable provider for testing. It records calls,
// optionally delays, and fails according to a per-call error script before
// returning canned translations.
type MockProvider struct {
	mu           sync.Mutex
	translations map[string]string
	errScript    []error // Popped per Translate call; nil means success
	callCount    int
	lastRequest  *Request

	// NameValue overrides the provider name (default "mock").
	NameValue string
	// Delay is applied to every Translate call, for concurrency tests.
	Delay time.Duration
	// Detected is returned by DetectLanguage and used to resolve
	// AutoDetect requests (default "en").
	Detected Detection
	// Supported is returned by SupportedLanguages.
	Supported []string
}

// NewMockProvider creates a mock with default translations.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		translations: map[string]string{
			"Hello":       "Hola",
			"World":       "Mundo",
			"Hello World": "Hola Mundo",
			"Good night":  "Buenas noches",
		},
		Detected:  Detection{Language: "en", Confidence: 0.99},
		Supported: []string{"en", "es", "fr", "de", "ja", "zh"},
	}
}

func (m *MockProvider) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}

// SetTranslation adds or replaces a canned translation.
func (m *MockProvider) SetTranslation(text, translated string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.translations[text] = translated
}

// FailWith appends errors to the call script: each Translate call pops the
// next entry and fails with it when non-nil.
func (m *MockProvider) FailWith(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errScript = append(m.errScript, errs...)
}

// Translate returns canned translations, honoring the error script.
func (m *MockProvider) Translate(ctx context.Context, req Request) (Result, error) {
	m.mu.Lock()
	m.callCount++
	reqCopy := req
	m.lastRequest = &reqCopy

	var scripted error
	if len(m.errScript) > 0 {
		scripted = m.errScript[0]
		m.errScript = m.errScript[1:]
	}
	translated, ok := m.translations[req.Text]
	detected := m.Detected.Language
	delay := m.Delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(delay):
		}
	}

	if scripted != nil {
		return Result{}, scripted
	}

	if !ok {
		// Bracketed text marks unknown inputs so tests can spot them.
		translated = fmt.Sprintf("[%s]", req.Text)
	}

	source := req.SourceLang
	if source == transflow.AutoDetect {
		source = detected
	}

	return Result{Text: translated, SourceLang: source}, nil
}

// DetectLanguage returns the configured detection.
func (m *MockProvider) DetectLanguage(_ context.Context, _ string) (Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Detected, nil
}

// SupportedLanguages returns the configured set.
func (m *MockProvider) SupportedLanguages(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Supported...), nil
}

// CallCount reports how many Translate calls were issued.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastRequest returns the most recent Translate request.
func (m *MockProvider) LastRequest() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

// Reset clears counters, the last request and the error script.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastRequest = nil
	m.errScript = nil
}

// Verify MockProvider implements Provider
var _ Provider = (*MockProvider)(nil)
