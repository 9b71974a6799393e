package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ZaguanLabs/transflow"
)

// DeepLProvider translates through a DeepL-style REST endpoint.
type DeepLProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// DeepLConfig holds configuration for the DeepL provider.
type DeepLConfig struct {
	APIKey   string        // Authentication key
	Endpoint string        // API base URL (default: free-tier endpoint)
	Timeout  time.Duration // HTTP client timeout (default: 30s)
}

// NewDeepLProvider creates a new DeepL provider.
func NewDeepLProvider(cfg DeepLConfig) *DeepLProvider {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api-free.deepl.com/v2"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DeepLProvider{
		apiKey:   cfg.APIKey,
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *DeepLProvider) Name() string {
	return "deepl"
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate translates one text. AutoDetect is expressed by omitting the
// source_lang parameter; the detected language comes back in the response.
func (p *DeepLProvider) Translate(ctx context.Context, req Request) (Result, error) {
	form := url.Values{}
	form.Set("text", req.Text)
	form.Set("target_lang", strings.ToUpper(req.TargetLang))
	if req.SourceLang != transflow.AutoDetect {
		form.Set("source_lang", strings.ToUpper(req.SourceLang))
	}
	if req.Options.Formality == transflow.FormalityMore {
		form.Set("formality", "more")
	} else if req.Options.Formality == transflow.FormalityLess {
		form.Set("formality", "less")
	}
	if req.Options.PreserveFormatting {
		form.Set("preserve_formatting", "1")
	}

	var resp deeplResponse
	if err := p.post(ctx, "/translate", form, &resp); err != nil {
		return Result{}, err
	}
	if len(resp.Translations) == 0 {
		return Result{}, &transflow.ProviderError{
			Provider: p.Name(),
			Kind:     transflow.KindTransient,
			Message:  "empty response",
		}
	}

	tr := resp.Translations[0]
	source := transflow.NormalizeLang(tr.DetectedSourceLanguage)
	if source == "" || source == transflow.AutoDetect {
		source = req.SourceLang
	}
	return Result{Text: tr.Text, SourceLang: source}, nil
}

// DetectLanguage detects by translating to English and reading the
// detected source language off the response.
func (p *DeepLProvider) DetectLanguage(ctx context.Context, text string) (Detection, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", "EN")

	var resp deeplResponse
	if err := p.post(ctx, "/translate", form, &resp); err != nil {
		return Detection{}, err
	}
	if len(resp.Translations) == 0 {
		return Detection{}, &transflow.ProviderError{
			Provider: p.Name(),
			Kind:     transflow.KindTransient,
			Message:  "empty response",
		}
	}

	return Detection{
		Language: transflow.NormalizeLang(resp.Translations[0].DetectedSourceLanguage),
	}, nil
}

// SupportedLanguages queries the endpoint's language list, falling back to
// a static set when the call fails.
func (p *DeepLProvider) SupportedLanguages(ctx context.Context) ([]string, error) {
	var langs []struct {
		Language string `json:"language"`
	}
	if err := p.post(ctx, "/languages", url.Values{}, &langs); err != nil {
		return []string{"en", "zh", "ja", "de", "fr", "es", "it", "pt", "ru", "pl"}, nil
	}

	codes := make([]string, 0, len(langs))
	for _, l := range langs {
		codes = append(codes, transflow.NormalizeLang(l.Language))
	}
	return codes, nil
}

func (p *DeepLProvider) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return &transflow.ProviderError{
			Provider: p.Name(),
			Kind:     transflow.KindPermanent,
			Message:  "building request",
			Cause:    err,
		}
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+p.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", transflow.UserAgent())

	resp, err := p.client.Do(req)
	if err != nil {
		return &transflow.ProviderError{
			Provider: p.Name(),
			Kind:     transflow.KindTransient,
			Message:  "request failed",
			Cause:    err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return p.statusError(resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &transflow.ProviderError{
			Provider: p.Name(),
			Kind:     transflow.KindTransient,
			Message:  "decoding response",
			Cause:    err,
		}
	}
	return nil
}

// statusError maps DeepL status codes onto the error taxonomy.
func (p *DeepLProvider) statusError(code int) error {
	kind := transflow.KindPermanent
	msg := fmt.Sprintf("unexpected status %d", code)

	switch {
	case code == http.StatusTooManyRequests:
		kind = transflow.KindTransient
		msg = "rate limited"
	case code >= 500:
		kind = transflow.KindTransient
		msg = "server error"
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		msg = "authentication failed"
	case code == 456:
		msg = "quota exceeded"
	}

	return &transflow.ProviderError{
		Provider: p.Name(),
		Kind:     kind,
		Message:  msg,
	}
}

// Verify DeepLProvider implements Provider
var _ Provider = (*DeepLProvider)(nil)
