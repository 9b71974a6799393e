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

// GoogleProvider translates through the Google Translate v2 REST API.
type GoogleProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// GoogleConfig holds configuration for the Google provider.
type GoogleConfig struct {
	APIKey   string        // API key
	Endpoint string        // Service URL (default: official v2 endpoint)
	Timeout  time.Duration // HTTP client timeout (default: 30s)
}

// NewGoogleProvider creates a new Google Translate provider.
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://translation.googleapis.com/language/translate/v2"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GoogleProvider{
		apiKey:   cfg.APIKey,
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *GoogleProvider) Name() string {
	return "google"
}

type googleTranslateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage"`
		} `json:"translations"`
	} `json:"data"`
}

func (p *GoogleProvider) Translate(ctx context.Context, req Request) (Result, error) {
	form := url.Values{}
	form.Set("q", req.Text)
	form.Set("target", req.TargetLang)
	form.Set("format", "text")
	if req.SourceLang != transflow.AutoDetect {
		form.Set("source", req.SourceLang)
	}

	var resp googleTranslateResponse
	if err := p.post(ctx, p.endpoint, form, &resp); err != nil {
		return Result{}, err
	}
	if len(resp.Data.Translations) == 0 {
		return Result{}, &transflow.ProviderError{
			Provider: p.Name(),
			Kind:     transflow.KindTransient,
			Message:  "empty response",
		}
	}

	tr := resp.Data.Translations[0]
	source := req.SourceLang
	if tr.DetectedSourceLanguage != "" {
		source = transflow.NormalizeLang(tr.DetectedSourceLanguage)
	}
	return Result{Text: tr.TranslatedText, SourceLang: source}, nil
}

type googleDetectResponse struct {
	Data struct {
		Detections [][]struct {
			Language   string  `json:"language"`
			Confidence float64 `json:"confidence"`
		} `json:"detections"`
	} `json:"data"`
}

func (p *GoogleProvider) DetectLanguage(ctx context.Context, text string) (Detection, error) {
	form := url.Values{}
	form.Set("q", text)

	var resp googleDetectResponse
	if err := p.post(ctx, p.endpoint+"/detect", form, &resp); err != nil {
		return Detection{}, err
	}
	if len(resp.Data.Detections) == 0 || len(resp.Data.Detections[0]) == 0 {
		return Detection{}, &transflow.ProviderError{
			Provider: p.Name(),
			Kind:     transflow.KindTransient,
			Message:  "empty detection response",
		}
	}

	d := resp.Data.Detections[0][0]
	return Detection{
		Language:   transflow.NormalizeLang(d.Language),
		Confidence: d.Confidence,
	}, nil
}

type googleLanguagesResponse struct {
	Data struct {
		Languages []struct {
			Language string `json:"language"`
		} `json:"languages"`
	} `json:"data"`
}

func (p *GoogleProvider) SupportedLanguages(ctx context.Context) ([]string, error) {
	var resp googleLanguagesResponse
	if err := p.post(ctx, p.endpoint+"/languages", url.Values{}, &resp); err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(resp.Data.Languages))
	for _, l := range resp.Data.Languages {
		codes = append(codes, transflow.NormalizeLang(l.Language))
	}
	return codes, nil
}

func (p *GoogleProvider) post(ctx context.Context, endpoint string, form url.Values, out any) error {
	form.Set("key", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return &transflow.ProviderError{
			Provider: p.Name(),
			Kind:     transflow.KindPermanent,
			Message:  "building request",
			Cause:    err,
		}
	}
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

func (p *GoogleProvider) statusError(code int) error {
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
	}

	return &transflow.ProviderError{
		Provider: p.Name(),
		Kind:     kind,
		Message:  msg,
	}
}

// Verify GoogleProvider implements Provider
var _ Provider = (*GoogleProvider)(nil)
