package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ZaguanLabs/transflow"
)

// OpenAIProvider translates through OpenAI's chat completion API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string  // OpenAI API key
	Model       string  // Model to use (default: "gpt-4o-mini")
	Temperature float32 // Temperature for generation (default: 0.3)
	BaseURL     string  // Custom base URL (optional)
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Translate translates one text. An AutoDetect source is resolved with a
// detection round-trip first so the result always carries a concrete
// source language.
func (p *OpenAIProvider) Translate(ctx context.Context, req Request) (Result, error) {
	source := req.SourceLang
	if source == transflow.AutoDetect {
		det, err := p.DetectLanguage(ctx, req.Text)
		if err != nil {
			return Result{}, err
		}
		source = det.Language
	}

	prompt := fmt.Sprintf(
		"Translate the following text from %s to %s. Only return the translation, no explanations",
		transflow.GetLanguageName(source), transflow.GetLanguageName(req.TargetLang))
	if req.Options.Formality == transflow.FormalityMore {
		prompt += ", using a formal register"
	} else if req.Options.Formality == transflow.FormalityLess {
		prompt += ", using an informal register"
	}
	if req.Options.Domain != "" {
		prompt += fmt.Sprintf(". The text is from the %s domain", req.Options.Domain)
	}
	if req.Options.PreserveFormatting {
		prompt += ". Preserve all line breaks and spacing exactly"
	}
	prompt += ":\n\n" + req.Text

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a professional translator."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: p.temperature,
	})
	if err != nil {
		return Result{}, p.wrapError("chat completion failed", err)
	}

	if len(resp.Choices) == 0 {
		return Result{}, &transflow.ProviderError{
			Provider: p.Name(),
			Kind:     transflow.KindTransient,
			Message:  "empty response",
		}
	}

	return Result{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		SourceLang: source,
	}, nil
}

// DetectLanguage asks the model for the ISO 639-1 code of the text.
func (p *OpenAIProvider) DetectLanguage(ctx context.Context, text string) (Detection, error) {
	prompt := "What language is the following text written in? Respond with only the ISO 639-1 language code:\n\n" + text

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return Detection{}, p.wrapError("language detection failed", err)
	}
	if len(resp.Choices) == 0 {
		return Detection{}, &transflow.ProviderError{
			Provider: p.Name(),
			Kind:     transflow.KindTransient,
			Message:  "empty response",
		}
	}

	code := transflow.NormalizeLang(strings.TrimSpace(resp.Choices[0].Message.Content))
	return Detection{Language: code}, nil
}

// SupportedLanguages returns the set this module validates against; the
// model itself has no fixed list.
func (p *OpenAIProvider) SupportedLanguages(_ context.Context) ([]string, error) {
	return transflow.SupportedLanguages(), nil
}

// wrapError classifies OpenAI API failures by status code.
func (p *OpenAIProvider) wrapError(msg string, err error) error {
	kind := transflow.KindTransient

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			kind = transflow.KindPermanent
		case apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500:
			kind = transflow.KindTransient
		case apiErr.HTTPStatusCode >= 400:
			kind = transflow.KindPermanent
		}
	}

	return &transflow.ProviderError{
		Provider: p.Name(),
		Kind:     kind,
		Message:  msg,
		Cause:    err,
	}
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
