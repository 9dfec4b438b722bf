package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultOpenAIBaseURL    = "https://api.openai.com"
	DefaultOpenAIModel      = "gpt-4o-mini"
	DefaultOpenAIEmbedModel = "text-embedding-3-small"
)

type OpenAIOptions struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbedModel     string
	RequestTimeout time.Duration
}

type openAIBackend struct {
	apiKey     string
	baseURL    string
	model      string
	embedModel string
	timeout    time.Duration
}

func newOpenAIBackend(opts OpenAIOptions) *openAIBackend {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL += "/v1"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultOpenAIModel
	}
	embedModel := strings.TrimSpace(opts.EmbedModel)
	if embedModel == "" {
		embedModel = DefaultOpenAIEmbedModel
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return &openAIBackend{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		embedModel: embedModel,
		timeout:    timeout,
	}
}

func (b *openAIBackend) Name() string { return ProviderOpenAI }

func (b *openAIBackend) headers() map[string]string {
	if b.apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + b.apiKey}
}

func (b *openAIBackend) Ready(ctx context.Context) error {
	if b.apiKey == "" {
		return fmt.Errorf("openai api key is not configured")
	}
	if err := requestJSON(ctx, b.timeout, http.MethodGet, b.baseURL+"/models", b.headers(), nil, nil); err != nil {
		return fmt.Errorf("openai readiness probe: %w", err)
	}
	return nil
}

type openAIEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (b *openAIBackend) Embed(ctx context.Context, text string) ([]float64, error) {
	payload := openAIEmbedRequest{Model: b.embedModel, Input: text}

	var parsed openAIEmbedResponse
	if err := requestJSON(ctx, b.timeout, http.MethodPost, b.baseURL+"/embeddings", b.headers(), payload, &parsed); err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("openai embedding: response missing data")
	}
	return parsed.Data[0].Embedding, nil
}

type openAIChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (b *openAIBackend) Chat(ctx context.Context, messages []Message, temperature float64) (string, error) {
	payload := openAIChatRequest{Model: b.model, Messages: messages, Temperature: temperature}

	var parsed openAIChatResponse
	if err := requestJSON(ctx, b.timeout, http.MethodPost, b.baseURL+"/chat/completions", b.headers(), payload, &parsed); err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai chat: response missing choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
