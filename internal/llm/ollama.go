package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultOllamaBaseURL    = "http://localhost:11434"
	DefaultOllamaModel      = "llama3.1"
	DefaultOllamaEmbedModel = "nomic-embed-text"
)

type OllamaOptions struct {
	BaseURL        string
	Model          string
	EmbedModel     string
	RequestTimeout time.Duration
}

type ollamaBackend struct {
	baseURL    string
	model      string
	embedModel string
	timeout    time.Duration
}

func newOllamaBackend(opts OllamaOptions) *ollamaBackend {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultOllamaModel
	}
	embedModel := strings.TrimSpace(opts.EmbedModel)
	if embedModel == "" {
		embedModel = DefaultOllamaEmbedModel
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return &ollamaBackend{
		baseURL:    baseURL,
		model:      model,
		embedModel: embedModel,
		timeout:    timeout,
	}
}

func (b *ollamaBackend) Name() string { return ProviderOllama }

func (b *ollamaBackend) Ready(ctx context.Context) error {
	if err := requestJSON(ctx, b.timeout, http.MethodGet, b.baseURL+"/api/tags", nil, nil, nil); err != nil {
		return fmt.Errorf("ollama readiness probe: %w", err)
	}
	return nil
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (b *ollamaBackend) Embed(ctx context.Context, text string) ([]float64, error) {
	payload := ollamaEmbedRequest{Model: b.embedModel, Prompt: text}

	var parsed ollamaEmbedResponse
	if err := requestJSON(ctx, b.timeout, http.MethodPost, b.baseURL+"/api/embeddings", nil, payload, &parsed); err != nil {
		return nil, fmt.Errorf("ollama embedding: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("ollama embedding: response missing embedding")
	}
	return parsed.Embedding, nil
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []Message     `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

func (b *ollamaBackend) Chat(ctx context.Context, messages []Message, temperature float64) (string, error) {
	payload := ollamaChatRequest{
		Model:    b.model,
		Messages: messages,
		Stream:   false,
		Options:  ollamaOptions{Temperature: temperature},
	}

	var parsed ollamaChatResponse
	if err := requestJSON(ctx, b.timeout, http.MethodPost, b.baseURL+"/api/chat", nil, payload, &parsed); err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return parsed.Message.Content, nil
}
