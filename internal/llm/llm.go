// Package llm talks to the embedding and rewrite backend. Two providers are
// supported, openai and ollama; both speak JSON over HTTP. Transient
// failures on Embed and Rewrite are retried per the configured policy,
// readiness probes are not.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	DefaultRequestTimeout = 60 * time.Second

	rewriteTemperature = 0.4
)

// Message is one chat turn sent to the rewrite model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type backend interface {
	Name() string
	Ready(ctx context.Context) error
	Embed(ctx context.Context, text string) ([]float64, error)
	Chat(ctx context.Context, messages []Message, temperature float64) (string, error)
}

type Options struct {
	Provider string
	OpenAI   OpenAIOptions
	Ollama   OllamaOptions
	Retry    RetryPolicy
	Logger   zerolog.Logger
}

// Client wraps the selected provider behind the Embed/Rewrite contract.
type Client struct {
	backend backend
	retry   RetryPolicy
	logger  zerolog.Logger
}

func New(opts Options) (*Client, error) {
	var b backend
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case ProviderOpenAI:
		b = newOpenAIBackend(opts.OpenAI)
	case ProviderOllama:
		b = newOllamaBackend(opts.Ollama)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}

	client := &Client{
		backend: b,
		retry:   opts.Retry.normalized(),
		logger:  opts.Logger,
	}
	if client.retry.OnRetry == nil {
		logger := opts.Logger
		client.retry.OnRetry = func(attempt int, delay time.Duration, err error) {
			logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Dur("retry_in", delay).
				Str("provider", b.Name()).
				Msg("llm call failed, retrying")
		}
	}
	return client, nil
}

func (c *Client) Provider() string {
	if c == nil || c.backend == nil {
		return ""
	}
	return c.backend.Name()
}

// Ready probes the provider once. A failure here is fatal at startup; the
// pipeline must not accept events against a dead backend.
func (c *Client) Ready(ctx context.Context) error {
	if c == nil || c.backend == nil {
		return fmt.Errorf("llm client is not initialized")
	}
	return c.backend.Ready(ctx)
}

func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if c == nil || c.backend == nil {
		return nil, fmt.Errorf("llm client is not initialized")
	}

	var vector []float64
	err := c.retry.Do(ctx, func() error {
		var embedErr error
		vector, embedErr = c.backend.Embed(ctx, text)
		return embedErr
	})
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("embedding response missing vector")
	}
	return vector, nil
}

// Rewrite asks the model to restate text in the tone of the style examples.
// styleProfile is optional; when blank the prompt carries examples only.
func (c *Client) Rewrite(ctx context.Context, text string, styleExamples []string, styleProfile string) (string, error) {
	if c == nil || c.backend == nil {
		return "", fmt.Errorf("llm client is not initialized")
	}

	messages := rewriteMessages(text, styleExamples, styleProfile)

	var content string
	err := c.retry.Do(ctx, func() error {
		var chatErr error
		content, chatErr = c.backend.Chat(ctx, messages, rewriteTemperature)
		return chatErr
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func requestJSON(ctx context.Context, timeout time.Duration, method, endpoint string, headers map[string]string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
