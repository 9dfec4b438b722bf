// Package vector is a thin client for a Chroma-compatible similarity index
// over HTTP. The collection is created on first use with cosine distance;
// similarity for callers is 1 - distance.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTopK           = 5
	DefaultRequestTimeout = 30 * time.Second

	apiPrefix = "/api/v1"
)

// DocumentMetadata travels with each stored vector and carries what the
// dedup window filter needs. CreatedAt is unix seconds.
type DocumentMetadata struct {
	Channel   string  `json:"channel"`
	MessageID int64   `json:"message_id"`
	CreatedAt float64 `json:"created_at"`
}

// UnixSeconds converts t to the numeric timestamp shape used in metadata,
// where range filters need a plain number.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UTC().UnixNano()) / float64(time.Second)
}

// Match is one query hit, ordered by ascending distance.
type Match struct {
	ID       string
	Distance float64
}

type Options struct {
	BaseURL        string
	Collection     string
	RequestTimeout time.Duration
}

type Client struct {
	baseURL    string
	collection string
	timeout    time.Duration

	mu           sync.Mutex
	collectionID string
}

func New(opts Options) *Client {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		collection: strings.TrimSpace(opts.Collection),
		timeout:    timeout,
	}
}

// Ready checks the server heartbeat and ensures the collection exists.
func (c *Client) Ready(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("vector client is not initialized")
	}

	if err := c.request(ctx, http.MethodGet, apiPrefix+"/heartbeat", nil, nil); err != nil {
		return fmt.Errorf("chroma heartbeat: %w", err)
	}
	if _, err := c.ensureCollection(ctx); err != nil {
		return err
	}
	return nil
}

type upsertRequest struct {
	IDs        []string           `json:"ids"`
	Embeddings [][]float64        `json:"embeddings"`
	Documents  []string           `json:"documents"`
	Metadatas  []DocumentMetadata `json:"metadatas"`
}

// Upsert stores one document vector. Callers treat a failure as non-fatal:
// a missed write only weakens future dedup.
func (c *Client) Upsert(ctx context.Context, docID string, embedding []float64, document string, metadata DocumentMetadata) error {
	if c == nil {
		return fmt.Errorf("vector client is not initialized")
	}
	if strings.TrimSpace(docID) == "" {
		return fmt.Errorf("doc id is required")
	}
	if len(embedding) == 0 {
		return fmt.Errorf("embedding is required")
	}

	collectionID, err := c.ensureCollection(ctx)
	if err != nil {
		return err
	}

	payload := upsertRequest{
		IDs:        []string{docID},
		Embeddings: [][]float64{embedding},
		Documents:  []string{document},
		Metadatas:  []DocumentMetadata{metadata},
	}
	path := fmt.Sprintf("%s/collections/%s/upsert", apiPrefix, collectionID)
	if err := c.request(ctx, http.MethodPost, path, payload, nil); err != nil {
		return fmt.Errorf("upsert vector %s: %w", docID, err)
	}
	return nil
}

type queryRequest struct {
	QueryEmbeddings [][]float64    `json:"query_embeddings"`
	NResults        int            `json:"n_results"`
	Where           map[string]any `json:"where,omitempty"`
	Include         []string       `json:"include"`
}

type queryResponse struct {
	IDs       [][]string  `json:"ids"`
	Distances [][]float64 `json:"distances"`
}

// QuerySimilar returns up to topK nearest documents created at or after
// since. Callers treat a failure as "no similar found".
func (c *Client) QuerySimilar(ctx context.Context, embedding []float64, since time.Time, topK int) ([]Match, error) {
	if c == nil {
		return nil, fmt.Errorf("vector client is not initialized")
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding is required")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	collectionID, err := c.ensureCollection(ctx)
	if err != nil {
		return nil, err
	}

	sinceTS := UnixSeconds(since)
	payload := queryRequest{
		QueryEmbeddings: [][]float64{embedding},
		NResults:        topK,
		Where: map[string]any{
			"created_at": map[string]any{"$gte": sinceTS},
		},
		Include: []string{"distances", "metadatas", "documents"},
	}

	var parsed queryResponse
	path := fmt.Sprintf("%s/collections/%s/query", apiPrefix, collectionID)
	if err := c.request(ctx, http.MethodPost, path, payload, &parsed); err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}

	if len(parsed.IDs) == 0 || len(parsed.Distances) == 0 {
		return nil, nil
	}
	ids := parsed.IDs[0]
	distances := parsed.Distances[0]
	if len(distances) < len(ids) {
		ids = ids[:len(distances)]
	}

	matches := make([]Match, 0, len(ids))
	for i, id := range ids {
		matches = append(matches, Match{ID: id, Distance: distances[i]})
	}
	return matches, nil
}

type createCollectionRequest struct {
	Name        string         `json:"name"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	GetOrCreate bool           `json:"get_or_create"`
}

type collectionResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *Client) ensureCollection(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.collectionID != "" {
		return c.collectionID, nil
	}
	if c.collection == "" {
		return "", fmt.Errorf("collection name is required")
	}

	payload := createCollectionRequest{
		Name:        c.collection,
		Metadata:    map[string]any{"hnsw:space": "cosine"},
		GetOrCreate: true,
	}

	var parsed collectionResponse
	if err := c.request(ctx, http.MethodPost, apiPrefix+"/collections", payload, &parsed); err != nil {
		return "", fmt.Errorf("get or create collection %s: %w", c.collection, err)
	}
	if strings.TrimSpace(parsed.ID) == "" {
		return "", fmt.Errorf("get or create collection %s: response missing id", c.collection)
	}

	c.collectionID = parsed.ID
	return c.collectionID, nil
}

func (c *Client) request(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
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
