package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// LocalProvider embeds text through an Ollama-compatible endpoint. Ollama's
// /api/embeddings takes one prompt at a time, so batches are sequential
// round-trips.
type LocalProvider struct {
	endpoint string
	model    string
	http     *http.Client

	mu       sync.Mutex
	dim      int
	fallback int
}

// NewLocalProvider creates a provider for a local Ollama-compatible endpoint.
func NewLocalProvider(cfg Config) *LocalProvider {
	return &LocalProvider{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		http:     &http.Client{Timeout: 30 * time.Second},
		fallback: cfg.Dimension,
	}
}

// Embed returns one vector per input text, in order.
func (p *LocalProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := p.embedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vec)
	}

	p.mu.Lock()
	if p.dim == 0 && len(vectors[0]) > 0 {
		p.dim = len(vectors[0])
	}
	p.mu.Unlock()
	return vectors, nil
}

func (p *LocalProvider) embedOne(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}{Model: p.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.endpoint+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embed call: status %d: %s", resp.StatusCode, detail)
	}

	var decoded struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("embed response: %w", err)
	}
	return decoded.Embedding, nil
}

// Dimension reports the vector size: observed if any call has succeeded,
// otherwise the configured default.
func (p *LocalProvider) Dimension() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dim > 0 {
		return p.dim
	}
	return p.fallback
}
