// Package openai embeds contracts through the OpenAI /embeddings endpoint
// or any server that mimics it.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Defaults applied by NewEmbeddingService.
const (
	DefaultBaseURL          = "https://api.openai.com/v1"
	DefaultModel            = "text-embedding-3-small"
	DefaultTransportTimeout = 2 * time.Minute

	// DefaultMaxInputRunes keeps a contract inside the 8191-token input
	// window of the text-embedding-3 models.
	DefaultMaxInputRunes = 24000
)

// ErrAPIKeyRequired is returned when no API key is configured.
var ErrAPIKeyRequired = errors.New("openai: API key is required")

const maxResponseBody = 4 << 20

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string

	// MaxInputRunes truncates longer input before it is sent.
	// Zero means DefaultMaxInputRunes.
	MaxInputRunes int

	HTTPClient *http.Client
}

// EmbeddingService embeds text with one request per call.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxRunes   int
	dimensions atomic.Int64
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewEmbeddingService validates cfg and fills in defaults.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxInputRunes <= 0 {
		cfg.MaxInputRunes = DefaultMaxInputRunes
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTransportTimeout}
	}

	s := &EmbeddingService{
		client:   cfg.HTTPClient,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		maxRunes: cfg.MaxInputRunes,
	}
	s.dimensions.Store(int64(domain.EmbeddingDimensions()[cfg.Model]))
	return s, nil
}

// Embed returns the fingerprint of text, truncated to MaxInputRunes.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: s.model, Input: truncateRunes(text, s.maxRunes)})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var out embeddingResponse
	if err := s.post(ctx, "/embeddings", body, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, fmt.Errorf("openai: %s", out.Error.Message)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, errors.New("openai: no embedding returned")
	}

	embedding := make([]float32, len(out.Data[0].Embedding))
	for i, v := range out.Data[0].Embedding {
		embedding[i] = float32(v)
	}
	s.dimensions.Store(int64(len(embedding)))
	return embedding, nil
}

// post sends body to path and decodes the reply into out. A non-200 reply
// with an API error message reports that message.
func (s *EmbeddingService) post(ctx context.Context, path string, body []byte, out *embeddingResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("openai: read response: %w", err)
	}

	decodeErr := json.Unmarshal(raw, out)
	switch {
	case resp.StatusCode == http.StatusOK && decodeErr != nil:
		return fmt.Errorf("openai: decode response: %w", decodeErr)
	case resp.StatusCode != http.StatusOK && decodeErr == nil && out.Error != nil:
		return fmt.Errorf("openai: status %d: %s", resp.StatusCode, out.Error.Message)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("openai: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Dimensions returns the vector length: the last one seen, else the known
// size for the model, else 0.
func (s *EmbeddingService) Dimensions() int {
	return int(s.dimensions.Load())
}

func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks the key against /models without spending embedding quota.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("openai: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// Close releases idle connections.
func (s *EmbeddingService) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
