package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Embedding inputs beyond this length add latency without improving
// retrieval quality, so they are clipped.
const maxEmbedInputChars = 8000

// Embedder produces a vector representation of a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings API.
type OpenAIEmbedder struct {
	client *http.Client
	apiKey string
	apiURL string
	model  string
}

func NewOpenAIEmbedder(cfg Config) (*OpenAIEmbedder, error) {
	if cfg.EmbedModel == "" {
		return nil, errors.New("embedding model is required")
	}
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://api.openai.com/v1"
	}
	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	return &OpenAIEmbedder{
		client: &http.Client{Timeout: timeout},
		apiKey: cfg.APIKey,
		apiURL: apiURL,
		model:  cfg.EmbedModel,
	}, nil
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for text, truncating oversized input.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("embedding input is empty")
	}
	if len(text) > maxEmbedInputChars {
		text = text[:maxEmbedInputChars]
	}

	payload, err := json.Marshal(openAIEmbedRequest{Model: e.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("openai: marshal embed request: %w", err)
	}

	resp, err := doWithRetry(ctx, e.client, func() (*http.Request, error) {
		httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, e.apiURL+"/embeddings", bytes.NewReader(payload))
		if reqErr != nil {
			return nil, fmt.Errorf("openai: create embed request: %w", reqErr)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if e.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
		}
		return httpReq, nil
	})
	if err != nil {
		return nil, fmt.Errorf("openai: embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai: unexpected embed status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var response openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("openai: decode embed response: %w", err)
	}
	if len(response.Data) == 0 {
		return nil, errors.New("openai: empty embedding response")
	}

	return response.Data[0].Embedding, nil
}
