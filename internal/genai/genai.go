// Package genai adapts the generative-model provider (text generation
// and batch embeddings) behind narrow interfaces, short-circuiting to
// no-op results when the provider is disabled by configuration.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/skywatch-oss/fusion-engine/internal/fusionerr"
	"github.com/skywatch-oss/fusion-engine/internal/httputil"
)

// Generator produces free text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Embedder maps a batch of texts to vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// GenerateOptions mirrors the provider's generationConfig knobs.
type GenerateOptions struct {
	Temperature     float64
	MaxOutputTokens int
	ResponseMIME    string
}

// ClientConfig configures the provider client. An empty BaseURL or
// APIKey disables both endpoints.
type ClientConfig struct {
	BaseURL        string
	GeneratePath   string
	EmbedPath      string
	APIKey         string
	DefaultModel   string
	EmbeddingModel string
}

// Client implements Generator and Embedder against the provider's
// HTTP endpoints.
type Client struct {
	cfg    ClientConfig
	client httputil.HTTPClient
}

func NewClient(cfg ClientConfig, client httputil.HTTPClient) *Client {
	if cfg.GeneratePath == "" {
		cfg.GeneratePath = "/v1/models/generate"
	}
	if cfg.EmbedPath == "" {
		cfg.EmbedPath = "/v1/models/embed"
	}
	return &Client{cfg: cfg, client: client}
}

func (c *Client) enabled() bool {
	return c.cfg.BaseURL != "" && c.cfg.APIKey != ""
}

type wirePart struct {
	Text string `json:"text"`
}

type wireContent struct {
	Parts []wirePart `json:"parts"`
}

type wireGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type wireGenerateRequest struct {
	Contents         []wireContent        `json:"contents"`
	GenerationConfig wireGenerationConfig `json:"generationConfig"`
}

type wireGenerateResponse struct {
	Candidates []struct {
		Content wireContent `json:"content"`
	} `json:"candidates"`
}

func (c *Client) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if !c.enabled() {
		return "", fusionerr.ProviderDisabled("genai.Client.Generate")
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 1024
	}

	reqBody := wireGenerateRequest{
		Contents: []wireContent{{Parts: []wirePart{{Text: prompt}}}},
		GenerationConfig: wireGenerationConfig{
			Temperature:      opts.Temperature,
			MaxOutputTokens:  opts.MaxOutputTokens,
			ResponseMimeType: opts.ResponseMIME,
		},
	}

	var respBody wireGenerateResponse
	if err := c.postJSON(ctx, c.cfg.GeneratePath, reqBody, &respBody); err != nil {
		return "", err
	}
	if len(respBody.Candidates) == 0 || len(respBody.Candidates[0].Content.Parts) == 0 {
		return "", fusionerr.New(fusionerr.KindBadUpstreamPayload, "genai.Client.Generate", "no candidates in response")
	}
	return respBody.Candidates[0].Content.Parts[0].Text, nil
}

type wireEmbedRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model,omitempty"`
}

type wireEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if !c.enabled() {
		return nil, fusionerr.ProviderDisabled("genai.Client.EmbedBatch")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	var respBody wireEmbedResponse
	if err := c.postJSON(ctx, c.cfg.EmbedPath, wireEmbedRequest{Texts: texts, Model: c.cfg.EmbeddingModel}, &respBody); err != nil {
		return nil, err
	}
	if len(respBody.Embeddings) != len(texts) {
		return nil, fusionerr.New(fusionerr.KindBadUpstreamPayload, "genai.Client.EmbedBatch",
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(respBody.Embeddings)))
	}
	return respBody.Embeddings, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fusionerr.Wrap(fusionerr.KindPolicy, "genai.Client.postJSON", "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fusionerr.Wrap(fusionerr.KindPolicy, "genai.Client.postJSON", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fusionerr.Wrap(fusionerr.KindTransientUpstream, "genai.Client.postJSON", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fusionerr.New(fusionerr.KindTransientUpstream, "genai.Client.postJSON", fmt.Sprintf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return fusionerr.New(fusionerr.KindBadUpstreamPayload, "genai.Client.postJSON", fmt.Sprintf("status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fusionerr.Wrap(fusionerr.KindBadUpstreamPayload, "genai.Client.postJSON", "decode response", err)
	}
	return nil
}

// Disabled short-circuits both interfaces to empty results so callers
// degrade gracefully without checking configuration themselves.
type Disabled struct{}

func (Disabled) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return "", nil
}

func (Disabled) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	return nil, nil
}

// Cosine returns the cosine similarity of two vectors, 0 when either
// is zero-length or all-zero. The in-Go stand-in for a vector-extension
// cosine distance query.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
