package genai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch-oss/fusion-engine/internal/fusionerr"
	"github.com/skywatch-oss/fusion-engine/internal/httputil"
)

func enabledConfig() ClientConfig {
	return ClientConfig{BaseURL: "https://genai.example", APIKey: "k"}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockHTTPClient().AddResponse(200,
		`{"candidates": [{"content": {"parts": [{"text": "two tankers on a racetrack"}]}}]}`)
	c := NewClient(enabledConfig(), mock)

	out, err := c.Generate(context.Background(), "summarize", GenerateOptions{Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, "two tankers on a racetrack", out)

	req := mock.GetRequest(0)
	assert.Equal(t, "k", req.Header.Get("x-api-key"))
}

func TestGenerate_DisabledByConfig(t *testing.T) {
	t.Parallel()

	c := NewClient(ClientConfig{}, httputil.NewMockHTTPClient())
	_, err := c.Generate(context.Background(), "p", GenerateOptions{})
	assert.True(t, fusionerr.Is(err, fusionerr.KindProviderDisabled))
}

func TestGenerate_EmptyCandidates(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockHTTPClient().AddResponse(200, `{"candidates": []}`)
	c := NewClient(enabledConfig(), mock)

	_, err := c.Generate(context.Background(), "p", GenerateOptions{})
	assert.True(t, fusionerr.Is(err, fusionerr.KindBadUpstreamPayload))
}

func TestEmbedBatch(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockHTTPClient().AddResponse(200,
		`{"embeddings": [[0.1, 0.2], [0.3, 0.4]]}`)
	c := NewClient(enabledConfig(), mock)

	vectors, err := c.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float64{0.1, 0.2}, vectors[0])
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockHTTPClient().AddResponse(200, `{"embeddings": [[0.1]]}`)
	c := NewClient(enabledConfig(), mock)

	_, err := c.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.True(t, fusionerr.Is(err, fusionerr.KindBadUpstreamPayload))
}

func TestDisabledShortCircuits(t *testing.T) {
	t.Parallel()

	out, err := Disabled{}.Generate(context.Background(), "p", GenerateOptions{})
	require.NoError(t, err)
	assert.Empty(t, out)

	vectors, err := Disabled{}.EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestCosine(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, Cosine([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Zero(t, Cosine(nil, nil))
	assert.Zero(t, Cosine([]float64{1}, []float64{1, 2}))
	assert.Zero(t, Cosine([]float64{0, 0}, []float64{1, 2}))
}
