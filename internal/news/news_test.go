package news

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch-oss/fusion-engine/internal/fusionerr"
	"github.com/skywatch-oss/fusion-engine/internal/httputil"
)

const articleListBody = `{
	"articles": [
		{"url": "https://www.reuters.com/a1", "title": "Jets scrambled over the eastern Mediterranean", "seendate": "20260101T103000Z", "tone": -4.2},
		{"url": "https://unknownblog.example/a2", "title": "Exercise announced", "seendate": "20260101T090000Z"},
		{"url": "", "title": "malformed, no url", "seendate": "20260101T090000Z"},
		{"url": "https://x.example/a3", "title": "bad date", "seendate": "not-a-date"}
	]
}`

func TestFetchRecent_AdaptsArticles(t *testing.T) {
	t.Parallel()

	client := httputil.NewMockHTTPClient().AddResponse(200, articleListBody)
	c := NewClient(ClientConfig{BaseURL: "https://news.example/api"}, client)

	events, err := c.FetchRecent(context.Background(), "military", time.Time{})
	require.NoError(t, err)

	// Malformed articles are skipped, not fatal.
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "Jets scrambled over the eastern Mediterranean", first.Title)
	assert.Equal(t, "reuters.com", first.SourceDomain)
	assert.Equal(t, time.Date(2026, 1, 1, 10, 30, 0, 0, time.UTC), first.PublishedAt)
	assert.InDelta(t, -4.2, first.Tone, 1e-9)
	assert.InDelta(t, 0.95, first.Credibility, 1e-9)

	assert.InDelta(t, defaultCredibility, events[1].Credibility, 1e-9)
}

func TestFetchRecent_DisabledWithoutBaseURL(t *testing.T) {
	t.Parallel()

	c := NewClient(ClientConfig{}, httputil.NewMockHTTPClient())
	_, err := c.FetchRecent(context.Background(), "military", time.Time{})
	assert.True(t, fusionerr.Is(err, fusionerr.KindProviderDisabled))
}

func TestFetchRecent_ServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	client := httputil.NewMockHTTPClient().AddResponse(503, "unavailable")
	c := NewClient(ClientConfig{BaseURL: "https://news.example/api"}, client)

	_, err := c.FetchRecent(context.Background(), "military", time.Time{})
	assert.True(t, fusionerr.Is(err, fusionerr.KindTransientUpstream))
}

func TestFetchRegion_BuildsRegionQuery(t *testing.T) {
	t.Parallel()

	client := httputil.NewMockHTTPClient().AddResponse(200, `{"articles": []}`)
	c := NewClient(ClientConfig{BaseURL: "https://news.example/api"}, client)

	_, err := c.FetchRegion(context.Background(), "black sea", time.Time{})
	require.NoError(t, err)

	req := client.GetRequest(0)
	require.NotNil(t, req)
	assert.Contains(t, req.URL.RawQuery, "black+sea")
}

func TestDisabledSource(t *testing.T) {
	t.Parallel()

	events, err := Disabled{}.FetchRecent(context.Background(), "q", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, events)
}
