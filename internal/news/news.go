// Package news adapts the open-source article-list provider to typed
// news events, including the region-news query the alert generator
// correlates against.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/fusionerr"
	"github.com/skywatch-oss/fusion-engine/internal/httputil"
)

// Event is one normalized news event.
type Event struct {
	ID           string
	Title        string
	PublishedAt  time.Time
	URL          string
	SourceDomain string
	Countries    []string
	Places       []Place
	Entities     []string
	Categories   []string
	Tone         float64 // [-100, 100]
	Credibility  float64 // [0, 1]
}

// Place is one located place extracted from an article.
type Place struct {
	Name string   `json:"name"`
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
}

// Source is the narrow interface the pipeline consumes news through.
type Source interface {
	// FetchRecent returns articles matching the query published since
	// the given time.
	FetchRecent(ctx context.Context, query string, since time.Time) ([]Event, error)
	// FetchRegion returns articles for a named region.
	FetchRegion(ctx context.Context, region string, since time.Time) ([]Event, error)
}

// ClientConfig configures the HTTP news client. Credentials are
// resolved by the caller; a zero BaseURL disables the client.
type ClientConfig struct {
	BaseURL     string
	Language    string
	MaxArticles int
}

// Client implements Source against the article-list endpoint.
type Client struct {
	cfg    ClientConfig
	client httputil.HTTPClient
}

func NewClient(cfg ClientConfig, client httputil.HTTPClient) *Client {
	if cfg.MaxArticles <= 0 {
		cfg.MaxArticles = 100
	}
	return &Client{cfg: cfg, client: client}
}

// wireArticle is the provider's article record shape.
type wireArticle struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	SeenDate    string   `json:"seendate"`
	Language    string   `json:"language,omitempty"`
	SocialImage string   `json:"socialimage,omitempty"`
	Tone        *float64 `json:"tone,omitempty"`
}

type wireArticleList struct {
	Articles []wireArticle `json:"articles"`
}

// seenDateLayout is the provider's compact timestamp format.
const seenDateLayout = "20060102T150405Z"

func (c *Client) FetchRecent(ctx context.Context, query string, since time.Time) ([]Event, error) {
	if c.cfg.BaseURL == "" {
		return nil, fusionerr.ProviderDisabled("news.Client.FetchRecent")
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("mode", "artlist")
	params.Set("format", "json")
	params.Set("maxrecords", fmt.Sprint(c.cfg.MaxArticles))
	if c.cfg.Language != "" {
		params.Set("sourcelang", c.cfg.Language)
	}
	if !since.IsZero() {
		params.Set("startdatetime", since.UTC().Format("20060102150405"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fusionerr.Wrap(fusionerr.KindPolicy, "news.Client.FetchRecent", "build request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fusionerr.Wrap(fusionerr.KindTransientUpstream, "news.Client.FetchRecent", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fusionerr.New(fusionerr.KindTransientUpstream, "news.Client.FetchRecent", fmt.Sprintf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, fusionerr.New(fusionerr.KindBadUpstreamPayload, "news.Client.FetchRecent", fmt.Sprintf("status %d", resp.StatusCode))
	}

	var body wireArticleList
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fusionerr.Wrap(fusionerr.KindBadUpstreamPayload, "news.Client.FetchRecent", "decode response", err)
	}

	events := make([]Event, 0, len(body.Articles))
	for _, a := range body.Articles {
		e, ok := adaptArticle(a)
		if !ok {
			// A single malformed article never fails the batch.
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func (c *Client) FetchRegion(ctx context.Context, region string, since time.Time) ([]Event, error) {
	query := fmt.Sprintf("%q (military OR airspace OR jets OR exercise)", region)
	return c.FetchRecent(ctx, query, since)
}

func adaptArticle(a wireArticle) (Event, bool) {
	if a.URL == "" || a.Title == "" {
		return Event{}, false
	}
	published, err := time.Parse(seenDateLayout, a.SeenDate)
	if err != nil {
		return Event{}, false
	}
	e := Event{
		ID:           a.URL,
		Title:        a.Title,
		PublishedAt:  published,
		URL:          a.URL,
		SourceDomain: domainOf(a.URL),
	}
	if a.Tone != nil {
		e.Tone = clampTone(*a.Tone)
	}
	e.Credibility = credibilityFor(e.SourceDomain)
	return e, true
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func clampTone(t float64) float64 {
	if t < -100 {
		return -100
	}
	if t > 100 {
		return 100
	}
	return t
}

// wireDomainCredibility grades known source domains; unknown domains
// start at the neutral default.
var wireDomainCredibility = map[string]float64{
	"reuters.com": 0.95,
	"apnews.com":  0.95,
	"bbc.com":     0.9,
	"bbc.co.uk":   0.9,
	"afp.com":     0.9,
}

const defaultCredibility = 0.5

func credibilityFor(domain string) float64 {
	if score, ok := wireDomainCredibility[domain]; ok {
		return score
	}
	return defaultCredibility
}

// Disabled is a Source that always short-circuits, used when the
// provider is not configured.
type Disabled struct{}

func (Disabled) FetchRecent(ctx context.Context, query string, since time.Time) ([]Event, error) {
	return nil, nil
}

func (Disabled) FetchRegion(ctx context.Context, region string, since time.Time) ([]Event, error) {
	return nil, nil
}
