package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/skywatch-oss/fusion-engine/internal/aircraft"
	"github.com/skywatch-oss/fusion-engine/internal/fusionerr"
	"github.com/skywatch-oss/fusion-engine/internal/httputil"
)

// HTTPProviderConfig configures an HTTPProvider. Credentials are
// environment-loaded by the caller and passed in already
// resolved; HTTPProvider never reads the environment itself.
type HTTPProviderConfig struct {
	Name                string
	BaseURL             string
	BulkPath            string // default "/v2/mil"
	RateLimitPerMinute  int
	SupportsPointRadius bool
	BearerToken         string
	BasicUser           string
	BasicPass           string
	APIKeyHeader        string
	APIKey              string
	HostHeader          string
}

// HTTPProvider implements Provider against the bulk-military /
// point-radius / by-hex family of endpoints, all of
// which share the `{ac: [...]}` wire record shape.
type HTTPProvider struct {
	cfg    HTTPProviderConfig
	client httputil.HTTPClient
}

// NewHTTPProvider constructs an HTTPProvider using the given HTTP
// client (pass httputil.NewStandardClient(nil) in production, a
// MockHTTPClient in tests).
func NewHTTPProvider(cfg HTTPProviderConfig, client httputil.HTTPClient) *HTTPProvider {
	if cfg.BulkPath == "" {
		cfg.BulkPath = "/v2/mil"
	}
	return &HTTPProvider{cfg: cfg, client: client}
}

func (p *HTTPProvider) Name() string               { return p.cfg.Name }
func (p *HTTPProvider) RateLimitPerMinute() int     { return p.cfg.RateLimitPerMinute }
func (p *HTTPProvider) SupportsPointRadius() bool   { return p.cfg.SupportsPointRadius }

func (p *HTTPProvider) FetchBulkMilitary(ctx context.Context) ([]aircraft.UpstreamRecord, error) {
	var body wireBulkResponse
	if err := p.getJSON(ctx, p.cfg.BaseURL+p.cfg.BulkPath, &body); err != nil {
		return nil, err
	}
	return wireRecordsToUpstream(body.Aircraft, p.cfg.Name), nil
}

func (p *HTTPProvider) FetchPointRadius(ctx context.Context, lat, lon, radiusNM float64) ([]aircraft.UpstreamRecord, error) {
	if !p.cfg.SupportsPointRadius {
		return nil, fusionerr.ProviderDisabled("upstream.HTTPProvider.FetchPointRadius")
	}
	path := fmt.Sprintf("/point/%.4f/%.4f/%.0f", lat, lon, radiusNM)
	var body wireBulkResponse
	if err := p.getJSON(ctx, p.cfg.BaseURL+path, &body); err != nil {
		return nil, err
	}
	return wireRecordsToUpstream(body.Aircraft, p.cfg.Name), nil
}

func (p *HTTPProvider) FetchByHex(ctx context.Context, hex string) (*aircraft.UpstreamRecord, error) {
	path := "/hex/" + hex
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fusionerr.Wrap(fusionerr.KindPolicy, "upstream.HTTPProvider.FetchByHex", "build request", err)
	}
	p.applyAuth(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fusionerr.Wrap(fusionerr.KindTransientUpstream, "upstream.HTTPProvider.FetchByHex", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 500 {
		return nil, fusionerr.New(fusionerr.KindTransientUpstream, "upstream.HTTPProvider.FetchByHex", fmt.Sprintf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, fusionerr.New(fusionerr.KindBadUpstreamPayload, "upstream.HTTPProvider.FetchByHex", fmt.Sprintf("status %d", resp.StatusCode))
	}

	var body wireBulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fusionerr.Wrap(fusionerr.KindBadUpstreamPayload, "upstream.HTTPProvider.FetchByHex", "decode response", err)
	}
	if len(body.Aircraft) == 0 {
		return nil, nil
	}
	rec := body.Aircraft[0].toUpstreamRecord(p.cfg.Name)
	return &rec, nil
}

func (p *HTTPProvider) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fusionerr.Wrap(fusionerr.KindPolicy, "upstream.HTTPProvider.getJSON", "build request", err)
	}
	p.applyAuth(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return fusionerr.Wrap(fusionerr.KindTransientUpstream, "upstream.HTTPProvider.getJSON", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fusionerr.New(fusionerr.KindTransientUpstream, "upstream.HTTPProvider.getJSON", fmt.Sprintf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return fusionerr.New(fusionerr.KindBadUpstreamPayload, "upstream.HTTPProvider.getJSON", fmt.Sprintf("status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fusionerr.Wrap(fusionerr.KindBadUpstreamPayload, "upstream.HTTPProvider.getJSON", "decode response", err)
	}
	return nil
}

func (p *HTTPProvider) applyAuth(req *http.Request) {
	switch {
	case p.cfg.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+p.cfg.BearerToken)
	case p.cfg.BasicUser != "":
		req.SetBasicAuth(p.cfg.BasicUser, p.cfg.BasicPass)
	}
	if p.cfg.APIKeyHeader != "" && p.cfg.APIKey != "" {
		req.Header.Set(p.cfg.APIKeyHeader, p.cfg.APIKey)
	}
	if p.cfg.HostHeader != "" {
		req.Host = p.cfg.HostHeader
	}
}
