package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/skywatch-oss/fusion-engine/internal/aircraft"
	"github.com/skywatch-oss/fusion-engine/internal/fusionerr"
	"github.com/skywatch-oss/fusion-engine/internal/httputil"
	"github.com/skywatch-oss/fusion-engine/internal/units"
)

// OpenSkyConfig configures an OpenSkyProvider against a fixed bounding
// box of interest.
type OpenSkyConfig struct {
	Name               string
	BaseURL            string // e.g. "https://opensky-network.org/api"
	BearerToken        string
	RateLimitPerMinute int
	LaMin, LoMin       float64
	LaMax, LoMax       float64
}

// OpenSkyProvider adapts the OpenSky-style `/states/all` endpoint
// (positional tuple array) to the common Provider boundary, doing the
// meters/mps -> feet/knots/fpm conversions. It does not
// support point-radius or by-hex queries.
type OpenSkyProvider struct {
	cfg    OpenSkyConfig
	client httputil.HTTPClient
}

func NewOpenSkyProvider(cfg OpenSkyConfig, client httputil.HTTPClient) *OpenSkyProvider {
	return &OpenSkyProvider{cfg: cfg, client: client}
}

func (p *OpenSkyProvider) Name() string             { return p.cfg.Name }
func (p *OpenSkyProvider) RateLimitPerMinute() int   { return p.cfg.RateLimitPerMinute }
func (p *OpenSkyProvider) SupportsPointRadius() bool { return false }

type openSkyResponse struct {
	Time   int64           `json:"time"`
	States [][]interface{} `json:"states"`
}

func (p *OpenSkyProvider) FetchBulkMilitary(ctx context.Context) ([]aircraft.UpstreamRecord, error) {
	url := fmt.Sprintf("%s/states/all?lamin=%.4f&lomin=%.4f&lamax=%.4f&lomax=%.4f",
		p.cfg.BaseURL, p.cfg.LaMin, p.cfg.LoMin, p.cfg.LaMax, p.cfg.LoMax)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fusionerr.Wrap(fusionerr.KindPolicy, "upstream.OpenSkyProvider.FetchBulkMilitary", "build request", err)
	}
	if p.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.BearerToken)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fusionerr.Wrap(fusionerr.KindTransientUpstream, "upstream.OpenSkyProvider.FetchBulkMilitary", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fusionerr.New(fusionerr.KindTransientUpstream, "upstream.OpenSkyProvider.FetchBulkMilitary", fmt.Sprintf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, fusionerr.New(fusionerr.KindBadUpstreamPayload, "upstream.OpenSkyProvider.FetchBulkMilitary", fmt.Sprintf("status %d", resp.StatusCode))
	}

	var body openSkyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fusionerr.Wrap(fusionerr.KindBadUpstreamPayload, "upstream.OpenSkyProvider.FetchBulkMilitary", "decode response", err)
	}

	out := make([]aircraft.UpstreamRecord, 0, len(body.States))
	for _, s := range body.States {
		rec, ok := decodeOpenSkyState(s)
		if !ok {
			continue // malformed single record: skip, never fail the batch
		}
		rec.Sources = []string{p.cfg.Name}
		out = append(out, rec)
	}
	return out, nil
}

func (p *OpenSkyProvider) FetchPointRadius(ctx context.Context, lat, lon, radiusNM float64) ([]aircraft.UpstreamRecord, error) {
	return nil, fusionerr.ProviderDisabled("upstream.OpenSkyProvider.FetchPointRadius")
}

func (p *OpenSkyProvider) FetchByHex(ctx context.Context, hex string) (*aircraft.UpstreamRecord, error) {
	return nil, fusionerr.ProviderDisabled("upstream.OpenSkyProvider.FetchByHex")
}

// decodeOpenSkyState converts one positional state-vector tuple:
// [icao24, callsign, origin_country, time_position, last_contact, lon,
// lat, baro_alt_m, on_ground, vel_m_s, true_track, vert_rate_m_s,
// sensors, geo_alt_m, squawk, spi, position_source, category].
func decodeOpenSkyState(s []interface{}) (aircraft.UpstreamRecord, bool) {
	if len(s) < 11 {
		return aircraft.UpstreamRecord{}, false
	}
	hex, ok := s[0].(string)
	if !ok || hex == "" {
		return aircraft.UpstreamRecord{}, false
	}

	rec := aircraft.UpstreamRecord{Hex: hex}
	if callsign, ok := s[1].(string); ok && callsign != "" {
		rec.Flight = &callsign
	}
	if lon, ok := asFloat(s[5]); ok {
		rec.Lon = &lon
	}
	if lat, ok := asFloat(s[6]); ok {
		rec.Lat = &lat
	}
	if altM, ok := asFloat(s[7]); ok {
		ft := units.FeetFromMeters(altM)
		rec.AltBaroFt = &ft
	}
	if velMps, ok := asFloat(s[9]); ok {
		kts := units.KnotsFromMPS(velMps)
		rec.GroundSpeedKts = &kts
	}
	if track, ok := asFloat(s[10]); ok {
		rec.TrackDeg = &track
	}
	if len(s) > 11 {
		if vrMps, ok := asFloat(s[11]); ok {
			fpm := units.FpmFromMPS(vrMps)
			rec.BaroRateFpm = &fpm
		}
	}
	if len(s) > 14 {
		if squawk, ok := s[14].(string); ok && squawk != "" {
			rec.Squawk = &squawk
		}
	}
	return rec, true
}

func asFloat(v interface{}) (float64, bool) {
	if v == nil {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}
