// Package upstream adapts the ADS-B wire providers named in the
// external interfaces list (bulk military, point-radius, by-hex,
// OpenSky-style states/all) to a common Provider boundary, each
// governed by its own token-bucket rate limiter.
package upstream

import (
	"context"

	"github.com/skywatch-oss/fusion-engine/internal/aircraft"
)

// Provider is the narrow interface every upstream ADS-B source
// implements. A provider that does not support a given query method
// returns a ProviderDisabled-kind error rather than omitting the
// method, so the aggregator can treat "unsupported" and "disabled by
// configuration" identically.
type Provider interface {
	// Name identifies the provider for logging and source tagging.
	Name() string

	// RateLimitPerMinute is the requests-per-minute budget this
	// provider's token bucket enforces.
	RateLimitPerMinute() int

	// SupportsPointRadius reports whether FetchPointRadius is
	// meaningful for this provider.
	SupportsPointRadius() bool

	// FetchBulkMilitary returns every currently-tracked military
	// aircraft record.
	FetchBulkMilitary(ctx context.Context) ([]aircraft.UpstreamRecord, error)

	// FetchPointRadius returns records within radiusNM of (lat,lon).
	// Returns a ProviderDisabled error if SupportsPointRadius is false.
	FetchPointRadius(ctx context.Context, lat, lon, radiusNM float64) ([]aircraft.UpstreamRecord, error)

	// FetchByHex returns the single record for hex, or a nil record
	// with no error when the upstream reports the hex as absent (404).
	FetchByHex(ctx context.Context, hex string) (*aircraft.UpstreamRecord, error)
}

// FocusArea is a fixed point-radius query target, issued every tick
// via the highest-priority upstream that supports point-radius
// queries.
type FocusArea struct {
	Name     string
	Lat      float64
	Lon      float64
	RadiusNM float64
}
