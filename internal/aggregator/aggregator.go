// Package aggregator implements the multi-source aircraft
// aggregator: every tick it fetches current aircraft from all
// enabled upstream providers in parallel, merges them into a single
// deduplicated set keyed by ICAO hex, re-runs military reclassification,
// and filters to the configured region of interest. The aggregator
// exclusively owns the in-flight merge map and its per-hex cache; no
// other component mutates them.
package aggregator

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skywatch-oss/fusion-engine/internal/aircraft"
	"github.com/skywatch-oss/fusion-engine/internal/config"
	"github.com/skywatch-oss/fusion-engine/internal/monitoring"
	"github.com/skywatch-oss/fusion-engine/internal/timeutil"
	"github.com/skywatch-oss/fusion-engine/internal/upstream"
)

// ProviderEntry pairs an upstream.Provider with its token bucket and a
// priority rank (lower is higher priority) used to pick which provider
// serves the fixed list of focus-area point-radius queries.
type ProviderEntry struct {
	Provider upstream.Provider
	Limiter  *upstream.TokenBucket
	Priority int
}

// Aggregator runs one fetch tick across every configured provider.
type Aggregator struct {
	providers  []ProviderEntry
	focusAreas []upstream.FocusArea
	region     BoundingBox
	cfg        *config.TuningConfig
	clock      timeutil.Clock
	cache      *hexCache
}

// New builds an Aggregator. providers should already be sorted by
// caller preference; Priority on each entry breaks ties for focus-area
// dispatch (lowest Priority value wins).
func New(providers []ProviderEntry, focusAreas []upstream.FocusArea, region BoundingBox, cfg *config.TuningConfig, clock timeutil.Clock) *Aggregator {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	ttl := time.Duration(cfg.GetAggregatorCacheTTLSeconds() * float64(time.Second))
	return &Aggregator{
		providers:  providers,
		focusAreas: focusAreas,
		region:     region,
		cfg:        cfg,
		clock:      clock,
		cache:      newHexCache(clock, ttl),
	}
}

// TickResult is the outcome of one fetch_tick: the merged, reclassified,
// region-filtered set of records, plus bookkeeping about which
// upstreams failed.
type TickResult struct {
	Records      []aircraft.UpstreamRecord
	FailedOrigin []string // provider names whose fetch failed this tick
	Succeeded    int      // number of providers that returned data
}

// FetchTick runs one aggregation cycle: parallel fetch from every
// provider's bulk-military endpoint plus point-radius queries for each
// focus area via the highest-priority provider that supports them, all
// under a per-request timeout and the provider's own rate limiter.
// Per-upstream failures are logged and skipped; the tick only fails
// entirely (returns an empty result, leaving positions_latest
// untouched by the caller) when every provider failed.
func (a *Aggregator) FetchTick(ctx context.Context) (TickResult, error) {
	type fetchOutcome struct {
		source  string
		records []aircraft.UpstreamRecord
		err     error
	}

	outcomes := make([]fetchOutcome, len(a.providers)+len(a.focusAreaDispatch()))
	g, gctx := errgroup.WithContext(ctx)

	idx := 0
	for _, entry := range a.providers {
		i := idx
		idx++
		entry := entry
		g.Go(func() error {
			records, err := a.fetchOne(gctx, entry)
			outcomes[i] = fetchOutcome{source: entry.Provider.Name(), records: records, err: err}
			return nil // per-upstream failures never fail the tick's errgroup
		})
	}

	focusDispatch := a.focusAreaDispatch()
	for _, fa := range focusDispatch {
		i := idx
		idx++
		fa := fa
		g.Go(func() error {
			records, err := a.fetchFocusArea(gctx, fa)
			outcomes[i] = fetchOutcome{source: fa.provider.Provider.Name() + ":" + fa.area.Name, records: records, err: err}
			return nil
		})
	}

	_ = g.Wait()

	var result TickResult
	merged := make(map[string]aircraft.UpstreamRecord)
	var mergeOrder []string

	for _, o := range outcomes {
		if o.err != nil {
			monitoring.Logf("aggregator: upstream %s failed: %v", o.source, o.err)
			result.FailedOrigin = append(result.FailedOrigin, o.source)
			continue
		}
		result.Succeeded++
		for _, rec := range o.records {
			hex := normalizeHex(rec.Hex)
			if hex == "" {
				continue
			}
			rec.Hex = hex
			if existing, ok := merged[hex]; ok {
				merged[hex] = aircraft.MergeAircraft(existing, rec)
			} else {
				merged[hex] = rec
				mergeOrder = append(mergeOrder, hex)
			}
		}
	}

	if result.Succeeded == 0 {
		// Complete tick failure: empty update, caller must not touch
		// positions_latest.
		return TickResult{FailedOrigin: result.FailedOrigin}, nil
	}

	sort.Strings(mergeOrder)
	final := make([]aircraft.UpstreamRecord, 0, len(mergeOrder))
	for _, hex := range mergeOrder {
		rec := merged[hex]
		isMil, category, country := aircraft.ReclassifyMilitary(typeCodeOf(rec), operatorOf(rec), rec.Hex)
		rec.Mil = isMil
		rec.Category = categoryPtr(category)
		rec.Country = countryOverride(rec.Country, country)
		if rec.Lat == nil || rec.Lon == nil {
			continue
		}
		if !a.region.Contains(*rec.Lat, *rec.Lon) {
			continue
		}
		a.cache.put(hex, rec)
		final = append(final, rec)
	}
	result.Records = final
	return result, nil
}

func (a *Aggregator) fetchOne(ctx context.Context, entry ProviderEntry) ([]aircraft.UpstreamRecord, error) {
	if entry.Limiter != nil {
		if err := entry.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	timeout := time.Duration(a.cfg.GetUpstreamTimeoutSeconds() * float64(time.Second))
	return upstream.WithRetry(ctx, a.clock, func(ctx context.Context) ([]aircraft.UpstreamRecord, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return entry.Provider.FetchBulkMilitary(fetchCtx)
	})
}

type focusDispatch struct {
	provider ProviderEntry
	area     upstream.FocusArea
}

// focusAreaDispatch resolves each configured focus area to the
// highest-priority provider that supports point-radius queries.
func (a *Aggregator) focusAreaDispatch() []focusDispatch {
	var candidate *ProviderEntry
	for i := range a.providers {
		if !a.providers[i].Provider.SupportsPointRadius() {
			continue
		}
		if candidate == nil || a.providers[i].Priority < candidate.Priority {
			candidate = &a.providers[i]
		}
	}
	if candidate == nil {
		return nil
	}
	out := make([]focusDispatch, 0, len(a.focusAreas))
	for _, fa := range a.focusAreas {
		out = append(out, focusDispatch{provider: *candidate, area: fa})
	}
	return out
}

func (a *Aggregator) fetchFocusArea(ctx context.Context, fd focusDispatch) ([]aircraft.UpstreamRecord, error) {
	if fd.provider.Limiter != nil {
		if err := fd.provider.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	timeout := time.Duration(a.cfg.GetUpstreamTimeoutSeconds() * float64(time.Second))
	return upstream.WithRetry(ctx, a.clock, func(ctx context.Context) ([]aircraft.UpstreamRecord, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return fd.provider.Provider.FetchPointRadius(fetchCtx, fd.area.Lat, fd.area.Lon, fd.area.RadiusNM)
	})
}

// LookupHex resolves a single aircraft, serving from the per-hex cache
// when the last tick saw it within the TTL and otherwise asking each
// provider's by-hex endpoint in slice order until one returns a record.
// Returns (nil, nil) when no provider knows the hex.
func (a *Aggregator) LookupHex(ctx context.Context, hex string) (*aircraft.UpstreamRecord, error) {
	normalized := normalizeHex(hex)
	if rec, ok := a.cache.get(normalized); ok {
		return &rec, nil
	}

	for _, entry := range a.providers {
		rec, err := a.fetchByHex(ctx, entry, normalized)
		if err != nil {
			monitoring.Logf("aggregator: by-hex lookup via %s failed: %v", entry.Provider.Name(), err)
			continue
		}
		if rec == nil {
			continue
		}
		rec.Hex = normalized
		isMil, category, country := aircraft.ReclassifyMilitary(typeCodeOf(*rec), operatorOf(*rec), rec.Hex)
		rec.Mil = isMil
		rec.Category = categoryPtr(category)
		rec.Country = countryOverride(rec.Country, country)
		a.cache.put(normalized, *rec)
		return rec, nil
	}
	return nil, nil
}

func (a *Aggregator) fetchByHex(ctx context.Context, entry ProviderEntry, hex string) (*aircraft.UpstreamRecord, error) {
	if entry.Limiter != nil {
		if err := entry.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	timeout := time.Duration(a.cfg.GetUpstreamTimeoutSeconds() * float64(time.Second))
	return upstream.WithRetry(ctx, a.clock, func(ctx context.Context) (*aircraft.UpstreamRecord, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return entry.Provider.FetchByHex(fetchCtx, hex)
	})
}

func normalizeHex(hex string) string {
	out := make([]byte, 0, len(hex))
	for i := 0; i < len(hex); i++ {
		c := hex[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

func typeCodeOf(rec aircraft.UpstreamRecord) string {
	if rec.TypeCode != nil {
		return *rec.TypeCode
	}
	return ""
}

func operatorOf(rec aircraft.UpstreamRecord) string {
	if rec.OwnOp != nil {
		return *rec.OwnOp
	}
	return ""
}

func categoryPtr(c aircraft.MilitaryCategory) *string {
	s := string(c)
	return &s
}

func countryOverride(existing *string, country string) *string {
	if country == "" {
		return existing
	}
	return &country
}
