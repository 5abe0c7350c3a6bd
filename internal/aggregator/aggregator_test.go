package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch-oss/fusion-engine/internal/aircraft"
	"github.com/skywatch-oss/fusion-engine/internal/timeutil"
	"github.com/skywatch-oss/fusion-engine/internal/upstream"
)

func ptrF(v float64) *float64 { return &v }
func ptrS(v string) *string   { return &v }

type fakeProvider struct {
	name        string
	records     []aircraft.UpstreamRecord
	err         error
	pointRadius bool
	priority    int

	bulkCalls  int
	pointCalls int
}

func (f *fakeProvider) Name() string              { return f.name }
func (f *fakeProvider) RateLimitPerMinute() int   { return 60 }
func (f *fakeProvider) SupportsPointRadius() bool { return f.pointRadius }

func (f *fakeProvider) FetchBulkMilitary(ctx context.Context) ([]aircraft.UpstreamRecord, error) {
	f.bulkCalls++
	return f.records, f.err
}

func (f *fakeProvider) FetchPointRadius(ctx context.Context, lat, lon, radiusNM float64) ([]aircraft.UpstreamRecord, error) {
	f.pointCalls++
	return nil, f.err
}

func (f *fakeProvider) FetchByHex(ctx context.Context, hex string) (*aircraft.UpstreamRecord, error) {
	return nil, nil
}

func wideRegion() BoundingBox {
	return BoundingBox{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}
}

func entries(providers ...*fakeProvider) []ProviderEntry {
	out := make([]ProviderEntry, 0, len(providers))
	for _, p := range providers {
		out = append(out, ProviderEntry{Provider: p, Priority: p.priority})
	}
	return out
}

func record(hex string, lat, lon float64) aircraft.UpstreamRecord {
	return aircraft.UpstreamRecord{Hex: hex, Lat: ptrF(lat), Lon: ptrF(lon)}
}

func TestFetchTick_MergesAcrossSources(t *testing.T) {
	t.Parallel()

	// The same airframe from two sources with complementary fields.
	s1 := &fakeProvider{name: "S1", records: []aircraft.UpstreamRecord{
		{Hex: "ae0001", Lat: ptrF(33.1), Lon: ptrF(35.0), Flight: ptrS("ABC123"), Sources: []string{"S1"}},
	}}
	s2 := &fakeProvider{name: "S2", records: []aircraft.UpstreamRecord{
		{Hex: "AE0001", Lat: ptrF(33.1), Lon: ptrF(35.0), AltBaroFt: ptrF(35000), Sources: []string{"S2"}},
	}}

	agg := New(entries(s1, s2), nil, wideRegion(), nil, timeutil.NewMockClock(time.Now()))
	result, err := agg.FetchTick(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	merged := result.Records[0]
	assert.Equal(t, "AE0001", merged.Hex)
	assert.Equal(t, "ABC123", *merged.Flight)
	assert.Equal(t, 35000.0, *merged.AltBaroFt)
	assert.ElementsMatch(t, []string{"S1", "S2"}, merged.Sources)
	assert.Equal(t, 2, result.Succeeded)
}

func TestFetchTick_SingleUpstreamFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	good := &fakeProvider{name: "good", records: []aircraft.UpstreamRecord{record("AE0001", 33.0, 35.0)}}
	bad := &fakeProvider{name: "bad", err: errors.New("connection refused")}

	agg := New(entries(good, bad), nil, wideRegion(), nil, timeutil.NewMockClock(time.Now()))
	result, err := agg.FetchTick(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Records, 1)
	assert.Equal(t, 1, result.Succeeded)
	assert.Contains(t, result.FailedOrigin, "bad")
}

func TestFetchTick_CompleteFailureReturnsEmpty(t *testing.T) {
	t.Parallel()

	bad := &fakeProvider{name: "bad", err: errors.New("connection refused")}
	agg := New(entries(bad), nil, wideRegion(), nil, timeutil.NewMockClock(time.Now()))

	result, err := agg.FetchTick(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Zero(t, result.Succeeded)
}

func TestFetchTick_RegionFilter(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{name: "p", records: []aircraft.UpstreamRecord{
		record("AE0001", 33.0, 35.0),
		record("AE0002", 60.0, 35.0),
	}}
	region := BoundingBox{MinLat: 25, MaxLat: 45, MinLon: 20, MaxLon: 45}

	agg := New(entries(p), nil, region, nil, timeutil.NewMockClock(time.Now()))
	result, err := agg.FetchTick(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	assert.Equal(t, "AE0001", result.Records[0].Hex)
}

func TestFetchTick_ReclassifiesMilitary(t *testing.T) {
	t.Parallel()

	// An upstream leaves the military flag off a tanker type code; the
	// rule engine result wins unconditionally.
	p := &fakeProvider{name: "p", records: []aircraft.UpstreamRecord{
		{Hex: "AE0001", Lat: ptrF(33.0), Lon: ptrF(35.0), TypeCode: ptrS("KC135"), Mil: false},
	}}
	agg := New(entries(p), nil, wideRegion(), nil, timeutil.NewMockClock(time.Now()))

	result, err := agg.FetchTick(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.True(t, result.Records[0].Mil)
	require.NotNil(t, result.Records[0].Category)
	assert.Equal(t, "tanker", *result.Records[0].Category)
}

func TestFocusAreaDispatch_PicksHighestPriority(t *testing.T) {
	t.Parallel()

	low := &fakeProvider{name: "low", pointRadius: true, priority: 5}
	high := &fakeProvider{name: "high", pointRadius: true, priority: 0}
	none := &fakeProvider{name: "none", priority: -1}

	areas := []upstream.FocusArea{{Name: "a", Lat: 33, Lon: 35, RadiusNM: 100}}
	agg := New(entries(low, high, none), areas, wideRegion(), nil, timeutil.NewMockClock(time.Now()))

	_, err := agg.FetchTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, high.pointCalls)
	assert.Zero(t, low.pointCalls)
}

type hexProvider struct {
	fakeProvider
	byHex    *aircraft.UpstreamRecord
	hexCalls int
}

func (h *hexProvider) FetchByHex(ctx context.Context, hex string) (*aircraft.UpstreamRecord, error) {
	h.hexCalls++
	return h.byHex, nil
}

func TestLookupHex_CachesForTTL(t *testing.T) {
	t.Parallel()

	p := &hexProvider{
		fakeProvider: fakeProvider{name: "p"},
		byHex:        &aircraft.UpstreamRecord{Hex: "ae0001", TypeCode: ptrS("F16"), Lat: ptrF(33.0), Lon: ptrF(35.0)},
	}
	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	agg := New([]ProviderEntry{{Provider: p}}, nil, wideRegion(), nil, clock)

	rec, err := agg.LookupHex(context.Background(), "ae0001")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "AE0001", rec.Hex)
	assert.True(t, rec.Mil)
	assert.Equal(t, 1, p.hexCalls)

	// Inside the TTL the cache answers.
	_, err = agg.LookupHex(context.Background(), "AE0001")
	require.NoError(t, err)
	assert.Equal(t, 1, p.hexCalls)

	// Past the TTL the provider is asked again.
	clock.Advance(61 * time.Second)
	_, err = agg.LookupHex(context.Background(), "AE0001")
	require.NoError(t, err)
	assert.Equal(t, 2, p.hexCalls)
}

func TestLookupHex_UnknownHex(t *testing.T) {
	t.Parallel()

	p := &hexProvider{fakeProvider: fakeProvider{name: "p"}}
	agg := New([]ProviderEntry{{Provider: p}}, nil, wideRegion(), nil, timeutil.NewMockClock(time.Now()))

	rec, err := agg.LookupHex(context.Background(), "AE9999")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestNormalizeHex(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "AE01FF", normalizeHex("ae01ff"))
	assert.Equal(t, "AE01FF", normalizeHex("AE01FF"))
}
