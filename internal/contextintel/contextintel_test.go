package contextintel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch-oss/fusion-engine/internal/geofence"
)

func ptrF(v float64) *float64 { return &v }

var testAirspace = Airspace{
	ID:    "as-1",
	Name:  "R-101",
	Class: "restricted",
	Polygon: geofence.Polygon{
		{Lat: 33.0, Lon: 35.0},
		{Lat: 34.0, Lon: 35.0},
		{Lat: 34.0, Lon: 36.0},
		{Lat: 33.0, Lon: 36.0},
	},
	FloorFt:   ptrF(10000),
	CeilingFt: ptrF(40000),
}

func TestEvaluate_Combined(t *testing.T) {
	t.Parallel()

	infra := []Infrastructure{
		{ID: "i-1", Name: "airbase", Importance: "critical", Lat: 33.5, Lon: 35.5, IsActive: true},
	}
	zones := []ActivityZone{
		{ID: "z-1", BucketLat: 33.5, BucketLon: 35.5, ActivityLevel: "intense", IsActive: true},
	}

	s := Evaluate(33.5, 35.5, ptrF(25000), infra, []Airspace{testAirspace}, zones)

	// On top of critical infrastructure, inside restricted airspace,
	// inside an intense activity zone.
	assert.InDelta(t, 1.0, s.InfrastructureScore, 1e-9)
	assert.InDelta(t, 0.9, s.AirspaceScore, 1e-9)
	assert.InDelta(t, 1.0, s.ActivityScore, 1e-9)
	assert.InDelta(t, 0.35+0.315+0.30, s.Combined, 1e-9)
	assert.Equal(t, "critical", s.IntelligenceValue)
}

func TestEvaluate_InfrastructureDistanceDecay(t *testing.T) {
	t.Parallel()

	infra := []Infrastructure{
		{Name: "far site", Importance: "critical", Lat: 35.5, Lon: 35.5, IsActive: true},
	}

	// ~120 nm north of the point: outside the 100 nm falloff.
	s := Evaluate(33.5, 35.5, nil, infra, nil, nil)
	assert.Zero(t, s.InfrastructureScore)
	assert.Equal(t, "far site", s.NearestInfrastructure)
}

func TestEvaluate_AltitudeBracketsAirspace(t *testing.T) {
	t.Parallel()

	below := Evaluate(33.5, 35.5, ptrF(5000), nil, []Airspace{testAirspace}, nil)
	assert.Zero(t, below.AirspaceScore)

	inside := Evaluate(33.5, 35.5, ptrF(20000), nil, []Airspace{testAirspace}, nil)
	assert.InDelta(t, 0.9, inside.AirspaceScore, 1e-9)

	// No altitude given: limits are ignored.
	unknown := Evaluate(33.5, 35.5, nil, nil, []Airspace{testAirspace}, nil)
	assert.InDelta(t, 0.9, unknown.AirspaceScore, 1e-9)
}

func TestEvaluate_InactiveEntitiesIgnored(t *testing.T) {
	t.Parallel()

	infra := []Infrastructure{{Name: "mothballed", Importance: "critical", Lat: 33.5, Lon: 35.5, IsActive: false}}
	zones := []ActivityZone{{BucketLat: 33.5, BucketLon: 35.5, ActivityLevel: "intense", IsActive: false}}

	s := Evaluate(33.5, 35.5, nil, infra, nil, zones)
	assert.Zero(t, s.InfrastructureScore)
	assert.Zero(t, s.ActivityScore)
	assert.Equal(t, "low", s.IntelligenceValue)
}

func samplesAt(lat, lon float64, at time.Time, hexes ...string) []PositionSample {
	out := make([]PositionSample, 0, len(hexes))
	for _, hex := range hexes {
		out = append(out, PositionSample{Hex: hex, Lat: lat, Lon: lon, RecordedAt: at})
	}
	return out
}

func TestRefreshZones_ClustersByBucket(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)

	samples := samplesAt(33.51, 35.52, recent, "AE0001", "AE0002", "AE0003", "AE0004")
	// A second bucket with too few unique aircraft.
	samples = append(samples, samplesAt(40.0, 10.0, recent, "AE0005")...)

	zones := RefreshZones(samples, now, nil)
	require.Len(t, zones, 1)
	assert.Equal(t, 4, zones[0].UniqueAircraftCount)
	assert.Equal(t, "moderate", zones[0].ActivityLevel)
	assert.True(t, zones[0].IsActive)
	assert.InDelta(t, 33.55, zones[0].BucketLat, 1e-9)
}

func TestRefreshZones_StaleBucketInactive(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-3 * time.Hour)

	zones := RefreshZones(samplesAt(33.51, 35.52, old, "AE0001", "AE0002", "AE0003"), now, nil)
	require.Len(t, zones, 1)
	assert.False(t, zones[0].IsActive)
}

func TestLevelFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "intense", levelFor(12))
	assert.Equal(t, "high", levelFor(7))
	assert.Equal(t, "moderate", levelFor(4))
	assert.Equal(t, "low", levelFor(3))
}
