package patternmath

import (
	"math"
	"testing"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orbitPoints generates n points uniformly around a circle of the
// given radius (nm) centred at (centerLat, centerLon), tangent track,
// sampled every `interval`.
func orbitPoints(t *testing.T, centerLat, centerLon, radiusNM float64, n int, interval time.Duration) []Point {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]Point, n)
	for i := 0; i < n; i++ {
		bearing := float64(i) / float64(n) * 360
		lat, lon, err := geo.Destination(centerLat, centerLon, bearing, radiusNM)
		require.NoError(t, err)
		heading := math.Mod(bearing+90, 360)
		points[i] = Point{
			Lat:       lat,
			Lon:       lon,
			Timestamp: start.Add(time.Duration(i) * interval),
			Heading:   &heading,
		}
	}
	return points
}

func TestFitCircle_Orbit(t *testing.T) {
	t.Parallel()

	points := orbitPoints(t, 33.9, 35.5, 10, 60, 10*time.Second)
	fit := FitCircle(points)

	assert.InDelta(t, 10, fit.RadiusNM, 0.5)
	assert.GreaterOrEqual(t, fit.Confidence, 0.7)
}

func TestFitCircle_TooFewPoints(t *testing.T) {
	t.Parallel()
	fit := FitCircle([]Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}})
	assert.Zero(t, fit.RadiusNM)
}

func TestCalculateAngularVelocity_Orbit(t *testing.T) {
	t.Parallel()

	points := orbitPoints(t, 33.9, 35.5, 10, 60, 10*time.Second)
	av := CalculateAngularVelocity(points)

	assert.GreaterOrEqual(t, av.Consistency, 0.3)
	assert.NotEqual(t, Indeterminate, av.Direction)
}

func TestCalculateAngularVelocity_TooFewPoints(t *testing.T) {
	t.Parallel()
	av := CalculateAngularVelocity([]Point{{Lat: 1, Lon: 1}})
	assert.Equal(t, Indeterminate, av.Direction)
}

func TestFindHeadingReversals(t *testing.T) {
	t.Parallel()

	h1, h2, h3 := 10.0, 190.0, 15.0
	points := []Point{
		{Heading: &h1},
		{Heading: &h2}, // 180 delta: reversal
		{Heading: &h3}, // back to ~10: reversal
	}
	reversals := FindHeadingReversals(points)
	assert.Len(t, reversals, 2)
}

func TestFindHeadingReversals_NoneWhenStable(t *testing.T) {
	t.Parallel()
	h1, h2 := 10.0, 20.0
	reversals := FindHeadingReversals([]Point{{Heading: &h1}, {Heading: &h2}})
	assert.Empty(t, reversals)
}

func TestCheckAreaConfinement(t *testing.T) {
	t.Parallel()

	points := orbitPoints(t, 33.9, 35.5, 5, 20, 10*time.Second)
	conf := CheckAreaConfinement(points, 10000)
	assert.True(t, conf.Confined)
	assert.Greater(t, conf.AreaNM2, 0.0)
}

func TestDetectRacetrackParams(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var points []Point
	h1, h2 := 0.0, 180.0
	lat, lon := 33.9, 35.5
	for i := 0; i < 10; i++ {
		lat2, lon2, err := geo.Destination(lat, lon, 0, 5)
		require.NoError(t, err)
		points = append(points, Point{Lat: lat, Lon: lon, Heading: &h1, Timestamp: start.Add(time.Duration(i) * time.Minute)})
		lat, lon = lat2, lon2
	}
	for i := 0; i < 10; i++ {
		lat2, lon2, err := geo.Destination(lat, lon, 180, 5)
		require.NoError(t, err)
		points = append(points, Point{Lat: lat, Lon: lon, Heading: &h2, Timestamp: start.Add(time.Duration(10+i) * time.Minute)})
		lat, lon = lat2, lon2
	}

	rp := DetectRacetrackParams(points)
	assert.True(t, rp.Found)
	sep := math.Abs(angularDiff(rp.Heading1, rp.Heading2))
	assert.GreaterOrEqual(t, sep, 150.0)
	assert.LessOrEqual(t, sep, 210.0)
}

func TestDetectRacetrackParams_TooFewPoints(t *testing.T) {
	t.Parallel()
	rp := DetectRacetrackParams([]Point{{}, {}, {}})
	assert.False(t, rp.Found)
}

func TestDuration(t *testing.T) {
	t.Parallel()
	start := time.Now()
	points := []Point{{Timestamp: start}, {Timestamp: start.Add(5 * time.Minute)}}
	assert.Equal(t, 5*time.Minute, Duration(points))
}

func TestTotalPathLength(t *testing.T) {
	t.Parallel()
	points := []Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}}
	length := TotalPathLength(points)
	assert.InDelta(t, 60, length, 5)
}
